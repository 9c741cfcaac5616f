package repository

import (
	"context"
	"time"

	"blvckboard/internal/domain"
)

// BoardCache 定义了整个画板的读缓存，通常由 Redis 实现。
// 缓存只是最终一致的读模型，数据以 CellRepository 为准。
type BoardCache interface {
	// GetBoard 返回缓存中的全部单元格；缓存不存在时返回 ErrBoardCacheMiss。
	GetBoard(ctx context.Context) ([]domain.Cell, error)

	// ReplaceBoard 用 cells 整体替换缓存，ttl 为 0 表示不过期。
	ReplaceBoard(ctx context.Context, cells []domain.Cell, ttl time.Duration) error

	// PutCellIfCached 仅当缓存已存在时写入单个单元格，避免生成不完整的画板。
	// 返回是否写入。
	PutCellIfCached(ctx context.Context, cell domain.Cell) (bool, error)

	// Invalidate 删除整个缓存。
	Invalidate(ctx context.Context) error
}
