package repository

import (
	"context"

	"blvckboard/internal/domain"
)

// CellRepository 定义了单元格记录的持久化操作。
// 同一坐标上的写入必须串行化，不同坐标之间不能互相阻塞。
type CellRepository interface {
	// FindAll 返回所有已被认领的单元格，每个坐标恰好出现一次。
	FindAll(ctx context.Context) ([]domain.Cell, error)

	// FindByCoordinate 根据 "x,y" 查找单元格。
	// 未被认领时返回 ErrCellNotFound。
	FindByCoordinate(ctx context.Context, coordinate string) (*domain.Cell, error)

	// CountByOwner 统计 owner 当前持有的单元格数量。
	CountByOwner(ctx context.Context, owner string) (int64, error)

	// ClaimOrUpdate 原子地插入或覆盖 cell.Coordinate 对应的记录，
	// 返回写入后的行。不做任何配额检查。
	ClaimOrUpdate(ctx context.Context, cell *domain.Cell) (*domain.Cell, error)

	// ClaimWithinQuota 在同一个事务里完成：目标单元格归属检查、owner 计数、
	// 配额判断和 upsert。目标已经属于 cell.Owner 时跳过配额检查。
	// 超出配额返回 ErrQuotaExceeded，锁竞争失败返回 ErrConflict。
	ClaimWithinQuota(ctx context.Context, cell *domain.Cell, maxAllowed int64) (*domain.Cell, error)
}
