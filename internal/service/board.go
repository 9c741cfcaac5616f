package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"blvckboard/internal/domain"
	"blvckboard/internal/repository"
)

// BoardRefresher 异步重建画板缓存 (由 asynq 实现)
type BoardRefresher interface {
	EnqueueBoardRefresh(ctx context.Context, reason, coordinate string) error
}

// QuotaStatus 描述某个地址当前的配额使用情况
type QuotaStatus struct {
	Owner      string `json:"owner"`
	Held       int64  `json:"held"`
	MaxAllowed int64  `json:"maxAllowed"`
	Remaining  int64  `json:"remaining"`
}

// BoardService 负责画板的只读查询和读缓存维护。
// 读到的画板可能已经过时，客户端自行轮询。
type BoardService struct {
	cellRepo  repository.CellRepository
	cache     repository.BoardCache // 可为 nil，表示不使用缓存
	refresher BoardRefresher        // 可为 nil
	quota     QuotaResolver
	board     domain.Board
	cacheTTL  time.Duration
}

// NewBoardService 创建 BoardService 实例。
func NewBoardService(
	cellRepo repository.CellRepository,
	cache repository.BoardCache,
	refresher BoardRefresher,
	quota QuotaResolver,
	board domain.Board,
	cacheTTL time.Duration,
) *BoardService {
	if cellRepo == nil {
		panic("CellRepository cannot be nil for BoardService")
	}
	return &BoardService{
		cellRepo:  cellRepo,
		cache:     cache,
		refresher: refresher,
		quota:     quota,
		board:     board,
		cacheTTL:  cacheTTL,
	}
}

// Board 返回画板尺寸
func (s *BoardService) Board() domain.Board {
	return s.board
}

// GetBoard 返回所有已认领的单元格，优先读缓存。
func (s *BoardService) GetBoard(ctx context.Context) ([]domain.Cell, error) {
	if s.cache != nil {
		cells, err := s.cache.GetBoard(ctx)
		if err == nil {
			return cells, nil
		}
		if !errors.Is(err, repository.ErrBoardCacheMiss) {
			// 缓存故障时降级到数据库
			logrus.WithError(err).Warn("GetBoard: board cache unavailable, falling back to database")
		}
	}

	cells, err := s.cellRepo.FindAll(ctx)
	if err != nil {
		logrus.WithError(err).Error("GetBoard: repository error")
		return nil, rejectStorage(err)
	}
	if cells == nil {
		cells = []domain.Cell{}
	}

	if s.cache != nil && len(cells) > 0 {
		if err := s.cache.ReplaceBoard(ctx, cells, s.cacheTTL); err != nil {
			logrus.WithError(err).Warn("GetBoard: failed to populate board cache")
		}
	}
	return cells, nil
}

// GetCell 返回单个单元格；从未被认领时返回 nil, nil。
func (s *BoardService) GetCell(ctx context.Context, x, y int) (*domain.Cell, error) {
	if !s.board.Contains(x, y) {
		return nil, rejectInvalidInput(domain.ErrInvalidCoordinate)
	}
	coordinate := domain.Coordinate{X: x, Y: y}.String()
	cell, err := s.cellRepo.FindByCoordinate(ctx, coordinate)
	if err != nil {
		if errors.Is(err, repository.ErrCellNotFound) {
			return nil, nil
		}
		logrus.WithError(err).WithField("coordinate", coordinate).Error("GetCell: repository error")
		return nil, rejectStorage(err)
	}
	return cell, nil
}

// QuotaStatus 返回 owner 的已持有数量和上限
func (s *BoardService) QuotaStatus(ctx context.Context, owner string, holdingCount int64) (*QuotaStatus, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return nil, rejectInvalidInput(nil)
	}
	if holdingCount < 0 {
		return nil, rejectNotHolder(holdingCount)
	}
	held, err := s.cellRepo.CountByOwner(ctx, owner)
	if err != nil {
		logrus.WithError(err).WithField("owner", owner).Error("QuotaStatus: repository error")
		return nil, rejectStorage(err)
	}
	maxAllowed := s.quota.MaxAllowed(holdingCount)
	remaining := maxAllowed - held
	if remaining < 0 {
		remaining = 0
	}
	return &QuotaStatus{
		Owner:      owner,
		Held:       held,
		MaxAllowed: maxAllowed,
		Remaining:  remaining,
	}, nil
}

// CellChanged 实现 BoardNotifier：写穿缓存，并排队一次去重的全量刷新，
// 修正并发写入时缓存顺序可能与数据库不一致的问题。
func (s *BoardService) CellChanged(ctx context.Context, cell domain.Cell) {
	logCtx := logrus.WithField("coordinate", cell.Coordinate)
	if s.cache != nil {
		if _, err := s.cache.PutCellIfCached(ctx, cell); err != nil {
			logCtx.WithError(err).Warn("CellChanged: failed to write cell into board cache")
		}
	}
	if s.refresher != nil {
		if err := s.refresher.EnqueueBoardRefresh(ctx, "cell_changed", cell.Coordinate); err != nil {
			logCtx.WithError(err).Warn("CellChanged: failed to enqueue board refresh")
		}
	}
}

// RefreshCache 从数据库重建画板缓存，返回写入的单元格数量
func (s *BoardService) RefreshCache(ctx context.Context) (int, error) {
	if s.cache == nil {
		return 0, nil
	}
	cells, err := s.cellRepo.FindAll(ctx)
	if err != nil {
		return 0, rejectStorage(err)
	}
	if len(cells) == 0 {
		if err := s.cache.Invalidate(ctx); err != nil {
			return 0, rejectStorage(err)
		}
		return 0, nil
	}
	if err := s.cache.ReplaceBoard(ctx, cells, s.cacheTTL); err != nil {
		return 0, rejectStorage(err)
	}
	return len(cells), nil
}
