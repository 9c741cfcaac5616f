package service

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"blvckboard/internal/domain"
	"blvckboard/internal/repository"
)

// BoardNotifier 在单元格写入成功后被调用，用于刷新读模型。
// 实现必须自己处理错误，不能影响认领结果。
type BoardNotifier interface {
	CellChanged(ctx context.Context, cell domain.Cell)
}

// ClaimRequest 是一次认领/编辑请求
type ClaimRequest struct {
	Coordinate   string
	Color        string
	Symbol       string
	Comment      string
	Requester    string // 钱包地址
	HoldingCount int64  // 外部提供的持有数量，服务层不做校验，直接信任
}

// ClaimService 负责认领单元格以及配额控制。
// 每次请求互相独立，服务本身不持有任何锁。
type ClaimService struct {
	cellRepo repository.CellRepository
	quota    QuotaResolver
	board    domain.Board
	notifier BoardNotifier
}

// NewClaimService 创建 ClaimService 实例。notifier 可以为 nil。
func NewClaimService(cellRepo repository.CellRepository, quota QuotaResolver, board domain.Board, notifier BoardNotifier) *ClaimService {
	if cellRepo == nil {
		panic("CellRepository cannot be nil for ClaimService")
	}
	return &ClaimService{
		cellRepo: cellRepo,
		quota:    quota,
		board:    board,
		notifier: notifier,
	}
}

// SubmitClaim 校验并执行一次认领。返回的错误总是 *Rejection。
//
// 校验顺序 (第一个失败的检查生效):
//  1. coordinate / color / requester 不能为空
//  2. 持有数量不能为负
//  3. 坐标必须在画板内，symbol 最多一个字符
//  4. 计算配额上限
//  5. 仓库在一个事务里检查目标单元格归属、计数并写入；
//     目标已属于请求者时跳过配额检查
func (s *ClaimService) SubmitClaim(ctx context.Context, req ClaimRequest) (*domain.CellProjection, error) {
	logCtx := logrus.WithFields(logrus.Fields{
		"coordinate": req.Coordinate,
		"owner":      req.Requester,
		"holding":    req.HoldingCount,
	})

	// 1. 必填字段
	coordinate := strings.TrimSpace(req.Coordinate)
	color := strings.TrimSpace(req.Color)
	requester := strings.TrimSpace(req.Requester)
	if coordinate == "" || color == "" || requester == "" {
		logCtx.Warn("Claim rejected: missing required field")
		return nil, rejectInvalidInput(nil)
	}

	// 2. 持有数量
	if req.HoldingCount < 0 {
		logCtx.Warn("Claim rejected: negative holding count")
		return nil, rejectNotHolder(req.HoldingCount)
	}

	// 3. 坐标和 symbol 的格式
	coord, err := s.board.ParseOnBoard(coordinate)
	if err != nil {
		logCtx.WithError(err).Warn("Claim rejected: invalid coordinate")
		return nil, rejectInvalidInput(err)
	}
	if !domain.ValidSymbol(req.Symbol) {
		logCtx.Warn("Claim rejected: symbol longer than one character")
		return nil, rejectInvalidInput(nil)
	}

	// 4. 配额上限
	maxAllowed := s.quota.MaxAllowed(req.HoldingCount)
	logCtx = logCtx.WithField("max_allowed", maxAllowed)

	// 5. 归属检查 + 计数 + upsert (同一事务)
	cell := &domain.Cell{
		Coordinate: coord.String(),
		Color:      color,
		Symbol:     req.Symbol,
		Comment:    req.Comment,
		Owner:      requester,
	}
	saved, err := s.cellRepo.ClaimWithinQuota(ctx, cell, maxAllowed)
	if err != nil {
		if errors.Is(err, repository.ErrQuotaExceeded) {
			logCtx.Info("Claim rejected: quota exceeded")
			return nil, rejectQuotaExceeded(maxAllowed)
		}
		// 存储错误不在这里重试，由调用方决定是否重新提交
		logCtx.WithError(err).Error("Claim failed: repository error")
		return nil, rejectStorage(err)
	}
	if saved == nil { // 防御
		logCtx.Error("Claim failed: repository returned nil cell without error")
		return nil, rejectStorage(errors.New("cell was not stored"))
	}

	if s.notifier != nil {
		s.notifier.CellChanged(ctx, *saved)
	}

	logCtx.Info("Cell claimed successfully")
	projection := saved.Projection()
	return &projection, nil
}
