package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"blvckboard/internal/domain"
)

// BoardCache 是 repository.BoardCache 的 testify mock
type BoardCache struct {
	mock.Mock
}

func (m *BoardCache) GetBoard(ctx context.Context) ([]domain.Cell, error) {
	args := m.Called(ctx)
	var cells []domain.Cell
	if v := args.Get(0); v != nil {
		cells = v.([]domain.Cell)
	}
	return cells, args.Error(1)
}

func (m *BoardCache) ReplaceBoard(ctx context.Context, cells []domain.Cell, ttl time.Duration) error {
	args := m.Called(ctx, cells, ttl)
	return args.Error(0)
}

func (m *BoardCache) PutCellIfCached(ctx context.Context, cell domain.Cell) (bool, error) {
	args := m.Called(ctx, cell)
	return args.Bool(0), args.Error(1)
}

func (m *BoardCache) Invalidate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
