package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"blvckboard/internal/domain"
)

// CellRepository 是 repository.CellRepository 的 testify mock
type CellRepository struct {
	mock.Mock
}

func (m *CellRepository) FindAll(ctx context.Context) ([]domain.Cell, error) {
	args := m.Called(ctx)
	var cells []domain.Cell
	if v := args.Get(0); v != nil {
		cells = v.([]domain.Cell)
	}
	return cells, args.Error(1)
}

func (m *CellRepository) FindByCoordinate(ctx context.Context, coordinate string) (*domain.Cell, error) {
	args := m.Called(ctx, coordinate)
	var cell *domain.Cell
	if v := args.Get(0); v != nil {
		cell = v.(*domain.Cell)
	}
	return cell, args.Error(1)
}

func (m *CellRepository) CountByOwner(ctx context.Context, owner string) (int64, error) {
	args := m.Called(ctx, owner)
	return args.Get(0).(int64), args.Error(1)
}

func (m *CellRepository) ClaimOrUpdate(ctx context.Context, cell *domain.Cell) (*domain.Cell, error) {
	args := m.Called(ctx, cell)
	var out *domain.Cell
	if v := args.Get(0); v != nil {
		out = v.(*domain.Cell)
	}
	return out, args.Error(1)
}

func (m *CellRepository) ClaimWithinQuota(ctx context.Context, cell *domain.Cell, maxAllowed int64) (*domain.Cell, error) {
	args := m.Called(ctx, cell, maxAllowed)
	var out *domain.Cell
	if v := args.Get(0); v != nil {
		out = v.(*domain.Cell)
	}
	return out, args.Error(1)
}
