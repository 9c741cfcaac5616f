package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"blvckboard/internal/domain"
	"blvckboard/internal/repository"
	"blvckboard/internal/repository/mocks"
	"blvckboard/internal/service"
)

type mockRefresher struct {
	mock.Mock
}

func (m *mockRefresher) EnqueueBoardRefresh(ctx context.Context, reason, coordinate string) error {
	args := m.Called(ctx, reason, coordinate)
	return args.Error(0)
}

const testCacheTTL = 10 * time.Minute

func newBoardService(repo *mocks.CellRepository, cache repository.BoardCache, refresher service.BoardRefresher) *service.BoardService {
	return service.NewBoardService(repo, cache, refresher, service.NewQuotaResolver(2), domain.NewBoard(100, 50), testCacheTTL)
}

func TestBoardService_GetBoard_CacheHit(t *testing.T) {
	repo := new(mocks.CellRepository)
	cache := new(mocks.BoardCache)
	svc := newBoardService(repo, cache, nil)
	ctx := context.Background()

	cached := []domain.Cell{{Coordinate: "1,1", Color: "#fff", Owner: "0xA"}}
	cache.On("GetBoard", ctx).Return(cached, nil).Once()

	cells, err := svc.GetBoard(ctx)
	require.NoError(t, err)
	assert.Equal(t, cached, cells)
	repo.AssertNotCalled(t, "FindAll", mock.Anything)
	cache.AssertExpectations(t)
}

func TestBoardService_GetBoard_CacheMissPopulates(t *testing.T) {
	repo := new(mocks.CellRepository)
	cache := new(mocks.BoardCache)
	svc := newBoardService(repo, cache, nil)
	ctx := context.Background()

	stored := []domain.Cell{{Coordinate: "0,0", Color: "#000", Owner: "0xA"}, {Coordinate: "1,0", Color: "#111", Owner: "0xB"}}
	cache.On("GetBoard", ctx).Return(nil, repository.ErrBoardCacheMiss).Once()
	repo.On("FindAll", ctx).Return(stored, nil).Once()
	cache.On("ReplaceBoard", ctx, stored, testCacheTTL).Return(nil).Once()

	cells, err := svc.GetBoard(ctx)
	require.NoError(t, err)
	assert.Equal(t, stored, cells)
	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestBoardService_GetBoard_CacheErrorFallsBack(t *testing.T) {
	repo := new(mocks.CellRepository)
	cache := new(mocks.BoardCache)
	svc := newBoardService(repo, cache, nil)
	ctx := context.Background()

	cache.On("GetBoard", ctx).Return(nil, errors.New("redis: connection refused")).Once()
	repo.On("FindAll", ctx).Return(nil, nil).Once()

	cells, err := svc.GetBoard(ctx)
	require.NoError(t, err)
	assert.NotNil(t, cells, "空画板返回空切片而不是 nil")
	assert.Empty(t, cells)
	// 空画板不写缓存
	cache.AssertNotCalled(t, "ReplaceBoard", mock.Anything, mock.Anything, mock.Anything)
}

func TestBoardService_GetBoard_StorageError(t *testing.T) {
	repo := new(mocks.CellRepository)
	svc := newBoardService(repo, nil, nil)
	ctx := context.Background()

	dbErr := errors.New("gorm: find all cells: bad connection")
	repo.On("FindAll", ctx).Return(nil, dbErr).Once()

	cells, err := svc.GetBoard(ctx)
	assert.Nil(t, cells)
	requireRejection(t, err, service.CodeStorageError, dbErr.Error())
}

func TestBoardService_GetCell(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		repo := new(mocks.CellRepository)
		svc := newBoardService(repo, nil, nil)
		want := &domain.Cell{Coordinate: "7,3", Color: "#abc", Comment: "hi", Owner: "0xA"}
		repo.On("FindByCoordinate", ctx, "7,3").Return(want, nil).Once()

		got, err := svc.GetCell(ctx, 7, 3)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("never claimed", func(t *testing.T) {
		repo := new(mocks.CellRepository)
		svc := newBoardService(repo, nil, nil)
		repo.On("FindByCoordinate", ctx, "0,0").Return(nil, repository.ErrCellNotFound).Once()

		got, err := svc.GetCell(ctx, 0, 0)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("off board", func(t *testing.T) {
		repo := new(mocks.CellRepository)
		svc := newBoardService(repo, nil, nil)

		_, err := svc.GetCell(ctx, 100, 0)
		requireRejection(t, err, service.CodeInvalidInput, service.MsgInvalidInput)
		repo.AssertNotCalled(t, "FindByCoordinate", mock.Anything, mock.Anything)
	})
}

func TestBoardService_QuotaStatus(t *testing.T) {
	ctx := context.Background()
	repo := new(mocks.CellRepository)
	svc := newBoardService(repo, nil, nil)

	repo.On("CountByOwner", ctx, "0xA").Return(int64(3), nil)

	status, err := svc.QuotaStatus(ctx, " 0xA ", 2)
	require.NoError(t, err)
	assert.Equal(t, service.QuotaStatus{Owner: "0xA", Held: 3, MaxAllowed: 4, Remaining: 1}, *status)

	// 持有量下降后 remaining 不会为负
	status, err = svc.QuotaStatus(ctx, "0xA", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), status.Remaining)

	_, err = svc.QuotaStatus(ctx, "", 1)
	requireRejection(t, err, service.CodeInvalidInput, service.MsgInvalidInput)

	_, err = svc.QuotaStatus(ctx, "0xA", -1)
	requireRejection(t, err, service.CodeInvalidInput, service.MsgNotHolder)
}

func TestBoardService_CellChanged(t *testing.T) {
	ctx := context.Background()
	cell := domain.Cell{Coordinate: "2,2", Color: "#222", Owner: "0xA"}

	t.Run("writes through and enqueues refresh", func(t *testing.T) {
		cache := new(mocks.BoardCache)
		refresher := new(mockRefresher)
		svc := newBoardService(new(mocks.CellRepository), cache, refresher)

		cache.On("PutCellIfCached", ctx, cell).Return(true, nil).Once()
		refresher.On("EnqueueBoardRefresh", ctx, "cell_changed", "2,2").Return(nil).Once()

		svc.CellChanged(ctx, cell)
		cache.AssertExpectations(t)
		refresher.AssertExpectations(t)
	})

	t.Run("failures are swallowed", func(t *testing.T) {
		cache := new(mocks.BoardCache)
		refresher := new(mockRefresher)
		svc := newBoardService(new(mocks.CellRepository), cache, refresher)

		cache.On("PutCellIfCached", ctx, cell).Return(false, errors.New("redis down")).Once()
		refresher.On("EnqueueBoardRefresh", ctx, "cell_changed", "2,2").Return(errors.New("redis down")).Once()

		assert.NotPanics(t, func() { svc.CellChanged(ctx, cell) })
		cache.AssertExpectations(t)
		refresher.AssertExpectations(t)
	})

	t.Run("no cache configured", func(t *testing.T) {
		svc := newBoardService(new(mocks.CellRepository), nil, nil)
		assert.NotPanics(t, func() { svc.CellChanged(ctx, cell) })
	})
}

func TestBoardService_RefreshCache(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces cached board", func(t *testing.T) {
		repo := new(mocks.CellRepository)
		cache := new(mocks.BoardCache)
		svc := newBoardService(repo, cache, nil)
		stored := []domain.Cell{{Coordinate: "0,0", Color: "#000", Owner: "0xA"}}

		repo.On("FindAll", ctx).Return(stored, nil).Once()
		cache.On("ReplaceBoard", ctx, stored, testCacheTTL).Return(nil).Once()

		n, err := svc.RefreshCache(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		cache.AssertExpectations(t)
	})

	t.Run("empty board invalidates", func(t *testing.T) {
		repo := new(mocks.CellRepository)
		cache := new(mocks.BoardCache)
		svc := newBoardService(repo, cache, nil)

		repo.On("FindAll", ctx).Return([]domain.Cell{}, nil).Once()
		cache.On("Invalidate", ctx).Return(nil).Once()

		n, err := svc.RefreshCache(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
		cache.AssertExpectations(t)
	})

	t.Run("storage error", func(t *testing.T) {
		repo := new(mocks.CellRepository)
		cache := new(mocks.BoardCache)
		svc := newBoardService(repo, cache, nil)

		repo.On("FindAll", ctx).Return(nil, errors.New("db gone")).Once()

		_, err := svc.RefreshCache(ctx)
		assert.ErrorIs(t, err, service.ErrStorage)
	})

	t.Run("no cache is a no-op", func(t *testing.T) {
		repo := new(mocks.CellRepository)
		svc := newBoardService(repo, nil, nil)

		n, err := svc.RefreshCache(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
		repo.AssertNotCalled(t, "FindAll", mock.Anything)
	})
}
