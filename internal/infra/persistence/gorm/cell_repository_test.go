package gormpersistence_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blvckboard/internal/domain"
	gormpersistence "blvckboard/internal/infra/persistence/gorm"
	"blvckboard/internal/infra/setup"
	"blvckboard/internal/repository"
)

// newTestRepo 使用内存 SQLite 创建仓库
func newTestRepo(t *testing.T) *gormpersistence.GormCellRepository {
	t.Helper()
	db, err := setup.InitDB(setup.DBConfig{Driver: setup.DriverSQLite, SQLitePath: ":memory:", LogLevel: "silent"})
	require.NoError(t, err)
	require.NoError(t, setup.MigrateDB(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gormpersistence.NewGormCellRepository(db)
}

func cellAt(x, y int, owner, color string) *domain.Cell {
	return &domain.Cell{
		Coordinate: domain.Coordinate{X: x, Y: y}.String(),
		Color:      color,
		Owner:      owner,
	}
}

func TestGormCellRepository_EmptyBoardHasNoCells(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	board := domain.NewBoard(0, 0)

	for y := 0; y < board.Height; y++ {
		for x := 0; x < board.Width; x++ {
			cell, err := repo.FindByCoordinate(ctx, domain.Coordinate{X: x, Y: y}.String())
			require.ErrorIs(t, err, repository.ErrCellNotFound)
			require.Nil(t, cell)
		}
	}

	cells, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, cells)
}

func TestGormCellRepository_ClaimOrUpdate_InsertThenOverwrite(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.ClaimOrUpdate(ctx, &domain.Cell{
		Coordinate: "3,4", Color: "#ff0000", Symbol: "A", Comment: "hello", Owner: "0xA",
	})
	require.NoError(t, err)
	assert.Equal(t, "3,4", first.Coordinate)
	assert.Equal(t, "#ff0000", first.Color)
	assert.Equal(t, "A", first.Symbol)
	assert.Equal(t, "hello", first.Comment)
	assert.Equal(t, "0xA", first.Owner)

	// 另一个 owner 覆盖整行
	second, err := repo.ClaimOrUpdate(ctx, &domain.Cell{
		Coordinate: "3,4", Color: "#00ff00", Symbol: "", Comment: "", Owner: "0xB",
	})
	require.NoError(t, err)
	assert.Equal(t, "#00ff00", second.Color)
	assert.Empty(t, second.Symbol)
	assert.Empty(t, second.Comment)
	assert.Equal(t, "0xB", second.Owner)
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt), "created_at 应保留首次认领时间")

	stored, err := repo.FindByCoordinate(ctx, "3,4")
	require.NoError(t, err)
	assert.Equal(t, "0xB", stored.Owner)

	cells, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, cells, 1)
}

func TestGormCellRepository_CountByOwner(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := repo.ClaimOrUpdate(ctx, cellAt(i, 0, "0xA", "#000"))
		require.NoError(t, err)
	}
	_, err := repo.ClaimOrUpdate(ctx, cellAt(9, 9, "0xB", "#fff"))
	require.NoError(t, err)

	held, err := repo.CountByOwner(ctx, "0xA")
	require.NoError(t, err)
	assert.Equal(t, int64(3), held)

	held, err = repo.CountByOwner(ctx, "0xa")
	require.NoError(t, err)
	assert.Equal(t, int64(0), held, "owner 比较区分大小写")

	held, err = repo.CountByOwner(ctx, "0xC")
	require.NoError(t, err)
	assert.Zero(t, held)
}

func TestGormCellRepository_FindAll_EachCellOnce(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := repo.ClaimOrUpdate(ctx, cellAt(i, i, "0xA", "#000"))
		require.NoError(t, err)
	}
	// 重复写同一个坐标不会产生新行
	_, err := repo.ClaimOrUpdate(ctx, cellAt(2, 2, "0xB", "#111"))
	require.NoError(t, err)

	cells, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, cells, 5)
	seen := map[string]bool{}
	for _, c := range cells {
		assert.False(t, seen[c.Coordinate], "coordinate %s appears twice", c.Coordinate)
		seen[c.Coordinate] = true
	}
}

func TestGormCellRepository_ClaimWithinQuota(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects new acquisition at quota", func(t *testing.T) {
		repo := newTestRepo(t)
		_, err := repo.ClaimWithinQuota(ctx, cellAt(0, 0, "0xA", "#000"), 2)
		require.NoError(t, err)
		_, err = repo.ClaimWithinQuota(ctx, cellAt(1, 0, "0xA", "#000"), 2)
		require.NoError(t, err)

		_, err = repo.ClaimWithinQuota(ctx, cellAt(2, 0, "0xA", "#000"), 2)
		require.ErrorIs(t, err, repository.ErrQuotaExceeded)

		_, err = repo.FindByCoordinate(ctx, "2,0")
		assert.ErrorIs(t, err, repository.ErrCellNotFound, "被拒绝的认领不应写入")
		held, err := repo.CountByOwner(ctx, "0xA")
		require.NoError(t, err)
		assert.Equal(t, int64(2), held)
	})

	t.Run("same owner edit is exempt", func(t *testing.T) {
		repo := newTestRepo(t)
		_, err := repo.ClaimWithinQuota(ctx, cellAt(0, 0, "0xA", "#000"), 1)
		require.NoError(t, err)

		edited, err := repo.ClaimWithinQuota(ctx, cellAt(0, 0, "0xA", "#abcdef"), 1)
		require.NoError(t, err)
		assert.Equal(t, "#abcdef", edited.Color)

		// 配额为 0 时依然可以编辑自己的单元格
		edited, err = repo.ClaimWithinQuota(ctx, cellAt(0, 0, "0xA", "#123456"), 0)
		require.NoError(t, err)
		assert.Equal(t, "#123456", edited.Color)
	})

	t.Run("zero quota cannot claim", func(t *testing.T) {
		repo := newTestRepo(t)
		_, err := repo.ClaimWithinQuota(ctx, cellAt(5, 5, "0xA", "#000"), 0)
		require.ErrorIs(t, err, repository.ErrQuotaExceeded)
	})

	t.Run("taking over another owner's cell consumes quota", func(t *testing.T) {
		repo := newTestRepo(t)
		_, err := repo.ClaimWithinQuota(ctx, cellAt(0, 0, "0xB", "#000"), 5)
		require.NoError(t, err)
		_, err = repo.ClaimWithinQuota(ctx, cellAt(1, 1, "0xA", "#000"), 1)
		require.NoError(t, err)

		_, err = repo.ClaimWithinQuota(ctx, cellAt(0, 0, "0xA", "#fff"), 1)
		require.ErrorIs(t, err, repository.ErrQuotaExceeded)

		cell, err := repo.FindByCoordinate(ctx, "0,0")
		require.NoError(t, err)
		assert.Equal(t, "0xB", cell.Owner)
	})
}

func TestGormCellRepository_ConcurrentSameCoordinate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	const writers = 16

	owners := make(map[string]bool, writers)
	errs := make(chan error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		owner := fmt.Sprintf("0x%02d", i)
		owners[owner] = true
		wg.Add(1)
		go func(owner string) {
			defer wg.Done()
			_, err := repo.ClaimOrUpdate(ctx, cellAt(7, 7, owner, "#"+owner))
			errs <- err
		}(owner)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			assert.False(t, errors.Is(err, repository.ErrDuplicateEntry), "不应出现主键冲突: %v", err)
			assert.ErrorIs(t, err, repository.ErrConflict, "失败只能是可重试的冲突")
		}
	}

	cells, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, cells, 1)
	assert.True(t, owners[cells[0].Owner], "最终 owner 必须是某个写者")
	assert.Equal(t, "#"+cells[0].Owner, cells[0].Color, "行内字段来自同一次写入")
}

func TestGormCellRepository_ConcurrentClaimsRespectQuota(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	const attempts = 10
	const maxAllowed = 2

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(x int) {
			defer wg.Done()
			_, err := repo.ClaimWithinQuota(ctx, cellAt(x, 0, "0xA", "#000"), maxAllowed)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	held, err := repo.CountByOwner(ctx, "0xA")
	require.NoError(t, err)
	assert.Equal(t, int64(maxAllowed), held)
	assert.Equal(t, maxAllowed, succeeded)
}
