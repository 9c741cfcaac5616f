package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"blvckboard/internal/domain"
	"blvckboard/internal/repository"
)

// upsert 时会被覆盖的列；created_at 保留首次认领的时间
var cellUpdateColumns = []string{"color", "symbol", "comment", "owner", "updated_at"}

// GormCellRepository 是 CellRepository 接口的 GORM 实现
type GormCellRepository struct {
	db *gorm.DB
}

// NewGormCellRepository 创建 GormCellRepository 实例
func NewGormCellRepository(db *gorm.DB) *GormCellRepository {
	if db == nil {
		panic("database connection cannot be nil for GormCellRepository")
	}
	return &GormCellRepository{db: db}
}

// FindAll 返回所有单元格，按坐标排序只是为了输出稳定
func (r *GormCellRepository) FindAll(ctx context.Context) ([]domain.Cell, error) {
	var cells []domain.Cell
	err := r.db.WithContext(ctx).Order("coordinate").Find(&cells).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find all cells: %w", err)
	}
	return cells, nil
}

// FindByCoordinate 实现根据坐标查找单元格
func (r *GormCellRepository) FindByCoordinate(ctx context.Context, coordinate string) (*domain.Cell, error) {
	var cell domain.Cell
	err := r.db.WithContext(ctx).Where("coordinate = ?", coordinate).Take(&cell).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrCellNotFound
		}
		return nil, fmt.Errorf("gorm: find cell %s: %w", coordinate, err)
	}
	return &cell, nil
}

// CountByOwner 实现统计 owner 持有的单元格数量
func (r *GormCellRepository) CountByOwner(ctx context.Context, owner string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Cell{}).Where("owner = ?", owner).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("gorm: count cells of owner %s: %w", owner, err)
	}
	return count, nil
}

// ClaimOrUpdate 用一条 INSERT ... ON CONFLICT / ON DUPLICATE KEY UPDATE 完成插入或覆盖，
// 并在同一事务内读回写入后的行。同一坐标的并发调用由主键行锁串行化。
func (r *GormCellRepository) ClaimOrUpdate(ctx context.Context, cell *domain.Cell) (*domain.Cell, error) {
	var result *domain.Cell
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		out, err := upsertCell(tx, cell)
		if err != nil {
			return err
		}
		result = out
		return nil
	})
	if err != nil {
		return nil, mapWriteError(fmt.Sprintf("claim cell %s", cell.Coordinate), err)
	}
	return result, nil
}

// ClaimWithinQuota 在一个事务里完成归属检查、计数、配额判断和 upsert。
// MySQL 下目标行和 owner 索引范围都加 FOR UPDATE 锁，同一 owner 的并发认领因此串行；
// SQLite 不支持行锁，由写事务本身串行化。
func (r *GormCellRepository) ClaimWithinQuota(ctx context.Context, cell *domain.Cell, maxAllowed int64) (*domain.Cell, error) {
	var result *domain.Cell
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current domain.Cell
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("coordinate = ?", cell.Coordinate).
			Take(&current).Error
		sameOwner := false
		switch {
		case err == nil:
			sameOwner = current.OwnedBy(cell.Owner)
		case errors.Is(err, gorm.ErrRecordNotFound):
			// 从未被认领
		default:
			return err
		}

		// 已经是自己的单元格：编辑不占用新配额
		if !sameOwner {
			var held int64
			err := tx.Model(&domain.Cell{}).
				Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("owner = ?", cell.Owner).
				Count(&held).Error
			if err != nil {
				return err
			}
			if held >= maxAllowed {
				return repository.ErrQuotaExceeded
			}
		}

		out, err := upsertCell(tx, cell)
		if err != nil {
			return err
		}
		result = out
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrQuotaExceeded) {
			return nil, err
		}
		return nil, mapWriteError(fmt.Sprintf("claim cell %s within quota %d", cell.Coordinate, maxAllowed), err)
	}
	return result, nil
}

// upsertCell 必须在事务内调用
func upsertCell(tx *gorm.DB, cell *domain.Cell) (*domain.Cell, error) {
	row := domain.Cell{
		Coordinate: cell.Coordinate,
		Color:      cell.Color,
		Symbol:     cell.Symbol,
		Comment:    cell.Comment,
		Owner:      cell.Owner,
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "coordinate"}},
		DoUpdates: clause.AssignmentColumns(cellUpdateColumns),
	}).Create(&row).Error
	if err != nil {
		return nil, err
	}

	var out domain.Cell
	if err := tx.Where("coordinate = ?", row.Coordinate).Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}
