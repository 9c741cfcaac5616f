package setup

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"blvckboard/internal/domain"
)

// MigrateDB handles all database migrations using the provided GORM DB instance.
func MigrateDB(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("cannot migrate database with nil DB connection")
	}
	if err := migrateCellsTable(db); err != nil {
		return fmt.Errorf("failed to migrate cells table: %w", err)
	}
	logrus.Info("Database migration completed successfully")
	return nil
}

// migrateCellsTable 表不存在时在 MySQL 上用自定义 SQL 建表 (固定引擎与字符集)，
// 其余情况交给 AutoMigrate 补齐列和索引
func migrateCellsTable(db *gorm.DB) error {
	if db.Dialector.Name() == DriverMySQL && !db.Migrator().HasTable(&domain.Cell{}) {
		return createCellsTableMySQL(db)
	}
	if err := db.AutoMigrate(&domain.Cell{}); err != nil {
		logrus.Errorf("Failed to auto-migrate cells table: %v", err)
		return err
	}
	logrus.Info("Cells table schema checked/updated successfully")
	return nil
}

// owner 使用二进制排序规则，比较区分大小写，与服务层的 OwnedBy 一致
func createCellsTableMySQL(db *gorm.DB) error {
	sql := `
	CREATE TABLE cells (
		coordinate VARCHAR(16) NOT NULL PRIMARY KEY, -- "x,y"
		color VARCHAR(64) NOT NULL,
		symbol VARCHAR(8),
		comment TEXT,
		owner VARCHAR(191), -- 限制长度以匹配索引
		created_at DATETIME(3),
		updated_at DATETIME(3),
		INDEX idx_cells_owner (owner)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_bin;
	`
	if err := db.Exec(sql).Error; err != nil {
		logrus.Errorf("Failed to create cells table: %v", err)
		return fmt.Errorf("failed to create cells table: %w", err)
	}
	logrus.Info("Cells table created successfully")
	return nil
}
