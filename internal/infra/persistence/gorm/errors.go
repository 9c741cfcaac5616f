package gormpersistence

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"blvckboard/internal/repository"
)

// MySQL 错误码
const (
	mysqlErrDuplicateEntry  = 1062
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
)

// mapWriteError 把驱动层错误映射为仓库错误，其他错误包装后返回
func mapWriteError(op string, err error) error {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case mysqlErrDuplicateEntry:
			return fmt.Errorf("gorm: %s: %w", op, repository.ErrDuplicateEntry)
		case mysqlErrLockWaitTimeout, mysqlErrDeadlock:
			return fmt.Errorf("gorm: %s: %w", op, repository.ErrConflict)
		}
	}
	// SQLite 驱动没有稳定的错误类型可用，只能匹配错误字符串
	if isDuplicateEntryError(err) {
		return fmt.Errorf("gorm: %s: %w", op, repository.ErrDuplicateEntry)
	}
	if isLockConflictError(err) {
		return fmt.Errorf("gorm: %s: %w", op, repository.ErrConflict)
	}
	return fmt.Errorf("gorm: %s: %w", op, err)
}

func isDuplicateEntryError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || // SQLite
		strings.Contains(msg, "Duplicate entry") || // MySQL
		strings.Contains(msg, "duplicate key value violates unique constraint") // PostgreSQL
}

func isLockConflictError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database table is locked")
}
