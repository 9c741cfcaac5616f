package repository

import "errors"

// 通用的存储库错误
var (
	// ErrNotFound 表示请求的记录未找到 (或缓存未命中)
	ErrNotFound = errors.New("repository: record not found")
	// ErrDuplicateEntry 表示写入违反了唯一约束
	ErrDuplicateEntry = errors.New("repository: duplicate entry")
	// ErrConflict 表示并发事务在锁竞争中失败 (死锁 / 锁等待超时 / SQLITE_BUSY)，调用方可以重试
	ErrConflict = errors.New("repository: concurrent update conflict, retry")
	// ErrQuotaExceeded 表示所有者已持有的单元格数达到上限
	ErrQuotaExceeded = errors.New("repository: owner quota exceeded")
)

// 特定资源的错误
var (
	ErrCellNotFound = ErrNotFound
	// 缓存未命中同样用 ErrNotFound 表示
	ErrBoardCacheMiss = ErrNotFound
)
