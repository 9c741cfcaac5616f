package setup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// 支持的数据库驱动
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// DBConfig 描述数据库连接参数
type DBConfig struct {
	Driver     string
	User       string
	Password   string
	Host       string
	Port       string
	Name       string
	SQLitePath string
	LogLevel   string // 应用日志级别，用于推导 GORM 日志级别
}

// InitDB 初始化数据库连接并配置连接池
func InitDB(cfg DBConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(gormLogLevel(cfg.LogLevel))}

	var (
		db  *gorm.DB
		err error
	)
	switch strings.ToLower(cfg.Driver) {
	case "", DriverMySQL:
		dsn, dsnErr := getDSN(cfg)
		if dsnErr != nil {
			return nil, fmt.Errorf("failed to build DSN: %w", dsnErr)
		}
		db, err = gorm.Open(mysql.Open(dsn), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
		}
	case DriverSQLite:
		path := cfg.SQLitePath
		if path == "" {
			path = "blvckboard.db"
		}
		db, err = gorm.Open(sqlite.Open(sqliteDSN(path)), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite database %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}

	sqlDB, err := db.DB() // 获取底层的 *sql.DB 对象
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if strings.EqualFold(cfg.Driver, DriverSQLite) {
		// SQLite 只有一个写者，单连接让写事务排队而不是返回 SQLITE_BUSY；
		// 同时保证 :memory: 数据库不会随连接关闭而丢失
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(50)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
	logrus.WithField("driver", db.Dialector.Name()).Info("Database connected")
	return db, nil
}

// getDSN 构建 MySQL 连接字符串
func getDSN(cfg DBConfig) (string, error) {
	if cfg.User == "" {
		return "", fmt.Errorf("DB_USER environment variable not set")
	}
	if cfg.Password == "" {
		// 不允许空密码或默认密码
		return "", fmt.Errorf("DB_PASSWORD environment variable not set")
	}
	host := cfg.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port == "" {
		port = "3306"
	}
	name := cfg.Name
	if name == "" {
		name = "blvckboard"
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.User, cfg.Password, host, port, name)
	return dsn, nil
}

func sqliteDSN(path string) string {
	if path == ":memory:" {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func gormLogLevel(appLevel string) logger.LogLevel {
	switch strings.ToLower(appLevel) {
	case "debug", "trace":
		return logger.Info
	case "silent":
		return logger.Silent
	default:
		return logger.Warn
	}
}

// InitRedis 初始化 Redis 连接并 Ping 一次
func InitRedis(addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     20,
		MinIdleConns: 5,
		MaxConnAge:   30 * time.Minute, // 连接最大存活时间
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	logrus.WithField("addr", addr).Info("Redis connected")
	return client, nil
}
