package bootstrap

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"blvckboard/internal/infra/setup"
)

// Config 结构体用于存储从环境变量或 .env 文件加载的配置
type Config struct {
	AppEnv     string `env:"APP_ENV" envDefault:"development"` // development/production
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`

	DBDriver   string `env:"DB_DRIVER" envDefault:"mysql"` // mysql 或 sqlite
	DBUser     string `env:"DB_USER"`
	DBPassword string `env:"DB_PASSWORD"`
	DBHost     string `env:"DB_HOST" envDefault:"127.0.0.1"`
	DBPort     string `env:"DB_PORT" envDefault:"3306"`
	DBName     string `env:"DB_NAME" envDefault:"blvckboard"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"blvckboard.db"`

	RedisAddr     string `env:"REDIS_ADDR"` // 为空时禁用缓存、后台任务和限流
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	KeyPrefix     string `env:"REDIS_KEY_PREFIX" envDefault:"blvck:"`

	BoardWidth      int   `env:"BOARD_WIDTH" envDefault:"100"`
	BoardHeight     int   `env:"BOARD_HEIGHT" envDefault:"50"`
	CellsPerHolding int64 `env:"QUOTA_CELLS_PER_HOLDING" envDefault:"2"`

	RateLimitMax    int           `env:"RATE_LIMIT_MAX" envDefault:"30"`
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`

	BoardCacheTTL        time.Duration `env:"BOARD_CACHE_TTL" envDefault:"10m"`
	BoardRefreshSchedule string        `env:"BOARD_REFRESH_SCHEDULE" envDefault:"@every 5m"`
	WorkerConcurrency    int           `env:"WORKER_CONCURRENCY" envDefault:"2"`

	CORSAllowedOrigin        string `env:"CORS_ALLOWED_ORIGIN" envDefault:"http://localhost:3000"`
	HoldingAttestationSecret string `env:"HOLDING_ATTESTATION_SECRET"` // 为空时不校验持有证明
}

// LoadConfig 从环境变量加载配置
func LoadConfig() (*Config, error) {
	// 优先加载 .env 文件 (如果存在)
	_ = godotenv.Load() // 忽略错误，允许只使用环境变量

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 检查配置，能修正的值直接修正
func (c *Config) Validate() error {
	switch c.DBDriver {
	case setup.DriverMySQL:
		if c.DBUser == "" || c.DBPassword == "" {
			return fmt.Errorf("environment variables DB_USER and DB_PASSWORD must be set when DB_DRIVER=%s", setup.DriverMySQL)
		}
	case setup.DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("environment variable SQLITE_PATH must be set when DB_DRIVER=%s", setup.DriverSQLite)
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want %s or %s)", c.DBDriver, setup.DriverMySQL, setup.DriverSQLite)
	}
	if c.BoardWidth <= 0 || c.BoardHeight <= 0 {
		return fmt.Errorf("board size must be positive, got %dx%d", c.BoardWidth, c.BoardHeight)
	}
	if c.CellsPerHolding <= 0 {
		return fmt.Errorf("QUOTA_CELLS_PER_HOLDING must be positive, got %d", c.CellsPerHolding)
	}
	if c.RateLimitMax <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("rate limit must be positive, got %d per %s", c.RateLimitMax, c.RateLimitWindow)
	}

	// 验证日志级别
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		logrus.Warnf("Invalid LOG_LEVEL '%s', using default 'info'", c.LogLevel)
		c.LogLevel = "info"
	}
	return nil
}

// DBConfig 返回数据库连接配置
func (c *Config) DBConfig() setup.DBConfig {
	return setup.DBConfig{
		Driver:     c.DBDriver,
		User:       c.DBUser,
		Password:   c.DBPassword,
		Host:       c.DBHost,
		Port:       c.DBPort,
		Name:       c.DBName,
		SQLitePath: c.SQLitePath,
		LogLevel:   c.LogLevel,
	}
}

// RedisEnabled 表示是否配置了 Redis
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}
