package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"blvckboard/internal/domain"
	httpHandler "blvckboard/internal/handler/http"
	gormpersistence "blvckboard/internal/infra/persistence/gorm"
	"blvckboard/internal/infra/setup"
	redisstate "blvckboard/internal/infra/state/redis"
	"blvckboard/internal/middleware"
	"blvckboard/internal/repository"
	"blvckboard/internal/service"
	"blvckboard/internal/tasks"
	"blvckboard/internal/worker"
)

// App 结构体包含应用的所有组件和配置
type App struct {
	Config       *Config
	Log          *logrus.Logger
	DB           *gorm.DB
	RedisClient  *redis.Client // 未配置 Redis 时为 nil
	AsynqClient  *asynq.Client
	WorkerServer *worker.WorkerServer
	Scheduler    *worker.Scheduler
	BoardService *service.BoardService
	Router       *gin.Engine
	HttpServer   *http.Server
}

// NewLogger 按配置创建 logrus Logger，并同步到全局 logger
func NewLogger(cfg *Config) *logrus.Logger {
	log := logrus.New()
	if cfg.AppEnv == "production" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	log.SetLevel(logLevel)
	log.SetOutput(os.Stdout)

	// 服务层和仓库层使用全局 logrus
	logrus.SetFormatter(log.Formatter)
	logrus.SetLevel(logLevel)
	logrus.SetOutput(log.Out)
	return log
}

// NewApp 创建并初始化应用的所有组件
func NewApp(cfg *Config) (*App, error) {
	// 1. Logger
	log := NewLogger(cfg)
	log.Infof("Logger initialized (Level: %s)", log.GetLevel())

	// 2. 基础设施
	log.Info("Initializing infrastructure...")
	db, err := setup.InitDB(cfg.DBConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to init DB: %w", err)
	}
	if err := setup.MigrateDB(db); err != nil {
		return nil, fmt.Errorf("failed to migrate DB: %w", err)
	}
	log.Info("Database migrated")

	app := &App{Config: cfg, Log: log, DB: db}

	var (
		boardCache repository.BoardCache
		refresher  service.BoardRefresher
		limiter    middleware.RateLimiter
	)
	redisClientOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	if cfg.RedisEnabled() {
		redisClient, err := setup.InitRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("failed to init Redis: %w", err)
		}
		app.RedisClient = redisClient
		app.AsynqClient = asynq.NewClient(redisClientOpt)

		boardCache = redisstate.NewRedisBoardCache(redisClient, cfg.KeyPrefix)
		limiter = redisstate.NewRedisRateLimiter(redisClient, cfg.KeyPrefix)
		refresher = tasks.NewDispatcher(app.AsynqClient)
		log.Info("Redis board cache, rate limiter and task client initialized")
	} else {
		log.Warn("REDIS_ADDR not set: board cache, rate limiting and background refresh are disabled")
	}

	// 3. Repositories & Services
	cellRepo := gormpersistence.NewGormCellRepository(db)
	board := domain.NewBoard(cfg.BoardWidth, cfg.BoardHeight)
	quota := service.NewQuotaResolver(cfg.CellsPerHolding)
	boardService := service.NewBoardService(cellRepo, boardCache, refresher, quota, board, cfg.BoardCacheTTL)
	claimService := service.NewClaimService(cellRepo, quota, board, boardService)
	app.BoardService = boardService
	log.WithFields(logrus.Fields{
		"board":             fmt.Sprintf("%dx%d", board.Width, board.Height),
		"cells_per_holding": quota.CellsPerHolding,
	}).Info("Services initialized")

	// 4. Worker & Scheduler
	if cfg.RedisEnabled() {
		app.WorkerServer = worker.NewWorkerServer(redisClientOpt, boardService, cfg.WorkerConcurrency, log)
		app.Scheduler, err = worker.NewScheduler(redisClientOpt, cfg.BoardRefreshSchedule, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create scheduler: %w", err)
		}
	}

	// 5. Router
	app.Router = NewRouter(cfg, log, httpHandler.NewBoardHandler(claimService, boardService), limiter)
	app.HttpServer = &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	log.Info("Application assembled successfully")
	return app, nil
}

// NewRouter 创建 Gin Engine 并注册所有路由。limiter 为 nil 时不限流。
func NewRouter(cfg *Config, log *logrus.Logger, boardHandler *httpHandler.BoardHandler, limiter middleware.RateLimiter) *gin.Engine {
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.CORS(cfg.CORSAllowedOrigin))

	// 只限制写入路由
	var claimMiddleware []gin.HandlerFunc
	if limiter != nil {
		claimMiddleware = append(claimMiddleware, middleware.RateLimit(limiter, cfg.RateLimitMax, cfg.RateLimitWindow))
	}
	if cfg.HoldingAttestationSecret != "" {
		claimMiddleware = append(claimMiddleware, middleware.RequireHoldingAttestation(cfg.HoldingAttestationSecret))
	}
	boardHandler.RegisterRoutes(router, claimMiddleware...)

	router.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })
	return router
}

// Start 启动后台组件和 HTTP 服务器。HTTP 服务器意外退出时错误写入 errCh。
func (a *App) Start(errCh chan<- error) error {
	if a.WorkerServer != nil {
		if err := a.WorkerServer.Start(); err != nil {
			return err
		}
	}
	if a.Scheduler != nil {
		if err := a.Scheduler.Start(); err != nil {
			return err
		}
	}

	go func() {
		a.Log.Infof("HTTP server starting to listen on %s", a.HttpServer.Addr)
		if err := a.HttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Errorf("HTTP server failed: %v", err)
			errCh <- err
			return
		}
		a.Log.Info("HTTP server stopped listening.")
	}()
	return nil
}

// Shutdown 优雅地关闭应用
func (a *App) Shutdown() {
	a.Log.Info("Shutting down application...")

	// 1. 先停止接收新请求
	if a.HttpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.HttpServer.Shutdown(ctx); err != nil {
			a.Log.Errorf("Error shutting down HTTP server: %v", err)
		} else {
			a.Log.Info("HTTP server shut down gracefully.")
		}
	}

	// 2. 后台任务
	if a.Scheduler != nil {
		a.Scheduler.Shutdown()
	}
	if a.WorkerServer != nil {
		a.WorkerServer.Shutdown()
	}
	a.Close()
	a.Log.Info("Application shutdown complete.")
}

// Close 关闭客户端连接，不涉及 HTTP 服务器
func (a *App) Close() {
	if a.AsynqClient != nil {
		if err := a.AsynqClient.Close(); err != nil {
			a.Log.Errorf("Error closing Asynq client: %v", err)
		}
	}
	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Log.Errorf("Error closing Redis connection: %v", err)
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				a.Log.Errorf("Error closing database connection: %v", err)
			}
		}
	}
}
