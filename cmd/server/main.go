package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storechat-go/internal/bot"
	"storechat-go/internal/config"
	"storechat-go/internal/database"
	"storechat-go/internal/format"
	"storechat-go/internal/handler"
	"storechat-go/internal/intent"
	"storechat-go/internal/metrics"
	"storechat-go/internal/middleware"
	"storechat-go/internal/query"
	"storechat-go/internal/schema"
	"storechat-go/internal/service"
)

// 构建信息，通过-ldflags注入
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	// 初始化日志
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting StoreChat Server",
		zap.String("version", version),
		zap.String("go_version", runtime.Version()))

	// 加载环境变量
	if err := config.LoadEnvFile(".env"); err != nil {
		logger.Warn("Failed to load .env file", zap.Error(err))
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// 加载数据库描述文档
	desc := schema.Default()
	if cfg.Bot.SchemaPath != "" {
		desc, err = schema.LoadFile(cfg.Bot.SchemaPath)
		if err != nil {
			logger.Fatal("Failed to load schema descriptor",
				zap.String("path", cfg.Bot.SchemaPath), zap.Error(err))
		}
	}

	// 初始化数据库连接
	ctx := context.Background()
	dbManager, err := database.NewManager(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbManager.Close()
	logger.Info("Database connection established successfully")

	// 初始化查询执行器
	executor := query.NewExecutor(dbManager.Pool(), desc, &query.ExecutorConfig{
		QueryTimeout: cfg.Database.QueryTimeout,
		MaxRows:      cfg.Bot.MaxResults * 4,
	}, logger)

	// 初始化LLM兜底顾问（可选）
	var advisor intent.Advisor
	if cfg.AI.Enabled {
		llmAdvisor, err := intent.NewLLMAdvisor(&intent.AdvisorConfig{
			Provider: cfg.AI.Provider,
			Model:    cfg.AI.Model,
			BaseURL:  cfg.AI.BaseURL,
			APIKey:   cfg.AI.APIKey,
			Timeout:  cfg.AI.Timeout,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to initialize LLM advisor", zap.Error(err))
		}
		advisor = llmAdvisor
		logger.Info("LLM advisor enabled",
			zap.String("provider", cfg.AI.Provider),
			zap.String("model", cfg.AI.Model))
	}

	// 初始化意图识别与查询构建
	classifier := intent.NewClassifier(desc, advisor, logger)
	builder := query.NewBuilder(desc, &query.BuilderConfig{
		MaxResults:        cfg.Bot.MaxResults,
		DefaultLimit:      cfg.Bot.DefaultLimit,
		LowStockThreshold: cfg.Bot.LowStockThreshold,
	}, logger)
	formatter := format.NewFormatter(&format.Config{
		MaxMessageLength: cfg.Bot.MaxMessageLength,
	})

	// 初始化Prometheus指标
	registry := metrics.NewRegistry(logger)

	// 初始化问答编排器
	botHandler := bot.NewHandler(classifier, builder, executor, formatter, logger).
		WithMetrics(registry)

	// 初始化Redis答案缓存（可选）
	var redisCache *bot.RedisCache
	if cfg.Redis.Enabled {
		redisCache = bot.NewRedisCache(cfg.Redis.NewClient(), cfg.Bot.CacheTTL, logger)
		botHandler = botHandler.WithCache(redisCache)
		logger.Info("Redis answer cache enabled")
	}

	// 初始化健康检查服务
	appInfo := config.NewAppInfo(version, buildTime, gitCommit, os.Getenv("APP_ENV"))
	var cachePinger service.Pinger
	if redisCache != nil {
		cachePinger = redisCache
	}
	healthService := service.NewHealthService(dbManager, cachePinger, appInfo, logger)

	// 初始化Gin路由器
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	middleware.Setup(r, &cfg.Server, logger)
	r.Use(registry.HTTPMiddleware())

	// 可选认证中间件
	var authHandler gin.HandlerFunc
	if cfg.Server.AuthEnabled {
		authHandler = middleware.NewBearerAuth(cfg.Server.JWTSecret, logger).Handler()
		logger.Info("Bearer auth enabled for /api/v1")
	}

	handler.SetupRoutes(r, &handler.RouterConfig{
		ChatHandler:    handler.NewChatHandler(botHandler, logger),
		HealthService:  healthService,
		AuthHandler:    authHandler,
		MetricsHandler: registry.Handler(),
	})

	// 启动HTTP服务器
	srv := &http.Server{
		Addr:           cfg.Server.Addr(),
		Handler:        r,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	go func() {
		logger.Info("StoreChat server starting",
			zap.String("addr", srv.Addr),
			zap.String("mode", gin.Mode()))

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	} else {
		logger.Info("Server gracefully stopped")
	}

	dbManager.Close()
	logger.Info("Database connections closed")

	logger.Info("StoreChat server exited")
}
