package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bsm/redislock"
	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/qs3c/folio_comments/config"
	"github.com/qs3c/folio_comments/internal/api"
	"github.com/qs3c/folio_comments/internal/api/handler"
	"github.com/qs3c/folio_comments/internal/database"
	"github.com/qs3c/folio_comments/internal/pkg/cache"
	"github.com/qs3c/folio_comments/internal/pkg/cron"
	"github.com/qs3c/folio_comments/internal/pkg/logger"
	"github.com/qs3c/folio_comments/internal/pkg/pubsub"
	"github.com/qs3c/folio_comments/internal/pkg/queue"
	"github.com/qs3c/folio_comments/internal/pkg/validate"
	"github.com/qs3c/folio_comments/internal/repository"
	"github.com/qs3c/folio_comments/internal/service"
)

func main() {
	// .env 不存在时忽略
	_ = godotenv.Load()

	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Std().Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.Log)
	log := logger.Std()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
		}); err != nil {
			log.Warnf("Failed to init sentry: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	if err := validate.Register(); err != nil {
		log.Fatalf("Failed to register validators: %v", err)
	}

	// 初始化数据库
	db, err := database.Open(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.WithField("driver", cfg.Database.Driver).Info("Database connected")

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	log.Info("Redis connected")

	// 初始化缓存与失效通知
	threadCache, err := cache.NewThreadCache(cfg.Site.ThreadCacheSize, cfg.Site.ThreadCacheDuration())
	if err != nil {
		log.Fatalf("Failed to create thread cache: %v", err)
	}
	invalidator := service.NewCacheInvalidator(
		threadCache,
		pubsub.NewPublisher(rdb, cfg.Revalidate.Channel),
		pubsub.NewSubscriber(rdb, cfg.Revalidate.Channel),
		queue.NewQueue(rdb, cfg.Revalidate.Queue),
		cfg.Revalidate.Timeout(),
	)

	// 初始化 Repository
	commentRepo := repository.NewCommentRepository(db)
	reactionRepo := repository.NewReactionRepository(db)

	// 定时清理孤立点赞
	cronService := cron.NewService(reactionRepo, cfg.Cleanup.OrphanSweepInterval(), cfg.Database.QueryTimeout()).
		WithLock(redislock.New(rdb))
	cronService.Start()
	defer cronService.Stop()

	// 初始化 Service
	commentService := service.NewCommentService(commentRepo, reactionRepo, threadCache, invalidator, cfg)
	reactionService := service.NewReactionService(commentRepo, reactionRepo, invalidator, cfg)

	// 初始化 Handler
	commentHandler := handler.NewCommentHandler(commentService, reactionService)
	healthHandler := handler.NewHealthHandler(db, rdb)

	// 初始化 Router
	router := api.NewRouter(commentHandler, healthHandler, cfg)
	engine := router.Setup()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 收到退出信号或任一组件失败时整体退出
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := invalidator.Listen(gctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("invalidation listener: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Infof("Server starting on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("Server stopped with error")
	}
	if err := rdb.Close(); err != nil {
		log.WithError(err).Warn("Failed to close redis")
	}
	log.Info("Server shutdown complete")
}
