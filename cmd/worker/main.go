package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/qs3c/folio_comments/config"
	"github.com/qs3c/folio_comments/internal/database"
	"github.com/qs3c/folio_comments/internal/pkg/logger"
	"github.com/qs3c/folio_comments/internal/pkg/queue"
	"github.com/qs3c/folio_comments/internal/pkg/revalidate"
	"github.com/qs3c/folio_comments/internal/worker"
)

func main() {
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

	if cfg.Revalidate.Endpoint == "" {
		log.Fatal("revalidate.endpoint is not configured")
	}

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	defer rdb.Close()
	log.Info("Redis connected")

	jobQueue := queue.NewQueue(rdb, cfg.Revalidate.Queue)
	client := revalidate.NewClient(cfg.Revalidate.Endpoint, cfg.Revalidate.Secret, cfg.Revalidate.Timeout())
	pool := worker.NewPool(jobQueue, worker.NewProcessor(client, cfg.Revalidate.Timeout()), cfg.Revalidate.MaxWorkers)

	// 创建 context 用于优雅关闭
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 监听退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info("Received shutdown signal")
		cancel()
	}()

	log.Infof("Worker started, max workers: %d", cfg.Revalidate.MaxWorkers)
	pool.Run(ctx)
	log.Info("Worker shutdown complete")
}
