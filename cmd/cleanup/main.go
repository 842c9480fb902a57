package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/qs3c/folio_comments/config"
	"github.com/qs3c/folio_comments/internal/database"
	"github.com/qs3c/folio_comments/internal/pkg/logger"
	"github.com/qs3c/folio_comments/internal/pkg/queue"
	"github.com/qs3c/folio_comments/internal/pkg/revalidate"
	"github.com/qs3c/folio_comments/internal/repository"
)

type options struct {
	configPath string
	dryRun     bool
	timeout    time.Duration
}

func main() {
	_ = godotenv.Load()

	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "cleanup",
		Short:        "Maintenance tasks for the comment store",
		SilenceUsage: true,
	}

	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = "config/config.yaml"
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfig, "Path to config.yaml")
	root.PersistentFlags().BoolVar(&opts.dryRun, "dry-run", true, "Only report what would change")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", time.Minute, "Overall timeout")

	root.AddCommand(newOrphansCommand(opts), newRequeueCommand(opts))
	return root
}

// newOrphansCommand 统计并清理评论已被删除的点赞
func newOrphansCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "orphans",
		Short: "Remove reactions whose comment no longer exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup(opts)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			db, err := database.Open(&cfg.Database)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}

			reactionRepo := repository.NewReactionRepository(db)
			orphans, err := reactionRepo.CountOrphans(ctx)
			if err != nil {
				return fmt.Errorf("count orphaned reactions: %w", err)
			}
			log.Infof("Found %d orphaned reactions", orphans)

			if orphans == 0 || opts.dryRun {
				done(log, opts)
				return nil
			}

			deleted, err := reactionRepo.DeleteOrphans(ctx)
			if err != nil {
				return fmt.Errorf("delete orphaned reactions: %w", err)
			}
			log.Infof("Deleted %d orphaned reactions", deleted)
			done(log, opts)
			return nil
		},
	}
}

// newRequeueCommand 手动补发页面重新验证任务
func newRequeueCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "requeue SLUG [SLUG...]",
		Short: "Enqueue page revalidation for the given post slugs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(opts)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			rdb, err := database.NewRedis(&cfg.Redis)
			if err != nil {
				return fmt.Errorf("connect redis: %w", err)
			}
			defer rdb.Close()

			q := queue.NewQueue(rdb, cfg.Revalidate.Queue)
			var failed int
			for _, slug := range splitSlugs(args) {
				path := revalidate.PathForSlug(slug)
				if opts.dryRun {
					log.Infof("Would enqueue %s", path)
					continue
				}
				if err := q.Push(ctx, queue.NewJob(slug, path, time.Now())); err != nil {
					log.WithError(err).Errorf("Failed to enqueue %s", path)
					failed++
					continue
				}
				log.Infof("Enqueued %s", path)
			}

			done(log, opts)
			if failed > 0 {
				return fmt.Errorf("%d revalidation jobs could not be enqueued", failed)
			}
			return nil
		},
	}
}

func setup(opts *options) (*config.Config, *logrus.Entry, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.Log)
	return cfg, logger.Std().WithField("dry_run", opts.dryRun), nil
}

// splitSlugs 同时接受空格和逗号分隔
func splitSlugs(args []string) []string {
	var slugs []string
	for _, arg := range args {
		for _, s := range strings.Split(arg, ",") {
			if s = strings.TrimSpace(s); s != "" {
				slugs = append(slugs, s)
			}
		}
	}
	return slugs
}

func done(log *logrus.Entry, opts *options) {
	if opts.dryRun {
		log.Info("DRY RUN MODE - nothing was changed, run with --dry-run=false to apply")
		return
	}
	log.Info("Cleanup completed")
}
