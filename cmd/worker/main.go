package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/fieldops/fieldops/internal/app"
	jobmetrics "github.com/fieldops/fieldops/internal/jobs"
	"github.com/fieldops/fieldops/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	built, err := app.BuildMaterials(ctx, cfg, logger, nil)
	if err != nil {
		logger.Error("wire materials", slog.Any("error", err))
		os.Exit(1)
	}
	defer built.Close()
	if built.Redis == nil {
		logger.Warn("catalog cache unavailable, warmup results will not be stored")
	}

	redisOpt, err := jobs.RedisOpt(cfg.RedisAddr)
	if err != nil {
		logger.Error("redis options", slog.Any("error", err))
		os.Exit(1)
	}

	warmupJob := jobs.NewCatalogWarmupJob(built.Catalog, cfg.CatalogWarmupProjects, logger, jobmetrics.NewMetrics(nil))
	warmupTask, err := jobs.NewCatalogWarmupTask(nil)
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	var cron []jobs.CronRegistration
	if cfg.CatalogWarmupCron != "" {
		cron = append(cron, jobs.CronRegistration{
			Spec:    cfg.CatalogWarmupCron,
			Task:    warmupTask,
			Options: []asynq.Option{asynq.MaxRetry(3), asynq.Queue(jobs.QueueDefault)},
		})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpt,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskCatalogWarmup, Handler: warmupJob.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker",
		slog.String("warmup_cron", cfg.CatalogWarmupCron),
		slog.Int("warmup_projects", len(cfg.CatalogWarmupProjects)),
	)
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
