package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"coinetl/config"
	"coinetl/internal/etl/loader"
	"coinetl/internal/etl/notifier"
	"coinetl/internal/etl/pipeline"
	"coinetl/internal/etl/schedule"
	"coinetl/internal/etl/snapshot"
	"coinetl/logger"
	"coinetl/pkg/coingecko"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// viper config
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// prod secrets come from Parameter Store
	if cfg.Log.Environment == "prod" {
		ssmClient, err := config.NewSSMClient(ctx)
		if err != nil {
			panic("failed to create ssm client: " + err.Error())
		}
		if err := config.ResolveSecrets(ctx, cfg, ssmClient); err != nil {
			panic("failed to resolve secrets: " + err.Error())
		}
	}

	// zap logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer log.Sync()

	clock := clockwork.NewRealClock()
	p := newPipeline(cfg, clock, log)

	switch cfg.App.Mode {
	case config.ModeOnce:
		res := p.Run(ctx)
		if !res.OK() {
			log.Sync()
			os.Exit(1)
		}

	case config.ModeSchedule:
		daily := &schedule.Daily{
			At:         cfg.Schedule.Time,
			Clock:      clock,
			Logger:     log,
			RunOnStart: cfg.App.RunOnStart,
		}
		log.Info("starting daily scheduler", zap.String("at", cfg.Schedule.Time), zap.Bool("run_on_start", cfg.App.RunOnStart))

		err := daily.Start(ctx, func(runCtx context.Context) { p.Run(runCtx) })
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Fatal("scheduler failed", zap.Error(err))
		}
		log.Info("shutting down")
	}
}

func newPipeline(cfg *config.Config, clock clockwork.Clock, log *zap.Logger) *pipeline.Pipeline {
	restClient := coingecko.NewRESTClient(cfg.CoinGecko.BaseURL, cfg.CoinGecko.Timeout).
		WithAPIKey(cfg.CoinGecko.APIKey)

	extractor := snapshot.NewExtractor(restClient, clock, log.Named("extract"))
	ld := loader.New(cfg.Postgres, log.Named("load"))
	nt := notifier.New(notifier.SettingsFromConfig(cfg.Email), log.Named("notify"))

	opts := pipeline.Options{
		Table:        cfg.App.Table,
		Database:     cfg.Postgres.DBName,
		PerPage:      cfg.CoinGecko.PerPage,
		Page:         cfg.CoinGecko.Page,
		StageTimeout: cfg.App.StageTimeout,
	}
	return pipeline.New(opts, extractor, ld, nt, clock, log)
}
