package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/kotche/notes/infrastructure/metrics"
	"github.com/kotche/notes/infrastructure/tracing"
	"github.com/kotche/notes/internal/app/api"
	"github.com/kotche/notes/internal/auth"
	"github.com/kotche/notes/internal/client"
	"github.com/kotche/notes/internal/config"
	"github.com/kotche/notes/internal/delivery"
	"github.com/kotche/notes/internal/logger"
	reminder_metrics "github.com/kotche/notes/internal/metrics"
	"github.com/kotche/notes/internal/migrations"
	notes_repo "github.com/kotche/notes/internal/repository/notes"
	settings_repo "github.com/kotche/notes/internal/repository/settings"
	"github.com/kotche/notes/internal/service/kafka"
	"github.com/kotche/notes/internal/service/link"
	notes_serv "github.com/kotche/notes/internal/service/notes"
	settings_serv "github.com/kotche/notes/internal/service/settings"
)

func main() {
	app := &cli.App{
		Name:  "notes-api",
		Usage: "notes http api",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "start http server",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "migrate", Usage: "apply migrations before serving"},
				},
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "apply database migrations",
				Action: migrate,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func migrate(_ *cli.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	return migrations.Up(cfg.PostgresConfig.DSN())
}

func serve(c *cli.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err = cfg.RequireAuth(); err != nil {
		return err
	}

	log, err := logger.New(cfg.App.LogLevel, cfg.App.LogJSON)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if c.Bool("migrate") {
		if err = migrations.Up(cfg.PostgresConfig.DSN()); err != nil {
			return err
		}
		log.Info("migrations applied")
	}

	cleanup, err := tracing.InitTracing("notes-api", cfg.TracingConfig.Endpoint, log)
	if err != nil {
		return err
	}
	defer cleanup()

	metrics.Init()
	reminder_metrics.Init()
	metricsSrv := metrics.StartMetricsServer(cfg.HTTPConfig.MetricsAddr, log)
	defer metricsSrv.Close()

	db, err := client.NewPostgres(ctx, cfg.PostgresConfig, log)
	if err != nil {
		return err
	}
	defer db.Close()

	rdb, err := client.NewRedisClient(ctx, cfg.RedisConfig, log)
	if err != nil {
		return err
	}
	defer rdb.Close()

	// publish only, the notifier owns the consumer group
	broker, err := kafka.New(
		cfg.KafkaConfig.Brokers,
		cfg.KafkaConfig.Topic,
		"",
		cfg.KafkaConfig.NumPartitions,
		cfg.KafkaConfig.ReplicationFactor,
		log,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize kafka: %w", err)
	}
	defer broker.Close()

	reg := delivery.NewRegistration(cfg.WebPushConfig, nil)
	if !reg.Available() {
		log.Warn("vapid keys are not configured, web push is disabled")
	}

	a := api.New(api.Deps{
		Notes:          notes_serv.NewDefaultService(notes_repo.NewDefaultRepository(db), broker, log),
		Settings:       settings_serv.NewDefaultService(settings_repo.NewDefaultRepository(db), log),
		Links:          link.NewRedisService(rdb, cfg.RedisConfig.LinkTTL),
		Push:           delivery.NewPushChannel(reg),
		Verifier:       auth.NewVerifier(cfg.AuthConfig.JWTSecret),
		Log:            log,
		VAPIDPublicKey: reg.PublicKey(),
		LinkTTL:        cfg.RedisConfig.LinkTTL,
		Manifest:       cfg.ManifestConfig,
	})

	log.Info("api starting", zap.String("env", cfg.App.Env), zap.String("addr", cfg.HTTPConfig.Addr))
	return a.Run(ctx, cfg.HTTPConfig.Addr)
}
