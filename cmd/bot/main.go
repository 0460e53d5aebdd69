package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gopkg.in/telebot.v3"

	"github.com/kotche/notes/infrastructure/metrics"
	"github.com/kotche/notes/infrastructure/tracing"
	"github.com/kotche/notes/internal/app/bot"
	"github.com/kotche/notes/internal/client"
	"github.com/kotche/notes/internal/config"
	"github.com/kotche/notes/internal/logger"
	notes_repo "github.com/kotche/notes/internal/repository/notes"
	settings_repo "github.com/kotche/notes/internal/repository/settings"
	"github.com/kotche/notes/internal/service/kafka"
	"github.com/kotche/notes/internal/service/link"
	notes_serv "github.com/kotche/notes/internal/service/notes"
	settings_serv "github.com/kotche/notes/internal/service/settings"
)

func main() {
	app := &cli.App{
		Name:   "notes-bot",
		Usage:  "telegram bot for notes",
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err = cfg.RequireBot(); err != nil {
		return err
	}

	log, err := logger.New(cfg.App.LogLevel, cfg.App.LogJSON)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	location, err := time.LoadLocation(cfg.App.TimeZone)
	if err != nil {
		return fmt.Errorf("failed to load location %q: %w", cfg.App.TimeZone, err)
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	cleanup, err := tracing.InitTracing("notes-bot", cfg.TracingConfig.Endpoint, log)
	if err != nil {
		return err
	}
	defer cleanup()

	metrics.Init()
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

	tb, err := telebot.NewBot(telebot.Settings{
		Token:  cfg.TelegramConfig.TokenBot,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return fmt.Errorf("failed to init telegram bot: %w", err)
	}

	b := bot.New(
		tb,
		notes_serv.NewDefaultService(notes_repo.NewDefaultRepository(db), broker, log),
		settings_serv.NewDefaultService(settings_repo.NewDefaultRepository(db), log),
		link.NewRedisService(rdb, cfg.RedisConfig.LinkTTL),
		location,
		log,
	)

	go func() {
		<-ctx.Done()
		log.Info("bot stopping")
		b.Stop()
	}()

	log.Info("bot starting", zap.String("env", cfg.App.Env), zap.String("time_zone", location.String()))
	b.Start()
	return nil
}
