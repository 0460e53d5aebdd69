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
	"github.com/kotche/notes/internal/app/notifier"
	"github.com/kotche/notes/internal/client"
	"github.com/kotche/notes/internal/config"
	"github.com/kotche/notes/internal/delivery"
	"github.com/kotche/notes/internal/logger"
	reminder_metrics "github.com/kotche/notes/internal/metrics"
	"github.com/kotche/notes/internal/reminder"
	notes_repo "github.com/kotche/notes/internal/repository/notes"
	settings_repo "github.com/kotche/notes/internal/repository/settings"
	"github.com/kotche/notes/internal/service/kafka"
	notes_serv "github.com/kotche/notes/internal/service/notes"
	settings_serv "github.com/kotche/notes/internal/service/settings"
)

func main() {
	app := &cli.App{
		Name:   "notes-notifier",
		Usage:  "deliver note reminders when they are due",
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

	log, err := logger.New(cfg.App.LogLevel, cfg.App.LogJSON)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	cleanup, err := tracing.InitTracing("notes-notifier", cfg.TracingConfig.Endpoint, log)
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

	broker, err := kafka.New(
		cfg.KafkaConfig.Brokers,
		cfg.KafkaConfig.Topic,
		cfg.KafkaConfig.GroupID,
		cfg.KafkaConfig.NumPartitions,
		cfg.KafkaConfig.ReplicationFactor,
		log,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize kafka: %w", err)
	}
	defer broker.Close()

	settingsServ := settings_serv.NewDefaultService(settings_repo.NewDefaultRepository(db), log)
	notesServ := notes_serv.NewDefaultService(notes_repo.NewDefaultRepository(db), broker, log)

	reg := delivery.NewRegistration(cfg.WebPushConfig, nil)
	channels := []delivery.Channel{delivery.NewPushChannel(reg)}
	if !reg.Available() {
		log.Warn("vapid keys are not configured, web push is disabled")
	}

	if cfg.TelegramConfig.TokenBot != "" {
		bot, err := telebot.NewBot(telebot.Settings{Token: cfg.TelegramConfig.TokenBot})
		if err != nil {
			return fmt.Errorf("failed to init telegram bot: %w", err)
		}
		channels = append(channels, delivery.NewTelegramChannel(bot))
	} else {
		log.Warn("TOKEN_NOTIFY_BOT is not set, telegram delivery is disabled")
	}

	opts := []reminder.Option{
		reminder.WithPollInterval(cfg.SchedulerConfig.PollInterval),
		reminder.WithDeliveryTimeout(cfg.SchedulerConfig.DeliveryTimeout),
	}
	if cfg.SchedulerConfig.Distributed {
		rdb, err := client.NewRedisClient(ctx, cfg.RedisConfig, log)
		if err != nil {
			return err
		}
		defer rdb.Close()
		opts = append(opts, reminder.WithClaimer(reminder.NewRedisClaimer(rdb)))
	}

	n := notifier.New(
		notesServ,
		broker,
		delivery.NewDispatcher(settingsServ, log, channels...),
		log,
		cfg.SchedulerConfig.ReloadInterval,
		opts...,
	)

	log.Info("notifier starting",
		zap.String("env", cfg.App.Env),
		zap.Duration("poll_interval", cfg.SchedulerConfig.PollInterval),
		zap.Duration("reload_interval", cfg.SchedulerConfig.ReloadInterval),
		zap.Time("now", time.Now().UTC()),
	)
	return n.Start(ctx)
}
