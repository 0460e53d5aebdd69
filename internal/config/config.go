package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App             AppConfig
	HTTPConfig      HTTPConfig
	AuthConfig      AuthConfig
	TelegramConfig  TelegramConfig
	PostgresConfig  PostgresConfig
	KafkaConfig     KafkaConfig
	RedisConfig     RedisConfig
	WebPushConfig   WebPushConfig
	SchedulerConfig SchedulerConfig
	TracingConfig   TracingConfig
	ManifestConfig  ManifestConfig
}

type AppConfig struct {
	Env      string
	LogLevel string
	LogJSON  bool
	TimeZone string
}

type HTTPConfig struct {
	Addr        string
	MetricsAddr string
}

type AuthConfig struct {
	// JWTSecret is the HS256 secret shared with the auth provider.
	JWTSecret string
}

type TelegramConfig struct {
	TokenBot string
}

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type KafkaConfig struct {
	Brokers           []string
	Topic             string
	GroupID           string
	NumPartitions     int
	ReplicationFactor int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	LinkTTL  time.Duration
}

type WebPushConfig struct {
	Subscriber      string
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	TTL             int
}

type SchedulerConfig struct {
	PollInterval    time.Duration
	ReloadInterval  time.Duration
	DeliveryTimeout time.Duration
	// Distributed enables redis claims so several notifiers can share a store.
	Distributed bool
}

type TracingConfig struct {
	Endpoint string
}

type ManifestConfig struct {
	Name            string
	ShortName       string
	Description     string
	ThemeColor      string
	BackgroundColor string
}

// DSN returns the postgres connection url understood by lib/pq and migrate.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		p.User,
		p.Password,
		p.Host,
		p.Port,
		p.DBName,
		p.SSLMode,
	)
}

// LoadConfig reads .env (when present) and the process environment.
func LoadConfig(files ...string) (*Config, error) {
	// a missing .env is fine, the environment may already carry everything
	_ = godotenv.Load(files...)

	config := &Config{
		App: AppConfig{
			Env:      getEnv("APP_ENV", "dev"),
			LogLevel: getEnv("LOG_LEVEL", "info"),
			LogJSON:  getBool("LOG_JSON", true),
			TimeZone: getEnv("APP_TIMEZONE", "UTC"),
		},
		HTTPConfig: HTTPConfig{
			Addr:        getEnv("HTTP_ADDR", ":8000"),
			MetricsAddr: getEnv("METRICS_ADDR", ":8080"),
		},
		AuthConfig: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", ""),
		},
		TelegramConfig: TelegramConfig{
			TokenBot: getEnv("TOKEN_NOTIFY_BOT", ""),
		},
		PostgresConfig: PostgresConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			User:     getEnv("POSTGRES_USER", "user"),
			Password: getEnv("POSTGRES_PASSWORD", "password"),
			DBName:   getEnv("POSTGRES_DB", "notes"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		KafkaConfig: KafkaConfig{
			Brokers:           splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
			Topic:             getEnv("KAFKA_TOPIC", "note-events"),
			GroupID:           getEnv("KAFKA_GROUP_ID", "notifier"),
			NumPartitions:     getInt("KAFKA_NUM_PARTITIONS", 1),
			ReplicationFactor: getInt("KAFKA_REPLICATION_FACTOR", 1),
		},
		RedisConfig: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getInt("REDIS_DB", 0),
			LinkTTL:  getDuration("TELEGRAM_LINK_TTL", 10*time.Minute),
		},
		WebPushConfig: WebPushConfig{
			Subscriber:      getEnv("VAPID_SUBSCRIBER", "mailto:admin@example.com"),
			VAPIDPublicKey:  getEnv("VAPID_PUBLIC_KEY", ""),
			VAPIDPrivateKey: getEnv("VAPID_PRIVATE_KEY", ""),
			TTL:             getInt("WEBPUSH_TTL", 60),
		},
		SchedulerConfig: SchedulerConfig{
			PollInterval:    getDuration("SCHEDULER_POLL_INTERVAL", time.Second),
			ReloadInterval:  getDuration("SCHEDULER_RELOAD_INTERVAL", time.Minute),
			DeliveryTimeout: getDuration("SCHEDULER_DELIVERY_TIMEOUT", 10*time.Second),
			Distributed:     getBool("SCHEDULER_DISTRIBUTED", false),
		},
		TracingConfig: TracingConfig{
			Endpoint: getEnv("TRACING_ENDPOINT", ""),
		},
		ManifestConfig: ManifestConfig{
			Name:            getEnv("MANIFEST_NAME", "Notes App"),
			ShortName:       getEnv("MANIFEST_SHORT_NAME", "Notes"),
			Description:     getEnv("MANIFEST_DESCRIPTION", "A simple notes app that works offline"),
			ThemeColor:      getEnv("MANIFEST_THEME_COLOR", "#8B5CF6"),
			BackgroundColor: getEnv("MANIFEST_BACKGROUND_COLOR", "#ffffff"),
		},
	}

	if config.SchedulerConfig.PollInterval <= 0 {
		return nil, fmt.Errorf("SCHEDULER_POLL_INTERVAL must be positive")
	}
	if config.KafkaConfig.NumPartitions < 1 || config.KafkaConfig.ReplicationFactor < 1 {
		return nil, fmt.Errorf("KAFKA_NUM_PARTITIONS and KAFKA_REPLICATION_FACTOR must be at least 1")
	}

	return config, nil
}

// RequireAuth is checked by processes that verify bearer tokens.
func (c *Config) RequireAuth() error {
	if c.AuthConfig.JWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET is required")
	}
	return nil
}

// RequireBot is checked by processes that talk to Telegram.
func (c *Config) RequireBot() error {
	if c.TelegramConfig.TokenBot == "" {
		return fmt.Errorf("TOKEN_NOTIFY_BOT is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

func getBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
