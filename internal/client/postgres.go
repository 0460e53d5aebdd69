package client

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/kotche/notes/internal/config"
)

const (
	maxOpenConns    = 10
	connMaxLifetime = 30 * time.Minute
)

func NewPostgres(ctx context.Context, conf config.PostgresConfig, log *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", conf.DSN())
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect postgres %s:%s: %w", conf.Host, conf.Port, err)
	}

	log.Info("postgres connected", zap.String("host", conf.Host), zap.String("db", conf.DBName))
	return db, nil
}
