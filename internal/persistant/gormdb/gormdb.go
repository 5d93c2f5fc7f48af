package gormdb

import (
	"context"
	"fmt"
	"time"

	"github.com/aniladanir/retry"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSqlite   = "sqlite"
)

type Config struct {
	Driver      string
	DSN         string
	MaxAttempts int
}

// Initialize opens the db session, retrying the connection, and auto
// migrates given models
func Initialize(ctx context.Context, cfg Config, models []any) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	opts := make([]retry.Option, 0)
	if cfg.MaxAttempts > 0 {
		opts = append(opts, retry.WithMaxAttemps(cfg.MaxAttempts))
	}
	retrier, err := retry.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize retrier: %w", err)
	}

	var db *gorm.DB
	var openErr error
	connected := <-retrier.Retry(ctx, func(attempt int) (terminate bool) {
		db, openErr = gorm.Open(dialector, &gorm.Config{
			TranslateError: true,
			Logger:         logger.Default.LogMode(logger.Warn),
			NowFunc:        func() time.Time { return time.Now().UTC() },
		})
		return openErr == nil
	}, true)
	if !connected {
		if openErr == nil {
			openErr = ctx.Err()
		}
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, openErr)
	}

	if cfg.Driver == DriverSqlite {
		// sqlite allows a single writer
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}

	if err := db.WithContext(ctx).AutoMigrate(models...); err != nil {
		return nil, fmt.Errorf("failed to migrate models: %w", err)
	}

	return db, nil
}

func Close(db *gorm.DB) error {
	sqlDb, err := db.DB()
	if err != nil {
		return err
	}

	return sqlDb.Close()
}

func dialectorFor(cfg Config) (gorm.Dialector, error) {
	switch cfg.Driver {
	case DriverPostgres, "":
		return postgres.Open(cfg.DSN), nil
	case DriverSqlite:
		return sqlite.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.Driver)
	}
}
