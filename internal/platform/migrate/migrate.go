// Package migrate applies the embedded goose migrations.
package migrate

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

const dir = "migrations"

func prepare(logger *slog.Logger) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{logger: logger})
	return goose.SetDialect("postgres")
}

// Up applies all pending migrations.
func Up(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	if err := prepare(logger); err != nil {
		return fmt.Errorf("migrate: dialect: %w", err)
	}
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()
	if err := goose.UpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("migrate: up: %w", err)
	}
	return nil
}

// Down rolls back the most recent migration.
func Down(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	if err := prepare(logger); err != nil {
		return fmt.Errorf("migrate: dialect: %w", err)
	}
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()
	if err := goose.DownContext(ctx, db, dir); err != nil {
		return fmt.Errorf("migrate: down: %w", err)
	}
	return nil
}

// Status logs the applied state of every migration.
func Status(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	if err := prepare(logger); err != nil {
		return fmt.Errorf("migrate: dialect: %w", err)
	}
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()
	return goose.StatusContext(ctx, db, dir)
}

type gooseLogger struct {
	logger *slog.Logger
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.log().Error(fmt.Sprintf(format, v...))
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.log().Info(fmt.Sprintf(format, v...))
}

func (l gooseLogger) log() *slog.Logger {
	if l.logger != nil {
		return l.logger.With(slog.String("component", "migrate"))
	}
	return slog.Default()
}
