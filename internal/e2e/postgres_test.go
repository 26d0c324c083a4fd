//go:build integration

package e2e

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/landbook/landbook/internal/platform/db"
	"github.com/landbook/landbook/internal/platform/migrate"
	"github.com/landbook/landbook/internal/shared"
)

var (
	admin   = shared.Principal{UserID: 1, Role: shared.RoleAdmin, Name: "admin"}
	manager = shared.Principal{UserID: 2, Role: shared.RoleAccountManager, Name: "accounts"}
	hof     = shared.Principal{UserID: 3, Role: shared.RoleHOF, Name: "hof"}
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startPostgres boots a throwaway database with every migration applied.
func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("landbook"),
		tcpostgres.WithUsername("landbook"),
		tcpostgres.WithPassword("landbook"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := db.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, migrate.Up(ctx, pool, discardLogger()))
	return pool
}

func day(s string) time.Time {
	d, err := time.Parse(shared.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func fixedClock(s string) func() time.Time {
	at := day(s).Add(9 * time.Hour)
	return func() time.Time { return at }
}
