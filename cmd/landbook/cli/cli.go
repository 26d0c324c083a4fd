// Package cli implements the operator subcommands of the landbook binary.
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/landbook/landbook/internal/app"
	"github.com/landbook/landbook/internal/auth"
	"github.com/landbook/landbook/internal/platform/db"
	"github.com/landbook/landbook/internal/platform/migrate"
	"github.com/landbook/landbook/internal/shared"
)

const usage = `usage: landbook [serve]
       landbook migrate up|down|status
       landbook jobs trigger <cheque-sweep|ledger-integrity> [-date YYYY-MM-DD]
       landbook jobs inspect
       landbook token -user ID -role Admin|AccountManager|HOF [-ttl 24h]`

// Run executes one subcommand and returns the process exit code.
func Run(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage)
		return 2
	}
	switch args[0] {
	case "migrate":
		return runMigrate(ctx, cfg, logger, args[1:], stderr)
	case "jobs":
		return runJobs(ctx, cfg, args[1:], stdout, stderr)
	case "token":
		return runToken(cfg, args[1:], stdout, stderr)
	}
	fmt.Fprintln(stderr, usage)
	return 2
}

func runMigrate(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(stderr, usage)
		return 2
	}
	ops := map[string]func(context.Context, *pgxpool.Pool, *slog.Logger) error{
		"up":     migrate.Up,
		"down":   migrate.Down,
		"status": migrate.Status,
	}
	op, ok := ops[args[0]]
	if !ok {
		fmt.Fprintln(stderr, usage)
		return 2
	}
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		fmt.Fprintf(stderr, "migrate: %v\n", err)
		return 1
	}
	defer pool.Close()
	if err := op(ctx, pool, logger); err != nil {
		fmt.Fprintf(stderr, "migrate %s: %v\n", args[0], err)
		return 1
	}
	return 0
}

func runJobs(ctx context.Context, cfg *app.Config, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage)
		return 2
	}
	switch args[0] {
	case "trigger":
		if len(args) < 2 {
			fmt.Fprintln(stderr, usage)
			return 2
		}
		fs := flag.NewFlagSet("jobs trigger", flag.ContinueOnError)
		fs.SetOutput(stderr)
		date := fs.String("date", "", "business date for the cheque sweep")
		if err := fs.Parse(args[2:]); err != nil {
			return 2
		}
		if _, err := BuildTask(args[1], *date); err != nil {
			fmt.Fprintln(stderr, err)
			return 2
		}
		c := NewJobsCLI(cfg.RedisAddr)
		defer c.Close()
		info, err := c.Trigger(ctx, args[1], *date)
		if err != nil {
			fmt.Fprintf(stderr, "jobs trigger: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
		return 0
	case "inspect":
		c := NewJobsCLI(cfg.RedisAddr)
		defer c.Close()
		queues, err := c.InspectQueues()
		if err != nil {
			fmt.Fprintf(stderr, "jobs inspect: %v\n", err)
			return 1
		}
		for _, q := range queues {
			fmt.Fprintf(stdout, "%-8s pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
				q.Queue, q.Pending, q.Active, q.Scheduled, q.Retry, q.Archived)
		}
		return 0
	}
	fmt.Fprintln(stderr, usage)
	return 2
}

func runToken(cfg *app.Config, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(stderr)
	userID := fs.Int64("user", 0, "user id placed in the sub claim")
	role := fs.String("role", "", "role claim")
	name := fs.String("name", "", "display name")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *userID <= 0 || !shared.Role(*role).Valid() {
		fmt.Fprintln(stderr, "token: -user must be positive and -role one of Admin, AccountManager, HOF")
		return 2
	}
	verifier, err := auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		fmt.Fprintf(stderr, "token: %v\n", err)
		return 1
	}
	token, err := verifier.Issue(shared.Principal{UserID: *userID, Role: shared.Role(*role), Name: *name}, *ttl)
	if err != nil {
		fmt.Fprintf(stderr, "token: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, token)
	return 0
}
