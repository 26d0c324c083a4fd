package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/landbook/landbook/internal/app"
	"github.com/landbook/landbook/internal/cheques"
	jobmetrics "github.com/landbook/landbook/internal/jobs"
	"github.com/landbook/landbook/internal/ledger"
	"github.com/landbook/landbook/internal/notify"
	"github.com/landbook/landbook/internal/platform/cache"
	"github.com/landbook/landbook/internal/platform/db"
	"github.com/landbook/landbook/internal/shared"
	"github.com/landbook/landbook/internal/stats"
	"github.com/landbook/landbook/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	metrics := jobmetrics.NewMetrics(prometheus.DefaultRegisterer)

	// Sweeps emit no events.
	chequeService := cheques.NewService(cheques.NewRepository(pool), shared.NewAuditLogger(pool), nil, stats.NewCache(redisClient, cfg.StatsCacheTTL))
	chequeService.WithNow(cfg.Clock())
	sweepJob := jobs.NewChequeSweepJob(chequeService, loc, logger, metrics)
	integrityJob := jobs.NewLedgerIntegrityJob(ledger.NewService(ledger.NewRepository(pool)), logger, metrics)
	idempotency := shared.NewIdempotencyStore(pool)
	cleanupJob := jobs.NewIdempotencyCleanupJob(idempotency, cfg.IdempotencyRetention, logger, metrics)

	handlers := []jobs.TaskHandler{
		{Type: jobs.TaskChequeSweep, Handler: sweepJob.Handle},
		{Type: jobs.TaskLedgerIntegrity, Handler: integrityJob.Handle},
		{Type: jobs.TaskIdempotencyCleanup, Handler: cleanupJob.Handle},
	}
	if cfg.SMSGatewayURL != "" {
		gateway, err := notify.NewGateway(notify.GatewayConfig{
			URL:      cfg.SMSGatewayURL,
			Token:    cfg.SMSAPIToken,
			SenderID: cfg.SMSSenderID,
		})
		if err != nil {
			return err
		}
		smsJob := notify.NewSMSJob(gateway, idempotency, logger, metrics)
		handlers = append(handlers, jobs.TaskHandler{Type: notify.TaskSendSMS, Handler: smsJob.Handle})
	} else {
		logger.Warn("SMS_GATEWAY_URL not set, sms tasks stay queued")
	}

	sweepTask, err := jobs.NewChequeSweepTask(nil)
	if err != nil {
		return err
	}
	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Location:  loc,
		Handlers:  handlers,
		Cron: []jobs.CronRegistration{
			{Spec: cfg.ChequeSweepCron, Task: sweepTask},
			{Spec: cfg.LedgerIntegrityCron, Task: jobs.NewLedgerIntegrityTask()},
			{Spec: cfg.IdempotencyCleanupCron, Task: jobs.NewIdempotencyCleanupTask()},
		},
	})
	if err != nil {
		return err
	}
	logger.Info("starting worker", slog.String("timezone", loc.String()), slog.String("cheque_sweep", cfg.ChequeSweepCron))
	return worker.Run(ctx)
}
