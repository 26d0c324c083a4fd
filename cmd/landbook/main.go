package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/text/language"

	"github.com/landbook/landbook/cmd/landbook/cli"
	"github.com/landbook/landbook/internal/accounts"
	"github.com/landbook/landbook/internal/app"
	"github.com/landbook/landbook/internal/audit"
	"github.com/landbook/landbook/internal/auth"
	"github.com/landbook/landbook/internal/cancellations"
	"github.com/landbook/landbook/internal/cheques"
	"github.com/landbook/landbook/internal/events"
	"github.com/landbook/landbook/internal/expenses"
	"github.com/landbook/landbook/internal/ledger"
	"github.com/landbook/landbook/internal/notify"
	"github.com/landbook/landbook/internal/observability"
	"github.com/landbook/landbook/internal/payroll"
	"github.com/landbook/landbook/internal/platform/cache"
	"github.com/landbook/landbook/internal/platform/db"
	"github.com/landbook/landbook/internal/refunds"
	"github.com/landbook/landbook/internal/shared"
	"github.com/landbook/landbook/internal/stats"
	"github.com/landbook/landbook/jobs"
	"github.com/landbook/landbook/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	if len(os.Args) > 1 && os.Args[1] != "serve" {
		os.Exit(cli.Run(ctx, cfg, logger, os.Args[1:], os.Stdout, os.Stderr))
	}

	if err := serve(ctx, stop, cfg, logger); err != nil {
		logger.Error("server", slog.Any("error", err))
		os.Exit(1)
	}
}

func serve(ctx context.Context, stop context.CancelFunc, cfg *app.Config, logger *slog.Logger) error {
	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	verifier, err := auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	clock := cfg.Clock()
	metrics := observability.NewMetrics()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("asynq client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		_ = inspector.Close()
	}()

	kafka := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	publishers := []events.Publisher{
		metrics,
		notify.NewEnqueuer(jobClient, notify.NewFormatter(language.English, cfg.Currency), cfg.SMSAlertRecipients),
	}
	if kafka != nil {
		publishers = append(publishers, kafka)
		defer func() {
			if err := kafka.Close(); err != nil {
				logger.Warn("kafka close", slog.Any("error", err))
			}
		}()
	}
	dispatcher := events.NewDispatcher(logger, publishers...)

	auditLogger := shared.NewAuditLogger(dbpool)
	approvals := shared.NewApprovalRecorder(dbpool, logger)
	statsCache := stats.NewCache(redisClient, cfg.StatsCacheTTL)

	expenseService := expenses.NewService(expenses.NewRepository(dbpool, approvals), auditLogger, dispatcher, statsCache)
	expenseService.WithNow(clock)
	ledgerService := ledger.NewService(ledger.NewRepository(dbpool))
	cancellationService := cancellations.NewService(cancellations.NewRepository(dbpool, approvals), auditLogger, dispatcher, statsCache)
	cancellationService.WithNow(clock)
	refundService := refunds.NewService(refunds.NewRepository(dbpool, approvals), auditLogger, dispatcher, statsCache)
	refundService.WithNow(clock)
	chequeService := cheques.NewService(cheques.NewRepository(dbpool), auditLogger, dispatcher, statsCache)
	chequeService.WithNow(clock)
	payrollService := payroll.NewService(payroll.NewRepository(dbpool), auditLogger, statsCache)
	accountService := accounts.NewService(accounts.NewRepository(dbpool), auditLogger)

	dashboard := stats.NewDashboard(map[string]stats.Provider{
		expenses.Entity:      expenseService,
		cancellations.Entity: cancellationService,
		refunds.Entity:       refundService,
		cheques.Entity:       chequeService,
		payroll.Entity:       payrollService,
	})

	router := app.NewRouter(app.RouterParams{
		Logger:               logger,
		Config:               cfg,
		Verifier:             verifier,
		Metrics:              metrics,
		ExpensesHandler:      expenses.NewHandler(logger, expenseService),
		LedgerHandler:        ledger.NewHandler(logger, ledgerService),
		CancellationsHandler: cancellations.NewHandler(logger, cancellationService),
		RefundsHandler:       refunds.NewHandler(logger, refundService),
		ChequesHandler:       cheques.NewHandler(logger, chequeService),
		PayrollHandler:       payroll.NewHandler(logger, payrollService),
		AccountsHandler:      accounts.NewHandler(logger, accountService),
		StatsHandler:         stats.NewHandler(logger, dashboard),
		AuditHandler:         audit.NewHandler(logger, audit.NewService(audit.NewRepository(dbpool))),
		ReportHandler:        report.NewHandler(report.NewClient(cfg.GotenbergURL), cancellationService, refundService, logger),
		JobHandler:           jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("timezone", loc.String()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
