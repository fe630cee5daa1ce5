package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/robfig/cron/v3"

	"github.com/wattbase/wattledger/pkg/config"
	"github.com/wattbase/wattledger/pkg/handlers"
	"github.com/wattbase/wattledger/pkg/ingest"
	"github.com/wattbase/wattledger/pkg/journal"
	journaldb "github.com/wattbase/wattledger/pkg/journal/dynamodb"
	"github.com/wattbase/wattledger/pkg/ledger"
	"github.com/wattbase/wattledger/pkg/oracle"
	"github.com/wattbase/wattledger/pkg/websockets"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// AWS clients are only needed when a journal table or ingest queue is
	// configured. Local runs work without either.
	var awsCfg aws.Config
	if cfg.JournalTable != "" || cfg.QueueURL != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			logger.Error("unable to load SDK config", "error", err)
			os.Exit(1)
		}
	}

	var recorder journal.Recorder
	if cfg.JournalTable != "" {
		recorder = journaldb.New(dynamodb.NewFromConfig(awsCfg), cfg.JournalTable)
		logger.Info("journal backed by DynamoDB", "table", cfg.JournalTable)
	} else {
		recorder = journal.NewMemory(1024)
		logger.Info("journal backed by in-process ring")
	}

	// Committed entries also stream to websocket subscribers.
	hub := websockets.NewHub(logger)
	recorder = websockets.NewRecorder(recorder, hub)

	var prices oracle.PriceSource
	if cfg.OracleFeedURL != "" {
		prices = oracle.NewFeed(cfg.OracleFeedURL, cfg.OracleMaxAge, logger)
		logger.Info("price oracle backed by feed", "url", cfg.OracleFeedURL)
	} else {
		prices = oracle.NewStatic(cfg.OracleStaticPrice, cfg.OracleStaticDecimals)
		logger.Info("price oracle backed by static quote", "price", cfg.OracleStaticPrice)
	}

	eng, err := ledger.New(cfg.Engine(), prices, recorder, logger)
	if err != nil {
		logger.Error("failed to initialize ledger engine", "error", err)
		os.Exit(1)
	}

	// Periodic invariant audit. Violations mean a bug in the engine, so
	// they are logged at error level for alerting.
	auditCron := cron.New()
	_, err = auditCron.AddFunc(cfg.AuditSchedule, func() {
		report := eng.AuditInvariants()
		if report.Clean() {
			logger.Info("invariant audit clean", "checked_at", report.CheckedAt)
			return
		}
		for _, violation := range report.Violations {
			logger.Error("invariant audit violation", "violation", violation)
		}
	})
	if err != nil {
		logger.Error("invalid audit schedule", "schedule", cfg.AuditSchedule, "error", err)
		os.Exit(1)
	}
	auditCron.Start()
	defer auditCron.Stop()

	if cfg.QueueURL != "" {
		consumer := ingest.NewConsumer(sqs.NewFromConfig(awsCfg), eng, cfg.QueueURL, cfg.Backend, logger)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("ingest consumer stopped", "error", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: handlers.NewRouter(eng, hub, logger),
	}

	go func() {
		logger.Info("starting server", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shut down", "error", err)
	}
	logger.Info("server exited")
}
