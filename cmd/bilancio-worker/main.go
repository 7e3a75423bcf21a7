package main

import (
	"context"
	"errors"
	"os"
	"time"

	"bilancio/internal/amqp"
	"bilancio/internal/backend"
	"bilancio/internal/cli"
	applog "bilancio/internal/log"
	"bilancio/internal/records/google"
	"bilancio/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("bilancio-worker")

	logger.Info("Starting bilancio-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if err := cfg.ValidateSheets(); err != nil {
		logger.Error("Mirror configuration invalid", applog.FieldError, err.Error())
		os.Exit(1)
	}
	if !cfg.HasAMQP() {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err.Error())
		os.Exit(1)
	}

	sheets, err := google.New(context.Background(), backendConfig.SheetsConfig())
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Google Sheets mirror initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err.Error())
		os.Exit(1)
	}

	mirror := worker.NewMirrorWorker(sheets, logger)

	consumed := make(chan struct{})
	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		// Consumption stops with the signal context; wait for the handler in
		// flight before closing the connection.
		<-consumed
		if err := client.Close(); err != nil {
			logger.Error("AMQP close failed", applog.FieldError, err.Error())
		}
	})

	go func() {
		defer close(consumed)
		err := client.ConsumeTransactionEvents(ctx, mirror.HandleEvent)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", applog.FieldError, err.Error())
			os.Exit(1)
		}
	}()

	logger.Info("Consuming transaction events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	<-done
}
