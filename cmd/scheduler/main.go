package main

import (
	"context"
	"log"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/app"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/aws"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/config"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	clients, err := aws.NewAWSClients(context.Background(), cfg.AWS)
	if err != nil {
		logger.Fatal("failed to init aws clients", zap.Error(err))
	}
	a := app.New(app.DefaultClients(clients, cfg, logger), cfg, logger)

	r, err := NewRunner(cfg.Scheduler.Role, a.Importer, a.InventorySync, logger)
	if err != nil {
		logger.Fatal("invalid scheduler role", zap.Error(err))
	}

	// RUN_LOCAL runs the job once and exits.
	if cfg.RunLocal {
		if err := r.Handle(context.Background(), events.CloudWatchEvent{ID: "local", Time: time.Now()}); err != nil {
			logger.Fatal("local run failed", zap.Error(err))
		}
		return
	}

	lambda.Start(r.Handle)
}
