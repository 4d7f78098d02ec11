package main

import (
	"context"
	"io"
	"log"
	"os"

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

	p, err := NewProcessor(cfg.Worker.Role, a.Orders, a.Orders, a.RetryRouter, logger)
	if err != nil {
		logger.Fatal("invalid worker role", zap.Error(err))
	}

	// RUN_LOCAL processes one synthetic record whose body is read from stdin.
	if cfg.RunLocal {
		body, err := io.ReadAll(os.Stdin)
		if err != nil {
			logger.Fatal("failed to read local body", zap.Error(err))
		}
		resp, err := p.Handle(context.Background(), events.SQSEvent{
			Records: []events.SQSMessage{{MessageId: "local-1", Body: string(body)}},
		})
		if err != nil || len(resp.BatchItemFailures) > 0 {
			logger.Fatal("local record failed", zap.Error(err))
		}
		return
	}

	lambda.Start(p.Handle)
}
