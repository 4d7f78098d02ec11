package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/app"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/aws"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/config"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/handlers"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/logging"
)

func setupRouter(a *app.App) *gin.Engine {
	return handlers.NewRouter(handlers.Deps{
		Orders:      a.Orders,
		Returns:     a.Returns,
		Inventory:   a.Inventory,
		Sessions:    a.Sessions,
		Sync:        a.InventorySync,
		Locations:   a.Locations,
		Idempotency: a.Idempotency,
		Metrics:     handlers.NewHTTPMetrics(a.Config.Metrics.Namespace),
		Logger:      a.Logger,
	})
}

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

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	r := setupRouter(app.New(app.DefaultClients(clients, cfg, logger), cfg, logger))

	// RUN_LOCAL serves plain HTTP for development.
	if cfg.RunLocal {
		addr := ":8080"
		logger.Info("running local server", zap.String("addr", addr))
		if err := r.Run(addr); err != nil {
			logger.Fatal("failed to run local server", zap.Error(err))
		}
		return
	}

	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		// ProxyWithContext keeps the Lambda deadline on the request context
		return adapter.ProxyWithContext(ctx, req)
	})
}
