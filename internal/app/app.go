// Package app wires the stores, clients and engines every binary shares.
package app

import (
	"go.uber.org/zap"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/aws"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/config"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/email"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/fulfillment"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/idempotency"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/importer"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/inventory"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/inventorysync"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/locations"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/metrics"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/orders"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/retry"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/returns"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/storefront"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/syncsessions"
)

// App holds the process-wide components. Nothing here opens connections; the SDK clients
// connect lazily.
type App struct {
	Config *config.Config
	Logger *zap.Logger

	Orders        *orders.Service
	Returns       *returns.Service
	Inventory     *inventory.Store
	Sessions      *syncsessions.Store
	Locations     *locations.Store
	Idempotency   *idempotency.Store
	InventorySync *inventorysync.Engine
	Importer      *importer.Poller
	RetryRouter   *retry.Router
	Metrics       metrics.Recorder
}

// Clients are the external collaborators New needs. Tests pass fakes.
type Clients struct {
	AWS         *aws.AWSClients
	Fulfillment fulfillment.API
	Storefront  storefront.API
}

// DefaultClients builds the HTTP clients for the fulfillment backend and the storefront.
func DefaultClients(awsClients *aws.AWSClients, cfg *config.Config, logger *zap.Logger) Clients {
	return Clients{
		AWS:         awsClients,
		Fulfillment: fulfillment.NewHTTPClient(cfg.Fulfillment, nil, logger),
		Storefront:  storefront.NewClient(cfg.Storefront, nil, logger),
	}
}

func New(c Clients, cfg *config.Config, logger *zap.Logger) *App {
	db := c.AWS.DynamoDB

	var rec metrics.Recorder = metrics.Nop{}
	if cfg.Metrics.Enabled {
		rec = metrics.NewCloudWatchRecorder(c.AWS.CloudWatch, cfg.Metrics.Namespace, logger)
	}

	notificationsQueue := aws.NewPublisher(c.AWS.SQS, cfg.Queues.Notifications)
	commandsQueue := aws.NewPublisher(c.AWS.SQS, cfg.Queues.Commands)
	errorsQueue := aws.NewPublisher(c.AWS.SQS, cfg.Queues.Errors)

	var emails email.Notifier = email.Nop{}
	if cfg.Queues.Emails != "" {
		emails = email.NewSQSNotifier(aws.NewPublisher(c.AWS.SQS, cfg.Queues.Emails))
	}

	a := &App{
		Config:      cfg,
		Logger:      logger,
		Inventory:   inventory.NewStore(db, cfg.Tables.InventoryItems),
		Sessions:    syncsessions.NewStore(db, cfg.Tables.SyncSessions),
		Locations:   locations.NewStore(db, cfg.Tables.StoreLocations),
		Idempotency: idempotency.NewStore(db, cfg.Tables.Idempotency, cfg.Idempotency.TTL),
		Metrics:     rec,
	}

	a.Orders = orders.NewService(orders.Deps{
		Store:       orders.NewStore(db, cfg.Tables.Orders, cfg.Tables.Idempotency),
		Fulfillment: c.Fulfillment,
		Storefront:  c.Storefront,
		Inventory:   a.Inventory,
		Locations:   a.Locations,
		Commands:    commandsQueue,
		Reporter:    retry.NewReporter(errorsQueue, cfg.Retry, logger),
		Emails:      emails,
		Logger:      logger,
	}, orders.OptionsFromConfig(cfg))

	a.Returns = returns.NewService(returns.NewStore(db, cfg.Tables.OrderReturns), c.Fulfillment, logger)

	a.InventorySync = inventorysync.NewEngine(inventorysync.Deps{
		Backend:    c.Fulfillment,
		Storefront: c.Storefront,
		Locations:  a.Locations,
		Items:      a.Inventory,
		Sessions:   a.Sessions,
		Metrics:    rec,
		Logger:     logger,
	}, cfg.Inventory)

	a.Importer = importer.NewPoller(c.Fulfillment, a.Locations, notificationsQueue, rec, cfg.Importer, logger)

	a.RetryRouter = retry.NewRouter(retry.NewPolicy(cfg.Retry), notificationsQueue, commandsQueue, rec, logger)

	return a
}
