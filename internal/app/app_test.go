package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/aws"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/awstest"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/config"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/fulfillment"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/fulfillment/fulfillmenttest"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/locations"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/logging"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/metrics"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/retry"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/storefront"
)

type noStorefront struct{}

func (noStorefront) GetInventoryInfo(context.Context, string, string) (*storefront.InventoryInfo, error) {
	return nil, nil
}
func (noStorefront) CreateOrder(context.Context, storefront.CreateOrderRequest) (*storefront.CreatedOrder, error) {
	return nil, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Tables: config.TablesConfig{
			Orders: "orders", InventoryItems: "inventory", SyncSessions: "sessions",
			StoreLocations: "locations", OrderReturns: "returns", Idempotency: "idempotency",
		},
		Queues:   config.QueuesConfig{Notifications: "notifications", Errors: "errors", Commands: "commands"},
		Importer: config.ImporterConfig{PageSize: 10},
		Retry:    config.RetryConfig{MaxServerErrorRetries: 3},
		Metrics:  config.MetricsConfig{Namespace: "Test", Enabled: true},
	}
}

func TestNew_WiresQueuesAndMetrics(t *testing.T) {
	db := awstest.NewFakeDynamo()
	db.CreateTable("locations", "id")
	sqs := awstest.NewFakeSQS()
	cw := &awstest.FakeCloudWatch{}
	api := fulfillmenttest.New()
	api.ListShipmentsFn = func(p fulfillment.ListShipmentsParams) (*fulfillment.ShipmentPage, error) {
		if p.Status != fulfillment.StatusAccepted {
			return &fulfillment.ShipmentPage{}, nil
		}
		return &fulfillment.ShipmentPage{Shipments: []fulfillment.Shipment{{ID: "s-1", LocationID: "SS-1"}}}, nil
	}

	a := New(Clients{
		AWS:         &aws.AWSClients{DynamoDB: db, SQS: sqs, CloudWatch: cw},
		Fulfillment: api,
		Storefront:  noStorefront{},
	}, testConfig(), logging.Nop())

	require.NoError(t, a.Locations.Put(context.Background(), &locations.Location{ID: "loc-1", Name: "Downtown", SupplySourceID: "SS-1", Active: true}))

	sum, err := a.Importer.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Published)
	assert.Len(t, sqs.Sent("notifications"), 1)
	assert.Equal(t, float64(1), cw.Metric("ImportedNotifications"))

	// a REJECT_SHIPMENT retry is routed to the commands queue
	d, err := a.RetryRouter.Handle(context.Background(), retry.Message{Body: `{}`, ErrorType: "REJECT_SHIPMENT_500", FailureCount: 1})
	require.NoError(t, err)
	assert.Equal(t, retry.ActionRequeue, d.Action)
	assert.Len(t, sqs.Sent("commands"), 1)
}

func TestNew_MetricsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enabled = false
	a := New(Clients{
		AWS:         &aws.AWSClients{DynamoDB: awstest.NewFakeDynamo(), SQS: awstest.NewFakeSQS(), CloudWatch: &awstest.FakeCloudWatch{}},
		Fulfillment: fulfillmenttest.New(),
		Storefront:  noStorefront{},
	}, cfg, logging.Nop())

	assert.Equal(t, metrics.Recorder(metrics.Nop{}), a.Metrics)
}
