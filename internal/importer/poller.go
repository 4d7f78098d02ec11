// Package importer backfills shipment notifications the backend failed to push by listing
// recently updated shipments and publishing one synthetic notification per shipment.
package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/aws"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/config"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/fulfillment"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/locations"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/logging"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/metrics"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/notifications"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/retry"
)

// statuses are polled in this order.
var statuses = []string{fulfillment.StatusAccepted, fulfillment.StatusCancelled}

type shipmentLister interface {
	ListShipments(ctx context.Context, params fulfillment.ListShipmentsParams) (*fulfillment.ShipmentPage, error)
}

type locationLister interface {
	List(ctx context.Context) ([]locations.Location, error)
}

type queue interface {
	Send(ctx context.Context, msg aws.Message) error
}

// Summary counts what one run did.
type Summary struct {
	Locations int `json:"locations"`
	Published int `json:"published"`
	Failed    int `json:"failed"`
}

type Poller struct {
	shipments     shipmentLister
	locations     locationLister
	notifications queue
	metrics       metrics.Recorder
	lookback      time.Duration
	pageSize      int
	logger        *zap.Logger
	nowFunc       func() time.Time
	newID         func() string
}

func NewPoller(shipments shipmentLister, locs locationLister, notificationsQueue queue, rec metrics.Recorder, cfg config.ImporterConfig, logger *zap.Logger) *Poller {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Poller{
		shipments:     shipments,
		locations:     locs,
		notifications: notificationsQueue,
		metrics:       rec,
		lookback:      cfg.Lookback,
		pageSize:      cfg.PageSize,
		logger:        logger.Named("importer"),
		nowFunc:       time.Now,
		newID:         uuid.NewString,
	}
}

// Run polls every location with a supply source. A failure for one location and status is
// counted and logged; the run carries on with the next one.
func (p *Poller) Run(ctx context.Context) (Summary, error) {
	var sum Summary
	locs, err := p.locations.List(ctx)
	if err != nil {
		return sum, fmt.Errorf("list locations: %w", err)
	}

	now := p.nowFunc().UTC()
	from := now.Add(-p.lookback)
	for _, loc := range locs {
		if loc.SupplySourceID == "" {
			continue
		}
		sum.Locations++
		for _, status := range statuses {
			published, err := p.importStatus(ctx, loc.SupplySourceID, status, from, now)
			sum.Published += published
			if err != nil {
				sum.Failed++
				p.logger.Warn("import failed",
					zap.String("location_id", loc.SupplySourceID),
					zap.String("status", status),
					zap.Error(err))
			}
		}
	}

	p.metrics.RecordImport(ctx, sum.Published, sum.Failed)
	p.logger.Info("import finished",
		zap.Int("locations", sum.Locations),
		zap.Int("published", sum.Published),
		zap.Int("failed", sum.Failed))
	return sum, nil
}

// importStatus pages through one (location, status) listing until the token runs out.
func (p *Poller) importStatus(ctx context.Context, locationID, status string, from, now time.Time) (int, error) {
	published := 0
	token := ""
	for {
		page, err := p.shipments.ListShipments(ctx, fulfillment.ListShipmentsParams{
			LocationID: locationID,
			Status:     status,
			From:       from,
			PageSize:   p.pageSize,
			NextToken:  token,
		})
		if err != nil {
			return published, fmt.Errorf("list shipments: %w", err)
		}
		for _, s := range page.Shipments {
			if err := p.publish(ctx, s, status, now); err != nil {
				return published, err
			}
			published++
		}
		token = page.Pagination.NextToken
		if token == "" {
			return published, nil
		}
	}
}

// publish uses the listed status; the shipment may have moved on since the listing was served.
func (p *Poller) publish(ctx context.Context, s fulfillment.Shipment, status string, now time.Time) error {
	env := notifications.NewShipmentEnvelope(notifications.ShipmentNotification{
		LocationID:     s.LocationID,
		ChannelName:    s.ChannelName,
		ShipmentID:     s.ID,
		ShipmentStatus: status,
	}, p.newID(), now)
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := p.notifications.Send(ctx, aws.Message{
		Body:             string(body),
		NumberAttributes: map[string]int{retry.AttrFailureCount: 0},
	}); err != nil {
		return fmt.Errorf("publish shipment %s: %w", s.ID, err)
	}
	p.logger.Debug("notification published", logging.Shipment(s.ID), zap.String("status", status))
	return nil
}
