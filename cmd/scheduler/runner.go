package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/importer"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/inventorysync"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/syncsessions"
)

const (
	RoleImportShipments = "import-shipments"
	RoleInventorySync   = "inventory-sync"
)

type shipmentImporter interface {
	Run(ctx context.Context) (importer.Summary, error)
}

type inventorySyncer interface {
	Run(ctx context.Context, trigger inventorysync.Trigger) (*syncsessions.Session, error)
}

// Runner executes one scheduled job per invocation.
type Runner struct {
	run    func(ctx context.Context) error
	logger *zap.Logger
}

func NewRunner(role string, imp shipmentImporter, sync inventorySyncer, logger *zap.Logger) (*Runner, error) {
	logger = logger.Named("scheduler").With(zap.String("role", role))
	r := &Runner{logger: logger}
	switch role {
	case RoleImportShipments:
		r.run = func(ctx context.Context) error {
			sum, err := imp.Run(ctx)
			if err != nil {
				return err
			}
			logger.Info("import finished",
				zap.Int("locations", sum.Locations),
				zap.Int("published", sum.Published),
				zap.Int("failed", sum.Failed),
			)
			return nil
		}
	case RoleInventorySync:
		r.run = func(ctx context.Context) error {
			s, err := sync.Run(ctx, inventorysync.TriggerSchedule)
			if err != nil {
				return err
			}
			logger.Info("inventory sync finished",
				zap.String("session_id", s.ID),
				zap.Int("updated", s.Count(syncsessions.StatusUpdated)),
				zap.Int("skipped", s.Count(syncsessions.StatusSkipped)),
				zap.Int("failed", s.Count(syncsessions.StatusFailed)),
			)
			return nil
		}
	default:
		return nil, fmt.Errorf("unknown scheduler role %q", role)
	}
	return r, nil
}

// Handle is the CloudWatch scheduled-event entry point.
func (r *Runner) Handle(ctx context.Context, ev events.CloudWatchEvent) error {
	r.logger.Info("scheduled run", zap.String("event_id", ev.ID), zap.Time("event_time", ev.Time))
	if err := r.run(ctx); err != nil {
		r.logger.Error("scheduled run failed", zap.Error(err))
		return err
	}
	return nil
}
