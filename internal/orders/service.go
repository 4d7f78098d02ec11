package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/apperrors"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/aws"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/config"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/email"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/fulfillment"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/inventory"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/locations"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/logging"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/pagination"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/retry"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/storefront"
)

type inventoryReader interface {
	GetByLocationSKU(ctx context.Context, locationID, sku string) (*inventory.Item, error)
}

type locationReader interface {
	GetBySupplySource(ctx context.Context, supplySourceID string) (*locations.Location, error)
}

type queue interface {
	Send(ctx context.Context, msg aws.Message) error
}

type failureReporter interface {
	Report(ctx context.Context, et retry.ErrorType, body string, failureCount int, eventTime time.Time) error
}

// Options are the switches the workflow reads from configuration.
type Options struct {
	// Production enables the commit decision after ingest.
	Production             bool
	Buffer                 int
	DisableConfirmShipment bool
	CreateStorefrontOrders bool
	AdminURL               string
	ShopDomain             string
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Production:             cfg.IsProduction(),
		Buffer:                 cfg.Inventory.Buffer,
		DisableConfirmShipment: cfg.Fulfillment.DisableConfirmShipment,
		CreateStorefrontOrders: cfg.Storefront.CreateOrders,
		AdminURL:               strings.TrimRight(cfg.AdminURL, "/"),
		ShopDomain:             cfg.Storefront.ShopDomain,
	}
}

// Deps are the collaborators of Service.
type Deps struct {
	Store       *Store
	Fulfillment fulfillment.API
	Storefront  storefront.API
	Inventory   inventoryReader
	Locations   locationReader
	Commands    queue
	Reporter    failureReporter
	Emails      email.Notifier
	Logger      *zap.Logger
}

// Service drives orders through their lifecycle, from queue messages and from admin calls.
type Service struct {
	store       *Store
	fulfillment fulfillment.API
	storefront  storefront.API
	inventory   inventoryReader
	locations   locationReader
	commands    queue
	reporter    failureReporter
	emails      email.Notifier
	opts        Options
	logger      *zap.Logger
	nowFunc     func() time.Time
	newID       func() string
}

func NewService(d Deps, opts Options) *Service {
	emails := d.Emails
	if emails == nil {
		emails = email.Nop{}
	}
	return &Service{
		store:       d.Store,
		fulfillment: d.Fulfillment,
		storefront:  d.Storefront,
		inventory:   d.Inventory,
		locations:   d.Locations,
		commands:    d.Commands,
		reporter:    d.Reporter,
		emails:      emails,
		opts:        opts,
		logger:      d.Logger.Named("orders"),
		nowFunc:     time.Now,
		newID:       uuid.NewString,
	}
}

// Get returns the order or a NOT_FOUND error.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if o == nil {
		return nil, apperrors.NotFound("order", id)
	}
	return o, nil
}

func (s *Service) GetByShipmentID(ctx context.Context, shipmentID string) (*Order, error) {
	o, err := s.store.GetByShipmentID(ctx, shipmentID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if o == nil {
		return nil, apperrors.NotFound("order for shipment", shipmentID)
	}
	return o, nil
}

func (s *Service) List(ctx context.Context, p ListParams) (*pagination.Page[Order], error) {
	page, err := s.store.List(ctx, p)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidCursor) {
			return nil, apperrors.Validation(err.Error())
		}
		return nil, apperrors.Internal(err)
	}
	return page, nil
}

// transition moves order to status along the graph and saves it.
func (s *Service) transition(ctx context.Context, order *Order, status string) error {
	if !CanTransition(order.Status, status) {
		return apperrors.InvalidTransition(order.Status, status)
	}
	from := order.Status
	order.Status = status
	if err := s.save(ctx, order); err != nil {
		order.Status = from
		return err
	}
	s.logger.Info("order status changed", logging.Shipment(order.ShipmentID),
		zap.String("from", from), zap.String("to", status))
	return nil
}

func (s *Service) save(ctx context.Context, order *Order) error {
	if err := s.store.Save(ctx, order); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			conflict := apperrors.Conflict(fmt.Sprintf("order %s was modified concurrently", order.ID))
			conflict.Err = err
			return conflict
		}
		return apperrors.Internal(err)
	}
	return nil
}

// upstream maps a fulfillment error for API callers.
func upstream(err error, resource, id string) error {
	if fulfillment.IsNotFound(err) {
		return apperrors.NotFound(resource, id)
	}
	return apperrors.Upstream(err, fulfillment.IsRetryable(err))
}

func rejectLines(order *Order) []fulfillment.RejectLineItem {
	out := make([]fulfillment.RejectLineItem, 0, len(order.LineItems))
	for _, li := range order.LineItems {
		out = append(out, fulfillment.NewRejectLineItem(li.ID, li.NumberOfUnits, fulfillment.RejectReasonOutOfStock))
	}
	return out
}
