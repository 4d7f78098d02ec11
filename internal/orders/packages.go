package orders

import (
	"context"

	"go.uber.org/zap"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/apperrors"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/fulfillment"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/logging"
)

// CreatePackages runs the three packing steps. Each step persists its status before the next
// one starts, so a call after a failure resumes where the previous one stopped. inputs are only
// read while the order is CONFIRMED.
func (s *Service) CreatePackages(ctx context.Context, id string, inputs []PackageInput) (*Order, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !reached(order.Status, StatusConfirmed) || reached(order.Status, StatusShipLabelGenerated) {
		return nil, apperrors.InvalidTransition(order.Status, StatusPackageCreated)
	}
	log := s.logger.With(logging.Shipment(order.ShipmentID))

	if order.Status == StatusConfirmed {
		if len(inputs) == 0 {
			return nil, apperrors.Validation("at least one package is required")
		}
		packages := make([]Package, 0, len(inputs))
		remote := make([]fulfillment.Package, 0, len(inputs))
		for i, in := range inputs {
			p := newPackage(i, in, order.LineItems)
			packages = append(packages, p)
			remote = append(remote, p.toRemote())
		}
		if err := s.fulfillment.CreatePackages(ctx, order.ShipmentID, remote); err != nil {
			return nil, &apperrors.OperationError{Op: apperrors.OpCreatePackages, ShipmentID: order.ShipmentID, Err: err}
		}
		order.Packages = packages
		if err := s.transition(ctx, order, StatusPackageCreated); err != nil {
			return nil, err
		}
		log.Info("packages created", zap.Int("packages", len(packages)))
	}

	if order.Status == StatusPackageCreated {
		for _, p := range order.Packages {
			if err := s.fulfillment.RetrieveShippingOptions(ctx, order.ShipmentID, p.ID); err != nil {
				return nil, &apperrors.OperationError{Op: apperrors.OpRetrieveShippingOptions, ShipmentID: order.ShipmentID, PackageID: p.ID, Err: err}
			}
		}
		if err := s.transition(ctx, order, StatusPickupSlotRetrieved); err != nil {
			return nil, err
		}
	}

	if order.Status == StatusPickupSlotRetrieved {
		for _, p := range order.Packages {
			if err := s.fulfillment.GenerateInvoice(ctx, order.ShipmentID, p.ID); err != nil {
				return nil, &apperrors.OperationError{Op: apperrors.OpGenerateInvoice, ShipmentID: order.ShipmentID, PackageID: p.ID, Err: err}
			}
		}
		if err := s.transition(ctx, order, StatusInvoiceGenerated); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// GenerateShippingLabel buys a label for every package. The order must have its invoices.
func (s *Service) GenerateShippingLabel(ctx context.Context, id string) (*Order, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status != StatusInvoiceGenerated {
		return nil, apperrors.InvalidTransition(order.Status, StatusShipLabelGenerated)
	}
	for i := range order.Packages {
		p := &order.Packages[i]
		label, err := s.fulfillment.GenerateShippingLabel(ctx, order.ShipmentID, p.ID)
		if err != nil {
			return nil, &apperrors.OperationError{Op: apperrors.OpGenerateShippingLabel, ShipmentID: order.ShipmentID, PackageID: p.ID, Err: err}
		}
		p.ShippingLabel = labelFromRemote(label, order.ShippingInfo.RecommendedShipMethod)
	}
	if err := s.transition(ctx, order, StatusShipLabelGenerated); err != nil {
		return nil, err
	}
	return order, nil
}

// ShipComplete hands packages to the carrier. An empty packageIDs means every package.
// Packages already shipped are skipped; progress is saved even when a later package fails.
func (s *Service) ShipComplete(ctx context.Context, id string, packageIDs []string) (*Order, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status != StatusShipLabelGenerated {
		return nil, apperrors.InvalidTransition(order.Status, StatusShipped)
	}
	if len(packageIDs) == 0 {
		for _, p := range order.Packages {
			packageIDs = append(packageIDs, p.ID)
		}
	}
	for _, pid := range packageIDs {
		if order.Package(pid) == nil {
			return nil, apperrors.Validation("unknown package").WithDetail("packageId", pid)
		}
	}

	for _, pid := range packageIDs {
		p := order.Package(pid)
		if p.Status == StatusShipped {
			continue
		}
		if err := s.fulfillment.ShipComplete(ctx, order.ShipmentID, pid); err != nil {
			opErr := &apperrors.OperationError{Op: apperrors.OpShipComplete, ShipmentID: order.ShipmentID, PackageID: pid, Err: err}
			if saveErr := s.save(ctx, order); saveErr != nil {
				s.logger.Warn("unable to save partial ship complete", logging.Shipment(order.ShipmentID), zap.Error(saveErr))
			}
			return nil, opErr
		}
		p.Status = StatusShipped
	}

	// The order ships with the requested packages; the rest are left as they are.
	if err := s.transition(ctx, order, StatusShipped); err != nil {
		return nil, err
	}
	return order, nil
}
