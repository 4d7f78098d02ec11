package orders

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/apperrors"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/email"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/logging"
)

// CreateOrder imports a shipment on request. Unlike Ingest it neither retries nor runs the
// commit decision.
func (s *Service) CreateOrder(ctx context.Context, shipmentID string) (*Order, error) {
	existing, err := s.store.GetByShipmentID(ctx, shipmentID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if existing != nil {
		return nil, apperrors.Conflict("order for shipment already exists").WithDetail("orderId", existing.ID)
	}

	shipment, err := s.fulfillment.GetShipment(ctx, shipmentID)
	if err != nil {
		return nil, upstream(err, "shipment", shipmentID)
	}
	order := fromShipment(shipment)
	order.ID = s.newID()
	if err := s.store.Create(ctx, order); err != nil {
		if errors.Is(err, ErrDuplicateShipment) {
			return nil, apperrors.Conflict("order for shipment already exists")
		}
		return nil, apperrors.Internal(err)
	}
	s.logger.Info("order created by operator", logging.Shipment(shipmentID), zap.String("order_id", order.ID))
	return order, nil
}

// ConfirmOrder is the synchronous form of HandleConfirm.
func (s *Service) ConfirmOrder(ctx context.Context, id string) (*Order, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(order.Status, StatusConfirmed) {
		return nil, apperrors.InvalidTransition(order.Status, StatusConfirmed)
	}
	if !s.opts.DisableConfirmShipment {
		if err := s.fulfillment.ConfirmShipment(ctx, order.ShipmentID); err != nil {
			return nil, upstream(err, "shipment", order.ShipmentID)
		}
	}
	if err := s.transition(ctx, order, StatusConfirmed); err != nil {
		return nil, err
	}
	s.afterConfirm(ctx, order)
	return order, nil
}

// RejectOrder rejects every line as out of stock and cancels the order.
func (s *Service) RejectOrder(ctx context.Context, id string) (*Order, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(order.Status, StatusCancelled) {
		return nil, apperrors.InvalidTransition(order.Status, StatusCancelled)
	}
	if err := s.fulfillment.RejectShipment(ctx, order.ShipmentID, rejectLines(order)); err != nil {
		return nil, upstream(err, "shipment", order.ShipmentID)
	}
	if err := s.transition(ctx, order, StatusCancelled); err != nil {
		return nil, err
	}
	s.notifyLocation(ctx, order, email.OrderRejection, nil)
	return order, nil
}

// RefreshOrder overwrites the order with the backend's current view of the shipment.
// It is the repair path for anything the event flow skipped.
func (s *Service) RefreshOrder(ctx context.Context, id string) (*Order, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	shipment, err := s.fulfillment.GetShipment(ctx, order.ShipmentID)
	if err != nil {
		return nil, upstream(err, "shipment", order.ShipmentID)
	}
	log := s.logger.With(logging.Shipment(order.ShipmentID))

	order.applyShipment(shipment)
	packages := make([]Package, 0, len(shipment.Packages))
	for _, rp := range shipment.Packages {
		p := packageFromRemote(rp)
		if inv, err := s.fulfillment.GetInvoice(ctx, order.ShipmentID, rp.ID); err != nil {
			log.Info("no invoice for package", zap.String("package_id", rp.ID), zap.Error(err))
		} else {
			p.Invoice = &Document{Format: inv.Document.Format, Content: inv.Document.Content}
		}
		if label, err := s.fulfillment.GetShippingLabel(ctx, order.ShipmentID, rp.ID); err != nil {
			log.Info("no shipping label for package", zap.String("package_id", rp.ID), zap.Error(err))
		} else {
			p.ShippingLabel = labelFromRemote(label, order.ShippingInfo.RecommendedShipMethod)
		}
		packages = append(packages, p)
	}
	order.Packages = packages

	if err := s.save(ctx, order); err != nil {
		return nil, err
	}
	log.Info("order refreshed", zap.String("status", order.Status))
	return order, nil
}

// ArchiveOrder hides an in-flight order from the default listing.
func (s *Service) ArchiveOrder(ctx context.Context, id string) (*Order, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if IsTerminal(order.Status) {
		return nil, apperrors.InvalidTransition(order.Status, "ARCHIVED")
	}
	if order.Archived {
		return order, nil
	}
	order.Archived = true
	if err := s.save(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// DeleteOrder removes the order and frees its shipment for a new import.
func (s *Service) DeleteOrder(ctx context.Context, id string) error {
	order, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, order); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return apperrors.NotFound("order", id)
		}
		return apperrors.Internal(err)
	}
	s.logger.Info("order deleted", logging.Shipment(order.ShipmentID), zap.String("order_id", id))
	return nil
}

// UpdateStorefrontOrder attaches a storefront order created outside this system.
func (s *Service) UpdateStorefrontOrder(ctx context.Context, id string, ref StorefrontOrderRef) (*Order, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	order.StorefrontOrder = &ref
	if err := s.save(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}
