package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/apperrors"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/aws"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/email"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/inventory"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/locations"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/logging"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/notifications"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/retry"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/storefront"
)

// HandleNotification processes one notifications queue message. failureCount is the number of
// times this body already failed with a retryable error.
func (s *Service) HandleNotification(ctx context.Context, body string, failureCount int) error {
	env, err := notifications.Parse(body)
	if err != nil {
		return err
	}
	n, err := env.Shipment()
	if err != nil {
		s.logger.Info("ignoring notification",
			zap.String("notification_type", env.NotificationType),
			zap.String("notification_id", env.NotificationMetadata.NotificationID))
		return nil
	}

	switch n.ShipmentStatus {
	case StatusAccepted:
		return s.Ingest(ctx, n.ShipmentID, body, env.EventTime, failureCount)
	case StatusCancelled, StatusDelivered:
		return s.ApplyTerminal(ctx, n.ShipmentID, n.ShipmentStatus)
	default:
		s.logger.Debug("ignoring shipment status", logging.Shipment(n.ShipmentID), zap.String("status", n.ShipmentStatus))
		return nil
	}
}

// Ingest creates the local order for a newly accepted shipment. It is a no-op for a shipment
// that already has an order, so redelivered notifications are harmless.
func (s *Service) Ingest(ctx context.Context, shipmentID, body string, eventTime time.Time, failureCount int) error {
	log := s.logger.With(logging.Shipment(shipmentID))

	existing, err := s.store.GetByShipmentID(ctx, shipmentID)
	if err != nil {
		return err
	}
	if existing != nil {
		if existing.Status != StatusAccepted || existing.CommitDecision != "" || !s.opts.Production {
			log.Info("order already exists", zap.String("order_id", existing.ID))
			return nil
		}
		// An earlier delivery created the order but never enqueued its command.
		log.Warn("order has no commit decision, deciding again", zap.String("order_id", existing.ID))
		_, err := s.commit(ctx, existing, s.eventTimeOr(eventTime))
		return err
	}

	shipment, err := s.fulfillment.GetShipment(ctx, shipmentID)
	if err != nil {
		if et, ok := retry.Classify(retry.OpGetShipment, err); ok {
			log.Warn("get shipment failed, handing to retry router", zap.Error(err))
			return s.reporter.Report(ctx, et, body, failureCount+1, eventTime)
		}
		return fmt.Errorf("get shipment %s: %w", shipmentID, err)
	}
	if shipment.Status != StatusAccepted {
		log.Info("shipment no longer accepted", zap.String("status", shipment.Status))
		return nil
	}

	order := fromShipment(shipment)
	order.ID = s.newID()
	if err := s.store.Create(ctx, order); err != nil {
		if errors.Is(err, ErrDuplicateShipment) {
			log.Info("lost create race, order already exists")
			return nil
		}
		return err
	}
	log.Info("order created", zap.String("order_id", order.ID))

	if !s.opts.Production {
		log.Info("commit decision skipped outside production")
		return nil
	}
	_, err = s.commit(ctx, order, s.eventTimeOr(eventTime))
	return err
}

func (s *Service) eventTimeOr(t time.Time) time.Time {
	if t.IsZero() {
		return s.nowFunc()
	}
	return t
}

// commit decides whether the order can be fulfilled from local stock and enqueues the
// matching command. Every line is checked before any quantity is touched. The decision is
// recorded on the order once the command is queued; until then a redelivery decides again.
func (s *Service) commit(ctx context.Context, order *Order, eventTime time.Time) (CommandType, error) {
	log := s.logger.With(logging.Shipment(order.ShipmentID))

	items, ok, err := s.checkStock(ctx, order)
	if err != nil {
		return "", err
	}

	cmd := &Command{ShipmentID: order.ShipmentID, LocationID: order.LocationID, EventTime: eventTime.UTC()}
	if ok {
		reserve(items, order.LineItems)
		cmd.Type = CommandConfirmShipment
	} else {
		cmd.Type = CommandRejectShipment
		cmd.LineItems = rejectLines(order)
	}

	body, err := cmd.encode()
	if err != nil {
		return "", err
	}
	if err := s.commands.Send(ctx, aws.Message{Body: body}); err != nil {
		return "", fmt.Errorf("enqueue %s: %w", cmd.Type, err)
	}
	log.Info("commit decision", zap.String("command", string(cmd.Type)))

	order.CommitDecision = string(cmd.Type)
	if err := s.save(ctx, order); err != nil {
		// the command handlers skip orders that already left ACCEPTED, so a second send is harmless
		log.Warn("unable to record commit decision", zap.Error(err))
	}
	return cmd.Type, nil
}

// reserve moves the ordered units from sellable to reserved on the loaded records.
func reserve(items []*inventory.Item, lines []LineItem) {
	for i, li := range lines {
		items[i].SellableQuantity -= li.NumberOfUnits
		items[i].ReservedQuantity += li.NumberOfUnits
	}
}

// checkStock loads the inventory record of every line. ok is false as soon as one line cannot
// be covered after the safety buffer. A missing location or record counts as no stock.
func (s *Service) checkStock(ctx context.Context, order *Order) ([]*inventory.Item, bool, error) {
	log := s.logger.With(logging.Shipment(order.ShipmentID))

	loc, err := s.locations.GetBySupplySource(ctx, order.LocationID)
	if err != nil {
		return nil, false, err
	}
	if loc == nil {
		log.Warn("no store location for supply source", zap.String("location_id", order.LocationID))
		return nil, false, nil
	}

	items := make([]*inventory.Item, len(order.LineItems))
	for i, li := range order.LineItems {
		item, err := s.inventory.GetByLocationSKU(ctx, loc.ID, li.MerchantSKU)
		if err != nil {
			return nil, false, err
		}
		if item == nil {
			log.Info("sku not stocked", zap.String("sku", li.MerchantSKU))
			return nil, false, nil
		}
		if item.SellableQuantity-s.opts.Buffer < li.NumberOfUnits {
			log.Info("insufficient stock",
				zap.String("sku", li.MerchantSKU),
				zap.Int("sellable", item.SellableQuantity),
				zap.Int("buffer", s.opts.Buffer),
				zap.Int("requested", li.NumberOfUnits))
			return nil, false, nil
		}
		items[i] = item
	}
	return items, true, nil
}

// HandleCommand executes one commands queue message.
func (s *Service) HandleCommand(ctx context.Context, body string, failureCount int) error {
	cmd, err := ParseCommand(body)
	if err != nil {
		return err
	}
	switch cmd.Type {
	case CommandConfirmShipment:
		return s.HandleConfirm(ctx, cmd, body, failureCount)
	default:
		return s.HandleReject(ctx, cmd, body, failureCount)
	}
}

// HandleConfirm confirms the shipment with the backend and moves the order to CONFIRMED.
func (s *Service) HandleConfirm(ctx context.Context, cmd *Command, body string, failureCount int) error {
	log := s.logger.With(logging.Shipment(cmd.ShipmentID))

	order, err := s.store.GetByShipmentID(ctx, cmd.ShipmentID)
	if err != nil {
		return err
	}
	if order == nil {
		return apperrors.NotFound("order for shipment", cmd.ShipmentID)
	}
	if order.Status != StatusAccepted {
		log.Info("confirm skipped", zap.String("status", order.Status))
		return nil
	}

	if s.opts.DisableConfirmShipment {
		log.Warn("confirm shipment call disabled by configuration")
	} else if err := s.fulfillment.ConfirmShipment(ctx, cmd.ShipmentID); err != nil {
		if et, ok := retry.Classify(retry.OpConfirmShipment, err); ok {
			log.Warn("confirm shipment failed, handing to retry router", zap.Error(err))
			return s.reporter.Report(ctx, et, body, failureCount+1, cmd.EventTime)
		}
		return fmt.Errorf("confirm shipment %s: %w", cmd.ShipmentID, err)
	}

	if err := s.transition(ctx, order, StatusConfirmed); err != nil {
		return err
	}
	s.afterConfirm(ctx, order)
	return nil
}

// HandleReject rejects the shipment with the backend and moves the order to CANCELLED.
func (s *Service) HandleReject(ctx context.Context, cmd *Command, body string, failureCount int) error {
	log := s.logger.With(logging.Shipment(cmd.ShipmentID))

	order, err := s.store.GetByShipmentID(ctx, cmd.ShipmentID)
	if err != nil {
		return err
	}
	if order == nil {
		return apperrors.NotFound("order for shipment", cmd.ShipmentID)
	}
	if order.Status != StatusAccepted {
		log.Info("reject skipped", zap.String("status", order.Status))
		return nil
	}

	lines := cmd.LineItems
	if len(lines) == 0 {
		lines = rejectLines(order)
	}
	if err := s.fulfillment.RejectShipment(ctx, cmd.ShipmentID, lines); err != nil {
		if et, ok := retry.Classify(retry.OpRejectShipment, err); ok {
			log.Warn("reject shipment failed, handing to retry router", zap.Error(err))
			return s.reporter.Report(ctx, et, body, failureCount+1, cmd.EventTime)
		}
		return fmt.Errorf("reject shipment %s: %w", cmd.ShipmentID, err)
	}

	if err := s.transition(ctx, order, StatusCancelled); err != nil {
		return err
	}
	s.notifyLocation(ctx, order, email.OrderCancellation, nil)
	return nil
}

// ApplyTerminal records a CANCELLED or DELIVERED status reported by the backend.
// Replays and out-of-graph moves are skipped; RefreshOrder repairs drift.
func (s *Service) ApplyTerminal(ctx context.Context, shipmentID, status string) error {
	log := s.logger.With(logging.Shipment(shipmentID), zap.String("status", status))

	order, err := s.store.GetByShipmentID(ctx, shipmentID)
	if err != nil {
		return err
	}
	if order == nil {
		log.Info("no order for terminal notification")
		return nil
	}
	if order.Status == status || IsTerminal(order.Status) {
		log.Info("terminal status already applied", zap.String("current", order.Status))
		return nil
	}
	if !CanTransition(order.Status, status) {
		log.Warn("terminal status not reachable, skipping", zap.String("current", order.Status))
		return nil
	}
	return s.transition(ctx, order, status)
}

// afterConfirm runs the best-effort follow-ups of a confirmation. Failures are logged only.
func (s *Service) afterConfirm(ctx context.Context, order *Order) {
	log := s.logger.With(logging.Shipment(order.ShipmentID))

	loc, err := s.locations.GetBySupplySource(ctx, order.LocationID)
	if err != nil || loc == nil {
		log.Warn("confirmation follow-ups skipped, no store location", zap.Error(err))
		return
	}
	items := make([]*inventory.Item, len(order.LineItems))
	for i, li := range order.LineItems {
		item, err := s.inventory.GetByLocationSKU(ctx, loc.ID, li.MerchantSKU)
		if err != nil {
			log.Warn("load inventory item for email", zap.String("sku", li.MerchantSKU), zap.Error(err))
			continue
		}
		items[i] = item
	}

	s.sendEmail(ctx, order, loc, email.OrderConfirmation, items)

	if !s.opts.CreateStorefrontOrders || order.StorefrontOrder != nil {
		return
	}
	ref, err := s.createStorefrontOrder(ctx, order, loc, items)
	if err != nil {
		log.Warn("unable to create storefront order", zap.Error(err))
		return
	}
	order.StorefrontOrder = ref
	if err := s.save(ctx, order); err != nil {
		log.Warn("unable to attach storefront order", zap.Error(err))
	}
}

// notifyLocation sends a best-effort email to the admins of the order's store location.
func (s *Service) notifyLocation(ctx context.Context, order *Order, typ email.Type, items []*inventory.Item) {
	loc, err := s.locations.GetBySupplySource(ctx, order.LocationID)
	if err != nil || loc == nil {
		s.logger.Warn("email skipped, no store location", logging.Shipment(order.ShipmentID), zap.Error(err))
		return
	}
	s.sendEmail(ctx, order, loc, typ, items)
}

func (s *Service) sendEmail(ctx context.Context, order *Order, loc *locations.Location, typ email.Type, items []*inventory.Item) {
	data := email.Data{
		IsTest:        !s.opts.Production,
		OrderNumber:   order.Metadata.BuyerOrderID,
		OrderAdminURL: fmt.Sprintf("%s/orders?id=%s", s.opts.AdminURL, order.ID),
	}
	if data.OrderNumber == "" {
		data.OrderNumber = order.ShipmentID
	}
	if typ == email.OrderConfirmation {
		data.TotalLineItems = len(order.LineItems)
		for i, li := range order.LineItems {
			title := li.MerchantSKU
			if i < len(items) && items[i] != nil && items[i].StorefrontVariant.Product.Title != "" {
				title = li.MerchantSKU + " " + items[i].StorefrontVariant.Product.Title
			}
			data.LineItems = append(data.LineItems, email.LineItem{Title: title, SKU: li.MerchantSKU, Quantity: li.NumberOfUnits})
		}
	}
	if err := s.emails.Send(ctx, email.Message{Type: typ, To: loc.AdminEmails(), Data: data}); err != nil {
		s.logger.Warn("email not sent", logging.Shipment(order.ShipmentID), zap.String("type", string(typ)), zap.Error(err))
	}
}

// createStorefrontOrder mirrors the confirmed order into the storefront so stock and sales
// reports there stay complete.
func (s *Service) createStorefrontOrder(ctx context.Context, order *Order, loc *locations.Location, items []*inventory.Item) (*StorefrontOrderRef, error) {
	if loc.StorefrontLocationID == "" {
		return nil, fmt.Errorf("location %s has no storefront location", loc.ID)
	}
	req := storefront.CreateOrderRequest{LocationID: loc.StorefrontLocationID}
	for i, li := range order.LineItems {
		if items[i] == nil || items[i].StorefrontVariant.ID == "" {
			return nil, fmt.Errorf("unable to find variant id for %s", li.MerchantSKU)
		}
		price := 0.0
		if c, ok := charge(li.Charges, "product"); ok && li.NumberOfUnits > 0 {
			price = c.BaseAmount / float64(li.NumberOfUnits)
		}
		req.LineItems = append(req.LineItems, storefront.CreateOrderLineItem{
			VariantID: items[i].StorefrontVariant.ID,
			Quantity:  li.NumberOfUnits,
			Price:     price,
			Taxable:   true,
		})
	}
	if total, ok := charge(order.Charges, "total"); ok {
		req.TotalTax = total.TotalTax
		req.TotalPrice = total.TotalAmount
		req.TotalDiscount = total.TotalDiscount
	}

	created, err := s.storefront.CreateOrder(ctx, req)
	if err != nil {
		return nil, err
	}
	return &StorefrontOrderRef{OrderID: created.ID, OrderNumber: created.Name, ShopDomain: s.opts.ShopDomain}, nil
}
