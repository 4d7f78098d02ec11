// Package inventorysync pushes storefront stock levels to the fulfillment backend and records
// every run as a sync session.
package inventorysync

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/config"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/fulfillment"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/inventory"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/locations"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/metrics"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/storefront"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/syncsessions"
)

// Trigger says who started a run.
type Trigger string

const (
	TriggerSchedule Trigger = "schedule"
	TriggerManual   Trigger = "manual"
)

func (t Trigger) description() string {
	if t == TriggerManual {
		return "Manual run"
	}
	return "By schedule job"
}

type backend interface {
	GetFbaInventoryItems(ctx context.Context) ([]fulfillment.InventorySummary, error)
	UpdateInventory(ctx context.Context, req fulfillment.UpdateInventoryRequest) (*fulfillment.UpdateInventoryResult, error)
}

type storefrontReader interface {
	GetInventoryInfo(ctx context.Context, sku, locationID string) (*storefront.InventoryInfo, error)
}

type locationLister interface {
	List(ctx context.Context) ([]locations.Location, error)
}

type itemStore interface {
	ListByLocation(ctx context.Context, locationID string) ([]inventory.Item, error)
	Upsert(ctx context.Context, item *inventory.Item) error
}

type sessionSaver interface {
	Save(ctx context.Context, session *syncsessions.Session) error
}

// Deps are the collaborators of Engine.
type Deps struct {
	Backend    backend
	Storefront storefrontReader
	Locations  locationLister
	Items      itemStore
	Sessions   sessionSaver
	Metrics    metrics.Recorder
	Logger     *zap.Logger
}

// Engine reconciles stock one location and one SKU at a time. A failing SKU is recorded and
// the loop moves on.
type Engine struct {
	backend    backend
	storefront storefrontReader
	locations  locationLister
	items      itemStore
	sessions   sessionSaver
	metrics    metrics.Recorder
	cfg        config.InventoryConfig
	logger     *zap.Logger
	nowFunc    func() time.Time
	newID      func() string
}

func NewEngine(d Deps, cfg config.InventoryConfig) *Engine {
	rec := d.Metrics
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Engine{
		backend:    d.Backend,
		storefront: d.Storefront,
		locations:  d.Locations,
		items:      d.Items,
		sessions:   d.Sessions,
		metrics:    rec,
		cfg:        cfg,
		logger:     d.Logger.Named("inventory-sync"),
		nowFunc:    time.Now,
		newID:      uuid.NewString,
	}
}

// Run executes one reconciliation pass and persists its session. The returned session is the
// persisted one, also when the run failed before reaching any location.
func (e *Engine) Run(ctx context.Context, trigger Trigger) (*syncsessions.Session, error) {
	if e.cfg.SyncTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.SyncTimeout)
		defer cancel()
	}

	start := e.nowFunc().UTC()
	session := &syncsessions.Session{
		ID:          e.newID(),
		Title:       "Auto Sync - " + start.Format(time.RFC1123),
		Description: trigger.description(),
		StartedAt:   start,
		Status:      syncsessions.StatusInProgress,
	}
	log := e.logger.With(zap.String("session_id", session.ID), zap.String("trigger", string(trigger)))

	log.Info("fetching backend inventory items")
	backendItems, err := e.backend.GetFbaInventoryItems(ctx)
	if err != nil {
		return session, e.fail(ctx, session, "Unable to fetch backend inventory items", err)
	}
	bySKU := make(map[string]fulfillment.InventorySummary, len(backendItems))
	skus := make([]string, 0, len(backendItems))
	for _, it := range backendItems {
		if _, dup := bySKU[it.SellerSku]; !dup {
			skus = append(skus, it.SellerSku)
		}
		bySKU[it.SellerSku] = it
	}
	if e.cfg.TestMode {
		skus = e.cfg.TestSKUs
	}
	log.Info("backend inventory loaded", zap.Int("items", len(backendItems)), zap.Int("candidates", len(skus)))

	locs, err := e.locations.List(ctx)
	if err != nil {
		return session, e.fail(ctx, session, "Unable to list store locations", err)
	}
	session.Locations = make([]syncsessions.LocationResult, len(locs))
	for i, loc := range locs {
		session.Locations[i] = syncsessions.LocationResult{
			Location: syncsessions.LocationInfo{ID: loc.ID, Name: loc.Name},
			Status:   syncsessions.StatusInProgress,
		}
	}

	for i := range locs {
		e.syncLocation(ctx, &locs[i], &session.Locations[i], skus, bySKU)
	}

	finished := e.nowFunc().UTC()
	session.FinishedAt = &finished
	session.Status = syncsessions.StatusCompleted
	saveCtx, cancel := persistContext(ctx)
	defer cancel()
	if err := e.sessions.Save(saveCtx, session); err != nil {
		return session, fmt.Errorf("save sync session: %w", err)
	}
	e.metrics.RecordSyncSession(saveCtx, session)
	log.Info("inventory sync completed",
		zap.Int("updated", session.Count(syncsessions.StatusUpdated)),
		zap.Int("skipped", session.Count(syncsessions.StatusSkipped)),
		zap.Int("failed", session.Count(syncsessions.StatusFailed)))
	return session, nil
}

// persistContext outlives the run deadline so a timed out run still leaves its session.
func persistContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
}

// fail persists a session that could not start its location loop.
func (e *Engine) fail(ctx context.Context, session *syncsessions.Session, msg string, cause error) error {
	now := e.nowFunc().UTC()
	session.Log(now, msg, map[string]string{"error": cause.Error()})
	session.Status = syncsessions.StatusFailed
	session.FinishedAt = &now
	e.logger.Error(msg, zap.String("session_id", session.ID), zap.Error(cause))

	saveCtx, cancel := persistContext(ctx)
	defer cancel()
	if err := e.sessions.Save(saveCtx, session); err != nil {
		e.logger.Error("unable to save failed sync session", zap.Error(err))
	}
	e.metrics.RecordSyncSession(saveCtx, session)
	return fmt.Errorf("%s: %w", strings.ToLower(msg), cause)
}

func (e *Engine) syncLocation(ctx context.Context, loc *locations.Location, result *syncsessions.LocationResult, skus []string, bySKU map[string]fulfillment.InventorySummary) {
	log := e.logger.With(zap.String("location", loc.Name))
	logf := func(msg string) {
		log.Info(msg)
		result.Log(e.nowFunc().UTC(), loc.Name+" - "+msg, nil)
	}

	if !loc.Active {
		result.Status = syncsessions.StatusSkipped
		logf("location is not active.")
		return
	}
	if loc.SupplySourceID == "" || loc.StorefrontLocationID == "" {
		result.Status = syncsessions.StatusSkipped
		logf("supplySourceId or storefrontLocationId not set.")
		return
	}

	logf("Loading current inventory items")
	current, err := e.items.ListByLocation(ctx, loc.ID)
	if err != nil {
		result.Status = syncsessions.StatusFailed
		result.Log(e.nowFunc().UTC(), "Unable to load inventory items", map[string]string{"error": err.Error()})
		log.Error("load inventory items", zap.Error(err))
		return
	}
	existing := make(map[string]*inventory.Item, len(current))
	for i := range current {
		existing[current[i].SKU] = &current[i]
	}
	logf("Loaded inventory items. Total: " + strconv.Itoa(len(current)))

	for i, sku := range skus {
		if isVirtualSKU(sku) {
			continue
		}
		op := syncsessions.Operation{SKU: sku, At: e.nowFunc().UTC()}
		if err := ctx.Err(); err != nil {
			op.Result = syncsessions.StatusFailed
			op.Log(e.nowFunc().UTC(), fmt.Sprintf("Unable to sync inventory for %s - %v", sku, err), nil)
		} else if err := e.syncSKU(ctx, loc, existing[sku], bySKU[sku], &op); err != nil {
			op.Result = syncsessions.StatusFailed
			op.Log(e.nowFunc().UTC(), fmt.Sprintf("Unable to sync inventory for %s - %v", sku, err), nil)
			log.Warn("sku sync failed", zap.String("sku", sku), zap.Int("index", i), zap.Error(err))
		}
		result.Operations = append(result.Operations, op)
	}
	result.Status = syncsessions.StatusCompleted
}

// isVirtualSKU matches backend buckets that never hold sellable stock.
func isVirtualSKU(sku string) bool {
	return strings.HasPrefix(sku, "Uncommingled") || strings.HasSuffix(sku, "-FBA")
}

func (e *Engine) syncSKU(ctx context.Context, loc *locations.Location, item *inventory.Item, backendItem fulfillment.InventorySummary, op *syncsessions.Operation) error {
	info, err := e.storefront.GetInventoryInfo(ctx, op.SKU, loc.StorefrontLocationID)
	if err != nil {
		return err
	}
	qty := info.QuantityAvailable
	if e.cfg.TestMode && qty == 0 {
		qty = e.cfg.TestModeQuantity
	}

	op.OldQty = item.QuantityAvailable()
	op.NewQty = qty

	productName := info.Product.Title
	if productName == "" {
		productName = backendItem.ProductName
	}
	variant := inventory.StorefrontVariant{
		ID:    info.Variant.ID,
		Title: info.Variant.Title,
		Product: inventory.StorefrontProduct{
			ID:            info.Product.ID,
			Title:         info.Product.Title,
			FeaturedImage: info.Product.FeaturedImage,
		},
	}

	if item != nil && item.ProductName == productName && item.StorefrontVariant == variant && op.OldQty == qty {
		op.Result = syncsessions.StatusSkipped
		e.logger.Debug("inventory unchanged", zap.String("location", loc.Name), zap.String("sku", op.SKU), zap.Int("qty", qty))
		return nil
	}

	now := e.nowFunc().UTC()
	res, err := e.backend.UpdateInventory(ctx, fulfillment.UpdateInventoryRequest{
		SKU:            op.SKU,
		SupplySourceID: loc.SupplySourceID,
		Quantity:       qty,
		Timestamp:      now,
	})
	if err != nil {
		return err
	}
	op.Result = syncsessions.StatusUpdated

	next := &inventory.Item{
		LocationID:        loc.ID,
		SKU:               op.SKU,
		ASIN:              backendItem.ASIN,
		ProductName:       productName,
		StorefrontVariant: variant,
		SellableQuantity:  res.SellableQuantity,
		ReservedQuantity:  res.ReservedQuantity,
		VersionMarker:     now.Format(time.RFC1123),
		ProductInfo:       info.ProductInfo,
		StoreLocation: inventory.LocationRef{
			ID:                   loc.ID,
			Name:                 loc.Name,
			SupplySourceID:       loc.SupplySourceID,
			SupplySourceCode:     loc.SupplySourceCode,
			StorefrontLocationID: loc.StorefrontLocationID,
		},
	}
	if item != nil {
		next.ID = item.ID
		next.CreatedAt = item.CreatedAt
	}
	if err := e.items.Upsert(ctx, next); err != nil {
		op.Log(now, "Backend updated but inventory record not saved", map[string]string{"error": err.Error()})
		return err
	}
	return nil
}
