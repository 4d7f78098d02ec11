// Package handlers exposes the admin HTTP API over gin.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/idempotency"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/inventory"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/inventorysync"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/locations"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/orders"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/pagination"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/returns"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/syncsessions"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/validation"
)

type orderService interface {
	Get(ctx context.Context, id string) (*orders.Order, error)
	GetByShipmentID(ctx context.Context, shipmentID string) (*orders.Order, error)
	List(ctx context.Context, p orders.ListParams) (*pagination.Page[orders.Order], error)
	CreateOrder(ctx context.Context, shipmentID string) (*orders.Order, error)
	ConfirmOrder(ctx context.Context, id string) (*orders.Order, error)
	RejectOrder(ctx context.Context, id string) (*orders.Order, error)
	RefreshOrder(ctx context.Context, id string) (*orders.Order, error)
	ArchiveOrder(ctx context.Context, id string) (*orders.Order, error)
	DeleteOrder(ctx context.Context, id string) error
	UpdateStorefrontOrder(ctx context.Context, id string, ref orders.StorefrontOrderRef) (*orders.Order, error)
	CreatePackages(ctx context.Context, id string, inputs []orders.PackageInput) (*orders.Order, error)
	GenerateShippingLabel(ctx context.Context, id string) (*orders.Order, error)
	ShipComplete(ctx context.Context, id string, packageIDs []string) (*orders.Order, error)
}

type returnService interface {
	Create(ctx context.Context, returnID string, cond returns.ItemConditions) (*returns.Return, error)
	Get(ctx context.Context, id string) (*returns.Return, error)
	List(ctx context.Context, p returns.ListParams) (*pagination.Page[returns.Return], error)
	Lookup(ctx context.Context, rmaID string) ([]returns.Return, error)
}

type inventoryReader interface {
	Get(ctx context.Context, id string) (*inventory.Item, error)
	List(ctx context.Context, p inventory.ListParams) (*pagination.Page[inventory.Item], error)
}

type sessionReader interface {
	Get(ctx context.Context, id string) (*syncsessions.Session, error)
	List(ctx context.Context, p syncsessions.ListParams) (*pagination.Page[syncsessions.Session], error)
}

type syncRunner interface {
	Run(ctx context.Context, trigger inventorysync.Trigger) (*syncsessions.Session, error)
}

type locationStore interface {
	Get(ctx context.Context, id string) (*locations.Location, error)
	List(ctx context.Context) ([]locations.Location, error)
	Put(ctx context.Context, l *locations.Location) error
}

type idempotencyStore interface {
	CreateIfNotExists(ctx context.Context, key, requestHash string) (bool, error)
	Get(ctx context.Context, key string) (*idempotency.Record, error)
	MarkDone(ctx context.Context, key, responseBody string, responseStatus int) error
	MarkFailed(ctx context.Context, key, note string) error
	Reclaim(ctx context.Context, key string) (bool, error)
}

// Deps groups dependencies for the admin API.
type Deps struct {
	Orders      orderService
	Returns     returnService
	Inventory   inventoryReader
	Sessions    sessionReader
	Sync        syncRunner
	Locations   locationStore
	Idempotency idempotencyStore
	Metrics     *HTTPMetrics
	Logger      *zap.Logger
}

type handler struct {
	Deps
	validate *validatorv10.Validate
	logger   *zap.Logger
}

// NewRouter builds the gin engine with every admin route registered.
func NewRouter(d Deps) *gin.Engine {
	h := &handler{Deps: d, validate: validation.New(), logger: d.Logger.Named("api")}

	r := gin.New()
	r.Use(h.recovery(), d.Metrics.Middleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", d.Metrics.Handler())

	idem := Idempotent(d.Idempotency, h.logger)

	o := r.Group("/orders")
	o.GET("", h.listOrders)
	o.POST("", idem, h.createOrder)
	o.GET("/shipment/:shipmentId", h.getOrderByShipment)
	o.GET("/:id", h.getOrder)
	o.DELETE("/:id", idem, h.deleteOrder)
	o.POST("/:id/confirm", idem, h.orderAction(d.Orders.ConfirmOrder))
	o.POST("/:id/reject", idem, h.orderAction(d.Orders.RejectOrder))
	o.POST("/:id/refresh", idem, h.orderAction(d.Orders.RefreshOrder))
	o.POST("/:id/archive", idem, h.orderAction(d.Orders.ArchiveOrder))
	o.POST("/:id/packages", idem, h.createPackages)
	o.POST("/:id/shipping-label", idem, h.orderAction(d.Orders.GenerateShippingLabel))
	o.POST("/:id/ship-complete", idem, h.shipComplete)
	o.PUT("/:id/storefront-order", idem, h.updateStorefrontOrder)

	r.GET("/inventory-items", h.listInventory)
	r.GET("/inventory-items/:id", h.getInventoryItem)
	r.GET("/inventory-sync-sessions", h.listSyncSessions)
	r.GET("/inventory-sync-sessions/:id", h.getSyncSession)
	r.POST("/inventory-sync-sessions", h.runSync)

	r.GET("/store-locations", h.listLocations)
	r.PUT("/store-locations/:id", h.putLocation)

	rt := r.Group("/order-returns")
	rt.GET("", h.listReturns)
	rt.GET("/lookup", h.lookupReturns)
	rt.GET("/:id", h.getReturn)
	rt.POST("", idem, h.createReturn)

	return r
}

func (h *handler) recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		h.logger.Error("panic recovered",
			zap.Any("panic", recovered),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)
		writeError(c, nil)
	})
}
