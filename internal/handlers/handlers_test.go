package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/apperrors"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/awstest"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/fulfillment"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/fulfillment/fulfillmenttest"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/idempotency"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/inventory"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/inventorysync"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/locations"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/logging"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/orders"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/pagination"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/returns"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/syncsessions"
)

// fakeOrders answers every operation with the same order, or err when set.
type fakeOrders struct {
	order    orders.Order
	err      error
	calls    map[string]int
	packages []orders.PackageInput
	shipped  []string
	listed   orders.ListParams
	panics   bool
}

func (f *fakeOrders) hit(op string) (*orders.Order, error) {
	f.calls[op]++
	if f.panics {
		panic("nil map write in " + op)
	}
	if f.err != nil {
		return nil, f.err
	}
	o := f.order
	return &o, nil
}

func (f *fakeOrders) Get(_ context.Context, id string) (*orders.Order, error) {
	if id != f.order.ID {
		return nil, apperrors.NotFound("order", id)
	}
	return f.hit("Get")
}
func (f *fakeOrders) GetByShipmentID(context.Context, string) (*orders.Order, error) {
	return f.hit("GetByShipmentID")
}
func (f *fakeOrders) List(_ context.Context, p orders.ListParams) (*pagination.Page[orders.Order], error) {
	f.listed = p
	if f.err != nil {
		return nil, f.err
	}
	return &pagination.Page[orders.Order]{Items: []orders.Order{f.order}}, nil
}
func (f *fakeOrders) CreateOrder(context.Context, string) (*orders.Order, error) {
	return f.hit("CreateOrder")
}
func (f *fakeOrders) ConfirmOrder(context.Context, string) (*orders.Order, error) {
	return f.hit("ConfirmOrder")
}
func (f *fakeOrders) RejectOrder(context.Context, string) (*orders.Order, error) {
	return f.hit("RejectOrder")
}
func (f *fakeOrders) RefreshOrder(context.Context, string) (*orders.Order, error) {
	return f.hit("RefreshOrder")
}
func (f *fakeOrders) ArchiveOrder(context.Context, string) (*orders.Order, error) {
	return f.hit("ArchiveOrder")
}
func (f *fakeOrders) DeleteOrder(context.Context, string) error {
	_, err := f.hit("DeleteOrder")
	return err
}
func (f *fakeOrders) UpdateStorefrontOrder(context.Context, string, orders.StorefrontOrderRef) (*orders.Order, error) {
	return f.hit("UpdateStorefrontOrder")
}
func (f *fakeOrders) CreatePackages(_ context.Context, _ string, in []orders.PackageInput) (*orders.Order, error) {
	f.packages = in
	return f.hit("CreatePackages")
}
func (f *fakeOrders) GenerateShippingLabel(context.Context, string) (*orders.Order, error) {
	return f.hit("GenerateShippingLabel")
}
func (f *fakeOrders) ShipComplete(_ context.Context, _ string, ids []string) (*orders.Order, error) {
	f.shipped = ids
	return f.hit("ShipComplete")
}

type fakeSync struct {
	session *syncsessions.Session
	err     error
	trigger inventorysync.Trigger
}

func (f *fakeSync) Run(_ context.Context, t inventorysync.Trigger) (*syncsessions.Session, error) {
	f.trigger = t
	return f.session, f.err
}

func remoteReturn(id, rma string) *fulfillment.Return {
	r := &fulfillment.Return{ID: id, MerchantSku: "SKU-1", NumberOfUnits: 1, Status: "CREATED"}
	r.ReturnMetadata.RmaID = rma
	return r
}

type harness struct {
	router    *gin.Engine
	orders    *fakeOrders
	sync      *fakeSync
	api       *fulfillmenttest.Fake
	inventory *inventory.Store
	locations *locations.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := awstest.NewFakeDynamo()
	db.CreateTable("idempotency", "idempotency_key")
	db.CreateTable("locations", "id")
	db.CreateTable("inventory", "id",
		awstest.Index{Name: inventory.LocationSKUIndex, PartitionKey: "location_sku"},
		awstest.Index{Name: inventory.EntityCreatedIndex, PartitionKey: "entity", SortKey: "sort_key"},
	)
	db.CreateTable("sessions", "id",
		awstest.Index{Name: syncsessions.EntityCreatedIndex, PartitionKey: "entity", SortKey: "sort_key"},
	)
	db.CreateTable("returns", "id",
		awstest.Index{Name: returns.EntityCreatedIndex, PartitionKey: "entity", SortKey: "sort_key"},
	)

	h := &harness{
		orders:    &fakeOrders{order: orders.Order{ID: "o-1", ShipmentID: "s-1", Status: orders.StatusAccepted}, calls: map[string]int{}},
		sync:      &fakeSync{},
		api:       fulfillmenttest.New(),
		inventory: inventory.NewStore(db, "inventory"),
		locations: locations.NewStore(db, "locations"),
	}
	h.router = NewRouter(Deps{
		Orders:      h.orders,
		Returns:     returns.NewService(returns.NewStore(db, "returns"), h.api, logging.Nop()),
		Inventory:   h.inventory,
		Sessions:    syncsessions.NewStore(db, "sessions"),
		Sync:        h.sync,
		Locations:   h.locations,
		Idempotency: idempotency.NewStore(db, "idempotency", 0),
		Metrics:     NewHTTPMetrics("test"),
		Logger:      logging.Nop(),
	})
	return h
}

func (h *harness) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error errorBody `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body.Error.Code
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)

	h.do(http.MethodGet, "/orders/o-1", "")
	w = h.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `test_http_requests_total{method="GET",path="/orders/:id",status="200"} 1`)
}

func TestOrders_ReadRoutes(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodGet, "/orders?status=ACCEPTED&locationId=loc-1&archived=true&limit=500&sort=asc", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"data":[`)
	assert.Contains(t, w.Body.String(), `"hasMoreItems":false`)
	assert.Equal(t, "ACCEPTED", h.orders.listed.Status)
	assert.Equal(t, "loc-1", h.orders.listed.LocationID)
	assert.True(t, h.orders.listed.Archived)
	assert.Equal(t, pagination.MaxLimit, h.orders.listed.Limit)
	assert.Equal(t, pagination.SortAsc, h.orders.listed.Sort)

	w = h.do(http.MethodGet, "/orders/shipment/s-1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, h.orders.calls["GetByShipmentID"])

	w = h.do(http.MethodGet, "/orders/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.CodeNotFound, errorCode(t, w))
}

func TestOrders_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid transition", apperrors.InvalidTransition(orders.StatusShipped, orders.StatusConfirmed), http.StatusConflict, apperrors.CodeInvalidTransition},
		{"upstream unavailable", apperrors.Upstream(errors.New("boom"), true), http.StatusServiceUnavailable, apperrors.CodeUpstreamUnavailable},
		{"operation failure", &apperrors.OperationError{Op: apperrors.OpGenerateInvoice, ShipmentID: "s-1", Err: errors.New("boom")}, http.StatusBadGateway, "GENERATE_INVOICE_ERROR"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, apperrors.CodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.orders.err = tc.err
			w := h.do(http.MethodPost, "/orders/o-1/confirm", "")
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.code, errorCode(t, w))
		})
	}

	h := newHarness(t)
	h.orders.err = &apperrors.OperationError{Op: apperrors.OpShipComplete, ShipmentID: "s-1", PackageID: "PACKAGE_2", Err: errors.New("boom")}
	w := h.do(http.MethodPost, "/orders/o-1/ship-complete", "")
	assert.Contains(t, w.Body.String(), `"packageId":"PACKAGE_2"`)
}

func TestOrders_Mutations(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, "/orders", `{"shipmentId":"s-1"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "/orders/o-1", w.Header().Get("Location"))

	w = h.do(http.MethodPost, "/orders", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.CodeValidation, errorCode(t, w))

	w = h.do(http.MethodPost, "/orders/o-1/packages",
		`{"packages":[{"length":10,"width":5,"height":2,"dimensionUnit":"CM","weight":1,"weightUnit":"KG"}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, h.orders.packages, 1)
	assert.Equal(t, "CM", h.orders.packages[0].DimensionUnit)

	w = h.do(http.MethodPost, "/orders/o-1/packages", `{"packages":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPost, "/orders/o-1/ship-complete", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, h.orders.shipped)

	w = h.do(http.MethodPost, "/orders/o-1/ship-complete", `{"packageIds":["PACKAGE_1"]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"PACKAGE_1"}, h.orders.shipped)

	w = h.do(http.MethodPut, "/orders/o-1/storefront-order", `{"orderId":"gid://1","orderNumber":"1001","shopDomain":"shop.example.com"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = h.do(http.MethodPut, "/orders/o-1/storefront-order", `{"orderId":"gid://1","orderNumber":"#1001","shopDomain":"shop.example.com"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	for _, action := range []string{"reject", "refresh", "archive", "shipping-label"} {
		w = h.do(http.MethodPost, "/orders/o-1/"+action, "")
		assert.Equal(t, http.StatusOK, w.Code, action)
	}
	assert.Equal(t, 1, h.orders.calls["GenerateShippingLabel"])

	w = h.do(http.MethodDelete, "/orders/o-1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestIdempotencyKey(t *testing.T) {
	t.Run("replays a completed request", func(t *testing.T) {
		h := newHarness(t)
		first := h.do(http.MethodPost, "/orders/o-1/confirm", "", HeaderIdempotencyKey, "k-1")
		require.Equal(t, http.StatusOK, first.Code)

		second := h.do(http.MethodPost, "/orders/o-1/confirm", "", HeaderIdempotencyKey, "k-1")
		assert.Equal(t, http.StatusOK, second.Code)
		assert.Equal(t, first.Body.String(), second.Body.String())
		assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
		assert.Equal(t, 1, h.orders.calls["ConfirmOrder"])
	})

	t.Run("client errors are replayed too", func(t *testing.T) {
		h := newHarness(t)
		h.orders.err = apperrors.InvalidTransition(orders.StatusShipped, orders.StatusConfirmed)
		h.do(http.MethodPost, "/orders/o-1/confirm", "", HeaderIdempotencyKey, "k-1")
		h.orders.err = nil

		w := h.do(http.MethodPost, "/orders/o-1/confirm", "", HeaderIdempotencyKey, "k-1")
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, 1, h.orders.calls["ConfirmOrder"])
	})

	t.Run("server errors may be retried", func(t *testing.T) {
		h := newHarness(t)
		h.orders.err = apperrors.Upstream(errors.New("boom"), true)
		w := h.do(http.MethodPost, "/orders/o-1/confirm", "", HeaderIdempotencyKey, "k-1")
		require.Equal(t, http.StatusServiceUnavailable, w.Code)

		h.orders.err = nil
		w = h.do(http.MethodPost, "/orders/o-1/confirm", "", HeaderIdempotencyKey, "k-1")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 2, h.orders.calls["ConfirmOrder"])
	})

	t.Run("a panicking handler releases the key", func(t *testing.T) {
		h := newHarness(t)
		h.orders.panics = true
		w := h.do(http.MethodPost, "/orders/o-1/confirm", "", HeaderIdempotencyKey, "k-1")
		require.Equal(t, http.StatusInternalServerError, w.Code)

		h.orders.panics = false
		w = h.do(http.MethodPost, "/orders/o-1/confirm", "", HeaderIdempotencyKey, "k-1")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Idempotent-Replayed"))
		assert.Equal(t, 2, h.orders.calls["ConfirmOrder"])
	})

	t.Run("in progress", func(t *testing.T) {
		h := newHarness(t)
		db := awstest.NewFakeDynamo()
		db.CreateTable("idempotency", "idempotency_key")
		store := idempotency.NewStore(db, "idempotency", 0)
		h.router = NewRouter(Deps{Orders: h.orders, Idempotency: store, Metrics: NewHTTPMetrics("test"), Logger: logging.Nop()})

		hash := requestHash(http.MethodPost, "/orders/o-1/confirm", nil)
		_, err := store.CreateIfNotExists(context.Background(), "request#k-1", hash)
		require.NoError(t, err)

		w := h.do(http.MethodPost, "/orders/o-1/confirm", "", HeaderIdempotencyKey, "k-1")
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, codeRequestInProgress, errorCode(t, w))
		assert.Zero(t, h.orders.calls["ConfirmOrder"])
	})

	t.Run("key reused for another request", func(t *testing.T) {
		h := newHarness(t)
		h.do(http.MethodPost, "/orders/o-1/confirm", "", HeaderIdempotencyKey, "k-1")
		w := h.do(http.MethodPost, "/orders/o-1/reject", "", HeaderIdempotencyKey, "k-1")
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, codeKeyReused, errorCode(t, w))
		assert.Zero(t, h.orders.calls["RejectOrder"])
	})

	t.Run("delete replays without a body", func(t *testing.T) {
		h := newHarness(t)
		assert.Equal(t, http.StatusNoContent, h.do(http.MethodDelete, "/orders/o-1", "", HeaderIdempotencyKey, "k-2").Code)
		assert.Equal(t, http.StatusNoContent, h.do(http.MethodDelete, "/orders/o-1", "", HeaderIdempotencyKey, "k-2").Code)
		assert.Equal(t, 1, h.orders.calls["DeleteOrder"])
	})
}

func TestInventoryAndSyncRoutes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.inventory.Upsert(ctx, &inventory.Item{ID: "i-1", LocationID: "loc-1", SKU: "SKU-1"}))
	require.NoError(t, h.inventory.Upsert(ctx, &inventory.Item{ID: "i-2", LocationID: "loc-2", SKU: "SKU-2"}))

	w := h.do(http.MethodGet, "/inventory-items?locationId=loc-2", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "SKU-2")
	assert.NotContains(t, w.Body.String(), "SKU-1")

	w = h.do(http.MethodGet, "/inventory-items?after=%25%25%25", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/inventory-items/i-1", "").Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/inventory-items/i-9", "").Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/inventory-sync-sessions/x", "").Code)

	h.sync.session = &syncsessions.Session{ID: "sess-1", Status: syncsessions.StatusCompleted}
	w = h.do(http.MethodPost, "/inventory-sync-sessions", "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, inventorysync.TriggerManual, h.sync.trigger)
	assert.Contains(t, w.Body.String(), "sess-1")

	h.sync.err = errors.New("backend down")
	w = h.do(http.MethodPost, "/inventory-sync-sessions", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestStoreLocations(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPut, "/store-locations/loc-1", `{"name":"Downtown","supplySourceId":"SS-1","storeAdminEmail":"a@example.com","active":true}`)
	require.Equal(t, http.StatusCreated, w.Code)

	first, err := h.locations.Get(context.Background(), "loc-1")
	require.NoError(t, err)
	require.NotNil(t, first)

	w = h.do(http.MethodPut, "/store-locations/loc-1", `{"name":"Downtown East","active":false}`)
	require.Equal(t, http.StatusOK, w.Code)
	updated, err := h.locations.Get(context.Background(), "loc-1")
	require.NoError(t, err)
	assert.Equal(t, "Downtown East", updated.Name)
	assert.False(t, updated.Active)
	assert.Equal(t, first.CreatedAt, updated.CreatedAt)

	w = h.do(http.MethodPut, "/store-locations/loc-2", `{"name":"Bad","storeAdminEmail":"nope","active":true}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodGet, "/store-locations", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Downtown East")
}

func TestOrderReturns(t *testing.T) {
	h := newHarness(t)
	h.api.Returns["r-1"] = remoteReturn("r-1", "RMA-1")

	w := h.do(http.MethodGet, "/order-returns/lookup?rmaId=RMA-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"returnId":"r-1"`)

	w = h.do(http.MethodGet, "/order-returns/lookup", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPost, "/order-returns", `{"returnId":"r-1","itemConditions":{}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPost, "/order-returns", `{"returnId":"r-1","itemConditions":{"sellable":1}}`, HeaderIdempotencyKey, "ret-1")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Data returns.Return `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	// a retried submission does not process the return twice
	w = h.do(http.MethodPost, "/order-returns", `{"returnId":"r-1","itemConditions":{"sellable":1}}`, HeaderIdempotencyKey, "ret-1")
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, h.api.Calls("ProcessReturn"), 1)

	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/order-returns/"+created.Data.ID, "").Code)
	w = h.do(http.MethodGet, "/order-returns?rmaId=RMA-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), created.Data.ID)
}
