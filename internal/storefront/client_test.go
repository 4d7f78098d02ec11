package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/config"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/logging"
)

const variantsResponse = `{"data":{"productVariants":{"edges":[
 {"node":{"id":"gid://shopify/ProductVariant/11","sku":"SKU1-X","title":"Other"}},
 {"node":{"id":"gid://shopify/ProductVariant/12","sku":"SKU1","title":"Large",
   "product":{"id":"gid://shopify/Product/99","title":"Tea","featuredImage":{"src":"https://img/tea.png"}},
   "inventoryItem":{"inventoryLevel":{"available":14}},
   "metafields":{"edges":[{"node":{"key":"shipping_weight_g","value":"250.5"}},{"node":{"key":"color","value":"red"}},{"node":{"key":"net_weight","value":"8oz"}}]}}}
]}}}`

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(config.StorefrontConfig{
		ShopDomain: srv.URL, AccessToken: "shpat", APIVersion: "2024-01", Timeout: 5 * time.Second,
	}, nil, logging.Nop())
}

func TestGetInventoryInfo_PicksExactSku(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/api/2024-01/graphql.json", r.URL.Path)
		assert.Equal(t, "shpat", r.Header.Get("X-Shopify-Access-Token"))
		var body struct {
			Variables map[string]string `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "sku:SKU1", body.Variables["query"])
		assert.Equal(t, "gid://shopify/Location/777", body.Variables["locationId"])
		_, _ = w.Write([]byte(variantsResponse))
	})

	info, err := c.GetInventoryInfo(context.Background(), "SKU1", "777")
	require.NoError(t, err)
	assert.Equal(t, "12", info.Variant.ID)
	assert.Equal(t, "Large", info.Variant.Title)
	assert.Equal(t, "99", info.Product.ID)
	assert.Equal(t, "https://img/tea.png", info.Product.FeaturedImage)
	assert.Equal(t, 14, info.QuantityAvailable)
	assert.Equal(t, 250.5, info.ProductInfo.ShippingWeightG)
	assert.Equal(t, "8oz", info.ProductInfo.NetWeight)
}

func TestGetInventoryInfo_UnknownSku(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(variantsResponse))
	})

	_, err := c.GetInventoryInfo(context.Background(), "NOPE", "777")
	assert.True(t, errors.Is(err, ErrVariantNotFound))
}

func TestGetInventoryInfo_GraphQLError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors":[{"message":"Throttled"}]}`))
	})

	_, err := c.GetInventoryInfo(context.Background(), "SKU1", "777")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Throttled")
}

func TestCreateOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/api/2024-01/orders.json", r.URL.Path)
		var body map[string]map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "fulfilled", body["order"]["fulfillment_status"])
		_, _ = w.Write([]byte(`{"order":{"id":4501,"name":"#1001"}}`))
	})

	out, err := c.CreateOrder(context.Background(), CreateOrderRequest{
		LocationID: "777",
		LineItems:  []CreateOrderLineItem{{VariantID: "12", Quantity: 1, Price: 9.5}},
		TotalPrice: 9.5,
	})
	require.NoError(t, err)
	assert.Equal(t, "4501", out.ID)
}
