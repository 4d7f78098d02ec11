package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/config"
)

const (
	variantGIDPrefix  = "gid://shopify/ProductVariant/"
	productGIDPrefix  = "gid://shopify/Product/"
	locationGIDPrefix = "gid://shopify/Location/"
	orderTag          = "omnichannel"
)

var productInfoKeys = map[string]bool{
	"net_weight":         true,
	"shipping_weight_oz": true,
	"shipping_weight_g":  true,
	"length_cm":          true,
	"width_cm":           true,
	"height_cm":          true,
}

const inventoryQuery = `
query ProductAndInventory($query: String, $locationId: ID!) {
  productVariants(first: 20, query: $query) {
    edges {
      node {
        id
        sku
        title
        product { id title featuredImage { src } }
        inventoryItem { id inventoryLevel(locationId: $locationId) { id available } }
        metafields(first: 30, namespace: "purity-toolbox") { edges { node { key value } } }
      }
    }
  }
}`

// Client calls the Shopify Admin API.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	logger      *zap.Logger
}

var _ API = (*Client)(nil)

func NewClient(cfg config.StorefrontConfig, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	base := cfg.ShopDomain
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	return &Client{
		baseURL:     strings.TrimRight(base, "/") + "/admin/api/" + cfg.APIVersion,
		accessToken: cfg.AccessToken,
		httpClient:  httpClient,
		logger:      logger.Named("storefront"),
	}
}

type variantNode struct {
	ID      string `json:"id"`
	SKU     string `json:"sku"`
	Title   string `json:"title"`
	Product struct {
		ID            string `json:"id"`
		Title         string `json:"title"`
		FeaturedImage *struct {
			Src string `json:"src"`
		} `json:"featuredImage"`
	} `json:"product"`
	InventoryItem struct {
		InventoryLevel *struct {
			Available int `json:"available"`
		} `json:"inventoryLevel"`
	} `json:"inventoryItem"`
	Metafields struct {
		Edges []struct {
			Node struct {
				Key   string `json:"key"`
				Value string `json:"value"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"metafields"`
}

// GetInventoryInfo looks up the variant with exactly this SKU and its level at locationID.
func (c *Client) GetInventoryInfo(ctx context.Context, sku, locationID string) (*InventoryInfo, error) {
	vars := map[string]interface{}{
		"query":      "sku:" + sku,
		"locationId": locationGIDPrefix + locationID,
	}
	var data struct {
		ProductVariants struct {
			Edges []struct {
				Node variantNode `json:"node"`
			} `json:"edges"`
		} `json:"productVariants"`
	}
	if err := c.graphql(ctx, inventoryQuery, vars, &data); err != nil {
		return nil, fmt.Errorf("get inventory info %s: %w", sku, err)
	}

	var node *variantNode
	for i := range data.ProductVariants.Edges {
		if data.ProductVariants.Edges[i].Node.SKU == sku {
			node = &data.ProductVariants.Edges[i].Node
			break
		}
	}
	if node == nil {
		return nil, fmt.Errorf("sku %s: %w", sku, ErrVariantNotFound)
	}

	info := &InventoryInfo{
		SKU:        sku,
		LocationID: locationID,
		Variant: Variant{
			ID:    strings.TrimPrefix(node.ID, variantGIDPrefix),
			Title: node.Title,
		},
		Product: Product{
			ID:    strings.TrimPrefix(node.Product.ID, productGIDPrefix),
			Title: node.Product.Title,
		},
	}
	if node.Product.FeaturedImage != nil {
		info.Product.FeaturedImage = node.Product.FeaturedImage.Src
	}
	if lvl := node.InventoryItem.InventoryLevel; lvl != nil {
		info.QuantityAvailable = lvl.Available
	}
	for _, e := range node.Metafields.Edges {
		if !productInfoKeys[e.Node.Key] {
			continue
		}
		v := e.Node.Value
		switch e.Node.Key {
		case "net_weight":
			info.ProductInfo.NetWeight = v
		case "shipping_weight_oz":
			info.ProductInfo.ShippingWeightOz = parseFloat(v)
		case "shipping_weight_g":
			info.ProductInfo.ShippingWeightG = parseFloat(v)
		case "length_cm":
			info.ProductInfo.LengthCm = parseFloat(v)
		case "width_cm":
			info.ProductInfo.WidthCm = parseFloat(v)
		case "height_cm":
			info.ProductInfo.HeightCm = parseFloat(v)
		}
	}
	return info, nil
}

// CreateOrder records a fulfilled marketplace sale in the storefront.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreatedOrder, error) {
	lines := make([]CreateOrderLineItem, len(req.LineItems))
	for i, l := range req.LineItems {
		l.Taxable = true
		lines[i] = l
	}
	order := map[string]interface{}{
		"line_items":         lines,
		"total_discounts":    req.TotalDiscount,
		"total_tax":          req.TotalTax,
		"fulfillment_status": "fulfilled",
		"tags":               []string{orderTag},
		"location_id":        req.LocationID,
		"transactions": []map[string]interface{}{{
			"gateway": "manual",
			"amount":  req.TotalPrice,
			"kind":    "sale",
			"status":  "success",
		}},
	}
	if req.TotalTax > 0 {
		order["tax_lines"] = []map[string]interface{}{{"title": "sales tax", "price": req.TotalTax}}
	}

	var resp struct {
		Order struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"order"`
	}
	if err := c.post(ctx, "/orders.json", map[string]interface{}{"order": order}, &resp); err != nil {
		return nil, fmt.Errorf("create storefront order: %w", err)
	}
	return &CreatedOrder{ID: strconv.FormatInt(resp.Order.ID, 10), Name: resp.Order.Name}, nil
}

func (c *Client) graphql(ctx context.Context, query string, vars map[string]interface{}, out interface{}) error {
	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := c.post(ctx, "/graphql.json", map[string]interface{}{"query": query, "variables": vars}, &envelope); err != nil {
		return err
	}
	if len(envelope.Errors) > 0 {
		return fmt.Errorf("graphql: %s", envelope.Errors[0].Message)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decode graphql data: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("storefront api error", zap.String("path", path), zap.Int("status", resp.StatusCode))
		return fmt.Errorf("POST %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
