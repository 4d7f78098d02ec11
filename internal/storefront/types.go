package storefront

import (
	"context"
	"errors"
)

// ErrVariantNotFound is returned when no variant carries the requested SKU.
var ErrVariantNotFound = errors.New("storefront variant not found")

// API is the storefront as the rest of the system consumes it.
type API interface {
	GetInventoryInfo(ctx context.Context, sku, locationID string) (*InventoryInfo, error)
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreatedOrder, error)
}

type Variant struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type Product struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	FeaturedImage string `json:"featuredImage"`
}

type ProductInfo struct {
	NetWeight        string  `json:"netWeight" dynamodbav:"net_weight,omitempty"`
	ShippingWeightOz float64 `json:"shippingWeightOz" dynamodbav:"shipping_weight_oz"`
	ShippingWeightG  float64 `json:"shippingWeightG" dynamodbav:"shipping_weight_g"`
	LengthCm         float64 `json:"lengthCm" dynamodbav:"length_cm"`
	WidthCm          float64 `json:"widthCm" dynamodbav:"width_cm"`
	HeightCm         float64 `json:"heightCm" dynamodbav:"height_cm"`
}

// InventoryInfo is the live storefront view of one SKU at one location.
type InventoryInfo struct {
	SKU               string      `json:"sku"`
	LocationID        string      `json:"locationId"`
	Variant           Variant     `json:"variant"`
	Product           Product     `json:"product"`
	QuantityAvailable int         `json:"quantityAvailable"`
	ProductInfo       ProductInfo `json:"productInfo"`
}

type CreateOrderLineItem struct {
	VariantID string  `json:"variant_id"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
	Taxable   bool    `json:"taxable"`
}

type CreateOrderRequest struct {
	LocationID    string
	LineItems     []CreateOrderLineItem
	TotalTax      float64
	TotalDiscount float64
	TotalPrice    float64
}

type CreatedOrder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
