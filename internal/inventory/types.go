package inventory

import (
	"time"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/storefront"
)

const entityName = "INVENTORY_ITEM"

type StorefrontProduct struct {
	ID            string `dynamodbav:"id" json:"id"`
	Title         string `dynamodbav:"title" json:"title"`
	FeaturedImage string `dynamodbav:"featured_image,omitempty" json:"featuredImage,omitempty"`
}

type StorefrontVariant struct {
	ID      string            `dynamodbav:"id" json:"id"`
	Title   string            `dynamodbav:"title" json:"title"`
	Product StorefrontProduct `dynamodbav:"product" json:"product"`
}

// LocationRef is the denormalized copy of the store location an item belongs to.
type LocationRef struct {
	ID                   string `dynamodbav:"id" json:"id"`
	Name                 string `dynamodbav:"name" json:"name"`
	SupplySourceID       string `dynamodbav:"supply_source_id" json:"supplySourceId"`
	SupplySourceCode     string `dynamodbav:"supply_source_code,omitempty" json:"supplySourceCode,omitempty"`
	StorefrontLocationID string `dynamodbav:"storefront_location_id" json:"storefrontLocationId"`
}

// Item is one (location, sku) stock record in the inventory items table.
type Item struct {
	ID                string                 `dynamodbav:"id" json:"id"` // PK
	LocationID        string                 `dynamodbav:"location_id" json:"locationId"`
	SKU               string                 `dynamodbav:"sku" json:"sku"`
	LocationSKU       string                 `dynamodbav:"location_sku" json:"-"`
	ASIN              string                 `dynamodbav:"asin,omitempty" json:"asin,omitempty"`
	ProductName       string                 `dynamodbav:"product_name,omitempty" json:"productName,omitempty"`
	StorefrontVariant StorefrontVariant      `dynamodbav:"storefront_variant" json:"storefrontVariant"`
	SellableQuantity  int                    `dynamodbav:"sellable_quantity" json:"sellableQuantity"`
	ReservedQuantity  int                    `dynamodbav:"reserved_quantity" json:"reservedQuantity"`
	BufferedQuantity  int                    `dynamodbav:"buffered_quantity" json:"bufferedQuantity"`
	ETag              string                 `dynamodbav:"etag,omitempty" json:"etag,omitempty"`
	VersionMarker     string                 `dynamodbav:"version_marker,omitempty" json:"versionMarker,omitempty"`
	ProductInfo       storefront.ProductInfo `dynamodbav:"product_info" json:"productInfo"`
	StoreLocation     LocationRef            `dynamodbav:"store_location" json:"storeLocation"`
	Entity            string                 `dynamodbav:"entity" json:"-"`
	SortKey           string                 `dynamodbav:"sort_key" json:"-"`
	CreatedAt         time.Time              `dynamodbav:"created_at" json:"createdAt"`
	UpdatedAt         time.Time              `dynamodbav:"updated_at" json:"updatedAt"`
}

// QuantityAvailable is the quantity the fulfillment backend knows about.
func (i *Item) QuantityAvailable() int {
	if i == nil {
		return 0
	}
	return i.SellableQuantity + i.ReservedQuantity
}

func locationSKU(locationID, sku string) string {
	return locationID + "#" + sku
}
