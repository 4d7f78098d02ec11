package validation

import (
	"github.com/imrishuroy/omnichannel-fulfillment/internal/orders"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/returns"
)

// CreateOrderRequest is the payload for POST /orders.
type CreateOrderRequest struct {
	ShipmentID string `json:"shipmentId" validate:"required"`
}

// CreatePackagesRequest is the payload for POST /orders/:id/packages.
type CreatePackagesRequest struct {
	Packages []orders.PackageInput `json:"packages" validate:"required,min=1,dive"`
}

// ShipCompleteRequest is the payload for POST /orders/:id/ship-complete.
// An empty list ships every package.
type ShipCompleteRequest struct {
	PackageIDs []string `json:"packageIds" validate:"omitempty,dive,required"`
}

// CreateReturnRequest is the payload for POST /order-returns.
type CreateReturnRequest struct {
	ReturnID       string                 `json:"returnId" validate:"required"`
	ItemConditions returns.ItemConditions `json:"itemConditions"`
}

// StoreLocationRequest is the payload for PUT /store-locations/:id.
type StoreLocationRequest struct {
	Name                 string `json:"name" validate:"required"`
	SupplySourceID       string `json:"supplySourceId"`
	SupplySourceCode     string `json:"supplySourceCode"`
	StorefrontDomain     string `json:"storefrontDomain" validate:"omitempty,fqdn"`
	StorefrontLocationID string `json:"storefrontLocationId"`
	StoreAdminEmail      string `json:"storeAdminEmail" validate:"omitempty,email_list"`
	Active               *bool  `json:"active" validate:"required"`
}
