package fulfillment

import "context"

// API is the fulfillment backend as the rest of the system consumes it.
// Every error carrying an HTTP status is an *APIError.
type API interface {
	GetShipment(ctx context.Context, shipmentID string) (*Shipment, error)
	ListShipments(ctx context.Context, params ListShipmentsParams) (*ShipmentPage, error)
	ConfirmShipment(ctx context.Context, shipmentID string) error
	RejectShipment(ctx context.Context, shipmentID string, lineItems []RejectLineItem) error

	GetFbaInventoryItems(ctx context.Context) ([]InventorySummary, error)
	UpdateInventory(ctx context.Context, req UpdateInventoryRequest) (*UpdateInventoryResult, error)

	CreatePackages(ctx context.Context, shipmentID string, packages []Package) error
	RetrieveShippingOptions(ctx context.Context, shipmentID, packageID string) error
	GenerateInvoice(ctx context.Context, shipmentID, packageID string) error
	GenerateShippingLabel(ctx context.Context, shipmentID, packageID string) (*ShippingLabel, error)
	GetShippingLabel(ctx context.Context, shipmentID, packageID string) (*ShippingLabel, error)
	GetInvoice(ctx context.Context, shipmentID, packageID string) (*Invoice, error)
	ShipComplete(ctx context.Context, shipmentID, packageID string) error

	ListReturns(ctx context.Context, rmaID string) ([]Return, error)
	GetReturn(ctx context.Context, returnID string) (*Return, error)
	ProcessReturn(ctx context.Context, returnID string, conditions ItemConditions, idempotencyToken string) error
}
