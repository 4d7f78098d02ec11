package apperrors

import "fmt"

// Operation names a step of the package pipeline.
type Operation string

const (
	OpCreatePackages          Operation = "CREATE_PACKAGES"
	OpRetrieveShippingOptions Operation = "RETRIEVE_SHIPPING_OPTIONS"
	OpGenerateInvoice         Operation = "GENERATE_INVOICE"
	OpGenerateShippingLabel   Operation = "GENERATE_SHIPPING_LABEL"
	OpShipComplete            Operation = "SHIP_COMPLETE"
)

// Code is the error code reported for a failed operation, e.g. GENERATE_INVOICE_ERROR.
func (o Operation) Code() string {
	return string(o) + "_ERROR"
}

// OperationError reports which external step failed and for which shipment/package.
type OperationError struct {
	Op         Operation
	ShipmentID string
	PackageID  string
	Err        error
}

func (e *OperationError) Error() string {
	if e.PackageID != "" {
		return fmt.Sprintf("%s: shipment %s package %s: %v", e.Op.Code(), e.ShipmentID, e.PackageID, e.Err)
	}
	return fmt.Sprintf("%s: shipment %s: %v", e.Op.Code(), e.ShipmentID, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// Details is the payload rendered to API callers.
func (e *OperationError) Details() map[string]interface{} {
	d := map[string]interface{}{"shipmentId": e.ShipmentID}
	if e.PackageID != "" {
		d["packageId"] = e.PackageID
	}
	return d
}
