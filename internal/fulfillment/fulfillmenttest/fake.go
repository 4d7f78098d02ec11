// Package fulfillmenttest provides an in-memory fulfillment.API for package tests.
package fulfillmenttest

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/fulfillment"
)

// Call is one recorded invocation.
type Call struct {
	Method     string
	ShipmentID string
	PackageID  string
}

// Fake serves shipments from memory. Errors can be injected per method, either once or until cleared.
type Fake struct {
	mu sync.Mutex

	Shipments       map[string]*fulfillment.Shipment
	Labels          map[string]*fulfillment.ShippingLabel
	Invoices        map[string]*fulfillment.Invoice
	Returns         map[string]*fulfillment.Return
	InventoryItems  []fulfillment.InventorySummary
	ListShipmentsFn func(fulfillment.ListShipmentsParams) (*fulfillment.ShipmentPage, error)
	UpdateFn        func(fulfillment.UpdateInventoryRequest) (*fulfillment.UpdateInventoryResult, error)

	CreatedPackages  map[string][]fulfillment.Package
	Rejected         map[string][]fulfillment.RejectLineItem
	ProcessedReturns map[string]fulfillment.ItemConditions
	Updates          []fulfillment.UpdateInventoryRequest

	errs     map[string]error
	errsOnce map[string]error
	calls    []Call
}

var _ fulfillment.API = (*Fake)(nil)

func New() *Fake {
	return &Fake{
		Shipments:        map[string]*fulfillment.Shipment{},
		Labels:           map[string]*fulfillment.ShippingLabel{},
		Invoices:         map[string]*fulfillment.Invoice{},
		Returns:          map[string]*fulfillment.Return{},
		CreatedPackages:  map[string][]fulfillment.Package{},
		Rejected:         map[string][]fulfillment.RejectLineItem{},
		ProcessedReturns: map[string]fulfillment.ItemConditions{},
		errs:             map[string]error{},
		errsOnce:         map[string]error{},
	}
}

// Fail makes method return err until Fail(method, nil).
func (f *Fake) Fail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, method)
		return
	}
	f.errs[method] = err
}

// FailOnce makes the next call of method return err.
func (f *Fake) FailOnce(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errsOnce[method] = err
}

// Status builds an *fulfillment.APIError with the given status.
func Status(code int) error {
	return &fulfillment.APIError{StatusCode: code, Code: http.StatusText(code), Message: "injected"}
}

// Calls returns the recorded calls of method, or all calls when method is empty.
func (f *Fake) Calls(method string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Call
	for _, c := range f.calls {
		if method == "" || c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (f *Fake) enter(method, shipmentID, packageID string) error {
	f.calls = append(f.calls, Call{Method: method, ShipmentID: shipmentID, PackageID: packageID})
	if err, ok := f.errsOnce[method]; ok {
		delete(f.errsOnce, method)
		return err
	}
	return f.errs[method]
}

func (f *Fake) GetShipment(ctx context.Context, shipmentID string) (*fulfillment.Shipment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetShipment", shipmentID, ""); err != nil {
		return nil, err
	}
	s, ok := f.Shipments[shipmentID]
	if !ok {
		return nil, Status(http.StatusNotFound)
	}
	cp := *s
	return &cp, nil
}

func (f *Fake) ListShipments(ctx context.Context, p fulfillment.ListShipmentsParams) (*fulfillment.ShipmentPage, error) {
	f.mu.Lock()
	if err := f.enter("ListShipments", "", ""); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	fn := f.ListShipmentsFn
	f.mu.Unlock()
	if fn != nil {
		return fn(p)
	}
	return &fulfillment.ShipmentPage{}, nil
}

func (f *Fake) ConfirmShipment(ctx context.Context, shipmentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enter("ConfirmShipment", shipmentID, "")
}

func (f *Fake) RejectShipment(ctx context.Context, shipmentID string, lineItems []fulfillment.RejectLineItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("RejectShipment", shipmentID, ""); err != nil {
		return err
	}
	f.Rejected[shipmentID] = lineItems
	return nil
}

func (f *Fake) GetFbaInventoryItems(ctx context.Context) ([]fulfillment.InventorySummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetFbaInventoryItems", "", ""); err != nil {
		return nil, err
	}
	return append([]fulfillment.InventorySummary(nil), f.InventoryItems...), nil
}

func (f *Fake) UpdateInventory(ctx context.Context, req fulfillment.UpdateInventoryRequest) (*fulfillment.UpdateInventoryResult, error) {
	f.mu.Lock()
	if err := f.enter("UpdateInventory", "", req.SKU); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	f.Updates = append(f.Updates, req)
	fn := f.UpdateFn
	f.mu.Unlock()
	if fn != nil {
		return fn(req)
	}
	return &fulfillment.UpdateInventoryResult{SellableQuantity: req.Quantity}, nil
}

func (f *Fake) CreatePackages(ctx context.Context, shipmentID string, packages []fulfillment.Package) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CreatePackages", shipmentID, ""); err != nil {
		return err
	}
	f.CreatedPackages[shipmentID] = append(f.CreatedPackages[shipmentID], packages...)
	return nil
}

func (f *Fake) RetrieveShippingOptions(ctx context.Context, shipmentID, packageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enter("RetrieveShippingOptions", shipmentID, packageID)
}

func (f *Fake) GenerateInvoice(ctx context.Context, shipmentID, packageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enter("GenerateInvoice", shipmentID, packageID)
}

func (f *Fake) GenerateShippingLabel(ctx context.Context, shipmentID, packageID string) (*fulfillment.ShippingLabel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GenerateShippingLabel", shipmentID, packageID); err != nil {
		return nil, err
	}
	if l, ok := f.Labels[packageID]; ok {
		return l, nil
	}
	return &fulfillment.ShippingLabel{
		Document: fulfillment.Document{Format: "PNG", Content: "label-" + packageID},
		Metadata: fulfillment.ShippingLabelMetadata{CarrierName: "UPS", TrackingID: "1Z" + packageID},
	}, nil
}

func (f *Fake) GetShippingLabel(ctx context.Context, shipmentID, packageID string) (*fulfillment.ShippingLabel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetShippingLabel", shipmentID, packageID); err != nil {
		return nil, err
	}
	l, ok := f.Labels[packageID]
	if !ok {
		return nil, Status(http.StatusNotFound)
	}
	return l, nil
}

func (f *Fake) GetInvoice(ctx context.Context, shipmentID, packageID string) (*fulfillment.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetInvoice", shipmentID, packageID); err != nil {
		return nil, err
	}
	inv, ok := f.Invoices[packageID]
	if !ok {
		return nil, Status(http.StatusNotFound)
	}
	return inv, nil
}

func (f *Fake) ShipComplete(ctx context.Context, shipmentID, packageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enter("ShipComplete", shipmentID, packageID)
}

func (f *Fake) ListReturns(ctx context.Context, rmaID string) ([]fulfillment.Return, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListReturns", "", ""); err != nil {
		return nil, err
	}
	var out []fulfillment.Return
	for _, r := range f.Returns {
		if r.ReturnMetadata.RmaID == rmaID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *Fake) GetReturn(ctx context.Context, returnID string) (*fulfillment.Return, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetReturn", "", ""); err != nil {
		return nil, err
	}
	r, ok := f.Returns[returnID]
	if !ok {
		return nil, Status(http.StatusNotFound)
	}
	cp := *r
	return &cp, nil
}

func (f *Fake) ProcessReturn(ctx context.Context, returnID string, cond fulfillment.ItemConditions, idempotencyToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ProcessReturn", "", ""); err != nil {
		return err
	}
	if idempotencyToken == "" {
		return fmt.Errorf("missing idempotency token")
	}
	r, ok := f.Returns[returnID]
	if !ok {
		return Status(http.StatusNotFound)
	}
	f.ProcessedReturns[returnID] = cond
	r.Status = "PROCESSED"
	return nil
}
