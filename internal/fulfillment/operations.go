package fulfillment

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	shipmentsPath = "/externalFulfillment/shipments/2021-01-06"
	inventoryPath = "/externalFulfillment/inventory/2021-01-06"
	returnsPath   = "/externalFulfillment/returns/2021-08-19"
	fbaPath       = "/fba/inventory/v1/summaries"

	rejectReferenceID = "cancellation-reference-identifier1"
	fbaLookback       = 30 * 24 * time.Hour
)

func shipmentPath(shipmentID string) string {
	return shipmentsPath + "/shipments/" + url.PathEscape(shipmentID)
}

func packagePath(shipmentID, packageID string) string {
	return shipmentPath(shipmentID) + "/packages/" + url.PathEscape(packageID)
}

func (c *HTTPClient) GetShipment(ctx context.Context, shipmentID string) (*Shipment, error) {
	var s Shipment
	if err := c.do(ctx, apiRequest{method: http.MethodGet, path: shipmentPath(shipmentID)}, &s); err != nil {
		return nil, fmt.Errorf("get shipment %s: %w", shipmentID, err)
	}
	return &s, nil
}

func (c *HTTPClient) ListShipments(ctx context.Context, p ListShipmentsParams) (*ShipmentPage, error) {
	q := url.Values{}
	q.Set("locationId", p.LocationID)
	q.Set("status", p.Status)
	pageSize := p.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}
	q.Set("maxResults", strconv.Itoa(pageSize))
	if !p.From.IsZero() {
		q.Set("lastUpdatedAfter", p.From.UTC().Format(time.RFC3339))
	}
	if !p.To.IsZero() {
		q.Set("lastUpdatedBefore", p.To.UTC().Format(time.RFC3339))
	}
	if p.NextToken != "" {
		q.Set("nextToken", p.NextToken)
	}

	var page ShipmentPage
	if err := c.do(ctx, apiRequest{method: http.MethodGet, path: shipmentsPath + "/shipments", query: q}, &page); err != nil {
		return nil, fmt.Errorf("list shipments: %w", err)
	}
	return &page, nil
}

func (c *HTTPClient) ConfirmShipment(ctx context.Context, shipmentID string) error {
	q := url.Values{"operation": {"CONFIRM"}}
	if err := c.do(ctx, apiRequest{method: http.MethodPost, path: shipmentPath(shipmentID), query: q}, nil); err != nil {
		return fmt.Errorf("confirm shipment %s: %w", shipmentID, err)
	}
	return nil
}

func (c *HTTPClient) RejectShipment(ctx context.Context, shipmentID string, lineItems []RejectLineItem) error {
	q := url.Values{"operation": {"REJECT"}}
	body := map[string]interface{}{
		"referenceId": rejectReferenceID,
		"lineItems":   lineItems,
	}
	if err := c.do(ctx, apiRequest{method: http.MethodPost, path: shipmentPath(shipmentID), query: q, body: body}, nil); err != nil {
		return fmt.Errorf("reject shipment %s: %w", shipmentID, err)
	}
	return nil
}

// GetFbaInventoryItems pages through every inventory summary updated in the last 30 days.
func (c *HTTPClient) GetFbaInventoryItems(ctx context.Context) ([]InventorySummary, error) {
	var all []InventorySummary
	nextToken := ""
	start := c.nowFunc().Add(-fbaLookback).UTC().Format(time.RFC3339)

	for {
		q := url.Values{}
		q.Set("granularityType", "Marketplace")
		q.Set("granularityId", c.marketplaceID)
		q.Set("marketplaceIds", c.marketplaceID)
		q.Set("startDateTime", start)
		if nextToken != "" {
			q.Set("nextToken", nextToken)
		}

		var resp struct {
			Payload struct {
				InventorySummaries []InventorySummary `json:"inventorySummaries"`
			} `json:"payload"`
			Pagination struct {
				NextToken string `json:"nextToken"`
			} `json:"pagination"`
		}
		if err := c.do(ctx, apiRequest{method: http.MethodGet, path: fbaPath, query: q}, &resp); err != nil {
			return nil, fmt.Errorf("get fba inventory: %w", err)
		}
		all = append(all, resp.Payload.InventorySummaries...)

		nextToken = resp.Pagination.NextToken
		if nextToken == "" {
			return all, nil
		}
	}
}

// UpdateInventory sets the on-hand quantity; Timestamp is sent as If-Unmodified-Since.
func (c *HTTPClient) UpdateInventory(ctx context.Context, req UpdateInventoryRequest) (*UpdateInventoryResult, error) {
	ts := req.Timestamp
	if ts.IsZero() {
		ts = c.nowFunc()
	}
	path := inventoryPath + "/locations/" + url.PathEscape(req.SupplySourceID) + "/skus/" + url.PathEscape(req.SKU)
	q := url.Values{"quantity": {strconv.Itoa(req.Quantity)}}
	headers := map[string]string{"If-Unmodified-Since": ts.UTC().Format(http.TimeFormat)}

	var out UpdateInventoryResult
	if err := c.do(ctx, apiRequest{method: http.MethodPut, path: path, query: q, headers: headers}, &out); err != nil {
		return nil, fmt.Errorf("update inventory %s@%s: %w", req.SKU, req.SupplySourceID, err)
	}
	return &out, nil
}

func (c *HTTPClient) CreatePackages(ctx context.Context, shipmentID string, packages []Package) error {
	body := map[string]interface{}{"packages": packages}
	if err := c.do(ctx, apiRequest{method: http.MethodPost, path: shipmentPath(shipmentID) + "/packages", body: body}, nil); err != nil {
		return fmt.Errorf("create packages %s: %w", shipmentID, err)
	}
	return nil
}

func (c *HTTPClient) RetrieveShippingOptions(ctx context.Context, shipmentID, packageID string) error {
	q := url.Values{"shipmentId": {shipmentID}, "packageId": {packageID}}
	if err := c.do(ctx, apiRequest{method: http.MethodGet, path: shipmentsPath + "/shippingOptions", query: q}, nil); err != nil {
		return fmt.Errorf("retrieve shipping options %s/%s: %w", shipmentID, packageID, err)
	}
	return nil
}

func (c *HTTPClient) GenerateInvoice(ctx context.Context, shipmentID, packageID string) error {
	if err := c.do(ctx, apiRequest{method: http.MethodPost, path: packagePath(shipmentID, packageID) + "/invoice"}, nil); err != nil {
		return fmt.Errorf("generate invoice %s/%s: %w", shipmentID, packageID, err)
	}
	return nil
}

func (c *HTTPClient) GenerateShippingLabel(ctx context.Context, shipmentID, packageID string) (*ShippingLabel, error) {
	q := url.Values{"operation": {"GENERATE"}}
	var label ShippingLabel
	if err := c.do(ctx, apiRequest{method: http.MethodPost, path: packagePath(shipmentID, packageID) + "/shipLabel", query: q}, &label); err != nil {
		return nil, fmt.Errorf("generate shipping label %s/%s: %w", shipmentID, packageID, err)
	}
	return &label, nil
}

func (c *HTTPClient) GetShippingLabel(ctx context.Context, shipmentID, packageID string) (*ShippingLabel, error) {
	var label ShippingLabel
	if err := c.do(ctx, apiRequest{method: http.MethodGet, path: packagePath(shipmentID, packageID) + "/shipLabel"}, &label); err != nil {
		return nil, fmt.Errorf("get shipping label %s/%s: %w", shipmentID, packageID, err)
	}
	return &label, nil
}

func (c *HTTPClient) GetInvoice(ctx context.Context, shipmentID, packageID string) (*Invoice, error) {
	var inv Invoice
	if err := c.do(ctx, apiRequest{method: http.MethodGet, path: packagePath(shipmentID, packageID) + "/invoice"}, &inv); err != nil {
		return nil, fmt.Errorf("get invoice %s/%s: %w", shipmentID, packageID, err)
	}
	return &inv, nil
}

func (c *HTTPClient) ShipComplete(ctx context.Context, shipmentID, packageID string) error {
	q := url.Values{"status": {StatusShipped}}
	if err := c.do(ctx, apiRequest{method: http.MethodPatch, path: packagePath(shipmentID, packageID), query: q}, nil); err != nil {
		return fmt.Errorf("ship complete %s/%s: %w", shipmentID, packageID, err)
	}
	return nil
}

func (c *HTTPClient) ListReturns(ctx context.Context, rmaID string) ([]Return, error) {
	q := url.Values{"rmaId": {rmaID}}
	var resp struct {
		Returns []Return `json:"returns"`
	}
	if err := c.do(ctx, apiRequest{method: http.MethodGet, path: returnsPath + "/returns", query: q}, &resp); err != nil {
		return nil, fmt.Errorf("list returns %s: %w", rmaID, err)
	}
	return resp.Returns, nil
}

func (c *HTTPClient) GetReturn(ctx context.Context, returnID string) (*Return, error) {
	var r Return
	if err := c.do(ctx, apiRequest{method: http.MethodGet, path: returnsPath + "/returns/" + url.PathEscape(returnID)}, &r); err != nil {
		return nil, fmt.Errorf("get return %s: %w", returnID, err)
	}
	return &r, nil
}

func (c *HTTPClient) ProcessReturn(ctx context.Context, returnID string, cond ItemConditions, idempotencyToken string) error {
	body := map[string]interface{}{
		"op":   "increment",
		"path": "/processedReturns",
		"value": map[string]int{
			"Sellable":        cond.Sellable,
			"Defective":       cond.Defective,
			"CustomerDamaged": cond.CustomerDamaged,
			"CarrierDamaged":  cond.CarrierDamaged,
			"Fraud":           cond.Fraud,
			"WrongItem":       cond.WrongItem,
		},
	}
	headers := map[string]string{"x-amzn-idempotency-token": idempotencyToken}
	if err := c.do(ctx, apiRequest{method: http.MethodPatch, path: returnsPath + "/returns/" + url.PathEscape(returnID), body: body, headers: headers}, nil); err != nil {
		return fmt.Errorf("process return %s: %w", returnID, err)
	}
	return nil
}
