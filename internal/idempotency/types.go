package idempotency

import "time"

// Status values for idempotency entries
const (
	StatusInProgress = "IN_PROGRESS"
	StatusDone       = "DONE"
	StatusFailed     = "FAILED"
)

const shipmentGuardPrefix = "order-shipment#"

// Record is the shape persisted in the idempotency DynamoDB table. The table holds two kinds
// of entries: Idempotency-Key records for mutating API calls, and permanent shipment guards
// that keep one order per shipment.
type Record struct {
	IdempotencyKey string    `dynamodbav:"idempotency_key"` // PK
	Status         string    `dynamodbav:"status"`
	OrderID        string    `dynamodbav:"order_id,omitempty"`
	RequestHash    string    `dynamodbav:"request_hash,omitempty"`
	ResponseBody   string    `dynamodbav:"response_body,omitempty"`   // small responses only
	ResponseStatus int       `dynamodbav:"response_status,omitempty"` // e.g., 201
	CreatedAt      time.Time `dynamodbav:"created_at"`
	UpdatedAt      time.Time `dynamodbav:"updated_at"`
	ExpiresAt      int64     `dynamodbav:"expires_at,omitempty"` // TTL epoch seconds; guards never expire
	Note           string    `dynamodbav:"note,omitempty"`
}

// ShipmentGuardKey is the key of the guard entry for shipmentID.
func ShipmentGuardKey(shipmentID string) string {
	return shipmentGuardPrefix + shipmentID
}

// NewShipmentGuard builds the guard written together with a new order.
func NewShipmentGuard(shipmentID, orderID string, now time.Time) Record {
	return Record{
		IdempotencyKey: ShipmentGuardKey(shipmentID),
		Status:         StatusDone,
		OrderID:        orderID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
