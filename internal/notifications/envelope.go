// Package notifications models the shipment status change notifications that drive the order workflow.
package notifications

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	TypeShipmentStatusChange = "EXTERNAL_FULFILLMENT_SHIPMENT_STATUS_CHANGE"
	Version                  = "1.0"
	ImporterApplicationID    = "omnichannel-import-shipments"
)

// ErrNotShipmentNotification marks an envelope this system does not handle.
var ErrNotShipmentNotification = errors.New("not a shipment status change notification")

type ShipmentNotification struct {
	MerchantID     string `json:"merchantId"`
	LocationID     string `json:"locationId"`
	ChannelName    string `json:"channelName"`
	ShipmentID     string `json:"shipmentId"`
	ShipmentStatus string `json:"shipmentStatus"`
}

type Payload struct {
	ExternalFulfillmentShipmentNotification *ShipmentNotification `json:"externalFulfillmentShipmentNotification,omitempty"`
}

type Metadata struct {
	ApplicationID  string    `json:"applicationId"`
	SubscriptionID string    `json:"subscriptionId"`
	PublishTime    time.Time `json:"publishTime"`
	NotificationID string    `json:"notificationId"`
}

// Envelope is the message body on the notifications queue, whether pushed by the backend or
// synthesized by the importer.
type Envelope struct {
	NotificationVersion  string    `json:"notificationVersion"`
	NotificationType     string    `json:"notificationType"`
	PayloadVersion       string    `json:"payloadVersion"`
	EventTime            time.Time `json:"eventTime"`
	Payload              *Payload  `json:"payload,omitempty"`
	NotificationMetadata Metadata  `json:"notificationMetadata"`
}

// Shipment returns the shipment notification, or ErrNotShipmentNotification.
func (e *Envelope) Shipment() (*ShipmentNotification, error) {
	if e.NotificationType != TypeShipmentStatusChange || e.Payload == nil || e.Payload.ExternalFulfillmentShipmentNotification == nil {
		return nil, ErrNotShipmentNotification
	}
	return e.Payload.ExternalFulfillmentShipmentNotification, nil
}

// Parse decodes a queue message body.
func Parse(body string) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal([]byte(body), &e); err != nil {
		return nil, fmt.Errorf("decode notification: %w", err)
	}
	return &e, nil
}

// NewShipmentEnvelope builds the envelope the importer publishes for one shipment.
func NewShipmentEnvelope(n ShipmentNotification, notificationID string, now time.Time) *Envelope {
	now = now.UTC()
	return &Envelope{
		NotificationVersion: Version,
		NotificationType:    TypeShipmentStatusChange,
		PayloadVersion:      Version,
		EventTime:           now,
		Payload:             &Payload{ExternalFulfillmentShipmentNotification: &n},
		NotificationMetadata: Metadata{
			ApplicationID:  ImporterApplicationID,
			PublishTime:    now,
			NotificationID: notificationID,
		},
	}
}
