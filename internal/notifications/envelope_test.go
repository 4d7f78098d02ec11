package notifications

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

const pushed = `{
  "notificationVersion": "1.0",
  "notificationType": "EXTERNAL_FULFILLMENT_SHIPMENT_STATUS_CHANGE",
  "payloadVersion": "1.0",
  "eventTime": "2024-05-01T10:00:00.000Z",
  "payload": {"externalFulfillmentShipmentNotification": {
    "merchantId": "M1", "locationId": "ss-1", "channelName": "Amazon",
    "shipmentId": "s-1", "shipmentStatus": "ACCEPTED"}},
  "notificationMetadata": {"applicationId": "app", "subscriptionId": "sub-1",
    "publishTime": "2024-05-01T10:00:01.000Z", "notificationId": "n-1"}
}`

func TestParse_PushedNotification(t *testing.T) {
	e, err := Parse(pushed)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	n, err := e.Shipment()
	if err != nil {
		t.Fatalf("shipment: %v", err)
	}
	if n.ShipmentID != "s-1" || n.ShipmentStatus != "ACCEPTED" || n.LocationID != "ss-1" {
		t.Fatalf("unexpected notification %+v", n)
	}
	if !e.EventTime.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected event time %v", e.EventTime)
	}
}

func TestShipment_RejectsOtherTypes(t *testing.T) {
	for _, body := range []string{
		`{"notificationType":"ANY_OFFER_CHANGED","payload":{}}`,
		`{"notificationType":"EXTERNAL_FULFILLMENT_SHIPMENT_STATUS_CHANGE"}`,
		`{"notificationType":"EXTERNAL_FULFILLMENT_SHIPMENT_STATUS_CHANGE","payload":{}}`,
	} {
		e, err := Parse(body)
		if err != nil {
			t.Fatalf("parse %s: %v", body, err)
		}
		if _, err := e.Shipment(); !errors.Is(err, ErrNotShipmentNotification) {
			t.Fatalf("expected ErrNotShipmentNotification for %s, got %v", body, err)
		}
	}
}

func TestNewShipmentEnvelope(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	e := NewShipmentEnvelope(ShipmentNotification{ShipmentID: "s-2", ShipmentStatus: "CANCELLED"}, "n-2", now)

	b, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	back, err := Parse(string(b))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	n, err := back.Shipment()
	if err != nil || n.ShipmentID != "s-2" {
		t.Fatalf("unexpected %+v %v", n, err)
	}
	if back.NotificationMetadata.ApplicationID != ImporterApplicationID || back.NotificationMetadata.NotificationID != "n-2" {
		t.Fatalf("unexpected metadata %+v", back.NotificationMetadata)
	}
}
