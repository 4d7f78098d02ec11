package returns

import (
	"time"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/fulfillment"
)

const entityName = "ORDER_RETURN"

type Channel struct {
	MarketplaceName string `dynamodbav:"marketplace_name" json:"marketplaceName"`
	ChannelName     string `dynamodbav:"channel_name" json:"channelName"`
}

type ChannelDetails struct {
	ChannelSKU       string  `dynamodbav:"channel_sku" json:"channelSku"`
	CustomerOrderID  string  `dynamodbav:"customer_order_id" json:"customerOrderId"`
	MerchantID       string  `dynamodbav:"merchant_id" json:"merchantId"`
	ReturnLocationID string  `dynamodbav:"return_location_id" json:"returnLocationId"`
	ShipmentID       string  `dynamodbav:"shipment_id" json:"shipmentId"`
	Channel          Channel `dynamodbav:"channel" json:"marketplaceChannel"`
}

type Metadata struct {
	InvoiceID          string `dynamodbav:"invoice_id,omitempty" json:"invoiceId,omitempty"`
	ReturnReason       string `dynamodbav:"return_reason" json:"returnReason"`
	RmaID              string `dynamodbav:"rma_id" json:"rmaId"`
	FulfillmentOrderID string `dynamodbav:"fulfillment_order_id,omitempty" json:"fulfillmentOrderId,omitempty"`
}

type Tracking struct {
	CarrierName string `dynamodbav:"carrier_name" json:"carrierName"`
	TrackingID  string `dynamodbav:"tracking_id" json:"trackingId"`
}

type ShippingInfo struct {
	Forward Tracking `dynamodbav:"forward" json:"forwardTrackingInfo"`
	Reverse Tracking `dynamodbav:"reverse" json:"reverseTrackingInfo"`
}

// ItemConditions mirrors fulfillment.ItemConditions with storage tags.
type ItemConditions struct {
	Sellable        int `dynamodbav:"sellable" json:"sellable"`
	Defective       int `dynamodbav:"defective" json:"defective"`
	CustomerDamaged int `dynamodbav:"customer_damaged" json:"customerDamaged"`
	CarrierDamaged  int `dynamodbav:"carrier_damaged" json:"carrierDamaged"`
	Fraud           int `dynamodbav:"fraud" json:"fraud"`
	WrongItem       int `dynamodbav:"wrong_item" json:"wrongItem"`
}

// Return is a processed return stored in the order returns table.
type Return struct {
	ID                  string         `dynamodbav:"id" json:"id"` // PK
	ReturnID            string         `dynamodbav:"return_id" json:"returnId"`
	RmaID               string         `dynamodbav:"rma_id" json:"rmaId"`
	LocationID          string         `dynamodbav:"location_id" json:"locationId"`
	MerchantSKU         string         `dynamodbav:"merchant_sku" json:"merchantSku"`
	NumberOfUnits       int            `dynamodbav:"number_of_units" json:"numberOfUnits"`
	ChannelDetails      ChannelDetails `dynamodbav:"channel_details" json:"marketplaceChannelDetails"`
	ReturnType          string         `dynamodbav:"return_type" json:"returnType"`
	Status              string         `dynamodbav:"status" json:"status"`
	ItemConditions      ItemConditions `dynamodbav:"item_conditions" json:"itemConditions"`
	Metadata            Metadata       `dynamodbav:"metadata" json:"returnMetadata"`
	ShippingInfo        ShippingInfo   `dynamodbav:"shipping_info" json:"returnShippingInfo"`
	CreationDateTime    string         `dynamodbav:"creation_date_time,omitempty" json:"creationDateTime,omitempty"`
	LastUpdatedDateTime string         `dynamodbav:"last_updated_date_time,omitempty" json:"lastUpdatedDateTime,omitempty"`
	CreatedAt           time.Time      `dynamodbav:"created_at" json:"createdAt"`
	UpdatedAt           time.Time      `dynamodbav:"updated_at" json:"updatedAt"`
	Entity              string         `dynamodbav:"entity" json:"-"`
	SortKey             string         `dynamodbav:"sort_key" json:"-"`
}

func fromRemote(r *fulfillment.Return) Return {
	d := r.MarketplaceChannelDetails
	m := r.ReturnMetadata
	s := r.ReturnShippingInfo
	return Return{
		ReturnID:      r.ID,
		RmaID:         m.RmaID,
		LocationID:    r.FulfillmentLocationID,
		MerchantSKU:   r.MerchantSku,
		NumberOfUnits: r.NumberOfUnits,
		ChannelDetails: ChannelDetails{
			ChannelSKU:       d.ChannelSku,
			CustomerOrderID:  d.CustomerOrderID,
			MerchantID:       d.MerchantID,
			ReturnLocationID: d.ReturnLocationID,
			ShipmentID:       d.ShipmentID,
			Channel:          Channel{MarketplaceName: d.MarketplaceChannel.MarketplaceName, ChannelName: d.MarketplaceChannel.ChannelName},
		},
		ReturnType: r.ReturnType,
		Status:     r.Status,
		Metadata: Metadata{
			InvoiceID:          m.InvoiceInformation.ID,
			ReturnReason:       m.ReturnReason,
			RmaID:              m.RmaID,
			FulfillmentOrderID: m.FulfillmentOrderID,
		},
		ShippingInfo: ShippingInfo{
			Forward: Tracking{CarrierName: s.ForwardTrackingInfo.CarrierName, TrackingID: s.ForwardTrackingInfo.TrackingID},
			Reverse: Tracking{CarrierName: s.ReverseTrackingInfo.CarrierName, TrackingID: s.ReverseTrackingInfo.TrackingID},
		},
		CreationDateTime:    r.CreationDateTime,
		LastUpdatedDateTime: r.LastUpdatedDateTime,
	}
}

func (c ItemConditions) remote() fulfillment.ItemConditions {
	return fulfillment.ItemConditions{
		Sellable:        c.Sellable,
		Defective:       c.Defective,
		CustomerDamaged: c.CustomerDamaged,
		CarrierDamaged:  c.CarrierDamaged,
		Fraud:           c.Fraud,
		WrongItem:       c.WrongItem,
	}
}

// Total is the number of units the conditions cover.
func (c ItemConditions) Total() int {
	return c.remote().Total()
}
