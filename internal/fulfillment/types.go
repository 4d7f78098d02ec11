package fulfillment

import "time"

// Shipment statuses reported by the backend.
const (
	StatusAccepted            = "ACCEPTED"
	StatusConfirmed           = "CONFIRMED"
	StatusPackageCreated      = "PACKAGE_CREATED"
	StatusPickupSlotRetrieved = "PICKUP_SLOT_RETRIEVED"
	StatusInvoiceGenerated    = "INVOICE_GENERATED"
	StatusShipLabelGenerated  = "SHIPLABEL_GENERATED"
	StatusCancelled           = "CANCELLED"
	StatusShipped             = "SHIPPED"
	StatusDelivered           = "DELIVERED"
)

// RejectReasonOutOfStock is the only reject reason this system emits.
const RejectReasonOutOfStock = "OUT_OF_STOCK"

type Shipment struct {
	ID                  string           `json:"id"`
	Status              string           `json:"status"`
	LocationID          string           `json:"locationId"`
	ChannelName         string           `json:"channelName"`
	ChannelLocationID   string           `json:"channelLocationId"`
	Metadata            ShipmentMetadata `json:"metadata"`
	LineItems           []LineItem       `json:"lineItems"`
	Packages            []Package        `json:"packages"`
	ShippingInfo        ShippingInfo     `json:"shippingInfo"`
	Charges             []Charge         `json:"charges"`
	CreationDateTime    string           `json:"creationDateTime"`
	LastUpdatedDateTime string           `json:"lastUpdatedDateTime"`
}

type ShipmentMetadata struct {
	NumberOfUnits int    `json:"numberOfUnits"`
	BuyerOrderID  string `json:"buyerOrderId"`
	Priority      bool   `json:"priority"`
	ShipmentType  string `json:"shipmentType"`
}

type LineItem struct {
	ID                   string   `json:"id"`
	MerchantSku          string   `json:"merchantSku"`
	NumberOfUnits        int      `json:"numberOfUnits"`
	SerialNumberRequired bool     `json:"serialNumberRequired,omitempty"`
	HazmatLabelsRequired bool     `json:"hazmatLabelsRequired,omitempty"`
	Charges              []Charge `json:"charges,omitempty"`
}

type Charge struct {
	ChargeType  string       `json:"chargeType"`
	BaseCharge  ChargeAmount `json:"baseCharge"`
	TotalCharge ChargeAmount `json:"totalCharge"`
	TotalTax    struct {
		Charge ChargeAmount `json:"charge"`
		Type   string       `json:"type"`
	} `json:"totalTax"`
}

type ChargeAmount struct {
	NetAmount      *Money `json:"netAmount,omitempty"`
	DiscountAmount *Money `json:"discountAmount,omitempty"`
	BaseAmount     *Money `json:"baseAmount,omitempty"`
}

type Money struct {
	Value    float64 `json:"value"`
	Currency string  `json:"currency"`
}

type Package struct {
	ID               string               `json:"id"`
	Dimensions       Dimensions           `json:"dimensions"`
	Weight           Weight               `json:"weight"`
	HazmatLabels     []string             `json:"hazmatLabels"`
	PackageLineItems []PackageLineItemRef `json:"packageLineItems"`
	Status           string               `json:"status,omitempty"`
}

type Dimensions struct {
	Length Dimension `json:"length"`
	Width  Dimension `json:"width"`
	Height Dimension `json:"height"`
}

type Dimension struct {
	Value         string `json:"value"`
	DimensionUnit string `json:"dimensionUnit"`
}

type Weight struct {
	Value      string `json:"value"`
	WeightUnit string `json:"weightUnit"`
}

type PackageLineItemRef struct {
	PackageLineItem struct {
		ID string `json:"id"`
	} `json:"packageLineItem"`
	Quantity      int      `json:"quantity"`
	SerialNumbers []string `json:"serialNumbers"`
}

type ShippingInfo struct {
	RecommendedShipMethod    string  `json:"recommendedShipMethod"`
	ExpectedShippingDateTime string  `json:"expectedShippingDateTime"`
	ShipToAddress            Address `json:"shipToAddress"`
}

type Address struct {
	Name         string `json:"name"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	AddressLine3 string `json:"addressLine3,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	District     string `json:"district,omitempty"`
	PostalCode   string `json:"postalCode"`
	CountryCode  string `json:"countryCode"`
	PhoneNumber  string `json:"phoneNumber,omitempty"`
}

// ShipmentPage is one page of ListShipments.
type ShipmentPage struct {
	Shipments  []Shipment `json:"shipments"`
	Pagination struct {
		NextToken string `json:"nextToken"`
	} `json:"pagination"`
}

// ListShipmentsParams filters ListShipments. From/To bound lastUpdated and may be zero.
type ListShipmentsParams struct {
	LocationID string
	Status     string
	From       time.Time
	To         time.Time
	PageSize   int
	NextToken  string
}

// RejectLineItem is one line of a reject request.
type RejectLineItem struct {
	LineItem struct {
		ID       string `json:"id"`
		Quantity int    `json:"quantity"`
	} `json:"lineItem"`
	Reason string `json:"reason"`
}

// NewRejectLineItem builds a reject line.
func NewRejectLineItem(id string, quantity int, reason string) RejectLineItem {
	var l RejectLineItem
	l.LineItem.ID = id
	l.LineItem.Quantity = quantity
	l.Reason = reason
	return l
}

type Document struct {
	Format  string `json:"format"`
	Content string `json:"content"`
}

type PickupWindow struct {
	StartTime int64 `json:"startTime"`
	EndTime   int64 `json:"endTime"`
}

type ShippingLabelMetadata struct {
	CarrierName  string        `json:"carrierName"`
	TrackingID   string        `json:"trackingId"`
	PickupWindow *PickupWindow `json:"pickupWindow,omitempty"`
}

type ShippingLabel struct {
	Document Document              `json:"document"`
	Metadata ShippingLabelMetadata `json:"metadata"`
}

type Invoice struct {
	Document Document `json:"document"`
}

// InventorySummary is one FBA inventory record.
type InventorySummary struct {
	ASIN            string `json:"asin"`
	FnSku           string `json:"fnSku"`
	SellerSku       string `json:"sellerSku"`
	Condition       string `json:"condition"`
	LastUpdatedTime string `json:"lastUpdatedTime"`
	ProductName     string `json:"productName"`
	TotalQuantity   int    `json:"totalQuantity"`
}

type UpdateInventoryRequest struct {
	SKU            string
	SupplySourceID string
	Quantity       int
	Timestamp      time.Time
}

type UpdateInventoryResult struct {
	SellableQuantity int `json:"sellableQuantity"`
	ReservedQuantity int `json:"reservedQuantity"`
}

type Return struct {
	ID                        string `json:"id"`
	MarketplaceChannelDetails struct {
		ChannelSku         string `json:"channelSku"`
		CustomerOrderID    string `json:"customerOrderId"`
		MerchantID         string `json:"merchantId"`
		ReturnLocationID   string `json:"returnLocationId"`
		ShipmentID         string `json:"shipmentId"`
		MarketplaceChannel struct {
			MarketplaceName string `json:"marketplaceName"`
			ChannelName     string `json:"channelName"`
		} `json:"marketplaceChannel"`
	} `json:"marketplaceChannelDetails"`
	CreationDateTime      string `json:"creationDateTime"`
	LastUpdatedDateTime   string `json:"lastUpdatedDateTime"`
	FulfillmentLocationID string `json:"fulfillmentLocationId"`
	MerchantSku           string `json:"merchantSku"`
	NumberOfUnits         int    `json:"numberOfUnits"`
	ReturnMetadata        struct {
		InvoiceInformation struct {
			ID string `json:"id"`
		} `json:"invoiceInformation"`
		ReturnReason       string `json:"returnReason"`
		RmaID              string `json:"rmaId"`
		FulfillmentOrderID string `json:"fulfillmentOrderId"`
	} `json:"returnMetadata"`
	ReturnShippingInfo struct {
		ForwardTrackingInfo TrackingInfo `json:"forwardTrackingInfo"`
		ReverseTrackingInfo TrackingInfo `json:"reverseTrackingInfo"`
	} `json:"returnShippingInfo"`
	ReturnType string `json:"returnType"`
	Status     string `json:"status"`
}

type TrackingInfo struct {
	CarrierName string `json:"carrierName"`
	TrackingID  string `json:"trackingId"`
}

// ItemConditions counts processed units per condition.
type ItemConditions struct {
	Sellable        int `json:"sellable"`
	Defective       int `json:"defective"`
	CustomerDamaged int `json:"customerDamaged"`
	CarrierDamaged  int `json:"carrierDamaged"`
	Fraud           int `json:"fraud"`
	WrongItem       int `json:"wrongItem"`
}

// Total is the number of units covered by the conditions.
func (c ItemConditions) Total() int {
	return c.Sellable + c.Defective + c.CustomerDamaged + c.CarrierDamaged + c.Fraud + c.WrongItem
}
