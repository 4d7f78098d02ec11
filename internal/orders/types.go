package orders

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/fulfillment"
)

// Order statuses mirror the backend's shipment statuses.
const (
	StatusAccepted            = fulfillment.StatusAccepted
	StatusConfirmed           = fulfillment.StatusConfirmed
	StatusPackageCreated      = fulfillment.StatusPackageCreated
	StatusPickupSlotRetrieved = fulfillment.StatusPickupSlotRetrieved
	StatusInvoiceGenerated    = fulfillment.StatusInvoiceGenerated
	StatusShipLabelGenerated  = fulfillment.StatusShipLabelGenerated
	StatusCancelled           = fulfillment.StatusCancelled
	StatusShipped             = fulfillment.StatusShipped
	StatusDelivered           = fulfillment.StatusDelivered

	// StatusCustomerPickedUp is display only, never stored.
	StatusCustomerPickedUp = "CUSTOMER_PICKED_UP"
)

const (
	entityName       = "ORDER"
	pickupShipMethod = "AMZL_US_SP_PICKUP"
)

type Metadata struct {
	NumberOfUnits int    `dynamodbav:"number_of_units" json:"numberOfUnits"`
	BuyerOrderID  string `dynamodbav:"buyer_order_id,omitempty" json:"buyerOrderId,omitempty"`
	Priority      bool   `dynamodbav:"priority" json:"priority"`
	ShipmentType  string `dynamodbav:"shipment_type,omitempty" json:"shipmentType,omitempty"`
}

// Charge is a flattened backend charge. Amounts are net of the currency.
type Charge struct {
	ChargeType    string  `dynamodbav:"charge_type" json:"chargeType"`
	BaseAmount    float64 `dynamodbav:"base_amount" json:"baseAmount"`
	TotalAmount   float64 `dynamodbav:"total_amount" json:"totalAmount"`
	TotalDiscount float64 `dynamodbav:"total_discount" json:"totalDiscount"`
	TotalTax      float64 `dynamodbav:"total_tax" json:"totalTax"`
	Currency      string  `dynamodbav:"currency,omitempty" json:"currency,omitempty"`
}

type LineItem struct {
	ID            string   `dynamodbav:"id" json:"id"`
	MerchantSKU   string   `dynamodbav:"merchant_sku" json:"merchantSku"`
	NumberOfUnits int      `dynamodbav:"number_of_units" json:"numberOfUnits"`
	Charges       []Charge `dynamodbav:"charges,omitempty" json:"charges,omitempty"`
}

type Measure struct {
	Value string `dynamodbav:"value" json:"value"`
	Unit  string `dynamodbav:"unit" json:"unit"`
}

type Dimensions struct {
	Length Measure `dynamodbav:"length" json:"length"`
	Width  Measure `dynamodbav:"width" json:"width"`
	Height Measure `dynamodbav:"height" json:"height"`
}

type PackageLineItem struct {
	LineItemID    string   `dynamodbav:"line_item_id" json:"lineItemId"`
	Quantity      int      `dynamodbav:"quantity" json:"quantity"`
	SerialNumbers []string `dynamodbav:"serial_numbers,omitempty" json:"serialNumbers,omitempty"`
}

type Document struct {
	Format  string `dynamodbav:"format" json:"format"`
	Content string `dynamodbav:"content" json:"content"`
}

type LabelMetadata struct {
	CarrierName       string `dynamodbav:"carrier_name" json:"carrierName"`
	TrackingID        string `dynamodbav:"tracking_id" json:"trackingId"`
	ShipMethod        string `dynamodbav:"ship_method,omitempty" json:"shipMethod,omitempty"`
	PickupWindowStart int64  `dynamodbav:"pickup_window_start,omitempty" json:"pickupWindowStart,omitempty"`
	PickupWindowEnd   int64  `dynamodbav:"pickup_window_end,omitempty" json:"pickupWindowEnd,omitempty"`
}

type ShippingLabel struct {
	Document Document      `dynamodbav:"document" json:"document"`
	Metadata LabelMetadata `dynamodbav:"metadata" json:"metadata"`
}

type Package struct {
	ID               string            `dynamodbav:"id" json:"id"`
	Dimensions       Dimensions        `dynamodbav:"dimensions" json:"dimensions"`
	Weight           Measure           `dynamodbav:"weight" json:"weight"`
	HazmatLabels     []string          `dynamodbav:"hazmat_labels,omitempty" json:"hazmatLabels,omitempty"`
	PackageLineItems []PackageLineItem `dynamodbav:"package_line_items" json:"packageLineItems"`
	Status           string            `dynamodbav:"status,omitempty" json:"status,omitempty"`
	ShippingLabel    *ShippingLabel    `dynamodbav:"shipping_label,omitempty" json:"shippingLabel,omitempty"`
	Invoice          *Document         `dynamodbav:"invoice,omitempty" json:"invoice,omitempty"`
}

type Address struct {
	Name         string `dynamodbav:"name" json:"name"`
	AddressLine1 string `dynamodbav:"address_line1" json:"addressLine1"`
	AddressLine2 string `dynamodbav:"address_line2,omitempty" json:"addressLine2,omitempty"`
	AddressLine3 string `dynamodbav:"address_line3,omitempty" json:"addressLine3,omitempty"`
	City         string `dynamodbav:"city" json:"city"`
	State        string `dynamodbav:"state" json:"state"`
	District     string `dynamodbav:"district,omitempty" json:"district,omitempty"`
	PostalCode   string `dynamodbav:"postal_code" json:"postalCode"`
	CountryCode  string `dynamodbav:"country_code" json:"countryCode"`
	PhoneNumber  string `dynamodbav:"phone_number,omitempty" json:"phoneNumber,omitempty"`
}

type ShippingInfo struct {
	RecommendedShipMethod    string  `dynamodbav:"recommended_ship_method" json:"recommendedShipMethod"`
	ExpectedShippingDateTime string  `dynamodbav:"expected_shipping_date_time,omitempty" json:"expectedShippingDateTime,omitempty"`
	ShipToAddress            Address `dynamodbav:"ship_to_address" json:"shipToAddress"`
}

// StorefrontOrderRef points at the order created in the storefront for this shipment.
type StorefrontOrderRef struct {
	OrderID     string `dynamodbav:"order_id" json:"orderId" validate:"required"`
	OrderNumber string `dynamodbav:"order_number" json:"orderNumber" validate:"required"`
	ShopDomain  string `dynamodbav:"shop_domain" json:"shopDomain" validate:"required"`
}

type Actor struct {
	ID          string `dynamodbav:"id" json:"id"`
	Type        string `dynamodbav:"type" json:"type"`
	DisplayName string `dynamodbav:"display_name" json:"displayName"`
}

var systemActor = Actor{ID: "SYSTEM", Type: "system", DisplayName: "System"}

// Order represents the item stored in the orders DynamoDB table.
type Order struct {
	ID                  string              `dynamodbav:"id" json:"id"` // PK
	ShipmentID          string              `dynamodbav:"shipment_id" json:"shipmentId"`
	LocationID          string              `dynamodbav:"location_id" json:"locationId"`
	ChannelName         string              `dynamodbav:"channel_name,omitempty" json:"channelName,omitempty"`
	ChannelLocationID   string              `dynamodbav:"channel_location_id,omitempty" json:"channelLocationId,omitempty"`
	Metadata            Metadata            `dynamodbav:"metadata" json:"metadata"`
	Status              string              `dynamodbav:"status" json:"status"`
	LineItems           []LineItem          `dynamodbav:"line_items" json:"lineItems"`
	Packages            []Package           `dynamodbav:"packages,omitempty" json:"packages"`
	Charges             []Charge            `dynamodbav:"charges,omitempty" json:"charges,omitempty"`
	ShippingInfo        ShippingInfo        `dynamodbav:"shipping_info" json:"shippingInfo"`
	StorefrontOrder     *StorefrontOrderRef `dynamodbav:"storefront_order,omitempty" json:"storefrontOrder,omitempty"`
	CommitDecision      string              `dynamodbav:"commit_decision,omitempty" json:"commitDecision,omitempty"` // command enqueued by the stock check
	Archived            bool                `dynamodbav:"archived" json:"archived"`
	CreationDateTime    string              `dynamodbav:"creation_date_time,omitempty" json:"creationDateTime,omitempty"`
	LastUpdatedDateTime string              `dynamodbav:"last_updated_date_time,omitempty" json:"lastUpdatedDateTime,omitempty"`
	CreatedBy           Actor               `dynamodbav:"created_by" json:"createdBy"`
	CreatedAt           time.Time           `dynamodbav:"created_at" json:"createdAt"`
	UpdatedAt           time.Time           `dynamodbav:"updated_at" json:"updatedAt"`
	Version             int64               `dynamodbav:"version" json:"version"`
	Entity              string              `dynamodbav:"entity" json:"-"`
	SortKey             string              `dynamodbav:"sort_key" json:"-"`
}

// DisplayStatus is the status shown to people. A shipped pickup order reads as picked up.
func (o *Order) DisplayStatus() string {
	if o.Status == StatusShipped && o.ShippingInfo.RecommendedShipMethod == pickupShipMethod {
		return StatusCustomerPickedUp
	}
	return o.Status
}

// TotalUnits sums the units of every line.
func (o *Order) TotalUnits() int {
	n := 0
	for _, li := range o.LineItems {
		n += li.NumberOfUnits
	}
	return n
}

// Package returns the package with id, or nil.
func (o *Order) Package(id string) *Package {
	for i := range o.Packages {
		if o.Packages[i].ID == id {
			return &o.Packages[i]
		}
	}
	return nil
}

// fromShipment builds a new order carrying the backend's view of the shipment.
func fromShipment(s *fulfillment.Shipment) *Order {
	o := &Order{ShipmentID: s.ID, CreatedBy: systemActor}
	o.applyShipment(s)
	return o
}

// applyShipment overwrites the remote owned fields of o with s. Packages are left alone.
func (o *Order) applyShipment(s *fulfillment.Shipment) {
	o.Status = s.Status
	o.LocationID = s.LocationID
	o.ChannelName = s.ChannelName
	o.ChannelLocationID = s.ChannelLocationID
	o.Metadata = Metadata{
		NumberOfUnits: s.Metadata.NumberOfUnits,
		BuyerOrderID:  s.Metadata.BuyerOrderID,
		Priority:      s.Metadata.Priority,
		ShipmentType:  s.Metadata.ShipmentType,
	}
	o.LineItems = make([]LineItem, 0, len(s.LineItems))
	for _, li := range s.LineItems {
		o.LineItems = append(o.LineItems, LineItem{
			ID:            li.ID,
			MerchantSKU:   li.MerchantSku,
			NumberOfUnits: li.NumberOfUnits,
			Charges:       convertCharges(li.Charges),
		})
	}
	o.Charges = convertCharges(s.Charges)
	a := s.ShippingInfo.ShipToAddress
	o.ShippingInfo = ShippingInfo{
		RecommendedShipMethod:    s.ShippingInfo.RecommendedShipMethod,
		ExpectedShippingDateTime: s.ShippingInfo.ExpectedShippingDateTime,
		ShipToAddress: Address{
			Name:         a.Name,
			AddressLine1: a.AddressLine1,
			AddressLine2: a.AddressLine2,
			AddressLine3: a.AddressLine3,
			City:         a.City,
			State:        a.State,
			District:     a.District,
			PostalCode:   a.PostalCode,
			CountryCode:  a.CountryCode,
			PhoneNumber:  a.PhoneNumber,
		},
	}
	o.CreationDateTime = s.CreationDateTime
	o.LastUpdatedDateTime = s.LastUpdatedDateTime
}

func convertCharges(in []fulfillment.Charge) []Charge {
	if len(in) == 0 {
		return nil
	}
	out := make([]Charge, 0, len(in))
	for _, c := range in {
		out = append(out, Charge{
			ChargeType:    c.ChargeType,
			BaseAmount:    amount(c.BaseCharge.NetAmount),
			TotalAmount:   amount(c.TotalCharge.NetAmount),
			TotalDiscount: amount(c.TotalCharge.DiscountAmount),
			TotalTax:      amount(c.TotalTax.Charge.NetAmount),
			Currency:      currency(c),
		})
	}
	return out
}

func amount(m *fulfillment.Money) float64 {
	if m == nil {
		return 0
	}
	return m.Value
}

func currency(c fulfillment.Charge) string {
	for _, m := range []*fulfillment.Money{c.TotalCharge.NetAmount, c.BaseCharge.NetAmount} {
		if m != nil && m.Currency != "" {
			return m.Currency
		}
	}
	return ""
}

// charge returns the first charge of chargeType. The backend is not consistent about case.
func charge(charges []Charge, chargeType string) (Charge, bool) {
	for _, c := range charges {
		if strings.EqualFold(c.ChargeType, chargeType) {
			return c, true
		}
	}
	return Charge{}, false
}

func packageFromRemote(p fulfillment.Package) Package {
	out := Package{
		ID: p.ID,
		Dimensions: Dimensions{
			Length: Measure{Value: p.Dimensions.Length.Value, Unit: p.Dimensions.Length.DimensionUnit},
			Width:  Measure{Value: p.Dimensions.Width.Value, Unit: p.Dimensions.Width.DimensionUnit},
			Height: Measure{Value: p.Dimensions.Height.Value, Unit: p.Dimensions.Height.DimensionUnit},
		},
		Weight:       Measure{Value: p.Weight.Value, Unit: p.Weight.WeightUnit},
		HazmatLabels: p.HazmatLabels,
		Status:       p.Status,
	}
	for _, li := range p.PackageLineItems {
		out.PackageLineItems = append(out.PackageLineItems, PackageLineItem{
			LineItemID:    li.PackageLineItem.ID,
			Quantity:      li.Quantity,
			SerialNumbers: li.SerialNumbers,
		})
	}
	return out
}

func (p Package) toRemote() fulfillment.Package {
	out := fulfillment.Package{
		ID: p.ID,
		Dimensions: fulfillment.Dimensions{
			Length: fulfillment.Dimension{Value: p.Dimensions.Length.Value, DimensionUnit: p.Dimensions.Length.Unit},
			Width:  fulfillment.Dimension{Value: p.Dimensions.Width.Value, DimensionUnit: p.Dimensions.Width.Unit},
			Height: fulfillment.Dimension{Value: p.Dimensions.Height.Value, DimensionUnit: p.Dimensions.Height.Unit},
		},
		Weight:       fulfillment.Weight{Value: p.Weight.Value, WeightUnit: p.Weight.Unit},
		HazmatLabels: p.HazmatLabels,
	}
	if out.HazmatLabels == nil {
		out.HazmatLabels = []string{}
	}
	for _, li := range p.PackageLineItems {
		var ref fulfillment.PackageLineItemRef
		ref.PackageLineItem.ID = li.LineItemID
		ref.Quantity = li.Quantity
		ref.SerialNumbers = li.SerialNumbers
		if ref.SerialNumbers == nil {
			ref.SerialNumbers = []string{}
		}
		out.PackageLineItems = append(out.PackageLineItems, ref)
	}
	return out
}

func labelFromRemote(l *fulfillment.ShippingLabel, shipMethod string) *ShippingLabel {
	if l == nil {
		return nil
	}
	out := &ShippingLabel{
		Document: Document{Format: l.Document.Format, Content: l.Document.Content},
		Metadata: LabelMetadata{
			CarrierName: l.Metadata.CarrierName,
			TrackingID:  l.Metadata.TrackingID,
			ShipMethod:  shipMethod,
		},
	}
	if w := l.Metadata.PickupWindow; w != nil {
		out.Metadata.PickupWindowStart = w.StartTime
		out.Metadata.PickupWindowEnd = w.EndTime
	}
	return out
}

// PackageInput describes one box the operator packed.
type PackageInput struct {
	Length        float64  `json:"length" validate:"gt=0"`
	Width         float64  `json:"width" validate:"gt=0"`
	Height        float64  `json:"height" validate:"gt=0"`
	DimensionUnit string   `json:"dimensionUnit" validate:"required,oneof=CM IN"`
	Weight        float64  `json:"weight" validate:"gt=0"`
	WeightUnit    string   `json:"weightUnit" validate:"required,oneof=KG G LB OZ"`
	HazmatLabels  []string `json:"hazmatLabels,omitempty"`
}

// newPackage numbers packages from 1 and allocates every line item to each of them.
func newPackage(i int, in PackageInput, lines []LineItem) Package {
	p := Package{
		ID: fmt.Sprintf("PACKAGE_%d", i+1),
		Dimensions: Dimensions{
			Length: Measure{Value: formatFloat(in.Length), Unit: in.DimensionUnit},
			Width:  Measure{Value: formatFloat(in.Width), Unit: in.DimensionUnit},
			Height: Measure{Value: formatFloat(in.Height), Unit: in.DimensionUnit},
		},
		Weight:       Measure{Value: formatFloat(in.Weight), Unit: in.WeightUnit},
		HazmatLabels: in.HazmatLabels,
	}
	for _, li := range lines {
		p.PackageLineItems = append(p.PackageLineItems, PackageLineItem{LineItemID: li.ID, Quantity: li.NumberOfUnits})
	}
	return p
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
