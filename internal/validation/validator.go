package validation

import (
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/orders"
)

// New returns a configured validator with the custom tags and struct-level rules registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// comma separated admin recipients, every entry must be an address
	_ = v.RegisterValidation("email_list", emailList)

	v.RegisterStructValidation(createReturnStructValidation, CreateReturnRequest{})
	v.RegisterStructValidation(storefrontOrderStructValidation, orders.StorefrontOrderRef{})

	return v
}

func emailList(fl validatorv10.FieldLevel) bool {
	check := validatorv10.New()
	for _, part := range strings.Split(fl.Field().String(), ",") {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}
		if err := check.Var(p, "email"); err != nil {
			return false
		}
	}
	return true
}

// createReturnStructValidation requires the item conditions to cover at least one unit
// and rejects negative counts.
func createReturnStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(CreateReturnRequest)
	c := req.ItemConditions

	for _, n := range []int{c.Sellable, c.Defective, c.CustomerDamaged, c.CarrierDamaged, c.Fraud, c.WrongItem} {
		if n < 0 {
			sl.ReportError(req.ItemConditions, "itemConditions", "ItemConditions", "non_negative", "")
			return
		}
	}
	if c.Total() <= 0 {
		sl.ReportError(req.ItemConditions, "itemConditions", "ItemConditions", "units_required", "")
	}
}

// storefrontOrderStructValidation keeps the order number in the storefront's "#1001" form.
func storefrontOrderStructValidation(sl validatorv10.StructLevel) {
	ref := sl.Current().Interface().(orders.StorefrontOrderRef)
	if ref.OrderNumber != "" && !strings.HasPrefix(ref.OrderNumber, "#") {
		sl.ReportError(ref.OrderNumber, "orderNumber", "OrderNumber", "order_number_format", "")
	}
}
