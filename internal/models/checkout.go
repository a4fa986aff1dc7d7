package models

// LineItem is a product line inside a checkout draft.
type LineItem struct {
	ProductID     string `json:"product_id" validate:"required"`
	ProductName   string `json:"product_name"`
	Quantity      int    `json:"quantity" validate:"gte=1"`
	Price         int64  `json:"price" validate:"gte=0"`
	OriginalPrice int64  `json:"original_price,omitempty" validate:"gte=0"`
}

// Discount is the per-line saving, zero unless the original price is above the price.
func (li LineItem) Discount() int64 {
	if li.OriginalPrice <= li.Price {
		return 0
	}
	return (li.OriginalPrice - li.Price) * int64(li.Quantity)
}

// ShippingOption is a carrier service the customer can pick at checkout.
type ShippingOption struct {
	ID                 string `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"required"`
	Carrier            string `json:"carrier" validate:"required"`
	Service            string `json:"service"`
	Cost               int64  `json:"cost" validate:"gte=0"`
	InsuranceCost      int64  `json:"insurance_cost" validate:"gte=0"`
	InsuranceAvailable bool   `json:"insurance_available"`
	EstimatedDays      int    `json:"estimated_days"`
}

// CheckoutDraft is the mutable, not yet submitted order.
type CheckoutDraft struct {
	Items               []LineItem      `json:"items"`
	Shipping            *ShippingOption `json:"shipping,omitempty"`
	ShippingAddressID   string          `json:"shipping_address_id"`
	PaymentMethod       PaymentMethod   `json:"payment_method"`
	Bank                string          `json:"bank,omitempty"`
	UseInsurance        bool            `json:"use_insurance"`
	UseWarranty         bool            `json:"use_warranty"`
	WarrantyCostPerItem int64           `json:"warranty_cost_per_item"`
	Note                string          `json:"note"`
	Bonus               int64           `json:"bonus"`
}

// Clone returns a deep copy of the draft.
func (d CheckoutDraft) Clone() CheckoutDraft {
	out := d
	out.Items = append([]LineItem(nil), d.Items...)
	if d.Shipping != nil {
		s := *d.Shipping
		out.Shipping = &s
	}
	return out
}

// CheckoutSummary is the price breakdown derived from a draft.
type CheckoutSummary struct {
	Subtotal       int64 `json:"subtotal"`
	ShippingCost   int64 `json:"shipping_cost"`
	InsuranceCost  int64 `json:"insurance_cost"`
	WarrantyCost   int64 `json:"warranty_cost"`
	ServiceFee     int64 `json:"service_fee"`
	ApplicationFee int64 `json:"application_fee"`
	TotalDiscount  int64 `json:"total_discount"`
	Bonus          int64 `json:"bonus"`
	Total          int64 `json:"total"`
	Savings        int64 `json:"savings"`
	TotalItems     int   `json:"total_items"`
}

// AmountDue is the chargeable amount. Total is reported as computed and may be
// negative when credits exceed charges; the charge never is.
func (s CheckoutSummary) AmountDue() int64 {
	if s.Total < 0 {
		return 0
	}
	return s.Total
}
