package models

import "time"

// Order statuses.
const (
	OrderStatusWaitingForPayment = "WAITING_FOR_PAYMENT"
	OrderStatusPaid              = "PAID"
	OrderStatusCancelled         = "CANCELLED"
	OrderStatusExpired           = "EXPIRED"
)

// OrderItem represents a single item within an order.
type OrderItem struct {
	ID            uint   `json:"-" gorm:"primaryKey"`
	OrderID       string `json:"-" gorm:"index;type:varchar(36)"`
	ProductID     string `json:"product_id"`
	ProductName   string `json:"product_name"`
	Quantity      int    `json:"quantity"`
	Price         int64  `json:"price"` // Price at the time of order
	OriginalPrice int64  `json:"original_price,omitempty"`
}

// Order represents a customer order together with its cost breakdown.
type Order struct {
	ID                string      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID            string      `json:"user_id" gorm:"index;type:varchar(36)"`
	Items             []OrderItem `json:"items" gorm:"foreignKey:OrderID"`
	ShippingAddressID string      `json:"shipping_address_id"`
	ShippingOptionID  string      `json:"shipping_option_id"`
	Carrier           string      `json:"carrier"`
	Note              string      `json:"note"`
	Subtotal          int64       `json:"subtotal"`
	ShippingCost      int64       `json:"shipping_cost"`
	InsuranceCost     int64       `json:"insurance_cost"`
	WarrantyCost      int64       `json:"warranty_cost"`
	ServiceFee        int64       `json:"service_fee"`
	ApplicationFee    int64       `json:"application_fee"`
	TotalDiscount     int64       `json:"total_discount"`
	Bonus             int64       `json:"bonus"`
	TotalAmount       int64       `json:"total_amount"`
	Status            string      `json:"status"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// ApplySummary copies a price breakdown onto the order.
func (o *Order) ApplySummary(s CheckoutSummary) {
	o.Subtotal = s.Subtotal
	o.ShippingCost = s.ShippingCost
	o.InsuranceCost = s.InsuranceCost
	o.WarrantyCost = s.WarrantyCost
	o.ServiceFee = s.ServiceFee
	o.ApplicationFee = s.ApplicationFee
	o.TotalDiscount = s.TotalDiscount
	o.Bonus = s.Bonus
	o.TotalAmount = s.AmountDue()
}

// OrderStatusFor maps a payment status onto the order status it implies.
func OrderStatusFor(s PaymentStatus) string {
	switch s {
	case PaymentStatusSuccess:
		return OrderStatusPaid
	case PaymentStatusExpired:
		return OrderStatusExpired
	case PaymentStatusFailed, PaymentStatusCancelled:
		return OrderStatusCancelled
	}
	return OrderStatusWaitingForPayment
}

// CreateOrderRequest is the body of an order submission.
type CreateOrderRequest struct {
	Items               []LineItem `json:"items" validate:"required,min=1,dive"`
	ShippingAddressID   string     `json:"shipping_address_id" validate:"required"`
	ShippingOptionID    string     `json:"shipping_option_id" validate:"required"`
	UseInsurance        bool       `json:"use_insurance"`
	UseWarranty         bool       `json:"use_warranty"`
	WarrantyCostPerItem int64      `json:"warranty_cost_per_item" validate:"gte=0"`
	Bonus               int64      `json:"bonus" validate:"gte=0"`
	Note                string     `json:"note" validate:"max=500"`
	Total               int64      `json:"total"`
}

// CreatePaymentRequest is the body of a payment creation call.
type CreatePaymentRequest struct {
	OrderID string        `json:"order_id" validate:"required"`
	Method  PaymentMethod `json:"method" validate:"required,oneof=bank_transfer qris"`
	Bank    string        `json:"bank" validate:"required_if=Method bank_transfer,omitempty,oneof=bca bni bri mandiri"`
}
