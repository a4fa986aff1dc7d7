package models

import (
	"fmt"
	"strings"
	"time"
)

// PaymentStatus is the server-confirmed state of a payment.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusSuccess   PaymentStatus = "SUCCESS"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
	PaymentStatusExpired   PaymentStatus = "EXPIRED"
)

// IsTerminal reports whether no further transitions are possible.
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case PaymentStatusSuccess, PaymentStatusFailed, PaymentStatusCancelled, PaymentStatusExpired:
		return true
	}
	return false
}

// IsValid reports whether s is one of the known statuses.
func (s PaymentStatus) IsValid() bool {
	return s == PaymentStatusPending || s.IsTerminal()
}

func (s PaymentStatus) String() string {
	return string(s)
}

// ParsePaymentStatus accepts any letter case.
func ParsePaymentStatus(raw string) (PaymentStatus, error) {
	s := PaymentStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", fmt.Errorf("unknown payment status %q", raw)
	}
	return s, nil
}

// PaymentMethod is how the customer pays.
type PaymentMethod string

const (
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodQRIS         PaymentMethod = "qris"
)

// Banks supported for virtual-account transfers.
const (
	BankBCA     = "bca"
	BankBNI     = "bni"
	BankBRI     = "bri"
	BankMandiri = "mandiri"
)

// Payment is a payment request for an order.
type Payment struct {
	ID                   string        `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID              string        `json:"order_id" gorm:"index;type:varchar(36)"`
	UserID               string        `json:"user_id,omitempty" gorm:"index;type:varchar(36)"`
	Amount               int64         `json:"amount"`
	Status               PaymentStatus `json:"status" gorm:"type:varchar(20)"`
	Method               PaymentMethod `json:"method" gorm:"type:varchar(20)"`
	Bank                 string        `json:"bank,omitempty"`
	VirtualAccountNumber string        `json:"virtual_account_number,omitempty"`
	QRCodeURL            string        `json:"qr_code_url,omitempty"`
	ExpiresAt            time.Time     `json:"expires_at"`
	CreatedAt            time.Time     `json:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at"`
}

// TransitionTo moves the payment to next. Terminal payments reject every change.
func (p *Payment) TransitionTo(next PaymentStatus) error {
	if !next.IsValid() {
		return fmt.Errorf("unknown payment status %q", next)
	}
	if p.Status == next {
		return nil
	}
	if p.Status.IsTerminal() {
		return fmt.Errorf("payment %s is already %s, cannot move to %s", p.ID, p.Status, next)
	}
	p.Status = next
	return nil
}

// Remaining is the time left before expiry, never negative.
func (p Payment) Remaining(now time.Time) time.Duration {
	left := p.ExpiresAt.Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// SimulatePaymentRequest settles a sandbox payment.
type SimulatePaymentRequest struct {
	Status PaymentStatus `json:"status" validate:"required,oneof=SUCCESS FAILED CANCELLED"`
}
