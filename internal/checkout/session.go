// Package checkout holds the per-flow checkout state, submits it, and follows
// the resulting payment until the server reports a final status.
package checkout

import (
	"sync"

	"tokocheckout/internal/models"
	"tokocheckout/internal/pricing"
	"tokocheckout/pkg/logger"
	"tokocheckout/pkg/observable"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrSessionClosed is returned by mutations after the draft was submitted or abandoned.
var ErrSessionClosed = models.ValidationError("checkout", "checkout session is closed")

// Defaults seed a new draft.
type Defaults struct {
	Shipping            *models.ShippingOption
	ShippingAddressID   string
	PaymentMethod       models.PaymentMethod
	Bank                string
	UseInsurance        bool
	UseWarranty         bool
	WarrantyCostPerItem int64
	Bonus               int64
	Note                string
}

// Snapshot is an immutable view of the session published to observers.
type Snapshot struct {
	Draft     models.CheckoutDraft
	Summary   models.CheckoutSummary
	CanSubmit bool
	Missing   []string
	OrderID   string
	// IdempotencyKey is the key an order for this draft must be created with.
	IdempotencyKey string
	Closed         bool
}

// Session owns one checkout draft and keeps its summary consistent.
type Session struct {
	mu             sync.Mutex
	pubMu          sync.Mutex
	fees           pricing.Fees
	draft          models.CheckoutDraft
	summary        models.CheckoutSummary
	closed         bool
	orderID        string
	idempotencyKey string
	state          *observable.Value[Snapshot]
	logger         *zap.Logger
}

// NewSession creates an empty session using the given fixed fees.
func NewSession(fees pricing.Fees, log *zap.Logger) *Session {
	s := &Session{
		fees:           fees,
		idempotencyKey: uuid.New().String(),
		logger:         logger.OrNop(log),
	}
	s.summary = pricing.Calculate(s.draft, fees)
	s.state = observable.New(s.snapshotLocked())
	return s
}

// Initialize seeds the draft with items and defaults and computes the first summary.
func (s *Session) Initialize(items []models.LineItem, d Defaults) error {
	if err := pricing.ValidateItems(items); err != nil {
		return err
	}
	return s.mutate("initialize", true, func(draft *models.CheckoutDraft) error {
		*draft = models.CheckoutDraft{
			Items:               append([]models.LineItem(nil), items...),
			ShippingAddressID:   d.ShippingAddressID,
			PaymentMethod:       d.PaymentMethod,
			Bank:                d.Bank,
			UseInsurance:        d.UseInsurance,
			UseWarranty:         d.UseWarranty,
			WarrantyCostPerItem: d.WarrantyCostPerItem,
			Bonus:               d.Bonus,
			Note:                d.Note,
		}
		if d.Shipping != nil {
			opt := *d.Shipping
			draft.Shipping = &opt
		}
		return nil
	})
}

// SetQuantity changes the quantity of the item at index. Quantities below one
// are rejected and leave the draft untouched; use RemoveItem to drop a line.
func (s *Session) SetQuantity(index, quantity int) error {
	if quantity < 1 {
		return models.ValidationError("set quantity", "quantity must be at least 1, got %d", quantity)
	}
	return s.mutate("set quantity", true, func(draft *models.CheckoutDraft) error {
		if index < 0 || index >= len(draft.Items) {
			return models.ValidationError("set quantity", "no line item at index %d", index)
		}
		draft.Items[index].Quantity = quantity
		return nil
	})
}

// RemoveItem drops the line item at index.
func (s *Session) RemoveItem(index int) error {
	return s.mutate("remove item", true, func(draft *models.CheckoutDraft) error {
		if index < 0 || index >= len(draft.Items) {
			return models.ValidationError("remove item", "no line item at index %d", index)
		}
		draft.Items = append(draft.Items[:index], draft.Items[index+1:]...)
		return nil
	})
}

// SelectShipping sets the shipping option; nil clears it.
func (s *Session) SelectShipping(option *models.ShippingOption) error {
	return s.mutate("select shipping", true, func(draft *models.CheckoutDraft) error {
		if option == nil {
			draft.Shipping = nil
			return nil
		}
		opt := *option
		draft.Shipping = &opt
		return nil
	})
}

// SelectAddress sets the shipping address id.
func (s *Session) SelectAddress(addressID string) error {
	return s.mutate("select address", true, func(draft *models.CheckoutDraft) error {
		draft.ShippingAddressID = addressID
		return nil
	})
}

// ToggleInsurance turns shipping insurance on or off.
func (s *Session) ToggleInsurance(on bool) error {
	return s.mutate("toggle insurance", true, func(draft *models.CheckoutDraft) error {
		draft.UseInsurance = on
		return nil
	})
}

// ToggleWarranty turns the per-item warranty on or off.
func (s *Session) ToggleWarranty(on bool) error {
	return s.mutate("toggle warranty", true, func(draft *models.CheckoutDraft) error {
		draft.UseWarranty = on
		return nil
	})
}

// SelectPaymentMethod sets the payment method. bank is only kept for bank transfers.
func (s *Session) SelectPaymentMethod(method models.PaymentMethod, bank string) error {
	return s.mutate("select payment method", false, func(draft *models.CheckoutDraft) error {
		draft.PaymentMethod = method
		draft.Bank = ""
		if method == models.PaymentMethodBankTransfer {
			draft.Bank = bank
		}
		return nil
	})
}

// SetNote sets the free-text note for the seller.
func (s *Session) SetNote(note string) error {
	return s.mutate("set note", true, func(draft *models.CheckoutDraft) error {
		draft.Note = note
		return nil
	})
}

// SetBonus sets the platform credit applied to the order.
func (s *Session) SetBonus(amount int64) error {
	if amount < 0 {
		return models.ValidationError("set bonus", "bonus must not be negative, got %d", amount)
	}
	return s.mutate("set bonus", true, func(draft *models.CheckoutDraft) error {
		draft.Bonus = amount
		return nil
	})
}

// CanSubmit reports whether the current draft is complete enough to submit.
func (s *Session) CanSubmit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canSubmitLocked()
}

// MissingFields lists what blocks submission, empty when CanSubmit is true.
func (s *Session) MissingFields() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.missingLocked()
}

// Snapshot returns a deep copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe calls fn with the current snapshot and after every change.
func (s *Session) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	return s.state.Subscribe(fn)
}

// IdempotencyKey identifies this checkout to the order API across retries.
func (s *Session) IdempotencyKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idempotencyKey
}

// OrderID returns the id of the order created for this session, if any.
func (s *Session) OrderID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orderID
}

// RecordOrder remembers the order created with idempotencyKey so a retried
// submission reuses it. It reports false and records nothing when the draft
// changed since the key was read, as the order no longer matches it.
func (s *Session) RecordOrder(idempotencyKey, orderID string) bool {
	s.mu.Lock()
	if s.closed || idempotencyKey != s.idempotencyKey {
		s.mu.Unlock()
		s.logger.Info("order belongs to an outdated draft, not recording it", zap.String("order_id", orderID))
		return false
	}
	s.orderID = orderID
	s.publishAndUnlock()
	return true
}

// Close ends the session; later mutations fail with ErrSessionClosed.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.logger.Debug("checkout session closed", zap.String("order_id", s.orderID))
	s.publishAndUnlock()
}

// mutate applies fn to a copy of the draft and, on success, installs it with a
// freshly computed summary. Mutate, recompute and snapshot happen under one lock.
// When affectsOrder is set the idempotency key is replaced, and an order
// recorded by an earlier failed submission no longer matches the draft and is
// forgotten.
func (s *Session) mutate(op string, affectsOrder bool, fn func(draft *models.CheckoutDraft) error) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}

	next := s.draft.Clone()
	if err := fn(&next); err != nil {
		s.mu.Unlock()
		s.logger.Debug("checkout mutation rejected", zap.String("op", op), zap.Error(err))
		return err
	}
	s.draft = next
	s.summary = pricing.Calculate(s.draft, s.fees)
	if affectsOrder {
		if s.orderID != "" {
			s.logger.Info("draft changed after order creation, order will be recreated",
				zap.String("op", op), zap.String("order_id", s.orderID))
			s.orderID = ""
		}
		s.idempotencyKey = uuid.New().String()
	}
	s.publishAndUnlock()
	return nil
}

// publishAndUnlock hands the current snapshot to observers and releases mu.
// pubMu is taken before mu is released so snapshots reach observers in the
// order the mutations happened, while observers may still read the session.
// Observers must not mutate the session from inside the callback.
func (s *Session) publishAndUnlock() {
	snap := s.snapshotLocked()
	s.pubMu.Lock()
	s.mu.Unlock()
	defer s.pubMu.Unlock()
	s.state.Set(snap)
}

func (s *Session) canSubmitLocked() bool {
	return len(s.missingLocked()) == 0
}

func (s *Session) missingLocked() []string {
	var missing []string
	if len(s.draft.Items) == 0 {
		missing = append(missing, "items")
	}
	if s.draft.ShippingAddressID == "" {
		missing = append(missing, "shipping_address")
	}
	if s.draft.Shipping == nil {
		missing = append(missing, "shipping_option")
	}
	if s.draft.PaymentMethod == "" {
		missing = append(missing, "payment_method")
	} else if s.draft.PaymentMethod == models.PaymentMethodBankTransfer && s.draft.Bank == "" {
		missing = append(missing, "bank")
	}
	if s.closed {
		missing = append(missing, "open_session")
	}
	return missing
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		Draft:     s.draft.Clone(),
		Summary:   s.summary,
		CanSubmit: s.canSubmitLocked(),
		Missing:   s.missingLocked(),
		OrderID:        s.orderID,
		IdempotencyKey: s.idempotencyKey,
		Closed:         s.closed,
	}
}
