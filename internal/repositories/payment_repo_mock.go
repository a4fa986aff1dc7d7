package repositories

import (
	"sync"
	"time"

	"tokocheckout/internal/models"

	"github.com/google/uuid"
)

// MockPaymentRepository is an in-memory implementation of PaymentRepository.
type MockPaymentRepository struct {
	payments map[string]models.Payment
	mu       sync.RWMutex
}

// NewMockPaymentRepository creates a new instance of MockPaymentRepository.
func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{payments: make(map[string]models.Payment)}
}

func (r *MockPaymentRepository) GetByID(id string) (*models.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	payment, ok := r.payments[id]
	if !ok {
		return nil, notFound("payment", id)
	}
	return &payment, nil
}

func (r *MockPaymentRepository) GetOpenByOrderID(orderID string) (*models.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var open *models.Payment
	for _, p := range r.payments {
		if p.OrderID != orderID || p.Status != models.PaymentStatusPending {
			continue
		}
		if open == nil || p.CreatedAt.After(open.CreatedAt) {
			p := p
			open = &p
		}
	}
	if open == nil {
		return nil, models.NewError(models.KindNotFound, "", "no open payment for order "+orderID, nil)
	}
	return open, nil
}

func (r *MockPaymentRepository) Create(payment *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now()
	}
	payment.UpdatedAt = payment.CreatedAt
	r.payments[payment.ID] = *payment
	return nil
}

func (r *MockPaymentRepository) Update(payment *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.payments[payment.ID]
	if !ok {
		return notFound("payment", payment.ID)
	}
	payment.CreatedAt = existing.CreatedAt
	payment.UpdatedAt = time.Now()
	r.payments[payment.ID] = *payment
	return nil
}
