package services

import (
	"errors"
	"fmt"
	"time"

	"tokocheckout/internal/models"
	"tokocheckout/internal/repositories"
	"tokocheckout/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// bankPrefixes are the virtual-account company codes used by the sandbox.
var bankPrefixes = map[string]string{
	models.BankBCA:     "39358",
	models.BankBNI:     "8808",
	models.BankBRI:     "26215",
	models.BankMandiri: "89508",
}

// PaymentService opens payments for orders and moves them through their lifecycle.
type PaymentService struct {
	paymentRepo repositories.PaymentRepository
	orders      *OrderService
	publisher   EventPublisher
	expiry      time.Duration
	qrBaseURL   string
	now         func() time.Time
	logger      *zap.Logger
}

// PaymentOption customizes a PaymentService.
type PaymentOption func(*PaymentService)

// WithPaymentClock replaces time.Now.
func WithPaymentClock(now func() time.Time) PaymentOption {
	return func(s *PaymentService) { s.now = now }
}

// NewPaymentService creates a new PaymentService whose payments expire after expiry.
func NewPaymentService(paymentRepo repositories.PaymentRepository, orders *OrderService, publisher EventPublisher, expiry time.Duration, log *zap.Logger, opts ...PaymentOption) *PaymentService {
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	s := &PaymentService{
		paymentRepo: paymentRepo,
		orders:      orders,
		publisher:   publisher,
		expiry:      expiry,
		qrBaseURL:   "https://sandbox.toko.local/qris/",
		now:         time.Now,
		logger:      logger.OrNop(log),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreatePayment opens a payment for an unpaid order of userID. When the order
// already has a pending payment with the same method it is returned instead.
func (s *PaymentService) CreatePayment(userID string, req models.CreatePaymentRequest) (*models.Payment, error) {
	order, err := s.orders.GetOrder(userID, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderStatusWaitingForPayment {
		return nil, models.NewError(models.KindConflict, "create payment", fmt.Sprintf("order %s is %s and cannot be paid", order.ID, order.Status), nil)
	}

	open, err := s.paymentRepo.GetOpenByOrderID(order.ID)
	switch {
	case err == nil:
		open, err = s.refresh(open)
		if err != nil {
			return nil, err
		}
		if open.Status == models.PaymentStatusPending && open.Method == req.Method && open.Bank == req.Bank {
			return open, nil
		}
		if open.Status == models.PaymentStatusPending {
			// replaced by a payment with another method; the order stays unpaid
			if err := s.transition(open, models.PaymentStatusCancelled, false); err != nil {
				return nil, err
			}
		}
		if open.Status == models.PaymentStatusExpired {
			return nil, models.NewError(models.KindConflict, "create payment", fmt.Sprintf("order %s has expired", order.ID), nil)
		}
	case !errors.Is(err, models.ErrNotFound):
		return nil, err
	}

	now := s.now()
	payment := &models.Payment{
		ID:        uuid.New().String(),
		OrderID:   order.ID,
		UserID:    userID,
		Amount:    order.TotalAmount,
		Status:    models.PaymentStatusPending,
		Method:    req.Method,
		ExpiresAt: now.Add(s.expiry),
		CreatedAt: now,
		UpdatedAt: now,
	}
	switch req.Method {
	case models.PaymentMethodBankTransfer:
		prefix, ok := bankPrefixes[req.Bank]
		if !ok {
			return nil, models.ValidationError("create payment", "unsupported bank %q", req.Bank)
		}
		payment.Bank = req.Bank
		payment.VirtualAccountNumber = fmt.Sprintf("%s%011d", prefix, uuid.New().ID())
	case models.PaymentMethodQRIS:
		payment.QRCodeURL = s.qrBaseURL + payment.ID
	default:
		return nil, models.ValidationError("create payment", "unsupported payment method %q", req.Method)
	}

	if err := s.paymentRepo.Create(payment); err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}
	s.logger.Info("payment created",
		zap.String("payment_id", payment.ID),
		zap.String("order_id", order.ID),
		zap.String("method", string(payment.Method)),
		zap.Int64("amount", payment.Amount))
	publishEvent(s.publisher, s.logger, ExchangePayment, RoutingPaymentCreated, paymentEvent(payment))
	return payment, nil
}

// GetPayment returns a payment of userID as stored.
func (s *PaymentService) GetPayment(userID, id string) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if payment.UserID != userID {
		return nil, models.NewError(models.KindNotFound, "get payment", fmt.Sprintf("payment with ID %s not found", id), nil)
	}
	return payment, nil
}

// CheckStatus returns the current status of a payment of userID, expiring it
// first when it is still pending past its deadline.
func (s *PaymentService) CheckStatus(userID, id string) (*models.Payment, error) {
	payment, err := s.GetPayment(userID, id)
	if err != nil {
		return nil, err
	}
	return s.refresh(payment)
}

// Simulate settles a pending payment the way the payment provider would.
func (s *PaymentService) Simulate(userID, id string, status models.PaymentStatus) (*models.Payment, error) {
	if !status.IsTerminal() || status == models.PaymentStatusExpired {
		return nil, models.ValidationError("simulate payment", "cannot simulate status %q", status)
	}
	payment, err := s.CheckStatus(userID, id)
	if err != nil {
		return nil, err
	}
	if payment.Status.IsTerminal() {
		return nil, models.NewError(models.KindConflict, "simulate payment", fmt.Sprintf("payment %s is already %s", payment.ID, payment.Status), nil)
	}
	if err := s.transition(payment, status, true); err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *PaymentService) refresh(payment *models.Payment) (*models.Payment, error) {
	if payment.Status != models.PaymentStatusPending || s.now().Before(payment.ExpiresAt) {
		return payment, nil
	}
	if err := s.transition(payment, models.PaymentStatusExpired, true); err != nil {
		return nil, err
	}
	return payment, nil
}

// transition stores the new status and, with syncOrder, carries it over to the order.
func (s *PaymentService) transition(payment *models.Payment, next models.PaymentStatus, syncOrder bool) error {
	previous := payment.Status
	if err := payment.TransitionTo(next); err != nil {
		return models.NewError(models.KindConflict, "update payment", err.Error(), nil)
	}
	if previous == next {
		return nil
	}
	payment.UpdatedAt = s.now()
	if err := s.paymentRepo.Update(payment); err != nil {
		return fmt.Errorf("failed to update payment %s: %w", payment.ID, err)
	}
	if syncOrder {
		if err := s.orders.ApplyPaymentStatus(payment.OrderID, next); err != nil {
			return err
		}
	}
	s.logger.Info("payment status changed",
		zap.String("payment_id", payment.ID),
		zap.String("from", previous.String()),
		zap.String("to", next.String()))
	publishEvent(s.publisher, s.logger, ExchangePayment, RoutingPaymentStatusChanged, paymentEvent(payment))
	return nil
}

func paymentEvent(p *models.Payment) PaymentEvent {
	return PaymentEvent{
		PaymentID: p.ID,
		OrderID:   p.OrderID,
		Status:    p.Status.String(),
		Method:    string(p.Method),
		Amount:    p.Amount,
	}
}
