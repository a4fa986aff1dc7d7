package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tokocheckout/internal/models"
	"tokocheckout/pkg/logger"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// OrderPlacer is the part of the order/payment API used to submit a checkout.
type OrderPlacer interface {
	CreateOrder(ctx context.Context, req models.CreateOrderRequest, idempotencyKey string) (*models.Order, error)
	CreatePayment(ctx context.Context, req models.CreatePaymentRequest) (*models.Payment, error)
}

// SubmissionError reports a failed order or payment creation with a message
// fit for the customer. The draft stays as it was so the submission can be retried.
type SubmissionError struct {
	Stage   string // "order" or "payment"
	Message string
	Err     error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("%s submission failed: %s: %v", e.Stage, e.Message, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// Submitter turns a complete checkout session into an order and a payment.
type Submitter struct {
	api      OrderPlacer
	validate *validator.Validate
	logger   *zap.Logger
}

// NewSubmitter creates a Submitter.
func NewSubmitter(api OrderPlacer, log *zap.Logger) *Submitter {
	return &Submitter{
		api:      api,
		validate: validator.New(),
		logger:   logger.OrNop(log),
	}
}

// Submit creates the order (once per session) and its payment. Incomplete
// drafts fail with a validation error before any network call. A session-expired
// error is returned unchanged; other failures come back as *SubmissionError.
// On success the session is closed and the created payment returned.
func (s *Submitter) Submit(ctx context.Context, session *Session) (*models.Payment, error) {
	snap := session.Snapshot()
	if snap.Closed {
		return nil, ErrSessionClosed
	}
	if !snap.CanSubmit {
		return nil, models.ValidationError("submit checkout", "checkout is incomplete, missing %s", strings.Join(snap.Missing, ", "))
	}

	orderReq := OrderRequest(snap)
	if err := s.validateStruct("submit checkout", orderReq); err != nil {
		return nil, err
	}

	orderID := snap.OrderID
	if orderID == "" {
		order, err := s.api.CreateOrder(ctx, orderReq, snap.IdempotencyKey)
		if err != nil {
			return nil, s.failure("order", err)
		}
		orderID = order.ID
		if !session.RecordOrder(snap.IdempotencyKey, orderID) {
			s.logger.Warn("checkout changed while the order was being created", zap.String("order_id", orderID))
			return nil, &SubmissionError{
				Stage:   "order",
				Message: "Your cart changed while the order was being placed. Please review it and try again.",
				Err:     models.NewError(models.KindConflict, "submit checkout", "draft changed during submission", nil),
			}
		}
		s.logger.Info("order created", zap.String("order_id", orderID), zap.Int64("total", orderReq.Total))
	} else {
		s.logger.Info("reusing order from earlier attempt", zap.String("order_id", orderID))
	}

	payReq := models.CreatePaymentRequest{
		OrderID: orderID,
		Method:  snap.Draft.PaymentMethod,
		Bank:    snap.Draft.Bank,
	}
	if err := s.validateStruct("submit checkout", payReq); err != nil {
		return nil, err
	}

	payment, err := s.api.CreatePayment(ctx, payReq)
	if err != nil {
		return nil, s.failure("payment", err)
	}

	session.Close()
	s.logger.Info("payment created",
		zap.String("order_id", orderID),
		zap.String("payment_id", payment.ID),
		zap.String("status", payment.Status.String()))
	return payment, nil
}

// OrderRequest builds the order API request from a session snapshot.
func OrderRequest(snap Snapshot) models.CreateOrderRequest {
	req := models.CreateOrderRequest{
		Items:               append([]models.LineItem(nil), snap.Draft.Items...),
		ShippingAddressID:   snap.Draft.ShippingAddressID,
		UseInsurance:        snap.Draft.UseInsurance,
		UseWarranty:         snap.Draft.UseWarranty,
		WarrantyCostPerItem: snap.Draft.WarrantyCostPerItem,
		Bonus:               snap.Draft.Bonus,
		Note:                snap.Draft.Note,
		Total:               snap.Summary.AmountDue(),
	}
	if snap.Draft.Shipping != nil {
		req.ShippingOptionID = snap.Draft.Shipping.ID
	}
	return req
}

func (s *Submitter) validateStruct(op string, v interface{}) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return models.NewError(models.KindValidation, op, "invalid request", err)
	}
	msgs := make([]string, len(fieldErrs))
	for i, fe := range fieldErrs {
		msgs[i] = fmt.Sprintf("field '%s' failed on the '%s' tag", fe.Namespace(), fe.Tag())
	}
	return models.ValidationError(op, "%s", strings.Join(msgs, ", "))
}

func (s *Submitter) failure(stage string, err error) error {
	if errors.Is(err, models.ErrSessionExpired) {
		s.logger.Warn("session expired during submission", zap.String("stage", stage))
		return err
	}
	s.logger.Error("checkout submission failed", zap.String("stage", stage), zap.Error(err))
	return &SubmissionError{Stage: stage, Message: customerMessage(stage, err), Err: err}
}

func customerMessage(stage string, err error) string {
	var apiErr *models.Error
	switch models.KindOf(err) {
	case models.KindNetwork:
		return "We could not reach the store. Check your connection and try again."
	case models.KindServer:
		return "The store could not process your " + stage + " right now. Please try again."
	case models.KindValidation, models.KindConflict, models.KindNotFound:
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			return apiErr.Message
		}
	}
	if stage == "payment" {
		return "Payment could not be created. Please try again."
	}
	return "Order could not be created. Please try again."
}
