package checkout_test

import (
	"context"
	"errors"
	"testing"

	"tokocheckout/internal/checkout"
	"tokocheckout/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockOrderPlacer is a mock implementation of checkout.OrderPlacer
type MockOrderPlacer struct {
	mock.Mock
}

func (m *MockOrderPlacer) CreateOrder(ctx context.Context, req models.CreateOrderRequest, idempotencyKey string) (*models.Order, error) {
	args := m.Called(ctx, req, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderPlacer) CreatePayment(ctx context.Context, req models.CreatePaymentRequest) (*models.Payment, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func TestSubmitter_Submit(t *testing.T) {
	ctx := context.Background()
	session := newTestSession(t)
	placer := new(MockOrderPlacer)
	submitter := checkout.NewSubmitter(placer, nil)

	key := session.IdempotencyKey()
	placer.On("CreateOrder", ctx, mock.MatchedBy(func(req models.CreateOrderRequest) bool {
		return req.Total == 168800 && req.ShippingOptionID == "jne-reg" && len(req.Items) == 1
	}), key).Return(&models.Order{ID: "order-1"}, nil).Once()
	placer.On("CreatePayment", ctx, models.CreatePaymentRequest{
		OrderID: "order-1",
		Method:  models.PaymentMethodBankTransfer,
		Bank:    models.BankBCA,
	}).Return(&models.Payment{ID: "pay-1", OrderID: "order-1", Status: models.PaymentStatusPending}, nil).Once()

	payment, err := submitter.Submit(ctx, session)

	require.NoError(t, err)
	assert.Equal(t, "pay-1", payment.ID)
	assert.Equal(t, "order-1", session.OrderID())
	assert.True(t, session.Snapshot().Closed)
	placer.AssertExpectations(t)
}

func TestSubmitter_DraftChangedDuringOrderCreation(t *testing.T) {
	ctx := context.Background()
	session := newTestSession(t)
	placer := new(MockOrderPlacer)
	submitter := checkout.NewSubmitter(placer, nil)

	placer.On("CreateOrder", ctx, mock.Anything, session.IdempotencyKey()).
		Run(func(mock.Arguments) { require.NoError(t, session.SetQuantity(0, 1)) }).
		Return(&models.Order{ID: "order-1"}, nil).Once()

	payment, err := submitter.Submit(ctx, session)

	assert.Nil(t, payment)
	var subErr *checkout.SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, "order", subErr.Stage)
	assert.ErrorIs(t, err, models.ErrConflict)
	assert.Empty(t, session.OrderID())
	assert.False(t, session.Snapshot().Closed)
	placer.AssertNotCalled(t, "CreatePayment", mock.Anything, mock.Anything)
}

func TestSubmitter_IncompleteDraftMakesNoCalls(t *testing.T) {
	session := newTestSession(t)
	require.NoError(t, session.SelectShipping(nil))
	placer := new(MockOrderPlacer)
	submitter := checkout.NewSubmitter(placer, nil)

	payment, err := submitter.Submit(context.Background(), session)

	assert.Nil(t, payment)
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Contains(t, err.Error(), "shipping_option")
	placer.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything)
	placer.AssertNotCalled(t, "CreatePayment", mock.Anything, mock.Anything)
}

func TestSubmitter_ClosedSession(t *testing.T) {
	session := newTestSession(t)
	session.Close()
	submitter := checkout.NewSubmitter(new(MockOrderPlacer), nil)

	_, err := submitter.Submit(context.Background(), session)
	assert.ErrorIs(t, err, checkout.ErrSessionClosed)
}

func TestSubmitter_OrderFailureKeepsDraft(t *testing.T) {
	ctx := context.Background()
	session := newTestSession(t)
	before := session.Snapshot()
	placer := new(MockOrderPlacer)
	submitter := checkout.NewSubmitter(placer, nil)

	serverErr := models.NewError(models.KindServer, "create order", "internal server error", nil)
	placer.On("CreateOrder", ctx, mock.Anything, mock.Anything).Return(nil, serverErr).Once()

	_, err := submitter.Submit(ctx, session)

	var subErr *checkout.SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, "order", subErr.Stage)
	assert.NotEmpty(t, subErr.Message)
	assert.ErrorIs(t, err, models.ErrServer)
	assert.Equal(t, before, session.Snapshot())
	assert.True(t, session.CanSubmit())
	placer.AssertNotCalled(t, "CreatePayment", mock.Anything, mock.Anything)
}

func TestSubmitter_RetryReusesOrder(t *testing.T) {
	ctx := context.Background()
	session := newTestSession(t)
	placer := new(MockOrderPlacer)
	submitter := checkout.NewSubmitter(placer, nil)

	netErr := models.NewError(models.KindNetwork, "create payment", "", errors.New("timeout"))
	placer.On("CreateOrder", ctx, mock.Anything, mock.Anything).Return(&models.Order{ID: "order-1"}, nil).Once()
	placer.On("CreatePayment", ctx, mock.Anything).Return(nil, netErr).Once()

	_, err := submitter.Submit(ctx, session)
	var subErr *checkout.SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, "payment", subErr.Stage)
	assert.Equal(t, "order-1", session.OrderID())
	assert.False(t, session.Snapshot().Closed)

	placer.On("CreatePayment", ctx, mock.MatchedBy(func(req models.CreatePaymentRequest) bool {
		return req.OrderID == "order-1"
	})).Return(&models.Payment{ID: "pay-1", OrderID: "order-1", Status: models.PaymentStatusPending}, nil).Once()

	payment, err := submitter.Submit(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, "pay-1", payment.ID)
	placer.AssertNumberOfCalls(t, "CreateOrder", 1)
	placer.AssertExpectations(t)
}

func TestSubmitter_SessionExpiredPropagates(t *testing.T) {
	ctx := context.Background()
	session := newTestSession(t)
	placer := new(MockOrderPlacer)
	submitter := checkout.NewSubmitter(placer, nil)

	expired := models.NewError(models.KindSessionExpired, "create order", "session expired", nil)
	placer.On("CreateOrder", ctx, mock.Anything, mock.Anything).Return(nil, expired).Once()

	_, err := submitter.Submit(ctx, session)

	assert.Same(t, expired, err)
	assert.ErrorIs(t, err, models.ErrSessionExpired)
	var subErr *checkout.SubmissionError
	assert.False(t, errors.As(err, &subErr))
}

func TestSubmitter_ValidationMessageReachesCustomer(t *testing.T) {
	ctx := context.Background()
	session := newTestSession(t)
	placer := new(MockOrderPlacer)
	submitter := checkout.NewSubmitter(placer, nil)

	mismatch := models.NewError(models.KindValidation, "create order", "order total does not match, please review your cart", nil)
	placer.On("CreateOrder", ctx, mock.Anything, mock.Anything).Return(nil, mismatch).Once()

	_, err := submitter.Submit(ctx, session)

	var subErr *checkout.SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, "order total does not match, please review your cart", subErr.Message)
}

func TestOrderRequest_ChargesAmountDue(t *testing.T) {
	session := newTestSession(t)
	require.NoError(t, session.SetBonus(1_000_000))

	req := checkout.OrderRequest(session.Snapshot())

	assert.Less(t, session.Snapshot().Summary.Total, int64(0))
	assert.Zero(t, req.Total)
	assert.Equal(t, "jne-reg", req.ShippingOptionID)
	assert.Equal(t, int64(1100), req.WarrantyCostPerItem)
}
