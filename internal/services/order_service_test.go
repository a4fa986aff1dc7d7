package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"tokocheckout/internal/models"
	"tokocheckout/internal/pricing"
	"tokocheckout/internal/repositories"
	"tokocheckout/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockEventPublisher is a mock implementation of services.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(exchange, routingKey string, body []byte) error {
	args := m.Called(exchange, routingKey, body)
	return args.Error(0)
}

type orderFixture struct {
	orders    *repositories.MockOrderRepository
	payments  *repositories.MockPaymentRepository
	publisher *MockEventPublisher
	service   *services.OrderService
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	products := repositories.NewMockProductRepository()
	require.NoError(t, products.Create(&models.Product{ID: "prod-1", Name: "Laptop", Price: 100000, OriginalPrice: 120000, Stock: 10}))
	require.NoError(t, products.Create(&models.Product{ID: "prod-2", Name: "Mouse", Price: 25000, Stock: 1}))
	shipping := repositories.NewMockShippingOptionRepository()
	require.NoError(t, shipping.Create(&models.ShippingOption{ID: "jne-reg", Carrier: "JNE", Service: "REG", Cost: 7000, InsuranceCost: 300, InsuranceAvailable: true}))

	f := &orderFixture{
		orders:    repositories.NewMockOrderRepository(),
		payments:  repositories.NewMockPaymentRepository(),
		publisher: new(MockEventPublisher),
	}
	f.service = services.NewOrderService(f.orders, products, shipping, repositories.NewMemoryIdempotencyStore(), f.publisher, services.OrderSettings{
		Fees:                pricing.Fees{ServiceFee: 1000},
		WarrantyCostPerItem: 1100,
		MaxBonus:            5000,
		IdempotencyTTL:      time.Hour,
	}, nil)
	return f
}

// laptopOrder is the two-laptop checkout totalling 168800.
func laptopOrder() models.CreateOrderRequest {
	return models.CreateOrderRequest{
		Items:               []models.LineItem{{ProductID: "prod-1", Quantity: 2, Price: 1}},
		ShippingAddressID:   "addr-1",
		ShippingOptionID:    "jne-reg",
		UseInsurance:        true,
		UseWarranty:         true,
		WarrantyCostPerItem: 1100,
		Bonus:               1700,
		Total:               168800,
	}
}

func TestOrderService_CreateOrder(t *testing.T) {
	f := newOrderFixture(t)
	f.publisher.On("Publish", services.ExchangeOrder, services.RoutingOrderCreated, mock.MatchedBy(func(body []byte) bool {
		var e services.OrderEvent
		return json.Unmarshal(body, &e) == nil && e.Total == 168800 && e.UserID == "user-1"
	})).Return(nil).Once()

	order, created, err := f.service.CreateOrder(context.Background(), "user-1", laptopOrder(), "")

	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.OrderStatusWaitingForPayment, order.Status)
	assert.Equal(t, int64(168800), order.TotalAmount)
	assert.Equal(t, int64(200000), order.Subtotal)
	assert.Equal(t, int64(40000), order.TotalDiscount)
	assert.Equal(t, "JNE", order.Carrier)
	require.Len(t, order.Items, 1)
	assert.Equal(t, int64(100000), order.Items[0].Price, "catalogue price wins over the client's")
	f.publisher.AssertExpectations(t)
}

func TestOrderService_CreateOrderTotalMismatch(t *testing.T) {
	f := newOrderFixture(t)
	req := laptopOrder()
	req.Total = 170500

	_, _, err := f.service.CreateOrder(context.Background(), "user-1", req, "")

	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Contains(t, err.Error(), "order total does not match")
	orders, _ := f.orders.ListByUser("user-1")
	assert.Empty(t, orders)
	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderService_CreateOrderRejectsBonusAboveCredit(t *testing.T) {
	f := newOrderFixture(t)
	req := laptopOrder()
	req.Bonus = 10_000_000
	req.Total = 0

	_, _, err := f.service.CreateOrder(context.Background(), "user-1", req, "key-bonus")

	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Contains(t, err.Error(), "exceeds the available credit")
	orders, _ := f.orders.ListByUser("user-1")
	assert.Empty(t, orders)
	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderService_CreateOrderAcceptsBonusAtCredit(t *testing.T) {
	f := newOrderFixture(t)
	f.publisher.On("Publish", services.ExchangeOrder, services.RoutingOrderCreated, mock.Anything).Return(nil).Once()
	req := laptopOrder()
	req.Bonus = 5000
	req.Total = 165500

	order, _, err := f.service.CreateOrder(context.Background(), "user-1", req, "")

	require.NoError(t, err)
	assert.Equal(t, int64(5000), order.Bonus)
	assert.Equal(t, int64(165500), order.TotalAmount)
}

func TestOrderService_CreateOrderRejectsUnknownReferences(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	req := laptopOrder()
	req.Items[0].ProductID = "prod-404"
	_, _, err := f.service.CreateOrder(ctx, "user-1", req, "")
	assert.ErrorIs(t, err, models.ErrValidation)

	req = laptopOrder()
	req.ShippingOptionID = "pos"
	_, _, err = f.service.CreateOrder(ctx, "user-1", req, "")
	assert.ErrorIs(t, err, models.ErrValidation)

	req = laptopOrder()
	req.Items = []models.LineItem{{ProductID: "prod-2", Quantity: 2}}
	_, _, err = f.service.CreateOrder(ctx, "user-1", req, "")
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Contains(t, err.Error(), "insufficient stock")
}

func TestOrderService_IdempotencyKeyReplaysOrder(t *testing.T) {
	f := newOrderFixture(t)
	f.publisher.On("Publish", services.ExchangeOrder, services.RoutingOrderCreated, mock.Anything).Return(nil).Once()
	ctx := context.Background()

	first, created, err := f.service.CreateOrder(ctx, "user-1", laptopOrder(), "key-1")
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := f.service.CreateOrder(ctx, "user-1", laptopOrder(), "key-1")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	orders, _ := f.orders.ListByUser("user-1")
	assert.Len(t, orders, 1)
	f.publisher.AssertExpectations(t)
}

func TestOrderService_IdempotencyKeyIsScopedPerUser(t *testing.T) {
	f := newOrderFixture(t)
	f.publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	ctx := context.Background()

	a, _, err := f.service.CreateOrder(ctx, "user-1", laptopOrder(), "key-1")
	require.NoError(t, err)
	b, created, err := f.service.CreateOrder(ctx, "user-2", laptopOrder(), "key-1")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestOrderService_FailedAttemptReleasesKey(t *testing.T) {
	f := newOrderFixture(t)
	f.publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	ctx := context.Background()

	bad := laptopOrder()
	bad.Total = 1
	_, _, err := f.service.CreateOrder(ctx, "user-1", bad, "key-1")
	require.Error(t, err)

	order, created, err := f.service.CreateOrder(ctx, "user-1", laptopOrder(), "key-1")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, order.ID)
}

func TestOrderService_PublishFailureDoesNotFailOrder(t *testing.T) {
	f := newOrderFixture(t)
	f.publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("channel closed")).Once()

	order, _, err := f.service.CreateOrder(context.Background(), "user-1", laptopOrder(), "")

	require.NoError(t, err)
	assert.NotEmpty(t, order.ID)
}

func TestOrderService_GetOrderHidesOtherUsers(t *testing.T) {
	f := newOrderFixture(t)
	f.publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	order, _, err := f.service.CreateOrder(context.Background(), "user-1", laptopOrder(), "")
	require.NoError(t, err)

	got, err := f.service.GetOrder("user-1", order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	_, err = f.service.GetOrder("user-2", order.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestOrderService_ApplyPaymentStatus(t *testing.T) {
	f := newOrderFixture(t)
	f.publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	order, _, err := f.service.CreateOrder(context.Background(), "user-1", laptopOrder(), "")
	require.NoError(t, err)

	require.NoError(t, f.service.ApplyPaymentStatus(order.ID, models.PaymentStatusSuccess))
	got, _ := f.service.GetOrder("user-1", order.ID)
	assert.Equal(t, models.OrderStatusPaid, got.Status)

	assert.ErrorIs(t, f.service.ApplyPaymentStatus("missing", models.PaymentStatusFailed), models.ErrNotFound)
}
