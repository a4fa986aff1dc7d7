package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tokocheckout/internal/models"
	"tokocheckout/internal/pricing"
	"tokocheckout/internal/repositories"
	"tokocheckout/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderSettings are the pricing constants and limits the order service enforces.
type OrderSettings struct {
	Fees                pricing.Fees
	WarrantyCostPerItem int64
	// MaxBonus caps the bonus credit a customer may apply to one order.
	// Zero disables bonuses.
	MaxBonus       int64
	IdempotencyTTL time.Duration
}

// OrderService prices and stores orders.
type OrderService struct {
	orderRepo    repositories.OrderRepository
	productRepo  repositories.ProductRepository
	shippingRepo repositories.ShippingOptionRepository
	idempotency  repositories.IdempotencyStore
	publisher    EventPublisher
	settings     OrderSettings
	logger       *zap.Logger
}

// NewOrderService creates a new OrderService. publisher may be nil.
func NewOrderService(
	orderRepo repositories.OrderRepository,
	productRepo repositories.ProductRepository,
	shippingRepo repositories.ShippingOptionRepository,
	idempotency repositories.IdempotencyStore,
	publisher EventPublisher,
	settings OrderSettings,
	log *zap.Logger,
) *OrderService {
	if settings.IdempotencyTTL <= 0 {
		settings.IdempotencyTTL = 24 * time.Hour
	}
	return &OrderService{
		orderRepo:    orderRepo,
		productRepo:  productRepo,
		shippingRepo: shippingRepo,
		idempotency:  idempotency,
		publisher:    publisher,
		settings:     settings,
		logger:       logger.OrNop(log),
	}
}

// GetOrders returns the orders of userID.
func (s *OrderService) GetOrders(userID string) ([]models.Order, error) {
	return s.orderRepo.ListByUser(userID)
}

// GetOrder returns an order owned by userID. Orders of other users are not found.
func (s *OrderService) GetOrder(userID, id string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, models.NewError(models.KindNotFound, "get order", fmt.Sprintf("order with ID %s not found", id), nil)
	}
	return order, nil
}

// CreateOrder prices req with catalogue prices and stores the order. The
// client's total must equal the recomputed amount due. A repeated
// idempotencyKey returns the first order and created=false.
func (s *OrderService) CreateOrder(ctx context.Context, userID string, req models.CreateOrderRequest, idempotencyKey string) (order *models.Order, created bool, err error) {
	if idempotencyKey == "" {
		order, err = s.placeOrder(userID, req, uuid.New().String())
		return order, err == nil, err
	}

	scoped := userID + ":" + idempotencyKey
	orderID := uuid.New().String()
	existing, reserved, err := s.idempotency.Reserve(ctx, scoped, orderID, s.settings.IdempotencyTTL)
	if err != nil {
		return nil, false, fmt.Errorf("failed to reserve idempotency key: %w", err)
	}
	if !reserved {
		s.logger.Info("replaying order for idempotency key", zap.String("order_id", existing), zap.String("user_id", userID))
		order, err := s.orderRepo.GetByID(existing)
		if errors.Is(err, models.ErrNotFound) {
			return nil, false, models.NewError(models.KindConflict, "create order", "an order with this idempotency key is still being processed", nil)
		}
		if err != nil {
			return nil, false, err
		}
		return order, false, nil
	}

	order, err = s.placeOrder(userID, req, orderID)
	if err != nil {
		if relErr := s.idempotency.Release(ctx, scoped); relErr != nil {
			s.logger.Warn("failed to release idempotency key", zap.Error(relErr))
		}
		return nil, false, err
	}
	return order, true, nil
}

func (s *OrderService) placeOrder(userID string, req models.CreateOrderRequest, orderID string) (*models.Order, error) {
	draft, err := s.draftFor(req)
	if err != nil {
		return nil, err
	}
	summary := pricing.Calculate(draft, s.settings.Fees)
	if summary.AmountDue() != req.Total {
		s.logger.Info("order total mismatch",
			zap.String("user_id", userID),
			zap.Int64("client_total", req.Total),
			zap.Int64("server_total", summary.AmountDue()))
		return nil, models.NewError(models.KindValidation, "create order",
			fmt.Sprintf("order total does not match, expected %d, please review your cart", summary.AmountDue()), nil)
	}

	order := &models.Order{
		ID:                orderID,
		UserID:            userID,
		ShippingAddressID: req.ShippingAddressID,
		ShippingOptionID:  draft.Shipping.ID,
		Carrier:           draft.Shipping.Carrier,
		Note:              req.Note,
		Status:            models.OrderStatusWaitingForPayment,
	}
	for _, item := range draft.Items {
		order.Items = append(order.Items, models.OrderItem{
			ProductID:     item.ProductID,
			ProductName:   item.ProductName,
			Quantity:      item.Quantity,
			Price:         item.Price,
			OriginalPrice: item.OriginalPrice,
		})
	}
	order.ApplySummary(summary)

	if err := s.orderRepo.Create(order); err != nil {
		return nil, fmt.Errorf("failed to create order in repository: %w", err)
	}
	s.logger.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("user_id", userID),
		zap.Int64("total", order.TotalAmount))

	publishEvent(s.publisher, s.logger, ExchangeOrder, RoutingOrderCreated, OrderEvent{
		OrderID: order.ID,
		UserID:  order.UserID,
		Status:  order.Status,
		Total:   order.TotalAmount,
	})
	return order, nil
}

// draftFor rebuilds the checkout draft from catalogue data. Client prices are ignored.
func (s *OrderService) draftFor(req models.CreateOrderRequest) (models.CheckoutDraft, error) {
	draft := models.CheckoutDraft{
		ShippingAddressID: req.ShippingAddressID,
		UseInsurance:      req.UseInsurance,
		UseWarranty:       req.UseWarranty,
		Bonus:             req.Bonus,
		Note:              req.Note,
	}
	if req.UseWarranty {
		draft.WarrantyCostPerItem = s.settings.WarrantyCostPerItem
	}
	if req.Bonus > s.settings.MaxBonus {
		return draft, models.ValidationError("create order", "bonus %d exceeds the available credit of %d", req.Bonus, s.settings.MaxBonus)
	}

	for _, item := range req.Items {
		product, err := s.productRepo.GetByID(item.ProductID)
		if errors.Is(err, models.ErrNotFound) {
			return draft, models.ValidationError("create order", "product %s does not exist", item.ProductID)
		}
		if err != nil {
			return draft, err
		}
		if product.Stock < item.Quantity {
			return draft, models.ValidationError("create order", "insufficient stock for product %s (requested: %d, available: %d)", product.Name, item.Quantity, product.Stock)
		}
		draft.Items = append(draft.Items, product.LineItem(item.Quantity))
	}
	if err := pricing.ValidateItems(draft.Items); err != nil {
		return draft, err
	}

	option, err := s.shippingRepo.GetByID(req.ShippingOptionID)
	if errors.Is(err, models.ErrNotFound) {
		return draft, models.ValidationError("create order", "shipping option %s does not exist", req.ShippingOptionID)
	}
	if err != nil {
		return draft, err
	}
	draft.Shipping = option
	return draft, nil
}

// ApplyPaymentStatus moves the order to the status implied by a payment status.
func (s *OrderService) ApplyPaymentStatus(orderID string, status models.PaymentStatus) error {
	next := models.OrderStatusFor(status)
	if err := s.orderRepo.UpdateStatus(orderID, next); err != nil {
		return fmt.Errorf("failed to update status for order %s: %w", orderID, err)
	}
	s.logger.Info("order status updated", zap.String("order_id", orderID), zap.String("status", next))
	return nil
}
