package api

import (
	"context"
	"net/url"

	"tokocheckout/internal/models"

	"go.uber.org/zap"
)

// ListProducts returns the catalogue.
func (c *Client) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := c.do(ctx, request{op: "list products", method: "GET", path: "/products", auth: true}, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// GetProduct returns one product.
func (c *Client) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := c.do(ctx, request{op: "get product", method: "GET", path: "/products/" + url.PathEscape(id), auth: true}, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// ListShippingOptions returns the carriers and services available for checkout.
func (c *Client) ListShippingOptions(ctx context.Context) ([]models.ShippingOption, error) {
	var options []models.ShippingOption
	if err := c.do(ctx, request{op: "list shipping options", method: "GET", path: "/shipping-options", auth: true}, &options); err != nil {
		return nil, err
	}
	return options, nil
}

// CreateOrder submits an order. Repeating the call with the same idempotency
// key returns the order created by the first call.
func (c *Client) CreateOrder(ctx context.Context, req models.CreateOrderRequest, idempotencyKey string) (*models.Order, error) {
	var order models.Order
	r := request{op: "create order", method: "POST", path: "/orders", body: req, auth: true}
	if idempotencyKey != "" {
		r.headers = map[string]string{"Idempotency-Key": idempotencyKey}
	}
	if err := c.do(ctx, r, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrders returns the customer's orders.
func (c *Client) ListOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := c.do(ctx, request{op: "list orders", method: "GET", path: "/orders", auth: true}, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// GetOrder returns one order.
func (c *Client) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := c.do(ctx, request{op: "get order", method: "GET", path: "/orders/" + url.PathEscape(id), auth: true}, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// CreatePayment opens a payment for an order.
func (c *Client) CreatePayment(ctx context.Context, req models.CreatePaymentRequest) (*models.Payment, error) {
	var payment models.Payment
	if err := c.do(ctx, request{op: "create payment", method: "POST", path: "/payments", body: req, auth: true}, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetPayment returns a payment as stored, without refreshing its status.
func (c *Client) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	var payment models.Payment
	if err := c.do(ctx, request{op: "get payment", method: "GET", path: "/payments/" + url.PathEscape(id), auth: true}, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// CheckStatus asks the server to refresh and return the payment's status.
// Concurrent checks of one payment share a single request, run under the
// context of the caller that started it.
func (c *Client) CheckStatus(ctx context.Context, paymentID string) (*models.Payment, error) {
	v, err, shared := c.statusChecks.Do(paymentID, func() (interface{}, error) {
		var payment models.Payment
		path := "/payments/" + url.PathEscape(paymentID) + "/status"
		if err := c.do(ctx, request{op: "check status", method: "GET", path: path, auth: true}, &payment); err != nil {
			return nil, err
		}
		if !payment.Status.IsValid() {
			return nil, models.NewError(models.KindServer, "check status", "unknown payment status "+string(payment.Status), nil)
		}
		return &payment, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug("joined in-flight status check", zap.String("payment_id", paymentID))
	}
	payment := *v.(*models.Payment)
	return &payment, nil
}

// SimulatePayment settles a payment on the sandbox server.
func (c *Client) SimulatePayment(ctx context.Context, paymentID string, status models.PaymentStatus) (*models.Payment, error) {
	var payment models.Payment
	path := "/payments/" + url.PathEscape(paymentID) + "/simulate"
	body := models.SimulatePaymentRequest{Status: status}
	if err := c.do(ctx, request{op: "simulate payment", method: "POST", path: path, body: body, auth: true}, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}
