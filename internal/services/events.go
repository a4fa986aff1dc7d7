package services

import (
	"encoding/json"

	"go.uber.org/zap"
)

// Exchanges and routing keys of the events published by the store.
const (
	ExchangeOrder   = "order"
	ExchangePayment = "payment"

	RoutingOrderCreated         = "order.created"
	RoutingPaymentCreated       = "payment.created"
	RoutingPaymentStatusChanged = "payment.status_changed"
)

// EventPublisher sends an event body to an exchange.
type EventPublisher interface {
	Publish(exchange, routingKey string, body []byte) error
}

// OrderEvent is the body of order events.
type OrderEvent struct {
	OrderID string `json:"order_id"`
	UserID  string `json:"user_id"`
	Status  string `json:"status"`
	Total   int64  `json:"total"`
}

// PaymentEvent is the body of payment events.
type PaymentEvent struct {
	PaymentID string `json:"payment_id"`
	OrderID   string `json:"order_id"`
	Status    string `json:"status"`
	Method    string `json:"method"`
	Amount    int64  `json:"amount"`
}

// publishEvent sends event when a publisher is configured. Failures are logged
// and never fail the request that produced the event.
func publishEvent(pub EventPublisher, log *zap.Logger, exchange, routingKey string, event interface{}) {
	if pub == nil {
		log.Debug("event publishing disabled", zap.String("routing_key", routingKey))
		return
	}
	body, err := json.Marshal(event)
	if err != nil {
		log.Error("failed to marshal event", zap.String("routing_key", routingKey), zap.Error(err))
		return
	}
	if err := pub.Publish(exchange, routingKey, body); err != nil {
		log.Warn("failed to publish event", zap.String("routing_key", routingKey), zap.Error(err))
		return
	}
	log.Debug("event published", zap.String("routing_key", routingKey))
}
