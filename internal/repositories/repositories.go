// Package repositories persists the sandbox store's catalogue, orders and payments.
// Every repository has a GORM implementation and an in-memory one.
// Lookups of missing records fail with an error matching models.ErrNotFound.
package repositories

import "tokocheckout/internal/models"

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	GetAll() ([]models.Product, error)
	GetByID(id string) (*models.Product, error)
	Create(product *models.Product) error
}

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(user *models.User) error
	GetByUsername(username string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByID(id string) (*models.User, error)
}

// ShippingOptionRepository defines the interface for shipping option data access.
type ShippingOptionRepository interface {
	GetAll() ([]models.ShippingOption, error)
	GetByID(id string) (*models.ShippingOption, error)
	Create(option *models.ShippingOption) error
}

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	ListByUser(userID string) ([]models.Order, error)
	GetByID(id string) (*models.Order, error)
	Create(order *models.Order) error
	UpdateStatus(id string, status string) error
}

// PaymentRepository defines the interface for payment data access.
type PaymentRepository interface {
	GetByID(id string) (*models.Payment, error)
	// GetOpenByOrderID returns the pending payment of an order, if any.
	GetOpenByOrderID(orderID string) (*models.Payment, error)
	Create(payment *models.Payment) error
	Update(payment *models.Payment) error
}

func notFound(kind, id string) error {
	return models.NewError(models.KindNotFound, "", kind+" with ID "+id+" not found", nil)
}
