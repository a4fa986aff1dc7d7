package models

import (
	"time"

	"gorm.io/gorm"
)

// Product represents a product in the store. Prices are whole Rupiah.
type Product struct {
	ID            string         `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Name          string         `json:"name" validate:"required,min=3,max=100"`
	Description   string         `json:"description" validate:"omitempty,max=500"`
	Price         int64          `json:"price" validate:"required,gt=0"`
	OriginalPrice int64          `json:"original_price" validate:"omitempty,gtefield=Price"`
	Stock         int            `json:"stock" validate:"gte=0"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`
}

// LineItem converts the product into a checkout line item for the given quantity.
func (p Product) LineItem(quantity int) LineItem {
	return LineItem{
		ProductID:     p.ID,
		ProductName:   p.Name,
		Quantity:      quantity,
		Price:         p.Price,
		OriginalPrice: p.OriginalPrice,
	}
}
