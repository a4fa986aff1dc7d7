package services

import (
	"tokocheckout/internal/models"
	"tokocheckout/internal/repositories"
)

// CatalogService serves products and shipping options.
type CatalogService struct {
	products repositories.ProductRepository
	shipping repositories.ShippingOptionRepository
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(products repositories.ProductRepository, shipping repositories.ShippingOptionRepository) *CatalogService {
	return &CatalogService{products: products, shipping: shipping}
}

func (s *CatalogService) GetAllProducts() ([]models.Product, error) {
	return s.products.GetAll()
}

func (s *CatalogService) GetProductByID(id string) (*models.Product, error) {
	return s.products.GetByID(id)
}

// CreateProduct stores a product; used to seed the sandbox catalogue.
func (s *CatalogService) CreateProduct(product *models.Product) error {
	if product.OriginalPrice != 0 && product.OriginalPrice < product.Price {
		return models.ValidationError("create product", "original price %d is below price %d", product.OriginalPrice, product.Price)
	}
	return s.products.Create(product)
}

func (s *CatalogService) GetShippingOptions() ([]models.ShippingOption, error) {
	return s.shipping.GetAll()
}

// CreateShippingOption stores a shipping option; used to seed the sandbox.
func (s *CatalogService) CreateShippingOption(option *models.ShippingOption) error {
	if option.InsuranceCost > 0 && !option.InsuranceAvailable {
		return models.ValidationError("create shipping option", "insurance cost set on %s without insurance", option.ID)
	}
	return s.shipping.Create(option)
}
