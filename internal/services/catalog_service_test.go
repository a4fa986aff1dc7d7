package services_test

import (
	"fmt"
	"testing"

	"tokocheckout/internal/models"
	"tokocheckout/internal/repositories"
	"tokocheckout/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockProductRepository is a mock implementation of repositories.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetAll() ([]models.Product, error) {
	args := m.Called()
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockProductRepository) GetByID(id string) (*models.Product, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) Create(product *models.Product) error {
	args := m.Called(product)
	return args.Error(0)
}

func TestCatalogService_GetAllProducts(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewCatalogService(mockRepo, repositories.NewMockShippingOptionRepository())

	expectedProducts := []models.Product{
		{ID: "1", Name: "Product A", Price: 10000, Stock: 100},
		{ID: "2", Name: "Product B", Price: 20000, Stock: 50},
	}
	mockRepo.On("GetAll").Return(expectedProducts, nil).Once()

	products, err := service.GetAllProducts()

	assert.NoError(t, err)
	assert.Equal(t, expectedProducts, products)
	mockRepo.AssertExpectations(t)
}

func TestCatalogService_GetProductByID(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewCatalogService(mockRepo, repositories.NewMockShippingOptionRepository())

	expectedProduct := &models.Product{ID: "1", Name: "Product A", Price: 10000, Stock: 100}
	mockRepo.On("GetByID", "1").Return(expectedProduct, nil).Once()
	product, err := service.GetProductByID("1")
	assert.NoError(t, err)
	assert.Equal(t, expectedProduct, product)

	mockRepo.On("GetByID", "99").Return(nil, fmt.Errorf("product with ID 99 not found: %w", models.ErrNotFound)).Once()
	product, err = service.GetProductByID("99")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Nil(t, product)
	mockRepo.AssertExpectations(t)
}

func TestCatalogService_CreateProduct(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewCatalogService(mockRepo, repositories.NewMockShippingOptionRepository())

	newProduct := &models.Product{Name: "New Product", Price: 50000, OriginalPrice: 60000, Stock: 20}
	mockRepo.On("Create", newProduct).Return(nil).Once()
	assert.NoError(t, service.CreateProduct(newProduct))

	err := service.CreateProduct(&models.Product{Name: "Odd", Price: 50000, OriginalPrice: 40000})
	assert.ErrorIs(t, err, models.ErrValidation)
	mockRepo.AssertExpectations(t)
}

func TestCatalogService_ShippingOptions(t *testing.T) {
	service := services.NewCatalogService(new(MockProductRepository), repositories.NewMockShippingOptionRepository())

	assert.NoError(t, service.CreateShippingOption(&models.ShippingOption{ID: "sicepat", Carrier: "SiCepat", Cost: 9000}))
	assert.NoError(t, service.CreateShippingOption(&models.ShippingOption{ID: "jne-reg", Carrier: "JNE", Cost: 7000, InsuranceCost: 300, InsuranceAvailable: true}))
	assert.ErrorIs(t, service.CreateShippingOption(&models.ShippingOption{ID: "pos", Carrier: "POS", InsuranceCost: 100}), models.ErrValidation)

	options, err := service.GetShippingOptions()
	assert.NoError(t, err)
	if assert.Len(t, options, 2) {
		assert.Equal(t, "jne-reg", options[0].ID)
	}
}
