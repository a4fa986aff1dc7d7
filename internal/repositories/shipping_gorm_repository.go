package repositories

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"tokocheckout/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMShippingOptionRepository is a GORM implementation of ShippingOptionRepository.
type GORMShippingOptionRepository struct {
	db *gorm.DB
}

// NewGORMShippingOptionRepository creates a new instance of GORMShippingOptionRepository.
func NewGORMShippingOptionRepository(db *gorm.DB) *GORMShippingOptionRepository {
	return &GORMShippingOptionRepository{db: db}
}

// GetAll returns every option, cheapest first.
func (r *GORMShippingOptionRepository) GetAll() ([]models.ShippingOption, error) {
	var options []models.ShippingOption
	if err := r.db.Order("cost").Order("id").Find(&options).Error; err != nil {
		return nil, fmt.Errorf("failed to get shipping options: %w", err)
	}
	return options, nil
}

func (r *GORMShippingOptionRepository) GetByID(id string) (*models.ShippingOption, error) {
	var option models.ShippingOption
	if err := r.db.First(&option, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("shipping option", id)
		}
		return nil, fmt.Errorf("failed to get shipping option %s: %w", id, err)
	}
	return &option, nil
}

func (r *GORMShippingOptionRepository) Create(option *models.ShippingOption) error {
	if option.ID == "" {
		option.ID = uuid.New().String()
	}
	if err := r.db.Create(option).Error; err != nil {
		return fmt.Errorf("failed to create shipping option: %w", err)
	}
	return nil
}

// MockShippingOptionRepository is an in-memory implementation of ShippingOptionRepository.
type MockShippingOptionRepository struct {
	options map[string]models.ShippingOption
	mu      sync.RWMutex
}

// NewMockShippingOptionRepository creates a new instance of MockShippingOptionRepository.
func NewMockShippingOptionRepository() *MockShippingOptionRepository {
	return &MockShippingOptionRepository{options: make(map[string]models.ShippingOption)}
}

func (r *MockShippingOptionRepository) GetAll() ([]models.ShippingOption, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]models.ShippingOption, 0, len(r.options))
	for _, o := range r.options {
		list = append(list, o)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Cost != list[j].Cost {
			return list[i].Cost < list[j].Cost
		}
		return list[i].ID < list[j].ID
	})
	return list, nil
}

func (r *MockShippingOptionRepository) GetByID(id string) (*models.ShippingOption, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	option, ok := r.options[id]
	if !ok {
		return nil, notFound("shipping option", id)
	}
	return &option, nil
}

func (r *MockShippingOptionRepository) Create(option *models.ShippingOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if option.ID == "" {
		option.ID = uuid.New().String()
	}
	r.options[option.ID] = *option
	return nil
}
