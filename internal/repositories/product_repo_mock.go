package repositories

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"tokocheckout/internal/models"

	"github.com/google/uuid"
)

// MockProductRepository keeps the catalogue in memory. It mirrors the GORM
// repository: listing is ordered by name and ids are unique.
type MockProductRepository struct {
	mu      sync.RWMutex
	catalog map[string]models.Product
}

func NewMockProductRepository() *MockProductRepository {
	return &MockProductRepository{catalog: make(map[string]models.Product)}
}

func (r *MockProductRepository) GetAll() ([]models.Product, error) {
	r.mu.RLock()
	out := make([]models.Product, 0, len(r.catalog))
	for _, p := range r.catalog {
		out = append(out, p)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MockProductRepository) GetByID(id string) (*models.Product, error) {
	r.mu.RLock()
	p, ok := r.catalog[id]
	r.mu.RUnlock()
	if !ok {
		return nil, notFound("product", id)
	}
	return &p, nil
}

// Create stores product, assigning an id and timestamps. A taken id is a conflict.
func (r *MockProductRepository) Create(product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if _, taken := r.catalog[product.ID]; taken {
		return models.NewError(models.KindConflict, "create product", fmt.Sprintf("product %s already exists", product.ID), nil)
	}
	now := time.Now()
	product.CreatedAt, product.UpdatedAt = now, now
	r.catalog[product.ID] = *product
	return nil
}
