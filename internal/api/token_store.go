package api

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TokenStore keeps the bearer token of each client session.
// Get returns an empty token when none is stored.
type TokenStore interface {
	Get(ctx context.Context, session string) (string, error)
	Set(ctx context.Context, session, token string) error
	Delete(ctx context.Context, session string) error
}

// StoredToken is the row persisted by GORMTokenStore.
type StoredToken struct {
	Session   string `gorm:"primaryKey;type:varchar(100)"`
	Token     string `gorm:"type:text"`
	UpdatedAt time.Time
}

// GORMTokenStore is a GORM implementation of TokenStore.
type GORMTokenStore struct {
	db *gorm.DB
}

// NewGORMTokenStore creates a GORMTokenStore and migrates its table.
func NewGORMTokenStore(db *gorm.DB) (*GORMTokenStore, error) {
	if err := db.AutoMigrate(&StoredToken{}); err != nil {
		return nil, fmt.Errorf("failed to migrate token store: %w", err)
	}
	return &GORMTokenStore{db: db}, nil
}

// Get retrieves the token stored for session.
func (s *GORMTokenStore) Get(ctx context.Context, session string) (string, error) {
	var row StoredToken
	if err := s.db.WithContext(ctx).First(&row, "session = ?", session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to load token for session %s: %w", session, err)
	}
	return row.Token, nil
}

// Set stores token for session, replacing any previous one.
func (s *GORMTokenStore) Set(ctx context.Context, session, token string) error {
	row := StoredToken{Session: session, Token: token}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session"}},
		DoUpdates: clause.AssignmentColumns([]string{"token", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save token for session %s: %w", session, err)
	}
	return nil
}

// Delete removes the token of session. Deleting a missing token is not an error.
func (s *GORMTokenStore) Delete(ctx context.Context, session string) error {
	if err := s.db.WithContext(ctx).Delete(&StoredToken{}, "session = ?", session).Error; err != nil {
		return fmt.Errorf("failed to delete token for session %s: %w", session, err)
	}
	return nil
}

// MemoryTokenStore is an in-memory implementation of TokenStore.
type MemoryTokenStore struct {
	tokens map[string]string
	mu     sync.RWMutex
}

// NewMemoryTokenStore creates an empty MemoryTokenStore.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[string]string)}
}

func (s *MemoryTokenStore) Get(_ context.Context, session string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens[session], nil
}

func (s *MemoryTokenStore) Set(_ context.Context, session, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[session] = token
	return nil
}

func (s *MemoryTokenStore) Delete(_ context.Context, session string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, session)
	return nil
}
