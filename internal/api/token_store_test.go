package api_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"tokocheckout/internal/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db
}

func testTokenStoreRoundTrip(t *testing.T, store api.TokenStore) {
	ctx := context.Background()

	token, err := store.Get(ctx, "default")
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, store.Set(ctx, "default", "first"))
	require.NoError(t, store.Set(ctx, "default", "second"))
	require.NoError(t, store.Set(ctx, "other", "third"))

	token, err = store.Get(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, "second", token)

	require.NoError(t, store.Delete(ctx, "default"))
	require.NoError(t, store.Delete(ctx, "default"))

	token, err = store.Get(ctx, "default")
	require.NoError(t, err)
	assert.Empty(t, token)

	token, err = store.Get(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, "third", token)
}

func TestGORMTokenStore(t *testing.T) {
	store, err := api.NewGORMTokenStore(openTestDB(t))
	require.NoError(t, err)
	testTokenStoreRoundTrip(t, store)
}

func TestMemoryTokenStore(t *testing.T) {
	testTokenStoreRoundTrip(t, api.NewMemoryTokenStore())
}
