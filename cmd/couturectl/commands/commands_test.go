package commands

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/couture/internal/config"
	"github.com/example/couture/internal/models"
	"github.com/example/couture/internal/storage"
)

func useMemoryStore(t *testing.T) *storage.MemoryStore {
	t.Helper()
	store := storage.NewMemoryStore()
	prev := connect
	connect = func(*config.Config, *zap.Logger) (*gorm.DB, storage.Store, error) {
		return nil, store, nil
	}
	t.Cleanup(func() { connect = prev })
	return store
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestStaffCreate(t *testing.T) {
	store := useMemoryStore(t)

	out, err := run(t, "staff", "create",
		"--email", "Admin@Couture.test",
		"--first-name", "grace",
		"--last-name", "hopper",
		"--password", "Adm1n!Pass")
	require.NoError(t, err)
	assert.Contains(t, out, "created staff account admin@couture.test")

	user, err := store.GetUserByEmail(context.Background(), "admin@couture.test")
	require.NoError(t, err)
	assert.True(t, user.IsStaff)
	assert.True(t, user.IsEmailVerified)
}

func TestCatalogCreate(t *testing.T) {
	store := useMemoryStore(t)

	out, err := run(t, "category", "create", "--name", "Men's Wear")
	require.NoError(t, err)
	assert.Contains(t, out, "created category men-s-wear")

	out, err = run(t, "product", "create", "--name", "Agbada", "--price", "45000", "--category", "men-s-wear")
	require.NoError(t, err)
	assert.Contains(t, out, "created product agbada")
	assert.Contains(t, out, "45000.00")

	products, total, err := store.ListProducts(context.Background(), models.ProductFilter{Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, products, 1)
	require.NotNil(t, products[0].CategoryID)
}

func TestMigrateNeedsDatabase(t *testing.T) {
	useMemoryStore(t)
	_, err := run(t, "migrate")
	assert.Error(t, err)
}
