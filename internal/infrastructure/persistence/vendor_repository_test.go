package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stocksync/backend/internal/domain/shared"
	"github.com/stocksync/backend/internal/domain/vendor"
)

func newTestVendor(t *testing.T, name string) *vendor.Vendor {
	v, err := vendor.NewVendor(name)
	require.NoError(t, err)
	return v
}

func TestGormVendorRepository_SaveAndFind(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormVendorRepository(db)
	ctx := context.Background()

	v := newTestVendor(t, "Acme")
	v.AttachSKU("p100")
	v.AttachSKU("P200")
	v.SetContact("Jo", "jo@acme.test", "555-0100")
	require.NoError(t, repo.Save(ctx, v))

	got, err := repo.FindByID(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Name)
	assert.Equal(t, "jo@acme.test", got.Email)
	assert.ElementsMatch(t, []string{"P100", "P200"}, got.SKUMappings)
}

func TestGormVendorRepository_FindByNameIsCaseInsensitive(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormVendorRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, newTestVendor(t, "Acme Supplies")))

	got, err := repo.FindByName(ctx, "  ACME supplies ")
	require.NoError(t, err)
	assert.Equal(t, "Acme Supplies", got.Name)

	_, err = repo.FindByName(ctx, "nobody")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormVendorRepository_FindBySKU(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormVendorRepository(db)
	ctx := context.Background()

	acme := newTestVendor(t, "Acme")
	acme.AttachSKU("P100")
	require.NoError(t, repo.Save(ctx, acme))

	globex := newTestVendor(t, "Globex")
	globex.AttachSKU("P200")
	require.NoError(t, repo.Save(ctx, globex))

	got, err := repo.FindBySKU(ctx, "p100")
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Name)

	_, err = repo.FindBySKU(ctx, "P999")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormVendorRepository_SaveReplacesMappings(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormVendorRepository(db)
	ctx := context.Background()

	v := newTestVendor(t, "Acme")
	v.AttachSKU("P100")
	require.NoError(t, repo.Save(ctx, v))

	v.SKUMappings = []string{"P300"}
	require.NoError(t, repo.Save(ctx, v))

	got, err := repo.FindByID(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"P300"}, got.SKUMappings)
}

func TestGormVendorRepository_Delete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormVendorRepository(db)
	ctx := context.Background()

	v := newTestVendor(t, "Acme")
	v.AttachSKU("P100")
	require.NoError(t, repo.Save(ctx, v))

	require.NoError(t, repo.Delete(ctx, v.ID))
	_, err := repo.FindByID(ctx, v.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = repo.FindBySKU(ctx, "P100")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, uuid.New()), shared.ErrNotFound)
}

func TestGormVendorRepository_FindAllAndCount(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormVendorRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, newTestVendor(t, "Acme")))
	require.NoError(t, repo.Save(ctx, newTestVendor(t, "Globex")))

	all, err := repo.FindAll(ctx, shared.DefaultFilter())
	require.NoError(t, err)
	assert.Len(t, all, 2)

	count, err := repo.Count(ctx, shared.DefaultFilter())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
