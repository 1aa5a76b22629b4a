package dataset

import (
	"context"
	"path/filepath"
	"testing"

	"housing-data-go/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fptr(f float64) *float64 { return &f }

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "housing.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedRecords() []models.HousingRecord {
	return []models.HousingRecord{
		{
			ZipCode:      100,
			SizeRank:     1,
			RegionName:   "Houston",
			State:        "TX",
			County:       "Harris County",
			City:         "Houston",
			ZMediumRent:  fptr(2000),
			ZMediumValue: fptr(400000),
			ZillowRatio:  fptr(0.005),
		},
		{
			ZipCode:    200,
			SizeRank:   2,
			RegionName: "Austin",
			State:      "TX",
			County:     "Travis County",
			City:       "Austin",
		},
	}
}

func TestStoreUnavailableBeforeFirstIngest(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	assert.False(t, store.Available(ctx))

	_, err := store.Schema(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)

	_, _, err = store.Query(ctx, "SELECT * FROM housing_data")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestStoreReplaceAll(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.ReplaceAll(ctx, seedRecords()))
	assert.True(t, store.Available(ctx))

	schema, err := store.Schema(ctx)
	require.NoError(t, err)
	assert.Equal(t, TableName, schema.Table)
	assert.Equal(t, 2, schema.TotalRows)
	assert.Equal(t, ColumnNames(), schema.ColumnNames())

	t.Run("a new ingest replaces the old rows wholesale", func(t *testing.T) {
		require.NoError(t, store.ReplaceAll(ctx, seedRecords()[:1]))
		schema, err := store.Schema(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, schema.TotalRows)
	})
}

func TestStoreQuery(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.ReplaceAll(ctx, seedRecords()))

	t.Run("select with filter", func(t *testing.T) {
		rows, columns, err := store.Query(ctx, "SELECT RegionName, ZMediumRent FROM housing_data WHERE ZipCode = 100")
		require.NoError(t, err)
		assert.Equal(t, []string{"RegionName", "ZMediumRent"}, columns)
		require.Len(t, rows, 1)
		assert.Equal(t, "Houston", rows[0]["RegionName"])
		assert.Equal(t, 2000.0, rows[0]["ZMediumRent"])
	})

	t.Run("null columns come back nil", func(t *testing.T) {
		rows, _, err := store.Query(ctx, "SELECT ZMediumRent FROM housing_data WHERE ZipCode = 200")
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Nil(t, rows[0]["ZMediumRent"])
	})

	t.Run("empty result is not an error", func(t *testing.T) {
		rows, _, err := store.Query(ctx, "SELECT * FROM housing_data WHERE State = 'ZZ'")
		require.NoError(t, err)
		assert.NotNil(t, rows)
		assert.Empty(t, rows)
	})

	t.Run("aggregates", func(t *testing.T) {
		rows, _, err := store.Query(ctx, "SELECT COUNT(*) AS n FROM housing_data")
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.EqualValues(t, 2, rows[0]["n"])
	})
}

func TestStoreRejectsWrites(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.ReplaceAll(ctx, seedRecords()))

	bad := []string{
		"DELETE FROM housing_data",
		"UPDATE housing_data SET State = 'CA'",
		"DROP TABLE housing_data",
		"INSERT INTO housing_data (ZipCode) VALUES (1)",
		"SELECT * FROM housing_data; DROP TABLE housing_data",
		"PRAGMA table_info(housing_data)",
	}
	for _, q := range bad {
		_, _, err := store.Query(ctx, q)
		assert.Error(t, err, "query %q", q)
	}

	// Rejected statements must leave the data intact.
	schema, err := store.Schema(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, schema.TotalRows)
}
