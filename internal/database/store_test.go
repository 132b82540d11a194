package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jpestate/server/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "listings.db"))
	require.NoError(t, err)
	require.NoError(t, store.CreateSchema())
	t.Cleanup(func() { store.Close() })
	return store
}

func testListing(url string, priceYen int64) models.CanonicalListing {
	return models.CanonicalListing{
		"url":       url,
		"price_yen": priceYen,
		"size":      99.02,
		"structure": "Wood",
	}
}

func TestUpsertBatchSkipsDuplicates(t *testing.T) {
	store := newTestStore(t)

	batch := []models.CanonicalListing{
		testListing("https://example.co.jp/en/forsale/view/1", 100000000),
		testListing("https://example.co.jp/en/forsale/view/2", 200000000),
	}

	ids, err := store.UpsertBatch("example", batch)
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	// The same batch again yields no new ids and no extra rows.
	ids, err = store.UpsertBatch("example", batch)
	require.NoError(t, err)
	assert.Empty(t, ids)

	records, err := store.FetchAll(true)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestUpsertBatchSkipsListingsWithoutURL(t *testing.T) {
	store := newTestStore(t)

	ids, err := store.UpsertBatch("example", []models.CanonicalListing{
		{"price_yen": int64(100)},
		testListing("https://example.co.jp/en/forsale/view/3", 300000000),
	})
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestGetByID(t *testing.T) {
	store := newTestStore(t)

	ids, err := store.UpsertBatch("example", []models.CanonicalListing{
		testListing("https://example.co.jp/en/forsale/view/1", 105800000),
	})
	require.NoError(t, err)
	require.Len(t, ids, 1)

	record, err := store.GetByID(ids[0])
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, record.Status)
	assert.Equal(t, "example", record.Source)
	assert.Equal(t, "https://example.co.jp/en/forsale/view/1", record.Data["url"])
	// JSON decoding turns integers into float64.
	assert.Equal(t, float64(105800000), record.Data["price_yen"])
	assert.False(t, record.ScrapedAt.IsZero())

	_, err = store.GetByID(99999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateStatus(t *testing.T) {
	store := newTestStore(t)

	ids, err := store.UpsertBatch("example", []models.CanonicalListing{
		testListing("https://example.co.jp/en/forsale/view/1", 100),
	})
	require.NoError(t, err)
	require.Len(t, ids, 1)

	require.NoError(t, store.UpdateStatus(ids[0], models.StatusExpired))

	records, err := store.FetchAll(false)
	require.NoError(t, err)
	assert.Empty(t, records)

	records, err = store.FetchAll(true)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.StatusExpired, records[0].Status)

	assert.Error(t, store.UpdateStatus(ids[0], "sold"))
	assert.ErrorIs(t, store.UpdateStatus(99999, models.StatusExpired), ErrNotFound)
}

func TestFetchActiveURLs(t *testing.T) {
	store := newTestStore(t)

	ids, err := store.UpsertBatch("example", []models.CanonicalListing{
		testListing("https://example.co.jp/en/forsale/view/1", 100),
		testListing("https://example.co.jp/en/forsale/view/2", 200),
	})
	require.NoError(t, err)
	require.Len(t, ids, 2)
	require.NoError(t, store.UpdateStatus(ids[0], models.StatusExpired))

	urls, err := store.FetchActiveURLs()
	require.NoError(t, err)
	require.Len(t, urls, 1)
	assert.Equal(t, ids[1], urls[0].ID)
	assert.Equal(t, "https://example.co.jp/en/forsale/view/2", urls[0].URL)
}

func TestUpdateCoordinates(t *testing.T) {
	store := newTestStore(t)

	ids, err := store.UpsertBatch("example", []models.CanonicalListing{
		testListing("https://example.co.jp/en/forsale/view/1", 100),
	})
	require.NoError(t, err)
	require.Len(t, ids, 1)

	require.NoError(t, store.UpdateCoordinates(ids[0], 35.6581, 139.7017))

	record, err := store.GetByID(ids[0])
	require.NoError(t, err)
	assert.Equal(t, 35.6581, record.Data["latitude"])
	assert.Equal(t, 139.7017, record.Data["longitude"])
}

func TestDeleteAllRequiresConfirmation(t *testing.T) {
	store := newTestStore(t)

	_, err := store.UpsertBatch("example", []models.CanonicalListing{
		testListing("https://example.co.jp/en/forsale/view/1", 100),
	})
	require.NoError(t, err)

	_, err = store.DeleteAll("yes please")
	assert.Error(t, err)

	deleted, err := store.DeleteAll(DeleteConfirmation)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	records, err := store.FetchAll(true)
	require.NoError(t, err)
	assert.Empty(t, records)
}
