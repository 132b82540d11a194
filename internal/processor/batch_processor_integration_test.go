package processor

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jpestate/server/internal/database"
	"jpestate/server/internal/models"
	"jpestate/server/internal/queue"
)

func setupTestStore(t *testing.T) *database.SQLiteStore {
	t.Helper()

	store, err := database.NewSQLiteStore(filepath.Join(t.TempDir(), "listings.db"))
	require.NoError(t, err)
	require.NoError(t, store.CreateSchema())
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBatchProcessingIntegration(t *testing.T) {
	store := setupTestStore(t)
	cfg := testConfig()
	logger := logrus.New()

	q := queue.NewListingQueue(cfg.BatchProcessing.QueueSize, logger)
	p := NewBatchProcessor(store, q, cfg, logger)

	p.Start()
	q.Start()
	defer q.Close()
	defer p.Stop()

	batch := []models.RawListing{
		{
			"Price": "¥105,800,000",
			"Size":  "99.02 m²",
			"url":   "https://example.co.jp/en/forsale/view/1",
		},
		{
			"Price": "¥200,000,000",
			"Size":  "150.00 m²",
			"url":   "https://example.co.jp/en/forsale/view/2",
		},
	}
	require.NoError(t, q.Push(batch))

	// Allow time for processing
	time.Sleep(500 * time.Millisecond)

	records, err := store.FetchAll(true)
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, record := range records {
		assert.Equal(t, "example", record.Source)
		assert.Equal(t, models.StatusActive, record.Status)
		assert.NotEmpty(t, record.Data["url"])
	}
}

func TestBatchProcessingIntegrationDeduplicates(t *testing.T) {
	store := setupTestStore(t)
	cfg := testConfig()
	logger := logrus.New()

	q := queue.NewListingQueue(cfg.BatchProcessing.QueueSize, logger)
	p := NewBatchProcessor(store, q, cfg, logger)

	p.Start()
	q.Start()
	defer q.Close()
	defer p.Stop()

	// The same url arrives in two scrape batches.
	for i := 0; i < 2; i++ {
		require.NoError(t, q.Push([]models.RawListing{
			{"Price": "¥100", "url": "https://example.co.jp/en/forsale/view/1"},
		}))
	}

	time.Sleep(500 * time.Millisecond)

	records, err := store.FetchAll(true)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestBatchProcessingWithConcurrency(t *testing.T) {
	store := setupTestStore(t)
	cfg := testConfig()
	cfg.BatchProcessing.ProcessorCount = 4
	logger := logrus.New()

	q := queue.NewListingQueue(50, logger)
	p := NewBatchProcessor(store, q, cfg, logger)

	p.Start()
	q.Start()
	defer q.Close()
	defer p.Stop()

	for i := 0; i < 5; i++ {
		batch := make([]models.RawListing, 20)
		for j := range batch {
			batch[j] = models.RawListing{
				"Price": "¥100,000,000",
				"url":   fmt.Sprintf("https://example.co.jp/en/forsale/view/%d-%d", i, j),
			}
		}
		require.NoError(t, q.Push(batch))
	}

	time.Sleep(2 * time.Second)

	records, err := store.FetchAll(true)
	require.NoError(t, err)
	assert.Len(t, records, 100)
}
