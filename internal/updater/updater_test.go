package updater

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jpestate/server/internal/database"
	"jpestate/server/internal/models"
)

// stubChecker expires the urls in its set and fails the ones in fail.
type stubChecker struct {
	mu      sync.Mutex
	expired map[string]bool
	fail    map[string]bool
	checked []string
}

func (c *stubChecker) CheckExpired(ctx context.Context, pageURL string) (bool, error) {
	c.mu.Lock()
	c.checked = append(c.checked, pageURL)
	c.mu.Unlock()

	if c.fail[pageURL] {
		return false, errors.New("navigation failed")
	}
	return c.expired[pageURL], nil
}

func seedStore(t *testing.T, urls ...string) (*database.SQLiteStore, []int64) {
	t.Helper()

	store, err := database.NewSQLiteStore(filepath.Join(t.TempDir(), "listings.db"))
	require.NoError(t, err)
	require.NoError(t, store.CreateSchema())
	t.Cleanup(func() { store.Close() })

	listings := make([]models.CanonicalListing, len(urls))
	for i, u := range urls {
		listings[i] = models.CanonicalListing{"url": u, "price_yen": int64(100)}
	}
	ids, err := store.UpsertBatch("example", listings)
	require.NoError(t, err)
	require.Len(t, ids, len(urls))
	return store, ids
}

func TestRevalidateExpiresMissingListings(t *testing.T) {
	store, ids := seedStore(t, "https://x/1", "https://x/2", "https://x/3")
	checker := &stubChecker{expired: map[string]bool{"https://x/2": true}}

	u := NewUpdater(store, 2, logrus.New())
	summary, err := u.Revalidate(context.Background(), checker)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Checked)
	assert.Equal(t, 1, summary.Expired)
	assert.Equal(t, 0, summary.Failed)

	record, err := store.GetByID(ids[1])
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, record.Status)

	record, err = store.GetByID(ids[0])
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, record.Status)
}

func TestRevalidateCheckFailureKeepsListingActive(t *testing.T) {
	store, ids := seedStore(t, "https://x/1")
	checker := &stubChecker{fail: map[string]bool{"https://x/1": true}}

	u := NewUpdater(store, 2, logrus.New())
	summary, err := u.Revalidate(context.Background(), checker)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 0, summary.Expired)

	record, err := store.GetByID(ids[0])
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, record.Status)
}

func TestRevalidateSkipsExpiredListings(t *testing.T) {
	store, ids := seedStore(t, "https://x/1", "https://x/2")
	require.NoError(t, store.UpdateStatus(ids[0], models.StatusExpired))

	checker := &stubChecker{}
	u := NewUpdater(store, 2, logrus.New())
	summary, err := u.Revalidate(context.Background(), checker)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Checked)
	assert.Equal(t, []string{"https://x/2"}, checker.checked)
}
