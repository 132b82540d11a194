package database

import (
	"errors"
	"fmt"

	"jpestate/server/internal/models"
)

// ErrNotFound is returned when a lookup by id matches no record.
var ErrNotFound = errors.New("listing not found")

// DeleteConfirmation must be passed verbatim to DeleteAll. Any other
// string aborts the wipe.
const DeleteConfirmation = "DELETE ALL LISTINGS"

// Store persists canonical listings as opaque JSON documents keyed by
// their url. Implementations are safe for concurrent use.
type Store interface {
	// CreateSchema creates the listings table and indexes if missing.
	CreateSchema() error

	// UpsertBatch inserts the given listings, skipping any whose url is
	// already present. It returns the ids of newly inserted rows only;
	// re-submitting a batch yields an empty slice. Listings without a
	// url are skipped.
	UpsertBatch(source string, listings []models.CanonicalListing) ([]int64, error)

	// FetchAll returns every persisted record, expired ones included
	// only when includeExpired is set.
	FetchAll(includeExpired bool) ([]models.PersistedRecord, error)

	// GetByID returns a single record or ErrNotFound.
	GetByID(id int64) (*models.PersistedRecord, error)

	// FetchActiveURLs returns the id and url of every active record.
	FetchActiveURLs() ([]models.ActiveURL, error)

	// UpdateStatus moves a record between lifecycle statuses. Only
	// models.StatusActive and models.StatusExpired are accepted.
	UpdateStatus(id int64, status string) error

	// UpdateCoordinates patches latitude and longitude into a record's
	// document.
	UpdateCoordinates(id int64, lat, lon float64) error

	// DeleteAll wipes every record. It refuses to run unless
	// confirmation equals DeleteConfirmation.
	DeleteAll(confirmation string) (int64, error)

	Close() error
}

func validateStatus(status string) error {
	switch status {
	case models.StatusActive, models.StatusExpired:
		return nil
	default:
		return fmt.Errorf("invalid status %q", status)
	}
}
