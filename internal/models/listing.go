package models

import "time"

// RawListing is the label→text mapping produced by one detail-page scrape.
// Keys are free-form and inconsistent across scrape sessions ("Price",
// "price", "Sale Price"); values are raw page text.
type RawListing map[string]string

// CanonicalListing maps canonical snake_case field names to typed values.
// Values are int64, float64, string or nil. Monetary fields are integer
// yen, areas are float square meters, dates are ISO YYYY-MM-DD strings.
type CanonicalListing map[string]interface{}

// URL returns the listing's unique url field, if present.
func (l CanonicalListing) URL() (string, bool) {
	u, ok := l["url"].(string)
	return u, ok && u != ""
}

// Listing lifecycle statuses.
const (
	StatusActive  = "active"
	StatusExpired = "expired"
)

// PersistedRecord wraps a canonical listing with persistence metadata.
// Records are immutable after insertion except for the status field.
type PersistedRecord struct {
	ID        int64            `json:"id"`
	Source    string           `json:"source"`
	ScrapedAt time.Time        `json:"scraped_at"`
	Status    string           `json:"status"`
	Data      CanonicalListing `json:"data"`
}

// Flattened merges the document fields with the persistence metadata
// into one flat record, the same shape the wide table serves. Metadata
// keys win over document keys of the same name.
func (r *PersistedRecord) Flattened() map[string]interface{} {
	flat := make(map[string]interface{}, len(r.Data)+4)
	for k, v := range r.Data {
		flat[k] = v
	}
	flat["id"] = r.ID
	flat["source"] = r.Source
	flat["scraped_at"] = r.ScrapedAt.UTC().Format(time.RFC3339)
	flat["status"] = r.Status
	return flat
}

// ActiveURL pairs a record identifier with its listing URL, used by the
// status updater to revalidate listings against the live source.
type ActiveURL struct {
	ID  int64  `json:"id"`
	URL string `json:"url"`
}

// TelegramConfig holds the notification bot settings.
type TelegramConfig struct {
	BotToken  string `json:"bot_token"`
	ChatID    string `json:"chat_id"`
	IsEnabled bool   `json:"is_enabled"`
}
