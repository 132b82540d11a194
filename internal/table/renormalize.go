package table

import (
	"jpestate/server/internal/cleaner"
	"jpestate/server/internal/models"
)

// dateColumns are re-run through NormalizeDate when they still hold raw
// text, which happens with rows persisted by older scraper versions.
var dateColumns = map[string]struct{}{
	"available_from":       {},
	"date_updated":         {},
	"next_update_schedule": {},
}

// renormalizeDoc re-applies the current cleaning rules to a persisted
// document. Key spellings drift across scraper versions; folding them
// through CanonicalFieldName merges the variants into one column.
func renormalizeDoc(doc models.CanonicalListing) models.CanonicalListing {
	out := make(models.CanonicalListing, len(doc))
	for key, value := range doc {
		canonical := cleaner.CanonicalFieldName(key)
		if canonical == "" {
			continue
		}

		if text, ok := value.(string); ok {
			if _, isDate := dateColumns[canonical]; isDate {
				if iso, parsed := cleaner.NormalizeDate(text); parsed {
					value = iso
				}
			} else if cleaner.IsNumericField(canonical) {
				value = cleaner.CleanValue(canonical, text)
			}
		}

		// Earlier spellings lose to the canonical one when both exist.
		if _, exists := out[canonical]; exists && canonical != key {
			continue
		}
		out[canonical] = value
	}
	return out
}
