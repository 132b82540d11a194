package cleaner

import (
	"errors"
	"os"

	"github.com/sirupsen/logrus"

	"jpestate/server/internal/models"
)

// dateFields are run through NormalizeDate after key normalization; the
// source publishes these as free-text descriptions.
var dateFields = map[string]struct{}{
	"available_from":       {},
	"date_updated":         {},
	"next_update_schedule": {},
}

var errEmptyListing = errors.New("raw listing has no fields")

// Cleaner folds raw scraped label→text mappings into canonical listings.
type Cleaner struct {
	logger *logrus.Logger
}

func New(logger *logrus.Logger) *Cleaner {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Cleaner{logger: logger}
}

// CleanListing normalizes keys, then values, then applies the rename and
// date-transform tables. Raw keys that normalize to the same canonical key
// collapse silently, last writer wins.
func (c *Cleaner) CleanListing(raw models.RawListing) (models.CanonicalListing, error) {
	if len(raw) == 0 {
		return nil, errEmptyListing
	}

	normalized := make(map[string]string, len(raw))
	for k, v := range raw {
		normalized[NormalizeKey(k)] = v
	}

	doc := make(models.CanonicalListing, len(normalized))
	for key, rawValue := range normalized {
		value := CleanValue(key, rawValue)

		if _, isDate := dateFields[key]; isDate {
			if text, ok := value.(string); ok {
				if iso, parsed := NormalizeDate(text); parsed {
					value = iso
				} else {
					value = nil
				}
			} else {
				value = nil
			}
		}

		if renamed, ok := renameTable[key]; ok {
			key = renamed
		}
		doc[key] = value
	}

	return doc, nil
}

// ItemFailure records one raw listing that could not be cleaned.
type ItemFailure struct {
	Index  int
	Reason string
}

// BatchResult is the outcome of cleaning a batch: the listings that
// survived plus an entry for every one that was dropped.
type BatchResult struct {
	Cleaned  []models.CanonicalListing
	Failures []ItemFailure
}

// CleanAll cleans a batch best-effort. A failing item is dropped, counted
// and logged; it never aborts the rest of the batch.
func (c *Cleaner) CleanAll(raws []models.RawListing) BatchResult {
	result := BatchResult{
		Cleaned: make([]models.CanonicalListing, 0, len(raws)),
	}

	for i, raw := range raws {
		doc, err := c.CleanListing(raw)
		if err != nil {
			result.Failures = append(result.Failures, ItemFailure{Index: i, Reason: err.Error()})
			c.logger.WithError(err).WithField("index", i).Error("Cleaning error for item")
			continue
		}
		result.Cleaned = append(result.Cleaned, doc)
	}

	c.logger.WithFields(logrus.Fields{
		"total":   len(raws),
		"cleaned": len(result.Cleaned),
		"dropped": len(result.Failures),
	}).Info("Cleaned listing batch")

	return result
}
