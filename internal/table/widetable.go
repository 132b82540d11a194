package table

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"jpestate/server/internal/database"
	"jpestate/server/internal/models"
)

// metaColumns lead every table, in this order, before the union of
// document fields.
var metaColumns = []string{"id", "source", "scraped_at", "status"}

// textOnlyColumns are never cast to numeric even when every cell parses.
var textOnlyColumns = map[string]struct{}{
	"id":         {},
	"source":     {},
	"scraped_at": {},
	"status":     {},
	"url":        {},
}

// WideTable is the in-memory query surface: one row per listing, one
// column per field any listing has ever carried.
type WideTable struct {
	Columns []string
	Rows    [][]Value

	index map[string]int
}

// ColumnIndex returns the position of a column, by exact name.
func (t *WideTable) ColumnIndex(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

func (t *WideTable) Cell(row, col int) Value {
	return t.Rows[row][col]
}

// Reindexed rebuilds the column index and returns the table. Needed
// when a table is assembled from an existing column set instead of
// going through Build.
func (t *WideTable) Reindexed() *WideTable {
	t.index = make(map[string]int, len(t.Columns))
	for i, col := range t.Columns {
		t.index[col] = i
	}
	return t
}

// emptyRow returns a row of Absent cells sized to the table.
func (t *WideTable) emptyRow() []Value {
	return make([]Value, len(t.Columns))
}

// Build materializes records into a wide table. Column order is the meta
// columns followed by the sorted union of document keys, so two builds
// over the same records produce identical tables.
func Build(records []models.PersistedRecord) *WideTable {
	docs := make([]models.CanonicalListing, len(records))
	keySet := make(map[string]struct{})
	for i, record := range records {
		docs[i] = renormalizeDoc(record.Data)
		for key := range docs[i] {
			keySet[key] = struct{}{}
		}
	}
	for _, meta := range metaColumns {
		delete(keySet, meta)
	}

	docKeys := make([]string, 0, len(keySet))
	for key := range keySet {
		docKeys = append(docKeys, key)
	}
	sort.Strings(docKeys)

	t := &WideTable{
		Columns: append(append([]string{}, metaColumns...), docKeys...),
		index:   make(map[string]int),
	}
	for i, col := range t.Columns {
		t.index[col] = i
	}

	t.Rows = make([][]Value, len(records))
	for i, record := range records {
		row := t.emptyRow()
		row[0] = NumberValue(float64(record.ID))
		row[1] = TextValue(record.Source)
		if !record.ScrapedAt.IsZero() {
			row[2] = TextValue(record.ScrapedAt.UTC().Format(time.RFC3339))
		}
		row[3] = TextValue(record.Status)
		for key, value := range docs[i] {
			row[t.index[key]] = toCell(value)
		}
		t.Rows[i] = row
	}

	t.castNumericColumns()
	return t
}

func toCell(value interface{}) Value {
	switch v := value.(type) {
	case nil:
		return NullValue()
	case float64:
		return NumberValue(v)
	case float32:
		return NumberValue(float64(v))
	case int64:
		return NumberValue(float64(v))
	case int:
		return NumberValue(float64(v))
	case string:
		return TextValue(v)
	case bool:
		return TextValue(strconv.FormatBool(v))
	default:
		return TextValue(fmt.Sprintf("%v", v))
	}
}

// castNumericColumns converts a column to numeric when every non-null
// cell holds a parseable number. A single stray text cell keeps the
// whole column textual, which keeps comparisons well defined.
func (t *WideTable) castNumericColumns() {
	for col, name := range t.Columns {
		if _, skip := textOnlyColumns[name]; skip {
			continue
		}

		numericSeen := false
		castable := true
		for _, row := range t.Rows {
			switch cell := row[col]; cell.Kind {
			case Numeric:
				numericSeen = true
			case Text:
				if _, err := strconv.ParseFloat(cell.Str, 64); err != nil {
					castable = false
				} else {
					numericSeen = true
				}
			}
			if !castable {
				break
			}
		}
		if !castable || !numericSeen {
			continue
		}

		for _, row := range t.Rows {
			if row[col].Kind == Text {
				n, err := strconv.ParseFloat(row[col].Str, 64)
				if err != nil {
					continue
				}
				row[col] = NumberValue(n)
			}
		}
	}
}

// Materializer loads persisted records and builds query tables.
type Materializer struct {
	store  database.Store
	logger *logrus.Logger
}

func NewMaterializer(store database.Store, logger *logrus.Logger) *Materializer {
	if logger == nil {
		logger = logrus.New()
	}
	return &Materializer{store: store, logger: logger}
}

// Load fetches records from the store and materializes them.
func (m *Materializer) Load(includeExpired bool) (*WideTable, error) {
	records, err := m.store.FetchAll(includeExpired)
	if err != nil {
		return nil, fmt.Errorf("failed to load listings: %w", err)
	}

	t := Build(records)
	m.logger.WithFields(logrus.Fields{
		"rows":    len(t.Rows),
		"columns": len(t.Columns),
	}).Info("Materialized listings table")
	return t, nil
}
