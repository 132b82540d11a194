package query

import (
	"fmt"
	"sort"
	"strings"

	"jpestate/server/internal/table"
)

// Defaults applied when a query leaves them unset.
const (
	DefaultLimit     = 20
	DefaultSortBy    = "price_yen"
	DefaultSortOrder = "asc"
)

// PropertyQuery is a declarative listing filter. Zero values mean "no
// constraint"; unknown JSON fields are dropped during decoding, so a
// filter extractor inventing keys degrades to a broader query instead
// of an error.
type PropertyQuery struct {
	MinPrice *float64 `json:"min_price,omitempty"`
	MaxPrice *float64 `json:"max_price,omitempty"`
	MinSize  *float64 `json:"min_size,omitempty"`
	MaxSize  *float64 `json:"max_size,omitempty"`

	Zoning         string `json:"zoning,omitempty"`
	Structure      string `json:"structure,omitempty"`
	Occupancy      string `json:"occupancy,omitempty"`
	NearestStation string `json:"nearest_station,omitempty"`

	Limit     int    `json:"limit,omitempty"`
	SortBy    string `json:"sort_by,omitempty"`
	SortOrder string `json:"sort_order,omitempty"`
}

func (q PropertyQuery) withDefaults() PropertyQuery {
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.SortBy == "" {
		q.SortBy = DefaultSortBy
	}
	if q.SortOrder == "" {
		q.SortOrder = DefaultSortOrder
	}
	return q
}

// rangeFilter keeps rows whose numeric cell lies in [min, max]. A null
// or textual cell never matches a bounded range.
type rangeFilter struct {
	column   string
	min, max *float64
}

func (f rangeFilter) active() bool {
	return f.min != nil || f.max != nil
}

func (f rangeFilter) matches(cell table.Value) bool {
	if cell.Kind != table.Numeric {
		return false
	}
	if f.min != nil && cell.Num < *f.min {
		return false
	}
	if f.max != nil && cell.Num > *f.max {
		return false
	}
	return true
}

// substringFilter keeps rows whose text cell contains the needle,
// case-insensitively.
type substringFilter struct {
	column string
	needle string
}

func (f substringFilter) active() bool {
	return f.needle != ""
}

func (f substringFilter) matches(cell table.Value) bool {
	if cell.Kind != table.Text {
		return false
	}
	return strings.Contains(strings.ToLower(cell.Str), strings.ToLower(f.needle))
}

// Apply filters, sorts and truncates the table. All filters combine
// with AND. A filter or sort key naming a column the table does not
// have is an error rather than a silent no-op.
func Apply(t *table.WideTable, q PropertyQuery) (*table.WideTable, error) {
	q = q.withDefaults()

	if q.SortOrder != "asc" && q.SortOrder != "desc" {
		return nil, fmt.Errorf("invalid sort order %q", q.SortOrder)
	}

	ranges := []rangeFilter{
		{column: "price_yen", min: q.MinPrice, max: q.MaxPrice},
		{column: "size", min: q.MinSize, max: q.MaxSize},
	}
	substrings := []substringFilter{
		{column: "zoning", needle: q.Zoning},
		{column: "structure", needle: q.Structure},
		{column: "occupancy", needle: q.Occupancy},
		{column: "nearest_station", needle: q.NearestStation},
	}

	keep := make([]bool, len(t.Rows))
	for i := range keep {
		keep[i] = true
	}

	for _, f := range ranges {
		if !f.active() {
			continue
		}
		col, ok := t.ColumnIndex(f.column)
		if !ok {
			return nil, fmt.Errorf("unknown filter column %q", f.column)
		}
		for i, row := range t.Rows {
			if keep[i] && !f.matches(row[col]) {
				keep[i] = false
			}
		}
	}

	for _, f := range substrings {
		if !f.active() {
			continue
		}
		col, ok := t.ColumnIndex(f.column)
		if !ok {
			return nil, fmt.Errorf("unknown filter column %q", f.column)
		}
		for i, row := range t.Rows {
			if keep[i] && !f.matches(row[col]) {
				keep[i] = false
			}
		}
	}

	var rows [][]table.Value
	for i, row := range t.Rows {
		if keep[i] {
			rows = append(rows, row)
		}
	}

	sortCol, ok := t.ColumnIndex(q.SortBy)
	if !ok {
		return nil, fmt.Errorf("unknown sort column %q", q.SortBy)
	}
	sortRows(rows, sortCol, q.SortOrder == "desc")

	if len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}

	result := &table.WideTable{Columns: t.Columns, Rows: rows}
	return result.Reindexed(), nil
}

// sortRows orders rows by one column. Rows whose sort cell is absent
// always sink to the end, for either direction.
func sortRows(rows [][]table.Value, col int, desc bool) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i][col], rows[j][col]

		if a.Kind == table.Absent || b.Kind == table.Absent {
			return a.Kind != table.Absent && b.Kind == table.Absent
		}

		var less bool
		switch {
		case a.Kind == table.Numeric && b.Kind == table.Numeric:
			less = a.Num < b.Num
		case a.Kind == table.Text && b.Kind == table.Text:
			less = a.Str < b.Str
		default:
			// Numeric cells order before text in a mixed column.
			less = a.Kind == table.Numeric
		}
		if desc {
			return !less && !equalCells(a, b)
		}
		return less
	})
}

func equalCells(a, b table.Value) bool {
	return a.Kind == b.Kind && a.Num == b.Num && a.Str == b.Str
}
