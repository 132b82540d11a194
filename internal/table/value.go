package table

// Kind discriminates the cell variants of a sparse wide table.
type Kind int

const (
	// Absent marks a cell whose listing never carried the column.
	Absent Kind = iota
	Numeric
	Text
)

// Value is one cell. The sparse union of listing fields means most
// columns are Absent for most rows.
type Value struct {
	Kind Kind
	Num  float64
	Str  string
}

func NullValue() Value {
	return Value{Kind: Absent}
}

func NumberValue(n float64) Value {
	return Value{Kind: Numeric, Num: n}
}

func TextValue(s string) Value {
	return Value{Kind: Text, Str: s}
}
