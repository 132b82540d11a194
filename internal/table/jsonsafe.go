package table

import "math"

// Records renders the table as JSON-safe row maps. Absent cells and
// non-finite numbers become explicit nulls so every row serializes with
// encoding/json without surprises, and whole floats come back as
// integers the way they were persisted.
func (t *WideTable) Records() []map[string]interface{} {
	records := make([]map[string]interface{}, len(t.Rows))
	for i, row := range t.Rows {
		record := make(map[string]interface{}, len(t.Columns))
		for col, name := range t.Columns {
			record[name] = cellToJSON(row[col])
		}
		records[i] = record
	}
	return records
}

// Record renders a single row.
func (t *WideTable) Record(row int) map[string]interface{} {
	record := make(map[string]interface{}, len(t.Columns))
	for col, name := range t.Columns {
		record[name] = cellToJSON(t.Rows[row][col])
	}
	return record
}

// JSONValue renders one cell as a JSON-safe scalar.
func (v Value) JSONValue() interface{} {
	return cellToJSON(v)
}

func cellToJSON(cell Value) interface{} {
	switch cell.Kind {
	case Numeric:
		if math.IsNaN(cell.Num) || math.IsInf(cell.Num, 0) {
			return nil
		}
		if cell.Num == math.Trunc(cell.Num) && math.Abs(cell.Num) < 1e15 {
			return int64(cell.Num)
		}
		return cell.Num
	case Text:
		return cell.Str
	default:
		return nil
	}
}
