package table

import (
	"math"
	"strconv"
)

// profileExcluded columns carry no filtering signal and only bloat the
// prompt the profile is embedded into.
var profileExcluded = map[string]struct{}{
	"url":                  {},
	"building_description": {},
}

const maxUniqueSamples = 20

// ColumnProfile summarizes one column for filter extraction. Numeric
// columns report their range, categorical ones a sample of values.
type ColumnProfile struct {
	Type          string   `json:"type"`
	Min           *float64 `json:"min,omitempty"`
	Max           *float64 `json:"max,omitempty"`
	Avg           *float64 `json:"avg,omitempty"`
	UniqueSamples []string `json:"unique_samples,omitempty"`
}

// DbProfile maps column names to their profiles. Columns that are null
// for every row are omitted entirely.
type DbProfile map[string]ColumnProfile

// Profile summarizes every informative column of the table.
func Profile(t *WideTable) DbProfile {
	profile := make(DbProfile)

	for col, name := range t.Columns {
		if _, excluded := profileExcluded[name]; excluded {
			continue
		}

		var nums []float64
		var samples []string
		sawText := false
		for _, row := range t.Rows {
			switch cell := row[col]; cell.Kind {
			case Numeric:
				nums = append(nums, cell.Num)
				samples = append(samples, numericString(cell.Num))
			case Text:
				sawText = true
				samples = append(samples, cell.Str)
			}
		}

		switch {
		case len(nums) > 0 && !sawText:
			profile[name] = numericProfile(nums)
		case sawText:
			// Mixed columns profile as categorical; the numeric cells
			// stay in the samples as their string form.
			profile[name] = categoricalProfile(samples)
		}
	}
	return profile
}

func numericProfile(nums []float64) ColumnProfile {
	min, max, sum := nums[0], nums[0], 0.0
	for _, n := range nums {
		if n < min {
			min = n
		}
		if n > max {
			max = n
		}
		sum += n
	}
	avg := sum / float64(len(nums))
	return ColumnProfile{Type: "numeric", Min: &min, Max: &max, Avg: &avg}
}

func categoricalProfile(values []string) ColumnProfile {
	seen := make(map[string]struct{})
	var samples []string
	for _, s := range values {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		if len(samples) < maxUniqueSamples {
			samples = append(samples, s)
		}
	}
	return ColumnProfile{Type: "categorical", UniqueSamples: samples}
}

func numericString(n float64) string {
	if n == math.Trunc(n) && math.Abs(n) < 1e15 {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}
