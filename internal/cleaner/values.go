package cleaner

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// zeroWidthPattern matches zero-width characters only, so Japanese text
	// survives cleaning intact.
	zeroWidthPattern  = regexp.MustCompile("[\u200b\u200c\u200d\u2060]")
	whitespacePattern = regexp.MustCompile(`\s+`)

	intPattern      = regexp.MustCompile(`([\d,]+)`)
	floatPattern    = regexp.MustCompile(`([\d,]+(?:\.\d+)?)`)
	currencyPattern = regexp.MustCompile(`(?:¥|JPY)\s*([\d,]+)`)
	areaPattern     = regexp.MustCompile(`(?i)([\d,]+(?:\.\d+)?)\s*(?:m²|m2|sqm)`)
	percentPattern  = regexp.MustCompile(`([\d.]+)\s*%`)
	yearPattern     = regexp.MustCompile(`^\d{4}$`)
)

// CleanText strips zero-width characters and collapses whitespace runs to
// single spaces. It deliberately avoids any transformation that would
// mangle non-Latin scripts.
func CleanText(value string) string {
	value = zeroWidthPattern.ReplaceAllString(value, "")
	value = whitespacePattern.ReplaceAllString(value, " ")
	return strings.TrimSpace(value)
}

func parseInt(s string) (int64, bool) {
	m := intPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.ReplaceAll(m[1], ",", ""), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func parseFloat(s string) (float64, bool) {
	m := floatPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// parseCurrency extracts a yen-sign/JPY-prefixed amount, falling back to a
// plain integer extraction when no currency marker is present.
func parseCurrency(s string) (int64, bool) {
	if m := currencyPattern.FindStringSubmatch(s); m != nil {
		n, err := strconv.ParseInt(strings.ReplaceAll(m[1], ",", ""), 10, 64)
		if err == nil {
			return n, true
		}
		return 0, false
	}
	return parseInt(s)
}

func parseArea(s string) (float64, bool) {
	m := areaPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func parsePercent(s string) (float64, bool) {
	m := percentPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// valueRule classifies a field by keyword membership against the normalized
// key and attempts a typed extraction. Rules are tried in order; the first
// rule whose keywords match AND whose parse succeeds wins, otherwise the
// next rule is consulted. Keeping this a table makes new field types
// additive rather than another branch in a conditional tree.
type valueRule struct {
	keywords []string
	parse    func(text string) (interface{}, bool)
}

// numericLikeKeys lists key fragments that suggest a numeric field; used by
// the generic numeric fallback so free-text fields are never coerced.
var numericLikeKeys = []string{
	"price", "rent", "fee", "maintenance", "expense", "tax",
	"size", "land_area", "floor_area", "building_area",
	"potential_annual_rent", "yield", "ratio", "road_width",
	"year_built", "built", "completed",
}

var valueRules = []valueRule{
	{
		keywords: []string{"price", "rent", "fee", "annual"},
		parse: func(text string) (interface{}, bool) {
			n, ok := parseCurrency(text)
			return n, ok
		},
	},
	{
		keywords: []string{"m2", "sqm", "size", "area"},
		parse: func(text string) (interface{}, bool) {
			f, ok := parseArea(text)
			return f, ok
		},
	},
	{
		keywords: []string{"yield", "ratio", "percentage"},
		parse: func(text string) (interface{}, bool) {
			f, ok := parsePercent(text)
			return f, ok
		},
	},
	{
		keywords: []string{"year", "built"},
		parse: func(text string) (interface{}, bool) {
			if !yearPattern.MatchString(text) {
				return nil, false
			}
			n, err := strconv.ParseInt(text, 10, 64)
			return n, err == nil
		},
	},
	{
		keywords: numericLikeKeys,
		parse: func(text string) (interface{}, bool) {
			f, ok := parseFloat(text)
			if !ok {
				return nil, false
			}
			if f == float64(int64(f)) {
				return int64(f), true
			}
			return f, true
		},
	},
}

func keyMatches(key string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(key, kw) {
			return true
		}
	}
	return false
}

// CleanValue parses one (normalized key, raw text) pair into a typed value.
// Fields whose key gives no numeric hint pass through as cleaned text, as
// does text the matching rules cannot parse.
func CleanValue(key, raw string) interface{} {
	text := CleanText(raw)
	for _, rule := range valueRules {
		if !keyMatches(key, rule.keywords) {
			continue
		}
		if v, ok := rule.parse(text); ok {
			return v
		}
	}
	return text
}

// IsNumericField reports whether a field name suggests a numeric value.
// Used by the wide-table re-normalization pass to decide which historical
// text cells are worth re-parsing.
func IsNumericField(key string) bool {
	return keyMatches(key, numericLikeKeys)
}
