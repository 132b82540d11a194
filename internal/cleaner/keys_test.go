package cleaner

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple label", "Price", "price"},
		{"spaces to underscore", "Building Name", "building_name"},
		{"hyphens to underscore", "re-sale value", "re_sale_value"},
		{"mixed separators collapse", "Next  Update - Schedule", "next_update_schedule"},
		{"strips punctuation", "Size (m²)", "size_m"},
		{"strips leading trailing", "  _Floors_  ", "floors"},
		{"already canonical", "nearest_station", "nearest_station"},
		{"empty", "", ""},
		{"only symbols", "¥¥¥", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeKey(tt.in))
		})
	}
}

func TestNormalizeKeyIdempotent(t *testing.T) {
	inputs := []string{
		"Price", "Gross Yield", "Floor Area Ratio", "日本語 Label", "a--b  c", "___x___",
	}
	for _, in := range inputs {
		once := NormalizeKey(in)
		assert.Equal(t, once, NormalizeKey(once), "NormalizeKey must be idempotent for %q", in)
	}
}

func TestNormalizeKeyShape(t *testing.T) {
	shape := regexp.MustCompile(`^[a-z0-9_]*$`)
	inputs := []string{
		"Price", "SALE   PRICE!!", "--weird--label--", "Land Rights", "123 Main", "é à ü",
	}
	for _, in := range inputs {
		out := NormalizeKey(in)
		assert.Regexp(t, shape, out)
		assert.NotContains(t, out, "__")
		if out != "" {
			assert.NotEqual(t, byte('_'), out[0])
			assert.NotEqual(t, byte('_'), out[len(out)-1])
		}
	}
}

func TestCanonicalFieldName(t *testing.T) {
	assert.Equal(t, "price_yen", CanonicalFieldName("Price"))
	assert.Equal(t, "price_yen", CanonicalFieldName("price_yen"))
	assert.Equal(t, "zoning", CanonicalFieldName("Zoning"))
}
