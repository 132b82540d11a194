package cleaner

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jpestate/server/internal/models"
)

func sampleRawListing() models.RawListing {
	return models.RawListing{
		"Price":           "¥105,800,000",
		"Building Name":   "🔸S111 MATSUBARA 3LDK HOUSE🔸",
		"Floors":          "3F",
		"Available From":  "Apr 7, 2025",
		"Type":            "House",
		"Size":            "99.02 m²",
		"Land Area":       "72.00 m²",
		"Occupancy":       "Vacant",
		"Nearest Station": "Matsubara Station (4 min. walk)\nTōkyū Setagaya Line",
		"Floor Area Ratio": "200.0%",
		"Zoning":          "Residential",
		"Structure":       "Wood",
		"Date Updated":    "Oct 23, 2025",
		"url":             "https://example.co.jp/en/forsale/view/1212976",
	}
}

func TestCleanListing(t *testing.T) {
	c := New(logrus.New())

	doc, err := c.CleanListing(sampleRawListing())
	require.NoError(t, err)

	// The headline price is renamed and parsed as integer yen.
	assert.Equal(t, int64(105800000), doc["price_yen"])
	_, hasOldKey := doc["price"]
	assert.False(t, hasOldKey)

	assert.Equal(t, 99.02, doc["size"])
	assert.Equal(t, 72.0, doc["land_area"])
	assert.Equal(t, 200.0, doc["floor_area_ratio"])
	assert.Equal(t, "2025-04-07", doc["available_from"])
	assert.Equal(t, "2025-10-23", doc["date_updated"])
	assert.Equal(t, "Wood", doc["structure"])
	assert.Equal(t, "Vacant", doc["occupancy"])
	assert.Equal(t, "Matsubara Station (4 min. walk) Tōkyū Setagaya Line", doc["nearest_station"])
	assert.Equal(t, "https://example.co.jp/en/forsale/view/1212976", doc["url"])
}

func TestCleanListingUnparsableDateBecomesNull(t *testing.T) {
	c := New(logrus.New())

	doc, err := c.CleanListing(models.RawListing{
		"Available From": "Please Inquire",
		"Price":          "¥1,000,000",
	})
	require.NoError(t, err)

	v, present := doc["available_from"]
	assert.True(t, present)
	assert.Nil(t, v)
}

func TestCleanListingCollidingKeysLastWins(t *testing.T) {
	c := New(logrus.New())

	// "Price" and "price" normalize to the same key; the surviving value
	// must be one of the two, never both columns.
	doc, err := c.CleanListing(models.RawListing{
		"Price": "¥100",
		"price": "¥200",
	})
	require.NoError(t, err)
	assert.Len(t, doc, 1)
	assert.Contains(t, []interface{}{int64(100), int64(200)}, doc["price_yen"])
}

func TestCleanAllIsBestEffort(t *testing.T) {
	c := New(logrus.New())

	raws := []models.RawListing{
		sampleRawListing(),
		{}, // empty record fails cleaning
		{"Price": "¥5,000,000", "url": "https://example.co.jp/en/forsale/view/2"},
	}

	result := c.CleanAll(raws)

	assert.Len(t, result.Cleaned, 2)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, 1, result.Failures[0].Index)
	assert.NotEmpty(t, result.Failures[0].Reason)
}

func TestCleanAllNeverGrowsBatch(t *testing.T) {
	c := New(logrus.New())

	raws := make([]models.RawListing, 0, 10)
	for i := 0; i < 10; i++ {
		raws = append(raws, sampleRawListing())
	}
	result := c.CleanAll(raws)
	assert.LessOrEqual(t, len(result.Cleaned), len(raws))
}
