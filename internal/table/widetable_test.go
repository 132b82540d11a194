package table

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jpestate/server/internal/models"
)

func fixtureRecords() []models.PersistedRecord {
	scraped := time.Date(2025, 10, 23, 12, 0, 0, 0, time.UTC)
	return []models.PersistedRecord{
		{
			ID: 1, Source: "example", ScrapedAt: scraped, Status: models.StatusActive,
			Data: models.CanonicalListing{
				"url":       "https://example.co.jp/en/forsale/view/1",
				"price_yen": float64(100000000),
				"size":      99.02,
				"zoning":    "Residential",
			},
		},
		{
			ID: 2, Source: "example", ScrapedAt: scraped, Status: models.StatusActive,
			Data: models.CanonicalListing{
				"url":       "https://example.co.jp/en/forsale/view/2",
				"price_yen": float64(200000000),
				"structure": "Wood",
			},
		},
		{
			ID: 3, Source: "example", ScrapedAt: scraped, Status: models.StatusExpired,
			Data: models.CanonicalListing{
				"url":       "https://example.co.jp/en/forsale/view/3",
				"price_yen": float64(300000000),
				"size":      120.5,
			},
		},
	}
}

func TestBuildColumnsAreUnionInStableOrder(t *testing.T) {
	table := Build(fixtureRecords())

	assert.Equal(t,
		[]string{"id", "source", "scraped_at", "status", "price_yen", "size", "structure", "url", "zoning"},
		table.Columns)
	require.Len(t, table.Rows, 3)

	// A rebuild over the same records yields the identical layout.
	again := Build(fixtureRecords())
	assert.Equal(t, table.Columns, again.Columns)
}

func TestBuildSparseCellsAreAbsent(t *testing.T) {
	table := Build(fixtureRecords())

	col, ok := table.ColumnIndex("structure")
	require.True(t, ok)
	assert.Equal(t, Absent, table.Cell(0, col).Kind)
	assert.Equal(t, Text, table.Cell(1, col).Kind)
	assert.Equal(t, "Wood", table.Cell(1, col).Str)
	assert.Equal(t, Absent, table.Cell(2, col).Kind)
}

func TestBuildCastsAllNumericTextColumns(t *testing.T) {
	records := []models.PersistedRecord{
		{ID: 1, Status: models.StatusActive, Data: models.CanonicalListing{
			"url": "u1", "walk_minutes": "4",
		}},
		{ID: 2, Status: models.StatusActive, Data: models.CanonicalListing{
			"url": "u2", "walk_minutes": float64(12),
		}},
	}
	table := Build(records)

	col, ok := table.ColumnIndex("walk_minutes")
	require.True(t, ok)
	assert.Equal(t, Numeric, table.Cell(0, col).Kind)
	assert.Equal(t, 4.0, table.Cell(0, col).Num)
	assert.Equal(t, Numeric, table.Cell(1, col).Kind)
}

func TestBuildKeepsMixedColumnsTextual(t *testing.T) {
	records := []models.PersistedRecord{
		{ID: 1, Status: models.StatusActive, Data: models.CanonicalListing{
			"url": "u1", "floors": "3",
		}},
		{ID: 2, Status: models.StatusActive, Data: models.CanonicalListing{
			"url": "u2", "floors": "3F",
		}},
	}
	table := Build(records)

	col, ok := table.ColumnIndex("floors")
	require.True(t, ok)
	assert.Equal(t, Text, table.Cell(0, col).Kind)
	assert.Equal(t, Text, table.Cell(1, col).Kind)
}

func TestBuildMergesDriftedKeySpellings(t *testing.T) {
	// One record persisted before the price rename, one after. Both
	// must land in the single price_yen column.
	records := []models.PersistedRecord{
		{ID: 1, Status: models.StatusActive, Data: models.CanonicalListing{
			"url": "u1", "price": "¥105,800,000",
		}},
		{ID: 2, Status: models.StatusActive, Data: models.CanonicalListing{
			"url": "u2", "price_yen": float64(200000000),
		}},
	}
	table := Build(records)

	_, hasOld := table.ColumnIndex("price")
	assert.False(t, hasOld)

	col, ok := table.ColumnIndex("price_yen")
	require.True(t, ok)
	assert.Equal(t, Numeric, table.Cell(0, col).Kind)
	assert.Equal(t, float64(105800000), table.Cell(0, col).Num)
	assert.Equal(t, float64(200000000), table.Cell(1, col).Num)
}

func TestRecordsAreJSONSafe(t *testing.T) {
	table := Build(fixtureRecords())
	table.Rows[0][4] = NumberValue(math.NaN()) // price_yen

	records := table.Records()
	require.Len(t, records, 3)

	assert.Nil(t, records[0]["price_yen"])
	assert.Nil(t, records[0]["structure"])
	assert.Equal(t, int64(200000000), records[1]["price_yen"])
	assert.Equal(t, 120.5, records[2]["size"])
	assert.Equal(t, int64(2), records[1]["id"])
	assert.Equal(t, "active", records[1]["status"])
}

func TestProfile(t *testing.T) {
	profile := Profile(Build(fixtureRecords()))

	price, ok := profile["price_yen"]
	require.True(t, ok)
	assert.Equal(t, "numeric", price.Type)
	require.NotNil(t, price.Min)
	require.NotNil(t, price.Max)
	require.NotNil(t, price.Avg)
	assert.Equal(t, float64(100000000), *price.Min)
	assert.Equal(t, float64(300000000), *price.Max)
	assert.Equal(t, float64(200000000), *price.Avg)

	zoning, ok := profile["zoning"]
	require.True(t, ok)
	assert.Equal(t, "categorical", zoning.Type)
	assert.Equal(t, []string{"Residential"}, zoning.UniqueSamples)

	_, hasURL := profile["url"]
	assert.False(t, hasURL)
}

func TestProfileMixedColumnKeepsNumericSamples(t *testing.T) {
	records := []models.PersistedRecord{
		{ID: 1, Status: models.StatusActive, Data: models.CanonicalListing{
			"url": "u1", "floors": float64(3),
		}},
		{ID: 2, Status: models.StatusActive, Data: models.CanonicalListing{
			"url": "u2", "floors": "3F",
		}},
	}
	profile := Profile(Build(records))

	floors, ok := profile["floors"]
	require.True(t, ok)
	assert.Equal(t, "categorical", floors.Type)
	assert.Equal(t, []string{"3", "3F"}, floors.UniqueSamples)
}

func TestProfileCapsUniqueSamples(t *testing.T) {
	records := make([]models.PersistedRecord, 30)
	for i := range records {
		records[i] = models.PersistedRecord{
			ID: int64(i + 1), Status: models.StatusActive,
			Data: models.CanonicalListing{
				"url":     string(rune('a' + i)),
				"station": "Station " + string(rune('A'+i)),
			},
		}
	}
	profile := Profile(Build(records))

	station, ok := profile["station"]
	require.True(t, ok)
	assert.Len(t, station.UniqueSamples, 20)
	assert.Equal(t, "Station A", station.UniqueSamples[0])
}

func TestProfileOmitsAllNullColumns(t *testing.T) {
	records := []models.PersistedRecord{
		{ID: 1, Status: models.StatusActive, Data: models.CanonicalListing{
			"url": "u1", "available_from": nil,
		}},
	}
	profile := Profile(Build(records))
	_, ok := profile["available_from"]
	assert.False(t, ok)
}
