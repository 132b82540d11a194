package geocoding

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"jpestate/server/internal/database"
)

type Geocoder struct {
	logger    *logrus.Logger
	cachePath string
	cache     map[string][]float64
	cacheLock sync.RWMutex
	client    *http.Client
}

func NewGeocoder(logger *logrus.Logger, cachePath string) *Geocoder {
	g := &Geocoder{
		logger:    logger,
		cachePath: cachePath,
		cache:     make(map[string][]float64),
		client:    &http.Client{Timeout: 10 * time.Second},
	}

	// Load cache from file
	g.loadCache()

	return g
}

func (g *Geocoder) loadCache() {
	data, err := os.ReadFile(g.cachePath)
	if err != nil {
		g.logger.Warnf("Could not load geocode cache: %v", err)
		return
	}

	err = json.Unmarshal(data, &g.cache)
	if err != nil {
		g.logger.Errorf("Failed to parse geocode cache: %v", err)
		return
	}

	g.logger.Infof("Loaded %d cached locations", len(g.cache))
}

func (g *Geocoder) saveCache() {
	g.cacheLock.RLock()
	defer g.cacheLock.RUnlock()

	data, err := json.Marshal(g.cache)
	if err != nil {
		g.logger.Errorf("Failed to marshal geocode cache: %v", err)
		return
	}

	err = os.WriteFile(g.cachePath, data, 0644)
	if err != nil {
		g.logger.Errorf("Failed to save geocode cache: %v", err)
		return
	}

	g.logger.Info("Saved geocode cache to disk")
}

type nominatimResponse []struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// GeocodeLocation resolves a listing's free-text location ("Akatsutsumi,
// Setagaya-ku, Tokyo") to coordinates via Nominatim.
func (g *Geocoder) GeocodeLocation(location string) (float64, float64, error) {
	fullAddress := fmt.Sprintf("%s, Japan", location)

	// Check cache first
	g.cacheLock.RLock()
	if coords, ok := g.cache[location]; ok {
		g.cacheLock.RUnlock()
		if len(coords) == 2 {
			g.logger.WithFields(logrus.Fields{
				"address":   fullAddress,
				"latitude":  coords[0],
				"longitude": coords[1],
				"source":    "cache",
			}).Info("Found coordinates in cache")
			return coords[0], coords[1], nil
		}
		return 0, 0, fmt.Errorf("invalid cached coordinates")
	}
	g.cacheLock.RUnlock()

	g.logger.WithField("address", fullAddress).Info("Geocoding address with Nominatim")

	// Respect Nominatim's usage policy
	time.Sleep(time.Second)

	params := url.Values{
		"q":              []string{fullAddress},
		"format":         []string{"json"},
		"limit":          []string{"1"},
		"countrycodes":   []string{"jp"},
		"addressdetails": []string{"1"},
	}

	req, err := http.NewRequest("GET", "https://nominatim.openstreetmap.org/search", nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to create request: %v", err)
	}

	req.URL.RawQuery = params.Encode()
	req.Header.Set("User-Agent", "JPEstate Listing Explorer/1.0")
	req.Header.Set("Accept-Language", "ja-JP,ja;q=0.9,en-US;q=0.8,en;q=0.7")

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.WithError(err).WithField("address", fullAddress).Error("Geocoding request failed")
		return 0, 0, fmt.Errorf("geocoding request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		g.logger.WithError(err).WithField("address", fullAddress).Error("Failed to read response")
		return 0, 0, fmt.Errorf("failed to read response: %v", err)
	}

	var result nominatimResponse
	if err := json.Unmarshal(body, &result); err != nil {
		g.logger.WithError(err).WithField("address", fullAddress).Error("Failed to parse response")
		return 0, 0, fmt.Errorf("failed to parse response: %v", err)
	}

	if len(result) == 0 {
		g.logger.WithField("address", fullAddress).Warn("No results found")
		return 0, 0, fmt.Errorf("no results found for address: %s", fullAddress)
	}

	var lat, lon float64
	fmt.Sscanf(result[0].Lat, "%f", &lat)
	fmt.Sscanf(result[0].Lon, "%f", &lon)

	g.logger.WithFields(logrus.Fields{
		"address":   fullAddress,
		"latitude":  lat,
		"longitude": lon,
		"source":    "nominatim",
	}).Info("Successfully geocoded address")

	// Cache the result
	g.cacheLock.Lock()
	g.cache[location] = []float64{lat, lon}
	g.cacheLock.Unlock()

	// Save cache periodically
	go g.saveCache()

	return lat, lon, nil
}

// BackfillCoordinates geocodes every persisted listing that has a
// location but no coordinates yet and patches the result into its
// document. Listings that fail to geocode are skipped; the next run
// retries them.
func (g *Geocoder) BackfillCoordinates(store database.Store) (int, error) {
	records, err := store.FetchAll(true)
	if err != nil {
		return 0, err
	}

	var updated int
	for _, record := range records {
		location, ok := record.Data["location"].(string)
		if !ok || location == "" {
			continue
		}
		if _, done := record.Data["latitude"]; done {
			continue
		}

		lat, lon, err := g.GeocodeLocation(location)
		if err != nil {
			g.logger.WithError(err).WithField("id", record.ID).Warn("Skipping listing, geocoding failed")
			continue
		}

		if err := store.UpdateCoordinates(record.ID, lat, lon); err != nil {
			g.logger.WithError(err).WithField("id", record.ID).Error("Failed to store coordinates")
			continue
		}
		updated++
	}

	g.logger.WithField("updated", updated).Info("Coordinate backfill complete")
	return updated, nil
}
