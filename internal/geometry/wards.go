package geometry

import (
	"math"
	"sort"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/sirupsen/logrus"

	"jpestate/server/internal/database"
)

// Ward groups the geocoded listings of one administrative ward.
type Ward struct {
	Name       string
	Prefecture string
	Points     []orb.Point
	Hull       *geojson.Feature
}

// WardManager derives ward boundary hulls from listing coordinates, for
// map overlays.
type WardManager struct {
	store  database.Store
	logger *logrus.Logger
}

func NewWardManager(store database.Store, logger *logrus.Logger) *WardManager {
	return &WardManager{
		store:  store,
		logger: logger,
	}
}

// parseWard splits a listing location like "Akatsutsumi, Setagaya-ku,
// Tokyo" into ward and prefecture. Locations with fewer than two parts
// have no ward component.
func parseWard(location string) (ward, prefecture string, ok bool) {
	parts := strings.Split(location, ",")
	if len(parts) < 2 {
		return "", "", false
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	if len(parts) == 2 {
		ward, prefecture = parts[0], parts[1]
	} else {
		ward, prefecture = parts[1], parts[len(parts)-1]
	}
	if ward == "" || prefecture == "" {
		return "", "", false
	}
	return ward, prefecture, true
}

// CollectWards groups geocoded listings by ward.
func (wm *WardManager) CollectWards() (map[string]*Ward, error) {
	records, err := wm.store.FetchAll(true)
	if err != nil {
		return nil, err
	}

	wards := make(map[string]*Ward)
	for _, record := range records {
		location, _ := record.Data["location"].(string)
		lat, latOK := record.Data["latitude"].(float64)
		lon, lonOK := record.Data["longitude"].(float64)
		if location == "" || !latOK || !lonOK {
			continue
		}

		name, prefecture, ok := parseWard(location)
		if !ok {
			continue
		}

		key := prefecture + "/" + name
		ward, exists := wards[key]
		if !exists {
			ward = &Ward{Name: name, Prefecture: prefecture}
			wards[key] = ward
		}
		ward.Points = append(ward.Points, orb.Point{lon, lat})
	}

	return wards, nil
}

// GenerateHulls computes a convex hull for every ward with enough
// points and returns them as a GeoJSON feature collection.
func (wm *WardManager) GenerateHulls() (*geojson.FeatureCollection, error) {
	wards, err := wm.CollectWards()
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(wards))
	for key := range wards {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	fc := geojson.NewFeatureCollection()
	for _, key := range keys {
		ward := wards[key]
		if len(ward.Points) < 3 {
			wm.logger.Warnf("Not enough points for ward %s (minimum 3 required)", key)
			continue
		}

		hull := generateConvexHull(ward.Points)
		if hull == nil {
			continue
		}

		feature := geojson.NewFeature(orb.Polygon{hull})
		feature.Properties = geojson.Properties{
			"ward":        ward.Name,
			"prefecture":  ward.Prefecture,
			"point_count": len(ward.Points),
			"hull_type":   "convex",
		}
		ward.Hull = feature
		fc.Append(feature)
	}

	wm.logger.Infof("Generated %d ward hulls", len(fc.Features))
	return fc, nil
}

func angle(center, p orb.Point) float64 {
	return math.Atan2(p[1]-center[1], p[0]-center[0])
}

func sqDistance(p1, p2 orb.Point) float64 {
	dx := p2[0] - p1[0]
	dy := p2[1] - p1[1]
	return dx*dx + dy*dy
}

// sortPointsByAngle orders points counterclockwise around the center,
// nearer points first among collinear ones.
func sortPointsByAngle(points []orb.Point, center orb.Point) {
	sort.Slice(points, func(i, j int) bool {
		ai, aj := angle(center, points[i]), angle(center, points[j])
		if ai != aj {
			return ai < aj
		}
		return sqDistance(center, points[i]) < sqDistance(center, points[j])
	})
}

// generateConvexHull runs a Graham scan over the points and returns a
// closed ring, or nil when the points are degenerate.
func generateConvexHull(points []orb.Point) orb.Ring {
	if len(points) < 3 {
		return nil
	}

	pts := make([]orb.Point, len(points))
	copy(pts, points)

	// Find the leftmost point and pivot on it
	leftmostIdx := 0
	for i := 1; i < len(pts); i++ {
		if pts[i][0] < pts[leftmostIdx][0] {
			leftmostIdx = i
		}
	}
	pts[0], pts[leftmostIdx] = pts[leftmostIdx], pts[0]

	sortPointsByAngle(pts[1:], pts[0])

	hull := []orb.Point{pts[0], pts[1]}
	for i := 2; i < len(pts); i++ {
		for len(hull) > 1 {
			n := len(hull)
			v1x := hull[n-1][0] - hull[n-2][0]
			v1y := hull[n-1][1] - hull[n-2][1]
			v2x := pts[i][0] - hull[n-2][0]
			v2y := pts[i][1] - hull[n-2][1]
			if v1x*v2y-v1y*v2x >= 0 {
				break
			}
			hull = hull[:n-1]
		}
		hull = append(hull, pts[i])
	}

	if len(hull) < 3 {
		return nil
	}
	hull = append(hull, hull[0])
	return orb.Ring(hull)
}
