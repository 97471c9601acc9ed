package reports

import (
	"math"
	"sort"

	"github.com/angelmondragon/civicpulse-backend/pkg/db/models"
)

const (
	earthRadiusKm = 6371.0
	kmPerDegree   = 111.32

	defaultRadiusKm = 5.0
	maxRadiusKm     = 50.0
	defaultNearby   = 20
	maxNearby       = 50
	// rows pulled from the box before distance filtering
	nearbyCandidates = 500
)

type boundingBox struct {
	minLat, maxLat float64
	lng            []lngRange
}

// lngRange is an inclusive longitude interval inside [-180, 180].
type lngRange struct{ min, max float64 }

var allLongitudes = []lngRange{{-180, 180}}

// boxAround returns a lat/lng box that contains the circle of radiusKm
// around the point. Near the poles it widens to every longitude, and a
// circle crossing the antimeridian gets one longitude range per side.
func boxAround(lat, lng, radiusKm float64) boundingBox {
	dLat := radiusKm / kmPerDegree
	box := boundingBox{
		minLat: math.Max(-90, lat-dLat),
		maxLat: math.Min(90, lat+dLat),
		lng:    allLongitudes,
	}
	cos := math.Cos(lat * math.Pi / 180)
	if cos <= 0.01 {
		return box
	}
	dLng := radiusKm / (kmPerDegree * cos)
	if dLng >= 180 {
		return box
	}
	lo, hi := lng-dLng, lng+dLng
	switch {
	case lo < -180:
		box.lng = []lngRange{{-180, hi}, {lo + 360, 180}}
	case hi > 180:
		box.lng = []lngRange{{-180, hi - 360}, {lo, 180}}
	default:
		box.lng = []lngRange{{lo, hi}}
	}
	return box
}

// haversineKm is the great-circle distance between two points.
func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := math.Pi / 180
	dLat := (lat2 - lat1) * toRad
	dLng := (lng2 - lng1) * toRad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*toRad)*math.Cos(lat2*toRad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(a)))
}

type rankedReport struct {
	report   models.Report
	distance float64
}

// nearest keeps candidates within radiusKm, closest first, at most limit.
func nearest(candidates []models.Report, lat, lng, radiusKm float64, limit int) []rankedReport {
	out := make([]rankedReport, 0, len(candidates))
	for _, c := range candidates {
		d := haversineKm(lat, lng, c.Latitude, c.Longitude)
		if d <= radiusKm {
			out = append(out, rankedReport{report: c, distance: d})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].distance < out[j].distance })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
