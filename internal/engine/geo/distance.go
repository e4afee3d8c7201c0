package geo

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"

	"github.com/rendis/templestay/internal/model"
)

// EarthRadiusKm is the mean Earth radius used by DistanceKm.
const EarthRadiusKm = 6371.0

// DistanceKm returns the great-circle (haversine) distance between a and b in kilometers.
func DistanceKm(a, b model.Coordinate) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180.0
	dLng := (b.Lng - a.Lng) * math.Pi / 180.0
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*math.Pi/180.0)*math.Cos(b.Lat*math.Pi/180.0)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusKm * c
}

// FormatDistance renders meters below 1 km ("500m") and one decimal above ("2.4km").
// The unit is picked before rounding, so 0.9996 km is "1000m".
func FormatDistance(km float64) string {
	if km < 1 {
		return fmt.Sprintf("%dm", int(math.Round(km*1000)))
	}
	return fmt.Sprintf("%.1fkm", km)
}

// BoundAround returns the bounding box that encloses a circle of radiusKm around center.
func BoundAround(center model.Coordinate, radiusKm float64) orb.Bound {
	return orbgeo.NewBoundAroundPoint(center.Point(), radiusKm*1000)
}

// CircleRing approximates the radius circle as a closed ring with the given number of segments.
func CircleRing(center model.Coordinate, radiusKm float64, segments int) orb.Ring {
	if segments < 8 {
		segments = 8
	}
	ring := make(orb.Ring, 0, segments+1)
	for i := 0; i < segments; i++ {
		bearing := 360.0 * float64(i) / float64(segments)
		ring = append(ring, orbgeo.PointAtBearingAndDistance(center.Point(), bearing, radiusKm*1000))
	}
	return append(ring, ring[0])
}

// Offset moves c by km along bearing (degrees clockwise from north).
func Offset(c model.Coordinate, bearing, km float64) model.Coordinate {
	return model.FromPoint(orbgeo.PointAtBearingAndDistance(c.Point(), bearing, km*1000))
}
