package geo

import (
	"github.com/paulmach/orb"

	"github.com/rendis/templestay/internal/model"
)

// ServiceArea is the box venues are expected to fall in: the Korean peninsula
// south of the DMZ plus Jeju and Ulleungdo.
var ServiceArea = orb.Bound{
	Min: orb.Point{124.5, 33.0},
	Max: orb.Point{131.95, 38.7},
}

// InArea reports whether c lies inside area.
func InArea(area orb.Bound, c model.Coordinate) bool {
	return area.Contains(c.Point())
}
