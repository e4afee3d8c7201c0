package geo

// DefaultZoom is used when the map has not reported a zoom level yet.
const DefaultZoom = 3

// WideRadiusKm is the radius for any zoom level outside the table.
const WideRadiusKm = 256.0

// zoomRadiusKm maps a map zoom level to a search radius. Each step out doubles the radius.
var zoomRadiusKm = map[int]float64{
	1: 0.5,
	2: 1,
	3: 2,
	4: 4,
	5: 8,
	6: 16,
	7: 32,
	8: 64,
	9: 128,
}

// RadiusForZoom converts a zoom level to the search radius in km.
// Levels outside 1..9 collapse to WideRadiusKm.
func RadiusForZoom(level int) float64 {
	if r, ok := zoomRadiusKm[level]; ok {
		return r
	}
	return WideRadiusKm
}

// ZoomForRadius returns the most zoomed-in level whose radius covers km.
func ZoomForRadius(km float64) int {
	for level := 1; level <= 9; level++ {
		if zoomRadiusKm[level] >= km {
			return level
		}
	}
	return 10
}
