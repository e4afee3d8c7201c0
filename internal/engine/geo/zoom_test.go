package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRadiusForZoom(t *testing.T) {
	expected := map[int]float64{
		1: 0.5, 2: 1, 3: 2, 4: 4, 5: 8, 6: 16, 7: 32, 8: 64, 9: 128,
		0: 256, 10: 256, 14: 256, -1: 256,
	}
	for level, radius := range expected {
		assert.Equal(t, radius, RadiusForZoom(level), "level %d", level)
	}
}

func TestRadiusForZoom_Monotonic(t *testing.T) {
	for level := 1; level < 10; level++ {
		assert.Less(t, RadiusForZoom(level), RadiusForZoom(level+1), "level %d", level)
		assert.Greater(t, RadiusForZoom(level), 0.0)
	}
}

func TestZoomForRadius(t *testing.T) {
	assert.Equal(t, 1, ZoomForRadius(0.2))
	assert.Equal(t, 3, ZoomForRadius(2))
	assert.Equal(t, 4, ZoomForRadius(2.5))
	assert.Equal(t, 9, ZoomForRadius(100))
	assert.Equal(t, 10, ZoomForRadius(500))
}
