package components

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/paulmach/orb"

	"github.com/rendis/templestay/internal/engine/geo"
	"github.com/rendis/templestay/internal/engine/viewport"
	"github.com/rendis/templestay/internal/model"
	"github.com/rendis/templestay/internal/tui/styles"
)

// framePadding widens the frame so the radius circle is not drawn on the edge.
const framePadding = 1.15

// MapView renders the viewport with Braille characters: the radius circle,
// venue pins, the search center crosshair and the user position. It implements viewport.Surface and must
// be used through a pointer so the controller and the view share it.
type MapView struct {
	width   int
	height  int
	state   model.ViewportState
	ring    orb.Ring
	frame   orb.Bound
	markers []viewport.Marker
	hasView bool
}

func NewMapView(width, height int) *MapView {
	return &MapView{width: width, height: height}
}

func (m *MapView) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// SetViewport recenters the frame and redraws the radius circle.
func (m *MapView) SetViewport(state model.ViewportState) {
	m.state = state
	m.ring = geo.CircleRing(state.Center, state.RadiusKm, 96)
	m.frame = geo.BoundAround(state.Center, state.RadiusKm*framePadding)
	m.hasView = true
}

func (m *MapView) ClearMarkers() {
	m.markers = nil
}

func (m *MapView) SetMarkers(markers []viewport.Marker) {
	m.markers = markers
}

func (m *MapView) Markers() []viewport.Marker {
	return m.markers
}

func (m *MapView) Frame() orb.Bound {
	return m.frame
}

// Braille character encoding:
// Each braille char is a 2x4 dot grid.
// Dot positions:  0 3
//
//	1 4
//	2 5
//	6 7
//
// Unicode: 0x2800 + sum of raised dot bits
var brailleDots = [8]rune{0x01, 0x02, 0x04, 0x08, 0x10, 0x20, 0x40, 0x80}

var dotPositions = [8][2]int{
	{0, 0}, {1, 0}, {2, 0}, {0, 1},
	{1, 1}, {2, 1}, {3, 0}, {3, 1},
}

type layer int

const (
	layerNone layer = iota
	layerCircle
	layerVenue
	layerCenter
	layerUser
)

func (m *MapView) View() string {
	if m.width <= 0 || m.height <= 0 {
		return ""
	}
	cols, rows := m.width, m.height
	if !m.hasView {
		return strings.Repeat(strings.Repeat(" ", cols)+"\n", rows-1) + strings.Repeat(" ", cols)
	}

	dotW := cols * 2
	dotH := rows * 4
	minLat, maxLat := m.frame.Min.Lat(), m.frame.Max.Lat()
	minLng, maxLng := m.frame.Min.Lon(), m.frame.Max.Lon()
	latRange := maxLat - minLat
	lngRange := maxLng - minLng
	if latRange == 0 || lngRange == 0 {
		return strings.Repeat(strings.Repeat(" ", cols)+"\n", rows-1) + strings.Repeat(" ", cols)
	}

	// 1° of longitude shrinks with latitude; braille dots are roughly square.
	cosLat := math.Cos(m.state.Center.Lat * math.Pi / 180)
	geoAspect := lngRange * cosLat / latRange
	dotAspect := float64(dotW) / float64(dotH)

	effectiveW, effectiveH := dotW, dotH
	offsetX, offsetY := 0, 0
	if geoAspect < dotAspect {
		effectiveW = max(int(float64(dotH)*geoAspect), 4)
		offsetX = (dotW - effectiveW) / 2
	} else {
		effectiveH = max(int(float64(dotW)/geoAspect), 4)
		offsetY = (dotH - effectiveH) / 2
	}

	grid := make([][]layer, dotH)
	for i := range grid {
		grid[i] = make([]layer, dotW)
	}
	toDot := func(p orb.Point) (int, int) {
		x := offsetX + int((p.Lon()-minLng)/lngRange*float64(effectiveW-1))
		y := offsetY + int((maxLat-p.Lat())/latRange*float64(effectiveH-1))
		return x, y
	}
	plot := func(x, y int, l layer) {
		if x >= 0 && x < dotW && y >= 0 && y < dotH && grid[y][x] < l {
			grid[y][x] = l
		}
	}

	for i := 0; i+1 < len(m.ring); i++ {
		x0, y0 := toDot(m.ring[i])
		x1, y1 := toDot(m.ring[i+1])
		drawLine(x0, y0, x1, y1, func(x, y int) { plot(x, y, layerCircle) })
	}
	for _, mk := range m.markers {
		x, y := toDot(mk.Coordinate.Point())
		if mk.User {
			// a 2x2 block stands out from single-dot venues
			for dy := 0; dy < 2; dy++ {
				for dx := 0; dx < 2; dx++ {
					plot(x+dx, y+dy, layerUser)
				}
			}
			continue
		}
		if mk.Center {
			for d := -2; d <= 2; d++ {
				plot(x+d, y, layerCenter)
				plot(x, y+d, layerCenter)
			}
			continue
		}
		plot(x, y, layerVenue)
	}

	layerStyles := map[layer]lipgloss.Style{
		layerCircle: lipgloss.NewStyle().Foreground(styles.Muted),
		layerVenue:  lipgloss.NewStyle().Foreground(styles.Primary),
		layerCenter: lipgloss.NewStyle().Foreground(styles.Warning),
		layerUser:   lipgloss.NewStyle().Foreground(styles.User),
	}

	var sb strings.Builder
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			var bits rune
			top := layerNone
			for dot := 0; dot < 8; dot++ {
				dy := row*4 + dotPositions[dot][0]
				dx := col*2 + dotPositions[dot][1]
				if l := grid[dy][dx]; l != layerNone {
					bits |= brailleDots[dot]
					if l > top {
						top = l
					}
				}
			}
			if top == layerNone {
				sb.WriteRune(' ')
				continue
			}
			sb.WriteString(layerStyles[top].Render(string(0x2800 + bits)))
		}
		if row < rows-1 {
			sb.WriteRune('\n')
		}
	}
	return sb.String()
}

// drawLine walks the segment with Bresenham's algorithm.
func drawLine(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := 1
	if x0 >= x1 {
		sx = -1
	}
	sy := 1
	if y0 >= y1 {
		sy = -1
	}
	err := dx + dy

	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
