package render

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/roman-kulish/ground-control/internal/spectrogram"
)

// Color map types are persisted as integers in plot settings, do not reorder.
const (
	ColorMapStandard  ColorMapType = iota // Black to blue to cyan to yellow to red
	ColorMapJet                           // Blue to red transition
	ColorMapGrayscale                     // Black to white transition
	ColorMapThermal                       // Black to red to yellow to white
	ColorMapMarine                        // Deep blue to cyan to white
	ColorMapJungle                        // Dark green to yellow transition

	DefaultColorMapSize = 256 // Default number of colors in the map
)

// InvalidColor is used for cells that hold no displayable value
var InvalidColor color.Color = color.Black

var colorMapNames = map[ColorMapType]string{
	ColorMapStandard:  "standard",
	ColorMapJet:       "jet",
	ColorMapGrayscale: "grayscale",
	ColorMapThermal:   "thermal",
	ColorMapMarine:    "marine",
	ColorMapJungle:    "jungle",
}

// ColorMapType selects the gradient used to map intensities to colors
type ColorMapType int

func (t ColorMapType) String() string {
	if name, ok := colorMapNames[t]; ok {
		return name
	}
	return "colormap(" + strconv.Itoa(int(t)) + ")"
}

// IsValid reports whether t names a known color map
func (t ColorMapType) IsValid() bool {
	_, ok := colorMapNames[t]
	return ok
}

// ParseColorMapType resolves a color map by name, ignoring case.
func ParseColorMapType(name string) (ColorMapType, error) {
	name = strings.TrimSpace(name)
	for t, n := range colorMapNames {
		if strings.EqualFold(n, name) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown color map: '%s'", name)
}

// ColorMapper maps intensity values to colors using a pre-computed table
type ColorMapper struct {
	colorMap      []color.Color
	theme         func(float64) color.Color
	mapType       ColorMapType
	size          int
	valuePerIndex float64
	bounds        spectrogram.Interval
	mu            sync.RWMutex
}

// NewColorMapper creates a color mapper with the default table size
func NewColorMapper(t ColorMapType, bounds spectrogram.Interval) *ColorMapper {
	return NewColorMapperWithSize(t, bounds, DefaultColorMapSize)
}

// NewColorMapperWithSize creates a color mapper with size pre-computed colors.
func NewColorMapperWithSize(t ColorMapType, bounds spectrogram.Interval, size int) *ColorMapper {
	if size < 2 {
		size = DefaultColorMapSize
	}

	cm := &ColorMapper{
		colorMap: make([]color.Color, size),
		theme:    colorTheme(t),
		mapType:  t,
		size:     size,
	}
	cm.UpdateBounds(bounds)
	return cm
}

// UpdateBounds sets the intensity range and rebuilds the table
func (cm *ColorMapper) UpdateBounds(bounds spectrogram.Interval) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.bounds = bounds
	cm.valuePerIndex = bounds.Width() / float64(cm.size-1)

	for i := 0; i < cm.size; i++ {
		cm.colorMap[i] = cm.theme(float64(i) / float64(cm.size-1))
	}
}

// Bounds returns the intensity range
func (cm *ColorMapper) Bounds() spectrogram.Interval {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.bounds
}

// Color returns the color of v. Values outside the bounds are clamped, NaN
// maps to InvalidColor.
func (cm *ColorMapper) Color(v float64) color.Color {
	if math.IsNaN(v) {
		return InvalidColor
	}

	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if !cm.bounds.IsValid() {
		return cm.colorMap[0]
	}

	v = math.Max(cm.bounds.Min, math.Min(v, cm.bounds.Max))
	index := int(math.Round((v - cm.bounds.Min) / cm.valuePerIndex))
	index = max(0, min(index, cm.size-1))

	return cm.colorMap[index]
}

// Type returns the color map type
func (cm *ColorMapper) Type() ColorMapType {
	return cm.mapType
}

// Size returns the color map size
func (cm *ColorMapper) Size() int {
	return cm.size
}

// hsv builds a color from hue in degrees, saturation and value in [0, 1].
func hsv(h, s, v float64) color.Color {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	return colorful.Hsv(h, clamp01(s), clamp01(v)).Clamped()
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// colorTheme returns the gradient function of t over normalized values in [0, 1]
func colorTheme(t ColorMapType) func(float64) color.Color {
	switch t {
	case ColorMapJet:
		return func(v float64) color.Color {
			return hsv(240-(v*240), 0.9+(v*0.1), math.Pow(v, 0.7))
		}

	case ColorMapGrayscale:
		return func(v float64) color.Color {
			g := uint8(math.Pow(v, 0.7) * 255)
			return color.RGBA{R: g, G: g, B: g, A: 0xff}
		}

	case ColorMapJungle:
		return func(v float64) color.Color {
			return hsv(120-(v*60), 1.0, 0.3+(math.Pow(v, 0.6)*0.7))
		}

	case ColorMapThermal:
		return func(v float64) color.Color {
			if v < 0.33 {
				return color.RGBA{R: uint8(clamp01(v*3) * 255), A: 0xff}
			} else if v < 0.66 {
				return color.RGBA{R: 255, G: uint8(clamp01((v-0.33)*3) * 255), A: 0xff}
			}
			return color.RGBA{R: 255, G: 255, B: uint8(clamp01((v-0.66)*3) * 255), A: 0xff}
		}

	case ColorMapMarine:
		return func(v float64) color.Color {
			return hsv(240-(v*60), 1.0-(v*0.8), 0.3+(math.Pow(v, 0.6)*0.7))
		}

	default:
		return standardTheme
	}
}

// standardTheme has better differentiation in the lower intensity ranges
func standardTheme(v float64) color.Color {
	v = clamp01(v)
	enhanced := math.Pow(v, 0.7)

	switch {
	case v < 0.25:
		return hsv(240, 1.0, enhanced*4)
	case v < 0.5:
		return hsv(240-((v-0.25)*240), 1.0, enhanced*1.5)
	case v < 0.75:
		p := (v - 0.5) * 4
		return hsv(180-(p*120), 1.0, enhanced*1.5)
	default:
		p := (v - 0.75) * 4
		return hsv(60-(p*60), 1.0, 1.0)
	}
}

// ParseColor parses "#RRGGBB", "#RGB" or "#AARRGGBB" into a packed 0xAARRGGBB
// value. Colors without an alpha component are opaque.
func ParseColor(text string) (uint32, error) {
	s := strings.TrimSpace(text)
	if len(s) == 9 && s[0] == '#' {
		v, err := strconv.ParseUint(s[1:], 16, 32)
		if err != nil {
			return 0, fmt.Errorf("parsing color '%s': %w", text, err)
		}
		return uint32(v), nil
	}

	c, err := colorful.Hex(s)
	if err != nil {
		return 0, fmt.Errorf("parsing color '%s': %w", text, err)
	}
	r, g, b := c.RGB255()
	return 0xff<<24 | uint32(r)<<16 | uint32(g)<<8 | uint32(b), nil
}

// FormatColor formats a packed 0xAARRGGBB value as "#AARRGGBB"
func FormatColor(argb uint32) string {
	return fmt.Sprintf("#%08x", argb)
}

// ARGB unpacks a 0xAARRGGBB value
func ARGB(argb uint32) color.NRGBA {
	return color.NRGBA{
		A: uint8(argb >> 24),
		R: uint8(argb >> 16),
		G: uint8(argb >> 8),
		B: uint8(argb),
	}
}
