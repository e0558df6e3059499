package render

import (
	"fmt"
	"image"
	"image/draw"
	"time"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/roman-kulish/ground-control/internal/spectrogram"
)

const (
	defaultFontSize   = 10.0
	defaultCellWidth  = 8
	defaultCellHeight = 6

	// Default border sizes in pixels
	defaultTopBorder    = 30
	defaultLeftBorder   = 70
	defaultBottomBorder = 30
	defaultRightBorder  = 90

	colorBarWidth = 16
	colorBarGap   = 10

	defaultTimeFormat = "15:04:05"
)

// BorderConfig defines the sizes of white space around the raster
type BorderConfig struct {
	Top    int // Space for frequency scale
	Left   int // Space for time scale
	Bottom int // Space for information bar
	Right  int // Space for the color bar
}

// RenderConfig holds all configuration options for raster visualization
type RenderConfig struct {
	TimeFormat string         // Format string for time labels (e.g. "15:04:05")
	Location   *time.Location // Timezone for time labels

	FontSize     float64 // Font size in points
	ColorMapSize int     // Number of colors in gradient (0 for default)
	CellWidth    int     // Pixels per frequency bin
	CellHeight   int     // Pixels per time slot

	BorderConfig BorderConfig
}

// Plot describes what a render target displays
type Plot struct {
	Title    string       // Series label, e.g. "Gyros.x(deg/s)"
	ColorMap ColorMapType // Intensity gradient
}

// Scales are per axis display ranges indexed by spectrogram.Axis. Invalid
// intervals fall back to the raster's own interval.
type Scales [3]spectrogram.Interval

func (s Scales) resolve(r *spectrogram.Raster, axis spectrogram.Axis) spectrogram.Interval {
	if s[axis].IsValid() {
		return s[axis]
	}
	return r.Interval(axis)
}

// Renderer draws spectrogram rasters into annotated images
type Renderer struct {
	config RenderConfig
	font   *truetype.Font
}

// NewRenderer creates a renderer with the given configuration
func NewRenderer(config RenderConfig) (*Renderer, error) {
	if config.TimeFormat == "" {
		config.TimeFormat = defaultTimeFormat
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.FontSize == 0 {
		config.FontSize = defaultFontSize
	}
	if config.ColorMapSize == 0 {
		config.ColorMapSize = DefaultColorMapSize
	}
	if config.CellWidth <= 0 {
		config.CellWidth = defaultCellWidth
	}
	if config.CellHeight <= 0 {
		config.CellHeight = defaultCellHeight
	}
	if config.BorderConfig.Top == 0 {
		config.BorderConfig.Top = defaultTopBorder
	}
	if config.BorderConfig.Left == 0 {
		config.BorderConfig.Left = defaultLeftBorder
	}
	if config.BorderConfig.Bottom == 0 {
		config.BorderConfig.Bottom = defaultBottomBorder
	}
	if config.BorderConfig.Right == 0 {
		config.BorderConfig.Right = defaultRightBorder
	}

	parsedFont, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	return &Renderer{config: config, font: parsedFont}, nil
}

// Render creates an image of the raster with scales, a color bar and an info
// bar. Time flows downwards, the oldest slot is the top row.
func (r *Renderer) Render(raster *spectrogram.Raster, plot Plot, scales Scales) (*image.RGBA, error) {
	if raster == nil {
		return nil, fmt.Errorf("rendering: no raster")
	}

	width := raster.Columns() * r.config.CellWidth
	height := raster.Rows() * r.config.CellHeight
	borders := r.config.BorderConfig

	img := image.NewRGBA(image.Rect(0, 0,
		width+borders.Left+borders.Right,
		height+borders.Top+borders.Bottom))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	area := image.Rect(borders.Left, borders.Top, borders.Left+width, borders.Top+height)

	zScale := scales.resolve(raster, spectrogram.ZAxis)
	mapper := NewColorMapperWithSize(plot.ColorMap, zScale, r.config.ColorMapSize)

	ann := newAnnotator(r.font, r.config)
	defer ann.Close()

	view := rasterView{
		area:       area,
		columns:    raster.Columns(),
		rows:       raster.Rows(),
		x:          scales.resolve(raster, spectrogram.XAxis),
		z:          zScale,
		timestamps: raster.Timestamps(),
		title:      plot.Title,
	}
	if err := ann.annotate(img, view, mapper); err != nil {
		return nil, fmt.Errorf("drawing annotations: %w", err)
	}

	r.renderCells(img, area, raster, mapper)
	return img, nil
}

func (r *Renderer) renderCells(img *image.RGBA, area image.Rectangle, raster *spectrogram.Raster, mapper *ColorMapper) {
	cw, ch := r.config.CellWidth, r.config.CellHeight
	values := raster.Matrix()
	cols := raster.Columns()

	for i, v := range values {
		row, col := i/cols, i%cols
		cell := image.Rect(
			area.Min.X+col*cw,
			area.Min.Y+row*ch,
			area.Min.X+(col+1)*cw,
			area.Min.Y+(row+1)*ch,
		)
		draw.Draw(img, cell, image.NewUniform(mapper.Color(v)), image.Point{}, draw.Src)
	}
}
