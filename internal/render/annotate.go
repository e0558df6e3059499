package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"

	"github.com/roman-kulish/ground-control/internal/spectrogram"
)

const (
	dpi            = 96.0
	tickMarkLength = 5
	pixelsPerLabel = 80.0
	pixelsPerTime  = 40
)

// rasterView is the geometry and metadata the annotator draws around
type rasterView struct {
	area       image.Rectangle
	columns    int
	rows       int
	x          spectrogram.Interval
	z          spectrogram.Interval
	timestamps []time.Time
	title      string
}

type annotator struct {
	context  *freetype.Context
	config   RenderConfig
	fontFace font.Face
}

func newAnnotator(f *truetype.Font, config RenderConfig) *annotator {
	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(f)
	ctx.SetFontSize(config.FontSize)
	ctx.SetHinting(font.HintingNone)
	ctx.SetSrc(image.Black)

	return &annotator{
		context: ctx,
		config:  config,
		fontFace: truetype.NewFace(f, &truetype.Options{
			Size:    config.FontSize,
			DPI:     dpi,
			Hinting: font.HintingNone,
		}),
	}
}

func (a *annotator) Close() error {
	if a.fontFace != nil {
		return a.fontFace.Close()
	}
	return nil
}

func (a *annotator) annotate(img *image.RGBA, view rasterView, mapper *ColorMapper) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)

	if err := a.drawFrequencyScale(img, view); err != nil {
		return fmt.Errorf("drawing frequency scale: %w", err)
	}
	if err := a.drawTimeScale(img, view); err != nil {
		return fmt.Errorf("drawing time scale: %w", err)
	}
	if err := a.drawColorBar(img, view, mapper); err != nil {
		return fmt.Errorf("drawing color bar: %w", err)
	}
	if err := a.drawInfoBar(img, view); err != nil {
		return fmt.Errorf("drawing info bar: %w", err)
	}
	return nil
}

func (a *annotator) fontHeight() int {
	metrics := a.fontFace.Metrics()
	return (metrics.Ascent + metrics.Descent).Round()
}

func (a *annotator) drawFrequencyScale(img *image.RGBA, view rasterView) error {
	if !view.x.IsValid() {
		return nil
	}

	width := view.area.Dx()
	step := niceStep(view.x.Width(), float64(width)/pixelsPerLabel)
	textY := view.area.Min.Y - tickMarkLength - a.fontHeight()/2

	for freq := math.Ceil(view.x.Min/step) * step; freq <= view.x.Max+step/1e6; freq += step {
		ratio := (freq - view.x.Min) / view.x.Width()
		x := view.area.Min.X + int(ratio*float64(width))

		for y := view.area.Min.Y - tickMarkLength; y < view.area.Min.Y; y++ {
			img.Set(x, y, color.Black)
		}

		label := formatFrequency(freq)
		w := font.MeasureString(a.fontFace, label).Round()
		if _, err := a.context.DrawString(label, freetype.Pt(x-w/2, textY)); err != nil {
			return fmt.Errorf("drawing frequency label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawTimeScale(img *image.RGBA, view rasterView) error {
	if view.rows == 0 || len(view.timestamps) == 0 {
		return nil
	}

	rowHeight := view.area.Dy() / view.rows
	every := max(1, pixelsPerTime/max(rowHeight, 1))
	metrics := a.fontFace.Metrics()

	for row := 0; row < view.rows && row < len(view.timestamps); row += every {
		y := view.area.Min.Y + row*rowHeight

		for x := view.area.Min.X - tickMarkLength; x < view.area.Min.X; x++ {
			img.Set(x, y, color.Black)
		}

		label := view.timestamps[row].In(a.config.Location).Format(a.config.TimeFormat)
		w := font.MeasureString(a.fontFace, label).Round()
		textY := y + a.fontHeight()/2 - metrics.Descent.Round()
		pt := freetype.Pt(view.area.Min.X-tickMarkLength-3-w, textY)
		if _, err := a.context.DrawString(label, pt); err != nil {
			return fmt.Errorf("drawing time label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawColorBar(img *image.RGBA, view rasterView, mapper *ColorMapper) error {
	bar := image.Rect(
		view.area.Max.X+colorBarGap,
		view.area.Min.Y,
		view.area.Max.X+colorBarGap+colorBarWidth,
		view.area.Max.Y,
	)

	height := bar.Dy()
	for y := 0; y < height; y++ {
		// Top of the bar is the maximum
		v := view.z.Max - view.z.Width()*float64(y)/float64(max(height-1, 1))
		line := image.Rect(bar.Min.X, bar.Min.Y+y, bar.Max.X, bar.Min.Y+y+1)
		draw.Draw(img, line, image.NewUniform(mapper.Color(v)), image.Point{}, draw.Src)
	}

	labelX := bar.Max.X + 3
	labels := []struct {
		value float64
		y     int
	}{
		{view.z.Max, bar.Min.Y + a.fontHeight()/2},
		{view.z.Min, bar.Max.Y},
	}
	for _, l := range labels {
		if _, err := a.context.DrawString(humanize.Ftoa(l.value), freetype.Pt(labelX, l.y)); err != nil {
			return fmt.Errorf("drawing color bar label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawInfoBar(img *image.RGBA, view rasterView) error {
	var sb strings.Builder

	if view.title != "" {
		sb.WriteString(view.title)
		sb.WriteString("; ")
	}
	sb.WriteString(fmt.Sprintf("Freq: %s - %s", formatFrequency(view.x.Min), formatFrequency(view.x.Max)))
	if view.columns > 0 {
		sb.WriteString("; 1 bin = ")
		sb.WriteString(formatFrequency(view.x.Width() / float64(view.columns)))
	}
	if n := len(view.timestamps); n > 1 {
		sb.WriteString(fmt.Sprintf("; Time: %s - %s",
			view.timestamps[0].In(a.config.Location).Format(a.config.TimeFormat),
			view.timestamps[n-1].In(a.config.Location).Format(a.config.TimeFormat)))
	}

	metrics := a.fontFace.Metrics()
	textY := img.Bounds().Max.Y - (a.config.BorderConfig.Bottom-a.fontHeight())/2 - metrics.Descent.Round()

	if _, err := a.context.DrawString(sb.String(), freetype.Pt(view.area.Min.X, textY)); err != nil {
		return fmt.Errorf("drawing info text: %w", err)
	}
	return nil
}

// niceStep returns a 1, 2 or 5 times power of ten step that splits span into
// roughly the desired number of labels.
func niceStep(span, desired float64) float64 {
	if span <= 0 || desired < 1 {
		return math.Max(span, 1)
	}

	rough := span / desired
	magnitude := math.Pow10(int(math.Floor(math.Log10(rough))))
	for _, m := range []float64{1, 2, 5, 10} {
		if step := m * magnitude; step >= rough {
			return step
		}
	}
	return 10 * magnitude
}

func formatFrequency(hz float64) string {
	v, suffix := humanize.ComputeSI(hz)
	return humanize.FtoaWithDigits(v, 2) + " " + suffix + "Hz"
}
