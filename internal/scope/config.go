package scope

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/roman-kulish/ground-control/internal/render"
	"github.com/roman-kulish/ground-control/internal/settings"
	"github.com/roman-kulish/ground-control/internal/spectrogram"
)

const (
	DefaultRefreshInterval   = 50 * time.Millisecond
	DefaultTimeHorizon       = 60
	DefaultSamplingFrequency = 100.0
	DefaultWindowWidth       = 64
	DefaultZMaximum          = 120.0
	DefaultColorMap          = render.ColorMapStandard
)

// Settings keys
const (
	plotGroup             = "plot3d"
	sourceGroupPrefix     = "spectrogramDataSource"
	keyPlotType           = "plot3dType"
	keySourceCount        = "dataSourceCount"
	keyColorMap           = "colorMap"
	keySamplingFrequency  = "samplingFrequency"
	keyTimeHorizon        = "timeHorizon"
	keyWindowWidth        = "windowWidth"
	keyZMaximum           = "zMaximum"
	keyRefreshInterval    = "refreshInterval"
	keySourceObject       = "uavObject"
	keySourceField        = "uavField"
	keySourceColor        = "color"
	keySourceLegacyColor  = "colormap"
	keySourceScalePower   = "yScalePower"
	keySourceMathFunction = "mathFunction"
	keySourceMeanSamples  = "yMeanSamples"
	keySourceMinimum      = "yMinimum"
	keySourceMaximum      = "yMaximum"
)

// SaveOptions controls which keys Save writes
type SaveOptions struct {
	// Complete additionally writes each source's color, scale power, math
	// function, mean samples and bounds, plus the refresh interval. Without it
	// only the keys read back by every version of the settings reader are
	// written, and reloading yields default tuning for each source.
	Complete bool
}

// SpectrogramConfig is the configuration of a spectrogram plot
type SpectrogramConfig struct {
	RefreshInterval   time.Duration
	TimeHorizon       int     // Number of retained time slots
	SamplingFrequency float64 // Hz
	WindowWidth       int     // Frequency bins per time slot
	ZMaximum          float64 // Upper bound of the intensity axis
	ColorMap          render.ColorMapType
	Sources           []*SourceConfig
}

// DefaultSpectrogramConfig returns the default configuration without sources
func DefaultSpectrogramConfig() *SpectrogramConfig {
	return &SpectrogramConfig{
		RefreshInterval:   DefaultRefreshInterval,
		TimeHorizon:       DefaultTimeHorizon,
		SamplingFrequency: DefaultSamplingFrequency,
		WindowWidth:       DefaultWindowWidth,
		ZMaximum:          DefaultZMaximum,
		ColorMap:          DefaultColorMap,
	}
}

// SpectrogramConfigFromSettings reads a configuration from a plot settings
// group. Absent keys keep their defaults, the result is not validated.
func SpectrogramConfigFromSettings(g *settings.Group) *SpectrogramConfig {
	c := DefaultSpectrogramConfig()
	if g == nil {
		return c
	}

	if v, ok := g.Int(keyTimeHorizon); ok {
		c.TimeHorizon = v
	}
	if v, ok := g.Float(keySamplingFrequency); ok {
		c.SamplingFrequency = v
	}
	if v, ok := g.Int(keyWindowWidth); ok {
		c.WindowWidth = v
	}
	if v, ok := g.Float(keyZMaximum); ok {
		c.ZMaximum = v
	}
	if v, ok := g.Int(keyColorMap); ok {
		c.ColorMap = render.ColorMapType(v)
	}
	if v, ok := g.Int(keyRefreshInterval); ok && v > 0 {
		c.RefreshInterval = time.Duration(v) * time.Millisecond
	}

	count, _ := g.Int(keySourceCount)
	for i := 0; i < count; i++ {
		sg, _ := g.Group(sourceGroupPrefix + strconv.Itoa(i))
		c.Sources = append(c.Sources, sourceFromSettings(sg))
	}

	return c
}

func sourceFromSettings(g *settings.Group) *SourceConfig {
	s := SourceConfig{Color: DefaultSourceColor}
	if g == nil {
		return &s
	}

	s.ObjectName, _ = g.String(keySourceObject)
	s.FieldName, _ = g.String(keySourceField)
	if v, ok := g.Uint32(keySourceColor); ok {
		s.Color = v
	}
	s.ScalePower, _ = g.Int(keySourceScalePower)
	s.MathFunction, _ = g.String(keySourceMathFunction)
	s.MeanSamples, _ = g.Int(keySourceMeanSamples)
	s.Minimum, _ = g.Float(keySourceMinimum)
	s.Maximum, _ = g.Float(keySourceMaximum)

	return &s
}

// FormValues are the raw values of the options form for a spectrogram
type FormValues struct {
	WindowWidth       int
	SamplingFrequency float64
	TimeHorizon       int
	ZMaximum          float64
	ColorMap          render.ColorMapType

	ObjectName   string
	FieldName    string
	ScalePower   int
	MeanSamples  int
	MathFunction string
	Color        string // Color text, e.g. "#ff0000"
}

// SpectrogramConfigFromForm builds a configuration with exactly one source.
// Unparsable color text falls back to DefaultSourceColor.
func SpectrogramConfigFromForm(f FormValues) *SpectrogramConfig {
	c := DefaultSpectrogramConfig()
	c.WindowWidth = f.WindowWidth
	c.SamplingFrequency = f.SamplingFrequency
	c.TimeHorizon = f.TimeHorizon
	c.ZMaximum = f.ZMaximum
	c.ColorMap = f.ColorMap

	color, err := render.ParseColor(f.Color)
	if err != nil {
		color = DefaultSourceColor
	}

	c.Sources = []*SourceConfig{{
		ObjectName:   f.ObjectName,
		FieldName:    f.FieldName,
		Color:        color,
		ScalePower:   f.ScalePower,
		MeanSamples:  f.MeanSamples,
		MathFunction: f.MathFunction,
	}}
	return c
}

// FormValues fills an options form from the configuration. Source fields come
// from the last source.
func (c *SpectrogramConfig) FormValues() FormValues {
	f := FormValues{
		WindowWidth:       c.WindowWidth,
		SamplingFrequency: c.SamplingFrequency,
		TimeHorizon:       c.TimeHorizon,
		ZMaximum:          c.ZMaximum,
		ColorMap:          c.ColorMap,
	}
	if n := len(c.Sources); n > 0 {
		s := c.Sources[n-1]
		f.ObjectName = s.ObjectName
		f.FieldName = s.FieldName
		f.ScalePower = s.ScalePower
		f.MeanSamples = s.MeanSamples
		f.MathFunction = s.MathFunction
		f.Color = render.FormatColor(s.Color)
	}
	return f
}

// Clone returns a deep copy, sources included
func (c *SpectrogramConfig) Clone() *SpectrogramConfig {
	clone := *c
	clone.Sources = make([]*SourceConfig, 0, len(c.Sources))
	for _, s := range c.Sources {
		clone.Sources = append(clone.Sources, s.Clone())
	}
	return &clone
}

// ReplaceSources swaps the source collection
func (c *SpectrogramConfig) ReplaceSources(sources []*SourceConfig) {
	c.Sources = sources
}

// Save writes the configuration into the plot3d group under root, replacing
// any previous plot settings.
func (c *SpectrogramConfig) Save(root *settings.Group, opts SaveOptions) {
	root.RemoveGroup(plotGroup)
	g := root.Ensure(plotGroup)

	g.Set(keyPlotType, int(PlotTypeSpectrogram))
	g.Set(keySourceCount, len(c.Sources))
	g.Set(keyColorMap, int(c.ColorMap))
	g.Set(keySamplingFrequency, c.SamplingFrequency)
	g.Set(keyTimeHorizon, c.TimeHorizon)
	g.Set(keyWindowWidth, c.WindowWidth)
	g.Set(keyZMaximum, c.ZMaximum)
	if opts.Complete {
		g.Set(keyRefreshInterval, c.RefreshInterval.Milliseconds())
	}

	for i, s := range c.Sources {
		sg := g.Ensure(sourceGroupPrefix + strconv.Itoa(i))
		sg.Set(keySourceObject, s.ObjectName)
		sg.Set(keySourceField, s.FieldName)
		sg.Set(keySourceLegacyColor, s.Color)

		if !opts.Complete {
			continue
		}
		sg.Set(keySourceColor, s.Color)
		sg.Set(keySourceScalePower, s.ScalePower)
		sg.Set(keySourceMathFunction, s.MathFunction)
		sg.Set(keySourceMeanSamples, s.MeanSamples)
		sg.Set(keySourceMinimum, s.Minimum)
		sg.Set(keySourceMaximum, s.Maximum)
	}
}

// Validate reports configurations that cannot be allocated
func (c *SpectrogramConfig) Validate() error {
	var errs []error
	if c.TimeHorizon <= 0 {
		errs = append(errs, fmt.Errorf("invalid time horizon: %d", c.TimeHorizon))
	}
	if c.WindowWidth <= 0 {
		errs = append(errs, fmt.Errorf("invalid window width: %d", c.WindowWidth))
	}
	if c.SamplingFrequency <= 0 {
		errs = append(errs, fmt.Errorf("invalid sampling frequency: %g", c.SamplingFrequency))
	}
	if c.ZMaximum <= 0 {
		errs = append(errs, fmt.Errorf("invalid z maximum: %g", c.ZMaximum))
	}
	if c.TimeHorizon > 0 && c.WindowWidth > 0 {
		if err := spectrogram.CheckBufferSize(c.WindowWidth, c.TimeHorizon); err != nil {
			errs = append(errs, err)
		}
	}
	for i, s := range c.Sources {
		if _, err := spectrogram.ParseMathFunction(s.MathFunction); err != nil {
			errs = append(errs, fmt.Errorf("source %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
