package scope

import (
	"errors"
	"fmt"

	"github.com/roman-kulish/ground-control/internal/settings"
)

// Plot types are persisted as integers, do not reorder.
const (
	PlotTypeSpectrogram PlotType = iota
)

var (
	// ErrUnknownPlotType is returned for plot type discriminators without a reader
	ErrUnknownPlotType = errors.New("unknown plot type")

	// ErrNoPlotSettings is returned when the settings hold no plot group
	ErrNoPlotSettings = errors.New("no plot settings")
)

// PlotType discriminates the PlotConfig variants
type PlotType int

func (t PlotType) String() string {
	switch t {
	case PlotTypeSpectrogram:
		return "spectrogram"
	default:
		return fmt.Sprintf("plot(%d)", int(t))
	}
}

// PlotConfig is a plot configuration tagged with its type. Exactly the payload
// matching Type is set.
type PlotConfig struct {
	Type        PlotType
	Spectrogram *SpectrogramConfig
}

// NewSpectrogramPlot wraps a spectrogram configuration
func NewSpectrogramPlot(c *SpectrogramConfig) PlotConfig {
	return PlotConfig{Type: PlotTypeSpectrogram, Spectrogram: c}
}

// PlotConfigFromSettings reads the plot3d group under root and dispatches on
// its type. A missing type means spectrogram.
func PlotConfigFromSettings(root *settings.Group) (PlotConfig, error) {
	g, ok := root.Group(plotGroup)
	if !ok {
		return PlotConfig{}, fmt.Errorf("reading plot settings: %w", ErrNoPlotSettings)
	}

	t, _ := g.Int(keyPlotType)
	switch PlotType(t) {
	case PlotTypeSpectrogram:
		return NewSpectrogramPlot(SpectrogramConfigFromSettings(g)), nil
	default:
		return PlotConfig{}, fmt.Errorf("reading plot settings: %w: %d", ErrUnknownPlotType, t)
	}
}

// Clone returns a deep copy of the configuration
func (p PlotConfig) Clone() PlotConfig {
	switch p.Type {
	case PlotTypeSpectrogram:
		if p.Spectrogram != nil {
			return NewSpectrogramPlot(p.Spectrogram.Clone())
		}
	}
	return p
}

// Save writes the configuration under root
func (p PlotConfig) Save(root *settings.Group, opts SaveOptions) error {
	switch p.Type {
	case PlotTypeSpectrogram:
		if p.Spectrogram == nil {
			return fmt.Errorf("saving plot settings: empty spectrogram configuration")
		}
		p.Spectrogram.Save(root, opts)
		return nil
	default:
		return fmt.Errorf("saving plot settings: %w: %d", ErrUnknownPlotType, p.Type)
	}
}

// Validate validates the payload matching Type
func (p PlotConfig) Validate() error {
	switch p.Type {
	case PlotTypeSpectrogram:
		if p.Spectrogram == nil {
			return fmt.Errorf("empty spectrogram configuration")
		}
		return p.Spectrogram.Validate()
	default:
		return fmt.Errorf("%w: %d", ErrUnknownPlotType, p.Type)
	}
}
