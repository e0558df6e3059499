package render

import (
	"errors"

	"github.com/roman-kulish/ground-control/internal/spectrogram"
)

// Target displays an attached raster
type Target interface {
	Attach(raster *spectrogram.Raster, plot Plot)
	SetAxisScale(axis spectrogram.Axis, min, max float64)
	Replot() error
	Detach()
}

// Targets forwards every call to each of its targets in order
type Targets []Target

func (ts Targets) Attach(raster *spectrogram.Raster, plot Plot) {
	for _, t := range ts {
		t.Attach(raster, plot)
	}
}

func (ts Targets) SetAxisScale(axis spectrogram.Axis, min, max float64) {
	for _, t := range ts {
		t.SetAxisScale(axis, min, max)
	}
}

// Replot replots every target, a failing target does not stop the others
func (ts Targets) Replot() error {
	var errs []error
	for _, t := range ts {
		if err := t.Replot(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (ts Targets) Detach() {
	for _, t := range ts {
		t.Detach()
	}
}
