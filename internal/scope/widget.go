package scope

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/roman-kulish/ground-control/internal/render"
	"github.com/roman-kulish/ground-control/internal/spectrogram"
	"github.com/roman-kulish/ground-control/internal/telemetry"
)

// ErrObjectNotFound is returned when a configured telemetry object is missing
var ErrObjectNotFound = telemetry.ErrObjectNotFound

// RenderTarget displays the raster of the loaded plot
type RenderTarget interface {
	Attach(raster *spectrogram.Raster, plot render.Plot)
	SetAxisScale(axis spectrogram.Axis, min, max float64)
	Replot() error
	Detach()
}

// Telemetry resolves telemetry objects and delivers their updates
type Telemetry interface {
	Object(name string) (*telemetry.Object, bool)
	Subscribe(name string, fn func(telemetry.Update)) (func(), error)
}

// RowRecorder receives every row written into the loaded spectrogram
type RowRecorder func(ts time.Time, row []float64)

// WithLogger sets the logger for the widget
func WithLogger(logger *slog.Logger) func(w *Widget) {
	return func(w *Widget) {
		w.logger = logger
	}
}

// WithRecorder registers a recorder for spectrogram rows
func WithRecorder(rec RowRecorder) func(w *Widget) {
	return func(w *Widget) {
		w.recorder = rec
	}
}

// Widget owns a render target and feeds it the plot of the loaded
// configuration with live telemetry.
type Widget struct {
	telemetry Telemetry
	target    RenderTarget
	recorder  RowRecorder
	logger    *slog.Logger

	mu            sync.Mutex
	series        *spectrogram.Series
	field         telemetry.Field
	label         string
	refresh       time.Duration
	subscriptions map[string]func()
	reloaded      chan struct{} // Signals Run to pick up a new refresh interval

	replotMu sync.Mutex
}

// NewWidget creates a widget rendering into target
func NewWidget(t Telemetry, target RenderTarget, options ...func(w *Widget)) *Widget {
	w := Widget{
		telemetry:     t,
		target:        target,
		refresh:       DefaultRefreshInterval,
		subscriptions: make(map[string]func()),
		reloaded:      make(chan struct{}, 1),
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, option := range options {
		option(&w)
	}
	return &w
}

// Load tears down the current plot and sets up the one described by p. A
// spectrogram configuration without exactly one source leaves the widget
// without a plot and is not an error.
func (w *Widget) Load(p PlotConfig) error {
	w.mu.Lock()
	loaded, err := w.load(p)
	w.mu.Unlock()

	select {
	case w.reloaded <- struct{}{}:
	default:
	}

	if err != nil || !loaded {
		return err
	}
	return w.Replot()
}

func (w *Widget) load(p PlotConfig) (bool, error) {
	w.teardown()

	switch p.Type {
	case PlotTypeSpectrogram:
		if p.Spectrogram == nil {
			return false, fmt.Errorf("loading plot: empty spectrogram configuration")
		}
		return w.loadSpectrogram(p.Spectrogram)
	default:
		return false, fmt.Errorf("loading plot: %w: %d", ErrUnknownPlotType, p.Type)
	}
}

func (w *Widget) loadSpectrogram(c *SpectrogramConfig) (bool, error) {
	w.refresh = c.RefreshInterval
	if w.refresh <= 0 {
		w.refresh = DefaultRefreshInterval
	}

	// One spectrogram per plot
	if len(c.Sources) != 1 {
		w.logger.Debug("spectrogram needs exactly one source", slog.Int("sources", len(c.Sources)))
		return false, nil
	}
	src := c.Sources[0]

	obj, ok := w.telemetry.Object(src.ObjectName)
	if !ok {
		w.logger.Warn("telemetry object is missing", slog.String("object", src.ObjectName))
		return false, fmt.Errorf("loading spectrogram %s: %w", src.ObjectName, ErrObjectNotFound)
	}

	fieldName, _ := spectrogram.SplitFieldName(src.FieldName)
	field, ok := obj.Field(fieldName)
	if !ok {
		w.logger.Warn("telemetry field is missing",
			slog.String("object", src.ObjectName),
			slog.String("field", fieldName))
	}

	options := []func(*spectrogram.Series){spectrogram.WithLogger(w.logger)}
	if w.recorder != nil {
		options = append(options, spectrogram.WithRowRecorder(w.recorder))
	}

	series, err := spectrogram.NewSeries(spectrogram.Params{
		ObjectName:   src.ObjectName,
		FieldName:    src.FieldName,
		ScalePower:   src.ScalePower,
		MeanSamples:  src.MeanSamples,
		MathFunction: src.MathFunction,
		Sampling:     c.SamplingFrequency,
		WindowWidth:  c.WindowWidth,
		TimeHorizon:  c.TimeHorizon,
		ZMaximum:     c.ZMaximum,
	}, options...)
	if err != nil {
		w.logger.Error("invalid spectrogram configuration",
			slog.Int("timeHorizon", c.TimeHorizon),
			slog.Int("windowWidth", c.WindowWidth),
			slog.String("error", err.Error()))
		return false, fmt.Errorf("loading spectrogram: %w", err)
	}
	if err = series.Allocate(time.Now()); err != nil {
		return false, fmt.Errorf("loading spectrogram: %w", err)
	}

	raster := series.Raster()
	w.label = series.Label(field.Units)
	w.target.Attach(raster, render.Plot{Title: w.label, ColorMap: c.ColorMap})
	for _, axis := range []spectrogram.Axis{spectrogram.XAxis, spectrogram.YAxis, spectrogram.ZAxis} {
		i := raster.Interval(axis)
		w.target.SetAxisScale(axis, i.Min, i.Max)
	}

	w.series = series
	w.field = field

	if err = w.subscribe(obj.Name()); err != nil {
		w.teardown()
		return false, fmt.Errorf("loading spectrogram: %w", err)
	}

	w.logger.Info("spectrogram loaded",
		slog.String("label", w.label),
		slog.Int("windowWidth", c.WindowWidth),
		slog.Int("timeHorizon", c.TimeHorizon),
		slog.String("colorMap", c.ColorMap.String()))
	return true, nil
}

// subscribe connects to object updates unless already connected
func (w *Widget) subscribe(name string) error {
	if _, ok := w.subscriptions[name]; ok {
		return nil
	}

	cancel, err := w.telemetry.Subscribe(name, w.onUpdate)
	if err != nil {
		return err
	}
	w.subscriptions[name] = cancel
	return nil
}

// teardown detaches the target and frees the series
func (w *Widget) teardown() {
	if w.series == nil {
		return
	}
	w.target.Detach()
	w.series.Close()
	w.series = nil
	w.field = telemetry.Field{}
	w.label = ""
}

func (w *Widget) onUpdate(u telemetry.Update) {
	w.mu.Lock()
	series, field := w.series, w.field
	w.mu.Unlock()

	if series == nil || u.Object != series.ObjectName() {
		return
	}

	values, ok := u.Values[series.FieldName()]
	if !ok || len(values) == 0 {
		return
	}

	var err error
	switch {
	case series.HasSubField():
		idx := field.ElementIndex(series.SubFieldName())
		if idx < 0 || idx >= len(values) {
			w.logger.Warn("telemetry element is missing",
				slog.String("series", series.Name()),
				slog.String("element", series.SubFieldName()))
			return
		}
		err = series.Update(u.Timestamp, values[idx])
	case len(values) == 1:
		err = series.Update(u.Timestamp, values[0])
	default:
		err = series.UpdateRow(u.Timestamp, values)
	}

	if err != nil {
		w.logger.Debug("dropping telemetry update",
			slog.String("series", series.Name()),
			slog.String("error", err.Error()))
		return
	}
	w.tryReplot()
}

// Replot redraws the target. Concurrent calls are serialized.
func (w *Widget) Replot() error {
	w.replotMu.Lock()
	defer w.replotMu.Unlock()

	return w.replot()
}

// tryReplot redraws the target unless a redraw is already running, in which
// case the update shows up on the next one.
func (w *Widget) tryReplot() {
	if !w.replotMu.TryLock() {
		return
	}
	defer w.replotMu.Unlock()

	if err := w.replot(); err != nil {
		w.logger.Debug("replot failed", slog.String("error", err.Error()))
	}
}

// replot must be called with replotMu held
func (w *Widget) replot() error {
	w.mu.Lock()
	loaded := w.series != nil
	w.mu.Unlock()

	if !loaded {
		return nil
	}
	return w.target.Replot()
}

// Run replots every refresh interval of the loaded plot until ctx is done
func (w *Widget) Run(ctx context.Context) error {
	interval := w.RefreshInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Replot(); err != nil {
				w.logger.Warn("replot failed", slog.String("error", err.Error()))
			}
		case <-w.reloaded:
			if next := w.RefreshInterval(); next != interval {
				interval = next
				ticker.Reset(interval)
			}
		}
	}
}

// Close cancels all subscriptions and tears down the plot
func (w *Widget) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.teardown()
	for name, cancel := range w.subscriptions {
		cancel()
		delete(w.subscriptions, name)
	}
}

// RefreshInterval returns the replot interval of the loaded configuration
func (w *Widget) RefreshInterval() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.refresh
}

// Label returns the display label of the loaded series, empty without a plot
func (w *Widget) Label() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.label
}

// Series returns the loaded series, nil without a plot
func (w *Widget) Series() *spectrogram.Series {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.series
}

// Subscriptions returns the number of telemetry objects the widget listens to
func (w *Widget) Subscriptions() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.subscriptions)
}
