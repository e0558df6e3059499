package spectrogram

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	StateUninitialized State = iota
	StateAllocated
	StateLive
	StateTornDown
)

// subFieldSeparator separates a field name from an element name, e.g. "Gyro-x"
const subFieldSeparator = "-"

var (
	// ErrNotAllocated is returned when a series is updated before Allocate
	ErrNotAllocated = errors.New("spectrogram series is not allocated")

	// ErrTornDown is returned when a series is used after Close
	ErrTornDown = errors.New("spectrogram series is torn down")
)

// State is the lifecycle state of a Series
type State int

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateAllocated:
		return "allocated"
	case StateLive:
		return "live"
	case StateTornDown:
		return "torn down"
	default:
		return "state(" + strconv.Itoa(int(s)) + ")"
	}
}

// SplitFieldName splits "field-element" into its field and element parts.
// Names without the separator have no element.
func SplitFieldName(name string) (field, element string) {
	field, element, _ = strings.Cut(name, subFieldSeparator)
	return field, element
}

// Params describes a spectrogram series
type Params struct {
	ObjectName   string  // Telemetry object name
	FieldName    string  // Telemetry field name, optionally "field-element"
	ScalePower   int     // Values are multiplied by 10^ScalePower
	MeanSamples  int     // Moving average window, values below 2 disable averaging
	MathFunction string  // Name of the transform applied to raw samples
	Sampling     float64 // Sampling frequency in Hz, slots per second
	WindowWidth  int     // Frequency bins per time slot
	TimeHorizon  int     // Number of retained time slots
	ZMaximum     float64 // Upper bound of the intensity axis
}

// WithLogger sets the logger for the series
func WithLogger(logger *slog.Logger) func(s *Series) {
	return func(s *Series) {
		s.logger = logger.With(
			slog.String("object", s.objectName),
			slog.String("field", s.fieldName),
		)
	}
}

// WithRowRecorder registers fn to be called with every row written into the
// buffer. fn receives a copy of the row.
func WithRowRecorder(fn func(ts time.Time, row []float64)) func(s *Series) {
	return func(s *Series) {
		s.recorder = fn
	}
}

// Series is the update pipeline of one spectrogram: it transforms incoming
// telemetry samples and writes them into a rolling buffer exposed through a
// raster adapter.
//
// Lifecycle: Uninitialized -> Allocated (Allocate) -> Live (first update) ->
// TornDown (Close). No update is accepted after teardown.
type Series struct {
	objectName   string
	fieldName    string
	subFieldName string

	scalePower  int
	meanSamples int
	mathFn      MathFunction
	sampling    float64
	width       int
	horizon     int
	zMaximum    float64

	mu      sync.Mutex
	state   State
	buf     *RollingBuffer
	raster  *Raster
	average *MovingAverage
	scratch []float64

	recorder func(ts time.Time, row []float64)
	logger   *slog.Logger
}

// NewSeries validates params and returns an uninitialized series.
func NewSeries(p Params, options ...func(s *Series)) (*Series, error) {
	mathFn, err := ParseMathFunction(p.MathFunction)
	if err != nil {
		return nil, err
	}
	if p.Sampling <= 0 {
		return nil, fmt.Errorf("invalid sampling frequency: %f", p.Sampling)
	}
	if err = CheckBufferSize(p.WindowWidth, p.TimeHorizon); err != nil {
		return nil, err
	}

	field, sub := SplitFieldName(p.FieldName)
	s := Series{
		objectName:   p.ObjectName,
		fieldName:    field,
		subFieldName: sub,
		scalePower:   p.ScalePower,
		meanSamples:  p.MeanSamples,
		mathFn:       mathFn,
		sampling:     p.Sampling,
		width:        p.WindowWidth,
		horizon:      p.TimeHorizon,
		zMaximum:     p.ZMaximum,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&s)
	}

	return &s, nil
}

// Allocate sizes the rolling buffer, sets the raster axis intervals and
// moves the series into the Allocated state.
func (s *Series) Allocate(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateTornDown:
		return ErrTornDown
	case StateAllocated, StateLive:
		return fmt.Errorf("spectrogram series already allocated")
	}

	buf, err := NewRollingBuffer(s.width, s.horizon, now)
	if err != nil {
		return fmt.Errorf("allocating buffer: %w", err)
	}

	raster := NewRaster(buf)
	raster.SetInterval(XAxis, Interval{Min: 0, Max: s.sampling / 2})
	raster.SetInterval(YAxis, Interval{Min: 0, Max: float64(s.horizon)})
	raster.SetInterval(ZAxis, Interval{Min: 0, Max: s.zMaximum})

	s.buf = buf
	s.raster = raster
	s.average = NewMovingAverage(s.meanSamples, s.width)
	s.scratch = make([]float64, s.width)
	s.state = StateAllocated

	s.logger.Debug("spectrogram allocated",
		slog.Int("windowWidth", s.width),
		slog.Int("timeHorizon", s.horizon))
	return nil
}

// Update transforms a scalar sample and writes it across all frequency bins
// of a new time slot.
func (s *Series) Update(ts time.Time, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkWritable(); err != nil {
		return err
	}

	v := sanitize(s.transform(value))
	for i := range s.scratch {
		s.scratch[i] = v
	}
	s.average.Add(s.scratch, s.scratch)

	s.push(ts)
	return nil
}

// UpdateRow transforms a vector sample, one value per frequency bin, and
// writes it into a new time slot. Short rows are zero padded.
func (s *Series) UpdateRow(ts time.Time, values []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkWritable(); err != nil {
		return err
	}

	for i := range s.scratch {
		var v float64
		if i < len(values) {
			v = sanitize(s.transform(values[i]))
		}
		s.scratch[i] = v
	}
	s.average.Add(s.scratch, s.scratch)

	s.push(ts)
	return nil
}

func (s *Series) checkWritable() error {
	switch s.state {
	case StateUninitialized:
		return ErrNotAllocated
	case StateTornDown:
		return ErrTornDown
	}
	s.state = StateLive
	return nil
}

func (s *Series) transform(v float64) float64 {
	return s.mathFn.Apply(v) * scaleFactor(s.scalePower)
}

func (s *Series) push(ts time.Time) {
	stored := s.buf.Push(ts, s.scratch)
	if s.recorder != nil {
		s.recorder(stored, append([]float64(nil), s.scratch...))
	}
}

// Close frees the buffer and raster together. Close is idempotent.
func (s *Series) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateTornDown {
		return
	}
	s.buf = nil
	s.raster = nil
	s.average = nil
	s.scratch = nil
	s.state = StateTornDown

	s.logger.Debug("spectrogram torn down")
}

// State returns the lifecycle state
func (s *Series) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Raster returns the raster adapter, nil unless allocated.
func (s *Series) Raster() *Raster {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.raster
}

// Buffer returns the rolling buffer, nil unless allocated.
func (s *Series) Buffer() *RollingBuffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf
}

// ObjectName returns the telemetry object name
func (s *Series) ObjectName() string {
	return s.objectName
}

// FieldName returns the telemetry field name without element
func (s *Series) FieldName() string {
	return s.fieldName
}

// SubFieldName returns the element name of a vector field, if any
func (s *Series) SubFieldName() string {
	return s.subFieldName
}

// HasSubField reports whether the series tracks a single vector element
func (s *Series) HasSubField() bool {
	return s.subFieldName != ""
}

// Name returns "object.field" or "object.field.element".
func (s *Series) Name() string {
	name := s.objectName + "." + s.fieldName
	if s.HasSubField() {
		name += "." + s.subFieldName
	}
	return name
}

// Label returns the display name with the scale annotation and units, e.g.
// "Gyros.x(deg/s)" or "Gyros.x(x10^3 deg/s)".
func (s *Series) Label(units string) string {
	if s.scalePower == 0 {
		return s.Name() + "(" + units + ")"
	}
	return s.Name() + "(x10^" + strconv.Itoa(s.scalePower) + " " + units + ")"
}
