package spectrogram

import (
	"fmt"
	"math"
	"time"
)

const (
	XAxis Axis = iota // Frequency
	YAxis             // Time
	ZAxis             // Intensity
)

// Axis identifies one of the three raster axes
type Axis int

func (a Axis) String() string {
	switch a {
	case XAxis:
		return "x"
	case YAxis:
		return "y"
	case ZAxis:
		return "z"
	default:
		return fmt.Sprintf("axis(%d)", int(a))
	}
}

// Interval is a closed range on an axis
type Interval struct {
	Min float64
	Max float64
}

// Width returns the length of the interval
func (i Interval) Width() float64 {
	return i.Max - i.Min
}

// Contains reports whether v lies within the interval
func (i Interval) Contains(v float64) bool {
	return v >= i.Min && v <= i.Max
}

// IsValid reports whether the interval has a positive width
func (i Interval) IsValid() bool {
	return i.Max > i.Min
}

// Raster exposes a rolling buffer as a frequency-bin x time-slot matrix with
// axis intervals, the shape consumed by renderers.
type Raster struct {
	buf       *RollingBuffer
	intervals [3]Interval
}

// NewRaster wraps buf. The X and Y intervals default to the bin and slot
// indices, Z to [0, 1].
func NewRaster(buf *RollingBuffer) *Raster {
	return &Raster{
		buf: buf,
		intervals: [3]Interval{
			XAxis: {Min: 0, Max: float64(buf.Width())},
			YAxis: {Min: 0, Max: float64(buf.Horizon())},
			ZAxis: {Min: 0, Max: 1},
		},
	}
}

// SetInterval sets the range of the given axis
func (r *Raster) SetInterval(axis Axis, i Interval) {
	r.intervals[axis] = i
}

// Interval returns the range of the given axis
func (r *Raster) Interval(axis Axis) Interval {
	return r.intervals[axis]
}

// Columns returns the number of frequency bins
func (r *Raster) Columns() int {
	return r.buf.Width()
}

// Rows returns the number of time slots
func (r *Raster) Rows() int {
	return r.buf.Horizon()
}

// Cell returns the intensity of the given time slot and frequency bin.
func (r *Raster) Cell(row, col int) float64 {
	if row < 0 || row >= r.Rows() || col < 0 || col >= r.Columns() {
		return math.NaN()
	}
	return r.buf.at(row, col)
}

// Value returns the intensity at frequency x and time position y, using the
// nearest cell. Positions outside the X or Y interval yield NaN.
func (r *Raster) Value(x, y float64) float64 {
	xi, yi := r.intervals[XAxis], r.intervals[YAxis]
	if !xi.Contains(x) || !yi.Contains(y) || !xi.IsValid() || !yi.IsValid() {
		return math.NaN()
	}

	col := min(int((x-xi.Min)/xi.Width()*float64(r.Columns())), r.Columns()-1)
	row := min(int((y-yi.Min)/yi.Width()*float64(r.Rows())), r.Rows()-1)
	return r.buf.at(row, col)
}

// Matrix returns a snapshot of all cells in row-major order, oldest slot first
func (r *Raster) Matrix() []float64 {
	return r.buf.Values()
}

// Timestamps returns a snapshot of the slot timestamps, oldest first
func (r *Raster) Timestamps() []time.Time {
	return r.buf.Timestamps()
}
