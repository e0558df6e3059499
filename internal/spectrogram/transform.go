package spectrogram

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	MathNone       MathFunction = "None"
	MathAbsolute   MathFunction = "Absolute"
	MathSquare     MathFunction = "Square"
	MathSquareRoot MathFunction = "Square root"
	MathDecibel    MathFunction = "Decibel"
	MathInverse    MathFunction = "Inverse"
)

// ErrUnknownMathFunction is returned for math function names that are not supported
var ErrUnknownMathFunction = errors.New("unknown math function")

// MathFunction is a named transform applied to every raw sample before it
// enters the buffer.
type MathFunction string

var mathFunctions = []MathFunction{
	MathNone,
	MathAbsolute,
	MathSquare,
	MathSquareRoot,
	MathDecibel,
	MathInverse,
}

// MathFunctions returns the supported math function names, in display order.
func MathFunctions() []MathFunction {
	return append([]MathFunction(nil), mathFunctions...)
}

// ParseMathFunction resolves a math function by name, ignoring case. An empty
// name means MathNone.
func ParseMathFunction(name string) (MathFunction, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return MathNone, nil
	}
	for _, fn := range mathFunctions {
		if strings.EqualFold(string(fn), name) {
			return fn, nil
		}
	}
	return "", fmt.Errorf("%w: '%s'", ErrUnknownMathFunction, name)
}

// Apply transforms a single raw sample. Results may be NaN or infinite.
func (m MathFunction) Apply(v float64) float64 {
	switch m {
	case MathAbsolute:
		return math.Abs(v)
	case MathSquare:
		return v * v
	case MathSquareRoot:
		return math.Sqrt(v)
	case MathDecibel:
		if v <= 0 {
			return 0
		}
		return 10 * math.Log10(v)
	case MathInverse:
		return 1 / v
	default:
		return v
	}
}

// scaleFactor returns 10^power
func scaleFactor(power int) float64 {
	return math.Pow10(power)
}

// sanitize maps values that cannot be displayed to zero
func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// MovingAverage averages the most recent samples of each of a fixed number
// of channels. A window of one sample passes values through unchanged.
type MovingAverage struct {
	window int
	width  int

	history [][]float64 // Ring of the most recent rows
	sums    []float64
	next    int
	count   int
}

// NewMovingAverage creates an averager over window samples of width channels.
// Windows smaller than one are treated as one.
func NewMovingAverage(window, width int) *MovingAverage {
	window = max(window, 1)
	width = max(width, 1)

	history := make([][]float64, window)
	for i := range history {
		history[i] = make([]float64, width)
	}

	return &MovingAverage{
		window:  window,
		width:   width,
		history: history,
		sums:    make([]float64, width),
	}
}

// Window returns the number of averaged samples
func (m *MovingAverage) Window() int {
	return m.window
}

// Add records row and writes the average of each channel into dst, which must
// hold at least width values. Missing channels in row count as 0. Sums are
// recomputed from the window on every call, a running sum keeps the rounding
// error of samples that already left the window.
func (m *MovingAverage) Add(dst, row []float64) {
	slot := m.history[m.next]
	for i := range slot {
		slot[i] = 0
		if i < len(row) {
			slot[i] = row[i]
		}
	}

	m.next = (m.next + 1) % m.window
	m.count = min(m.count+1, m.window)

	if m.window == 1 {
		copy(dst, slot)
		return
	}

	clear(m.sums)
	for n := 1; n <= m.count; n++ {
		recent := m.history[(m.next-n+m.window)%m.window]
		for i, v := range recent {
			m.sums[i] += v
		}
	}
	for i, sum := range m.sums {
		dst[i] = sum / float64(m.count)
	}
}

// Reset forgets all recorded samples
func (m *MovingAverage) Reset() {
	for _, row := range m.history {
		clear(row)
	}
	clear(m.sums)
	m.next = 0
	m.count = 0
}
