package spectrogram

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMathFunction(t *testing.T) {
	testCases := []struct {
		in   string
		want MathFunction
	}{
		{"", MathNone},
		{"None", MathNone},
		{"square ROOT", MathSquareRoot},
		{" Decibel ", MathDecibel},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			fn, err := ParseMathFunction(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, fn)
		})
	}

	_, err := ParseMathFunction("Boxcar average")
	require.ErrorIs(t, err, ErrUnknownMathFunction)
}

func TestMathFunction_Apply(t *testing.T) {
	assert.Equal(t, -3.0, MathNone.Apply(-3))
	assert.Equal(t, 3.0, MathAbsolute.Apply(-3))
	assert.Equal(t, 9.0, MathSquare.Apply(-3))
	assert.Equal(t, 4.0, MathSquareRoot.Apply(16))
	assert.InDelta(t, 20.0, MathDecibel.Apply(100), 1e-12)
	assert.Equal(t, 0.0, MathDecibel.Apply(-1))
	assert.Equal(t, 0.25, MathInverse.Apply(4))
	assert.True(t, math.IsInf(MathInverse.Apply(0), 1))
	assert.True(t, math.IsNaN(MathSquareRoot.Apply(-1)))
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, 0.0, sanitize(math.NaN()))
	assert.Equal(t, 0.0, sanitize(math.Inf(-1)))
	assert.Equal(t, 1.5, sanitize(1.5))
}

func TestMovingAverage(t *testing.T) {
	m := NewMovingAverage(3, 2)
	dst := make([]float64, 2)

	m.Add(dst, []float64{3, 30})
	assert.Equal(t, []float64{3, 30}, dst)

	m.Add(dst, []float64{6, 60})
	assert.Equal(t, []float64{4.5, 45}, dst)

	m.Add(dst, []float64{9, 90})
	assert.Equal(t, []float64{6, 60}, dst)

	// First sample leaves the window
	m.Add(dst, []float64{12, 120})
	assert.Equal(t, []float64{9, 90}, dst)

	m.Reset()
	m.Add(dst, []float64{1})
	assert.Equal(t, []float64{1, 0}, dst, "missing channels count as zero")
}

func TestMovingAverage_SpikeLeavesWindow(t *testing.T) {
	m := NewMovingAverage(2, 1)
	dst := make([]float64, 1)

	m.Add(dst, []float64{1e20})
	assert.Equal(t, []float64{1e20}, dst)

	m.Add(dst, []float64{1})
	assert.Equal(t, []float64{5e19}, dst)

	for range 3 {
		m.Add(dst, []float64{1})
		assert.Equal(t, []float64{1}, dst)
	}
}

func TestMovingAverage_PassThrough(t *testing.T) {
	for _, window := range []int{-5, 0, 1} {
		m := NewMovingAverage(window, 1)
		assert.Equal(t, 1, m.Window())

		dst := make([]float64, 1)
		m.Add(dst, []float64{5})
		m.Add(dst, []float64{7})
		assert.Equal(t, []float64{7}, dst)
	}
}
