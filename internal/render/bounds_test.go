package render

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistogram_Bounds(t *testing.T) {
	h := NewHistogram()
	for v := range 100 {
		h.Add(float64(v) + 0.5)
	}
	h.Add(math.NaN(), math.Inf(1))
	require.Equal(t, uint64(100), h.Count())

	// 5th percentile is bin 4, 95th is bin 95
	b, ok := h.Bounds(5, 30)
	require.True(t, ok)
	assert.InDelta(t, 4-9.2, b.Min, 1e-9)
	assert.InDelta(t, 96+9.2, b.Max, 1e-9)
}

func TestHistogram_MinimumSpan(t *testing.T) {
	h := NewHistogram()
	for range 50 {
		h.Add(-60.2)
	}

	b, ok := h.Bounds(5, 30)
	require.True(t, ok)
	// Single bin [-61, -60) widened to 30 around -60.5 and padded by 3
	assert.InDelta(t, -78.5, b.Min, 1e-9)
	assert.InDelta(t, -42.5, b.Max, 1e-9)
}

func TestHistogram_TooFewSamples(t *testing.T) {
	h := NewHistogram()
	h.Add(1, 2, 3)

	_, ok := h.Bounds(5, 30)
	assert.False(t, ok)

	for range 30 {
		h.Add(1)
	}
	h.Reset()
	assert.Zero(t, h.Count())
	_, ok = h.Bounds(5, 30)
	assert.False(t, ok)
}
