package render

import (
	"math"

	"github.com/roman-kulish/ground-control/internal/spectrogram"
)

const (
	// minHistogramSamples is the sample count below which percentiles are
	// meaningless. With 20 samples the 5th percentile is a single sample.
	minHistogramSamples = 20

	boundsMargin = 0.1 // Fraction of the span added on each side
)

// Histogram counts intensity samples in bins one unit wide. It is used to
// pick a color map range that ignores outliers.
type Histogram struct {
	bins   map[int]uint64
	total  uint64
	minBin int
	maxBin int
}

// NewHistogram creates an empty histogram
func NewHistogram() *Histogram {
	h := Histogram{}
	h.Reset()
	return &h
}

// Add counts v. NaN and infinite values are ignored.
func (h *Histogram) Add(values ...float64) {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}

		bin := int(math.Floor(v))
		h.bins[bin]++
		h.total++

		h.minBin = min(h.minBin, bin)
		h.maxBin = max(h.maxBin, bin)
	}
}

// Count returns the number of counted samples
func (h *Histogram) Count() uint64 {
	return h.total
}

// Reset empties the histogram
func (h *Histogram) Reset() {
	h.bins = make(map[int]uint64)
	h.total = 0
	h.minBin = math.MaxInt
	h.maxBin = math.MinInt
}

// Bounds returns the range between the given percentile and its complement,
// e.g. 5 for the 5th to 95th percentile. The range is widened around its
// center to at least minSpan and padded by a tenth of its span on both sides.
// It reports false when there are too few samples.
func (h *Histogram) Bounds(percentile, minSpan float64) (spectrogram.Interval, bool) {
	if h.total < minHistogramSamples {
		return spectrogram.Interval{}, false
	}

	target := max(1, uint64(float64(h.total)*percentile/100))

	lower := h.minBin
	var count uint64
	for bin := h.minBin; bin <= h.maxBin; bin++ {
		count += h.bins[bin]
		if count >= target {
			lower = bin
			break
		}
	}

	upper := h.maxBin
	count = 0
	for bin := h.maxBin; bin >= h.minBin; bin-- {
		count += h.bins[bin]
		if count >= target {
			upper = bin
			break
		}
	}

	lo, hi := float64(lower), float64(upper+1)
	if hi-lo < minSpan {
		center := (lo + hi) / 2
		lo, hi = center-minSpan/2, center+minSpan/2
	}

	margin := (hi - lo) * boundsMargin
	return spectrogram.Interval{Min: lo - margin, Max: hi + margin}, true
}
