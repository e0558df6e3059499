package spectrogram

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	// MaxBufferBytes is the memory ceiling of a single rolling buffer. Larger
	// buffers almost always come from a broken configuration file.
	MaxBufferBytes = 10_000_000

	cellSize = 8 // bytes per intensity cell (float64)
)

var (
	// ErrBufferTooLarge is returned when the requested buffer exceeds MaxBufferBytes
	ErrBufferTooLarge = errors.New("spectrogram buffer exceeds memory ceiling")

	// ErrInvalidDimensions is returned for non-positive window width or time horizon
	ErrInvalidDimensions = errors.New("invalid spectrogram dimensions")
)

// CheckBufferSize verifies that a windowWidth x timeHorizon buffer can be
// allocated under the memory ceiling.
func CheckBufferSize(windowWidth, timeHorizon int) error {
	if windowWidth <= 0 || timeHorizon <= 0 {
		return fmt.Errorf("%w: windowWidth=%d, timeHorizon=%d", ErrInvalidDimensions, windowWidth, timeHorizon)
	}

	size := float64(windowWidth) * float64(timeHorizon) * cellSize
	if size >= MaxBufferBytes {
		return fmt.Errorf("%w: windowWidth=%d, timeHorizon=%d needs %s, limit is %s",
			ErrBufferTooLarge, windowWidth, timeHorizon,
			humanize.Bytes(uint64(size)), humanize.Bytes(MaxBufferBytes))
	}
	return nil
}

// RollingBuffer is a fixed-capacity, time-major store of intensity samples.
// Logically it is a matrix of timeHorizon rows (time slots, oldest first) by
// windowWidth columns (frequency bins), plus one timestamp per row.
//
// The buffer never grows after allocation. Pushing a row evicts the oldest
// slot, shifts all rows back by one and writes the new row at the newest slot.
type RollingBuffer struct {
	width   int // Number of frequency bins per time slot
	horizon int // Number of time slots

	mu         sync.RWMutex
	values     []float64
	timestamps []time.Time
	pushes     uint64
}

// NewRollingBuffer allocates a zeroed buffer of windowWidth*timeHorizon cells.
// Timestamps are seeded with now offset by the slot index in seconds.
//
// Returns an error and no buffer when the dimensions are invalid or the
// buffer would exceed MaxBufferBytes.
func NewRollingBuffer(windowWidth, timeHorizon int, now time.Time) (*RollingBuffer, error) {
	if err := CheckBufferSize(windowWidth, timeHorizon); err != nil {
		return nil, err
	}

	timestamps := make([]time.Time, timeHorizon)
	for i := range timestamps {
		timestamps[i] = now.Add(time.Duration(i) * time.Second)
	}

	return &RollingBuffer{
		width:      windowWidth,
		horizon:    timeHorizon,
		values:     make([]float64, windowWidth*timeHorizon),
		timestamps: timestamps,
	}, nil
}

// Push rolls the buffer by one time slot and writes row into the newest slot.
// Rows shorter than the window width are zero padded, longer rows truncated.
// The stored timestamp is forced to be strictly after the previous newest
// one and is returned.
func (b *RollingBuffer) Push(ts time.Time, row []float64) time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()

	newest := b.shift()
	n := copy(newest, row)
	clear(newest[n:])

	return b.stamp(ts)
}

// Fill rolls the buffer by one time slot and writes v into every frequency bin
// of the newest slot. Returns the stored timestamp.
func (b *RollingBuffer) Fill(ts time.Time, v float64) time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()

	newest := b.shift()
	for i := range newest {
		newest[i] = v
	}

	return b.stamp(ts)
}

// shift moves every row back by one slot and returns the newest row slice.
func (b *RollingBuffer) shift() []float64 {
	copy(b.values, b.values[b.width:])
	copy(b.timestamps, b.timestamps[1:])
	b.pushes++
	return b.values[(b.horizon-1)*b.width:]
}

// stamp records the newest timestamp, keeping the sequence strictly increasing.
func (b *RollingBuffer) stamp(ts time.Time) time.Time {
	last := b.horizon - 1
	if last > 0 && !ts.After(b.timestamps[last-1]) {
		ts = b.timestamps[last-1].Add(time.Microsecond)
	}
	b.timestamps[last] = ts
	return ts
}

// Width returns the number of frequency bins per time slot
func (b *RollingBuffer) Width() int {
	return b.width
}

// Horizon returns the number of time slots
func (b *RollingBuffer) Horizon() int {
	return b.horizon
}

// Len returns the number of intensity cells, always Width()*Horizon().
func (b *RollingBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.values)
}

// Pushes returns how many rows were pushed since allocation
func (b *RollingBuffer) Pushes() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.pushes
}

// Row returns a copy of the i-th time slot, 0 being the oldest.
func (b *RollingBuffer) Row(i int) ([]float64, error) {
	if i < 0 || i >= b.horizon {
		return nil, fmt.Errorf("row %d out of range [0, %d)", i, b.horizon)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.values[i*b.width : (i+1)*b.width]), nil
}

// Newest returns a copy of the most recent time slot
func (b *RollingBuffer) Newest() []float64 {
	row, _ := b.Row(b.horizon - 1)
	return row
}

// Oldest returns a copy of the oldest retained time slot
func (b *RollingBuffer) Oldest() []float64 {
	row, _ := b.Row(0)
	return row
}

// Timestamps returns a copy of the slot timestamps, oldest first
func (b *RollingBuffer) Timestamps() []time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.timestamps)
}

// Values returns a copy of all cells in row-major order, oldest slot first
func (b *RollingBuffer) Values() []float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.values)
}

// at returns the cell at the given slot and bin.
func (b *RollingBuffer) at(row, col int) float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.values[row*b.width+col]
}
