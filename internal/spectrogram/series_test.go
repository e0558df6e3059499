package spectrogram

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultParams() Params {
	return Params{
		ObjectName:   "Gyros",
		FieldName:    "x",
		ScalePower:   2,
		MeanSamples:  1,
		MathFunction: "None",
		Sampling:     100,
		WindowWidth:  64,
		TimeHorizon:  60,
		ZMaximum:     120,
	}
}

func TestSeries_Lifecycle(t *testing.T) {
	s, err := NewSeries(defaultParams())
	require.NoError(t, err)
	assert.Equal(t, StateUninitialized, s.State())
	assert.Nil(t, s.Raster())

	require.ErrorIs(t, s.Update(time.Now(), 1), ErrNotAllocated)

	require.NoError(t, s.Allocate(time.Now()))
	assert.Equal(t, StateAllocated, s.State())
	require.Error(t, s.Allocate(time.Now()), "second allocation must fail")

	require.NoError(t, s.Update(time.Now(), 1))
	assert.Equal(t, StateLive, s.State())

	s.Close()
	s.Close()
	assert.Equal(t, StateTornDown, s.State())
	assert.Nil(t, s.Raster())
	assert.Nil(t, s.Buffer())

	require.ErrorIs(t, s.Update(time.Now(), 1), ErrTornDown)
	require.ErrorIs(t, s.UpdateRow(time.Now(), []float64{1}), ErrTornDown)
	require.ErrorIs(t, s.Allocate(time.Now()), ErrTornDown)
}

func TestSeries_ScaledUpdate(t *testing.T) {
	s, err := NewSeries(defaultParams())
	require.NoError(t, err)
	require.NoError(t, s.Allocate(time.Now()))

	require.NoError(t, s.Update(time.Now(), 5.0))

	newest := s.Buffer().Newest()
	require.Len(t, newest, 64)
	for i, v := range newest {
		assert.InDelta(t, 500.0, v, 1e-9, "bin %d", i)
	}
}

func TestSeries_RasterIntervals(t *testing.T) {
	s, err := NewSeries(defaultParams())
	require.NoError(t, err)
	require.NoError(t, s.Allocate(time.Now()))

	r := s.Raster()
	assert.Equal(t, Interval{Min: 0, Max: 50}, r.Interval(XAxis))
	assert.Equal(t, Interval{Min: 0, Max: 60}, r.Interval(YAxis))
	assert.Equal(t, Interval{Min: 0, Max: 120}, r.Interval(ZAxis))
}

func TestSeries_Pipeline(t *testing.T) {
	p := defaultParams()
	p.ScalePower = 0
	p.MeanSamples = 2
	p.MathFunction = "Square root"
	p.WindowWidth = 3
	p.TimeHorizon = 4

	s, err := NewSeries(p)
	require.NoError(t, err)
	require.NoError(t, s.Allocate(time.Now()))

	require.NoError(t, s.UpdateRow(time.Now(), []float64{4, 16, -1}))
	assert.Equal(t, []float64{2, 4, 0}, s.Buffer().Newest(), "NaN must be stored as zero")

	require.NoError(t, s.UpdateRow(time.Now(), []float64{16}))
	assert.Equal(t, []float64{3, 2, 0}, s.Buffer().Newest())
}

func TestSeries_InverseOfZeroIsZero(t *testing.T) {
	p := defaultParams()
	p.MathFunction = "Inverse"
	p.ScalePower = 0

	s, err := NewSeries(p)
	require.NoError(t, err)
	require.NoError(t, s.Allocate(time.Now()))

	require.NoError(t, s.Update(time.Now(), 0))
	for _, v := range s.Buffer().Newest() {
		assert.Equal(t, 0.0, v)
	}
}

func TestSeries_AverageRecoversAfterSpike(t *testing.T) {
	p := defaultParams()
	p.MathFunction = "Inverse"
	p.ScalePower = 0
	p.MeanSamples = 2
	p.WindowWidth = 4
	p.TimeHorizon = 4

	s, err := NewSeries(p)
	require.NoError(t, err)
	require.NoError(t, s.Allocate(time.Now()))

	for _, v := range []float64{1e-20, 0.5, 0.5, 0.5} {
		require.NoError(t, s.Update(time.Now(), v))
	}
	assert.Equal(t, []float64{2, 2, 2, 2}, s.Buffer().Newest())
}

func TestSeries_InvalidParams(t *testing.T) {
	p := defaultParams()
	p.MathFunction = "Cube"
	_, err := NewSeries(p)
	require.ErrorIs(t, err, ErrUnknownMathFunction)

	p = defaultParams()
	p.WindowWidth = 1000
	p.TimeHorizon = 1250
	_, err = NewSeries(p)
	require.ErrorIs(t, err, ErrBufferTooLarge)

	p = defaultParams()
	p.Sampling = 0
	_, err = NewSeries(p)
	require.Error(t, err)
}

func TestSeries_Names(t *testing.T) {
	p := defaultParams()
	p.FieldName = "Gyro-z"
	p.ScalePower = 3

	s, err := NewSeries(p)
	require.NoError(t, err)

	assert.Equal(t, "Gyro", s.FieldName())
	assert.Equal(t, "z", s.SubFieldName())
	assert.True(t, s.HasSubField())
	assert.Equal(t, "Gyros.Gyro.z", s.Name())
	assert.Equal(t, "Gyros.Gyro.z(x10^3 deg/s)", s.Label("deg/s"))

	p.ScalePower = 0
	s, err = NewSeries(p)
	require.NoError(t, err)
	assert.Equal(t, "Gyros.Gyro.z(deg/s)", s.Label("deg/s"))

	p.FieldName = "x"
	s, err = NewSeries(p)
	require.NoError(t, err)
	assert.False(t, s.HasSubField())
	assert.Equal(t, "Gyros.x", s.Name())
}

func TestSeries_RowRecorder(t *testing.T) {
	type record struct {
		ts  time.Time
		row []float64
	}
	var records []record

	p := defaultParams()
	p.WindowWidth = 2
	p.TimeHorizon = 2
	p.ScalePower = 0

	s, err := NewSeries(p, WithRowRecorder(func(ts time.Time, row []float64) {
		records = append(records, record{ts, row})
	}))
	require.NoError(t, err)
	require.NoError(t, s.Allocate(time.Now()))

	require.NoError(t, s.Update(time.Now().Add(time.Hour), 3))
	require.NoError(t, s.UpdateRow(time.Now().Add(2*time.Hour), []float64{1, 2}))

	require.Len(t, records, 2)
	assert.Equal(t, []float64{3, 3}, records[0].row)
	assert.Equal(t, []float64{1, 2}, records[1].row)
	assert.True(t, records[1].ts.After(records[0].ts))

	// The recorder must receive a copy
	records[1].row[0] = 99
	assert.Equal(t, []float64{1, 2}, s.Buffer().Newest())
}
