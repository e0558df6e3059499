package render

import (
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/ground-control/internal/spectrogram"
)

func newTestRaster(t *testing.T, width, horizon int) (*spectrogram.RollingBuffer, *spectrogram.Raster) {
	t.Helper()

	buf, err := spectrogram.NewRollingBuffer(width, horizon, time.Now())
	require.NoError(t, err)

	raster := spectrogram.NewRaster(buf)
	raster.SetInterval(spectrogram.XAxis, spectrogram.Interval{Min: 0, Max: 50})
	raster.SetInterval(spectrogram.YAxis, spectrogram.Interval{Min: 0, Max: float64(horizon)})
	raster.SetInterval(spectrogram.ZAxis, spectrogram.Interval{Min: 0, Max: 120})
	return buf, raster
}

func TestImageFormatFromPath(t *testing.T) {
	testCases := []struct {
		path string
		want ImageFormat
	}{
		{"out.png", ImagePNG},
		{"OUT.PNG", ImagePNG},
		{"frame.jpg", ImageJPEG},
		{"frame.jpeg", ImageJPEG},
	}
	for _, tc := range testCases {
		got, err := ImageFormatFromPath(tc.path)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}

	_, err := ImageFormatFromPath("frame.gif")
	require.Error(t, err)
}

func TestRenderer_Geometry(t *testing.T) {
	buf, raster := newTestRaster(t, 4, 3)
	buf.Fill(time.Now(), 120)

	r, err := NewRenderer(RenderConfig{})
	require.NoError(t, err)

	img, err := r.Render(raster, Plot{Title: "Gyros.x(deg/s)"}, Scales{})
	require.NoError(t, err)

	size := img.Bounds().Size()
	assert.Equal(t, 4*defaultCellWidth+defaultLeftBorder+defaultRightBorder, size.X)
	assert.Equal(t, 3*defaultCellHeight+defaultTopBorder+defaultBottomBorder, size.Y)

	cellCenter := func(row, col int) color.RGBA {
		return img.RGBAAt(
			defaultLeftBorder+col*defaultCellWidth+defaultCellWidth/2,
			defaultTopBorder+row*defaultCellHeight+defaultCellHeight/2)
	}

	assert.Equal(t, color.RGBA{A: 0xff}, cellCenter(0, 0), "oldest slot holds zeros")
	assert.Equal(t, color.RGBA{R: 0xff, A: 0xff}, cellCenter(2, 3), "newest slot holds the maximum")

	_, err = r.Render(nil, Plot{}, Scales{})
	require.Error(t, err)
}

func TestRenderer_ZScaleOverride(t *testing.T) {
	buf, raster := newTestRaster(t, 2, 2)
	buf.Fill(time.Now(), 60)

	r, err := NewRenderer(RenderConfig{})
	require.NoError(t, err)

	var scales Scales
	scales[spectrogram.ZAxis] = spectrogram.Interval{Min: 0, Max: 60}

	img, err := r.Render(raster, Plot{}, scales)
	require.NoError(t, err)

	c := img.RGBAAt(defaultLeftBorder+1, defaultTopBorder+defaultCellHeight+1)
	assert.Equal(t, color.RGBA{R: 0xff, A: 0xff}, c, "60 is the top of the overridden scale")
}

func TestFileTarget_Replot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spectrogram.png")

	target, err := NewFileTarget(path, RenderConfig{})
	require.NoError(t, err)

	require.ErrorIs(t, target.Replot(), ErrNotAttached)

	buf, raster := newTestRaster(t, 8, 5)
	buf.Fill(time.Now(), 30)

	target.Attach(raster, Plot{Title: "Gyros.x(deg/s)", ColorMap: ColorMapThermal})
	target.SetAxisScale(spectrogram.ZAxis, 0, 120)
	require.NoError(t, target.Replot())
	require.NoError(t, target.Replot())
	assert.Equal(t, uint64(2), target.Frames())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 8*defaultCellWidth+defaultLeftBorder+defaultRightBorder, img.Bounds().Dx())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")

	target.Detach()
	require.ErrorIs(t, target.Replot(), ErrNotAttached)
}

func TestNiceStep(t *testing.T) {
	assert.Equal(t, 20.0, niceStep(50, 4))
	assert.Equal(t, 5.0, niceStep(50, 12))
	assert.Equal(t, 0.2, niceStep(1, 6))
	assert.Equal(t, 1.0, niceStep(0, 3))
}

type countingTarget struct {
	attached int
	scaled   int
	replots  int
	detached int
	err      error
}

func (c *countingTarget) Attach(*spectrogram.Raster, Plot)               { c.attached++ }
func (c *countingTarget) SetAxisScale(spectrogram.Axis, float64, float64) { c.scaled++ }
func (c *countingTarget) Detach()                                         { c.detached++ }

func (c *countingTarget) Replot() error {
	c.replots++
	return c.err
}

func TestTargets_FanOut(t *testing.T) {
	failing := &countingTarget{err: ErrNotAttached}
	ok := &countingTarget{}
	targets := Targets{failing, ok}

	_, raster := newTestRaster(t, 2, 2)
	targets.Attach(raster, Plot{})
	targets.SetAxisScale(spectrogram.ZAxis, 0, 10)

	err := targets.Replot()
	assert.ErrorIs(t, err, ErrNotAttached)
	assert.Equal(t, 1, ok.replots, "a failing target must not stop the others")

	targets.Detach()
	for _, c := range []*countingTarget{failing, ok} {
		assert.Equal(t, 1, c.attached)
		assert.Equal(t, 1, c.scaled)
		assert.Equal(t, 1, c.detached)
	}
}
