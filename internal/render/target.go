package render

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/roman-kulish/ground-control/internal/spectrogram"
)

const (
	ImagePNG  ImageFormat = "png"
	ImageJPEG ImageFormat = "jpeg"
)

// ErrNotAttached is returned when a target is replotted without a raster
var ErrNotAttached = errors.New("render target has no raster attached")

type ImageFormat string

// ImageFormatFromPath picks the image format by file extension
func ImageFormatFromPath(path string) (ImageFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return ImagePNG, nil
	case ".jpg", ".jpeg":
		return ImageJPEG, nil
	default:
		return "", fmt.Errorf("unsupported image file extension: '%s'", filepath.Ext(path))
	}
}

// WithTargetLogger sets the logger for the file target
func WithTargetLogger(logger *slog.Logger) func(t *FileTarget) {
	return func(t *FileTarget) {
		t.logger = logger
	}
}

// FileTarget renders the attached raster into an image file on every replot.
// The file is replaced atomically so readers never see a partial image.
type FileTarget struct {
	path     string
	format   ImageFormat
	renderer *Renderer
	logger   *slog.Logger

	mu     sync.Mutex
	raster *spectrogram.Raster
	plot   Plot
	scales Scales
	frames uint64
}

// NewFileTarget creates a target writing to path, the format is derived from
// the file extension.
func NewFileTarget(path string, config RenderConfig, options ...func(t *FileTarget)) (*FileTarget, error) {
	format, err := ImageFormatFromPath(path)
	if err != nil {
		return nil, err
	}

	renderer, err := NewRenderer(config)
	if err != nil {
		return nil, fmt.Errorf("creating renderer: %w", err)
	}

	t := FileTarget{
		path:     path,
		format:   format,
		renderer: renderer,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, option := range options {
		option(&t)
	}
	return &t, nil
}

// Attach sets the raster and plot to render, resetting axis scales
func (t *FileTarget) Attach(raster *spectrogram.Raster, plot Plot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.raster = raster
	t.plot = plot
	t.scales = Scales{}
}

// SetAxisScale overrides the display range of an axis
func (t *FileTarget) SetAxisScale(axis spectrogram.Axis, min, max float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.scales[axis] = spectrogram.Interval{Min: min, Max: max}
}

// Replot renders the attached raster and replaces the output file
func (t *FileTarget) Replot() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.raster == nil {
		return ErrNotAttached
	}

	img, err := t.renderer.Render(t.raster, t.plot, t.scales)
	if err != nil {
		return fmt.Errorf("rendering spectrogram: %w", err)
	}
	if err = t.write(img); err != nil {
		return fmt.Errorf("writing image: %w", err)
	}

	t.frames++
	t.logger.Debug("spectrogram image written",
		slog.String("path", t.path),
		slog.Uint64("frame", t.frames))
	return nil
}

// Detach drops the raster, subsequent replots fail with ErrNotAttached
func (t *FileTarget) Detach() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.raster = nil
	t.plot = Plot{}
	t.scales = Scales{}
}

// Frames returns the number of images written
func (t *FileTarget) Frames() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.frames
}

func (t *FileTarget) write(img image.Image) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(t.path), "."+filepath.Base(t.path)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	switch t.format {
	case ImageJPEG:
		err = jpeg.Encode(tmp, img, &jpeg.Options{Quality: 98})
	default:
		err = png.Encode(tmp, img)
	}
	if err != nil {
		return errors.Join(err, tmp.Close())
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), t.path)
}
