package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/roman-kulish/ground-control/internal/render"
	"github.com/roman-kulish/ground-control/internal/scope"
	"github.com/roman-kulish/ground-control/internal/spectrogram"
	"github.com/roman-kulish/ground-control/internal/storage"
)

const (
	autoScalePercentile = 5  // Color map spans the 5th to 95th percentile
	autoScaleMinSpan    = 30 // Smallest auto scaled intensity range
)

// Replay renders a recorded session into the output image
func Replay(ctx context.Context, config *Config, logger *slog.Logger) error {
	if _, err := os.Stat(config.DBPath); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("database file '%s' does not exist: %w", config.DBPath, err)
	}

	store := storage.NewSqliteStore(config.DBPath)
	defer store.Close()

	reader, err := store.ReadRows(ctx, config.Replay)
	if err != nil {
		return fmt.Errorf("reading session %d: %w", config.Replay, err)
	}
	defer reader.Close()

	session := reader.Session()
	logger.Info("reading rows, hold on tight",
		slog.Int64("session", session.ID),
		slog.String("label", session.Label),
		slog.Int("windowWidth", session.WindowWidth))

	var rows []*storage.Row
	for reader.Next(ctx) {
		rows = append(rows, reader.Current())
	}
	if err = reader.Error(); err != nil {
		return fmt.Errorf("reading session %d: %w", config.Replay, err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("session %d has no rows", config.Replay)
	}

	if keep := maxRows(session.WindowWidth); len(rows) > keep {
		logger.Warn("session does not fit into one image, keeping the latest rows",
			slog.Int("rows", len(rows)),
			slog.Int("kept", keep))
		rows = rows[len(rows)-keep:]
	}

	// Seed slots are all evicted by the pushes and must precede the first row
	seed := rows[0].Timestamp.Add(-time.Duration(len(rows)+1) * time.Second)
	buf, err := spectrogram.NewRollingBuffer(session.WindowWidth, len(rows), seed)
	if err != nil {
		return fmt.Errorf("allocating buffer: %w", err)
	}

	hist := render.NewHistogram()
	for _, row := range rows {
		buf.Push(row.Timestamp, row.Values)
		hist.Add(row.Values...)
	}

	form := sessionForm(session, logger)
	zBounds := spectrogram.Interval{Min: 0, Max: form.ZMaximum}
	if config.AutoScale {
		if b, ok := hist.Bounds(autoScalePercentile, autoScaleMinSpan); ok {
			zBounds = b
		} else {
			logger.Warn("too few samples to auto scale", slog.Uint64("samples", hist.Count()))
		}
	}

	raster := spectrogram.NewRaster(buf)
	raster.SetInterval(spectrogram.XAxis, spectrogram.Interval{Min: 0, Max: form.SamplingFrequency / 2})
	raster.SetInterval(spectrogram.YAxis, spectrogram.Interval{Min: 0, Max: float64(len(rows))})
	raster.SetInterval(spectrogram.ZAxis, zBounds)

	colorMap := form.ColorMap
	if config.ColorMap != nil {
		colorMap = *config.ColorMap
	}

	target, err := render.NewFileTarget(config.OutputFile, renderConfig(config), render.WithTargetLogger(logger))
	if err != nil {
		return fmt.Errorf("creating image target: %w", err)
	}
	target.Attach(raster, render.Plot{Title: session.Label, ColorMap: colorMap})

	logger.Info("rendering session",
		slog.Group("stats",
			slog.String("start", rows[0].Timestamp.Local().Format(time.DateTime)),
			slog.String("end", rows[len(rows)-1].Timestamp.Local().Format(time.DateTime)),
			slog.Int("rows", len(rows)),
			slog.Float64("zMin", zBounds.Min),
			slog.Float64("zMax", zBounds.Max)),
		slog.Group("image",
			slog.String("destination", config.OutputFile),
			slog.String("colorMap", colorMap.String())))

	if err = target.Replot(); err != nil {
		return fmt.Errorf("rendering session %d: %w", config.Replay, err)
	}
	return nil
}

// maxRows returns the number of rows of the given width that fit into one
// rolling buffer.
func maxRows(windowWidth int) int {
	return max(1, (spectrogram.MaxBufferBytes-1)/(windowWidth*8))
}

// sessionForm recovers the plot parameters stored with a session. Missing or
// broken parameters are replaced by defaults.
func sessionForm(session *storage.Session, logger *slog.Logger) scope.FormValues {
	form := scope.DefaultSpectrogramConfig().FormValues()
	if session.Config == nil {
		return form
	}

	var stored scope.FormValues
	if err := json.Unmarshal([]byte(*session.Config), &stored); err != nil {
		logger.Warn("session configuration is unreadable", slog.String("error", err.Error()))
		return form
	}

	if stored.SamplingFrequency > 0 {
		form.SamplingFrequency = stored.SamplingFrequency
	}
	if stored.ZMaximum > 0 {
		form.ZMaximum = stored.ZMaximum
	}
	if stored.ColorMap.IsValid() {
		form.ColorMap = stored.ColorMap
	}
	return form
}
