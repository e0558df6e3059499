package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/roman-kulish/ground-control/internal/notify"
	"github.com/roman-kulish/ground-control/internal/render"
	"github.com/roman-kulish/ground-control/internal/scope"
	"github.com/roman-kulish/ground-control/internal/settings"
	"github.com/roman-kulish/ground-control/internal/storage"
	"github.com/roman-kulish/ground-control/internal/stream"
	"github.com/roman-kulish/ground-control/internal/telemetry"
)

const shutdownTimeout = 5 * time.Second

// Run renders a recorded session when a replay is requested and runs the live
// spectrogram otherwise.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	if config.Replay > 0 {
		return Replay(ctx, config, logger)
	}
	return runLive(ctx, config, logger)
}

func runLive(ctx context.Context, config *Config, logger *slog.Logger) error {
	root, err := loadSettings(config.SettingsPath)
	if err != nil {
		return err
	}

	plot, err := plotConfig(root, config, logger)
	if err != nil {
		return err
	}
	if err = plot.Validate(); err != nil {
		return fmt.Errorf("validating plot configuration: %w", err)
	}

	registry := telemetry.NewRegistry(telemetry.WithLogger(logger))
	sim := NewSimulator(registry, config.Rate, logger)
	if err = sim.Register(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)

	var wg sync.WaitGroup
	var store *storage.SqliteStore
	defer func() {
		cancel()
		wg.Wait()
		if store != nil {
			_ = store.Close()
		}
	}()

	var targets render.Targets
	widgetOpts := []func(*scope.Widget){scope.WithLogger(logger)}

	if config.OutputFile != "" {
		target, err := render.NewFileTarget(config.OutputFile, renderConfig(config), render.WithTargetLogger(logger))
		if err != nil {
			return fmt.Errorf("creating image target: %w", err)
		}
		targets = append(targets, target)
	}

	if config.ListenAddr != "" {
		hub := stream.NewHub(stream.WithLogger(logger))
		defer hub.Close()
		targets = append(targets, hub)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := serve(ctx, config.ListenAddr, hub, logger); err != nil {
				logger.Error(err.Error())
				cancel()
			}
		}()
	}

	if config.DBPath != "" {
		store = storage.NewSqliteStore(config.DBPath)

		rec, err := newRecorder(ctx, store, plot.Spectrogram, logger)
		if err != nil {
			return err
		}
		widgetOpts = append(widgetOpts, scope.WithRecorder(rec.Record))

		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = rec.Run(ctx)
			logger.Info("recording finished",
				slog.Uint64("stored", rec.Stored()),
				slog.Uint64("dropped", rec.Dropped()))
		}()
	}

	options := notify.LoadOptions(root, notify.WithLogger(logger))
	watcher := notify.NewWatcher(registry, announce(logger), notify.WithWatcherLogger(logger))
	defer watcher.Close()
	options.Apply(options.Current(), watcher.Load)

	widget := scope.NewWidget(registry, targets, widgetOpts...)
	defer widget.Close()

	switch err = widget.Load(plot); {
	case errors.Is(err, scope.ErrObjectNotFound):
		// Nothing to plot until the settings name an existing object
		logger.Warn("running without a plot", slog.String("error", err.Error()))
	case err != nil:
		return fmt.Errorf("loading plot: %w", err)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := sim.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error(err.Error())
			cancel()
		}
	}()

	err = widget.Run(ctx)
	cancel()
	wg.Wait()

	if config.SaveSettings {
		if err := saveSettings(config.SettingsPath, root, plot, options); err != nil {
			return err
		}
		logger.Info("settings saved", slog.String("path", config.SettingsPath))
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func loadSettings(path string) (*settings.Group, error) {
	if path == "" {
		return settings.New(), nil
	}

	root, err := settings.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return settings.New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	return root, nil
}

// plotConfig reads the plot from the settings or builds a default one for the
// object and field given on the command line.
func plotConfig(root *settings.Group, config *Config, logger *slog.Logger) (scope.PlotConfig, error) {
	plot, err := scope.PlotConfigFromSettings(root)
	switch {
	case errors.Is(err, scope.ErrNoPlotSettings):
		c := scope.DefaultSpectrogramConfig()
		f := c.FormValues()
		f.ObjectName = config.Object
		f.FieldName = config.Field
		f.ScalePower = 0
		f.MeanSamples = 1
		f.Color = render.FormatColor(scope.DefaultSourceColor)

		plot = scope.NewSpectrogramPlot(scope.SpectrogramConfigFromForm(f))
		logger.Info("no plot in settings, using defaults",
			slog.String("object", config.Object),
			slog.String("field", config.Field))

	case err != nil:
		return scope.PlotConfig{}, err
	}

	if config.ColorMap != nil && plot.Spectrogram != nil {
		plot.Spectrogram.ColorMap = *config.ColorMap
	}
	return plot, nil
}

func saveSettings(path string, root *settings.Group, plot scope.PlotConfig, options *notify.Options) error {
	if err := plot.Save(root, scope.SaveOptions{Complete: true}); err != nil {
		return err
	}
	options.Save(root)

	if err := settings.Save(path, root); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	return nil
}

func renderConfig(config *Config) render.RenderConfig {
	return render.RenderConfig{
		Location: config.TimeZone,
	}
}

func newRecorder(ctx context.Context, store *storage.SqliteStore, c *scope.SpectrogramConfig, logger *slog.Logger) (*storage.Recorder, error) {
	var label string
	if len(c.Sources) > 0 {
		label = c.Sources[0].ObjectName + "." + c.Sources[0].FieldName
	}

	sessionID, err := store.CreateSession(ctx, label, c.WindowWidth, c.FormValues())
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	logger.Info("recording session",
		slog.Int64("session", sessionID),
		slog.String("label", label))

	return storage.NewRecorder(store, sessionID, storage.WithRecorderLogger(logger)), nil
}

func serve(ctx context.Context, addr string, hub *stream.Hub, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle(defaultStreamURL, hub)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = hub.Close()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("streaming spectrogram", slog.String("addr", addr), slog.String("path", defaultStreamURL))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving stream: %w", err)
	}
	return nil
}

// announce logs notification messages in place of playing them
func announce(logger *slog.Logger) notify.Player {
	return func(item *notify.Item, sequence []string) {
		logger.Warn("notification",
			slog.String("object", item.Object),
			slog.String("field", item.Field),
			slog.String("condition", fmt.Sprintf("%s %g", item.Condition, item.Threshold)),
			slog.String("sequence", strings.Join(sequence, ", ")))
	}
}
