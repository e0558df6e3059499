package app

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/roman-kulish/ground-control/internal/render"
)

const (
	defaultObject    = "Gyros"
	defaultField     = "x"
	defaultRate      = 100.0
	defaultStreamURL = "/stream"
)

type Config struct {
	SettingsPath string  // Settings document, .yaml or .toml
	SaveSettings bool    // Write the complete configuration back on exit
	Object       string  // Telemetry object used when the settings hold no plot
	Field        string  // Telemetry field used when the settings hold no plot
	OutputFile   string  // Image replaced on every refresh
	ListenAddr   string  // Websocket stream address
	DBPath       string  // Recording database
	Replay       int64   // Session to render from DBPath instead of running live
	Rate         float64 // Simulated telemetry updates per second
	AutoScale    bool    // Derive the replayed intensity range from the data
	ColorMap     *render.ColorMapType
	TimeZone     *time.Location
	LogLevel     slog.Level
}

func NewConfig() *Config {
	return &Config{
		Object:   defaultObject,
		Field:    defaultField,
		Rate:     defaultRate,
		TimeZone: time.Local,
		LogLevel: slog.LevelInfo,
	}
}

// NewConfigFromCLI parses the command line
func NewConfigFromCLI() (*Config, error) {
	return parseConfig(flag.CommandLine, os.Args[1:])
}

func parseConfig(fs *flag.FlagSet, args []string) (*Config, error) {
	c := NewConfig()

	var colorMap, timeZone, logLevel string
	fs.StringVar(&c.SettingsPath, "settings", "", "Path to the settings file (.yaml, .toml)")
	fs.BoolVar(&c.SaveSettings, "save", false, "Write the configuration back to the settings file on exit")
	fs.StringVar(&c.Object, "object", defaultObject, "Telemetry object to plot when the settings hold no plot")
	fs.StringVar(&c.Field, "field", defaultField, "Telemetry field to plot, 'field-element' selects a vector element")
	fs.StringVar(&c.OutputFile, "o", "", "Path to the output image (.png, .jpg)")
	fs.StringVar(&c.ListenAddr, "listen", "", "Address to serve the websocket stream on, e.g. ':8080'")
	fs.StringVar(&c.DBPath, "db", "", "Path to the recording database")
	fs.Int64Var(&c.Replay, "replay", 0, "Render the recorded session with this ID and exit")
	fs.BoolVar(&c.AutoScale, "auto-scale", false, "Fit the color map of a replayed session to the 5th to 95th percentile of its values")
	fs.Float64Var(&c.Rate, "rate", defaultRate, "Simulated telemetry updates per second")
	fs.StringVar(&colorMap, "colormap", "", "Override the color map. [standard, jet, grayscale, thermal, marine, jungle]")
	fs.StringVar(&timeZone, "tz", "", "Time zone of time labels, e.g. 'Australia/Sydney'")
	fs.StringVar(&logLevel, "log-level", "info", "Log level. [debug, info, warn, error]")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if colorMap != "" {
		t, err := render.ParseColorMapType(strings.ToLower(colorMap))
		if err != nil {
			return nil, err
		}
		c.ColorMap = &t
	}

	if timeZone != "" {
		loc, err := time.LoadLocation(timeZone)
		if err != nil {
			return nil, fmt.Errorf("loading time zone: %w", err)
		}
		c.TimeZone = loc
	}

	if err := c.LogLevel.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level: %s", logLevel)
	}

	if err := c.validate(); err != nil {
		fs.Usage()
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	switch {
	case c.Replay < 0:
		return errors.New("invalid replay session id")

	case c.Replay > 0 && c.DBPath == "":
		return errors.New("db path is required to replay a session")

	case c.Replay > 0 && c.OutputFile == "":
		return errors.New("output file is required to replay a session")

	case c.Replay == 0 && c.OutputFile == "" && c.ListenAddr == "" && c.DBPath == "":
		return errors.New("nothing to do: set an output file, a listen address or a database")

	case c.SaveSettings && c.SettingsPath == "":
		return errors.New("settings file is required to save settings")

	case c.Rate <= 0:
		return fmt.Errorf("invalid rate: %g", c.Rate)
	}

	if c.OutputFile != "" {
		if _, err := render.ImageFormatFromPath(c.OutputFile); err != nil {
			return err
		}
	}
	return nil
}
