package app

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/roman-kulish/ground-control/internal/telemetry"
)

const (
	spectrumBins    = 64
	batteryFull     = 12.6 // V
	batteryEmpty    = 9.6  // V
	batteryDrainFor = 10 * time.Minute
)

// Publisher stores and fans out telemetry updates
type Publisher interface {
	Register(name string, fields ...telemetry.Field) (*telemetry.Object, error)
	Publish(name string, ts time.Time, values map[string][]float64) error
}

// Simulator publishes synthetic vehicle telemetry: gyro rates, a vibration
// spectrum and a draining battery.
type Simulator struct {
	pub    Publisher
	period time.Duration
	rng    *rand.Rand
	logger *slog.Logger

	start time.Time
}

// NewSimulator creates a simulator publishing rate updates per second
func NewSimulator(pub Publisher, rate float64, logger *slog.Logger) *Simulator {
	return &Simulator{
		pub:    pub,
		period: time.Duration(float64(time.Second) / rate),
		rng:    rand.New(rand.NewPCG(1, 2)),
		logger: logger.With(slog.String("component", "simulator")),
	}
}

// Register registers the simulated objects
func (s *Simulator) Register() error {
	elements := make([]string, spectrumBins)
	for i := range elements {
		elements[i] = "b" + strconv.Itoa(i)
	}

	objects := []struct {
		name   string
		fields []telemetry.Field
	}{
		{
			name: "Gyros",
			fields: []telemetry.Field{
				{Name: "x", Units: "deg/s"},
				{Name: "y", Units: "deg/s"},
				{Name: "z", Units: "deg/s"},
			},
		},
		{
			name:   "Vibration",
			fields: []telemetry.Field{{Name: "Spectrum", Units: "dB", Elements: elements}},
		},
		{
			name:   "FlightBatteryState",
			fields: []telemetry.Field{{Name: "Voltage", Units: "V"}},
		},
	}

	for _, o := range objects {
		if _, err := s.pub.Register(o.name, o.fields...); err != nil {
			return fmt.Errorf("registering simulated object: %w", err)
		}
	}
	return nil
}

// Run publishes updates until ctx is done
func (s *Simulator) Run(ctx context.Context) error {
	s.start = time.Now()

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	s.logger.Info("simulating telemetry", slog.Duration("period", s.period))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case now := <-ticker.C:
			if err := s.publish(now); err != nil {
				return err
			}
		}
	}
}

func (s *Simulator) publish(now time.Time) error {
	t := now.Sub(s.start).Seconds()

	updates := map[string]map[string][]float64{
		"Gyros": {
			"x": {s.gyro(t, 0.5, 0)},
			"y": {s.gyro(t, 0.3, math.Pi/3)},
			"z": {s.gyro(t, 0.1, math.Pi/2)},
		},
		"Vibration": {
			"Spectrum": s.spectrum(t),
		},
		"FlightBatteryState": {
			"Voltage": {s.battery(now)},
		},
	}

	for name, values := range updates {
		if err := s.pub.Publish(name, now, values); err != nil {
			return fmt.Errorf("publishing simulated telemetry: %w", err)
		}
	}
	return nil
}

func (s *Simulator) gyro(t, freq, phase float64) float64 {
	return 5*math.Sin(2*math.Pi*freq*t+phase) + s.rng.NormFloat64()*0.2
}

// spectrum returns a noise floor with one peak sweeping across the bins
func (s *Simulator) spectrum(t float64) []float64 {
	peak := (math.Sin(2*math.Pi*0.05*t) + 1) / 2 * (spectrumBins - 1)

	values := make([]float64, spectrumBins)
	for i := range values {
		d := float64(i) - peak
		values[i] = 20 + 80*math.Exp(-d*d/8) + s.rng.Float64()*10
	}
	return values
}

func (s *Simulator) battery(now time.Time) float64 {
	elapsed := now.Sub(s.start) % batteryDrainFor
	drained := elapsed.Seconds() / batteryDrainFor.Seconds()
	return math.Round((batteryFull-(batteryFull-batteryEmpty)*drained)*10) / 10
}
