package storage

import (
	"time"
)

// Session is one recording of a spectrogram series
type Session struct {
	ID          int64     `json:"id"`
	StartTime   time.Time `json:"startTime"`
	Label       string    `json:"label"`            // Series label, e.g. "Gyros.x(deg/s)"
	WindowWidth int       `json:"windowWidth"`      // Frequency bins per row
	Config      *string   `json:"config,omitempty"` // Plot configuration in JSON format
}

// Row is one recorded time slot of a spectrogram
type Row struct {
	Timestamp time.Time `json:"timestamp"`
	Values    []float64 `json:"values"` // One value per frequency bin
}
