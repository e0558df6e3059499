package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/ground-control/internal/telemetry"
)

type played struct {
	id       string
	sequence []string
}

func newWatcherFixture(t *testing.T) (*telemetry.Registry, *Watcher, *[]played, string) {
	t.Helper()

	reg := telemetry.NewRegistry()
	_, err := reg.Register("FlightBatteryState", telemetry.Field{Name: "Voltage", Units: "V"})
	require.NoError(t, err)

	dir := newSoundDir(t, map[string][]string{
		"default": {"battery.wav", "low.wav"},
	})

	var plays []played
	w := NewWatcher(reg, func(item *Item, sequence []string) {
		plays = append(plays, played{id: item.ID.String(), sequence: sequence})
	})
	t.Cleanup(w.Close)

	return reg, w, &plays, dir
}

func lowBatteryItem(dir string) *Item {
	return &Item{
		ID:                  [16]byte{1},
		SoundCollectionPath: dir,
		Language:            "default",
		Object:              "FlightBatteryState",
		Field:               "Voltage",
		Sounds:              [3]string{"battery", "low", ""},
		Condition:           ConditionLess,
		Threshold:           10,
	}
}

func publishVoltage(t *testing.T, reg *telemetry.Registry, ts time.Time, v float64) {
	t.Helper()
	require.NoError(t, reg.Publish("FlightBatteryState", ts, map[string][]float64{"Voltage": {v}}))
}

func TestWatcher_PlaysOncePerTrigger(t *testing.T) {
	reg, w, plays, dir := newWatcherFixture(t)
	w.Load([]*Item{lowBatteryItem(dir)}, true)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	publishVoltage(t, reg, base, 11)
	assert.Empty(t, *plays)

	publishVoltage(t, reg, base.Add(time.Second), 9)
	require.Len(t, *plays, 1)
	assert.Len(t, (*plays)[0].sequence, 2)

	// Still triggered, no retry configured
	publishVoltage(t, reg, base.Add(2*time.Second), 8)
	assert.Len(t, *plays, 1)

	// Condition clears and triggers again
	publishVoltage(t, reg, base.Add(3*time.Second), 12)
	publishVoltage(t, reg, base.Add(4*time.Second), 9)
	assert.Len(t, *plays, 2)
}

func TestWatcher_RetryAndLifetime(t *testing.T) {
	reg, w, plays, dir := newWatcherFixture(t)

	it := lowBatteryItem(dir)
	it.Retry = 2 * time.Second
	it.Lifetime = 5 * time.Second
	w.Load([]*Item{it}, true)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := range 8 {
		publishVoltage(t, reg, base.Add(time.Duration(i)*time.Second), 9)
	}

	// Played at 0s, 2s and 4s; quiet from 5s on
	assert.Len(t, *plays, 3)
}

func TestWatcher_MuteAndSoundSwitch(t *testing.T) {
	reg, w, plays, dir := newWatcherFixture(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	muted := lowBatteryItem(dir)
	muted.Mute = true
	w.Load([]*Item{muted}, true)
	publishVoltage(t, reg, base, 9)
	assert.Empty(t, *plays)

	w.Load([]*Item{lowBatteryItem(dir)}, false)
	publishVoltage(t, reg, base.Add(time.Second), 9)
	assert.Empty(t, *plays)

	w.Load([]*Item{lowBatteryItem(dir)}, true)
	publishVoltage(t, reg, base.Add(2*time.Second), 9)
	assert.Len(t, *plays, 1)
}

func TestWatcher_UnknownObjectAndClose(t *testing.T) {
	reg, w, plays, dir := newWatcherFixture(t)

	unknown := lowBatteryItem(dir)
	unknown.Object = "Missing"
	w.Load([]*Item{unknown, lowBatteryItem(dir)}, true)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	publishVoltage(t, reg, base, 9)
	assert.Len(t, *plays, 1)

	w.Close()
	publishVoltage(t, reg, base.Add(time.Second), 12)
	publishVoltage(t, reg, base.Add(2*time.Second), 9)
	assert.Len(t, *plays, 1, "no updates after Close")
}

func TestWatcher_NoSounds(t *testing.T) {
	reg, w, plays, dir := newWatcherFixture(t)

	it := lowBatteryItem(dir)
	it.Sounds = [3]string{"missing", "", ""}
	w.Load([]*Item{it}, true)

	publishVoltage(t, reg, time.Now(), 9)
	assert.Empty(t, *plays)
}
