package notify

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/roman-kulish/ground-control/internal/telemetry"
)

// Player plays the message sequence of a triggered rule
type Player func(item *Item, sequence []string)

// Telemetry is the update source of a Watcher
type Telemetry interface {
	Subscribe(name string, fn func(telemetry.Update)) (func(), error)
}

// WithWatcherLogger sets the logger for the watcher
func WithWatcherLogger(logger *slog.Logger) func(*Watcher) {
	return func(w *Watcher) {
		w.logger = logger.With(slog.String("component", "notify"))
	}
}

type rule struct {
	item       *Item
	active     bool      // The condition held on the latest update
	since      time.Time // Start of the current activation
	lastPlayed time.Time
}

// Watcher evaluates notification rules against telemetry updates. Timing is
// driven by update timestamps.
type Watcher struct {
	telemetry Telemetry
	player    Player

	mu          sync.Mutex
	rules       []*rule
	cancels     []func()
	enableSound bool

	logger *slog.Logger
}

// NewWatcher creates a watcher without rules
func NewWatcher(t Telemetry, player Player, options ...func(*Watcher)) *Watcher {
	w := Watcher{
		telemetry: t,
		player:    player,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&w)
	}

	return &w
}

// Load replaces the watched rules and subscribes once to every object they
// refer to. Rules on unknown objects are logged and never trigger.
func (w *Watcher) Load(items []*Item, enableSound bool) {
	w.mu.Lock()
	cancels := w.cancels
	w.cancels = nil
	w.rules = make([]*rule, 0, len(items))
	for _, it := range items {
		w.rules = append(w.rules, &rule{item: it.Clone()})
	}
	w.enableSound = enableSound
	w.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}

	subscribed := make(map[string]struct{})
	for _, it := range items {
		if _, ok := subscribed[it.Object]; ok {
			continue
		}
		subscribed[it.Object] = struct{}{}

		cancel, err := w.telemetry.Subscribe(it.Object, w.onUpdate)
		if err != nil {
			w.logger.Warn("watching notification", slog.String("object", it.Object), slog.Any("error", err))
			continue
		}

		w.mu.Lock()
		w.cancels = append(w.cancels, cancel)
		w.mu.Unlock()
	}
}

// Close cancels all subscriptions
func (w *Watcher) Close() {
	w.mu.Lock()
	cancels := w.cancels
	w.cancels = nil
	w.rules = nil
	w.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

type announcement struct {
	item     *Item
	sequence []string
}

func (w *Watcher) onUpdate(u telemetry.Update) {
	var pending []announcement

	w.mu.Lock()
	for _, r := range w.rules {
		if r.item.Object != u.Object {
			continue
		}
		values, ok := u.Values[r.item.Field]
		if !ok || len(values) == 0 {
			continue
		}
		if w.evaluate(r, values[0], u.Timestamp) {
			pending = append(pending, announcement{
				item:     r.item.Clone(),
				sequence: r.item.MessageSequence(values[0]),
			})
		}
	}
	w.mu.Unlock()

	for _, a := range pending {
		if len(a.sequence) == 0 {
			w.logger.Warn("no sounds found for notification", slog.String("id", a.item.ID.String()))
			continue
		}
		w.player(a.item, a.sequence)
	}
}

// evaluate advances the rule state for value v at ts and reports whether the
// rule should be played.
func (w *Watcher) evaluate(r *rule, v float64, ts time.Time) bool {
	if !r.item.Triggered(v) {
		r.active = false
		return false
	}

	play := false
	switch {
	case !r.active:
		r.active = true
		r.since = ts
		play = true

	case r.item.Lifetime > 0 && ts.Sub(r.since) >= r.item.Lifetime:
		// Expired

	case r.item.Retry > 0 && ts.Sub(r.lastPlayed) >= r.item.Retry:
		play = true
	}

	if !play || r.item.Mute || !w.enableSound {
		return false
	}
	r.lastPlayed = ts
	return true
}
