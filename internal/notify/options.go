package notify

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNoSoundCollection is returned when a rule has no sound collection path
	ErrNoSoundCollection = errors.New("sound collection path required")

	// ErrInvalidSayOrder is returned when the value is to be spoken after a sound that is empty
	ErrInvalidSayOrder = errors.New("say order refers to an empty sound")

	// ErrNoSuchItem is returned for rule indexes outside of the list
	ErrNoSuchItem = errors.New("no such notification")
)

const DefaultLifetime = 10 * time.Second

// Form holds the values of the notification options form
type Form struct {
	SoundCollectionPath string
	Language            string
	Object              string
	Field               string
	Sounds              [3]string
	SayOrder            SayOrder
	Condition           Condition
	Threshold           float64
}

func (f Form) validate() error {
	if f.SoundCollectionPath == "" {
		return ErrNoSoundCollection
	}
	if (f.SayOrder == SayAfterSecond && f.Sounds[1] == "") ||
		(f.SayOrder == SayAfterThird && f.Sounds[2] == "") {
		return fmt.Errorf("%w: %s", ErrInvalidSayOrder, f.SayOrder)
	}
	return nil
}

func (f Form) apply(it *Item) {
	it.SoundCollectionPath = f.SoundCollectionPath
	it.Language = f.Language
	it.Object = f.Object
	it.Field = f.Field
	it.Sounds = f.Sounds
	it.SayOrder = f.SayOrder
	it.Condition = f.Condition
	it.Threshold = f.Threshold
}

// FormFromItem fills the options form from a rule
func FormFromItem(it *Item) Form {
	return Form{
		SoundCollectionPath: it.SoundCollectionPath,
		Language:            it.Language,
		Object:              it.Object,
		Field:               it.Field,
		Sounds:              it.Sounds,
		SayOrder:            it.SayOrder,
		Condition:           it.Condition,
		Threshold:           it.Threshold,
	}
}

// WithLogger sets the logger for the options
func WithLogger(logger *slog.Logger) func(*Options) {
	return func(o *Options) {
		o.logger = logger.With(slog.String("component", "notify"))
	}
}

// Options is the editable list of notification rules. Edits stay local until
// Apply hands the list to its consumer.
type Options struct {
	items       []*Item
	current     Form // Form values applied last
	enableSound bool

	logger *slog.Logger
}

// NewOptions creates options editing a copy of items
func NewOptions(items []*Item, enableSound bool, options ...func(*Options)) *Options {
	o := Options{
		items:       cloneItems(items),
		enableSound: enableSound,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&o)
	}

	return &o
}

func cloneItems(items []*Item) []*Item {
	clones := make([]*Item, 0, len(items))
	for _, it := range items {
		clones = append(clones, it.Clone())
	}
	return clones
}

// Add appends a new rule built from the form and returns it
func (o *Options) Add(f Form) (*Item, error) {
	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("adding notification: %w", err)
	}

	it := Item{
		ID:       uuid.New(),
		Lifetime: DefaultLifetime,
	}
	f.apply(&it)

	o.items = append(o.items, &it)
	o.logger.Debug("notification added", slog.String("id", it.ID.String()), slog.String("object", it.Object))
	return it.Clone(), nil
}

// Modify replaces the rule at index i with the form values. The rule keeps its
// ID, retry interval, lifetime and mute state.
func (o *Options) Modify(i int, f Form) (*Item, error) {
	if i < 0 || i >= len(o.items) {
		return nil, fmt.Errorf("modifying notification %d: %w", i, ErrNoSuchItem)
	}
	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("modifying notification %d: %w", i, err)
	}

	prev := o.items[i]
	it := Item{
		ID:       prev.ID,
		Retry:    prev.Retry,
		Lifetime: prev.Lifetime,
		Mute:     prev.Mute,
	}
	f.apply(&it)

	o.items[i] = &it
	return it.Clone(), nil
}

// Delete removes the rule at index i
func (o *Options) Delete(i int) error {
	if i < 0 || i >= len(o.items) {
		return fmt.Errorf("deleting notification %d: %w", i, ErrNoSuchItem)
	}
	o.items = slices.Delete(o.items, i, i+1)
	return nil
}

// SetTiming sets how often and for how long the rule at index i repeats
func (o *Options) SetTiming(i int, retry, lifetime time.Duration) error {
	if i < 0 || i >= len(o.items) {
		return fmt.Errorf("setting notification %d timing: %w", i, ErrNoSuchItem)
	}
	if retry < 0 || lifetime < 0 {
		return fmt.Errorf("setting notification %d timing: negative duration", i)
	}
	o.items[i].Retry = retry
	o.items[i].Lifetime = lifetime
	return nil
}

// SetMute mutes or unmutes the rule at index i
func (o *Options) SetMute(i int, mute bool) error {
	if i < 0 || i >= len(o.items) {
		return fmt.Errorf("muting notification %d: %w", i, ErrNoSuchItem)
	}
	o.items[i].Mute = mute
	return nil
}

// Items returns a copy of the rules
func (o *Options) Items() []*Item {
	return cloneItems(o.items)
}

// Len returns the number of rules
func (o *Options) Len() int {
	return len(o.items)
}

// SetEnableSound switches all sound output on or off
func (o *Options) SetEnableSound(enable bool) {
	o.enableSound = enable
}

// EnableSound reports whether sound output is on
func (o *Options) EnableSound() bool {
	return o.enableSound
}

// Current returns the form values applied last
func (o *Options) Current() Form {
	return o.current
}

// Apply records the current form values and hands a copy of the rules to fn
func (o *Options) Apply(current Form, fn func(items []*Item, enableSound bool)) {
	o.current = current
	o.logger.Info("applying notifications", slog.Int("rules", len(o.items)), slog.Bool("enableSound", o.enableSound))
	fn(o.Items(), o.enableSound)
}
