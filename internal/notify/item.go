package notify

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	SayNever SayOrder = iota
	SayBeforeFirst
	SayBeforeSecond
	SayAfterSecond
	SayAfterThird
)

// SayOrder is the position of the spoken value within a message
type SayOrder int

var sayOrderNames = map[SayOrder]string{
	SayNever:        "Never",
	SayBeforeFirst:  "Before first",
	SayBeforeSecond: "Before second",
	SayAfterSecond:  "After second",
	SayAfterThird:   "After third",
}

func (o SayOrder) String() string {
	if name, ok := sayOrderNames[o]; ok {
		return name
	}
	return fmt.Sprintf("SayOrder(%d)", int(o))
}

// ParseSayOrder parses a say order by its display name, e.g. "After second"
func ParseSayOrder(s string) (SayOrder, error) {
	for o, name := range sayOrderNames {
		if name == s {
			return o, nil
		}
	}
	return 0, fmt.Errorf("unknown say order: '%s'", s)
}

const (
	ConditionEqual Condition = iota
	ConditionGreater
	ConditionLess
	ConditionNotEqual
)

// Condition compares a telemetry value with the threshold of a rule
type Condition int

var conditionNames = map[Condition]string{
	ConditionEqual:    "Equal to",
	ConditionGreater:  "Greater than",
	ConditionLess:     "Less than",
	ConditionNotEqual: "Not equal to",
}

func (c Condition) String() string {
	if name, ok := conditionNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Condition(%d)", int(c))
}

// ParseCondition parses a condition by its display name, e.g. "Greater than"
func ParseCondition(s string) (Condition, error) {
	for c, name := range conditionNames {
		if name == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown condition: '%s'", s)
}

// DefaultLanguage is the sound collection used when a sound is missing from
// the selected one
const DefaultLanguage = "default"

var soundExtensions = []string{".mp3", ".wav"}

// Item is a notification rule: when Field of Object meets Condition against
// Threshold, the sounds are played with the value spoken at SayOrder.
type Item struct {
	ID                  uuid.UUID
	SoundCollectionPath string // Directory holding one subdirectory per language
	Language            string // Sound collection, e.g. "default"
	Object              string // Telemetry object name
	Field               string // Field of the telemetry object, its first value is watched
	Sounds              [3]string
	SayOrder            SayOrder
	Condition           Condition
	Threshold           float64
	Retry               time.Duration // Repeat interval while triggered, zero plays once
	Lifetime            time.Duration // Time after which a triggered rule goes quiet, zero never
	Mute                bool
}

// Clone returns a copy of the item
func (it *Item) Clone() *Item {
	c := *it
	return &c
}

// Triggered reports whether v meets the condition of the rule
func (it *Item) Triggered(v float64) bool {
	switch it.Condition {
	case ConditionEqual:
		return v == it.Threshold
	case ConditionGreater:
		return v > it.Threshold
	case ConditionLess:
		return v < it.Threshold
	case ConditionNotEqual:
		return v != it.Threshold
	default:
		return false
	}
}

// MessageSequence returns the sound files to play, in order, for value v.
// Sounds are looked up in the selected language first and in the default
// collection after that. Sounds found in neither are skipped.
func (it *Item) MessageSequence(v float64) []string {
	var names []string
	sound := func(i int) {
		if it.Sounds[i] != "" {
			names = append(names, it.Sounds[i])
		}
	}
	value := func() {
		names = append(names, spokenValue(v)...)
	}

	switch it.SayOrder {
	case SayBeforeFirst:
		value()
		sound(0)
		sound(1)
		sound(2)
	case SayBeforeSecond:
		sound(0)
		value()
		sound(1)
		sound(2)
	case SayAfterSecond:
		sound(0)
		sound(1)
		value()
		sound(2)
	case SayAfterThird:
		sound(0)
		sound(1)
		sound(2)
		value()
	default:
		sound(0)
		sound(1)
		sound(2)
	}

	sequence := make([]string, 0, len(names))
	for _, name := range names {
		if path, ok := it.resolveSound(name); ok {
			sequence = append(sequence, path)
		}
	}
	return sequence
}

func (it *Item) resolveSound(name string) (string, bool) {
	for _, lang := range []string{it.Language, DefaultLanguage} {
		if lang == "" {
			continue
		}
		for _, ext := range soundExtensions {
			path := filepath.Join(it.SoundCollectionPath, lang, name+ext)
			if fi, err := os.Stat(path); err == nil && fi.Mode().IsRegular() {
				return path, true
			}
		}
	}
	return "", false
}

// spokenValue spells v as sound names, one per character
func spokenValue(v float64) []string {
	text := strconv.FormatFloat(v, 'f', -1, 64)

	names := make([]string, 0, len(text))
	for _, r := range text {
		switch {
		case r >= '0' && r <= '9':
			names = append(names, string(r))
		case r == '.':
			names = append(names, "point")
		case r == '-':
			names = append(names, "minus")
		}
	}
	return names
}
