package notify

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/roman-kulish/ground-control/internal/settings"
)

// Settings keys
const (
	notificationsGroup = "notifications"
	itemGroupPrefix    = "notification"
	keyEnableSound     = "enableSound"
	keyCurrent         = "current"
	keyItemCount       = "listSize"
	keyID              = "id"
	keySoundCollection = "soundCollectionPath"
	keyLanguage        = "currentLanguage"
	keyObject          = "dataObject"
	keyField           = "objectField"
	keySoundPrefix     = "sound"
	keySayOrder        = "sayOrder"
	keyCondition       = "value"
	keyThreshold       = "valueSpinBox"
	keyRetry           = "repeat"
	keyLifetime        = "expireTimeout"
	keyMute            = "mute"
)

// Save writes the rules, the sound switch and the current form values into the
// notifications group under root, replacing previous notification settings.
func (o *Options) Save(root *settings.Group) {
	root.RemoveGroup(notificationsGroup)
	g := root.Ensure(notificationsGroup)

	g.Set(keyEnableSound, o.enableSound)
	g.Set(keyItemCount, len(o.items))
	saveForm(g.Ensure(keyCurrent), o.current)

	for i, it := range o.items {
		ig := g.Ensure(itemGroupPrefix + strconv.Itoa(i))
		ig.Set(keyID, it.ID.String())
		saveForm(ig, FormFromItem(it))
		ig.Set(keyRetry, it.Retry.Milliseconds())
		ig.Set(keyLifetime, it.Lifetime.Milliseconds())
		ig.Set(keyMute, it.Mute)
	}
}

func saveForm(g *settings.Group, f Form) {
	g.Set(keySoundCollection, f.SoundCollectionPath)
	g.Set(keyLanguage, f.Language)
	g.Set(keyObject, f.Object)
	g.Set(keyField, f.Field)
	for i, s := range f.Sounds {
		g.Set(keySoundPrefix+strconv.Itoa(i+1), s)
	}
	g.Set(keySayOrder, f.SayOrder.String())
	g.Set(keyCondition, f.Condition.String())
	g.Set(keyThreshold, f.Threshold)
}

// LoadOptions reads options from the notifications group under root. Rules
// with an unknown say order or condition fall back to the first choice of
// each, rules without a valid ID get a new one.
func LoadOptions(root *settings.Group, options ...func(*Options)) *Options {
	o := NewOptions(nil, true, options...)

	g, ok := root.Group(notificationsGroup)
	if !ok {
		return o
	}

	if v, ok := g.Bool(keyEnableSound); ok {
		o.enableSound = v
	}
	if cg, ok := g.Group(keyCurrent); ok {
		o.current = o.loadForm(cg)
	}

	count, _ := g.Int(keyItemCount)
	for i := 0; i < count; i++ {
		ig, ok := g.Group(itemGroupPrefix + strconv.Itoa(i))
		if !ok {
			o.logger.Warn("notification missing from settings", slog.Int("index", i))
			continue
		}
		o.items = append(o.items, o.loadItem(ig))
	}

	return o
}

func (o *Options) loadItem(g *settings.Group) *Item {
	it := Item{Lifetime: DefaultLifetime}

	if text, ok := g.String(keyID); ok {
		id, err := uuid.Parse(text)
		if err == nil {
			it.ID = id
		}
	}
	if it.ID == uuid.Nil {
		it.ID = uuid.New()
	}

	o.loadForm(g).apply(&it)

	if v, ok := g.Int(keyRetry); ok && v >= 0 {
		it.Retry = time.Duration(v) * time.Millisecond
	}
	if v, ok := g.Int(keyLifetime); ok && v >= 0 {
		it.Lifetime = time.Duration(v) * time.Millisecond
	}
	it.Mute, _ = g.Bool(keyMute)

	return &it
}

func (o *Options) loadForm(g *settings.Group) Form {
	var f Form
	f.SoundCollectionPath, _ = g.String(keySoundCollection)
	f.Language, _ = g.String(keyLanguage)
	f.Object, _ = g.String(keyObject)
	f.Field, _ = g.String(keyField)
	for i := range f.Sounds {
		f.Sounds[i], _ = g.String(keySoundPrefix + strconv.Itoa(i+1))
	}
	f.Threshold, _ = g.Float(keyThreshold)

	if text, ok := g.String(keySayOrder); ok {
		order, err := ParseSayOrder(text)
		if err != nil {
			o.logger.Warn("loading notification", slog.Any("error", err))
		}
		f.SayOrder = order
	}
	if text, ok := g.String(keyCondition); ok {
		cond, err := ParseCondition(text)
		if err != nil {
			o.logger.Warn("loading notification", slog.Any("error", err))
		}
		f.Condition = cond
	}
	return f
}
