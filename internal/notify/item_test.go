package notify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newSoundDir creates a sound collection directory with the given files per
// language.
func newSoundDir(t *testing.T, files map[string][]string) string {
	t.Helper()

	dir := t.TempDir()
	for lang, names := range files {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, lang), 0o755))
		for _, name := range names {
			require.NoError(t, os.WriteFile(filepath.Join(dir, lang, name), nil, 0o644))
		}
	}
	return dir
}

func TestItem_Triggered(t *testing.T) {
	tests := []struct {
		condition Condition
		value     float64
		want      bool
	}{
		{ConditionEqual, 10, true},
		{ConditionEqual, 10.5, false},
		{ConditionGreater, 11, true},
		{ConditionGreater, 10, false},
		{ConditionLess, 9, true},
		{ConditionLess, 10, false},
		{ConditionNotEqual, 9, true},
		{ConditionNotEqual, 10, false},
		{Condition(42), 10, false},
	}

	for _, tt := range tests {
		t.Run(tt.condition.String(), func(t *testing.T) {
			it := Item{Condition: tt.condition, Threshold: 10}
			assert.Equal(t, tt.want, it.Triggered(tt.value))
		})
	}
}

func TestItem_MessageSequence(t *testing.T) {
	dir := newSoundDir(t, map[string][]string{
		"en":      {"altitude.wav", "warning.mp3", "meters.mp3", "1.wav", "2.wav"},
		"default": {"point.wav", "minus.wav", "5.wav", "warning.wav"},
	})
	path := func(lang, file string) string {
		return filepath.Join(dir, lang, file)
	}

	base := Item{
		SoundCollectionPath: dir,
		Language:            "en",
		Sounds:              [3]string{"warning", "altitude", "meters"},
	}

	tests := []struct {
		name  string
		order SayOrder
		value float64
		want  []string
	}{
		{
			name:  "never",
			order: SayNever,
			value: 12,
			want:  []string{path("en", "warning.mp3"), path("en", "altitude.wav"), path("en", "meters.mp3")},
		},
		{
			name:  "before first",
			order: SayBeforeFirst,
			value: 12,
			want:  []string{path("en", "1.wav"), path("en", "2.wav"), path("en", "warning.mp3"), path("en", "altitude.wav"), path("en", "meters.mp3")},
		},
		{
			name:  "before second",
			order: SayBeforeSecond,
			value: -1.5,
			want: []string{
				path("en", "warning.mp3"),
				path("default", "minus.wav"), path("en", "1.wav"), path("default", "point.wav"), path("default", "5.wav"),
				path("en", "altitude.wav"), path("en", "meters.mp3"),
			},
		},
		{
			name:  "after second",
			order: SayAfterSecond,
			value: 2,
			want:  []string{path("en", "warning.mp3"), path("en", "altitude.wav"), path("en", "2.wav"), path("en", "meters.mp3")},
		},
		{
			name:  "after third skips missing digits",
			order: SayAfterThird,
			value: 3,
			want:  []string{path("en", "warning.mp3"), path("en", "altitude.wav"), path("en", "meters.mp3")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := base
			it.SayOrder = tt.order
			assert.Equal(t, tt.want, it.MessageSequence(tt.value))
		})
	}

	t.Run("falls back to the default collection", func(t *testing.T) {
		it := base
		it.Language = "fr"
		it.Sounds = [3]string{"warning", "", ""}
		assert.Equal(t, []string{path("default", "warning.wav")}, it.MessageSequence(0))
	})
}

func TestParseSayOrderAndCondition(t *testing.T) {
	order, err := ParseSayOrder("After second")
	require.NoError(t, err)
	assert.Equal(t, SayAfterSecond, order)

	_, err = ParseSayOrder("Sometimes")
	assert.Error(t, err)

	cond, err := ParseCondition("Less than")
	require.NoError(t, err)
	assert.Equal(t, ConditionLess, cond)

	_, err = ParseCondition("")
	assert.Error(t, err)
}

func TestSoundCollectionsAndFiles(t *testing.T) {
	dir := newSoundDir(t, map[string][]string{
		"default": {"warning.wav", "warning.mp3", "altitude.MP3", "readme.txt", "1.wav"},
		"en":      nil,
		".hidden": nil,
	})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.wav"), nil, 0o644))

	collections, err := SoundCollections(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"default", "en"}, collections)

	sounds, err := SoundFiles(filepath.Join(dir, "default"))
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "altitude", "warning"}, sounds)

	_, err = SoundCollections(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
