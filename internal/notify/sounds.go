package notify

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// SoundCollections lists the sound collections, one subdirectory each, found
// in dir.
func SoundCollections(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading sound collection directory: %w", err)
	}

	var collections []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			collections = append(collections, e.Name())
		}
	}
	slices.Sort(collections)
	return collections, nil
}

// SoundFiles lists the sounds of a collection: the sorted names of its mp3
// and wav files without extension.
func SoundFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading sound files: %w", err)
	}

	var sounds []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if !slices.Contains(soundExtensions, strings.ToLower(ext)) {
			continue
		}
		sounds = append(sounds, strings.TrimSuffix(e.Name(), ext))
	}
	slices.Sort(sounds)
	return slices.Compact(sounds), nil
}
