package settings

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// Format is a settings document file format
type Format string

var validFormats = map[Format]struct{}{
	FormatYAML: {},
	FormatTOML: {},
}

// FormatFromPath picks the document format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported settings file extension: '%s'", filepath.Ext(path))
	}
}

// Decode reads a settings document in the given format. An empty input yields
// an empty group.
func Decode(r io.Reader, format Format) (*Group, error) {
	m := make(map[string]any)

	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&m); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decoding yaml: %w", err)
		}

	case FormatTOML:
		if _, err := toml.NewDecoder(r).Decode(&m); err != nil {
			return nil, fmt.Errorf("decoding toml: %w", err)
		}

	default:
		return nil, fmt.Errorf("decoding settings: unknown format '%s'", format)
	}

	return fromMap(m), nil
}

// Encode writes the settings document in the given format.
func Encode(w io.Writer, format Format, g *Group) error {
	if _, ok := validFormats[format]; !ok {
		return fmt.Errorf("encoding settings: unknown format '%s'", format)
	}

	m := g.toMap()
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(m); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()

	default:
		if err := toml.NewEncoder(w).Encode(m); err != nil {
			return fmt.Errorf("encoding toml: %w", err)
		}
		return nil
	}
}

// Load reads the settings document stored at path.
func Load(path string) (*Group, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening settings file: %w", err)
	}
	defer f.Close()

	return Decode(f, format)
}

// Save writes the settings document to path, replacing any existing file.
// The document is written to a temporary file first and renamed into place.
func Save(path string, g *Group) (err error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".settings-*")
	if err != nil {
		return fmt.Errorf("creating temporary settings file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = Encode(tmp, format, g); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing temporary settings file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing settings file: %w", err)
	}
	return nil
}
