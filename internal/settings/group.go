package settings

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
)

// Group is a node of a settings document. Scalar keys live in values, nested
// groups are addressed by name. A Group is passed by reference and there is no
// cursor state: readers and writers navigate explicitly with Group and Ensure.
type Group struct {
	values map[string]any
	groups map[string]*Group
}

// New returns an empty settings group
func New() *Group {
	return &Group{
		values: make(map[string]any),
		groups: make(map[string]*Group),
	}
}

// Group returns the nested group with the given name, if present.
func (g *Group) Group(name string) (*Group, bool) {
	if g == nil {
		return nil, false
	}
	sub, ok := g.groups[name]
	return sub, ok
}

// Ensure returns the nested group with the given name, creating it when absent.
func (g *Group) Ensure(name string) *Group {
	if sub, ok := g.groups[name]; ok {
		return sub
	}
	sub := New()
	g.groups[name] = sub
	return sub
}

// RemoveGroup drops the nested group with the given name.
func (g *Group) RemoveGroup(name string) {
	delete(g.groups, name)
}

// Set stores a scalar value under key.
func (g *Group) Set(key string, value any) {
	g.values[key] = value
}

// Has reports whether a scalar value is stored under key.
func (g *Group) Has(key string) bool {
	if g == nil {
		return false
	}
	_, ok := g.values[key]
	return ok
}

// Value returns the raw scalar stored under key.
func (g *Group) Value(key string) (any, bool) {
	if g == nil {
		return nil, false
	}
	v, ok := g.values[key]
	return v, ok
}

// Keys returns the sorted scalar keys of the group.
func (g *Group) Keys() []string {
	return slices.Sorted(maps.Keys(g.values))
}

// Groups returns the sorted names of the nested groups.
func (g *Group) Groups() []string {
	return slices.Sorted(maps.Keys(g.groups))
}

// String returns the value under key as a string. Numbers are formatted.
func (g *Group) String(key string) (string, bool) {
	v, ok := g.Value(key)
	if !ok {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case fmt.Stringer:
		return t.String(), true
	case nil:
		return "", false
	default:
		return fmt.Sprint(t), true
	}
}

// Float returns the value under key as float64. Strings are parsed.
func (g *Group) Float(key string) (float64, bool) {
	v, ok := g.Value(key)
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

// Int returns the value under key as int. Floats are truncated, strings parsed.
func (g *Group) Int(key string) (int, bool) {
	v, ok := g.Value(key)
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case string:
		i, err := strconv.ParseInt(t, 0, 64)
		if err != nil {
			f, fErr := strconv.ParseFloat(t, 64)
			if fErr != nil {
				return 0, false
			}
			return int(f), true
		}
		return int(i), true
	default:
		f, ok := toFloat(v)
		if !ok || math.IsNaN(f) {
			return 0, false
		}
		return int(f), true
	}
}

// Uint32 returns the value under key as uint32, e.g. a packed ARGB color.
func (g *Group) Uint32(key string) (uint32, bool) {
	v, ok := g.Value(key)
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case uint32:
		return t, true
	case string:
		u, err := strconv.ParseUint(t, 0, 32)
		if err != nil {
			return 0, false
		}
		return uint32(u), true
	default:
		f, ok := toFloat(v)
		if !ok || f < 0 || f > math.MaxUint32 {
			return 0, false
		}
		return uint32(f), true
	}
}

// Bool returns the value under key as bool.
func (g *Group) Bool(key string) (bool, bool) {
	v, ok := g.Value(key)
	if !ok {
		return false, false
	}
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(t)
		return b, err == nil
	default:
		f, ok := toFloat(v)
		return f != 0, ok
	}
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// toMap flattens the group into nested maps for the file codecs.
func (g *Group) toMap() map[string]any {
	m := make(map[string]any, len(g.values)+len(g.groups))
	for k, v := range g.values {
		m[k] = v
	}
	for k, sub := range g.groups {
		m[k] = sub.toMap()
	}
	return m
}

// fromMap builds a group from decoded nested maps. Map values become groups.
func fromMap(m map[string]any) *Group {
	g := New()
	for k, v := range m {
		switch t := v.(type) {
		case map[string]any:
			g.groups[k] = fromMap(t)
		case map[any]any:
			converted := make(map[string]any, len(t))
			for mk, mv := range t {
				converted[fmt.Sprint(mk)] = mv
			}
			g.groups[k] = fromMap(converted)
		default:
			g.values[k] = v
		}
	}
	return g
}
