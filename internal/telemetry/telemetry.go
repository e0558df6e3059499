package telemetry

import (
	"errors"
	"slices"
	"sync"
	"time"
)

var (
	// ErrObjectNotFound is returned when no telemetry object is registered under a name
	ErrObjectNotFound = errors.New("telemetry object not found")

	// ErrFieldNotFound is returned when an object has no field with the given name
	ErrFieldNotFound = errors.New("telemetry field not found")
)

// Field describes one field of a telemetry object
type Field struct {
	Name     string   // Field name, e.g. "Gyro"
	Units    string   // Measurement units, e.g. "deg/s"
	Elements []string // Element names of a vector field, empty for scalar fields
}

// Size returns the number of values the field carries.
func (f Field) Size() int {
	return max(1, len(f.Elements))
}

// ElementIndex returns the position of the named element, -1 if absent.
func (f Field) ElementIndex(name string) int {
	return slices.Index(f.Elements, name)
}

// Update is delivered to subscribers every time an object is published
type Update struct {
	Object    string               // Object name
	Timestamp time.Time            // Timestamp of the telemetry measurement
	Values    map[string][]float64 // Published values by field name
}

// Object is a named telemetry object holding the latest values of its fields
type Object struct {
	name   string
	fields []Field

	mu      sync.RWMutex
	values  map[string][]float64
	updated time.Time
}

func newObject(name string, fields []Field) *Object {
	o := &Object{
		name:   name,
		fields: slices.Clone(fields),
		values: make(map[string][]float64, len(fields)),
	}
	for _, f := range fields {
		o.values[f.Name] = make([]float64, f.Size())
	}
	return o
}

// Name returns the object name
func (o *Object) Name() string {
	return o.name
}

// Fields returns the field descriptors of the object
func (o *Object) Fields() []Field {
	return slices.Clone(o.fields)
}

// Field returns the descriptor of the named field.
func (o *Object) Field(name string) (Field, bool) {
	for _, f := range o.fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Values returns a copy of the latest values of the named field.
func (o *Object) Values(field string) ([]float64, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	v, ok := o.values[field]
	return slices.Clone(v), ok
}

// Updated returns the timestamp of the latest update, zero if never updated.
func (o *Object) Updated() time.Time {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.updated
}

func (o *Object) store(ts time.Time, values map[string][]float64) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	for name := range values {
		if _, ok := o.values[name]; !ok {
			return ErrFieldNotFound
		}
	}
	for name, v := range values {
		dst := o.values[name]
		n := copy(dst, v)
		clear(dst[n:])
	}
	o.updated = ts
	return nil
}
