package telemetry

import (
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"
)

// WithLogger sets the logger for the registry
func WithLogger(logger *slog.Logger) func(r *Registry) {
	return func(r *Registry) {
		r.logger = logger.With(slog.String("component", "telemetry"))
	}
}

type subscriber struct {
	id uint64
	fn func(Update)
}

// Registry is a lookup-by-name store of telemetry objects with an update
// subscription mechanism. Subscribers are invoked synchronously on the
// publishing goroutine, in subscription order.
type Registry struct {
	mu      sync.RWMutex
	objects map[string]*Object
	subs    map[string][]subscriber
	nextID  uint64

	logger *slog.Logger
}

// NewRegistry creates an empty registry with a discard logger
func NewRegistry(options ...func(r *Registry)) *Registry {
	r := Registry{
		objects: make(map[string]*Object),
		subs:    make(map[string][]subscriber),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&r)
	}

	return &r
}

// Register adds a new object with the given fields to the registry.
func (r *Registry) Register(name string, fields ...Field) (*Object, error) {
	if name == "" {
		return nil, fmt.Errorf("registering object: empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.objects[name]; ok {
		return nil, fmt.Errorf("object %s already exists", name)
	}

	obj := newObject(name, fields)
	r.objects[name] = obj

	r.logger.Debug("object registered", slog.String("object", name), slog.Int("fields", len(fields)))
	return obj, nil
}

// Object looks up an object by name
func (r *Registry) Object(name string) (*Object, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	obj, ok := r.objects[name]
	return obj, ok
}

// Objects returns the sorted names of all registered objects
func (r *Registry) Objects() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Sorted(maps.Keys(r.objects))
}

// Subscribe registers fn to be called on every update of the named object.
// The returned function cancels the subscription and is safe to call twice.
func (r *Registry) Subscribe(name string, fn func(Update)) (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.objects[name]; !ok {
		return nil, fmt.Errorf("subscribing to %s: %w", name, ErrObjectNotFound)
	}

	r.nextID++
	id := r.nextID
	r.subs[name] = append(r.subs[name], subscriber{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()

			r.subs[name] = slices.DeleteFunc(r.subs[name], func(s subscriber) bool {
				return s.id == id
			})
		})
	}, nil
}

// Publish stores new field values for the named object and notifies its
// subscribers. Fields absent from values keep their previous values.
func (r *Registry) Publish(name string, ts time.Time, values map[string][]float64) error {
	r.mu.RLock()
	obj, ok := r.objects[name]
	subs := slices.Clone(r.subs[name])
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("publishing %s: %w", name, ErrObjectNotFound)
	}
	if err := obj.store(ts, values); err != nil {
		return fmt.Errorf("publishing %s: %w", name, err)
	}

	update := Update{
		Object:    name,
		Timestamp: ts,
		Values:    values,
	}
	for _, s := range subs {
		s.fn(update)
	}
	return nil
}
