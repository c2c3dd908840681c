// Package entity implements in-memory world objects and the collection
// that indexes them by id, class, and spatial position.
package entity

import (
	"sync"
	"sync/atomic"

	"github.com/wildspark/arena/internal/schema"
)

var nextID uint64

// NextID hands out a monotonic, process-unique entity id. Ephemeral across
// process restarts by design (spec.md §9, open question).
func NextID() uint64 {
	return atomic.AddUint64(&nextID, 1)
}

// Entity is a game object: a stable id, a class name resolved against a
// schema.Registry, an isBot marker, and its schema field values plus any
// non-schema server-only attributes (e.g. the teacher's bodyParts lists).
type Entity struct {
	mu sync.RWMutex

	ID    uint64
	Class string
	IsBot bool

	fields map[string]any
	Extra  map[string]any
}

// New creates an entity of the given class with a freshly allocated id.
func New(class string) *Entity {
	return &Entity{
		ID:     NextID(),
		Class:  class,
		fields: make(map[string]any),
		Extra:  make(map[string]any),
	}
}

// Get returns the value of a schema field and whether it is set.
func (e *Entity) Get(name string) (any, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.fields[name]
	return v, ok
}

// Set overwrites a single schema field's value.
func (e *Entity) Set(name string, value any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fields[name] = value
}

// Snapshot produces {id} ∪ {field -> value} over the fields declared for
// e.Class in reg. Fields never set on the entity are omitted.
func (e *Entity) Snapshot(reg *schema.Registry) map[string]any {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[string]any, len(e.fields)+1)
	out["id"] = e.ID
	for name := range reg.FieldsOf(e.Class) {
		if v, ok := e.fields[name]; ok {
			out[name] = v
		}
	}
	return out
}

// ApplySnapshot overwrites exactly the fields present in data, ignoring
// unknown keys (keys not declared on e.Class). The "id" key is never
// applied — entity identity is immutable after creation.
func (e *Entity) ApplySnapshot(reg *schema.Registry, data map[string]any) {
	e.mu.Lock()
	defer e.mu.Unlock()

	declared := reg.FieldsOf(e.Class)
	for k, v := range data {
		if k == "id" {
			continue
		}
		if _, ok := declared[k]; !ok {
			continue
		}
		e.fields[k] = v
	}
}

// XY returns the entity's x/y fields as float64 and whether both are
// present. Used by Collection.Nearest.
func (e *Entity) XY() (x, y float64, ok bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	xv, xok := e.fields["x"]
	yv, yok := e.fields["y"]
	if !xok || !yok {
		return 0, 0, false
	}
	xf, xok2 := toFloat(xv)
	yf, yok2 := toFloat(yv)
	if !xok2 || !yok2 {
		return 0, 0, false
	}
	return xf, yf, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
