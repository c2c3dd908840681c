// Package schema declares the typed, network-syncable fields on entity
// classes. It is the single source of truth for what crosses the wire in a
// snapshot: a receiver that knows the entity class knows the field set.
package schema

import "sync"

// Kind enumerates the primitive wire types a schema field may take.
type Kind int

const (
	KindFloat32 Kind = iota
	KindFloat64
	KindInt8
	KindInt16
	KindInt32
	KindUint8
	KindUint16
	KindUint32
	KindString
	KindBoolean
)

// FieldMap is the full set of declared fields for a class, name -> kind.
type FieldMap map[string]Kind

// Registry holds per-class field declarations with shallow-copy inheritance:
// a subclass starts from its parent's field map and may add or override
// fields without mutating the parent's map.
type Registry struct {
	mu     sync.RWMutex
	fields map[string]FieldMap
	parent map[string]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		fields: make(map[string]FieldMap),
		parent: make(map[string]string),
	}
}

// DeclareClass registers class as a subclass of parent, copying parent's
// field map. Call with parent == "" for a root class. Safe to call more
// than once for the same class; later calls reset its own fields (not the
// parent's) to a fresh copy of the parent map.
func (r *Registry) DeclareClass(class, parent string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fm := make(FieldMap)
	if parent != "" {
		if pf, ok := r.fields[parent]; ok {
			for name, kind := range pf {
				fm[name] = kind
			}
		}
		r.parent[class] = parent
	}
	r.fields[class] = fm
}

// Declare attaches a typed field to class. If class has not been declared
// via DeclareClass, it is implicitly created as a root class.
func (r *Registry) Declare(class, name string, kind Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fm, ok := r.fields[class]
	if !ok {
		fm = make(FieldMap)
		r.fields[class] = fm
	}
	fm[name] = kind
}

// FieldsOf returns the full field map of class, recoverable without
// instantiating the class. The returned map is a copy; mutating it does not
// affect the registry.
func (r *Registry) FieldsOf(class string) FieldMap {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(FieldMap)
	for name, kind := range r.fields[class] {
		out[name] = kind
	}
	return out
}

// IsSubclass reports whether class descends from ancestor (or equals it),
// walking the parent chain recorded by DeclareClass.
func (r *Registry) IsSubclass(class, ancestor string) bool {
	if class == ancestor {
		return true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	cur := class
	for {
		p, ok := r.parent[cur]
		if !ok {
			return false
		}
		if p == ancestor {
			return true
		}
		cur = p
	}
}

// HasField reports whether class (or an ancestor) declares name.
func (r *Registry) HasField(class, name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fm, ok := r.fields[class]
	if !ok {
		return false
	}
	_, ok = fm[name]
	return ok
}
