package entity

import (
	"math"
	"sync"

	"github.com/wildspark/arena/internal/schema"
)

// Collection holds a room's entities and supports typed lookup and
// nearest-neighbor queries.
type Collection struct {
	mu  sync.RWMutex
	reg *schema.Registry
	byID map[uint64]*Entity
}

// NewCollection returns an empty collection backed by reg for class
// hierarchy lookups (ofType's subclass inclusion).
func NewCollection(reg *schema.Registry) *Collection {
	return &Collection{
		reg:  reg,
		byID: make(map[uint64]*Entity),
	}
}

// Add inserts e into the collection.
func (c *Collection) Add(e *Entity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID[e.ID] = e
}

// Remove deletes the entity with the given id, if present. Idempotent.
func (c *Collection) Remove(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byID, id)
}

// Get returns the entity with the given id, if present.
func (c *Collection) Get(id uint64) (*Entity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.byID[id]
	return e, ok
}

// All returns every entity currently in the collection, in no particular
// order.
func (c *Collection) All() []*Entity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Entity, 0, len(c.byID))
	for _, e := range c.byID {
		out = append(out, e)
	}
	return out
}

// OfType returns every entity whose class is exactly class or a subclass of
// it (spec.md §9 open question: subclasses are included).
func (c *Collection) OfType(class string) []*Entity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Entity, 0)
	for _, e := range c.byID {
		if c.reg.IsSubclass(e.Class, class) {
			out = append(out, e)
		}
	}
	return out
}

// NearestOptions configures Nearest.
type NearestOptions struct {
	// Exclude, if non-nil, is called per candidate; a true return skips it.
	Exclude func(e *Entity) bool
}

// Nearest scans OfType(class) and returns the closest entity to origin by
// Euclidean distance on {x, y}, honoring opts.Exclude. Candidates missing
// x or y are skipped, not treated as zero. Ties are broken by lower id.
func (c *Collection) Nearest(originX, originY float64, class string, opts NearestOptions) (*Entity, bool) {
	candidates := c.OfType(class)

	var best *Entity
	bestDist := math.Inf(1)

	for _, cand := range candidates {
		if opts.Exclude != nil && opts.Exclude(cand) {
			continue
		}
		x, y, ok := cand.XY()
		if !ok {
			continue
		}
		dx := x - originX
		dy := y - originY
		dist := dx*dx + dy*dy

		switch {
		case best == nil:
			best, bestDist = cand, dist
		case dist < bestDist:
			best, bestDist = cand, dist
		case dist == bestDist && cand.ID < best.ID:
			best = cand
		}
	}
	return best, best != nil
}
