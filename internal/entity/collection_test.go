package entity

import (
	"testing"

	"github.com/wildspark/arena/internal/schema"
)

func setupReg() *schema.Registry {
	r := schema.NewRegistry()
	r.DeclareClass("Entity", "")
	r.Declare("Entity", "x", schema.KindFloat64)
	r.Declare("Entity", "y", schema.KindFloat64)
	r.DeclareClass("Gem", "Entity")
	r.Declare("Gem", "value", schema.KindInt32)
	r.DeclareClass("Player", "Entity")
	r.Declare("Player", "score", schema.KindInt32)
	return r
}

func TestSnapshotRoundTrip(t *testing.T) {
	reg := setupReg()
	e := New("Player")
	e.Set("x", 1.0)
	e.Set("y", 2.0)
	e.Set("score", int32(5))
	e.Extra["bodyParts"] = []string{"ignored"}

	snap := e.Snapshot(reg)
	if _, ok := snap["bodyParts"]; ok {
		t.Fatal("non-schema attribute leaked into snapshot")
	}

	fresh := New("Player")
	fresh.ApplySnapshot(reg, snap)

	origSnap := e.Snapshot(reg)
	freshSnap := fresh.Snapshot(reg)
	delete(origSnap, "id")
	delete(freshSnap, "id")
	if len(origSnap) != len(freshSnap) {
		t.Fatalf("snapshot mismatch: %v vs %v", origSnap, freshSnap)
	}
	for k, v := range origSnap {
		if freshSnap[k] != v {
			t.Fatalf("field %s mismatch: %v vs %v", k, v, freshSnap[k])
		}
	}
}

func TestApplySnapshotIgnoresUnknownKeys(t *testing.T) {
	reg := setupReg()
	e := New("Player")
	e.ApplySnapshot(reg, map[string]any{"x": 1.0, "mystery": "value"})
	if _, ok := e.Get("mystery"); ok {
		t.Fatal("unknown key should not have been applied")
	}
	if v, _ := e.Get("x"); v != 1.0 {
		t.Fatal("known key should have been applied")
	}
}

func TestOfTypeIncludesSubclasses(t *testing.T) {
	reg := setupReg()
	c := NewCollection(reg)
	p := New("Player")
	g := New("Gem")
	c.Add(p)
	c.Add(g)

	entities := c.OfType("Entity")
	if len(entities) != 2 {
		t.Fatalf("expected both entities via subclass match, got %d", len(entities))
	}
	gems := c.OfType("Gem")
	if len(gems) != 1 || gems[0].ID != g.ID {
		t.Fatalf("expected only the gem, got %v", gems)
	}
}

func TestNearestSkipsMissingCoordinatesAndBreaksTiesByID(t *testing.T) {
	reg := setupReg()
	c := NewCollection(reg)

	far := New("Gem")
	far.Set("x", 10.0)
	far.Set("y", 0.0)
	c.Add(far)

	noCoords := New("Gem")
	c.Add(noCoords)

	tie1 := New("Gem")
	tie1.Set("x", 1.0)
	tie1.Set("y", 0.0)
	c.Add(tie1)

	tie2 := New("Gem")
	tie2.Set("x", -1.0)
	tie2.Set("y", 0.0)
	c.Add(tie2)

	best, ok := c.Nearest(0, 0, "Gem", NearestOptions{})
	if !ok {
		t.Fatal("expected a nearest entity")
	}
	lowerID := tie1.ID
	if tie2.ID < lowerID {
		lowerID = tie2.ID
	}
	if best.ID != lowerID {
		t.Fatalf("expected tie broken by lower id %d, got %d", lowerID, best.ID)
	}
}

func TestNearestExcludePredicate(t *testing.T) {
	reg := setupReg()
	c := NewCollection(reg)

	a := New("Gem")
	a.Set("x", 1.0)
	a.Set("y", 0.0)
	c.Add(a)

	b := New("Gem")
	b.Set("x", 5.0)
	b.Set("y", 0.0)
	c.Add(b)

	best, ok := c.Nearest(0, 0, "Gem", NearestOptions{Exclude: func(e *Entity) bool { return e.ID == a.ID }})
	if !ok || best.ID != b.ID {
		t.Fatalf("expected excluded nearest to fall back to b, got %v", best)
	}
}
