package physics

import (
	"testing"

	"github.com/wildspark/arena/internal/entity"
	"github.com/wildspark/arena/internal/schema"
)

func setup() (*schema.Registry, *Bridge) {
	reg := schema.NewRegistry()
	reg.DeclareClass("Ball", "")
	reg.Declare("Ball", "x", schema.KindFloat64)
	reg.Declare("Ball", "y", schema.KindFloat64)
	b := NewBridge(reg, Bounds{MinX: 0, MinY: 0, MaxX: 1600, MaxY: 1200})
	return reg, b
}

func TestWallBounce(t *testing.T) {
	_, bridge := setup()
	e := entity.New("Ball")
	bridge.AddCircle(e, 5, 600, 20, 10, true)
	bridge.SetVelocity(e.ID, -10, 0)

	bridge.Step(1.0)

	rb, _ := bridge.Body(e.ID)
	if rb.Position.X < 20 {
		t.Fatalf("expected x >= 20 after bounce, got %f", rb.Position.X)
	}
	if rb.Velocity.X <= 0 {
		t.Fatalf("expected vx > 0 after bounce, got %f", rb.Velocity.X)
	}
}

func TestWritebackOnlyWhenSchemaDeclaresField(t *testing.T) {
	reg := schema.NewRegistry()
	reg.DeclareClass("PhysicsOnly", "")
	bridge := NewBridge(reg, Bounds{MinX: 0, MinY: 0, MaxX: 1000, MaxY: 1000})

	e := entity.New("PhysicsOnly")
	bridge.AddRectangle(e, 100, 100, 10, 10, 1, true)
	bridge.SetVelocity(e.ID, 5, 5)
	bridge.Step(0.1)

	if _, ok := e.Get("x"); ok {
		t.Fatal("expected no x writeback for entity without x in schema")
	}
}

func TestWritebackWhenSchemaDeclaresField(t *testing.T) {
	_, bridge := setup()
	e := entity.New("Ball")
	bridge.AddCircle(e, 100, 100, 10, 1, true)
	bridge.SetVelocity(e.ID, 5, 0)
	bridge.Step(0.1)

	x, ok := e.Get("x")
	if !ok {
		t.Fatal("expected x writeback for entity with x in schema")
	}
	if x.(float64) <= 100 {
		t.Fatalf("expected x to have advanced, got %v", x)
	}
}

func TestRemoveDropsBody(t *testing.T) {
	_, bridge := setup()
	e := entity.New("Ball")
	bridge.AddCircle(e, 0, 0, 10, 1, true)
	bridge.Remove(e.ID)
	if _, ok := bridge.Body(e.ID); ok {
		t.Fatal("expected body removed")
	}
}
