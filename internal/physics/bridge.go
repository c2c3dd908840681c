// Package physics wraps the Physix-go rigid-body engine behind the narrow
// interface spec.md §4.8 describes, syncing position/angle back onto
// schema-bearing entities after each step. Adapted from the teacher's
// physics_engine.go, rekeyed from a flat object slice to per-entity
// ownership so an entity without x/y schema fields is physics-only.
package physics

import (
	"math"
	"strings"

	"github.com/rudransh61/Physix-go/pkg/polygon"
	"github.com/rudransh61/Physix-go/pkg/rigidbody"
	"github.com/rudransh61/Physix-go/pkg/vector"

	"github.com/wildspark/arena/internal/entity"
	"github.com/wildspark/arena/internal/schema"
)

// Bounds is the rectangular world boundary bodies bounce off of.
type Bounds struct {
	MinX, MinY, MaxX, MaxY float64
}

// Bridge owns a set of rigid bodies keyed by entity id and the schema
// registry needed to decide which entities get position/angle writeback.
type Bridge struct {
	reg    *schema.Registry
	bounds Bounds
	drag   float64
	bounce float64

	bodies   map[uint64]*rigidbody.RigidBody
	owners   map[uint64]*entity.Entity
	polygons map[*rigidbody.RigidBody][]vector.Vector

	// angles and angularVel track rotation per entity id. Physix-go's
	// RigidBody carries no rotation state, so the bridge owns it
	// independently and integrates it each Step, still satisfying
	// spec.md §4.8's "writes position.x, position.y, and angle back".
	angles     map[uint64]float64
	angularVel map[uint64]float64
}

// NewBridge returns a Bridge with spec-reasonable defaults matching the
// teacher's physics_engine.go (0.95 drag, 0.7 boundary bounce).
func NewBridge(reg *schema.Registry, bounds Bounds) *Bridge {
	return &Bridge{
		reg:        reg,
		bounds:     bounds,
		drag:       0.95,
		bounce:     0.7,
		bodies:     make(map[uint64]*rigidbody.RigidBody),
		owners:     make(map[uint64]*entity.Entity),
		polygons:   make(map[*rigidbody.RigidBody][]vector.Vector),
		angles:     make(map[uint64]float64),
		angularVel: make(map[uint64]float64),
	}
}

// AddCircle creates a circular rigid body for e and registers it under e's
// id. Bodies are keyed by entity id; removing the entity removes the body.
func (b *Bridge) AddCircle(e *entity.Entity, x, y, radius, mass float64, movable bool) {
	rb := &rigidbody.RigidBody{
		Position:  vector.Vector{X: x, Y: y},
		Velocity:  vector.Vector{X: 0, Y: 0},
		Mass:      mass,
		Shape:     "circle",
		Radius:    radius,
		IsMovable: movable,
	}
	b.register(e, rb)
}

// AddRectangle creates a rectangular rigid body for e.
func (b *Bridge) AddRectangle(e *entity.Entity, x, y, width, height, mass float64, movable bool) {
	rb := &rigidbody.RigidBody{
		Position:  vector.Vector{X: x, Y: y},
		Velocity:  vector.Vector{X: 0, Y: 0},
		Mass:      mass,
		Shape:     "rectangle",
		Width:     width,
		Height:    height,
		IsMovable: movable,
	}
	b.register(e, rb)
}

// AddPolygon creates a polygon rigid body from absolute world-space points.
func (b *Bridge) AddPolygon(e *entity.Entity, points []vector.Vector, movable bool) {
	if len(points) == 0 {
		return
	}
	poly := polygon.NewPolygon(points, 0, false)
	rb := &poly.RigidBody
	rb.Shape = "polygon"
	rb.IsMovable = movable
	b.register(e, rb)
	b.polygons[rb] = points
}

func (b *Bridge) register(e *entity.Entity, rb *rigidbody.RigidBody) {
	b.bodies[e.ID] = rb
	b.owners[e.ID] = e
}

// Remove deletes the rigid body owned by entity id, if any.
func (b *Bridge) Remove(id uint64) {
	rb := b.bodies[id]
	delete(b.bodies, id)
	delete(b.owners, id)
	delete(b.polygons, rb)
}

// Body returns the rigid body for an entity id, if tracked.
func (b *Bridge) Body(id uint64) (*rigidbody.RigidBody, bool) {
	rb, ok := b.bodies[id]
	return rb, ok
}

// ApplyForce adds an instantaneous velocity delta to the body owned by id,
// proportional to force/mass (F = ma).
func (b *Bridge) ApplyForce(id uint64, fx, fy float64) {
	rb, ok := b.bodies[id]
	if !ok || rb.Mass == 0 {
		return
	}
	rb.Velocity.X += fx / rb.Mass
	rb.Velocity.Y += fy / rb.Mass
}

// SetVelocity overwrites the body's velocity directly (the common path for
// player-controlled movement, mirroring the teacher's handleMovement).
func (b *Bridge) SetVelocity(id uint64, vx, vy float64) {
	rb, ok := b.bodies[id]
	if !ok {
		return
	}
	rb.Velocity = vector.Vector{X: vx, Y: vy}
}

// SetAngularVelocity sets the per-body rotation rate (radians/second) the
// bridge integrates into its tracked angle each Step.
func (b *Bridge) SetAngularVelocity(id uint64, radiansPerSec float64) {
	if _, ok := b.bodies[id]; !ok {
		return
	}
	b.angularVel[id] = radiansPerSec
}

// Step advances every movable body by delta, resolves collisions, and
// writes x/y/angle back onto each owning entity iff those field names are
// declared on the entity's schema. delta is in seconds; Step integrates
// each body's velocity (units per second) times delta itself, without
// calling a Physix-go stepper.
func (b *Bridge) Step(delta float64) {
	for id, rb := range b.bodies {
		if !rb.IsMovable {
			continue
		}
		b.integrate(rb, delta)
		b.angles[id] += b.angularVel[id] * delta
		b.writeback(id, rb)
	}
	b.handleCollisions()
}

func (b *Bridge) integrate(rb *rigidbody.RigidBody, delta float64) {
	old := rb.Position
	rb.Position.X += rb.Velocity.X * delta
	rb.Position.Y += rb.Velocity.Y * delta

	b.handleBoundary(rb)
	b.applyDrag(rb)

	if rb.Shape == "polygon" && (rb.Position.X != old.X || rb.Position.Y != old.Y) {
		b.updatePolygonVertices(rb)
	}
}

func (b *Bridge) handleBoundary(rb *rigidbody.RigidBody) {
	if rb.Position.X-rb.Width/2 < b.bounds.MinX && rb.Width > 0 {
		rb.Position.X = b.bounds.MinX + rb.Width/2
		rb.Velocity.X = -rb.Velocity.X * b.bounce
	}
	if rb.Position.X+rb.Width/2 > b.bounds.MaxX && rb.Width > 0 {
		rb.Position.X = b.bounds.MaxX - rb.Width/2
		rb.Velocity.X = -rb.Velocity.X * b.bounce
	}
	if rb.Shape == "circle" {
		if rb.Position.X-rb.Radius < b.bounds.MinX {
			rb.Position.X = b.bounds.MinX + rb.Radius
			rb.Velocity.X = -rb.Velocity.X * b.bounce
		}
		if rb.Position.X+rb.Radius > b.bounds.MaxX {
			rb.Position.X = b.bounds.MaxX - rb.Radius
			rb.Velocity.X = -rb.Velocity.X * b.bounce
		}
		if rb.Position.Y-rb.Radius < b.bounds.MinY {
			rb.Position.Y = b.bounds.MinY + rb.Radius
			rb.Velocity.Y = -rb.Velocity.Y * b.bounce
		}
		if rb.Position.Y+rb.Radius > b.bounds.MaxY {
			rb.Position.Y = b.bounds.MaxY - rb.Radius
			rb.Velocity.Y = -rb.Velocity.Y * b.bounce
		}
	}
	if rb.Position.Y-rb.Height/2 < b.bounds.MinY && rb.Height > 0 {
		rb.Position.Y = b.bounds.MinY + rb.Height/2
		rb.Velocity.Y = -rb.Velocity.Y * b.bounce
	}
	if rb.Position.Y+rb.Height/2 > b.bounds.MaxY && rb.Height > 0 {
		rb.Position.Y = b.bounds.MaxY - rb.Height/2
		rb.Velocity.Y = -rb.Velocity.Y * b.bounce
	}
}

func (b *Bridge) applyDrag(rb *rigidbody.RigidBody) {
	rb.Velocity.X *= b.drag
	rb.Velocity.Y *= b.drag
	if rb.Velocity.Magnitude() < 0.5 {
		rb.Velocity.X, rb.Velocity.Y = 0, 0
	}
}

// writeback syncs position/angle onto the owning entity's schema fields,
// only when those field names are declared (spec.md §4.8).
func (b *Bridge) writeback(id uint64, rb *rigidbody.RigidBody) {
	e, ok := b.owners[id]
	if !ok {
		return
	}
	if b.reg.HasField(e.Class, "x") {
		e.Set("x", rb.Position.X)
	}
	if b.reg.HasField(e.Class, "y") {
		e.Set("y", rb.Position.Y)
	}
	if b.reg.HasField(e.Class, "angle") {
		e.Set("angle", b.angles[id])
	}
}

// SyncFromEntities is the inverse of Step's writeback: it copies the
// owning entity's x/y/angle schema fields back onto the rigid body, for
// manual position adjustments (e.g. a teleport hook).
func (b *Bridge) SyncFromEntities() {
	for id, rb := range b.bodies {
		e, ok := b.owners[id]
		if !ok {
			continue
		}
		if x, ok := e.Get("x"); ok {
			if xf, ok := x.(float64); ok {
				rb.Position.X = xf
			}
		}
		if y, ok := e.Get("y"); ok {
			if yf, ok := y.(float64); ok {
				rb.Position.Y = yf
			}
		}
		if a, ok := e.Get("angle"); ok {
			if af, ok := a.(float64); ok {
				b.angles[id] = af
			}
		}
	}
}

// updatePolygonVertices translates stored polygon vertices by the same
// displacement the rigid body's centroid moved, keeping a custom collider
// attached to its owning body.
func (b *Bridge) updatePolygonVertices(rb *rigidbody.RigidBody) {
	verts, ok := b.polygons[rb]
	if !ok || len(verts) < 3 {
		return
	}
	var cx, cy float64
	for _, v := range verts {
		cx += v.X
		cy += v.Y
	}
	cx /= float64(len(verts))
	cy /= float64(len(verts))

	dx := rb.Position.X - cx
	dy := rb.Position.Y - cy
	for i := range verts {
		verts[i].X += dx
		verts[i].Y += dy
	}
}

func (b *Bridge) handleCollisions() {
	ids := make([]uint64, 0, len(b.bodies))
	for id := range b.bodies {
		ids = append(ids, id)
	}
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			a := b.bodies[ids[i]]
			c := b.bodies[ids[j]]
			if !a.IsMovable && !c.IsMovable {
				continue
			}
			if !b.aabbOverlap(a, c) {
				continue
			}
			info := b.detectCollision(a, c)
			if info.collided {
				b.resolve(a, c, info)
			}
		}
	}
}

type collisionInfo struct {
	collided bool
	mtv      vector.Vector
	depth    float64
}

func (b *Bridge) aabbOverlap(a, c *rigidbody.RigidBody) bool {
	sa, sc := strings.ToLower(a.Shape), strings.ToLower(c.Shape)
	if sa == "circle" && sc == "circle" {
		dx := c.Position.X - a.Position.X
		dy := c.Position.Y - a.Position.Y
		sum := a.Radius + c.Radius
		return dx*dx+dy*dy <= sum*sum
	}
	halfAX, halfAY := a.Width/2, a.Height/2
	halfCX, halfCY := c.Width/2, c.Height/2
	overlapX := (halfAX + halfCX) - math.Abs(a.Position.X-c.Position.X)
	overlapY := (halfAY + halfCY) - math.Abs(a.Position.Y-c.Position.Y)
	return overlapX >= 0 && overlapY >= 0
}

func (b *Bridge) detectCollision(a, c *rigidbody.RigidBody) collisionInfo {
	if strings.ToLower(a.Shape) == "circle" && strings.ToLower(c.Shape) == "circle" {
		dx := c.Position.X - a.Position.X
		dy := c.Position.Y - a.Position.Y
		distSq := dx*dx + dy*dy
		sum := a.Radius + c.Radius
		if distSq > sum*sum {
			return collisionInfo{}
		}
		dist := math.Sqrt(distSq)
		if dist < 0.0001 {
			return collisionInfo{collided: true, mtv: vector.Vector{X: a.Radius, Y: 0}, depth: sum}
		}
		overlap := sum - dist
		dir := vector.Vector{X: dx / dist, Y: dy / dist}
		return collisionInfo{collided: true, mtv: dir.Scale(overlap), depth: overlap}
	}
	// Every other pairing, polygons included: resolve along the smaller
	// overlap axis of the bodies' Width/Height boxes. There is no SAT
	// narrow phase.
	halfAX, halfAY := a.Width/2, a.Height/2
	halfCX, halfCY := c.Width/2, c.Height/2
	overlapX := (halfAX + halfCX) - math.Abs(a.Position.X-c.Position.X)
	overlapY := (halfAY + halfCY) - math.Abs(a.Position.Y-c.Position.Y)
	if overlapX < 0 || overlapY < 0 {
		return collisionInfo{}
	}
	if overlapX < overlapY {
		sign := 1.0
		if a.Position.X > c.Position.X {
			sign = -1.0
		}
		return collisionInfo{collided: true, mtv: vector.Vector{X: sign * overlapX}, depth: overlapX}
	}
	sign := 1.0
	if a.Position.Y > c.Position.Y {
		sign = -1.0
	}
	return collisionInfo{collided: true, mtv: vector.Vector{Y: sign * overlapY}, depth: overlapY}
}

func (b *Bridge) resolve(a, c *rigidbody.RigidBody, info collisionInfo) {
	moveA, moveC := a.IsMovable, c.IsMovable
	switch {
	case moveA && moveC:
		a.Position = a.Position.Sub(info.mtv.Scale(0.5))
		c.Position = c.Position.Add(info.mtv.Scale(0.5))
		b.applyImpulse(a, c, info)
	case moveA:
		a.Position = a.Position.Sub(info.mtv)
		a.Velocity = vector.Vector{X: 0, Y: 0}
	case moveC:
		c.Position = c.Position.Add(info.mtv)
		c.Velocity = vector.Vector{X: 0, Y: 0}
	}
}

func (b *Bridge) applyImpulse(a, c *rigidbody.RigidBody, info collisionInfo) {
	restitution := 0.7
	normal := info.mtv.Normalize()
	relVel := c.Velocity.Sub(a.Velocity)
	velAlongNormal := relVel.InnerProduct(normal)
	if velAlongNormal > 0 {
		return
	}
	j := -(1 + restitution) * velAlongNormal
	j /= 1/a.Mass + 1/c.Mass
	impulse := normal.Scale(j)
	a.Velocity = a.Velocity.Sub(impulse.Scale(1 / a.Mass))
	c.Velocity = c.Velocity.Add(impulse.Scale(1 / c.Mass))
}
