// Package clientsim implements the client-side half of the latency-hiding
// pipeline: a snapshot-buffering Interpolator that renders a smoothed past,
// and a Predictor that replays unconfirmed input atop the latest
// authoritative state and smooths away small corrections. Both types are
// pure Go with no dependency on nakama-common or Physix-go — they run in a
// browser client (via wasm), a bot client, or an integration test, never on
// the authoritative server.
//
// Cross-checked (not copied) against annel0-mmo-game's prediction service
// for buffer-shape conventions; the interpolation math itself has no
// example-repo precedent and is hand-derived from the governing formulas.
package clientsim

import "math"

// Snapshot is one timestamped world state as the client received it off the
// wire. State is a shallow field->value map mirroring a schema.Registry's
// declared fields for whatever entity this buffer tracks.
type Snapshot struct {
	Timestamp int64 // ms since epoch, or any monotonic client clock
	State     map[string]float64
}

// Mode selects the interpolation strategy Interpolator.GetInterpolated
// uses for every field not listed in AngleFields or PhysicsFields.
type Mode int

const (
	ModeLinear Mode = iota
	ModeHermite
)

// PhysicsTriple names the position/velocity/acceleration field triple for
// one physics-interpolated quantity, e.g. {"x", "vx", "ax"}.
type PhysicsTriple struct {
	Position     string
	Velocity     string
	Acceleration string
}

// InterpolatorConfig configures an Interpolator's behavior. Zero values
// default to MaxSnapshots=60 and Mode=ModeLinear; BufferMs is used as
// given, so a zero BufferMs renders with no delay.
type InterpolatorConfig struct {
	MaxSnapshots int
	BufferMs     int64
	Mode         Mode
	AngleFields  []string
	Physics      []PhysicsTriple
}

// Interpolator buffers up to MaxSnapshots {timestamp, state} pairs in a
// ring buffer and renders a delayed, smoothed present via GetInterpolated.
type Interpolator struct {
	cfg         InterpolatorConfig
	angleSet    map[string]bool
	physByPos   map[string]PhysicsTriple
	buf         []Snapshot
}

// NewInterpolator returns an Interpolator configured per cfg.
func NewInterpolator(cfg InterpolatorConfig) *Interpolator {
	if cfg.MaxSnapshots <= 0 {
		cfg.MaxSnapshots = 60
	}
	angleSet := make(map[string]bool, len(cfg.AngleFields))
	for _, f := range cfg.AngleFields {
		angleSet[f] = true
	}
	physByPos := make(map[string]PhysicsTriple, len(cfg.Physics))
	for _, p := range cfg.Physics {
		physByPos[p.Position] = p
	}
	return &Interpolator{cfg: cfg, angleSet: angleSet, physByPos: physByPos}
}

// AddSnapshot appends snap to the ring buffer, evicting the oldest entry
// once MaxSnapshots is exceeded. Snapshots are assumed to arrive in
// non-decreasing Timestamp order, matching the server's broadcast order.
func (ip *Interpolator) AddSnapshot(snap Snapshot) {
	ip.buf = append(ip.buf, snap)
	if len(ip.buf) > ip.cfg.MaxSnapshots {
		ip.buf = ip.buf[len(ip.buf)-ip.cfg.MaxSnapshots:]
	}
}

// GetInterpolated returns the rendered state at renderTime = now - BufferMs.
// An empty buffer returns an empty map. renderTime before the first
// snapshot clamps to it. In non-physics modes, renderTime after the last
// snapshot clamps to it; in physics mode, fields with a configured
// PhysicsTriple instead extrapolate kinematically past the last snapshot.
func (ip *Interpolator) GetInterpolated(now int64) map[string]float64 {
	if len(ip.buf) == 0 {
		return map[string]float64{}
	}
	renderTime := now - ip.cfg.BufferMs

	if renderTime <= ip.buf[0].Timestamp {
		return cloneState(ip.buf[0].State)
	}

	last := ip.buf[len(ip.buf)-1]
	if renderTime >= last.Timestamp {
		if len(ip.physByPos) == 0 {
			return cloneState(last.State)
		}
		return ip.extrapolatePastEnd(renderTime)
	}

	from, to := ip.bracket(renderTime)
	return ip.blend(from, to, renderTime)
}

func (ip *Interpolator) bracket(renderTime int64) (from, to int) {
	for i := 1; i < len(ip.buf); i++ {
		if ip.buf[i].Timestamp >= renderTime {
			return i - 1, i
		}
	}
	return len(ip.buf) - 2, len(ip.buf) - 1
}

func (ip *Interpolator) blend(fromIdx, toIdx int, renderTime int64) map[string]float64 {
	from, to := ip.buf[fromIdx], ip.buf[toIdx]
	span := to.Timestamp - from.Timestamp
	t := 0.0
	if span > 0 {
		t = float64(renderTime-from.Timestamp) / float64(span)
	}

	out := make(map[string]float64, len(to.State))
	for field, toVal := range to.State {
		fromVal, ok := from.State[field]
		if !ok {
			out[field] = toVal
			continue
		}

		_, isPhysics := ip.physByPos[field]

		switch {
		case ip.angleSet[field]:
			out[field] = lerpAngle(fromVal, toVal, t)
		case isPhysics:
			out[field] = ip.blendPhysics(field, fromIdx, toIdx, t)
		case ip.cfg.Mode == ModeHermite:
			out[field] = ip.hermite(field, fromIdx, toIdx, t)
		default:
			out[field] = lerp(fromVal, toVal, t)
		}
	}
	return out
}

func (ip *Interpolator) blendPhysics(field string, fromIdx, toIdx int, t float64) float64 {
	triple := ip.physByPos[field]
	from, to := ip.buf[fromIdx], ip.buf[toIdx]

	linear := lerp(from.State[field], to.State[field], t)

	dtMs := float64(to.Timestamp - from.Timestamp)
	dt := dtMs / 1000.0
	v := from.State[triple.Velocity]
	a := from.State[triple.Acceleration]
	kinematic := from.State[field] + v*dt + 0.5*a*dt*dt

	return linear*(1-t) + kinematic*t
}

// extrapolatePastEnd kinematically projects every configured physics field
// beyond the last snapshot; non-physics fields clamp to the last snapshot,
// matching the spec's "only physics mode extrapolates" rule.
func (ip *Interpolator) extrapolatePastEnd(renderTime int64) map[string]float64 {
	last := ip.buf[len(ip.buf)-1]
	out := cloneState(last.State)

	dt := float64(renderTime-last.Timestamp) / 1000.0
	for pos, triple := range ip.physByPos {
		p, ok := last.State[pos]
		if !ok {
			continue
		}
		v := last.State[triple.Velocity]
		a := last.State[triple.Acceleration]
		out[pos] = p + v*dt + 0.5*a*dt*dt
	}
	return out
}

// hermite evaluates a cubic Hermite spline for field between fromIdx and
// toIdx at parameter t, estimating tangents by central difference using the
// surrounding two snapshots (forward/backward difference at the buffer's
// edges).
func (ip *Interpolator) hermite(field string, fromIdx, toIdx int, t float64) float64 {
	p0 := ip.buf[fromIdx].State[field]
	p1 := ip.buf[toIdx].State[field]

	m0 := tangent(ip.buf, fromIdx, field)
	m1 := tangent(ip.buf, toIdx, field)

	t2 := t * t
	t3 := t2 * t
	h00 := 2*t3 - 3*t2 + 1
	h10 := t3 - 2*t2 + t
	h01 := -2*t3 + 3*t2
	h11 := t3 - t2

	return h00*p0 + h10*m0 + h01*p1 + h11*m1
}

func tangent(buf []Snapshot, idx int, field string) float64 {
	prevIdx := idx - 1
	nextIdx := idx + 1
	if prevIdx < 0 {
		if nextIdx < len(buf) {
			return buf[nextIdx].State[field] - buf[idx].State[field]
		}
		return 0
	}
	if nextIdx >= len(buf) {
		return buf[idx].State[field] - buf[prevIdx].State[field]
	}
	return (buf[nextIdx].State[field] - buf[prevIdx].State[field]) / 2
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// lerpAngle interpolates angles via the shortest arc: the signed
// difference is normalized into (-pi, pi] before blending, so wrapping
// across +/-pi never takes the long way around.
func lerpAngle(a, b, t float64) float64 {
	diff := normalizeAngle(b - a)
	return a + diff*t
}

func normalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

func cloneState(s map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
