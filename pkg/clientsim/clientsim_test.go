package clientsim

import (
	"math"
	"testing"
)

func TestGetInterpolatedEmptyBufferReturnsEmptyMap(t *testing.T) {
	ip := NewInterpolator(InterpolatorConfig{})
	got := ip.GetInterpolated(1000)
	if len(got) != 0 {
		t.Fatalf("expected empty map, got %v", got)
	}
}

func TestGetInterpolatedClampsBeforeFirstSnapshot(t *testing.T) {
	ip := NewInterpolator(InterpolatorConfig{BufferMs: 0})
	ip.AddSnapshot(Snapshot{Timestamp: 1000, State: map[string]float64{"x": 5}})
	ip.AddSnapshot(Snapshot{Timestamp: 2000, State: map[string]float64{"x": 15}})

	got := ip.GetInterpolated(500)
	if got["x"] != 5 {
		t.Fatalf("expected clamp to first snapshot's x=5, got %v", got["x"])
	}
}

func TestGetInterpolatedClampsAfterLastSnapshotNonPhysics(t *testing.T) {
	ip := NewInterpolator(InterpolatorConfig{BufferMs: 0})
	ip.AddSnapshot(Snapshot{Timestamp: 1000, State: map[string]float64{"x": 5}})
	ip.AddSnapshot(Snapshot{Timestamp: 2000, State: map[string]float64{"x": 15}})

	got := ip.GetInterpolated(5000)
	if got["x"] != 15 {
		t.Fatalf("expected clamp to last snapshot's x=15, got %v", got["x"])
	}
}

func TestGetInterpolatedLinearMidpoint(t *testing.T) {
	ip := NewInterpolator(InterpolatorConfig{BufferMs: 0})
	ip.AddSnapshot(Snapshot{Timestamp: 1000, State: map[string]float64{"x": 0}})
	ip.AddSnapshot(Snapshot{Timestamp: 2000, State: map[string]float64{"x": 100}})

	got := ip.GetInterpolated(1500)
	if math.Abs(got["x"]-50) > 1e-9 {
		t.Fatalf("expected linear midpoint x=50, got %v", got["x"])
	}
}

func TestAngleLerpShortestArc(t *testing.T) {
	ip := NewInterpolator(InterpolatorConfig{BufferMs: 0, AngleFields: []string{"angle"}})
	epsilon := 0.01
	a := -math.Pi + epsilon
	b := math.Pi - epsilon
	ip.AddSnapshot(Snapshot{Timestamp: 1000, State: map[string]float64{"angle": a}})
	ip.AddSnapshot(Snapshot{Timestamp: 2000, State: map[string]float64{"angle": b}})

	got := ip.GetInterpolated(1500)["angle"]
	if math.Abs(got) < math.Pi-epsilon {
		t.Fatalf("expected shortest-arc interpolation near +/-pi, got %v (magnitude too small)", got)
	}
}

func TestPhysicsModeExtrapolatesPastLastSnapshot(t *testing.T) {
	ip := NewInterpolator(InterpolatorConfig{
		BufferMs: 0,
		Physics:  []PhysicsTriple{{Position: "x", Velocity: "vx", Acceleration: "ax"}},
	})
	ip.AddSnapshot(Snapshot{Timestamp: 1000, State: map[string]float64{"x": 100, "vx": 50, "ax": 0}})

	got := ip.GetInterpolated(1500)["x"]
	if math.Abs(got-125) > 1e-6 {
		t.Fatalf("expected kinematic extrapolation x~=125, got %v", got)
	}
}

func TestHermiteMidpointDivergesFromLinear(t *testing.T) {
	ip := NewInterpolator(InterpolatorConfig{BufferMs: 0, Mode: ModeHermite})
	ip.AddSnapshot(Snapshot{Timestamp: 0, State: map[string]float64{"x": 0}})
	ip.AddSnapshot(Snapshot{Timestamp: 1000, State: map[string]float64{"x": 10}})
	ip.AddSnapshot(Snapshot{Timestamp: 2000, State: map[string]float64{"x": 30}})
	ip.AddSnapshot(Snapshot{Timestamp: 3000, State: map[string]float64{"x": 60}})

	// Midpoint of the middle segment (1000..2000), tangents from the
	// central difference of the neighboring snapshots: m0=(30-0)/2=15,
	// m1=(60-10)/2=25. At t=0.5 the Hermite basis weights are
	// h00=h01=0.5, h10=0.125, h11=-0.125, giving
	// 0.5*10 + 0.125*15 + 0.5*30 - 0.125*25 = 18.75, below the linear
	// midpoint of 20 for this convex series.
	got := ip.GetInterpolated(1500)["x"]
	want := 18.75
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected Hermite midpoint %v, got %v", want, got)
	}
}

func TestGetInterpolatedMissingFieldDefaultsToToSnapshot(t *testing.T) {
	ip := NewInterpolator(InterpolatorConfig{BufferMs: 0})
	ip.AddSnapshot(Snapshot{Timestamp: 1000, State: map[string]float64{}})
	ip.AddSnapshot(Snapshot{Timestamp: 2000, State: map[string]float64{"hp": 80}})

	got := ip.GetInterpolated(1500)["hp"]
	if got != 80 {
		t.Fatalf("expected missing field to default to the to-snapshot value 80, got %v", got)
	}
}

func TestRingBufferEvictsOldest(t *testing.T) {
	ip := NewInterpolator(InterpolatorConfig{MaxSnapshots: 2, BufferMs: 0})
	ip.AddSnapshot(Snapshot{Timestamp: 1000, State: map[string]float64{"x": 1}})
	ip.AddSnapshot(Snapshot{Timestamp: 2000, State: map[string]float64{"x": 2}})
	ip.AddSnapshot(Snapshot{Timestamp: 3000, State: map[string]float64{"x": 3}})

	if len(ip.buf) != 2 {
		t.Fatalf("expected ring buffer capped at 2, got %d", len(ip.buf))
	}
	if ip.buf[0].Timestamp != 2000 {
		t.Fatalf("expected oldest snapshot evicted, got first timestamp %d", ip.buf[0].Timestamp)
	}
}

func applyAddX(state State, in Input) State {
	out := cloneFloatMap(state)
	if dx, ok := in.Value["dx"].(float64); ok {
		out["x"] += dx
	}
	return out
}

func TestPredictorPredictReplaysUnconfirmedInputs(t *testing.T) {
	p := NewPredictor(3, applyAddX)
	server := State{"x": 10}
	unconfirmed := []Input{
		{Seq: 1, Value: map[string]any{"dx": 5.0}},
		{Seq: 2, Value: map[string]any{"dx": 2.0}},
	}
	got := p.Predict(server, unconfirmed)
	if got["x"] != 17 {
		t.Fatalf("expected predicted x=17, got %v", got["x"])
	}
}

func TestPredictorConvergesAfterSmoothingFrames(t *testing.T) {
	const frames = 3
	p := NewPredictor(frames, applyAddX)

	predictedThen := State{"x": 20}
	serverTruth := State{"x": 10}
	p.SetCorrection(predictedThen, serverTruth)

	current := State{"x": 10}
	var got State
	for i := 0; i < frames; i++ {
		got = p.GetSmoothed(current)
	}
	if math.Abs(got["x"]-serverTruth["x"]) > 1e-9 {
		t.Fatalf("expected convergence to server truth x=10 after %d frames, got %v", frames, got["x"])
	}
}

func TestPredictorNoCorrectionPassesStateThrough(t *testing.T) {
	p := NewPredictor(3, applyAddX)
	current := State{"x": 42}
	got := p.GetSmoothed(current)
	if got["x"] != 42 {
		t.Fatalf("expected passthrough with no pending correction, got %v", got["x"])
	}
}

func TestPredictorIgnoresSubEpsilonDifferences(t *testing.T) {
	p := NewPredictor(3, applyAddX)
	p.SetCorrection(State{"x": 10 + 1e-9}, State{"x": 10})
	if len(p.offsets) != 0 {
		t.Fatalf("expected sub-epsilon difference to be ignored, got offsets %v", p.offsets)
	}
}
