package room

import (
	"context"
	"testing"
	"time"

	"github.com/wildspark/arena/internal/gamedef"
	"github.com/wildspark/arena/internal/input"
	"github.com/wildspark/arena/internal/schema"
)

type fakeTransport struct {
	snapshots []Snapshot
	events    []string
}

func (f *fakeTransport) BroadcastSnapshot(snap Snapshot) error {
	f.snapshots = append(f.snapshots, snap)
	return nil
}

func (f *fakeTransport) BroadcastLifecycleEvent(event string, payload map[string]any) error {
	f.events = append(f.events, event)
	return nil
}

type fakeLogger struct{}

func (fakeLogger) Debug(string, ...interface{}) {}
func (fakeLogger) Info(string, ...interface{})  {}
func (fakeLogger) Warn(string, ...interface{})  {}
func (fakeLogger) Error(string, ...interface{}) {}

func newTestRoom(t *testing.T, def *gamedef.Definition) (*Room, *fakeTransport) {
	t.Helper()
	reg := schema.NewRegistry()
	reg.DeclareClass("player", "")
	reg.Declare("player", "x", schema.KindFloat64)
	reg.Declare("player", "y", schema.KindFloat64)
	tr := &fakeTransport{}
	r := New(Config{
		ID:        "room-1",
		Def:       def,
		Registry:  reg,
		Logger:    fakeLogger{},
		Transport: tr,
	})
	return r, tr
}

func TestJoinTransitionsCreatedToActive(t *testing.T) {
	created := false
	def := gamedef.Define(gamedef.Definition{
		Name: "test",
		Hooks: gamedef.Hooks{
			OnCreate: func(ctx context.Context, room gamedef.Room) error {
				created = true
				return nil
			},
		},
	})
	r, _ := newTestRoom(t, def)

	if r.Status() != StatusCreated {
		t.Fatalf("expected StatusCreated before first join")
	}
	if _, err := r.Join(context.Background(), "alice", nil); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if !created {
		t.Fatal("expected onCreate to run on first join")
	}
	if r.Status() != StatusActive {
		t.Fatalf("expected StatusActive after first join, got %v", r.Status())
	}
}

func TestJoinRejectsWhenFull(t *testing.T) {
	max := 1
	def := gamedef.Define(gamedef.Definition{Name: "test", MaxPlayers: max})
	r, _ := newTestRoom(t, def)

	if _, err := r.Join(context.Background(), "alice", nil); err != nil {
		t.Fatalf("first join failed: %v", err)
	}
	if _, err := r.Join(context.Background(), "bob", nil); err == nil {
		t.Fatal("expected second join to fail when room is full")
	}
}

func TestLeaveEmptyRoomBeginsDrain(t *testing.T) {
	def := gamedef.Define(gamedef.Definition{Name: "test"})
	r, _ := newTestRoom(t, def)
	r.drainGrace = time.Millisecond
	if _, err := r.Join(context.Background(), "alice", nil); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	r.Leave("alice")
	if r.Status() != StatusDraining {
		t.Fatalf("expected StatusDraining, got %v", r.Status())
	}

	time.Sleep(20 * time.Millisecond)
	if r.Status() != StatusClosed {
		t.Fatalf("expected StatusClosed after grace period, got %v", r.Status())
	}
}

func TestRejoinDuringDrainCancelsClose(t *testing.T) {
	def := gamedef.Define(gamedef.Definition{Name: "test"})
	r, _ := newTestRoom(t, def)
	r.drainGrace = 10 * time.Millisecond

	if _, err := r.Join(context.Background(), "alice", nil); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	r.Leave("alice")
	if r.Status() != StatusDraining {
		t.Fatal("expected draining")
	}
	if _, err := r.Join(context.Background(), "bob", nil); err != nil {
		t.Fatalf("rejoin failed: %v", err)
	}
	if r.Status() != StatusActive {
		t.Fatalf("expected reactivation on rejoin, got %v", r.Status())
	}

	time.Sleep(30 * time.Millisecond)
	if r.Status() == StatusClosed {
		t.Fatal("drain timer should have been canceled by rejoin")
	}
}

func TestTickDrainsInputInSeqOrderAndBroadcasts(t *testing.T) {
	var observed []int
	def := gamedef.Define(gamedef.Definition{
		Name: "test",
		Hooks: gamedef.Hooks{
			OnInput: func(room gamedef.Room, player gamedef.Player, in map[string]any) {
				observed = append(observed, in["seq"].(int))
			},
		},
	})
	r, tr := newTestRoom(t, def)
	if _, err := r.Join(context.Background(), "alice", nil); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	r.EnqueueInput("alice", input.Package{Seq: 2, Input: map[string]any{"seq": 2}})
	r.EnqueueInput("alice", input.Package{Seq: 1, Input: map[string]any{"seq": 1}})

	r.Tick(0.05)

	if len(observed) != 2 || observed[0] != 1 || observed[1] != 2 {
		t.Fatalf("expected inputs applied in seq order [1 2], got %v", observed)
	}
	if len(tr.snapshots) != 1 {
		t.Fatalf("expected one broadcast snapshot, got %d", len(tr.snapshots))
	}
	if tr.snapshots[0].Tick != 1 {
		t.Fatalf("expected tick counter to advance to 1, got %d", tr.snapshots[0].Tick)
	}
}

func TestTickDoesNotApplyInputEnqueuedDuringTick(t *testing.T) {
	var r *Room
	var applyCount int
	midTickSent := false
	def := gamedef.Define(gamedef.Definition{
		Name: "test",
		Hooks: gamedef.Hooks{
			OnTick: func(room gamedef.Room, delta float64) {
				// Simulate an input arriving mid-tick: it must not be
				// visible until the following Tick call (spec.md I4).
				if !midTickSent {
					midTickSent = true
					r.EnqueueInput("alice", input.Package{Seq: 2, Input: map[string]any{}})
				}
			},
			OnInput: func(room gamedef.Room, player gamedef.Player, in map[string]any) {
				applyCount++
			},
		},
	})
	r, _ = newTestRoom(t, def)
	if _, err := r.Join(context.Background(), "alice", nil); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	r.EnqueueInput("alice", input.Package{Seq: 1, Input: map[string]any{}})
	r.Tick(0.05)
	if applyCount != 1 {
		t.Fatalf("expected exactly 1 input applied, got %d", applyCount)
	}

	// The seq-2 input onTick enqueued during the first Tick needs a second
	// Tick to be applied.
	if applyCount != 1 {
		t.Fatalf("expected input not yet applied before next Tick, got %d", applyCount)
	}
	r.Tick(0.05)
	if applyCount != 2 {
		t.Fatalf("expected second input applied on the following tick, got %d", applyCount)
	}
}

func TestOnTickPanicIsRecoveredPerRoom(t *testing.T) {
	def := gamedef.Define(gamedef.Definition{
		Name: "test",
		Hooks: gamedef.Hooks{
			OnTick: func(room gamedef.Room, delta float64) {
				panic("boom")
			},
		},
	})
	r, _ := newTestRoom(t, def)
	if _, err := r.Join(context.Background(), "alice", nil); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	// Must not panic the test/caller.
	r.Tick(0.05)
	if r.TickCount() != 1 {
		t.Fatalf("expected tick counter to still advance after a recovered panic, got %d", r.TickCount())
	}
}

func TestCloseRunsGameOverExactlyOnce(t *testing.T) {
	var calls int
	def := gamedef.Define(gamedef.Definition{
		Name: "test",
		Hooks: gamedef.Hooks{
			OnGameOver: func(ctx context.Context, room gamedef.Room) {
				calls++
			},
		},
	})
	r, _ := newTestRoom(t, def)
	r.Close(context.Background())
	r.Close(context.Background())
	if calls != 1 {
		t.Fatalf("expected onGameOver exactly once, got %d", calls)
	}
}

func TestEventDrivenHandleInputBroadcastsImmediately(t *testing.T) {
	def := gamedef.EventDriven(gamedef.Definition{Name: "turnbased"})
	r, tr := newTestRoom(t, def)
	if _, err := r.Join(context.Background(), "alice", nil); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	r.HandleInputEventDriven("alice", input.Package{Seq: 1, Input: map[string]any{}})
	if len(tr.snapshots) != 1 {
		t.Fatalf("expected immediate broadcast in event-driven mode, got %d", len(tr.snapshots))
	}
}
