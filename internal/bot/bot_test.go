package bot

import (
	"testing"

	"github.com/wildspark/arena/internal/entity"
)

func testSpawn(name string) (*entity.Entity, func(map[string]any)) {
	e := entity.New("Bot")
	return e, func(map[string]any) {}
}

// fakeRoom satisfies RoomView for tests that don't care about world state.
type fakeRoom struct {
	entities *entity.Collection
}

func (f *fakeRoom) State() map[string]any       { return nil }
func (f *fakeRoom) Entities() *entity.Collection { return f.entities }

func TestFillBotsComputesDeficit(t *testing.T) {
	m := NewManager(Config{FillTo: 4, Names: []string{"Alpha", "Bravo"}})

	created := m.FillBots(0, testSpawn)
	if len(created) != 4 {
		t.Fatalf("expected 4 bots created, got %d", len(created))
	}
	for _, b := range created {
		if !b.Entity.IsBot {
			t.Fatal("expected bot entity IsBot=true")
		}
	}
	if m.Count() != 4 {
		t.Fatalf("expected 4 bots tracked, got %d", m.Count())
	}

	// One human joins: fillTo=4, 1 human, 4 bots already present -> no new bots
	more := m.FillBots(1, testSpawn)
	if len(more) != 0 {
		t.Fatalf("expected no new bots when humans+bots >= fillTo, got %d", len(more))
	}
}

func TestDespawnOneRemovesOldest(t *testing.T) {
	m := NewManager(Config{FillTo: 2, DespawnOnJoin: true})
	created := m.FillBots(0, testSpawn)
	oldest := created[0]

	despawned, ok := m.DespawnOne()
	if !ok || despawned.ID != oldest.ID {
		t.Fatalf("expected oldest bot %d despawned, got %v", oldest.ID, despawned)
	}
	if m.Count() != 1 {
		t.Fatalf("expected 1 bot remaining, got %d", m.Count())
	}
}

func TestStepInvokesThinkAtInterval(t *testing.T) {
	calls := 0
	rate := 2.0 // every 0.5s
	m := NewManager(Config{FillTo: 1, Behaviors: []Behavior{{
		ThinkRate: &rate,
		Think:     func(b *Bot, room RoomView, delta float64) { calls++ },
	}}})

	m.FillBots(0, testSpawn)
	room := &fakeRoom{}
	m.Step(0.25, room)
	if calls != 0 {
		t.Fatalf("expected no think calls yet, got %d", calls)
	}
	m.Step(0.25, room)
	if calls != 1 {
		t.Fatalf("expected exactly 1 think call, got %d", calls)
	}
}

func TestStepDisabledWhenThinkRateZero(t *testing.T) {
	called := false
	zero := 0.0
	m := NewManager(Config{FillTo: 1, Behaviors: []Behavior{{
		ThinkRate: &zero,
		Think:     func(b *Bot, room RoomView, delta float64) { called = true },
	}}})
	m.FillBots(0, testSpawn)
	m.Step(10, &fakeRoom{})
	if called {
		t.Fatal("expected Think not to be called when ThinkRate is 0")
	}
}

func TestStepThinksEveryStepWhenThinkRateAbsent(t *testing.T) {
	calls := 0
	m := NewManager(Config{FillTo: 1, Behaviors: []Behavior{{
		ThinkRate: nil,
		Think:     func(b *Bot, room RoomView, delta float64) { calls++ },
	}}})
	m.FillBots(0, testSpawn)
	room := &fakeRoom{}
	m.Step(0.1, room)
	m.Step(0.1, room)
	if calls != 2 {
		t.Fatalf("expected a think call every Step when ThinkRate is absent, got %d", calls)
	}
}

func TestStepPassesRoomThrough(t *testing.T) {
	var seen RoomView
	m := NewManager(Config{FillTo: 1, Behaviors: []Behavior{{
		Think: func(b *Bot, room RoomView, delta float64) { seen = room },
	}}})
	m.FillBots(0, testSpawn)
	room := &fakeRoom{}
	m.Step(0.1, room)
	if seen != room {
		t.Fatal("expected Think to receive the room passed to Step")
	}
}
