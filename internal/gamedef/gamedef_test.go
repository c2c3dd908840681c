package gamedef

import "testing"

func TestDefineDefaults(t *testing.T) {
	d := Define(Definition{Name: "test"})
	if d.TickRateHz() != DefaultTickRate {
		t.Fatalf("expected default tick rate %d, got %d", DefaultTickRate, d.TickRateHz())
	}
	if d.MaxPlayers != DefaultMaxPlayers {
		t.Fatalf("expected default max players %d, got %d", DefaultMaxPlayers, d.MaxPlayers)
	}
	if d.MaxRoomsPerProcess != DefaultMaxRoomsPerProcess {
		t.Fatalf("expected default max rooms %d, got %d", DefaultMaxRoomsPerProcess, d.MaxRoomsPerProcess)
	}
	if !d.TickDriven() {
		t.Fatal("expected tick-driven by default")
	}
}

func TestEventDrivenExplicitZero(t *testing.T) {
	d := EventDriven(Definition{Name: "event"})
	if d.TickDriven() {
		t.Fatal("expected event-driven mode")
	}
	if d.Delta() != 0 {
		t.Fatalf("expected zero delta in event-driven mode, got %f", d.Delta())
	}
}

func TestDeltaMatchesTickRate(t *testing.T) {
	rate := 50
	d := Define(Definition{TickRate: &rate})
	want := 1.0 / 50.0
	if d.Delta() != want {
		t.Fatalf("expected delta %f, got %f", want, d.Delta())
	}
}
