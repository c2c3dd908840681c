package spectator

import "testing"

func TestZoneMode(t *testing.T) {
	m := NewManager(ModeZone)
	m.PlayZone = Zone{MinX: 0, MinY: 0, MaxX: 100, MaxY: 100}

	if m.ShouldSpectate(50, 50, true, 0) {
		t.Fatal("inside zone should not spectate")
	}
	if !m.ShouldSpectate(500, 500, true, 0) {
		t.Fatal("outside zone should spectate")
	}
	if !m.ShouldSpectate(0, 0, false, 0) {
		t.Fatal("missing coordinates should spectate in zone mode")
	}
}

func TestOverflowMode(t *testing.T) {
	m := NewManager(ModeOverflow)
	m.MaxPlayers = 2

	if m.ShouldSpectate(0, 0, false, 1) {
		t.Fatal("should not spectate below max players")
	}
	if !m.ShouldSpectate(0, 0, false, 2) {
		t.Fatal("should spectate at or above max players")
	}
}

func TestManualModeNeverAutoSpectates(t *testing.T) {
	m := NewManager(ModeManual)
	if m.ShouldSpectate(0, 0, true, 1000) {
		t.Fatal("manual mode should never auto-decide")
	}
}

func TestAddRemoveTracking(t *testing.T) {
	m := NewManager(ModeManual)
	m.Add("a")
	m.Add("b")
	if m.Count() != 2 || !m.IsSpectator("a") {
		t.Fatal("expected both spectators tracked")
	}
	m.Remove("a")
	if m.Count() != 1 || m.IsSpectator("a") {
		t.Fatal("expected a removed")
	}
}
