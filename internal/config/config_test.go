package config

import "testing"

func TestIntFallback(t *testing.T) {
	env := map[string]string{"tick_rate": "30"}
	if v := Int(env, "tick_rate", 20); v != 30 {
		t.Fatalf("expected 30, got %d", v)
	}
	if v := Int(env, "missing", 20); v != 20 {
		t.Fatalf("expected fallback 20, got %d", v)
	}
	if v := Int(env, "tick_rate2", 5); v != 5 {
		t.Fatalf("expected fallback 5, got %d", v)
	}
}

func TestBoolFallback(t *testing.T) {
	env := map[string]string{"debug": "true"}
	if !Bool(env, "debug", false) {
		t.Fatal("expected true")
	}
	if Bool(env, "missing", false) {
		t.Fatal("expected fallback false")
	}
}
