package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/wildspark/arena/internal/entity"
	"github.com/wildspark/arena/internal/schema"
	"github.com/wildspark/arena/internal/sidefx"
)

type nullLogger struct{}

func (nullLogger) Debug(string, ...interface{}) {}
func (nullLogger) Info(string, ...interface{})  {}
func (nullLogger) Warn(string, ...interface{})  {}
func (nullLogger) Error(string, ...interface{}) {}

func writeScript(t *testing.T, name, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return dir
}

func TestExecuteSetPropMutatesDeclaredField(t *testing.T) {
	reg := schema.NewRegistry()
	reg.DeclareClass("door", "")
	reg.Declare("door", "open", schema.KindBoolean)

	dir := writeScript(t, "open_door.lua", `set_prop("open", true)`)
	eng := NewEngine(nullLogger{}, dir, reg)

	door := entity.New("door")
	door.Set("open", false)

	if _, err := eng.Execute("open_door.lua", door, nil); err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	v, ok := door.Get("open")
	if !ok || v != true {
		t.Fatalf("expected open=true after script ran, got %v (ok=%v)", v, ok)
	}
}

func TestExecuteIgnoresUndeclaredField(t *testing.T) {
	reg := schema.NewRegistry()
	reg.DeclareClass("door", "")

	dir := writeScript(t, "bad.lua", `set_prop("nonexistent", 1)`)
	eng := NewEngine(nullLogger{}, dir, reg)
	door := entity.New("door")

	if _, err := eng.Execute("bad.lua", door, nil); err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if _, ok := door.Get("nonexistent"); ok {
		t.Fatal("expected undeclared field to be silently ignored, not set")
	}
}

func TestExecuteEffectAckIsReturned(t *testing.T) {
	reg := schema.NewRegistry()
	reg.DeclareClass("chest", "")

	dir := writeScript(t, "loot.lua", `effect_ack("you found a key")`)
	eng := NewEngine(nullLogger{}, dir, reg)

	effects, err := eng.Execute("loot.lua", entity.New("chest"), nil)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if len(effects) != 1 || effects[0].AckMessage != "you found a key" {
		t.Fatalf("expected one ack effect, got %+v", effects)
	}
}

func TestExecuteCtxParamsAreVisible(t *testing.T) {
	reg := schema.NewRegistry()
	reg.DeclareClass("npc", "")
	reg.Declare("npc", "greeting", schema.KindString)

	dir := writeScript(t, "greet.lua", `set_prop("greeting", "hello " .. ctx.playerName)`)
	eng := NewEngine(nullLogger{}, dir, reg)
	npc := entity.New("npc")

	if _, err := eng.Execute("greet.lua", npc, map[string]any{"playerName": "alice"}); err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	v, _ := npc.Get("greeting")
	if v != "hello alice" {
		t.Fatalf("expected ctx param interpolated into greeting, got %v", v)
	}
}

func TestExecuteMissingScriptReturnsError(t *testing.T) {
	reg := schema.NewRegistry()
	eng := NewEngine(nullLogger{}, t.TempDir(), reg)
	if _, err := eng.Execute("missing.lua", nil, nil); err == nil {
		t.Fatal("expected an error for a missing script file")
	}
}

func TestQueueEffectsDeliversEachAckThroughSideFX(t *testing.T) {
	q := sidefx.NewQueue(sidefx.Options{MaxRetries: 0, BaseDelayMs: 1})
	var delivered []string
	deliver := func(msg string) error {
		delivered = append(delivered, msg)
		return nil
	}

	QueueEffects(q, []Effect{{AckMessage: "one"}, {AckMessage: "two"}}, deliver)
	q.Flush()
	q.Flush()

	if len(delivered) != 2 {
		t.Fatalf("expected both effects delivered, got %v", delivered)
	}
}
