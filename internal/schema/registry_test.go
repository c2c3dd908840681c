package schema

import "testing"

func TestDeclareAndFieldsOf(t *testing.T) {
	r := NewRegistry()
	r.DeclareClass("Entity", "")
	r.Declare("Entity", "x", KindFloat64)
	r.Declare("Entity", "y", KindFloat64)

	r.DeclareClass("Player", "Entity")
	r.Declare("Player", "score", KindInt32)

	fields := r.FieldsOf("Player")
	if len(fields) != 3 {
		t.Fatalf("expected 3 fields, got %d: %v", len(fields), fields)
	}
	if fields["x"] != KindFloat64 || fields["score"] != KindInt32 {
		t.Fatalf("unexpected field kinds: %v", fields)
	}
}

func TestSubclassOverridesDoNotMutateParent(t *testing.T) {
	r := NewRegistry()
	r.DeclareClass("Entity", "")
	r.Declare("Entity", "x", KindFloat64)

	r.DeclareClass("Player", "Entity")
	r.Declare("Player", "x", KindInt32) // override

	parentFields := r.FieldsOf("Entity")
	if parentFields["x"] != KindFloat64 {
		t.Fatalf("parent field mutated by subclass override: %v", parentFields)
	}
	childFields := r.FieldsOf("Player")
	if childFields["x"] != KindInt32 {
		t.Fatalf("subclass override did not take effect: %v", childFields)
	}
}

func TestIsSubclass(t *testing.T) {
	r := NewRegistry()
	r.DeclareClass("Entity", "")
	r.DeclareClass("Player", "Entity")
	r.DeclareClass("Bot", "Player")

	if !r.IsSubclass("Bot", "Entity") {
		t.Fatal("expected Bot to be a subclass of Entity")
	}
	if r.IsSubclass("Entity", "Bot") {
		t.Fatal("did not expect Entity to be a subclass of Bot")
	}
	if !r.IsSubclass("Entity", "Entity") {
		t.Fatal("a class is its own subclass")
	}
}

func TestHasField(t *testing.T) {
	r := NewRegistry()
	r.DeclareClass("Entity", "")
	r.Declare("Entity", "x", KindFloat64)

	if !r.HasField("Entity", "x") {
		t.Fatal("expected HasField true for declared field")
	}
	if r.HasField("Entity", "nope") {
		t.Fatal("expected HasField false for undeclared field")
	}
}
