package input

import "testing"

func TestHandlerPackageAndConfirm(t *testing.T) {
	h := NewHandler()
	p1 := h.PackageInput(100, map[string]any{"action": "move"})
	p2 := h.PackageInput(101, map[string]any{"action": "jump"})

	if p1.Seq != 1 || p2.Seq != 2 {
		t.Fatalf("expected seqs 1,2 got %d,%d", p1.Seq, p2.Seq)
	}
	if len(h.Unconfirmed()) != 2 {
		t.Fatalf("expected 2 unconfirmed, got %d", len(h.Unconfirmed()))
	}

	h.ConfirmUpTo(1)
	remaining := h.Unconfirmed()
	if len(remaining) != 1 || remaining[0].Seq != 2 {
		t.Fatalf("expected only seq 2 remaining, got %v", remaining)
	}
}

func TestQueueDrainOrdersAndDedupes(t *testing.T) {
	q := NewQueue()
	// enqueue out of order
	q.Enqueue(Package{Seq: 3})
	q.Enqueue(Package{Seq: 1})
	q.Enqueue(Package{Seq: 2})

	drained, last := q.Drain()
	if len(drained) != 3 {
		t.Fatalf("expected 3 drained, got %d", len(drained))
	}
	for i, pkg := range drained {
		if pkg.Seq != uint64(i+1) {
			t.Fatalf("expected seq-ordered drain, got %v", drained)
		}
	}
	if last != 3 {
		t.Fatalf("expected lastApplied 3, got %d", last)
	}
}

func TestQueueDiscardsStaleSeqs(t *testing.T) {
	q := NewQueue()
	q.Enqueue(Package{Seq: 5})
	q.Drain()

	q.Enqueue(Package{Seq: 3})
	q.Enqueue(Package{Seq: 6})
	drained, last := q.Drain()

	if len(drained) != 1 || drained[0].Seq != 6 {
		t.Fatalf("expected only seq 6 to survive, got %v", drained)
	}
	if last != 6 {
		t.Fatalf("expected lastApplied 6, got %d", last)
	}
}
