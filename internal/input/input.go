// Package input implements the sequenced, acknowledged input pipeline
// described in spec.md §4.5: a client-side InputHandler that buffers
// unconfirmed packages for prediction replay, and a server-side per-player
// Queue that drains them in seq order.
package input

import (
	"sort"
	"sync"
)

// Package is a single input sample: seq (monotonically increasing per
// client), the client wall-clock timestamp, and an opaque payload.
type Package struct {
	Seq       uint64
	Timestamp int64
	Input     map[string]any
}

// Handler is the client-side counterpart: assigns seqs, timestamps, and
// keeps an ordered "unconfirmed" list for replay until the server
// acknowledges a seq.
type Handler struct {
	mu          sync.Mutex
	nextSeq     uint64
	unconfirmed []Package
}

// NewHandler returns a Handler with seq starting at 1.
func NewHandler() *Handler {
	return &Handler{nextSeq: 1}
}

// PackageInput assigns the next seq, timestamps with now (caller-supplied
// client clock reading), appends to the unconfirmed list, and returns the
// resulting Package.
func (h *Handler) PackageInput(now int64, in map[string]any) Package {
	h.mu.Lock()
	defer h.mu.Unlock()

	pkg := Package{Seq: h.nextSeq, Timestamp: now, Input: in}
	h.nextSeq++
	h.unconfirmed = append(h.unconfirmed, pkg)
	return pkg
}

// ConfirmUpTo drops every buffered package with Seq <= seq.
func (h *Handler) ConfirmUpTo(seq uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	i := 0
	for i < len(h.unconfirmed) && h.unconfirmed[i].Seq <= seq {
		i++
	}
	h.unconfirmed = h.unconfirmed[i:]
}

// Unconfirmed returns the ordered list of packages not yet acknowledged,
// used as the Predictor's replay source.
func (h *Handler) Unconfirmed() []Package {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Package, len(h.unconfirmed))
	copy(out, h.unconfirmed)
	return out
}

// Queue is the server-side per-player pending-input queue. Packages
// arriving out of order or stale (Seq <= lastApplied) relative to what has
// already been applied are discarded on Drain.
type Queue struct {
	mu          sync.Mutex
	pending     []Package
	lastApplied uint64
}

// NewQueue returns an empty server-side queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue appends an arriving package. Packages from the same client
// arrive in order on a single connection, but Drain re-validates
// lastApplied anyway so a stale/duplicate package is never applied twice.
func (q *Queue) Enqueue(pkg Package) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, pkg)
}

// Drain dequeues every pending package in seq order, discarding any with
// Seq <= lastApplied, and returns the survivors along with the highest
// seq observed (for snapshot.lastProcessedSeq). If no packages survive,
// the returned seq is the queue's existing lastApplied.
func (q *Queue) Drain() ([]Package, uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	pending := q.pending
	q.pending = nil
	sort.Slice(pending, func(i, j int) bool { return pending[i].Seq < pending[j].Seq })

	out := make([]Package, 0, len(pending))
	for _, pkg := range pending {
		if pkg.Seq <= q.lastApplied {
			continue
		}
		out = append(out, pkg)
		q.lastApplied = pkg.Seq
	}
	return out, q.lastApplied
}

// LastApplied returns the highest seq applied so far.
func (q *Queue) LastApplied() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lastApplied
}
