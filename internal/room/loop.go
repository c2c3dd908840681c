package room

import (
	"context"
	"time"

	"github.com/wildspark/arena/internal/input"
)

// Tick advances the simulation by one fixed step (tick-driven mode):
// drain every player's pending input in seq order, step bots and physics,
// invoke onTick, broadcast the resulting snapshot through the room's
// Transport, and return it. Per spec.md I4, all
// inputs applied this tick are drained before onTick runs — no input
// arriving mid-tick is visible until the following tick.
func (r *Room) Tick(delta float64) Snapshot {
	r.mu.Lock()
	if r.status != StatusActive && r.status != StatusDraining {
		r.mu.Unlock()
		return r.buildSnapshot()
	}
	players := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		players = append(players, p)
	}
	r.mu.Unlock()

	for _, p := range players {
		pkgs, _ := p.queue.Drain()
		for _, pkg := range pkgs {
			r.applyInput(p, pkg.Input)
		}
	}

	if r.bots != nil {
		r.bots.Step(delta, r)
	}
	if r.physics != nil {
		r.physics.Step(delta)
	}

	if r.def.Hooks.OnTick != nil {
		func() {
			defer r.recoverGameLogic("onTick")
			r.def.Hooks.OnTick(r, delta)
		}()
	}

	r.mu.Lock()
	r.tickCount++
	r.mu.Unlock()

	snap := r.buildSnapshot()
	if r.transport != nil {
		if err := r.transport.BroadcastSnapshot(snap); err != nil && r.logger != nil {
			r.logger.Warn("room %s: broadcast snapshot failed: %v", r.id, err)
		}
	}
	return snap
}

// HandleInputEventDriven applies a single input package synchronously and
// broadcasts the resulting snapshot immediately — spec.md §4.4's
// event-driven mode, used for turn-based or low-frequency games where a
// fixed-rate loop would waste cycles.
func (r *Room) HandleInputEventDriven(userID string, pkg input.Package) {
	r.mu.Lock()
	p, ok := r.players[userID]
	active := r.status == StatusActive || r.status == StatusDraining
	r.mu.Unlock()
	if !ok || !active {
		return
	}

	p.queue.Enqueue(pkg)
	pkgs, _ := p.queue.Drain()
	for _, applied := range pkgs {
		r.applyInput(p, applied.Input)
	}

	snap := r.buildSnapshot()
	if r.transport != nil {
		if err := r.transport.BroadcastSnapshot(snap); err != nil && r.logger != nil {
			r.logger.Warn("room %s: broadcast snapshot failed: %v", r.id, err)
		}
	}
}

// RunTickLoop drives Tick at the Definition's configured rate until ctx is
// canceled or the room closes. This is the self-contained loop used when
// the room is not hosted inside a platform that already owns the ticker
// (e.g. local tests or a non-Nakama host); internal/nakamaport instead
// calls Tick directly from its own MatchLoop invocation, since Nakama owns
// that cadence.
func (r *Room) RunTickLoop(ctx context.Context) {
	if !r.def.TickDriven() {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.loopCancel = cancel
	r.mu.Unlock()

	interval := time.Duration(r.def.Delta() * float64(time.Second))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	delta := r.def.Delta()
	for {
		select {
		case <-loopCtx.Done():
			return
		case <-ticker.C:
			r.Tick(delta)
			if r.Status() == StatusClosed {
				return
			}
		}
	}
}
