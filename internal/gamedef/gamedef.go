// Package gamedef declares the immutable game configuration and lifecycle
// hook bundle that backs every room. A Definition is a value, not a
// handle: the same Definition may back many concurrent rooms.
package gamedef

import (
	"context"

	"github.com/wildspark/arena/internal/bot"
	"github.com/wildspark/arena/internal/entity"
	"github.com/wildspark/arena/internal/physics"
)

// Defaults per spec.md §4.3.
const (
	DefaultTickRate           = 20
	DefaultMaxPlayers         = 10
	DefaultMaxRoomsPerProcess = 20
)

// Player is the subset of player state hooks need; internal/room.Player
// satisfies it.
type Player interface {
	ID() string
	Entity() *entity.Entity
}

// Room is the subset of room state hooks need; internal/room.Room
// satisfies it. Bots, Physics and Defer are the population/mutation side
// of the room's subsystems (Tick calls bots.Step and physics.Step; Close
// calls sidefx.Flush): game code uses them from OnCreate/OnPlayerJoin/OnTick to
// fill bot slots, create physics bodies, and enqueue deferred work.
type Room interface {
	State() map[string]any
	Entities() *entity.Collection
	Bots() *bot.Manager
	Physics() *physics.Bridge
	Defer(fn func(ctx context.Context) error)
}

// Hooks bundles every optional lifecycle callback. All are nil-checked
// before invocation; a Definition with no hooks set is a valid, if inert,
// game.
type Hooks struct {
	OnCreate       func(ctx context.Context, room Room) error
	OnTick         func(room Room, delta float64)
	OnPlayerJoin   func(ctx context.Context, room Room, player Player) error
	OnPlayerLeave  func(room Room, player Player)
	OnSpectatorJoin func(room Room, spectatorID string)
	OnGameOver     func(ctx context.Context, room Room)
	OnInput        func(room Room, player Player, input map[string]any)
}

// Debug carries free-form debug toggles a game may consult (e.g. a flag to
// disable bot thinking in tests). Left empty (nil) by default.
type Debug map[string]any

// Definition is an immutable game configuration. Build one with Define.
//
// TickRate is a pointer so that an explicit 0 (event-driven mode, spec.md
// §4.4) can be distinguished from "unset, use the default of 20": a nil
// TickRate in the Definition passed to Define takes the default; a
// non-nil *0 is honored as event-driven.
type Definition struct {
	Name               string
	TickRate           *int
	MaxPlayers         int
	MaxRoomsPerProcess int
	Debug              Debug
	Hooks              Hooks
	MapPath            string // optional Tiled map path; the room does not load it (internal/mapdata.Loader takes a filename)

	resolvedTickRate int
}

// Define applies spec.md §4.3 defaults to a caller-supplied Definition and
// returns the immutable result. Callers should treat the input as a
// template; Define never mutates it in place beyond returning a copy.
func Define(def Definition) *Definition {
	out := def
	if out.TickRate == nil {
		out.resolvedTickRate = DefaultTickRate
	} else {
		out.resolvedTickRate = *out.TickRate
	}
	if out.MaxPlayers == 0 {
		out.MaxPlayers = DefaultMaxPlayers
	}
	if out.MaxRoomsPerProcess == 0 {
		out.MaxRoomsPerProcess = DefaultMaxRoomsPerProcess
	}
	return &out
}

// EventDriven builds a Definition pinned to tickRate=0 (spec.md §4.4).
func EventDriven(def Definition) *Definition {
	zero := 0
	def.TickRate = &zero
	return Define(def)
}

// TickDriven reports whether this definition runs a fixed-rate simulation
// loop (tickRate > 0) as opposed to the event-driven mode (tickRate == 0).
func (d *Definition) TickDriven() bool {
	return d.resolvedTickRate > 0
}

// TickRateHz returns the resolved tick rate (after Define's defaulting).
func (d *Definition) TickRateHz() int {
	return d.resolvedTickRate
}

// Delta is the fixed per-tick time step in seconds for a tick-driven
// definition. Zero for event-driven definitions.
func (d *Definition) Delta() float64 {
	if d.resolvedTickRate <= 0 {
		return 0
	}
	return 1.0 / float64(d.resolvedTickRate)
}
