// Package room implements the per-session authoritative simulation loop
// described in spec.md §4.4: a tick-driven fixed-rate loop or an
// event-driven synchronous mode, the CREATED→ACTIVE→DRAINING→CLOSED
// lifecycle, ordered input application, and per-tick orchestration of the
// bot manager, physics bridge, and deferred side-effect queue.
//
// Transport is abstracted behind Transport/Logger so the simulation core
// is unit-testable without a live Nakama runtime; internal/nakamaport
// supplies the concrete Nakama-backed implementation.
package room

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wildspark/arena/internal/bot"
	"github.com/wildspark/arena/internal/entity"
	"github.com/wildspark/arena/internal/gamedef"
	"github.com/wildspark/arena/internal/input"
	"github.com/wildspark/arena/internal/physics"
	"github.com/wildspark/arena/internal/roomerrors"
	"github.com/wildspark/arena/internal/schema"
	"github.com/wildspark/arena/internal/sidefx"
	"github.com/wildspark/arena/internal/spectator"
)

// Logger matches nakama-common/runtime.Logger's method set so a concrete
// runtime.Logger can be passed in directly.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// Snapshot is the wire payload broadcast every tick (tick-driven) or after
// each input (event-driven): spec.md §6.
type Snapshot struct {
	Tick             uint64
	Timestamp        int64
	Entities         []map[string]any
	LastProcessedSeq map[string]uint64
}

// Transport decouples the Room from how snapshots and lifecycle events
// actually reach clients.
type Transport interface {
	BroadcastSnapshot(snap Snapshot) error
	BroadcastLifecycleEvent(event string, payload map[string]any) error
}

// Status is a state in the room lifecycle machine (spec.md §4.4).
type Status int

const (
	StatusCreated Status = iota
	StatusActive
	StatusDraining
	StatusClosed
)

// Player is identity + optional owned entity + input queue.
type Player struct {
	UserID   string
	entity   *entity.Entity
	queue    *input.Queue
	identity map[string]any
}

// ID returns the player's user id (satisfies gamedef.Player).
func (p *Player) ID() string { return p.UserID }

// Entity returns the player's owned entity, or nil if despawned
// (satisfies gamedef.Player).
func (p *Player) Entity() *entity.Entity { return p.entity }

// Room is a single game session: spec.md §3.
type Room struct {
	mu sync.Mutex

	id     string
	def    *gamedef.Definition
	reg    *schema.Registry
	logger Logger

	entities   *entity.Collection
	state      map[string]any
	players    map[string]*Player
	spectators *spectator.Manager
	bots       *bot.Manager
	botSpawn   bot.SpawnFunc
	physics    *physics.Bridge
	sidefx     *sidefx.Queue
	transport  Transport

	tickCount uint64
	status    Status

	drainGrace   time.Duration
	drainTimer   *time.Timer
	loopCancel   context.CancelFunc
	gameOverDone bool
}

// Config bundles everything Room needs beyond the Definition.
type Config struct {
	ID         string
	Def        *gamedef.Definition
	Registry   *schema.Registry
	Logger     Logger
	Transport  Transport
	Bots       *bot.Manager
	BotSpawn   bot.SpawnFunc // how the room creates a bot's entity+input sink
	Spectators *spectator.Manager
	Physics    *physics.Bridge // nil if this game has no physics
	SideFX     *sidefx.Queue
	DrainGrace time.Duration
}

// New constructs a Room in StatusCreated. The caller must call Join for
// the first player to transition it to StatusActive.
func New(cfg Config) *Room {
	if cfg.Spectators == nil {
		cfg.Spectators = spectator.NewManager(spectator.ModeManual)
	}
	if cfg.DrainGrace == 0 {
		cfg.DrainGrace = 30 * time.Second
	}
	return &Room{
		id:         cfg.ID,
		def:        cfg.Def,
		reg:        cfg.Registry,
		logger:     cfg.Logger,
		entities:   entity.NewCollection(cfg.Registry),
		state:      make(map[string]any),
		players:    make(map[string]*Player),
		spectators: cfg.Spectators,
		bots:       cfg.Bots,
		botSpawn:   cfg.BotSpawn,
		physics:    cfg.Physics,
		sidefx:     cfg.SideFX,
		transport:  cfg.Transport,
		status:     StatusCreated,
		drainGrace: cfg.DrainGrace,
	}
}

// ID returns the room's identity.
func (r *Room) ID() string { return r.id }

// Status returns the current lifecycle state.
func (r *Room) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// TickCount returns the current tick counter (spec.md I3: monotonic).
func (r *Room) TickCount() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tickCount
}

// State returns the opaque key-value state bag (satisfies gamedef.Room).
// Mutated only by hooks, per spec.md §5 — no locking needed under the
// single-threaded cooperative model.
func (r *Room) State() map[string]any { return r.state }

// Entities returns the room's entity collection (satisfies gamedef.Room).
func (r *Room) Entities() *entity.Collection { return r.entities }

// Bots returns the room's bot manager, or nil if this room has none
// configured (satisfies gamedef.Room). Hooks use it to inspect or drive bot
// population beyond the automatic fill-on-join path.
func (r *Room) Bots() *bot.Manager { return r.bots }

// Physics returns the room's physics bridge, or nil if this game has no
// physics (satisfies gamedef.Room). Hooks call AddCircle/AddRectangle/
// AddPolygon on it from onCreate/onPlayerJoin to give entities bodies.
func (r *Room) Physics() *physics.Bridge { return r.physics }

// Defer schedules fn on the room's deferred side-effect queue (satisfies
// gamedef.Room). A room with no queue configured drops fn silently, since a
// nil queue means the game opted out of the subsystem entirely.
func (r *Room) Defer(fn func(ctx context.Context) error) {
	if r.sidefx != nil {
		r.sidefx.Defer(fn)
	}
}

// Spectators returns the room's spectator manager.
func (r *Room) Spectators() *spectator.Manager { return r.spectators }

// PlayerCount returns the number of currently joined (non-spectator)
// players.
func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// fillBots tops up the bot roster to the manager's fillTo target given the
// current human count, spawning each new bot's entity through botSpawn and
// registering it in the room's entity collection (spec.md §4.6 scenario:
// on create, and again on every join/leave, bots fill empty slots).
func (r *Room) fillBots() {
	if r.bots == nil || r.botSpawn == nil {
		return
	}
	r.bots.FillBots(r.PlayerCount(), func(name string) (*entity.Entity, func(map[string]any)) {
		e, sendInput := r.botSpawn(name)
		r.entities.Add(e)
		return e, sendInput
	})
}

// SpawnEntity creates and registers a new entity of class. It takes no id:
// every call allocates a fresh id and adds a distinct entity, so repeated
// calls are not de-duplicated.
func (r *Room) SpawnEntity(class string) *entity.Entity {
	e := entity.New(class)
	r.entities.Add(e)
	return e
}

// DespawnEntity removes an entity and its physics body, if any. Idempotent.
func (r *Room) DespawnEntity(id uint64) {
	if _, ok := r.entities.Get(id); !ok {
		return
	}
	r.entities.Remove(id)
	if r.physics != nil {
		r.physics.Remove(id)
	}
}

// Join admits a player, creating the room's first-player transition into
// StatusActive (running onCreate first) if necessary, then running
// onPlayerJoin. Despawn-on-join is requested from the bot manager before
// the hook runs so the game's join logic sees the post-despawn population.
func (r *Room) Join(ctx context.Context, userID string, identity map[string]any) (*Player, error) {
	r.mu.Lock()
	if r.status == StatusCreated {
		r.mu.Unlock()
		if r.def.Hooks.OnCreate != nil {
			if err := r.def.Hooks.OnCreate(ctx, r); err != nil {
				return nil, roomerrors.New(roomerrors.KindGameLogic, r.id, "onCreate", err)
			}
		}
		r.mu.Lock()
		r.status = StatusActive
		r.mu.Unlock()
		r.fillBots()
		r.mu.Lock()
	}
	if r.status == StatusDraining {
		r.cancelDrainLocked()
		r.status = StatusActive
	}
	if len(r.players) >= r.def.MaxPlayers {
		r.mu.Unlock()
		return nil, roomerrors.New(roomerrors.KindResource, r.id, "join",
			fmt.Errorf("room %s is full (max %d players)", r.id, r.def.MaxPlayers))
	}
	r.mu.Unlock()

	if r.bots != nil && r.bots.DespawnOnJoin() {
		if b, ok := r.bots.DespawnOne(); ok {
			r.DespawnEntity(b.Entity.ID)
		}
	}

	p := &Player{UserID: userID, queue: input.NewQueue(), identity: identity}

	if r.def.Hooks.OnPlayerJoin != nil {
		if err := r.def.Hooks.OnPlayerJoin(ctx, r, p); err != nil {
			return nil, roomerrors.New(roomerrors.KindGameLogic, r.id, "onPlayerJoin", err)
		}
	}

	r.mu.Lock()
	r.players[userID] = p
	r.mu.Unlock()
	r.fillBots()

	return p, nil
}

// Leave removes a player. Without an onPlayerLeave hook, the player's
// entity (if any) is despawned; with one, the room leaves the entity alone
// and the hook decides — calling DespawnEntity for the default behavior, or
// keeping the entity in the collection to rehome it.
func (r *Room) Leave(userID string) {
	r.mu.Lock()
	p, ok := r.players[userID]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.players, userID)
	empty := len(r.players) == 0
	r.mu.Unlock()

	if r.def.Hooks.OnPlayerLeave != nil {
		r.def.Hooks.OnPlayerLeave(r, p)
	} else if p.entity != nil {
		r.DespawnEntity(p.entity.ID)
	}
	r.spectators.Remove(userID)

	if empty {
		r.beginDrain()
	} else {
		r.fillBots()
	}
}

// SetPlayerEntity assigns (or clears, with nil) the entity a player owns.
// Used by onPlayerJoin hooks after spawning.
func (r *Room) SetPlayerEntity(p *Player, e *entity.Entity) {
	p.entity = e
}

// beginDrain transitions ACTIVE -> DRAINING and starts the grace timer
// that eventually closes the room (spec.md §4.4 state machine).
func (r *Room) beginDrain() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != StatusActive {
		return
	}
	r.status = StatusDraining
	r.drainTimer = time.AfterFunc(r.drainGrace, func() {
		r.mu.Lock()
		stillDraining := r.status == StatusDraining
		r.mu.Unlock()
		if stillDraining {
			r.Close(context.Background())
		}
	})
}

// cancelDrainLocked stops a pending drain timer. Caller must hold r.mu.
func (r *Room) cancelDrainLocked() {
	if r.drainTimer != nil {
		r.drainTimer.Stop()
		r.drainTimer = nil
	}
}

// Close transitions the room into CLOSED, running onGameOver exactly once,
// stopping the tick loop, and flushing the deferred side-effect queue
// (bounded by its own retry budget).
func (r *Room) Close(ctx context.Context) {
	r.mu.Lock()
	if r.status == StatusClosed {
		r.mu.Unlock()
		return
	}
	r.cancelDrainLocked()
	r.status = StatusClosed
	alreadyRan := r.gameOverDone
	r.gameOverDone = true
	cancel := r.loopCancel
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if !alreadyRan && r.def.Hooks.OnGameOver != nil {
		r.def.Hooks.OnGameOver(ctx, r)
	}
	if r.sidefx != nil {
		r.sidefx.Flush()
	}
}

// EnqueueInput accepts an input package from a connected player, to be
// applied at the start of the next tick (tick-driven) or immediately via
// HandleInputEventDriven (event-driven).
func (r *Room) EnqueueInput(userID string, pkg input.Package) {
	r.mu.Lock()
	p, ok := r.players[userID]
	r.mu.Unlock()
	if !ok {
		return
	}
	p.queue.Enqueue(pkg)
}

// applyInput delivers a single input package to the game's onInput hook,
// synchronously, recovering any panic in it. Entities are plain data with
// no onInput of their own, so no entity-level handler runs before the game
// hook.
func (r *Room) applyInput(p *Player, in map[string]any) {
	if r.def.Hooks.OnInput != nil {
		func() {
			defer r.recoverGameLogic("onInput")
			r.def.Hooks.OnInput(r, p, in)
		}()
	}
}

func (r *Room) recoverGameLogic(channel string) {
	if rec := recover(); rec != nil {
		if r.logger != nil {
			r.logger.Error("room %s: recovered panic in %s: %v", r.id, channel, rec)
		}
	}
}

// lastProcessedSeqs returns each player's lastApplied seq, for the
// outgoing snapshot's reconciliation field.
func (r *Room) lastProcessedSeqs() map[string]uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]uint64, len(r.players))
	for id, p := range r.players {
		out[id] = p.queue.LastApplied()
	}
	return out
}

// buildSnapshot produces the wire snapshot for the current tick.
func (r *Room) buildSnapshot() Snapshot {
	entities := r.entities.All()
	out := make([]map[string]any, 0, len(entities))
	for _, e := range entities {
		out = append(out, e.Snapshot(r.reg))
	}
	return Snapshot{
		Tick:             r.TickCount(),
		Timestamp:        time.Now().UnixMilli(),
		Entities:         out,
		LastProcessedSeq: r.lastProcessedSeqs(),
	}
}
