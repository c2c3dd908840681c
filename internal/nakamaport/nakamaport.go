// Package nakamaport wires internal/room onto Nakama's runtime.Match
// lifecycle: it is the transport boundary the room runtime is deliberately
// ignorant of. Adapted from the teacher's GameMatch
// (MatchInit/MatchJoinAttempt/MatchJoin/MatchLeave/MatchLoop/MatchTerminate
// in game.go), generalized from one hardcoded open-world match into a
// factory parameterized by a gamedef.Definition so many games can share
// this one port.
package nakamaport

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/heroiclabs/nakama-common/runtime"

	"github.com/wildspark/arena/internal/bot"
	"github.com/wildspark/arena/internal/config"
	"github.com/wildspark/arena/internal/credentials"
	"github.com/wildspark/arena/internal/gamedef"
	"github.com/wildspark/arena/internal/input"
	"github.com/wildspark/arena/internal/physics"
	"github.com/wildspark/arena/internal/room"
	"github.com/wildspark/arena/internal/schema"
	"github.com/wildspark/arena/internal/sidefx"
	"github.com/wildspark/arena/internal/spectator"
)

// OpCode constants for the wire protocol, generalized from the teacher's
// OpCodeWorldState/OpCodeWorldUpdate/OpCodeInputACK family into a
// game-agnostic set: a full/delta entity snapshot, a lifecycle
// notification, and the inbound input package.
const (
	OpCodeSnapshot = 1
	OpCodeLifecycle = 2
	OpCodeInput    = 10
)

// wireMessage is the JSON envelope for both outbound opcodes.
type wireMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type inputWireMessage struct {
	Seq       uint64         `json:"seq"`
	Timestamp int64          `json:"timestamp"`
	Input     map[string]any `json:"input"`
}

// Factory builds the per-match configuration a Match hands to
// internal/room.New on each MatchInit. Games register one Factory per
// Nakama match handler name (via runtime.Initializer.RegisterMatch).
type Factory struct {
	Def        *gamedef.Definition
	Registry   *schema.Registry
	BotConfig  *bot.Config    // nil disables bot filling
	BotSpawn   bot.SpawnFunc  // required if BotConfig is non-nil
	Physics    *physics.Bounds // nil disables the physics bridge
	Spectators spectator.Mode
	PlayZone   spectator.Zone
	SideFX     sidefx.Options
}

// Match implements runtime.Match, delegating all simulation semantics to a
// room.Room built from Factory and tracking only what the Nakama transport
// boundary itself needs: presences and the dispatcher-backed Transport.
type Match struct {
	factory Factory
}

// NewMatch returns a runtime.Match constructor for the given factory,
// suitable for initializer.RegisterMatch(name, NewMatch(factory)) in a
// module's InitModule.
func NewMatch(factory Factory) func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
	return func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
		return &Match{factory: factory}, nil
	}
}

// matchState bundles the room with the transport and presence bookkeeping
// that only make sense inside the Nakama boundary.
type matchState struct {
	room             *room.Room
	def              *gamedef.Definition
	transport        *dispatcherTransport
	presences        map[string]runtime.Presence
	pendingSpectator map[string]bool
}

// resolveDefinition layers env-var overrides from Nakama's runtime
// environment config on top of the Factory's compile-time Definition, so an
// operator can retune tickRate/maxPlayers/maxRoomsPerProcess per deployment
// without a rebuild. Each match gets its own resolved copy; the Factory's
// template is never mutated.
func resolveDefinition(ctx context.Context, base *gamedef.Definition) *gamedef.Definition {
	env := config.Env(ctx)
	if env == nil {
		return base
	}
	out := *base
	tickRate := config.Int(env, "TICK_RATE", out.TickRateHz())
	out.TickRate = &tickRate
	out.MaxPlayers = config.Int(env, "MAX_PLAYERS", out.MaxPlayers)
	out.MaxRoomsPerProcess = config.Int(env, "MAX_ROOMS_PER_PROCESS", out.MaxRoomsPerProcess)
	return gamedef.Define(out)
}

func (m *Match) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	reg := m.factory.Registry
	if reg == nil {
		reg = schema.NewRegistry()
	}

	def := resolveDefinition(ctx, m.factory.Def)

	transport := &dispatcherTransport{logger: logger}

	var physicsBridge *physics.Bridge
	if m.factory.Physics != nil {
		physicsBridge = physics.NewBridge(reg, *m.factory.Physics)
	}

	var botManager *bot.Manager
	if m.factory.BotConfig != nil {
		botManager = bot.NewManager(*m.factory.BotConfig)
	}

	var spectators *spectator.Manager
	if m.factory.Spectators != spectator.ModeManual || m.factory.PlayZone != (spectator.Zone{}) {
		spectators = spectator.NewManager(m.factory.Spectators)
		spectators.PlayZone = m.factory.PlayZone
		spectators.MaxPlayers = def.MaxPlayers
	}

	sideFX := sidefx.NewQueue(m.factory.SideFX)
	sideFX.Start()

	r := room.New(room.Config{
		ID:         fmt.Sprintf("%s-%p", def.Name, transport),
		Def:        def,
		Registry:   reg,
		Logger:     logger,
		Transport:  transport,
		Bots:       botManager,
		BotSpawn:   m.factory.BotSpawn,
		Spectators: spectators,
		Physics:    physicsBridge,
		SideFX:     sideFX,
	})

	state := &matchState{
		room:             r,
		def:              def,
		transport:        transport,
		presences:        make(map[string]runtime.Presence),
		pendingSpectator: make(map[string]bool),
	}

	logger.Info("match %s initialized: tickRate=%d maxPlayers=%d", def.Name, def.TickRateHz(), def.MaxPlayers)

	tickRate := def.TickRateHz()
	if tickRate <= 0 {
		// Nakama's match loop cadence must be positive even for
		// event-driven games; pick a low idle rate purely to let MatchLoop
		// drain messages promptly. Simulation itself advances only on
		// input, never on this cadence (gamedef.Definition.TickDriven).
		tickRate = 5
	}

	return state, tickRate, def.Name
}

func (m *Match) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	st, ok := state.(*matchState)
	if !ok {
		logger.Error("match state has unexpected type")
		return nil, false, "internal server error"
	}

	if _, err := credentials.Parse(metadata); err != nil {
		logger.Warn("rejecting join for %s: %v", presence.GetUserId(), err)
		return st, false, err.Error()
	}

	x, y, hasXY := parseJoinPosition(metadata)
	spectate := st.room.Spectators().ShouldSpectate(x, y, hasXY, st.room.PlayerCount())
	st.pendingSpectator[presence.GetUserId()] = spectate

	return st, true, ""
}

// parseJoinPosition reads optional "x"/"y" metadata fields used by
// spectator.ModeZone to decide whether a joiner is inside the play zone.
// Absent or unparseable values report hasXY=false.
func parseJoinPosition(metadata map[string]string) (x, y float64, hasXY bool) {
	xs, xok := metadata["x"]
	ys, yok := metadata["y"]
	if !xok || !yok {
		return 0, 0, false
	}
	xf, err := strconv.ParseFloat(xs, 64)
	if err != nil {
		return 0, 0, false
	}
	yf, err := strconv.ParseFloat(ys, 64)
	if err != nil {
		return 0, 0, false
	}
	return xf, yf, true
}

func (m *Match) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	st, ok := state.(*matchState)
	if !ok {
		logger.Error("match state has unexpected type")
		return nil
	}
	st.transport.setDispatcher(dispatcher)

	for _, presence := range presences {
		userID := presence.GetUserId()

		if st.pendingSpectator[userID] {
			delete(st.pendingSpectator, userID)
			st.room.Spectators().Add(userID)
			if st.def.Hooks.OnSpectatorJoin != nil {
				st.def.Hooks.OnSpectatorJoin(st.room, userID)
			}
			st.presences[userID] = presence
			continue
		}
		delete(st.pendingSpectator, userID)

		identity := map[string]any{
			"username":  presence.GetUsername(),
			"sessionId": presence.GetSessionId(),
		}
		if _, err := st.room.Join(ctx, userID, identity); err != nil {
			logger.Error("join rejected for %s after MatchJoinAttempt accepted it: %v", userID, err)
			continue
		}
		st.presences[userID] = presence
	}

	return st
}

func (m *Match) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	st, ok := state.(*matchState)
	if !ok {
		logger.Error("match state has unexpected type")
		return nil
	}
	st.transport.setDispatcher(dispatcher)

	for _, presence := range presences {
		userID := presence.GetUserId()
		st.room.Leave(userID)
		st.room.Spectators().Remove(userID)
		delete(st.pendingSpectator, userID)
		delete(st.presences, userID)
	}

	return st
}

func (m *Match) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	st, ok := state.(*matchState)
	if !ok {
		logger.Error("match state has unexpected type")
		return nil
	}
	st.transport.setDispatcher(dispatcher)

	for _, msg := range messages {
		if msg.GetOpCode() != OpCodeInput {
			continue
		}
		var wire inputWireMessage
		if err := json.Unmarshal(msg.GetData(), &wire); err != nil {
			logger.Warn("discarding malformed input from %s: %v", msg.GetUserId(), err)
			continue
		}
		pkg := input.Package{Seq: wire.Seq, Timestamp: wire.Timestamp, Input: wire.Input}

		if st.def.TickDriven() {
			st.room.EnqueueInput(msg.GetUserId(), pkg)
		} else {
			st.room.HandleInputEventDriven(msg.GetUserId(), pkg)
		}
	}

	if st.def.TickDriven() {
		st.room.Tick(st.def.Delta())
	}

	if st.room.Status() == room.StatusClosed {
		logger.Info("match %s closed, ending Nakama match loop", st.def.Name)
		return nil
	}

	return st
}

func (m *Match) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	st, ok := state.(*matchState)
	if !ok {
		logger.Error("match state has unexpected type")
		return nil
	}
	st.transport.setDispatcher(dispatcher)
	st.room.Close(ctx)
	return st
}

func (m *Match) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	st, ok := state.(*matchState)
	if !ok {
		logger.Error("match state has unexpected type")
		return nil, "internal server error"
	}
	return st, ""
}

// dispatcherTransport adapts room.Transport onto runtime.MatchDispatcher.
// The dispatcher reference is refreshed on every lifecycle call since
// Nakama does not guarantee the same dispatcher value is reused across
// invocations.
type dispatcherTransport struct {
	logger     runtime.Logger
	dispatcher runtime.MatchDispatcher
}

func (t *dispatcherTransport) setDispatcher(d runtime.MatchDispatcher) {
	t.dispatcher = d
}

func (t *dispatcherTransport) BroadcastSnapshot(snap room.Snapshot) error {
	if t.dispatcher == nil {
		return nil
	}
	data, err := json.Marshal(wireMessage{Type: "snapshot", Data: snap})
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return t.dispatcher.BroadcastMessage(OpCodeSnapshot, data, nil, nil, true)
}

func (t *dispatcherTransport) BroadcastLifecycleEvent(event string, payload map[string]any) error {
	if t.dispatcher == nil {
		return nil
	}
	data, err := json.Marshal(wireMessage{Type: event, Data: payload})
	if err != nil {
		return fmt.Errorf("marshal lifecycle event %s: %w", event, err)
	}
	return t.dispatcher.BroadcastMessage(OpCodeLifecycle, data, nil, nil, true)
}
