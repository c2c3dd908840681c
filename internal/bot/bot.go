// Package bot implements the scripted-opponent scheduler described in
// spec.md §4.6: filling empty player slots, despawning the oldest bot when
// a human joins, and accumulating think-time per bot.
package bot

import (
	"math/rand"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/wildspark/arena/internal/entity"
)

var nextBotSeq uint64

// nextBotID hands out a process-global, ephemeral bot id counter
// (spec.md §9 open question: not persisted across restarts). Atomic by
// construction per spec.md §5's single-threaded-increment requirement.
func nextBotID() uint64 {
	return atomic.AddUint64(&nextBotSeq, 1)
}

// RoomView is the subset of room state a bot behavior may read while
// deciding what to do; internal/room.Room satisfies it. Defined here
// (rather than depending on internal/gamedef) so internal/bot stays a leaf
// package gamedef itself can depend on for Manager access.
type RoomView interface {
	State() map[string]any
	Entities() *entity.Collection
}

// Behavior bundles a bot's think cadence and callbacks. ThinkRate is in Hz.
// A nil ThinkRate means "think every step" (interval = delta, per spec.md
// §4.6); a non-nil zero disables automatic thinking entirely (the bot only
// reacts to OnMyTurn, which the game invokes explicitly, never the
// scheduler).
type Behavior struct {
	Name      string
	ThinkRate *float64
	Think     func(b *Bot, room RoomView, delta float64)
	OnMyTurn  func(b *Bot)
}

// Bot is a managed pseudo-player: generated id, chosen name, behavior
// reference, owned entity, and a think-time accumulator.
type Bot struct {
	ID               uint64
	Name             string
	Behavior         Behavior
	Entity           *entity.Entity
	SendInput        func(input map[string]any)
	thinkAccumulator float64
}

// SpawnFunc creates the entity+input-sink pair for a new bot; it mirrors
// the teacher's spawn callback pattern (caller owns entity creation, the
// manager only tracks bookkeeping).
type SpawnFunc func(name string) (e *entity.Entity, sendInput func(input map[string]any))

// Config mirrors spec.md §4.6's manager configuration.
type Config struct {
	FillTo         int
	Behaviors      []Behavior
	DespawnOnJoin  bool
	Names          []string
}

// Manager schedules bot thinking and enforces the fillTo population target.
type Manager struct {
	mu       sync.Mutex
	cfg      Config
	bots     []*Bot
	nameIdx  int
	spawnSeq uint64
}

// NewManager returns a Manager configured per cfg.
func NewManager(cfg Config) *Manager {
	return &Manager{cfg: cfg}
}

// Count returns the current number of managed bots.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bots)
}

// Bots returns a snapshot of the currently managed bots.
func (m *Manager) Bots() []*Bot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Bot, len(m.bots))
	copy(out, m.bots)
	return out
}

// nextName round-robins through cfg.Names, falling back to "Bot N".
// Must be called with m.mu held.
func (m *Manager) nextName() string {
	if len(m.cfg.Names) > 0 {
		name := m.cfg.Names[m.nameIdx%len(m.cfg.Names)]
		m.nameIdx++
		return name
	}
	m.spawnSeq++
	return "Bot " + strconv.FormatUint(m.spawnSeq, 10)
}

// randomBehavior picks a behavior uniformly at random. Must be called with
// m.mu held.
func (m *Manager) randomBehavior() Behavior {
	if len(m.cfg.Behaviors) == 0 {
		return Behavior{}
	}
	return m.cfg.Behaviors[rand.Intn(len(m.cfg.Behaviors))]
}

// FillBots computes max(0, fillTo - humanCount - currentBotCount) and
// creates that many bots via spawn, each with a round-robin name and a
// randomly chosen behavior. Returns the newly created bots.
func (m *Manager) FillBots(humanCount int, spawn SpawnFunc) []*Bot {
	m.mu.Lock()
	defer m.mu.Unlock()

	deficit := m.cfg.FillTo - humanCount - len(m.bots)
	if deficit <= 0 {
		return nil
	}

	created := make([]*Bot, 0, deficit)
	for i := 0; i < deficit; i++ {
		name := m.nextName()
		e, sendInput := spawn(name)
		e.IsBot = true
		b := &Bot{
			ID:        nextBotID(),
			Name:      name,
			Behavior:  m.randomBehavior(),
			Entity:    e,
			SendInput: sendInput,
		}
		m.bots = append(m.bots, b)
		created = append(created, b)
	}
	return created
}

// DespawnOne removes and returns the oldest bot (lowest index, i.e. first
// created), so the caller (room) can despawn its entity. Returns false if
// there are no bots to despawn.
func (m *Manager) DespawnOne() (*Bot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.bots) == 0 {
		return nil, false
	}
	b := m.bots[0]
	m.bots = m.bots[1:]
	return b, true
}

// DespawnOnJoin reports whether the manager is configured to make room for
// a joining human by despawning a bot.
func (m *Manager) DespawnOnJoin() bool {
	return m.cfg.DespawnOnJoin
}

// Remove deletes a specific bot by id (e.g. if it was despawned through a
// game-specific path rather than DespawnOne).
func (m *Manager) Remove(id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, b := range m.bots {
		if b.ID == id {
			m.bots = append(m.bots[:i], m.bots[i+1:]...)
			return
		}
	}
}

// Step accumulates delta into each bot's thinkAccumulator and invokes
// Behavior.Think when it reaches 1/ThinkRate — or delta itself when
// ThinkRate is absent (nil), meaning "think every step" per spec.md §4.6.
// A non-nil ThinkRate of 0 disables automatic thinking entirely for that
// bot. room is passed through to Think unchanged so behaviors can inspect
// world state (other entities, room.State()) when deciding what to do.
func (m *Manager) Step(delta float64, room RoomView) {
	m.mu.Lock()
	bots := make([]*Bot, len(m.bots))
	copy(bots, m.bots)
	m.mu.Unlock()

	for _, b := range bots {
		if b.Behavior.Think == nil {
			continue
		}
		var interval float64
		switch {
		case b.Behavior.ThinkRate == nil:
			interval = delta
		case *b.Behavior.ThinkRate <= 0:
			continue
		default:
			interval = 1.0 / *b.Behavior.ThinkRate
		}
		if interval <= 0 {
			continue
		}
		b.thinkAccumulator += delta
		for b.thinkAccumulator >= interval {
			b.Behavior.Think(b, room, interval)
			b.thinkAccumulator -= interval
		}
	}
}
