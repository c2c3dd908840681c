// Package persistence implements the single-checkpoint handoff a room can
// use to survive a process restart: one write, one matching read, keyed by
// room id. Adapted from the teacher's database_manager.go, narrowed from
// its periodic world/player/settings save machinery down to the
// checkpoint-handoff scope (spec.md's Non-goals exclude a full persistence
// layer; the underlying nakama-common storage API is still exercised in
// full, just through one collection instead of four).
package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"

	"github.com/wildspark/arena/internal/entity"
	"github.com/wildspark/arena/internal/schema"
)

// Collection is the single Nakama storage collection checkpoints live in.
const Collection = "room_checkpoints"

// Checkpoint is the persisted state of one room at handoff time.
type Checkpoint struct {
	RoomID    string           `json:"roomId"`
	Tick      uint64           `json:"tick"`
	SavedAt   time.Time        `json:"savedAt"`
	Entities  []map[string]any `json:"entities"`
}

// Store wraps runtime.NakamaModule's storage API behind the narrow
// save/restore pair a room needs at handoff time.
type Store struct {
	nk     runtime.NakamaModule
	logger runtime.Logger
}

// NewStore returns a Store backed by nk.
func NewStore(nk runtime.NakamaModule, logger runtime.Logger) *Store {
	return &Store{nk: nk, logger: logger}
}

// Save writes a checkpoint for roomID capturing every entity's schema
// fields, keyed by roomID so a later Load for the same id restores it.
func (s *Store) Save(ctx context.Context, roomID string, tick uint64, entities []*entity.Entity, reg *schema.Registry) error {
	snap := make([]map[string]any, 0, len(entities))
	for _, e := range entities {
		snap = append(snap, e.Snapshot(reg))
	}

	cp := Checkpoint{RoomID: roomID, Tick: tick, SavedAt: time.Now(), Entities: snap}
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint for room %s: %w", roomID, err)
	}

	writes := []*runtime.StorageWrite{
		{
			Collection:      Collection,
			Key:             roomID,
			UserID:          "",
			Value:           string(data),
			PermissionRead:  runtime.STORAGE_PERMISSION_NO_READ,
			PermissionWrite: runtime.STORAGE_PERMISSION_NO_READ,
		},
	}
	if _, err := s.nk.StorageWrite(ctx, writes); err != nil {
		if s.logger != nil {
			s.logger.Error("persistence: failed to save checkpoint for room %s: %v", roomID, err)
		}
		return err
	}
	if s.logger != nil {
		s.logger.Info("persistence: checkpoint saved for room %s at tick %d", roomID, tick)
	}
	return nil
}

// Load retrieves the checkpoint for roomID, if one exists. A missing
// checkpoint is not an error: (nil, nil) signals a fresh room.
func (s *Store) Load(ctx context.Context, roomID string) (*Checkpoint, error) {
	reads := []*runtime.StorageRead{
		{Collection: Collection, Key: roomID, UserID: ""},
	}
	objects, err := s.nk.StorageRead(ctx, reads)
	if err != nil {
		return nil, fmt.Errorf("read checkpoint for room %s: %w", roomID, err)
	}
	if len(objects) == 0 {
		return nil, nil
	}

	var cp Checkpoint
	if err := json.Unmarshal([]byte(objects[0].GetValue()), &cp); err != nil {
		return nil, fmt.Errorf("unmarshal checkpoint for room %s: %w", roomID, err)
	}
	return &cp, nil
}

// Restore applies a loaded Checkpoint's entity snapshots onto a freshly
// created entity collection, re-declaring each entity under its recorded
// class. The collection's schema registry must already declare every class
// referenced in the checkpoint; unknown fields are ignored per
// entity.ApplySnapshot's contract.
func Restore(cp *Checkpoint, reg *schema.Registry, coll *entity.Collection, classOf func(snapshot map[string]any) string) {
	if cp == nil {
		return
	}
	for _, snap := range cp.Entities {
		class := classOf(snap)
		e := entity.New(class)
		e.ApplySnapshot(reg, snap)
		coll.Add(e)
	}
}
