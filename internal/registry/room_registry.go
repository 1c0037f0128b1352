// Package registry holds the two process-wide mutable structures of the
// session/room core: the player registry (single-login enforcement) and the
// room registry (room lookup/creation/removal), both described in spec.md
// §4.3/§4.4. Both are guarded by a plain sync.RWMutex, exactly the pattern
// the teacher's RoomManagerActor already used internally for its own
// `rooms`/`roomInfo` maps — pulled out here into its own type so get() can
// take a shared read lock independently of get_or_create()/remove().
package registry

import (
	"sync"

	"github.com/asynkron/protoactor-go/actor"

	"github.com/phuhao00/roomrealm/internal/entity"
	"github.com/phuhao00/roomrealm/internal/metrics"
)

// SpawnRoomFunc spawns a new room actor for roomID with the given config and
// returns its PID. The registry calls this exactly once per room, while
// holding its write lock, so two concurrent GetOrCreate calls for the same
// unseen roomID can never both spawn a room.
type SpawnRoomFunc func(roomID entity.RoomId, config entity.RoomConfig) *actor.PID

// RoomRegistry is the mapping RoomId -> room inbound queue handle (a
// protoactor PID). Reads (Get) take a shared lock; GetOrCreate and Remove
// take the exclusive lock, so a GetOrCreate that observes no entry is
// guaranteed to create a fresh room rather than race a Remove that is
// already in flight for a dying room of the same id (spec.md §4.3, §9).
type RoomRegistry struct {
	mu    sync.RWMutex
	rooms map[entity.RoomId]*actor.PID
	spawn SpawnRoomFunc
}

func NewRoomRegistry(spawn SpawnRoomFunc) *RoomRegistry {
	return &RoomRegistry{
		rooms: make(map[entity.RoomId]*actor.PID),
		spawn: spawn,
	}
}

// Get returns the room's PID if it currently exists in the registry.
func (r *RoomRegistry) Get(id entity.RoomId) (*actor.PID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pid, ok := r.rooms[id]
	return pid, ok
}

// GetOrCreate returns the existing room's PID, or spawns and registers a
// fresh one under the given config if none exists yet. The config is only
// used for a freshly created room; if a room already exists its own config
// remains authoritative (a joiner with a mismatched config is rejected by
// the room actor itself, not here).
func (r *RoomRegistry) GetOrCreate(id entity.RoomId, config entity.RoomConfig) *actor.PID {
	r.mu.Lock()
	defer r.mu.Unlock()
	if pid, ok := r.rooms[id]; ok {
		return pid
	}
	pid := r.spawn(id, config)
	r.rooms[id] = pid
	metrics.ActiveRooms.Set(float64(len(r.rooms)))
	return pid
}

// Remove deletes id from the registry. Called only by a room actor on its
// own self-termination, under the same write lock GetOrCreate uses, so no
// lookup started after Remove returns can observe the dead room.
func (r *RoomRegistry) Remove(id entity.RoomId) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, id)
	metrics.ActiveRooms.Set(float64(len(r.rooms)))
}

// Count returns the number of currently registered rooms. Exposed for tests.
func (r *RoomRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
