package session

import (
	"sync"

	"github.com/variant64/client/internal/entity"
)

// Store holds the session-scoped cache slots: the current player, the
// active room, the active game and the room list. It is always a
// possibly-stale mirror of server state, refreshed by request responses
// and by push merges. Only the Service writes slots; presentation code
// reads them and issues new intents.
type Store struct {
	mu     sync.RWMutex
	player *entity.Player
	room   *entity.Room
	game   *entity.Game
	rooms  []entity.Room

	watchMu  sync.Mutex
	watchers map[string]func()
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		watchers: make(map[string]func()),
	}
}

// Player returns the current player slot.
func (s *Store) Player() (entity.Player, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.player == nil {
		return entity.Player{}, false
	}
	return *s.player, true
}

// Room returns the active room slot.
func (s *Store) Room() (entity.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.room == nil {
		return entity.Room{}, false
	}
	return *s.room, true
}

// Game returns the active game slot.
func (s *Store) Game() (entity.Game, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.game == nil {
		return entity.Game{}, false
	}
	return *s.game, true
}

// Rooms returns the last fetched room list.
func (s *Store) Rooms() []entity.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rooms := make([]entity.Room, len(s.rooms))
	copy(rooms, s.rooms)
	return rooms
}

// SetPlayer replaces the player slot.
func (s *Store) SetPlayer(p entity.Player) {
	s.mu.Lock()
	s.player = &p
	s.mu.Unlock()
	s.notify()
}

// SetRoom replaces the active room slot.
func (s *Store) SetRoom(r entity.Room) {
	s.mu.Lock()
	s.room = &r
	s.mu.Unlock()
	s.notify()
}

// SetRooms replaces the room list slot.
func (s *Store) SetRooms(rooms []entity.Room) {
	s.mu.Lock()
	s.rooms = rooms
	s.mu.Unlock()
	s.notify()
}

// SetGame replaces the active game slot.
func (s *Store) SetGame(g entity.Game) {
	s.mu.Lock()
	s.game = &g
	s.mu.Unlock()
	s.notify()
}

// MergeRoom applies a partial room update to the active room slot,
// creating the slot when empty. Writing to a reset slot simply
// recreates it, so a merge landing after navigation is harmless.
func (s *Store) MergeRoom(patch entity.RoomPatch) entity.Room {
	s.mu.Lock()
	if s.room == nil {
		s.room = &entity.Room{}
	}
	patch.Apply(s.room)
	merged := *s.room
	s.mu.Unlock()
	s.notify()
	return merged
}

// MergeGame applies a partial game update to the active game slot,
// creating the slot when empty.
func (s *Store) MergeGame(patch entity.GamePatch) entity.Game {
	s.mu.Lock()
	if s.game == nil {
		s.game = &entity.Game{}
	}
	patch.Apply(s.game)
	merged := *s.game
	s.mu.Unlock()
	s.notify()
	return merged
}

// ResetRoom discards the active room slot.
func (s *Store) ResetRoom() {
	s.mu.Lock()
	s.room = nil
	s.mu.Unlock()
	s.notify()
}

// ResetGame discards the active game slot.
func (s *Store) ResetGame() {
	s.mu.Lock()
	s.game = nil
	s.mu.Unlock()
	s.notify()
}

// Watch registers a named callback invoked after every slot write.
// Registering under an existing name replaces the previous callback.
func (s *Store) Watch(name string, fn func()) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	s.watchers[name] = fn
}

// Unwatch removes a named callback.
func (s *Store) Unwatch(name string) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	delete(s.watchers, name)
}

func (s *Store) notify() {
	s.watchMu.Lock()
	watchers := make([]func(), 0, len(s.watchers))
	for _, fn := range s.watchers {
		if fn != nil {
			watchers = append(watchers, fn)
		}
	}
	s.watchMu.Unlock()

	for _, fn := range watchers {
		fn()
	}
}
