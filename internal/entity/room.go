package entity

import "github.com/google/uuid"

// Room represents a room in which players gather and play a game.
type Room struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Players     []uuid.UUID `json:"players"`
	PlayerLimit int         `json:"player_limit,omitempty"`
	GameID      *uuid.UUID  `json:"game_id,omitempty"` // nil until the room is started
}

// HasPlayer reports whether the given player has joined the room.
func (r *Room) HasPlayer(id uuid.UUID) bool {
	for _, p := range r.Players {
		if p == id {
			return true
		}
	}
	return false
}

// RoomPatch is a partial room update pushed on the "room" channel.
// Nil fields leave the current value untouched.
type RoomPatch struct {
	ID      *uuid.UUID   `json:"id,omitempty"`
	Name    *string      `json:"name,omitempty"`
	Players *[]uuid.UUID `json:"players,omitempty"`
	GameID  *uuid.UUID   `json:"game_id,omitempty"`
}

// Apply overwrites the room fields present in the patch. Fields absent
// from the patch are preserved (field-level last-write-wins).
func (p RoomPatch) Apply(r *Room) {
	if p.ID != nil {
		r.ID = *p.ID
	}
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Players != nil {
		r.Players = *p.Players
	}
	if p.GameID != nil {
		r.GameID = p.GameID
	}
}
