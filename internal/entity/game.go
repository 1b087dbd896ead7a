package entity

import "github.com/google/uuid"

// Game states as reported by the server.
const (
	GameStateNotStarted = "not_started"
	GameStateStarted    = "started"
	GameStateFinished   = "finished"
)

// Game represents an on-going game between the players of a room. The
// client never constructs a full Game itself; it receives partial
// snapshots from the server and merges them.
type Game struct {
	ID           uuid.UUID           `json:"id"`
	ActivePlayer *uuid.UUID          `json:"active_player,omitempty"`
	Winners      []uuid.UUID         `json:"winning_players"`
	Losers       []uuid.UUID         `json:"losing_players"`
	Drawn        []uuid.UUID         `json:"drawn_players"`
	ApprovedDraw map[uuid.UUID]bool  `json:"approved_draw_players"`
	State        string              `json:"state"`
	Clocks       map[uuid.UUID]int64 `json:"clocks,omitempty"` // remaining time per player, milliseconds
}

// Finished reports whether the game has ended by win, concession or draw.
func (g *Game) Finished() bool {
	return g.State == GameStateFinished
}

// GamePatch is a partial game update pushed on the "game" channel.
// Nil fields leave the current value untouched.
type GamePatch struct {
	ID           *uuid.UUID           `json:"id,omitempty"`
	ActivePlayer *uuid.UUID           `json:"active_player,omitempty"`
	Winners      *[]uuid.UUID         `json:"winning_players,omitempty"`
	Losers       *[]uuid.UUID         `json:"losing_players,omitempty"`
	Drawn        *[]uuid.UUID         `json:"drawn_players,omitempty"`
	ApprovedDraw *map[uuid.UUID]bool  `json:"approved_draw_players,omitempty"`
	State        *string              `json:"state,omitempty"`
	Clocks       *map[uuid.UUID]int64 `json:"clocks,omitempty"`
}

// Apply overwrites the game fields present in the patch. The merge is
// field-level: a patch carrying clocks replaces the whole clocks map.
func (p GamePatch) Apply(g *Game) {
	if p.ID != nil {
		g.ID = *p.ID
	}
	if p.ActivePlayer != nil {
		g.ActivePlayer = p.ActivePlayer
	}
	if p.Winners != nil {
		g.Winners = *p.Winners
	}
	if p.Losers != nil {
		g.Losers = *p.Losers
	}
	if p.Drawn != nil {
		g.Drawn = *p.Drawn
	}
	if p.ApprovedDraw != nil {
		g.ApprovedDraw = *p.ApprovedDraw
	}
	if p.State != nil {
		g.State = *p.State
	}
	if p.Clocks != nil {
		g.Clocks = *p.Clocks
	}
}
