package entity

// Position addresses a square on the board in server coordinates.
type Position struct {
	Rank int `json:"rank"`
	File int `json:"file"`
}

// Move describes a single piece move. Legality is decided entirely by
// the server; the client only forwards it.
type Move struct {
	Source      Position `json:"source"`
	Destination Position `json:"destination"`
	Type        string   `json:"type,omitempty"`
}
