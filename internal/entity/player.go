package entity

import "github.com/google/uuid"

// Player represents the local user as known by the server. It is
// created once by the create-player call and immutable afterwards.
type Player struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
}
