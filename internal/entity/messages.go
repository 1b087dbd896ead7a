package entity

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Channel names multiplexed over the single socket connection.
const (
	ChannelRoom = "room"
	ChannelGame = "game"
)

// Socket command verbs understood by the server.
const (
	CommandSubscribe   = "subscribe"
	CommandUnsubscribe = "unsubscribe"
)

// Command is the envelope for every outbound socket message. Body is a
// JSON-encoded string, matching the server's websocket request format.
type Command struct {
	Channel string `json:"channel"`
	Command string `json:"command"`
	Body    string `json:"body"`
}

// NewRoomCommand builds a room-channel command addressing one room.
func NewRoomCommand(command string, roomID uuid.UUID) (Command, error) {
	return newCommand(ChannelRoom, command, struct {
		RoomID uuid.UUID `json:"room_id"`
	}{RoomID: roomID})
}

// NewGameCommand builds a game-channel command addressing one game.
func NewGameCommand(command string, gameID uuid.UUID) (Command, error) {
	return newCommand(ChannelGame, command, struct {
		GameID uuid.UUID `json:"game_id"`
	}{GameID: gameID})
}

func newCommand(channel, command string, body any) (Command, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return Command{}, fmt.Errorf("failed to marshal command body: %w", err)
	}
	return Command{
		Channel: channel,
		Command: command,
		Body:    string(bodyBytes),
	}, nil
}

// UpdateType tags how much of the entity an inbound update carries.
type UpdateType string

const (
	UpdateTypeNone     UpdateType = "none"
	UpdateTypeSnapshot UpdateType = "snapshot"
	UpdateTypeDelta    UpdateType = "delta"
)

// Update is the envelope for every inbound push message. Data stays raw
// until the channel is known.
type Update struct {
	Channel string          `json:"channel"`
	Type    UpdateType      `json:"type,omitempty"`
	Data    json.RawMessage `json:"data"`
}

// RoomPatch decodes the update data as a partial room update.
func (u Update) RoomPatch() (RoomPatch, error) {
	patch := RoomPatch{}
	if len(u.Data) == 0 {
		return patch, nil
	}
	err := json.Unmarshal(u.Data, &patch)
	return patch, err
}

// GamePatch decodes the update data as a partial game update.
func (u Update) GamePatch() (GamePatch, error) {
	patch := GamePatch{}
	if len(u.Data) == 0 {
		return patch, nil
	}
	err := json.Unmarshal(u.Data, &patch)
	return patch, err
}
