package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/variant64/client/internal/entity"
	"github.com/variant64/client/internal/routes"
	"github.com/variant64/client/internal/socket"
)

// requester issues one HTTP call per named action. *rest.Client
// implements it.
type requester interface {
	Do(ctx context.Context, action routes.Action, params routes.Params, body any, out any) error
}

// commandConn sends socket commands and fans inbound updates out to
// named listeners. *socket.Client implements it.
type commandConn interface {
	Send(cmd entity.Command) error
	Subscribe(name string, fn socket.Listener)
}

// subscription is the per-channel marker: Unsubscribed, or
// Subscribed(id). A subscribe command for an id is sent at most once
// while that id remains the subscription target.
type subscription struct {
	subscribed bool
	id         uuid.UUID
}

// Service coordinates the request client, the socket connection and the
// session store. Every user-facing intent is one method; inbound push
// updates are merged into the store keyed by channel.
type Service struct {
	api   requester
	conn  commandConn
	store *Store

	mu      sync.Mutex
	roomSub subscription
	gameSub subscription
}

// New wires a Service to its collaborators and registers it for inbound
// socket dispatch.
func New(api requester, conn commandConn, store *Store) *Service {
	s := &Service{
		api:   api,
		conn:  conn,
		store: store,
	}
	s.conn.Subscribe("session", s.handleUpdate)
	return s
}

// Store returns the session store the service writes to.
func (s *Service) Store() *Store {
	return s.store
}

// RegisterCallback registers an additional named listener for every
// inbound socket message, after the service's own merge handling.
func (s *Service) RegisterCallback(name string, fn socket.Listener) {
	s.conn.Subscribe(name, fn)
}

type createPlayerRequest struct {
	DisplayName string `json:"display_name"`
}

type createRoomRequest struct {
	Name string `json:"room_name"`
}

type playerRequest struct {
	PlayerID uuid.UUID `json:"player_id"`
}

type startRoomRequest struct {
	RoomID           uuid.UUID `json:"room_id"`
	PlayerTimeMillis int64     `json:"player_time_ms"`
}

type moveRequest struct {
	PlayerID uuid.UUID   `json:"player_id"`
	Move     entity.Move `json:"move"`
}

func roomParams(roomID uuid.UUID) routes.Params {
	return routes.Params{routes.ParamRoomID: roomID.String()}
}

func gameParams(gameID uuid.UUID) routes.Params {
	return routes.Params{routes.ParamGameID: gameID.String()}
}

// CreatePlayer registers the local user and fills the player slot.
func (s *Service) CreatePlayer(ctx context.Context, displayName string) (entity.Player, error) {
	player := entity.Player{}
	if err := s.api.Do(ctx, routes.ActionCreatePlayer, nil, createPlayerRequest{DisplayName: displayName}, &player); err != nil {
		return entity.Player{}, err
	}
	s.store.SetPlayer(player)
	return player, nil
}

// GetPlayer fetches a player by id and fills the player slot.
func (s *Service) GetPlayer(ctx context.Context, playerID uuid.UUID) (entity.Player, error) {
	player := entity.Player{}
	params := routes.Params{routes.ParamPlayerID: playerID.String()}
	if err := s.api.Do(ctx, routes.ActionGetPlayer, params, nil, &player); err != nil {
		return entity.Player{}, err
	}
	s.store.SetPlayer(player)
	return player, nil
}

// CreateRoom creates a room and makes it the active room.
func (s *Service) CreateRoom(ctx context.Context, name string) (entity.Room, error) {
	room := entity.Room{}
	if err := s.api.Do(ctx, routes.ActionCreateRoom, nil, createRoomRequest{Name: name}, &room); err != nil {
		return entity.Room{}, err
	}
	s.store.SetRoom(room)
	return room, nil
}

// GetRooms fetches all rooms and fills the room list slot.
func (s *Service) GetRooms(ctx context.Context) ([]entity.Room, error) {
	rooms := []entity.Room{}
	if err := s.api.Do(ctx, routes.ActionGetRooms, nil, nil, &rooms); err != nil {
		return nil, err
	}
	s.store.SetRooms(rooms)
	return rooms, nil
}

// GetRoom fetches one room and makes it the active room.
func (s *Service) GetRoom(ctx context.Context, roomID uuid.UUID) (entity.Room, error) {
	room := entity.Room{}
	if err := s.api.Do(ctx, routes.ActionGetRoom, roomParams(roomID), nil, &room); err != nil {
		return entity.Room{}, err
	}
	s.store.SetRoom(room)
	return room, nil
}

// JoinRoom adds the player to the room and makes it the active room.
func (s *Service) JoinRoom(ctx context.Context, roomID, playerID uuid.UUID) (entity.Room, error) {
	room := entity.Room{}
	if err := s.api.Do(ctx, routes.ActionJoinRoom, roomParams(roomID), playerRequest{PlayerID: playerID}, &room); err != nil {
		return entity.Room{}, err
	}
	s.store.SetRoom(room)
	return room, nil
}

// LeaveRoom removes the player from the room, unsubscribes both
// channels and discards the room and game slots.
func (s *Service) LeaveRoom(ctx context.Context, roomID, playerID uuid.UUID) (entity.Room, error) {
	room := entity.Room{}
	if err := s.api.Do(ctx, routes.ActionLeaveRoom, roomParams(roomID), playerRequest{PlayerID: playerID}, &room); err != nil {
		return entity.Room{}, err
	}
	s.unsubscribeAll()
	s.store.ResetRoom()
	s.store.ResetGame()
	return room, nil
}

// StartRoom starts a game in the room. On success the returned game
// seeds the game slot and the game channel is subscribed.
func (s *Service) StartRoom(ctx context.Context, roomID uuid.UUID, playerTimeMillis int64) (entity.Game, error) {
	game := entity.Game{}
	body := startRoomRequest{RoomID: roomID, PlayerTimeMillis: playerTimeMillis}
	if err := s.api.Do(ctx, routes.ActionStartRoom, roomParams(roomID), body, &game); err != nil {
		return entity.Game{}, err
	}
	s.store.SetGame(game)
	if err := s.SubscribeToGameUpdates(game.ID); err != nil {
		klog.Errorf("Session: game subscription after start failed: %v", err)
	}
	return game, nil
}

// ConcedeGame concedes the game for the player.
func (s *Service) ConcedeGame(ctx context.Context, gameID, playerID uuid.UUID) (entity.Game, error) {
	game := entity.Game{}
	if err := s.api.Do(ctx, routes.ActionConcedeGame, gameParams(gameID), playerRequest{PlayerID: playerID}, &game); err != nil {
		return entity.Game{}, err
	}
	s.store.SetGame(game)
	return game, nil
}

// ApproveDraw records the player's approval of a draw.
func (s *Service) ApproveDraw(ctx context.Context, gameID, playerID uuid.UUID) (entity.Game, error) {
	game := entity.Game{}
	if err := s.api.Do(ctx, routes.ActionApproveDraw, gameParams(gameID), playerRequest{PlayerID: playerID}, &game); err != nil {
		return entity.Game{}, err
	}
	s.store.SetGame(game)
	return game, nil
}

// RejectDraw rejects a pending draw offer. The server resets every
// player's approval, so no player id is needed.
func (s *Service) RejectDraw(ctx context.Context, gameID uuid.UUID) (entity.Game, error) {
	game := entity.Game{}
	if err := s.api.Do(ctx, routes.ActionRejectDraw, gameParams(gameID), nil, &game); err != nil {
		return entity.Game{}, err
	}
	s.store.SetGame(game)
	return game, nil
}

// MakeMove forwards a move to the server. Legality is entirely
// server-side.
func (s *Service) MakeMove(ctx context.Context, gameID, playerID uuid.UUID, move entity.Move) (entity.Game, error) {
	game := entity.Game{}
	if err := s.api.Do(ctx, routes.ActionMakeMove, gameParams(gameID), moveRequest{PlayerID: playerID, Move: move}, &game); err != nil {
		return entity.Game{}, err
	}
	s.store.SetGame(game)
	return game, nil
}

// SubscribeToRoomUpdates subscribes the room channel to the given room.
// Repeat calls with the current id are suppressed; a new id always
// sends exactly one new subscribe command.
func (s *Service) SubscribeToRoomUpdates(roomID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.roomSub.subscribed && s.roomSub.id == roomID {
		return nil
	}
	cmd, err := entity.NewRoomCommand(entity.CommandSubscribe, roomID)
	if err != nil {
		return err
	}
	if err := s.conn.Send(cmd); err != nil {
		return err
	}
	s.roomSub = subscription{subscribed: true, id: roomID}
	return nil
}

// SubscribeToGameUpdates subscribes the game channel to the given game,
// with the same suppression rule as the room channel.
func (s *Service) SubscribeToGameUpdates(gameID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gameSub.subscribed && s.gameSub.id == gameID {
		return nil
	}
	cmd, err := entity.NewGameCommand(entity.CommandSubscribe, gameID)
	if err != nil {
		return err
	}
	if err := s.conn.Send(cmd); err != nil {
		return err
	}
	s.gameSub = subscription{subscribed: true, id: gameID}
	return nil
}

// unsubscribeAll sends best-effort unsubscribe commands for both
// channels and returns the markers to Unsubscribed. A closed socket is
// not an error here; the server drops its end with the connection.
func (s *Service) unsubscribeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.roomSub.subscribed {
		if cmd, err := entity.NewRoomCommand(entity.CommandUnsubscribe, s.roomSub.id); err == nil {
			if err := s.conn.Send(cmd); err != nil {
				klog.V(1).Infof("Session: room unsubscribe skipped: %v", err)
			}
		}
		s.roomSub = subscription{}
	}
	if s.gameSub.subscribed {
		if cmd, err := entity.NewGameCommand(entity.CommandUnsubscribe, s.gameSub.id); err == nil {
			if err := s.conn.Send(cmd); err != nil {
				klog.V(1).Infof("Session: game unsubscribe skipped: %v", err)
			}
		}
		s.gameSub = subscription{}
	}
}

// handleUpdate merges one inbound push message into the store. Unknown
// channels are ignored.
func (s *Service) handleUpdate(update entity.Update) {
	switch update.Channel {
	case entity.ChannelRoom:
		patch, err := update.RoomPatch()
		if err != nil {
			klog.Errorf("Session: dropping room update: %v", err)
			return
		}
		room := s.store.MergeRoom(patch)
		if room.GameID != nil {
			s.cascadeGameSubscription(*room.GameID)
		}
	case entity.ChannelGame:
		patch, err := update.GamePatch()
		if err != nil {
			klog.Errorf("Session: dropping game update: %v", err)
			return
		}
		s.store.MergeGame(patch)
	default:
		klog.V(1).Infof("Session: ignoring update on channel %q", update.Channel)
	}
}

// cascadeGameSubscription makes gameID the game-channel target when the
// room announces a game we are not yet subscribed to, seeding the game
// slot with the bare id until the first snapshot arrives.
func (s *Service) cascadeGameSubscription(gameID uuid.UUID) {
	s.mu.Lock()
	current := s.gameSub
	s.mu.Unlock()
	if current.subscribed && current.id == gameID {
		return
	}

	s.store.SetGame(entity.Game{ID: gameID})
	if err := s.SubscribeToGameUpdates(gameID); err != nil {
		klog.Errorf("Session: cascading game subscription for %s failed: %v", gameID, err)
	}
}
