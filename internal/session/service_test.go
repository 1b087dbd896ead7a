package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/variant64/client/internal/entity"
	"github.com/variant64/client/internal/rest"
	"github.com/variant64/client/internal/routes"
	"github.com/variant64/client/internal/socket"
)

type apiCall struct {
	action routes.Action
	params routes.Params
	body   string
}

// fakeAPI implements requester in memory, answering each action with a
// canned entity.
type fakeAPI struct {
	t       *testing.T
	calls   []apiCall
	respond map[routes.Action]any
	errs    map[routes.Action]error
}

func newFakeAPI(t *testing.T) *fakeAPI {
	return &fakeAPI{
		t:       t,
		respond: map[routes.Action]any{},
		errs:    map[routes.Action]error{},
	}
}

func (f *fakeAPI) Do(_ context.Context, action routes.Action, params routes.Params, body any, out any) error {
	payload, err := json.Marshal(body)
	require.NoError(f.t, err)
	f.calls = append(f.calls, apiCall{action: action, params: params, body: string(payload)})

	if err := f.errs[action]; err != nil {
		return err
	}
	resp, ok := f.respond[action]
	if !ok || out == nil {
		return nil
	}
	data, err := json.Marshal(resp)
	require.NoError(f.t, err)
	return json.Unmarshal(data, out)
}

// fakeConn implements commandConn in memory, recording sent commands
// and letting the test push inbound updates.
type fakeConn struct {
	commands  []entity.Command
	sendErr   error
	names     []string
	listeners map[string]socket.Listener
}

func newFakeConn() *fakeConn {
	return &fakeConn{listeners: map[string]socket.Listener{}}
}

func (f *fakeConn) Send(cmd entity.Command) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.commands = append(f.commands, cmd)
	return nil
}

func (f *fakeConn) Subscribe(name string, fn socket.Listener) {
	if _, ok := f.listeners[name]; !ok {
		f.names = append(f.names, name)
	}
	f.listeners[name] = fn
}

func (f *fakeConn) push(u entity.Update) {
	for _, name := range f.names {
		f.listeners[name](u)
	}
}

func newTestService(t *testing.T) (*Service, *fakeAPI, *fakeConn) {
	api := newFakeAPI(t)
	conn := newFakeConn()
	return New(api, conn, NewStore()), api, conn
}

func TestCreatePlayerFillsStore(t *testing.T) {
	service, api, _ := newTestService(t)
	player := entity.Player{ID: uuid.New(), DisplayName: "hikaru"}
	api.respond[routes.ActionCreatePlayer] = player

	got, err := service.CreatePlayer(context.Background(), "hikaru")
	require.NoError(t, err)
	assert.Equal(t, player, got)

	stored, ok := service.Store().Player()
	require.True(t, ok)
	assert.Equal(t, player, stored)
	require.Len(t, api.calls, 1)
	assert.JSONEq(t, `{"display_name":"hikaru"}`, api.calls[0].body)
}

func TestJoinRoomFillsStore(t *testing.T) {
	service, api, _ := newTestService(t)
	playerID := uuid.New()
	room := entity.Room{ID: uuid.New(), Name: "casual", Players: []uuid.UUID{playerID}}
	api.respond[routes.ActionJoinRoom] = room

	got, err := service.JoinRoom(context.Background(), room.ID, playerID)
	require.NoError(t, err)
	assert.True(t, got.HasPlayer(playerID))

	require.Len(t, api.calls, 1)
	assert.Equal(t, room.ID.String(), api.calls[0].params[routes.ParamRoomID])
	assert.JSONEq(t, `{"player_id":"`+playerID.String()+`"}`, api.calls[0].body)
}

func TestFailedRequestLeavesStoreUntouched(t *testing.T) {
	service, api, _ := newTestService(t)
	api.errs[routes.ActionJoinRoom] = &rest.Error{
		Action:     routes.ActionJoinRoom,
		Kind:       rest.KindServer,
		StatusCode: http.StatusConflict,
		Message:    "room is full",
	}

	_, err := service.JoinRoom(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)

	_, ok := service.Store().Room()
	assert.False(t, ok)
}

func TestSubscribeToRoomUpdatesIsIdempotent(t *testing.T) {
	service, _, conn := newTestService(t)
	roomID := uuid.New()

	require.NoError(t, service.SubscribeToRoomUpdates(roomID))
	require.NoError(t, service.SubscribeToRoomUpdates(roomID))
	require.Len(t, conn.commands, 1)
	assert.Equal(t, entity.CommandSubscribe, conn.commands[0].Command)
	assert.Equal(t, entity.ChannelRoom, conn.commands[0].Channel)

	// A different room is a new subscription target.
	otherID := uuid.New()
	require.NoError(t, service.SubscribeToRoomUpdates(otherID))
	require.Len(t, conn.commands, 2)
	assert.JSONEq(t, `{"room_id":"`+otherID.String()+`"}`, conn.commands[1].Body)
}

func TestSubscribeSendFailureLeavesMarkerUnset(t *testing.T) {
	service, _, conn := newTestService(t)
	roomID := uuid.New()

	conn.sendErr = socket.ErrUnavailable
	require.ErrorIs(t, service.SubscribeToRoomUpdates(roomID), socket.ErrUnavailable)

	// Once the socket works again the same id must be retried.
	conn.sendErr = nil
	require.NoError(t, service.SubscribeToRoomUpdates(roomID))
	require.Len(t, conn.commands, 1)
}

func TestStartRoomSeedsGameAndSubscribes(t *testing.T) {
	service, api, conn := newTestService(t)
	roomID := uuid.New()
	game := entity.Game{ID: uuid.New(), State: entity.GameStateStarted}
	api.respond[routes.ActionStartRoom] = game

	got, err := service.StartRoom(context.Background(), roomID, 300000)
	require.NoError(t, err)
	assert.Equal(t, game.ID, got.ID)

	stored, ok := service.Store().Game()
	require.True(t, ok)
	assert.Equal(t, game.ID, stored.ID)

	require.Len(t, api.calls, 1)
	assert.JSONEq(t, `{"room_id":"`+roomID.String()+`","player_time_ms":300000}`, api.calls[0].body)
	require.Len(t, conn.commands, 1)
	assert.Equal(t, entity.ChannelGame, conn.commands[0].Channel)
	assert.Equal(t, entity.CommandSubscribe, conn.commands[0].Command)
}

func TestMakeMoveSendsMove(t *testing.T) {
	service, api, _ := newTestService(t)
	gameID, playerID := uuid.New(), uuid.New()
	api.respond[routes.ActionMakeMove] = entity.Game{ID: gameID}

	move := entity.Move{
		Source:      entity.Position{Rank: 1, File: 4},
		Destination: entity.Position{Rank: 3, File: 4},
	}
	_, err := service.MakeMove(context.Background(), gameID, playerID, move)
	require.NoError(t, err)

	require.Len(t, api.calls, 1)
	assert.Equal(t, routes.ActionMakeMove, api.calls[0].action)
	assert.Equal(t, gameID.String(), api.calls[0].params[routes.ParamGameID])
	body := map[string]any{}
	require.NoError(t, json.Unmarshal([]byte(api.calls[0].body), &body))
	assert.Equal(t, playerID.String(), body["player_id"])
	assert.Contains(t, body, "move")
}

func TestDrawActions(t *testing.T) {
	service, api, _ := newTestService(t)
	gameID, playerID := uuid.New(), uuid.New()
	game := entity.Game{ID: gameID, State: entity.GameStateStarted}
	api.respond[routes.ActionApproveDraw] = game
	api.respond[routes.ActionRejectDraw] = game
	api.respond[routes.ActionConcedeGame] = game

	_, err := service.ApproveDraw(context.Background(), gameID, playerID)
	require.NoError(t, err)
	_, err = service.RejectDraw(context.Background(), gameID)
	require.NoError(t, err)
	_, err = service.ConcedeGame(context.Background(), gameID, playerID)
	require.NoError(t, err)

	require.Len(t, api.calls, 3)
	assert.Equal(t, routes.ActionApproveDraw, api.calls[0].action)
	assert.JSONEq(t, `{"player_id":"`+playerID.String()+`"}`, api.calls[0].body)
	assert.Equal(t, routes.ActionRejectDraw, api.calls[1].action)
	assert.Equal(t, routes.ActionConcedeGame, api.calls[2].action)

	stored, ok := service.Store().Game()
	require.True(t, ok)
	assert.Equal(t, gameID, stored.ID)
}

func TestLeaveRoomUnsubscribesAndResets(t *testing.T) {
	service, api, conn := newTestService(t)
	roomID, gameID, playerID := uuid.New(), uuid.New(), uuid.New()
	api.respond[routes.ActionLeaveRoom] = entity.Room{ID: roomID}

	require.NoError(t, service.SubscribeToRoomUpdates(roomID))
	require.NoError(t, service.SubscribeToGameUpdates(gameID))
	service.Store().SetRoom(entity.Room{ID: roomID})
	service.Store().SetGame(entity.Game{ID: gameID})
	conn.commands = nil

	_, err := service.LeaveRoom(context.Background(), roomID, playerID)
	require.NoError(t, err)

	require.Len(t, conn.commands, 2)
	assert.Equal(t, entity.CommandUnsubscribe, conn.commands[0].Command)
	assert.Equal(t, entity.ChannelRoom, conn.commands[0].Channel)
	assert.Equal(t, entity.CommandUnsubscribe, conn.commands[1].Command)
	assert.Equal(t, entity.ChannelGame, conn.commands[1].Channel)

	_, ok := service.Store().Room()
	assert.False(t, ok)
	_, ok = service.Store().Game()
	assert.False(t, ok)

	// Both channels are fresh targets again.
	require.NoError(t, service.SubscribeToRoomUpdates(roomID))
	require.Len(t, conn.commands, 3)
}

func TestRoomUpdateMergesIntoStore(t *testing.T) {
	service, _, conn := newTestService(t)
	roomID := uuid.New()
	players := []uuid.UUID{uuid.New()}
	service.Store().SetRoom(entity.Room{ID: roomID, Name: "before", Players: players})

	data, err := json.Marshal(map[string]any{"name": "after"})
	require.NoError(t, err)
	conn.push(entity.Update{Channel: entity.ChannelRoom, Type: entity.UpdateTypeDelta, Data: data})

	room, ok := service.Store().Room()
	require.True(t, ok)
	assert.Equal(t, "after", room.Name)
	assert.Equal(t, players, room.Players)
}

func TestRoomUpdateCascadesGameSubscription(t *testing.T) {
	service, _, conn := newTestService(t)
	roomID, gameID := uuid.New(), uuid.New()
	service.Store().SetRoom(entity.Room{ID: roomID, Name: "cascade"})

	data, err := json.Marshal(map[string]any{"game_id": gameID})
	require.NoError(t, err)
	update := entity.Update{Channel: entity.ChannelRoom, Type: entity.UpdateTypeDelta, Data: data}

	conn.push(update)
	require.Len(t, conn.commands, 1)
	assert.Equal(t, entity.ChannelGame, conn.commands[0].Channel)
	assert.Equal(t, entity.CommandSubscribe, conn.commands[0].Command)
	assert.JSONEq(t, `{"game_id":"`+gameID.String()+`"}`, conn.commands[0].Body)

	game, ok := service.Store().Game()
	require.True(t, ok)
	assert.Equal(t, gameID, game.ID)

	// The same announcement again must not resubscribe.
	conn.push(update)
	assert.Len(t, conn.commands, 1)
}

func TestGameUpdateMergesIntoStore(t *testing.T) {
	service, _, conn := newTestService(t)
	gameID, white := uuid.New(), uuid.New()
	service.Store().SetGame(entity.Game{ID: gameID, State: entity.GameStateStarted})

	data, err := json.Marshal(map[string]any{
		"clocks":        map[string]int64{white.String(): 42000},
		"active_player": white,
	})
	require.NoError(t, err)
	conn.push(entity.Update{Channel: entity.ChannelGame, Type: entity.UpdateTypeDelta, Data: data})

	game, ok := service.Store().Game()
	require.True(t, ok)
	assert.Equal(t, entity.GameStateStarted, game.State)
	assert.Equal(t, int64(42000), game.Clocks[white])
	require.NotNil(t, game.ActivePlayer)
	assert.Equal(t, white, *game.ActivePlayer)
}

func TestMalformedPushIsDropped(t *testing.T) {
	service, _, conn := newTestService(t)
	roomID := uuid.New()
	service.Store().SetRoom(entity.Room{ID: roomID, Name: "intact"})

	conn.push(entity.Update{Channel: entity.ChannelRoom, Data: json.RawMessage(`{"name":12`)})
	conn.push(entity.Update{Channel: "lobby", Data: json.RawMessage(`{}`)})

	room, ok := service.Store().Room()
	require.True(t, ok)
	assert.Equal(t, "intact", room.Name)
	assert.Empty(t, conn.commands)
}

// TestSessionAgainstFakeBackend drives the real request and socket
// clients end to end against an in-process server.
func TestSessionAgainstFakeBackend(t *testing.T) {
	playerID, roomID, gameID := uuid.New(), uuid.New(), uuid.New()

	received := make(chan entity.Command, 4)
	pushes := make(chan entity.Update, 4)

	r := chi.NewRouter()
	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(v))
	}
	r.Post("/api/player", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, entity.Player{ID: playerID, DisplayName: "fabiano"})
	})
	r.Post("/api/room", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, entity.Room{ID: roomID, Name: "classical"})
	})
	r.Post("/api/room/{room_id}/join", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, entity.Room{ID: roomID, Name: "classical", Players: []uuid.UUID{playerID}})
	})
	r.Get("/api/ws", func(w http.ResponseWriter, req *http.Request) {
		conn, err := websocket.Accept(w, req, nil)
		if err != nil {
			return
		}
		ctx := context.Background()
		go func() {
			for {
				cmd := entity.Command{}
				if err := wsjson.Read(ctx, conn, &cmd); err != nil {
					return
				}
				received <- cmd
			}
		}()
		for update := range pushes {
			if err := wsjson.Write(ctx, conn, update); err != nil {
				return
			}
		}
	})
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	t.Cleanup(func() { close(pushes) })

	conn := socket.New("ws" + strings.TrimPrefix(server.URL, "http") + "/api/ws")
	t.Cleanup(func() { conn.Close() })
	<-conn.Ready()
	require.Equal(t, socket.StateOpen, conn.State())

	service := New(rest.NewClient(server.URL, routes.GameAPI), conn, NewStore())
	ctx := context.Background()

	player, err := service.CreatePlayer(ctx, "fabiano")
	require.NoError(t, err)
	room, err := service.CreateRoom(ctx, "classical")
	require.NoError(t, err)
	_, err = service.JoinRoom(ctx, room.ID, player.ID)
	require.NoError(t, err)
	require.NoError(t, service.SubscribeToRoomUpdates(room.ID))

	select {
	case cmd := <-received:
		assert.Equal(t, entity.ChannelRoom, cmd.Channel)
		assert.Equal(t, entity.CommandSubscribe, cmd.Command)
	case <-time.After(2 * time.Second):
		t.Fatal("server never received the room subscribe command")
	}

	// The room announces its game; the session must follow it.
	data, err := json.Marshal(map[string]any{"game_id": gameID})
	require.NoError(t, err)
	pushes <- entity.Update{Channel: entity.ChannelRoom, Type: entity.UpdateTypeDelta, Data: data}

	select {
	case cmd := <-received:
		assert.Equal(t, entity.ChannelGame, cmd.Channel)
		assert.Equal(t, entity.CommandSubscribe, cmd.Command)
	case <-time.After(2 * time.Second):
		t.Fatal("server never received the cascaded game subscribe command")
	}

	data, err = json.Marshal(map[string]any{"state": entity.GameStateStarted})
	require.NoError(t, err)
	pushes <- entity.Update{Channel: entity.ChannelGame, Type: entity.UpdateTypeSnapshot, Data: data}

	assert.Eventually(t, func() bool {
		game, ok := service.Store().Game()
		return ok && game.ID == gameID && game.State == entity.GameStateStarted
	}, 2*time.Second, 10*time.Millisecond)
}
