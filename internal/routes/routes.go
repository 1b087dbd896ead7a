package routes

import (
	"fmt"
	"net/http"
)

// Action identifies a named client intent mapped to exactly one HTTP
// route.
type Action string

const (
	// rooms
	ActionCreateRoom Action = "CREATE_ROOM"
	ActionGetRoom    Action = "GET_ROOM"
	ActionGetRooms   Action = "GET_ROOMS"
	ActionJoinRoom   Action = "JOIN_ROOM"
	ActionLeaveRoom  Action = "LEAVE_ROOM"
	ActionStartRoom  Action = "START_ROOM"

	// players
	ActionCreatePlayer Action = "CREATE_PLAYER"
	ActionGetPlayer    Action = "GET_PLAYER"

	// games
	ActionConcedeGame Action = "CONCEDE_GAME"
	ActionApproveDraw Action = "APPROVE_DRAW"
	ActionRejectDraw  Action = "REJECT_DRAW"
	ActionMakeMove    Action = "MAKE_MOVE"
)

// Named path and body parameters shared with the server API.
const (
	ParamRoomID            = "room_id"
	ParamRoomName          = "room_name"
	ParamPlayerID          = "player_id"
	ParamPlayerDisplayName = "display_name"
	ParamPlayerTimeMillis  = "player_time_ms"
	ParamGameID            = "game_id"
)

// Params holds the named path parameters for one request.
type Params map[string]string

// Route pairs an HTTP method with a path builder over Params.
type Route struct {
	Method string
	Path   func(p Params) string
}

// Table is a static mapping from actions to routes. The action set is
// fixed at startup; looking up an unconfigured action is a programming
// error and panics.
type Table struct {
	Name   string
	routes map[Action]Route
}

// Lookup returns the route configured for the action.
func (t *Table) Lookup(action Action) Route {
	route, ok := t.routes[action]
	if !ok {
		panic(fmt.Sprintf("routes: no route configured for action %s in table %s", action, t.Name))
	}
	return route
}

// Actions returns every action configured in the table.
func (t *Table) Actions() []Action {
	actions := make([]Action, 0, len(t.routes))
	for action := range t.routes {
		actions = append(actions, action)
	}
	return actions
}

func newRoute(method string, path func(p Params) string) Route {
	return Route{Method: method, Path: path}
}

// GameAPI maps every client action onto the server's /api routes.
var GameAPI = &Table{
	Name: "ROOM_API",
	routes: map[Action]Route{
		ActionCreateRoom: newRoute(http.MethodPost, func(Params) string { return "/api/room" }),
		ActionGetRoom: newRoute(http.MethodGet, func(p Params) string {
			return "/api/room/" + p[ParamRoomID]
		}),
		ActionGetRooms: newRoute(http.MethodGet, func(Params) string { return "/api/rooms" }),
		ActionJoinRoom: newRoute(http.MethodPost, func(p Params) string {
			return "/api/room/" + p[ParamRoomID] + "/join"
		}),
		ActionLeaveRoom: newRoute(http.MethodPost, func(p Params) string {
			return "/api/room/" + p[ParamRoomID] + "/leave"
		}),
		ActionStartRoom: newRoute(http.MethodPost, func(p Params) string {
			return "/api/room/" + p[ParamRoomID] + "/start"
		}),

		ActionCreatePlayer: newRoute(http.MethodPost, func(Params) string { return "/api/player" }),
		ActionGetPlayer: newRoute(http.MethodGet, func(p Params) string {
			return "/api/player/" + p[ParamPlayerID]
		}),

		ActionConcedeGame: newRoute(http.MethodPost, func(p Params) string {
			return "/api/game/" + p[ParamGameID] + "/concede"
		}),
		ActionApproveDraw: newRoute(http.MethodPost, func(p Params) string {
			return "/api/game/" + p[ParamGameID] + "/draw/approve"
		}),
		ActionRejectDraw: newRoute(http.MethodPost, func(p Params) string {
			return "/api/game/" + p[ParamGameID] + "/draw/reject"
		}),
		ActionMakeMove: newRoute(http.MethodPost, func(p Params) string {
			return "/api/game/" + p[ParamGameID] + "/move"
		}),
	},
}
