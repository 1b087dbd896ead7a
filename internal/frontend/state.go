package frontend

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/maxence-charriere/go-app/v10/pkg/app"
	"k8s.io/klog/v2"

	"github.com/variant64/client/internal/entity"
	"github.com/variant64/client/internal/rest"
	"github.com/variant64/client/internal/routes"
	"github.com/variant64/client/internal/session"
	"github.com/variant64/client/internal/socket"
)

const playerCookie = "variant64_player"

// RegisterRoutes declares the UI pages to go-app. Both the shell server
// (for prerendering) and the wasm binary call it.
func RegisterRoutes() {
	app.Route("/", func() app.Composer { return &Home{} })
	app.RouteWithRegexp("^/room/.*", func() app.Composer { return &Room{} })
	app.RouteWithRegexp("^/game/.*", func() app.Composer { return &Game{} })
}

// GlobalClientState owns the session wiring for the UI: the store the
// pages read from and the service they issue intents through. The
// socket connection is only dialed from the browser, never during
// server-side prerendering.
type GlobalClientState struct {
	Store   *session.Store
	Service *session.Service
	Conn    *socket.Client

	apiURL string
	wsURL  string

	// Login state (persistent across re-renders)
	PendingName string
}

var State *GlobalClientState

// InitState prepares the global state. apiURL and wsURL address the
// game server's HTTP API and websocket endpoint.
func InitState(apiURL, wsURL string) {
	if State != nil {
		klog.V(1).Infof("InitState: state already exists")
		return
	}
	klog.V(1).Infof("InitState: creating new state (api=%s ws=%s)", apiURL, wsURL)
	State = &GlobalClientState{
		Store:  session.NewStore(),
		apiURL: apiURL,
		wsURL:  wsURL,
	}
}

// Connect dials the game server and builds the session service on first
// use. A connection that died is replaced, which also resets the
// subscription markers to match the server having dropped its end.
func (s *GlobalClientState) Connect() error {
	if s.Service != nil && s.Conn != nil && s.Conn.State() == socket.StateOpen {
		return nil
	}

	conn := socket.New(s.wsURL)
	<-conn.Ready()
	if conn.State() != socket.StateOpen {
		return fmt.Errorf("could not reach game server at %s", s.wsURL)
	}

	s.Conn = conn
	s.Service = session.New(rest.NewClient(s.apiURL, routes.GameAPI), conn, s.Store)
	klog.Infof("GlobalClientState: session connected")
	return nil
}

// RestorePlayer loads the persisted player from the cookie into the
// store. It reports whether a player was restored.
func (s *GlobalClientState) RestorePlayer() bool {
	if s.LoggedIn() {
		return true
	}
	raw := getCookie(playerCookie)
	if raw == "" {
		return false
	}
	player := entity.Player{}
	if err := json.Unmarshal([]byte(raw), &player); err != nil {
		klog.Errorf("RestorePlayer: discarding bad cookie: %v", err)
		return false
	}
	s.Store.SetPlayer(player)
	return true
}

// PersistPlayer saves the player to the cookie for 30 days.
func (s *GlobalClientState) PersistPlayer(player entity.Player) {
	raw, err := json.Marshal(player)
	if err != nil {
		klog.Errorf("PersistPlayer: %v", err)
		return
	}
	setCookie(playerCookie, string(raw), 30)
}

// Logout drops the player from the store and clears the cookie.
func (s *GlobalClientState) Logout() {
	s.Store.SetPlayer(entity.Player{})
	app.Window().Get("document").Set("cookie", playerCookie+"=; expires=Thu, 01 Jan 1970 00:00:00 UTC; path=/;")
}

// LoggedIn reports whether a registered player is present.
func (s *GlobalClientState) LoggedIn() bool {
	player, ok := s.Store.Player()
	return ok && player.ID != uuid.Nil
}
