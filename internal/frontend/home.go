package frontend

import (
	"context"
	"fmt"
	"time"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
	"k8s.io/klog/v2"

	"github.com/variant64/client/internal/entity"
)

// Home is the landing page: the room list plus a form to open a new
// room.
type Home struct {
	app.Compo
	RoomName string
	Error    string
	rooms    []entity.Room
	login    *Login
}

func (h *Home) OnMount(ctx app.Context) {
	klog.V(1).Infof("Home: OnMount called")
	h.login = &Login{}
	State.Store.Watch("home", func() {
		ctx.Dispatch(func(ctx app.Context) {
			h.rooms = State.Store.Rooms()
		})
	})
	h.refresh(ctx)
}

func (h *Home) OnDismount() {
	State.Store.Unwatch("home")
}

func (h *Home) OnNav(ctx app.Context) {
	klog.V(1).Infof("Home: OnNav called, Path=%s", app.Window().URL().Path)
	if h.login != nil {
		h.login.OnNav(ctx)
	}
	h.refresh(ctx)
}

func (h *Home) OnAppUpdate(ctx app.Context) {
	klog.Infof("Home component: App update available, reloading...")
	ctx.Reload()
}

func (h *Home) refresh(ctx app.Context) {
	if !State.LoggedIn() {
		return
	}
	if err := State.Connect(); err != nil {
		h.Error = err.Error()
		return
	}
	ctx.Async(func() {
		reqCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		rooms, err := State.Service.GetRooms(reqCtx)
		ctx.Dispatch(func(ctx app.Context) {
			if err != nil {
				klog.Errorf("Home: fetching rooms failed: %v", err)
				h.Error = "Could not load the room list."
				return
			}
			h.Error = ""
			h.rooms = rooms
		})
	})
}

func (h *Home) onRoomNameChange(ctx app.Context, e app.Event) {
	h.RoomName = ctx.JSSrc().Get("value").String()
}

func (h *Home) onCreateRoom(ctx app.Context, e app.Event) {
	e.PreventDefault()
	name := h.RoomName
	if name == "" {
		name = fmt.Sprintf("Room-%d", time.Now().Unix()%10000)
	}
	if err := State.Connect(); err != nil {
		h.Error = err.Error()
		return
	}
	ctx.Async(func() {
		reqCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		room, err := State.Service.CreateRoom(reqCtx, name)
		ctx.Dispatch(func(ctx app.Context) {
			if err != nil {
				klog.Errorf("Home: creating room failed: %v", err)
				h.Error = "Could not create the room."
				return
			}
			ctx.Navigate("/room/" + room.ID.String())
		})
	})
}

func (h *Home) onJoinRoom(roomID string) app.EventHandler {
	return func(ctx app.Context, e app.Event) {
		e.PreventDefault()
		ctx.Navigate("/room/" + roomID)
	}
}

func (h *Home) onLogout(ctx app.Context, e app.Event) {
	e.PreventDefault()
	State.Logout()
	ctx.Navigate("/")
}

func (h *Home) Render() app.UI {
	if !State.LoggedIn() {
		if h.login == nil {
			h.login = &Login{}
		}
		return h.login
	}

	var errorUI app.UI = app.Text("")
	if h.Error != "" {
		errorUI = app.Div().Style("color", "red").Style("margin-bottom", "1rem").Text(h.Error)
	}

	var roomList []app.UI
	for _, room := range h.rooms {
		room := room
		label := fmt.Sprintf("%s (%d players)", room.Name, len(room.Players))
		roomList = append(roomList, app.Li().Body(
			app.Span().Text(label),
			app.Button().
				Class("outline").
				Style("margin-left", "1rem").
				Style("margin-bottom", "0").
				Text("Join").
				OnClick(h.onJoinRoom(room.ID.String())),
		))
	}
	var rooms app.UI
	if len(roomList) == 0 {
		rooms = app.P().Text("No open rooms yet. Create one below.")
	} else {
		rooms = app.Ul().Body(roomList...)
	}

	return app.Main().Class("container").Body(
		&TopBar{ShowLogout: true},
		errorUI,
		app.Article().Body(
			app.Header().Body(
				app.H2().Text("Open Rooms"),
			),
			rooms,
		),
		app.Article().Body(
			app.Header().Body(
				app.H2().Text("Create a Room"),
			),
			app.Form().OnSubmit(h.onCreateRoom).Body(
				app.Label().For("roomName").Text("Room Name"),
				app.Input().
					Type("text").
					ID("roomName").
					Name("roomName").
					Placeholder("e.g. Lunchtime Blitz").
					Value(h.RoomName).
					OnInput(h.onRoomNameChange),
				app.Button().Type("submit").Text("Create Room"),
			),
		),
	)
}
