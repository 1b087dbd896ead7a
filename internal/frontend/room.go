package frontend

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/maxence-charriere/go-app/v10/pkg/app"
	"k8s.io/klog/v2"

	"github.com/variant64/client/internal/entity"
)

// Time controls offered when starting a game, in milliseconds per
// player.
var timeControls = []struct {
	label  string
	millis int64
}{
	{"1 minute", 60_000},
	{"5 minutes", 300_000},
	{"10 minutes", 600_000},
}

// Room is the lobby page for one room. It joins the room, follows its
// push updates and moves to the game page once a game starts.
type Room struct {
	app.Compo
	RoomID string
	Error  string

	room    entity.Room
	hasRoom bool
	millis  int64
}

func (r *Room) OnAppUpdate(ctx app.Context) {
	klog.Infof("Room component: App update available, reloading...")
	ctx.Reload()
}

func (r *Room) OnMount(ctx app.Context) {
	klog.V(1).Infof("Room component: OnMount called")
	r.millis = timeControls[1].millis
	State.Store.Watch("room-page", func() {
		ctx.Dispatch(func(ctx app.Context) {
			r.room, r.hasRoom = State.Store.Room()
			if r.hasRoom && r.room.GameID != nil {
				ctx.Navigate("/game/" + r.room.GameID.String())
			}
		})
	})
}

func (r *Room) OnDismount() {
	klog.V(1).Infof("Room component: OnDismount called")
	State.Store.Unwatch("room-page")
}

func (r *Room) OnNav(ctx app.Context) {
	if !State.RestorePlayer() || !State.LoggedIn() {
		ctx.Navigate("/?return=" + url.QueryEscape(app.Window().URL().Path))
		return
	}

	path := app.Window().URL().Path
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	if len(parts) >= 2 && parts[0] == "room" {
		r.RoomID = parts[1]
	}
	roomID, err := uuid.Parse(r.RoomID)
	if err != nil {
		r.Error = "Invalid room ID."
		klog.Errorf("Room component: bad room id %q: %v", r.RoomID, err)
		return
	}

	if err := State.Connect(); err != nil {
		r.Error = err.Error()
		return
	}

	player, _ := State.Store.Player()
	ctx.Async(func() {
		reqCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		room, err := State.Service.GetRoom(reqCtx, roomID)
		if err == nil && !room.HasPlayer(player.ID) {
			room, err = State.Service.JoinRoom(reqCtx, roomID, player.ID)
		}
		if err == nil {
			err = State.Service.SubscribeToRoomUpdates(roomID)
		}
		ctx.Dispatch(func(ctx app.Context) {
			if err != nil {
				klog.Errorf("Room component: entering room failed: %v", err)
				r.Error = "Could not enter the room."
				return
			}
			r.Error = ""
			r.room, r.hasRoom = State.Store.Room()
		})
	})
}

func (r *Room) onCopyURL(ctx app.Context, e app.Event) {
	pageURL := app.Window().URL().String()
	app.Window().Get("navigator").Get("clipboard").Call("writeText", pageURL)
	app.Window().Call("alert", "URL copied to clipboard!")
}

func (r *Room) onTimeControlChange(ctx app.Context, e app.Event) {
	value := ctx.JSSrc().Get("value").String()
	var millis int64
	if _, err := fmt.Sscanf(value, "%d", &millis); err == nil {
		r.millis = millis
	}
}

func (r *Room) onStart(ctx app.Context, e app.Event) {
	e.PreventDefault()
	roomID := r.room.ID
	millis := r.millis
	ctx.Async(func() {
		reqCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		game, err := State.Service.StartRoom(reqCtx, roomID, millis)
		ctx.Dispatch(func(ctx app.Context) {
			if err != nil {
				klog.Errorf("Room component: starting game failed: %v", err)
				r.Error = "Could not start the game."
				return
			}
			ctx.Navigate("/game/" + game.ID.String())
		})
	})
}

func (r *Room) onLeave(ctx app.Context, e app.Event) {
	e.PreventDefault()
	roomID := r.room.ID
	player, _ := State.Store.Player()
	ctx.Async(func() {
		reqCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := State.Service.LeaveRoom(reqCtx, roomID, player.ID); err != nil {
			klog.Errorf("Room component: leaving room failed: %v", err)
		}
		ctx.Dispatch(func(ctx app.Context) {
			ctx.Navigate("/")
		})
	})
}

func (r *Room) Render() app.UI {
	if !State.LoggedIn() {
		return app.Main().Class("container").Body(
			app.Div().Aria("busy", "true").Text("Redirecting to login..."),
		)
	}

	if r.Error != "" {
		return app.Main().Class("container").Body(
			&TopBar{},
			app.Article().Body(
				app.H2().Text("Room Unavailable"),
				app.P().Style("color", "red").Text(r.Error),
				app.A().Href("#").OnClick(func(ctx app.Context, e app.Event) {
					ctx.Navigate("/")
				}).Text("Return to Home"),
			),
		)
	}

	var content app.UI
	if !r.hasRoom {
		content = app.Div().Aria("busy", "true").Text("Entering room...")
	} else {
		player, _ := State.Store.Player()

		var playersList []app.UI
		for i, id := range r.room.Players {
			name := shortID(id)
			if id == player.ID {
				name = player.DisplayName + " (you)"
			}
			if i == 0 {
				name += " (creator)"
			}
			playersList = append(playersList, app.Li().Text(name))
		}

		isCreator := len(r.room.Players) > 0 && r.room.Players[0] == player.ID
		canStart := len(r.room.Players) >= 2

		var footer app.UI
		if isCreator {
			var options []app.UI
			for _, tc := range timeControls {
				options = append(options, app.Option().
					Value(fmt.Sprintf("%d", tc.millis)).
					Selected(tc.millis == r.millis).
					Text(tc.label))
			}
			var waitingMsg app.UI = app.Text("")
			if !canStart {
				waitingMsg = app.P().Style("text-align", "center").Text("Waiting for an opponent...")
			}
			footer = app.Footer().Body(
				waitingMsg,
				app.Label().For("timeControl").Text("Time Control"),
				app.Select().ID("timeControl").OnChange(r.onTimeControlChange).Body(options...),
				app.Div().Style("display", "flex").Style("gap", "1rem").Style("justify-content", "center").Body(
					app.Button().
						Text("Start Game").
						Disabled(!canStart).
						OnClick(r.onStart).
						Style("flex", "1").
						Style("margin-bottom", "0"),
					app.Button().
						Class("outline contrast").
						Text("Leave Room").
						OnClick(r.onLeave).
						Style("flex", "1").
						Style("margin-bottom", "0"),
				),
			)
		} else {
			footer = app.Footer().Body(
				app.P().Text("Waiting for the creator to start the game..."),
				app.Button().
					Class("outline contrast").
					Text("Leave Room").
					OnClick(r.onLeave),
			)
		}

		content = app.Div().Body(
			app.Div().Class("grid").Body(
				app.Div().Body(
					app.H3().Text(fmt.Sprintf("Room: %s", r.room.Name)),
					app.P().Text("Share this URL to invite an opponent:"),
					app.Div().Style("display", "flex").Style("gap", "0.5rem").Style("align-items", "center").Style("margin-bottom", "var(--pico-spacing)").Body(
						app.Input().
							Type("text").
							ReadOnly(true).
							Value(app.Window().URL().String()).
							Style("margin-bottom", "0").
							Style("flex", "1"),
						app.Button().
							Class("secondary").
							Text("Copy URL").
							OnClick(r.onCopyURL).
							Style("margin-bottom", "0").
							Style("width", "auto").
							Style("padding", "0.5rem 1rem"),
					),
				),
			),
			app.Article().Body(
				app.Header().Text(fmt.Sprintf("Players (%d)", len(r.room.Players))),
				app.Ul().Body(playersList...),
				footer,
			),
		)
	}

	return app.Main().Class("container").Body(
		&TopBar{},
		content,
	)
}

// shortID renders a uuid compactly for players we only know by id.
func shortID(id uuid.UUID) string {
	s := id.String()
	return "Player " + s[:8]
}
