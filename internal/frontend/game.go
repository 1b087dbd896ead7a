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

// Game is the page for one running game: clocks, turn indicator and
// the concede and draw controls.
type Game struct {
	app.Compo
	GameID string
	Error  string

	game    entity.Game
	hasGame bool

	moveFrom string
	moveTo   string
}

func (g *Game) OnAppUpdate(ctx app.Context) {
	klog.Infof("Game component: App update available, reloading...")
	ctx.Reload()
}

func (g *Game) OnMount(ctx app.Context) {
	klog.V(1).Infof("Game component: OnMount called")
	State.Store.Watch("game-page", func() {
		ctx.Dispatch(func(ctx app.Context) {
			g.game, g.hasGame = State.Store.Game()
		})
	})
}

func (g *Game) OnDismount() {
	State.Store.Unwatch("game-page")
}

func (g *Game) OnNav(ctx app.Context) {
	if !State.RestorePlayer() || !State.LoggedIn() {
		ctx.Navigate("/?return=" + url.QueryEscape(app.Window().URL().Path))
		return
	}

	path := app.Window().URL().Path
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	if len(parts) >= 2 && parts[0] == "game" {
		g.GameID = parts[1]
	}
	gameID, err := uuid.Parse(g.GameID)
	if err != nil {
		g.Error = "Invalid game ID."
		klog.Errorf("Game component: bad game id %q: %v", g.GameID, err)
		return
	}

	if err := State.Connect(); err != nil {
		g.Error = err.Error()
		return
	}
	if err := State.Service.SubscribeToGameUpdates(gameID); err != nil {
		klog.Errorf("Game component: subscription failed: %v", err)
		g.Error = "Could not follow the game."
		return
	}
	g.game, g.hasGame = State.Store.Game()
}

// withGame runs one game intent off the UI goroutine and surfaces
// failures in the page.
func (g *Game) withGame(ctx app.Context, label string, do func(reqCtx context.Context, gameID, playerID uuid.UUID) error) {
	gameID := g.game.ID
	player, _ := State.Store.Player()
	ctx.Async(func() {
		reqCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := do(reqCtx, gameID, player.ID)
		ctx.Dispatch(func(ctx app.Context) {
			if err != nil {
				klog.Errorf("Game component: %s failed: %v", label, err)
				g.Error = fmt.Sprintf("Could not %s.", label)
			}
		})
	})
}

func (g *Game) onConcede(ctx app.Context, e app.Event) {
	e.PreventDefault()
	g.withGame(ctx, "concede", func(reqCtx context.Context, gameID, playerID uuid.UUID) error {
		_, err := State.Service.ConcedeGame(reqCtx, gameID, playerID)
		return err
	})
}

func (g *Game) onApproveDraw(ctx app.Context, e app.Event) {
	e.PreventDefault()
	g.withGame(ctx, "approve the draw", func(reqCtx context.Context, gameID, playerID uuid.UUID) error {
		_, err := State.Service.ApproveDraw(reqCtx, gameID, playerID)
		return err
	})
}

func (g *Game) onRejectDraw(ctx app.Context, e app.Event) {
	e.PreventDefault()
	g.withGame(ctx, "reject the draw", func(reqCtx context.Context, gameID, playerID uuid.UUID) error {
		_, err := State.Service.RejectDraw(reqCtx, gameID)
		return err
	})
}

func (g *Game) onMoveFromChange(ctx app.Context, e app.Event) {
	g.moveFrom = ctx.JSSrc().Get("value").String()
}

func (g *Game) onMoveToChange(ctx app.Context, e app.Event) {
	g.moveTo = ctx.JSSrc().Get("value").String()
}

func (g *Game) onMove(ctx app.Context, e app.Event) {
	e.PreventDefault()
	source, err := parseSquare(g.moveFrom)
	if err != nil {
		g.Error = "Source square must look like rank,file."
		return
	}
	destination, err := parseSquare(g.moveTo)
	if err != nil {
		g.Error = "Destination square must look like rank,file."
		return
	}
	move := entity.Move{Source: source, Destination: destination}
	g.withGame(ctx, "make the move", func(reqCtx context.Context, gameID, playerID uuid.UUID) error {
		_, err := State.Service.MakeMove(reqCtx, gameID, playerID, move)
		return err
	})
}

func parseSquare(s string) (entity.Position, error) {
	pos := entity.Position{}
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d,%d", &pos.Rank, &pos.File); err != nil {
		return entity.Position{}, err
	}
	return pos, nil
}

// formatClock renders remaining milliseconds as m:ss.
func formatClock(millis int64) string {
	if millis < 0 {
		millis = 0
	}
	total := millis / 1000
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func (g *Game) Render() app.UI {
	if !State.LoggedIn() {
		return app.Main().Class("container").Body(
			app.Div().Aria("busy", "true").Text("Redirecting to login..."),
		)
	}

	var errorUI app.UI = app.Text("")
	if g.Error != "" {
		errorUI = app.Div().Style("color", "red").Style("margin-bottom", "1rem").Text(g.Error)
	}

	var content app.UI
	if !g.hasGame {
		content = app.Div().Aria("busy", "true").Text("Waiting for the game...")
	} else {
		player, _ := State.Store.Player()

		var clockList []app.UI
		for id, remaining := range g.game.Clocks {
			label := shortID(id)
			if id == player.ID {
				label = player.DisplayName + " (you)"
			}
			if g.game.ActivePlayer != nil && *g.game.ActivePlayer == id {
				label += " *"
			}
			clockList = append(clockList, app.Li().Body(
				app.Span().Text(label),
				app.Strong().Style("float", "right").Text(formatClock(remaining)),
			))
		}

		var status app.UI
		if g.game.Finished() {
			switch {
			case containsID(g.game.Winners, player.ID):
				status = app.H3().Text("You won!")
			case containsID(g.game.Losers, player.ID):
				status = app.H3().Text("You lost.")
			case containsID(g.game.Drawn, player.ID):
				status = app.H3().Text("Draw.")
			default:
				status = app.H3().Text("Game over.")
			}
		} else if g.game.ActivePlayer != nil && *g.game.ActivePlayer == player.ID {
			status = app.H3().Text("Your move.")
		} else {
			status = app.H3().Text("Waiting for the opponent...")
		}

		var controls app.UI = app.Text("")
		if !g.game.Finished() {
			controls = app.Footer().Body(
				app.Form().OnSubmit(g.onMove).Body(
					app.Div().Style("display", "flex").Style("gap", "0.5rem").Style("align-items", "end").Body(
						app.Div().Body(
							app.Label().For("moveFrom").Text("From (rank,file)"),
							app.Input().Type("text").ID("moveFrom").Placeholder("1,4").
								Value(g.moveFrom).OnInput(g.onMoveFromChange).
								Style("margin-bottom", "0"),
						),
						app.Div().Body(
							app.Label().For("moveTo").Text("To (rank,file)"),
							app.Input().Type("text").ID("moveTo").Placeholder("3,4").
								Value(g.moveTo).OnInput(g.onMoveToChange).
								Style("margin-bottom", "0"),
						),
						app.Button().Type("submit").Text("Move").Style("margin-bottom", "0"),
					),
				),
				app.Div().Style("display", "flex").Style("gap", "1rem").Style("margin-top", "1rem").Body(
					app.Button().
						Class("outline contrast").
						Text("Concede").
						OnClick(g.onConcede).
						Style("flex", "1").
						Style("margin-bottom", "0"),
					app.Button().
						Class("outline").
						Text("Approve Draw").
						OnClick(g.onApproveDraw).
						Style("flex", "1").
						Style("margin-bottom", "0"),
					app.Button().
						Class("outline").
						Text("Reject Draw").
						OnClick(g.onRejectDraw).
						Style("flex", "1").
						Style("margin-bottom", "0"),
				),
			)
		}

		content = app.Article().Body(
			app.Header().Body(status),
			app.Ul().Body(clockList...),
			controls,
		)
	}

	return app.Main().Class("container").Body(
		&TopBar{},
		errorUI,
		content,
	)
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
