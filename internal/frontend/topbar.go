package frontend

import (
	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

type TopBar struct {
	app.Compo
	ShowLogout bool
}

func (t *TopBar) onLogout(ctx app.Context, e app.Event) {
	e.PreventDefault()
	State.Logout()
	ctx.Navigate("/")
}

func (t *TopBar) onTitleClick(ctx app.Context, e app.Event) {
	ctx.Navigate("/")
}

func (t *TopBar) Render() app.UI {
	player, _ := State.Store.Player()

	actions := []app.UI{
		app.Li().Body(
			app.Span().Text(player.DisplayName),
		),
	}
	if t.ShowLogout {
		actions = append(actions, app.Li().Body(app.A().Href("#").OnClick(t.onLogout).Text("Logout")))
	}

	return app.Nav().Body(
		app.Ul().Body(
			app.Li().Body(
				app.Strong().
					Style("cursor", "pointer").
					Text("Variant64").
					OnClick(t.onTitleClick),
			),
		),
		app.Ul().Body(actions...),
	)
}
