package frontend

import (
	"context"
	"net/url"
	"time"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
	"k8s.io/klog/v2"
)

// Login is the component for registering a player.
type Login struct {
	app.Compo
	ReturnURL    string
	ErrorMessage string
	busy         bool
}

func (l *Login) OnMount(ctx app.Context) {
	klog.V(1).Infof("Login: OnMount called")
	l.parseReturnURL()

	// A persisted player skips the login form.
	if State.RestorePlayer() {
		l.redirect(ctx)
	}
}

func (l *Login) OnNav(ctx app.Context) {
	klog.V(1).Infof("Login: OnNav called")
	l.parseReturnURL()
}

func (l *Login) parseReturnURL() {
	u := app.Window().URL()
	l.ReturnURL = u.Query().Get("return")
	klog.V(1).Infof("Login: parseReturnURL URL=%s, ReturnURL=%s", u.String(), l.ReturnURL)
}

func (l *Login) redirect(ctx app.Context) {
	if l.ReturnURL != "" {
		ctx.Navigate(l.ReturnURL)
	} else {
		ctx.Navigate("/")
	}
}

func (l *Login) onNameChange(ctx app.Context, e app.Event) {
	State.PendingName = ctx.JSSrc().Get("value").String()
}

func (l *Login) onLogin(ctx app.Context, e app.Event) {
	e.PreventDefault()
	if State.PendingName == "" {
		l.ErrorMessage = "Display name cannot be empty."
		return
	}
	if err := State.Connect(); err != nil {
		l.ErrorMessage = err.Error()
		return
	}

	l.busy = true
	name := State.PendingName
	ctx.Async(func() {
		reqCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		player, err := State.Service.CreatePlayer(reqCtx, name)
		ctx.Dispatch(func(ctx app.Context) {
			l.busy = false
			if err != nil {
				klog.Errorf("Login: registration failed: %v", err)
				l.ErrorMessage = "Registration failed, please try again."
				return
			}
			klog.V(1).Infof("Login registered player %s (ID: %s)", player.DisplayName, player.ID)
			State.PersistPlayer(player)
			l.redirect(ctx)
		})
	})
}

func (l *Login) Render() app.UI {
	var errorUI app.UI = app.Text("")
	if l.ErrorMessage != "" {
		errorUI = app.Div().Style("color", "red").Style("margin-bottom", "1rem").Text(l.ErrorMessage)
	}

	return app.Main().Class("container").Body(
		app.Article().Body(
			app.Header().Body(
				app.H1().Style("text-align", "center").Text("Variant64"),
			),
			errorUI,
			app.Form().OnSubmit(l.onLogin).Body(
				app.Label().For("name").Text("Display Name"),
				app.Input().
					Type("text").
					ID("name").
					Name("name").
					Placeholder("Enter your display name").
					Required(true).
					Value(State.PendingName).
					AutoComplete(false).
					OnInput(l.onNameChange),
				app.Button().Type("submit").Disabled(l.busy).Text("Play"),
			),
		),
	)
}

func getCookie(name string) string {
	document := app.Window().Get("document")
	if !document.Truthy() {
		return ""
	}
	cookie := document.Get("cookie").String()
	nameLen := len(name)
	for i := 0; i < len(cookie); i++ {
		if i+nameLen <= len(cookie) && cookie[i:i+nameLen] == name {
			if i+nameLen < len(cookie) && cookie[i+nameLen] == '=' {
				start := i + nameLen + 1
				end := start
				for end < len(cookie) && cookie[end] != ';' {
					end++
				}
				v, _ := url.QueryUnescape(cookie[start:end])
				return v
			}
		}
	}
	return ""
}

func setCookie(name, value string, days int) {
	document := app.Window().Get("document")
	if !document.Truthy() {
		return
	}
	expires := ""
	if days > 0 {
		t := time.Now().AddDate(0, 0, days)
		expires = "; expires=" + t.UTC().Format(time.RFC1123)
	}
	encodedValue := url.QueryEscape(value)
	document.Set("cookie", name+"="+encodedValue+expires+"; path=/")
}
