package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/maxence-charriere/go-app/v10/pkg/app"
	"k8s.io/klog/v2"

	"github.com/variant64/client/internal/frontend"
)

// Config describes the client shell: where it listens and which game
// server the UI talks to.
type Config struct {
	// Addr to listen on, e.g. ":8080". "127.0.0.1:0" picks a free port.
	Addr string
	// APIURL is the base URL of the game server's HTTP API.
	APIURL string
	// WSURL is the game server's websocket endpoint.
	WSURL string
}

// Run serves the UI shell and blocks until the context is canceled.
// If started is non-nil it receives the bound listen address.
func Run(ctx context.Context, cfg Config, started chan<- string) error {
	// The global state has to exist for server-side prerendering.
	frontend.InitState(cfg.APIURL, cfg.WSURL)
	frontend.RegisterRoutes()

	// The web assets and the compiled webassembly are served natively
	// by the go-app framework. The backend URLs travel to the wasm
	// binary through the handler environment.
	h := &app.Handler{
		Name:        "Variant64",
		Description: "A multiplayer chess variant client",
		Styles: []string{
			"/web/css/pico.min.css",
			"/web/css/main.css",
		},
		Env: map[string]string{
			"API_URL": cfg.APIURL,
			"WS_URL":  cfg.WSURL,
		},
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Handle("/web/*", http.StripPrefix("/web/", http.FileServer(http.Dir("web/"))))
	r.Handle("/*", h)

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return err
	}
	if started != nil {
		started <- ln.Addr().String()
	}

	srv := &http.Server{Handler: r}
	go func() {
		klog.Infof("Server: listening on %s", ln.Addr())
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			klog.Errorf("Server: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	klog.Infof("Server: shutting down")
	return srv.Shutdown(shutdownCtx)
}
