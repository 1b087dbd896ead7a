package main

import (
	"flag"
	"os"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
	"k8s.io/klog/v2"

	"github.com/variant64/client/internal/frontend"
)

func main() {
	// Initialize klog for WASM, forcing logs to stderr (console)
	fs := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(fs)
	fs.Set("logtostderr", "true")
	klog.SetOutput(os.Stderr)
	klog.Infof("WASM started!")

	frontend.RegisterRoutes()

	// The shell server injects the game server addresses through the
	// handler environment.
	frontend.InitState(app.Getenv("API_URL"), app.Getenv("WS_URL"))

	// When building for WEB (GOOS=js GOARCH=wasm), app.Run() executes
	// the frontend logic. In server mode this is a no-op.
	app.RunWhenOnBrowser()
}
