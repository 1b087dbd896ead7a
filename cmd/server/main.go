package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"k8s.io/klog/v2"

	"github.com/variant64/client/internal/server"
)

var (
	flagAddr = flag.String("addr", "", "Address to listen on (default: $ADDR or :8080)")
	flagAPI  = flag.String("api", "", "Game server HTTP API base URL (default: $API_URL)")
	flagWS   = flag.String("ws", "", "Game server websocket URL (default: $WS_URL)")
)

// envOr prefers the flag value, then the environment, then a default.
func envOr(flagValue, key, fallback string) string {
	if flagValue != "" {
		return flagValue
	}
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		klog.V(1).Infof("No .env file loaded: %v", err)
	}

	cfg := server.Config{
		Addr:   envOr(*flagAddr, "ADDR", ":8080"),
		APIURL: envOr(*flagAPI, "API_URL", "http://localhost:8000"),
		WSURL:  envOr(*flagWS, "WS_URL", "ws://localhost:8000/api/ws"),
	}

	started := make(chan string, 1)
	go func() {
		fmt.Printf("Variant64 client listening on http://%s\n", <-started)
	}()

	if err := server.Run(context.Background(), cfg, started); err != nil {
		klog.Fatal(err)
	}
}
