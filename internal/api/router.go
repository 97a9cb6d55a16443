package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/galleryspace/relay/internal/api/middleware"
)

// RouterConfig holds configuration for the router
type RouterConfig struct {
	Logger *slog.Logger

	// WSHandler upgrades connections into relay sessions
	WSHandler http.Handler

	// StaticDir holds the client bundle served at the root
	StaticDir string
}

// NewRouter creates the relay's HTTP surface: the websocket endpoint, a
// health check, and the static client bundle
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))

	r.Handle("/ws", cfg.WSHandler)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	if cfg.StaticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(cfg.StaticDir)))
	}

	return r
}
