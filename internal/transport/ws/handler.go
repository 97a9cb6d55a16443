package ws

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/galleryspace/relay/internal/model"
	"github.com/galleryspace/relay/internal/services/relay"
)

// Handler upgrades HTTP requests into relay sessions. Each accepted
// connection gets a fresh session id, never reused.
type Handler struct {
	dispatcher *relay.Dispatcher
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

// NewHandler creates a new websocket Handler
func NewHandler(dispatcher *relay.Dispatcher, logger *slog.Logger) *Handler {
	return &Handler{
		dispatcher: dispatcher,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Clients are served from arbitrary origins (itch pages,
			// local builds), so the origin check stays permissive
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger.With(slog.String("component", "ws")),
	}
}

// ServeHTTP upgrades the connection and hands it to the relay
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", slog.String("error", err.Error()))
		return
	}

	id := model.SessionID(uuid.NewString())
	h.logger.Info("connection accepted",
		slog.String("session_id", string(id)),
		slog.String("remote", r.RemoteAddr))

	client := NewClient(id, conn, h.dispatcher, h.logger)
	h.dispatcher.Post(relay.Event{
		Kind:    relay.KindConnect,
		Session: id,
		Sender:  client,
	})

	go client.Run()
}
