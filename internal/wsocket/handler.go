package wsocket

import (
	"net/http"
	"time"

	"dtbase_go_backend/internal/utils/broker"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Handler streams model-change events to connected clients.
type Handler struct {
	broker       *broker.Broker
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	logger       zerolog.Logger
}

// Message is the wire format for one event frame.
type Message struct {
	Type   string `json:"type"`
	Action string `json:"action,omitempty"`
	Entity string `json:"entity,omitempty"`
	ID     string `json:"id,omitempty"`
}

func NewHandler(eventBroker *broker.Broker, upgrader websocket.Upgrader, pingInterval time.Duration, logger zerolog.Logger) *Handler {
	return &Handler{
		broker:       eventBroker,
		upgrader:     upgrader,
		pingInterval: pingInterval,
		logger:       logger,
	}
}

func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	events := h.broker.Subscribe()
	defer h.broker.Unsubscribe(events)

	// Drain client frames so close messages are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			msg := Message{Type: "model_event", Action: evt.Action, Entity: evt.Entity, ID: evt.ID}
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Error().Err(err).Msg("failed to send model event")
				return
			}
		case <-ticker.C:
			if err := conn.WriteJSON(Message{Type: "ping"}); err != nil {
				return
			}
		}
	}
}
