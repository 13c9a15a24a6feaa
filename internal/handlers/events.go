package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/osanyin/herbal/internal/events"
)

// EventsHandler upgrades subscribers onto the websocket event feed.
type EventsHandler struct {
	hub *events.Hub
}

// NewEventsHandler wires the handler to the event hub.
func NewEventsHandler(hub *events.Hub) (*EventsHandler, error) {
	if hub == nil {
		return nil, errors.New("events handler: hub is required")
	}
	return &EventsHandler{hub: hub}, nil
}

// GET /api/events
func (h *EventsHandler) Serve(c *gin.Context) {
	h.hub.Serve(c.Writer, c.Request)
}
