package ws

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Handler upgrades GET /ws requests and hands the socket to the hub.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewHandler(hub *Hub, log zerolog.Logger) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Clients authenticate in-band; origin is not a credential here.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

// Connect godoc
// @Summary      Open a sync WebSocket
// @Description  Upgrades to a WebSocket. The first message must be {"type":"authenticate","token":"<jwt>"}.
// @Tags         sync
// @Success      101
// @Router       /ws [get]
func (h *Handler) Connect(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already written the HTTP error.
		h.log.Debug().Err(err).Msg("websocket upgrade failed")
		return nil
	}
	h.hub.Serve(context.WithoutCancel(c.Request().Context()), conn)
	return nil
}
