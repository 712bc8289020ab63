package handler

import (
	"errors"
	"net/http"

	"outdoortracker/api/middleware"
	"outdoortracker/internal/presence"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type WSHandler struct {
	Hub *presence.Hub
	Log *logrus.Logger

	upgrader websocket.Upgrader
}

func NewWSHandler(hub *presence.Hub, log *logrus.Logger) *WSHandler {
	return &WSHandler{
		Hub: hub,
		Log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Browser clients connect from arbitrary origins; access
			// control is the token, not the Origin header.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Connect runs admission before the websocket upgrade: a rejected
// credential answers 401 and the connection is never established, so
// there is no partially admitted state to unwind.
func (h *WSHandler) Connect(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		token = middleware.ExtractBearerToken(c.Request())
	}

	session, err := h.Hub.Admit(c.Request().Context(), token)
	if err != nil {
		if errors.Is(err, presence.ErrRejected) {
			return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "connection failed")
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade failed after admission; undo the presence state.
		h.Hub.Disconnect(c.Request().Context(), session)
		return nil
	}

	// Serve blocks until the connection closes; cleanup runs inside.
	session.Serve(c.Request().Context(), conn)
	return nil
}
