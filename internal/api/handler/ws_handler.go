package handler

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/shiptrack/tracking-system/internal/core/domain"
	"github.com/shiptrack/tracking-system/internal/realtime"
	"github.com/shiptrack/tracking-system/pkg/logger"
)

// WebSocketHandler upgrades tracking connections and hands them to the hub.
type WebSocketHandler struct {
	hub     *realtime.Hub
	reports ReportQueue

	upgrader websocket.Upgrader
}

func NewWebSocketHandler(hub *realtime.Hub, reports ReportQueue) *WebSocketHandler {
	return &WebSocketHandler{
		hub:     hub,
		reports: reports,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The JWT in the upgrade request is the access control; origin
			// checks add nothing for a token-authenticated API.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Serve upgrades the request and starts the client's pumps. Driver
// connections may submit location reports; everyone else is read-only.
func (h *WebSocketHandler) Serve(c echo.Context) error {
	log := logger.Get()

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return nil
	}

	role, _ := c.Get("role").(string)
	username, _ := c.Get("username").(string)

	var reports realtime.ReportQueue
	driverID := ""
	if role == domain.RoleDriver || role == domain.RoleAdmin {
		reports = h.reports
		driverID = username
	}

	client := realtime.NewClient(h.hub, conn, reports, driverID, log)
	client.Start()
	return nil
}
