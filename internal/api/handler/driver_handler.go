package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/shiptrack/tracking-system/internal/core/ports"
)

type DriverHandler struct {
	driverService ports.DriverService
}

func NewDriverHandler(driverService ports.DriverService) *DriverHandler {
	return &DriverHandler{driverService: driverService}
}

type driverResponse struct {
	ID                string            `json:"id"`
	Username          string            `json:"username"`
	Email             string            `json:"email,omitempty"`
	AssignedShipments []string          `json:"assigned_shipments"`
	LastPosition      *positionResponse `json:"last_position,omitempty"`
	LastSeenAt        *time.Time        `json:"last_seen_at,omitempty"`
}

// List returns the courier directory for the dispatch dashboard.
func (h *DriverHandler) List(c echo.Context) error {
	drivers, err := h.driverService.ListDrivers(c.Request().Context())
	if err != nil {
		return err
	}

	items := make([]driverResponse, 0, len(drivers))
	for _, d := range drivers {
		item := driverResponse{
			ID:                d.ID,
			Username:          d.Username,
			Email:             d.Email,
			AssignedShipments: d.AssignedShipments,
		}
		if d.LastPosition != nil {
			item.LastPosition = &positionResponse{Lat: d.LastPosition.Lat, Lng: d.LastPosition.Lng}
		}
		if !d.LastSeenAt.IsZero() {
			t := d.LastSeenAt
			item.LastSeenAt = &t
		}
		items = append(items, item)
	}

	return c.JSON(http.StatusOK, map[string]any{"drivers": items})
}
