package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/shiptrack/tracking-system/internal/api/metrics"
	"github.com/shiptrack/tracking-system/internal/core/domain"
	"github.com/shiptrack/tracking-system/internal/core/ports"
)

// ReportQueue accepts location reports for ordered background processing.
type ReportQueue interface {
	Enqueue(report ports.LocationReport)
}

// LocationHandler is the HTTP ingest path for drivers whose devices cannot
// hold a websocket open. Reports are queued and processed asynchronously, so
// a 202 only means "accepted", not "applied".
type LocationHandler struct {
	queue ReportQueue
}

func NewLocationHandler(queue ReportQueue) *LocationHandler {
	return &LocationHandler{queue: queue}
}

// Report enqueues one GPS sample for the caller's shipments. The driver
// identity comes from the JWT, never from the payload.
func (h *LocationHandler) Report(c echo.Context) error {
	var req locationReportRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	driverID, _ := c.Get("username").(string)

	h.queue.Enqueue(ports.LocationReport{
		TrackingNumbers: req.TrackingNumbers,
		Position:        domain.Coordinates{Lat: *req.Latitude, Lng: *req.Longitude},
		DriverID:        driverID,
		ObservedAt:      time.Now().UTC(),
	})
	metrics.ReportsIngestedTotal.WithLabelValues("http").Inc()

	return c.JSON(http.StatusAccepted, acceptedResponse{
		Message: "location report accepted",
		Count:   len(req.TrackingNumbers),
	})
}
