package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/shiptrack/tracking-system/internal/core/ports"
)

type ShipmentHandler struct {
	shipmentService ports.ShipmentService
}

func NewShipmentHandler(shipmentService ports.ShipmentService) *ShipmentHandler {
	return &ShipmentHandler{shipmentService: shipmentService}
}

// Create registers a new shipment and returns its tracking number.
func (h *ShipmentHandler) Create(c echo.Context) error {
	var req createShipmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	input := ports.CreateShipmentInput{
		DeliveryAddress:  req.DeliveryAddress,
		ExpectedDelivery: req.ExpectedDelivery,
		DriverID:         req.DriverID,
	}
	if req.PickupPosition != nil {
		input.PickupPosition = &ports.PositionInput{Lat: req.PickupPosition.Lat, Lng: req.PickupPosition.Lng}
	}
	if req.DestinationPosition != nil {
		input.DestinationPosition = &ports.PositionInput{Lat: req.DestinationPosition.Lat, Lng: req.DestinationPosition.Lng}
	}

	result, err := h.shipmentService.CreateShipment(c.Request().Context(), input)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, createShipmentResponse{
		TrackingNumber:   result.TrackingNumber,
		Status:           result.Status,
		CreatedAt:        result.CreatedAt,
		ExpectedDelivery: result.ExpectedDelivery,
	})
}

// Get returns the full shipment view including its event history. The route
// is public so recipients can track parcels from the link in their email.
func (h *ShipmentHandler) Get(c echo.Context) error {
	trackingNumber := c.Param("trackingNumber")
	if trackingNumber == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "tracking number is required")
	}

	detail, err := h.shipmentService.GetShipment(c.Request().Context(), trackingNumber)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toShipmentResponse(detail))
}

// List returns a paginated shipment listing with optional status, driver and
// free-text filters.
func (h *ShipmentHandler) List(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	result, err := h.shipmentService.ListShipments(c.Request().Context(), ports.ListShipmentsInput{
		Status:   c.QueryParam("status"),
		DriverID: c.QueryParam("driver_id"),
		Search:   c.QueryParam("search"),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		return err
	}

	items := make([]shipmentSummaryResponse, 0, len(result.Items))
	for _, s := range result.Items {
		items = append(items, shipmentSummaryResponse{
			TrackingNumber:   s.TrackingNumber,
			Status:           s.Status,
			DeliveryAddress:  s.DeliveryAddress,
			DriverID:         s.DriverID,
			ExpectedDelivery: s.ExpectedDelivery,
			UpdatedAt:        s.UpdatedAt,
		})
	}

	return c.JSON(http.StatusOK, listShipmentsResponse{
		Items:      items,
		Total:      result.Total,
		Page:       result.Page,
		Limit:      result.Limit,
		TotalPages: result.TotalPages,
	})
}

// AssignDriver attaches a courier to a shipment.
func (h *ShipmentHandler) AssignDriver(c echo.Context) error {
	trackingNumber := c.Param("trackingNumber")
	if trackingNumber == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "tracking number is required")
	}

	var req assignDriverRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	if err := h.shipmentService.AssignDriver(c.Request().Context(), trackingNumber, req.DriverID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "driver assigned"})
}

func toShipmentResponse(d *ports.ShipmentDetail) shipmentResponse {
	resp := shipmentResponse{
		TrackingNumber:   d.TrackingNumber,
		Status:           d.Status,
		DeliveryAddress:  d.DeliveryAddress,
		CurrentLocation:  d.CurrentLocation,
		DriverID:         d.DriverID,
		ExpectedDelivery: d.ExpectedDelivery,
		UpdatedAt:        d.UpdatedAt,
		Events:           make([]shipmentEventResponse, 0, len(d.Events)),
	}
	if d.CurrentPosition != nil {
		resp.CurrentPosition = &positionResponse{Lat: d.CurrentPosition.Lat, Lng: d.CurrentPosition.Lng}
	}
	for _, ev := range d.Events {
		item := shipmentEventResponse{
			Status:    ev.Status,
			Timestamp: ev.Timestamp,
			Location:  ev.Location,
		}
		if ev.Coordinates != nil {
			item.Coordinates = &positionResponse{Lat: ev.Coordinates.Lat, Lng: ev.Coordinates.Lng}
		}
		resp.Events = append(resp.Events, item)
	}
	return resp
}
