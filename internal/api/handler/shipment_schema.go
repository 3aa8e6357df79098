package handler

import "time"

type positionRequest struct {
	Lat float64 `json:"lat" validate:"min=-90,max=90"`
	Lng float64 `json:"lng" validate:"min=-180,max=180"`
}

type createShipmentRequest struct {
	DeliveryAddress     string           `json:"delivery_address" validate:"required"`
	PickupPosition      *positionRequest `json:"pickup_position"`
	DestinationPosition *positionRequest `json:"destination_position"`
	ExpectedDelivery    time.Time        `json:"expected_delivery"`
	DriverID            string           `json:"driver_id"`
}

type createShipmentResponse struct {
	TrackingNumber   string    `json:"tracking_number"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	ExpectedDelivery time.Time `json:"expected_delivery"`
}

type positionResponse struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type shipmentEventResponse struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	Location    string            `json:"location"`
	Coordinates *positionResponse `json:"coordinates,omitempty"`
}

type shipmentResponse struct {
	TrackingNumber   string                  `json:"tracking_number"`
	Status           string                  `json:"status"`
	DeliveryAddress  string                  `json:"delivery_address"`
	CurrentPosition  *positionResponse       `json:"current_position,omitempty"`
	CurrentLocation  string                  `json:"current_location,omitempty"`
	DriverID         string                  `json:"driver_id,omitempty"`
	ExpectedDelivery time.Time               `json:"expected_delivery"`
	UpdatedAt        time.Time               `json:"updated_at"`
	Events           []shipmentEventResponse `json:"events"`
}

type shipmentSummaryResponse struct {
	TrackingNumber   string    `json:"tracking_number"`
	Status           string    `json:"status"`
	DeliveryAddress  string    `json:"delivery_address"`
	DriverID         string    `json:"driver_id,omitempty"`
	ExpectedDelivery time.Time `json:"expected_delivery"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type listShipmentsResponse struct {
	Items      []shipmentSummaryResponse `json:"items"`
	Total      int64                     `json:"total"`
	Page       int                       `json:"page"`
	Limit      int                       `json:"limit"`
	TotalPages int                       `json:"total_pages"`
}

type assignDriverRequest struct {
	DriverID string `json:"driver_id" validate:"required"`
}

type locationReportRequest struct {
	TrackingNumbers []string `json:"tracking_numbers" validate:"required,min=1,dive,required"`
	Latitude        *float64 `json:"latitude" validate:"required"`
	Longitude       *float64 `json:"longitude" validate:"required"`
}

type acceptedResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count,omitempty"`
}
