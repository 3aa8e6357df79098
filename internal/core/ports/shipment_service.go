package ports

import (
	"context"
	"time"

	"github.com/shiptrack/tracking-system/internal/core/domain"
)

// PositionInput holds geographic coordinates supplied by a caller.
type PositionInput struct {
	Lat float64
	Lng float64
}

// CreateShipmentInput carries all data needed to create a new shipment.
// Destination coordinates are optional; when absent the service resolves them
// from the delivery address through the geocoder, best-effort.
type CreateShipmentInput struct {
	DeliveryAddress     string
	PickupPosition      *PositionInput
	DestinationPosition *PositionInput
	ExpectedDelivery    time.Time
	DriverID            string
}

// ShipmentResult is returned by the service after creating a shipment.
type ShipmentResult struct {
	TrackingNumber   string
	Status           string
	CreatedAt        time.Time
	ExpectedDelivery time.Time
}

// EventItem is a single entry in the shipment's event history.
type EventItem struct {
	Status      string
	Timestamp   time.Time
	Location    string
	Coordinates *PositionInput
}

// ShipmentDetail is the full shipment view returned by GetShipment.
type ShipmentDetail struct {
	TrackingNumber   string
	Status           string
	DeliveryAddress  string
	CurrentPosition  *PositionInput
	CurrentLocation  string
	DriverID         string
	ExpectedDelivery time.Time
	UpdatedAt        time.Time
	Events           []EventItem
}

// ListShipmentsInput carries all parameters for the list endpoint.
type ListShipmentsInput struct {
	Status   string
	DriverID string
	Search   string
	Page     int
	Limit    int
}

// ShipmentSummary is the lightweight view used in list responses (no events).
type ShipmentSummary struct {
	TrackingNumber   string
	Status           string
	DeliveryAddress  string
	DriverID         string
	ExpectedDelivery time.Time
	UpdatedAt        time.Time
}

// ListShipmentsResult is returned by ListShipments.
type ListShipmentsResult struct {
	Items      []ShipmentSummary
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// ShipmentService defines use-case operations for shipments.
type ShipmentService interface {
	CreateShipment(ctx context.Context, input CreateShipmentInput) (*ShipmentResult, error)
	GetShipment(ctx context.Context, trackingNumber string) (*ShipmentDetail, error)
	ListShipments(ctx context.Context, input ListShipmentsInput) (*ListShipmentsResult, error)
	AssignDriver(ctx context.Context, trackingNumber, driverID string) error
}

// DriverService exposes courier directory operations.
type DriverService interface {
	ListDrivers(ctx context.Context) ([]*domain.Driver, error)
}
