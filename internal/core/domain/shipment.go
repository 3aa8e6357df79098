package domain

import (
	"errors"
	"fmt"
	"time"
)

// ShipmentStatus represents the lifecycle state of a shipment.
type ShipmentStatus string

const (
	StatusPendingForPickup ShipmentStatus = "pending_for_pickup"
	StatusPackageReceived  ShipmentStatus = "package_received"
	StatusOutForDelivery   ShipmentStatus = "out_for_delivery"
	StatusDelivered        ShipmentStatus = "delivered"
)

// statusRank orders the lifecycle. Status only moves forward under geofence
// evaluation; manual operator corrections bypass the engine and write to the
// store directly.
var statusRank = map[ShipmentStatus]int{
	StatusPendingForPickup: 0,
	StatusPackageReceived:  1,
	StatusOutForDelivery:   2,
	StatusDelivered:        3,
}

var ErrShipmentNotFound = errors.New("shipment not found")
var ErrDuplicateShipment = errors.New("shipment already exists")
var ErrDriverNotFound = errors.New("driver not found")
var ErrStatusConflict = errors.New("shipment status changed concurrently")
var ErrInvalidStatus = errors.New("invalid shipment status")
var ErrForbidden = errors.New("access forbidden")

// IsValid reports whether s is one of the four known lifecycle states.
func (s ShipmentStatus) IsValid() bool {
	_, ok := statusRank[s]
	return ok
}

// IsTerminal reports whether no further geofence transitions apply.
func (s ShipmentStatus) IsTerminal() bool {
	return s == StatusDelivered
}

// Before reports whether s precedes other in the delivery lifecycle.
func (s ShipmentStatus) Before(other ShipmentStatus) bool {
	return statusRank[s] < statusRank[other]
}

// Coordinates represents a geographic point.
type Coordinates struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lng float64 `json:"lng" bson:"lng"`
}

// Label renders the point as a "lat, lng" string, used as the fallback
// location description when reverse geocoding is unavailable.
func (c Coordinates) Label() string {
	return fmt.Sprintf("%.5f, %.5f", c.Lat, c.Lng)
}

// ShipmentEvent records a single status transition on a shipment. The events
// slice is append-only: entries are never reordered or pruned, and every
// transition appends exactly one entry.
type ShipmentEvent struct {
	Status      ShipmentStatus `json:"status" bson:"status"`
	Timestamp   time.Time      `json:"timestamp" bson:"timestamp"`
	Location    string         `json:"location" bson:"location"`
	Coordinates *Coordinates   `json:"coordinates,omitempty" bson:"coordinates,omitempty"`
}

// Shipment is the core aggregate root. TrackingNumber is immutable once created.
//
// PickupPosition and DestinationPosition are optional reference points: their
// presence decides which geofence rule set applies (see Evaluate).
// CurrentPosition is absent until the assigned driver's first report.
type Shipment struct {
	ID                  string          `json:"id" bson:"_id,omitempty"`
	TrackingNumber      string          `json:"tracking_number" bson:"tracking_number"`
	Status              ShipmentStatus  `json:"status" bson:"status"`
	DeliveryAddress     string          `json:"delivery_address" bson:"delivery_address"`
	CurrentPosition     *Coordinates    `json:"current_position,omitempty" bson:"current_position,omitempty"`
	PickupPosition      *Coordinates    `json:"pickup_position,omitempty" bson:"pickup_position,omitempty"`
	DestinationPosition *Coordinates    `json:"destination_position,omitempty" bson:"destination_position,omitempty"`
	DriverID            string          `json:"driver_id,omitempty" bson:"driver_id,omitempty"`
	CurrentLocation     string          `json:"current_location,omitempty" bson:"current_location,omitempty"`
	ExpectedDelivery    time.Time       `json:"expected_delivery" bson:"expected_delivery"`
	Events              []ShipmentEvent `json:"events" bson:"events"`
	CreatedAt           time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at" bson:"updated_at"`
}
