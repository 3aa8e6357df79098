package ports

import (
	"context"
	"time"

	"github.com/shiptrack/tracking-system/internal/core/domain"
)

// LocationReport is one GPS sample from a driver. It is transient: validated,
// applied to the affected shipments, broadcast, and discarded. A driver
// hauling several parcels reports all of their tracking numbers in one tick.
type LocationReport struct {
	TrackingNumbers []string
	Position        domain.Coordinates
	DriverID        string
	ObservedAt      time.Time
}

// LocationIngestor consumes location reports. Implementations never fail the
// caller for per-shipment problems: unknown tracking numbers and collaborator
// outages are logged and absorbed.
type LocationIngestor interface {
	Ingest(ctx context.Context, report LocationReport)
}

// LocationUpdate is the payload broadcast to watchers on every valid report.
type LocationUpdate struct {
	TrackingNumber string    `json:"trackingNumber"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	UpdatedAt      time.Time `json:"updated_at"`
	Location       string    `json:"location,omitempty"`
}

// StatusChange is broadcast only when a geofence transition occurred, so
// subscribers can distinguish "moved" from "milestone reached".
type StatusChange struct {
	TrackingNumber string                `json:"trackingNumber"`
	NewStatus      domain.ShipmentStatus `json:"newStatus"`
}

// Broadcaster fans messages out to the connections watching a tracking
// number. Delivery is best-effort; failures never propagate to the caller.
type Broadcaster interface {
	BroadcastLocation(update LocationUpdate)
	BroadcastStatus(change StatusChange)
}

// Geocoder resolves between coordinates and human-readable labels.
// ReverseGeocode sits on the ingest hot path and must honour ctx deadlines;
// Geocode is used at shipment creation only.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, pos domain.Coordinates) (string, error)
	Geocode(ctx context.Context, address string) (domain.Coordinates, error)
}
