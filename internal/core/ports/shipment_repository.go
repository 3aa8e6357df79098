package ports

import (
	"context"
	"time"

	"github.com/shiptrack/tracking-system/internal/core/domain"
)

// ListShipmentsFilter carries query parameters for listing shipments.
type ListShipmentsFilter struct {
	Status   string // optional: filter by shipment status
	DriverID string // optional: shipments assigned to a driver
	Search   string // optional: partial match on tracking_number or delivery_address
	Page     int    // 1-based
	Limit    int    // max rows per page (capped at 100 by service)
}

// ShipmentRepository is the minimal persistence contract the tracking engine
// consumes. Implementations must make AppendEventAndSetStatus atomic per
// tracking number.
type ShipmentRepository interface {
	Create(ctx context.Context, s *domain.Shipment) error

	// FindByTrackingNumber retrieves a shipment. Returns
	// domain.ErrShipmentNotFound when the tracking number does not exist;
	// callers on the ingest path treat that as a recoverable condition.
	FindByTrackingNumber(ctx context.Context, trackingNumber string) (*domain.Shipment, error)

	// UpdatePosition writes the observed position (and reporting driver) to
	// every listed shipment. Best-effort bulk: unknown tracking numbers are
	// skipped, not errors. Returns the number of shipments updated.
	UpdatePosition(ctx context.Context, trackingNumbers []string, pos domain.Coordinates, driverID string, observedAt time.Time) (int64, error)

	// AppendEventAndSetStatus sets the shipment status and appends the event
	// in one atomic write, conditional on the current status still being
	// expected (compare-and-set). Returns domain.ErrStatusConflict when a
	// concurrent writer got there first; the caller re-reads and re-evaluates.
	AppendEventAndSetStatus(ctx context.Context, trackingNumber string, expected, next domain.ShipmentStatus, event domain.ShipmentEvent) (*domain.Shipment, error)

	// AssignDriver links a driver to a shipment.
	AssignDriver(ctx context.Context, trackingNumber, driverID string) error

	// List returns a page of shipments matching filter and the total count.
	List(ctx context.Context, filter ListShipmentsFilter) ([]*domain.Shipment, int64, error)
}

// DriverRepository handles courier records.
type DriverRepository interface {
	Create(ctx context.Context, d *domain.Driver) error
	FindByUsername(ctx context.Context, username string) (*domain.Driver, error)
	List(ctx context.Context) ([]*domain.Driver, error)
	// AddAssignment records a shipment on the driver's assignment list.
	AddAssignment(ctx context.Context, driverID, trackingNumber string) error
	// UpdateLastSeen records the driver's most recent reported position.
	UpdateLastSeen(ctx context.Context, driverID string, pos domain.Coordinates, at time.Time) error
}
