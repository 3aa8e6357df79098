package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/shiptrack/tracking-system/internal/core/domain"
	"github.com/shiptrack/tracking-system/internal/core/ports"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type ShipmentService struct {
	repo     ports.ShipmentRepository
	drivers  ports.DriverRepository
	geocoder ports.Geocoder
	logger   zerolog.Logger
}

// NewShipmentService builds the shipment use cases. drivers and geocoder may
// be nil; without drivers, assignment skips directory validation, and without
// a geocoder, addresses are never resolved to coordinates.
func NewShipmentService(repo ports.ShipmentRepository, drivers ports.DriverRepository, geocoder ports.Geocoder, logger zerolog.Logger) *ShipmentService {
	return &ShipmentService{repo: repo, drivers: drivers, geocoder: geocoder, logger: logger}
}

// CreateShipment registers a new shipment in pending_for_pickup. When no
// destination coordinates are supplied, the delivery address is forward
// geocoded. Failure there is non-fatal; the shipment simply carries no
// destination fence until an operator fixes it.
func (s *ShipmentService) CreateShipment(ctx context.Context, input ports.CreateShipmentInput) (*ports.ShipmentResult, error) {
	now := time.Now().UTC()

	shipment := &domain.Shipment{
		TrackingNumber:   generateTrackingNumber(),
		Status:           domain.StatusPendingForPickup,
		DeliveryAddress:  input.DeliveryAddress,
		DriverID:         input.DriverID,
		ExpectedDelivery: input.ExpectedDelivery,
		CreatedAt:        now,
		UpdatedAt:        now,
		Events: []domain.ShipmentEvent{{
			Status:    domain.StatusPendingForPickup,
			Timestamp: now,
			Location:  input.DeliveryAddress,
		}},
	}
	if input.PickupPosition != nil {
		shipment.PickupPosition = &domain.Coordinates{Lat: input.PickupPosition.Lat, Lng: input.PickupPosition.Lng}
	}
	if input.DestinationPosition != nil {
		shipment.DestinationPosition = &domain.Coordinates{Lat: input.DestinationPosition.Lat, Lng: input.DestinationPosition.Lng}
	} else if input.DeliveryAddress != "" && s.geocoder != nil {
		if pos, err := s.geocoder.Geocode(ctx, input.DeliveryAddress); err == nil {
			shipment.DestinationPosition = &pos
		} else {
			s.logger.Warn().Err(err).Str("address", input.DeliveryAddress).Msg("destination geocode failed, shipment created without fence")
		}
	}

	if err := s.repo.Create(ctx, shipment); err != nil {
		s.logger.Error().Err(err).Msg("failed to create shipment")
		return nil, err
	}

	s.logger.Info().
		Str("tracking_number", shipment.TrackingNumber).
		Str("driver_id", shipment.DriverID).
		Msg("shipment created")

	return &ports.ShipmentResult{
		TrackingNumber:   shipment.TrackingNumber,
		Status:           string(shipment.Status),
		CreatedAt:        shipment.CreatedAt,
		ExpectedDelivery: shipment.ExpectedDelivery,
	}, nil
}

// GetShipment returns the full shipment view including its event history.
func (s *ShipmentService) GetShipment(ctx context.Context, trackingNumber string) (*ports.ShipmentDetail, error) {
	shipment, err := s.repo.FindByTrackingNumber(ctx, trackingNumber)
	if err != nil {
		return nil, fmt.Errorf("get shipment: %w", err)
	}

	detail := &ports.ShipmentDetail{
		TrackingNumber:   shipment.TrackingNumber,
		Status:           string(shipment.Status),
		DeliveryAddress:  shipment.DeliveryAddress,
		CurrentLocation:  shipment.CurrentLocation,
		DriverID:         shipment.DriverID,
		ExpectedDelivery: shipment.ExpectedDelivery,
		UpdatedAt:        shipment.UpdatedAt,
		Events:           make([]ports.EventItem, 0, len(shipment.Events)),
	}
	if shipment.CurrentPosition != nil {
		detail.CurrentPosition = &ports.PositionInput{Lat: shipment.CurrentPosition.Lat, Lng: shipment.CurrentPosition.Lng}
	}
	for _, ev := range shipment.Events {
		item := ports.EventItem{
			Status:    string(ev.Status),
			Timestamp: ev.Timestamp,
			Location:  ev.Location,
		}
		if ev.Coordinates != nil {
			item.Coordinates = &ports.PositionInput{Lat: ev.Coordinates.Lat, Lng: ev.Coordinates.Lng}
		}
		detail.Events = append(detail.Events, item)
	}
	return detail, nil
}

// ListShipments returns a page of shipment summaries.
func (s *ShipmentService) ListShipments(ctx context.Context, input ports.ListShipmentsInput) (*ports.ListShipmentsResult, error) {
	if input.Status != "" && !domain.ShipmentStatus(input.Status).IsValid() {
		return nil, fmt.Errorf("list shipments: %w", domain.ErrInvalidStatus)
	}

	page := input.Page
	if page < 1 {
		page = 1
	}
	limit := input.Limit
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	shipments, total, err := s.repo.List(ctx, ports.ListShipmentsFilter{
		Status:   input.Status,
		DriverID: input.DriverID,
		Search:   input.Search,
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list shipments: %w", err)
	}

	items := make([]ports.ShipmentSummary, 0, len(shipments))
	for _, sh := range shipments {
		items = append(items, ports.ShipmentSummary{
			TrackingNumber:   sh.TrackingNumber,
			Status:           string(sh.Status),
			DeliveryAddress:  sh.DeliveryAddress,
			DriverID:         sh.DriverID,
			ExpectedDelivery: sh.ExpectedDelivery,
			UpdatedAt:        sh.UpdatedAt,
		})
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &ports.ListShipmentsResult{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}

// AssignDriver links a courier to a shipment. With a driver directory
// available the driver must exist, and the assignment is mirrored onto their
// record.
func (s *ShipmentService) AssignDriver(ctx context.Context, trackingNumber, driverID string) error {
	if s.drivers != nil {
		if _, err := s.drivers.FindByUsername(ctx, driverID); err != nil {
			return fmt.Errorf("assign driver: %w", err)
		}
	}

	if err := s.repo.AssignDriver(ctx, trackingNumber, driverID); err != nil {
		return fmt.Errorf("assign driver: %w", err)
	}

	if s.drivers != nil {
		if err := s.drivers.AddAssignment(ctx, driverID, trackingNumber); err != nil {
			s.logger.Warn().Err(err).Str("driver_id", driverID).Msg("assignment list update failed")
		}
	}

	s.logger.Info().Str("tracking_number", trackingNumber).Str("driver_id", driverID).Msg("driver assigned")
	return nil
}

// generateTrackingNumber returns a unique tracking number in the format ST-XXXXXXXX.
func generateTrackingNumber() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		// fallback: use current nanoseconds
		return fmt.Sprintf("ST-%08X", time.Now().UnixNano()&0xFFFFFFFF)
	}
	return fmt.Sprintf("ST-%08X", b)
}
