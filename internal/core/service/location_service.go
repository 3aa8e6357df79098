package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/shiptrack/tracking-system/internal/api/metrics"
	"github.com/shiptrack/tracking-system/internal/core/domain"
	"github.com/shiptrack/tracking-system/internal/core/ports"
)

const (
	// defaultGeocodeTimeout bounds the reverse-geocode call so a slow
	// collaborator cannot stall the ingest worker; on expiry the coordinate
	// string label is used instead.
	defaultGeocodeTimeout = 2 * time.Second

	// maxTransitionAttempts bounds the read-evaluate-CAS cycle under
	// concurrent reports for the same shipment. A losing writer re-reads the
	// post-update state; with a terminal or unchanged status the cycle ends
	// without a write.
	maxTransitionAttempts = 3
)

// LabelCache abstracts the reverse-geocode label cache (Redis). A miss is
// reported as an empty label, not an error.
type LabelCache interface {
	Get(ctx context.Context, pos domain.Coordinates) (string, error)
	Set(ctx context.Context, pos domain.Coordinates, label string) error
}

type locationService struct {
	shipments   ports.ShipmentRepository
	drivers     ports.DriverRepository
	geocoder    ports.Geocoder
	labels      LabelCache
	broadcaster ports.Broadcaster
	log         zerolog.Logger

	geocodeTimeout time.Duration
}

// NewLocationService wires the ingest pipeline. The geocoder, label cache and
// driver repository are optional enrichments: passing nil degrades to
// coordinate-string labels and skips driver bookkeeping.
func NewLocationService(
	shipments ports.ShipmentRepository,
	drivers ports.DriverRepository,
	geocoder ports.Geocoder,
	labels LabelCache,
	broadcaster ports.Broadcaster,
	log zerolog.Logger,
) ports.LocationIngestor {
	return &locationService{
		shipments:      shipments,
		drivers:        drivers,
		geocoder:       geocoder,
		labels:         labels,
		broadcaster:    broadcaster,
		log:            log,
		geocodeTimeout: defaultGeocodeTimeout,
	}
}

// Ingest applies one driver GPS sample: persist the position on every listed
// shipment, run the geofence evaluation against the persisted status, append
// a history event on transition, and fan the deltas out to watchers.
//
// Nothing here is allowed to fail the caller. Unknown tracking numbers,
// geocoder outages and store conflicts are absorbed per shipment.
func (s *locationService) Ingest(ctx context.Context, report ports.LocationReport) {
	if len(report.TrackingNumbers) == 0 {
		metrics.ReportsDroppedTotal.WithLabelValues("invalid").Inc()
		s.log.Warn().Msg("location report dropped: no tracking numbers")
		return
	}
	if !validCoordinates(report.Position) {
		metrics.ReportsDroppedTotal.WithLabelValues("invalid").Inc()
		s.log.Warn().
			Float64("lat", report.Position.Lat).
			Float64("lng", report.Position.Lng).
			Msg("location report dropped: coordinates out of range")
		return
	}
	defer func(start time.Time) {
		metrics.IngestDuration.Observe(time.Since(start).Seconds())
	}(time.Now())

	observedAt := report.ObservedAt
	if observedAt.IsZero() {
		observedAt = time.Now().UTC()
	}

	label := s.resolveLabel(ctx, report.Position)

	// Position is written unconditionally, in bulk, before any status
	// evaluation. Unknown tracking numbers are skipped by the store.
	if _, err := s.shipments.UpdatePosition(ctx, report.TrackingNumbers, report.Position, report.DriverID, observedAt); err != nil {
		s.log.Error().Err(err).Strs("tracking_numbers", report.TrackingNumbers).Msg("position update failed")
	}

	if s.drivers != nil && report.DriverID != "" {
		if err := s.drivers.UpdateLastSeen(ctx, report.DriverID, report.Position, observedAt); err != nil {
			s.log.Warn().Err(err).Str("driver_id", report.DriverID).Msg("driver last-seen update failed")
		}
	}

	for _, trackingNumber := range report.TrackingNumbers {
		s.applyReport(ctx, trackingNumber, report.Position, label, observedAt)
	}
}

// applyReport runs the geofence state machine for one shipment and emits the
// broadcasts. A location update goes out on every valid report for a known
// shipment; a status change additionally goes out when a transition occurred.
func (s *locationService) applyReport(ctx context.Context, trackingNumber string, pos domain.Coordinates, label string, observedAt time.Time) {
	newStatus, found := s.transition(ctx, trackingNumber, pos, label, observedAt)
	if !found {
		return
	}

	s.broadcaster.BroadcastLocation(ports.LocationUpdate{
		TrackingNumber: trackingNumber,
		Latitude:       pos.Lat,
		Longitude:      pos.Lng,
		UpdatedAt:      observedAt,
		Location:       label,
	})

	if newStatus != "" {
		s.broadcaster.BroadcastStatus(ports.StatusChange{
			TrackingNumber: trackingNumber,
			NewStatus:      newStatus,
		})
	}
}

// transition runs the read-evaluate-CAS cycle. It returns the new status when
// a transition was applied ("" otherwise) and whether the shipment exists.
func (s *locationService) transition(ctx context.Context, trackingNumber string, pos domain.Coordinates, label string, observedAt time.Time) (domain.ShipmentStatus, bool) {
	for attempt := 0; attempt < maxTransitionAttempts; attempt++ {
		shipment, err := s.shipments.FindByTrackingNumber(ctx, trackingNumber)
		if err != nil {
			if errors.Is(err, domain.ErrShipmentNotFound) {
				s.log.Debug().Str("tracking_number", trackingNumber).Msg("report for unknown tracking number dropped")
			} else {
				s.log.Error().Err(err).Str("tracking_number", trackingNumber).Msg("shipment lookup failed")
			}
			return "", false
		}

		next := domain.Evaluate(shipment.Status, shipment.PickupPosition, shipment.DestinationPosition, pos)
		if next == shipment.Status {
			return "", true
		}

		event := domain.ShipmentEvent{
			Status:      next,
			Timestamp:   observedAt,
			Location:    label,
			Coordinates: &pos,
		}
		_, err = s.shipments.AppendEventAndSetStatus(ctx, trackingNumber, shipment.Status, next, event)
		if err == nil {
			s.log.Info().
				Str("tracking_number", trackingNumber).
				Str("from", string(shipment.Status)).
				Str("to", string(next)).
				Msg("shipment status transitioned")
			return next, true
		}
		if errors.Is(err, domain.ErrStatusConflict) {
			// A concurrent report won the race; re-read and re-evaluate
			// against the post-update state.
			continue
		}
		s.log.Error().Err(err).Str("tracking_number", trackingNumber).Msg("status update failed")
		return "", true
	}

	s.log.Warn().Str("tracking_number", trackingNumber).Msg("status transition abandoned after repeated conflicts")
	return "", true
}

// resolveLabel returns a human-readable description for the observed point:
// cache, then geocoder under a bounded timeout, then the raw coordinates.
func (s *locationService) resolveLabel(ctx context.Context, pos domain.Coordinates) string {
	if s.labels != nil {
		if label, err := s.labels.Get(ctx, pos); err == nil && label != "" {
			metrics.GeocodeLookupsTotal.WithLabelValues("cache_hit").Inc()
			return label
		}
	}

	if s.geocoder == nil {
		metrics.GeocodeLookupsTotal.WithLabelValues("fallback").Inc()
		return pos.Label()
	}

	geoCtx, cancel := context.WithTimeout(ctx, s.geocodeTimeout)
	defer cancel()

	label, err := s.geocoder.ReverseGeocode(geoCtx, pos)
	if err != nil || label == "" {
		if err != nil {
			s.log.Debug().Err(err).Msg("reverse geocode unavailable, using coordinate label")
		}
		metrics.GeocodeLookupsTotal.WithLabelValues("fallback").Inc()
		return pos.Label()
	}
	metrics.GeocodeLookupsTotal.WithLabelValues("resolved").Inc()

	if s.labels != nil {
		if err := s.labels.Set(ctx, pos, label); err != nil {
			s.log.Debug().Err(err).Msg("label cache write failed")
		}
	}
	return label
}

func validCoordinates(pos domain.Coordinates) bool {
	return pos.Lat >= -90 && pos.Lat <= 90 && pos.Lng >= -180 && pos.Lng <= 180
}
