package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/shiptrack/tracking-system/internal/core/domain"
	"github.com/shiptrack/tracking-system/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

// memShipmentRepo is an in-memory ShipmentRepository with real
// compare-and-set semantics, so the concurrent transition tests exercise the
// same conflict handling the Mongo implementation provides.
type memShipmentRepo struct {
	mu         sync.Mutex
	byTracking map[string]*domain.Shipment
}

func newMemShipmentRepo() *memShipmentRepo {
	return &memShipmentRepo{byTracking: make(map[string]*domain.Shipment)}
}

func (r *memShipmentRepo) seed(s *domain.Shipment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byTracking[s.TrackingNumber] = s
}

func (r *memShipmentRepo) Create(_ context.Context, s *domain.Shipment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byTracking[s.TrackingNumber]; ok {
		return domain.ErrDuplicateShipment
	}
	r.byTracking[s.TrackingNumber] = s
	return nil
}

func (r *memShipmentRepo) FindByTrackingNumber(_ context.Context, trackingNumber string) (*domain.Shipment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byTracking[trackingNumber]
	if !ok {
		return nil, domain.ErrShipmentNotFound
	}
	cp := *s
	cp.Events = append([]domain.ShipmentEvent(nil), s.Events...)
	return &cp, nil
}

func (r *memShipmentRepo) UpdatePosition(_ context.Context, trackingNumbers []string, pos domain.Coordinates, driverID string, observedAt time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, tn := range trackingNumbers {
		s, ok := r.byTracking[tn]
		if !ok {
			continue
		}
		p := pos
		s.CurrentPosition = &p
		if driverID != "" {
			s.DriverID = driverID
		}
		s.UpdatedAt = observedAt
		n++
	}
	return n, nil
}

func (r *memShipmentRepo) AppendEventAndSetStatus(_ context.Context, trackingNumber string, expected, next domain.ShipmentStatus, event domain.ShipmentEvent) (*domain.Shipment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byTracking[trackingNumber]
	if !ok {
		return nil, domain.ErrShipmentNotFound
	}
	if s.Status != expected {
		return nil, domain.ErrStatusConflict
	}
	s.Status = next
	s.Events = append(s.Events, event)
	s.UpdatedAt = event.Timestamp
	cp := *s
	return &cp, nil
}

func (r *memShipmentRepo) AssignDriver(_ context.Context, trackingNumber, driverID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byTracking[trackingNumber]
	if !ok {
		return domain.ErrShipmentNotFound
	}
	s.DriverID = driverID
	return nil
}

func (r *memShipmentRepo) List(_ context.Context, _ ports.ListShipmentsFilter) ([]*domain.Shipment, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Shipment, 0, len(r.byTracking))
	for _, s := range r.byTracking {
		cp := *s
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

func (r *memShipmentRepo) events(trackingNumber string) []domain.ShipmentEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byTracking[trackingNumber]
	if !ok {
		return nil
	}
	return append([]domain.ShipmentEvent(nil), s.Events...)
}

// recordingBroadcaster captures fan-out calls for assertions.
type recordingBroadcaster struct {
	mu        sync.Mutex
	locations []ports.LocationUpdate
	statuses  []ports.StatusChange
}

func (b *recordingBroadcaster) BroadcastLocation(u ports.LocationUpdate) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.locations = append(b.locations, u)
}

func (b *recordingBroadcaster) BroadcastStatus(c ports.StatusChange) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statuses = append(b.statuses, c)
}

func (b *recordingBroadcaster) statusSequence() []domain.ShipmentStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.ShipmentStatus, len(b.statuses))
	for i, c := range b.statuses {
		out[i] = c.NewStatus
	}
	return out
}

type stubGeocoder struct {
	label string
	err   error
}

func (g *stubGeocoder) ReverseGeocode(_ context.Context, _ domain.Coordinates) (string, error) {
	return g.label, g.err
}

func (g *stubGeocoder) Geocode(_ context.Context, _ string) (domain.Coordinates, error) {
	return domain.Coordinates{}, errors.New("not implemented")
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

var (
	testPickup = domain.Coordinates{Lat: 52.3702, Lng: 4.8952}
	testDest   = domain.Coordinates{Lat: 52.3300, Lng: 4.9000}
)

func northOf(origin domain.Coordinates, meters float64) domain.Coordinates {
	return domain.Coordinates{Lat: origin.Lat + meters/111194.93, Lng: origin.Lng}
}

func seedShipment(repo *memShipmentRepo, tracking string, pickup, dest *domain.Coordinates) {
	repo.seed(&domain.Shipment{
		TrackingNumber:      tracking,
		Status:              domain.StatusPendingForPickup,
		PickupPosition:      pickup,
		DestinationPosition: dest,
		CreatedAt:           time.Now().UTC(),
	})
}

func newIngestor(repo *memShipmentRepo, bc ports.Broadcaster) ports.LocationIngestor {
	return NewLocationService(repo, nil, &stubGeocoder{err: errors.New("unavailable")}, nil, bc, zerolog.Nop())
}

func report(tracking string, pos domain.Coordinates) ports.LocationReport {
	return ports.LocationReport{
		TrackingNumbers: []string{tracking},
		Position:        pos,
		DriverID:        "driver-7",
		ObservedAt:      time.Now().UTC(),
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestLocationService_FullLifecycleEvents(t *testing.T) {
	repo := newMemShipmentRepo()
	bc := &recordingBroadcaster{}
	seedShipment(repo, "ST-1001", &testPickup, &testDest)
	svc := newIngestor(repo, bc)
	ctx := context.Background()

	// Approach pickup, depart, approach destination.
	path := []domain.Coordinates{
		northOf(testPickup, 4000),
		northOf(testPickup, 300),
		northOf(testPickup, 1500),
		northOf(testDest, 2000),
		northOf(testDest, 200),
		northOf(testDest, 200), // post-delivery report
	}
	for _, pos := range path {
		svc.Ingest(ctx, report("ST-1001", pos))
	}

	wantEvents := []domain.ShipmentStatus{
		domain.StatusPackageReceived,
		domain.StatusOutForDelivery,
		domain.StatusDelivered,
	}
	events := repo.events("ST-1001")
	if len(events) != len(wantEvents) {
		t.Fatalf("events = %d, want %d: %+v", len(events), len(wantEvents), events)
	}
	for i, want := range wantEvents {
		if events[i].Status != want {
			t.Errorf("event[%d].Status = %s, want %s", i, events[i].Status, want)
		}
	}
	// The lifecycle only moves forward: each appended event strictly
	// outranks its predecessor.
	for i := 1; i < len(events); i++ {
		if !events[i-1].Status.Before(events[i].Status) {
			t.Errorf("event[%d] %s does not advance past %s", i, events[i].Status, events[i-1].Status)
		}
	}

	if got := bc.statusSequence(); len(got) != 3 || got[2] != domain.StatusDelivered {
		t.Errorf("status broadcasts = %v, want milestone sequence ending delivered", got)
	}
	// Every valid report for a known shipment broadcasts a location update.
	if len(bc.locations) != len(path) {
		t.Errorf("location broadcasts = %d, want %d", len(bc.locations), len(path))
	}
}

func TestLocationService_NoPickupShortcut(t *testing.T) {
	repo := newMemShipmentRepo()
	bc := &recordingBroadcaster{}
	seedShipment(repo, "ST-2002", nil, &testDest)
	svc := newIngestor(repo, bc)
	ctx := context.Background()

	svc.Ingest(ctx, report("ST-2002", northOf(testDest, 30000)))
	svc.Ingest(ctx, report("ST-2002", northOf(testDest, 100)))

	events := repo.events("ST-2002")
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2: %+v", len(events), events)
	}
	if events[0].Status != domain.StatusOutForDelivery || events[1].Status != domain.StatusDelivered {
		t.Errorf("event sequence = %s, %s; want out_for_delivery, delivered", events[0].Status, events[1].Status)
	}
}

func TestLocationService_ConcurrentDeliveryRace(t *testing.T) {
	repo := newMemShipmentRepo()
	bc := &recordingBroadcaster{}
	repo.seed(&domain.Shipment{
		TrackingNumber:      "ST-3003",
		Status:              domain.StatusOutForDelivery,
		PickupPosition:      &testPickup,
		DestinationPosition: &testDest,
	})
	svc := newIngestor(repo, bc)
	crossing := northOf(testDest, 50)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.Ingest(context.Background(), report("ST-3003", crossing))
		}()
	}
	wg.Wait()

	events := repo.events("ST-3003")
	if len(events) != 1 {
		t.Fatalf("events = %d, want exactly 1 delivered event: %+v", len(events), events)
	}
	if events[0].Status != domain.StatusDelivered {
		t.Errorf("event status = %s, want delivered", events[0].Status)
	}
}

func TestLocationService_UnknownTrackingNumber(t *testing.T) {
	repo := newMemShipmentRepo()
	bc := &recordingBroadcaster{}
	svc := newIngestor(repo, bc)

	svc.Ingest(context.Background(), report("ST-MISSING", testDest))

	if len(bc.locations) != 0 || len(bc.statuses) != 0 {
		t.Errorf("broadcasts for unknown shipment: %d locations, %d statuses", len(bc.locations), len(bc.statuses))
	}
	if _, _, err := repo.List(context.Background(), ports.ListShipmentsFilter{}); err != nil {
		t.Fatalf("list: %v", err)
	}
	if evs := repo.events("ST-MISSING"); evs != nil {
		t.Errorf("phantom shipment created: %+v", evs)
	}
}

func TestLocationService_InvalidReportDropped(t *testing.T) {
	repo := newMemShipmentRepo()
	bc := &recordingBroadcaster{}
	seedShipment(repo, "ST-4004", &testPickup, &testDest)
	svc := newIngestor(repo, bc)
	ctx := context.Background()

	svc.Ingest(ctx, ports.LocationReport{Position: testDest})                            // no tracking numbers
	svc.Ingest(ctx, report("ST-4004", domain.Coordinates{Lat: 123.0, Lng: 4.9}))         // latitude out of range
	svc.Ingest(ctx, report("ST-4004", domain.Coordinates{Lat: 52.0, Lng: -200.0}))       // longitude out of range

	if len(bc.locations) != 0 {
		t.Errorf("invalid reports broadcast %d location updates", len(bc.locations))
	}
	if evs := repo.events("ST-4004"); len(evs) != 0 {
		t.Errorf("invalid reports appended events: %+v", evs)
	}
}

func TestLocationService_GeocodeFallbackLabel(t *testing.T) {
	repo := newMemShipmentRepo()
	bc := &recordingBroadcaster{}
	seedShipment(repo, "ST-5005", &testPickup, &testDest)
	svc := newIngestor(repo, bc) // geocoder always errors
	pos := northOf(testPickup, 100)

	svc.Ingest(context.Background(), report("ST-5005", pos))

	events := repo.events("ST-5005")
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if events[0].Location != pos.Label() {
		t.Errorf("event location = %q, want coordinate fallback %q", events[0].Location, pos.Label())
	}
}

func TestLocationService_MultiShipmentReport(t *testing.T) {
	repo := newMemShipmentRepo()
	bc := &recordingBroadcaster{}
	seedShipment(repo, "ST-6006", &testPickup, &testDest)
	seedShipment(repo, "ST-6007", &testPickup, &testDest)
	svc := newIngestor(repo, bc)

	svc.Ingest(context.Background(), ports.LocationReport{
		TrackingNumbers: []string{"ST-6006", "ST-6007", "ST-GONE"},
		Position:        northOf(testPickup, 100),
		ObservedAt:      time.Now().UTC(),
	})

	if len(bc.locations) != 2 {
		t.Errorf("location broadcasts = %d, want 2 (unknown id skipped)", len(bc.locations))
	}
	for _, tn := range []string{"ST-6006", "ST-6007"} {
		if evs := repo.events(tn); len(evs) != 1 || evs[0].Status != domain.StatusPackageReceived {
			t.Errorf("%s events = %+v, want single package_received", tn, evs)
		}
	}
}
