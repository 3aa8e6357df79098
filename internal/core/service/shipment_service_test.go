package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/shiptrack/tracking-system/internal/core/domain"
	"github.com/shiptrack/tracking-system/internal/core/ports"
)

// forwardGeocoder resolves any address to a fixed position.
type forwardGeocoder struct {
	pos domain.Coordinates
}

func (g *forwardGeocoder) ReverseGeocode(_ context.Context, _ domain.Coordinates) (string, error) {
	return "", errors.New("not implemented")
}

func (g *forwardGeocoder) Geocode(_ context.Context, _ string) (domain.Coordinates, error) {
	return g.pos, nil
}

func TestCreateShipment_SeedsInitialEvent(t *testing.T) {
	repo := newMemShipmentRepo()
	svc := NewShipmentService(repo, nil, nil, zerolog.Nop())

	result, err := svc.CreateShipment(context.Background(), ports.CreateShipmentInput{
		DeliveryAddress: "Herengracht 1, Amsterdam",
		PickupPosition:  &ports.PositionInput{Lat: testPickup.Lat, Lng: testPickup.Lng},
	})
	if err != nil {
		t.Fatalf("CreateShipment: %v", err)
	}

	if !strings.HasPrefix(result.TrackingNumber, "ST-") {
		t.Errorf("tracking number %q lacks ST- prefix", result.TrackingNumber)
	}
	if result.Status != string(domain.StatusPendingForPickup) {
		t.Errorf("status = %q, want pending_for_pickup", result.Status)
	}

	events := repo.events(result.TrackingNumber)
	if len(events) != 1 {
		t.Fatalf("got %d seed events, want 1", len(events))
	}
	if events[0].Status != domain.StatusPendingForPickup {
		t.Errorf("seed event status = %q", events[0].Status)
	}
}

func TestCreateShipment_ForwardGeocodesDestination(t *testing.T) {
	repo := newMemShipmentRepo()
	svc := NewShipmentService(repo, nil, &forwardGeocoder{pos: testDest}, zerolog.Nop())

	result, err := svc.CreateShipment(context.Background(), ports.CreateShipmentInput{
		DeliveryAddress: "Herengracht 1, Amsterdam",
	})
	if err != nil {
		t.Fatalf("CreateShipment: %v", err)
	}

	stored, err := repo.FindByTrackingNumber(context.Background(), result.TrackingNumber)
	if err != nil {
		t.Fatalf("FindByTrackingNumber: %v", err)
	}
	if stored.DestinationPosition == nil {
		t.Fatal("destination position not resolved from address")
	}
	if stored.DestinationPosition.Lat != testDest.Lat || stored.DestinationPosition.Lng != testDest.Lng {
		t.Errorf("destination = %+v, want %+v", stored.DestinationPosition, testDest)
	}
}

func TestCreateShipment_GeocodeFailureIsNonFatal(t *testing.T) {
	repo := newMemShipmentRepo()
	svc := NewShipmentService(repo, nil, &stubGeocoder{}, zerolog.Nop())

	result, err := svc.CreateShipment(context.Background(), ports.CreateShipmentInput{
		DeliveryAddress: "Nowhere 0",
	})
	if err != nil {
		t.Fatalf("CreateShipment: %v", err)
	}

	stored, err := repo.FindByTrackingNumber(context.Background(), result.TrackingNumber)
	if err != nil {
		t.Fatalf("FindByTrackingNumber: %v", err)
	}
	if stored.DestinationPosition != nil {
		t.Errorf("destination = %+v, want nil after geocode failure", stored.DestinationPosition)
	}
}

func TestGetShipment_NotFound(t *testing.T) {
	svc := NewShipmentService(newMemShipmentRepo(), nil, nil, zerolog.Nop())

	_, err := svc.GetShipment(context.Background(), "ST-MISSING")
	if err == nil || !strings.Contains(err.Error(), domain.ErrShipmentNotFound.Error()) {
		t.Fatalf("err = %v, want wrapped ErrShipmentNotFound", err)
	}
}

func TestGetShipment_ReturnsEventHistory(t *testing.T) {
	repo := newMemShipmentRepo()
	now := time.Now().UTC()
	repo.seed(&domain.Shipment{
		TrackingNumber: "ST-HIST0001",
		Status:         domain.StatusOutForDelivery,
		Events: []domain.ShipmentEvent{
			{Status: domain.StatusPendingForPickup, Timestamp: now.Add(-2 * time.Hour)},
			{Status: domain.StatusPackageReceived, Timestamp: now.Add(-time.Hour), Coordinates: &testPickup},
			{Status: domain.StatusOutForDelivery, Timestamp: now},
		},
	})
	svc := NewShipmentService(repo, nil, nil, zerolog.Nop())

	detail, err := svc.GetShipment(context.Background(), "ST-HIST0001")
	if err != nil {
		t.Fatalf("GetShipment: %v", err)
	}
	if len(detail.Events) != 3 {
		t.Fatalf("got %d events, want 3", len(detail.Events))
	}
	if detail.Events[1].Coordinates == nil || detail.Events[1].Coordinates.Lat != testPickup.Lat {
		t.Errorf("event coordinates not mapped: %+v", detail.Events[1].Coordinates)
	}
}

func TestListShipments_ClampsPaging(t *testing.T) {
	svc := NewShipmentService(newMemShipmentRepo(), nil, nil, zerolog.Nop())

	result, err := svc.ListShipments(context.Background(), ports.ListShipmentsInput{Page: -3, Limit: 10000})
	if err != nil {
		t.Fatalf("ListShipments: %v", err)
	}
	if result.Page != 1 {
		t.Errorf("page = %d, want 1", result.Page)
	}
	if result.Limit != maxPageLimit {
		t.Errorf("limit = %d, want %d", result.Limit, maxPageLimit)
	}
}

func TestListShipments_RejectsUnknownStatusFilter(t *testing.T) {
	svc := NewShipmentService(newMemShipmentRepo(), nil, nil, zerolog.Nop())

	_, err := svc.ListShipments(context.Background(), ports.ListShipmentsInput{Status: "lost_in_transit"})
	if !errors.Is(err, domain.ErrInvalidStatus) {
		t.Fatalf("err = %v, want ErrInvalidStatus", err)
	}

	// Known statuses pass through to the store.
	if _, err := svc.ListShipments(context.Background(), ports.ListShipmentsInput{Status: string(domain.StatusDelivered)}); err != nil {
		t.Fatalf("valid status filter rejected: %v", err)
	}
}

func TestAssignDriver_UnknownShipment(t *testing.T) {
	svc := NewShipmentService(newMemShipmentRepo(), nil, nil, zerolog.Nop())

	err := svc.AssignDriver(context.Background(), "ST-MISSING", "driver7")
	if err == nil {
		t.Fatal("expected error for unknown shipment")
	}
}

func TestAssignDriver_MirrorsOntoDriverRecord(t *testing.T) {
	repo := newMemShipmentRepo()
	repo.seed(&domain.Shipment{TrackingNumber: "ST-ASSIGN01", Status: domain.StatusPendingForPickup})

	drivers := newMemDriverRepo()
	if err := drivers.Create(context.Background(), &domain.Driver{ID: "driver7", Username: "driver7"}); err != nil {
		t.Fatal(err)
	}
	svc := NewShipmentService(repo, drivers, nil, zerolog.Nop())

	if err := svc.AssignDriver(context.Background(), "ST-ASSIGN01", "driver7"); err != nil {
		t.Fatalf("AssignDriver: %v", err)
	}

	d, err := drivers.FindByUsername(context.Background(), "driver7")
	if err != nil {
		t.Fatal(err)
	}
	if len(d.AssignedShipments) != 1 || d.AssignedShipments[0] != "ST-ASSIGN01" {
		t.Errorf("assigned shipments = %v", d.AssignedShipments)
	}

	shipment, err := repo.FindByTrackingNumber(context.Background(), "ST-ASSIGN01")
	if err != nil {
		t.Fatal(err)
	}
	if shipment.DriverID != "driver7" {
		t.Errorf("driver id = %q", shipment.DriverID)
	}
}

func TestAssignDriver_UnknownDriver(t *testing.T) {
	repo := newMemShipmentRepo()
	repo.seed(&domain.Shipment{TrackingNumber: "ST-ASSIGN02", Status: domain.StatusPendingForPickup})
	svc := NewShipmentService(repo, newMemDriverRepo(), nil, zerolog.Nop())

	err := svc.AssignDriver(context.Background(), "ST-ASSIGN02", "ghost")
	if !errors.Is(err, domain.ErrDriverNotFound) {
		t.Fatalf("err = %v, want ErrDriverNotFound", err)
	}
}
