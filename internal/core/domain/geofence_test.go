package domain

import (
	"math"
	"testing"
)

// Reference points roughly 5 km apart in central Amsterdam.
var (
	pickupPoint = Coordinates{Lat: 52.3702, Lng: 4.8952}
	destPoint   = Coordinates{Lat: 52.3300, Lng: 4.9000}
)

// offsetMeters returns a point displaced north from origin by the given
// number of meters (1 degree of latitude ≈ 111,195 m on the mean sphere).
func offsetMeters(origin Coordinates, meters float64) Coordinates {
	return Coordinates{
		Lat: origin.Lat + meters/111194.93,
		Lng: origin.Lng,
	}
}

func TestHaversineMeters_KnownDistance(t *testing.T) {
	// Paris to London, approximately 343.5 km.
	paris := Coordinates{Lat: 48.8566, Lng: 2.3522}
	london := Coordinates{Lat: 51.5074, Lng: -0.1278}

	got := HaversineMeters(paris, london)
	if math.Abs(got-343500) > 2000 {
		t.Errorf("HaversineMeters(paris, london) = %.0f, want ~343500", got)
	}
}

func TestHaversineMeters_ZeroDistance(t *testing.T) {
	if d := HaversineMeters(pickupPoint, pickupPoint); d != 0 {
		t.Errorf("distance to self = %f, want 0", d)
	}
}

func TestHaversineMeters_Symmetric(t *testing.T) {
	d1 := HaversineMeters(pickupPoint, destPoint)
	d2 := HaversineMeters(destPoint, pickupPoint)
	if math.Abs(d1-d2) > 1e-9 {
		t.Errorf("distance not symmetric: %f vs %f", d1, d2)
	}
}

func TestEvaluate_FullLifecycle(t *testing.T) {
	// A driver approaching pickup, departing, then approaching the
	// destination walks the full status sequence with no skips or repeats.
	steps := []struct {
		observed Coordinates
		want     ShipmentStatus
	}{
		{offsetMeters(pickupPoint, 5000), StatusPendingForPickup}, // far from pickup
		{offsetMeters(pickupPoint, 200), StatusPackageReceived},   // inside pickup fence
		{offsetMeters(pickupPoint, 100), StatusPackageReceived},   // still inside
		{offsetMeters(pickupPoint, 1200), StatusOutForDelivery},   // left pickup vicinity
		{offsetMeters(destPoint, 3000), StatusOutForDelivery},     // en route
		{offsetMeters(destPoint, 300), StatusDelivered},           // inside destination fence
		{offsetMeters(destPoint, 300), StatusDelivered},           // terminal, no change
		{offsetMeters(destPoint, 9000), StatusDelivered},          // terminal even when leaving
	}

	status := StatusPendingForPickup
	for i, step := range steps {
		status = Evaluate(status, &pickupPoint, &destPoint, step.observed)
		if status != step.want {
			t.Fatalf("step %d: status = %s, want %s", i, status, step.want)
		}
	}
}

func TestEvaluate_NoPickupShortcut(t *testing.T) {
	// Without a pickup point the very first report moves the shipment
	// straight to out_for_delivery, regardless of where the driver is.
	farAway := offsetMeters(destPoint, 50000)

	status := Evaluate(StatusPendingForPickup, nil, &destPoint, farAway)
	if status != StatusOutForDelivery {
		t.Fatalf("first report without pickup: status = %s, want %s", status, StatusOutForDelivery)
	}

	status = Evaluate(status, nil, &destPoint, offsetMeters(destPoint, 100))
	if status != StatusDelivered {
		t.Fatalf("within destination radius: status = %s, want %s", status, StatusDelivered)
	}
}

func TestEvaluate_RadiusBoundaryInclusive(t *testing.T) {
	atRadius := offsetMeters(destPoint, GeofenceRadiusMeters)
	beyondRadius := offsetMeters(destPoint, GeofenceRadiusMeters+1)

	// Guard the fixture itself: the displaced points must straddle the fence.
	if d := HaversineMeters(atRadius, destPoint); d > GeofenceRadiusMeters {
		t.Fatalf("fixture error: at-radius point is %.3f m away", d)
	}
	if d := HaversineMeters(beyondRadius, destPoint); d <= GeofenceRadiusMeters {
		t.Fatalf("fixture error: beyond-radius point is %.3f m away", d)
	}

	if got := Evaluate(StatusOutForDelivery, &pickupPoint, &destPoint, atRadius); got != StatusDelivered {
		t.Errorf("point at radius: status = %s, want %s", got, StatusDelivered)
	}
	if got := Evaluate(StatusOutForDelivery, &pickupPoint, &destPoint, beyondRadius); got != StatusOutForDelivery {
		t.Errorf("point beyond radius: status = %s, want %s", got, StatusOutForDelivery)
	}
}

func TestEvaluate_DeliveredIsTerminal(t *testing.T) {
	atPickup := offsetMeters(pickupPoint, 10)
	if got := Evaluate(StatusDelivered, &pickupPoint, &destPoint, atPickup); got != StatusDelivered {
		t.Errorf("delivered shipment transitioned to %s", got)
	}
}

func TestEvaluate_NoDestinationIsNoOp(t *testing.T) {
	// A shipment out for delivery with no destination reference never
	// auto-completes.
	got := Evaluate(StatusOutForDelivery, nil, nil, destPoint)
	if got != StatusOutForDelivery {
		t.Errorf("status = %s, want unchanged %s", got, StatusOutForDelivery)
	}
}
