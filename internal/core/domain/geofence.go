package domain

import "math"

// GeofenceRadiusMeters is the proximity radius that defines "arrived" at a
// pickup or destination point. The boundary is inclusive: a point exactly at
// the radius counts as arrived.
const GeofenceRadiusMeters = 500.0

// earthRadiusMeters is the mean spherical earth radius.
const earthRadiusMeters = 6371000.0

// HaversineMeters returns the great-circle distance between two points in
// meters. The formula is numerically stable at delivery-radius scale.
func HaversineMeters(a, b Coordinates) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng

	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Evaluate decides the next shipment status for an observed driver position.
// Pure function: no store or network dependency.
//
// With no known pickup point the pickup step is skipped entirely: the first
// report moves pending_for_pickup straight to out_for_delivery. With a pickup
// point the full sequence applies: arrive at pickup, leave the pickup
// vicinity, then arrive at destination. delivered is terminal. When no rule
// matches, the current status is returned unchanged.
func Evaluate(current ShipmentStatus, pickup, destination *Coordinates, observed Coordinates) ShipmentStatus {
	if current.IsTerminal() {
		return current
	}

	withinDestination := destination != nil &&
		HaversineMeters(observed, *destination) <= GeofenceRadiusMeters

	if pickup == nil {
		switch current {
		case StatusPendingForPickup:
			return StatusOutForDelivery
		case StatusOutForDelivery:
			if withinDestination {
				return StatusDelivered
			}
		}
		return current
	}

	distToPickup := HaversineMeters(observed, *pickup)

	switch current {
	case StatusPendingForPickup:
		if distToPickup <= GeofenceRadiusMeters {
			return StatusPackageReceived
		}
	case StatusPackageReceived:
		if distToPickup > GeofenceRadiusMeters {
			return StatusOutForDelivery
		}
	case StatusOutForDelivery:
		if withinDestination {
			return StatusDelivered
		}
	}
	return current
}
