package domain

import "time"

// Driver is a courier who reports GPS samples for the shipments assigned to
// them. A driver may haul several parcels at once, so a single location
// report can target multiple tracking numbers.
type Driver struct {
	ID                string       `json:"id" bson:"_id,omitempty"`
	Username          string       `json:"username" bson:"username"`
	Email             string       `json:"email" bson:"email"`
	AssignedShipments []string     `json:"assigned_shipments" bson:"assigned_shipments"`
	LastPosition      *Coordinates `json:"last_position,omitempty" bson:"last_position,omitempty"`
	LastSeenAt        time.Time    `json:"last_seen_at,omitempty" bson:"last_seen_at,omitempty"`
	CreatedAt         time.Time    `json:"created_at" bson:"created_at"`
}
