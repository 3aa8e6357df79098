package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/shiptrack/tracking-system/internal/core/domain"
	"github.com/shiptrack/tracking-system/internal/core/ports"
)

// Wire message types. Inbound and outbound frames share one envelope shape:
// {"type": "...", "data": {...}}.
const (
	TypeJoinTracking           = "joinTracking"
	TypeLeaveTracking          = "leaveTracking"
	TypeDriverLocationUpdate   = "driverLocationUpdate"
	TypeShipmentLocationUpdate = "shipmentLocationUpdate"
	TypeStatusChanged          = "statusChanged"
)

// Message is an outbound frame delivered to subscribers.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// NewLocationMessage frames a position delta for delivery.
func NewLocationMessage(update ports.LocationUpdate) Message {
	return Message{Type: TypeShipmentLocationUpdate, Data: update}
}

// NewStatusMessage frames a milestone notification for delivery.
func NewStatusMessage(change ports.StatusChange) Message {
	return Message{Type: TypeStatusChanged, Data: change}
}

// Command is the decoded form of an inbound frame: exactly one of the three
// client-to-server message kinds.
type Command interface {
	isCommand()
}

// JoinCommand subscribes the connection to a tracking number.
type JoinCommand struct {
	TrackingNumber string
}

// LeaveCommand unsubscribes the connection from a tracking number.
type LeaveCommand struct {
	TrackingNumber string
}

// ReportCommand carries one driver GPS sample, possibly for several
// shipments at once.
type ReportCommand struct {
	TrackingNumbers []string
	Position        domain.Coordinates
}

func (JoinCommand) isCommand()   {}
func (LeaveCommand) isCommand()  {}
func (ReportCommand) isCommand() {}

// inboundEnvelope is the raw JSON shape of a client frame. trackingNumber and
// trackingNumbers are alternatives; a driver hauling one parcel may use the
// singular form.
type inboundEnvelope struct {
	Type string `json:"type"`
	Data struct {
		TrackingNumber  string   `json:"trackingNumber"`
		TrackingNumbers []string `json:"trackingNumbers"`
		Latitude        *float64 `json:"latitude"`
		Longitude       *float64 `json:"longitude"`
	} `json:"data"`
}

// DecodeCommand parses an inbound frame into its command. Unknown types and
// structurally incomplete payloads are errors; the connection logs and
// ignores them, it never terminates.
func DecodeCommand(raw []byte) (Command, error) {
	var env inboundEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	switch env.Type {
	case TypeJoinTracking:
		if env.Data.TrackingNumber == "" {
			return nil, fmt.Errorf("%s: missing trackingNumber", env.Type)
		}
		return JoinCommand{TrackingNumber: env.Data.TrackingNumber}, nil

	case TypeLeaveTracking:
		if env.Data.TrackingNumber == "" {
			return nil, fmt.Errorf("%s: missing trackingNumber", env.Type)
		}
		return LeaveCommand{TrackingNumber: env.Data.TrackingNumber}, nil

	case TypeDriverLocationUpdate:
		numbers := env.Data.TrackingNumbers
		if len(numbers) == 0 && env.Data.TrackingNumber != "" {
			numbers = []string{env.Data.TrackingNumber}
		}
		if len(numbers) == 0 {
			return nil, fmt.Errorf("%s: missing tracking numbers", env.Type)
		}
		if env.Data.Latitude == nil || env.Data.Longitude == nil {
			return nil, fmt.Errorf("%s: missing coordinates", env.Type)
		}
		return ReportCommand{
			TrackingNumbers: numbers,
			Position:        domain.Coordinates{Lat: *env.Data.Latitude, Lng: *env.Data.Longitude},
		}, nil

	default:
		return nil, fmt.Errorf("unrecognised message type %q", env.Type)
	}
}
