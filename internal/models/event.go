package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EventType marks a gate event as a check-out or a check-in.
type EventType string

const (
	EventDeparture EventType = "departure"
	EventArrival   EventType = "arrival"
)

// IsValidEventType checks if an event type is valid.
func IsValidEventType(t EventType) bool {
	return t == EventDeparture || t == EventArrival
}

// Event is one append-only entry in the gate log. The timestamp is
// assigned by the server at acceptance and is the only ordering key;
// type, driver, vehicle and timestamp never change after acceptance.
type Event struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Type            EventType          `bson:"type" json:"type"`
	DriverID        string             `bson:"driver_id" json:"driver_id"`
	VehicleID       string             `bson:"vehicle_id" json:"vehicle_id"`
	ManagerID       string             `bson:"manager_id" json:"manager_id"`
	OdometerReading float64            `bson:"odometer_reading" json:"odometer_reading"` // in kilometers
	Timestamp       time.Time          `bson:"timestamp" json:"timestamp"`
	Phone           string             `bson:"phone" json:"phone"`
	Notes           string             `bson:"notes" json:"notes"`
}

// EventFilter narrows an event listing. Zero values mean "no filter".
type EventFilter struct {
	DriverID  string
	VehicleID string
	Type      EventType
	From      time.Time
	To        time.Time
}

// Matches reports whether the event passes the filter.
func (f EventFilter) Matches(e Event) bool {
	if f.DriverID != "" && e.DriverID != f.DriverID {
		return false
	}
	if f.VehicleID != "" && e.VehicleID != f.VehicleID {
		return false
	}
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if !f.From.IsZero() && e.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.Timestamp.After(f.To) {
		return false
	}
	return true
}

// DepartureRequest is the payload for submitting a departure. ManagerID
// is optional; when empty the authenticated manager is recorded.
type DepartureRequest struct {
	DriverID  string `json:"driver_id"`
	VehicleID string `json:"vehicle_id"`
	ManagerID string `json:"manager_id,omitempty"`
	Phone     string `json:"phone"`
	Notes     string `json:"notes"`
}

// ArrivalRequest is the payload for submitting an arrival. The odometer
// reading is required; a pointer distinguishes "absent" from a real zero.
type ArrivalRequest struct {
	DriverID        string   `json:"driver_id"`
	VehicleID       string   `json:"vehicle_id"`
	ManagerID       string   `json:"manager_id,omitempty"`
	Phone           string   `json:"phone"`
	OdometerReading *float64 `json:"odometer_reading"`
	Notes           string   `json:"notes"`
}

// AmendRequest carries the non-authoritative fields an accepted event
// may still change. Nil fields are left untouched.
type AmendRequest struct {
	EventID         string   `json:"event_id"`
	Phone           *string  `json:"phone,omitempty"`
	Notes           *string  `json:"notes,omitempty"`
	OdometerReading *float64 `json:"odometer_reading,omitempty"`
}

// RetractRequest names the event to delete from the log.
type RetractRequest struct {
	EventID string `json:"event_id"`
}
