package models

import (
	"time"
)

// TripStatus marks a trip as still underway or closed by an arrival.
type TripStatus string

const (
	TripActive    TripStatus = "active"
	TripCompleted TripStatus = "completed"
)

// Trip pairs a departure with its matching arrival. Trips are derived
// from the event log on every read and are never persisted.
type Trip struct {
	DepartureID   string        `json:"departure_id"`
	ArrivalID     string        `json:"arrival_id,omitempty"`
	DriverID      string        `json:"driver_id"`
	VehicleID     string        `json:"vehicle_id"`
	StartTime     time.Time     `json:"start_time"`
	EndTime       *time.Time    `json:"end_time,omitempty"` // nil while the trip is still active
	StartOdometer float64       `json:"start_odometer"`
	EndOdometer   *float64      `json:"end_odometer,omitempty"`
	Distance      float64       `json:"distance"` // in kilometers
	Duration      time.Duration `json:"duration"`
	Status        TripStatus    `json:"status"`
}

// AnomalyCode classifies an invariant violation found during
// reconciliation.
type AnomalyCode string

const (
	// AnomalyUnmatchedArrival flags an arrival with no earlier open
	// departure for its driver, typically after a retraction.
	AnomalyUnmatchedArrival AnomalyCode = "unmatched_arrival"
	// AnomalyConcurrentDepartures flags a driver holding more than one
	// open departure at the same time.
	AnomalyConcurrentDepartures AnomalyCode = "concurrent_departures"
	// AnomalyVehicleMismatch flags a matched pair whose departure and
	// arrival name different vehicles.
	AnomalyVehicleMismatch AnomalyCode = "vehicle_mismatch"
	// AnomalyOdometerRegression flags a matched pair whose arrival
	// reading is below the departure reading; the distance is clamped
	// to zero.
	AnomalyOdometerRegression AnomalyCode = "odometer_regression"
)

// AnomalyWarning reports an invariant violation without aborting
// reconciliation; the trip list is still returned best-effort.
type AnomalyWarning struct {
	Code      AnomalyCode `json:"code"`
	DriverID  string      `json:"driver_id"`
	VehicleID string      `json:"vehicle_id,omitempty"`
	EventID   string      `json:"event_id"`
	Message   string      `json:"message"`
}
