// Package trips derives trip records from the raw gate event log.
// Trips are never stored; every consumer reconciles from the latest
// event snapshot. The functions here are pure and deterministic so
// repeated calls over the same events give identical results.
package trips

import (
	"fmt"
	"sort"

	"github.com/ukydev/fleet-triplog/internal/models"
)

// Reconcile pairs each arrival with the latest open departure for the
// same driver that is strictly earlier in time (greedy
// nearest-preceding match). Unconsumed departures become active trips.
// Invariant violations are reported as warnings and never abort: the
// trip list is always returned best-effort, sorted by departure time
// descending.
//
// Matching is by driver identity and time order alone; the vehicle id
// is deliberately not part of the match key, so a mismatched pair is
// flagged rather than rejected.
func Reconcile(events []models.Event) ([]models.Trip, []models.AnomalyWarning) {
	ordered := make([]models.Event, len(events))
	copy(ordered, events)
	sort.Slice(ordered, func(i, j int) bool {
		if !ordered[i].Timestamp.Equal(ordered[j].Timestamp) {
			return ordered[i].Timestamp.Before(ordered[j].Timestamp)
		}
		return ordered[i].ID.Hex() < ordered[j].ID.Hex()
	})

	var trips []models.Trip
	var warnings []models.AnomalyWarning
	open := make(map[string][]models.Event) // driver id -> open departures, oldest first

	for _, e := range ordered {
		switch e.Type {
		case models.EventDeparture:
			if len(open[e.DriverID]) > 0 {
				warnings = append(warnings, models.AnomalyWarning{
					Code:      models.AnomalyConcurrentDepartures,
					DriverID:  e.DriverID,
					VehicleID: e.VehicleID,
					EventID:   e.ID.Hex(),
					Message:   fmt.Sprintf("driver %s has %d departures open at once", e.DriverID, len(open[e.DriverID])+1),
				})
			}
			open[e.DriverID] = append(open[e.DriverID], e)

		case models.EventArrival:
			departure, remaining := takeLatestBefore(open[e.DriverID], e)
			if departure == nil {
				warnings = append(warnings, models.AnomalyWarning{
					Code:      models.AnomalyUnmatchedArrival,
					DriverID:  e.DriverID,
					VehicleID: e.VehicleID,
					EventID:   e.ID.Hex(),
					Message:   fmt.Sprintf("arrival for driver %s has no matching departure", e.DriverID),
				})
				continue
			}
			open[e.DriverID] = remaining

			if departure.VehicleID != e.VehicleID {
				warnings = append(warnings, models.AnomalyWarning{
					Code:      models.AnomalyVehicleMismatch,
					DriverID:  e.DriverID,
					VehicleID: e.VehicleID,
					EventID:   e.ID.Hex(),
					Message:   fmt.Sprintf("arrival on vehicle %s matched departure on vehicle %s", e.VehicleID, departure.VehicleID),
				})
			}

			distance := e.OdometerReading - departure.OdometerReading
			if distance < 0 {
				// Clamp rather than poison downstream aggregates.
				warnings = append(warnings, models.AnomalyWarning{
					Code:      models.AnomalyOdometerRegression,
					DriverID:  e.DriverID,
					VehicleID: e.VehicleID,
					EventID:   e.ID.Hex(),
					Message:   fmt.Sprintf("arrival reading %.1f is below departure reading %.1f", e.OdometerReading, departure.OdometerReading),
				})
				distance = 0
			}

			endTime := e.Timestamp
			endOdometer := e.OdometerReading
			trips = append(trips, models.Trip{
				DepartureID:   departure.ID.Hex(),
				ArrivalID:     e.ID.Hex(),
				DriverID:      departure.DriverID,
				VehicleID:     departure.VehicleID,
				StartTime:     departure.Timestamp,
				EndTime:       &endTime,
				StartOdometer: departure.OdometerReading,
				EndOdometer:   &endOdometer,
				Distance:      distance,
				Duration:      e.Timestamp.Sub(departure.Timestamp),
				Status:        models.TripCompleted,
			})
		}
	}

	// Whatever is still open is a trip in progress.
	for _, departures := range open {
		for _, departure := range departures {
			trips = append(trips, models.Trip{
				DepartureID:   departure.ID.Hex(),
				DriverID:      departure.DriverID,
				VehicleID:     departure.VehicleID,
				StartTime:     departure.Timestamp,
				StartOdometer: departure.OdometerReading,
				Status:        models.TripActive,
			})
		}
	}

	sort.Slice(trips, func(i, j int) bool {
		if !trips[i].StartTime.Equal(trips[j].StartTime) {
			return trips[i].StartTime.After(trips[j].StartTime)
		}
		return trips[i].DepartureID > trips[j].DepartureID
	})
	return trips, warnings
}

// takeLatestBefore removes and returns the most recent open departure
// strictly earlier than the arrival, along with the remaining stack.
func takeLatestBefore(departures []models.Event, arrival models.Event) (*models.Event, []models.Event) {
	for i := len(departures) - 1; i >= 0; i-- {
		if departures[i].Timestamp.Before(arrival.Timestamp) {
			departure := departures[i]
			remaining := append(append([]models.Event{}, departures[:i]...), departures[i+1:]...)
			return &departure, remaining
		}
	}
	return nil, departures
}
