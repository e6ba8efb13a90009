// Package dispatch validates gate events against registry state and the
// event log, and applies the vehicle/driver state transitions. Writes
// for a (vehicle, driver) pair are serialized so the check, the state
// mutation and the log append act as one unit; reads never take the
// pair locks.
package dispatch

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ukydev/fleet-triplog/internal/db"
	"github.com/ukydev/fleet-triplog/internal/models"
	"github.com/ukydev/fleet-triplog/internal/registry"
)

// Dispatcher is the event validator and state transition engine.
type Dispatcher struct {
	store    db.EventCollection
	registry *registry.Registry
	locks    sync.Map // entity key -> *sync.Mutex
	now      func() time.Time
}

// New creates a dispatcher over the given event store and registry.
func New(store db.EventCollection, reg *registry.Registry) *Dispatcher {
	return &Dispatcher{
		store:    store,
		registry: reg,
		now:      time.Now,
	}
}

func (d *Dispatcher) entityLock(key string) *sync.Mutex {
	m, _ := d.locks.LoadOrStore(key, &sync.Mutex{})
	return m.(*sync.Mutex)
}

// lockPair takes the vehicle and driver mutexes in lexicographic key
// order so two submissions touching the same entities cannot deadlock.
// The returned func releases both.
func (d *Dispatcher) lockPair(vehicleID, driverID string) func() {
	keys := []string{"vehicle:" + vehicleID, "driver:" + driverID}
	sort.Strings(keys)
	held := make([]*sync.Mutex, 0, len(keys))
	for _, k := range keys {
		m := d.entityLock(k)
		m.Lock()
		held = append(held, m)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}

// openDeparture scans an entity's events in chronological order and
// returns the latest departure not yet consumed by a later arrival, or
// nil. The events must already be filtered to one driver or one vehicle
// and sorted ascending, as FindEvents guarantees.
func openDeparture(events []models.Event) *models.Event {
	var open []models.Event
	for _, e := range events {
		switch e.Type {
		case models.EventDeparture:
			open = append(open, e)
		case models.EventArrival:
			if len(open) > 0 {
				open = open[:len(open)-1]
			}
		}
	}
	if len(open) == 0 {
		return nil
	}
	latest := open[len(open)-1]
	return &latest
}

func (d *Dispatcher) checkManager(ctx context.Context, managerID string) error {
	manager, err := d.registry.GetManager(ctx, managerID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrManagerNotFound
		}
		return err
	}
	if !manager.IsActive {
		return ErrManagerInactive
	}
	return nil
}

// SubmitDeparture validates and accepts a vehicle check-out. On
// acceptance the event is appended with a server timestamp and the
// odometer reading copied from the vehicle, the vehicle moves to
// in_use and the driver to on_trip.
func (d *Dispatcher) SubmitDeparture(ctx context.Context, req models.DepartureRequest, managerID string) (*models.Event, error) {
	unlock := d.lockPair(req.VehicleID, req.DriverID)
	defer unlock()

	if err := d.checkManager(ctx, managerID); err != nil {
		return nil, err
	}

	vehicle, err := d.registry.GetVehicle(ctx, req.VehicleID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrVehicleNotFound
		}
		return nil, err
	}
	driver, err := d.registry.GetDriver(ctx, req.DriverID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrDriverNotFound
		}
		return nil, err
	}

	if vehicle.State != models.VehicleAvailable {
		return nil, ErrVehicleUnavailable
	}
	switch driver.State {
	case models.DriverActive:
	case models.DriverOnTrip:
		return nil, ErrDriverAlreadyOnTrip
	default:
		return nil, ErrDriverUnavailable
	}

	// State and history can diverge after retractions, so the open
	// departure check consults the log as well as the registry.
	driverEvents, err := d.store.FindEvents(ctx, models.EventFilter{DriverID: req.DriverID})
	if err != nil {
		return nil, err
	}
	if openDeparture(driverEvents) != nil {
		return nil, ErrDriverAlreadyOnTrip
	}
	vehicleEvents, err := d.store.FindEvents(ctx, models.EventFilter{VehicleID: req.VehicleID})
	if err != nil {
		return nil, err
	}
	if openDeparture(vehicleEvents) != nil {
		return nil, ErrVehicleUnavailable
	}

	event := models.Event{
		ID:              primitive.NewObjectID(),
		Type:            models.EventDeparture,
		DriverID:        req.DriverID,
		VehicleID:       req.VehicleID,
		ManagerID:       managerID,
		OdometerReading: vehicle.CurrentOdometer, // a reading of 0 is valid, not missing
		Timestamp:       d.now().UTC(),
		Phone:           req.Phone,
		Notes:           req.Notes,
	}
	if err := d.store.InsertEvent(ctx, event); err != nil {
		return nil, err
	}
	if err := d.applyStates(ctx, event, models.VehicleInUse, models.DriverOnTrip, nil); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"event_id":   event.ID.Hex(),
		"driver_id":  event.DriverID,
		"vehicle_id": event.VehicleID,
		"odometer":   event.OdometerReading,
	}).Info("Departure accepted")
	return &event, nil
}

// SubmitArrival validates and accepts a vehicle check-in. The matched
// departure is the driver's latest open departure; the arrival reading
// must not regress below it. On acceptance the vehicle moves to
// available with its odometer ratcheted up, and the driver to active.
func (d *Dispatcher) SubmitArrival(ctx context.Context, req models.ArrivalRequest, managerID string) (*models.Event, error) {
	if req.OdometerReading == nil {
		return nil, ErrOdometerRequired
	}

	unlock := d.lockPair(req.VehicleID, req.DriverID)
	defer unlock()

	if err := d.checkManager(ctx, managerID); err != nil {
		return nil, err
	}
	if _, err := d.registry.GetVehicle(ctx, req.VehicleID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrVehicleNotFound
		}
		return nil, err
	}
	if _, err := d.registry.GetDriver(ctx, req.DriverID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrDriverNotFound
		}
		return nil, err
	}

	driverEvents, err := d.store.FindEvents(ctx, models.EventFilter{DriverID: req.DriverID})
	if err != nil {
		return nil, err
	}
	departure := openDeparture(driverEvents)
	if departure == nil {
		return nil, ErrNoMatchingDeparture
	}
	if *req.OdometerReading < departure.OdometerReading {
		return nil, ErrOdometerRegression
	}

	// Reconciliation pairs on strict time order, so the arrival must
	// sort after its departure even on a coarse clock.
	ts := d.now().UTC()
	if !ts.After(departure.Timestamp) {
		ts = departure.Timestamp.Add(time.Millisecond)
	}

	event := models.Event{
		ID:              primitive.NewObjectID(),
		Type:            models.EventArrival,
		DriverID:        req.DriverID,
		VehicleID:       req.VehicleID,
		ManagerID:       managerID,
		OdometerReading: *req.OdometerReading,
		Timestamp:       ts,
		Phone:           req.Phone,
		Notes:           req.Notes,
	}
	if err := d.store.InsertEvent(ctx, event); err != nil {
		return nil, err
	}
	if err := d.applyStates(ctx, event, models.VehicleAvailable, models.DriverActive, req.OdometerReading); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"event_id":   event.ID.Hex(),
		"driver_id":  event.DriverID,
		"vehicle_id": event.VehicleID,
		"odometer":   event.OdometerReading,
	}).Info("Arrival accepted")
	return &event, nil
}

// applyStates mutates the registry after an event append. If either
// write fails the appended event is removed again so the log and the
// registry never disagree on an accepted event.
func (d *Dispatcher) applyStates(ctx context.Context, event models.Event, vs models.VehicleState, ds models.DriverState, odometer *float64) error {
	if err := d.registry.SetVehicleState(ctx, event.VehicleID, vs, odometer); err != nil {
		d.compensate(ctx, event)
		return err
	}
	if err := d.registry.SetDriverState(ctx, event.DriverID, ds); err != nil {
		d.compensate(ctx, event)
		return err
	}
	return nil
}

func (d *Dispatcher) compensate(ctx context.Context, event models.Event) {
	if err := d.store.DeleteEvent(ctx, event.ID.Hex()); err != nil {
		log.WithError(err).WithField("event_id", event.ID.Hex()).Error("Failed to remove event after state write failure")
	}
}

// AmendEvent mutates only the non-authoritative fields of an accepted
// event. An odometer amendment on an arrival re-runs the vehicle
// ratchet; already-derived trips are not retroactively recomputed.
func (d *Dispatcher) AmendEvent(ctx context.Context, req models.AmendRequest) (*models.Event, error) {
	located, err := d.store.FindEventByID(ctx, req.EventID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}

	unlock := d.lockPair(located.VehicleID, located.DriverID)
	defer unlock()

	// Re-read under the pair locks; the first lookup only told us
	// which locks to take.
	event, err := d.store.FindEventByID(ctx, req.EventID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}

	if req.Phone != nil {
		event.Phone = *req.Phone
	}
	if req.Notes != nil {
		event.Notes = *req.Notes
	}
	if req.OdometerReading != nil {
		event.OdometerReading = *req.OdometerReading
		if event.Type == models.EventArrival {
			vehicle, err := d.registry.GetVehicle(ctx, event.VehicleID)
			if err != nil {
				if errors.Is(err, db.ErrNotFound) {
					return nil, ErrVehicleNotFound
				}
				return nil, err
			}
			if err := d.registry.SetVehicleState(ctx, event.VehicleID, vehicle.State, req.OdometerReading); err != nil {
				return nil, err
			}
		}
	}

	if err := d.store.UpdateEvent(ctx, event.ID.Hex(), *event); err != nil {
		return nil, err
	}

	log.WithField("event_id", event.ID.Hex()).Info("Event amended")
	return event, nil
}

// RetractEvent deletes an event from the log. When the event was the
// most recent one for its vehicle or driver the entity state is
// reverted; retracting a departure whose arrival was already matched
// leaves that arrival unmatched, which the next reconciliation reports
// as an anomaly rather than failing.
func (d *Dispatcher) RetractEvent(ctx context.Context, eventID string) error {
	located, err := d.store.FindEventByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrEventNotFound
		}
		return err
	}

	unlock := d.lockPair(located.VehicleID, located.DriverID)
	defer unlock()

	event, err := d.store.FindEventByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrEventNotFound
		}
		return err
	}

	driverEvents, err := d.store.FindEvents(ctx, models.EventFilter{DriverID: event.DriverID})
	if err != nil {
		return err
	}
	vehicleEvents, err := d.store.FindEvents(ctx, models.EventFilter{VehicleID: event.VehicleID})
	if err != nil {
		return err
	}
	latestForDriver := len(driverEvents) > 0 && driverEvents[len(driverEvents)-1].ID == event.ID
	latestForVehicle := len(vehicleEvents) > 0 && vehicleEvents[len(vehicleEvents)-1].ID == event.ID

	if err := d.store.DeleteEvent(ctx, eventID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrEventNotFound
		}
		return err
	}

	switch event.Type {
	case models.EventDeparture:
		if latestForVehicle {
			if err := d.registry.SetVehicleState(ctx, event.VehicleID, models.VehicleAvailable, nil); err != nil {
				return err
			}
		}
		if latestForDriver {
			if err := d.registry.SetDriverState(ctx, event.DriverID, models.DriverActive); err != nil {
				return err
			}
		}
	case models.EventArrival:
		if latestForVehicle {
			if err := d.registry.SetVehicleState(ctx, event.VehicleID, models.VehicleInUse, nil); err != nil {
				return err
			}
		}
		if latestForDriver {
			if err := d.registry.SetDriverState(ctx, event.DriverID, models.DriverOnTrip); err != nil {
				return err
			}
		}
	}

	log.WithFields(log.Fields{
		"event_id":   eventID,
		"event_type": event.Type,
	}).Info("Event retracted")
	return nil
}

// ListEvents returns events matching the filter sorted ascending by
// timestamp. Listing reads a snapshot and never takes the pair locks.
func (d *Dispatcher) ListEvents(ctx context.Context, filter models.EventFilter) ([]models.Event, error) {
	return d.store.FindEvents(ctx, filter)
}
