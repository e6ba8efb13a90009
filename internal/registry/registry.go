// Package registry is the read/write facade onto vehicle and driver
// state. The dispatcher is its only writer; everything else reads.
package registry

import (
	"context"

	"github.com/ukydev/fleet-triplog/internal/db"
	"github.com/ukydev/fleet-triplog/internal/models"
)

// Registry fronts the vehicle, driver and manager collections.
type Registry struct {
	vehicles db.VehicleCollection
	drivers  db.DriverCollection
	managers db.ManagerCollection
}

// New creates a registry over the given collections.
func New(vehicles db.VehicleCollection, drivers db.DriverCollection, managers db.ManagerCollection) *Registry {
	return &Registry{
		vehicles: vehicles,
		drivers:  drivers,
		managers: managers,
	}
}

// GetVehicle returns the vehicle with the given id.
func (r *Registry) GetVehicle(ctx context.Context, id string) (*models.Vehicle, error) {
	return r.vehicles.FindVehicleByID(ctx, id)
}

// SetVehicleState transitions a vehicle to the given state. When an
// odometer reading is supplied it ratchets the recorded odometer up:
// the stored value never decreases.
func (r *Registry) SetVehicleState(ctx context.Context, id string, state models.VehicleState, odometer *float64) error {
	vehicle, err := r.vehicles.FindVehicleByID(ctx, id)
	if err != nil {
		return err
	}
	vehicle.State = state
	if odometer != nil && *odometer > vehicle.CurrentOdometer {
		vehicle.CurrentOdometer = *odometer
	}
	return r.vehicles.UpdateVehicle(ctx, id, *vehicle)
}

// GetDriver returns the driver with the given id.
func (r *Registry) GetDriver(ctx context.Context, id string) (*models.Driver, error) {
	return r.drivers.FindDriverByID(ctx, id)
}

// SetDriverState transitions a driver to the given state.
func (r *Registry) SetDriverState(ctx context.Context, id string, state models.DriverState) error {
	driver, err := r.drivers.FindDriverByID(ctx, id)
	if err != nil {
		return err
	}
	driver.State = state
	return r.drivers.UpdateDriver(ctx, id, *driver)
}

// GetManager returns the manager with the given id.
func (r *Registry) GetManager(ctx context.Context, id string) (*models.Manager, error) {
	return r.managers.FindManagerByID(ctx, id)
}
