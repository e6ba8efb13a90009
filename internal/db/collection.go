package db

import (
	"context"
	"errors"

	"github.com/ukydev/fleet-triplog/internal/models"
)

// ErrNotFound is returned when a lookup matches no document.
var ErrNotFound = errors.New("document not found")

// EventCollection defines the interface for gate event storage. The log
// is append-only in normal operation; UpdateEvent exists only for
// amendments of non-authoritative fields and DeleteEvent only for
// retractions.
type EventCollection interface {
	InsertEvent(ctx context.Context, event models.Event) error
	FindEventByID(ctx context.Context, id string) (*models.Event, error)
	// FindEvents returns matching events sorted ascending by timestamp,
	// with the event id as tiebreak.
	FindEvents(ctx context.Context, filter models.EventFilter) ([]models.Event, error)
	UpdateEvent(ctx context.Context, id string, event models.Event) error
	DeleteEvent(ctx context.Context, id string) error
}

// VehicleCollection defines the interface for vehicle registry operations.
type VehicleCollection interface {
	InsertVehicle(ctx context.Context, vehicle models.Vehicle) error
	FindVehicleByID(ctx context.Context, id string) (*models.Vehicle, error)
	FindVehicles(ctx context.Context) ([]models.Vehicle, error)
	UpdateVehicle(ctx context.Context, id string, vehicle models.Vehicle) error
}

// DriverCollection defines the interface for driver registry operations.
type DriverCollection interface {
	InsertDriver(ctx context.Context, driver models.Driver) error
	FindDriverByID(ctx context.Context, id string) (*models.Driver, error)
	FindDrivers(ctx context.Context) ([]models.Driver, error)
	UpdateDriver(ctx context.Context, id string, driver models.Driver) error
}

// ManagerCollection defines the interface for manager account operations
type ManagerCollection interface {
	InsertManager(ctx context.Context, manager models.Manager) error
	FindManagerByID(ctx context.Context, id string) (*models.Manager, error)
	FindManagerByUsername(ctx context.Context, username string) (*models.Manager, error)
	UpdateManager(ctx context.Context, id string, manager models.Manager) error
	UpdateLastLogin(ctx context.Context, id string) error
}
