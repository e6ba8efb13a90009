package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ukydev/fleet-triplog/internal/models"
)

// In-memory collections backing the standalone mode and unit tests.
// They honor the same contracts as the Mongo implementations; reads hand
// out copies so callers never share mutable state with the store.

// MemoryEventCollection implements EventCollection in memory.
type MemoryEventCollection struct {
	mu     sync.RWMutex
	events map[string]models.Event
}

// NewMemoryEventCollection creates an empty in-memory event log.
func NewMemoryEventCollection() *MemoryEventCollection {
	return &MemoryEventCollection{events: make(map[string]models.Event)}
}

func (c *MemoryEventCollection) InsertEvent(ctx context.Context, event models.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events[event.ID.Hex()] = event
	return nil
}

func (c *MemoryEventCollection) FindEventByID(ctx context.Context, id string) (*models.Event, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	event, ok := c.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &event, nil
}

func (c *MemoryEventCollection) FindEvents(ctx context.Context, filter models.EventFilter) ([]models.Event, error) {
	c.mu.RLock()
	events := make([]models.Event, 0, len(c.events))
	for _, e := range c.events {
		if filter.Matches(e) {
			events = append(events, e)
		}
	}
	c.mu.RUnlock()

	sort.Slice(events, func(i, j int) bool {
		if !events[i].Timestamp.Equal(events[j].Timestamp) {
			return events[i].Timestamp.Before(events[j].Timestamp)
		}
		return events[i].ID.Hex() < events[j].ID.Hex()
	})
	return events, nil
}

func (c *MemoryEventCollection) UpdateEvent(ctx context.Context, id string, event models.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	existing, ok := c.events[id]
	if !ok {
		return ErrNotFound
	}
	event.ID = existing.ID
	c.events[id] = event
	return nil
}

func (c *MemoryEventCollection) DeleteEvent(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.events[id]; !ok {
		return ErrNotFound
	}
	delete(c.events, id)
	return nil
}

// MemoryVehicleCollection implements VehicleCollection in memory.
type MemoryVehicleCollection struct {
	mu       sync.RWMutex
	vehicles map[string]models.Vehicle
}

// NewMemoryVehicleCollection creates an empty in-memory vehicle registry.
func NewMemoryVehicleCollection() *MemoryVehicleCollection {
	return &MemoryVehicleCollection{vehicles: make(map[string]models.Vehicle)}
}

func (c *MemoryVehicleCollection) InsertVehicle(ctx context.Context, vehicle models.Vehicle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	vehicle.CreatedAt = time.Now()
	vehicle.UpdatedAt = time.Now()
	c.vehicles[vehicle.ID.Hex()] = vehicle
	return nil
}

func (c *MemoryVehicleCollection) FindVehicleByID(ctx context.Context, id string) (*models.Vehicle, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	vehicle, ok := c.vehicles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &vehicle, nil
}

func (c *MemoryVehicleCollection) FindVehicles(ctx context.Context) ([]models.Vehicle, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	vehicles := make([]models.Vehicle, 0, len(c.vehicles))
	for _, v := range c.vehicles {
		vehicles = append(vehicles, v)
	}
	sort.Slice(vehicles, func(i, j int) bool { return vehicles[i].ID.Hex() < vehicles[j].ID.Hex() })
	return vehicles, nil
}

func (c *MemoryVehicleCollection) UpdateVehicle(ctx context.Context, id string, vehicle models.Vehicle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	existing, ok := c.vehicles[id]
	if !ok {
		return ErrNotFound
	}
	vehicle.ID = existing.ID
	vehicle.CreatedAt = existing.CreatedAt
	vehicle.UpdatedAt = time.Now()
	c.vehicles[id] = vehicle
	return nil
}

// MemoryDriverCollection implements DriverCollection in memory.
type MemoryDriverCollection struct {
	mu      sync.RWMutex
	drivers map[string]models.Driver
}

// NewMemoryDriverCollection creates an empty in-memory driver registry.
func NewMemoryDriverCollection() *MemoryDriverCollection {
	return &MemoryDriverCollection{drivers: make(map[string]models.Driver)}
}

func (c *MemoryDriverCollection) InsertDriver(ctx context.Context, driver models.Driver) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	driver.CreatedAt = time.Now()
	driver.UpdatedAt = time.Now()
	c.drivers[driver.ID.Hex()] = driver
	return nil
}

func (c *MemoryDriverCollection) FindDriverByID(ctx context.Context, id string) (*models.Driver, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	driver, ok := c.drivers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &driver, nil
}

func (c *MemoryDriverCollection) FindDrivers(ctx context.Context) ([]models.Driver, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	drivers := make([]models.Driver, 0, len(c.drivers))
	for _, d := range c.drivers {
		drivers = append(drivers, d)
	}
	sort.Slice(drivers, func(i, j int) bool { return drivers[i].ID.Hex() < drivers[j].ID.Hex() })
	return drivers, nil
}

func (c *MemoryDriverCollection) UpdateDriver(ctx context.Context, id string, driver models.Driver) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	existing, ok := c.drivers[id]
	if !ok {
		return ErrNotFound
	}
	driver.ID = existing.ID
	driver.CreatedAt = existing.CreatedAt
	driver.UpdatedAt = time.Now()
	c.drivers[id] = driver
	return nil
}

// MemoryManagerCollection implements ManagerCollection in memory.
type MemoryManagerCollection struct {
	mu       sync.RWMutex
	managers map[string]models.Manager
}

// NewMemoryManagerCollection creates an empty in-memory manager store.
func NewMemoryManagerCollection() *MemoryManagerCollection {
	return &MemoryManagerCollection{managers: make(map[string]models.Manager)}
}

func (c *MemoryManagerCollection) InsertManager(ctx context.Context, manager models.Manager) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	manager.CreatedAt = time.Now()
	manager.UpdatedAt = time.Now()
	c.managers[manager.ID.Hex()] = manager
	return nil
}

func (c *MemoryManagerCollection) FindManagerByID(ctx context.Context, id string) (*models.Manager, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	manager, ok := c.managers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &manager, nil
}

func (c *MemoryManagerCollection) FindManagerByUsername(ctx context.Context, username string) (*models.Manager, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, m := range c.managers {
		if m.Username == username {
			manager := m
			return &manager, nil
		}
	}
	return nil, ErrNotFound
}

func (c *MemoryManagerCollection) UpdateManager(ctx context.Context, id string, manager models.Manager) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	existing, ok := c.managers[id]
	if !ok {
		return ErrNotFound
	}
	manager.ID = existing.ID
	manager.UpdatedAt = time.Now()
	c.managers[id] = manager
	return nil
}

func (c *MemoryManagerCollection) UpdateLastLogin(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	manager, ok := c.managers[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now()
	manager.LastLogin = &now
	manager.UpdatedAt = now
	c.managers[id] = manager
	return nil
}
