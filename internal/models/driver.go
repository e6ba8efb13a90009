package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
	"time"
)

// DriverState describes where a driver sits in the check-out cycle.
type DriverState string

const (
	DriverActive    DriverState = "active"
	DriverOnTrip    DriverState = "on_trip"
	DriverSuspended DriverState = "suspended"
	DriverInactive  DriverState = "inactive"
)

// IsValidDriverState checks if a driver state is valid.
func IsValidDriverState(state DriverState) bool {
	switch state {
	case DriverActive, DriverOnTrip, DriverSuspended, DriverInactive:
		return true
	default:
		return false
	}
}

// Driver represents a fleet driver.
type Driver struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FirstName     string             `bson:"first_name" json:"first_name"`
	LastName      string             `bson:"last_name" json:"last_name"`
	LicenseNumber string             `bson:"license_number" json:"license_number"` // unique
	Phone         string             `bson:"phone" json:"phone"`
	State         DriverState        `bson:"state" json:"state"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}
