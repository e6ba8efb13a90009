package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
	"time"
)

// VehicleState describes where a vehicle sits in the check-out cycle.
type VehicleState string

const (
	VehicleAvailable   VehicleState = "available"
	VehicleInUse       VehicleState = "in_use"
	VehicleMaintenance VehicleState = "maintenance"
	VehicleInactive    VehicleState = "inactive"
)

// IsValidVehicleState checks if a vehicle state is valid.
func IsValidVehicleState(state VehicleState) bool {
	switch state {
	case VehicleAvailable, VehicleInUse, VehicleMaintenance, VehicleInactive:
		return true
	default:
		return false
	}
}

// Vehicle represents a fleet vehicle.
type Vehicle struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Plate           string             `bson:"plate" json:"plate"` // unique
	Make            string             `bson:"make" json:"make"`
	Model           string             `bson:"model" json:"model"`
	Year            int                `bson:"year" json:"year"`
	CurrentOdometer float64            `bson:"current_odometer" json:"current_odometer"` // in kilometers, never decreases
	State           VehicleState       `bson:"state" json:"state"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time          `bson:"updated_at" json:"updated_at"`
}
