package dispatch

import "errors"

// Validation errors reject a submission with zero state change.
var (
	ErrVehicleUnavailable  = errors.New("vehicle is not available")
	ErrDriverUnavailable   = errors.New("driver is not available")
	ErrDriverAlreadyOnTrip = errors.New("driver already has an open departure")
	ErrNoMatchingDeparture = errors.New("no open departure for driver")
	ErrOdometerRegression  = errors.New("arrival odometer is below the departure reading")
	ErrOdometerRequired    = errors.New("arrival odometer reading is required")
	ErrManagerInactive     = errors.New("manager account is inactive")
)

// Not-found errors for unknown ids.
var (
	ErrVehicleNotFound = errors.New("vehicle not found")
	ErrDriverNotFound  = errors.New("driver not found")
	ErrManagerNotFound = errors.New("manager not found")
	ErrEventNotFound   = errors.New("event not found")
)

// IsValidation reports whether the error is a rejection of the
// submitted event rather than a lookup or storage failure.
func IsValidation(err error) bool {
	switch {
	case errors.Is(err, ErrVehicleUnavailable),
		errors.Is(err, ErrDriverUnavailable),
		errors.Is(err, ErrDriverAlreadyOnTrip),
		errors.Is(err, ErrNoMatchingDeparture),
		errors.Is(err, ErrOdometerRegression),
		errors.Is(err, ErrOdometerRequired),
		errors.Is(err, ErrManagerInactive):
		return true
	default:
		return false
	}
}

// IsNotFound reports whether the error names an unknown id.
func IsNotFound(err error) bool {
	switch {
	case errors.Is(err, ErrVehicleNotFound),
		errors.Is(err, ErrDriverNotFound),
		errors.Is(err, ErrManagerNotFound),
		errors.Is(err, ErrEventNotFound):
		return true
	default:
		return false
	}
}
