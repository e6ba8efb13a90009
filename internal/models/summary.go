package models

// GroupBy selects the aggregation dimension for trip summaries.
type GroupBy string

const (
	GroupByDriver  GroupBy = "driver"
	GroupByVehicle GroupBy = "vehicle"
	GroupByPeriod  GroupBy = "period"
)

// IsValidGroupBy checks if a grouping dimension is valid.
func IsValidGroupBy(g GroupBy) bool {
	return g == GroupByDriver || g == GroupByVehicle || g == GroupByPeriod
}

// Summary holds the trip totals for one driver, vehicle or period.
// Key is the driver id, vehicle id or "YYYY-MM" month bucket depending
// on the grouping dimension.
type Summary struct {
	Key             string  `json:"key"`
	GroupBy         GroupBy `json:"group_by"`
	TotalDistance   float64 `json:"total_distance"` // in kilometers, completed trips only
	CompletedTrips  int     `json:"completed_trips"`
	ActiveTrips     int     `json:"active_trips"`
	AverageDistance float64 `json:"average_distance"` // per completed trip
	CurrentTrip     *Trip   `json:"current_trip,omitempty"`
}
