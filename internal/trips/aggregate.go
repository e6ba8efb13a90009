package trips

import (
	"sort"

	"github.com/ukydev/fleet-triplog/internal/models"
)

// periodLayout is the UTC month bucket used for period summaries.
const periodLayout = "2006-01"

// Aggregate computes totals over reconciled trips grouped by driver,
// vehicle or calendar month. Stateless: callers recompute from the
// latest trip snapshot, there is nothing to invalidate. Completed trips
// feed the distance totals; active trips are counted and the most
// recently started one is surfaced as the group's current trip.
func Aggregate(trips []models.Trip, groupBy models.GroupBy) []models.Summary {
	byKey := make(map[string]*models.Summary)

	for _, trip := range trips {
		key := groupKey(trip, groupBy)
		summary, ok := byKey[key]
		if !ok {
			summary = &models.Summary{Key: key, GroupBy: groupBy}
			byKey[key] = summary
		}

		switch trip.Status {
		case models.TripCompleted:
			summary.TotalDistance += trip.Distance
			summary.CompletedTrips++
		case models.TripActive:
			summary.ActiveTrips++
			if summary.CurrentTrip == nil || trip.StartTime.After(summary.CurrentTrip.StartTime) {
				current := trip
				summary.CurrentTrip = &current
			}
		}
	}

	summaries := make([]models.Summary, 0, len(byKey))
	for _, summary := range byKey {
		if summary.CompletedTrips > 0 {
			summary.AverageDistance = summary.TotalDistance / float64(summary.CompletedTrips)
		}
		summaries = append(summaries, *summary)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Key < summaries[j].Key })
	return summaries
}

func groupKey(trip models.Trip, groupBy models.GroupBy) string {
	switch groupBy {
	case models.GroupByVehicle:
		return trip.VehicleID
	case models.GroupByPeriod:
		return trip.StartTime.UTC().Format(periodLayout)
	default:
		return trip.DriverID
	}
}
