package handlers

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/fleet-triplog/internal/dispatch"
	"github.com/ukydev/fleet-triplog/internal/models"
	"github.com/ukydev/fleet-triplog/internal/trips"
)

// TripHandler serves derived trips and summaries. Both endpoints pull a
// fresh event snapshot and reconcile on every request; nothing here is
// cached or persisted.
type TripHandler struct {
	dispatcher *dispatch.Dispatcher
}

// NewTripHandler creates a new trip handler
func NewTripHandler(dispatcher *dispatch.Dispatcher) *TripHandler {
	return &TripHandler{dispatcher: dispatcher}
}

// TripsResponse carries reconciled trips together with any anomaly
// warnings found along the way.
type TripsResponse struct {
	Trips    []models.Trip           `json:"trips"`
	Warnings []models.AnomalyWarning `json:"warnings"`
}

// ListTrips reconciles trips from the (optionally filtered) event log
func (h *TripHandler) ListTrips(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	filter, err := parseEventFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	// The type filter would split departure/arrival pairs apart and
	// make every trip look anomalous.
	filter.Type = ""

	events, err := h.dispatcher.ListEvents(r.Context(), filter)
	if err != nil {
		log.WithError(err).Error("Failed to list events for reconciliation")
		http.Error(w, "Failed to reconcile trips", http.StatusInternalServerError)
		return
	}

	tripList, warnings := trips.Reconcile(events)
	if tripList == nil {
		tripList = []models.Trip{}
	}
	if warnings == nil {
		warnings = []models.AnomalyWarning{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(TripsResponse{Trips: tripList, Warnings: warnings})
}

// Summary aggregates reconciled trips by driver, vehicle or period
func (h *TripHandler) Summary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	groupBy := models.GroupBy(r.URL.Query().Get("group_by"))
	if groupBy == "" {
		groupBy = models.GroupByDriver
	}
	if !models.IsValidGroupBy(groupBy) {
		http.Error(w, "group_by must be driver, vehicle or period", http.StatusBadRequest)
		return
	}

	filter, err := parseEventFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	filter.Type = ""

	events, err := h.dispatcher.ListEvents(r.Context(), filter)
	if err != nil {
		log.WithError(err).Error("Failed to list events for summary")
		http.Error(w, "Failed to compute summary", http.StatusInternalServerError)
		return
	}

	tripList, _ := trips.Reconcile(events)
	summaries := trips.Aggregate(tripList, groupBy)
	if summaries == nil {
		summaries = []models.Summary{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summaries)
}
