package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/fleet-triplog/internal/dispatch"
	"github.com/ukydev/fleet-triplog/internal/middleware"
	"github.com/ukydev/fleet-triplog/internal/models"
)

// EventHandler handles gate event submission, amendment, retraction and
// listing.
type EventHandler struct {
	dispatcher *dispatch.Dispatcher
}

// NewEventHandler creates a new event handler
func NewEventHandler(dispatcher *dispatch.Dispatcher) *EventHandler {
	return &EventHandler{dispatcher: dispatcher}
}

// SubmitDeparture handles a vehicle check-out submission
func (h *EventHandler) SubmitDeparture(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var req models.DepartureRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if req.DriverID == "" || req.VehicleID == "" {
		http.Error(w, "driver_id and vehicle_id are required", http.StatusBadRequest)
		return
	}

	managerID, ok := managerID(r, req.ManagerID)
	if !ok {
		http.Error(w, "Manager context not found", http.StatusUnauthorized)
		return
	}

	event, err := h.dispatcher.SubmitDeparture(r.Context(), req, managerID)
	if err != nil {
		writeDispatchError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(event)
}

// SubmitArrival handles a vehicle check-in submission
func (h *EventHandler) SubmitArrival(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var req models.ArrivalRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if req.DriverID == "" || req.VehicleID == "" {
		http.Error(w, "driver_id and vehicle_id are required", http.StatusBadRequest)
		return
	}
	if req.OdometerReading == nil {
		http.Error(w, "odometer_reading is required on arrival", http.StatusBadRequest)
		return
	}

	managerID, ok := managerID(r, req.ManagerID)
	if !ok {
		http.Error(w, "Manager context not found", http.StatusUnauthorized)
		return
	}

	event, err := h.dispatcher.SubmitArrival(r.Context(), req, managerID)
	if err != nil {
		writeDispatchError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(event)
}

// AmendEvent handles amendment of an event's non-authoritative fields
func (h *EventHandler) AmendEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var req models.AmendRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.EventID == "" {
		http.Error(w, "event_id is required", http.StatusBadRequest)
		return
	}

	event, err := h.dispatcher.AmendEvent(r.Context(), req)
	if err != nil {
		writeDispatchError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(event)
}

// RetractEvent handles deletion of an event from the log
func (h *EventHandler) RetractEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var req models.RetractRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.EventID == "" {
		http.Error(w, "event_id is required", http.StatusBadRequest)
		return
	}

	if err := h.dispatcher.RetractEvent(r.Context(), req.EventID); err != nil {
		writeDispatchError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Event retracted"})
}

// ListEvents returns events matching the query filters
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	filter, err := parseEventFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	events, err := h.dispatcher.ListEvents(r.Context(), filter)
	if err != nil {
		log.WithError(err).Error("Failed to list events")
		http.Error(w, "Failed to list events", http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []models.Event{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(events)
}

// managerID resolves the manager recorded on an event: the one named in
// the request body, falling back to the authenticated manager.
func managerID(r *http.Request, fromBody string) (string, bool) {
	if fromBody != "" {
		return fromBody, true
	}
	claims, ok := middleware.GetManagerFromContext(r.Context())
	if !ok {
		return "", false
	}
	return claims.ManagerID, true
}

// parseEventFilter builds an event filter from query parameters.
func parseEventFilter(r *http.Request) (models.EventFilter, error) {
	q := r.URL.Query()
	filter := models.EventFilter{
		DriverID:  q.Get("driver_id"),
		VehicleID: q.Get("vehicle_id"),
	}
	if t := q.Get("type"); t != "" {
		if !models.IsValidEventType(models.EventType(t)) {
			return filter, errInvalidFilter("type", t)
		}
		filter.Type = models.EventType(t)
	}
	if from := q.Get("from"); from != "" {
		ts, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return filter, errInvalidFilter("from", from)
		}
		filter.From = ts
	}
	if to := q.Get("to"); to != "" {
		ts, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return filter, errInvalidFilter("to", to)
		}
		filter.To = ts
	}
	return filter, nil
}

type filterError struct {
	param, value string
}

func (e filterError) Error() string {
	return "invalid " + e.param + " parameter: " + e.value
}

func errInvalidFilter(param, value string) error {
	return filterError{param: param, value: value}
}

// writeDispatchError maps dispatcher errors to HTTP status codes:
// missing input 400, unknown ids 404, rejected submissions 409.
func writeDispatchError(w http.ResponseWriter, err error) {
	switch {
	case err == dispatch.ErrOdometerRequired:
		http.Error(w, err.Error(), http.StatusBadRequest)
	case dispatch.IsNotFound(err):
		http.Error(w, err.Error(), http.StatusNotFound)
	case dispatch.IsValidation(err):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		log.WithError(err).Error("Event operation failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
