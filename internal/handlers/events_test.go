package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-triplog/internal/auth"
	"github.com/ukydev/fleet-triplog/internal/db"
	"github.com/ukydev/fleet-triplog/internal/dispatch"
	"github.com/ukydev/fleet-triplog/internal/middleware"
	"github.com/ukydev/fleet-triplog/internal/models"
	"github.com/ukydev/fleet-triplog/internal/registry"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// eventTestEnv wires the event handler over in-memory collections seeded
// with one available vehicle, one active driver and one active manager.
type eventTestEnv struct {
	handler   *EventHandler
	store     *db.MemoryEventCollection
	vehicleID string
	driverID  string
	managerID string
}

func newEventTestEnv(t *testing.T) *eventTestEnv {
	t.Helper()

	store := db.NewMemoryEventCollection()
	vehicles := db.NewMemoryVehicleCollection()
	drivers := db.NewMemoryDriverCollection()
	managers := db.NewMemoryManagerCollection()

	vehicle := models.Vehicle{
		ID:              primitive.NewObjectID(),
		Plate:           "FL-001",
		State:           models.VehicleAvailable,
		CurrentOdometer: 1000,
	}
	require.NoError(t, vehicles.InsertVehicle(context.Background(), vehicle))

	driver := models.Driver{
		ID:    primitive.NewObjectID(),
		State: models.DriverActive,
	}
	require.NoError(t, drivers.InsertDriver(context.Background(), driver))

	manager := models.Manager{
		ID:       primitive.NewObjectID(),
		Username: "dispatcher1",
		Role:     models.RoleDispatcher,
		IsActive: true,
	}
	require.NoError(t, managers.InsertManager(context.Background(), manager))

	dispatcher := dispatch.New(store, registry.New(vehicles, drivers, managers))
	return &eventTestEnv{
		handler:   NewEventHandler(dispatcher),
		store:     store,
		vehicleID: vehicle.ID.Hex(),
		driverID:  driver.ID.Hex(),
		managerID: manager.ID.Hex(),
	}
}

func postJSON(t *testing.T, target string, payload any) *http.Request {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return httptest.NewRequest("POST", target, bytes.NewBuffer(body))
}

func (env *eventTestEnv) submitDeparture(t *testing.T) models.Event {
	t.Helper()
	req := postJSON(t, "/api/events/departure", models.DepartureRequest{
		DriverID:  env.driverID,
		VehicleID: env.vehicleID,
		ManagerID: env.managerID,
	})
	w := httptest.NewRecorder()
	env.handler.SubmitDeparture(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var event models.Event
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &event))
	return event
}

func TestEventHandler_SubmitDeparture(t *testing.T) {
	t.Run("successful submission", func(t *testing.T) {
		env := newEventTestEnv(t)

		event := env.submitDeparture(t)
		assert.Equal(t, models.EventDeparture, event.Type)
		assert.Equal(t, 1000.0, event.OdometerReading)
		assert.Equal(t, env.managerID, event.ManagerID)
	})

	t.Run("missing required fields", func(t *testing.T) {
		env := newEventTestEnv(t)

		req := postJSON(t, "/api/events/departure", models.DepartureRequest{
			DriverID: env.driverID,
		})
		w := httptest.NewRecorder()
		env.handler.SubmitDeparture(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("no manager in body or context", func(t *testing.T) {
		env := newEventTestEnv(t)

		req := postJSON(t, "/api/events/departure", models.DepartureRequest{
			DriverID:  env.driverID,
			VehicleID: env.vehicleID,
		})
		w := httptest.NewRecorder()
		env.handler.SubmitDeparture(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("repeated submission conflicts", func(t *testing.T) {
		env := newEventTestEnv(t)
		env.submitDeparture(t)

		req := postJSON(t, "/api/events/departure", models.DepartureRequest{
			DriverID:  env.driverID,
			VehicleID: env.vehicleID,
			ManagerID: env.managerID,
		})
		w := httptest.NewRecorder()
		env.handler.SubmitDeparture(w, req)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("unknown vehicle", func(t *testing.T) {
		env := newEventTestEnv(t)

		req := postJSON(t, "/api/events/departure", models.DepartureRequest{
			DriverID:  env.driverID,
			VehicleID: primitive.NewObjectID().Hex(),
			ManagerID: env.managerID,
		})
		w := httptest.NewRecorder()
		env.handler.SubmitDeparture(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		env := newEventTestEnv(t)

		req := httptest.NewRequest("GET", "/api/events/departure", nil)
		w := httptest.NewRecorder()
		env.handler.SubmitDeparture(w, req)
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestEventHandler_SubmitArrival(t *testing.T) {
	t.Run("successful submission", func(t *testing.T) {
		env := newEventTestEnv(t)
		env.submitDeparture(t)

		reading := 1120.0
		req := postJSON(t, "/api/events/arrival", models.ArrivalRequest{
			DriverID:        env.driverID,
			VehicleID:       env.vehicleID,
			ManagerID:       env.managerID,
			OdometerReading: &reading,
		})
		w := httptest.NewRecorder()
		env.handler.SubmitArrival(w, req)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var event models.Event
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &event))
		assert.Equal(t, models.EventArrival, event.Type)
		assert.Equal(t, 1120.0, event.OdometerReading)
	})

	t.Run("missing odometer reading", func(t *testing.T) {
		env := newEventTestEnv(t)
		env.submitDeparture(t)

		req := postJSON(t, "/api/events/arrival", models.ArrivalRequest{
			DriverID:  env.driverID,
			VehicleID: env.vehicleID,
			ManagerID: env.managerID,
		})
		w := httptest.NewRecorder()
		env.handler.SubmitArrival(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("no matching departure", func(t *testing.T) {
		env := newEventTestEnv(t)

		reading := 1120.0
		req := postJSON(t, "/api/events/arrival", models.ArrivalRequest{
			DriverID:        env.driverID,
			VehicleID:       env.vehicleID,
			ManagerID:       env.managerID,
			OdometerReading: &reading,
		})
		w := httptest.NewRecorder()
		env.handler.SubmitArrival(w, req)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("odometer regression", func(t *testing.T) {
		env := newEventTestEnv(t)
		env.submitDeparture(t)

		reading := 900.0
		req := postJSON(t, "/api/events/arrival", models.ArrivalRequest{
			DriverID:        env.driverID,
			VehicleID:       env.vehicleID,
			ManagerID:       env.managerID,
			OdometerReading: &reading,
		})
		w := httptest.NewRecorder()
		env.handler.SubmitArrival(w, req)
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestEventHandler_AmendEvent(t *testing.T) {
	t.Run("successful amendment", func(t *testing.T) {
		env := newEventTestEnv(t)
		event := env.submitDeparture(t)

		notes := "trailer attached"
		req := postJSON(t, "/api/events/amend", models.AmendRequest{
			EventID: event.ID.Hex(),
			Notes:   &notes,
		})
		w := httptest.NewRecorder()
		env.handler.AmendEvent(w, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var amended models.Event
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &amended))
		assert.Equal(t, notes, amended.Notes)
	})

	t.Run("missing event id", func(t *testing.T) {
		env := newEventTestEnv(t)

		req := postJSON(t, "/api/events/amend", models.AmendRequest{})
		w := httptest.NewRecorder()
		env.handler.AmendEvent(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown event", func(t *testing.T) {
		env := newEventTestEnv(t)

		req := postJSON(t, "/api/events/amend", models.AmendRequest{
			EventID: primitive.NewObjectID().Hex(),
		})
		w := httptest.NewRecorder()
		env.handler.AmendEvent(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestEventHandler_RetractEvent(t *testing.T) {
	t.Run("successful retraction", func(t *testing.T) {
		env := newEventTestEnv(t)
		event := env.submitDeparture(t)

		req := postJSON(t, "/api/events/retract", models.RetractRequest{
			EventID: event.ID.Hex(),
		})
		w := httptest.NewRecorder()
		env.handler.RetractEvent(w, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		events, err := env.store.FindEvents(context.Background(), models.EventFilter{})
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run("unknown event", func(t *testing.T) {
		env := newEventTestEnv(t)

		req := postJSON(t, "/api/events/retract", models.RetractRequest{
			EventID: primitive.NewObjectID().Hex(),
		})
		w := httptest.NewRecorder()
		env.handler.RetractEvent(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

// routedEventAPI assembles the event routes the way cmd/main.go does:
// authentication over the whole mux, permission guards on the mutating
// routes, the read surface open to every authenticated role.
func routedEventAPI(t *testing.T, env *eventTestEnv) (http.Handler, *auth.Service) {
	t.Helper()

	authService, err := auth.NewService()
	require.NoError(t, err)
	authMiddleware := middleware.NewAuthMiddleware(authService)

	mux := http.NewServeMux()
	submitGuard := authMiddleware.RequirePermission("submit_event")
	mux.Handle("/api/events/departure", submitGuard(http.HandlerFunc(env.handler.SubmitDeparture)))
	mux.Handle("/api/events/arrival", submitGuard(http.HandlerFunc(env.handler.SubmitArrival)))
	mux.Handle("/api/events/amend", authMiddleware.RequirePermission("amend_event")(http.HandlerFunc(env.handler.AmendEvent)))
	mux.Handle("/api/events/retract", authMiddleware.RequirePermission("retract_event")(http.HandlerFunc(env.handler.RetractEvent)))
	mux.HandleFunc("/api/events", env.handler.ListEvents)

	return authMiddleware.Authenticate(mux), authService
}

func tokenFor(t *testing.T, authService *auth.Service, role models.Role) string {
	t.Helper()
	token, err := authService.GenerateToken(&models.Manager{
		ID:       primitive.NewObjectID(),
		Username: string(role) + "1",
		Role:     role,
	})
	require.NoError(t, err)
	return token
}

func TestEventRoutes_ViewerAuthorization(t *testing.T) {
	env := newEventTestEnv(t)
	api, authService := routedEventAPI(t, env)
	viewerToken := tokenFor(t, authService, models.RoleViewer)

	t.Run("viewer cannot mutate", func(t *testing.T) {
		mutating := []struct {
			path    string
			payload any
		}{
			{"/api/events/departure", models.DepartureRequest{DriverID: env.driverID, VehicleID: env.vehicleID}},
			{"/api/events/arrival", models.ArrivalRequest{DriverID: env.driverID, VehicleID: env.vehicleID}},
			{"/api/events/amend", models.AmendRequest{EventID: primitive.NewObjectID().Hex()}},
			{"/api/events/retract", models.RetractRequest{EventID: primitive.NewObjectID().Hex()}},
		}
		for _, route := range mutating {
			req := postJSON(t, route.path, route.payload)
			req.Header.Set("Authorization", "Bearer "+viewerToken)
			w := httptest.NewRecorder()
			api.ServeHTTP(w, req)
			assert.Equal(t, http.StatusForbidden, w.Code, route.path)
		}

		events, err := env.store.FindEvents(context.Background(), models.EventFilter{})
		require.NoError(t, err)
		assert.Empty(t, events, "rejected submissions must not reach the dispatcher")
	})

	t.Run("viewer can list events", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/events", nil)
		req.Header.Set("Authorization", "Bearer "+viewerToken)
		w := httptest.NewRecorder()
		api.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("dispatcher can submit", func(t *testing.T) {
		req := postJSON(t, "/api/events/departure", models.DepartureRequest{
			DriverID:  env.driverID,
			VehicleID: env.vehicleID,
			ManagerID: env.managerID,
		})
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, authService, models.RoleDispatcher))
		w := httptest.NewRecorder()
		api.ServeHTTP(w, req)
		assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	})
}

func TestEventHandler_ListEvents(t *testing.T) {
	t.Run("returns events for driver", func(t *testing.T) {
		env := newEventTestEnv(t)
		env.submitDeparture(t)

		req := httptest.NewRequest("GET", "/api/events?driver_id="+env.driverID, nil)
		w := httptest.NewRecorder()
		env.handler.ListEvents(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		var events []models.Event
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &events))
		assert.Len(t, events, 1)
	})

	t.Run("empty log yields empty array", func(t *testing.T) {
		env := newEventTestEnv(t)

		req := httptest.NewRequest("GET", "/api/events", nil)
		w := httptest.NewRecorder()
		env.handler.ListEvents(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, "[]", w.Body.String())
	})

	t.Run("invalid type filter", func(t *testing.T) {
		env := newEventTestEnv(t)

		req := httptest.NewRequest("GET", "/api/events?type=refuel", nil)
		w := httptest.NewRecorder()
		env.handler.ListEvents(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid time filter", func(t *testing.T) {
		env := newEventTestEnv(t)

		req := httptest.NewRequest("GET", "/api/events?from=yesterday", nil)
		w := httptest.NewRecorder()
		env.handler.ListEvents(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
