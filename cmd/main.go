package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/fleet-triplog/internal/auth"
	"github.com/ukydev/fleet-triplog/internal/db"
	"github.com/ukydev/fleet-triplog/internal/dispatch"
	"github.com/ukydev/fleet-triplog/internal/handlers"
	"github.com/ukydev/fleet-triplog/internal/middleware"
	"github.com/ukydev/fleet-triplog/internal/registry"
)

func main() {
	// .env is optional; real deployments set the environment directly
	if err := godotenv.Load(); err == nil {
		log.Info("Loaded configuration from .env")
	}

	var (
		events   db.EventCollection
		vehicles db.VehicleCollection
		drivers  db.DriverCollection
		managers db.ManagerCollection
	)

	if os.Getenv("STORE") == "memory" {
		// Standalone mode for local development without a Mongo instance
		events = db.NewMemoryEventCollection()
		vehicles = db.NewMemoryVehicleCollection()
		drivers = db.NewMemoryDriverCollection()
		managers = db.NewMemoryManagerCollection()
		log.Info("Using in-memory store")
	} else {
		client, err := db.ConnectMongo()
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to MongoDB")
		}
		defer client.Disconnect(context.Background())

		dbName := os.Getenv("MONGO_DB")
		if dbName == "" {
			dbName = "fleet_triplog"
		}
		database := client.Database(dbName)
		events = &db.MongoEventCollection{Collection: database.Collection("events")}
		vehicles = &db.MongoVehicleCollection{Collection: database.Collection("vehicles")}
		drivers = &db.MongoDriverCollection{Collection: database.Collection("drivers")}
		managers = &db.MongoManagerCollection{Collection: database.Collection("managers")}
		log.WithField("database", dbName).Info("Connected to MongoDB")
	}

	authService, err := auth.NewService()
	if err != nil {
		log.WithError(err).Fatal("Failed to create auth service")
	}

	reg := registry.New(vehicles, drivers, managers)
	dispatcher := dispatch.New(events, reg)

	authHandler := handlers.NewAuthHandler(authService, managers)
	eventHandler := handlers.NewEventHandler(dispatcher)
	tripHandler := handlers.NewTripHandler(dispatcher)

	authMiddleware := middleware.NewAuthMiddleware(authService)
	rateLimiter := middleware.NewRateLimitMiddleware()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})
	mux.HandleFunc("/api/auth/login", authHandler.Login)
	mux.HandleFunc("/api/auth/profile", authHandler.GetProfile)

	// Mutating event routes are closed to viewer accounts; the read
	// surface below stays open to every authenticated role.
	submitGuard := authMiddleware.RequirePermission("submit_event")
	mux.Handle("/api/events/departure", submitGuard(http.HandlerFunc(eventHandler.SubmitDeparture)))
	mux.Handle("/api/events/arrival", submitGuard(http.HandlerFunc(eventHandler.SubmitArrival)))
	mux.Handle("/api/events/amend", authMiddleware.RequirePermission("amend_event")(http.HandlerFunc(eventHandler.AmendEvent)))
	mux.Handle("/api/events/retract", authMiddleware.RequirePermission("retract_event")(http.HandlerFunc(eventHandler.RetractEvent)))

	mux.HandleFunc("/api/events", eventHandler.ListEvents)
	mux.HandleFunc("/api/trips", tripHandler.ListTrips)
	mux.HandleFunc("/api/summary", tripHandler.Summary)

	handler := rateLimiter.RateLimit(300, 60)(authMiddleware.Authenticate(mux))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("port", port).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server shutdown failed")
	}
}
