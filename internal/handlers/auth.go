package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/ukydev/fleet-triplog/internal/auth"
	"github.com/ukydev/fleet-triplog/internal/db"
	"github.com/ukydev/fleet-triplog/internal/middleware"
	"github.com/ukydev/fleet-triplog/internal/models"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService       *auth.Service
	managerCollection db.ManagerCollection
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService *auth.Service, managerCollection db.ManagerCollection) *AuthHandler {
	return &AuthHandler{
		authService:       authService,
		managerCollection: managerCollection,
	}
}

// Login handles manager login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var loginReq models.LoginRequest
	if err := json.Unmarshal(body, &loginReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	// Validate input
	if loginReq.Username == "" || loginReq.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	// Find manager by username
	manager, err := h.managerCollection.FindManagerByUsername(r.Context(), loginReq.Username)
	if err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	// Check if manager is active
	if !manager.IsActive {
		http.Error(w, "Account is deactivated", http.StatusUnauthorized)
		return
	}

	// Verify password
	if !h.authService.CheckPassword(loginReq.Password, manager.PasswordHash) {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	// Generate tokens
	token, err := h.authService.GenerateToken(manager)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	refreshToken, err := h.authService.GenerateRefreshToken()
	if err != nil {
		http.Error(w, "Failed to generate refresh token", http.StatusInternalServerError)
		return
	}

	// Update last login; failures don't block the login itself
	_ = h.managerCollection.UpdateLastLogin(r.Context(), manager.ID.Hex())

	response := models.LoginResponse{
		Token:        token,
		RefreshToken: refreshToken,
		Manager:      *manager,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// GetProfile returns the current manager's profile
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims, ok := middleware.GetManagerFromContext(r.Context())
	if !ok {
		http.Error(w, "Manager context not found", http.StatusUnauthorized)
		return
	}

	manager, err := h.managerCollection.FindManagerByID(r.Context(), claims.ManagerID)
	if err != nil {
		http.Error(w, "Manager not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(manager)
}
