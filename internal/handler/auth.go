package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/yourorg/staffdesk/internal/security/auth"
	"github.com/yourorg/staffdesk/internal/service"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// AuthHandler handles registration, login and logout
type AuthHandler struct {
	authService *service.AuthService
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// RegisterRequest represents registration input. The username becomes the
// tenant identifier for every employee record the account creates.
type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Password  string `json:"password"`
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// registrationFields is what GET /register/ returns so the rendering
// collaborator can draw the form.
var registrationFields = []service.FieldSpec{
	{Name: "username", Label: "User Name", Required: true, MaxLen: 150},
	{Name: "email", Label: "Email Address", Required: true, MaxLen: 255},
	{Name: "first_name", Label: "First Name", Required: false, MaxLen: 50},
	{Name: "last_name", Label: "Last Name", Required: false, MaxLen: 50},
	{Name: "password", Label: "Password", Required: true, MaxLen: 0},
}

var loginFields = []service.FieldSpec{
	{Name: "username", Label: "User Name", Required: true, MaxLen: 150},
	{Name: "password", Label: "Password", Required: true, MaxLen: 0},
}

// RegisterForm handles GET /register/
func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"fields": registrationFields})
}

// Register handles POST /register/. On success the account is created and
// signed in: the response carries the session token.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode register request", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
		return
	}

	result, err := h.authService.Register(req.Username, req.Email, req.FirstName, req.LastName, req.Password)
	if err != nil {
		h.logger.Info("registration failed",
			slog.String("username", req.Username),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// LoginForm handles GET /login/
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"fields": loginFields})
}

// Login handles POST /login/
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode login request", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
		return
	}

	result, err := h.authService.Login(req.Username, req.Password)
	if err != nil {
		// Generic error to prevent user enumeration
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Logout handles POST /logout/. It revokes the presented bearer token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	tokenString, err := auth.ExtractToken(r.Header.Get("Authorization"))
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	if err := h.authService.Logout(r.Context(), tokenString); err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to log out"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
