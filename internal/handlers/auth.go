package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/palisadehq/palisade/internal/fingerprint"
	"github.com/palisadehq/palisade/internal/models"
	"github.com/palisadehq/palisade/internal/services"
	pkghttp "github.com/palisadehq/palisade/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Login(ctx context.Context, email, password, fingerprint string) (*services.AuthResponse, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service AuthServiceInterface
	codec   *fingerprint.Codec
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, codec *fingerprint.Codec) *AuthHandler {
	return &AuthHandler{
		service: service,
		codec:   codec,
	}
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string                  `json:"email" validate:"required,email"`
	Password string                  `json:"password" validate:"required"`
	Device   DeviceAttributesRequest `json:"device"`
}

// LoginResponse represents the response body for a successful login
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	Name        string `json:"name"`
}

// Login handles user login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	fp := h.codec.Fingerprint(req.Device.toModel())

	resp, err := h.service.Login(r.Context(), req.Email, req.Password, fp)
	if err != nil {
		var banErr *services.DeviceBannedError
		switch {
		case errors.As(err, &banErr):
			pkghttp.WriteDeviceBanned(w, banErr.RetryAfter(), banErr.BannedUntil)
		case errors.Is(err, models.ErrInvalidCredentials):
			pkghttp.WriteUnauthorized(w, "Invalid email or password")
		default:
			pkghttp.WriteInternalError(w, "Login failed")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(LoginResponse{
		AccessToken: resp.AccessToken,
		ExpiresIn:   resp.ExpiresIn,
		Name:        resp.User.Name,
	})
}
