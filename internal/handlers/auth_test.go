package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/palisadehq/palisade/internal/fingerprint"
	"github.com/palisadehq/palisade/internal/handlers"
	"github.com/palisadehq/palisade/internal/models"
	"github.com/palisadehq/palisade/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockAuthService implements handlers.AuthServiceInterface for testing
type MockAuthService struct {
	resp *services.AuthResponse
	err  error
}

func (m *MockAuthService) Login(ctx context.Context, email, password, fp string) (*services.AuthResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.resp, nil
}

func loginRequest(t *testing.T, req handlers.LoginRequest) *http.Request {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)
	return httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBuffer(body))
}

func TestAuthHandlerLogin_Success(t *testing.T) {
	service := &MockAuthService{resp: &services.AuthResponse{
		AccessToken: "token-123",
		ExpiresIn:   900,
		User:        &models.User{Name: "Ada"},
	}}
	handler := handlers.NewAuthHandler(service, fingerprint.NewCodec())

	req := loginRequest(t, handlers.LoginRequest{
		Email:    "ada@example.com",
		Password: "correct horse battery",
	})
	rec := httptest.NewRecorder()

	handler.Login(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp handlers.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "token-123", resp.AccessToken)
	assert.Equal(t, int64(900), resp.ExpiresIn)
	assert.Equal(t, "Ada", resp.Name)
}

func TestAuthHandlerLogin_InvalidCredentials(t *testing.T) {
	service := &MockAuthService{err: models.ErrInvalidCredentials}
	handler := handlers.NewAuthHandler(service, fingerprint.NewCodec())

	req := loginRequest(t, handlers.LoginRequest{
		Email:    "ada@example.com",
		Password: "wrong",
	})
	rec := httptest.NewRecorder()

	handler.Login(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandlerLogin_BannedDevice(t *testing.T) {
	until := time.Now().Add(5 * time.Hour)
	service := &MockAuthService{err: &services.DeviceBannedError{BannedUntil: &until}}
	handler := handlers.NewAuthHandler(service, fingerprint.NewCodec())

	req := loginRequest(t, handlers.LoginRequest{
		Email:    "ada@example.com",
		Password: "whatever",
	})
	rec := httptest.NewRecorder()

	handler.Login(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestAuthHandlerLogin_MissingPassword(t *testing.T) {
	handler := handlers.NewAuthHandler(&MockAuthService{}, fingerprint.NewCodec())

	req := loginRequest(t, handlers.LoginRequest{Email: "ada@example.com"})
	rec := httptest.NewRecorder()

	handler.Login(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
