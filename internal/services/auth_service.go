package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/palisadehq/palisade/internal/auth"
	"github.com/palisadehq/palisade/internal/models"
	pkgauth "github.com/palisadehq/palisade/pkg/auth"
	pkglogger "github.com/palisadehq/palisade/pkg/logger"
)

// UserStore defines the interface for account lookups
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// AuthResponse is returned on successful login
type AuthResponse struct {
	AccessToken string       `json:"access_token"`
	ExpiresIn   int64        `json:"expires_in"`
	User        *models.User `json:"-"`
}

// AuthService handles login for platform accounts. Failed logins feed the
// authentication escalator, which runs the same state machine as the form
// escalator but with a longer ban duration.
type AuthService struct {
	users     UserStore
	guard     *Guard
	escalator *Escalator
	tokens    *auth.TokenManager
	logger    *slog.Logger
	audit     *pkglogger.AuditLogger
}

// NewAuthService creates a new AuthService
func NewAuthService(users UserStore, guard *Guard, escalator *Escalator, tokens *auth.TokenManager, logger *slog.Logger, audit *pkglogger.AuditLogger) *AuthService {
	return &AuthService{
		users:     users,
		guard:     guard,
		escalator: escalator,
		tokens:    tokens,
		logger:    logger,
		audit:     audit,
	}
}

// Login verifies credentials for the given email. The device fingerprint
// gates the attempt: banned devices are rejected before the credential
// check, and every failed login counts toward the device's auth ban.
func (s *AuthService) Login(ctx context.Context, email, password, fingerprint string) (*AuthResponse, error) {
	decision := s.guard.Check(ctx, fingerprint)
	if !decision.Allowed {
		s.audit.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login",
			Email:         email,
			Fingerprint:   fingerprint,
			Success:       false,
			FailureReason: "device_banned",
		})
		return nil, &DeviceBannedError{BannedUntil: decision.BannedUntil}
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.recordFailure(ctx, fingerprint, email)
			return nil, models.ErrInvalidCredentials
		}
		s.logger.Error("account lookup failed",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Any("error", err))
		return nil, err
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		s.recordFailure(ctx, fingerprint, email)
		return nil, models.ErrInvalidCredentials
	}

	token, expiresIn, err := s.tokens.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	s.audit.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:   "login",
		Email:       email,
		Fingerprint: fingerprint,
		Success:     true,
	})

	return &AuthResponse{
		AccessToken: token,
		ExpiresIn:   int64(expiresIn / time.Second),
		User:        user,
	}, nil
}

func (s *AuthService) recordFailure(ctx context.Context, fingerprint, email string) {
	s.audit.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     "login",
		Email:         email,
		Fingerprint:   fingerprint,
		Success:       false,
		FailureReason: "invalid_credentials",
	})

	result := s.escalator.RecordEvent(ctx, fingerprint)
	if result.ShouldBan && result.BannedUntil != nil {
		s.audit.LogDeviceBan(fingerprint, result.FailedAttempts, *result.BannedUntil)
	}
}
