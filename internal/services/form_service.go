package services

import (
	"context"
	"log/slog"

	"github.com/palisadehq/palisade/internal/models"
)

// SubmissionStore defines the interface for persisting form submissions
type SubmissionStore interface {
	CreateContact(ctx context.Context, sub *models.ContactSubmission) (string, error)
	CreateReferral(ctx context.Context, sub *models.ReferralSubmission) (string, error)
	CreateMember(ctx context.Context, sub *models.MemberSubmission) (string, error)
}

// FormService accepts public form submissions. Every accepted submission
// counts as a tracked event: rapid repeat submitters escalate to a ban
// even when each individual submission succeeds.
type FormService struct {
	store     SubmissionStore
	guard     *Guard
	escalator *Escalator
	logger    *slog.Logger
}

// NewFormService creates a new FormService
func NewFormService(store SubmissionStore, guard *Guard, escalator *Escalator, logger *slog.Logger) *FormService {
	return &FormService{
		store:     store,
		guard:     guard,
		escalator: escalator,
		logger:    logger,
	}
}

// SubmitContact persists a contact submission after the guard check.
func (s *FormService) SubmitContact(ctx context.Context, sub *models.ContactSubmission) (string, error) {
	if err := s.checkDevice(ctx, sub.Fingerprint); err != nil {
		return "", err
	}

	id, err := s.store.CreateContact(ctx, sub)
	if err != nil {
		return "", err
	}

	s.trackSubmission(ctx, sub.Fingerprint, "contact")
	return id, nil
}

// SubmitReferral persists a referral submission after the guard check.
func (s *FormService) SubmitReferral(ctx context.Context, sub *models.ReferralSubmission) (string, error) {
	if err := s.checkDevice(ctx, sub.Fingerprint); err != nil {
		return "", err
	}

	id, err := s.store.CreateReferral(ctx, sub)
	if err != nil {
		return "", err
	}

	s.trackSubmission(ctx, sub.Fingerprint, "referral")
	return id, nil
}

// SubmitMember persists a member-contact submission after the guard check.
func (s *FormService) SubmitMember(ctx context.Context, sub *models.MemberSubmission) (string, error) {
	if err := s.checkDevice(ctx, sub.Fingerprint); err != nil {
		return "", err
	}

	id, err := s.store.CreateMember(ctx, sub)
	if err != nil {
		return "", err
	}

	s.trackSubmission(ctx, sub.Fingerprint, "member")
	return id, nil
}

func (s *FormService) checkDevice(ctx context.Context, fingerprint string) error {
	decision := s.guard.Check(ctx, fingerprint)
	if !decision.Allowed {
		return &DeviceBannedError{BannedUntil: decision.BannedUntil}
	}
	return nil
}

// trackSubmission counts the accepted submission toward the form policy.
// The submission itself has already been stored; a ban imposed here only
// affects subsequent requests.
func (s *FormService) trackSubmission(ctx context.Context, fingerprint, form string) {
	result := s.escalator.RecordEvent(ctx, fingerprint)
	if result.ShouldBan {
		s.logger.Warn("form submitter escalated to ban",
			slog.String("form", form),
			slog.String("fingerprint", fingerprint),
			slog.Int("failed_attempts", result.FailedAttempts))
	}
}
