package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/palisadehq/palisade/internal/models"
)

// AttemptLedger defines the interface for the durable attempt store
type AttemptLedger interface {
	GetOrCreate(ctx context.Context, fingerprint string) (*models.AttemptRecord, error)
	Get(ctx context.Context, fingerprint string) (*models.AttemptRecord, error)
	Update(ctx context.Context, rec *models.AttemptRecord) error
	ClearBan(ctx context.Context, fingerprint string) error
	Reset(ctx context.Context, fingerprint string) error
}

// Policy parametrizes one escalation state machine. The form-abuse and
// authentication-abuse escalators share the implementation and differ
// only in these values.
type Policy struct {
	Threshold   int
	Window      time.Duration
	BanDuration time.Duration
}

// EventResult describes the record state after a tracked event.
type EventResult struct {
	Banned         bool
	ShouldBan      bool // true only on the event that imposed the ban
	FailedAttempts int
	BannedUntil    *time.Time
}

// DeviceBannedError is the typed rejection returned to protected
// endpoints while a ban is active. It carries the ban end time so the
// caller can render a wait hint.
type DeviceBannedError struct {
	BannedUntil *time.Time
}

func (e *DeviceBannedError) Error() string {
	if e.BannedUntil == nil {
		return models.ErrDeviceBanned.Error()
	}
	return fmt.Sprintf("device is temporarily banned until %s", e.BannedUntil.Format(time.RFC3339))
}

func (e *DeviceBannedError) Unwrap() error { return models.ErrDeviceBanned }

// RetryAfter returns the remaining ban time, floored at zero.
func (e *DeviceBannedError) RetryAfter() time.Duration {
	if e.BannedUntil == nil {
		return 0
	}
	remaining := time.Until(*e.BannedUntil)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Escalator decides, on each tracked event, whether to reset the rolling
// window, increment the counter, or escalate to a temporary ban. It is
// the only writer of the ledger's mutable fields.
type Escalator struct {
	ledger AttemptLedger
	cache  *BanStatusCache
	policy Policy
	logger *slog.Logger
}

// NewEscalator creates an escalator bound to one policy.
func NewEscalator(ledger AttemptLedger, cache *BanStatusCache, policy Policy, logger *slog.Logger) *Escalator {
	return &Escalator{
		ledger: ledger,
		cache:  cache,
		policy: policy,
		logger: logger,
	}
}

// RecordEvent applies one tracked event to the fingerprint's record.
//
// An active ban is a hard stop: further events neither extend it nor
// touch the counter. An expired ban collapses to a clean record before
// the event is counted. Otherwise the counter resets when the window has
// elapsed since the last event, increments when it has not, and reaching
// the threshold imposes the ban.
//
// Storage errors degrade to a zero-value "not banned" result: public
// endpoint availability wins over strict enforcement.
func (e *Escalator) RecordEvent(ctx context.Context, fingerprint string) EventResult {
	rec, err := e.ledger.GetOrCreate(ctx, fingerprint)
	if err != nil {
		e.logger.Error("attempt ledger read failed, failing open",
			slog.String("fingerprint", fingerprint),
			slog.Any("error", err))
		return EventResult{}
	}

	now := time.Now()

	if rec.BanActive(now) {
		return EventResult{
			Banned:         true,
			FailedAttempts: rec.FailedAttempts,
			BannedUntil:    rec.BannedUntil,
		}
	}

	if rec.BanExpired(now) {
		rec.ClearBan()
		rec.FailedAttempts = 0
	}

	if now.Sub(rec.LastAttemptAt) > e.policy.Window {
		rec.FailedAttempts = 1
	} else {
		rec.FailedAttempts++
	}
	rec.LastAttemptAt = now

	shouldBan := rec.FailedAttempts >= e.policy.Threshold
	if shouldBan {
		bannedUntil := now.Add(e.policy.BanDuration)
		rec.IsBanned = true
		rec.BannedAt = &now
		rec.BannedUntil = &bannedUntil

		e.logger.Warn("device banned",
			slog.String("fingerprint", fingerprint),
			slog.Int("failed_attempts", rec.FailedAttempts),
			slog.Time("banned_until", bannedUntil))
	}

	if err := e.ledger.Update(ctx, rec); err != nil {
		e.logger.Error("attempt ledger write failed, failing open",
			slog.String("fingerprint", fingerprint),
			slog.Any("error", err))
		return EventResult{}
	}

	e.cache.Put(fingerprint, CachedStatus{Banned: rec.IsBanned, BannedUntil: rec.BannedUntil})

	return EventResult{
		Banned:         rec.IsBanned,
		ShouldBan:      shouldBan,
		FailedAttempts: rec.FailedAttempts,
		BannedUntil:    rec.BannedUntil,
	}
}

// Reset clears the counter and ban state for a fingerprint.
func (e *Escalator) Reset(ctx context.Context, fingerprint string) error {
	if err := e.ledger.Reset(ctx, fingerprint); err != nil {
		return err
	}
	e.cache.Invalidate(fingerprint)
	return nil
}
