package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/palisadehq/palisade/internal/models"
)

// Decision is the outcome of a guard check.
type Decision struct {
	Allowed        bool
	FailedAttempts int
	BannedUntil    *time.Time
}

// Guard is the read-side entry point every protected endpoint calls
// before doing its own work. It composes the ban status cache with the
// attempt ledger: a fresh cached verdict short-circuits, a miss falls
// through to the ledger's lazy-expiry read and repopulates the cache.
type Guard struct {
	ledger AttemptLedger
	cache  *BanStatusCache
	logger *slog.Logger
}

// NewGuard creates a new Guard
func NewGuard(ledger AttemptLedger, cache *BanStatusCache, logger *slog.Logger) *Guard {
	return &Guard{
		ledger: ledger,
		cache:  cache,
		logger: logger,
	}
}

// Check reports whether a fingerprint may proceed. Unknown fingerprints
// and ledger errors are allowed (fail open); an active ban is rejected
// with its end time.
func (g *Guard) Check(ctx context.Context, fingerprint string) Decision {
	if status, ok := g.cache.Get(fingerprint); ok {
		if !status.Banned {
			return Decision{Allowed: true}
		}
		// Cached bans still honor lazy expiry: once the end time has
		// passed the device is clean even if the TTL has not elapsed.
		if status.BannedUntil != nil && !status.BannedUntil.After(time.Now()) {
			g.cache.Invalidate(fingerprint)
		} else {
			return Decision{Allowed: false, BannedUntil: status.BannedUntil}
		}
	}

	rec, err := g.readRecord(ctx, fingerprint)
	if rec == nil || err != nil {
		return Decision{Allowed: true}
	}

	if rec.IsBanned {
		g.cache.Put(fingerprint, CachedStatus{Banned: true, BannedUntil: rec.BannedUntil})
		return Decision{Allowed: false, FailedAttempts: rec.FailedAttempts, BannedUntil: rec.BannedUntil}
	}

	g.cache.Put(fingerprint, CachedStatus{Banned: false})
	return Decision{Allowed: true, FailedAttempts: rec.FailedAttempts}
}

// Status returns the full polling payload for the ban-status endpoint.
// It always reads the ledger so counters are current; the read also
// performs the lazy-expiry clear and refreshes the cache.
func (g *Guard) Status(ctx context.Context, fingerprint string) models.BanStatus {
	rec, err := g.readRecord(ctx, fingerprint)
	if rec == nil || err != nil {
		return models.BanStatus{}
	}

	g.cache.Put(fingerprint, CachedStatus{Banned: rec.IsBanned, BannedUntil: rec.BannedUntil})

	lastAttempt := rec.LastAttemptAt
	return models.BanStatus{
		IsBanned:       rec.IsBanned,
		FailedAttempts: rec.FailedAttempts,
		LastAttemptAt:  &lastAttempt,
		BannedUntil:    rec.BannedUntil,
	}
}

// readRecord reads a fingerprint's record and applies lazy ban expiry:
// a ban whose end time has passed is cleared in place and in storage.
// Returns (nil, nil) for unknown fingerprints and (nil, err) on storage
// errors; both degrade to "not banned" at the call sites.
func (g *Guard) readRecord(ctx context.Context, fingerprint string) (*models.AttemptRecord, error) {
	rec, err := g.ledger.Get(ctx, fingerprint)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil
		}
		g.logger.Error("attempt ledger read failed, failing open",
			slog.String("fingerprint", fingerprint),
			slog.Any("error", err))
		return nil, err
	}

	if rec.BanExpired(time.Now()) {
		rec.ClearBan()
		if err := g.ledger.ClearBan(ctx, fingerprint); err != nil {
			g.logger.Error("failed to clear expired ban",
				slog.String("fingerprint", fingerprint),
				slog.Any("error", err))
		}
	}

	return rec, nil
}
