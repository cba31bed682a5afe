package repositories

import (
	"context"
	"time"

	"github.com/palisadehq/palisade/internal/database"
	"github.com/palisadehq/palisade/internal/models"
)

// AttemptRepository is the system of record for device attempt tracking.
// One row per fingerprint; the primary key on fingerprint is the
// idempotency key for GetOrCreate.
type AttemptRepository struct {
	db *database.DB
}

// NewAttemptRepository creates a new AttemptRepository
func NewAttemptRepository(db *database.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// GetOrCreate returns the record for a fingerprint, creating a fresh one
// if none exists. Concurrent calls for the same fingerprint are resolved
// by the unique key: the losing insert is a no-op and the follow-up read
// returns the winner's row.
func (r *AttemptRepository) GetOrCreate(ctx context.Context, fingerprint string) (*models.AttemptRecord, error) {
	insert := `
		INSERT INTO device_attempts (fingerprint, failed_attempts, last_attempt_at, is_banned)
		VALUES ($1, 0, $2, false)
		ON CONFLICT (fingerprint) DO NOTHING
	`

	if _, err := r.db.Pool.Exec(ctx, insert, fingerprint, time.Now()); err != nil {
		return nil, database.MapPostgresError(err)
	}

	return r.Get(ctx, fingerprint)
}

// Get returns the record for a fingerprint, or models.ErrNotFound.
func (r *AttemptRepository) Get(ctx context.Context, fingerprint string) (*models.AttemptRecord, error) {
	query := `
		SELECT fingerprint, failed_attempts, last_attempt_at, is_banned, banned_at, banned_until
		FROM device_attempts
		WHERE fingerprint = $1
	`

	rec := &models.AttemptRecord{}
	err := r.db.Pool.QueryRow(ctx, query, fingerprint).Scan(
		&rec.Fingerprint,
		&rec.FailedAttempts,
		&rec.LastAttemptAt,
		&rec.IsBanned,
		&rec.BannedAt,
		&rec.BannedUntil,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return rec, nil
}

// Update persists the mutable fields of a record.
func (r *AttemptRepository) Update(ctx context.Context, rec *models.AttemptRecord) error {
	query := `
		UPDATE device_attempts
		SET failed_attempts = $2, last_attempt_at = $3, is_banned = $4, banned_at = $5, banned_until = $6
		WHERE fingerprint = $1
	`

	_, err := r.db.Pool.Exec(ctx, query,
		rec.Fingerprint,
		rec.FailedAttempts,
		rec.LastAttemptAt,
		rec.IsBanned,
		rec.BannedAt,
		rec.BannedUntil,
	)

	return database.MapPostgresError(err)
}

// ClearBan clears the ban fields for a fingerprint, leaving the counter
// untouched. Used by lazy-expiry readers once banned_until has passed.
func (r *AttemptRepository) ClearBan(ctx context.Context, fingerprint string) error {
	query := `
		UPDATE device_attempts
		SET is_banned = false, banned_at = NULL, banned_until = NULL
		WHERE fingerprint = $1
	`

	_, err := r.db.Pool.Exec(ctx, query, fingerprint)
	return database.MapPostgresError(err)
}

// Reset clears the counter and the ban fields for a fingerprint.
func (r *AttemptRepository) Reset(ctx context.Context, fingerprint string) error {
	query := `
		UPDATE device_attempts
		SET failed_attempts = 0, last_attempt_at = $2, is_banned = false, banned_at = NULL, banned_until = NULL
		WHERE fingerprint = $1
	`

	_, err := r.db.Pool.Exec(ctx, query, fingerprint, time.Now())
	return database.MapPostgresError(err)
}
