package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/palisadehq/palisade/internal/database"
	"github.com/palisadehq/palisade/internal/models"
)

// SubmissionRepository persists accepted public form submissions. The
// downstream consumers (notification pipeline, admin views) read these
// tables; this service only writes them.
type SubmissionRepository struct {
	db *database.DB
}

// NewSubmissionRepository creates a new SubmissionRepository
func NewSubmissionRepository(db *database.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// CreateContact stores a contact form submission and returns its ID.
func (r *SubmissionRepository) CreateContact(ctx context.Context, sub *models.ContactSubmission) (string, error) {
	query := `
		INSERT INTO contact_submissions (id, name, email, message, fingerprint, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	id := uuid.NewString()
	_, err := r.db.Pool.Exec(ctx, query,
		id,
		sub.Name,
		sub.Email,
		sub.Message,
		sub.Fingerprint,
		sub.IPAddress,
	)
	if err != nil {
		return "", database.MapPostgresError(err)
	}

	return id, nil
}

// CreateReferral stores a referral form submission and returns its ID.
func (r *SubmissionRepository) CreateReferral(ctx context.Context, sub *models.ReferralSubmission) (string, error) {
	query := `
		INSERT INTO referral_submissions (id, referrer_name, referrer_email, candidate_name, candidate_info, fingerprint, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	id := uuid.NewString()
	_, err := r.db.Pool.Exec(ctx, query,
		id,
		sub.ReferrerName,
		sub.ReferrerEmail,
		sub.CandidateName,
		sub.CandidateInfo,
		sub.Fingerprint,
		sub.IPAddress,
	)
	if err != nil {
		return "", database.MapPostgresError(err)
	}

	return id, nil
}

// CreateMember stores a member-contact submission and returns its ID.
func (r *SubmissionRepository) CreateMember(ctx context.Context, sub *models.MemberSubmission) (string, error) {
	query := `
		INSERT INTO member_submissions (id, member_id, name, email, message, interests, fingerprint, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	id := uuid.NewString()
	_, err := r.db.Pool.Exec(ctx, query,
		id,
		sub.MemberID,
		sub.Name,
		sub.Email,
		sub.Message,
		pq.Array(sub.Interests),
		sub.Fingerprint,
		sub.IPAddress,
	)
	if err != nil {
		return "", database.MapPostgresError(err)
	}

	return id, nil
}
