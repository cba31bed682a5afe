package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/palisadehq/palisade/internal/models"
	"github.com/palisadehq/palisade/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockSubmissionStore implements services.SubmissionStore for testing
type MockSubmissionStore struct {
	contacts  []*models.ContactSubmission
	referrals []*models.ReferralSubmission
	members   []*models.MemberSubmission
	failAll   bool
}

func (m *MockSubmissionStore) CreateContact(ctx context.Context, sub *models.ContactSubmission) (string, error) {
	if m.failAll {
		return "", errors.New("insert failed")
	}
	m.contacts = append(m.contacts, sub)
	return "contact-1", nil
}

func (m *MockSubmissionStore) CreateReferral(ctx context.Context, sub *models.ReferralSubmission) (string, error) {
	if m.failAll {
		return "", errors.New("insert failed")
	}
	m.referrals = append(m.referrals, sub)
	return "referral-1", nil
}

func (m *MockSubmissionStore) CreateMember(ctx context.Context, sub *models.MemberSubmission) (string, error) {
	if m.failAll {
		return "", errors.New("insert failed")
	}
	m.members = append(m.members, sub)
	return "member-1", nil
}

func newFormService(ledger services.AttemptLedger, store services.SubmissionStore) *services.FormService {
	cache := services.NewBanStatusCache(2*time.Minute, 100)
	guard := services.NewGuard(ledger, cache, testLogger())
	escalator := services.NewEscalator(ledger, cache, formPolicy(), testLogger())
	return services.NewFormService(store, guard, escalator, testLogger())
}

func TestFormServiceSubmitContact_AcceptsAndTracks(t *testing.T) {
	ledger := NewMockAttemptLedger()
	store := &MockSubmissionStore{}
	service := newFormService(ledger, store)

	id, err := service.SubmitContact(context.Background(), &models.ContactSubmission{
		Name:        "Ada",
		Email:       "ada@example.com",
		Message:     "hello",
		Fingerprint: "fp-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "contact-1", id)
	assert.Len(t, store.contacts, 1)

	// The accepted submission counted toward the form policy.
	rec := ledger.Record("fp-1")
	require.NotNil(t, rec)
	assert.Equal(t, 1, rec.FailedAttempts)
}

func TestFormServiceSubmitContact_RejectsBannedDevice(t *testing.T) {
	bannedAt := time.Now().Add(-1 * time.Minute)
	bannedUntil := time.Now().Add(14 * time.Minute)
	ledger := NewMockAttemptLedger()
	ledger.Seed(&models.AttemptRecord{
		Fingerprint:    "fp-1",
		FailedAttempts: 5,
		LastAttemptAt:  bannedAt,
		IsBanned:       true,
		BannedAt:       &bannedAt,
		BannedUntil:    &bannedUntil,
	})
	store := &MockSubmissionStore{}
	service := newFormService(ledger, store)

	_, err := service.SubmitContact(context.Background(), &models.ContactSubmission{
		Name:        "Ada",
		Email:       "ada@example.com",
		Message:     "hello",
		Fingerprint: "fp-1",
	})

	var banErr *services.DeviceBannedError
	require.ErrorAs(t, err, &banErr)
	require.NotNil(t, banErr.BannedUntil)
	assert.True(t, banErr.BannedUntil.Equal(bannedUntil))
	assert.Positive(t, banErr.RetryAfter())
	assert.Empty(t, store.contacts, "banned device must not reach the store")
}

func TestFormServiceSubmitContact_RapidSubmittersEscalate(t *testing.T) {
	ledger := NewMockAttemptLedger()
	store := &MockSubmissionStore{}
	service := newFormService(ledger, store)
	ctx := context.Background()

	sub := func() (string, error) {
		return service.SubmitContact(ctx, &models.ContactSubmission{
			Name:        "Ada",
			Email:       "ada@example.com",
			Message:     "hello",
			Fingerprint: "fp-1",
		})
	}

	// Five rapid successful submissions are all accepted; the fifth one
	// trips the ban for subsequent requests.
	for i := 0; i < 5; i++ {
		_, err := sub()
		require.NoError(t, err)
	}
	assert.Len(t, store.contacts, 5)

	_, err := sub()
	var banErr *services.DeviceBannedError
	require.ErrorAs(t, err, &banErr)
	assert.Len(t, store.contacts, 5)
}

func TestFormServiceSubmitContact_StoreErrorIsNotTracked(t *testing.T) {
	ledger := NewMockAttemptLedger()
	store := &MockSubmissionStore{failAll: true}
	service := newFormService(ledger, store)

	_, err := service.SubmitContact(context.Background(), &models.ContactSubmission{
		Name:        "Ada",
		Email:       "ada@example.com",
		Message:     "hello",
		Fingerprint: "fp-1",
	})

	require.Error(t, err)
	// Only accepted submissions count as tracked events.
	assert.Nil(t, ledger.Record("fp-1"))
}

func TestFormServiceSubmitReferralAndMember_ShareTheSameLedger(t *testing.T) {
	ledger := NewMockAttemptLedger()
	store := &MockSubmissionStore{}
	service := newFormService(ledger, store)
	ctx := context.Background()

	_, err := service.SubmitReferral(ctx, &models.ReferralSubmission{
		ReferrerName:  "Ada",
		ReferrerEmail: "ada@example.com",
		CandidateName: "Grace",
		Fingerprint:   "fp-1",
	})
	require.NoError(t, err)

	_, err = service.SubmitMember(ctx, &models.MemberSubmission{
		MemberID:    "11111111-1111-1111-1111-111111111111",
		Name:        "Ada",
		Email:       "ada@example.com",
		Message:     "hi",
		Interests:   []string{"go", "infra"},
		Fingerprint: "fp-1",
	})
	require.NoError(t, err)

	// Both forms feed the same per-device counter.
	rec := ledger.Record("fp-1")
	require.NotNil(t, rec)
	assert.Equal(t, 2, rec.FailedAttempts)
}
