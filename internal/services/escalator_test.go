package services_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/palisadehq/palisade/internal/models"
	"github.com/palisadehq/palisade/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockAttemptLedger implements services.AttemptLedger for testing
type MockAttemptLedger struct {
	records    map[string]*models.AttemptRecord
	failReads  bool
	failWrites bool
	getCalls   int
}

func NewMockAttemptLedger() *MockAttemptLedger {
	return &MockAttemptLedger{
		records: make(map[string]*models.AttemptRecord),
	}
}

func (m *MockAttemptLedger) Seed(rec *models.AttemptRecord) {
	copied := *rec
	m.records[rec.Fingerprint] = &copied
}

func (m *MockAttemptLedger) Record(fingerprint string) *models.AttemptRecord {
	return m.records[fingerprint]
}

func (m *MockAttemptLedger) GetOrCreate(ctx context.Context, fingerprint string) (*models.AttemptRecord, error) {
	if m.failReads {
		return nil, errors.New("connection refused")
	}
	if _, ok := m.records[fingerprint]; !ok {
		m.records[fingerprint] = &models.AttemptRecord{
			Fingerprint:   fingerprint,
			LastAttemptAt: time.Now(),
		}
	}
	copied := *m.records[fingerprint]
	return &copied, nil
}

func (m *MockAttemptLedger) Get(ctx context.Context, fingerprint string) (*models.AttemptRecord, error) {
	m.getCalls++
	if m.failReads {
		return nil, errors.New("connection refused")
	}
	rec, ok := m.records[fingerprint]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *rec
	return &copied, nil
}

func (m *MockAttemptLedger) Update(ctx context.Context, rec *models.AttemptRecord) error {
	if m.failWrites {
		return errors.New("connection refused")
	}
	copied := *rec
	m.records[rec.Fingerprint] = &copied
	return nil
}

func (m *MockAttemptLedger) ClearBan(ctx context.Context, fingerprint string) error {
	if m.failWrites {
		return errors.New("connection refused")
	}
	if rec, ok := m.records[fingerprint]; ok {
		rec.ClearBan()
	}
	return nil
}

func (m *MockAttemptLedger) Reset(ctx context.Context, fingerprint string) error {
	if m.failWrites {
		return errors.New("connection refused")
	}
	if rec, ok := m.records[fingerprint]; ok {
		rec.FailedAttempts = 0
		rec.LastAttemptAt = time.Now()
		rec.ClearBan()
	}
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

func formPolicy() services.Policy {
	return services.Policy{
		Threshold:   5,
		Window:      15 * time.Minute,
		BanDuration: 15 * time.Minute,
	}
}

func newEscalator(ledger services.AttemptLedger, policy services.Policy) (*services.Escalator, *services.BanStatusCache) {
	cache := services.NewBanStatusCache(2*time.Minute, 100)
	return services.NewEscalator(ledger, cache, policy, testLogger()), cache
}

func TestEscalatorRecordEvent_CreatesRecordOnFirstEvent(t *testing.T) {
	ledger := NewMockAttemptLedger()
	escalator, _ := newEscalator(ledger, formPolicy())

	result := escalator.RecordEvent(context.Background(), "fp-new")

	assert.False(t, result.Banned)
	assert.False(t, result.ShouldBan)
	assert.Equal(t, 1, result.FailedAttempts)
	assert.Nil(t, result.BannedUntil)
}

func TestEscalatorRecordEvent_IncrementsWithinWindow(t *testing.T) {
	ledger := NewMockAttemptLedger()
	ledger.Seed(&models.AttemptRecord{
		Fingerprint:    "fp-1",
		FailedAttempts: 3,
		LastAttemptAt:  time.Now().Add(-2 * time.Minute),
	})
	escalator, _ := newEscalator(ledger, formPolicy())

	result := escalator.RecordEvent(context.Background(), "fp-1")

	assert.Equal(t, 4, result.FailedAttempts)
	assert.False(t, result.Banned)
}

func TestEscalatorRecordEvent_ResetsCounterAfterWindow(t *testing.T) {
	ledger := NewMockAttemptLedger()
	ledger.Seed(&models.AttemptRecord{
		Fingerprint:    "fp-1",
		FailedAttempts: 3,
		LastAttemptAt:  time.Now().Add(-16 * time.Minute),
	})
	escalator, _ := newEscalator(ledger, formPolicy())

	result := escalator.RecordEvent(context.Background(), "fp-1")

	// 16 minutes idle with a 15 minute window: back to base, not 4.
	assert.Equal(t, 1, result.FailedAttempts)
	assert.False(t, result.Banned)
}

func TestEscalatorRecordEvent_EscalatesAtThreshold(t *testing.T) {
	ledger := NewMockAttemptLedger()
	ledger.Seed(&models.AttemptRecord{
		Fingerprint:    "fp-1",
		FailedAttempts: 4,
		LastAttemptAt:  time.Now().Add(-1 * time.Minute),
	})
	escalator, cache := newEscalator(ledger, formPolicy())

	result := escalator.RecordEvent(context.Background(), "fp-1")

	assert.True(t, result.Banned)
	assert.True(t, result.ShouldBan)
	assert.Equal(t, 5, result.FailedAttempts)
	require.NotNil(t, result.BannedUntil)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), *result.BannedUntil, 2*time.Second)

	// Record is persisted with both ban timestamps set.
	rec := ledger.Record("fp-1")
	assert.True(t, rec.IsBanned)
	assert.NotNil(t, rec.BannedAt)
	assert.NotNil(t, rec.BannedUntil)

	// Cache was refreshed with the new verdict.
	status, ok := cache.Get("fp-1")
	require.True(t, ok)
	assert.True(t, status.Banned)
}

func TestEscalatorRecordEvent_ActiveBanIsNotExtended(t *testing.T) {
	bannedAt := time.Now().Add(-5 * time.Minute)
	bannedUntil := time.Now().Add(10 * time.Minute)
	ledger := NewMockAttemptLedger()
	ledger.Seed(&models.AttemptRecord{
		Fingerprint:    "fp-1",
		FailedAttempts: 5,
		LastAttemptAt:  bannedAt,
		IsBanned:       true,
		BannedAt:       &bannedAt,
		BannedUntil:    &bannedUntil,
	})
	escalator, _ := newEscalator(ledger, formPolicy())

	for i := 0; i < 3; i++ {
		result := escalator.RecordEvent(context.Background(), "fp-1")

		assert.True(t, result.Banned)
		assert.False(t, result.ShouldBan)
		assert.Equal(t, 5, result.FailedAttempts)
		require.NotNil(t, result.BannedUntil)
		assert.True(t, result.BannedUntil.Equal(bannedUntil), "ban end time must not move")
	}
}

func TestEscalatorRecordEvent_ExpiredBanCollapsesToClean(t *testing.T) {
	bannedAt := time.Now().Add(-20 * time.Minute)
	bannedUntil := time.Now().Add(-5 * time.Minute)
	ledger := NewMockAttemptLedger()
	ledger.Seed(&models.AttemptRecord{
		Fingerprint:    "fp-1",
		FailedAttempts: 5,
		LastAttemptAt:  bannedAt,
		IsBanned:       true,
		BannedAt:       &bannedAt,
		BannedUntil:    &bannedUntil,
	})
	escalator, _ := newEscalator(ledger, formPolicy())

	result := escalator.RecordEvent(context.Background(), "fp-1")

	assert.False(t, result.Banned)
	assert.Equal(t, 1, result.FailedAttempts)

	rec := ledger.Record("fp-1")
	assert.False(t, rec.IsBanned)
	assert.Nil(t, rec.BannedAt)
	assert.Nil(t, rec.BannedUntil)
}

func TestEscalatorRecordEvent_FailsOpenOnReadError(t *testing.T) {
	ledger := NewMockAttemptLedger()
	ledger.failReads = true
	escalator, _ := newEscalator(ledger, formPolicy())

	result := escalator.RecordEvent(context.Background(), "fp-1")

	assert.False(t, result.Banned)
	assert.Equal(t, 0, result.FailedAttempts)
}

func TestEscalatorRecordEvent_FailsOpenOnWriteError(t *testing.T) {
	ledger := NewMockAttemptLedger()
	ledger.Seed(&models.AttemptRecord{
		Fingerprint:    "fp-1",
		FailedAttempts: 4,
		LastAttemptAt:  time.Now().Add(-1 * time.Minute),
	})
	ledger.failWrites = true
	escalator, _ := newEscalator(ledger, formPolicy())

	result := escalator.RecordEvent(context.Background(), "fp-1")

	assert.False(t, result.Banned)
	assert.Equal(t, 0, result.FailedAttempts)
}

func TestEscalatorReset_ClearsRecordAndCache(t *testing.T) {
	bannedAt := time.Now()
	bannedUntil := time.Now().Add(10 * time.Minute)
	ledger := NewMockAttemptLedger()
	ledger.Seed(&models.AttemptRecord{
		Fingerprint:    "fp-1",
		FailedAttempts: 5,
		LastAttemptAt:  bannedAt,
		IsBanned:       true,
		BannedAt:       &bannedAt,
		BannedUntil:    &bannedUntil,
	})
	escalator, cache := newEscalator(ledger, formPolicy())
	cache.Put("fp-1", services.CachedStatus{Banned: true, BannedUntil: &bannedUntil})

	err := escalator.Reset(context.Background(), "fp-1")
	require.NoError(t, err)

	rec := ledger.Record("fp-1")
	assert.Equal(t, 0, rec.FailedAttempts)
	assert.False(t, rec.IsBanned)

	_, ok := cache.Get("fp-1")
	assert.False(t, ok, "cache entry must be invalidated on reset")
}

func TestEscalator_EndToEndScenario(t *testing.T) {
	ledger := NewMockAttemptLedger()
	escalator, _ := newEscalator(ledger, formPolicy())
	ctx := context.Background()

	// Five rapid events: the fifth imposes the ban.
	var fifth services.EventResult
	for i := 0; i < 5; i++ {
		fifth = escalator.RecordEvent(ctx, "F1")
	}
	require.True(t, fifth.Banned)
	require.True(t, fifth.ShouldBan)
	require.NotNil(t, fifth.BannedUntil)

	// A sixth event while the ban is active changes nothing.
	sixth := escalator.RecordEvent(ctx, "F1")
	assert.True(t, sixth.Banned)
	assert.False(t, sixth.ShouldBan)
	assert.True(t, sixth.BannedUntil.Equal(*fifth.BannedUntil))

	// Rewind the clock: 20 minutes after the ban started the ban window
	// and the reset window have both elapsed.
	rec := ledger.Record("F1")
	past := time.Now().Add(-20 * time.Minute)
	expired := time.Now().Add(-5 * time.Minute)
	rec.LastAttemptAt = past
	rec.BannedAt = &past
	rec.BannedUntil = &expired

	seventh := escalator.RecordEvent(ctx, "F1")
	assert.False(t, seventh.Banned)
	assert.Equal(t, 1, seventh.FailedAttempts)
}

func TestEscalator_AuthPolicyUsesLongerBan(t *testing.T) {
	ledger := NewMockAttemptLedger()
	authPolicy := services.Policy{
		Threshold:   5,
		Window:      15 * time.Minute,
		BanDuration: 6 * time.Hour,
	}
	escalator, _ := newEscalator(ledger, authPolicy)
	ctx := context.Background()

	var result services.EventResult
	for i := 0; i < 5; i++ {
		result = escalator.RecordEvent(ctx, "fp-auth")
	}

	require.True(t, result.Banned)
	require.NotNil(t, result.BannedUntil)
	assert.WithinDuration(t, time.Now().Add(6*time.Hour), *result.BannedUntil, 2*time.Second)
}
