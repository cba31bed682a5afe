package models

import "time"

// DeviceAttributes is the raw attribute set collected by the browser.
// Only the five canonical fields participate in the fingerprint; UserAgent
// and anything else the collector sends along are advisory and used for
// logging only.
type DeviceAttributes struct {
	Platform            string `json:"platform"`
	HardwareConcurrency int    `json:"hardware_concurrency"`
	ScreenResolution    string `json:"screen_resolution"`
	ColorDepth          int    `json:"color_depth"`
	MaxTouchPoints      int    `json:"max_touch_points"`
	UserAgent           string `json:"user_agent,omitempty"`
}

// AttemptRecord tracks abuse events for a single device fingerprint.
// One row per fingerprint; the fingerprint column is the unique key.
type AttemptRecord struct {
	Fingerprint    string     `db:"fingerprint"`
	FailedAttempts int        `db:"failed_attempts"`
	LastAttemptAt  time.Time  `db:"last_attempt_at"`
	IsBanned       bool       `db:"is_banned"`
	BannedAt       *time.Time `db:"banned_at"`
	BannedUntil    *time.Time `db:"banned_until"`
}

// BanActive reports whether the record carries a ban that is still in
// effect at the given instant. A record whose banned_until has passed is
// treated as unbanned by every reader; the next writer clears the fields.
func (r *AttemptRecord) BanActive(now time.Time) bool {
	return r.IsBanned && r.BannedUntil != nil && r.BannedUntil.After(now)
}

// BanExpired reports whether the record carries a ban whose window has
// already elapsed (the transient state collapsed to clean on next access).
func (r *AttemptRecord) BanExpired(now time.Time) bool {
	return r.IsBanned && (r.BannedUntil == nil || !r.BannedUntil.After(now))
}

// ClearBan resets the ban fields in place. The counter is left alone;
// callers that want a full reset zero FailedAttempts themselves.
func (r *AttemptRecord) ClearBan() {
	r.IsBanned = false
	r.BannedAt = nil
	r.BannedUntil = nil
}

// BanStatus is the payload returned to the client-side poller.
type BanStatus struct {
	IsBanned       bool       `json:"is_banned"`
	FailedAttempts int        `json:"failed_attempts"`
	LastAttemptAt  *time.Time `json:"last_attempt_at,omitempty"`
	BannedUntil    *time.Time `json:"banned_until,omitempty"`
}
