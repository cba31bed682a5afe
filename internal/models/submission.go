package models

import "time"

// ContactSubmission is a message left through the public contact form.
type ContactSubmission struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Email       string    `db:"email"`
	Message     string    `db:"message"`
	Fingerprint string    `db:"fingerprint"`
	IPAddress   string    `db:"ip_address"`
	CreatedAt   time.Time `db:"created_at"`
}

// ReferralSubmission is a referral left through the public referral form.
type ReferralSubmission struct {
	ID            string    `db:"id"`
	ReferrerName  string    `db:"referrer_name"`
	ReferrerEmail string    `db:"referrer_email"`
	CandidateName string    `db:"candidate_name"`
	CandidateInfo string    `db:"candidate_info"`
	Fingerprint   string    `db:"fingerprint"`
	IPAddress     string    `db:"ip_address"`
	CreatedAt     time.Time `db:"created_at"`
}

// MemberSubmission is a contact request addressed to a directory member.
type MemberSubmission struct {
	ID          string    `db:"id"`
	MemberID    string    `db:"member_id"`
	Name        string    `db:"name"`
	Email       string    `db:"email"`
	Message     string    `db:"message"`
	Interests   []string  `db:"interests"`
	Fingerprint string    `db:"fingerprint"`
	IPAddress   string    `db:"ip_address"`
	CreatedAt   time.Time `db:"created_at"`
}
