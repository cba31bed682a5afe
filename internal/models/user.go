package models

import "time"

// User is a platform account that can sign in through the public login
// endpoint. Profile management and roles live in the main platform; this
// service only needs enough to verify credentials.
type User struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Name         string    `db:"name"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}
