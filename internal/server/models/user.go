package models

import "time"

// User is a registered account. PasswordHash is a bcrypt hash; the raw
// password is never stored or logged.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
