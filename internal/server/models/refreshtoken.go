package models

import "time"

// RefreshToken is the single live refresh token for a user. One row per
// user: a second login overwrites the previous token, which revokes the
// earlier session.
type RefreshToken struct {
	UserID    string
	Token     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
