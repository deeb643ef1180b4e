package models

import (
	"time"
)

// User is an identity which can sign in with an email and password.
// Being a user does not grant access to the admin API, see Admin.
type User struct {
	// ID uniquely identifies the user
	ID string `json:"id" bson:"_id"`

	// Email is used to sign in, stored lower case
	Email string `json:"email" bson:"email" validate:"required,email"`

	// PasswordHash is the bcrypt hash of the user's password
	PasswordHash string `json:"-" bson:"password_hash" validate:"required"`

	// CreatedAt is when the user was created
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// Admin is an entry in the admins allow-list. The ID is the ID of the User
// which is allowed to use the admin API.
type Admin struct {
	// ID of the User
	ID string `json:"id" bson:"_id"`

	// Username is displayed in the admin panel
	Username string `json:"username" bson:"username" validate:"required"`

	// CreatedAt is when the user was granted admin access
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// Session is a signed in user. The token handed to the client is never
// stored, only its hash.
type Session struct {
	// TokenHash is the hex encoded SHA-256 hash of the session token
	TokenHash string `bson:"_id"`

	// UserID is the user who owns the session
	UserID string `bson:"user_id"`

	// CreatedAt is when the user signed in
	CreatedAt time.Time `bson:"created_at"`

	// ExpiresAt is when the session stops being valid. Pushed back each time
	// the session is used.
	ExpiresAt time.Time `bson:"expires_at"`
}

// Expired returns true if the session is no longer valid at time now
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
