package domain

import (
	"strings"
	"time"
)

// User is one account. Email is stored trimmed and lower-cased.
// A user always has a password digest, an external id, or both.
type User struct {
	UserID         string    `json:"id" dynamodbav:"user_id"`
	Email          string    `json:"email" dynamodbav:"email"`
	PasswordDigest string    `json:"-" dynamodbav:"password_digest,omitempty"`
	ExternalID     string    `json:"-" dynamodbav:"external_id,omitempty"`
	Verified       bool      `json:"verified" dynamodbav:"verified"`
	CreatedAt      time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt      time.Time `json:"updated" dynamodbav:"updated_at"`
}

// HasPassword reports whether the account can sign in with a password.
func (u *User) HasPassword() bool { return u.PasswordDigest != "" }

// Public returns the view of the user that is safe to hand to clients.
func (u *User) Public() *PublicUser {
	return &PublicUser{ID: u.UserID, Email: u.Email, Verified: u.Verified}
}

// PublicUser is the outward user view attached to every session.
type PublicUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Verified bool   `json:"isVerified"`
}

// UserPatch describes a partial user update. Verification can only be
// granted, never revoked.
type UserPatch struct {
	MarkVerified bool
	ExternalID   *string
}

// IsEmpty reports whether the patch changes nothing.
func (p UserPatch) IsEmpty() bool { return !p.MarkVerified && p.ExternalID == nil }

// Apply mutates u in place and bumps UpdatedAt.
func (p UserPatch) Apply(u *User, now time.Time) {
	if p.MarkVerified {
		u.Verified = true
	}
	if p.ExternalID != nil {
		u.ExternalID = *p.ExternalID
	}
	u.UpdatedAt = now
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
