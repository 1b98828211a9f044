package models

import (
	"strings"
	"time"

	"github.com/badoux/checkmail"
)

// Identity is an authenticated user as seen by the core.
type Identity struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
}

// Account is the identity provider's record of a registered user.
type Account struct {
	UID          string    `json:"uid"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"displayName"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (a *Account) Identity() *Identity {
	return &Identity{UID: a.UID, Email: a.Email, DisplayName: a.DisplayName}
}

// NormalizeEmail trims and lower-cases an address. Emails are always compared
// in this form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether email is syntactically valid.
func ValidEmail(email string) bool {
	return checkmail.ValidateFormat(email) == nil
}

// DefaultDisplayName is the local part of email.
func DefaultDisplayName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}
