package identity

import (
	"context"
	"strings"
	"time"

	"github.com/cashflow/backend/internal/domain/shared"
	"golang.org/x/crypto/bcrypt"
)

// bcrypt cost for hashes produced by HashPassword
const bcryptCost = 12

// ErrUserNotFound is returned when no credentials exist for a username
var ErrUserNotFound = shared.NewDomainError("USER_NOT_FOUND", "User not found")

// User is a dashboard account as read from the credentials file
type User struct {
	Username     string
	Name         string
	Email        string
	PasswordHash string
}

// NormalizeUsername trims and lowercases a username
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// DisplayName returns Name, or the username when no name is set
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

// VerifyPassword verifies if the provided password matches
func (u *User) VerifyPassword(password string) bool {
	if u.PasswordHash == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}

// HashPassword hashes a plain password for the credentials file
func HashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", shared.NewDomainError("INVALID_PASSWORD", "Password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}
	return string(hash), nil
}

// UserRepository looks up accounts
type UserRepository interface {
	// FindByUsername returns ErrUserNotFound for unknown usernames
	FindByUsername(ctx context.Context, username string) (*User, error)
}

// LoginAttempts tracks consecutive login failures of one username
type LoginAttempts struct {
	Failures    int
	LastFailure time.Time
	LockedUntil time.Time
}

// IsLocked reports whether the account is locked at now
func (a *LoginAttempts) IsLocked(now time.Time) bool {
	return now.Before(a.LockedUntil)
}

// Expired reports whether the record no longer matters at now: it is not
// locked and its last failure is at least window old.
func (a *LoginAttempts) Expired(now time.Time, window time.Duration) bool {
	return !a.IsLocked(now) && now.Sub(a.LastFailure) >= window
}

// RecordFailure counts a failure and locks once max is reached.
// It returns true when this failure caused the lock.
func (a *LoginAttempts) RecordFailure(now time.Time, max int, lockFor time.Duration) bool {
	a.Failures++
	a.LastFailure = now
	if max > 0 && a.Failures >= max {
		a.Failures = 0
		a.LockedUntil = now.Add(lockFor)
		return true
	}
	return false
}
