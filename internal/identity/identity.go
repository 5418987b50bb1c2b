package identity

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInvalidCredentials is returned on a failed sign-in. It does not
	// distinguish a missing account from a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrEmailInUse is returned when signing up with a taken email.
	ErrEmailInUse = errors.New("email already in use")

	// ErrAccountNotFound is returned when no account exists for an email.
	ErrAccountNotFound = errors.New("account not found")

	// ErrWeakPassword is returned when a password is shorter than six
	// characters.
	ErrWeakPassword = errors.New("password must be at least 6 characters")

	// ErrInvalidToken is returned for expired, revoked or malformed
	// session tokens.
	ErrInvalidToken = errors.New("invalid session token")

	// ErrInvalidResetToken is returned for unknown or expired password
	// reset tokens.
	ErrInvalidResetToken = errors.New("invalid password reset token")
)

// User is the signed-in identity visible to the storefront.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// Session is an authenticated session backed by a bearer token.
type Session struct {
	User      User      `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// StateEvent describes an auth state change.
type StateEvent struct {
	// SignedIn is true for sign-in and sign-up, false for sign-out.
	SignedIn bool
	User     User
}

// Provider is the identity service the storefront delegates to.
type Provider interface {
	// SignUp creates an account, sets the display name and returns a
	// fresh session.
	SignUp(ctx context.Context, email, password, displayName string) (*Session, error)

	// SignIn authenticates a credential and returns a fresh session.
	SignIn(ctx context.Context, email, password string) (*Session, error)

	// SignOut revokes the session token.
	SignOut(ctx context.Context, token string) error

	// CurrentUser resolves a session token to its user.
	CurrentUser(ctx context.Context, token string) (*User, error)

	// SendPasswordReset issues a reset token and mails it to the
	// account's email.
	SendPasswordReset(ctx context.Context, email string) error

	// ResetPassword consumes a reset token and sets a new password.
	ResetPassword(ctx context.Context, token, newPassword string) error

	// UpdateDisplayName changes the account's display name.
	UpdateDisplayName(ctx context.Context, userID, displayName string) error

	// OnStateChanged registers fn for auth state changes. The returned
	// cancel function removes the registration.
	OnStateChanged(fn func(StateEvent)) (cancel func())
}

// Mailer delivers password reset emails.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}
