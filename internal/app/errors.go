package app

import "errors"

var (
	// ErrConflict is returned when registration hits an email or phone
	// that is already taken.
	ErrConflict = errors.New("email or phone number already registered")

	// ErrNotFound covers missing accounts, documents, and chats. Ownership
	// mismatches report it too so handlers never reveal another user's data.
	ErrNotFound = errors.New("not found")

	// ErrBadCredential is returned when the password does not match.
	ErrBadCredential = errors.New("incorrect password")

	// ErrUnverified is returned when logging in through a contact channel
	// that has not confirmed a verification code yet.
	ErrUnverified = errors.New("account not verified")

	// ErrInvalidCode covers wrong, expired, and absent verification codes.
	// Callers cannot distinguish which case occurred.
	ErrInvalidCode = errors.New("invalid or expired verification code")

	ErrAlreadyVerified = errors.New("already verified")

	// ErrSamePassword rejects a password reset that reuses the current password.
	ErrSamePassword = errors.New("new password must differ from the current password")

	// ErrCooldown is returned when a code was re-requested too soon.
	ErrCooldown = errors.New("a code was sent recently, try again later")

	ErrInvalidResetToken = errors.New("invalid or expired reset link")

	ErrRateLimited = errors.New("too many requests")

	// ErrValidation marks malformed input. Wrapped errors carry the field
	// detail for the client.
	ErrValidation = errors.New("invalid input")
)
