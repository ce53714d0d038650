package app

import "errors"

// Error taxonomy surfaced to the transport layer. Handlers map these to
// HTTP statuses; anything unrecognized (including repository.ErrStorage)
// becomes an internal error.
var (
	// Validation: malformed input or references to unknown entities.
	ErrInvalidInput = errors.New("invalid input")
	ErrUserUnknown  = errors.New("user is unknown")

	// Authorization: the caller does not own the resource and is not admin.
	ErrNotOwner = errors.New("resource is owned by another user")

	// Not found.
	ErrSessionNotFound    = errors.New("chat session not found")
	ErrQuizNotFound       = errors.New("quiz session not found")
	ErrShareTokenNotFound = errors.New("share token not found")

	// State: illegal transitions on quiz sessions.
	ErrQuizNotInProgress = errors.New("quiz session is not in progress")
	ErrQuizIncomplete    = errors.New("quiz has unanswered questions")

	// Auth collaborator errors, kept with the same semantics as before.
	ErrUsernameExists    = errors.New("username already exists")
	ErrEmailExists       = errors.New("email already exists")
	ErrInvalidCredential = errors.New("invalid username or password")
)
