package store

import "errors"

var (
	// ErrInvalidCredentials indicates that no user matched the email or
	// the password check failed.
	ErrInvalidCredentials = errors.New("store: invalid credentials")
	// ErrDuplicateEmail indicates the email is already registered.
	ErrDuplicateEmail = errors.New("store: email already registered")
	// ErrDuplicateApplication indicates the (practice, user) pair already
	// has an application.
	ErrDuplicateApplication = errors.New("store: application already exists")
	// ErrNotFound indicates a referenced entity id does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrForbidden indicates the caller lacks ownership or admin rights.
	ErrForbidden = errors.New("store: forbidden")
	// ErrInvalidState indicates the operation violates a lifecycle
	// invariant, such as deleting an accepted application.
	ErrInvalidState = errors.New("store: invalid state")
	// ErrValidation indicates malformed input at entity creation time.
	ErrValidation = errors.New("store: validation failed")
)
