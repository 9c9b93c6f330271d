package domain

import "errors"

// Authentication failures. All of these surface to clients as the same
// generic 401; the distinction exists for logs and tests only.
var (
	ErrMissingToken         = errors.New("no session token provided")
	ErrInvalidToken         = errors.New("session token is invalid")
	ErrTokenExpired         = errors.New("session token has expired")
	ErrPasswordChangedSince = errors.New("password changed after token was issued")
	ErrUserNotFound         = errors.New("user no longer exists")
	ErrInvalidCredentials   = errors.New("incorrect email or password")
)

// Authorization failure, only reachable after successful authentication.
var ErrForbidden = errors.New("you do not have permission to perform this action")

// Validation failures, safe to surface with field-level detail.
var (
	ErrValidation       = errors.New("validation failed")
	ErrWeakPassword     = errors.New("password too weak")
	ErrPasswordMismatch = errors.New("password mismatch")
	ErrDuplicateEmail   = errors.New("email already in use")
)

// ErrResetTokenInvalid deliberately covers not-found, expired and
// already-consumed reset tokens so a caller cannot probe which it was.
var ErrResetTokenInvalid = errors.New("reset token is invalid or has expired")

// ErrDeliveryFailed means the out-of-band notification could not be sent;
// any reset state written beforehand has been rolled back.
var ErrDeliveryFailed = errors.New("there was an error sending the email, try again later")

// IsAuthenticationError reports whether err belongs to the family that must
// collapse to a uniform 401 response.
func IsAuthenticationError(err error) bool {
	return errors.Is(err, ErrMissingToken) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrPasswordChangedSince) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrInvalidCredentials)
}

// IsValidationError reports whether err is safe to echo back with detail.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrWeakPassword) ||
		errors.Is(err, ErrPasswordMismatch) ||
		errors.Is(err, ErrDuplicateEmail)
}
