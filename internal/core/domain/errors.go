package domain

import "errors"

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrEmailTaken = errors.New("email already exists")
	ErrInternal   = errors.New("internal server error")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenInvalid       = errors.New("token invalid")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenReused        = errors.New("refresh token reused")
	ErrRateLimited        = errors.New("too many attempts")

	ErrHashing      = errors.New("password hashing failed")
	ErrVerification = errors.New("password hash malformed")
)

// IsAuthError reports whether err must be answered with 401.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrTokenInvalid) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenReused)
}
