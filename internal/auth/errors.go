package auth

import "errors"

var (
	// ErrInvalidCredentials is returned when the password does not match the stored hash.
	ErrInvalidCredentials = errors.New("incorrect email or password")

	// ErrInvalidRole is returned for roles other than patient or doctor.
	ErrInvalidRole = errors.New("role must be patient or doctor")

	// ErrMissingFields is returned when email or password is blank.
	ErrMissingFields = errors.New("email and password are required")

	// ErrUserNotFound is returned when no user has the given email.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserExists is returned when registering an email twice.
	ErrUserExists = errors.New("user already exists")

	// ErrInvalidToken is returned for expired, malformed or badly signed tokens.
	ErrInvalidToken = errors.New("invalid token")

	// ErrSigningDisabled is returned when no signing secret is configured.
	ErrSigningDisabled = errors.New("token signing secret not configured")
)
