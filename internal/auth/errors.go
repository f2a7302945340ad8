package auth

import "errors"

var (
	ErrInvalidToken    = errors.New("auth: invalid token")
	ErrMissingSecret   = errors.New("auth: signing secret is not configured")
	ErrEmptyPassword   = errors.New("auth: password is empty")
	ErrPasswordTooLong = errors.New("auth: password exceeds 72 bytes")
)
