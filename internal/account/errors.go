package account

import "errors"

var (
	ErrNotFound           = errors.New("account: not found")
	ErrAlreadyExists      = errors.New("account: already exists")
	ErrInvalidCredentials = errors.New("account: invalid credentials")
	ErrInvalidInput       = errors.New("account: invalid input")
)
