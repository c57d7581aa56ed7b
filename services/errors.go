// services/errors.go - sentinel errors shared by the service layer.
//
// Handlers map these onto HTTP statuses; anything not in this list is treated
// as an infrastructure failure and surfaced as a generic 500.
package services

import "errors"

var (
	ErrNotFound           = errors.New("record not found")
	ErrDuplicate          = errors.New("record already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserBanned         = errors.New("account is banned")
	ErrValidation         = errors.New("validation failed")
)
