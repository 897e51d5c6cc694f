package users

import "errors"

var (
	ErrMissingEmail = errors.New("email is required")
	ErrUserNotFound = errors.New("user not found")
)
