package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrItemNotFound = errors.New("item not found")
)
