package store

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyResolved = errors.New("reschedule request already resolved")
)
