package store

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrEmpty    = errors.New("empty snapshot")
)
