package repository

import "errors"

// ErrNotFound is returned when a read model row does not exist
var ErrNotFound = errors.New("record not found")
