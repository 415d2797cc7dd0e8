// Package storage holds the journal store implementations and the errors
// they share.
package storage

import "errors"

var (
	ErrOperationNotFound  = errors.New("storage: operation not found")
	ErrDuplicateOperation = errors.New("storage: duplicate operation")
)
