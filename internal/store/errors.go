package store

import "errors"

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrDuplicateKey   = errors.New("already exists")
	// ErrAmbiguousNaturalKey means more than one exam shares a natural key, which the
	// unique index should make impossible. Writing to either row would be a guess.
	ErrAmbiguousNaturalKey = errors.New("more than one exam matches natural key")
	// ErrRunNotRunning is returned when closing a run that is already terminal.
	ErrRunNotRunning = errors.New("run is not running")
)
