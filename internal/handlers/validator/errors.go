package validator

import (
	"fmt"
)

// ErrInvalidField lists the fields of a struct that failed validation.
type ErrInvalidField struct {
	error
	Fields []string
}

func NewErrInvalidField(fields []string, format string, args ...any) *ErrInvalidField {
	return &ErrInvalidField{error: fmt.Errorf(format, args...), Fields: fields}
}
