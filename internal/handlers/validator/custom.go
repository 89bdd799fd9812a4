package validator

import (
	"strings"

	"github.com/apc-foundation/exam-pipeline/internal/lifecycle"
	"github.com/go-playground/validator/v10"
)

func requiredTrimmedValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	return strings.TrimSpace(val) != ""
}

// examDateValidator accepts what lifecycle.ParseDate accepts. Pointer fields arrive
// dereferenced, so a nil date never reaches it when paired with omitempty.
func examDateValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	_, err := lifecycle.ParseDate(val)
	return err == nil
}
