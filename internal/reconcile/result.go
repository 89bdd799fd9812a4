package reconcile

import (
	"encoding/json"
	"fmt"
	"strings"

	api "github.com/apc-foundation/exam-pipeline/api/v1alpha1"
)

type ErrorKind string

const (
	ErrorKindValidation ErrorKind = "validation"
	ErrorKindStorage    ErrorKind = "storage"
)

// ErrorDetail explains why one record of a batch was not written. Record holds a short
// excerpt of the input when the record has no usable name.
type ErrorDetail struct {
	ExamName string    `json:"exam_name"`
	Kind     ErrorKind `json:"kind"`
	Reason   string    `json:"reason"`
	Record   string    `json:"record,omitempty"`
}

func (e ErrorDetail) String() string {
	if e.Kind == ErrorKindValidation {
		if e.ExamName == "" {
			return fmt.Sprintf("Skipped exam %s: %s", e.Record, e.Reason)
		}
		return fmt.Sprintf("Skipped exam %q: %s", e.ExamName, e.Reason)
	}
	return fmt.Sprintf("Write failed for %q: %s", e.ExamName, e.Reason)
}

type Result struct {
	New     int
	Updated int
	Errors  []ErrorDetail
}

// Succeeded is the number of records written.
func (r Result) Succeeded() int {
	return r.New + r.Updated
}

// Processed is the number of records accounted for, written or failed.
func (r Result) Processed() int {
	return r.Succeeded() + len(r.Errors)
}

// ErrorLog joins the error details one per line, or returns nil when there are none.
func (r Result) ErrorLog() *string {
	if len(r.Errors) == 0 {
		return nil
	}
	lines := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		lines = append(lines, e.String())
	}
	log := strings.Join(lines, "\n")
	return &log
}

const maxExcerpt = 100

func newValidationError(record api.ExamRecord, err error) ErrorDetail {
	detail := ErrorDetail{
		ExamName: strings.TrimSpace(record.ExamName),
		Kind:     ErrorKindValidation,
		Reason:   err.Error(),
	}
	if detail.ExamName == "" {
		raw, _ := json.Marshal(record)
		if len(raw) > maxExcerpt {
			raw = raw[:maxExcerpt]
		}
		detail.Record = string(raw)
	}
	return detail
}

func newStorageError(examName string, err error) ErrorDetail {
	return ErrorDetail{
		ExamName: examName,
		Kind:     ErrorKindStorage,
		Reason:   err.Error(),
	}
}
