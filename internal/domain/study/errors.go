package study

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingInput       = errors.New("missing study input")
	ErrMalformedDate      = errors.New("malformed date")
	ErrDuplicateDiagnosis = errors.New("duplicate screening diagnosis")
	ErrInvalidPolicy      = errors.New("invalid conflict policy")
)

// MissingInputError reports study files that are neither present locally
// nor obtainable from the downloader.
type MissingInputError struct {
	Dir   string
	Files []string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("study files unavailable in %s: %s", e.Dir, strings.Join(e.Files, ", "))
}

func (e *MissingInputError) Unwrap() error { return ErrMissingInput }

// MalformedDateError reports a date field that could not be parsed.
type MalformedDateError struct {
	Column    string
	PatientID string
	EventID   string
	Value     string
	Err       error
}

func (e *MalformedDateError) Error() string {
	return fmt.Sprintf("%s %q for PATNO=%s EVENT_ID=%s: %v", e.Column, e.Value, e.PatientID, e.EventID, e.Err)
}

func (e *MalformedDateError) Is(target error) bool { return target == ErrMalformedDate }

func (e *MalformedDateError) Unwrap() error { return e.Err }

// DuplicateDiagnosisError is returned under the Reject policy.
type DuplicateDiagnosisError struct {
	PatientID string
	Dates     []string
}

func (e *DuplicateDiagnosisError) Error() string {
	return fmt.Sprintf("PATNO=%s has %d screening diagnosis dates: %s",
		e.PatientID, len(e.Dates), strings.Join(e.Dates, ", "))
}

func (e *DuplicateDiagnosisError) Unwrap() error { return ErrDuplicateDiagnosis }

type PolicyError struct {
	Value string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("invalid conflict policy %q (expected %q, %q or %q)", e.Value, KeepLast, KeepFirst, Reject)
}

func (e *PolicyError) Unwrap() error { return ErrInvalidPolicy }
