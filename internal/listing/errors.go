package listing

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFoundOrDenied covers both a missing listing and one owned by someone else
	ErrNotFoundOrDenied = errors.New("listing not found or access denied")
	// ErrUnauthenticated is returned when no user id accompanies a write
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrInvalidInput is wrapped with the offending field
	ErrInvalidInput = errors.New("invalid input")
	// ErrVerticalMismatch is returned when an update targets a listing of another vertical
	ErrVerticalMismatch = errors.New("listing belongs to a different vertical")
	// ErrVerticalNotRegistered means the registry has no row for the vertical
	ErrVerticalNotRegistered = errors.New("vertical not registered")
)

// QuotaKind distinguishes the two plan ceilings
type QuotaKind string

const (
	QuotaCreate  QuotaKind = "create_limit_exceeded"
	QuotaPublish QuotaKind = "publish_limit_exceeded"
)

// QuotaError reports a write rejected by the owner's plan
type QuotaError struct {
	Kind QuotaKind
	Max  int
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%s:%d", e.Kind, e.Max)
}

// StepError names the upsert step whose persistence call failed
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("upsert listing: %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

func stepErr(step string, err error) error {
	if err == nil {
		return nil
	}
	return &StepError{Step: step, Err: err}
}

// AsQuotaError extracts a *QuotaError from err
func AsQuotaError(err error) (*QuotaError, bool) {
	var qe *QuotaError
	if errors.As(err, &qe) {
		return qe, true
	}
	return nil, false
}
