package services

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated means no valid session; the caller should sign in.
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrNotFound        = errors.New("not found")
	// ErrInvalidState is returned when confirming anything but a pending enrollment.
	ErrInvalidState = errors.New("invalid enrollment state")
	// ErrPaymentFailed leaves the enrollment pending; the payment may be retried.
	ErrPaymentFailed = errors.New("payment failed")
)

// Outcome tags every result of the enrollment API so the caller can pick the
// next step: pay, resume, view content or sign in.
type Outcome string

const (
	OutcomeCreated         Outcome = "created"
	OutcomeAlreadyExists   Outcome = "already_exists"
	OutcomeCompleted       Outcome = "completed"
	OutcomeInvalidState    Outcome = "invalid_state"
	OutcomePaymentFailed   Outcome = "payment_failed"
	OutcomeNotFound        Outcome = "not_found"
	OutcomeUnauthenticated Outcome = "unauthenticated"
	OutcomeInternal        Outcome = "internal"
)

const (
	ReasonNotInitiated      = "not_initiated"
	ReasonAlreadyCompleted  = "already_completed"
	ReasonPaymentInProgress = "payment_in_progress"

	ReasonDeclined         = "declined"
	ReasonAmountMismatch   = "amount_mismatch"
	ReasonCourseMismatch   = "course_mismatch"
	ReasonProcessorFailure = "processor_failure"
)

// StateError explains an ErrInvalidState.
type StateError struct {
	Reason string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidState, e.Reason)
}

func (e *StateError) Unwrap() error {
	return ErrInvalidState
}

// PaymentError explains an ErrPaymentFailed.
type PaymentError struct {
	Reason string
	Detail string
}

func (e *PaymentError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", ErrPaymentFailed, e.Reason)
	}
	return fmt.Sprintf("%s: %s (%s)", ErrPaymentFailed, e.Reason, e.Detail)
}

func (e *PaymentError) Unwrap() error {
	return ErrPaymentFailed
}

// OutcomeOf maps an error returned by this package to its outcome tag.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthenticated):
		return OutcomeUnauthenticated
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrInvalidState):
		return OutcomeInvalidState
	case errors.Is(err, ErrPaymentFailed):
		return OutcomePaymentFailed
	default:
		return OutcomeInternal
	}
}

// ReasonOf returns the reason carried by a StateError or PaymentError.
func ReasonOf(err error) string {
	var stateErr *StateError
	if errors.As(err, &stateErr) {
		return stateErr.Reason
	}
	var payErr *PaymentError
	if errors.As(err, &payErr) {
		return payErr.Reason
	}
	return ""
}
