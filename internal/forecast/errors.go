package forecast

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyInput     = errors.New("forecast: no transactions")
	ErrInvalidHorizon = errors.New("forecast: invalid horizon")
	ErrUnavailable    = errors.New("forecast unavailable")
)

// HorizonError rejects a horizon outside 1..Max. Max of zero means no upper
// bound. It matches ErrInvalidHorizon with errors.Is.
type HorizonError struct {
	Horizon int
	Max     int
}

func (e *HorizonError) Error() string {
	if e.Max > 0 {
		return fmt.Sprintf("%s: got %d, allowed 1..%d", ErrInvalidHorizon, e.Horizon, e.Max)
	}
	return fmt.Sprintf("%s: got %d", ErrInvalidHorizon, e.Horizon)
}

func (e *HorizonError) Is(target error) bool {
	return target == ErrInvalidHorizon
}

// Message states the accepted range for display.
func (e *HorizonError) Message() string {
	if e.Max > 0 {
		return fmt.Sprintf("Forecast horizon must be between 1 and %d months", e.Max)
	}
	return "Forecast horizon must be a positive number of months"
}

// CheckHorizon returns a *HorizonError unless 1 <= horizon <= max. A max of
// zero leaves the horizon unbounded above.
func CheckHorizon(horizon, max int) error {
	if horizon <= 0 || (max > 0 && horizon > max) {
		return &HorizonError{Horizon: horizon, Max: max}
	}
	return nil
}

type Reason string

const (
	ReasonInsufficientHistory Reason = "insufficient_history"
	ReasonNonConvergence      Reason = "non_convergence"
	ReasonNumerical           Reason = "numerical"
)

// UnavailableError reports that no forecast could be produced for otherwise valid
// input. It matches ErrUnavailable with errors.Is.
type UnavailableError struct {
	Reason Reason
	Cause  error
}

func (e *UnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %v", ErrUnavailable, e.Reason, e.Cause)
	}
	return fmt.Sprintf("%s (%s)", ErrUnavailable, e.Reason)
}

func (e *UnavailableError) Unwrap() error {
	return e.Cause
}

func (e *UnavailableError) Is(target error) bool {
	return target == ErrUnavailable
}

// Message is a short human-readable explanation suitable for display.
func (e *UnavailableError) Message() string {
	switch e.Reason {
	case ReasonInsufficientHistory:
		return "Not enough monthly history to forecast"
	case ReasonNonConvergence:
		return "Forecast model did not converge"
	default:
		return "Forecast could not be computed"
	}
}

// AsUnavailable extracts the *UnavailableError from err, if any.
func AsUnavailable(err error) (*UnavailableError, bool) {
	var ue *UnavailableError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}

func unavailable(reason Reason, cause error) *UnavailableError {
	return &UnavailableError{Reason: reason, Cause: cause}
}
