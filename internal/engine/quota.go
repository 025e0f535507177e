package engine

import (
	"errors"
	"fmt"
)

// QuotaEnforcer caps the number of effects one reaction batch may carry.
//
// Reactions run at depth one, which already guarantees termination; the
// quota bounds the width of that single level when many events fire in one
// turn.
type QuotaEnforcer struct {
	maxSteps int
	current  int
}

// NewQuotaEnforcer creates an enforcer allowing maxSteps effects.
func NewQuotaEnforcer(maxSteps int) *QuotaEnforcer {
	return &QuotaEnforcer{maxSteps: maxSteps}
}

// Check counts one more effect and returns StepsExceededError once the
// limit is passed.
func (q *QuotaEnforcer) Check(turnID string) error {
	q.current++
	if q.current > q.maxSteps {
		return &StepsExceededError{
			TurnID: turnID,
			Steps:  q.current,
			Limit:  q.maxSteps,
		}
	}
	return nil
}

// Reset resets the counter to 0.
func (q *QuotaEnforcer) Reset() {
	q.current = 0
}

// Current returns the current count.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// MaxSteps returns the limit.
func (q *QuotaEnforcer) MaxSteps() int {
	return q.maxSteps
}

// StepsExceededError reports that a reaction batch hit its effect limit.
// The engine drops the excess effects and logs this error; it is never
// returned from Apply.
type StepsExceededError struct {
	TurnID string
	Steps  int
	Limit  int
}

// Error implements the error interface.
func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("turn %s exceeded reaction effect limit: %d effects > %d limit",
		e.TurnID, e.Steps, e.Limit)
}

// IsStepsExceededError returns true if the error is a StepsExceededError.
// Uses errors.As to handle wrapped errors.
func IsStepsExceededError(err error) bool {
	var se *StepsExceededError
	return errors.As(err, &se)
}
