package persistence

import (
	"errors"
	"fmt"
)

// ErrAutomationNotFound indicates no automation exists for the given ID.
var ErrAutomationNotFound = errors.New("automation not found")

// AutomationError wraps store errors with the operation and record they
// concern.
type AutomationError struct {
	Op           string
	AutomationID string
	Err          error
}

func (e *AutomationError) Error() string {
	return fmt.Sprintf("%s failed for automation %s: %v", e.Op, e.AutomationID, e.Err)
}

func (e *AutomationError) Unwrap() error {
	return e.Err
}

func (e *AutomationError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewAutomationError creates a store error with context.
func NewAutomationError(op, automationID string, err error) *AutomationError {
	return &AutomationError{Op: op, AutomationID: automationID, Err: err}
}

// IsAutomationNotFound checks if an error indicates a missing automation.
func IsAutomationNotFound(err error) bool {
	return errors.Is(err, ErrAutomationNotFound)
}
