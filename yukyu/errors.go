/*
errors.go - Centralized error types for the engine

PURPOSE:
  All engine error types in one place. The approval gate returns typed
  errors with stable string codes so callers can render a specific
  message instead of a generic failure; nothing in this package panics
  or treats bad data on one employee as fatal for the rest.

ERROR CATEGORIES:
  1. Approval rejections - typed, coded, returned (never thrown)
  2. Data-absence conditions - NOT errors: empty results by design

USAGE:
  var apprErr *yukyu.ApprovalError
  if errors.As(err, &apprErr) {
      switch apprErr.Code {
      case yukyu.CodeInsufficientBalance: ...
      }
  }
*/
package yukyu

import (
	"errors"
	"fmt"
)

// =============================================================================
// APPROVAL ERROR CODES - Stable, rendered by callers
// =============================================================================

const (
	CodeEmployeeNotFound    = "EMPLOYEE_NOT_FOUND"
	CodeEmployeeRetired     = "EMPLOYEE_RETIRED"
	CodeInvalidDate         = "INVALID_DATE"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodeDuplicateDate       = "DUPLICATE_DATE"
	CodeNotPending          = "NOT_PENDING"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrApprovalRejected is the common ancestor of every approval gate
	// failure; use errors.As with *ApprovalError for the code.
	ErrApprovalRejected = errors.New("approval rejected")

	// ErrRecordNotFound is returned by stores when a leave record id is
	// unknown.
	ErrRecordNotFound = errors.New("leave record not found")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ApprovalError is a single gate failure with a stable code and a
// human-readable reason.
type ApprovalError struct {
	Code     string
	RecordID string
	Reason   string
}

func (e *ApprovalError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Reason)
}

func (e *ApprovalError) Unwrap() error { return ErrApprovalRejected }

// ApprovalCode extracts the stable code from an approval gate error,
// or "" when the error is not a gate rejection.
func ApprovalCode(err error) string {
	var apprErr *ApprovalError
	if errors.As(err, &apprErr) {
		return apprErr.Code
	}
	return ""
}
