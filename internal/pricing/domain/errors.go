package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface
func (e DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Common domain error codes
const (
	ErrCodeInvalidInput                    = "INVALID_INPUT"
	ErrCodeNotFound                        = "NOT_FOUND"
	ErrCodeConflict                        = "CONFLICT"
	ErrCodeInvalidState                    = "INVALID_STATE"
	ErrCodeBelowCostUnauthorized           = "BELOW_COST_UNAUTHORIZED"
	ErrCodeBelowCostInsufficientRecognition = "BELOW_COST_INSUFFICIENT_RECOGNITION"
	ErrCodeInternal                        = "INTERNAL_ERROR"
)

// Advisory reason strings surfaced on pricing results. Callers match on
// these verbatim, so they are fixed here rather than inlined.
const (
	ReasonNoActiveList            = "no active price list"
	ReasonItemNotPriced           = "item has no price in this list"
	ReasonBelowCostUnauthorized   = "price below last cost and not authorized"
	ReasonBelowCostNotRecognized  = "price below last cost without sufficient provider recognition"
	ReasonFinalBelowCost          = "final price below last cost and not authorized"
	ReasonFinalBelowCostWithRule  = "below cost without explicit authorization; provider recognition rule exists"
	ReasonManuallyAuthorized      = "manually authorized below cost"
)

// NewInvalidInputError creates a new invalid input error
func NewInvalidInputError(message, details string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidInput,
		Message: message,
		Details: details,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource, id string) *DomainError {
	return &DomainError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Details: fmt.Sprintf("ID: %s", id),
	}
}

// NewConflictError creates a new conflict error, e.g. for a uniqueness
// violation surfaced by the store.
func NewConflictError(resource, details string) *DomainError {
	return &DomainError{
		Code:    ErrCodeConflict,
		Message: fmt.Sprintf("%s already exists", resource),
		Details: details,
	}
}

// NewInvalidStateError creates a new invalid state error
func NewInvalidStateError(message, details string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidState,
		Message: message,
		Details: details,
	}
}

// NewBelowCostUnauthorizedError marks a base price under the item's last
// cost with no authorization and no supplier-discount rule on the list.
func NewBelowCostUnauthorizedError() *DomainError {
	return &DomainError{
		Code:    ErrCodeBelowCostUnauthorized,
		Message: ReasonBelowCostUnauthorized,
	}
}

// NewBelowCostInsufficientRecognitionError marks a base price under the
// item's last cost where supplier-discount rules exist but none covers the
// gap.
func NewBelowCostInsufficientRecognitionError() *DomainError {
	return &DomainError{
		Code:    ErrCodeBelowCostInsufficientRecognition,
		Message: ReasonBelowCostNotRecognized,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInternal,
		Message: message,
	}
}

// IsDomainError checks if an error is a domain error
func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

// GetDomainError extracts domain error from an error
func GetDomainError(err error) *DomainError {
	var de *DomainError
	if errors.As(err, &de) {
		return de
	}
	return nil
}

// IsConflict reports whether the error carries the CONFLICT code
func IsConflict(err error) bool {
	de := GetDomainError(err)
	return de != nil && de.Code == ErrCodeConflict
}
