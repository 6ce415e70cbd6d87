// Package apperrors defines the sentinel errors shared across the engine.
//
// Validation errors (Duplicate*, Unknown*, Invalid*, TypeMismatch,
// EndpointTypeMismatch) are raised synchronously from write paths and always
// leave the store untouched; the surrounding transaction is rolled back.
// ErrNotFound is a normal outcome of lookups and materialization, not a fault.
// ErrStoreUnavailable wraps connection and transaction failures and is
// surfaced as-is; the engine performs no automatic retry.
package apperrors

import "errors"

var (
	ErrNotFound                 = errors.New("not found")
	ErrDuplicateName            = errors.New("name already defined")
	ErrDuplicateKey             = errors.New("attribute key already defined for type")
	ErrDuplicateTraitAssignment = errors.New("trait already assigned")
	ErrDuplicateValue           = errors.New("identical attribute value already stored")
	ErrUnknownType              = errors.New("unknown model type")
	ErrUnknownAttributeKey      = errors.New("attribute key not declared for model's type composition")
	ErrInvalidBaseType          = errors.New("model type is not a base type")
	ErrInvalidTraitType         = errors.New("model type is not a trait type")
	ErrTypeMismatch             = errors.New("value does not match declared value type")
	ErrEndpointTypeMismatch     = errors.New("relation endpoints do not match relationship type")
	ErrStoreUnavailable         = errors.New("store unavailable")
)
