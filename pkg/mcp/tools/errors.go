// Package tools provides the MCP tool surface over the graph-document store.
package tools

import (
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/pkmgraph/pkm-engine/pkg/apperrors"
)

// ErrorResponse is the structured error payload returned inside a tool
// result, so agents see actionable details instead of an opaque protocol
// failure.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// NewErrorResult creates a tool result containing a structured error. Use
// this for recoverable errors the caller can fix and retry (unknown ids,
// duplicate names, type mismatches). System failures should still be returned
// as Go errors.
func NewErrorResult(code, message string) *mcp.CallToolResult {
	resp := ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
	}
	jsonBytes, _ := json.Marshal(resp)
	result := mcp.NewToolResultText(string(jsonBytes))
	result.IsError = true
	return result
}

// domainErrorCodes maps the engine's sentinel errors to stable tool error
// codes. Anything not listed here is treated as a system failure.
var domainErrorCodes = []struct {
	sentinel error
	code     string
}{
	{apperrors.ErrNotFound, "not_found"},
	{apperrors.ErrDuplicateName, "duplicate_name"},
	{apperrors.ErrDuplicateKey, "duplicate_key"},
	{apperrors.ErrDuplicateTraitAssignment, "duplicate_trait_assignment"},
	{apperrors.ErrDuplicateValue, "duplicate_value"},
	{apperrors.ErrUnknownType, "unknown_type"},
	{apperrors.ErrUnknownAttributeKey, "unknown_attribute_key"},
	{apperrors.ErrInvalidBaseType, "invalid_base_type"},
	{apperrors.ErrInvalidTraitType, "invalid_trait_type"},
	{apperrors.ErrTypeMismatch, "type_mismatch"},
	{apperrors.ErrEndpointTypeMismatch, "endpoint_type_mismatch"},
}

// DomainErrorCode returns the tool error code for a domain error, or empty
// string for system failures.
func DomainErrorCode(err error) string {
	for _, entry := range domainErrorCodes {
		if errors.Is(err, entry.sentinel) {
			return entry.code
		}
	}
	return ""
}

// resultForError converts a service error into either a structured tool
// result (domain errors) or a protocol error (system failures).
func resultForError(err error) (*mcp.CallToolResult, error) {
	if code := DomainErrorCode(err); code != "" {
		return NewErrorResult(code, err.Error()), nil
	}
	return nil, err
}
