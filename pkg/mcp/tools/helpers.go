package tools

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// jsonResult marshals a payload into a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// optionalString reads a string parameter, returning nil when absent or empty
// so it maps onto nullable columns.
func optionalString(req mcp.CallToolRequest, name string) *string {
	s := req.GetString(name, "")
	if s == "" {
		return nil
	}
	return &s
}
