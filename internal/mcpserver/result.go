package mcpserver

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

// jsonResult marshals a handler's return value into a single text content
// block, matching the transport-agnostic JSON envelope every core tool
// returns regardless of what it computed.
func jsonResult(v interface{}) *mcp.CallToolResult {
	payload, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError("failed to encode tool result: " + err.Error())
	}
	return mcp.NewToolResultText(string(payload))
}
