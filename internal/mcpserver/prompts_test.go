package mcpserver

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleExplainError_KnownCategory(t *testing.T) {
	h := &Host{}
	req := mcp.GetPromptRequest{
		Params: mcp.GetPromptParams{
			Name:      "explain_error",
			Arguments: map[string]string{"category": "rate_limit", "message": "too many calls"},
		},
	}

	result, err := h.handleExplainError(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, result.Messages, 1)

	text, ok := result.Messages[0].Content.(mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "too many calls")
	assert.Contains(t, text.Text, "retry_after")
}

func TestHandleExplainError_UnknownCategoryFallsBackToUnknownGuidance(t *testing.T) {
	h := &Host{}
	req := mcp.GetPromptRequest{
		Params: mcp.GetPromptParams{
			Name:      "explain_error",
			Arguments: map[string]string{"category": "something_new", "message": "boom"},
		},
	}

	result, err := h.handleExplainError(context.Background(), req)
	require.NoError(t, err)

	text := result.Messages[0].Content.(mcp.TextContent)
	assert.Contains(t, text.Text, categoryGuidance["unknown"])
}
