package mcpserver

import (
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONResult_MarshalsValue(t *testing.T) {
	result := jsonResult(map[string]interface{}{"id": float64(4), "name": "Acme"})
	require.False(t, result.IsError)
	require.Len(t, result.Content, 1)

	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "Acme")
}

func TestJSONResult_UnmarshalableValueReturnsError(t *testing.T) {
	result := jsonResult(make(chan int))
	assert.True(t, result.IsError)
}
