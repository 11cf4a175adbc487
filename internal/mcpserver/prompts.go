package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// RegisterPrompts advertises the explain_error prompt: given a structured
// error response a tool call returned, walk the caller through what the
// category means and what to try next.
func (h *Host) RegisterPrompts() {
	h.srv.AddPrompt(
		mcp.NewPrompt("explain_error",
			mcp.WithPromptDescription("Explain a structured tool error and suggest what to try next."),
			mcp.WithArgument("category", mcp.ArgumentDescription("The error's category field, e.g. validation, access, not_found, constraint, state, wizard, connection, rate_limit, configuration, unknown")),
			mcp.WithArgument("message", mcp.ArgumentDescription("The error's message field")),
		),
		h.handleExplainError,
	)
}

var categoryGuidance = map[string]string{
	"validation":    "The arguments sent to the tool didn't pass the backend's own field validation. Check field names and types against the model's odoo://model/{model}/fields resource before retrying.",
	"access":        "The Safety Gate or the backend's access control list denied the operation. Either the connected user lacks the permission, or the current safety mode doesn't allow this kind of call. Try a read-only tool instead, or ask the operator to widen the allowlist.",
	"not_found":     "The model, record, or method doesn't exist, or the record was deleted between calls. Re-run a search before retrying with a specific id.",
	"constraint":    "The backend rejected the write because it violates a model constraint (a SQL constraint, a Python constraint, or a unique index). Read the record's current state and adjust the values before retrying.",
	"state":         "The record's current state doesn't allow this operation, e.g. writing to a posted invoice. Check the model's odoo://model/{model}/states resource for the record's workflow.",
	"wizard":        "The wizard step failed or an unknown wizard action was requested. Re-run odoo_core_execute on the originating button first to obtain a fresh action dict.",
	"connection":    "The backend was unreachable or the session expired. This is usually transient; retrying after a short delay often succeeds once the Connection Manager reconnects.",
	"rate_limit":    "Too many calls were made in the current window. Wait for the retry_after duration in the error before calling again.",
	"configuration": "The bridge itself is misconfigured (missing credentials, bad URL, invalid safety mode). This requires operator intervention, not a different tool call.",
	"unknown":       "The backend fault didn't match any known pattern. The original_error field, if present, has the raw backend message for manual triage.",
}

func (h *Host) handleExplainError(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	category := req.Params.Arguments["category"]
	message := req.Params.Arguments["message"]

	guidance, ok := categoryGuidance[category]
	if !ok {
		guidance = categoryGuidance["unknown"]
	}

	text := fmt.Sprintf("Error category: %s\nMessage: %s\n\n%s", category, message, guidance)

	return &mcp.GetPromptResult{
		Description: "Guidance for a " + category + " error",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: text,
				},
			},
		},
	}, nil
}
