package wizard

import (
	"fmt"

	"github.com/tombee/odoo-mcp-bridge/internal/classify"
)

func wizardDepthExceeded(depth int) *classify.Response {
	return &classify.Response{
		Error: true, Category: classify.CategoryWizard, Code: "WIZARD_CHAIN_TOO_DEEP",
		Message:    fmt.Sprintf("wizard chain exceeded the maximum depth of %d", MaxChainDepth),
		Suggestion: "the backend action may be looping; inspect it manually rather than chaining further",
		Retry:      false,
	}
}

func invalidWizardAction() *classify.Response {
	return &classify.Response{
		Error: true, Category: classify.CategoryWizard, Code: "INVALID_WIZARD_ACTION",
		Message: "action is missing res_model and cannot be treated as a wizard",
		Retry:   false,
	}
}
