package toolset

import (
	"fmt"
	"regexp"
)

// toolNameRe enforces the {namespace}_{toolset}_{action} convention: three
// lowercase-with-underscore segments joined by single underscores.
var toolNameRe = regexp.MustCompile(`^[a-z][a-z0-9]*(_[a-z0-9]+)*_[a-z][a-z0-9]*(_[a-z0-9]+)*_[a-z][a-z0-9]*(_[a-z0-9]+)*$`)

// ToolName builds a tool's registered name and validates it against the
// naming convention.
func ToolName(namespace, toolsetName, action string) (string, error) {
	name := fmt.Sprintf("%s_%s_%s", namespace, toolsetName, action)
	if !toolNameRe.MatchString(name) {
		return "", fmt.Errorf("tool name %q does not follow the {namespace}_{toolset}_{action} convention", name)
	}
	return name, nil
}

// destructiveActions and idempotentActions back the static annotation
// table: which core operations count as destructive or safe-to-retry.
var (
	readOnlyActions = map[string]bool{
		"search_read": true, "read": true, "count": true, "fields_get": true,
		"name_get": true, "default_get": true, "list_models": true,
		"search": true, "get": true, "list": true,
	}
	destructiveActions = map[string]bool{
		"unlink": true, "delete": true, "remove": true, "cancel": true,
	}
	nonIdempotentActions = map[string]bool{
		"create": true, "execute": true, "run": true, "call": true,
	}
)

// ComputeAnnotation derives the MCP tool hints for one action from the
// static table: read ops are read-only, unlink-like ops are destructive,
// everything except explicitly non-idempotent actions is idempotent on
// retry, and every tool is open-world since the backend is an external
// system this bridge does not control.
func ComputeAnnotation(action string) Annotation {
	return Annotation{
		ReadOnlyHint:    readOnlyActions[action],
		DestructiveHint: destructiveActions[action],
		IdempotentHint:  !nonIdempotentActions[action] && !destructiveActions[action],
		OpenWorldHint:   true,
	}
}
