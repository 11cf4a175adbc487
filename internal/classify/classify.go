// Package classify implements the Error Classifier: an ordered pattern
// database that turns a raw backend RpcFault into a structured
// ErrorResponse a tool caller can act on without seeing a traceback.
package classify

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tombee/odoo-mcp-bridge/internal/rpcerr"
)

// Category is one of the ten error categories the specification defines.
type Category string

const (
	CategoryValidation    Category = "validation"
	CategoryAccess        Category = "access"
	CategoryNotFound      Category = "not_found"
	CategoryConstraint    Category = "constraint"
	CategoryState         Category = "state"
	CategoryWizard        Category = "wizard"
	CategoryConnection    Category = "connection"
	CategoryRateLimit     Category = "rate_limit"
	CategoryConfiguration Category = "configuration"
	CategoryUnknown       Category = "unknown"
)

// retryableCategories mirrors the specification's retry table.
var retryableCategories = map[Category]bool{
	CategoryValidation: true,
	CategoryNotFound:   true,
	CategoryConstraint: true,
	CategoryState:      true,
	CategoryWizard:     true,
	CategoryConnection: true,
	CategoryRateLimit:  true,
}

// retryAfterCategories carry a retry_after hint in seconds.
var retryAfterCategories = map[Category]int{
	CategoryConnection: 5,
	CategoryRateLimit:  30,
}

// Response is the structured ErrorResponse returned to MCP tool callers via
// a tool-result envelope with isError=true. The full traceback never leaves
// this struct's OriginalError field, which callers must not forward.
type Response struct {
	Error         bool                   `json:"error"`
	Category      Category               `json:"category"`
	Code          string                 `json:"code"`
	Message       string                 `json:"message"`
	Suggestion    string                 `json:"suggestion,omitempty"`
	Retry         bool                   `json:"retry"`
	RetryAfter    int                    `json:"retry_after,omitempty"`
	Details       map[string]interface{} `json:"details,omitempty"`
	OriginalError string                 `json:"original_error,omitempty"`
}

// Pattern is one entry in the ordered classification table.
type Pattern struct {
	ID                 string
	Regex              *regexp.Regexp
	ErrorClass         string // optional filter; empty means "any"
	Category           Category
	Code               string
	MessageTemplate    string
	SuggestionTemplate string
	// Extract names the regex's named capture groups to surface in the
	// response's Details map, e.g. a "field" group naming the offending
	// field on a required-field validation failure.
	Extract []string
}

// Classifier holds the ordered pattern list consulted for every fault.
type Classifier struct {
	patterns []Pattern
}

// New builds a Classifier from the default pattern database plus any
// caller-supplied extensions, which are consulted after the defaults.
func New(extra ...Pattern) *Classifier {
	return &Classifier{patterns: append(append([]Pattern{}, defaultPatterns()...), extra...)}
}

// Classify implements the matching algorithm: error_class filtering, then
// first-regex-match-wins among the remaining candidates, then placeholder
// substitution, falling back to category=unknown/retry=false on no match.
func (c *Classifier) Classify(fault *rpcerr.Fault, model, method string) *Response {
	if fault == nil {
		return c.fallback("", model, method)
	}

	haystack := fault.Message
	if fault.Traceback != "" {
		haystack = fault.Traceback
	}

	for _, p := range c.patterns {
		if p.ErrorClass != "" && fault.ErrorClass != "" && p.ErrorClass != fault.ErrorClass {
			continue
		}
		m := p.Regex.FindStringSubmatch(haystack)
		if m == nil {
			continue
		}
		groups := namedGroups(p.Regex, m)
		groups["model"] = model
		groups["method"] = method
		groups["message"] = fault.Message

		resp := &Response{
			Error:      true,
			Category:   p.Category,
			Code:       p.Code,
			Message:    fillTemplate(p.MessageTemplate, groups),
			Suggestion: fillTemplate(p.SuggestionTemplate, groups),
			Retry:      retryableCategories[p.Category],
		}
		if secs, ok := retryAfterCategories[p.Category]; ok {
			resp.RetryAfter = secs
		}
		if len(p.Extract) > 0 {
			details := make(map[string]interface{}, len(p.Extract))
			for _, name := range p.Extract {
				if v, ok := groups[name]; ok && v != "" {
					details[name] = v
				}
			}
			if len(details) > 0 {
				resp.Details = details
			}
		}
		if fault.Traceback != "" {
			resp.OriginalError = fault.Traceback
		}
		return resp
	}

	resp := c.fallback(fault.Message, model, method)
	if fault.Traceback != "" {
		resp.OriginalError = fault.Traceback
	}
	return resp
}

func (c *Classifier) fallback(message, model, method string) *Response {
	if message == "" {
		message = fmt.Sprintf("an unrecognized error occurred calling %s.%s", model, method)
	}
	return &Response{
		Error:    true,
		Category: CategoryUnknown,
		Code:     "UNKNOWN",
		Message:  message,
		Retry:    false,
	}
}

// namedGroups extracts named capture groups from a regex match into a
// string map suitable for template substitution.
func namedGroups(re *regexp.Regexp, match []string) map[string]string {
	out := make(map[string]string, len(match))
	for i, name := range re.SubexpNames() {
		if i == 0 || name == "" || i >= len(match) {
			continue
		}
		out[name] = match[i]
	}
	return out
}

var placeholderRe = regexp.MustCompile(`\{(\w+)\}`)

// fillTemplate substitutes {name} placeholders from groups, leaving
// unmatched placeholders untouched rather than erroring.
func fillTemplate(tmpl string, groups map[string]string) string {
	if tmpl == "" {
		return ""
	}
	return placeholderRe.ReplaceAllStringFunc(tmpl, func(ph string) string {
		name := strings.Trim(ph, "{}")
		if v, ok := groups[name]; ok {
			return v
		}
		return ph
	})
}
