package classify

import "regexp"

// defaultPatterns is the built-in ordered pattern list. Patterns are tried
// top to bottom; the first regex match among candidates surviving the
// error_class filter wins, so more specific entries must precede general
// ones sharing a class.
func defaultPatterns() []Pattern {
	return []Pattern{
		{
			ID:                 "access-denied",
			Regex:              regexp.MustCompile(`(?i)access\s+denied|you\s+are\s+not\s+allowed\s+to|acl|insufficient\s+privileges`),
			ErrorClass:         "odoo.exceptions.AccessError",
			Category:           CategoryAccess,
			Code:               "ACCESS_DENIED",
			MessageTemplate:    "Access denied on {model}.{method}: {message}",
			SuggestionTemplate: "Check the connected user's group membership and record rules for {model}.",
		},
		{
			ID:                 "access-generic",
			Regex:              regexp.MustCompile(`(?i)access\s+denied|you\s+are\s+not\s+allowed\s+to`),
			Category:           CategoryAccess,
			Code:               "ACCESS_DENIED",
			MessageTemplate:    "Access denied: {message}",
			SuggestionTemplate: "Check the connected user's permissions.",
		},
		{
			ID:                 "not-found",
			Regex:              regexp.MustCompile(`(?i)record\(?s?\)?\s+(?:does not exist|not found|could not be found)|missingerror`),
			ErrorClass:         "odoo.exceptions.MissingError",
			Category:           CategoryNotFound,
			Code:               "RECORD_NOT_FOUND",
			MessageTemplate:    "One or more {model} records no longer exist: {message}",
			SuggestionTemplate: "The record may have been deleted concurrently; re-run search to get current ids.",
		},
		{
			ID:                 "missing-required-field",
			Regex:              regexp.MustCompile(`(?i)(?:field\s+)?['"]?(?P<field>[a-zA-Z_][a-zA-Z0-9_]*)['"]?\s+is\s+(?:a\s+)?required\s+field`),
			ErrorClass:         "odoo.exceptions.ValidationError",
			Category:           CategoryValidation,
			Code:               "MISSING_REQUIRED_FIELD",
			MessageTemplate:    "Validation failed on {model}.{method}: {message}",
			SuggestionTemplate: "Call fields_get on {model} to check which fields are required, then retry with those set.",
			Extract:            []string{"field"},
		},
		{
			ID:                 "validation",
			Regex:              regexp.MustCompile(`(?i)is\s+(?:not\s+)?a?\s*required\s+field|invalid\s+field|does\s+not\s+exist\s+on\s+model|validationerror`),
			ErrorClass:         "odoo.exceptions.ValidationError",
			Category:           CategoryValidation,
			Code:               "VALIDATION_ERROR",
			MessageTemplate:    "Validation failed on {model}.{method}: {message}",
			SuggestionTemplate: "Check required fields and value types against the model's field metadata.",
		},
		{
			ID:                 "constraint",
			Regex:              regexp.MustCompile(`(?i)violates\s+.*constraint|duplicate\s+key\s+value|integrityerror`),
			Category:           CategoryConstraint,
			Code:               "CONSTRAINT_VIOLATION",
			MessageTemplate:    "A database constraint was violated on {model}: {message}",
			SuggestionTemplate: "Check for duplicate unique-key values or a violated foreign-key constraint.",
		},
		{
			ID:                 "state-transition",
			Regex:              regexp.MustCompile(`(?i)cannot\s+be\s+(?:done|processed)\s+in\s+.*state|invalid\s+state\s+transition|wrong\s+status`),
			Category:           CategoryState,
			Code:               "INVALID_STATE",
			MessageTemplate:    "Operation on {model}.{method} is not valid in the record's current state: {message}",
			SuggestionTemplate: "Read the record's state field and transition it through the required steps first.",
		},
		{
			ID:                 "wizard",
			Regex:              regexp.MustCompile(`(?i)wizard|transient\s+model.*not\s+found`),
			Category:           CategoryWizard,
			Code:               "WIZARD_ERROR",
			MessageTemplate:    "Wizard execution failed: {message}",
			SuggestionTemplate: "Re-run default_get on the wizard model to obtain fresh defaults before retrying.",
		},
		{
			ID:                 "connection-refused",
			Regex:              regexp.MustCompile(`(?i)connection\s+refused|connection\s+reset|no\s+route\s+to\s+host|dial\s+tcp|i/o\s+timeout|EOF`),
			Category:           CategoryConnection,
			Code:               "CONNECTION_ERROR",
			MessageTemplate:    "Could not reach the backend: {message}",
			SuggestionTemplate: "Verify the backend URL is reachable and retry shortly.",
		},
		{
			ID:                 "rate-limited",
			Regex:              regexp.MustCompile(`(?i)too\s+many\s+requests|rate\s+limit|429`),
			Category:           CategoryRateLimit,
			Code:               "RATE_LIMITED",
			MessageTemplate:    "Rate limit exceeded: {message}",
			SuggestionTemplate: "Slow down request frequency; the limit resets after the retry window.",
		},
		{
			ID:                 "configuration",
			Regex:              regexp.MustCompile(`(?i)database\s+.*does\s+not\s+exist|no\s+such\s+database|unsupported\s+odoo\s+version|misconfigured`),
			Category:           CategoryConfiguration,
			Code:               "CONFIGURATION_ERROR",
			MessageTemplate:    "Backend is misconfigured: {message}",
			SuggestionTemplate: "Check the connection database name and backend version compatibility.",
		},
	}
}
