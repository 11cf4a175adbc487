// Package resource implements the read-only Resource Engine: URI parsing
// for the odoo:// scheme, dispatch to system/config/model/record content,
// and polling-based subscriptions.
package resource

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Category is one of the four resource categories the URI grammar defines.
type Category string

const (
	CategorySystem Category = "system"
	CategoryConfig Category = "config"
	CategoryModel  Category = "model"
	CategoryRecord Category = "record"
)

// URI is a parsed odoo://{category}/{path} resource reference.
type URI struct {
	Raw       string
	Namespace string
	Category  Category
	Segments  []string
	Query     url.Values
}

// String reconstructs the canonical form of the URI, useful for
// subscription keys and notification payloads.
func (u *URI) String() string { return u.Raw }

// ParseURI parses and validates a resource URI against the fixed grammar:
// scheme://category/segments[?query].
func ParseURI(raw string) (*URI, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("malformed resource uri: %w", err)
	}
	if parsed.Scheme == "" {
		return nil, fmt.Errorf("resource uri %q is missing a namespace scheme", raw)
	}

	// url.Parse puts the category in Host for "scheme://category/path" form.
	category := Category(parsed.Host)
	switch category {
	case CategorySystem, CategoryConfig, CategoryModel, CategoryRecord:
	default:
		return nil, fmt.Errorf("unknown resource category %q", parsed.Host)
	}

	path := strings.Trim(parsed.Path, "/")
	var segments []string
	if path != "" {
		segments = strings.Split(path, "/")
	}

	return &URI{
		Raw: raw, Namespace: parsed.Scheme, Category: category,
		Segments: segments, Query: parsed.Query(),
	}, nil
}

// RecordDomainLimit resolves the record-listing limit query parameter,
// capped at 100 and defaulting to 20.
func (u *URI) RecordDomainLimit() int {
	const (
		defaultLimit = 20
		maxLimit     = 100
	)
	raw := u.Query.Get("limit")
	if raw == "" {
		return defaultLimit
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return defaultLimit
	}
	if n > maxLimit {
		return maxLimit
	}
	return n
}
