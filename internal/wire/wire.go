// Package wire implements the three interchangeable backend wire adapters
// described in the specification: legacy-xml (XML-RPC), legacy-json
// (JSON-RPC 2.0 over a session cookie), and modern-rest (bearer-token REST).
// All three satisfy the same Adapter contract so the Connection Manager can
// swap between them transparently.
package wire

import (
	"context"

	"github.com/tombee/odoo-mcp-bridge/internal/rpcerr"
)

// Adapter is the contract every wire protocol implementation satisfies.
type Adapter interface {
	// Authenticate exchanges credentials for a uid. A uid of 0 is treated
	// as a failure, matching backends that report "not authenticated" as a
	// falsy scalar rather than an explicit error.
	Authenticate(ctx context.Context, db, login, credential string) (int, error)

	// Execute invokes model.method(args, kwargs) with a per-call context
	// overlaid onto the adapter's immutable base context, and returns the
	// backend's raw result value. Faults are returned as *rpcerr.Fault.
	Execute(ctx context.Context, model, method string, args []interface{}, kwargs map[string]interface{}, callContext map[string]interface{}) (interface{}, error)

	// VersionInfo returns the backend's self-description, used by the
	// Version Prober's authenticated probes.
	VersionInfo(ctx context.Context) (map[string]interface{}, error)

	// Close releases network resources on all exit paths. Safe to call
	// multiple times.
	Close() error
}

// BaseContext is the immutable per-connection context (language, timezone,
// allowed company ids) constructed once by the Connection Manager and
// merged into every call. It must never be mutated after construction;
// MergeContext always returns a new map.
type BaseContext map[string]interface{}

// MergeContext shallow-overlays call-specific values onto base, returning a
// new map and leaving both inputs untouched. Overlay wins on key conflicts.
func MergeContext(base BaseContext, overlay map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(base)+len(overlay))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overlay {
		merged[k] = v
	}
	return merged
}

// Credentials bundles what an adapter needs to authenticate. Which fields
// are used depends on the concrete adapter (see the credential-transport
// table in the specification).
type Credentials struct {
	Database string
	Username string
	Password string
	APIKey   string
}

// classifyAuthFailure normalizes a raw authentication outcome (uid, err)
// into either a successful uid or an *rpcerr.AuthenticationError, per the
// "uid = 0/false is failure" rule shared by every adapter.
func classifyAuthFailure(uid int, err error) (int, error) {
	if err != nil {
		return 0, err
	}
	if uid <= 0 {
		return 0, &rpcerr.AuthenticationError{Reason: "backend rejected credentials"}
	}
	return uid, nil
}
