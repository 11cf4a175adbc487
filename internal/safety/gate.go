// Package safety implements the Safety Gate: mode enforcement over
// operations, model/field/method blocklists, tool-visibility filtering, a
// per-session rate limiter, and an append-only audit writer.
package safety

import "github.com/bmatcuk/doublestar/v4"

// Mode is one of the three operating modes.
type Mode string

const (
	ModeReadonly   Mode = "readonly"
	ModeRestricted Mode = "restricted"
	ModeFull       Mode = "full"
)

// Operation names the primitive Odoo operations the gate reasons about.
type Operation string

const (
	OpRead       Operation = "read"
	OpSearch     Operation = "search"
	OpCount      Operation = "count"
	OpFieldsGet  Operation = "fields_get"
	OpNameGet    Operation = "name_get"
	OpDefaultGet Operation = "default_get"
	OpCreate     Operation = "create"
	OpWrite      Operation = "write"
	OpUnlink     Operation = "unlink"
	OpExecute    Operation = "execute"
)

var readOps = map[Operation]bool{
	OpRead: true, OpSearch: true, OpCount: true,
	OpFieldsGet: true, OpNameGet: true, OpDefaultGet: true,
}

// Policy is the compiled SafetyPolicy: user configuration plus the default
// blocklists, always unioned regardless of user input.
type Policy struct {
	Mode           Mode
	ModelAllowlist map[string]bool
	ModelBlocklist map[string]bool
	WriteAllowlist map[string]bool
	FieldBlocklist map[string]bool
	MethodBlocklist map[string]bool
}

// NewPolicy compiles a Policy from user-supplied lists, unioning in the
// default blocklists unconditionally.
func NewPolicy(mode Mode, modelAllow, modelBlock, writeAllow, fieldBlock, methodBlock []string) *Policy {
	p := &Policy{
		Mode:            mode,
		ModelAllowlist:  toSet(modelAllow),
		ModelBlocklist:  unionSets(toSet(modelBlock), defaultModelBlocklist),
		WriteAllowlist:  toSet(writeAllow),
		FieldBlocklist:  unionSets(toSet(fieldBlock), defaultFieldBlocklist),
		MethodBlocklist: unionSets(toSet(methodBlock), defaultMethodBlocklist),
	}
	return p
}

func toSet(items []string) map[string]bool {
	s := make(map[string]bool, len(items))
	for _, it := range items {
		s[it] = true
	}
	return s
}

func unionSets(a, b map[string]bool) map[string]bool {
	out := make(map[string]bool, len(a)+len(b))
	for k := range a {
		out[k] = true
	}
	for k := range b {
		out[k] = true
	}
	return out
}

// matchesAny reports whether name matches any entry in patterns, either by
// exact string equality or, for entries containing glob metacharacters, by
// doublestar matching (e.g. "ir.*", "*_token"). An invalid pattern never
// matches rather than erroring the whole check.
func matchesAny(patterns map[string]bool, name string) bool {
	if patterns[name] {
		return true
	}
	for pattern := range patterns {
		if !containsGlobMeta(pattern) {
			continue
		}
		if matched, err := doublestar.Match(pattern, name); err == nil && matched {
			return true
		}
	}
	return false
}

func containsGlobMeta(pattern string) bool {
	for _, r := range pattern {
		switch r {
		case '*', '?', '[':
			return true
		}
	}
	return false
}

// Decision is the gate's verdict for one call.
type Decision struct {
	Allowed bool
	Reason  string
}

func deny(reason string) Decision  { return Decision{Allowed: false, Reason: reason} }
func allow() Decision              { return Decision{Allowed: true} }

// Check is the pure function (mode, operation, model, field_set, method) ->
// allow/deny described in the specification. fields may be nil when the
// operation carries none (read/search/count/etc. without a values payload).
func (p *Policy) Check(op Operation, model string, fields []string, method string) Decision {
	if matchesAny(p.ModelBlocklist, model) {
		return deny("model " + model + " is blocked by policy")
	}
	if len(p.ModelAllowlist) > 0 && !p.ModelAllowlist[model] {
		return deny("model " + model + " is not in the allowlist")
	}
	if method != "" && matchesAny(p.MethodBlocklist, method) {
		return deny("method " + method + " is blocked by policy")
	}
	for _, f := range fields {
		if matchesAny(p.FieldBlocklist, f) {
			return deny("field " + f + " is blocked by policy")
		}
	}

	switch p.Mode {
	case ModeReadonly:
		if !readOps[op] {
			return deny("mode readonly permits only read operations")
		}
		return allow()

	case ModeRestricted:
		if readOps[op] {
			return allow()
		}
		if op == OpUnlink {
			return deny("mode restricted always rejects unlink")
		}
		if op == OpCreate || op == OpWrite || op == OpExecute {
			if len(p.WriteAllowlist) > 0 && !p.WriteAllowlist[model] {
				return deny("model " + model + " is not in the write allowlist")
			}
			if len(p.WriteAllowlist) == 0 {
				return deny("mode restricted requires an explicit write allowlist entry for " + model)
			}
			return allow()
		}
		return deny("operation not permitted in restricted mode")

	case ModeFull:
		return allow()

	default:
		return deny("unknown safety mode")
	}
}

// VisibleOperations returns which operations are ever reachable in this
// mode, independent of any specific model — used to decide tool
// registration up front so hidden tools are never advertised to a client.
func (p *Policy) VisibleOperations() map[Operation]bool {
	switch p.Mode {
	case ModeReadonly:
		return readOps
	case ModeRestricted:
		all := map[Operation]bool{OpCreate: true, OpWrite: true, OpExecute: true}
		for op := range readOps {
			all[op] = true
		}
		return all
	case ModeFull:
		return map[Operation]bool{
			OpRead: true, OpSearch: true, OpCount: true, OpFieldsGet: true,
			OpNameGet: true, OpDefaultGet: true, OpCreate: true, OpWrite: true,
			OpUnlink: true, OpExecute: true,
		}
	default:
		return nil
	}
}
