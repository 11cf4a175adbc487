package resource

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/tombee/odoo-mcp-bridge/internal/registry"
	"github.com/tombee/odoo-mcp-bridge/internal/safety"
	"github.com/tombee/odoo-mcp-bridge/internal/tools"
	"github.com/tombee/odoo-mcp-bridge/internal/toolset"
)

// SystemInfo backs the system/info resource.
type SystemInfo struct {
	BackendMajor int    `json:"backend_major"`
	Protocol     string `json:"protocol"`
	SafetyMode   string `json:"safety_mode"`
}

// SafetySummary backs config/safety: a read-only view of the compiled
// policy, never the raw configuration (which may carry operator secrets
// alongside the lists).
type SafetySummary struct {
	Mode                  string `json:"mode"`
	ModelAllowlistCount   int    `json:"model_allowlist_count"`
	ModelBlocklistCount   int    `json:"model_blocklist_count"`
	WriteAllowlistCount   int    `json:"write_allowlist_count"`
	FieldBlocklistCount   int    `json:"field_blocklist_count"`
	MethodBlocklistCount  int    `json:"method_blocklist_count"`
}

// Engine dispatches resource reads across the four URI categories,
// consulting the Safety Gate for every model/field/record access.
type Engine struct {
	tools          *tools.Executor
	registry       *registry.Registry
	policy         *safety.Policy
	installedMods  map[string]bool
	systemInfo     func() SystemInfo
	toolsetReport  func() *toolset.Report
}

// NewEngine wires an Engine from its collaborators. installedMods and the
// two callback functions may be nil; missing data simply yields an empty
// resource body rather than an error.
func NewEngine(t *tools.Executor, reg *registry.Registry, policy *safety.Policy, installedMods map[string]bool, systemInfo func() SystemInfo, toolsetReport func() *toolset.Report) *Engine {
	return &Engine{tools: t, registry: reg, policy: policy, installedMods: installedMods, systemInfo: systemInfo, toolsetReport: toolsetReport}
}

// NotFoundError reports a resource URI whose target does not exist.
type NotFoundError struct{ URI string }

func (e *NotFoundError) Error() string { return fmt.Sprintf("resource not found: %s", e.URI) }

// DeniedError reports a resource URI the Safety Gate rejects.
type DeniedError struct{ Reason string }

func (e *DeniedError) Error() string { return e.Reason }

// Read dispatches a parsed URI to its content, per the fixed grammar. All
// resources are read-only.
func (e *Engine) Read(ctx context.Context, sess tools.Session, uri *URI) (interface{}, error) {
	switch uri.Category {
	case CategorySystem:
		return e.readSystem(uri)
	case CategoryConfig:
		return e.readConfig(uri)
	case CategoryModel:
		return e.readModel(sess, uri)
	case CategoryRecord:
		return e.readRecord(ctx, sess, uri)
	default:
		return nil, &NotFoundError{URI: uri.Raw}
	}
}

func (e *Engine) readSystem(uri *URI) (interface{}, error) {
	if len(uri.Segments) != 1 {
		return nil, &NotFoundError{URI: uri.Raw}
	}
	switch uri.Segments[0] {
	case "info":
		if e.systemInfo == nil {
			return SystemInfo{}, nil
		}
		return e.systemInfo(), nil
	case "modules":
		return e.installedMods, nil
	case "toolsets":
		if e.toolsetReport == nil {
			return &toolset.Report{}, nil
		}
		return e.toolsetReport(), nil
	default:
		return nil, &NotFoundError{URI: uri.Raw}
	}
}

func (e *Engine) readConfig(uri *URI) (interface{}, error) {
	if len(uri.Segments) != 1 || uri.Segments[0] != "safety" {
		return nil, &NotFoundError{URI: uri.Raw}
	}
	return SafetySummary{
		Mode:                 string(e.policy.Mode),
		ModelAllowlistCount:  len(e.policy.ModelAllowlist),
		ModelBlocklistCount:  len(e.policy.ModelBlocklist),
		WriteAllowlistCount:  len(e.policy.WriteAllowlist),
		FieldBlocklistCount:  len(e.policy.FieldBlocklist),
		MethodBlocklistCount: len(e.policy.MethodBlocklist),
	}, nil
}

func (e *Engine) readModel(sess tools.Session, uri *URI) (interface{}, error) {
	if len(uri.Segments) != 2 {
		return nil, &NotFoundError{URI: uri.Raw}
	}
	model, aspect := uri.Segments[0], uri.Segments[1]

	if !e.policy.Check(safety.OpRead, model, nil, "").Allowed {
		return nil, &DeniedError{Reason: "model " + model + " is blocked by policy"}
	}

	mi, ok := e.registry.GetModel(model)
	if !ok {
		return nil, &NotFoundError{URI: uri.Raw}
	}

	switch aspect {
	case "fields":
		fields, tErr := e.tools.FieldsGet(sess, model)
		if tErr != nil {
			return nil, tErr
		}
		return fields, nil
	case "methods":
		return mi.Methods, nil
	case "states":
		return mi.States, nil
	default:
		return nil, &NotFoundError{URI: uri.Raw}
	}
}

func (e *Engine) readRecord(ctx context.Context, sess tools.Session, uri *URI) (interface{}, error) {
	if len(uri.Segments) == 0 {
		return nil, &NotFoundError{URI: uri.Raw}
	}
	model := uri.Segments[0]

	if !e.policy.Check(safety.OpRead, model, nil, "").Allowed {
		return nil, &DeniedError{Reason: "model " + model + " is blocked by policy"}
	}

	if len(uri.Segments) == 2 {
		id, err := strconv.Atoi(uri.Segments[1])
		if err != nil {
			return nil, fmt.Errorf("record id %q is not numeric", uri.Segments[1])
		}
		res, tErr := e.tools.Read(ctx, sess, tools.ReadRequest{Model: model, IDs: []int{id}})
		if tErr != nil {
			return nil, tErr
		}
		if len(res.Records) == 0 {
			return nil, &NotFoundError{URI: uri.Raw}
		}
		return res.Records[0], nil
	}

	var domain []interface{}
	if raw := uri.Query.Get("domain"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &domain); err != nil {
			return nil, fmt.Errorf("domain query parameter is not valid JSON: %w", err)
		}
	}

	res, tErr := e.tools.SearchRead(ctx, sess, tools.SearchReadRequest{Model: model, Domain: domain, Limit: uri.RecordDomainLimit()})
	if tErr != nil {
		return nil, tErr
	}
	return res.Records, nil
}
