// Package coretoolset implements the Toolset Framework's always-on core
// toolset: the eleven closed-set CRUD tools, the progressive deep search
// tool, and the wizard executor tool.
package coretoolset

import (
	"context"
	"fmt"

	"github.com/tombee/odoo-mcp-bridge/internal/registry"
	"github.com/tombee/odoo-mcp-bridge/internal/search"
	"github.com/tombee/odoo-mcp-bridge/internal/tools"
	"github.com/tombee/odoo-mcp-bridge/internal/toolset"
	"github.com/tombee/odoo-mcp-bridge/internal/wizard"
)

// HandlerFunc is a tool implementation, dispatched with already-parsed
// arguments and the caller's session.
type HandlerFunc func(ctx context.Context, sess tools.Session, args map[string]interface{}) (interface{}, error)

// ToolDef is everything the MCP Server Host needs to advertise and dispatch
// one tool: its descriptor (for annotations), its JSON Schema input shape,
// and its handler.
type ToolDef struct {
	Descriptor  toolset.ToolDescriptor
	Description string
	Properties  map[string]interface{}
	Required    []string
	Handler     HandlerFunc
}

// Namespace and toolset name feed the naming convention
// {namespace}_{toolset}_{action}.
const (
	Namespace    = "odoo"
	ToolsetName  = "core"
)

// CoreToolset wraps the CRUD executor, deep search engine, and wizard
// executor into the Toolset Framework's contract. Unlike optional
// domain-specific toolsets it declares no RequiredModules: it is always
// eligible for registration.
type CoreToolset struct {
	executor *tools.Executor
	search   *search.Engine
	wizard   *wizard.Executor
	reg      *registry.Registry
}

// New wires a CoreToolset from its collaborators.
func New(executor *tools.Executor, searchEngine *search.Engine, wizardExecutor *wizard.Executor, reg *registry.Registry) *CoreToolset {
	return &CoreToolset{executor: executor, search: searchEngine, wizard: wizardExecutor, reg: reg}
}

// Metadata identifies the core toolset to the registration pipeline.
func (c *CoreToolset) Metadata() toolset.Metadata {
	return toolset.Metadata{
		Name:        ToolsetName,
		Description: "Core CRUD, progressive search, and wizard execution tools",
		Version:     "1.0.0",
		Tags:        []string{"core", "crud", "search", "wizard"},
	}
}

// Register satisfies toolset.Toolset, returning descriptors only; the MCP
// Server Host separately calls ToolDefs to obtain the actual schemas and
// handlers once the registration pipeline has confirmed this toolset survives
// prerequisite filtering.
func (c *CoreToolset) Register() ([]toolset.ToolDescriptor, error) {
	defs, err := c.ToolDefs()
	if err != nil {
		return nil, err
	}
	out := make([]toolset.ToolDescriptor, 0, len(defs))
	for _, d := range defs {
		out = append(out, d.Descriptor)
	}
	return out, nil
}

func name(action string) (string, error) {
	return toolset.ToolName(Namespace, ToolsetName, action)
}

func descriptor(action string) (toolset.ToolDescriptor, error) {
	n, err := name(action)
	if err != nil {
		return toolset.ToolDescriptor{}, err
	}
	return toolset.ToolDescriptor{Name: n, Annotation: toolset.ComputeAnnotation(action)}, nil
}

// ToolDefs builds the full set of tool definitions this toolset exposes.
func (c *CoreToolset) ToolDefs() ([]ToolDef, error) {
	builders := []func() (ToolDef, error){
		c.searchReadDef,
		c.readDef,
		c.countDef,
		c.fieldsGetDef,
		c.nameGetDef,
		c.defaultGetDef,
		c.listModelsDef,
		c.createDef,
		c.writeDef,
		c.unlinkDef,
		c.executeDef,
		c.deepSearchDef,
		c.runWizardDef,
	}

	defs := make([]ToolDef, 0, len(builders))
	for _, build := range builders {
		d, err := build()
		if err != nil {
			return nil, fmt.Errorf("coretoolset: %w", err)
		}
		defs = append(defs, d)
	}
	return defs, nil
}

func stringArg(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return s
}

func intArg(args map[string]interface{}, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

func stringSliceArg(args map[string]interface{}, key string) []string {
	raw, _ := args[key].([]interface{})
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func intSliceArg(args map[string]interface{}, key string) []int {
	raw, _ := args[key].([]interface{})
	out := make([]int, 0, len(raw))
	for _, v := range raw {
		out = append(out, toIntArg(v))
	}
	return out
}

func toIntArg(v interface{}) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}

func domainArg(args map[string]interface{}, key string) []interface{} {
	d, _ := args[key].([]interface{})
	return d
}

func mapArg(args map[string]interface{}, key string) map[string]interface{} {
	m, _ := args[key].(map[string]interface{})
	return m
}

func boolArg(args map[string]interface{}, key string) bool {
	b, _ := args[key].(bool)
	return b
}
