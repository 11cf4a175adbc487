package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tombee/odoo-mcp-bridge/internal/resource"
)

// staticResources are the fixed, non-templated URIs the fixed grammar
// exposes directly, independent of any particular model or record.
var staticResources = []struct {
	uri, name, description string
}{
	{"odoo://system/info", "Backend info", "Detected backend version, active protocol, and safety mode"},
	{"odoo://system/modules", "Installed modules", "The set of installed module technical names"},
	{"odoo://system/toolsets", "Toolset registration report", "Which toolsets registered, and why any were skipped"},
	{"odoo://config/safety", "Safety policy summary", "A read-only view of the compiled safety policy"},
}

// resourceTemplates are the parameterized URIs whose segments name a model
// or record; mark3labs dispatches these through AddResourceTemplate instead
// of a fixed AddResource entry.
var resourceTemplates = []struct {
	uriTemplate, name, description string
}{
	{"odoo://model/{model}/fields", "Model fields", "Field metadata for one model, with blocked fields stripped"},
	{"odoo://model/{model}/methods", "Model methods", "Callable method metadata for one model"},
	{"odoo://model/{model}/states", "Model states", "The ordered state values a model's state field can hold"},
	{"odoo://record/{model}/{id}", "Single record", "One record's field values"},
	{"odoo://record/{model}", "Record listing", "Records matching an optional domain query parameter"},
}

// RegisterResources advertises the fixed-grammar resource tree and wires
// every read through the Resource Engine.
func (h *Host) RegisterResources() {
	for _, r := range staticResources {
		res := mcp.NewResource(r.uri, r.name,
			mcp.WithResourceDescription(r.description),
			mcp.WithMIMEType("application/json"),
		)
		h.srv.AddResource(res, h.readResourceHandler())
	}

	for _, t := range resourceTemplates {
		tmpl := mcp.NewResourceTemplate(t.uriTemplate, t.name,
			mcp.WithTemplateDescription(t.description),
			mcp.WithTemplateMIMEType("application/json"),
		)
		h.srv.AddResourceTemplate(tmpl, h.readResourceHandler())
	}
}

func (h *Host) readResourceHandler() func(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		uri, err := resource.ParseURI(req.Params.URI)
		if err != nil {
			return nil, err
		}

		sess := h.sessionFor(ctx)
		body, err := h.resources.Read(ctx, sess, uri)
		if err != nil {
			return nil, err
		}

		payload, err := json.MarshalIndent(body, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("mcpserver: marshal resource %s: %w", req.Params.URI, err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(payload),
			},
		}, nil
	}
}
