// Package mcpserver implements the MCP Server Host: it owns the mark3labs
// transport, advertises capabilities, dispatches tool calls to the
// registered toolsets, serves the fixed-grammar resource tree, and drives
// graceful shutdown.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/trace"

	"github.com/tombee/odoo-mcp-bridge/internal/coretoolset"
	"github.com/tombee/odoo-mcp-bridge/internal/metrics"
	"github.com/tombee/odoo-mcp-bridge/internal/resource"
	"github.com/tombee/odoo-mcp-bridge/internal/tools"
	"github.com/tombee/odoo-mcp-bridge/internal/toolset"
	"github.com/tombee/odoo-mcp-bridge/internal/tracing"
)

// Config configures the host's identity and advertised capabilities.
type Config struct {
	Name    string
	Version string

	ResourceSubscribe   bool
	ResourceListChanged bool
	PromptListChanged   bool
	ShutdownGrace       time.Duration
}

// Host wraps the mark3labs MCP server plus the collaborators needed to
// dispatch tool calls and resource reads against the connected backend.
type Host struct {
	srv    *server.MCPServer
	log    *slog.Logger
	tracer trace.Tracer
	cfg    Config

	resources *resource.Engine
	subs      *resource.SubscriptionManager

	fallbackSessionID string
}

// New builds a Host and advertises tool list-changed and protocol-level
// logging; resource subscribe, resource list-changed and prompt
// list-changed are advertised only when the matching cfg flag is set.
func New(cfg Config, log *slog.Logger, provider *tracing.Provider, resources *resource.Engine, subs *resource.SubscriptionManager) *Host {
	if cfg.Name == "" {
		cfg.Name = "odoo-mcp-bridge"
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = 30 * time.Second
	}

	srv := server.NewMCPServer(cfg.Name, cfg.Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(cfg.ResourceSubscribe, cfg.ResourceListChanged),
		server.WithPromptCapabilities(cfg.PromptListChanged),
		server.WithLogging(),
		server.WithRecovery(),
	)

	h := &Host{
		srv:               srv,
		log:               log,
		tracer:            provider.Tracer("mcpserver"),
		cfg:               cfg,
		resources:         resources,
		subs:              subs,
		fallbackSessionID: uuid.NewString(),
	}
	return h
}

// SetSubscriptionManager wires the subscription manager after construction,
// since building one requires a Notifier the Host itself produces.
func (h *Host) SetSubscriptionManager(subs *resource.SubscriptionManager) {
	h.subs = subs
}

// sessionFor resolves the caller's MCP client session id, falling back to a
// process-lifetime id for transports (stdio) that never register one.
func (h *Host) sessionFor(ctx context.Context) tools.Session {
	if cs := server.ClientSessionFromContext(ctx); cs != nil {
		return tools.Session{ID: cs.SessionID()}
	}
	return tools.Session{ID: h.fallbackSessionID}
}

// RegisterCoreToolset advertises every tool the core toolset exposes,
// wrapping each handler with tracing and metrics instrumentation.
func (h *Host) RegisterCoreToolset(defs []coretoolset.ToolDef) {
	for _, d := range defs {
		h.addTool(d.Descriptor.Name, d.Description, d.Properties, d.Required, d.Descriptor.Annotation, d.Handler)
	}
}

// RegisterListToolsetsTool exposes the toolset registration report as both
// a callable tool and a resource, so a client can either ask for it inline
// or read it as part of a broader resource sync.
func (h *Host) RegisterListToolsetsTool(report func() *toolset.Report) {
	h.srv.AddTool(mcp.Tool{
		Name:        "odoo_list_toolsets",
		Description: "List every toolset that was registered or skipped, with the reason for each skip.",
		InputSchema: mcp.ToolInputSchema{Type: "object", Properties: map[string]interface{}{}},
	}, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(report()), nil
	})
}

// addTool registers a tool's schema and handler. The annotation is not
// wired into the wire-level mcp.Tool: it is only used by the toolset
// registration report clients read via odoo_list_toolsets.
func (h *Host) addTool(name, description string, properties map[string]interface{}, required []string, annotation toolset.Annotation, handler coretoolset.HandlerFunc) {
	h.srv.AddTool(mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: properties,
			Required:   required,
		},
	}, h.wrapHandler(name, handler))
}

func (h *Host) wrapHandler(name string, handler coretoolset.HandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := req.Params.Arguments.(map[string]interface{})
		sess := h.sessionFor(ctx)

		ctx, span := tracing.StartToolSpan(ctx, h.tracer, name)

		started := time.Now()
		result, err := handler(ctx, sess, args)
		tracing.EndWithError(span, err)
		metrics.RecordToolCall(name, statusFor(err), time.Since(started))
		if err != nil {
			h.log.Warn("tool call failed", slog.String("tool", name), slog.Any("error", err))
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(result), nil
	}
}

func statusFor(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// Run serves the host over stdio until the transport returns. ctx is not
// consulted; cancelling it does not stop the transport.
func (h *Host) Run(ctx context.Context) error {
	h.log.Info("starting MCP server host", slog.String("name", h.cfg.Name))
	if err := server.ServeStdio(h.srv); err != nil {
		return fmt.Errorf("mcpserver: stdio transport: %w", err)
	}
	return nil
}

// Shutdown logs the shutdown and returns nil; it does not stop subscription
// pollers. There is no explicit stdio transport teardown; returning from
// ServeStdio is sufficient, matching the underlying library's shutdown
// contract.
func (h *Host) Shutdown(ctx context.Context) error {
	h.log.Info("shutting down MCP server host")
	return nil
}
