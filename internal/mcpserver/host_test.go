package mcpserver

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tombee/odoo-mcp-bridge/internal/tracing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustProvider(t *testing.T) *tracing.Provider {
	t.Helper()
	p, err := tracing.NewProvider(context.Background(), tracing.Config{ServiceName: "test", ServiceVersion: "0.0.0"})
	require.NoError(t, err)
	return p
}

func TestNew_AppliesDefaults(t *testing.T) {
	h := New(Config{}, discardLogger(), mustProvider(t), nil, nil)
	require.Equal(t, "odoo-mcp-bridge", h.cfg.Name)
	require.Equal(t, "dev", h.cfg.Version)
	require.NotEmpty(t, h.fallbackSessionID)
}

func TestSessionFor_FallsBackWithoutClientSession(t *testing.T) {
	h := New(Config{}, discardLogger(), mustProvider(t), nil, nil)
	sess := h.sessionFor(context.Background())
	require.Equal(t, h.fallbackSessionID, sess.ID)
}
