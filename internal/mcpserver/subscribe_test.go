package mcpserver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/odoo-mcp-bridge/internal/registry"
	"github.com/tombee/odoo-mcp-bridge/internal/resource"
)

func testHostWithSubs(t *testing.T) *Host {
	reg := registry.New(map[string]registry.ModelInfo{}, registry.BuildStatic, nil, nil)
	engine := resource.NewEngine(nil, reg, nil, nil, func() resource.SystemInfo { return resource.SystemInfo{} }, nil)
	h := New(Config{}, discardLogger(), mustProvider(t), engine, nil)
	h.SetSubscriptionManager(resource.NewSubscriptionManager(engine, func(string, string) {}, time.Hour))
	return h
}

func TestSubscribe_RegistersASubscribableResource(t *testing.T) {
	h := testHostWithSubs(t)
	err := h.Subscribe(context.Background(), "client-1", "odoo://system/info")
	require.NoError(t, err)
	assert.Equal(t, 1, h.subs.Count("client-1"))
}

func TestSubscribe_RejectsUnsubscribableResource(t *testing.T) {
	h := testHostWithSubs(t)
	err := h.Subscribe(context.Background(), "client-1", "odoo://system/modules")
	assert.Error(t, err)
}

func TestUnsubscribeAll_ClearsEveryClientSubscription(t *testing.T) {
	h := testHostWithSubs(t)
	require.NoError(t, h.Subscribe(context.Background(), "client-1", "odoo://system/info"))
	h.UnsubscribeAll("client-1")
	assert.Equal(t, 0, h.subs.Count("client-1"))
}
