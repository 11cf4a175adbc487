package coretoolset

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/odoo-mcp-bridge/internal/classify"
	"github.com/tombee/odoo-mcp-bridge/internal/registry"
	"github.com/tombee/odoo-mcp-bridge/internal/safety"
	"github.com/tombee/odoo-mcp-bridge/internal/search"
	"github.com/tombee/odoo-mcp-bridge/internal/tools"
	"github.com/tombee/odoo-mcp-bridge/internal/toolset"
	"github.com/tombee/odoo-mcp-bridge/internal/wizard"
)

type fakeBackend struct {
	response interface{}
}

func (f *fakeBackend) Execute(ctx context.Context, model, method string, args []interface{}, kwargs, callCtx map[string]interface{}) (interface{}, error) {
	return f.response, nil
}

func testToolset(backend *fakeBackend) *CoreToolset {
	reg := registry.New(map[string]registry.ModelInfo{
		"res.partner": {
			Model:  "res.partner",
			Fields: map[string]registry.FieldInfo{"name": {Name: "name"}},
		},
	}, registry.BuildStatic, nil, nil)
	policy := safety.NewPolicy(safety.ModeFull, nil, nil, nil, nil, nil)
	limiter := safety.NewRateLimiter(safety.RateLimitConfig{ReadRPM: 6000, WriteRPM: 6000, Burst: 100})
	executor := tools.NewExecutor(backend, reg, policy, classify.New(), limiter, nil)
	searchEngine := search.NewEngine(executor, reg, nil)
	wizardExecutor := wizard.NewExecutor(executor, reg, nil)
	return New(executor, searchEngine, wizardExecutor, reg)
}

func TestToolDefs_NamesFollowNamingConvention(t *testing.T) {
	ct := testToolset(&fakeBackend{response: []interface{}{}})
	defs, err := ct.ToolDefs()
	require.NoError(t, err)
	require.Len(t, defs, 13)

	for _, d := range defs {
		assert.Regexp(t, `^odoo_core_[a-z_]+$`, d.Descriptor.Name)
		assert.True(t, d.Descriptor.Annotation.OpenWorldHint)
	}
}

func TestRegister_ProducesSameCountAsToolDefs(t *testing.T) {
	ct := testToolset(&fakeBackend{response: []interface{}{}})
	descriptors, err := ct.Register()
	require.NoError(t, err)
	assert.Len(t, descriptors, 13)
}

func TestSearchReadHandler_ReturnsRecords(t *testing.T) {
	ct := testToolset(&fakeBackend{response: []interface{}{map[string]interface{}{"id": 1, "name": "Acme"}}})
	defs, err := ct.ToolDefs()
	require.NoError(t, err)

	var searchRead ToolDef
	for _, d := range defs {
		if d.Descriptor.Name == "odoo_core_search_read" {
			searchRead = d
		}
	}
	require.NotEmpty(t, searchRead.Descriptor.Name)

	res, err := searchRead.Handler(context.Background(), tools.Session{ID: "s1"}, map[string]interface{}{
		"model": "res.partner",
	})
	require.NoError(t, err)
	result := res.(*tools.SearchReadResult)
	assert.Len(t, result.Records, 1)
}

func TestUnlinkHandler_DeniedInReadonlyMode(t *testing.T) {
	reg := registry.New(map[string]registry.ModelInfo{"res.partner": {Model: "res.partner"}}, registry.BuildStatic, nil, nil)
	policy := safety.NewPolicy(safety.ModeReadonly, nil, nil, nil, nil, nil)
	limiter := safety.NewRateLimiter(safety.RateLimitConfig{ReadRPM: 6000, WriteRPM: 6000, Burst: 100})
	executor := tools.NewExecutor(&fakeBackend{}, reg, policy, classify.New(), limiter, nil)
	ct := New(executor, search.NewEngine(executor, reg, nil), wizard.NewExecutor(executor, reg, nil), reg)

	defs, err := ct.ToolDefs()
	require.NoError(t, err)

	var unlink ToolDef
	for _, d := range defs {
		if d.Descriptor.Name == "odoo_core_unlink" {
			unlink = d
		}
	}
	_, err = unlink.Handler(context.Background(), tools.Session{ID: "s1"}, map[string]interface{}{
		"model": "res.partner",
		"ids":   []interface{}{float64(1)},
	})
	require.Error(t, err)
	var toolErr *tools.ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, classify.CategoryAccess, toolErr.Response.Category)
}

func TestMetadata_HasNoRequiredModules(t *testing.T) {
	ct := testToolset(&fakeBackend{})
	meta := ct.Metadata()
	assert.Equal(t, ToolsetName, meta.Name)
	assert.Empty(t, meta.RequiredModules)
}

var _ = toolset.Metadata{}
