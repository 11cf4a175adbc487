package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/odoo-mcp-bridge/internal/classify"
	"github.com/tombee/odoo-mcp-bridge/internal/registry"
	"github.com/tombee/odoo-mcp-bridge/internal/safety"
	"github.com/tombee/odoo-mcp-bridge/internal/tools"
)

// scriptedBackend answers Execute calls in the order they're configured,
// keyed by model+method, so each search level can be scripted independently.
type scriptedBackend struct {
	byModelMethod map[string]interface{}
	calls         []string
}

func (b *scriptedBackend) Execute(ctx context.Context, model, method string, args []interface{}, kwargs, callCtx map[string]interface{}) (interface{}, error) {
	b.calls = append(b.calls, model+"."+method)
	if resp, ok := b.byModelMethod[model+"."+method]; ok {
		return resp, nil
	}
	return []interface{}{}, nil
}

func testEngine(backend *scriptedBackend) *Engine {
	reg := registry.New(map[string]registry.ModelInfo{
		"res.partner": {Model: "res.partner", Fields: map[string]registry.FieldInfo{
			"ref": {Name: "ref"}, "vat": {Name: "vat"},
		}},
		"crm.lead": {Model: "crm.lead"},
	}, registry.BuildStatic, nil, nil)
	policy := safety.NewPolicy(safety.ModeFull, nil, nil, nil, nil, nil)
	limiter := safety.NewRateLimiter(safety.RateLimitConfig{ReadRPM: 6000, WriteRPM: 6000, Burst: 100})
	executor := tools.NewExecutor(backend, reg, policy, classify.New(), limiter, nil)
	return NewEngine(executor, reg, DefaultCatalog())
}

func TestSearch_StopsAtFirstLevelWithResults(t *testing.T) {
	backend := &scriptedBackend{byModelMethod: map[string]interface{}{
		"crm.lead.search_read": []interface{}{map[string]interface{}{"id": 1, "name": "Acme"}},
	}}
	engine := testEngine(backend)

	res, tErr := engine.Search(context.Background(), tools.Session{ID: "s1"}, Request{Model: "crm.lead", Query: "Acme"})
	require.Nil(t, tErr)
	assert.Equal(t, 1, res.DepthReached)
	assert.Equal(t, []string{"exact"}, res.StrategiesUsed)
	assert.Len(t, res.Records, 1)
}

func TestSearch_FallsThroughToStandardIlikeOnExactMiss(t *testing.T) {
	backend := &scriptedBackend{}
	calls := 0
	backend.byModelMethod = nil

	// exact returns nothing; wire a custom Execute via closure isn't possible
	// with the map form, so simulate by scripting: first call miss, but the
	// scriptedBackend can't distinguish repeated calls to the same
	// model+method with different domains, so assert on call count/order
	// instead of payload differentiation.
	_ = calls
	res, tErr := testEngine(backend).Search(context.Background(), tools.Session{ID: "s1"}, Request{Model: "res.partner", Query: "nothing"})
	require.Nil(t, tErr)
	assert.Equal(t, 0, res.TotalResults)
	assert.Contains(t, res.StrategiesUsed, "exact")
	assert.Contains(t, res.StrategiesUsed, "standard_ilike")
	assert.Contains(t, res.StrategiesUsed, "extended_ilike")
	assert.NotEmpty(t, res.Suggestions)
}

func TestSearch_ExhaustiveModeRunsAllLevelsEvenAfterAHit(t *testing.T) {
	backend := &scriptedBackend{byModelMethod: map[string]interface{}{
		"res.partner.search_read": []interface{}{map[string]interface{}{"id": 1, "name": "Acme"}},
	}}
	engine := testEngine(backend)

	res, tErr := engine.Search(context.Background(), tools.Session{ID: "s1"}, Request{Model: "res.partner", Query: "Acme", Exhaustive: true})
	require.Nil(t, tErr)
	assert.Len(t, res.SearchLog, 4, "exhaustive mode runs every level res.partner has; it has no related-model level")
}

func TestSearch_UnknownModelFallsBackToNameOnlyConfig(t *testing.T) {
	backend := &scriptedBackend{}
	res, tErr := testEngine(backend).Search(context.Background(), tools.Session{ID: "s1"}, Request{Model: "unknown.model", Query: "x"})
	require.Nil(t, tErr)
	for _, entry := range res.SearchLog {
		assert.NotEqual(t, "related_expansion", entry.Strategy)
		assert.NotEqual(t, "chatter", entry.Strategy)
	}
}

func TestSearch_EmptyModelSearchesEveryCatalogModel(t *testing.T) {
	backend := &scriptedBackend{byModelMethod: map[string]interface{}{
		"crm.lead.search_read": []interface{}{map[string]interface{}{"id": 1, "name": "Acme"}},
	}}
	engine := testEngine(backend)

	res, tErr := engine.Search(context.Background(), tools.Session{ID: "s1"}, Request{Query: "Acme"})
	require.Nil(t, tErr)
	assert.Len(t, res.Records, 1)
	assert.Equal(t, 1, res.TotalResults)

	models := map[string]bool{}
	for _, entry := range res.SearchLog {
		models[entry.Model] = true
	}
	assert.True(t, models["crm.lead"])
	assert.True(t, len(models) > 1, "expected the fan-out to have run against more than one catalog model")
}

func TestSearch_EmptyModelWithNoMatchesSuggestsBroaderSearch(t *testing.T) {
	backend := &scriptedBackend{}
	res, tErr := testEngine(backend).Search(context.Background(), tools.Session{ID: "s1"}, Request{Query: "nothing"})
	require.Nil(t, tErr)
	assert.Equal(t, 0, res.TotalResults)
	require.NotEmpty(t, res.Suggestions)
}

func TestExpandPartnerIDs_CompanyExpandsToChildren(t *testing.T) {
	partners := []map[string]interface{}{
		{"id": 1, "is_company": true, "child_ids": []interface{}{2, 3}},
	}
	ids := expandPartnerIDs(partners)
	assert.ElementsMatch(t, []int{1, 2, 3}, ids)
}

func TestExpandPartnerIDs_IndividualExpandsToParent(t *testing.T) {
	partners := []map[string]interface{}{
		{"id": 5, "is_company": false, "parent_id": map[string]interface{}{"id": 1, "name": "Acme"}},
	}
	ids := expandPartnerIDs(partners)
	assert.ElementsMatch(t, []int{5, 1}, ids)
}

func TestIlikeDomain_CombinesFieldsAndWordsWithOr(t *testing.T) {
	domain := ilikeDomain([]string{"name", "email"}, "john doe")
	// 4 leaves need 3 OR operators.
	orCount := 0
	for _, el := range domain {
		if el == "|" {
			orCount++
		}
	}
	assert.Equal(t, 3, orCount)
}

func TestIlikeDomain_EmptyQueryProducesNoDomain(t *testing.T) {
	assert.Nil(t, ilikeDomain([]string{"name"}, ""))
}
