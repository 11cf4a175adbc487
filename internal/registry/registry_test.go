package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleModels() map[string]ModelInfo {
	return map[string]ModelInfo{
		"res.partner": {
			Model: "res.partner",
			Name:  "Contact",
			Fields: map[string]FieldInfo{
				"name":       {Name: "name", Type: FieldChar, Required: true},
				"parent_id":  {Name: "parent_id", Type: FieldMany2one, Relation: "res.partner"},
				"company_id": {Name: "company_id", Type: FieldMany2one, Relation: "res.company"},
			},
			Methods: map[string]MethodInfo{
				"name_get": {Name: "name_get", AcceptsKwargs: false},
			},
		},
	}
}

func TestRegistry_GetModelAndField(t *testing.T) {
	r := New(sampleModels(), BuildStatic, nil, nil)
	m, ok := r.GetModel("res.partner")
	require.True(t, ok)
	assert.Equal(t, "Contact", m.Name)

	f, ok := r.GetField("res.partner", "name")
	require.True(t, ok)
	assert.True(t, f.Required)

	_, ok = r.GetField("res.partner", "nonexistent")
	assert.False(t, ok)
}

func TestRegistry_ListModelsFiltersBySubstring(t *testing.T) {
	models := sampleModels()
	models["crm.lead"] = ModelInfo{Model: "crm.lead", Name: "Lead"}
	r := New(models, BuildStatic, nil, nil)

	all := r.ListModels("")
	assert.Len(t, all, 2)

	filtered := r.ListModels("partner")
	assert.Equal(t, []string{"res.partner"}, filtered)
}

func TestRegistry_GetRequiredFields(t *testing.T) {
	r := New(sampleModels(), BuildStatic, nil, nil)
	assert.Equal(t, []string{"name"}, r.GetRequiredFields("res.partner"))
}

func TestRegistry_GetRelationalFields(t *testing.T) {
	r := New(sampleModels(), BuildStatic, nil, nil)
	rel := r.GetRelationalFields("res.partner")
	assert.ElementsMatch(t, []string{"parent_id", "company_id"}, rel)
}

func TestRegistry_MethodAcceptsKwargs_GlobalSetWins(t *testing.T) {
	r := New(sampleModels(), BuildStatic, nil, nil)
	assert.False(t, r.MethodAcceptsKwargs("res.partner", "name_get"))
	assert.True(t, r.MethodAcceptsKwargs("res.partner", "search_read"))
}

type fakeChecker struct {
	exists bool
	calls  int
	err    error
}

func (f *fakeChecker) CountExists(model string) (bool, error) {
	f.calls++
	return f.exists, f.err
}

func TestRegistry_ModelExists_CachesNegativeAndPositive(t *testing.T) {
	r := New(sampleModels(), BuildStatic, nil, nil)

	exists, err := r.ModelExists("res.partner", nil)
	require.NoError(t, err)
	assert.True(t, exists)

	checker := &fakeChecker{exists: true}
	exists, err = r.ModelExists("crm.lead", checker)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, 1, checker.calls)

	// Second lookup hits the cache, not the checker.
	exists, err = r.ModelExists("crm.lead", checker)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, 1, checker.calls)

	negChecker := &fakeChecker{exists: false}
	exists, err = r.ModelExists("nonexistent.model", negChecker)
	require.NoError(t, err)
	assert.False(t, exists)
	exists, err = r.ModelExists("nonexistent.model", negChecker)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, 1, negChecker.calls, "negative outcomes are cached too")
}
