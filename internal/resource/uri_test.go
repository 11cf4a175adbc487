package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURI_SystemInfo(t *testing.T) {
	u, err := ParseURI("odoo://system/info")
	require.NoError(t, err)
	assert.Equal(t, CategorySystem, u.Category)
	assert.Equal(t, []string{"info"}, u.Segments)
}

func TestParseURI_ModelFields(t *testing.T) {
	u, err := ParseURI("odoo://model/res.partner/fields")
	require.NoError(t, err)
	assert.Equal(t, CategoryModel, u.Category)
	assert.Equal(t, []string{"res.partner", "fields"}, u.Segments)
}

func TestParseURI_RecordWithDomainAndLimit(t *testing.T) {
	u, err := ParseURI(`odoo://record/res.partner?domain=%5B%5D&limit=50`)
	require.NoError(t, err)
	assert.Equal(t, CategoryRecord, u.Category)
	assert.Equal(t, 50, u.RecordDomainLimit())
	assert.Equal(t, "[]", u.Query.Get("domain"))
}

func TestParseURI_RecordLimitCapsAtMax(t *testing.T) {
	u, err := ParseURI("odoo://record/res.partner?limit=9999")
	require.NoError(t, err)
	assert.Equal(t, 100, u.RecordDomainLimit())
}

func TestParseURI_RecordLimitDefaultsWhenAbsent(t *testing.T) {
	u, err := ParseURI("odoo://record/res.partner")
	require.NoError(t, err)
	assert.Equal(t, 20, u.RecordDomainLimit())
}

func TestParseURI_RejectsUnknownCategory(t *testing.T) {
	_, err := ParseURI("odoo://bogus/thing")
	require.Error(t, err)
}

func TestParseURI_RejectsMissingScheme(t *testing.T) {
	_, err := ParseURI("system/info")
	require.Error(t, err)
}
