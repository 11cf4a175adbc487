package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDomain_AcceptsWellFormedExpressions(t *testing.T) {
	domain := []interface{}{
		"&",
		[]interface{}{"name", "ilike", "acme"},
		[]interface{}{"active", "=", true},
	}
	assert.NoError(t, ValidateDomain(domain))
}

func TestValidateDomain_AcceptsInWithListValue(t *testing.T) {
	domain := []interface{}{
		[]interface{}{"id", "in", []interface{}{1, 2, 3}},
	}
	assert.NoError(t, ValidateDomain(domain))
}

func TestValidateDomain_RejectsUnknownPrefixOperator(t *testing.T) {
	err := ValidateDomain([]interface{}{"~"})
	require.Error(t, err)
	var domErr *DomainValidationError
	require.ErrorAs(t, err, &domErr)
}

func TestValidateDomain_RejectsUnknownComparator(t *testing.T) {
	err := ValidateDomain([]interface{}{[]interface{}{"name", "~=", "x"}})
	require.Error(t, err)
}

func TestValidateDomain_RejectsInWithNonListValue(t *testing.T) {
	err := ValidateDomain([]interface{}{[]interface{}{"id", "in", 5}})
	require.Error(t, err)
}

func TestValidateDomain_RejectsWrongArityTuple(t *testing.T) {
	err := ValidateDomain([]interface{}{[]interface{}{"name", "="}})
	require.Error(t, err)
}

func TestValidateDomain_EmptyDomainIsValid(t *testing.T) {
	assert.NoError(t, ValidateDomain(nil))
}

func TestValidateDomain_RejectsUnbalancedAndOperator(t *testing.T) {
	domain := []interface{}{
		"&",
		[]interface{}{"name", "=", "acme"},
	}
	err := ValidateDomain(domain)
	require.Error(t, err)
	var domErr *DomainValidationError
	require.ErrorAs(t, err, &domErr)
}

func TestValidateDomain_RejectsUnbalancedNotOperator(t *testing.T) {
	err := ValidateDomain([]interface{}{"!"})
	require.Error(t, err)
}

func TestValidateDomain_AcceptsTrailingImplicitAnd(t *testing.T) {
	domain := []interface{}{
		"&",
		[]interface{}{"name", "ilike", "acme"},
		[]interface{}{"active", "=", true},
		[]interface{}{"customer_rank", ">", 0},
	}
	assert.NoError(t, ValidateDomain(domain))
}

func TestValidateDomain_AcceptsNestedOperators(t *testing.T) {
	domain := []interface{}{
		"&",
		"!",
		[]interface{}{"active", "=", false},
		[]interface{}{"name", "ilike", "acme"},
	}
	assert.NoError(t, ValidateDomain(domain))
}
