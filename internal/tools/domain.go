// Package tools implements the closed set of model-generic CRUD tools: their
// input caps, domain validation, response normalization, and dispatch
// through the Connection Manager and Safety Gate.
package tools

import (
	"fmt"

	"github.com/tombee/odoo-mcp-bridge/internal/rpcerr"
)

// domainOperators is the fixed prefix-operator set a domain expression may
// use in place of a 3-tuple leaf.
var domainOperators = map[string]bool{"&": true, "|": true, "!": true}

// domainComparators is the fixed set of leaf comparison operators.
var domainComparators = map[string]bool{
	"=": true, "!=": true, ">": true, ">=": true, "<": true, "<=": true,
	"like": true, "ilike": true, "not like": true, "not ilike": true,
	"in": true, "not in": true, "child_of": true, "parent_of": true,
	"=like": true, "=ilike": true,
}

// DomainValidationError describes exactly which element of the domain
// expression failed validation, in a form suitable to relay to the caller
// as actionable guidance.
type DomainValidationError struct {
	Index   int
	Element interface{}
	Reason  string
}

func (e *DomainValidationError) Error() string {
	return fmt.Sprintf("domain element %d (%v) is invalid: %s", e.Index, e.Element, e.Reason)
}

// ValidateDomain checks a search domain is well-formed prefix notation: each
// element is either one of the fixed prefix operators or a 3-tuple whose
// comparator belongs to the fixed set, with in/not-in requiring a list
// value, and the prefix operators balance against the operands that follow
// them (a trailing '&' or '|' with a missing operand is rejected rather
// than left for the backend to fault on).
func ValidateDomain(domain []interface{}) error {
	for i, el := range domain {
		if op, ok := el.(string); ok {
			if !domainOperators[op] {
				return &DomainValidationError{Index: i, Element: el, Reason: "unknown prefix operator"}
			}
			continue
		}

		tuple, ok := el.([]interface{})
		if !ok || len(tuple) != 3 {
			return &DomainValidationError{Index: i, Element: el, Reason: "expected a 3-tuple [field, operator, value] or a prefix operator"}
		}

		field, ok := tuple[0].(string)
		if !ok || field == "" {
			return &DomainValidationError{Index: i, Element: el, Reason: "tuple field name must be a non-empty string"}
		}

		comparator, ok := tuple[1].(string)
		if !ok || !domainComparators[comparator] {
			return &DomainValidationError{Index: i, Element: el, Reason: fmt.Sprintf("unknown comparison operator %v", tuple[1])}
		}

		if comparator == "in" || comparator == "not in" {
			if _, ok := tuple[2].([]interface{}); !ok {
				return &DomainValidationError{Index: i, Element: el, Reason: fmt.Sprintf("%q requires a list value", comparator)}
			}
		}
	}

	if len(domain) > 0 {
		if _, err := consumePrefixOperand(domain, 0); err != nil {
			return &DomainValidationError{Index: len(domain), Element: nil, Reason: err.Error()}
		}
	}
	return nil
}

// consumePrefixOperand recursively walks one prefix-notation operand
// starting at pos: '!' is unary and consumes the operand that follows it,
// '&'/'|' are binary and consume the two operands that follow, and anything
// else is a leaf condition consuming only itself. It returns the index past
// whatever it consumed, or an error if an operator runs out of domain
// before its operand(s) appear. A domain with elements left over after the
// walk is still valid: Odoo joins any such trailing conditions with an
// implicit '&', so only a genuinely unbalanced operator is rejected here.
func consumePrefixOperand(domain []interface{}, pos int) (int, error) {
	if pos >= len(domain) {
		return 0, fmt.Errorf("unexpected end of domain: a logical operator is missing its operand(s)")
	}

	if op, ok := domain[pos].(string); ok && domainOperators[op] {
		if op == "!" {
			return consumePrefixOperand(domain, pos+1)
		}
		next, err := consumePrefixOperand(domain, pos+1)
		if err != nil {
			return 0, err
		}
		return consumePrefixOperand(domain, next)
	}
	return pos + 1, nil
}

// ValidationFault turns a domain validation error into the same Fault shape
// the classifier normally produces from a backend traceback, so callers get
// one uniform error response regardless of where the rejection happened.
func ValidationFault(err error) *rpcerr.Fault {
	return rpcerr.New(err.Error(), "OdooMCPBridge.DomainValidationError")
}
