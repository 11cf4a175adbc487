package rpcerr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTraceback_ExtractsClassAndMessage(t *testing.T) {
	tb := "Traceback (most recent call last):\n  File \"x.py\", line 1\nValidationError: partner_id is required"
	f := ParseTraceback(tb)
	assert.Equal(t, "ValidationError", f.ErrorClass)
	assert.Equal(t, "partner_id is required", f.Message)
	assert.Equal(t, tb, f.Traceback)
}

func TestParseTraceback_NoClassPrefix(t *testing.T) {
	f := ParseTraceback("something went wrong without a class prefix")
	assert.Empty(t, f.ErrorClass)
	assert.Equal(t, "something went wrong without a class prefix", f.Message)
}

func TestParseTraceback_Empty(t *testing.T) {
	f := ParseTraceback("")
	assert.Empty(t, f.Message)
}

func TestFault_Error(t *testing.T) {
	f := &Fault{Message: "boom", ErrorClass: "ValueError"}
	assert.Equal(t, "ValueError: boom", f.Error())

	f2 := &Fault{Message: "boom"}
	assert.Equal(t, "boom", f2.Error())
}
