package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeValue_RoundTrip(t *testing.T) {
	cases := []interface{}{
		nil,
		true,
		false,
		42,
		int64(2147483647),
		3.14,
		"hello",
		[]interface{}{"a", int64(1), true},
		map[string]interface{}{"id": int64(7)},
	}
	for _, c := range cases {
		encoded, err := encodeValue(c)
		require.NoError(t, err)
		decoded, err := decodeValue(encoded)
		require.NoError(t, err)
		if c == nil {
			assert.Equal(t, "", decoded)
			continue
		}
		switch v := c.(type) {
		case int:
			assert.EqualValues(t, v, decoded)
		default:
			assert.EqualValues(t, c, decoded)
		}
	}
}

func TestDecodeResponse_Fault(t *testing.T) {
	body := []byte(`<?xml version="1.0"?>
<methodResponse><fault><value><struct>
<member><name>faultCode</name><value><string>1</string></value></member>
<member><name>faultString</name><value><string>Traceback (most recent call last):
ValidationError: boom</string></value></member>
</struct></value></fault></methodResponse>`)

	value, fault, err := decodeResponse(body)
	require.NoError(t, err)
	assert.Nil(t, value)
	require.NotNil(t, fault)

	rpcFault := faultToFault(fault)
	assert.Equal(t, "boom", rpcFault.Message)
	assert.Equal(t, "ValidationError", rpcFault.ErrorClass)
}

func TestDecodeResponse_SingleValue(t *testing.T) {
	body := []byte(`<?xml version="1.0"?>
<methodResponse><params><param><value><int>5</int></value></param></params></methodResponse>`)

	value, fault, err := decodeResponse(body)
	require.NoError(t, err)
	assert.Nil(t, fault)
	assert.EqualValues(t, 5, value)
}

func TestEncodeCall_ProducesValidEnvelope(t *testing.T) {
	body, err := encodeCall("authenticate", []interface{}{"db", "admin", "secret", map[string]interface{}{}})
	require.NoError(t, err)
	assert.Contains(t, string(body), "<methodName>authenticate</methodName>")
}
