package wire

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/odoo-mcp-bridge/internal/rpcerr"
)

func TestLegacyJSONAdapter_Authenticate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/web/session/authenticate", r.URL.Path)
		http.SetCookie(w, &http.Cookie{Name: "session_id", Value: "abc123"})
		resp := jsonrpcResponse{JSONRPC: "2.0", ID: 1, Result: json.RawMessage(`{"uid": 9}`)}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	a, err := NewLegacyJSONAdapter(server.URL, BaseContext{"lang": "en_US"})
	require.NoError(t, err)

	uid, err := a.Authenticate(context.Background(), "mydb", "admin", "secret")
	require.NoError(t, err)
	assert.Equal(t, 9, uid)
}

func TestLegacyJSONAdapter_Execute_Code100IsSessionExpiry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := jsonrpcResponse{JSONRPC: "2.0", ID: 1, Error: &jsonrpcError{Code: 100, Message: "Odoo Session Expired"}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	a, err := NewLegacyJSONAdapter(server.URL, BaseContext{})
	require.NoError(t, err)

	_, err = a.Execute(context.Background(), "res.partner", "read", nil, nil, nil)
	require.Error(t, err)
	var authErr *rpcerr.AuthenticationError
	require.ErrorAs(t, err, &authErr)
}

func TestLegacyJSONAdapter_Execute_HTTPUnauthorizedIsSessionExpiry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	a, err := NewLegacyJSONAdapter(server.URL, BaseContext{})
	require.NoError(t, err)

	_, err = a.Execute(context.Background(), "res.partner", "read", nil, nil, nil)
	require.Error(t, err)
	var authErr *rpcerr.AuthenticationError
	require.ErrorAs(t, err, &authErr)
}

func TestLegacyJSONAdapter_Execute_ErrorDataProducesFault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := jsonrpcResponse{
			JSONRPC: "2.0",
			ID:      1,
			Error: &jsonrpcError{
				Code:    200,
				Message: "Odoo Server Error",
				Data: map[string]interface{}{
					"name":  "odoo.exceptions.ValidationError",
					"debug": "Traceback...\nValidationError: partner_id is required",
				},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	a, err := NewLegacyJSONAdapter(server.URL, BaseContext{})
	require.NoError(t, err)

	_, err = a.Execute(context.Background(), "res.partner", "create", []interface{}{}, nil, nil)
	require.Error(t, err)
	var fault *rpcerr.Fault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, "ValidationError", fault.ErrorClass)
	assert.Equal(t, "partner_id is required", fault.Message)
	assert.Equal(t, "res.partner", fault.Model)
}

func TestLegacyJSONAdapter_Execute_MergesBaseAndCallContext(t *testing.T) {
	var seenParams map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req jsonrpcRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if params, ok := req.Params.(map[string]interface{}); ok {
			seenParams = params
		}
		resp := jsonrpcResponse{JSONRPC: "2.0", ID: 1, Result: json.RawMessage(`[]`)}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	a, err := NewLegacyJSONAdapter(server.URL, BaseContext{"lang": "en_US", "tz": "UTC"})
	require.NoError(t, err)

	_, err = a.Execute(context.Background(), "res.partner", "search_read", []interface{}{}, nil, map[string]interface{}{"tz": "America/New_York"})
	require.NoError(t, err)

	kwargs, ok := seenParams["kwargs"].(map[string]interface{})
	require.True(t, ok)
	ctxMap, ok := kwargs["context"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "en_US", ctxMap["lang"])
	assert.Equal(t, "America/New_York", ctxMap["tz"])
}
