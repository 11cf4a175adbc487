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

func TestModernRESTAdapter_Authenticate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/session/whoami", r.URL.Path)
		assert.Equal(t, "Bearer sk-live-abc", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"uid": 3})
	}))
	defer server.Close()

	a := NewModernRESTAdapter(server.URL, server.Client(), BaseContext{})
	uid, err := a.Authenticate(context.Background(), "", "", "sk-live-abc")
	require.NoError(t, err)
	assert.Equal(t, 3, uid)
}

func TestModernRESTAdapter_Authenticate_RejectedToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	a := NewModernRESTAdapter(server.URL, server.Client(), BaseContext{})
	_, err := a.Authenticate(context.Background(), "", "", "bad-key")
	require.Error(t, err)
	var authErr *rpcerr.AuthenticationError
	require.ErrorAs(t, err, &authErr)
}

func TestModernRESTAdapter_Execute_NoPasswordFallbackOn401(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/session/whoami" {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"uid": 3})
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	a := NewModernRESTAdapter(server.URL, server.Client(), BaseContext{})
	_, err := a.Authenticate(context.Background(), "", "", "sk-live-abc")
	require.NoError(t, err)

	_, err = a.Execute(context.Background(), "res.partner", "read", nil, nil, nil)
	require.Error(t, err)
	var authErr *rpcerr.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	// The failure is a bearer-token rejection, not a resettable session —
	// there is no credential to fall back to.
	assert.Contains(t, authErr.Reason, "bearer token rejected")
}

func TestModernRESTAdapter_Execute_ErrorEnvelopeBecomesFault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env := restEnvelope{Error: &restFault{Code: "ValidationError", Message: "partner_id is required"}}
		_ = json.NewEncoder(w).Encode(env)
	}))
	defer server.Close()

	a := NewModernRESTAdapter(server.URL, server.Client(), BaseContext{})
	_, err := a.Execute(context.Background(), "res.partner", "create", []interface{}{}, nil, nil)
	require.Error(t, err)
	var fault *rpcerr.Fault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, "ValidationError", fault.ErrorClass)
	assert.Equal(t, "res.partner", fault.Model)
}

func TestModernRESTAdapter_Close_ClearsToken(t *testing.T) {
	a := NewModernRESTAdapter("http://unused.invalid", nil, BaseContext{})
	a.apiKey = "sk-live-abc"
	require.NoError(t, a.Close())
	assert.Empty(t, a.apiKey)
	require.NoError(t, a.Close())
}
