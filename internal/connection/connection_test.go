package connection

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/odoo-mcp-bridge/internal/rpcerr"
	"github.com/tombee/odoo-mcp-bridge/internal/tracing"
	"github.com/tombee/odoo-mcp-bridge/internal/version"
	"github.com/tombee/odoo-mcp-bridge/internal/wire"
)

type fakeAdapter struct {
	mu           sync.Mutex
	authCalls    int
	failAuthWith error
	uid          int
	executeErr   error
	executeVal   interface{}
	closed       bool
}

func (f *fakeAdapter) Authenticate(ctx context.Context, db, login, credential string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authCalls++
	if f.failAuthWith != nil {
		return 0, f.failAuthWith
	}
	return f.uid, nil
}

func (f *fakeAdapter) Execute(ctx context.Context, model, method string, args []interface{}, kwargs, callCtx map[string]interface{}) (interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.executeVal, f.executeErr
}

func (f *fakeAdapter) VersionInfo(ctx context.Context) (map[string]interface{}, error) {
	return map[string]interface{}{"server_version": "18.0"}, nil
}

func (f *fakeAdapter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func newTestManager(t *testing.T, factory AdapterFactory) *Manager {
	t.Helper()
	return New(Config{
		Credentials:  Credentials{Database: "db", Username: "admin", Password: "secret"},
		HealthWindow: time.Hour,
		ReconnectMax: 3,
		BackoffBase:  time.Millisecond,
		NewAdapter:   factory,
	})
}

func TestConnect_ReachesReady(t *testing.T) {
	adapter := &fakeAdapter{uid: 5}
	m := newTestManager(t, func(p version.Protocol) (wire.Adapter, error) { return adapter, nil })

	err := m.Connect(context.Background(), version.Fallback())
	require.NoError(t, err)
	assert.Equal(t, StateReady, m.State())
}

func TestConnect_TokenFirstFallsBackToPasswordOnAuthShapedFailure(t *testing.T) {
	m := New(Config{
		Credentials: Credentials{Database: "db", Username: "admin", Password: "secret", APIKey: "sk-bad"},
		BackoffBase: time.Millisecond,
		NewAdapter:  func(p version.Protocol) (wire.Adapter, error) { return &tieBreakAdapter{uid: 5}, nil },
	})

	err := m.Connect(context.Background(), version.Fallback())
	require.NoError(t, err)
	assert.Equal(t, StateReady, m.State())
}

// tieBreakAdapter fails token auth (secret == "sk-bad") but succeeds on
// password auth, to exercise the tie-break fallback path deterministically.
type tieBreakAdapter struct {
	uid int
}

func (a *tieBreakAdapter) Authenticate(ctx context.Context, db, login, credential string) (int, error) {
	if credential == "sk-bad" {
		return 0, &rpcerr.AuthenticationError{Reason: "bad token"}
	}
	return a.uid, nil
}
func (a *tieBreakAdapter) Execute(ctx context.Context, model, method string, args []interface{}, kwargs, callCtx map[string]interface{}) (interface{}, error) {
	return nil, nil
}
func (a *tieBreakAdapter) VersionInfo(ctx context.Context) (map[string]interface{}, error) {
	return nil, nil
}
func (a *tieBreakAdapter) Close() error { return nil }

func TestConnect_ModernRESTNeverFallsBackToPassword(t *testing.T) {
	m := New(Config{
		Credentials: Credentials{Database: "db", Username: "admin", Password: "secret", APIKey: "sk-bad"},
		BackoffBase: time.Millisecond,
		NewAdapter:  func(p version.Protocol) (wire.Adapter, error) { return &tieBreakAdapter{uid: 5}, nil },
	})

	v := &version.OdooVersion{Major: 19}
	err := m.Connect(context.Background(), v)
	require.Error(t, err)
	assert.Equal(t, StateError, m.State())
}

func TestExecute_ReconnectsOnAuthenticationError(t *testing.T) {
	first := &fakeAdapter{uid: 5, executeErr: &rpcerr.AuthenticationError{Reason: "session expired"}}
	second := &fakeAdapter{uid: 5, executeVal: "ok"}

	calls := 0
	factory := func(p version.Protocol) (wire.Adapter, error) {
		calls++
		if calls == 1 {
			return first, nil
		}
		return second, nil
	}

	m := newTestManager(t, factory)
	require.NoError(t, m.Connect(context.Background(), version.Fallback()))

	v, err := m.Execute(context.Background(), "res.partner", "read", nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.True(t, first.closed)
}

func TestExecute_ReconnectExhaustionSurfacesConnectionError(t *testing.T) {
	first := &fakeAdapter{uid: 5, executeErr: &rpcerr.AuthenticationError{Reason: "expired"}}
	m := newTestManager(t, func(p version.Protocol) (wire.Adapter, error) { return first, nil })
	require.NoError(t, m.Connect(context.Background(), version.Fallback()))

	// Every reconnection attempt fails authentication, so the retry budget
	// exhausts and a connection-shaped error surfaces to the caller.
	m.cfg.NewAdapter = func(p version.Protocol) (wire.Adapter, error) {
		return &fakeAdapter{failAuthWith: &rpcerr.AuthenticationError{Reason: "always fails"}}, nil
	}

	_, err := m.Execute(context.Background(), "res.partner", "read", nil, nil, nil)
	require.Error(t, err)
	var fault *rpcerr.Fault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, StateError, m.State())
}

func TestState_DefaultsToDisconnected(t *testing.T) {
	m := New(Config{NewAdapter: func(p version.Protocol) (wire.Adapter, error) { return nil, nil }})
	assert.Equal(t, StateDisconnected, m.State())
}

func TestExecute_RecordsAdapterSpanWhenTracerConfigured(t *testing.T) {
	provider, err := tracing.NewProvider(context.Background(), tracing.Config{ServiceName: "test", ServiceVersion: "0.0.0"})
	require.NoError(t, err)
	defer provider.Shutdown(context.Background())

	adapter := &fakeAdapter{uid: 5, executeVal: "ok"}
	m := New(Config{
		Credentials:  Credentials{Database: "db", Username: "admin", Password: "secret"},
		HealthWindow: time.Hour,
		ReconnectMax: 3,
		BackoffBase:  time.Millisecond,
		NewAdapter:   func(p version.Protocol) (wire.Adapter, error) { return adapter, nil },
		Tracer:       provider.Tracer("test"),
	})
	require.NoError(t, m.Connect(context.Background(), version.Fallback()))

	v, err := m.Execute(context.Background(), "res.partner", "read", nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}
