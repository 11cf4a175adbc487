// Package connection implements the Connection Manager: the single owner of
// backend connectivity state, credential negotiation, health checking, and
// reconnection with backoff. Exactly one wire adapter is active at a time.
package connection

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	conductorerrors "github.com/tombee/odoo-mcp-bridge/pkg/errors"

	"github.com/tombee/odoo-mcp-bridge/internal/rpcerr"
	"github.com/tombee/odoo-mcp-bridge/internal/tracing"
	"github.com/tombee/odoo-mcp-bridge/internal/version"
	"github.com/tombee/odoo-mcp-bridge/internal/wire"
)

// State is one of the six states the specification's lifecycle diagram
// names. Transitions are serialized through Manager's mutex; no caller ever
// observes a state that isn't one of these six values.
type State string

const (
	StateDisconnected State = "DISCONNECTED"
	StateConnecting   State = "CONNECTING"
	StateAuthenticated State = "AUTHENTICATED"
	StateReady         State = "READY"
	StateError         State = "ERROR"
	StateReconnecting  State = "RECONNECTING"
)

// Credentials mirrors wire.Credentials plus the tie-break inputs the
// Connection Manager itself needs (which of password/token were supplied).
type Credentials struct {
	Database string
	Username string
	Password string
	APIKey   string
}

// AdapterFactory builds a fresh wire.Adapter for the given protocol, so the
// Manager can reconnect without knowing adapter construction details.
type AdapterFactory func(protocol version.Protocol) (wire.Adapter, error)

// Config bundles the values fixed for a connection's lifetime.
type Config struct {
	Credentials   Credentials
	BaseContext   wire.BaseContext
	HealthWindow  time.Duration // default 5 minutes
	ReconnectMax  int           // default 3
	BackoffBase   time.Duration // default 1s
	NewAdapter    AdapterFactory
	Logger        *slog.Logger
	Tracer        trace.Tracer // optional; nil disables adapter-call spans
}

// Manager owns the active adapter, the detected backend version, and the
// current lifecycle state. All state transitions happen under mu.
type Manager struct {
	cfg Config
	log *slog.Logger

	mu           sync.RWMutex
	state        State
	adapter      wire.Adapter
	protocol     version.Protocol
	backendVer   *version.OdooVersion
	uid          int
	lastActivity time.Time
	lastErr      error

	// ready is closed while state == READY and recreated whenever the
	// manager leaves READY, so callers can block on "wait until ready"
	// during RECONNECTING without polling.
	readyMu sync.Mutex
	ready   chan struct{}
}

// New constructs a Manager in the DISCONNECTED state. It does not connect.
func New(cfg Config) *Manager {
	if cfg.HealthWindow <= 0 {
		cfg.HealthWindow = 5 * time.Minute
	}
	if cfg.ReconnectMax <= 0 {
		cfg.ReconnectMax = 3
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Manager{
		cfg:   cfg,
		log:   cfg.Logger,
		state: StateDisconnected,
		ready: make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// BackendVersion returns the version detected during Connect, or nil before
// a successful connect.
func (m *Manager) BackendVersion() *version.OdooVersion {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.backendVer
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()

	m.readyMu.Lock()
	defer m.readyMu.Unlock()
	if s == StateReady {
		select {
		case <-m.ready:
			m.ready = make(chan struct{})
			close(m.ready)
		default:
			close(m.ready)
		}
	} else {
		select {
		case <-m.ready:
			m.ready = make(chan struct{})
		default:
		}
	}
}

// waitReady blocks until the manager reaches READY or ctx is cancelled.
func (m *Manager) waitReady(ctx context.Context) error {
	m.mu.RLock()
	if m.state == StateReady {
		m.mu.RUnlock()
		return nil
	}
	ch := m.ready
	m.mu.RUnlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Connect selects the wire protocol for the caller-supplied version (it
// does no probing of its own), authenticates using the credential
// tie-break rule, and
// transitions DISCONNECTED -> CONNECTING -> AUTHENTICATED -> READY.
func (m *Manager) Connect(ctx context.Context, detected *version.OdooVersion) error {
	m.setState(StateConnecting)

	protocol := version.SelectProtocol(detected)
	adapter, err := m.cfg.NewAdapter(protocol)
	if err != nil {
		m.fail(err)
		return err
	}

	uid, err := m.authenticate(ctx, adapter, protocol)
	if err != nil {
		_ = adapter.Close()
		m.fail(err)
		return err
	}

	m.mu.Lock()
	m.adapter = adapter
	m.protocol = protocol
	m.backendVer = detected
	m.uid = uid
	m.lastActivity = time.Now()
	m.mu.Unlock()

	m.setState(StateAuthenticated)
	m.setState(StateReady)
	m.log.Info("connection ready", "protocol", protocol, "uid", uid)
	return nil
}

// authenticate implements the credential tie-break rule: token first when
// both are configured; on an auth-shaped failure of the token (never for
// Modern-REST, where the token is mandatory), fall back to password.
func (m *Manager) authenticate(ctx context.Context, adapter wire.Adapter, protocol version.Protocol) (int, error) {
	creds := m.cfg.Credentials

	if creds.APIKey != "" {
		uid, err := adapter.Authenticate(ctx, creds.Database, creds.Username, creds.APIKey)
		if err == nil {
			return uid, nil
		}
		var authErr *rpcerr.AuthenticationError
		if protocol == version.ProtocolModernREST || !conductorerrors.As(err, &authErr) {
			return 0, err
		}
		if creds.Password == "" {
			return 0, err
		}
		m.log.Warn("token authentication failed, falling back to password")
		return adapter.Authenticate(ctx, creds.Database, creds.Username, creds.Password)
	}

	if creds.Password == "" {
		return 0, fmt.Errorf("connection: no credential configured")
	}
	return adapter.Authenticate(ctx, creds.Database, creds.Username, creds.Password)
}

func (m *Manager) fail(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
	m.setState(StateError)
}

// Execute runs a call against the active adapter, transparently handling
// the health-check window and reconnection-with-retry-once semantics.
func (m *Manager) Execute(ctx context.Context, model, method string, args []interface{}, kwargs map[string]interface{}, callCtx map[string]interface{}) (result interface{}, err error) {
	if m.cfg.Tracer != nil {
		var span trace.Span
		ctx, span = tracing.StartAdapterSpan(ctx, m.cfg.Tracer, model, method)
		defer func() { tracing.EndWithError(span, err) }()
	}

	if err := m.waitReady(ctx); err != nil {
		return nil, err
	}

	if err := m.maybeHealthCheck(ctx); err != nil {
		if reconErr := m.reconnect(ctx); reconErr != nil {
			return nil, reconErr
		}
	}

	m.mu.RLock()
	adapter := m.adapter
	m.mu.RUnlock()

	v, err := adapter.Execute(ctx, model, method, args, kwargs, callCtx)
	if err == nil {
		m.touch()
		return v, nil
	}

	if !isConnectionShaped(err) {
		return nil, err
	}

	if reconErr := m.reconnect(ctx); reconErr != nil {
		return nil, reconErr
	}

	m.mu.RLock()
	adapter = m.adapter
	m.mu.RUnlock()
	v, err = adapter.Execute(ctx, model, method, args, kwargs, callCtx)
	if err == nil {
		m.touch()
	}
	return v, err
}

func (m *Manager) touch() {
	m.mu.Lock()
	m.lastActivity = time.Now()
	m.mu.Unlock()
}

// isConnectionShaped decides whether an error should trigger reconnection:
// authentication faults, session-expiry, and a dropped/failed transport
// (every wire adapter wraps its http.Client.Do error, itself a net.Error,
// with %w) all count.
func isConnectionShaped(err error) bool {
	var authErr *rpcerr.AuthenticationError
	if conductorerrors.As(err, &authErr) {
		return true
	}
	var netErr net.Error
	return conductorerrors.As(err, &netErr)
}

// maybeHealthCheck performs the cheapest possible identity check once the
// configured inactivity window has elapsed since the last successful call.
func (m *Manager) maybeHealthCheck(ctx context.Context) error {
	m.mu.RLock()
	last := m.lastActivity
	adapter := m.adapter
	window := m.cfg.HealthWindow
	m.mu.RUnlock()

	if adapter == nil {
		return fmt.Errorf("connection: no active adapter")
	}
	if time.Since(last) < window {
		return nil
	}

	_, err := adapter.VersionInfo(ctx)
	if err != nil {
		m.log.Warn("health check failed", "error", err)
		return err
	}
	m.touch()
	return nil
}

// reconnect transitions to RECONNECTING and retries the connect sequence up
// to ReconnectMax times with exponential backoff (base, 2*base, 4*base...),
// delaying before every attempt including the first so the delay sequence
// matches the documented one exactly rather than skipping straight to a
// retry on the first failure.
// Other callers block on waitReady while this runs.
func (m *Manager) reconnect(ctx context.Context) error {
	m.mu.RLock()
	protocol, backendVer := m.protocol, m.backendVer
	adapter := m.adapter
	m.mu.RUnlock()
	if adapter != nil {
		_ = adapter.Close()
	}

	m.setState(StateReconnecting)

	var lastErr error
	backoff := m.cfg.BackoffBase
	for attempt := 0; attempt < m.cfg.ReconnectMax; attempt++ {
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2

		newAdapter, err := m.cfg.NewAdapter(protocol)
		if err != nil {
			lastErr = err
			continue
		}
		uid, err := m.authenticate(ctx, newAdapter, protocol)
		if err != nil {
			_ = newAdapter.Close()
			lastErr = err
			continue
		}

		m.mu.Lock()
		m.adapter = newAdapter
		m.backendVer = backendVer
		m.uid = uid
		m.lastActivity = time.Now()
		m.mu.Unlock()
		m.setState(StateReady)
		m.log.Info("reconnected", "attempt", attempt+1)
		return nil
	}

	m.fail(lastErr)
	return &rpcerr.Fault{Message: fmt.Sprintf("reconnection exhausted after %d attempts: %v", m.cfg.ReconnectMax, lastErr), ErrorClass: "ConnectionError"}
}

// Close releases the active adapter and moves to DISCONNECTED. Safe to call
// multiple times.
func (m *Manager) Close() error {
	m.mu.Lock()
	adapter := m.adapter
	m.adapter = nil
	m.mu.Unlock()

	m.setState(StateDisconnected)
	if adapter == nil {
		return nil
	}
	return adapter.Close()
}
