package wire

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/tombee/odoo-mcp-bridge/internal/rpcerr"
)

// LegacyXMLAdapter speaks XML-RPC against /xmlrpc/2/common and
// /xmlrpc/2/object, matching Odoo 14-16. Credentials are a uid+secret pair
// resent on every call (no server-side session). The underlying transport
// is synchronous, so every call is dispatched through a worker pool to keep
// it from blocking anything else in the process.
type LegacyXMLAdapter struct {
	baseURL string
	client  *http.Client
	pool    *blockingPool

	mu   sync.RWMutex
	uid  int
	db   string
	pass string
	base BaseContext
	closed bool
}

// NewLegacyXMLAdapter constructs an adapter targeting baseURL. base is the
// immutable per-connection context merged into every Execute call.
func NewLegacyXMLAdapter(baseURL string, client *http.Client, base BaseContext) *LegacyXMLAdapter {
	if client == nil {
		client = http.DefaultClient
	}
	return &LegacyXMLAdapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		pool:    newBlockingPool(4),
		base:    base,
	}
}

func (a *LegacyXMLAdapter) call(ctx context.Context, endpoint, method string, args []interface{}) (interface{}, error) {
	return a.pool.submit(ctx, func() (interface{}, error) {
		body, err := encodeCall(method, args)
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "text/xml")

		resp, err := a.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("legacy-xml: request failed: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		value, fault, err := decodeResponse(respBody)
		if err != nil {
			return nil, err
		}
		if fault != nil {
			return nil, faultToFault(fault)
		}
		return value, nil
	})
}

// Version calls the unauthenticated common.version() RPC (used by the
// Version Prober's first probe).
func (a *LegacyXMLAdapter) Version(ctx context.Context) (map[string]interface{}, error) {
	v, err := a.call(ctx, "/xmlrpc/2/common", "version", nil)
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("legacy-xml: unexpected version() response type %T", v)
	}
	return m, nil
}

func (a *LegacyXMLAdapter) VersionInfo(ctx context.Context) (map[string]interface{}, error) {
	return a.Version(ctx)
}

func (a *LegacyXMLAdapter) Authenticate(ctx context.Context, db, login, credential string) (int, error) {
	v, err := a.call(ctx, "/xmlrpc/2/common", "authenticate", []interface{}{db, login, credential, map[string]interface{}{}})
	if err != nil {
		return 0, err
	}
	uidF, ok := v.(int64)
	if !ok {
		return 0, &rpcerr.AuthenticationError{Reason: "unexpected authenticate() response type"}
	}
	uid, err := classifyAuthFailure(int(uidF), nil)
	if err != nil {
		return 0, err
	}
	a.mu.Lock()
	a.uid, a.db, a.pass = uid, db, credential
	a.mu.Unlock()
	return uid, nil
}

func (a *LegacyXMLAdapter) Execute(ctx context.Context, model, method string, args []interface{}, kwargs map[string]interface{}, callContext map[string]interface{}) (interface{}, error) {
	a.mu.RLock()
	uid, db, pass := a.uid, a.db, a.pass
	a.mu.RUnlock()

	if uid == 0 {
		return nil, &rpcerr.AuthenticationError{Reason: "not authenticated"}
	}

	mergedCtx := MergeContext(a.base, callContext)
	kwargsWithCtx := map[string]interface{}{}
	for k, v := range kwargs {
		kwargsWithCtx[k] = v
	}
	kwargsWithCtx["context"] = mergedCtx

	callArgs := []interface{}{db, uid, pass, model, method, args, kwargsWithCtx}
	v, err := a.call(ctx, "/xmlrpc/2/object", "execute_kw", callArgs)
	if err != nil {
		if fault, ok := err.(*rpcerr.Fault); ok {
			// Any auth-shaped fault on this synchronous protocol signals
			// session loss implicitly: the uid/secret pair itself was
			// rejected. Re-authentication is the Connection Manager's job.
			return nil, fault.WithCall(model, method)
		}
		return nil, err
	}
	return v, nil
}

func (a *LegacyXMLAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	a.uid = 0
	a.pool.close()
	return nil
}
