package wire

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"

	"github.com/tombee/odoo-mcp-bridge/internal/rpcerr"
)

// LegacyJSONAdapter speaks JSON-RPC 2.0 against /web/session/authenticate
// and /web/dataset/call_kw/{model}/{method}, matching Odoo 17-18. The
// session is a cookie established at authenticate time and carried across
// calls by the adapter's own cookie jar.
type LegacyJSONAdapter struct {
	baseURL string
	client  *http.Client
	base    BaseContext

	mu     sync.RWMutex
	uid    int
	db     string
	login  string
	pass   string
	closed bool
}

type jsonrpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int         `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

type jsonrpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *jsonrpcError   `json:"error"`
}

type jsonrpcError struct {
	Code    int                    `json:"code"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
}

// NewLegacyJSONAdapter constructs an adapter with its own cookie jar so
// re-authentication can simply overwrite the stored session cookie.
func NewLegacyJSONAdapter(baseURL string, base BaseContext) (*LegacyJSONAdapter, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &LegacyJSONAdapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Jar: jar},
		base:    base,
	}, nil
}

func (a *LegacyJSONAdapter) post(ctx context.Context, path string, params interface{}) (json.RawMessage, error) {
	reqBody := jsonrpcRequest{JSONRPC: "2.0", ID: 1, Method: "call", Params: params}
	buf, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("legacy-json: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &rpcerr.AuthenticationError{Reason: fmt.Sprintf("session expired (HTTP %d)", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var rpcResp jsonrpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return nil, fmt.Errorf("legacy-json: invalid response body: %w", err)
	}
	if rpcResp.Error != nil {
		// error code 100 is Odoo's own session-expired signal, distinct
		// from a transport-level 401/403.
		if rpcResp.Error.Code == 100 {
			return nil, &rpcerr.AuthenticationError{Reason: "session expired (code 100)"}
		}
		f := jsonRPCErrorToFault(rpcResp.Error)
		return nil, f
	}
	return rpcResp.Result, nil
}

func jsonRPCErrorToFault(e *jsonrpcError) *rpcerr.Fault {
	f := &rpcerr.Fault{Message: e.Message}
	if e.Data != nil {
		if name, ok := e.Data["name"].(string); ok {
			f.ErrorClass = name
		}
		if tb, ok := e.Data["debug"].(string); ok {
			f.Traceback = tb
			if parsed := rpcerr.ParseTraceback(tb); parsed.ErrorClass != "" {
				f.ErrorClass = parsed.ErrorClass
				f.Message = parsed.Message
			}
		}
		if msg, ok := e.Data["message"].(string); ok && msg != "" {
			f.Message = msg
		}
	}
	return f
}

func (a *LegacyJSONAdapter) Authenticate(ctx context.Context, db, login, credential string) (int, error) {
	params := map[string]interface{}{"db": db, "login": login, "password": credential}
	raw, err := a.post(ctx, "/web/session/authenticate", params)
	if err != nil {
		return 0, err
	}

	var info struct {
		UID interface{} `json:"uid"`
	}
	if err := json.Unmarshal(raw, &info); err != nil {
		return 0, fmt.Errorf("legacy-json: invalid session-info payload: %w", err)
	}

	uid, ok := toInt(info.UID)
	if !ok {
		return 0, &rpcerr.AuthenticationError{Reason: "no uid in session info"}
	}
	uid, err = classifyAuthFailure(uid, nil)
	if err != nil {
		return 0, err
	}

	a.mu.Lock()
	a.uid, a.db, a.login, a.pass = uid, db, login, credential
	a.mu.Unlock()
	return uid, nil
}

// AuthenticateProbe implements version.JSONRPCAuthCaller for the Version
// Prober's second probe: authenticate and read the raw session-info map.
func (a *LegacyJSONAdapter) AuthenticateProbe(ctx context.Context, db, login, password string) (map[string]interface{}, error) {
	params := map[string]interface{}{"db": db, "login": login, "password": password}
	raw, err := a.post(ctx, "/web/session/authenticate", params)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func (a *LegacyJSONAdapter) VersionInfo(ctx context.Context) (map[string]interface{}, error) {
	a.mu.RLock()
	db, login, pass := a.db, a.login, a.pass
	a.mu.RUnlock()
	return a.AuthenticateProbe(ctx, db, login, pass)
}

func (a *LegacyJSONAdapter) Execute(ctx context.Context, model, method string, args []interface{}, kwargs map[string]interface{}, callContext map[string]interface{}) (interface{}, error) {
	mergedCtx := MergeContext(a.base, callContext)
	kwargsWithCtx := map[string]interface{}{}
	for k, v := range kwargs {
		kwargsWithCtx[k] = v
	}
	kwargsWithCtx["context"] = mergedCtx

	if args == nil {
		args = []interface{}{}
	}

	params := map[string]interface{}{
		"model":  model,
		"method": method,
		"args":   args,
		"kwargs": kwargsWithCtx,
	}

	raw, err := a.post(ctx, fmt.Sprintf("/web/dataset/call_kw/%s/%s", model, method), params)
	if err != nil {
		if authErr, ok := err.(*rpcerr.AuthenticationError); ok {
			// The adapter neither re-authenticates nor retries: the
			// session error goes back to the Connection Manager, which
			// decides whether to log in again and retry the call.
			return nil, authErr
		}
		if fault, ok := err.(*rpcerr.Fault); ok {
			return nil, fault.WithCall(model, method)
		}
		return nil, err
	}

	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("legacy-json: invalid result payload: %w", err)
	}
	return v, nil
}

func (a *LegacyJSONAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	a.uid = 0
	return nil
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case bool:
		return 0, false
	default:
		return 0, false
	}
}
