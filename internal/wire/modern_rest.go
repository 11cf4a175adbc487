package wire

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/tombee/odoo-mcp-bridge/internal/rpcerr"
)

// ModernRESTAdapter speaks a bearer-token REST dialect against
// /api/v1/{model}/{method}, matching Odoo 19+. The token is stateless: it
// carries no server-side session, so a 401 is never treated as "session
// expired, re-login" the way it is for the two cookie-based protocols —
// there is no password fallback here, ever, regardless of how the
// Connection Manager's tie-break rule reads for the other adapters.
type ModernRESTAdapter struct {
	baseURL string
	client  *http.Client
	base    BaseContext

	mu     sync.RWMutex
	apiKey string
	uid    int
	closed bool
}

type restRequest struct {
	Args   []interface{}          `json:"args,omitempty"`
	Kwargs map[string]interface{} `json:"kwargs,omitempty"`
}

type restEnvelope struct {
	Result interface{}  `json:"result"`
	Error  *restFault   `json:"error"`
}

type restFault struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Model   string `json:"model"`
	Method  string `json:"method"`
}

// NewModernRESTAdapter constructs an adapter targeting baseURL. Unlike the
// two legacy adapters it carries no cookie jar: authentication state lives
// entirely in the bearer token supplied by the caller.
func NewModernRESTAdapter(baseURL string, client *http.Client, base BaseContext) *ModernRESTAdapter {
	if client == nil {
		client = http.DefaultClient
	}
	return &ModernRESTAdapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		base:    base,
	}
}

func (a *ModernRESTAdapter) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, int, error) {
	a.mu.RLock()
	apiKey := a.apiKey
	a.mu.RUnlock()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("modern-rest: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return respBody, resp.StatusCode, nil
}

// Authenticate treats the credential parameter as the bearer API key: the
// modern protocol never negotiates a session, so "authenticating" is just
// validating the key against the whoami endpoint once.
func (a *ModernRESTAdapter) Authenticate(ctx context.Context, db, login, credential string) (int, error) {
	a.mu.Lock()
	a.apiKey = credential
	a.mu.Unlock()

	body, status, err := a.doRequest(ctx, http.MethodGet, "/api/v1/session/whoami", nil)
	if err != nil {
		return 0, err
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return 0, &rpcerr.AuthenticationError{Reason: fmt.Sprintf("bearer token rejected (HTTP %d)", status)}
	}

	var who struct {
		UID interface{} `json:"uid"`
	}
	if err := json.Unmarshal(body, &who); err != nil {
		return 0, fmt.Errorf("modern-rest: invalid whoami payload: %w", err)
	}
	uid, ok := toInt(who.UID)
	if !ok {
		return 0, &rpcerr.AuthenticationError{Reason: "no uid in whoami response"}
	}
	uid, err = classifyAuthFailure(uid, nil)
	if err != nil {
		return 0, err
	}

	a.mu.Lock()
	a.uid = uid
	a.mu.Unlock()
	return uid, nil
}

func (a *ModernRESTAdapter) VersionInfo(ctx context.Context) (map[string]interface{}, error) {
	body, status, err := a.doRequest(ctx, http.MethodGet, "/api/v1/session/whoami", nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return nil, &rpcerr.AuthenticationError{Reason: fmt.Sprintf("bearer token rejected (HTTP %d)", status)}
	}
	var m map[string]interface{}
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("modern-rest: invalid whoami payload: %w", err)
	}
	return m, nil
}

func (a *ModernRESTAdapter) Execute(ctx context.Context, model, method string, args []interface{}, kwargs map[string]interface{}, callContext map[string]interface{}) (interface{}, error) {
	mergedCtx := MergeContext(a.base, callContext)
	kwargsWithCtx := map[string]interface{}{}
	for k, v := range kwargs {
		kwargsWithCtx[k] = v
	}
	kwargsWithCtx["context"] = mergedCtx

	reqBody, err := json.Marshal(restRequest{Args: args, Kwargs: kwargsWithCtx})
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/api/v1/%s/%s", model, method)
	body, status, err := a.doRequest(ctx, http.MethodPost, path, reqBody)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		// Stateless token: a 401 here means the token itself is bad or
		// expired, not that a session lapsed. There is nothing to
		// re-establish and no password to fall back to — the caller must
		// obtain a fresh key out of band.
		return nil, &rpcerr.AuthenticationError{Reason: fmt.Sprintf("bearer token rejected (HTTP %d)", status)}
	}

	var env restEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("modern-rest: invalid response payload: %w", err)
	}
	if env.Error != nil {
		f := &rpcerr.Fault{
			Message:    env.Error.Message,
			ErrorClass: env.Error.Code,
			Model:      model,
			Method:     method,
		}
		return nil, f
	}
	return env.Result, nil
}

func (a *ModernRESTAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	a.apiKey = ""
	a.uid = 0
	return nil
}
