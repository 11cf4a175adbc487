package version

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// Protocol identifies which wire adapter the connection should use.
type Protocol string

const (
	ProtocolLegacyXML  Protocol = "legacy-xml"
	ProtocolLegacyJSON Protocol = "legacy-json"
	ProtocolModernREST Protocol = "modern-rest"
)

// SelectProtocol implements the major-version-driven protocol-selection
// table: 14-16 -> legacy-xml, 17-18 -> legacy-json, 19+ -> modern-rest.
func SelectProtocol(v *OdooVersion) Protocol {
	switch {
	case v.Major <= 16:
		return ProtocolLegacyXML
	case v.Major <= 18:
		return ProtocolLegacyJSON
	default:
		return ProtocolModernREST
	}
}

// XMLRPCVersionCaller performs the unauthenticated legacy-XML version() call.
type XMLRPCVersionCaller interface {
	Version(ctx context.Context) (map[string]interface{}, error)
}

// JSONRPCAuthCaller performs the legacy-JSON authenticate call and returns
// the raw session-info payload, which carries server_version.
type JSONRPCAuthCaller interface {
	AuthenticateProbe(ctx context.Context, db, login, password string) (map[string]interface{}, error)
}

// ModuleProber runs an authenticated search_read, used by edition detection
// to check whether the web_enterprise module is installed. Any authenticated
// backend adapter (the legacy-JSON adapter, in practice) satisfies this.
type ModuleProber interface {
	Execute(ctx context.Context, model, method string, args []interface{}, kwargs, callContext map[string]interface{}) (interface{}, error)
}

// Prober runs the three ordered probes described in the specification,
// each with a bounded timeout, and returns the first that succeeds.
type Prober struct {
	XMLRPC     XMLRPCVersionCaller
	JSONRPC    JSONRPCAuthCaller
	HTTPClient *http.Client
	BaseURL    string
	Timeout    time.Duration

	// Modules performs the enterprise-module probe (searching for
	// web_enterprise) when session info didn't already settle the edition.
	// May be nil, in which case edition detection falls straight through to
	// the community-with-warning fallback.
	Modules ModuleProber

	// SessionInfo carries the last authenticated session-info payload seen
	// during probing (e.g. from the JSON-RPC authenticate call), so
	// withEdition can check its is_enterprise flag per the spec's ordering.
	SessionInfo map[string]interface{}

	// Warn receives human-readable warnings emitted during probing
	// (e.g. edition fallback, all-probes-failed). May be nil.
	Warn func(msg string)
}

func (p *Prober) warn(msg string) {
	if p.Warn != nil {
		p.Warn(msg)
	}
}

func (p *Prober) timeout() time.Duration {
	if p.Timeout > 0 {
		return p.Timeout
	}
	return 5 * time.Second
}

// Probe runs all three probes in order and returns the detected version,
// or the version-14 fallback (with a warning) if every probe fails.
func (p *Prober) Probe(ctx context.Context) *OdooVersion {
	if v := p.probeXMLRPC(ctx); v != nil {
		return p.withEdition(ctx, v)
	}
	if v := p.probeJSONRPC(ctx); v != nil {
		return p.withEdition(ctx, v)
	}
	if v := p.probeHTTPLoginPage(ctx); v != nil {
		return p.withEdition(ctx, v)
	}
	p.warn("all version probes failed; assuming Odoo 14 (legacy-xml)")
	return Fallback()
}

func (p *Prober) probeXMLRPC(ctx context.Context) *OdooVersion {
	if p.XMLRPC == nil {
		return nil
	}
	cctx, cancel := context.WithTimeout(ctx, p.timeout())
	defer cancel()

	info, err := p.XMLRPC.Version(cctx)
	if err != nil {
		return nil
	}
	return versionFromInfo(info)
}

func (p *Prober) probeJSONRPC(ctx context.Context) *OdooVersion {
	if p.JSONRPC == nil {
		return nil
	}
	cctx, cancel := context.WithTimeout(ctx, p.timeout())
	defer cancel()

	info, err := p.JSONRPC.AuthenticateProbe(cctx, "", "", "")
	if err != nil {
		return nil
	}
	p.SessionInfo = info
	if sv, ok := info["server_version"]; ok {
		if s, ok := sv.(string); ok {
			if v, err := ParseString(s); err == nil {
				return v
			}
		}
	}
	return versionFromInfo(info)
}

func versionFromInfo(info map[string]interface{}) *OdooVersion {
	if tuple, ok := info["server_version_info"].([]interface{}); ok {
		if v, err := ParseTuple(tuple); err == nil {
			return v
		}
	}
	if s, ok := info["server_version"].(string); ok {
		if v, err := ParseString(s); err == nil {
			return v
		}
	}
	return nil
}

// probeHTTPLoginPage fetches the login page and parses
// <meta name="generator" content="Odoo N">. Versioned asset URLs are not
// parsed; a page without that meta tag yields nil.
func (p *Prober) probeHTTPLoginPage(ctx context.Context) *OdooVersion {
	if p.HTTPClient == nil || p.BaseURL == "" {
		return nil
	}
	cctx, cancel := context.WithTimeout(ctx, p.timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(cctx, http.MethodGet, strings.TrimRight(p.BaseURL, "/")+"/web/login", nil)
	if err != nil {
		return nil
	}
	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil
	}
	return parseLoginPage(body)
}

func parseLoginPage(body []byte) *OdooVersion {
	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return nil
	}

	var found *OdooVersion
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && n.Data == "meta" {
			var name, content string
			for _, a := range n.Attr {
				switch a.Key {
				case "name":
					name = a.Val
				case "content":
					content = a.Val
				}
			}
			if strings.EqualFold(name, "generator") && strings.HasPrefix(content, "Odoo") {
				fields := strings.Fields(content)
				if len(fields) >= 2 {
					if v, err := ParseString(fields[1]); err == nil {
						found = v
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if found != nil {
		return found
	}

	// No version is extracted from static asset URLs: without a generator
	// meta tag the result is nil whether or not /web/assets/ appears.
	if idx := strings.Index(string(body), "/web/assets/"); idx >= 0 {
		return nil
	}
	return nil
}

// withEdition resolves the edition when it wasn't already determined by the
// trailing-"e" string marker: session-info flag first, then a probe for a
// known enterprise module (web_enterprise installed), otherwise community
// with a warning.
func (p *Prober) withEdition(ctx context.Context, v *OdooVersion) *OdooVersion {
	if v.Edition == EditionEnterprise {
		return v
	}

	if isEnterprise, ok := p.SessionInfo["is_enterprise"].(bool); ok && isEnterprise {
		v.Edition = EditionEnterprise
		return v
	}

	if p.probeEnterpriseModule(ctx) {
		v.Edition = EditionEnterprise
		return v
	}

	p.warn(fmt.Sprintf("could not confirm edition for Odoo %s; assuming community", v.FullString))
	v.Edition = EditionCommunity
	return v
}

// probeEnterpriseModule searches for the web_enterprise module in the
// installed state, the same signal the Odoo web client itself relies on to
// tell Community and Enterprise apart once session info doesn't say.
func (p *Prober) probeEnterpriseModule(ctx context.Context) bool {
	if p.Modules == nil {
		return false
	}
	cctx, cancel := context.WithTimeout(ctx, p.timeout())
	defer cancel()

	domain := []interface{}{
		[]interface{}{"name", "=", "web_enterprise"},
		[]interface{}{"state", "=", "installed"},
	}
	kwargs := map[string]interface{}{"fields": []interface{}{"name"}}
	result, err := p.Modules.Execute(cctx, "ir.module.module", "search_read", []interface{}{domain}, kwargs, nil)
	if err != nil {
		return false
	}
	rows, ok := result.([]interface{})
	return ok && len(rows) > 0
}
