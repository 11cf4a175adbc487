// Package config loads the bridge's configuration from CLI flags,
// environment variables, a JSON config file, and compiled defaults, in that
// priority order (highest first), matching the option surface enumerated in
// the specification's external-interfaces section.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	conductorerrors "github.com/tombee/odoo-mcp-bridge/pkg/errors"
)

// Protocol identifies which wire adapter to use.
type Protocol string

const (
	ProtocolAuto       Protocol = "auto"
	ProtocolLegacyXML  Protocol = "legacy-xml"
	ProtocolLegacyJSON Protocol = "legacy-json"
	ProtocolModernREST Protocol = "modern-rest"
)

// SafetyMode is the Safety Gate's enforcement mode.
type SafetyMode string

const (
	ModeReadonly   SafetyMode = "readonly"
	ModeRestricted SafetyMode = "restricted"
	ModeFull       SafetyMode = "full"
)

// TransportKind selects the MCP transport.
type TransportKind string

const (
	TransportStdio     TransportKind = "stdio"
	TransportSSE       TransportKind = "sse"
	TransportStreamHTTP TransportKind = "http"
)

// Config is the complete, resolved bridge configuration.
type Config struct {
	Connection ConnectionConfig `json:"connection"`
	Transport  TransportConfig  `json:"transport"`
	Safety     SafetyConfig     `json:"safety"`
	Toolsets   ToolsetsConfig   `json:"toolsets"`
	Registry   RegistryConfig   `json:"registry"`
	RateLimit  RateLimitConfig  `json:"rate_limits"`
	Audit      AuditConfig      `json:"audit"`
	Backend    BackendContext   `json:"backend_context"`
	Search     SearchConfig     `json:"search"`
	Display    DisplayConfig    `json:"display"`
	Logging    LoggingConfig    `json:"logging"`
	Health     HealthConfig     `json:"health"`
}

type ConnectionConfig struct {
	URL        string   `json:"url"`
	Database   string   `json:"database"`
	Username   string   `json:"username"`
	Password   string   `json:"password"`
	APIKey     string   `json:"api_key"`
	Protocol   Protocol `json:"protocol"`
	Timeout    int      `json:"timeout_seconds"`
	VerifySSL  bool     `json:"verify_ssl"`
	CACert     string   `json:"ca_cert"`
}

type TransportConfig struct {
	Kind TransportKind `json:"kind"`
	Host string        `json:"host"`
	Port int           `json:"port"`
	Path string        `json:"path"`
}

type SafetyConfig struct {
	Mode           SafetyMode `json:"mode"`
	ModelAllowlist []string   `json:"model_allowlist"`
	ModelBlocklist []string   `json:"model_blocklist"`
	WriteAllowlist []string   `json:"write_allowlist"`
	FieldBlocklist []string   `json:"field_blocklist"`
	MethodBlocklist []string  `json:"method_blocklist"`
}

type ToolsetsConfig struct {
	Enabled  []string `json:"enabled"`
	Disabled []string `json:"disabled"`
}

type RegistryConfig struct {
	StaticPath          string   `json:"static_path"`
	IntrospectOnStartup bool     `json:"introspect_on_startup"`
	IntrospectModels    []string `json:"introspect_models"`
}

type RateLimitConfig struct {
	Enabled  bool `json:"enabled"`
	RPM      int  `json:"rpm"`
	RPH      int  `json:"rph"`
	Burst    int  `json:"burst"`
	ReadRPM  int  `json:"read_rpm"`
	WriteRPM int  `json:"write_rpm"`
}

type AuditConfig struct {
	Enabled   bool   `json:"enabled"`
	File      string `json:"file"`
	LogReads  bool   `json:"log_reads"`
	LogWrites bool   `json:"log_writes"`
	LogDeletes bool  `json:"log_deletes"`
}

type BackendContext struct {
	Lang        string  `json:"lang"`
	TZ          string  `json:"tz"`
	CompanyID   int     `json:"company_id"`
	CompanyIDs  []int   `json:"company_ids"`
}

type SearchConfig struct {
	DefaultLimit    int `json:"default_limit"`
	MaxLimit        int `json:"max_limit"`
	DeepSearchDepth int `json:"deep_search_depth"`
}

type DisplayConfig struct {
	StripHTML          bool `json:"strip_html"`
	NormalizeRelational bool `json:"normalize_relational"`
}

type LoggingConfig struct {
	Level string `json:"level"`
}

type HealthConfig struct {
	CheckInterval time.Duration `json:"check_interval"`
	ReconnectMax  int           `json:"reconnect_max"`
	BackoffBase   time.Duration `json:"backoff_base"`
}

// Defaults returns the compiled-in default configuration.
func Defaults() *Config {
	return &Config{
		Connection: ConnectionConfig{
			Protocol:  ProtocolAuto,
			Timeout:   30,
			VerifySSL: true,
		},
		Transport: TransportConfig{
			Kind: TransportStdio,
			Host: "127.0.0.1",
			Port: 8931,
			Path: "/mcp",
		},
		Safety: SafetyConfig{
			Mode: ModeRestricted,
		},
		Registry: RegistryConfig{
			IntrospectOnStartup: true,
		},
		RateLimit: RateLimitConfig{
			Enabled:  true,
			RPM:      120,
			RPH:      3000,
			Burst:    20,
			ReadRPM:  100,
			WriteRPM: 20,
		},
		Audit: AuditConfig{
			Enabled:  true,
			LogReads: false,
			LogWrites: true,
			LogDeletes: true,
		},
		Backend: BackendContext{
			Lang: "en_US",
			TZ:   "UTC",
		},
		Search: SearchConfig{
			DefaultLimit:    80,
			MaxLimit:        500,
			DeepSearchDepth: 5,
		},
		Display: DisplayConfig{
			StripHTML:           true,
			NormalizeRelational: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Health: HealthConfig{
			CheckInterval: 5 * time.Minute,
			ReconnectMax:  3,
			BackoffBase:   1 * time.Second,
		},
	}
}

// FileOverlay is the shape of the optional JSON config file. Only the
// fields present are applied — absent fields fall through to whatever
// precedence layer already set them.
type FileOverlay struct {
	Connection *ConnectionConfig `json:"connection,omitempty"`
	Transport  *TransportConfig  `json:"transport,omitempty"`
	Safety     *SafetyConfig     `json:"safety,omitempty"`
	Toolsets   *ToolsetsConfig   `json:"toolsets,omitempty"`
	Registry   *RegistryConfig   `json:"registry,omitempty"`
	RateLimit  *RateLimitConfig  `json:"rate_limits,omitempty"`
	Audit      *AuditConfig      `json:"audit,omitempty"`
	Backend    *BackendContext   `json:"backend_context,omitempty"`
	Search     *SearchConfig     `json:"search,omitempty"`
	Display    *DisplayConfig    `json:"display,omitempty"`
	Logging    *LoggingConfig    `json:"logging,omitempty"`
	Health     *HealthConfig     `json:"health,omitempty"`
}

// Load resolves configuration with priority CLI > environment > JSON file >
// defaults. cliOverrides may be nil; when non-nil, any non-zero field wins
// over environment and file values (flag.Visit-style "was this set"
// semantics are the caller's responsibility — main.go only populates the
// fields the user actually passed).
func Load(configPath string, cliOverrides *FileOverlay) (*Config, error) {
	cfg := Defaults()

	if configPath != "" {
		if err := loadFile(configPath, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if cliOverrides != nil {
		applyOverlay(cfg, cliOverrides)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile decodes the JSON file straight into cfg's sections, so a field
// the file leaves out keeps the value already in cfg.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &conductorerrors.ConfigError{Key: "path", Reason: "cannot read config file", Cause: err}
	}
	overlay := FileOverlay{
		Connection: &cfg.Connection, Transport: &cfg.Transport, Safety: &cfg.Safety,
		Toolsets: &cfg.Toolsets, Registry: &cfg.Registry, RateLimit: &cfg.RateLimit,
		Audit: &cfg.Audit, Backend: &cfg.Backend, Search: &cfg.Search,
		Display: &cfg.Display, Logging: &cfg.Logging, Health: &cfg.Health,
	}
	if err := json.Unmarshal(data, &overlay); err != nil {
		return &conductorerrors.ConfigError{Key: path, Reason: "invalid JSON", Cause: err}
	}
	return nil
}

func applyOverlay(cfg *Config, o *FileOverlay) {
	if o == nil {
		return
	}
	if o.Connection != nil {
		cfg.Connection = *o.Connection
	}
	if o.Transport != nil {
		cfg.Transport = *o.Transport
	}
	if o.Safety != nil {
		cfg.Safety = *o.Safety
	}
	if o.Toolsets != nil {
		cfg.Toolsets = *o.Toolsets
	}
	if o.Registry != nil {
		cfg.Registry = *o.Registry
	}
	if o.RateLimit != nil {
		cfg.RateLimit = *o.RateLimit
	}
	if o.Audit != nil {
		cfg.Audit = *o.Audit
	}
	if o.Backend != nil {
		cfg.Backend = *o.Backend
	}
	if o.Search != nil {
		cfg.Search = *o.Search
	}
	if o.Display != nil {
		cfg.Display = *o.Display
	}
	if o.Logging != nil {
		cfg.Logging = *o.Logging
	}
	if o.Health != nil {
		cfg.Health = *o.Health
	}
}

// applyEnv overlays environment variables onto cfg. List options accept
// comma-separated strings; booleans accept true/1/yes and false/0/no.
func applyEnv(cfg *Config) {
	str(&cfg.Connection.URL, "ODOO_URL")
	str(&cfg.Connection.Database, "ODOO_DATABASE")
	str(&cfg.Connection.Username, "ODOO_USERNAME")
	str(&cfg.Connection.Password, "ODOO_PASSWORD")
	str(&cfg.Connection.APIKey, "ODOO_API_KEY")
	if v := os.Getenv("ODOO_PROTOCOL"); v != "" {
		cfg.Connection.Protocol = Protocol(v)
	}
	intv(&cfg.Connection.Timeout, "ODOO_TIMEOUT")
	boolv(&cfg.Connection.VerifySSL, "ODOO_VERIFY_SSL")
	str(&cfg.Connection.CACert, "ODOO_CA_CERT")

	if v := os.Getenv("ODOO_MCP_TRANSPORT"); v != "" {
		cfg.Transport.Kind = TransportKind(v)
	}
	str(&cfg.Transport.Host, "ODOO_MCP_HOST")
	intv(&cfg.Transport.Port, "ODOO_MCP_PORT")
	str(&cfg.Transport.Path, "ODOO_MCP_PATH")

	if v := os.Getenv("ODOO_SAFETY_MODE"); v != "" {
		cfg.Safety.Mode = SafetyMode(v)
	}
	list(&cfg.Safety.ModelAllowlist, "ODOO_MODEL_ALLOWLIST")
	list(&cfg.Safety.ModelBlocklist, "ODOO_MODEL_BLOCKLIST")
	list(&cfg.Safety.WriteAllowlist, "ODOO_WRITE_ALLOWLIST")
	list(&cfg.Safety.FieldBlocklist, "ODOO_FIELD_BLOCKLIST")
	list(&cfg.Safety.MethodBlocklist, "ODOO_METHOD_BLOCKLIST")

	list(&cfg.Toolsets.Enabled, "ODOO_TOOLSETS_ENABLED")
	list(&cfg.Toolsets.Disabled, "ODOO_TOOLSETS_DISABLED")

	str(&cfg.Registry.StaticPath, "ODOO_REGISTRY_STATIC_PATH")
	boolv(&cfg.Registry.IntrospectOnStartup, "ODOO_REGISTRY_INTROSPECT")
	list(&cfg.Registry.IntrospectModels, "ODOO_REGISTRY_MODELS")

	boolv(&cfg.RateLimit.Enabled, "ODOO_RATE_LIMIT_ENABLED")
	intv(&cfg.RateLimit.RPM, "ODOO_RATE_LIMIT_RPM")
	intv(&cfg.RateLimit.RPH, "ODOO_RATE_LIMIT_RPH")
	intv(&cfg.RateLimit.Burst, "ODOO_RATE_LIMIT_BURST")
	intv(&cfg.RateLimit.ReadRPM, "ODOO_RATE_LIMIT_READ_RPM")
	intv(&cfg.RateLimit.WriteRPM, "ODOO_RATE_LIMIT_WRITE_RPM")

	boolv(&cfg.Audit.Enabled, "ODOO_AUDIT_ENABLED")
	str(&cfg.Audit.File, "ODOO_AUDIT_FILE")
	boolv(&cfg.Audit.LogReads, "ODOO_AUDIT_LOG_READS")
	boolv(&cfg.Audit.LogWrites, "ODOO_AUDIT_LOG_WRITES")
	boolv(&cfg.Audit.LogDeletes, "ODOO_AUDIT_LOG_DELETES")

	str(&cfg.Backend.Lang, "ODOO_LANG")
	str(&cfg.Backend.TZ, "ODOO_TZ")
	intv(&cfg.Backend.CompanyID, "ODOO_COMPANY_ID")
	intList(&cfg.Backend.CompanyIDs, "ODOO_COMPANY_IDS")

	intv(&cfg.Search.DefaultLimit, "ODOO_SEARCH_DEFAULT_LIMIT")
	intv(&cfg.Search.MaxLimit, "ODOO_SEARCH_MAX_LIMIT")
	intv(&cfg.Search.DeepSearchDepth, "ODOO_SEARCH_DEEP_DEPTH")

	boolv(&cfg.Display.StripHTML, "ODOO_DISPLAY_STRIP_HTML")
	boolv(&cfg.Display.NormalizeRelational, "ODOO_DISPLAY_NORMALIZE_RELATIONAL")

	str(&cfg.Logging.Level, "ODOO_MCP_LOG_LEVEL")
}

func str(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func intv(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func list(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = splitList(v)
	}
}

func intList(dst *[]int, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	parts := splitList(v)
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		if n, err := strconv.Atoi(p); err == nil {
			out = append(out, n)
		}
	}
	*dst = out
}

func boolv(dst *bool, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if b, ok := parseBool(v); ok {
		*dst = b
	}
}

// splitList splits a comma-separated environment or config value, trimming
// whitespace and dropping empty elements.
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseBool accepts true/1/yes and false/0/no (case-insensitive).
func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true, true
	case "false", "0", "no":
		return false, true
	default:
		return false, false
	}
}

// Validate checks structural invariants that must hold before startup
// proceeds. Configuration validation failures are fatal per the
// specification's exit-code contract.
func Validate(cfg *Config) error {
	if cfg.Connection.URL == "" {
		return &conductorerrors.ConfigError{Key: "connection.url", Reason: "backend URL is required"}
	}
	if cfg.Connection.Database == "" {
		return &conductorerrors.ConfigError{Key: "connection.database", Reason: "database name is required"}
	}
	switch cfg.Connection.Protocol {
	case ProtocolAuto, ProtocolLegacyXML, ProtocolLegacyJSON, ProtocolModernREST:
	default:
		return &conductorerrors.ConfigError{Key: "connection.protocol", Reason: fmt.Sprintf("unknown protocol %q", cfg.Connection.Protocol)}
	}
	switch cfg.Safety.Mode {
	case ModeReadonly, ModeRestricted, ModeFull:
	default:
		return &conductorerrors.ConfigError{Key: "safety.mode", Reason: fmt.Sprintf("unknown mode %q", cfg.Safety.Mode)}
	}
	if len(cfg.Safety.ModelAllowlist) > 0 && len(cfg.Safety.ModelBlocklist) > 0 {
		return &conductorerrors.ConfigError{Key: "safety", Reason: "model_allowlist and model_blocklist cannot both be non-empty"}
	}
	if len(cfg.Safety.ModelAllowlist) > 0 && len(cfg.Safety.WriteAllowlist) > 0 {
		allowed := make(map[string]bool, len(cfg.Safety.ModelAllowlist))
		for _, m := range cfg.Safety.ModelAllowlist {
			allowed[m] = true
		}
		for _, m := range cfg.Safety.WriteAllowlist {
			if !allowed[m] {
				return &conductorerrors.ConfigError{Key: "safety.write_allowlist", Reason: fmt.Sprintf("model %q must also be in model_allowlist", m)}
			}
		}
	}
	switch cfg.Transport.Kind {
	case TransportStdio, TransportSSE, TransportStreamHTTP:
	default:
		return &conductorerrors.ConfigError{Key: "transport.kind", Reason: fmt.Sprintf("unknown transport %q", cfg.Transport.Kind)}
	}
	return nil
}
