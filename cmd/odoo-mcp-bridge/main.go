package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tombee/odoo-mcp-bridge/internal/classify"
	"github.com/tombee/odoo-mcp-bridge/internal/config"
	"github.com/tombee/odoo-mcp-bridge/internal/connection"
	"github.com/tombee/odoo-mcp-bridge/internal/coretoolset"
	"github.com/tombee/odoo-mcp-bridge/internal/log"
	"github.com/tombee/odoo-mcp-bridge/internal/mcpserver"
	"github.com/tombee/odoo-mcp-bridge/internal/registry"
	"github.com/tombee/odoo-mcp-bridge/internal/resource"
	"github.com/tombee/odoo-mcp-bridge/internal/safety"
	"github.com/tombee/odoo-mcp-bridge/internal/search"
	"github.com/tombee/odoo-mcp-bridge/internal/toolset"
	"github.com/tombee/odoo-mcp-bridge/internal/tracing"
	"github.com/tombee/odoo-mcp-bridge/internal/tools"
	"github.com/tombee/odoo-mcp-bridge/internal/version"
	"github.com/tombee/odoo-mcp-bridge/internal/wire"
	"github.com/tombee/odoo-mcp-bridge/internal/wizard"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to a JSON config file")
		odooURL     = flag.String("url", "", "Odoo base URL")
		odooDB      = flag.String("database", "", "Odoo database name")
		odooUser    = flag.String("username", "", "Odoo username")
		odooPass    = flag.String("password", "", "Odoo password")
		odooAPIKey  = flag.String("api-key", "", "Odoo API key, used instead of password")
		safetyMode  = flag.String("safety-mode", "", "Safety mode: readonly, restricted, full")
		metricsAddr = flag.String("metrics-addr", "", "Address to serve Prometheus metrics on, empty disables it")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("odoo-mcp-bridge %s (commit: %s, built: %s)\n", buildVersion, buildCommit, buildDate)
		os.Exit(0)
	}

	logger := log.New(log.DefaultConfig())
	slog.SetDefault(logger)

	overrides := &config.FileOverlay{}
	var connOverride config.ConnectionConfig
	var connChanged bool
	if *odooURL != "" {
		connOverride.URL = *odooURL
		connChanged = true
	}
	if *odooDB != "" {
		connOverride.Database = *odooDB
		connChanged = true
	}
	if *odooUser != "" {
		connOverride.Username = *odooUser
		connChanged = true
	}
	if *odooPass != "" {
		connOverride.Password = *odooPass
		connChanged = true
	}
	if *odooAPIKey != "" {
		connOverride.APIKey = *odooAPIKey
		connChanged = true
	}
	if connChanged {
		overrides.Connection = &connOverride
	}
	if *safetyMode != "" {
		overrides.Safety = &config.SafetyConfig{Mode: config.SafetyMode(*safetyMode)}
	}

	cfg, err := config.Load(*configPath, overrides)
	if err != nil {
		logger.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger = log.New(&log.Config{Level: cfg.Logging.Level, Format: log.FormatJSON, Output: os.Stderr})
	slog.SetDefault(logger)

	if watcher, err := config.WarnOnChange(*configPath, logger); err != nil {
		logger.Warn("failed to watch config file for changes", slog.Any("error", err))
	} else {
		defer watcher.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx, cfg, logger, *metricsAddr); err != nil {
		logger.Error("odoo-mcp-bridge exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, metricsAddr string) error {
	tracingProvider, err := tracing.NewProvider(ctx, tracing.Config{
		Enabled:        false,
		ServiceName:    "odoo-mcp-bridge",
		ServiceVersion: buildVersion,
	})
	if err != nil {
		return fmt.Errorf("build tracing provider: %w", err)
	}
	defer tracingProvider.Shutdown(context.Background())

	httpClient, err := buildHTTPClient(cfg.Connection)
	if err != nil {
		return fmt.Errorf("build HTTP client: %w", err)
	}

	baseCtx := wire.BaseContext{
		"lang": cfg.Backend.Lang,
		"tz":   cfg.Backend.TZ,
	}
	if cfg.Backend.CompanyID != 0 {
		baseCtx["allowed_company_ids"] = cfg.Backend.CompanyIDs
	}

	newAdapter := func(protocol version.Protocol) (wire.Adapter, error) {
		switch protocol {
		case version.ProtocolLegacyXML:
			return wire.NewLegacyXMLAdapter(cfg.Connection.URL, httpClient, baseCtx), nil
		case version.ProtocolLegacyJSON:
			return wire.NewLegacyJSONAdapter(cfg.Connection.URL, baseCtx)
		case version.ProtocolModernREST:
			return wire.NewModernRESTAdapter(cfg.Connection.URL, httpClient, baseCtx), nil
		default:
			return nil, fmt.Errorf("unknown protocol %q", protocol)
		}
	}

	detected, err := detectVersion(ctx, cfg, httpClient, baseCtx)
	if err != nil {
		return fmt.Errorf("probe backend version: %w", err)
	}
	logger.Info("detected backend version", slog.Int("major", detected.Major), slog.Int("minor", detected.Minor))

	mgr := connection.New(connection.Config{
		Credentials: connection.Credentials{
			Database: cfg.Connection.Database,
			Username: cfg.Connection.Username,
			Password: cfg.Connection.Password,
			APIKey:   cfg.Connection.APIKey,
		},
		BaseContext: baseCtx,
		NewAdapter:  newAdapter,
		Logger:      logger,
		Tracer:      tracingProvider.Tracer("odoo-mcp-bridge/connection"),
	})
	if err := mgr.Connect(ctx, detected); err != nil {
		return fmt.Errorf("connect to backend: %w", err)
	}

	reg, err := buildRegistry(ctx, cfg, mgr, detected, logger)
	if err != nil {
		return fmt.Errorf("build model registry: %w", err)
	}

	policy := safety.NewPolicy(
		safety.Mode(cfg.Safety.Mode),
		cfg.Safety.ModelAllowlist,
		cfg.Safety.ModelBlocklist,
		cfg.Safety.WriteAllowlist,
		cfg.Safety.FieldBlocklist,
		cfg.Safety.MethodBlocklist,
	)

	limiter := safety.NewRateLimiter(safety.RateLimitConfig{
		ReadRPM:  cfg.RateLimit.ReadRPM,
		WriteRPM: cfg.RateLimit.WriteRPM,
		Burst:    cfg.RateLimit.Burst,
	})

	var audit *safety.AuditWriter
	if cfg.Audit.Enabled {
		audit, err = safety.NewAuditWriter(safety.AuditConfig{
			File:       cfg.Audit.File,
			LogReads:   cfg.Audit.LogReads,
			LogWrites:  cfg.Audit.LogWrites,
			LogDeletes: cfg.Audit.LogDeletes,
		}, logger)
		if err != nil {
			return fmt.Errorf("build audit writer: %w", err)
		}
	}

	classifier := classify.New()
	executor := tools.NewExecutor(mgr, reg, policy, classifier, limiter, audit)
	searchEngine := search.NewEngine(executor, reg, nil)
	wizardExecutor := wizard.NewExecutor(executor, reg, nil)
	core := coretoolset.New(executor, searchEngine, wizardExecutor, reg)

	installedMods, err := (&connection.Introspector{Manager: mgr}).InstalledModules(ctx)
	if err != nil {
		logger.Warn("failed to list installed modules, toolset gating will assume none installed", slog.Any("error", err))
	}

	report, err := toolset.Register(
		[]toolset.Toolset{core},
		toolset.BackendFacts{InstalledModules: installedMods, Major: detected.Major},
		toolset.FilterConfig{Enabled: cfg.Toolsets.Enabled, Disabled: cfg.Toolsets.Disabled},
	)
	if err != nil {
		return fmt.Errorf("register toolsets: %w", err)
	}

	activeProtocol := version.SelectProtocol(detected)
	systemInfo := func() resource.SystemInfo {
		return resource.SystemInfo{
			BackendMajor: detected.Major,
			Protocol:     string(activeProtocol),
			SafetyMode:   string(cfg.Safety.Mode),
		}
	}
	resourceEngine := resource.NewEngine(executor, reg, policy, installedMods, systemInfo, func() *toolset.Report { return report })

	host := mcpserver.New(mcpserver.Config{
		Name:                "odoo-mcp-bridge",
		Version:             buildVersion,
		ResourceSubscribe:   false,
		ResourceListChanged: false,
		PromptListChanged:   false,
	}, logger, tracingProvider, resourceEngine, nil)

	host.SetSubscriptionManager(resource.NewSubscriptionManager(resourceEngine, host.Notifier(), 0))

	coreDefs, err := core.ToolDefs()
	if err != nil {
		return fmt.Errorf("build core toolset definitions: %w", err)
	}
	host.RegisterCoreToolset(coreDefs)
	host.RegisterListToolsetsTool(func() *toolset.Report { return report })
	host.RegisterResources()
	host.RegisterPrompts()

	if metricsAddr != "" {
		go serveMetrics(metricsAddr, logger)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- host.Run(ctx)
	}()

	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", slog.String("signal", sig.String()))
		if err := host.Shutdown(context.Background()); err != nil {
			logger.Error("error during shutdown", slog.Any("error", err))
		}
		if err := mgr.Close(); err != nil {
			logger.Error("error closing connection", slog.Any("error", err))
		}
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("mcp server host: %w", err)
		}
	}
	return nil
}

func serveMetrics(addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info("serving metrics", slog.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", slog.Any("error", err))
	}
}

func buildHTTPClient(cfg config.ConnectionConfig) (*http.Client, error) {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	tlsCfg := &tls.Config{InsecureSkipVerify: !cfg.VerifySSL}
	if cfg.CACert != "" {
		pem, err := os.ReadFile(cfg.CACert)
		if err != nil {
			return nil, fmt.Errorf("read CA cert: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", cfg.CACert)
		}
		tlsCfg.RootCAs = pool
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: &http.Transport{TLSClientConfig: tlsCfg},
	}, nil
}

func detectVersion(ctx context.Context, cfg *config.Config, httpClient *http.Client, baseCtx wire.BaseContext) (*version.OdooVersion, error) {
	if cfg.Connection.Protocol != config.ProtocolAuto {
		return protocolToVersion(cfg.Connection.Protocol), nil
	}

	xmlAdapter := wire.NewLegacyXMLAdapter(cfg.Connection.URL, httpClient, baseCtx)
	jsonAdapter, err := wire.NewLegacyJSONAdapter(cfg.Connection.URL, baseCtx)
	if err != nil {
		return nil, err
	}

	prober := &version.Prober{
		XMLRPC:     xmlAdapter,
		JSONRPC:    jsonAdapter,
		Modules:    jsonAdapter,
		HTTPClient: httpClient,
		BaseURL:    cfg.Connection.URL,
		Timeout:    time.Duration(cfg.Connection.Timeout) * time.Second,
		Warn:       func(msg string) { slog.Warn(msg) },
	}
	return prober.Probe(ctx), nil
}

// protocolToVersion maps an operator-forced protocol choice to a
// representative version so downstream selection logic (which keys off
// major version, not protocol name) still behaves consistently.
func protocolToVersion(p config.Protocol) *version.OdooVersion {
	switch p {
	case config.ProtocolLegacyXML:
		return &version.OdooVersion{Major: 16}
	case config.ProtocolLegacyJSON:
		return &version.OdooVersion{Major: 17}
	case config.ProtocolModernREST:
		return &version.OdooVersion{Major: 19}
	default:
		return version.Fallback()
	}
}

func buildRegistry(ctx context.Context, cfg *config.Config, mgr *connection.Manager, detected *version.OdooVersion, logger *slog.Logger) (*registry.Registry, error) {
	var staticModels map[string]registry.ModelInfo
	if cfg.Registry.StaticPath != "" {
		var err error
		staticModels, err = registry.LoadStatic(cfg.Registry.StaticPath)
		if err != nil {
			return nil, fmt.Errorf("load static registry: %w", err)
		}
	}

	models := staticModels
	mode := registry.BuildStatic

	if cfg.Registry.IntrospectOnStartup {
		intro := &connection.Introspector{Manager: mgr}
		dynModels, err := registry.Dynamic(ctx, intro, registry.IntrospectConfig{
			Models: cfg.Registry.IntrospectModels,
		}, logger)
		if err != nil {
			logger.Warn("dynamic introspection failed, falling back to static registry", slog.Any("error", err))
		} else if len(staticModels) > 0 {
			models = registry.Merge(staticModels, dynModels, logger)
			mode = registry.BuildMerged
		} else {
			models = dynModels
			mode = registry.BuildDynamic
		}
	}

	return registry.New(models, mode, detected, logger), nil
}
