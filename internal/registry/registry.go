package registry

import (
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tombee/odoo-mcp-bridge/internal/version"
)

// BuildMode records how a Registry was assembled.
type BuildMode string

const (
	BuildStatic BuildMode = "static"
	BuildDynamic BuildMode = "dynamic"
	BuildMerged BuildMode = "merged"
)

// Registry is the assembled model metadata store plus the existence cache.
// Once built it is treated as immutable except for the existence cache,
// which the query surface fills in lazily; the registry itself never
// auto-refreshes.
type Registry struct {
	Models     map[string]ModelInfo
	Version    *version.OdooVersion
	BuildMode  BuildMode
	BuildTime  time.Time
	ModelCount int
	FieldCount int

	log *slog.Logger

	existMu sync.RWMutex
	exists  map[string]bool
}

// New wraps a fully assembled model map (produced by Static, Dynamic, or
// Merge) into a queryable Registry.
func New(models map[string]ModelInfo, mode BuildMode, v *version.OdooVersion, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	fieldCount := 0
	for _, m := range models {
		fieldCount += len(m.Fields)
	}
	return &Registry{
		Models:     models,
		Version:    v,
		BuildMode:  mode,
		BuildTime:  time.Now(),
		ModelCount: len(models),
		FieldCount: fieldCount,
		log:        log,
		exists:     make(map[string]bool),
	}
}

// GetModel returns the model's metadata, or the zero value and false.
func (r *Registry) GetModel(name string) (ModelInfo, bool) {
	m, ok := r.Models[name]
	return m, ok
}

// GetField returns a single field's metadata.
func (r *Registry) GetField(model, field string) (FieldInfo, bool) {
	m, ok := r.Models[model]
	if !ok {
		return FieldInfo{}, false
	}
	f, ok := m.Fields[field]
	return f, ok
}

// GetMethod returns a single method's metadata.
func (r *Registry) GetMethod(model, method string) (MethodInfo, bool) {
	m, ok := r.Models[model]
	if !ok {
		return MethodInfo{}, false
	}
	mt, ok := m.Methods[method]
	return mt, ok
}

// ListModels returns model names matching an optional substring filter, in
// sorted order for a stable client-facing listing.
func (r *Registry) ListModels(substring string) []string {
	var out []string
	for name := range r.Models {
		if substring == "" || strings.Contains(name, substring) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// GetRequiredFields, GetStateField, and GetRelationalFields expose the
// ModelInfo helpers through the registry's stored copy.
func (r *Registry) GetRequiredFields(model string) []string {
	m, ok := r.Models[model]
	if !ok {
		return nil
	}
	fields := m.RequiredFields()
	sort.Strings(fields)
	return fields
}

func (r *Registry) GetStateField(model string) (string, bool) {
	m, ok := r.Models[model]
	if !ok {
		return "", false
	}
	return m.StateField()
}

func (r *Registry) GetRelationalFields(model string) []string {
	m, ok := r.Models[model]
	if !ok {
		return nil
	}
	fields := m.RelationalFields()
	sort.Strings(fields)
	return fields
}

// MethodAcceptsKwargs consults the global NO_KWARGS_METHODS set first, then
// falls back to the introspected MethodInfo if the model+method is known.
func (r *Registry) MethodAcceptsKwargs(model, method string) bool {
	if noKwargsMethods[method] {
		return false
	}
	if mi, ok := r.GetMethod(model, method); ok {
		return mi.AcceptsKwargs
	}
	return true
}

// ExistenceChecker performs the cheap backend count(limit=0) call used to
// resolve a registry miss.
type ExistenceChecker interface {
	CountExists(model string) (bool, error)
}

// ModelExists consults the registry first; on a miss it defers to checker
// and caches the outcome (positive or negative) for the connection
// lifetime, per the specification's existence-check rule.
func (r *Registry) ModelExists(model string, checker ExistenceChecker) (bool, error) {
	if _, ok := r.Models[model]; ok {
		return true, nil
	}

	r.existMu.RLock()
	if cached, ok := r.exists[model]; ok {
		r.existMu.RUnlock()
		return cached, nil
	}
	r.existMu.RUnlock()

	exists, err := checker.CountExists(model)
	if err != nil {
		return false, err
	}
	r.existMu.Lock()
	r.exists[model] = exists
	r.existMu.Unlock()
	return exists, nil
}
