// Package toolset implements the toolset registration pipeline: topological
// ordering by declared dependency, prerequisite gating against the live
// backend and operator configuration, and duplicate-tool detection across
// the whole registered surface.
package toolset

import (
	"fmt"
)

// Annotation captures the MCP tool hints computed from the static
// read/destructive/idempotent table, plus the always-on openWorldHint.
type Annotation struct {
	ReadOnlyHint    bool
	DestructiveHint bool
	IdempotentHint  bool
	OpenWorldHint   bool
}

// ToolDescriptor is what a toolset contributes to the registration report:
// one published tool plus its computed annotation.
type ToolDescriptor struct {
	Name       string
	Annotation Annotation
}

// Metadata describes a toolset independently of its registration logic, so
// the pipeline can sort and gate it before ever calling Register.
type Metadata struct {
	Name             string
	Description      string
	Version          string
	RequiredModules  []string
	MinBackendMajor  int // 0 means unbounded
	MaxBackendMajor  int // 0 means unbounded
	DependsOn        []string
	Tags             []string
}

// Toolset is the two-operation contract every domain toolset implements.
// There is no reflection-based discovery: a toolset only participates in
// the registration pipeline if it appears in the explicit list passed to
// Register.
type Toolset interface {
	Metadata() Metadata
	Register() ([]ToolDescriptor, error)
}

// BackendFacts is the subset of live backend state prerequisite checks
// consult: installed modules and the backend's major version.
type BackendFacts struct {
	InstalledModules map[string]bool
	Major            int
}

// FilterConfig carries the operator's allow/deny toolset-name lists.
// Non-empty Enabled acts as an allowlist; Disabled always excludes.
type FilterConfig struct {
	Enabled  []string
	Disabled []string
}

func (f FilterConfig) allowed(name string) bool {
	for _, d := range f.Disabled {
		if d == name {
			return false
		}
	}
	if len(f.Enabled) == 0 {
		return true
	}
	for _, e := range f.Enabled {
		if e == name {
			return true
		}
	}
	return false
}

// SkipReason explains why a declared toolset did not register.
type SkipReason string

const (
	SkipMissingModules    SkipReason = "missing_required_modules"
	SkipVersionOutOfRange SkipReason = "backend_version_out_of_range"
	SkipUnregisteredDep   SkipReason = "dependency_not_registered"
	SkipFilteredOut       SkipReason = "excluded_by_configuration"
)

// SkippedToolset records one non-fatal exclusion from the pipeline.
type SkippedToolset struct {
	Name   string
	Reason SkipReason
	Detail string
}

// RegisteredToolset records one toolset that made it through the pipeline,
// along with the tool descriptors it contributed.
type RegisteredToolset struct {
	Name  string
	Tools []ToolDescriptor
}

// Report is the registration outcome exposed to clients as a resource.
type Report struct {
	Registered []RegisteredToolset
	Skipped    []SkippedToolset
}

// DuplicateToolError is fatal: two toolsets published the same tool name.
type DuplicateToolError struct {
	Tool     string
	First    string
	Second   string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("duplicate tool name %q: registered by both %q and %q", e.Tool, e.First, e.Second)
}

// Register runs the full pipeline described by the specification: sort,
// gate, register, and report. It returns a fatal error on a dependency
// cycle or a duplicate tool name; every other kind of prerequisite failure
// is recorded in the report as a skip.
func Register(toolsets []Toolset, backend BackendFacts, filter FilterConfig) (*Report, error) {
	order, err := topologicalOrder(toolsets)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	seenTools := map[string]string{} // tool name -> owning toolset
	registeredNames := map[string]bool{}

	for _, ts := range order {
		meta := ts.Metadata()

		if !filter.allowed(meta.Name) {
			report.Skipped = append(report.Skipped, SkippedToolset{
				Name: meta.Name, Reason: SkipFilteredOut,
				Detail: fmt.Sprintf("%q excluded by enabled/disabled configuration", meta.Name),
			})
			continue
		}

		if reason, detail, ok := checkPrerequisites(meta, backend, registeredNames); !ok {
			report.Skipped = append(report.Skipped, SkippedToolset{Name: meta.Name, Reason: reason, Detail: detail})
			continue
		}

		tools, err := ts.Register()
		if err != nil {
			report.Skipped = append(report.Skipped, SkippedToolset{
				Name: meta.Name, Reason: SkipMissingModules,
				Detail: fmt.Sprintf("registration failed: %v", err),
			})
			continue
		}

		for _, td := range tools {
			if owner, exists := seenTools[td.Name]; exists {
				return nil, &DuplicateToolError{Tool: td.Name, First: owner, Second: meta.Name}
			}
			seenTools[td.Name] = meta.Name
		}

		registeredNames[meta.Name] = true
		report.Registered = append(report.Registered, RegisteredToolset{Name: meta.Name, Tools: tools})
	}

	return report, nil
}

func checkPrerequisites(meta Metadata, backend BackendFacts, registered map[string]bool) (SkipReason, string, bool) {
	for _, mod := range meta.RequiredModules {
		if !backend.InstalledModules[mod] {
			return SkipMissingModules, fmt.Sprintf("required module %q is not installed", mod), false
		}
	}

	if meta.MinBackendMajor > 0 && backend.Major < meta.MinBackendMajor {
		return SkipVersionOutOfRange, fmt.Sprintf("backend major %d is below minimum %d", backend.Major, meta.MinBackendMajor), false
	}
	if meta.MaxBackendMajor > 0 && backend.Major > meta.MaxBackendMajor {
		return SkipVersionOutOfRange, fmt.Sprintf("backend major %d is above maximum %d", backend.Major, meta.MaxBackendMajor), false
	}

	for _, dep := range meta.DependsOn {
		if !registered[dep] {
			return SkipUnregisteredDep, fmt.Sprintf("dependency %q is not registered", dep), false
		}
	}

	return "", "", true
}
