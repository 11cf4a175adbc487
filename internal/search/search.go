package search

import (
	"context"
	"sort"
	"strings"

	"github.com/tombee/odoo-mcp-bridge/internal/registry"
	"github.com/tombee/odoo-mcp-bridge/internal/tools"
)

// LogEntry is one row of the transparent search log the specification
// requires: which level and strategy ran, against which model, and how many
// results it produced.
type LogEntry struct {
	Level        int    `json:"level"`
	Strategy     string `json:"strategy"`
	Model        string `json:"model"`
	ResultsFound int    `json:"results_found"`
}

// Suggestion is an actionable next-step tool call the caller can make
// directly.
type Suggestion struct {
	Tool      string                 `json:"tool"`
	Arguments map[string]interface{} `json:"arguments"`
	Reason    string                 `json:"reason"`
}

// Result is the full response of a deep search run.
type Result struct {
	Records        []map[string]interface{} `json:"records"`
	DepthReached   int                       `json:"depth_reached"`
	TotalResults   int                       `json:"total_results"`
	StrategiesUsed []string                  `json:"strategies_used"`
	SearchLog      []LogEntry                `json:"search_log"`
	Suggestions    []Suggestion              `json:"suggestions"`
}

// Request is a deep search invocation.
type Request struct {
	Model      string
	Query      string
	Fields     []string
	Limit      int
	Exhaustive bool
}

// Engine runs the five-level progressive search over the core CRUD
// executor, using the registry to guard extended field access and the
// per-model catalog to know which fields and related models apply.
type Engine struct {
	executor *tools.Executor
	registry *registry.Registry
	catalog  map[string]ModelConfig
}

// NewEngine wires an Engine from an already-built Executor and Registry,
// using the default catalog unless a caller-supplied one is given.
func NewEngine(executor *tools.Executor, reg *registry.Registry, catalog map[string]ModelConfig) *Engine {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Engine{executor: executor, registry: reg, catalog: catalog}
}

func (e *Engine) configFor(model string) ModelConfig {
	if cfg, ok := e.catalog[model]; ok {
		return cfg
	}
	return DefaultConfig()
}

// Search runs the progressive search described in the specification: each
// level widens the query, stopping at the first level with ≥1 result unless
// req.Exhaustive asks for all five to run regardless. When req.Model is
// empty, it searches every model in the catalog in turn, matching
// original_source/odoo_mcp/search/progressive.py's `search(query, model=None,
// ...)`, which falls back to `SEARCH_CONFIGS.keys()`.
func (e *Engine) Search(ctx context.Context, sess tools.Session, req Request) (*Result, *tools.ToolError) {
	models := modelsToSearch(req.Model, e.catalog)

	res := &Result{}
	for _, model := range models {
		modelReq := req
		modelReq.Model = model

		found, depth, tErr := e.searchOneModel(ctx, sess, modelReq, res)
		if tErr != nil {
			return nil, tErr
		}
		if len(found) > 0 {
			res.Records = append(res.Records, found...)
			res.TotalResults += len(found)
		}
		if depth > res.DepthReached {
			res.DepthReached = depth
		}
	}

	if res.TotalResults == 0 {
		res.Suggestions = e.suggestNextSteps(req, models)
	}

	return res, nil
}

// modelsToSearch resolves the fixed set of models a request runs against: a
// single explicit model, or every catalog entry in a stable order when the
// caller left model unset.
func modelsToSearch(model string, catalog map[string]ModelConfig) []string {
	if model != "" {
		return []string{model}
	}
	models := make([]string, 0, len(catalog))
	for m := range catalog {
		models = append(models, m)
	}
	sort.Strings(models)
	return models
}

// searchOneModel runs the five-level progressive search against a single
// model, appending its log entries and strategies onto the shared result,
// and returns the records it matched plus the level depth it reached.
func (e *Engine) searchOneModel(ctx context.Context, sess tools.Session, req Request, res *Result) ([]map[string]interface{}, int, *tools.ToolError) {
	cfg := e.configFor(req.Model)
	nameField := cfg.NameField
	if nameField == "" {
		nameField = "name"
	}

	levels := []func(context.Context, tools.Session, Request, ModelConfig, string) (*levelOutcome, *tools.ToolError){
		e.levelExact,
		e.levelStandardIlike,
		e.levelExtendedIlike,
		e.levelRelatedExpansion,
		e.levelChatter,
	}

	var matched []map[string]interface{}
	levelsRun := 0
	depthReached := 0
	for i, run := range levels {
		level := i + 1
		outcome, tErr := run(ctx, sess, req, cfg, nameField)
		if tErr != nil {
			return nil, 0, tErr
		}
		if outcome == nil {
			continue
		}
		levelsRun++

		res.SearchLog = append(res.SearchLog, LogEntry{
			Level: level, Strategy: outcome.strategy, Model: outcome.model, ResultsFound: len(outcome.records),
		})
		res.StrategiesUsed = append(res.StrategiesUsed, outcome.strategy)

		if len(outcome.records) > 0 {
			matched = outcome.records
			depthReached = level
			if !req.Exhaustive {
				break
			}
		}
	}
	if depthReached == 0 {
		depthReached = levelsRun
	}

	return matched, depthReached, nil
}

type levelOutcome struct {
	strategy string
	model    string
	records  []map[string]interface{}
}

func words(query string) []string {
	return strings.Fields(query)
}

func ilikeDomain(fields []string, query string) []interface{} {
	terms := words(query)
	if len(terms) == 0 || len(fields) == 0 {
		return nil
	}

	var leaves []interface{}
	for _, f := range fields {
		for _, w := range terms {
			leaves = append(leaves, []interface{}{f, "ilike", w})
		}
	}
	return orAll(leaves)
}

// orAll combines leaves with prefix OR operators: n leaves need n-1 "|".
func orAll(leaves []interface{}) []interface{} {
	if len(leaves) <= 1 {
		return leaves
	}
	ors := make([]interface{}, len(leaves)-1)
	for i := range ors {
		ors[i] = "|"
	}
	return append(ors, leaves...)
}

func (e *Engine) runSearchRead(ctx context.Context, sess tools.Session, model string, domain []interface{}, fields []string, limit int) ([]map[string]interface{}, *tools.ToolError) {
	res, tErr := e.executor.SearchRead(ctx, sess, tools.SearchReadRequest{Model: model, Domain: domain, Fields: fields, Limit: limit})
	if tErr != nil {
		return nil, tErr
	}
	return res.Records, nil
}

func (e *Engine) levelExact(ctx context.Context, sess tools.Session, req Request, cfg ModelConfig, nameField string) (*levelOutcome, *tools.ToolError) {
	domain := []interface{}{[]interface{}{nameField, "=", req.Query}}
	records, tErr := e.runSearchRead(ctx, sess, req.Model, domain, req.Fields, req.Limit)
	if tErr != nil {
		return nil, tErr
	}
	return &levelOutcome{strategy: "exact", model: req.Model, records: records}, nil
}

func (e *Engine) levelStandardIlike(ctx context.Context, sess tools.Session, req Request, cfg ModelConfig, nameField string) (*levelOutcome, *tools.ToolError) {
	domain := ilikeDomain(cfg.SearchFields, req.Query)
	if domain == nil {
		return nil, nil
	}
	records, tErr := e.runSearchRead(ctx, sess, req.Model, domain, req.Fields, req.Limit)
	if tErr != nil {
		return nil, tErr
	}
	return &levelOutcome{strategy: "standard_ilike", model: req.Model, records: records}, nil
}

func (e *Engine) levelExtendedIlike(ctx context.Context, sess tools.Session, req Request, cfg ModelConfig, nameField string) (*levelOutcome, *tools.ToolError) {
	var existing []string
	for _, f := range cfg.DeepSearchFields {
		if _, ok := e.registry.GetField(req.Model, f); ok {
			existing = append(existing, f)
		}
	}
	domain := ilikeDomain(existing, req.Query)
	if domain == nil {
		return nil, nil
	}
	records, tErr := e.runSearchRead(ctx, sess, req.Model, domain, req.Fields, req.Limit)
	if tErr != nil {
		return nil, tErr
	}
	return &levelOutcome{strategy: "extended_ilike", model: req.Model, records: records}, nil
}

func (e *Engine) levelRelatedExpansion(ctx context.Context, sess tools.Session, req Request, cfg ModelConfig, nameField string) (*levelOutcome, *tools.ToolError) {
	if cfg.RelatedModel == "" || cfg.RelatedField == "" {
		return nil, nil
	}

	related, tErr := e.runSearchRead(ctx, sess, cfg.RelatedModel,
		[]interface{}{[]interface{}{"name", "ilike", req.Query}},
		[]string{"id", "is_company", "parent_id", "child_ids"}, 20)
	if tErr != nil {
		return nil, tErr
	}
	if len(related) == 0 {
		return &levelOutcome{strategy: "related_expansion", model: cfg.RelatedModel, records: nil}, nil
	}

	expanded := expandPartnerIDs(related)
	domain := []interface{}{[]interface{}{cfg.RelatedField, "in", intsToInterfaces(expanded)}}
	records, tErr := e.runSearchRead(ctx, sess, req.Model, domain, req.Fields, req.Limit)
	if tErr != nil {
		return nil, tErr
	}
	return &levelOutcome{strategy: "related_expansion", model: req.Model, records: records}, nil
}

// expandPartnerIDs implements the company/individual expansion rule: a
// company expands to its child contacts, an individual expands to its
// parent and that parent's other children (siblings).
func expandPartnerIDs(partners []map[string]interface{}) []int {
	seen := map[int]bool{}
	var out []int
	add := func(id int) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}

	for _, p := range partners {
		id, ok := p["id"].(int)
		if !ok {
			continue
		}
		add(id)

		if isCompany, _ := p["is_company"].(bool); isCompany {
			if children, ok := p["child_ids"].([]interface{}); ok {
				for _, c := range children {
					if cid, ok := c.(int); ok {
						add(cid)
					}
				}
			}
			continue
		}

		if parent, ok := p["parent_id"].(map[string]interface{}); ok {
			if pid, ok := parent["id"].(int); ok {
				add(pid)
			}
		}
	}
	return out
}

func intsToInterfaces(ids []int) []interface{} {
	out := make([]interface{}, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

func (e *Engine) levelChatter(ctx context.Context, sess tools.Session, req Request, cfg ModelConfig, nameField string) (*levelOutcome, *tools.ToolError) {
	if !cfg.Chatter {
		return nil, nil
	}

	messages, tErr := e.runSearchRead(ctx, sess, "mail.message",
		[]interface{}{
			"&",
			[]interface{}{"model", "=", req.Model},
			[]interface{}{"body", "ilike", req.Query},
		},
		[]string{"res_id"}, 100)
	if tErr != nil {
		return nil, tErr
	}
	if len(messages) == 0 {
		return &levelOutcome{strategy: "chatter", model: "mail.message", records: nil}, nil
	}

	seen := map[int]bool{}
	var ids []interface{}
	for _, m := range messages {
		if resID, ok := m["res_id"].(int); ok && !seen[resID] {
			seen[resID] = true
			ids = append(ids, resID)
		}
	}
	if len(ids) == 0 {
		return &levelOutcome{strategy: "chatter", model: "mail.message", records: nil}, nil
	}

	readRes, tErr := e.executor.Read(ctx, sess, tools.ReadRequest{Model: req.Model, IDs: interfacesToInts(ids), Fields: req.Fields})
	if tErr != nil {
		return nil, tErr
	}
	return &levelOutcome{strategy: "chatter", model: req.Model, records: readRes.Records}, nil
}

func interfacesToInts(vals []interface{}) []int {
	out := make([]int, 0, len(vals))
	for _, v := range vals {
		if n, ok := v.(int); ok {
			out = append(out, n)
		}
	}
	return out
}

// suggestNextSteps builds actionable follow-up tool calls when every level,
// across every model searched, came back empty. When the caller pinned a
// single model this stays specific to it and its related model; when the
// search fanned out across the whole catalog (no model given) it falls back
// to one broad, model-agnostic suggestion rather than one entry per catalog
// model.
func (e *Engine) suggestNextSteps(req Request, models []string) []Suggestion {
	if len(models) > 1 {
		return []Suggestion{{
			Tool:      "odoo_core_search_read",
			Arguments: map[string]interface{}{"model": "res.partner", "domain": []interface{}{[]interface{}{"name", "ilike", req.Query}}, "limit": 20},
			Reason:    "no catalog model matched " + req.Query + "; try broader search terms, or name a specific model to search",
		}}
	}

	model := req.Model
	suggestions := []Suggestion{
		{
			Tool:      "odoo_core_search_read",
			Arguments: map[string]interface{}{"model": model, "domain": []interface{}{}, "limit": 20},
			Reason:    "list recent records to sample the data rather than guessing further search terms",
		},
	}
	if cfg := e.configFor(model); cfg.RelatedModel != "" {
		suggestions = append(suggestions, Suggestion{
			Tool:      "odoo_core_search_read",
			Arguments: map[string]interface{}{"model": cfg.RelatedModel, "domain": []interface{}{[]interface{}{"name", "ilike", req.Query}}, "limit": 20},
			Reason:    "widen the search directly against " + cfg.RelatedModel,
		})
	}
	return suggestions
}
