// Package wizard implements the wizard execution protocol: detecting an
// action-window result as a wizard, running its default-get/create/action
// sequence, interpreting the resulting action, and chaining into a
// follow-up wizard up to a fixed depth.
package wizard

import (
	"context"
	"fmt"

	"github.com/tombee/odoo-mcp-bridge/internal/registry"
	"github.com/tombee/odoo-mcp-bridge/internal/tools"
)

// MaxChainDepth caps recursive wizard chaining to prevent action loops.
const MaxChainDepth = 3

// IsWizardAction reports whether an action-window result describes a
// wizard: an ir.actions.act_window opened in target="new".
func IsWizardAction(action map[string]interface{}) bool {
	actionType, _ := action["type"].(string)
	target, _ := action["target"].(string)
	return actionType == "ir.actions.act_window" && target == "new"
}

// KnownWizard is a catalog entry for a wizard model this bridge understands
// well enough to describe without falling back to bare introspection.
type KnownWizard struct {
	Model            string
	FieldSchema      map[string]string
	ContextKeys      []string
	ActionMethod     string
	AlternateMethods []string
	MinBackendMajor  int
	MaxBackendMajor  int
}

// Catalog is the fixed set of known wizards the bridge ships with.
func Catalog() map[string]KnownWizard {
	return map[string]KnownWizard{
		"sale.advance.payment.inv": {
			Model:        "sale.advance.payment.inv",
			FieldSchema:  map[string]string{"advance_payment_method": "selection", "amount": "float"},
			ContextKeys:  []string{"active_model", "active_ids"},
			ActionMethod: "create_invoices",
		},
		"crm.lead2opportunity.partner": {
			Model: "crm.lead2opportunity.partner",
			FieldSchema: map[string]string{
				"name":       "selection",
				"action":     "selection",
				"partner_id": "many2one",
				"user_id":    "many2one",
				"team_id":    "many2one",
			},
			ContextKeys:  []string{"active_model", "active_id", "active_ids"},
			ActionMethod: "action_apply",
		},
		"account.move.reversal": {
			Model:            "account.move.reversal",
			FieldSchema:      map[string]string{"date": "date", "reason": "char", "journal_id": "many2one"},
			ContextKeys:      []string{"active_model", "active_id", "active_ids"},
			ActionMethod:     "reverse_moves",
			AlternateMethods: []string{"refund_moves"},
		},
		"stock.immediate.transfer": {
			Model:        "stock.immediate.transfer",
			FieldSchema:  map[string]string{"pick_ids": "many2many"},
			ContextKeys:  []string{"active_model", "active_id", "active_ids"},
			ActionMethod: "process",
		},
		"stock.backorder.confirmation": {
			Model: "stock.backorder.confirmation",
			FieldSchema: map[string]string{
				"pick_ids":                        "many2many",
				"backorder_confirmation_line_ids": "one2many",
			},
			ContextKeys:      []string{"active_model", "active_id", "active_ids"},
			ActionMethod:     "process",
			AlternateMethods: []string{"process_cancel_backorder"},
		},
		"account.payment.register": {
			Model: "account.payment.register",
			FieldSchema: map[string]string{
				"journal_id":             "many2one",
				"amount":                 "monetary",
				"payment_date":           "date",
				"payment_method_line_id": "many2one",
				"communication":          "char",
				"group_payment":          "boolean",
			},
			ContextKeys:  []string{"active_model", "active_id", "active_ids"},
			ActionMethod: "action_create_payments",
		},
	}
}

// ResultKind classifies what a wizard's action method returned.
type ResultKind string

const (
	ResultComplete    ResultKind = "complete"
	ResultChained     ResultKind = "chained_wizard"
	ResultReport      ResultKind = "report"
	ResultURL         ResultKind = "url"
	ResultUnknown     ResultKind = "unknown"
)

// StepResult describes the outcome of one wizard step.
type StepResult struct {
	Kind       ResultKind
	Depth      int
	WizardID   int
	Model      string
	ReportName string
	URL        string
	// Chained holds the next wizard's own StepResult when Kind is
	// ResultChained and the chain depth allows recursing into it.
	Chained *StepResult
	// UnknownDescription is populated when the target wizard model has no
	// catalog entry: a structured description of what the caller must do
	// with the generic execute tool to drive it manually.
	UnknownDescription *UnknownWizardDescription
}

// UnknownWizardDescription is returned instead of silently discarding an
// unrecognized wizard.
type UnknownWizardDescription struct {
	Model        string                        `json:"model"`
	WizardID     int                           `json:"wizard_id"`
	Fields       map[string]registry.FieldInfo `json:"fields"`
	ContextHints map[string]interface{}        `json:"context_hints"`
	Instructions string                        `json:"instructions"`
}

// Executor drives the wizard protocol on top of the core CRUD executor.
type Executor struct {
	tools    *tools.Executor
	registry *registry.Registry
	catalog  map[string]KnownWizard
}

// NewExecutor wires a wizard Executor from the core tool executor and
// registry, using the default catalog unless a caller-supplied one is
// given.
func NewExecutor(t *tools.Executor, reg *registry.Registry, catalog map[string]KnownWizard) *Executor {
	if catalog == nil {
		catalog = Catalog()
	}
	return &Executor{tools: t, registry: reg, catalog: catalog}
}

// Run executes a wizard action end to end: build the active-record context,
// fetch and overlay defaults, create the transient record, invoke its
// action method, and interpret the result — recursing into a chained
// wizard until MaxChainDepth is reached.
func (e *Executor) Run(ctx context.Context, sess tools.Session, action map[string]interface{}, activeModel string, activeID int, activeIDs []int, overlay map[string]interface{}) (*StepResult, *tools.ToolError) {
	return e.run(ctx, sess, action, activeModel, activeID, activeIDs, overlay, 1)
}

func (e *Executor) run(ctx context.Context, sess tools.Session, action map[string]interface{}, activeModel string, activeID int, activeIDs []int, overlay map[string]interface{}, depth int) (*StepResult, *tools.ToolError) {
	if depth > MaxChainDepth {
		return nil, &tools.ToolError{Response: wizardDepthExceeded(depth)}
	}

	wizardModel, _ := action["res_model"].(string)
	if wizardModel == "" {
		return nil, &tools.ToolError{Response: invalidWizardAction()}
	}

	known, isKnown := e.catalog[wizardModel]
	actionMethod, overlay := resolveActionMethod(known, overlay)

	callCtx := buildActiveContext(activeModel, activeID, activeIDs)

	// scoped carries the active-record context into every backend call this
	// wizard step makes, so default_get and the action method see
	// active_model/active_id/active_ids the same way the Odoo client UI
	// would set them when opening the wizard from that record.
	scoped := sess
	scoped.CallCtx = mergeValues(sess.CallCtx, callCtx)

	fieldNames := fieldNamesFor(known, isKnown, e.registry, wizardModel)
	defaults, tErr := e.tools.DefaultGet(ctx, scoped, wizardModel, fieldNames)
	if tErr != nil {
		return nil, tErr
	}

	values := mergeValues(defaults, overlay)

	wizardID, tErr := e.tools.Create(ctx, scoped, wizardModel, values)
	if tErr != nil {
		return nil, tErr
	}

	if !isKnown {
		return &StepResult{
			Kind: ResultUnknown, Depth: depth, WizardID: wizardID, Model: wizardModel,
			UnknownDescription: e.describeUnknown(wizardModel, wizardID, callCtx),
		}, nil
	}

	raw, tErr := e.tools.Execute(ctx, scoped, tools.ExecuteRequest{
		Model: wizardModel, Method: actionMethod, Args: []interface{}{[]interface{}{wizardID}}, Kwargs: nil,
	})
	if tErr != nil {
		return nil, tErr
	}

	return e.interpret(ctx, sess, raw, wizardID, wizardModel, activeModel, activeID, activeIDs, depth)
}

func (e *Executor) interpret(ctx context.Context, sess tools.Session, raw interface{}, wizardID int, wizardModel, activeModel string, activeID int, activeIDs []int, depth int) (*StepResult, *tools.ToolError) {
	base := StepResult{Depth: depth, WizardID: wizardID, Model: wizardModel}

	switch v := raw.(type) {
	case nil:
		base.Kind = ResultComplete
		return &base, nil
	case bool:
		base.Kind = ResultComplete
		return &base, nil
	case map[string]interface{}:
		actionType, _ := v["type"].(string)
		switch actionType {
		case "ir.actions.act_window_close":
			base.Kind = ResultComplete
			return &base, nil
		case "ir.actions.act_window":
			if !IsWizardAction(v) {
				base.Kind = ResultComplete
				return &base, nil
			}
			chained, tErr := e.run(ctx, sess, v, activeModel, activeID, activeIDs, nil, depth+1)
			if tErr != nil {
				return nil, tErr
			}
			base.Kind = ResultChained
			base.Chained = chained
			return &base, nil
		case "ir.actions.report":
			base.Kind = ResultReport
			base.ReportName, _ = v["report_name"].(string)
			return &base, nil
		case "ir.actions.act_url":
			base.Kind = ResultURL
			base.URL, _ = v["url"].(string)
			return &base, nil
		}
	}

	base.Kind = ResultComplete
	return &base, nil
}

func buildActiveContext(activeModel string, activeID int, activeIDs []int) map[string]interface{} {
	ctx := map[string]interface{}{"active_model": activeModel}
	if activeID != 0 {
		ctx["active_id"] = activeID
	}
	if len(activeIDs) > 0 {
		ids := make([]interface{}, len(activeIDs))
		for i, id := range activeIDs {
			ids[i] = id
		}
		ctx["active_ids"] = ids
	}
	return ctx
}

func fieldNamesFor(known KnownWizard, isKnown bool, reg *registry.Registry, model string) []string {
	if isKnown {
		names := make([]string, 0, len(known.FieldSchema))
		for f := range known.FieldSchema {
			names = append(names, f)
		}
		return names
	}
	mi, ok := reg.GetModel(model)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(mi.Fields))
	for f := range mi.Fields {
		names = append(names, f)
	}
	return names
}

// resolveActionMethod picks between a known wizard's default action method
// and a caller-selected alternate, keyed off a synthetic "cancel_backorder"
// overlay flag (the backorder-confirmation wizard's "process" vs
// "process_cancel_backorder" choice). The flag is stripped from the
// returned overlay so it is never sent to the backend as a field value.
func resolveActionMethod(known KnownWizard, overlay map[string]interface{}) (string, map[string]interface{}) {
	method := known.ActionMethod
	cancel, ok := overlay["cancel_backorder"].(bool)
	if !ok {
		return method, overlay
	}

	filtered := make(map[string]interface{}, len(overlay))
	for k, v := range overlay {
		if k != "cancel_backorder" {
			filtered[k] = v
		}
	}

	if cancel {
		for _, alt := range known.AlternateMethods {
			if alt == "process_cancel_backorder" {
				method = alt
				break
			}
		}
	}
	return method, filtered
}

func mergeValues(defaults, overlay map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(defaults)+len(overlay))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}

func (e *Executor) describeUnknown(model string, wizardID int, callCtx map[string]interface{}) *UnknownWizardDescription {
	mi, _ := e.registry.GetModel(model)
	return &UnknownWizardDescription{
		Model: model, WizardID: wizardID, Fields: mi.Fields, ContextHints: callCtx,
		Instructions: fmt.Sprintf(
			"this wizard has no catalog entry; inspect its fields above, set the ones you need with "+
				"odoo_core_write on %s id %d, then call odoo_core_execute against its action method "+
				"(commonly named action_confirm, action_apply, or similar) with active_ids in kwargs.context", model, wizardID),
	}
}
