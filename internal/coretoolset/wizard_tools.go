package coretoolset

import (
	"context"

	"github.com/tombee/odoo-mcp-bridge/internal/tools"
)

func (c *CoreToolset) runWizardDef() (ToolDef, error) {
	d, err := descriptor("run_wizard")
	if err != nil {
		return ToolDef{}, err
	}
	return ToolDef{
		Descriptor:  d,
		Description: "Drive an ir.actions.act_window wizard to completion: creates the transient record, overlays the given field values on its defaults, invokes its action method, and follows any resulting chained wizard up to a depth of three. Unknown wizards return a structured field description instead of failing silently.",
		Properties: map[string]interface{}{
			"action":       map[string]interface{}{"type": "object", "description": "The act_window action dict returned by a prior execute call, e.g. from a button method"},
			"active_model": map[string]interface{}{"type": "string"},
			"active_id":    map[string]interface{}{"type": "integer"},
			"active_ids":   map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "integer"}},
			"values":       map[string]interface{}{"type": "object", "description": "Field values to overlay on the wizard's computed defaults"},
		},
		Required: []string{"action", "active_model"},
		Handler: func(ctx context.Context, sess tools.Session, args map[string]interface{}) (interface{}, error) {
			res, tErr := c.wizard.Run(ctx, sess,
				mapArg(args, "action"),
				stringArg(args, "active_model"),
				intArg(args, "active_id"),
				intSliceArg(args, "active_ids"),
				mapArg(args, "values"),
			)
			if tErr != nil {
				return nil, tErr
			}
			return res, nil
		},
	}, nil
}
