package coretoolset

import (
	"context"

	"github.com/tombee/odoo-mcp-bridge/internal/search"
	"github.com/tombee/odoo-mcp-bridge/internal/tools"
)

func (c *CoreToolset) deepSearchDef() (ToolDef, error) {
	d, err := descriptor("deep_search")
	if err != nil {
		return ToolDef{}, err
	}
	return ToolDef{
		Descriptor:  d,
		Description: "Progressively widen a free-text search: exact match, then standard ilike, then extended field ilike, then related-record expansion, then chatter full-text — stopping at the first level with results unless exhaustive is set. Omit model to search across every model in the catalog. Returns which levels ran and follow-up suggestions when nothing was found.",
		Properties: map[string]interface{}{
			"model":      map[string]interface{}{"type": "string", "description": "Model to search. Omit to search every model in the deep-search catalog."},
			"query":      map[string]interface{}{"type": "string"},
			"fields":     map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
			"limit":      map[string]interface{}{"type": "integer"},
			"exhaustive": map[string]interface{}{"type": "boolean", "description": "Run every search level and merge results instead of stopping at the first hit"},
		},
		Required: []string{"query"},
		Handler: func(ctx context.Context, sess tools.Session, args map[string]interface{}) (interface{}, error) {
			res, tErr := c.search.Search(ctx, sess, search.Request{
				Model:      stringArg(args, "model"),
				Query:      stringArg(args, "query"),
				Fields:     stringSliceArg(args, "fields"),
				Limit:      intArg(args, "limit"),
				Exhaustive: boolArg(args, "exhaustive"),
			})
			if tErr != nil {
				return nil, tErr
			}
			return res, nil
		},
	}, nil
}
