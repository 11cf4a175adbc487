package coretoolset

import (
	"context"

	"github.com/tombee/odoo-mcp-bridge/internal/tools"
)

func (c *CoreToolset) searchReadDef() (ToolDef, error) {
	d, err := descriptor("search_read")
	if err != nil {
		return ToolDef{}, err
	}
	return ToolDef{
		Descriptor:  d,
		Description: "Search a model's records with a domain filter and read the requested fields in one round-trip. Results are capped at 500 and default to 80 when limit is omitted.",
		Properties: map[string]interface{}{
			"model":  map[string]interface{}{"type": "string", "description": "Odoo model name, e.g. res.partner"},
			"domain": map[string]interface{}{"type": "array", "description": "Domain filter in prefix notation, e.g. [[\"name\",\"ilike\",\"acme\"]]"},
			"fields": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}, "description": "Field names to return; omit for the model's default display fields"},
			"limit":  map[string]interface{}{"type": "integer", "description": "Maximum records to return (default 80, max 500)"},
			"offset": map[string]interface{}{"type": "integer", "description": "Number of matching records to skip"},
			"order":  map[string]interface{}{"type": "string", "description": "Odoo order clause, e.g. \"name asc\""},
		},
		Required: []string{"model"},
		Handler: func(ctx context.Context, sess tools.Session, args map[string]interface{}) (interface{}, error) {
			res, tErr := c.executor.SearchRead(ctx, sess, tools.SearchReadRequest{
				Model:  stringArg(args, "model"),
				Domain: domainArg(args, "domain"),
				Fields: stringSliceArg(args, "fields"),
				Limit:  intArg(args, "limit"),
				Offset: intArg(args, "offset"),
				Order:  stringArg(args, "order"),
			})
			if tErr != nil {
				return nil, tErr
			}
			return res, nil
		},
	}, nil
}

func (c *CoreToolset) readDef() (ToolDef, error) {
	d, err := descriptor("read")
	if err != nil {
		return ToolDef{}, err
	}
	return ToolDef{
		Descriptor:  d,
		Description: "Read specific records by id. Distinguishes ids the backend no longer has from returned records.",
		Properties: map[string]interface{}{
			"model":  map[string]interface{}{"type": "string"},
			"ids":    map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "integer"}},
			"fields": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
		},
		Required: []string{"model", "ids"},
		Handler: func(ctx context.Context, sess tools.Session, args map[string]interface{}) (interface{}, error) {
			res, tErr := c.executor.Read(ctx, sess, tools.ReadRequest{
				Model:  stringArg(args, "model"),
				IDs:    intSliceArg(args, "ids"),
				Fields: stringSliceArg(args, "fields"),
			})
			if tErr != nil {
				return nil, tErr
			}
			return res, nil
		},
	}, nil
}

func (c *CoreToolset) countDef() (ToolDef, error) {
	d, err := descriptor("count")
	if err != nil {
		return ToolDef{}, err
	}
	return ToolDef{
		Descriptor:  d,
		Description: "Count records matching a domain filter without transferring the records themselves.",
		Properties: map[string]interface{}{
			"model":  map[string]interface{}{"type": "string"},
			"domain": map[string]interface{}{"type": "array"},
		},
		Required: []string{"model"},
		Handler: func(ctx context.Context, sess tools.Session, args map[string]interface{}) (interface{}, error) {
			n, tErr := c.executor.Count(ctx, sess, stringArg(args, "model"), domainArg(args, "domain"))
			if tErr != nil {
				return nil, tErr
			}
			return map[string]interface{}{"count": n}, nil
		},
	}, nil
}

func (c *CoreToolset) fieldsGetDef() (ToolDef, error) {
	d, err := descriptor("fields_get")
	if err != nil {
		return ToolDef{}, err
	}
	return ToolDef{
		Descriptor:  d,
		Description: "Return field metadata for a model, with any fields the safety policy blocks already stripped.",
		Properties:  map[string]interface{}{"model": map[string]interface{}{"type": "string"}},
		Required:    []string{"model"},
		Handler: func(ctx context.Context, sess tools.Session, args map[string]interface{}) (interface{}, error) {
			fields, tErr := c.executor.FieldsGet(sess, stringArg(args, "model"))
			if tErr != nil {
				return nil, tErr
			}
			return fields, nil
		},
	}, nil
}

func (c *CoreToolset) nameGetDef() (ToolDef, error) {
	d, err := descriptor("name_get")
	if err != nil {
		return ToolDef{}, err
	}
	return ToolDef{
		Descriptor:  d,
		Description: "Resolve record ids to their display names, capped at 200 ids per call.",
		Properties: map[string]interface{}{
			"model": map[string]interface{}{"type": "string"},
			"ids":   map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "integer"}},
		},
		Required: []string{"model", "ids"},
		Handler: func(ctx context.Context, sess tools.Session, args map[string]interface{}) (interface{}, error) {
			pairs, tErr := c.executor.NameGet(ctx, sess, stringArg(args, "model"), intSliceArg(args, "ids"))
			if tErr != nil {
				return nil, tErr
			}
			return pairs, nil
		},
	}, nil
}

func (c *CoreToolset) defaultGetDef() (ToolDef, error) {
	d, err := descriptor("default_get")
	if err != nil {
		return ToolDef{}, err
	}
	return ToolDef{
		Descriptor:  d,
		Description: "Return default field values a new record on this model would receive, honoring session context.",
		Properties: map[string]interface{}{
			"model":  map[string]interface{}{"type": "string"},
			"fields": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
		},
		Required: []string{"model", "fields"},
		Handler: func(ctx context.Context, sess tools.Session, args map[string]interface{}) (interface{}, error) {
			values, tErr := c.executor.DefaultGet(ctx, sess, stringArg(args, "model"), stringSliceArg(args, "fields"))
			if tErr != nil {
				return nil, tErr
			}
			return values, nil
		},
	}, nil
}

func (c *CoreToolset) listModelsDef() (ToolDef, error) {
	d, err := descriptor("list_models")
	if err != nil {
		return ToolDef{}, err
	}
	return ToolDef{
		Descriptor:  d,
		Description: "List models known to the registry whose name contains the given substring, with blocked models omitted.",
		Properties:  map[string]interface{}{"substring": map[string]interface{}{"type": "string"}},
		Handler: func(ctx context.Context, sess tools.Session, args map[string]interface{}) (interface{}, error) {
			models, tErr := c.executor.ListModels(sess, stringArg(args, "substring"))
			if tErr != nil {
				return nil, tErr
			}
			return models, nil
		},
	}, nil
}

func (c *CoreToolset) createDef() (ToolDef, error) {
	d, err := descriptor("create")
	if err != nil {
		return ToolDef{}, err
	}
	return ToolDef{
		Descriptor:  d,
		Description: "Create a new record. Rejected by the safety gate outside full mode unless the model is write-allowlisted.",
		Properties: map[string]interface{}{
			"model":  map[string]interface{}{"type": "string"},
			"values": map[string]interface{}{"type": "object"},
		},
		Required: []string{"model", "values"},
		Handler: func(ctx context.Context, sess tools.Session, args map[string]interface{}) (interface{}, error) {
			id, tErr := c.executor.Create(ctx, sess, stringArg(args, "model"), mapArg(args, "values"))
			if tErr != nil {
				return nil, tErr
			}
			return map[string]interface{}{"id": id}, nil
		},
	}, nil
}

func (c *CoreToolset) writeDef() (ToolDef, error) {
	d, err := descriptor("write")
	if err != nil {
		return ToolDef{}, err
	}
	return ToolDef{
		Descriptor:  d,
		Description: "Update fields on existing records, capped at 100 ids per call. Readonly fields are rejected before the call reaches the backend.",
		Properties: map[string]interface{}{
			"model":  map[string]interface{}{"type": "string"},
			"ids":    map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "integer"}},
			"values": map[string]interface{}{"type": "object"},
		},
		Required: []string{"model", "ids", "values"},
		Handler: func(ctx context.Context, sess tools.Session, args map[string]interface{}) (interface{}, error) {
			ok, tErr := c.executor.Write(ctx, sess, stringArg(args, "model"), intSliceArg(args, "ids"), mapArg(args, "values"))
			if tErr != nil {
				return nil, tErr
			}
			return map[string]interface{}{"success": ok}, nil
		},
	}, nil
}

func (c *CoreToolset) unlinkDef() (ToolDef, error) {
	d, err := descriptor("unlink")
	if err != nil {
		return ToolDef{}, err
	}
	return ToolDef{
		Descriptor:  d,
		Description: "Delete records by id, capped at 50 ids per call. Only permitted in full safety mode.",
		Properties: map[string]interface{}{
			"model": map[string]interface{}{"type": "string"},
			"ids":   map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "integer"}},
		},
		Required: []string{"model", "ids"},
		Handler: func(ctx context.Context, sess tools.Session, args map[string]interface{}) (interface{}, error) {
			ok, tErr := c.executor.Unlink(ctx, sess, stringArg(args, "model"), intSliceArg(args, "ids"))
			if tErr != nil {
				return nil, tErr
			}
			return map[string]interface{}{"success": ok}, nil
		},
	}, nil
}

func (c *CoreToolset) executeDef() (ToolDef, error) {
	d, err := descriptor("execute")
	if err != nil {
		return ToolDef{}, err
	}
	return ToolDef{
		Descriptor:  d,
		Description: "Call an arbitrary public model method: model.method(*args, **kwargs). Private (underscore-prefixed) methods are rejected. The escape hatch for anything the other ten tools don't cover.",
		Properties: map[string]interface{}{
			"model":  map[string]interface{}{"type": "string"},
			"method": map[string]interface{}{"type": "string"},
			"args":   map[string]interface{}{"type": "array"},
			"kwargs": map[string]interface{}{"type": "object"},
		},
		Required: []string{"model", "method"},
		Handler: func(ctx context.Context, sess tools.Session, args map[string]interface{}) (interface{}, error) {
			rawArgs, _ := args["args"].([]interface{})
			result, tErr := c.executor.Execute(ctx, sess, tools.ExecuteRequest{
				Model:  stringArg(args, "model"),
				Method: stringArg(args, "method"),
				Args:   rawArgs,
				Kwargs: mapArg(args, "kwargs"),
			})
			if tErr != nil {
				return nil, tErr
			}
			return result, nil
		},
	}, nil
}
