package connection

import (
	"context"
	"fmt"

	conductorerrors "github.com/tombee/odoo-mcp-bridge/pkg/errors"

	"github.com/tombee/odoo-mcp-bridge/internal/registry"
)

// Introspector adapts a Manager's Execute method to the Model Registry's
// dynamic-pass contract, translating registry.ModelIntrospector calls into
// the actual ir.module.module / ir.model.access / fields_get RPCs Odoo
// exposes for schema discovery.
type Introspector struct {
	Manager *Manager
}

// InstalledModules calls ir.module.module.search_read for installed modules
// and returns their technical names as a set.
func (i *Introspector) InstalledModules(ctx context.Context) (map[string]bool, error) {
	res, err := i.Manager.Execute(ctx, "ir.module.module", "search_read",
		[]interface{}{[]interface{}{[]interface{}{"state", "=", "installed"}}, []interface{}{"name"}},
		nil, nil)
	if err != nil {
		return nil, fmt.Errorf("connection: list installed modules: %w", err)
	}
	rows, ok := res.([]interface{})
	if !ok {
		return nil, fmt.Errorf("connection: unexpected installed-modules response shape")
	}
	out := make(map[string]bool, len(rows))
	for _, row := range rows {
		m, ok := row.(map[string]interface{})
		if !ok {
			continue
		}
		if name, ok := m["name"].(string); ok {
			out[name] = true
		}
	}
	return out, nil
}

// ReadableModels filters candidates down to those the connected user can
// read, via ir.model.access.check with raise_exception=false semantics
// (check_access_rights).
func (i *Introspector) ReadableModels(ctx context.Context, candidates []string) ([]string, error) {
	readable := make([]string, 0, len(candidates))
	for _, model := range candidates {
		res, err := i.Manager.Execute(ctx, model, "check_access_rights",
			[]interface{}{"read"}, map[string]interface{}{"raise_exception": false}, nil)
		if err != nil {
			continue
		}
		if ok, _ := res.(bool); ok {
			readable = append(readable, model)
		}
	}
	return readable, nil
}

// IntrospectModel fetches one model's field metadata via fields_get and
// folds it into a registry.ModelInfo. Method metadata is not fetched.
func (i *Introspector) IntrospectModel(ctx context.Context, model string) (registry.ModelInfo, error) {
	res, err := i.Manager.Execute(ctx, model, "fields_get", nil, map[string]interface{}{
		"attributes": []interface{}{"string", "type", "required", "readonly", "store", "help", "relation", "selection"},
	}, nil)
	if err != nil {
		return registry.ModelInfo{}, conductorerrors.Wrapf(err, "connection: fields_get %s", model)
	}
	raw, ok := res.(map[string]interface{})
	if !ok {
		return registry.ModelInfo{}, fmt.Errorf("connection: unexpected fields_get response shape for %s", model)
	}

	fields := make(map[string]registry.FieldInfo, len(raw))
	for name, v := range raw {
		fd, ok := v.(map[string]interface{})
		if !ok {
			continue
		}
		fields[name] = registry.FieldInfo{
			Name:     name,
			Label:    strField(fd, "string"),
			Type:     registry.FieldType(strField(fd, "type")),
			Required: boolField(fd, "required"),
			Readonly: boolField(fd, "readonly"),
			Store:    boolField(fd, "store"),
			Help:     strField(fd, "help"),
			Relation: strField(fd, "relation"),
		}
	}

	_, hasMessageIDs := fields["message_ids"]
	return registry.ModelInfo{
		Model:      model,
		Fields:     fields,
		HasChatter: hasMessageIDs,
	}, nil
}

func strField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

func boolField(m map[string]interface{}, key string) bool {
	b, _ := m[key].(bool)
	return b
}
