package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	conductorerrors "github.com/tombee/odoo-mcp-bridge/pkg/errors"
)

// staticFile is the on-disk shape of a previously generated registry
// snapshot. It mirrors ModelInfo/FieldInfo/MethodInfo directly so a
// snapshot round-trips without a translation layer.
type staticFile struct {
	Models map[string]staticModel `json:"models"`
}

type staticModel struct {
	Model        string                  `json:"model"`
	Name         string                  `json:"name"`
	Description  string                  `json:"description"`
	Transient    bool                    `json:"transient"`
	Fields       map[string]staticField  `json:"fields"`
	Methods      map[string]staticMethod `json:"methods"`
	States       []StateValue            `json:"states,omitempty"`
	ParentModels []string                `json:"parent_models,omitempty"`
	HasChatter   bool                    `json:"has_chatter"`
}

type staticField struct {
	Label     string      `json:"label"`
	Type      FieldType   `json:"type"`
	Required  bool        `json:"required"`
	Readonly  bool        `json:"readonly"`
	Store     bool        `json:"store"`
	Help      string      `json:"help,omitempty"`
	Relation  string      `json:"relation,omitempty"`
	Selection [][2]string `json:"selection,omitempty"`
	Default   interface{} `json:"default,omitempty"`
	Groups    []string    `json:"groups,omitempty"`
	Compute   string      `json:"compute,omitempty"`
	DependsOn []string    `json:"depends_on,omitempty"`
}

type staticMethod struct {
	Description   string `json:"description"`
	AcceptsKwargs bool   `json:"accepts_kwargs"`
	Decorator     string `json:"decorator,omitempty"`
}

// LoadStatic reads a previously generated registry snapshot from disk. The
// format is chosen by file extension: .yaml/.yml is parsed as YAML, anything
// else as JSON.
func LoadStatic(path string) (map[string]ModelInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, conductorerrors.Wrap(err, "registry: read static file")
	}

	var raw staticFile
	if isYAMLPath(path) {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, conductorerrors.Wrap(err, "registry: parse static file")
		}
	} else if err := json.Unmarshal(data, &raw); err != nil {
		return nil, conductorerrors.Wrap(err, "registry: parse static file")
	}

	out := make(map[string]ModelInfo, len(raw.Models))
	for name, sm := range raw.Models {
		fields := make(map[string]FieldInfo, len(sm.Fields))
		for fname, sf := range sm.Fields {
			fields[fname] = FieldInfo{
				Name: fname, Label: sf.Label, Type: sf.Type, Required: sf.Required,
				Readonly: sf.Readonly, Store: sf.Store, Help: sf.Help, Relation: sf.Relation,
				Selection: sf.Selection, Default: sf.Default, Groups: sf.Groups,
				Compute: sf.Compute, DependsOn: sf.DependsOn,
			}
		}
		methods := make(map[string]MethodInfo, len(sm.Methods))
		for mname, sme := range sm.Methods {
			methods[mname] = MethodInfo{Name: mname, Description: sme.Description, AcceptsKwargs: sme.AcceptsKwargs, Decorator: sme.Decorator}
		}
		out[name] = ModelInfo{
			Model: sm.Model, Name: sm.Name, Description: sm.Description, Transient: sm.Transient,
			Fields: fields, Methods: methods, States: sm.States, ParentModels: sm.ParentModels,
			HasChatter: sm.HasChatter,
		}
	}
	return out, nil
}

func isYAMLPath(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// SaveStatic writes a snapshot in the same shape LoadStatic reads, choosing
// JSON or YAML by the destination's file extension, letting operators
// generate one from a dynamic pass and check it into version control for
// fast, network-free startup.
func SaveStatic(path string, models map[string]ModelInfo) error {
	raw := staticFile{Models: make(map[string]staticModel, len(models))}
	for name, m := range models {
		fields := make(map[string]staticField, len(m.Fields))
		for fname, f := range m.Fields {
			fields[fname] = staticField{
				Label: f.Label, Type: f.Type, Required: f.Required, Readonly: f.Readonly,
				Store: f.Store, Help: f.Help, Relation: f.Relation, Selection: f.Selection,
				Default: f.Default, Groups: f.Groups, Compute: f.Compute, DependsOn: f.DependsOn,
			}
		}
		methods := make(map[string]staticMethod, len(m.Methods))
		for mname, mt := range m.Methods {
			methods[mname] = staticMethod{Description: mt.Description, AcceptsKwargs: mt.AcceptsKwargs, Decorator: mt.Decorator}
		}
		raw.Models[name] = staticModel{
			Model: m.Model, Name: m.Name, Description: m.Description, Transient: m.Transient,
			Fields: fields, Methods: methods, States: m.States, ParentModels: m.ParentModels,
			HasChatter: m.HasChatter,
		}
	}

	var data []byte
	var err error
	if isYAMLPath(path) {
		data, err = yaml.Marshal(raw)
	} else {
		data, err = json.MarshalIndent(raw, "", "  ")
	}
	if err != nil {
		return conductorerrors.Wrap(err, "registry: marshal static snapshot")
	}
	return os.WriteFile(path, data, 0o644)
}
