// Package registry implements the Model Registry: static/dynamic/merged
// construction of backend model metadata, and the read-side query surface
// every tool and toolset consults for field, method, and state lookups.
package registry

// FieldType enumerates the field kinds the registry recognizes.
type FieldType string

const (
	FieldChar       FieldType = "char"
	FieldText       FieldType = "text"
	FieldHTML       FieldType = "html"
	FieldInteger    FieldType = "integer"
	FieldFloat      FieldType = "float"
	FieldMonetary   FieldType = "monetary"
	FieldBoolean    FieldType = "boolean"
	FieldDate       FieldType = "date"
	FieldDatetime   FieldType = "datetime"
	FieldBinary     FieldType = "binary"
	FieldSelection  FieldType = "selection"
	FieldMany2one   FieldType = "many2one"
	FieldOne2many   FieldType = "one2many"
	FieldMany2many  FieldType = "many2many"
	FieldReference  FieldType = "reference"
)

// FieldInfo describes one field of one model.
type FieldInfo struct {
	Name     string
	Label    string
	Type     FieldType
	Required bool
	Readonly bool
	Store    bool
	Help     string
	Relation string              // set for many2one/one2many/many2many
	Selection [][2]string        // set for selection fields: [value, label]
	Default  interface{}
	Groups   []string
	Compute  string
	DependsOn []string
}

// MethodInfo describes one callable method of one model.
type MethodInfo struct {
	Name          string
	Description   string
	AcceptsKwargs bool
	Decorator     string
}

// StateValue is one entry of an ordered (value, label) selection list on a
// model's state-like field.
type StateValue struct {
	Value string
	Label string
}

// ModelInfo is the full metadata record for one backend model.
type ModelInfo struct {
	Model        string
	Name         string
	Description  string
	Transient    bool
	Fields       map[string]FieldInfo
	Methods      map[string]MethodInfo
	States       []StateValue
	ParentModels []string
	HasChatter   bool
}

// RequiredFields returns the names of fields marked required, in
// unspecified order (callers needing a stable order should sort).
func (m ModelInfo) RequiredFields() []string {
	var out []string
	for name, f := range m.Fields {
		if f.Required {
			out = append(out, name)
		}
	}
	return out
}

// StateField returns the name of the field driving m.States, "state" by
// Odoo convention, if present.
func (m ModelInfo) StateField() (string, bool) {
	if len(m.States) == 0 {
		return "", false
	}
	if _, ok := m.Fields["state"]; ok {
		return "state", true
	}
	return "", false
}

// RelationalFields returns the names of many2one/one2many/many2many fields.
func (m ModelInfo) RelationalFields() []string {
	var out []string
	for name, f := range m.Fields {
		switch f.Type {
		case FieldMany2one, FieldOne2many, FieldMany2many:
			out = append(out, name)
		}
	}
	return out
}

// noKwargsMethods is the global, read-only set of well-known methods that
// never accept a kwargs dict, consulted by MethodAcceptsKwargs.
var noKwargsMethods = map[string]bool{
	"name_get":    true,
	"default_get": true,
	"fields_get":  true,
	"unlink":      true,
}

// NoKwargsMethods returns the global NO_KWARGS_METHODS set.
func NoKwargsMethods() map[string]bool {
	return noKwargsMethods
}
