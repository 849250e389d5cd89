package process

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed phases.yaml
var defaultSchemaYAML []byte

// FieldType is the input kind of a phase field
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldTextarea FieldType = "textarea"
	FieldDate     FieldType = "date"
	FieldTime     FieldType = "time"
	FieldEmail    FieldType = "email"
)

// IsValidFieldType checks if the field type is supported
func IsValidFieldType(t FieldType) bool {
	switch t {
	case FieldText, FieldTextarea, FieldDate, FieldTime, FieldEmail:
		return true
	}
	return false
}

// Field describes one form field of a phase
type Field struct {
	Name     string    `yaml:"name" json:"name"`
	Label    string    `yaml:"label" json:"label"`
	Type     FieldType `yaml:"type" json:"type"`
	Required bool      `yaml:"required" json:"required"`
	Folder   string    `yaml:"folder,omitempty" json:"folder,omitempty"`
}

// Folder describes a document bucket owned by a phase
type Folder struct {
	Type  string `yaml:"type" json:"type"`
	Label string `yaml:"label" json:"label"`
}

// PhaseDef is the static description of one phase
type PhaseDef struct {
	ID               string   `yaml:"id" json:"id"`
	Title            string   `yaml:"title" json:"title"`
	CompletionTarget int      `yaml:"completion_target" json:"completion_target"`
	Fields           []Field  `yaml:"fields" json:"fields"`
	Folders          []Folder `yaml:"folders,omitempty" json:"folders,omitempty"`
}

// RequiredFields returns the names of the required fields, in declaration order
func (p PhaseDef) RequiredFields() []string {
	var names []string
	for _, f := range p.Fields {
		if f.Required {
			names = append(names, f.Name)
		}
	}
	return names
}

// BoundFields returns the fields that mirror a document folder
func (p PhaseDef) BoundFields() []Field {
	var bound []Field
	for _, f := range p.Fields {
		if f.Folder != "" {
			bound = append(bound, f)
		}
	}
	return bound
}

// Field looks up a field by name
func (p PhaseDef) Field(name string) (Field, bool) {
	for _, f := range p.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// HasFolder reports whether the phase owns the folder type
func (p PhaseDef) HasFolder(folderType string) bool {
	for _, f := range p.Folders {
		if f.Type == folderType {
			return true
		}
	}
	return false
}

type schemaFile struct {
	NavigationOrder []string   `yaml:"navigation_order"`
	CompletionOrder []string   `yaml:"completion_order"`
	Phases          []PhaseDef `yaml:"phases"`
}

// Schema is the read-only phase registry
type Schema struct {
	navigation []string
	completion []string
	phases     map[string]PhaseDef
}

// LoadSchema parses and validates a phase table
func LoadSchema(data []byte) (*Schema, error) {
	var file schemaFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("invalid phase table: %v", err)}
	}

	s := &Schema{
		navigation: file.NavigationOrder,
		completion: file.CompletionOrder,
		phases:     make(map[string]PhaseDef, len(file.Phases)),
	}
	for _, p := range file.Phases {
		if p.ID == "" {
			return nil, &ConfigurationError{Reason: "phase without id"}
		}
		if _, dup := s.phases[p.ID]; dup {
			return nil, &ConfigurationError{Phase: p.ID, Reason: "declared twice"}
		}
		s.phases[p.ID] = p
	}

	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

var defaultSchema = mustLoadDefault()

func mustLoadDefault() *Schema {
	s, err := LoadSchema(defaultSchemaYAML)
	if err != nil {
		panic(err)
	}
	return s
}

// DefaultSchema returns the embedded phase table
func DefaultSchema() *Schema {
	return defaultSchema
}

func (s *Schema) validate() error {
	if len(s.phases) == 0 {
		return &ConfigurationError{Reason: "no phases declared"}
	}
	if err := s.checkOrder("navigation_order", s.navigation); err != nil {
		return err
	}
	if err := s.checkOrder("completion_order", s.completion); err != nil {
		return err
	}

	last := 0
	for _, id := range s.completion {
		p := s.phases[id]
		if p.CompletionTarget < 1 || p.CompletionTarget > 100 {
			return &ConfigurationError{Phase: id, Reason: fmt.Sprintf("completion target %d outside 1..100", p.CompletionTarget)}
		}
		if p.CompletionTarget < last {
			return &ConfigurationError{Phase: id, Reason: fmt.Sprintf("completion target %d lower than previous phase (%d)", p.CompletionTarget, last)}
		}
		last = p.CompletionTarget
	}

	for id, p := range s.phases {
		if len(p.RequiredFields()) == 0 {
			return &ConfigurationError{Phase: id, Reason: "no required fields declared"}
		}
		seen := make(map[string]bool, len(p.Fields))
		for _, f := range p.Fields {
			if seen[f.Name] {
				return &ConfigurationError{Phase: id, Reason: fmt.Sprintf("field %q declared twice", f.Name)}
			}
			seen[f.Name] = true
			if !IsValidFieldType(f.Type) {
				return &ConfigurationError{Phase: id, Reason: fmt.Sprintf("field %q has unknown type %q", f.Name, f.Type)}
			}
			if f.Folder != "" && !p.HasFolder(f.Folder) {
				return &ConfigurationError{Phase: id, Reason: fmt.Sprintf("field %q bound to unknown folder %q", f.Name, f.Folder)}
			}
		}
	}
	return nil
}

func (s *Schema) checkOrder(name string, order []string) error {
	if len(order) != len(s.phases) {
		return &ConfigurationError{Reason: fmt.Sprintf("%s lists %d phases, %d declared", name, len(order), len(s.phases))}
	}
	seen := make(map[string]bool, len(order))
	for _, id := range order {
		if _, ok := s.phases[id]; !ok {
			return &ConfigurationError{Phase: id, Reason: name + " references undeclared phase"}
		}
		if seen[id] {
			return &ConfigurationError{Phase: id, Reason: name + " lists phase twice"}
		}
		seen[id] = true
	}
	return nil
}

// Phase returns the definition of a phase or a *ConfigurationError
func (s *Schema) Phase(id string) (PhaseDef, error) {
	p, ok := s.phases[id]
	if !ok {
		return PhaseDef{}, &ConfigurationError{Phase: id, Reason: "unknown phase"}
	}
	return p, nil
}

// Has reports whether the phase is declared
func (s *Schema) Has(id string) bool {
	_, ok := s.phases[id]
	return ok
}

// Phases returns every phase in navigation order
func (s *Schema) Phases() []PhaseDef {
	out := make([]PhaseDef, 0, len(s.navigation))
	for _, id := range s.navigation {
		out = append(out, s.phases[id])
	}
	return out
}

// NavigationOrder returns the phase ids in stepper order
func (s *Schema) NavigationOrder() []string {
	return append([]string(nil), s.navigation...)
}

// CompletionOrder returns the phase ids in non-decreasing target order
func (s *Schema) CompletionOrder() []string {
	return append([]string(nil), s.completion...)
}

// Next returns the phase following id in navigation order
func (s *Schema) Next(id string) (string, bool) {
	for i, p := range s.navigation {
		if p == id && i+1 < len(s.navigation) {
			return s.navigation[i+1], true
		}
	}
	return "", false
}

// FolderLabel returns the display label of a folder, or its upper-cased type
func (s *Schema) FolderLabel(phase, folderType string) string {
	if p, ok := s.phases[phase]; ok {
		for _, f := range p.Folders {
			if f.Type == folderType {
				return f.Label
			}
		}
	}
	return strings.ToUpper(folderType)
}
