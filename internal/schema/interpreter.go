// Package schema interprets block configuration fields: default seeding,
// per-kind reads and writes, reference staleness and save-time validation.
package schema

import (
	"errors"
	"fmt"

	"whatsapp-flow-editor/internal/blocks"
	"whatsapp-flow-editor/internal/flow"
)

var (
	ErrUnknownBlockType = errors.New("unknown block type")
	ErrUnknownField     = errors.New("unknown config field")
	ErrInvalidValue     = errors.New("invalid value for field")
	ErrInvalidOption    = errors.New("value is not one of the field options")
	ErrInvalidTime      = errors.New("time must be HH:MM")
	ErrIndexOutOfRange  = errors.New("index out of range")
)

// Interpreter resolves field descriptors from the registry and applies the
// per-kind semantics to node configs.
type Interpreter struct {
	registry *blocks.Registry
}

// New returns an interpreter backed by reg.
func New(reg *blocks.Registry) *Interpreter {
	return &Interpreter{registry: reg}
}

// Registry returns the backing block registry.
func (in *Interpreter) Registry() *blocks.Registry {
	return in.registry
}

// Definition returns the block definition of nodeType.
func (in *Interpreter) Definition(nodeType string) (blocks.BlockDefinition, error) {
	def, ok := in.registry.DefinitionFor(nodeType)
	if !ok {
		return blocks.BlockDefinition{}, fmt.Errorf("%w: %q", ErrUnknownBlockType, nodeType)
	}
	return def, nil
}

// Field returns the descriptor for key on nodeType.
func (in *Interpreter) Field(nodeType, key string) (blocks.FieldDescriptor, error) {
	def, err := in.Definition(nodeType)
	if err != nil {
		return blocks.FieldDescriptor{}, err
	}
	field, ok := def.Field(key)
	if !ok {
		return blocks.FieldDescriptor{}, fmt.Errorf("%w: %s.%s", ErrUnknownField, nodeType, key)
	}
	return field, nil
}

// DefaultConfig seeds a config for a freshly placed block of nodeType.
func (in *Interpreter) DefaultConfig(nodeType string) (flow.Config, error) {
	def, err := in.Definition(nodeType)
	if err != nil {
		return nil, err
	}
	return DefaultConfig(def), nil
}

// DefaultConfig returns a config holding exactly the keys of def's fields:
// [""] for options, {} for diasSemana and "" for everything else.
func DefaultConfig(def blocks.BlockDefinition) flow.Config {
	cfg := make(flow.Config, len(def.ConfigFields))
	for _, f := range def.ConfigFields {
		cfg[f.Key] = codecFor(f.Kind).zero()
	}
	return cfg
}

// FieldValue is the result of reading one field.
type FieldValue struct {
	Field blocks.FieldDescriptor
	// Value is typed per kind: string, []string, map[string]bool,
	// []Interval or Reference.
	Value any
	// Stale marks a select value that is not among the field options. It
	// is reported, never reset.
	Stale bool
}

// Read returns the typed value of key on node.
func (in *Interpreter) Read(node flow.Node, key string) (FieldValue, error) {
	field, err := in.Field(node.Type, key)
	if err != nil {
		return FieldValue{}, err
	}
	return ReadField(node.Data.Config, field), nil
}

// ReadField returns the typed value of field in cfg.
func ReadField(cfg flow.Config, field blocks.FieldDescriptor) FieldValue {
	fv := FieldValue{Field: field}
	switch field.Kind {
	case blocks.KindOptions:
		fv.Value = Options(cfg, field.Key)
	case blocks.KindDiasSemana:
		fv.Value = Weekdays(cfg, field.Key)
	case blocks.KindHorarios:
		fv.Value = Intervals(cfg, field.Key)
	case blocks.KindSelect:
		s := Text(cfg, field.Key)
		fv.Value = s
		fv.Stale = s != "" && !field.HasOption(s)
	default:
		if entity, ok := blocks.EntityFor(field.Kind); ok {
			fv.Value = Reference{ID: Text(cfg, field.Key), Name: Text(cfg, entity.NameKey())}
		} else {
			fv.Value = Text(cfg, field.Key)
		}
	}
	return fv
}

// Write sets key on node to value and returns the updated copy of its config.
func (in *Interpreter) Write(node flow.Node, key string, value any) (flow.Config, error) {
	field, err := in.Field(node.Type, key)
	if err != nil {
		return nil, err
	}
	return WriteField(node.Data.Config, field, value)
}

// WriteField normalizes value through the field's kind and returns a copy
// of cfg holding it. Reference kinds take a Reference and also store the
// denormalized name; an empty string clears both.
func WriteField(cfg flow.Config, field blocks.FieldDescriptor, value any) (flow.Config, error) {
	if entity, ok := blocks.EntityFor(field.Kind); ok {
		return writeReference(cfg, field, entity, value)
	}
	v, err := codecFor(field.Kind).normalize(field, value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field.Key, err)
	}
	out := cfg.Clone()
	if out == nil {
		out = flow.Config{}
	}
	out[field.Key] = v
	return out, nil
}
