package schema

import (
	"fmt"
	"strings"

	"whatsapp-flow-editor/internal/blocks"
	"whatsapp-flow-editor/internal/flow"
)

// FieldError reports a config field that blocks an explicit save.
type FieldError struct {
	NodeID     string `json:"nodeId,omitempty"`
	NodeLabel  string `json:"nodeLabel,omitempty"`
	Field      string `json:"field"`
	FieldLabel string `json:"fieldLabel,omitempty"`
	Message    string `json:"message"`
}

func (e FieldError) Error() string {
	if e.NodeID == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("node %s (%s): %s: %s", e.NodeID, e.NodeLabel, e.Field, e.Message)
}

// ValidationErrors collects every FieldError found in one pass.
type ValidationErrors []FieldError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Error()
	}
	return strings.Join(msgs, "; ")
}

// ValidateNode checks required fields and incomplete horarios entries.
// Nodes of unknown type are not validated; see Diagnose.
func (in *Interpreter) ValidateNode(n flow.Node) ValidationErrors {
	def, ok := in.registry.DefinitionFor(n.Type)
	if !ok {
		return nil
	}
	var errs ValidationErrors
	fail := func(key, label, msg string) {
		errs = append(errs, FieldError{NodeID: n.ID, NodeLabel: n.Data.Label, Field: key, FieldLabel: label, Message: msg})
	}
	for _, field := range def.ConfigFields {
		v := n.Data.Config[field.Key]
		if field.Required && codecFor(field.Kind).missing(field, v) {
			fail(field.Key, field.Label, "field is required")
			continue
		}
		if field.Kind != blocks.KindHorarios {
			continue
		}
		if list, ok := toIntervals(v); ok {
			for i, iv := range list {
				if err := validate.Struct(iv); err != nil {
					fail(field.Key, field.Label, fmt.Sprintf("interval %d needs both start and end as HH:MM", i+1))
				}
			}
		}
	}
	return errs
}

// ValidateFlow validates the flow name and every node. It returns nil or a
// ValidationErrors.
func (in *Interpreter) ValidateFlow(f *flow.Flow) error {
	var errs ValidationErrors
	if strings.TrimSpace(f.Name) == "" {
		errs = append(errs, FieldError{Field: "name", Message: "field is required"})
	}
	for _, n := range f.Nodes {
		errs = append(errs, in.ValidateNode(n)...)
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Diagnostic is a visible per-node problem that does not stop editing.
type Diagnostic struct {
	NodeID   string `json:"nodeId"`
	NodeType string `json:"nodeType"`
	Message  string `json:"message"`
}

// DiagnoseNode reports a node whose type is missing from the registry.
func (in *Interpreter) DiagnoseNode(n flow.Node) (Diagnostic, bool) {
	if _, ok := in.registry.DefinitionFor(n.Type); ok {
		return Diagnostic{}, false
	}
	return Diagnostic{
		NodeID:   n.ID,
		NodeType: n.Type,
		Message:  fmt.Sprintf("unknown block type %q", n.Type),
	}, true
}

// Diagnose returns one diagnostic per node of unknown type.
func (in *Interpreter) Diagnose(f *flow.Flow) []Diagnostic {
	var out []Diagnostic
	for _, n := range f.Nodes {
		if d, ok := in.DiagnoseNode(n); ok {
			out = append(out, d)
		}
	}
	return out
}
