package blocks

import (
	"strconv"
	"strings"
)

// FieldKind identifies how a configuration field is edited and stored.
type FieldKind string

const (
	KindText             FieldKind = "text"
	KindTextarea         FieldKind = "textarea"
	KindSelect           FieldKind = "select"
	KindOptions          FieldKind = "options"
	KindDiasSemana       FieldKind = "diasSemana"
	KindTime             FieldKind = "time"
	KindHorarios         FieldKind = "horarios"
	KindFile             FieldKind = "file"
	KindSelectAgent      FieldKind = "selectAgent"
	KindSelectDepartment FieldKind = "selectDepartment"
	KindSelectTeam       FieldKind = "selectTeam"
	KindSelectAIAgent    FieldKind = "selectAIAgent"
)

// Option is a selectable value of a select field. Bare string options have
// Label equal to Value.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// FieldDescriptor describes one entry of a block's configuration panel.
type FieldDescriptor struct {
	Key      string    `json:"key"`
	Label    string    `json:"label"`
	Kind     FieldKind `json:"kind"`
	Required bool      `json:"required,omitempty"`
	Options  []Option  `json:"options,omitempty"` // for select
	Accept   string    `json:"accept,omitempty"`  // for file
}

// HasOption reports whether value is one of the descriptor's options.
func (f FieldDescriptor) HasOption(value string) bool {
	for _, o := range f.Options {
		if o.Value == value {
			return true
		}
	}
	return false
}

// BlockDefinition is a registry entry. It is never persisted.
type BlockDefinition struct {
	Type         string            `json:"type"`
	Label        string            `json:"label"`
	Icon         string            `json:"icon"`
	Category     string            `json:"category"`
	Color        string            `json:"color"`
	ConfigFields []FieldDescriptor `json:"configFields"`
	Outputs      []string          `json:"outputs,omitempty"` // fixed source handles
}

// Field returns the descriptor for key.
func (d BlockDefinition) Field(key string) (FieldDescriptor, bool) {
	for _, f := range d.ConfigFields {
		if f.Key == key {
			return f, true
		}
	}
	return FieldDescriptor{}, false
}

// Entity is the kind of record a reference selector points at.
type Entity string

const (
	EntityAgent      Entity = "agente"
	EntityDepartment Entity = "departamento"
	EntityTeam       Entity = "time"
	EntityAIAgent    Entity = "aiAgent"
)

// Entities lists every reference entity in a stable order.
var Entities = []Entity{EntityAgent, EntityDepartment, EntityTeam, EntityAIAgent}

// EntityFor maps a reference selector kind to its entity.
func EntityFor(kind FieldKind) (Entity, bool) {
	switch kind {
	case KindSelectAgent:
		return EntityAgent, true
	case KindSelectDepartment:
		return EntityDepartment, true
	case KindSelectTeam:
		return EntityTeam, true
	case KindSelectAIAgent:
		return EntityAIAgent, true
	}
	return "", false
}

// NameKey is the config key holding the denormalized display name stored
// next to the selected id.
func (e Entity) NameKey() string {
	if e == EntityAIAgent {
		return "aiAgentName"
	}
	return string(e) + "Nome"
}

// Weekdays are the keys of a diasSemana field, Monday first.
var Weekdays = []string{"segunda", "terca", "quarta", "quinta", "sexta", "sabado", "domingo"}

// IsWeekday reports whether key is a valid diasSemana key.
func IsWeekday(key string) bool {
	for _, d := range Weekdays {
		if d == key {
			return true
		}
	}
	return false
}

// OptionHandlePrefix prefixes the source handle of each menu option.
const OptionHandlePrefix = "opcao_"

// OptionHandle returns the source handle for the option at index i.
func OptionHandle(i int) string {
	return OptionHandlePrefix + strconv.Itoa(i)
}

// ParseOptionHandle extracts the option index from a source handle.
func ParseOptionHandle(handle string) (int, bool) {
	if !strings.HasPrefix(handle, OptionHandlePrefix) {
		return 0, false
	}
	i, err := strconv.Atoi(strings.TrimPrefix(handle, OptionHandlePrefix))
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}
