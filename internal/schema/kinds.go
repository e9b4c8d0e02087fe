package schema

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"

	"whatsapp-flow-editor/internal/blocks"
)

var validate = validator.New()

// Interval is one horarios entry.
type Interval struct {
	Start string `json:"horaInicio" validate:"required,len=5,datetime=15:04"`
	End   string `json:"horaFim" validate:"required,len=5,datetime=15:04"`
}

// DefaultInterval seeds a new horarios entry.
var DefaultInterval = Interval{Start: "09:00", End: "18:00"}

// codec implements the semantics of one field kind. Values leave normalize
// in their canonical JSON shape.
type codec interface {
	zero() any
	normalize(field blocks.FieldDescriptor, raw any) (any, error)
	missing(field blocks.FieldDescriptor, v any) bool
}

var codecs = map[blocks.FieldKind]codec{
	blocks.KindText:             textCodec{},
	blocks.KindTextarea:         textCodec{},
	blocks.KindSelect:           selectCodec{},
	blocks.KindOptions:          optionsCodec{},
	blocks.KindDiasSemana:       weekdaysCodec{},
	blocks.KindTime:             timeCodec{},
	blocks.KindHorarios:         intervalsCodec{},
	blocks.KindFile:             textCodec{},
	blocks.KindSelectAgent:      textCodec{},
	blocks.KindSelectDepartment: textCodec{},
	blocks.KindSelectTeam:       textCodec{},
	blocks.KindSelectAIAgent:    textCodec{},
}

func codecFor(kind blocks.FieldKind) codec {
	if c, ok := codecs[kind]; ok {
		return c
	}
	return textCodec{}
}

type textCodec struct{}

func (textCodec) zero() any { return "" }

func (textCodec) normalize(_ blocks.FieldDescriptor, raw any) (any, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("%w: want string, got %T", ErrInvalidValue, raw)
	}
	return norm.NFC.String(s), nil
}

func (textCodec) missing(_ blocks.FieldDescriptor, v any) bool {
	s, _ := v.(string)
	return strings.TrimSpace(s) == ""
}

type selectCodec struct{}

func (selectCodec) zero() any { return "" }

func (selectCodec) normalize(field blocks.FieldDescriptor, raw any) (any, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("%w: want string, got %T", ErrInvalidValue, raw)
	}
	if s != "" && !field.HasOption(s) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOption, s)
	}
	return s, nil
}

func (selectCodec) missing(_ blocks.FieldDescriptor, v any) bool {
	s, _ := v.(string)
	return s == ""
}

type optionsCodec struct{}

func (optionsCodec) zero() any { return []any{""} }

func (optionsCodec) normalize(_ blocks.FieldDescriptor, raw any) (any, error) {
	list, ok := toStrings(raw)
	if !ok {
		return nil, fmt.Errorf("%w: want list of strings, got %T", ErrInvalidValue, raw)
	}
	if len(list) == 0 {
		list = []string{""}
	}
	out := make([]any, len(list))
	for i, s := range list {
		out[i] = norm.NFC.String(s)
	}
	return out, nil
}

func (optionsCodec) missing(_ blocks.FieldDescriptor, v any) bool {
	list, _ := toStrings(v)
	if len(list) == 0 {
		return true
	}
	for _, s := range list {
		if strings.TrimSpace(s) == "" {
			return true
		}
	}
	return false
}

type weekdaysCodec struct{}

func (weekdaysCodec) zero() any { return map[string]any{} }

func (weekdaysCodec) normalize(_ blocks.FieldDescriptor, raw any) (any, error) {
	days, ok := toWeekdays(raw)
	if !ok {
		return nil, fmt.Errorf("%w: want weekday set, got %T", ErrInvalidValue, raw)
	}
	out := make(map[string]any, len(days))
	for day, on := range days {
		if !blocks.IsWeekday(day) {
			return nil, fmt.Errorf("%w: unknown weekday %q", ErrInvalidValue, day)
		}
		out[day] = on
	}
	return out, nil
}

func (weekdaysCodec) missing(_ blocks.FieldDescriptor, v any) bool {
	days, _ := toWeekdays(v)
	for _, on := range days {
		if on {
			return false
		}
	}
	return true
}

type timeCodec struct{}

func (timeCodec) zero() any { return "" }

func (timeCodec) normalize(_ blocks.FieldDescriptor, raw any) (any, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("%w: want string, got %T", ErrInvalidValue, raw)
	}
	if s != "" && !validClock(s) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return s, nil
}

func (timeCodec) missing(_ blocks.FieldDescriptor, v any) bool {
	s, _ := v.(string)
	return !validClock(s)
}

type intervalsCodec struct{}

func (intervalsCodec) zero() any { return "" }

func (intervalsCodec) normalize(_ blocks.FieldDescriptor, raw any) (any, error) {
	list, ok := toIntervals(raw)
	if !ok {
		return nil, fmt.Errorf("%w: want list of intervals, got %T", ErrInvalidValue, raw)
	}
	for _, iv := range list {
		if (iv.Start != "" && !validClock(iv.Start)) || (iv.End != "" && !validClock(iv.End)) {
			return nil, fmt.Errorf("%w: %s-%s", ErrInvalidTime, iv.Start, iv.End)
		}
	}
	return intervalsValue(list), nil
}

func (intervalsCodec) missing(_ blocks.FieldDescriptor, v any) bool {
	list, _ := toIntervals(v)
	return len(list) == 0
}

// clockTag accepts zero-padded HH:MM only; the datetime layout alone lets
// "9:00" through.
const clockTag = "len=5,datetime=15:04"

func validClock(s string) bool {
	return s != "" && validate.Var(s, clockTag) == nil
}

func intervalsValue(list []Interval) []any {
	out := make([]any, len(list))
	for i, iv := range list {
		out[i] = map[string]any{"horaInicio": iv.Start, "horaFim": iv.End}
	}
	return out
}

func toStrings(v any) ([]string, bool) {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...), true
	case []any:
		out := make([]string, 0, len(t))
		for _, x := range t {
			s, ok := x.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	case nil:
		return nil, true
	}
	return nil, false
}

func toWeekdays(v any) (map[string]bool, bool) {
	out := map[string]bool{}
	switch t := v.(type) {
	case map[string]bool:
		for k, on := range t {
			out[k] = on
		}
	case map[string]any:
		for k, x := range t {
			on, ok := x.(bool)
			if !ok {
				return nil, false
			}
			out[k] = on
		}
	case nil, string:
		// unset
	default:
		return nil, false
	}
	return out, true
}

func toIntervals(v any) ([]Interval, bool) {
	switch t := v.(type) {
	case []Interval:
		return append([]Interval(nil), t...), true
	case []any:
		out := make([]Interval, 0, len(t))
		for _, x := range t {
			switch e := x.(type) {
			case Interval:
				out = append(out, e)
			case map[string]any:
				start, _ := e["horaInicio"].(string)
				end, _ := e["horaFim"].(string)
				out = append(out, Interval{Start: start, End: end})
			default:
				return nil, false
			}
		}
		return out, true
	case nil, string:
		// a freshly seeded horarios field holds ""
		return []Interval{}, true
	}
	return nil, false
}
