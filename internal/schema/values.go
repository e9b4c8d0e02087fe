package schema

import (
	"whatsapp-flow-editor/internal/blocks"
	"whatsapp-flow-editor/internal/flow"
)

// Text returns a scalar string value; anything else reads as "".
func Text(cfg flow.Config, key string) string {
	s, _ := cfg[key].(string)
	return s
}

// Options returns the ordered option list, never empty.
func Options(cfg flow.Config, key string) []string {
	list, ok := toStrings(cfg[key])
	if !ok || len(list) == 0 {
		return []string{""}
	}
	return list
}

// Weekdays returns the weekday set. Absent keys are false.
func Weekdays(cfg flow.Config, key string) map[string]bool {
	days, ok := toWeekdays(cfg[key])
	if !ok {
		return map[string]bool{}
	}
	return days
}

// Intervals returns the horarios list.
func Intervals(cfg flow.Config, key string) []Interval {
	list, ok := toIntervals(cfg[key])
	if !ok {
		return []Interval{}
	}
	return list
}

// AddOption appends an empty option.
func AddOption(cfg flow.Config, key string) flow.Config {
	list := append(Options(cfg, key), "")
	return withValue(cfg, key, stringsValue(list))
}

// RemoveOption deletes the option at idx. It is a no-op while only one
// option remains or idx is out of range.
func RemoveOption(cfg flow.Config, key string, idx int) (flow.Config, bool) {
	list := Options(cfg, key)
	if len(list) <= 1 || idx < 0 || idx >= len(list) {
		return cfg, false
	}
	list = append(list[:idx], list[idx+1:]...)
	return withValue(cfg, key, stringsValue(list)), true
}

// SetOption replaces the option text at idx.
func SetOption(cfg flow.Config, key string, idx int, value string) (flow.Config, error) {
	list := Options(cfg, key)
	if idx < 0 || idx >= len(list) {
		return nil, ErrIndexOutOfRange
	}
	list[idx] = value
	v, err := optionsCodec{}.normalize(blocks.FieldDescriptor{}, list)
	if err != nil {
		return nil, err
	}
	return withValue(cfg, key, v), nil
}

// SetWeekday turns day on or off.
func SetWeekday(cfg flow.Config, key, day string, on bool) (flow.Config, error) {
	days := Weekdays(cfg, key)
	days[day] = on
	v, err := weekdaysCodec{}.normalize(blocks.FieldDescriptor{}, days)
	if err != nil {
		return nil, err
	}
	return withValue(cfg, key, v), nil
}

// AddInterval appends DefaultInterval.
func AddInterval(cfg flow.Config, key string) flow.Config {
	list := append(Intervals(cfg, key), DefaultInterval)
	return withValue(cfg, key, intervalsValue(list))
}

// SetInterval replaces the entry at idx.
func SetInterval(cfg flow.Config, key string, idx int, iv Interval) (flow.Config, error) {
	list := Intervals(cfg, key)
	if idx < 0 || idx >= len(list) {
		return nil, ErrIndexOutOfRange
	}
	list[idx] = iv
	v, err := intervalsCodec{}.normalize(blocks.FieldDescriptor{}, list)
	if err != nil {
		return nil, err
	}
	return withValue(cfg, key, v), nil
}

// RemoveInterval deletes the entry at idx. The list may become empty.
func RemoveInterval(cfg flow.Config, key string, idx int) (flow.Config, bool) {
	list := Intervals(cfg, key)
	if idx < 0 || idx >= len(list) {
		return cfg, false
	}
	list = append(list[:idx], list[idx+1:]...)
	return withValue(cfg, key, intervalsValue(list)), true
}

func withValue(cfg flow.Config, key string, v any) flow.Config {
	out := cfg.Clone()
	if out == nil {
		out = flow.Config{}
	}
	out[key] = v
	return out
}

func stringsValue(list []string) []any {
	out := make([]any, len(list))
	for i, s := range list {
		out[i] = s
	}
	return out
}
