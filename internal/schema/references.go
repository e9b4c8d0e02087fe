package schema

import (
	"context"
	"errors"
	"fmt"
	"io"

	"whatsapp-flow-editor/internal/blocks"
	"whatsapp-flow-editor/internal/flow"
)

var ErrUnknownReference = errors.New("reference not found in the loaded list")

// Reference is an externally owned record (agent, department, team, AI
// agent) as seen by a selector.
type Reference struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FindReference looks id up in list.
func FindReference(list []Reference, id string) (Reference, bool) {
	for _, r := range list {
		if r.ID == id {
			return r, true
		}
	}
	return Reference{}, false
}

func writeReference(cfg flow.Config, field blocks.FieldDescriptor, entity blocks.Entity, value any) (flow.Config, error) {
	var ref Reference
	switch v := value.(type) {
	case Reference:
		ref = v
	case *Reference:
		if v != nil {
			ref = *v
		}
	case string:
		if v != "" {
			return nil, fmt.Errorf("%s: %w: a display name is required, select from the loaded list", field.Key, ErrInvalidValue)
		}
	case nil:
	default:
		return nil, fmt.Errorf("%s: %w: want Reference, got %T", field.Key, ErrInvalidValue, value)
	}
	out := withValue(cfg, field.Key, ref.ID)
	out[entity.NameKey()] = ref.Name
	return out, nil
}

// ReconcileReferences clears every field of the given entity whose stored
// id is absent from the freshly loaded list, together with its companion
// name. Running it again with the same list changes nothing.
func ReconcileReferences(cfg flow.Config, fields []blocks.FieldDescriptor, entity blocks.Entity, list []Reference) (flow.Config, bool) {
	changed := false
	out := cfg
	for _, field := range fields {
		e, ok := blocks.EntityFor(field.Kind)
		if !ok || e != entity {
			continue
		}
		id := Text(out, field.Key)
		if id == "" {
			continue
		}
		if _, found := FindReference(list, id); found {
			continue
		}
		out = withValue(out, field.Key, "")
		out[entity.NameKey()] = ""
		changed = true
	}
	return out, changed
}

// Uploader stores a file out of band and returns the token kept in config.
type Uploader interface {
	Upload(ctx context.Context, filename string, r io.Reader) (string, error)
}

// AttachFile uploads r and stores only the returned token under field.
func AttachFile(ctx context.Context, up Uploader, cfg flow.Config, field blocks.FieldDescriptor, filename string, r io.Reader) (flow.Config, error) {
	if field.Kind != blocks.KindFile {
		return nil, fmt.Errorf("%s: %w: not a file field", field.Key, ErrInvalidValue)
	}
	token, err := up.Upload(ctx, filename, r)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", filename, err)
	}
	return withValue(cfg, field.Key, token), nil
}
