package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"whatsapp-flow-editor/internal/flow"
)

// LoadFlowFile reads a flow from a .json, .yaml or .yml file.
func LoadFlowFile(path string) (*flow.Flow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return decodeYAML(data)
	case ".json":
		return decodeJSON(data)
	default:
		return nil, fmt.Errorf("%s: unsupported flow file extension", path)
	}
}

// decodeYAML goes through JSON so config values end up in the same shapes
// as a flow read from the API.
func decodeYAML(data []byte) (*flow.Flow, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("convert yaml: %w", err)
	}
	return decodeJSON(raw)
}

func decodeJSON(data []byte) (*flow.Flow, error) {
	var f flow.Flow
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse flow: %w", err)
	}
	if f.Nodes == nil {
		f.Nodes = []flow.Node{}
	}
	if f.Edges == nil {
		f.Edges = []flow.Edge{}
	}
	return &f, nil
}
