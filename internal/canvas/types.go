// Package canvas keeps the rendering-side graph (cells and connectors) in
// step with the flow model.
package canvas

import (
	"fmt"

	"whatsapp-flow-editor/internal/blocks"
	"whatsapp-flow-editor/internal/flow"
)

// CellType is the renderer node type every block is painted with.
const CellType = "block"

// State is the lifecycle state of an Engine.
type State int

const (
	StateUninitialized State = iota
	StateHydrating
	StateSynchronized
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateHydrating:
		return "hydrating"
	case StateSynchronized:
		return "synchronized"
	case StateDisposed:
		return "disposed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// CellData is the flattened payload a renderer needs to paint a block.
type CellData struct {
	BlockType  string      `json:"blockType"`
	Label      string      `json:"label"`
	Config     flow.Config `json:"config"`
	Icon       string      `json:"icon,omitempty"`
	Color      string      `json:"color,omitempty"`
	Category   string      `json:"category,omitempty"`
	Diagnostic string      `json:"diagnostic,omitempty"`
}

// Cell is a node as the canvas holds it.
type Cell struct {
	ID       string        `json:"id"`
	Type     string        `json:"type"`
	Position flow.Position `json:"position"`
	Data     CellData      `json:"data"`
	Selected bool          `json:"selected,omitempty"`
	Dragging bool          `json:"dragging,omitempty"`
}

// Connector is an edge as the canvas holds it.
type Connector struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
	Label        string `json:"label,omitempty"`
	Type         string `json:"type,omitempty"`
}

func (c Connector) key() flow.EdgeKey {
	return flow.EdgeKey{Source: c.Source, Target: c.Target, SourceHandle: c.SourceHandle}
}

// Point is a screen coordinate.
type Point struct {
	X float64
	Y float64
}

// Viewport is the pan offset and zoom of the canvas.
type Viewport struct {
	X    float64
	Y    float64
	Zoom float64
}

// ToCanvas maps a screen point into canvas coordinates.
func (v Viewport) ToCanvas(p Point) flow.Position {
	zoom := v.Zoom
	if zoom == 0 {
		zoom = 1
	}
	return flow.Position{X: (p.X - v.X) / zoom, Y: (p.Y - v.Y) / zoom}
}

func cellFromNode(reg *blocks.Registry, n flow.Node) Cell {
	data := CellData{
		BlockType: n.Type,
		Label:     n.Data.Label,
		Config:    n.Data.Config.Clone(),
	}
	if def, ok := reg.DefinitionFor(n.Type); ok {
		data.Icon = def.Icon
		data.Color = def.Color
		data.Category = def.Category
	} else {
		data.Diagnostic = fmt.Sprintf("unknown block type %q", n.Type)
	}
	return Cell{ID: n.ID, Type: CellType, Position: n.Position, Data: data}
}

func (c Cell) node() flow.Node {
	cfg := c.Data.Config.Clone()
	if cfg == nil {
		cfg = flow.Config{}
	}
	return flow.Node{
		ID:       c.ID,
		Type:     c.Data.BlockType,
		Position: c.Position,
		Data:     flow.NodeData{Label: c.Data.Label, Config: cfg},
	}
}

func connectorFromEdge(e flow.Edge) Connector {
	return Connector{
		ID:           e.ID,
		Source:       e.Source,
		Target:       e.Target,
		SourceHandle: e.SourceHandle,
		TargetHandle: e.TargetHandle,
		Label:        e.Label,
		Type:         e.Type,
	}
}

func (c Connector) edge() flow.Edge {
	return flow.Edge{
		ID:           c.ID,
		Source:       c.Source,
		Target:       c.Target,
		SourceHandle: c.SourceHandle,
		TargetHandle: c.TargetHandle,
		Label:        c.Label,
		Type:         c.Type,
	}
}
