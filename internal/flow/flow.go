package flow

import "strings"

// Channels a flow can be bound to.
const (
	ChannelWhatsApp = "whatsapp"
	ChannelWebchat  = "webchat"
	ChannelTelegram = "telegram"
)

// Position is a canvas coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Config maps a field key to its value. Values are kept in JSON shapes
// (string, []any, map[string]any, bool, float64) so a reloaded config is
// deep-equal to the one that was saved.
type Config map[string]any

// NodeData is the payload carried by a node.
type NodeData struct {
	Label  string `json:"label"`
	Config Config `json:"config"`
}

// Node is one step of a flow.
type Node struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Position Position `json:"position"`
	Data     NodeData `json:"data"`
}

// Edge is a directed connection between two node ports.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
	Label        string `json:"label,omitempty"`
	Type         string `json:"type,omitempty"`
}

// Flow is the automation definition for one channel of one organization.
type Flow struct {
	ID             string `json:"id,omitempty"` // empty until first save
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	Active         bool   `json:"active"`
	Channel        string `json:"channel"`
	OrganizationID string `json:"organizationId"`
	OwnerUserID    string `json:"ownerUserId,omitempty"`
	Nodes          []Node `json:"nodes"`
	Edges          []Edge `json:"edges"`
}

// New returns an empty, unsaved flow.
func New(organizationID, channel string) *Flow {
	return &Flow{
		Channel:        channel,
		OrganizationID: organizationID,
		Nodes:          []Node{},
		Edges:          []Edge{},
	}
}

// IsSaved reports whether the server has assigned an id.
func (f *Flow) IsSaved() bool {
	return f.ID != ""
}

// Node returns a pointer into f.Nodes for id.
func (f *Flow) Node(id string) (*Node, bool) {
	for i := range f.Nodes {
		if f.Nodes[i].ID == id {
			return &f.Nodes[i], true
		}
	}
	return nil, false
}

// RemoveNode deletes a node and every edge touching it.
func (f *Flow) RemoveNode(id string) bool {
	idx := -1
	for i, n := range f.Nodes {
		if n.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	f.Nodes = append(f.Nodes[:idx], f.Nodes[idx+1:]...)

	edges := f.Edges[:0]
	for _, e := range f.Edges {
		if e.Source != id && e.Target != id {
			edges = append(edges, e)
		}
	}
	f.Edges = edges
	return true
}

// Connect adds e unless an edge with the same identity already exists.
func (f *Flow) Connect(e Edge) bool {
	key := e.Key()
	for _, existing := range f.Edges {
		if existing.Key() == key {
			return false
		}
	}
	f.Edges = append(f.Edges, e)
	return true
}

// RemoveEdge deletes the edge with the given id.
func (f *Flow) RemoveEdge(id string) bool {
	for i, e := range f.Edges {
		if e.ID == id {
			f.Edges = append(f.Edges[:i], f.Edges[i+1:]...)
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (f *Flow) Clone() *Flow {
	if f == nil {
		return nil
	}
	out := *f
	out.Nodes = CloneNodes(f.Nodes)
	out.Edges = append([]Edge(nil), f.Edges...)
	if out.Edges == nil {
		out.Edges = []Edge{}
	}
	return &out
}

// CloneNodes deep-copies nodes including their configs.
func CloneNodes(nodes []Node) []Node {
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = n
		out[i].Data.Config = n.Data.Config.Clone()
	}
	return out
}

// Clone deep-copies the config.
func (c Config) Clone() Config {
	if c == nil {
		return nil
	}
	out := make(Config, len(c))
	for k, v := range c {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, x := range t {
			m[k] = cloneValue(x)
		}
		return m
	case Config:
		return t.Clone()
	case []any:
		s := make([]any, len(t))
		for i, x := range t {
			s[i] = cloneValue(x)
		}
		return s
	case []string:
		return append([]string(nil), t...)
	case map[string]bool:
		m := make(map[string]bool, len(t))
		for k, x := range t {
			m[k] = x
		}
		return m
	default:
		return v
	}
}

// Normalize returns the persisted shape of the flow: nodes reduced to
// {id, type, position, data{label, config}}, edges reduced and deduplicated.
func (f *Flow) Normalize() *Flow {
	out := f.Clone()
	for i, n := range out.Nodes {
		cfg := n.Data.Config
		if cfg == nil {
			cfg = Config{}
		}
		out.Nodes[i] = Node{
			ID:       n.ID,
			Type:     n.Type,
			Position: n.Position,
			Data:     NodeData{Label: n.Data.Label, Config: cfg},
		}
	}
	out.Edges = DedupEdges(out.Edges)
	return out
}

// Validate checks structural invariants: a name, unique node ids and edges
// whose endpoints exist.
func (f *Flow) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return ErrMissingName
	}
	ids := make(map[string]bool, len(f.Nodes))
	for _, n := range f.Nodes {
		if n.ID == "" {
			return ErrInvalidNodeID
		}
		if ids[n.ID] {
			return &NodeError{NodeID: n.ID, Err: ErrDuplicateNode}
		}
		ids[n.ID] = true
	}
	for _, e := range f.Edges {
		if !ids[e.Source] || !ids[e.Target] {
			return &EdgeError{EdgeID: e.ID, Err: ErrDanglingEdge}
		}
	}
	return nil
}
