package flow

import "whatsapp-flow-editor/internal/blocks"

// RekeyOptionHandles keeps a node's option edges aligned after the option at
// index removed was deleted: its edges are dropped and edges on higher
// option handles shift down by one.
func (f *Flow) RekeyOptionHandles(nodeID string, removed int) {
	edges := f.Edges[:0]
	for _, e := range f.Edges {
		if e.Source == nodeID {
			if i, ok := blocks.ParseOptionHandle(e.SourceHandle); ok {
				if i == removed {
					continue
				}
				if i > removed {
					e.SourceHandle = blocks.OptionHandle(i - 1)
				}
			}
		}
		edges = append(edges, e)
	}
	f.Edges = DedupEdges(edges)
}
