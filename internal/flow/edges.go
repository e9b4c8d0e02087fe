package flow

import "github.com/google/uuid"

// EdgeKey is the identity of a connection. Two edges with the same key are
// the same connection regardless of id.
type EdgeKey struct {
	Source       string
	Target       string
	SourceHandle string
}

// Key returns the identity of e.
func (e Edge) Key() EdgeKey {
	return EdgeKey{Source: e.Source, Target: e.Target, SourceHandle: e.SourceHandle}
}

// DedupEdges keeps the first edge per key in input order and drops the rest.
func DedupEdges(edges []Edge) []Edge {
	seen := make(map[EdgeKey]bool, len(edges))
	out := make([]Edge, 0, len(edges))
	for _, e := range edges {
		k := e.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, e)
	}
	return out
}

// EdgeKeySet returns the set of identities present in edges.
func EdgeKeySet(edges []Edge) map[EdgeKey]bool {
	set := make(map[EdgeKey]bool, len(edges))
	for _, e := range edges {
		set[e.Key()] = true
	}
	return set
}

// NewEdgeID returns a fresh edge id.
func NewEdgeID(source, target string) string {
	return "e-" + source + "-" + target + "-" + uuid.NewString()[:8]
}
