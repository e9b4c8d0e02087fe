package persistence

import (
	"context"
	"sync"

	"whatsapp-flow-editor/internal/flow"
)

// FlowList is the single owned copy of an organization's flow list. It is
// never patched locally: structural changes invalidate it and the next read
// reloads from the API.
type FlowList struct {
	api            FlowAPI
	organizationID string

	mu    sync.Mutex
	flows []flow.Flow
	stale bool
}

// NewFlowList returns an empty list that loads on first read.
func NewFlowList(api FlowAPI, organizationID string) *FlowList {
	return &FlowList{api: api, organizationID: organizationID, stale: true}
}

// Reload fetches the list from the API. On failure the previous contents
// are kept and remain stale.
func (l *FlowList) Reload(ctx context.Context) ([]flow.Flow, error) {
	flows, err := l.api.List(ctx, l.organizationID)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.flows = flows
	l.stale = false
	return cloneFlows(flows), nil
}

// Invalidate marks the list for reload.
func (l *FlowList) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stale = true
}

// Stale reports whether the next read will hit the API.
func (l *FlowList) Stale() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stale
}

// Flows returns the list, reloading it when stale.
func (l *FlowList) Flows(ctx context.Context) ([]flow.Flow, error) {
	l.mu.Lock()
	if !l.stale {
		out := cloneFlows(l.flows)
		l.mu.Unlock()
		return out, nil
	}
	l.mu.Unlock()
	return l.Reload(ctx)
}

func cloneFlows(flows []flow.Flow) []flow.Flow {
	out := make([]flow.Flow, len(flows))
	for i := range flows {
		out[i] = *flows[i].Clone()
	}
	return out
}
