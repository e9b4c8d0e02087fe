package refdata

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whatsapp-flow-editor/internal/blocks"
	"whatsapp-flow-editor/internal/schema"
)

type fakeSource struct {
	mu       sync.Mutex
	calls    map[blocks.Entity]int
	failures map[blocks.Entity]int // failures before success; -1 always fails
	lists    map[blocks.Entity][]schema.Reference
}

func (f *fakeSource) List(_ context.Context, entity blocks.Entity, org string) ([]schema.Reference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[blocks.Entity]int{}
	}
	f.calls[entity]++
	if n := f.failures[entity]; n < 0 || f.calls[entity] <= n {
		return nil, errors.New("unavailable")
	}
	if org != "org-1" {
		return nil, nil
	}
	return f.lists[entity], nil
}

var fastPolicy = RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}

func TestLoadAll(t *testing.T) {
	src := &fakeSource{lists: map[blocks.Entity][]schema.Reference{
		blocks.EntityAgent: {{ID: "1", Name: "Maria"}},
		blocks.EntityTeam:  {{ID: "t1", Name: "Suporte"}},
	}}

	lists, err := NewLoader(src, fastPolicy).LoadAll(context.Background(), "org-1")

	require.NoError(t, err)
	assert.Len(t, lists, 4)
	assert.Equal(t, []schema.Reference{{ID: "1", Name: "Maria"}}, lists[blocks.EntityAgent])
	assert.NotNil(t, lists[blocks.EntityDepartment])
	assert.Empty(t, lists[blocks.EntityDepartment])
}

func TestLoad_RetriesThenSucceeds(t *testing.T) {
	src := &fakeSource{
		failures: map[blocks.Entity]int{blocks.EntityAgent: 2},
		lists:    map[blocks.Entity][]schema.Reference{blocks.EntityAgent: {{ID: "1"}}},
	}

	list, err := NewLoader(src, fastPolicy).Load(context.Background(), blocks.EntityAgent, "org-1")

	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 3, src.calls[blocks.EntityAgent])
}

func TestLoadAll_PartialFailureKeepsOtherLists(t *testing.T) {
	src := &fakeSource{failures: map[blocks.Entity]int{blocks.EntityTeam: -1}}

	lists, err := NewLoader(src, fastPolicy).LoadAll(context.Background(), "org-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "time")
	_, ok := lists[blocks.EntityTeam]
	assert.False(t, ok)
	assert.Len(t, lists, 3)
	assert.Equal(t, 3, src.calls[blocks.EntityTeam])
}

func TestLoad_ContextCancelled(t *testing.T) {
	src := &fakeSource{failures: map[blocks.Entity]int{blocks.EntityAgent: -1}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLoader(src, RetryPolicy{MaxRetries: 5, BaseDelay: time.Hour}).Load(ctx, blocks.EntityAgent, "org-1")

	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadAll_CancelledReturnsNoLists(t *testing.T) {
	src := &fakeSource{lists: map[blocks.Entity][]schema.Reference{
		blocks.EntityAgent: {{ID: "1", Name: "Maria"}},
	}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	lists, err := NewLoader(src, fastPolicy).LoadAll(ctx, "org-1")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, lists)
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, backoff(0, 100*time.Millisecond, time.Second, false))
	assert.Equal(t, 400*time.Millisecond, backoff(2, 100*time.Millisecond, time.Second, false))
	assert.Equal(t, time.Second, backoff(6, 100*time.Millisecond, time.Second, false))

	d := backoff(1, 100*time.Millisecond, time.Second, true)
	assert.GreaterOrEqual(t, d, 100*time.Millisecond)
	assert.Less(t, d, 200*time.Millisecond)
}
