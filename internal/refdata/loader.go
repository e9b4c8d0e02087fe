// Package refdata fetches the reference lists (agents, departments, teams,
// AI agents) that the selector fields resolve against.
package refdata

import (
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"whatsapp-flow-editor/internal/blocks"
	"whatsapp-flow-editor/internal/schema"
)

// Source reads one reference list for an organization.
type Source interface {
	List(ctx context.Context, entity blocks.Entity, organizationID string) ([]schema.Reference, error)
}

// Lists holds one fetched list per entity. A missing entity means its
// fetch failed.
type Lists map[blocks.Entity][]schema.Reference

// Loader fetches reference lists with retries. Reloads are idempotent.
type Loader struct {
	source Source
	policy RetryPolicy
}

// NewLoader returns a loader using policy for every list.
func NewLoader(src Source, policy RetryPolicy) *Loader {
	return &Loader{source: src, policy: policy.normalized()}
}

// Load fetches one list, retrying on error.
func (l *Loader) Load(ctx context.Context, entity blocks.Entity, organizationID string) ([]schema.Reference, error) {
	var lastErr error
	for attempt := 0; attempt <= l.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			d := backoff(attempt-1, l.policy.BaseDelay, l.policy.MaxDelay, l.policy.Jitter)
			if err := sleep(ctx, d); err != nil {
				return nil, err
			}
		}
		list, err := l.source.List(ctx, entity, organizationID)
		if err == nil {
			if list == nil {
				list = []schema.Reference{}
			}
			return list, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("[RefData] %s list attempt %d failed: %v", entity, attempt+1, err)
	}
	return nil, fmt.Errorf("load %s list: %w", entity, lastErr)
}

// LoadAll fetches the four lists concurrently. Lists that could not be
// loaded are left out of the result and their errors are returned joined;
// a list that fails must not clear references in the others. When ctx is
// cancelled the whole load is abandoned and no list is returned.
func (l *Loader) LoadAll(ctx context.Context, organizationID string) (Lists, error) {
	results := make([][]schema.Reference, len(blocks.Entities))
	errs := make([]error, len(blocks.Entities))

	g, gctx := errgroup.WithContext(ctx)
	for i, entity := range blocks.Entities {
		i, entity := i, entity
		g.Go(func() error {
			results[i], errs[i] = l.Load(gctx, entity, organizationID)
			// a source failure stays in errs; only the caller giving up
			// fails the group
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(Lists, len(blocks.Entities))
	var failed []error
	for i, entity := range blocks.Entities {
		if errs[i] != nil {
			failed = append(failed, errs[i])
			continue
		}
		out[entity] = results[i]
	}
	return out, errors.Join(failed...)
}
