// Package persistence implements the save protocol of the editor: silent
// debounced autosave, explicit update and publish, plus the list, delete
// and toggle lifecycle.
package persistence

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"whatsapp-flow-editor/internal/debounce"
	"whatsapp-flow-editor/internal/flow"
	"whatsapp-flow-editor/internal/schema"
)

// FlowAPI is the external flow backend.
type FlowAPI interface {
	List(ctx context.Context, organizationID string) ([]flow.Flow, error)
	// Save creates or updates a flow and returns it as stored.
	Save(ctx context.Context, f *flow.Flow) (*flow.Flow, error)
	Delete(ctx context.Context, id string) error
	SetActive(ctx context.Context, id string, active bool) error
}

// Notifier shows save feedback to the operator.
type Notifier interface {
	Success(msg string)
	Failure(err error)
	// Background reports a failure nobody explicitly asked about.
	Background(err error)
}

// LogNotifier writes feedback to the standard logger.
type LogNotifier struct{}

func (LogNotifier) Success(msg string)   { log.Printf("[Flows] %s", msg) }
func (LogNotifier) Failure(err error)    { log.Printf("[Flows] Error: %v", err) }
func (LogNotifier) Background(err error) { log.Printf("[Autosave] Error: %v", err) }

const (
	DefaultAutosaveDelay = 1500 * time.Millisecond
	defaultTimeout       = 30 * time.Second
)

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithNotifier replaces LogNotifier.
func WithNotifier(n Notifier) Option {
	return func(c *Coordinator) { c.notify = n }
}

func WithAutosaveDelay(d time.Duration) Option {
	return func(c *Coordinator) { c.delay = d }
}

func WithScheduler(s debounce.Scheduler) Option {
	return func(c *Coordinator) { c.sched = s }
}

// WithFlowList attaches the list that is reloaded after structural changes.
func WithFlowList(l *FlowList) Option {
	return func(c *Coordinator) { c.list = l }
}

// Coordinator owns the save tiers for one editor.
//
// Saves are serialized. An explicit Update or Publish supersedes any
// autosave that is pending or waiting to be sent, so a stale autosave never
// lands after an intentional save.
type Coordinator struct {
	api    FlowAPI
	interp *schema.Interpreter
	notify Notifier
	list   *FlowList
	sched  debounce.Scheduler
	delay  time.Duration

	autosave *debounce.Debouncer
	saveMu   sync.Mutex
	// bumped by every explicit save; autosaves started under an older
	// value are dropped
	explicit atomic.Uint64

	mu       sync.Mutex
	snapshot func() *flow.Flow
	// last active flag the server accepted, by flow id
	active map[string]bool
}

// NewCoordinator returns a coordinator saving through api.
func NewCoordinator(api FlowAPI, interp *schema.Interpreter, opts ...Option) *Coordinator {
	c := &Coordinator{
		api:    api,
		interp: interp,
		notify: LogNotifier{},
		delay:  DefaultAutosaveDelay,
		active: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.autosave = debounce.New(c.delay, c.sched)
	return c
}

// List returns the attached flow list, if any.
func (c *Coordinator) List() *FlowList {
	return c.list
}

// ScheduleAutosave restarts the autosave window. When it elapses the flow
// returned by snapshot is normalized and saved without success feedback.
// Flows without an id are never autosaved.
func (c *Coordinator) ScheduleAutosave(snapshot func() *flow.Flow) {
	c.mu.Lock()
	c.snapshot = snapshot
	c.mu.Unlock()
	c.autosave.Trigger(func() {
		c.runAutosave(c.explicit.Load(), snapshot)
	})
}

// AutosavePending reports whether an autosave is scheduled.
func (c *Coordinator) AutosavePending() bool {
	return c.autosave.Pending()
}

func (c *Coordinator) runAutosave(seq uint64, snapshot func() *flow.Flow) {
	f := snapshot()
	if f == nil || !f.IsSaved() {
		return
	}
	payload := f.Normalize()
	c.keepActive(payload)

	c.saveMu.Lock()
	defer c.saveMu.Unlock()
	if c.explicit.Load() != seq {
		log.Printf("[Autosave] flow %s superseded by an explicit save", f.ID)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	if _, err := c.api.Save(ctx, payload); err != nil {
		c.notify.Background(err)
		return
	}
	log.Printf("[Autosave] flow %s saved", f.ID)
}

// supersede cancels the autosave timer and invalidates autosaves already
// in flight. The returned func puts a cancelled autosave back on the timer
// and is called when the explicit save fails.
func (c *Coordinator) supersede() (restore func()) {
	cancelled := c.autosave.Cancel()
	c.explicit.Add(1)
	c.mu.Lock()
	snapshot := c.snapshot
	c.mu.Unlock()
	return func() {
		if cancelled && snapshot != nil {
			c.ScheduleAutosave(snapshot)
		}
	}
}

// keepActive overwrites f.Active with the flag last accepted by the server
// for f, so a save built from an older copy cannot undo a toggle.
func (c *Coordinator) keepActive(f *flow.Flow) {
	if f.ID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if active, ok := c.active[f.ID]; ok {
		f.Active = active
	}
}

func (c *Coordinator) recordActive(id string, active bool) {
	if id == "" {
		return
	}
	c.mu.Lock()
	c.active[id] = active
	c.mu.Unlock()
}

// Update validates and saves f. On success it returns exactly what was
// sent, with the server id filled in for a first save. Validation and API
// failures are reported, f is left untouched and a pending autosave keeps
// its place on the timer.
func (c *Coordinator) Update(ctx context.Context, f *flow.Flow) (*flow.Flow, error) {
	sent, err := c.prepare(f)
	if err != nil {
		c.notify.Failure(err)
		return nil, err
	}
	restore := c.supersede()
	if err := c.save(ctx, sent); err != nil {
		restore()
		c.notify.Failure(err)
		return nil, err
	}
	c.recordActive(sent.ID, sent.Active)
	c.notify.Success("Fluxo salvo com sucesso")
	c.reload(ctx)
	return sent, nil
}

// Publish saves f with Active set. Only flows with an id can be published.
// A rejection, including an active-flow conflict, is surfaced verbatim and
// f is left as it was.
func (c *Coordinator) Publish(ctx context.Context, f *flow.Flow) (*flow.Flow, error) {
	if !f.IsSaved() {
		c.notify.Failure(ErrNotSaved)
		return nil, ErrNotSaved
	}
	sent, err := c.prepare(f)
	if err != nil {
		c.notify.Failure(err)
		return nil, err
	}
	sent.Active = true
	restore := c.supersede()
	if err := c.save(ctx, sent); err != nil {
		restore()
		c.notify.Failure(err)
		return nil, err
	}
	c.recordActive(sent.ID, true)
	c.notify.Success("Fluxo publicado")
	c.reload(ctx)
	return sent, nil
}

func (c *Coordinator) prepare(f *flow.Flow) (*flow.Flow, error) {
	if err := c.interp.ValidateFlow(f); err != nil {
		return nil, err
	}
	sent := f.Normalize()
	if err := sent.Validate(); err != nil {
		return nil, err
	}
	c.keepActive(sent)
	return sent, nil
}

func (c *Coordinator) save(ctx context.Context, sent *flow.Flow) error {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()
	saved, err := c.api.Save(ctx, sent)
	if err != nil {
		return err
	}
	if sent.ID == "" && saved != nil {
		sent.ID = saved.ID
	}
	return nil
}

// Delete removes a flow and reloads the list.
func (c *Coordinator) Delete(ctx context.Context, id string) error {
	if err := c.api.Delete(ctx, id); err != nil {
		c.notify.Failure(err)
		return err
	}
	c.mu.Lock()
	delete(c.active, id)
	c.mu.Unlock()
	c.notify.Success("Fluxo excluído")
	c.reload(ctx)
	return nil
}

// ToggleActive activates or deactivates a flow and reloads the list.
func (c *Coordinator) ToggleActive(ctx context.Context, id string, active bool) error {
	if err := c.api.SetActive(ctx, id, active); err != nil {
		c.notify.Failure(err)
		return err
	}
	c.recordActive(id, active)
	if active {
		c.notify.Success("Fluxo ativado")
	} else {
		c.notify.Success("Fluxo desativado")
	}
	c.reload(ctx)
	return nil
}

func (c *Coordinator) reload(ctx context.Context) {
	if c.list == nil {
		return
	}
	c.list.Invalidate()
	if _, err := c.list.Reload(ctx); err != nil {
		log.Printf("[Flows] Failed to reload list: %v", err)
	}
}

// Close cancels a pending autosave.
func (c *Coordinator) Close() {
	c.autosave.Cancel()
}
