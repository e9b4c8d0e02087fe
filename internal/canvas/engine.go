package canvas

import (
	"errors"
	"fmt"
	"log"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"

	"whatsapp-flow-editor/internal/blocks"
	"whatsapp-flow-editor/internal/debounce"
	"whatsapp-flow-editor/internal/flow"
	"whatsapp-flow-editor/internal/schema"
)

var (
	ErrDisposed     = errors.New("canvas is disposed")
	ErrNotLoaded    = errors.New("canvas has no flow loaded")
	ErrCellNotFound = errors.New("cell not found")
)

// DefaultPropagationDelay is the quiet period before canvas edits reach
// the model.
const DefaultPropagationDelay = 300 * time.Millisecond

// ChangeFunc is told that canvas edits are ready to be committed. It runs
// on the debounce goroutine, outside the engine lock, and should call
// Commit with the epoch it was given.
type ChangeFunc func(epoch uint64)

// Option configures an Engine.
type Option func(*Engine)

// WithIDGenerator replaces the node id synthesis used by Drop.
func WithIDGenerator(fn func(blockType string) string) Option {
	return func(e *Engine) { e.newID = fn }
}

// WithScheduler sets the timer source of the propagation debounce.
func WithScheduler(s debounce.Scheduler) Option {
	return func(e *Engine) { e.sched = s }
}

// WithDelay sets the propagation debounce window.
func WithDelay(d time.Duration) Option {
	return func(e *Engine) { e.delay = d }
}

type nodeContent struct {
	ID   string
	Data flow.NodeData
}

// Engine is the reconciliation state machine between the canvas and the
// flow model of one editor.
//
// Thread-safety: all methods are safe for concurrent use. The ChangeFunc is
// never called with the engine lock held.
type Engine struct {
	registry *blocks.Registry
	onChange ChangeFunc
	newID    func(string) string
	sched    debounce.Scheduler
	delay    time.Duration
	debounce *debounce.Debouncer

	mu         sync.Mutex
	state      State
	key        string
	epoch      uint64
	cells      []Cell
	connectors []Connector
	dirty      bool

	// last-materialized snapshot, in model terms
	snapNodes []nodeContent
	snapEdges map[flow.EdgeKey]bool
}

// NewEngine returns an Uninitialized engine.
func NewEngine(reg *blocks.Registry, onChange ChangeFunc, opts ...Option) *Engine {
	e := &Engine{
		registry: reg,
		onChange: onChange,
		newID:    defaultID,
		delay:    DefaultPropagationDelay,
		state:    StateUninitialized,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.debounce = debounce.New(e.delay, e.sched)
	return e
}

func defaultID(blockType string) string {
	return blockType + "-" + uuid.NewString()
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Key returns the identity of the loaded flow.
func (e *Engine) Key() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.key
}

// Epoch changes whenever the loaded flow is replaced or disposed.
func (e *Engine) Epoch() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.epoch
}

// Load opens a flow on the canvas. A key different from the loaded one
// resets the canvas and hydrates it from nodes and edges. The same key is
// treated as an upstream change and goes through Sync. Load reports whether
// the canvas was re-rendered.
func (e *Engine) Load(key string, nodes []flow.Node, edges []flow.Edge) bool {
	e.mu.Lock()
	if e.state == StateSynchronized && e.key == key {
		e.mu.Unlock()
		return e.Sync(nodes, edges)
	}
	defer e.mu.Unlock()

	e.debounce.Cancel()
	e.epoch++
	e.key = key
	e.state = StateUninitialized
	e.cells = nil
	e.connectors = nil
	e.dirty = false

	e.state = StateHydrating
	e.hydrate(nodes, edges, false)
	e.state = StateSynchronized
	log.Printf("[Canvas] Hydrated %s: %d cells, %d connectors", key, len(e.cells), len(e.connectors))
	return true
}

// Sync applies an upstream change of the model. The incoming nodes and
// edges are compared by {id, data} and by edge identity against the last
// materialized snapshot; the canvas is only re-rendered when they differ.
// Cells already on the canvas keep their canvas position.
//
// Callers commit pending canvas edits with TakePending first; a Sync that
// re-renders discards them.
func (e *Engine) Sync(nodes []flow.Node, edges []flow.Edge) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateSynchronized {
		return false
	}
	if e.sameAsSnapshot(nodes, edges) {
		return false
	}
	if e.dirty {
		e.debounce.Cancel()
		e.dirty = false
	}
	e.hydrate(nodes, edges, true)
	return true
}

// hydrate rebuilds cells and connectors and records the snapshot. Caller
// holds mu.
func (e *Engine) hydrate(nodes []flow.Node, edges []flow.Edge, keepPositions bool) {
	prev := make(map[string]Cell, len(e.cells))
	if keepPositions {
		for _, c := range e.cells {
			prev[c.ID] = c
		}
	}
	cells := make([]Cell, 0, len(nodes))
	for _, n := range nodes {
		c := cellFromNode(e.registry, n)
		if old, ok := prev[n.ID]; ok {
			c.Position = old.Position
			c.Selected = old.Selected
			c.Dragging = old.Dragging
		}
		cells = append(cells, c)
	}
	deduped := flow.DedupEdges(edges)
	conns := make([]Connector, len(deduped))
	for i, ed := range deduped {
		conns[i] = connectorFromEdge(ed)
	}
	e.cells = cells
	e.connectors = conns
	e.snapNodes = contentOf(nodes)
	e.snapEdges = flow.EdgeKeySet(deduped)
}

func contentOf(nodes []flow.Node) []nodeContent {
	out := make([]nodeContent, len(nodes))
	for i, n := range nodes {
		data := n.Data
		data.Config = n.Data.Config.Clone()
		out[i] = nodeContent{ID: n.ID, Data: data}
	}
	return out
}

func (e *Engine) sameAsSnapshot(nodes []flow.Node, edges []flow.Edge) bool {
	if len(nodes) != len(e.snapNodes) {
		return false
	}
	for i, n := range nodes {
		s := e.snapNodes[i]
		if n.ID != s.ID || n.Data.Label != s.Data.Label || !sameConfig(n.Data.Config, s.Data.Config) {
			return false
		}
	}
	return reflect.DeepEqual(flow.EdgeKeySet(edges), e.snapEdges)
}

// sameConfig treats a nil config and an empty one as equal.
func sameConfig(a, b flow.Config) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}

// Rekey changes the identity of the loaded flow without re-rendering, as
// happens when a new flow gets its id on first save.
func (e *Engine) Rekey(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.key = key
}

// Dispose cancels pending propagation and clears the canvas. Commits for
// earlier epochs are refused afterwards.
func (e *Engine) Dispose() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.debounce.Cancel()
	e.epoch++
	e.state = StateDisposed
	e.cells = nil
	e.connectors = nil
	e.dirty = false
	e.snapNodes = nil
	e.snapEdges = nil
}

// Commit materializes pending canvas edits into model nodes and deduped
// edges. It returns false when epoch is stale or nothing is pending.
func (e *Engine) Commit(epoch uint64) ([]flow.Node, []flow.Edge, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if epoch != e.epoch || e.state != StateSynchronized || !e.dirty {
		return nil, nil, false
	}
	return e.commit()
}

// TakePending cancels the propagation timer and commits right away.
func (e *Engine) TakePending() ([]flow.Node, []flow.Edge, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.debounce.Cancel()
	if e.state != StateSynchronized || !e.dirty {
		return nil, nil, false
	}
	return e.commit()
}

// Pending reports whether canvas edits are waiting to be committed.
func (e *Engine) Pending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dirty
}

// commit must be called with mu held.
func (e *Engine) commit() ([]flow.Node, []flow.Edge, bool) {
	nodes := make([]flow.Node, len(e.cells))
	for i, c := range e.cells {
		nodes[i] = c.node()
	}
	edges := make([]flow.Edge, len(e.connectors))
	for i, c := range e.connectors {
		edges[i] = c.edge()
	}
	edges = flow.DedupEdges(edges)
	e.dirty = false
	e.snapNodes = contentOf(nodes)
	e.snapEdges = flow.EdgeKeySet(edges)
	return nodes, edges, true
}

// touch marks the canvas dirty and restarts the propagation window.
// Caller holds mu.
func (e *Engine) touch() {
	e.dirty = true
	epoch := e.epoch
	notify := e.onChange
	e.debounce.Trigger(func() {
		if notify != nil {
			notify(epoch)
		}
	})
}

func (e *Engine) editable() error {
	switch e.state {
	case StateDisposed:
		return ErrDisposed
	case StateSynchronized:
		return nil
	}
	return ErrNotLoaded
}

func (e *Engine) cellIndex(id string) int {
	for i, c := range e.cells {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// MoveNode sets the canvas position of a cell.
func (e *Engine) MoveNode(id string, pos flow.Position, dragging bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.editable(); err != nil {
		return err
	}
	i := e.cellIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrCellNotFound, id)
	}
	e.cells[i].Position = pos
	e.cells[i].Dragging = dragging
	e.touch()
	return nil
}

// Connect adds a connector between two existing cells. A connector whose
// identity is already on the canvas is ignored and Connect returns false.
func (e *Engine) Connect(c Connector) (Connector, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.editable(); err != nil {
		return Connector{}, false, err
	}
	if e.cellIndex(c.Source) < 0 {
		return Connector{}, false, fmt.Errorf("%w: %s", ErrCellNotFound, c.Source)
	}
	if e.cellIndex(c.Target) < 0 {
		return Connector{}, false, fmt.Errorf("%w: %s", ErrCellNotFound, c.Target)
	}
	for _, existing := range e.connectors {
		if existing.key() == c.key() {
			return existing, false, nil
		}
	}
	if c.ID == "" {
		c.ID = flow.NewEdgeID(c.Source, c.Target)
	}
	e.connectors = append(e.connectors, c)
	e.touch()
	return c, true, nil
}

// RemoveConnector deletes a connector by id.
func (e *Engine) RemoveConnector(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.editable() != nil {
		return false
	}
	for i, c := range e.connectors {
		if c.ID == id {
			e.connectors = append(e.connectors[:i], e.connectors[i+1:]...)
			e.touch()
			return true
		}
	}
	return false
}

// RemoveCell deletes a cell and every connector touching it.
func (e *Engine) RemoveCell(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.editable() != nil {
		return false
	}
	i := e.cellIndex(id)
	if i < 0 {
		return false
	}
	e.cells = append(e.cells[:i], e.cells[i+1:]...)
	conns := e.connectors[:0]
	for _, c := range e.connectors {
		if c.Source != id && c.Target != id {
			conns = append(conns, c)
		}
	}
	e.connectors = conns
	e.touch()
	return true
}

// Drop places a new block of blockType at a screen point. The cell gets a
// fresh id, the definition label and a default config.
func (e *Engine) Drop(blockType string, at Point, vp Viewport) (Cell, error) {
	def, ok := e.registry.DefinitionFor(blockType)
	if !ok {
		return Cell{}, fmt.Errorf("%w: %q", schema.ErrUnknownBlockType, blockType)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.editable(); err != nil {
		return Cell{}, err
	}
	n := flow.Node{
		ID:       e.newID(blockType),
		Type:     blockType,
		Position: vp.ToCanvas(at),
		Data:     flow.NodeData{Label: def.Label, Config: schema.DefaultConfig(def)},
	}
	c := cellFromNode(e.registry, n)
	e.cells = append(e.cells, c)
	e.touch()
	return c, nil
}

// Select marks one cell as selected and clears the others. Selection is
// canvas-only state and is not propagated.
func (e *Engine) Select(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cellIndex(id) < 0 {
		return false
	}
	for i := range e.cells {
		e.cells[i].Selected = e.cells[i].ID == id
	}
	return true
}

// Deselect clears the selection.
func (e *Engine) Deselect() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.cells {
		e.cells[i].Selected = false
	}
}

// Selected returns the id of the selected cell.
func (e *Engine) Selected() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, c := range e.cells {
		if c.Selected {
			return c.ID, true
		}
	}
	return "", false
}

// Cells returns a copy of the canvas cells.
func (e *Engine) Cells() []Cell {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Cell, len(e.cells))
	for i, c := range e.cells {
		out[i] = c
		out[i].Data.Config = c.Data.Config.Clone()
	}
	return out
}

// Connectors returns a copy of the canvas connectors.
func (e *Engine) Connectors() []Connector {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Connector(nil), e.connectors...)
}
