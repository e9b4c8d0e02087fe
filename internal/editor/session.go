// Package editor is the host-facing API of the flow editor. A Session owns
// the open flow and keeps the canvas, the model and the server in step.
package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"whatsapp-flow-editor/internal/blocks"
	"whatsapp-flow-editor/internal/canvas"
	"whatsapp-flow-editor/internal/flow"
	"whatsapp-flow-editor/internal/persistence"
	"whatsapp-flow-editor/internal/refdata"
	"whatsapp-flow-editor/internal/schema"
)

var (
	ErrNoFlow           = errors.New("no flow is open")
	ErrClosed           = errors.New("session is closed")
	ErrNoUploader       = errors.New("file uploads are not configured")
	ErrReferencesNotSet = errors.New("reference list not loaded")
)

// Option configures a Session.
type Option func(*Session)

// WithLoader enables ReloadReferences.
func WithLoader(l *refdata.Loader) Option {
	return func(s *Session) { s.loader = l }
}

// WithUploader enables AttachFile.
func WithUploader(u schema.Uploader) Option {
	return func(s *Session) { s.uploader = u }
}

// WithCanvasOptions passes options to the canvas engine.
func WithCanvasOptions(opts ...canvas.Option) Option {
	return func(s *Session) { s.canvasOpts = append(s.canvasOpts, opts...) }
}

// Session is one editor window.
//
// Thread-safety: all methods are safe for concurrent use. Network calls are
// made without the session lock; their results are applied only if the
// same flow is still open.
type Session struct {
	interp     *schema.Interpreter
	coord      *persistence.Coordinator
	loader     *refdata.Loader
	uploader   schema.Uploader
	canvasOpts []canvas.Option
	canvas     *canvas.Engine

	mu     sync.Mutex
	flow   *flow.Flow
	gen    uint64 // bumped by Open and Close
	rev    uint64 // bumped by every model edit
	refs   refdata.Lists
	closed bool
}

// New returns a session with no flow open.
func New(interp *schema.Interpreter, coord *persistence.Coordinator, opts ...Option) *Session {
	s := &Session{interp: interp, coord: coord, refs: refdata.Lists{}}
	for _, opt := range opts {
		opt(s)
	}
	s.canvas = canvas.NewEngine(interp.Registry(), s.onCanvasChange, s.canvasOpts...)
	return s
}

// Canvas returns the canvas engine driven by this session.
func (s *Session) Canvas() *canvas.Engine {
	return s.canvas
}

// Coordinator returns the persistence coordinator.
func (s *Session) Coordinator() *persistence.Coordinator {
	return s.coord
}

func canvasKey(f *flow.Flow, gen uint64) string {
	if f.IsSaved() {
		return f.ID
	}
	return fmt.Sprintf("new:%d", gen)
}

// Open makes f the current flow. Pending autosaves and canvas propagation
// of the previous flow are cancelled.
func (s *Session) Open(f *flow.Flow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coord.Close()
	s.gen++
	s.rev = 0
	s.closed = false
	s.flow = f.Clone()
	if s.flow.Nodes == nil {
		s.flow.Nodes = []flow.Node{}
	}
	if s.flow.Edges == nil {
		s.flow.Edges = []flow.Edge{}
	}
	s.canvas.Load(canvasKey(s.flow, s.gen), s.flow.Nodes, s.flow.Edges)
	for _, d := range s.interp.Diagnose(s.flow) {
		log.Printf("[Editor] node %s: %s", d.NodeID, d.Message)
	}
}

// Flow returns a copy of the current flow, including canvas edits not yet
// propagated.
func (s *Session) Flow() (*flow.Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return nil, err
	}
	s.commitCanvas()
	return s.flow.Clone(), nil
}

// Diagnostics lists nodes of unknown type in the current flow.
func (s *Session) Diagnostics() []schema.Diagnostic {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flow == nil {
		return nil
	}
	return s.interp.Diagnose(s.flow)
}

func (s *Session) usable() error {
	if s.closed {
		return ErrClosed
	}
	if s.flow == nil {
		return ErrNoFlow
	}
	return nil
}

// onCanvasChange runs on the canvas debounce goroutine.
func (s *Session) onCanvasChange(epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.usable() != nil {
		return
	}
	nodes, edges, ok := s.canvas.Commit(epoch)
	if !ok {
		return
	}
	s.applyCanvas(nodes, edges)
}

// commitCanvas folds pending canvas edits into the model. Caller holds mu.
func (s *Session) commitCanvas() {
	if nodes, edges, ok := s.canvas.TakePending(); ok {
		s.applyCanvas(nodes, edges)
	}
}

func (s *Session) applyCanvas(nodes []flow.Node, edges []flow.Edge) {
	s.flow.Nodes = nodes
	s.flow.Edges = edges
	s.rev++
	s.scheduleAutosave()
}

// scheduleAutosave restarts the autosave window. Caller holds mu.
func (s *Session) scheduleAutosave() {
	gen := s.gen
	s.coord.ScheduleAutosave(func() *flow.Flow {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.gen != gen || s.usable() != nil {
			return nil
		}
		s.commitCanvas()
		return s.flow.Clone()
	})
}

// modelChanged pushes a model edit to the canvas and schedules autosave.
// Caller holds mu.
func (s *Session) modelChanged() {
	s.rev++
	s.canvas.Sync(s.flow.Nodes, s.flow.Edges)
	s.scheduleAutosave()
}

// editNode runs fn on the node after committing canvas edits. fn reports
// whether it changed anything.
func (s *Session) editNode(nodeID string, fn func(n *flow.Node) (bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return err
	}
	s.commitCanvas()
	n, ok := s.flow.Node(nodeID)
	if !ok {
		return fmt.Errorf("%w: %s", flow.ErrNodeNotFound, nodeID)
	}
	changed, err := fn(n)
	if err != nil {
		return err
	}
	if changed {
		s.modelChanged()
	}
	return nil
}

// ApplyConfigEdit writes value into a node's config field. For reference
// selector fields a string value is an id looked up in the loaded list, so
// the display name can be stored next to it.
func (s *Session) ApplyConfigEdit(nodeID, key string, value any) error {
	return s.editNode(nodeID, func(n *flow.Node) (bool, error) {
		field, err := s.interp.Field(n.Type, key)
		if err != nil {
			return false, err
		}
		if entity, ok := blocks.EntityFor(field.Kind); ok {
			if id, isID := value.(string); isID && id != "" {
				ref, err := s.resolve(entity, id)
				if err != nil {
					return false, err
				}
				value = ref
			}
		}
		cfg, err := schema.WriteField(n.Data.Config, field, value)
		if err != nil {
			return false, err
		}
		n.Data.Config = cfg
		return true, nil
	})
}

// SelectReference stores the reference id and its display name.
func (s *Session) SelectReference(nodeID, key, id string) error {
	return s.ApplyConfigEdit(nodeID, key, id)
}

// resolve looks id up in the cached list. Caller holds mu.
func (s *Session) resolve(entity blocks.Entity, id string) (schema.Reference, error) {
	list, ok := s.refs[entity]
	if !ok {
		return schema.Reference{}, fmt.Errorf("%w: %s", ErrReferencesNotSet, entity)
	}
	ref, found := schema.FindReference(list, id)
	if !found {
		return schema.Reference{}, fmt.Errorf("%w: %s %s", schema.ErrUnknownReference, entity, id)
	}
	return ref, nil
}

// AddOption appends an empty option to an options field.
func (s *Session) AddOption(nodeID, key string) error {
	return s.editNode(nodeID, func(n *flow.Node) (bool, error) {
		if err := s.checkKind(n, key, blocks.KindOptions); err != nil {
			return false, err
		}
		n.Data.Config = schema.AddOption(n.Data.Config, key)
		return true, nil
	})
}

// SetOption changes the text of one option.
func (s *Session) SetOption(nodeID, key string, idx int, value string) error {
	return s.editNode(nodeID, func(n *flow.Node) (bool, error) {
		if err := s.checkKind(n, key, blocks.KindOptions); err != nil {
			return false, err
		}
		cfg, err := schema.SetOption(n.Data.Config, key, idx, value)
		if err != nil {
			return false, err
		}
		n.Data.Config = cfg
		return true, nil
	})
}

// RemoveOption deletes an option and re-keys the node's option edges. It
// reports false when the option could not be removed because it is the
// last one.
func (s *Session) RemoveOption(nodeID, key string, idx int) (bool, error) {
	removed := false
	err := s.editNode(nodeID, func(n *flow.Node) (bool, error) {
		if err := s.checkKind(n, key, blocks.KindOptions); err != nil {
			return false, err
		}
		n.Data.Config, removed = schema.RemoveOption(n.Data.Config, key, idx)
		if removed {
			s.flow.RekeyOptionHandles(nodeID, idx)
		}
		return removed, nil
	})
	return removed, err
}

func (s *Session) checkKind(n *flow.Node, key string, kind blocks.FieldKind) error {
	field, err := s.interp.Field(n.Type, key)
	if err != nil {
		return err
	}
	if field.Kind != kind {
		return fmt.Errorf("%w: %s is %s, not %s", schema.ErrInvalidValue, key, field.Kind, kind)
	}
	return nil
}

// AttachFile uploads a file for a file field and stores its token.
func (s *Session) AttachFile(ctx context.Context, nodeID, key, filename string, r io.Reader) error {
	if s.uploader == nil {
		return ErrNoUploader
	}
	s.mu.Lock()
	if err := s.usable(); err != nil {
		s.mu.Unlock()
		return err
	}
	gen := s.gen
	n, ok := s.flow.Node(nodeID)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", flow.ErrNodeNotFound, nodeID)
	}
	field, err := s.interp.Field(n.Type, key)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	cfg, err := schema.AttachFile(ctx, s.uploader, flow.Config{}, field, filename, r)
	if err != nil {
		return err
	}

	s.mu.Lock()
	stale := s.gen != gen
	s.mu.Unlock()
	if stale {
		return nil
	}
	return s.ApplyConfigEdit(nodeID, key, cfg[key])
}

// SelectNode selects a node on the canvas.
func (s *Session) SelectNode(nodeID string) bool {
	return s.canvas.Select(nodeID)
}

// Deselect clears the canvas selection.
func (s *Session) Deselect() {
	s.canvas.Deselect()
}

// Selected returns the selected node as it is in the model.
func (s *Session) Selected() (flow.Node, bool) {
	id, ok := s.canvas.Selected()
	if !ok {
		return flow.Node{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flow == nil {
		return flow.Node{}, false
	}
	s.commitCanvas()
	n, ok := s.flow.Node(id)
	if !ok {
		return flow.Node{}, false
	}
	cp := *n
	cp.Data.Config = n.Data.Config.Clone()
	return cp, true
}

// References returns the cached list for entity.
func (s *Session) References(entity blocks.Entity) []schema.Reference {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]schema.Reference(nil), s.refs[entity]...)
}

// ReloadReferences fetches the four reference lists and clears every
// selector field pointing at a record that no longer exists. Responses that
// arrive after the open flow changed are discarded. Lists that failed to
// load keep their previous contents; their errors are returned.
func (s *Session) ReloadReferences(ctx context.Context) error {
	if s.loader == nil {
		return nil
	}
	s.mu.Lock()
	if err := s.usable(); err != nil {
		s.mu.Unlock()
		return err
	}
	gen := s.gen
	org := s.flow.OrganizationID
	s.mu.Unlock()

	lists, loadErr := s.loader.LoadAll(ctx, org)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.usable() != nil {
		log.Printf("[RefData] Discarding reference lists for a flow that is no longer open")
		return nil
	}
	for entity, list := range lists {
		s.refs[entity] = list
	}
	s.commitCanvas()
	if s.reconcile(lists) {
		s.modelChanged()
	}
	return loadErr
}

// reconcile applies the staleness rule for the given lists. Caller holds mu.
func (s *Session) reconcile(lists refdata.Lists) bool {
	changed := false
	for i := range s.flow.Nodes {
		n := &s.flow.Nodes[i]
		def, ok := s.interp.Registry().DefinitionFor(n.Type)
		if !ok {
			continue
		}
		for _, entity := range blocks.Entities {
			list, loaded := lists[entity]
			if !loaded {
				continue
			}
			cfg, c := schema.ReconcileReferences(n.Data.Config, def.ConfigFields, entity, list)
			if c {
				log.Printf("[RefData] node %s: cleared %s no longer available", n.ID, entity)
				n.Data.Config = cfg
				changed = true
			}
		}
	}
	return changed
}

// Update validates and saves the open flow with feedback. On success the
// model adopts exactly what was sent, unless it was edited during the
// round trip, in which case only the server id and active flag are adopted.
func (s *Session) Update(ctx context.Context) (*flow.Flow, error) {
	return s.save(ctx, s.coord.Update)
}

// Publish activates the open flow. A rejection leaves the model unchanged.
func (s *Session) Publish(ctx context.Context) (*flow.Flow, error) {
	return s.save(ctx, s.coord.Publish)
}

func (s *Session) save(ctx context.Context, send func(context.Context, *flow.Flow) (*flow.Flow, error)) (*flow.Flow, error) {
	s.mu.Lock()
	if err := s.usable(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.commitCanvas()
	snapshot := s.flow.Clone()
	gen, rev := s.gen, s.rev
	s.mu.Unlock()

	sent, err := send(ctx, snapshot)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.usable() != nil {
		return sent, nil
	}
	s.commitCanvas()
	if s.rev == rev {
		s.flow = sent.Clone()
		s.canvas.Sync(s.flow.Nodes, s.flow.Edges)
	} else {
		s.flow.ID = sent.ID
		s.flow.Active = sent.Active
	}
	s.canvas.Rekey(s.flow.ID)
	return sent.Clone(), nil
}

// ToggleActive activates or deactivates flow id. When id is the open flow
// the model takes the new flag so later saves carry it.
func (s *Session) ToggleActive(ctx context.Context, id string, active bool) error {
	if err := s.coord.ToggleActive(ctx, id, active); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.usable() == nil && s.flow.ID == id {
		s.flow.Active = active
	}
	return nil
}

// Close cancels pending timers and discards the open flow.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.gen++
	s.coord.Close()
	s.canvas.Dispose()
}
