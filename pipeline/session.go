// Package pipeline runs edits end to end: the new source is generated,
// committed to the store, rendered and then persisted, one edit at a time.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"flowedit/diagram"
	"flowedit/edit"
	"flowedit/interaction"
	"flowedit/logging"
	"flowedit/render"
	"flowedit/state"
)

// DefaultTypingDebounce is the quiet period before typed text is committed.
const DefaultTypingDebounce = 800 * time.Millisecond

// ErrEditInFlight is returned when an edit is attempted while another is
// still rendering or saving.
var ErrEditInFlight = errors.New("another edit is still in flight")

// Renderer draws a source. *render.Adapter satisfies it.
type Renderer interface {
	Render(ctx context.Context, source string) (*render.Diagram, error)
}

// Persister loads and stores the document source.
type Persister interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, source string) error
}

// Options configures a Session.
type Options struct {
	TypingDebounce  time.Duration
	HistoryCapacity int
	Logger          *slog.Logger

	// OnRender is called after every successful render, typically to rebind
	// the interaction controller.
	OnRender func(*render.Diagram)
}

// Session owns the edit pipeline for one document.
type Session struct {
	store     *state.Store
	renderer  Renderer
	persister Persister
	logger    *slog.Logger
	onRender  func(*render.Diagram)
	debounce  time.Duration

	sem     *semaphore.Weighted
	history *state.History // guarded by sem

	mu    sync.Mutex
	timer *time.Timer
}

var _ interaction.Editor = (*Session)(nil)

// NewSession creates a session. persister may be nil, in which case edits
// are never saved.
func NewSession(store *state.Store, renderer Renderer, persister Persister, opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.TypingDebounce <= 0 {
		opts.TypingDebounce = DefaultTypingDebounce
	}
	s := &Session{
		store:     store,
		renderer:  renderer,
		persister: persister,
		logger:    opts.Logger,
		onRender:  opts.OnRender,
		debounce:  opts.TypingDebounce,
		sem:       semaphore.NewWeighted(1),
		history:   state.NewHistory(opts.HistoryCapacity),
	}
	s.history.Save(store.Snapshot().Source)
	return s
}

// Store returns the session's state store.
func (s *Session) Store() *state.Store {
	return s.store
}

// Load replaces the source with the persisted one and renders it. It waits
// for any edit in flight.
func (s *Session) Load(ctx context.Context) error {
	if s.persister == nil {
		return s.Render(ctx)
	}
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.sem.Release(1)

	s.store.SetLoading(true)
	source, err := s.persister.Load(ctx)
	s.store.SetLoading(false)
	if err != nil {
		s.store.SetError(err)
		return fmt.Errorf("load: %w", err)
	}

	s.store.SetSource(source)
	s.store.SetError(nil)
	s.history.Clear()
	s.history.Save(source)
	_, err = s.render(ctx, source)
	return err
}

// Render draws the current source without changing it.
func (s *Session) Render(ctx context.Context) error {
	_, err := s.render(ctx, s.store.Snapshot().Source)
	return err
}

// ApplyEdit runs fn against the latest text, uncommitted draft included,
// and takes the result through commit, render and save. A render failure
// keeps the new source, records the error and skips saving. A save failure
// keeps the new source in memory. A second call while one is running fails
// with ErrEditInFlight.
func (s *Session) ApplyEdit(ctx context.Context, name string, fn func(source string) string) error {
	if !s.sem.TryAcquire(1) {
		return ErrEditInFlight
	}
	defer s.sem.Release(1)
	s.stopTimer()

	ctx = logging.WithOperation(logging.WithEditID(ctx, uuid.New().String()), name)

	snap := s.store.Snapshot()
	next := fn(snap.Draft)
	if next == snap.Source && !snap.Dirty() {
		s.logger.DebugContext(ctx, "edit changed nothing")
		return nil
	}
	return s.commit(ctx, next, true)
}

// commit installs source and runs the render and save stages.
func (s *Session) commit(ctx context.Context, source string, record bool) error {
	s.store.SetSource(source)
	if record {
		s.history.Save(source)
	}
	s.store.SetError(nil)

	d, err := s.render(ctx, source)
	switch {
	case errors.Is(err, render.ErrStale):
		// A later render of the store overtook this one; the edit still stands
		s.logger.DebugContext(ctx, "edit render superseded")
	case err != nil:
		return err
	default:
		s.logger.InfoContext(ctx, "edit rendered", "nodes", len(d.Nodes), "edges", len(d.Edges))
	}

	if s.persister == nil {
		return nil
	}
	s.store.SetSaving(true)
	err = s.persister.Save(ctx, source)
	s.store.SetSaving(false)
	if err != nil {
		err = fmt.Errorf("save: %w", err)
		s.store.SetError(err)
		s.logger.WarnContext(ctx, "save failed", "error", err)
		return err
	}
	return nil
}

func (s *Session) render(ctx context.Context, source string) (*render.Diagram, error) {
	d, err := s.renderer.Render(ctx, source)
	if errors.Is(err, render.ErrStale) {
		return nil, err
	}
	if err != nil {
		var rerr *render.RenderError
		if !errors.As(err, &rerr) {
			rerr = &render.RenderError{Message: render.CleanErrorMessage(err.Error()), Err: err}
		}
		s.store.SetError(rerr)
		s.logger.WarnContext(ctx, "render failed", "error", rerr.Message)
		return nil, rerr
	}
	if s.onRender != nil {
		s.onRender(d)
	}
	return d, nil
}

// UpdateDraft records typed text and commits it once typing pauses for
// the debounce window.
func (s *Session) UpdateDraft(text string) {
	s.store.SetDraft(text)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, s.flushFromTimer)
}

// FlushDraft commits pending typed text now.
func (s *Session) FlushDraft(ctx context.Context) error {
	return s.ApplyEdit(ctx, "draft", func(draft string) string { return draft })
}

func (s *Session) flushFromTimer() {
	err := s.FlushDraft(context.Background())
	switch {
	case errors.Is(err, ErrEditInFlight):
		// Try again once the running edit is done
		s.mu.Lock()
		s.timer = time.AfterFunc(s.debounce, s.flushFromTimer)
		s.mu.Unlock()
	case err != nil:
		s.logger.Warn("committing draft failed", "error", err)
	}
}

func (s *Session) stopTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Close stops the draft timer. Pending typed text is not committed.
func (s *Session) Close() {
	s.stopTimer()
}

// ExternalChange installs source that was changed by someone else. It is
// rendered but not saved back.
func (s *Session) ExternalChange(ctx context.Context, source string) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.sem.Release(1)
	s.stopTimer()

	s.store.SetSource(source)
	s.history.Save(source)
	s.store.SetError(nil)
	_, err := s.render(ctx, source)
	return err
}

// Undo restores the previous source.
func (s *Session) Undo(ctx context.Context) error {
	return s.travel(ctx, "undo", s.history.Undo)
}

// Redo restores the source undone last.
func (s *Session) Redo(ctx context.Context) error {
	return s.travel(ctx, "redo", s.history.Redo)
}

func (s *Session) travel(ctx context.Context, name string, step func() (string, bool)) error {
	if !s.sem.TryAcquire(1) {
		return ErrEditInFlight
	}
	defer s.sem.Release(1)
	s.stopTimer()

	source, ok := step()
	if !ok {
		return nil
	}
	ctx = logging.WithOperation(logging.WithEditID(ctx, uuid.New().String()), name)
	return s.commit(ctx, source, false)
}

// CanUndo reports whether Undo would change anything.
func (s *Session) CanUndo() bool {
	if !s.sem.TryAcquire(1) {
		return false
	}
	defer s.sem.Release(1)
	return s.history.CanUndo()
}

// CanRedo reports whether Redo would change anything.
func (s *Session) CanRedo() bool {
	if !s.sem.TryAcquire(1) {
		return false
	}
	defer s.sem.Release(1)
	return s.history.CanRedo()
}

// AddNode appends a node and returns its id.
func (s *Session) AddNode(ctx context.Context, label string, shape diagram.Shape) (string, error) {
	var id string
	err := s.ApplyEdit(ctx, "add-node", func(source string) string {
		var next string
		next, id = edit.AddNode(source, label, shape)
		return next
	})
	return id, err
}

// DeleteNode removes a node and everything referring to it.
func (s *Session) DeleteNode(ctx context.Context, id string) error {
	return s.ApplyEdit(ctx, "delete-node", func(source string) string {
		return edit.DeleteNode(source, id)
	})
}

// DeleteEdge removes the edge at index.
func (s *Session) DeleteEdge(ctx context.Context, index int) error {
	return s.ApplyEdit(ctx, "delete-edge", func(source string) string {
		return edit.DeleteEdge(source, index)
	})
}

// DeleteMultiple removes several nodes and edges in one edit.
func (s *Session) DeleteMultiple(ctx context.Context, nodeIDs []string, edgeIndices []int) error {
	return s.ApplyEdit(ctx, "delete-multiple", func(source string) string {
		return edit.DeleteMultiple(source, nodeIDs, edgeIndices)
	})
}

// RenameNode sets a node label.
func (s *Session) RenameNode(ctx context.Context, id, label string) error {
	return s.ApplyEdit(ctx, "rename-node", func(source string) string {
		return edit.RenameNode(source, id, label)
	})
}

// RenameEdge sets an edge label.
func (s *Session) RenameEdge(ctx context.Context, index int, label string) error {
	return s.ApplyEdit(ctx, "rename-edge", func(source string) string {
		return edit.RenameEdge(source, index, label)
	})
}

// CreateConnection adds an arrow between two nodes.
func (s *Session) CreateConnection(ctx context.Context, from, to string) error {
	return s.ApplyEdit(ctx, "connect", func(source string) string {
		return edit.CreateConnection(source, from, to)
	})
}

// SetNodeStyle replaces the style directive of a node.
func (s *Session) SetNodeStyle(ctx context.Context, id string, props diagram.StyleProps) error {
	return s.ApplyEdit(ctx, "style", func(source string) string {
		return edit.SetNodeStyle(source, id, props)
	})
}

// SetThemeVariable sets or clears a theme variable.
func (s *Session) SetThemeVariable(ctx context.Context, key, value string) error {
	return s.ApplyEdit(ctx, "theme", func(source string) string {
		return edit.SetThemeVariable(source, key, value)
	})
}
