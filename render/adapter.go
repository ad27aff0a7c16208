package render

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"flowedit/interaction"
)

// Hit-testing tolerances, in diagram units.
const (
	EdgeTolerance = 1.0
)

var _ interaction.Geometry = (*Adapter)(nil)

// Adapter owns the most recent render and answers geometry questions about
// it. Renders may overlap; only the newest one is kept.
type Adapter struct {
	engine Engine
	logger *slog.Logger

	mu      sync.Mutex
	seq     uint64
	current *Diagram
	sweeps  []func()
}

// NewAdapter wraps engine. A nil logger discards output.
func NewAdapter(engine Engine, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{engine: engine, logger: logger}
}

// OnSweep registers a hook run after a failed render. Engines that leave
// artifacts behind on failure clean them up here.
func (a *Adapter) OnSweep(fn func()) {
	a.mu.Lock()
	a.sweeps = append(a.sweeps, fn)
	a.mu.Unlock()
}

// Render draws source. A render that completes after a newer call has
// started returns ErrStale and leaves the current diagram alone. On engine
// failure the current diagram is cleared, sweep hooks run, and a
// *RenderError carrying the cleaned message is returned.
func (a *Adapter) Render(ctx context.Context, source string) (*Diagram, error) {
	a.mu.Lock()
	a.seq++
	seq := a.seq
	a.mu.Unlock()

	d, err := a.engine.Render(ctx, source)

	a.mu.Lock()
	if seq != a.seq {
		a.mu.Unlock()
		a.logger.Debug("discarding stale render", "seq", seq)
		return nil, ErrStale
	}
	if err != nil {
		a.current = nil
		sweeps := append([]func(){}, a.sweeps...)
		a.mu.Unlock()

		for _, sweep := range sweeps {
			sweep()
		}
		var rerr *RenderError
		if errors.As(err, &rerr) {
			return nil, rerr
		}
		return nil, &RenderError{Message: CleanErrorMessage(err.Error()), Err: err}
	}
	a.current = d
	a.mu.Unlock()
	return d, nil
}

// Current returns the latest successful render, or nil.
func (a *Adapter) Current() *Diagram {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// SetTransform updates the pan and zoom of the current diagram.
func (a *Adapter) SetTransform(t Transform) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current != nil {
		a.current.Transform = t
	}
}

// ScreenToDiagram converts a screen position using the current transform.
func (a *Adapter) ScreenToDiagram(x, y float64) (float64, float64) {
	d := a.Current()
	if d == nil {
		return x, y
	}
	p := d.ScreenToDiagram(Point{X: x, Y: y})
	return p.X, p.Y
}

// NodeAt returns the id of the node under a diagram position.
func (a *Adapter) NodeAt(x, y float64) (string, bool) {
	d := a.Current()
	if d == nil {
		return "", false
	}
	n, ok := d.NodeAt(Point{X: x, Y: y})
	return n.ID, ok
}

// NodeNear returns the id of the closest node within its half diagonal plus
// padding of a diagram position.
func (a *Adapter) NodeNear(x, y, padding float64) (string, bool) {
	d := a.Current()
	if d == nil {
		return "", false
	}
	n, ok := d.NodeNear(Point{X: x, Y: y}, padding)
	return n.ID, ok
}

// EdgeAt returns the index of the edge passing near a diagram position.
func (a *Adapter) EdgeAt(x, y float64) (int, bool) {
	d := a.Current()
	if d == nil {
		return 0, false
	}
	e, ok := d.EdgeAt(Point{X: x, Y: y}, EdgeTolerance)
	return e.Index, ok
}

// NodeLabel returns the displayed label of a node.
func (a *Adapter) NodeLabel(id string) string {
	d := a.Current()
	if d == nil {
		return ""
	}
	n, _ := d.Node(id)
	return n.Label
}

// EdgeLabel returns the displayed label of an edge.
func (a *Adapter) EdgeLabel(index int) string {
	d := a.Current()
	if d == nil {
		return ""
	}
	for _, e := range d.Edges {
		if e.Index == index {
			return e.Label
		}
	}
	return ""
}

// HasNode reports whether the current render contains id.
func (a *Adapter) HasNode(id string) bool {
	d := a.Current()
	if d == nil {
		return false
	}
	_, ok := d.Node(id)
	return ok
}

// HasEdge reports whether the current render contains an edge at index.
func (a *Adapter) HasEdge(index int) bool {
	d := a.Current()
	if d == nil {
		return false
	}
	for _, e := range d.Edges {
		if e.Index == index {
			return true
		}
	}
	return false
}
