// Package interaction turns pointer and keyboard gestures on a rendered
// diagram into selection changes and edit operations.
//
// The controller never touches the renderer directly. Hit testing and
// coordinate conversion go through Geometry; edits go through Editor.
package interaction

import (
	"context"
)

// DefaultCapturePadding is added to a node's half diagonal when deciding
// whether a connection drag was released on it.
const DefaultCapturePadding = 10.0

// State is the gesture state of the controller.
type State int

const (
	StateIdle State = iota
	StateSingleSelected
	StateMultiSelected
	StateConnecting
	StateLabelEditing
)

// String returns the state name for display
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateSingleSelected:
		return "SELECTED"
	case StateMultiSelected:
		return "MULTI"
	case StateConnecting:
		return "CONNECT"
	case StateLabelEditing:
		return "EDIT"
	default:
		return "UNKNOWN"
	}
}

// Modifiers held during a pointer event.
type Modifiers uint8

const (
	ModShift Modifiers = 1 << iota
	ModCtrl
)

// Key is a named key press.
type Key string

const (
	KeyDelete    Key = "Delete"
	KeyBackspace Key = "Backspace"
	KeyEnter     Key = "Enter"
	KeyEscape    Key = "Escape"
)

// Geometry answers hit-testing questions about the current render. Points
// passed to everything but ScreenToDiagram are in diagram space.
type Geometry interface {
	ScreenToDiagram(x, y float64) (float64, float64)
	NodeAt(x, y float64) (string, bool)
	NodeNear(x, y, padding float64) (string, bool)
	EdgeAt(x, y float64) (int, bool)
	NodeLabel(id string) string
	EdgeLabel(index int) string
	HasNode(id string) bool
	HasEdge(index int) bool
}

// Editor applies edit operations to the current source.
type Editor interface {
	DeleteNode(ctx context.Context, id string) error
	DeleteEdge(ctx context.Context, index int) error
	DeleteMultiple(ctx context.Context, nodeIDs []string, edgeIndices []int) error
	RenameNode(ctx context.Context, id, label string) error
	RenameEdge(ctx context.Context, index int, label string) error
	CreateConnection(ctx context.Context, from, to string) error
}

// Callbacks are optional hooks for visual feedback.
type Callbacks struct {
	OnSelect         func(Selection)
	OnDeselect       func()
	OnHover          func(Element)
	OnConnectPreview func(source string, x, y float64)
	OnLabelEdit      func(target Element, text string)
}

// labelSession is an open label editor.
type labelSession struct {
	target   Element
	original string
	text     string
}

// Controller is the gesture state machine. It is not safe for concurrent
// use; feed it events from a single loop.
type Controller struct {
	geometry  Geometry
	editor    Editor
	callbacks Callbacks
	padding   float64

	state     State
	selection Selection
	hover     Element

	connectFrom string
	beforeDrag  Selection
	label       *labelSession
}

// NewController creates a controller in the idle state.
func NewController(geometry Geometry, editor Editor, callbacks Callbacks) *Controller {
	return &Controller{
		geometry:  geometry,
		editor:    editor,
		callbacks: callbacks,
		padding:   DefaultCapturePadding,
	}
}

// SetCapturePadding overrides DefaultCapturePadding.
func (c *Controller) SetCapturePadding(padding float64) {
	c.padding = padding
}

// State returns the current state.
func (c *Controller) State() State {
	return c.state
}

// Selection returns the current selection.
func (c *Controller) Selection() Selection {
	return c.selection
}

// ConnectSource returns the node a connection drag started from.
func (c *Controller) ConnectSource() (string, bool) {
	return c.connectFrom, c.state == StateConnecting
}

// LabelText returns the text of the open label editor.
func (c *Controller) LabelText() (string, bool) {
	if c.label == nil {
		return "", false
	}
	return c.label.text, true
}

// Rebind points the controller at a fresh render and drops selected
// elements that no longer exist.
func (c *Controller) Rebind(g Geometry) {
	c.geometry = g
	if c.state == StateConnecting && !g.HasNode(c.connectFrom) {
		c.connectFrom = ""
		c.state = StateIdle
	}
	if c.label != nil && !exists(g, c.label.target) {
		c.label = nil
	}
	pruned := c.selection.Prune(g)
	if pruned.Len() == c.selection.Len() {
		return
	}
	c.setSelection(pruned, c.state == StateMultiSelected)
}

// PointerDown handles a press at a screen position.
func (c *Controller) PointerDown(ctx context.Context, x, y float64, mods Modifiers) error {
	if c.state == StateLabelEditing {
		// Clicking elsewhere blurs the editor
		if err := c.CommitLabel(ctx); err != nil {
			return err
		}
	}

	hit, ok := c.hitTest(x, y)
	switch {
	case !ok:
		c.clear()
	case mods&ModCtrl != 0 && hit.Kind == KindNode &&
		(c.state == StateIdle || c.state == StateSingleSelected):
		c.beforeDrag = c.selection
		c.connectFrom = hit.NodeID
		c.state = StateConnecting
		if c.callbacks.OnConnectPreview != nil {
			dx, dy := c.geometry.ScreenToDiagram(x, y)
			c.callbacks.OnConnectPreview(hit.NodeID, dx, dy)
		}
	case mods&(ModShift|ModCtrl) != 0:
		c.setSelection(c.selection.Toggle(hit), true)
	default:
		c.setSelection(Single(hit), false)
	}
	return nil
}

// PointerMove updates hover feedback and the connection preview.
func (c *Controller) PointerMove(x, y float64) {
	dx, dy := c.geometry.ScreenToDiagram(x, y)
	if c.state == StateConnecting {
		if c.callbacks.OnConnectPreview != nil {
			c.callbacks.OnConnectPreview(c.connectFrom, dx, dy)
		}
		return
	}
	hit, _ := c.hitTest(x, y)
	if hit != c.hover {
		c.hover = hit
		if c.callbacks.OnHover != nil {
			c.callbacks.OnHover(hit)
		}
	}
}

// PointerUp ends a connection drag. Released near a different node it
// creates an edge; on the source node it acts as a ctrl+click; anywhere
// else it is abandoned.
func (c *Controller) PointerUp(ctx context.Context, x, y float64, _ Modifiers) error {
	if c.state != StateConnecting {
		return nil
	}
	source := c.connectFrom
	c.connectFrom = ""
	c.state = StateIdle

	dx, dy := c.geometry.ScreenToDiagram(x, y)
	if id, ok := c.geometry.NodeAt(dx, dy); ok && id == source {
		c.selection = c.beforeDrag
		c.setSelection(c.selection.Toggle(NodeElement(source)), true)
		return nil
	}
	target, ok := c.geometry.NodeNear(dx, dy, c.padding)
	c.clear()
	if !ok || target == source {
		return nil
	}
	return c.editor.CreateConnection(ctx, source, target)
}

// DoubleClick opens the label editor on the node or edge under the pointer.
// An editor that is already open is discarded.
func (c *Controller) DoubleClick(x, y float64) {
	hit, ok := c.hitTest(x, y)
	if !ok {
		return
	}
	c.label = nil

	var text string
	if hit.Kind == KindNode {
		text = c.geometry.NodeLabel(hit.NodeID)
	} else {
		text = c.geometry.EdgeLabel(hit.EdgeIndex)
	}
	c.label = &labelSession{target: hit, original: text, text: text}
	c.selection = Single(hit)
	c.state = StateLabelEditing
	if c.callbacks.OnLabelEdit != nil {
		c.callbacks.OnLabelEdit(hit, text)
	}
}

// SetLabelText replaces the text of the open label editor.
func (c *Controller) SetLabelText(text string) {
	if c.label != nil {
		c.label.text = text
	}
}

// CommitLabel closes the label editor and renames its target. Unchanged
// text is treated as a cancel.
func (c *Controller) CommitLabel(ctx context.Context) error {
	session := c.label
	if session == nil {
		return nil
	}
	c.CancelLabel()
	if session.text == session.original {
		return nil
	}
	if session.target.Kind == KindNode {
		return c.editor.RenameNode(ctx, session.target.NodeID, session.text)
	}
	return c.editor.RenameEdge(ctx, session.target.EdgeIndex, session.text)
}

// CancelLabel closes the label editor without editing.
func (c *Controller) CancelLabel() {
	if c.label == nil {
		return
	}
	c.label = nil
	c.clear()
}

// KeyPress handles a key. It reports whether the key was consumed.
// focusInText is true while keyboard focus is in a text field outside the
// label editor; deletes are ignored then.
func (c *Controller) KeyPress(ctx context.Context, key Key, focusInText bool) (bool, error) {
	if c.state == StateLabelEditing {
		switch key {
		case KeyEnter:
			return true, c.CommitLabel(ctx)
		case KeyEscape:
			c.CancelLabel()
			return true, nil
		}
		return false, nil
	}

	switch key {
	case KeyEscape:
		if c.state == StateConnecting {
			c.connectFrom = ""
		}
		if c.selection.Len() == 0 && c.state == StateIdle {
			return false, nil
		}
		c.clear()
		return true, nil
	case KeyDelete, KeyBackspace:
		if focusInText || c.selection.Len() == 0 {
			return false, nil
		}
		return true, c.deleteSelection(ctx)
	}
	return false, nil
}

func (c *Controller) deleteSelection(ctx context.Context) error {
	sel := c.selection
	c.clear()

	nodes, edges := sel.NodeIDs(), sel.EdgeIndices()
	switch {
	case len(nodes) == 1 && len(edges) == 0:
		return c.editor.DeleteNode(ctx, nodes[0])
	case len(nodes) == 0 && len(edges) == 1:
		return c.editor.DeleteEdge(ctx, edges[0])
	default:
		return c.editor.DeleteMultiple(ctx, nodes, edges)
	}
}

// hitTest finds the element under a screen point. Nodes win over edges.
func (c *Controller) hitTest(x, y float64) (Element, bool) {
	dx, dy := c.geometry.ScreenToDiagram(x, y)
	if id, ok := c.geometry.NodeAt(dx, dy); ok {
		return NodeElement(id), true
	}
	if index, ok := c.geometry.EdgeAt(dx, dy); ok {
		return EdgeElement(index), true
	}
	return Element{}, false
}

func exists(g Geometry, e Element) bool {
	if e.Kind == KindNode {
		return g.HasNode(e.NodeID)
	}
	return g.HasEdge(e.EdgeIndex)
}

// setSelection installs sel and derives the state from it.
func (c *Controller) setSelection(sel Selection, multi bool) {
	if sel.Len() == 0 {
		c.clear()
		return
	}
	c.selection = sel
	if multi {
		c.state = StateMultiSelected
	} else {
		c.state = StateSingleSelected
	}
	if c.callbacks.OnSelect != nil {
		c.callbacks.OnSelect(sel)
	}
}

// clear empties the selection. The deselect hook always fires.
func (c *Controller) clear() {
	c.selection = c.selection.Clear()
	c.state = StateIdle
	if c.callbacks.OnDeselect != nil {
		c.callbacks.OnDeselect()
	}
}
