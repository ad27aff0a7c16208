// Package terminal binds a rendered flowchart to a tcell screen. Mouse and
// key events go to the interaction controller; edits go through the
// session, and every render or state change redraws the screen.
package terminal

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"fortio.org/safecast"
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"flowedit/diagram"
	"flowedit/interaction"
	"flowedit/render"
	"flowedit/state"
)

const (
	doubleClickWindow = 400 * time.Millisecond
	panStep           = 2
	newNodeLabel      = "New node"
)

// Session is the editing surface the view drives. *pipeline.Session
// satisfies it.
type Session interface {
	interaction.Editor
	Store() *state.Store
	Undo(ctx context.Context) error
	Redo(ctx context.Context) error
	CanUndo() bool
	CanRedo() bool
	AddNode(ctx context.Context, label string, shape diagram.Shape) (string, error)
	UpdateDraft(text string)
	FlushDraft(ctx context.Context) error
}

// Options configures a View.
type Options struct {
	ASCII          bool    // plain box characters only
	NoColor        bool    // no fills; selection shown in reverse video
	CapturePadding float64 // zero keeps the controller default
	Logger         *slog.Logger
}

// interrupt payloads posted to the event loop
type (
	renderedEvent struct{}
	sweptEvent    struct{}
	storeEvent    struct{}
	quitEvent     struct{}
)

// View is the terminal editor. All methods except Rendered must be called
// from the goroutine running the event loop.
type View struct {
	screen     tcell.Screen
	adapter    *render.Adapter
	session    Session
	controller *interaction.Controller
	logger     *slog.Logger
	ascii      bool
	color      bool
	now        func() time.Time

	transform render.Transform
	hover     interaction.Element
	preview   *render.Point
	message   string
	typing    bool // keys edit the source text instead of the diagram

	pressed   bool
	lastClick time.Time
	lastX     int
	lastY     int
}

// NewView creates a view drawing the adapter's current render on screen.
// The screen must already be initialized.
func NewView(screen tcell.Screen, adapter *render.Adapter, session Session, opts Options) *View {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	v := &View{
		screen:    screen,
		adapter:   adapter,
		session:   session,
		logger:    opts.Logger,
		ascii:     opts.ASCII,
		color:     !opts.NoColor,
		now:       time.Now,
		transform: render.Transform{PanX: 1, PanY: 1, Zoom: 1},
	}
	v.controller = interaction.NewController(adapter, session, interaction.Callbacks{
		OnHover: func(e interaction.Element) { v.hover = e },
		OnConnectPreview: func(_ string, x, y float64) {
			v.preview = &render.Point{X: x, Y: y}
		},
		OnDeselect: func() { v.preview = nil },
	})
	if opts.CapturePadding > 0 {
		v.controller.SetCapturePadding(opts.CapturePadding)
	}
	adapter.SetTransform(v.transform)
	adapter.OnSweep(func() { v.post(sweptEvent{}) })
	return v
}

// Controller exposes the gesture state machine.
func (v *View) Controller() *interaction.Controller {
	return v.controller
}

// Rendered tells the event loop a new render is available. Safe to call
// from any goroutine; wire it to the pipeline's render hook.
func (v *View) Rendered(*render.Diagram) {
	v.post(renderedEvent{})
}

func (v *View) post(data any) {
	if err := v.screen.PostEvent(tcell.NewEventInterrupt(data)); err != nil {
		v.logger.Debug("dropped screen event", "error", err)
	}
}

// Run draws and handles events until the user quits or ctx is done.
func (v *View) Run(ctx context.Context) error {
	unsubscribe := v.session.Store().Subscribe(func(state.Snapshot) { v.post(storeEvent{}) })
	defer unsubscribe()
	stop := context.AfterFunc(ctx, func() { v.post(quitEvent{}) })
	defer stop()

	for {
		v.Draw()
		ev := v.screen.PollEvent()
		if ev == nil {
			return nil
		}
		if v.HandleEvent(ctx, ev) {
			return ctx.Err()
		}
	}
}

// HandleEvent processes one screen event and reports whether the editor
// should exit.
func (v *View) HandleEvent(ctx context.Context, ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		v.screen.Sync()
	case *tcell.EventInterrupt:
		switch ev.Data().(type) {
		case quitEvent:
			return true
		case renderedEvent:
			v.adapter.SetTransform(v.transform)
			v.controller.Rebind(v.adapter)
		case sweptEvent:
			// The failed render took the diagram with it
			v.hover = interaction.Element{}
			v.preview = nil
			v.controller.Rebind(v.adapter)
		}
	case *tcell.EventMouse:
		v.handleMouse(ctx, ev)
	case *tcell.EventKey:
		return v.handleKey(ctx, ev)
	}
	return false
}

func (v *View) handleMouse(ctx context.Context, ev *tcell.EventMouse) {
	x, y := ev.Position()
	sx, sy := float64(x), float64(y)
	mods := modifiers(ev.Modifiers())
	down := ev.Buttons()&tcell.Button1 != 0

	switch {
	case down && !v.pressed:
		v.pressed = true
		now := v.now()
		if now.Sub(v.lastClick) < doubleClickWindow && x == v.lastX && y == v.lastY {
			v.lastClick = time.Time{}
			v.controller.DoubleClick(sx, sy)
			return
		}
		v.lastClick, v.lastX, v.lastY = now, x, y
		v.report(v.controller.PointerDown(ctx, sx, sy, mods))
	case down:
		v.controller.PointerMove(sx, sy)
	case v.pressed:
		v.pressed = false
		v.report(v.controller.PointerUp(ctx, sx, sy, mods))
	default:
		v.controller.PointerMove(sx, sy)
	}
}

func modifiers(m tcell.ModMask) interaction.Modifiers {
	var mods interaction.Modifiers
	if m&tcell.ModShift != 0 {
		mods |= interaction.ModShift
	}
	if m&(tcell.ModCtrl|tcell.ModMeta) != 0 {
		mods |= interaction.ModCtrl
	}
	return mods
}

func (v *View) handleKey(ctx context.Context, ev *tcell.EventKey) bool {
	if v.typing {
		return v.handleSourceKey(ctx, ev)
	}
	if v.controller.State() == interaction.StateLabelEditing {
		v.handleLabelKey(ctx, ev)
		return false
	}

	switch ev.Key() {
	case tcell.KeyCtrlC:
		return true
	case tcell.KeyCtrlZ:
		if v.session.CanUndo() {
			v.report(v.session.Undo(ctx))
		} else {
			v.message = "nothing to undo"
		}
	case tcell.KeyCtrlY:
		if v.session.CanRedo() {
			v.report(v.session.Redo(ctx))
		} else {
			v.message = "nothing to redo"
		}
	case tcell.KeyDelete:
		v.press(ctx, interaction.KeyDelete)
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		v.press(ctx, interaction.KeyBackspace)
	case tcell.KeyEscape:
		v.press(ctx, interaction.KeyEscape)
	case tcell.KeyLeft:
		v.pan(panStep, 0)
	case tcell.KeyRight:
		v.pan(-panStep, 0)
	case tcell.KeyUp:
		v.pan(0, panStep)
	case tcell.KeyDown:
		v.pan(0, -panStep)
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			return true
		case 'e':
			v.typing = true
			v.message = ""
		case 'a':
			id, err := v.session.AddNode(ctx, newNodeLabel, diagram.ShapeRectangle)
			if err == nil {
				v.message = "added " + id
			}
			v.report(err)
		}
	}
	return false
}

func (v *View) handleLabelKey(ctx context.Context, ev *tcell.EventKey) {
	text, _ := v.controller.LabelText()
	switch ev.Key() {
	case tcell.KeyEnter:
		_, err := v.controller.KeyPress(ctx, interaction.KeyEnter, false)
		v.report(err)
	case tcell.KeyEscape:
		_, _ = v.controller.KeyPress(ctx, interaction.KeyEscape, false)
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if r := []rune(text); len(r) > 0 {
			v.controller.SetLabelText(string(r[:len(r)-1]))
		}
	case tcell.KeyRune:
		v.controller.SetLabelText(text + string(ev.Rune()))
	}
}

// handleSourceKey edits the source text. Keystrokes update the draft, which
// the session commits once typing pauses; Escape commits it at once and
// returns to the diagram.
func (v *View) handleSourceKey(ctx context.Context, ev *tcell.EventKey) bool {
	draft := v.session.Store().Snapshot().Draft
	switch ev.Key() {
	case tcell.KeyCtrlC:
		return true
	case tcell.KeyEscape:
		v.typing = false
		v.report(v.session.FlushDraft(ctx))
	case tcell.KeyEnter:
		v.session.UpdateDraft(draft + "\n")
	case tcell.KeyTab:
		v.session.UpdateDraft(draft + "    ")
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if r := []rune(draft); len(r) > 0 {
			v.session.UpdateDraft(string(r[:len(r)-1]))
		}
	case tcell.KeyRune:
		v.session.UpdateDraft(draft + string(ev.Rune()))
	}
	return false
}

func (v *View) press(ctx context.Context, key interaction.Key) {
	_, err := v.controller.KeyPress(ctx, key, false)
	v.report(err)
}

func (v *View) pan(dx, dy float64) {
	v.transform.PanX += dx
	v.transform.PanY += dy
	v.adapter.SetTransform(v.transform)
}

// report shows a failed gesture in the status line.
func (v *View) report(err error) {
	if err == nil {
		return
	}
	v.message = errorText(err)
	v.logger.Warn("edit failed", "error", err)
}

func errorText(err error) string {
	var rerr *render.RenderError
	if errors.As(err, &rerr) {
		return rerr.Message
	}
	return err.Error()
}

// Draw repaints the whole screen.
func (v *View) Draw() {
	v.screen.Clear()
	if v.typing {
		v.drawSource()
	} else if d := v.adapter.Current(); d != nil {
		for _, e := range d.Edges {
			v.drawEdge(d, e)
		}
		v.drawPreview(d)
		for _, n := range d.Nodes {
			v.drawNode(d, n)
		}
	}
	v.drawStatus()
	v.screen.Show()
}

// cell maps a diagram point to the screen cell containing it.
func cell(d *render.Diagram, p render.Point) (int, int, bool) {
	s := d.DiagramToScreen(p)
	x, errX := safecast.Conv[int](math.Floor(s.X))
	y, errY := safecast.Conv[int](math.Floor(s.Y))
	return x, y, errX == nil && errY == nil
}

func (v *View) drawNode(d *render.Diagram, n render.NodeBox) {
	left, top, ok := cell(d, render.Point{X: n.CenterX - n.Width/2, Y: n.CenterY - n.Height/2})
	right, bottom, ok2 := cell(d, render.Point{X: n.CenterX + n.Width/2, Y: n.CenterY + n.Height/2})
	if !ok || !ok2 {
		return
	}
	right--
	bottom--
	if right-left < 2 || bottom-top < 2 {
		return
	}

	element := interaction.NodeElement(n.ID)
	selected := v.controller.Selection().Contains(element)
	style := tcell.StyleDefault
	switch {
	case v.color:
		bg := nodeBackground(n.Fill, selected, v.hover == element)
		style = style.Background(toTcell(bg)).Foreground(toTcell(foregroundFor(bg)))
	case selected:
		style = style.Reverse(true)
	}
	box := BoxFor(n.Shape, v.ascii)

	for y := top; y <= bottom; y++ {
		for x := left; x <= right; x++ {
			v.screen.SetContent(x, y, box.At(y == top, y == bottom, x == left, x == right), nil, style)
		}
	}

	inner := right - left - 1
	label := runewidth.Truncate(n.Label, inner, "…")
	x := left + 1 + (inner-runewidth.StringWidth(label))/2
	v.drawText(x, (top+bottom)/2, label, style)
}

func (v *View) edgeStyle(index int) tcell.Style {
	style := tcell.StyleDefault
	element := interaction.EdgeElement(index)
	switch {
	case v.controller.Selection().Contains(element):
		return style.Foreground(toTcell(selectColor)).Bold(true)
	case v.hover == element:
		return style.Bold(true)
	}
	return style
}

func (v *View) drawEdge(d *render.Diagram, e render.EdgePath) {
	if len(e.Points) < 2 {
		return
	}
	style := v.edgeStyle(e.Index)
	var cells [][2]int
	for i := 1; i < len(e.Points); i++ {
		x0, y0, ok0 := cell(d, e.Points[i-1])
		x1, y1, ok1 := cell(d, e.Points[i])
		if !ok0 || !ok1 {
			return
		}
		run := v.drawLine(x0, y0, x1, y1, style)
		if i > 1 && len(run) > 0 {
			run = run[1:]
		}
		cells = append(cells, run...)
	}

	// The head goes on the last cell outside the target box
	target, hasTarget := d.Node(e.To)
	for i := len(cells) - 1; i > 0; i-- {
		c := cells[i]
		if hasTarget && v.insideNode(d, target, c[0], c[1]) {
			continue
		}
		prev := cells[i-1]
		v.screen.SetContent(c[0], c[1], v.arrowHead(c[0]-prev[0], c[1]-prev[1]), nil, style)
		break
	}

	if e.Label != "" {
		mid := len(e.Points) / 2
		a, b := e.Points[mid-1], e.Points[mid]
		x, y, ok := cell(d, render.Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2})
		if ok {
			v.drawText(x-runewidth.StringWidth(e.Label)/2, y, e.Label, style.Italic(true))
		}
	}
}

func (v *View) insideNode(d *render.Diagram, n render.NodeBox, x, y int) bool {
	left, top, _ := cell(d, render.Point{X: n.CenterX - n.Width/2, Y: n.CenterY - n.Height/2})
	right, bottom, _ := cell(d, render.Point{X: n.CenterX + n.Width/2, Y: n.CenterY + n.Height/2})
	return x >= left && x < right && y >= top && y < bottom
}

// drawLine plots a straight run of cells between two points, both ends
// included, and returns the cells drawn.
func (v *View) drawLine(x0, y0, x1, y1 int, style tcell.Style) [][2]int {
	r := v.lineRune(x0 == x1, y0 == y1)
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := sign(x1-x0), sign(y1-y0)
	e := dx + dy
	v.screen.SetContent(x0, y0, r, nil, style)
	cells := [][2]int{{x0, y0}}
	for x, y := x0, y0; x != x1 || y != y1; {
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x += sx
		}
		if e2 <= dx {
			e += dx
			y += sy
		}
		v.screen.SetContent(x, y, r, nil, style)
		cells = append(cells, [2]int{x, y})
	}
	return cells
}

func (v *View) lineRune(vertical, horizontal bool) rune {
	switch {
	case vertical && v.ascii:
		return '|'
	case vertical:
		return '│'
	case horizontal && v.ascii:
		return '-'
	case horizontal:
		return '─'
	case v.ascii:
		return '.'
	}
	return '·'
}

func (v *View) arrowHead(dx, dy int) rune {
	heads := []rune("▶◀▼▲")
	if v.ascii {
		heads = []rune("><v^")
	}
	switch {
	case abs(dx) >= abs(dy) && dx > 0:
		return heads[0]
	case abs(dx) >= abs(dy):
		return heads[1]
	case dy > 0:
		return heads[2]
	}
	return heads[3]
}

func (v *View) drawPreview(d *render.Diagram) {
	source, ok := v.controller.ConnectSource()
	if !ok || v.preview == nil {
		return
	}
	n, ok := d.Node(source)
	if !ok {
		return
	}
	x0, y0, ok0 := cell(d, render.Point{X: n.CenterX, Y: n.CenterY})
	x1, y1, ok1 := cell(d, *v.preview)
	if ok0 && ok1 {
		v.drawLine(x0, y0, x1, y1, tcell.StyleDefault.Foreground(toTcell(selectColor)).Dim(true))
	}
}

// drawSource shows the draft with a cursor after its last character,
// scrolled so that the end stays in view.
func (v *View) drawSource() {
	_, h := v.screen.Size()
	lines := strings.Split(v.session.Store().Snapshot().Draft, "\n")
	if rows := h - 1; rows > 0 && len(lines) > rows {
		lines = lines[len(lines)-rows:]
	}
	for y, line := range lines {
		v.drawText(0, y, strings.TrimSuffix(line, "\r"), tcell.StyleDefault)
	}
	last := len(lines) - 1
	v.drawText(runewidth.StringWidth(lines[last]), last, "_", tcell.StyleDefault)
}

func (v *View) drawText(x, y int, text string, style tcell.Style) {
	for _, r := range text {
		v.screen.SetContent(x, y, r, nil, style)
		x += runewidth.RuneWidth(r)
	}
}

func (v *View) drawStatus() {
	w, h := v.screen.Size()
	if h == 0 {
		return
	}
	y := h - 1
	style := tcell.StyleDefault.Reverse(true)
	for x := 0; x < w; x++ {
		v.screen.SetContent(x, y, ' ', nil, style)
	}

	status := v.controller.State().String()
	if v.typing {
		status = "SOURCE"
	} else if n := v.controller.Selection().Len(); n > 0 {
		status += " " + plural(n, "item")
	}
	snap := v.session.Store().Snapshot()
	switch {
	case v.controller.State() == interaction.StateLabelEditing:
		text, _ := v.controller.LabelText()
		status += " | label: " + text + "_"
	case v.typing && snap.Dirty():
		status += " | typing..."
	case snap.Saving:
		status += " | saving..."
	case snap.Err != nil:
		v.drawText(0, y, status+" | ", style)
		v.drawText(runewidth.StringWidth(status)+3, y, errorText(snap.Err), style.Foreground(tcell.ColorRed))
		return
	case v.message != "":
		status += " | " + v.message
	}
	v.drawText(0, y, runewidth.Truncate(status, w, "…"), style)
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	}
	return 0
}
