package terminal

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowedit/interaction"
	"flowedit/pipeline"
	"flowedit/render"
	"flowedit/state"
)

func newTestView(t *testing.T, source string) (*View, tcell.SimulationScreen, *pipeline.Session) {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	t.Cleanup(screen.Fini)
	screen.SetSize(80, 24)

	adapter := render.NewAdapter(render.NewGridEngine(), nil)
	var view *View
	session := pipeline.NewSession(state.NewStore(source), adapter, nil, pipeline.Options{
		TypingDebounce: time.Hour,
		OnRender: func(*render.Diagram) {
			if view != nil {
				view.controller.Rebind(adapter)
				adapter.SetTransform(view.transform)
			}
		},
	})
	t.Cleanup(session.Close)
	require.NoError(t, session.Render(context.Background()))

	view = NewView(screen, adapter, session, Options{})
	clock := time.Unix(0, 0)
	view.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return view, screen, session
}

// center returns the screen cell at the middle of a node.
func center(t *testing.T, v *View, id string) (int, int) {
	t.Helper()
	d := v.adapter.Current()
	require.NotNil(t, d)
	n, ok := d.Node(id)
	require.True(t, ok, "node %s not rendered", id)
	p := d.DiagramToScreen(render.Point{X: n.CenterX, Y: n.CenterY})
	return int(math.Floor(p.X)), int(math.Floor(p.Y))
}

func screenText(screen tcell.SimulationScreen) string {
	cells, w, h := screen.GetContents()
	var b strings.Builder
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			runes := cells[y*w+x].Runes
			if len(runes) == 0 {
				b.WriteRune(' ')
				continue
			}
			b.WriteRune(runes[0])
		}
		b.WriteRune('\n')
	}
	return b.String()
}

func click(v *View, x, y int, mods tcell.ModMask) {
	ctx := context.Background()
	v.HandleEvent(ctx, tcell.NewEventMouse(x, y, tcell.Button1, mods))
	v.HandleEvent(ctx, tcell.NewEventMouse(x, y, tcell.ButtonNone, mods))
}

func TestDrawShowsNodesEdgesAndStatus(t *testing.T) {
	v, screen, _ := newTestView(t, "graph TD\n    A[Start] --> B{Check}\n")

	v.Draw()
	text := screenText(screen)

	assert.Contains(t, text, "Start")
	assert.Contains(t, text, "Check")
	assert.Contains(t, text, "┌", "rectangles use the sharp box")
	assert.Contains(t, text, "╔", "diamonds use the double box")
	assert.Contains(t, text, "▼", "top-down edges point down")
	assert.Contains(t, text, "IDLE")
}

func TestDrawASCII(t *testing.T) {
	v, screen, _ := newTestView(t, "graph LR\n    A --> B\n")
	v.ascii = true

	v.Draw()
	text := screenText(screen)

	assert.Contains(t, text, "+---+")
	assert.Contains(t, text, ">")
	assert.NotContains(t, text, "┌")
}

func TestClickSelectsAndDeleteRemovesNode(t *testing.T) {
	v, _, session := newTestView(t, "graph TD\n    A[Start] --> B[End]\n")
	x, y := center(t, v, "A")

	click(v, x, y, tcell.ModNone)
	require.Equal(t, interaction.StateSingleSelected, v.controller.State())
	assert.True(t, v.controller.Selection().Contains(interaction.NodeElement("A")))

	v.HandleEvent(context.Background(), tcell.NewEventKey(tcell.KeyDelete, 0, tcell.ModNone))

	assert.Equal(t, "graph TD\n    B[End]\n", session.Store().Snapshot().Source)
	assert.Equal(t, interaction.StateIdle, v.controller.State())
}

func TestClickOnBlankClearsSelection(t *testing.T) {
	v, _, _ := newTestView(t, "graph TD\n    A --> B\n")
	x, y := center(t, v, "A")

	click(v, x, y, tcell.ModNone)
	click(v, 70, 20, tcell.ModNone)

	assert.Equal(t, interaction.StateIdle, v.controller.State())
	assert.Equal(t, 0, v.controller.Selection().Len())
}

func TestCtrlDragCreatesConnection(t *testing.T) {
	v, _, session := newTestView(t, "graph TD\n    A[One]\n    B[Two]\n")
	ax, ay := center(t, v, "A")
	bx, by := center(t, v, "B")
	ctx := context.Background()

	v.HandleEvent(ctx, tcell.NewEventMouse(ax, ay, tcell.Button1, tcell.ModCtrl))
	require.Equal(t, interaction.StateConnecting, v.controller.State())
	v.HandleEvent(ctx, tcell.NewEventMouse(bx, by, tcell.Button1, tcell.ModCtrl))
	require.NotNil(t, v.preview)
	v.HandleEvent(ctx, tcell.NewEventMouse(bx, by, tcell.ButtonNone, tcell.ModCtrl))

	assert.Contains(t, session.Store().Snapshot().Source, "A --> B")
	assert.Equal(t, interaction.StateIdle, v.controller.State())
}

func TestDoubleClickRenamesNode(t *testing.T) {
	v, screen, session := newTestView(t, "graph TD\n    A[Start] --> B[End]\n")
	x, y := center(t, v, "A")
	v.now = func() time.Time { return time.Unix(100, 0) }
	ctx := context.Background()

	click(v, x, y, tcell.ModNone)
	click(v, x, y, tcell.ModNone)
	require.Equal(t, interaction.StateLabelEditing, v.controller.State())

	v.HandleEvent(ctx, tcell.NewEventKey(tcell.KeyBackspace2, 0, tcell.ModNone))
	v.HandleEvent(ctx, tcell.NewEventKey(tcell.KeyRune, 's', tcell.ModNone))
	v.Draw()
	assert.Contains(t, screenText(screen), "label: Stars_")

	v.HandleEvent(ctx, tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone))

	assert.Equal(t, "graph TD\n    A[Stars] --> B[End]\n", session.Store().Snapshot().Source)
	assert.Equal(t, interaction.StateIdle, v.controller.State())
}

func TestUndoAndAddKeys(t *testing.T) {
	v, _, session := newTestView(t, "graph TD\n    A --> B\n")
	ctx := context.Background()

	v.HandleEvent(ctx, tcell.NewEventKey(tcell.KeyRune, 'a', tcell.ModNone))
	assert.Contains(t, session.Store().Snapshot().Source, "C[New node]")
	assert.Equal(t, "added C", v.message)

	v.HandleEvent(ctx, tcell.NewEventKey(tcell.KeyCtrlZ, 0, tcell.ModCtrl))
	assert.Equal(t, "graph TD\n    A --> B\n", session.Store().Snapshot().Source)

	v.HandleEvent(ctx, tcell.NewEventKey(tcell.KeyCtrlY, 0, tcell.ModCtrl))
	assert.Contains(t, session.Store().Snapshot().Source, "C[New node]")
}

func TestUndoRedoWithEmptyHistory(t *testing.T) {
	tests := []struct {
		name    string
		key     tcell.Key
		message string
	}{
		{"undo", tcell.KeyCtrlZ, "nothing to undo"},
		{"redo", tcell.KeyCtrlY, "nothing to redo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, _, session := newTestView(t, "graph TD\n    A --> B\n")

			v.HandleEvent(context.Background(), tcell.NewEventKey(tt.key, 0, tcell.ModCtrl))

			assert.Equal(t, tt.message, v.message)
			assert.Equal(t, "graph TD\n    A --> B\n", session.Store().Snapshot().Source)
		})
	}
}

func TestSourceTyping(t *testing.T) {
	v, screen, session := newTestView(t, "graph TD\n    A\n")
	ctx := context.Background()
	typeText := func(text string) {
		for _, r := range text {
			v.HandleEvent(ctx, tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone))
		}
	}

	v.HandleEvent(ctx, tcell.NewEventKey(tcell.KeyRune, 'e', tcell.ModNone))
	v.HandleEvent(ctx, tcell.NewEventKey(tcell.KeyTab, 0, tcell.ModNone))
	typeText("Bq")
	v.HandleEvent(ctx, tcell.NewEventKey(tcell.KeyBackspace2, 0, tcell.ModNone))
	v.HandleEvent(ctx, tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone))

	// 'q' is text while typing, not the quit command.
	snap := session.Store().Snapshot()
	assert.Equal(t, "graph TD\n    A\n    B\n", snap.Draft)
	assert.Equal(t, "graph TD\n    A\n", snap.Source)

	v.Draw()
	text := screenText(screen)
	assert.Contains(t, text, "    B")
	assert.Contains(t, text, "SOURCE | typing...")

	v.HandleEvent(ctx, tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone))

	snap = session.Store().Snapshot()
	assert.Equal(t, "graph TD\n    A\n    B\n", snap.Source)
	assert.False(t, snap.Dirty())
	assert.False(t, v.typing)
	v.Draw()
	assert.NotContains(t, screenText(screen), "SOURCE")
}

func TestFailedRenderClearsPointerState(t *testing.T) {
	v, _, _ := newTestView(t, "graph TD\n    A --> B\n")
	ctx := context.Background()
	x, y := center(t, v, "A")
	click(v, x, y, tcell.ModNone)
	require.Equal(t, 1, v.controller.Selection().Len())
	v.preview = &render.Point{X: 1, Y: 1}

	_, err := v.adapter.Render(ctx, "not a diagram")
	require.Error(t, err)
	v.HandleEvent(ctx, tcell.NewEventInterrupt(sweptEvent{}))

	assert.Nil(t, v.preview)
	assert.Equal(t, interaction.Element{}, v.hover)
	assert.Equal(t, 0, v.controller.Selection().Len())
}

func TestQuitKeys(t *testing.T) {
	v, _, _ := newTestView(t, "graph TD\n    A\n")
	ctx := context.Background()

	assert.True(t, v.HandleEvent(ctx, tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)))
	assert.True(t, v.HandleEvent(ctx, tcell.NewEventKey(tcell.KeyCtrlC, 0, tcell.ModCtrl)))
	assert.False(t, v.HandleEvent(ctx, tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone)))
}

func TestRenderErrorShownInStatus(t *testing.T) {
	v, screen, session := newTestView(t, "graph TD\n    A\n")

	session.Store().SetError(&render.RenderError{Message: "boom"})
	v.Draw()

	assert.Contains(t, screenText(screen), "IDLE | boom")
}

func TestPanMovesDiagram(t *testing.T) {
	v, _, _ := newTestView(t, "graph TD\n    A\n")
	x, y := center(t, v, "A")

	v.HandleEvent(context.Background(), tcell.NewEventKey(tcell.KeyLeft, 0, tcell.ModNone))

	nx, ny := center(t, v, "A")
	assert.Equal(t, x+panStep, nx)
	assert.Equal(t, y, ny)
}

func TestBoxFor(t *testing.T) {
	tests := []struct {
		shape   string
		ascii   bool
		corner  rune
		edge    rune
		side    rune
	}{
		{"rectangle", false, '┌', '─', '│'},
		{"", false, '┌', '─', '│'},
		{"stadium", false, '╭', '─', '│'},
		{"diamond", false, '╔', '═', '║'},
		{"cylinder", false, '┏', '━', '┃'},
		{"diamond", true, '+', '-', '|'},
	}
	for _, tt := range tests {
		box := BoxFor(tt.shape, tt.ascii)
		assert.Equal(t, tt.corner, box.At(true, false, true, false), tt.shape)
		assert.Equal(t, tt.edge, box.At(false, true, false, false), tt.shape)
		assert.Equal(t, tt.side, box.At(false, false, false, true), tt.shape)
		assert.Equal(t, ' ', box.At(false, false, false, false), tt.shape)
	}
}

func TestBoxCorners(t *testing.T) {
	box := BoxFor("rectangle", false)
	assert.Equal(t, '┐', box.At(true, false, false, true))
	assert.Equal(t, '└', box.At(false, true, true, false))
	assert.Equal(t, '┘', box.At(false, true, false, true))
}

func TestNodeBackground(t *testing.T) {
	red := parseFill("#f00")
	assert.Equal(t, "#ff0000", red.Hex())
	assert.Equal(t, baseFill, parseFill("tomato"))

	plain := nodeBackground("#000000", false, false)
	hovered := nodeBackground("#000000", false, true)
	selected := nodeBackground("#000000", true, false)
	assert.Equal(t, "#000000", plain.Hex())
	assert.NotEqual(t, plain, hovered)
	assert.NotEqual(t, hovered, selected)

	assert.Equal(t, "#000000", foregroundFor(parseFill("#ffffff")).Hex())
	assert.Equal(t, "#ffffff", foregroundFor(parseFill("#000000")).Hex())
}

func TestDetectCapabilities(t *testing.T) {
	env := func(vars map[string]string) func(string) string {
		return func(name string) string { return vars[name] }
	}

	caps := DetectCapabilities(env(map[string]string{"TERM": "xterm-256color", "LANG": "en_US.UTF-8"}))
	assert.Equal(t, Capabilities{Name: "xterm-256color", Unicode: true, Color: true}, caps)

	caps = DetectCapabilities(env(map[string]string{"TERM": "xterm-kitty", "LC_ALL": "C", "LANG": "en_US.UTF-8"}))
	assert.Equal(t, "kitty", caps.Name)
	assert.False(t, caps.Unicode, "LC_ALL wins over LANG")

	caps = DetectCapabilities(env(map[string]string{"TERM": "linux", "LANG": "C.utf8", "NO_COLOR": "1"}))
	assert.False(t, caps.Unicode)
	assert.False(t, caps.Color)

	caps = DetectCapabilities(env(map[string]string{"FLOWEDIT_TERMINAL_MODE": "ascii", "TERM": "xterm", "LANG": "en_US.UTF-8"}))
	assert.Equal(t, Capabilities{Name: "ascii"}, caps)
}

func TestNoColorSelectionUsesReverse(t *testing.T) {
	v, screen, _ := newTestView(t, "graph TD\n    A --> B\n")
	v.color = false
	x, y := center(t, v, "A")

	click(v, x, y, tcell.ModNone)
	v.Draw()

	cells, w, _ := screen.GetContents()
	_, _, attrs := cells[y*w+x].Style.Decompose()
	assert.NotZero(t, attrs&tcell.AttrReverse)
}
