package render

import (
	"context"
	"math"
	"strings"

	"github.com/mattn/go-runewidth"

	"flowedit/diagram"
	"flowedit/parser"
)

const (
	defaultHorizontalSpacing = 6
	defaultVerticalSpacing   = 3
	nodeHeight               = 3
	minNodeWidth             = 5
	maxNodeWidth             = 40
)

// GridEngine lays flowcharts out on a character grid. Nodes are layered
// along the flow direction and edges are straight segments between box
// borders. Coordinates are in terminal cells.
type GridEngine struct {
	HorizontalSpacing int
	VerticalSpacing   int
}

// NewGridEngine returns a GridEngine with default spacing.
func NewGridEngine() *GridEngine {
	return &GridEngine{
		HorizontalSpacing: defaultHorizontalSpacing,
		VerticalSpacing:   defaultVerticalSpacing,
	}
}

// Render implements Engine.
func (g *GridEngine) Render(ctx context.Context, source string) (*Diagram, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(source) == "" {
		return nil, &UnknownDiagramError{}
	}
	doc := parser.Parse(source)
	if !doc.IsFlowchart() {
		return nil, &UnknownDiagramError{Type: string(doc.Type)}
	}

	boxes, gr := collectBoxes(doc)
	layers := gr.assignLayers()
	g.place(doc.Direction, layers, boxes)

	d := &Diagram{Transform: Transform{Zoom: 1}}
	for _, id := range gr.order {
		b := boxes[id]
		d.Nodes = append(d.Nodes, *b)
		d.Width = math.Max(d.Width, b.CenterX+b.Width/2)
		d.Height = math.Max(d.Height, b.CenterY+b.Height/2)
	}
	for i, e := range doc.Edges {
		from, to := boxes[e.From], boxes[e.To]
		d.Edges = append(d.Edges, EdgePath{
			Index:  i,
			From:   e.From,
			To:     e.To,
			Label:  displayLabel(e.Label),
			Points: edgePoints(from, to),
		})
	}
	return d, nil
}

// collectBoxes sizes every node the diagram mentions: declarations first,
// then subgraph members and edge endpoints that were never declared.
func collectBoxes(doc *diagram.Document) (map[string]*NodeBox, *graph) {
	boxes := make(map[string]*NodeBox)
	gr := newGraph()
	add := func(id, label string, shape diagram.Shape) {
		if _, ok := boxes[id]; ok {
			return
		}
		label = displayLabel(label)
		width := runewidth.StringWidth(label) + 4
		width = max(minNodeWidth, min(maxNodeWidth, width))
		boxes[id] = &NodeBox{
			ID:     id,
			Label:  label,
			Shape:  string(shape),
			Fill:   fillFor(doc, id),
			Width:  float64(width),
			Height: nodeHeight,
		}
		gr.addNode(id)
	}

	for _, n := range doc.Nodes {
		add(n.ID, n.Label, n.Shape)
	}
	for _, sg := range doc.Subgraphs {
		for _, n := range sg.Nodes {
			add(n.ID, n.Label, n.Shape)
		}
		for _, id := range sg.ContainedNodeIDs {
			add(id, id, diagram.ShapeRectangle)
		}
	}
	for _, e := range doc.Edges {
		add(e.From, e.From, diagram.ShapeRectangle)
		add(e.To, e.To, diagram.ShapeRectangle)
		gr.addEdge(e.From, e.To)
	}
	return boxes, gr
}

// place assigns centers. Layers run down the screen for TD and across it for
// LR; BT and RL mirror those.
func (g *GridEngine) place(dir diagram.Direction, layers [][]string, boxes map[string]*NodeBox) {
	horizontal := dir == diagram.DirectionLR || dir == diagram.DirectionRL
	hs, vs := float64(g.HorizontalSpacing), float64(g.VerticalSpacing)

	// Extent of each layer along and across the flow
	depths := make([]float64, len(layers))
	breadths := make([]float64, len(layers))
	maxBreadth := 0.0
	for i, layer := range layers {
		for j, id := range layer {
			b := boxes[id]
			along, across, gap := b.Height, b.Width, hs
			if horizontal {
				along, across, gap = b.Width, b.Height, vs
			}
			depths[i] = math.Max(depths[i], along)
			if j > 0 {
				breadths[i] += gap
			}
			breadths[i] += across
		}
		maxBreadth = math.Max(maxBreadth, breadths[i])
	}

	layerGap := vs
	if horizontal {
		layerGap = hs
	}
	total := 0.0
	for _, depth := range depths {
		total += depth
	}
	total += layerGap * float64(max(0, len(layers)-1))

	offset := 0.0
	for i, layer := range layers {
		along := offset + depths[i]/2
		if dir == diagram.DirectionBT || dir == diagram.DirectionRL {
			along = total - along
		}
		// Center each layer across the flow
		cursor := (maxBreadth - breadths[i]) / 2
		for _, id := range layer {
			b := boxes[id]
			if horizontal {
				b.CenterX = along
				b.CenterY = cursor + b.Height/2
				cursor += b.Height + vs
			} else {
				b.CenterY = along
				b.CenterX = cursor + b.Width/2
				cursor += b.Width + hs
			}
		}
		offset += depths[i] + layerGap
	}
}

// edgePoints runs from the border of from toward to. Self loops get a small
// detour to the right of the box.
func edgePoints(from, to *NodeBox) []Point {
	if from == to {
		right := from.CenterX + from.Width/2
		top := from.CenterY - from.Height/2
		return []Point{
			{X: right, Y: from.CenterY},
			{X: right + 2, Y: from.CenterY},
			{X: right + 2, Y: top - 1},
			{X: from.CenterX, Y: top - 1},
			{X: from.CenterX, Y: top},
		}
	}
	start := borderPoint(from, Point{X: to.CenterX, Y: to.CenterY})
	end := borderPoint(to, Point{X: from.CenterX, Y: from.CenterY})
	return []Point{start, end}
}

// borderPoint is where the line from the center of b toward target leaves b.
func borderPoint(b *NodeBox, target Point) Point {
	dx, dy := target.X-b.CenterX, target.Y-b.CenterY
	if dx == 0 && dy == 0 {
		return Point{X: b.CenterX, Y: b.CenterY}
	}
	scale := math.Inf(1)
	if dx != 0 {
		scale = math.Min(scale, (b.Width/2)/math.Abs(dx))
	}
	if dy != 0 {
		scale = math.Min(scale, (b.Height/2)/math.Abs(dy))
	}
	return Point{X: b.CenterX + dx*scale, Y: b.CenterY + dy*scale}
}

// fillFor resolves a node's fill color. A style directive wins over any
// class, and later class applications win over earlier ones.
func fillFor(doc *diagram.Document, id string) string {
	for _, s := range doc.NodeStyles {
		if s.NodeID == id {
			if fill, ok := s.Props.Get("fill"); ok {
				return fill
			}
		}
	}
	fill := ""
	for _, app := range doc.ClassApplications {
		for _, nodeID := range app.NodeIDs {
			if nodeID != id {
				continue
			}
			for _, def := range doc.ClassDefs {
				if def.Name != app.ClassName {
					continue
				}
				if f, ok := def.Props.Get("fill"); ok {
					fill = f
				}
			}
		}
	}
	return fill
}

func displayLabel(label string) string {
	if len(label) >= 2 && strings.HasPrefix(label, `"`) && strings.HasSuffix(label, `"`) {
		return label[1 : len(label)-1]
	}
	return label
}
