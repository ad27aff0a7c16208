// Package render wraps the engine that turns diagram source into geometry.
//
// The editor never inspects rendered output directly. It asks the Adapter for
// node and edge positions and for coordinate conversions, so any engine that
// fills in a Diagram can sit behind it.
package render

import (
	"context"
	"math"
)

// Engine turns source text into a rendered diagram. Implementations may
// return an error whose message is shown to the user after cleanup.
type Engine interface {
	Render(ctx context.Context, source string) (*Diagram, error)
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(ctx context.Context, source string) (*Diagram, error)

// Render calls f.
func (f EngineFunc) Render(ctx context.Context, source string) (*Diagram, error) {
	return f(ctx, source)
}

// Point is a position in diagram or screen space.
type Point struct {
	X, Y float64
}

// NodeBox is the rendered bounding box of a node, in diagram space.
type NodeBox struct {
	ID      string
	Label   string
	Shape   string
	Fill    string
	CenterX float64
	CenterY float64
	Width   float64
	Height  float64
}

// Contains reports whether p lies inside the box.
func (n NodeBox) Contains(p Point) bool {
	return math.Abs(p.X-n.CenterX) <= n.Width/2 && math.Abs(p.Y-n.CenterY) <= n.Height/2
}

// HalfDiagonal is the distance from the center to a corner.
func (n NodeBox) HalfDiagonal() float64 {
	return math.Hypot(n.Width, n.Height) / 2
}

// EdgePath is the rendered route of the edge at Index.
type EdgePath struct {
	Index  int
	From   string
	To     string
	Label  string
	Points []Point
}

// Transform is the current pan and zoom. A zero Zoom means 1.
type Transform struct {
	PanX float64
	PanY float64
	Zoom float64
}

func (t Transform) zoom() float64 {
	if t.Zoom == 0 {
		return 1
	}
	return t.Zoom
}

// Diagram is the result of one render.
type Diagram struct {
	Nodes     []NodeBox
	Edges     []EdgePath
	Transform Transform
	Width     float64
	Height    float64
}

// Node returns the box of the node with id.
func (d *Diagram) Node(id string) (NodeBox, bool) {
	for _, n := range d.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeBox{}, false
}

// NodeAt returns the topmost node containing p. Later nodes are drawn on
// top of earlier ones.
func (d *Diagram) NodeAt(p Point) (NodeBox, bool) {
	for i := len(d.Nodes) - 1; i >= 0; i-- {
		if d.Nodes[i].Contains(p) {
			return d.Nodes[i], true
		}
	}
	return NodeBox{}, false
}

// NodeNear returns the node whose center is closest to p among those within
// their half diagonal plus padding.
func (d *Diagram) NodeNear(p Point, padding float64) (NodeBox, bool) {
	best, found := NodeBox{}, false
	bestDist := math.Inf(1)
	for _, n := range d.Nodes {
		dist := math.Hypot(p.X-n.CenterX, p.Y-n.CenterY)
		if dist <= n.HalfDiagonal()+padding && dist < bestDist {
			best, bestDist, found = n, dist, true
		}
	}
	return best, found
}

// EdgeAt returns the edge whose path passes within tolerance of p.
func (d *Diagram) EdgeAt(p Point, tolerance float64) (EdgePath, bool) {
	for _, e := range d.Edges {
		for i := 1; i < len(e.Points); i++ {
			if segmentDistance(p, e.Points[i-1], e.Points[i]) <= tolerance {
				return e, true
			}
		}
	}
	return EdgePath{}, false
}

// ScreenToDiagram undoes the pan and zoom transform.
func (d *Diagram) ScreenToDiagram(p Point) Point {
	z := d.Transform.zoom()
	return Point{X: (p.X - d.Transform.PanX) / z, Y: (p.Y - d.Transform.PanY) / z}
}

// DiagramToScreen applies the pan and zoom transform.
func (d *Diagram) DiagramToScreen(p Point) Point {
	z := d.Transform.zoom()
	return Point{X: p.X*z + d.Transform.PanX, Y: p.Y*z + d.Transform.PanY}
}

func segmentDistance(p, a, b Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	lengthSq := dx*dx + dy*dy
	if lengthSq == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lengthSq
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(p.X-(a.X+t*dx), p.Y-(a.Y+t*dy))
}
