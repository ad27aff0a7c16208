package interaction

import (
	"maps"
	"slices"
)

// Kind says whether an Element is a node or an edge.
type Kind int

const (
	KindNone Kind = iota
	KindNode
	KindEdge
)

// Element identifies a node by id or an edge by index.
type Element struct {
	Kind      Kind
	NodeID    string
	EdgeIndex int
}

// NodeElement returns the element for a node.
func NodeElement(id string) Element {
	return Element{Kind: KindNode, NodeID: id}
}

// EdgeElement returns the element for an edge.
func EdgeElement(index int) Element {
	return Element{Kind: KindEdge, EdgeIndex: index}
}

// Selection is an immutable set of selected nodes and edges with an
// anchor, the element a single selection started from. Every method that
// changes it returns a new value.
type Selection struct {
	anchor Element
	nodes  map[string]bool
	edges  map[int]bool
}

// Single returns a selection holding only e.
func Single(e Element) Selection {
	var s Selection
	return s.with(e).withAnchor(e)
}

// Len returns the number of selected elements.
func (s Selection) Len() int {
	return len(s.nodes) + len(s.edges)
}

// Contains reports whether e is selected.
func (s Selection) Contains(e Element) bool {
	switch e.Kind {
	case KindNode:
		return s.nodes[e.NodeID]
	case KindEdge:
		return s.edges[e.EdgeIndex]
	}
	return false
}

// Anchor returns the anchor element, if any.
func (s Selection) Anchor() (Element, bool) {
	return s.anchor, s.anchor.Kind != KindNone
}

// NodeIDs returns the selected node ids, sorted.
func (s Selection) NodeIDs() []string {
	return slices.Sorted(maps.Keys(s.nodes))
}

// EdgeIndices returns the selected edge indexes, sorted.
func (s Selection) EdgeIndices() []int {
	return slices.Sorted(maps.Keys(s.edges))
}

// Toggle adds e if absent and removes it if present. Removing the anchor
// moves it to a remaining element, nodes first.
func (s Selection) Toggle(e Element) Selection {
	if !s.Contains(e) {
		out := s.with(e)
		if _, ok := out.Anchor(); !ok {
			out.anchor = e
		}
		return out
	}
	out := s.without(e)
	if out.anchor == e {
		out.anchor = out.firstElement()
	}
	return out
}

// Clear returns the empty selection.
func (s Selection) Clear() Selection {
	return Selection{}
}

// Prune drops elements the geometry no longer knows about.
func (s Selection) Prune(g Geometry) Selection {
	out := s
	for id := range s.nodes {
		if !g.HasNode(id) {
			out = out.without(NodeElement(id))
		}
	}
	for index := range s.edges {
		if !g.HasEdge(index) {
			out = out.without(EdgeElement(index))
		}
	}
	if !out.Contains(out.anchor) {
		out.anchor = out.firstElement()
	}
	return out
}

func (s Selection) firstElement() Element {
	if ids := s.NodeIDs(); len(ids) > 0 {
		return NodeElement(ids[0])
	}
	if indexes := s.EdgeIndices(); len(indexes) > 0 {
		return EdgeElement(indexes[0])
	}
	return Element{}
}

func (s Selection) clone() Selection {
	return Selection{anchor: s.anchor, nodes: maps.Clone(s.nodes), edges: maps.Clone(s.edges)}
}

func (s Selection) with(e Element) Selection {
	out := s.clone()
	switch e.Kind {
	case KindNode:
		if out.nodes == nil {
			out.nodes = make(map[string]bool)
		}
		out.nodes[e.NodeID] = true
	case KindEdge:
		if out.edges == nil {
			out.edges = make(map[int]bool)
		}
		out.edges[e.EdgeIndex] = true
	}
	return out
}

func (s Selection) without(e Element) Selection {
	out := s.clone()
	switch e.Kind {
	case KindNode:
		delete(out.nodes, e.NodeID)
	case KindEdge:
		delete(out.edges, e.EdgeIndex)
	}
	return out
}

func (s Selection) withAnchor(e Element) Selection {
	s.anchor = e
	return s
}
