// Package diagram contains the document model shared by the parser, the
// generator and the edit operations.
package diagram

import (
	"sort"
	"strings"
)

// DiagramType represents the kind of diagram declared in the source.
type DiagramType string

// Diagram type constants
const (
	TypeFlowchart DiagramType = "flowchart"
	TypeSequence  DiagramType = "sequence"
	TypeClass     DiagramType = "class"
	TypeState     DiagramType = "state"
	TypeGantt     DiagramType = "gantt"
)

// Direction is the flow direction of a flowchart.
type Direction string

const (
	DirectionTD Direction = "TD"
	DirectionLR Direction = "LR"
	DirectionBT Direction = "BT"
	DirectionRL Direction = "RL"
)

// Shape is the bracket form a node is declared with.
type Shape string

const (
	ShapeRectangle     Shape = "rectangle"
	ShapeStadium       Shape = "stadium"
	ShapeDiamond       Shape = "diamond"
	ShapeCircle        Shape = "circle"
	ShapeSubroutine    Shape = "subroutine"
	ShapeCylinder      Shape = "cylinder"
	ShapeHexagon       Shape = "hexagon"
	ShapeParallelogram Shape = "parallelogram"
)

// EdgeKind is the connector an edge is declared with.
type EdgeKind string

const (
	EdgeArrow       EdgeKind = "arrow"
	EdgeLine        EdgeKind = "line"
	EdgeDottedArrow EdgeKind = "dotted-arrow"
	EdgeDottedLine  EdgeKind = "dotted-line"
	EdgeThickArrow  EdgeKind = "thick-arrow"
	EdgeThickLine   EdgeKind = "thick-line"
)

// NewLine marks an entity that is not yet present in any source text.
// The generator appends such entities instead of patching a line.
const NewLine = -1

// TopLevel is the Parent of a subgraph that is not nested in another.
const TopLevel = -1

// Node is a top-level or subgraph node declaration.
type Node struct {
	ID         string `json:"id" yaml:"id"`
	Label      string `json:"label" yaml:"label"`
	Shape      Shape  `json:"shape" yaml:"shape"`
	SourceLine int    `json:"sourceLine" yaml:"sourceLine"`
}

// Edge is a connection between two node ids. The ids do not have to refer
// to declared nodes.
type Edge struct {
	From       string   `json:"from" yaml:"from"`
	To         string   `json:"to" yaml:"to"`
	Label      string   `json:"label" yaml:"label"`
	Kind       EdgeKind `json:"kind" yaml:"kind"`
	SourceLine int      `json:"sourceLine" yaml:"sourceLine"`
}

// StyleProp is a single key:value style declaration.
type StyleProp struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// StyleProps is an ordered style mapping. Order is kept so that a
// regenerated directive lists properties the way the author wrote them.
type StyleProps []StyleProp

// Get returns the value stored for key.
func (p StyleProps) Get(key string) (string, bool) {
	for _, prop := range p {
		if prop.Key == key {
			return prop.Value, true
		}
	}
	return "", false
}

// Set overwrites key in place or appends it.
func (p StyleProps) Set(key, value string) StyleProps {
	for i := range p {
		if p[i].Key == key {
			p[i].Value = value
			return p
		}
	}
	return append(p, StyleProp{Key: key, Value: value})
}

// Delete removes key if present.
func (p StyleProps) Delete(key string) StyleProps {
	out := p[:0]
	for _, prop := range p {
		if prop.Key != key {
			out = append(out, prop)
		}
	}
	return out
}

// Equal reports whether both lists hold the same pairs in the same order.
func (p StyleProps) Equal(other StyleProps) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (p StyleProps) Clone() StyleProps {
	if p == nil {
		return nil
	}
	return append(StyleProps(nil), p...)
}

// String renders the list as "k:v,k:v" without any value normalization.
func (p StyleProps) String() string {
	parts := make([]string, len(p))
	for i, prop := range p {
		parts[i] = prop.Key + ":" + prop.Value
	}
	return strings.Join(parts, ",")
}

// ClassDef is a "classDef <name> <styles>" directive.
type ClassDef struct {
	Name       string     `json:"name" yaml:"name"`
	Props      StyleProps `json:"props" yaml:"props"`
	SourceLine int        `json:"sourceLine" yaml:"sourceLine"`
}

// ClassApplication is a "class <ids> <className>" directive.
type ClassApplication struct {
	NodeIDs    []string `json:"nodeIds" yaml:"nodeIds"`
	ClassName  string   `json:"className" yaml:"className"`
	SourceLine int      `json:"sourceLine" yaml:"sourceLine"`
}

// NodeStyle is a "style <id> <styles>" directive. The renderer gives it
// precedence over class definitions.
type NodeStyle struct {
	NodeID     string     `json:"nodeId" yaml:"nodeId"`
	Props      StyleProps `json:"props" yaml:"props"`
	SourceLine int        `json:"sourceLine" yaml:"sourceLine"`
}

// LinkStyle is a "linkStyle <index> <styles>" directive. The index is the
// key it is stored under in Document.LinkStyles.
type LinkStyle struct {
	Props      StyleProps `json:"props" yaml:"props"`
	SourceLine int        `json:"sourceLine" yaml:"sourceLine"`
}

// Subgraph is a "subgraph ... end" block. Its body lines are never
// regenerated in place unless an entity declared on them was edited.
//
// Parent is the index in Document.Subgraphs of the enclosing block, or
// TopLevel. A parent always comes before its children.
type Subgraph struct {
	ID               string   `json:"id" yaml:"id"`
	Label            string   `json:"label" yaml:"label"`
	ContainedNodeIDs []string `json:"containedNodeIds" yaml:"containedNodeIds"`
	Nodes            []Node   `json:"nodes,omitempty" yaml:"nodes,omitempty"`
	Parent           int      `json:"parent" yaml:"parent"`
	SourceLine       int      `json:"sourceLine" yaml:"sourceLine"`
	EndLine          int      `json:"endLine" yaml:"endLine"`
}

// Document is the parsed form of a diagram source.
//
// Every SourceLine value is a position in the exact text the document was
// parsed from and is invalidated by any insertion or removal of lines. A
// document is created fresh for every edit and never outlives it.
type Document struct {
	Type              DiagramType        `json:"type" yaml:"type"`
	Direction         Direction          `json:"direction" yaml:"direction"`
	Nodes             []Node             `json:"nodes" yaml:"nodes"`
	Edges             []Edge             `json:"edges" yaml:"edges"`
	ClassDefs         []ClassDef         `json:"classDefs" yaml:"classDefs"`
	ClassApplications []ClassApplication `json:"classApplications" yaml:"classApplications"`
	NodeStyles        []NodeStyle        `json:"nodeStyles" yaml:"nodeStyles"`
	LinkStyles        map[int]LinkStyle  `json:"linkStyles" yaml:"linkStyles"`
	Subgraphs         []Subgraph         `json:"subgraphs" yaml:"subgraphs"`
	ThemeVariables    map[string]string  `json:"themeVariables,omitempty" yaml:"themeVariables,omitempty"`
	ThemeLine         int                `json:"themeLine" yaml:"themeLine"`
}

// NewDocument returns an empty flowchart document.
func NewDocument() *Document {
	return &Document{
		Type:           TypeFlowchart,
		Direction:      DirectionTD,
		LinkStyles:     make(map[int]LinkStyle),
		ThemeVariables: make(map[string]string),
		ThemeLine:      NewLine,
	}
}

// Fingerprint is the structural triple used to decide whether stored line
// numbers can still be trusted.
type Fingerprint struct {
	Nodes     int
	Edges     int
	Subgraphs int
}

// Fingerprint returns the document's node, edge and subgraph counts.
func (d *Document) Fingerprint() Fingerprint {
	return Fingerprint{
		Nodes:     len(d.Nodes),
		Edges:     len(d.Edges),
		Subgraphs: len(d.Subgraphs),
	}
}

// SortedLinkStyleIndexes returns the populated link style indexes in
// ascending order.
func (d *Document) SortedLinkStyleIndexes() []int {
	indexes := make([]int, 0, len(d.LinkStyles))
	for i := range d.LinkStyles {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)
	return indexes
}

// IsFlowchart returns true if this is a flowchart diagram
func (d *Document) IsFlowchart() bool {
	return d.Type == TypeFlowchart || d.Type == ""
}
