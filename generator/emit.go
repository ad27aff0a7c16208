package generator

import (
	"sort"
	"strconv"
	"strings"

	"flowedit/diagram"
	"flowedit/parser"
)

const indent = "    "

// NodeDecl renders a node as id followed by its bracketed label.
func NodeDecl(n diagram.Node) string {
	open, close := parser.Brackets(n.Shape)
	return n.ID + open + n.Label + close
}

// EdgeStatement renders "from --> to", with "|label|" after the connector
// when the label is set.
func EdgeStatement(e diagram.Edge) string {
	return e.From + connectorSegment(e) + e.To
}

func connectorSegment(e diagram.Edge) string {
	seg := " " + parser.Connector(e.Kind) + " "
	if e.Label != "" {
		seg += "|" + e.Label + "| "
	}
	return seg
}

// NodeStyleStatement renders a "style" directive.
func NodeStyleStatement(s diagram.NodeStyle) string {
	return "style " + s.NodeID + " " + formatProps(s.Props, false)
}

// ClassDefStatement renders a "classDef" directive.
func ClassDefStatement(c diagram.ClassDef) string {
	return "classDef " + c.Name + " " + formatProps(c.Props, true)
}

// ClassStatement renders a "class" directive.
func ClassStatement(a diagram.ClassApplication) string {
	return "class " + strings.Join(a.NodeIDs, ",") + " " + a.ClassName
}

// LinkStyleStatement renders a "linkStyle" directive for the edge at index.
func LinkStyleStatement(index int, l diagram.LinkStyle) string {
	return "linkStyle " + strconv.Itoa(index) + " " + formatProps(l.Props, false)
}

// ThemeHeader renders an init pragma carrying only theme variables.
func ThemeHeader(vars map[string]string) string {
	return "%%{init: {'themeVariables': {" + themeBody(vars) + "}}}%%"
}

func themeBody(vars map[string]string) string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = "'" + k + "': '" + vars[k] + "'"
	}
	return strings.Join(parts, ", ")
}

// GenerateNew renders doc from scratch in a fixed order: theme header,
// graph line, nodes, subgraph blocks, edges, styles, class definitions,
// class applications and link styles. Lines the parser skipped are not
// reproduced.
func GenerateNew(doc *diagram.Document) string {
	var sb strings.Builder

	if len(doc.ThemeVariables) > 0 {
		sb.WriteString(ThemeHeader(doc.ThemeVariables) + "\n")
	}

	direction := doc.Direction
	if direction == "" {
		direction = diagram.DirectionTD
	}
	sb.WriteString("graph " + string(direction) + "\n")

	for _, node := range doc.Nodes {
		sb.WriteString(indent + NodeDecl(node) + "\n")
	}

	w := &subgraphWriter{doc: doc, sb: &sb, emitted: make([]bool, len(doc.Subgraphs))}
	w.children(diagram.TopLevel, indent)

	for _, edge := range doc.Edges {
		sb.WriteString(indent + EdgeStatement(edge) + "\n")
	}
	for _, style := range doc.NodeStyles {
		sb.WriteString(indent + NodeStyleStatement(style) + "\n")
	}
	for _, def := range doc.ClassDefs {
		sb.WriteString(indent + ClassDefStatement(def) + "\n")
	}
	for _, app := range doc.ClassApplications {
		sb.WriteString(indent + ClassStatement(app) + "\n")
	}
	for _, i := range doc.SortedLinkStyleIndexes() {
		sb.WriteString(indent + LinkStyleStatement(i, doc.LinkStyles[i]) + "\n")
	}

	return sb.String()
}

// subgraphWriter emits subgraph blocks nested by their Parent field.
type subgraphWriter struct {
	doc     *diagram.Document
	sb      *strings.Builder
	emitted []bool
}

func (w *subgraphWriter) children(parent int, prefix string) {
	for i := range w.doc.Subgraphs {
		if w.emitted[i] || w.parentOf(i) != parent {
			continue
		}
		w.emitted[i] = true
		w.block(i, prefix)
	}
}

// parentOf treats a Parent that does not precede its child as top level.
func (w *subgraphWriter) parentOf(i int) int {
	if p := w.doc.Subgraphs[i].Parent; p >= 0 && p < i {
		return p
	}
	return diagram.TopLevel
}

func (w *subgraphWriter) block(index int, prefix string) {
	sg := w.doc.Subgraphs[index]
	header := "subgraph"
	if sg.ID != "" {
		header += " " + sg.ID
		if sg.Label != "" && sg.Label != sg.ID {
			header += "[" + sg.Label + "]"
		}
	}
	w.sb.WriteString(prefix + header + "\n")

	inner := prefix + indent
	declared := make(map[string]bool, len(sg.Nodes))
	for _, node := range sg.Nodes {
		declared[node.ID] = true
		w.sb.WriteString(inner + NodeDecl(node) + "\n")
	}
	for _, id := range sg.ContainedNodeIDs {
		if !declared[id] {
			w.sb.WriteString(inner + id + "\n")
		}
	}
	w.children(index, inner)

	w.sb.WriteString(prefix + "end\n")
}
