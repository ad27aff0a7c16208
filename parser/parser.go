// Package parser turns flowchart source text into a diagram.Document.
//
// The parser is line oriented. Every recognized statement records the line it
// came from so the generator can patch it in place later. Lines that match no
// recognizer are skipped without error: source being typed is often
// transiently invalid.
package parser

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"flowedit/diagram"
)

var (
	headerPattern    = regexp.MustCompile(`^(graph|flowchart|sequenceDiagram|classDiagram|stateDiagram(?:-v2)?|gantt)\b`)
	directionPattern = regexp.MustCompile(`^(?:graph|flowchart)\s+(TD|TB|LR|BT|RL)\b`)

	// Connector tokens, longest alternatives first.
	connectorPattern = regexp.MustCompile(`\s*(-\.->|-\.-|-->|---|==>|===)\s*(?:\|([^|]*)\|)?\s*`)

	classDefPattern  = regexp.MustCompile(`^classDef\s+(\S+)\s+(.+)$`)
	classPattern     = regexp.MustCompile(`^class\s+(.+?)\s+(\S+)$`)
	stylePattern     = regexp.MustCompile(`^style\s+(\S+)\s+(.+)$`)
	linkStylePattern = regexp.MustCompile(`^linkStyle\s+(\d+)\s+(.+)$`)
	subgraphPattern  = regexp.MustCompile(`^subgraph(?:\s+(.*))?$`)
	subgraphTitle    = regexp.MustCompile(`^([^\s\[]+)\s*\[(.*)\]$`)
)

var connectorKinds = map[string]diagram.EdgeKind{
	"-->":  diagram.EdgeArrow,
	"---":  diagram.EdgeLine,
	"-.->": diagram.EdgeDottedArrow,
	"-.-":  diagram.EdgeDottedLine,
	"==>":  diagram.EdgeThickArrow,
	"===":  diagram.EdgeThickLine,
}

// Connector returns the source token for an edge kind. Unknown kinds are
// written as arrows.
func Connector(kind diagram.EdgeKind) string {
	for token, k := range connectorKinds {
		if k == kind {
			return token
		}
	}
	return "-->"
}

// parser holds the state of a single forward pass.
type parser struct {
	doc        *diagram.Document
	declared   map[string]bool
	stack      []int // open subgraphs, innermost last
	sawContent bool
	sawHeader  bool
}

// Parse converts source text into a Document. It never fails: unrecognized
// lines are dropped.
func Parse(text string) *diagram.Document {
	p := &parser{
		doc:      diagram.NewDocument(),
		declared: make(map[string]bool),
	}
	for i, raw := range strings.Split(text, "\n") {
		p.line(i, strings.TrimSpace(raw))
	}
	return p.doc
}

func (p *parser) line(num int, line string) {
	if line == "" {
		return
	}
	first := !p.sawContent
	p.sawContent = true

	if strings.HasPrefix(line, "%%") {
		if first && strings.HasPrefix(line, "%%{") {
			p.doc.ThemeLine = num
			p.doc.ThemeVariables = ParseTheme(line)
		}
		return
	}
	// Statements may end in a separator
	if line = strings.TrimSpace(strings.TrimSuffix(line, ";")); line == "" {
		return
	}

	if !p.sawHeader {
		p.sawHeader = true
		if p.header(line) {
			return
		}
	}

	switch {
	case p.nodeStatement(num, line):
	case p.edgeStatement(num, line):
	case p.classDefStatement(num, line):
	case p.classStatement(num, line):
	case p.styleStatement(num, line):
	case p.linkStyleStatement(num, line):
	case p.subgraphStatement(num, line):
	case p.endStatement(num, line):
	case p.memberStatement(line):
	}
}

// header detects the diagram type and direction from the first statement.
func (p *parser) header(line string) bool {
	m := headerPattern.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	switch {
	case m[1] == "graph" || m[1] == "flowchart":
		p.doc.Type = diagram.TypeFlowchart
	case m[1] == "sequenceDiagram":
		p.doc.Type = diagram.TypeSequence
	case m[1] == "classDiagram":
		p.doc.Type = diagram.TypeClass
	case strings.HasPrefix(m[1], "stateDiagram"):
		p.doc.Type = diagram.TypeState
	case m[1] == "gantt":
		p.doc.Type = diagram.TypeGantt
	}
	if d := directionPattern.FindStringSubmatch(line); d != nil {
		dir := diagram.Direction(d[1])
		if dir == "TB" {
			dir = diagram.DirectionTD
		}
		p.doc.Direction = dir
	}
	return true
}

// declare records a node declaration. A repeated id keeps its first
// position, but the last declaration's label, shape and line win, matching
// what the diagram shows.
func (p *parser) declare(node diagram.Node) {
	if p.declared[node.ID] {
		p.redeclare(node)
		return
	}
	p.declared[node.ID] = true
	if len(p.stack) == 0 {
		p.doc.Nodes = append(p.doc.Nodes, node)
		return
	}
	sg := &p.doc.Subgraphs[p.stack[len(p.stack)-1]]
	sg.Nodes = append(sg.Nodes, node)
	sg.ContainedNodeIDs = append(sg.ContainedNodeIDs, node.ID)
}

func (p *parser) redeclare(node diagram.Node) {
	if len(p.stack) > 0 {
		p.addMember(node.ID)
	}
	for i := range p.doc.Nodes {
		if p.doc.Nodes[i].ID == node.ID {
			p.doc.Nodes[i] = node
			return
		}
	}
	for i := range p.doc.Subgraphs {
		nodes := p.doc.Subgraphs[i].Nodes
		for j := range nodes {
			if nodes[j].ID == node.ID {
				nodes[j] = node
				return
			}
		}
	}
}

func (p *parser) nodeStatement(num int, line string) bool {
	node, ok := parseNodeDecl(line)
	if !ok {
		return false
	}
	node.SourceLine = num
	p.declare(node)
	return true
}

// EdgeParts is an edge statement split around its connector. From and To
// hold the endpoint text, which may carry an inline node declaration.
type EdgeParts struct {
	From      string
	To        string
	Connector string
	Label     string
	// Segment is the connector with its label and surrounding whitespace,
	// exactly as written.
	Segment string
}

// SplitEdge splits a trimmed statement at the first connector whose two
// sides are valid endpoints.
func SplitEdge(line string) (EdgeParts, bool) {
	parts, _, _, ok := splitEdge(line)
	return parts, ok
}

func splitEdge(line string) (EdgeParts, endpoint, endpoint, bool) {
	// Try each connector position so a label containing a connector token
	// does not hide the real one.
	for _, loc := range connectorPattern.FindAllStringSubmatchIndex(line, -1) {
		from, ok := parseEndpoint(line[:loc[0]])
		if !ok {
			continue
		}
		to, ok := parseEndpoint(line[loc[1]:])
		if !ok {
			continue
		}
		parts := EdgeParts{
			From:      line[:loc[0]],
			To:        line[loc[1]:],
			Connector: line[loc[2]:loc[3]],
			Segment:   line[loc[0]:loc[1]],
		}
		if loc[4] >= 0 {
			parts.Label = strings.TrimSpace(line[loc[4]:loc[5]])
		}
		return parts, from, to, true
	}
	return EdgeParts{}, endpoint{}, endpoint{}, false
}

func (p *parser) edgeStatement(num int, line string) bool {
	parts, from, to, ok := splitEdge(line)
	if !ok {
		return false
	}
	for _, side := range []endpoint{from, to} {
		if side.Decl != nil {
			node := *side.Decl
			node.SourceLine = num
			p.declare(node)
		}
	}
	p.doc.Edges = append(p.doc.Edges, diagram.Edge{
		From:       from.ID,
		To:         to.ID,
		Label:      parts.Label,
		Kind:       connectorKinds[parts.Connector],
		SourceLine: num,
	})
	return true
}

func (p *parser) classDefStatement(num int, line string) bool {
	m := classDefPattern.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	p.doc.ClassDefs = append(p.doc.ClassDefs, diagram.ClassDef{
		Name:       m[1],
		Props:      ParseStyles(m[2]),
		SourceLine: num,
	})
	return true
}

func (p *parser) classStatement(num int, line string) bool {
	m := classPattern.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	var ids []string
	for _, id := range strings.Split(m[1], ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	p.doc.ClassApplications = append(p.doc.ClassApplications, diagram.ClassApplication{
		NodeIDs:    ids,
		ClassName:  m[2],
		SourceLine: num,
	})
	return true
}

func (p *parser) styleStatement(num int, line string) bool {
	m := stylePattern.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	p.doc.NodeStyles = append(p.doc.NodeStyles, diagram.NodeStyle{
		NodeID:     m[1],
		Props:      ParseStyles(m[2]),
		SourceLine: num,
	})
	return true
}

func (p *parser) linkStyleStatement(num int, line string) bool {
	m := linkStylePattern.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	index, err := strconv.Atoi(m[1])
	if err != nil {
		return false
	}
	p.doc.LinkStyles[index] = diagram.LinkStyle{
		Props:      ParseStyles(m[2]),
		SourceLine: num,
	}
	return true
}

func (p *parser) subgraphStatement(num int, line string) bool {
	m := subgraphPattern.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	title := strings.TrimSpace(m[1])
	sg := diagram.Subgraph{
		ID:         title,
		Label:      title,
		Parent:     diagram.TopLevel,
		SourceLine: num,
		EndLine:    diagram.NewLine,
	}
	if t := subgraphTitle.FindStringSubmatch(title); t != nil {
		sg.ID = t[1]
		sg.Label = t[2]
	}
	if len(p.stack) > 0 {
		sg.Parent = p.stack[len(p.stack)-1]
	}
	p.doc.Subgraphs = append(p.doc.Subgraphs, sg)
	p.stack = append(p.stack, len(p.doc.Subgraphs)-1)
	return true
}

// endStatement closes the innermost open subgraph. A stray end is consumed.
func (p *parser) endStatement(num int, line string) bool {
	if line != "end" {
		return false
	}
	if len(p.stack) == 0 {
		return true
	}
	p.doc.Subgraphs[p.stack[len(p.stack)-1]].EndLine = num
	p.stack = p.stack[:len(p.stack)-1]
	return true
}

// memberStatement handles a bare id inside a subgraph body, which moves an
// already declared node into the subgraph.
func (p *parser) memberStatement(line string) bool {
	if len(p.stack) == 0 || !bareIDPattern.MatchString(line) {
		return false
	}
	p.addMember(line)
	return true
}

// addMember lists id in the innermost open subgraph once.
func (p *parser) addMember(id string) {
	sg := &p.doc.Subgraphs[p.stack[len(p.stack)-1]]
	if !slices.Contains(sg.ContainedNodeIDs, id) {
		sg.ContainedNodeIDs = append(sg.ContainedNodeIDs, id)
	}
}
