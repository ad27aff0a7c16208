package generator

import (
	"maps"
	"reflect"
	"regexp"
	"strings"

	"flowedit/diagram"
	"flowedit/parser"
)

var leadingSpace = regexp.MustCompile(`^\s*`)

// lineContent is every entity declared on one source line.
type lineContent struct {
	nodes      []diagram.Node
	edges      []diagram.Edge
	nodeStyles []diagram.NodeStyle
	classDefs  []diagram.ClassDef
	classApps  []diagram.ClassApplication
	linkStyles []indexedLinkStyle
}

type indexedLinkStyle struct {
	index int
	style diagram.LinkStyle
}

func (c *lineContent) empty() bool {
	return len(c.nodes) == 0 && len(c.edges) == 0 && len(c.nodeStyles) == 0 &&
		len(c.classDefs) == 0 && len(c.classApps) == 0 && len(c.linkStyles) == 0
}

// node returns the node with id declared on this line.
func (c *lineContent) node(id string) (diagram.Node, bool) {
	for _, n := range c.nodes {
		if n.ID == id {
			return n, true
		}
	}
	return diagram.Node{}, false
}

// groupByLine buckets the entities of doc by SourceLine. Entities without a
// valid line land in the returned pending content.
func groupByLine(doc *diagram.Document, lineCount int) (map[int]*lineContent, *lineContent) {
	lines := make(map[int]*lineContent)
	pending := &lineContent{}
	at := func(line int) *lineContent {
		if line < 0 || line >= lineCount {
			return pending
		}
		c, ok := lines[line]
		if !ok {
			c = &lineContent{}
			lines[line] = c
		}
		return c
	}

	for _, n := range doc.Nodes {
		c := at(n.SourceLine)
		c.nodes = append(c.nodes, n)
	}
	for _, sg := range doc.Subgraphs {
		for _, n := range sg.Nodes {
			c := at(n.SourceLine)
			c.nodes = append(c.nodes, n)
		}
	}
	for _, e := range doc.Edges {
		c := at(e.SourceLine)
		c.edges = append(c.edges, e)
	}
	for _, s := range doc.NodeStyles {
		c := at(s.SourceLine)
		c.nodeStyles = append(c.nodeStyles, s)
	}
	for _, d := range doc.ClassDefs {
		c := at(d.SourceLine)
		c.classDefs = append(c.classDefs, d)
	}
	for _, a := range doc.ClassApplications {
		c := at(a.SourceLine)
		c.classApps = append(c.classApps, a)
	}
	for _, i := range doc.SortedLinkStyleIndexes() {
		l := doc.LinkStyles[i]
		c := at(l.SourceLine)
		c.linkStyles = append(c.linkStyles, indexedLinkStyle{index: i, style: l})
	}
	return lines, pending
}

// preserve patches original so that only lines whose entities differ from
// what original itself declares are rewritten. prev must be the parse of
// original.
func preserve(doc, prev *diagram.Document, original string) string {
	lines := strings.Split(original, "\n")
	eol := lineEnding(lines)
	current, pending := groupByLine(doc, len(lines))
	before, _ := groupByLine(prev, len(lines))

	// A nil slice in replace drops the line.
	replace := make(map[int][]string)
	for num := range lines {
		cur, prv := current[num], before[num]
		if cur == nil {
			cur = &lineContent{}
		}
		if prv == nil {
			prv = &lineContent{}
		}
		if reflect.DeepEqual(cur, prv) {
			continue
		}
		replace[num] = rewriteLine(lines[num], cur, prv)
	}

	var header []string
	switch {
	case doc.ThemeLine >= 0 && doc.ThemeLine < len(lines):
		if !maps.Equal(doc.ThemeVariables, prev.ThemeVariables) {
			body, cr := strings.CutSuffix(lines[doc.ThemeLine], "\r")
			line := patchTheme(body, doc.ThemeVariables)
			if cr {
				line += "\r"
			}
			replace[doc.ThemeLine] = []string{line}
		}
	case len(doc.ThemeVariables) > 0:
		header = []string{ThemeHeader(doc.ThemeVariables) + eol}
	}

	added := pendingLines(pending)
	for i := range added {
		added[i] += eol
	}
	insertAt := findInsertIndex(lines)

	out := make([]string, 0, len(header)+len(lines)+len(added))
	out = append(out, header...)
	for num, line := range lines {
		if num == insertAt {
			out = append(out, added...)
		}
		if repl, ok := replace[num]; ok {
			out = append(out, repl...)
			continue
		}
		out = append(out, line)
	}
	if insertAt >= len(lines) && len(added) > 0 {
		// No final newline: the old last line gains a break, the new last line has none
		if n := len(out); n > 0 && !strings.HasSuffix(out[n-1], eol) {
			out[n-1] += eol
		}
		added[len(added)-1] = strings.TrimSuffix(added[len(added)-1], eol)
		out = append(out, added...)
	}
	return strings.Join(out, "\n")
}

// lineEnding returns "\r" for text split from CRLF line breaks.
func lineEnding(lines []string) string {
	for _, line := range lines[:len(lines)-1] {
		if strings.HasSuffix(line, "\r") {
			return "\r"
		}
	}
	return ""
}

// findInsertIndex returns where newly added lines go: right after the last
// bare "end", otherwise at the end of the file ahead of the final newline.
func findInsertIndex(lines []string) int {
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) == "end" {
			return i + 1
		}
	}
	if n := len(lines); n > 0 && lines[n-1] == "" {
		return n - 1
	}
	return len(lines)
}

// pendingLines renders entities that have no source line yet.
func pendingLines(c *lineContent) []string {
	var out []string
	for _, n := range c.nodes {
		out = append(out, indent+NodeDecl(n))
	}
	for _, e := range c.edges {
		out = append(out, indent+EdgeStatement(e))
	}
	for _, s := range c.nodeStyles {
		out = append(out, indent+NodeStyleStatement(s))
	}
	for _, d := range c.classDefs {
		out = append(out, indent+ClassDefStatement(d))
	}
	for _, a := range c.classApps {
		out = append(out, indent+ClassStatement(a))
	}
	for _, l := range c.linkStyles {
		out = append(out, indent+LinkStyleStatement(l.index, l.style))
	}
	return out
}

func indentOf(line string) string {
	if ws := leadingSpace.FindString(line); ws != "" {
		return ws
	}
	return indent
}

// rewriteLine renders the entities now declared on a line, keeping the
// line's indentation, statement separator and ending. An empty result
// removes the line.
func rewriteLine(original string, cur, prv *lineContent) []string {
	body, cr := strings.CutSuffix(original, "\r")
	body, semi := strings.CutSuffix(strings.TrimRight(body, " \t"), ";")
	out := rewriteStatements(body, cur, prv)
	for i := range out {
		if semi {
			out[i] += ";"
		}
		if cr {
			out[i] += "\r"
		}
	}
	return out
}

func rewriteStatements(original string, cur, prv *lineContent) []string {
	if cur.empty() {
		return nil
	}
	ws := indentOf(original)

	if len(cur.edges) == 1 && len(prv.edges) == 1 {
		if text, ok := spliceEdge(strings.TrimSpace(original), cur, prv); ok {
			return []string{ws + text}
		}
	}

	var out []string
	inline := make(map[string]bool)
	for _, e := range cur.edges {
		from, to := e.From, e.To
		if n, ok := cur.node(e.From); ok && !inline[e.From] {
			from = NodeDecl(n)
			inline[e.From] = true
		}
		if n, ok := cur.node(e.To); ok && !inline[e.To] {
			to = NodeDecl(n)
			inline[e.To] = true
		}
		out = append(out, ws+from+connectorSegment(e)+to)
	}
	for _, n := range cur.nodes {
		if !inline[n.ID] {
			out = append(out, ws+NodeDecl(n))
		}
	}
	for _, s := range cur.nodeStyles {
		out = append(out, ws+NodeStyleStatement(s))
	}
	for _, d := range cur.classDefs {
		out = append(out, ws+ClassDefStatement(d))
	}
	for _, a := range cur.classApps {
		out = append(out, ws+ClassStatement(a))
	}
	for _, l := range cur.linkStyles {
		out = append(out, ws+LinkStyleStatement(l.index, l.style))
	}
	return out
}

// spliceEdge rewrites a single edge statement in place, keeping the text of
// every part that did not change.
func spliceEdge(line string, cur, prv *lineContent) (string, bool) {
	parts, ok := parser.SplitEdge(line)
	if !ok {
		return "", false
	}
	e, pe := cur.edges[0], prv.edges[0]
	for _, n := range cur.nodes {
		if n.ID != e.From && n.ID != e.To {
			return "", false
		}
	}

	from := endpointText(e.From, pe.From, strings.TrimSpace(parts.From), cur, prv)
	to := endpointText(e.To, pe.To, strings.TrimSpace(parts.To), cur, prv)
	segment := parts.Segment
	if e.Kind != pe.Kind || e.Label != pe.Label {
		segment = connectorSegment(e)
	}
	return from + segment + to, true
}

func endpointText(id, prevID, written string, cur, prv *lineContent) string {
	n, declared := cur.node(id)
	if id != prevID {
		if declared {
			return NodeDecl(n)
		}
		return id
	}
	p, wasDeclared := prv.node(id)
	switch {
	case declared && wasDeclared && n == p:
		return written
	case declared:
		return NodeDecl(n)
	case wasDeclared:
		return id
	}
	return written
}

// patchTheme rewrites the themeVariables object of an init header. Other
// init settings on the line are kept.
func patchTheme(line string, vars map[string]string) string {
	if start, end, ok := parser.ThemeVariablesSpan(line); ok {
		return line[:start] + themeBody(vars) + line[end:]
	}
	if loc := initObject.FindStringIndex(line); loc != nil && len(vars) > 0 {
		return line[:loc[1]] + "'themeVariables': {" + themeBody(vars) + "}, " + line[loc[1]:]
	}
	if len(vars) == 0 {
		return line
	}
	return ThemeHeader(vars)
}

var initObject = regexp.MustCompile(`init['"]?\s*:\s*\{\s*`)
