package parser

import (
	"regexp"

	"flowedit/diagram"
)

const idPattern = `([A-Za-z0-9_]+)`

// shapeSyntax maps a shape to the brackets it is written with.
type shapeSyntax struct {
	shape   diagram.Shape
	open    string
	close   string
	pattern *regexp.Regexp
}

// shapeTable is ordered so that multi-character bracket forms are tried
// before the single-character ones they start with.
var shapeTable = []shapeSyntax{
	{diagram.ShapeCircle, "((", "))", regexp.MustCompile(`^` + idPattern + `\(\(([^()]*)\)\)$`)},
	{diagram.ShapeSubroutine, "[[", "]]", regexp.MustCompile(`^` + idPattern + `\[\[([^\[\]]*)\]\]$`)},
	{diagram.ShapeCylinder, "[(", ")]", regexp.MustCompile(`^` + idPattern + `\[\(([^()\[\]]*)\)\]$`)},
	{diagram.ShapeParallelogram, "[/", "/]", regexp.MustCompile(`^` + idPattern + `\[/([^/\[\]]*)/\]$`)},
	{diagram.ShapeHexagon, "{{", "}}", regexp.MustCompile(`^` + idPattern + `\{\{([^{}]*)\}\}$`)},
	{diagram.ShapeRectangle, "[", "]", regexp.MustCompile(`^` + idPattern + `\[([^\[\]]*)\]$`)},
	{diagram.ShapeStadium, "(", ")", regexp.MustCompile(`^` + idPattern + `\(([^()]*)\)$`)},
	{diagram.ShapeDiamond, "{", "}", regexp.MustCompile(`^` + idPattern + `\{([^{}]*)\}$`)},
}

var bareIDPattern = regexp.MustCompile(`^` + idPattern + `$`)

// Brackets returns the opening and closing brackets for a shape. Unknown
// shapes are written as rectangles.
func Brackets(shape diagram.Shape) (string, string) {
	for _, s := range shapeTable {
		if s.shape == shape {
			return s.open, s.close
		}
	}
	return "[", "]"
}

// parseNodeDecl matches a complete node declaration such as "A[Start]".
// An empty interior yields the id as label.
func parseNodeDecl(text string) (diagram.Node, bool) {
	for _, s := range shapeTable {
		m := s.pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		label := m[2]
		if label == "" {
			label = m[1]
		}
		return diagram.Node{ID: m[1], Label: label, Shape: s.shape}, true
	}
	return diagram.Node{}, false
}

// endpoint is one side of an edge statement. Decl is set when the side
// carries an inline node declaration.
type endpoint struct {
	ID   string
	Decl *diagram.Node
}

func parseEndpoint(text string) (endpoint, bool) {
	if m := bareIDPattern.FindStringSubmatch(text); m != nil {
		return endpoint{ID: m[1]}, true
	}
	if node, ok := parseNodeDecl(text); ok {
		return endpoint{ID: node.ID, Decl: &node}, true
	}
	return endpoint{}, false
}
