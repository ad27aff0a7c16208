// Package edit holds the structural edit operations. Each one takes the
// current source text and returns the new source text: the source is parsed
// fresh, the document is mutated and the generator writes it back.
package edit

import (
	"flowedit/diagram"
	"flowedit/generator"
	"flowedit/parser"
)

// Mutation changes a document in place and reports whether it changed
// anything. A missing target is not an error, just no change.
type Mutation func(doc *diagram.Document) bool

// Apply runs mutate against a fresh parse of source. When nothing changed,
// or the source is not a flowchart, source is returned untouched.
func Apply(source string, mutate Mutation) string {
	doc := parser.Parse(source)
	if !doc.IsFlowchart() {
		return source
	}
	if !mutate(doc) {
		return source
	}
	return generator.Generate(doc, source)
}

// AddNode appends a node and returns the new source with the assigned id.
func AddNode(source, label string, shape diagram.Shape) (newSource, id string) {
	newSource = Apply(source, func(doc *diagram.Document) bool {
		id = doc.AddNode(label, shape)
		return true
	})
	return newSource, id
}

// DeleteNode removes a node and everything that refers to it.
func DeleteNode(source, id string) string {
	return Apply(source, func(doc *diagram.Document) bool {
		return doc.DeleteNode(id)
	})
}

// DeleteEdge removes the edge at index.
func DeleteEdge(source string, index int) string {
	return Apply(source, func(doc *diagram.Document) bool {
		return doc.DeleteEdge(index)
	})
}

// DeleteMultiple removes several nodes and edges at once. Edge indexes refer
// to positions in source, before any deletion.
func DeleteMultiple(source string, nodeIDs []string, edgeIndices []int) string {
	return Apply(source, func(doc *diagram.Document) bool {
		return doc.DeleteMultiple(nodeIDs, edgeIndices)
	})
}

// RenameNode sets a node label. The label is written verbatim.
func RenameNode(source, id, label string) string {
	return Apply(source, func(doc *diagram.Document) bool {
		return doc.RenameNode(id, label)
	})
}

// RenameEdge sets the label of the edge at index.
func RenameEdge(source string, index int, label string) string {
	return Apply(source, func(doc *diagram.Document) bool {
		return doc.RenameEdge(index, label)
	})
}

// CreateConnection adds an arrow from -> to unless one already exists.
func CreateConnection(source, from, to string) string {
	return Apply(source, func(doc *diagram.Document) bool {
		return doc.Connect(from, to)
	})
}

// SetNodeStyle replaces the style directive of a node. Empty props remove it.
func SetNodeStyle(source, id string, props diagram.StyleProps) string {
	return Apply(source, func(doc *diagram.Document) bool {
		return doc.SetNodeStyle(id, props)
	})
}

// SetThemeVariable sets a theme variable in the init header. An empty value
// removes it.
func SetThemeVariable(source, key, value string) string {
	return Apply(source, func(doc *diagram.Document) bool {
		return doc.SetThemeVariable(key, value)
	})
}
