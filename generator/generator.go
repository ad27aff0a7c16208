// Package generator turns a diagram.Document back into source text.
//
// When the document still has the shape of the text it was parsed from, the
// generator patches only the lines whose entities changed and passes every
// other line through byte for byte. Otherwise it regenerates the whole file.
package generator

import (
	"strings"

	"flowedit/diagram"
	"flowedit/parser"
)

// Generate renders doc. original is the text doc was parsed from, or empty
// for a document built from scratch.
func Generate(doc *diagram.Document, original string) string {
	if original != "" {
		prev := parser.Parse(original)
		if prev.Fingerprint() == doc.Fingerprint() {
			return preserve(doc, prev, original)
		}
		if strings.Contains(original, "\r\n") {
			return strings.ReplaceAll(GenerateNew(doc), "\n", "\r\n")
		}
	}
	return GenerateNew(doc)
}

// CanPreserveFormat reports whether Generate would patch original in place.
// It compares node, edge and subgraph counts only, so it assumes the line
// numbers stored in doc still index original.
func CanPreserveFormat(doc *diagram.Document, original string) bool {
	if original == "" {
		return false
	}
	return parser.Parse(original).Fingerprint() == doc.Fingerprint()
}
