// Package markdown finds ```mermaid fenced blocks in Markdown text so a
// diagram embedded in documentation can be edited in place.
package markdown

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Block is a mermaid code block found in markdown
type Block struct {
	StartLine int    // line of the opening fence (0-based)
	EndLine   int    // line of the closing fence
	Indent    string // indentation before the opening fence
	Source    string // diagram source with the indent removed, newline terminated
	Hash      string // SHA256 of Source, used to detect concurrent edits
}

// Scanner finds and replaces mermaid blocks in markdown content
type Scanner struct {
	content string
	lines   []string
}

// NewScanner creates a new markdown scanner
func NewScanner(content string) *Scanner {
	return &Scanner{
		content: content,
		lines:   strings.Split(content, "\n"),
	}
}

// Content returns the current markdown content
func (s *Scanner) Content() string {
	return s.content
}

// Blocks returns every mermaid block in document order. An unterminated
// block is ignored.
func (s *Scanner) Blocks() []Block {
	var blocks []Block
	var current *Block
	var body []string

	for i, line := range s.lines {
		trimmed := strings.TrimLeft(line, " \t")
		if current == nil {
			if !strings.HasPrefix(trimmed, "```") {
				continue
			}
			lang := strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
			if strings.EqualFold(lang, "mermaid") {
				current = &Block{StartLine: i, Indent: line[:len(line)-len(trimmed)]}
				body = body[:0]
			}
			continue
		}

		if strings.HasPrefix(trimmed, "```") {
			current.EndLine = i
			current.Source = joinSource(body)
			current.Hash = hash(current.Source)
			blocks = append(blocks, *current)
			current = nil
			continue
		}
		body = append(body, strings.TrimPrefix(line, current.Indent))
	}
	return blocks
}

// Block returns the n-th mermaid block, counting from zero.
func (s *Scanner) Block(n int) (Block, error) {
	blocks := s.Blocks()
	if len(blocks) == 0 {
		return Block{}, fmt.Errorf("no mermaid blocks found")
	}
	if n < 0 || n >= len(blocks) {
		return Block{}, fmt.Errorf("block %d out of range (found %d)", n, len(blocks))
	}
	return blocks[n], nil
}

// Replace swaps the body of block for source and returns the new markdown.
// It fails if the fences moved or the body changed since block was read.
func (s *Scanner) Replace(block Block, source string) (string, error) {
	if block.StartLine < 0 || block.EndLine >= len(s.lines) || block.StartLine >= block.EndLine {
		return "", fmt.Errorf("invalid block boundaries: start=%d, end=%d, total lines=%d",
			block.StartLine, block.EndLine, len(s.lines))
	}

	start := strings.TrimLeft(s.lines[block.StartLine], " \t")
	if !strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(start, "```")), "mermaid") {
		return "", fmt.Errorf("block start marker has changed at line %d: found '%s'", block.StartLine+1, start)
	}
	end := strings.TrimLeft(s.lines[block.EndLine], " \t")
	if !strings.HasPrefix(end, "```") {
		return "", fmt.Errorf("block end marker has changed at line %d: found '%s'", block.EndLine+1, end)
	}

	var body []string
	for _, line := range s.lines[block.StartLine+1 : block.EndLine] {
		body = append(body, strings.TrimPrefix(line, block.Indent))
	}
	if hash(joinSource(body)) != block.Hash {
		return "", fmt.Errorf("block content has been modified externally (hash mismatch)")
	}

	newLines := make([]string, 0, len(s.lines))
	newLines = append(newLines, s.lines[:block.StartLine+1]...)
	for _, line := range strings.Split(strings.TrimSuffix(source, "\n"), "\n") {
		if line == "" {
			newLines = append(newLines, "")
			continue
		}
		newLines = append(newLines, block.Indent+line)
	}
	newLines = append(newLines, s.lines[block.EndLine:]...)

	s.content = strings.Join(newLines, "\n")
	s.lines = newLines
	return s.content, nil
}

// Describe returns a one-line summary of a block for pickers and errors
func Describe(block Block, index int) string {
	preview := ""
	for _, line := range strings.Split(block.Source, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" && !strings.HasPrefix(trimmed, "%%") {
			preview = trimmed
			if len(preview) > 50 {
				preview = preview[:47] + "..."
			}
			break
		}
	}
	return fmt.Sprintf("%d. mermaid (line %d): %s", index+1, block.StartLine+1, preview)
}

func joinSource(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
