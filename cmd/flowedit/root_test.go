package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const simple = "graph TD\n    A[Start] --> B[End]\n"

// workspace isolates a test from user config and returns a scratch dir.
func workspace(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("NO_COLOR", "1")
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func execute(args ...string) (stdout, stderr string, err error) {
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestParseJSON(t *testing.T) {
	dir := workspace(t)
	path := writeFile(t, dir, "chart.mmd", simple)

	out, _, err := execute("parse", path)

	require.NoError(t, err)
	assert.Contains(t, out, `"type": "flowchart"`)
	assert.Contains(t, out, `"id": "A"`)
	assert.Contains(t, out, `"label": "End"`)
}

func TestParseYAML(t *testing.T) {
	dir := workspace(t)
	path := writeFile(t, dir, "chart.mmd", simple)

	out, _, err := execute("parse", path, "--format", "yaml")

	require.NoError(t, err)
	assert.Contains(t, out, "type: flowchart\n")
	assert.Contains(t, out, "direction: TD\n")
}

func TestParseQuery(t *testing.T) {
	dir := workspace(t)
	path := writeFile(t, dir, "chart.mmd", simple)

	out, _, err := execute("parse", path, "--query", ".nodes[].label")
	require.NoError(t, err)
	assert.Equal(t, "\"Start\"\n\"End\"\n", out)

	_, _, err = execute("parse", path, "--query", ".nodes[")
	assert.ErrorContains(t, err, "parse query")
}

func TestEditPrintsWithoutWrite(t *testing.T) {
	dir := workspace(t)
	path := writeFile(t, dir, "chart.mmd", simple)

	out, _, err := execute("delete-node", path, "A")

	require.NoError(t, err)
	assert.Equal(t, "graph TD\n    B[End]\n", out)
	assert.Equal(t, simple, readFile(t, path), "file untouched without -w")
}

func TestEditWritesBack(t *testing.T) {
	dir := workspace(t)
	path := writeFile(t, dir, "chart.mmd", simple)

	out, errOut, err := execute("rename", path, "--edge", "0", "go", "-w")

	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "saved")
	assert.Equal(t, "graph TD\n    A[Start] --> |go| B[End]\n", readFile(t, path))
}

func TestNoChangeIsReported(t *testing.T) {
	dir := workspace(t)
	path := writeFile(t, dir, "chart.mmd", simple)

	out, errOut, err := execute("delete-node", path, "missing")

	require.NoError(t, err)
	assert.Equal(t, simple, out)
	assert.Contains(t, errOut, "nothing changed")
}

func TestAddNodeStyleAndTheme(t *testing.T) {
	dir := workspace(t)
	path := writeFile(t, dir, "chart.mmd", simple)

	_, errOut, err := execute("add-node", path, "--label", "Check", "--shape", "diamond", "-w")
	require.NoError(t, err)
	assert.Contains(t, errOut, "added node C")

	_, _, err = execute("style", path, "C", "fill:#f0f", "-w")
	require.NoError(t, err)
	_, _, err = execute("theme", path, "primaryColor", "#abc", "-w")
	require.NoError(t, err)

	got := readFile(t, path)
	assert.Contains(t, got, "C{Check}")
	assert.Contains(t, got, "style C fill:#ff00ff")
	assert.Contains(t, got, "'primaryColor': '#abc'")

	_, _, err = execute("add-node", path, "--shape", "blob")
	assert.ErrorContains(t, err, `unknown shape "blob"`)
}

func TestDeleteSeveralEdges(t *testing.T) {
	dir := workspace(t)
	path := writeFile(t, dir, "chart.mmd", "graph TD\n    A --> B\n    B --> C\n    C --> A\n")

	out, _, err := execute("delete-edge", path, "0", "2")

	require.NoError(t, err)
	assert.Equal(t, "graph TD\n    B --> C\n", out)

	_, _, err = execute("delete-edge", path, "x")
	assert.ErrorContains(t, err, `edge index "x"`)
}

func TestRenameNeedsATarget(t *testing.T) {
	dir := workspace(t)
	path := writeFile(t, dir, "chart.mmd", simple)

	_, _, err := execute("rename", path, "x")
	assert.Error(t, err)

	_, _, err = execute("rename", path, "--node", "A", "--edge", "0", "x")
	assert.Error(t, err)
}

const notes = "# Notes\n\n```mermaid\ngraph TD\n    A --> B\n```\n\n```mermaid\ngraph LR\n    X --> Y\n```\n"

func TestMarkdownBlockSelection(t *testing.T) {
	dir := workspace(t)
	path := writeFile(t, dir, "notes.md", notes)

	_, _, err := execute("connect", path, "Y", "X", "--block", "2", "-w")

	require.NoError(t, err)
	want := "# Notes\n\n```mermaid\ngraph TD\n    A --> B\n```\n\n```mermaid\ngraph LR\n    X --> Y\n    Y --> X\n```\n"
	assert.Equal(t, want, readFile(t, path))

	_, _, err = execute("connect", path, "Y", "X", "--block", "3")
	assert.ErrorContains(t, err, "out of range")

	_, _, err = execute("connect", path, "Y", "X", "--block", "0")
	assert.ErrorContains(t, err, "--block must be 1 or more")
}

func TestBlocks(t *testing.T) {
	dir := workspace(t)
	path := writeFile(t, dir, "notes.md", notes)

	out, _, err := execute("blocks", path)

	require.NoError(t, err)
	assert.Equal(t, "1. mermaid (line 3): graph TD\n2. mermaid (line 8): graph LR\n", out)
}

func TestFmtFilesConcurrently(t *testing.T) {
	dir := workspace(t)
	messy := writeFile(t, dir, "messy.mmd", "graph TD\n  %% note\n  A-->B\n")
	other := writeFile(t, dir, "seq.mmd", "sequenceDiagram\n    A->>B: hi\n")

	out, _, err := execute("fmt", messy, other)
	require.NoError(t, err)
	assert.Equal(t, "graph TD\n    A --> B\nsequenceDiagram\n    A->>B: hi\n", out)

	_, errOut, err := execute("fmt", "-w", messy, other)
	require.NoError(t, err)
	assert.Contains(t, errOut, "messy.mmd: formatted")
	assert.Equal(t, "graph TD\n    A --> B\n", readFile(t, messy))
	assert.Equal(t, "sequenceDiagram\n    A->>B: hi\n", readFile(t, other))

	_, _, err = execute("fmt", filepath.Join(dir, "missing.mmd"))
	assert.Error(t, err)
}

func TestConfigFlag(t *testing.T) {
	dir := workspace(t)
	path := writeFile(t, dir, "chart.mmd", simple)
	cfg := writeFile(t, dir, "flowedit.toml", "log_level = \"loud\"\n")

	_, _, err := execute("--config", cfg, "parse", path)

	assert.ErrorContains(t, err, "loading config")
}
