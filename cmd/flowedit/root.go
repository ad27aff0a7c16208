package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"flowedit/config"
	"flowedit/diagram"
	"flowedit/logging"
	"flowedit/markdown"
	"flowedit/pipeline"
	"flowedit/render"
)

// app carries what every command needs once flags and config are read.
type app struct {
	configPath string
	block      int

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "flowedit",
		Short: "Round-trip editor for Mermaid flowcharts",
		Long: `flowedit edits Mermaid flowchart sources without disturbing the way they
are written: comments, spacing and unrelated lines survive every edit.

Files ending in .md are edited inside one of their mermaid code blocks,
chosen with --block.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (.yaml or .toml)")
	root.PersistentFlags().IntVar(&a.block, "block", 1, "mermaid block to edit in markdown files (1-based)")

	root.AddCommand(
		newParseCmd(a),
		newFmtCmd(a),
		newBlocksCmd(a),
		newAddNodeCmd(a),
		newDeleteNodeCmd(a),
		newDeleteEdgeCmd(a),
		newRenameCmd(a),
		newConnectCmd(a),
		newStyleCmd(a),
		newThemeCmd(a),
		newEditCmd(a),
	)
	return root
}

// setup loads config and builds the logger before any command runs.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	var err error
	if a.configPath != "" {
		a.cfg, err = config.LoadFromFile(a.configPath)
	} else {
		a.cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if a.block < 1 {
		return fmt.Errorf("--block must be 1 or more, got %d", a.block)
	}

	a.logger, err = logging.New(logging.Options{
		Level:  a.cfg.LogLevel,
		JSON:   a.cfg.LogJSON,
		Color:  a.cfg.Color,
		Writer: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	color.NoColor = !logging.ColorEnabled(a.cfg.Color, cmd.ErrOrStderr())
	return nil
}

// open returns the persister for path: the selected mermaid block for
// markdown files, the whole file otherwise.
func (a *app) open(path string) pipeline.Persister {
	if isMarkdown(path) {
		return &markdown.BlockFile{Path: path, Index: a.block - 1}
	}
	return &textFile{path: path}
}

func isMarkdown(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

// newRenderer builds the render adapter edits are checked against.
func newRenderer(logger *slog.Logger) *render.Adapter {
	registry := render.NewRegistry()
	registry.Register(diagram.TypeFlowchart, render.NewGridEngine())
	return render.NewAdapter(registry, logger)
}

func (a *app) ok(cmd *cobra.Command, format string, args ...any) {
	color.New(color.FgGreen).Fprintf(cmd.ErrOrStderr(), "✓ "+format+"\n", args...)
}

func (a *app) warn(cmd *cobra.Command, format string, args ...any) {
	color.New(color.FgYellow).Fprintf(cmd.ErrOrStderr(), "! "+format+"\n", args...)
}
