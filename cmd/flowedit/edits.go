package main

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"flowedit/diagram"
	"flowedit/parser"
	"flowedit/pipeline"
	"flowedit/state"
)

var shapes = []diagram.Shape{
	diagram.ShapeRectangle,
	diagram.ShapeStadium,
	diagram.ShapeDiamond,
	diagram.ShapeCircle,
	diagram.ShapeSubroutine,
	diagram.ShapeCylinder,
	diagram.ShapeHexagon,
	diagram.ShapeParallelogram,
}

// editFunc runs one structural edit against a session.
type editFunc func(ctx context.Context, s *pipeline.Session) error

// applyEdit loads path, runs op through an edit session and either writes
// the result back or prints it. An edit that changes nothing prints the
// source untouched.
func (a *app) applyEdit(cmd *cobra.Command, path string, write bool, op editFunc) error {
	ctx := cmd.Context()
	doc := a.open(path)
	source, err := doc.Load(ctx)
	if err != nil {
		return err
	}

	sink := doc
	if !write {
		sink = &printer{w: cmd.OutOrStdout(), source: source}
	}
	store := state.NewStore(source)
	session := pipeline.NewSession(store, newRenderer(a.logger), sink, pipeline.Options{
		HistoryCapacity: a.cfg.HistoryCapacity,
		Logger:          a.logger,
	})
	defer session.Close()

	if err := op(ctx, session); err != nil {
		return err
	}
	if store.Snapshot().Revision == 0 {
		a.warn(cmd, "%s: nothing changed", path)
		if !write {
			fmt.Fprint(cmd.OutOrStdout(), source)
		}
		return nil
	}
	if write {
		a.ok(cmd, "%s: saved", path)
	}
	return nil
}

func addWriteFlag(cmd *cobra.Command, write *bool) {
	cmd.Flags().BoolVarP(write, "write", "w", false, "write the result back instead of printing it")
}

func newAddNodeCmd(a *app) *cobra.Command {
	var (
		write bool
		label string
		shape string
	)
	cmd := &cobra.Command{
		Use:   "add-node FILE",
		Short: "Add a node with a generated id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(shapes, diagram.Shape(shape)) {
				return fmt.Errorf("unknown shape %q", shape)
			}
			return a.applyEdit(cmd, args[0], write, func(ctx context.Context, s *pipeline.Session) error {
				id, err := s.AddNode(ctx, label, diagram.Shape(shape))
				if err == nil && id != "" {
					a.ok(cmd, "added node %s", id)
				}
				return err
			})
		},
	}
	addWriteFlag(cmd, &write)
	cmd.Flags().StringVar(&label, "label", "", "node label (defaults to the generated id)")
	cmd.Flags().StringVar(&shape, "shape", string(diagram.ShapeRectangle), "node shape")
	return cmd
}

func newDeleteNodeCmd(a *app) *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:   "delete-node FILE ID...",
		Short: "Delete nodes with their edges and styles",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := args[1:]
			return a.applyEdit(cmd, args[0], write, func(ctx context.Context, s *pipeline.Session) error {
				if len(ids) == 1 {
					return s.DeleteNode(ctx, ids[0])
				}
				return s.DeleteMultiple(ctx, ids, nil)
			})
		},
	}
	addWriteFlag(cmd, &write)
	return cmd
}

func newDeleteEdgeCmd(a *app) *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:   "delete-edge FILE INDEX...",
		Short: "Delete edges by their position in the source",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			indices, err := parseIndices(args[1:])
			if err != nil {
				return err
			}
			return a.applyEdit(cmd, args[0], write, func(ctx context.Context, s *pipeline.Session) error {
				if len(indices) == 1 {
					return s.DeleteEdge(ctx, indices[0])
				}
				return s.DeleteMultiple(ctx, nil, indices)
			})
		},
	}
	addWriteFlag(cmd, &write)
	return cmd
}

func parseIndices(args []string) ([]int, error) {
	indices := make([]int, 0, len(args))
	for _, arg := range args {
		n, err := strconv.Atoi(arg)
		if err != nil {
			return nil, fmt.Errorf("edge index %q: %w", arg, err)
		}
		indices = append(indices, n)
	}
	return indices, nil
}

func newRenameCmd(a *app) *cobra.Command {
	var (
		write bool
		node  string
		edge  int
	)
	cmd := &cobra.Command{
		Use:   "rename FILE LABEL",
		Short: "Change the label of a node or an edge",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			label := args[1]
			return a.applyEdit(cmd, args[0], write, func(ctx context.Context, s *pipeline.Session) error {
				if cmd.Flags().Changed("edge") {
					return s.RenameEdge(ctx, edge, label)
				}
				return s.RenameNode(ctx, node, label)
			})
		},
	}
	addWriteFlag(cmd, &write)
	cmd.Flags().StringVar(&node, "node", "", "id of the node to rename")
	cmd.Flags().IntVar(&edge, "edge", 0, "index of the edge to rename")
	cmd.MarkFlagsMutuallyExclusive("node", "edge")
	cmd.MarkFlagsOneRequired("node", "edge")
	return cmd
}

func newConnectCmd(a *app) *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:   "connect FILE FROM TO",
		Short: "Add an arrow between two nodes",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.applyEdit(cmd, args[0], write, func(ctx context.Context, s *pipeline.Session) error {
				return s.CreateConnection(ctx, args[1], args[2])
			})
		},
	}
	addWriteFlag(cmd, &write)
	return cmd
}

func newStyleCmd(a *app) *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:   "style FILE ID PROPS",
		Short: "Replace the style directive of a node",
		Long: `Replace the style directive of a node. PROPS is a comma separated list
such as "fill:#f9f,stroke:#333". An empty PROPS removes the directive.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			props := parser.ParseStyles(args[2])
			return a.applyEdit(cmd, args[0], write, func(ctx context.Context, s *pipeline.Session) error {
				return s.SetNodeStyle(ctx, args[1], props)
			})
		},
	}
	addWriteFlag(cmd, &write)
	return cmd
}

func newThemeCmd(a *app) *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:   "theme FILE KEY [VALUE]",
		Short: "Set or clear a theme variable in the init header",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			value := ""
			if len(args) == 3 {
				value = args[2]
			}
			return a.applyEdit(cmd, args[0], write, func(ctx context.Context, s *pipeline.Session) error {
				return s.SetThemeVariable(ctx, args[1], value)
			})
		},
	}
	addWriteFlag(cmd, &write)
	return cmd
}
