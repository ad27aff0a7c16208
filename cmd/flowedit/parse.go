package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/itchyny/gojq"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"flowedit/generator"
	"flowedit/markdown"
	"flowedit/parser"
)

func newParseCmd(a *app) *cobra.Command {
	var (
		format string
		query  string
	)
	cmd := &cobra.Command{
		Use:   "parse FILE",
		Short: "Print the parsed document model",
		Long: `Print the parsed document model as JSON or YAML. --query runs a jq
expression over the JSON form first, for example:

  flowedit parse chart.mmd --query '.edges[] | select(.from == "A") | .to'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := a.open(args[0]).Load(cmd.Context())
			if err != nil {
				return err
			}
			doc := parser.Parse(source)

			var out []any
			if query == "" {
				out = []any{doc}
			} else {
				out, err = runQuery(cmd.Context(), query, doc)
				if err != nil {
					return err
				}
			}
			for _, v := range out {
				if err := encode(cmd.OutOrStdout(), format, v); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format (json|yaml)")
	cmd.Flags().StringVarP(&query, "query", "q", "", "jq expression evaluated against the JSON model")
	return cmd
}

// runQuery evaluates a jq expression against v. gojq only accepts plain
// JSON values, so v takes a round trip through encoding/json first.
func runQuery(ctx context.Context, expression string, v any) ([]any, error) {
	q, err := gojq.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("parse query: %w", err)
	}
	code, err := gojq.Compile(q)
	if err != nil {
		return nil, fmt.Errorf("compile query: %w", err)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var input any
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, err
	}

	var results []any
	iter := code.RunWithContext(ctx, input)
	for {
		val, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := val.(error); isErr {
			return nil, fmt.Errorf("query %q: %w", expression, err)
		}
		results = append(results, val)
	}
	return results, nil
}

func encode(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unsupported output format %q", format)
}

func newFmtCmd(a *app) *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:   "fmt FILE...",
		Short: "Rewrite flowcharts in canonical form",
		Long: `Regenerate each flowchart from its parsed model, dropping comments and
odd spacing. Other diagram types are left alone. Files are processed
concurrently.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatted := make([]string, len(args))
			g, ctx := errgroup.WithContext(cmd.Context())
			for i, path := range args {
				g.Go(func() error {
					doc := a.open(path)
					source, err := doc.Load(ctx)
					if err != nil {
						return err
					}
					formatted[i] = canonical(source)
					if !write || formatted[i] == source {
						return nil
					}
					return doc.Save(ctx, formatted[i])
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			for i, path := range args {
				if write {
					a.ok(cmd, "%s: formatted", path)
					continue
				}
				fmt.Fprint(cmd.OutOrStdout(), formatted[i])
			}
			return nil
		},
	}
	addWriteFlag(cmd, &write)
	return cmd
}

// canonical is the full regeneration of source, or source itself when it
// is not a flowchart.
func canonical(source string) string {
	doc := parser.Parse(source)
	if !doc.IsFlowchart() {
		return source
	}
	return generator.GenerateNew(doc)
}

func newBlocksCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "blocks FILE",
		Short: "List the mermaid blocks of a markdown file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := (&textFile{path: args[0]}).Load(cmd.Context())
			if err != nil {
				return err
			}
			blocks := markdown.NewScanner(data).Blocks()
			if len(blocks) == 0 {
				a.warn(cmd, "%s: no mermaid blocks found", args[0])
				return nil
			}
			for i, block := range blocks {
				fmt.Fprintln(cmd.OutOrStdout(), markdown.Describe(block, i))
			}
			return nil
		},
	}
}
