package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/modguard/modguard/pkg/errors"
	"github.com/modguard/modguard/pkg/pipeline"
	"github.com/modguard/modguard/pkg/render"
)

// graphOpts holds the command-line flags for the graph command.
type graphOpts struct {
	output   string
	format   string
	detailed bool
	exclude  []string
	noCache  bool
}

// newGraphCmd creates the graph export command.
func newGraphCmd() *cobra.Command {
	opts := graphOpts{format: "dot"}

	cmd := &cobra.Command{
		Use:   "graph [path]",
		Short: "Export the dependency graph as DOT or SVG",
		Long: `Export the project's dependency graph with collisions highlighted.

DOT output goes to stdout by default and suits further tooling; SVG
requires --output and suits humans.

Examples:
  modguard graph closure.json > deps.dot
  modguard graph . --format svg --output deps.svg`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := "."
			if len(args) == 1 {
				input = args[0]
			}
			return runGraph(cmd.Context(), input, &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (stdout if empty, required for svg)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: dot, svg")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "include versions and module lists in node labels")
	cmd.Flags().StringArrayVar(&opts.exclude, "exclude", nil, "exclude a package from the graph (repeatable)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the index response cache")

	return cmd
}

// runGraph scans the input and writes the requested rendering.
func runGraph(ctx context.Context, input string, opts *graphOpts) error {
	format := strings.ToLower(opts.format)
	if format != "dot" && format != "svg" {
		return errors.New(errors.ErrCodeInvalidInput, "unknown format %q: expected dot or svg", format)
	}
	if format == "svg" && opts.output == "" {
		return errors.New(errors.ErrCodeInvalidInput, "svg output requires --output")
	}

	logger := loggerFromContext(ctx)
	runner := pipeline.NewRunner(nil, nil, logger)
	result, err := runner.Execute(ctx, pipeline.Options{Input: input, Exclude: opts.exclude})
	if err != nil {
		return err
	}

	dot := render.ToDOT(result.Graph, result.Collisions, render.Options{Detailed: opts.detailed})
	if format == "dot" {
		return writeOutput(opts.output, []byte(dot))
	}

	s := newSpinner(ctx, "rendering graph")
	s.Start()
	svg, err := render.RenderSVG(dot)
	if err != nil {
		s.StopWithError("Rendering failed")
		return err
	}
	s.Stop()

	if err := writeOutput(opts.output, svg); err != nil {
		return err
	}
	printSuccess("Rendered %d packages", result.Stats.Packages)
	printFile(opts.output)
	return nil
}

// writeOutput writes data to path, or stdout when path is empty.
func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
