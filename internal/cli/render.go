package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cfgroup/cfgroup/pkg/flowgraph"
	"github.com/cfgroup/cfgroup/pkg/pipeline"
)

// renderCommand creates the render command for drawing flow graphs.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		formatsStr  string
		output      string
		start       int
		marker      string
		annotations string
		detailed    bool
		noCache     bool
		refresh     bool
	)

	cmd := &cobra.Command{
		Use:   "render [graph.json]",
		Short: "Render a control-flow graph to DOT, SVG, or PNG",
		Long: `Render a control-flow graph to DOT, SVG, or PNG.

Without --start the graph is drawn as-is. With --start the dominated region
reachable from that node is computed and highlighted, and boundary nodes are
drawn as octagons.

Results are cached locally for faster subsequent runs.

Examples:
  cfgroup render graph.json -f svg
  cfgroup render graph.json -f svg,png --start 5 -a notes.toml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd.Context(), args[0], renderParams{
				formats:     parseFormats(formatsStr),
				output:      output,
				start:       start,
				marker:      marker,
				annotations: annotations,
				detailed:    detailed,
				noCache:     noCache,
				refresh:     refresh,
			})
		},
	}

	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): dot (default), svg, png, json (comma-separated)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().IntVar(&start, "start", -1, "highlight the dominated region from this node")
	cmd.Flags().StringVar(&marker, "marker", pipeline.DefaultMarker, "boundary marker substring")
	cmd.Flags().StringVarP(&annotations, "annotations", "a", "", "annotations TOML file")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include node ids in rendered labels")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass cached results")

	return cmd
}

// renderParams holds the resolved flags for the render command.
type renderParams struct {
	formats     []string
	output      string
	start       int
	marker      string
	annotations string
	detailed    bool
	noCache     bool
	refresh     bool
}

// runRender loads the graph, optionally computes the region highlight, and
// writes the rendered artifacts.
func (c *CLI) runRender(ctx context.Context, input string, params renderParams) error {
	if err := pipeline.ValidateFormats(params.formats); err != nil {
		return err
	}

	g, err := flowgraph.ReadFile(input)
	if err != nil {
		return fmt.Errorf("load graph %s: %w", input, err)
	}

	ann, err := loadAnnotations(params.annotations)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(params.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts := pipeline.Options{
		Graph:       g,
		Start:       params.start,
		Marker:      params.marker,
		Formats:     params.formats,
		Detailed:    params.detailed,
		Refresh:     params.refresh,
		Annotations: ann,
		Logger:      c.Logger,
	}

	// Highlight the dominated region when a start node was given
	var result *pipeline.Result
	if params.start >= 0 {
		doms, err := runner.Solve(ctx, opts)
		if err != nil {
			return fmt.Errorf("solve: %w", err)
		}
		members, err := runner.Collect(ctx, doms, opts)
		if err != nil {
			return groupError(err)
		}
		result = &pipeline.Result{Region: members}
	}

	spinner := newSpinner(ctx, "Rendering graph...")
	spinner.Start()

	artifacts, cacheHit, err := runner.RenderWithCacheInfo(ctx, g, result, opts)
	if err != nil {
		spinner.StopWithError("Render failed")
		return fmt.Errorf("render: %w", err)
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	printSuccess("Render complete")
	printStats(g.NodeCount(), g.EdgeCount(), cacheHit)

	return writeArtifacts(artifactWriteParams{
		artifacts: artifacts,
		formats:   params.formats,
		input:     input,
		output:    params.output,
	})
}

// =============================================================================
// Artifact Output
// =============================================================================

// artifactWriteParams bundles the inputs for writeArtifacts.
type artifactWriteParams struct {
	artifacts map[string][]byte
	formats   []string
	input     string // input path, used to derive default output names
	output    string // output file (single format) or base path (multiple)
}

// writeArtifacts writes each rendered format to disk.
// With a single format and an output path carrying an extension, the
// artifact goes to exactly that path. Otherwise each format gets
// <base>.<format>, where base defaults to the input name without extension.
func writeArtifacts(p artifactWriteParams) error {
	if len(p.formats) == 1 && p.output != "" && filepath.Ext(p.output) != "" {
		data := p.artifacts[p.formats[0]]
		if err := os.WriteFile(p.output, data, 0644); err != nil {
			return fmt.Errorf("write output %s: %w", p.output, err)
		}
		printFile(p.output)
		return nil
	}

	base := p.output
	if base == "" {
		base = strings.TrimSuffix(p.input, filepath.Ext(p.input))
	}
	for _, format := range p.formats {
		data, ok := p.artifacts[format]
		if !ok {
			continue
		}
		path := fmt.Sprintf("%s.%s", base, format)
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("write output %s: %w", path, err)
		}
		printFile(path)
	}
	return nil
}

// parseNodeArg parses a node id argument.
func parseNodeArg(arg string) (int, error) {
	v, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid node id %q", arg)
	}
	return v, nil
}
