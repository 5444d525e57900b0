package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/cfgroup/cfgroup/pkg/cache"
	"github.com/cfgroup/cfgroup/pkg/dominance"
	"github.com/cfgroup/cfgroup/pkg/flowgraph"
	"github.com/cfgroup/cfgroup/pkg/group"
	"github.com/cfgroup/cfgroup/pkg/observability"
	"github.com/cfgroup/cfgroup/pkg/region"
	"github.com/cfgroup/cfgroup/pkg/render/nodelink"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API can use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete solve → collect → group → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	r.applyLogger(&opts)

	result := &Result{
		RunID:     uuid.NewString(),
		Graph:     opts.Graph,
		GroupNode: -1,
		Artifacts: make(map[string][]byte),
	}
	result.Stats.NodeCount = opts.Graph.NodeCount()
	result.Stats.EdgeCount = opts.Graph.EdgeCount()

	// Compute graph hash for cache keys and API responses
	graphData, err := flowgraph.Marshal(opts.Graph)
	if err != nil {
		return nil, fmt.Errorf("serialize graph: %w", err)
	}
	result.GraphHash = cache.Hash(graphData)

	// Stage 1: Solve
	solveStart := time.Now()
	doms, solveHit, err := r.SolveWithCacheInfo(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("solve: %w", err)
	}
	result.Doms = doms
	result.Stats.Passes = doms.Passes()
	result.Stats.SolveTime = time.Since(solveStart)
	result.CacheInfo.SolveHit = solveHit

	r.Logger.Info("solved dominators",
		"run_id", result.RunID,
		"nodes", opts.Graph.NodeCount(),
		"passes", doms.Passes(),
		"duration", result.Stats.SolveTime)

	// Stage 2: Collect
	collectStart := time.Now()
	members, collectHit, err := r.CollectWithCacheInfo(ctx, doms, opts)
	if err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}
	result.Region = members
	result.Stats.RegionSize = len(members)
	result.Stats.CollectTime = time.Since(collectStart)
	result.CacheInfo.CollectHit = collectHit

	r.Logger.Info("collected region",
		"run_id", result.RunID,
		"start", opts.Start,
		"size", len(members),
		"duration", result.Stats.CollectTime)

	// Stage 3: Group (optional)
	renderGraph := opts.Graph
	if opts.ShouldCollapse() {
		grouped, groupNode, err := group.Collapse(opts.Graph, members, opts.Label)
		if err != nil {
			return nil, fmt.Errorf("group: %w", err)
		}
		result.Grouped = grouped
		result.GroupNode = groupNode
		renderGraph = grouped

		r.Logger.Info("collapsed region",
			"run_id", result.RunID,
			"label", opts.Label,
			"group_node", groupNode,
			"nodes", grouped.NodeCount())
	}

	// Stage 4: Render
	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, renderGraph, result, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered outputs",
		"run_id", result.RunID,
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// SolveWithCacheInfo computes dominator sets with caching and returns cache hit info.
func (r *Runner) SolveWithCacheInfo(ctx context.Context, opts Options) (*dominance.Sets, bool, error) {
	if err := opts.ValidateForSolve(); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)

	// Compute cache key
	graphData, err := flowgraph.Marshal(opts.Graph)
	if err != nil {
		return nil, false, err
	}
	cacheKey := r.Keyer.DomKey(cache.Hash(graphData))

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			var doms dominance.Sets
			if err := json.Unmarshal(data, &doms); err == nil {
				return &doms, true, nil // Cache hit
			}
			// If deserialization fails, fall through to recompute
		}
	}

	// Solve
	start := time.Now()
	observability.Solver().OnSolveStart(ctx, opts.Graph.NodeCount())
	doms, err := dominance.Solve(opts.Graph)
	passes := 0
	if doms != nil {
		passes = doms.Passes()
	}
	observability.Solver().OnSolveComplete(ctx, opts.Graph.NodeCount(), passes, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	// Cache the result
	if data, err := json.Marshal(doms); err == nil {
		_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLDominators)
	}

	return doms, false, nil // Cache miss
}

// Solve is a convenience wrapper that calls SolveWithCacheInfo and discards the cache hit info.
func (r *Runner) Solve(ctx context.Context, opts Options) (*dominance.Sets, error) {
	doms, _, err := r.SolveWithCacheInfo(ctx, opts)
	return doms, err
}

// CollectWithCacheInfo collects the region with caching and returns cache hit info.
func (r *Runner) CollectWithCacheInfo(ctx context.Context, doms *dominance.Sets, opts Options) ([]int, bool, error) {
	if err := opts.ValidateForCollect(); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)

	// Compute cache key
	graphData, err := flowgraph.Marshal(opts.Graph)
	if err != nil {
		return nil, false, err
	}
	cacheKey := r.Keyer.RegionKey(cache.Hash(graphData), opts.RegionKeyOpts())

	// Try cache first
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			var members []int
			if err := json.Unmarshal(data, &members); err == nil {
				return members, true, nil // Cache hit
			}
		}
	}

	// Collect
	start := time.Now()
	observability.Region().OnCollectStart(ctx, opts.Start)
	members, err := region.Collect(opts.Graph, doms, opts.Annotations.Boundary(opts.Marker), opts.Start)
	observability.Region().OnCollectComplete(ctx, opts.Start, len(members), time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	// Cache the result
	if data, err := json.Marshal(members); err == nil {
		_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLRegion)
	}

	return members, false, nil // Cache miss
}

// Collect is a convenience wrapper that calls CollectWithCacheInfo and discards the cache hit info.
func (r *Runner) Collect(ctx context.Context, doms *dominance.Sets, opts Options) ([]int, error) {
	members, _, err := r.CollectWithCacheInfo(ctx, doms, opts)
	return members, err
}

// RenderWithCacheInfo generates artifacts with caching and returns cache hit info.
// The graph argument is the one to draw - the grouped graph when collapsing
// ran, the original graph otherwise. The result supplies the region and group
// node for highlighting.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, g *flowgraph.Graph, result *Result, opts Options) (map[string][]byte, bool, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)

	// The cache key covers everything that shapes the drawing: the graph
	// being drawn and the highlighted nodes.
	graphData, err := flowgraph.Marshal(g)
	if err != nil {
		return nil, false, fmt.Errorf("serialize graph for cache key: %w", err)
	}
	highlight := renderHighlight(result)
	keyData, err := json.Marshal(struct {
		Graph     json.RawMessage `json:"graph"`
		Highlight []int           `json:"highlight"`
	}{Graph: graphData, Highlight: highlight})
	if err != nil {
		return nil, false, err
	}
	renderHash := cache.Hash(keyData)

	// Try to get all formats from cache
	allCached := true
	artifacts := make(map[string][]byte)

	if !opts.Refresh {
		for _, format := range opts.Formats {
			cacheKey := r.Keyer.ArtifactKey(renderHash, opts.ArtifactKeyOpts(format))
			if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
				artifacts[format] = data
			} else {
				allCached = false
				break
			}
		}
		if allCached && len(artifacts) == len(opts.Formats) {
			return artifacts, true, nil // All artifacts from cache
		}
	}

	// Render all formats
	start := time.Now()
	observability.Render().OnRenderStart(ctx, opts.Formats)
	rendered, err := r.renderFormats(g, highlight, result == nil || result.Grouped == nil, opts)
	observability.Render().OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	// Cache each format
	for format, data := range rendered {
		cacheKey := r.Keyer.ArtifactKey(renderHash, opts.ArtifactKeyOpts(format))
		_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLArtifact)
	}

	return rendered, false, nil // Cache miss
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and discards the cache hit info.
func (r *Runner) Render(ctx context.Context, g *flowgraph.Graph, result *Result, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, g, result, opts)
	return artifacts, err
}

// renderFormats produces every requested format from a single DOT rendering.
// Boundary styling only applies to the original graph: collapsing renumbers
// nodes, so the annotation store's ids no longer line up with the drawing.
func (r *Runner) renderFormats(g *flowgraph.Graph, highlight []int, originalIDs bool, opts Options) (map[string][]byte, error) {
	nlOpts := nodelink.Options{
		Region:   highlight,
		Detailed: opts.Detailed,
	}
	if originalIDs && opts.Annotations != nil {
		nlOpts.Boundary = opts.Annotations.Boundary(opts.Marker)
	}

	dot := nodelink.ToDOT(g, nlOpts)

	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		switch format {
		case FormatDOT:
			artifacts[format] = []byte(dot)
		case FormatSVG:
			data, err := nodelink.RenderSVG(dot)
			if err != nil {
				return nil, fmt.Errorf("render svg: %w", err)
			}
			artifacts[format] = data
		case FormatPNG:
			data, err := nodelink.RenderPNG(dot)
			if err != nil {
				return nil, fmt.Errorf("render png: %w", err)
			}
			artifacts[format] = data
		case FormatJSON:
			data, err := flowgraph.Marshal(g)
			if err != nil {
				return nil, fmt.Errorf("render json: %w", err)
			}
			artifacts[format] = data
		default:
			return nil, fmt.Errorf("invalid format: %q", format)
		}
	}
	return artifacts, nil
}

// renderHighlight picks the nodes to highlight in rendered output: the
// collapsed group node when grouping ran, the collected region otherwise.
func renderHighlight(result *Result) []int {
	if result == nil {
		return nil
	}
	if result.Grouped != nil {
		return []int{result.GroupNode}
	}
	return result.Region
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
