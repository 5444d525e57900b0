// Package pipeline provides the core analysis pipeline for cfgroup.
//
// This package implements the complete solve → collect → group → render
// pipeline that can be used by CLI and API components. By centralizing this
// logic, we ensure consistent behavior across all entry points and avoid
// code duplication.
//
// # Architecture
//
// The pipeline consists of four stages:
//
//  1. Solve: Compute dominator sets for the flow graph
//  2. Collect: Gather the dominated region reachable from the start node
//  3. Group: Collapse the region into a single labeled node (optional)
//  4. Render: Generate output in various formats (DOT, SVG, PNG, JSON)
//
// Each stage can be run independently or as part of the complete pipeline.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    Graph:   g,
//	    Start:   3,
//	    Label:   "decrypt loop",
//	    Formats: []string{"svg"},
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
//
// Run individual stages:
//
//	// Solve only
//	doms, err := runner.Solve(ctx, opts)
//
//	// Collect with existing dominator sets
//	members, err := runner.Collect(ctx, doms, opts)
package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/cfgroup/cfgroup/pkg/annotate"
	"github.com/cfgroup/cfgroup/pkg/cache"
	"github.com/cfgroup/cfgroup/pkg/dominance"
	apperrors "github.com/cfgroup/cfgroup/pkg/errors"
	"github.com/cfgroup/cfgroup/pkg/flowgraph"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

// DefaultMarker is the boundary marker the pipeline uses when none is given.
const DefaultMarker = annotate.DefaultMarker

// Format constants for output formats.
const (
	FormatDOT  = "dot"
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatJSON = "json"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatDOT:  true,
	FormatSVG:  true,
	FormatPNG:  true,
	FormatJSON: true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the analysis pipeline.
// This struct supports JSON serialization for API requests; the graph and
// annotation store travel separately from the scalar options.
type Options struct {
	// Analysis options
	Start  int    `json:"start"`
	Marker string `json:"marker,omitempty"`

	// Group options
	Label      string `json:"label,omitempty"`
	NoCollapse bool   `json:"no_collapse,omitempty"` // Collect and report only, keep the graph intact

	// Render options
	Formats  []string `json:"formats,omitempty"`
	Detailed bool     `json:"detailed,omitempty"` // Include node ids in rendered labels

	// Cache options
	Refresh bool `json:"refresh,omitempty"` // Bypass cached results and recompute

	// Runtime options (not serialized)
	Graph       *flowgraph.Graph      `json:"-"`
	Annotations *annotate.Annotations `json:"-"`
	Logger      *log.Logger           `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// RunID uniquely identifies this pipeline run for logging and API responses.
	RunID string

	// Graph is the analyzed flow graph.
	Graph *flowgraph.Graph

	// GraphHash is the content hash of the graph.
	GraphHash string

	// Doms holds the computed dominator sets.
	Doms *dominance.Sets

	// Region is the collected region in discovery order; the start node
	// is always first.
	Region []int

	// Grouped is the graph with the region collapsed, or nil when
	// collapsing was skipped.
	Grouped *flowgraph.Graph

	// GroupNode is the id of the collapsed node in Grouped. It is -1 when
	// no collapse was performed.
	GroupNode int

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount   int
	EdgeCount   int
	Passes      int // Fixpoint passes the solver needed
	RegionSize  int
	SolveTime   time.Duration
	CollectTime time.Duration
	RenderTime  time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	SolveHit   bool // Whether dominator sets came from cache
	CollectHit bool // Whether the region came from cache
	RenderHit  bool // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return fmt.Errorf("invalid format: %q (must be one of: dot, svg, png, json)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for the full pipeline.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForSolve(); err != nil {
		return err
	}
	if err := o.ValidateForCollect(); err != nil {
		return err
	}
	if err := o.ValidateForGroup(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForSolve checks required fields for the solve stage.
func (o *Options) ValidateForSolve() error {
	if o.Graph == nil {
		return fmt.Errorf("graph is required")
	}

	// Logger default
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	return nil
}

// SetCollectDefaults sets default values for region collection.
func (o *Options) SetCollectDefaults() {
	if o.Marker == "" {
		o.Marker = DefaultMarker
	}
	if o.Annotations == nil {
		o.Annotations = annotate.New()
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForCollect validates and sets defaults for region collection.
func (o *Options) ValidateForCollect() error {
	o.SetCollectDefaults()
	if err := apperrors.ValidateMarker(o.Marker); err != nil {
		return err
	}
	if o.Graph != nil {
		return apperrors.ValidateNodeID(o.Start, o.Graph.NodeCount())
	}
	return nil
}

// ValidateForGroup validates the group label when collapsing is requested.
func (o *Options) ValidateForGroup() error {
	if o.NoCollapse {
		return nil
	}
	return apperrors.ValidateLabel(o.Label)
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatDOT}
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForRender validates and sets defaults for rendering.
func (o *Options) ValidateForRender() error {
	o.SetRenderDefaults()
	return ValidateFormats(o.Formats)
}

// ShouldCollapse returns whether the group stage should run.
func (o *Options) ShouldCollapse() bool {
	return !o.NoCollapse
}

// RegionKeyOpts returns cache key options for region collection.
// The annotation hash covers marker placement, so edits to comments
// invalidate cached regions.
func (o *Options) RegionKeyOpts() cache.RegionKeyOpts {
	var annotationsHash string
	if o.Annotations != nil {
		if data, err := annotate.Marshal(o.Annotations); err == nil {
			annotationsHash = cache.Hash(data)
		}
	}
	return cache.RegionKeyOpts{
		Start:           o.Start,
		Marker:          o.Marker,
		AnnotationsHash: annotationsHash,
	}
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format:   format,
		Detailed: o.Detailed,
	}
}
