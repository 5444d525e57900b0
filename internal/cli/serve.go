package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/cfgroup/cfgroup/pkg/annotate"
	"github.com/cfgroup/cfgroup/pkg/cache"
	apperrors "github.com/cfgroup/cfgroup/pkg/errors"
	"github.com/cfgroup/cfgroup/pkg/flowgraph"
	"github.com/cfgroup/cfgroup/pkg/pipeline"
	"github.com/cfgroup/cfgroup/pkg/region"
)

// serveCommand creates the serve command for running the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr          string
		redisAddr     string
		redisPassword string
		redisDB       int
		noCache       bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the analysis HTTP API",
		Long: `Run the analysis HTTP API.

The server exposes the pipeline over JSON endpoints:

  POST /v1/solve    Compute dominator sets
  POST /v1/region   Collect a dominated region
  POST /v1/group    Collapse a region into a labeled group
  GET  /healthz     Liveness check

With --redis the server shares its result cache through Redis, so multiple
instances behind a load balancer stay warm together. Without it, results are
cached in the local cache directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			srvCache, err := newServeCache(cmd.Context(), noCache, redisAddr, redisPassword, redisDB)
			if err != nil {
				return err
			}
			runner := pipeline.NewRunner(srvCache, nil, c.Logger)
			defer runner.Close()
			return c.serve(cmd.Context(), addr, runner)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&redisAddr, "redis", "", "Redis address for a shared cache (host:port)")
	cmd.Flags().StringVar(&redisPassword, "redis-password", "", "Redis password")
	cmd.Flags().IntVar(&redisDB, "redis-db", 0, "Redis database number")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

// newServeCache picks the cache backend for the server: Redis when an
// address is given, the local file cache otherwise.
func newServeCache(ctx context.Context, noCache bool, redisAddr, redisPassword string, redisDB int) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	if redisAddr != "" {
		rc, err := cache.NewRedisCache(ctx, redisAddr, redisPassword, redisDB)
		if err != nil {
			return nil, fmt.Errorf("connect redis %s: %w", redisAddr, err)
		}
		return rc, nil
	}
	return newCache(false)
}

// serve runs the HTTP server until the context is cancelled.
func (c *CLI) serve(ctx context.Context, addr string, runner *pipeline.Runner) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           c.newRouter(runner),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.Logger.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c.Logger.Debug("shutting down server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	}
}

// newRouter builds the chi router with all API routes registered.
func (c *CLI) newRouter(runner *pipeline.Runner) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		c.logRequests,
		middleware.Recoverer,
	)

	r.Get("/healthz", handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/solve", handleSolve(runner))
		r.Post("/region", handleRegion(runner))
		r.Post("/group", handleGroup(runner))
	})

	return r
}

// logRequests logs each request with its chi request id and attaches the
// CLI logger to the request context for handlers.
func (c *CLI) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		logger := c.Logger.With("request_id", middleware.GetReqID(req.Context()))
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)

		next.ServeHTTP(ww, req.WithContext(withLogger(req.Context(), logger)))

		logger.Info("request",
			"method", req.Method,
			"path", req.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).Round(time.Microsecond))
	})
}

// =============================================================================
// Request / Response Types
// =============================================================================

// solveRequest is the body for POST /v1/solve.
type solveRequest struct {
	Graph   flowgraph.Document `json:"graph"`
	Refresh bool               `json:"refresh,omitempty"`
}

// solveResponse is the reply for POST /v1/solve.
type solveResponse struct {
	GraphHash  string  `json:"graph_hash"`
	Passes     int     `json:"passes"`
	Dominators [][]int `json:"dominators"`
	Cached     bool    `json:"cached"`
}

// regionRequest is the body for POST /v1/region.
type regionRequest struct {
	Graph       flowgraph.Document `json:"graph"`
	Start       int                `json:"start"`
	Marker      string             `json:"marker,omitempty"`
	Annotations map[int]string     `json:"annotations,omitempty"`
	Refresh     bool               `json:"refresh,omitempty"`
}

// regionResponse is the reply for POST /v1/region.
type regionResponse struct {
	Region []int `json:"region"`
	Cached bool  `json:"cached"`
}

// groupRequest is the body for POST /v1/group.
type groupRequest struct {
	Graph       flowgraph.Document `json:"graph"`
	Start       int                `json:"start"`
	Label       string             `json:"label,omitempty"`
	Marker      string             `json:"marker,omitempty"`
	Annotations map[int]string     `json:"annotations,omitempty"`
	NoCollapse  bool               `json:"no_collapse,omitempty"`
	Refresh     bool               `json:"refresh,omitempty"`
}

// groupResponse is the reply for POST /v1/group.
type groupResponse struct {
	RunID     string              `json:"run_id"`
	GraphHash string              `json:"graph_hash"`
	Region    []int               `json:"region"`
	GroupNode int                 `json:"group_node"`
	Grouped   *flowgraph.Document `json:"grouped,omitempty"`
	DOT       string              `json:"dot"`
	Cached    bool                `json:"cached"`
}

// errorResponse is the JSON error envelope for all endpoints.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// =============================================================================
// Handlers
// =============================================================================

// handleHealth answers liveness checks.
func handleHealth(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSolve computes dominator sets for a posted graph.
func handleSolve(runner *pipeline.Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body solveRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, apperrors.New(apperrors.ErrCodeInvalidFormat, "invalid request body: %v", err))
			return
		}
		g, err := flowgraph.FromDocument(body.Graph)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, apperrors.Wrap(apperrors.ErrCodeInvalidGraph, err, "invalid graph"))
			return
		}

		opts := pipeline.Options{Graph: g, Refresh: body.Refresh, Logger: loggerFromContext(req.Context())}
		doms, hit, err := runner.SolveWithCacheInfo(req.Context(), opts)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, apperrors.Wrap(apperrors.ErrCodeInvalidGraph, err, "solve failed"))
			return
		}

		graphData, err := flowgraph.Marshal(g)
		if err != nil {
			writeError(w, http.StatusInternalServerError, apperrors.Wrap(apperrors.ErrCodeInternal, err, "serialize graph"))
			return
		}

		resp := solveResponse{
			GraphHash:  cache.Hash(graphData),
			Passes:     doms.Passes(),
			Dominators: make([][]int, g.NodeCount()),
			Cached:     hit,
		}
		for v := 0; v < g.NodeCount(); v++ {
			resp.Dominators[v] = doms.Dominators(v)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// handleRegion collects the dominated region for a posted graph and start node.
func handleRegion(runner *pipeline.Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body regionRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, apperrors.New(apperrors.ErrCodeInvalidFormat, "invalid request body: %v", err))
			return
		}
		g, err := flowgraph.FromDocument(body.Graph)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, apperrors.Wrap(apperrors.ErrCodeInvalidGraph, err, "invalid graph"))
			return
		}
		ann, err := annotationsFromMap(body.Annotations)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, apperrors.Wrap(apperrors.ErrCodeInvalidNode, err, "invalid annotations"))
			return
		}

		opts := pipeline.Options{
			Graph:       g,
			Start:       body.Start,
			Marker:      body.Marker,
			Annotations: ann,
			Refresh:     body.Refresh,
			Logger:      loggerFromContext(req.Context()),
		}

		doms, err := runner.Solve(req.Context(), opts)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, apperrors.Wrap(apperrors.ErrCodeInvalidGraph, err, "solve failed"))
			return
		}
		members, hit, err := runner.CollectWithCacheInfo(req.Context(), doms, opts)
		if err != nil {
			writeAnalysisError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, regionResponse{Region: members, Cached: hit})
	}
}

// handleGroup runs the full pipeline and returns the grouped graph.
func handleGroup(runner *pipeline.Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body groupRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, apperrors.New(apperrors.ErrCodeInvalidFormat, "invalid request body: %v", err))
			return
		}
		g, err := flowgraph.FromDocument(body.Graph)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, apperrors.Wrap(apperrors.ErrCodeInvalidGraph, err, "invalid graph"))
			return
		}
		ann, err := annotationsFromMap(body.Annotations)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, apperrors.Wrap(apperrors.ErrCodeInvalidNode, err, "invalid annotations"))
			return
		}

		opts := pipeline.Options{
			Graph:       g,
			Start:       body.Start,
			Marker:      body.Marker,
			Label:       body.Label,
			NoCollapse:  body.NoCollapse,
			Formats:     []string{pipeline.FormatDOT},
			Annotations: ann,
			Refresh:     body.Refresh,
			Logger:      loggerFromContext(req.Context()),
		}

		result, err := runner.Execute(req.Context(), opts)
		if err != nil {
			writeAnalysisError(w, err)
			return
		}

		resp := groupResponse{
			RunID:     result.RunID,
			GraphHash: result.GraphHash,
			Region:    result.Region,
			GroupNode: result.GroupNode,
			DOT:       string(result.Artifacts[pipeline.FormatDOT]),
			Cached:    result.CacheInfo.SolveHit && result.CacheInfo.CollectHit,
		}
		if result.Grouped != nil {
			doc := flowgraph.ToDocument(result.Grouped)
			resp.Grouped = &doc
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// =============================================================================
// Helpers
// =============================================================================

// annotationsFromMap builds an annotation store from the request's
// id-to-comment map.
func annotationsFromMap(m map[int]string) (*annotate.Annotations, error) {
	a := annotate.New()
	for id, comment := range m {
		if err := a.Set(id, comment); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// writeAnalysisError maps pipeline errors to status codes and error codes.
func writeAnalysisError(w http.ResponseWriter, err error) {
	// Validation errors already carry a code; pass it through.
	if code := apperrors.GetCode(err); code != "" {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Code:    string(code),
			Message: apperrors.UserMessage(err),
		})
		return
	}
	switch {
	case errors.Is(err, region.ErrBoundaryStart):
		writeError(w, http.StatusUnprocessableEntity,
			apperrors.Wrap(apperrors.ErrCodeBoundaryStart, err, "start node carries the boundary marker"))
	case errors.Is(err, region.ErrStartOutOfRange):
		writeError(w, http.StatusUnprocessableEntity,
			apperrors.Wrap(apperrors.ErrCodeInvalidNode, err, "start node out of range"))
	default:
		writeError(w, http.StatusUnprocessableEntity,
			apperrors.Wrap(apperrors.ErrCodeInvalidGraph, err, "analysis failed"))
	}
}

// writeError writes a coded error as the JSON error envelope.
func writeError(w http.ResponseWriter, status int, err *apperrors.Error) {
	writeJSON(w, status, errorResponse{
		Code:    string(err.Code),
		Message: apperrors.UserMessage(err),
	})
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
