package cli

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/matzehuels/mlateration/pkg/buildinfo"
	"github.com/matzehuels/mlateration/pkg/cache"
	"github.com/matzehuels/mlateration/pkg/errors"
	"github.com/matzehuels/mlateration/pkg/graph"
	"github.com/matzehuels/mlateration/pkg/observability"
	"github.com/matzehuels/mlateration/pkg/pipeline"
)

const (
	// apiKeyPrefix scopes the server's cache keys away from CLI entries.
	apiKeyPrefix = "api:"

	maxRequestBytes = 8 << 20
	requestTimeout  = 2 * time.Minute
	shutdownTimeout = 10 * time.Second

	headerRunID = "X-Run-ID"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	listen  string
	cache   string
	noCache bool
}

func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the solver over HTTP",
		Long: `Serve exposes the solve pipeline as a JSON API:

  POST /v1/solve          {"graph": {...}, "options": {...}} -> solution
  GET  /v1/graphs/{hash}  canonical graph document of an earlier solve
  GET  /healthz
  GET  /version`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.listen == "" {
				opts.listen = c.Config.Listen
			}
			if opts.listen == "" {
				opts.listen = defaultListen
			}
			return c.runServe(cmd.Context(), &opts)
		},
	}

	cmd.Flags().StringVar(&opts.listen, "listen", "", "listen address (default "+defaultListen+")")
	cmd.Flags().StringVar(&opts.cache, "cache", "", "cache backend: file (default), none, redis://..., mongodb://...")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts *serveOpts) error {
	logger := loggerFromContext(ctx)

	store, err := c.openCache(ctx, opts.cache, opts.noCache)
	if err != nil {
		return err
	}
	runner := pipeline.NewRunner(store, cache.NewScopedKeyer(nil, apiKeyPrefix), logger)
	runner.SolutionTTL = c.Config.CacheTTL.Duration
	defer runner.Close()

	srv := &http.Server{
		Addr:              opts.listen,
		Handler:           newRouter(newAPI(runner, c.Config.PipelineOptions(), logger)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	printSuccess("Listening on %s", opts.listen)
	printDetail("POST /v1/solve · GET /v1/graphs/{hash} · GET /healthz · GET /version")

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(errors.ErrCodeNetwork, err, "listen on %s", opts.listen)
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(errors.ErrCodeTimeout, err, "shutdown")
	}
	return nil
}

// =============================================================================
// API - HTTP Handlers
// =============================================================================

// api serves the pipeline over HTTP. Request options are layered over
// defaults, which come from the config file.
type api struct {
	runner   *pipeline.Runner
	defaults pipeline.Options
	logger   *log.Logger
}

func newAPI(runner *pipeline.Runner, defaults pipeline.Options, logger *log.Logger) *api {
	return &api{runner: runner, defaults: defaults, logger: logger}
}

// solveRequest is the body of POST /v1/solve.
type solveRequest struct {
	Graph   graph.Graph      `json:"graph"`
	Options pipeline.Options `json:"options"`
}

// solveResponse is the body of a successful POST /v1/solve.
type solveResponse struct {
	RunID     string          `json:"run_id"`
	GraphHash string          `json:"graph_hash"`
	CacheHit  bool            `json:"cache_hit"`
	Solution  *graph.Solution `json:"solution"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

func newRouter(a *api) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(observe)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, buildinfo.Get())
	})
	r.Route("/v1", func(r chi.Router) {
		r.Post("/solve", a.solve)
		r.Get("/graphs/{hash}", a.graph)
	})
	return r
}

func (a *api) solve(w http.ResponseWriter, r *http.Request) {
	var req solveRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		a.fail(w, r, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode request"))
		return
	}

	opts := mergeOptions(a.defaults, req.Options)
	opts.Logger = a.logger
	result, err := a.runner.Execute(r.Context(), &req.Graph, opts)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	w.Header().Set(headerRunID, result.RunID)
	writeJSON(w, http.StatusOK, solveResponse{
		RunID:     result.RunID,
		GraphHash: result.GraphHash,
		CacheHit:  result.CacheHit,
		Solution:  result.Solution,
	})
}

func (a *api) graph(w http.ResponseWriter, r *http.Request) {
	doc, err := a.runner.Graph(r.Context(), chi.URLParam(r, "hash"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (a *api) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		a.logger.Error("request failed", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "err", err)
	}
	observability.HTTP().OnError(r.Context(), r.Method, r.URL.Path, err)

	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: errors.UserMessage(err)}})
}

// statusFor maps error codes to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrCodeNotFound):
		return http.StatusNotFound
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// mergeOptions layers the non-zero fields of req over base.
func mergeOptions(base, req pipeline.Options) pipeline.Options {
	if req.LearningRate != 0 {
		base.LearningRate = req.LearningRate
	}
	if req.Iterations != 0 {
		base.Iterations = req.Iterations
	}
	if req.MaxRounds != 0 {
		base.MaxRounds = req.MaxRounds
	}
	if req.Workers != 0 {
		base.Workers = req.Workers
	}
	base.Refresh = req.Refresh
	return base
}

// observe reports every request to the HTTP hooks.
func observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hooks := observability.HTTP()
		hooks.OnRequest(r.Context(), r.Method, r.URL.Path)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		hooks.OnResponse(r.Context(), r.Method, r.URL.Path, status, time.Since(start))
	})
}

// writeJSON encodes v before committing the status, so a value that cannot
// be encoded turns into a 500 instead of an empty 200.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		buf.Reset()
		status = http.StatusInternalServerError
		_ = json.NewEncoder(&buf).Encode(errorBody{Error: errorDetail{
			Code:    errors.ErrCodeInternal,
			Message: "encode response: " + err.Error(),
		}})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
