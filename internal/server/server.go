// Package server exposes the operation tree over HTTP: listing operations,
// running them non-interactively one at a time, and reloading the tree.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyaneshwarpardhi/omtree/internal/engine"
	"github.com/gyaneshwarpardhi/omtree/internal/model"
)

const (
	defaultQueueDepth = 16
	defaultRunTimeout = 5 * time.Minute
)

// RunFunc runs op non-interactively with the given command-line style
// parameters.
type RunFunc func(ctx context.Context, op *model.Operation, args map[string]string) *engine.RunResult

// ReloadFunc re-reads and validates the tree.
type ReloadFunc func() (*model.Tree, error)

// Options tune the server.
type Options struct {
	// QueueDepth bounds how many runs may wait for the single worker.
	QueueDepth int
	// RunTimeout bounds how long a request waits for its run.
	RunTimeout time.Duration
}

// Server holds the current tree and serializes operation runs.
type Server struct {
	tree    atomic.Pointer[model.Tree]
	run     RunFunc
	reload  ReloadFunc
	opts    Options
	pool    *workerPool[*runRequest, *engine.RunResult]
	mux     *http.ServeMux
	handler http.Handler
}

type runRequest struct {
	op   *model.Operation
	args map[string]string
}

// New creates a Server and starts its worker. Cancel ctx or call Shutdown to
// stop it.
func New(ctx context.Context, tree *model.Tree, run RunFunc, reload ReloadFunc, opts Options) *Server {
	if opts.QueueDepth <= 0 {
		opts.QueueDepth = defaultQueueDepth
	}
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = defaultRunTimeout
	}
	s := &Server{run: run, reload: reload, opts: opts, mux: http.NewServeMux()}
	s.tree.Store(tree)
	s.pool = newWorkerPool(ctx, 1, opts.QueueDepth, func(ctx context.Context, r *runRequest) *engine.RunResult {
		return s.run(ctx, r.op, r.args)
	})

	s.mux.HandleFunc("GET /healthz", s.healthz)
	s.mux.Handle("GET /metrics", promhttp.Handler())
	s.mux.HandleFunc("GET /v1/operations", s.listOperations)
	s.mux.HandleFunc("POST /v1/operations/{id}/run", s.runOperation)
	s.mux.HandleFunc("POST /v1/tree/reload", s.reloadTree)
	s.handler = loggingMiddleware(s.mux)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.handler.ServeHTTP(w, r) }

// SwapTree atomically replaces the tree. Runs already started keep theirs.
func (s *Server) SwapTree(t *model.Tree) { s.tree.Store(t) }

// Tree returns the current tree.
func (s *Server) Tree() *model.Tree { return s.tree.Load() }

// Shutdown waits for the queued runs to finish.
func (s *Server) Shutdown() { s.pool.Drain() }

// GET /healthz
func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"queue_len":  s.pool.QueueLen(),
		"queue_cap":  s.pool.QueueCap(),
		"operations": countOperations(s.Tree()),
	})
}

type operationSummary struct {
	OperationID string `json:"operation_id"`
	MenuTitle   string `json:"menu_title"`
	HelpText    string `json:"help_text,omitempty"`
	Parent      string `json:"parent,omitempty"`
	Depth       int    `json:"depth"`
	Submenu     bool   `json:"submenu"`
}

// GET /v1/operations
func (s *Server) listOperations(w http.ResponseWriter, r *http.Request) {
	tree := s.Tree()
	var out []operationSummary
	var parents []string
	_ = tree.Walk(func(op *model.Operation, depth int) error {
		parents = parents[:depth]
		parent := ""
		if depth > 0 {
			parent = parents[depth-1]
		}
		out = append(out, operationSummary{
			OperationID: op.OperationID,
			MenuTitle:   op.MenuTitle,
			HelpText:    op.HelpText,
			Parent:      parent,
			Depth:       depth,
			Submenu:     op.IsSubmenu(),
		})
		parents = append(parents, op.OperationID)
		return nil
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"name":       tree.Name,
		"operations": out,
	})
}

type runBody struct {
	Parameters map[string]string `json:"parameters"`
}

type runResponse struct {
	Success bool `json:"success"`
	*engine.RunResult
}

// POST /v1/operations/{id}/run
func (s *Server) runOperation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	op, ok := s.Tree().Find(id)
	if !ok {
		writeError(w, http.StatusNotFound, id, fmt.Sprintf("operation %s not found", id))
		return
	}
	if op.IsSubmenu() {
		writeError(w, http.StatusUnprocessableEntity, id, fmt.Sprintf("operation %s is a submenu and cannot be run", id))
		return
	}

	var body runBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, id, fmt.Sprintf("invalid JSON: %s", err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.RunTimeout)
	defer cancel()

	resultC := make(chan *engine.RunResult, 1)
	if !s.pool.Submit(ctx, &runRequest{op: op, args: body.Parameters}, resultC) {
		writeError(w, http.StatusTooManyRequests, id, fmt.Sprintf("run queue full (capacity %d)", s.pool.QueueCap()))
		return
	}

	select {
	case res := <-resultC:
		writeJSON(w, http.StatusOK, runResponse{Success: res.Success(), RunResult: res})
	case <-ctx.Done():
		writeError(w, http.StatusGatewayTimeout, id, fmt.Sprintf("operation %s did not finish: %v", id, ctx.Err()))
	}
}

// POST /v1/tree/reload
func (s *Server) reloadTree(w http.ResponseWriter, r *http.Request) {
	tree, err := s.reload()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "", err.Error())
		return
	}
	s.SwapTree(tree)
	writeJSON(w, http.StatusOK, map[string]any{
		"reloaded":         true,
		"operations_count": countOperations(tree),
	})
}

func countOperations(t *model.Tree) int {
	n := 0
	_ = t.Walk(func(*model.Operation, int) error {
		n++
		return nil
	})
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// apiError is the body of every non-2xx response. RequestID repeats the
// X-Request-ID header so a failed run can be found in the logs.
type apiError struct {
	Error       string `json:"error"`
	OperationID string `json:"operation_id,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
}

func writeError(w http.ResponseWriter, status int, operationID, msg string) {
	writeJSON(w, status, apiError{
		Error:       msg,
		OperationID: operationID,
		RequestID:   w.Header().Get(requestIDHeader),
	})
}
