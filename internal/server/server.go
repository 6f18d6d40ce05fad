// Package server exposes analysis over HTTP. The only endpoint is
// POST /analyze; rendering happens entirely on the client side, the
// server hands over serializable diagram data and run logs.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/SPTS7/CodeGrapher/internal/analysis"
	"github.com/SPTS7/CodeGrapher/internal/callgraph"
	"github.com/SPTS7/CodeGrapher/internal/config"
)

// analyzeRequest is the POST /analyze body.
type analyzeRequest struct {
	ProjectDir string `json:"projectDir"`
	EntryFile  string `json:"entryFile"`
	EntryFunc  string `json:"entryFunc"`
	APIKey     string `json:"apiKey"`
}

// analyzeResponse is the POST /analyze reply.
type analyzeResponse struct {
	Logs        []string               `json:"logs"`
	DiagramData *callgraph.DiagramData `json:"diagramData"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server handles analysis requests. Request fields override the base
// configuration per run; the base config supplies caps, excludes, and
// summarization settings.
type Server struct {
	base *config.Config
	log  func(format string, args ...any)

	// mu serializes analysis runs. Whole-tree analysis is memory-heavy
	// and the desktop-style frontend issues one request at a time.
	mu sync.Mutex
}

// New creates a Server over the given base configuration.
func New(base *config.Config, logger func(format string, args ...any)) *Server {
	if logger == nil {
		logger = func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}
	}
	return &Server{base: base, log: logger}
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/analyze", s.handleAnalyze)
	return mux
}

// ListenAndServe runs the server until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.base.Server.Listen,
		Handler: s.Handler(),
	}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()
	s.log("Listening on %s", s.base.Server.Listen)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "POST only"})
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if req.ProjectDir == "" || req.EntryFile == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "projectDir and entryFile are required"})
		return
	}

	cfg := *s.base
	cfg.Project.Root = req.ProjectDir
	cfg.Project.EntryFile = req.EntryFile
	cfg.Project.EntryFunc = req.EntryFunc
	if req.APIKey != "" {
		cfg.Summaries.APIKey = req.APIKey
	}

	var logs []string
	logger := func(format string, args ...any) {
		line := fmt.Sprintf(format, args...)
		logs = append(logs, line)
		s.log("%s", line)
	}

	s.mu.Lock()
	graph, err := analysis.NewRunner(&cfg, logger).Run(r.Context())
	s.mu.Unlock()

	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, callgraph.ErrEntryFileNotFound) ||
			errors.Is(err, callgraph.ErrEntryFuncNotFound) ||
			isConfigError(err) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	logs = append(logs, graph.Warnings...)
	writeJSON(w, http.StatusOK, analyzeResponse{
		Logs:        logs,
		DiagramData: callgraph.Diagram(graph),
	})
}

// isConfigError covers user mistakes that surface before traversal,
// like a project directory that does not exist.
func isConfigError(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
