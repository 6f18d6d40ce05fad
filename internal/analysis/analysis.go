// Package analysis wires indexing, graph construction, and optional
// summarization into the single pipeline both the CLI and the HTTP
// server run.
package analysis

import (
	"context"
	"fmt"
	"os"

	"github.com/SPTS7/CodeGrapher/internal/callgraph"
	"github.com/SPTS7/CodeGrapher/internal/config"
	"github.com/SPTS7/CodeGrapher/internal/index"
	_ "github.com/SPTS7/CodeGrapher/internal/llm" // register providers
	"github.com/SPTS7/CodeGrapher/internal/summarize"
	"github.com/SPTS7/CodeGrapher/pkg/llm"
)

// Runner executes analysis runs for one configuration.
type Runner struct {
	cfg *config.Config
	log func(format string, args ...any)

	// newClient is swappable for tests.
	newClient func(cfg llm.Config) (llm.Client, error)
}

// NewRunner creates a Runner. logger may be nil for stderr.
func NewRunner(cfg *config.Config, logger func(format string, args ...any)) *Runner {
	if logger == nil {
		logger = func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}
	}
	return &Runner{cfg: cfg, log: logger, newClient: llm.NewClient}
}

// Run indexes the project, builds the call graph, and attaches
// summaries when an API key is configured. Summarization problems
// degrade to warnings; only indexing and entry-point errors are fatal.
func (r *Runner) Run(ctx context.Context) (*callgraph.Graph, error) {
	cfg := r.cfg

	r.log("Indexing %s", cfg.Project.Root)
	indexer := index.NewIndexer(index.IndexerConfig{
		Root:            cfg.Project.Root,
		ExcludePatterns: cfg.Project.Exclude,
		Logger:          r.log,
	})
	table, err := indexer.Index(ctx)
	if err != nil {
		return nil, err
	}

	builder := callgraph.NewBuilder(table, callgraph.BuildConfig{
		MaxDepth: cfg.Analysis.MaxDepth,
		MaxNodes: cfg.Analysis.MaxNodes,
		Logger:   r.log,
	})
	graph, err := builder.Build(ctx, cfg.Project.EntryFile, cfg.Project.EntryFunc)
	if err != nil {
		return nil, err
	}

	if cfg.Summaries.APIKey == "" {
		r.log("No API key configured, skipping summaries")
		return graph, nil
	}

	r.summarize(ctx, graph)
	return graph, nil
}

func (r *Runner) summarize(ctx context.Context, graph *callgraph.Graph) {
	cfg := r.cfg

	client, err := r.newClient(llm.Config{
		Provider: cfg.Summaries.Provider,
		Model:    cfg.Summaries.Model,
		APIKey:   cfg.Summaries.APIKey,
	})
	if err != nil {
		graph.Warnings = append(graph.Warnings, fmt.Sprintf("summaries disabled: %v", err))
		return
	}
	defer client.Close()

	cache, err := summarize.OpenCache(cfg.Summaries.CacheDir)
	if err != nil {
		// Memory-only cache still works.
		graph.Warnings = append(graph.Warnings, fmt.Sprintf("summary cache degraded: %v", err))
	}
	defer cache.Close()

	s := summarize.New(summarize.Config{
		Client:      client,
		Cache:       cache,
		Concurrency: cfg.Summaries.Concurrency,
		Logger:      r.log,
	})
	if err := s.Summarize(ctx, graph); err != nil {
		graph.Warnings = append(graph.Warnings, fmt.Sprintf("summarization: %v", err))
	}
}
