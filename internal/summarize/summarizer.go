// Package summarize attaches one-sentence AI summaries to call-graph
// nodes. It runs strictly after the graph is built and only ever fills
// the summary fields; graph shape is never touched.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/SPTS7/CodeGrapher/internal/callgraph"
	"github.com/SPTS7/CodeGrapher/pkg/llm"
)

// ErrSummaryUnavailable is returned when summarization is requested but
// no client is configured. Callers treat it as "run without summaries".
var ErrSummaryUnavailable = errors.New("no summarization client configured")

const (
	defaultConcurrency = 4
	defaultMaxRetries  = 3
	defaultRetryDelay  = 500 * time.Millisecond

	systemPrompt  = "You are a code analysis assistant. Answer with the summary only."
	promptPattern = "Provide a concise, one-sentence summary of the following Python function, starting with a verb:\n\n```python\n%s\n```"
)

// Config holds configuration for a Summarizer.
type Config struct {
	Client      llm.Client
	Cache       *Cache // optional
	Concurrency int    // parallel requests, default 4
	MaxRetries  int    // attempts per node, default 3
	RetryDelay  time.Duration
	Logger      func(format string, args ...any)
}

// Summarizer fans summary requests out over a bounded worker group.
type Summarizer struct {
	client      llm.Client
	cache       *Cache
	concurrency int
	maxRetries  int
	retryDelay  time.Duration
	log         func(format string, args ...any)
}

// New creates a Summarizer.
func New(cfg Config) *Summarizer {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}
	logFn := cfg.Logger
	if logFn == nil {
		logFn = func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}
	}
	return &Summarizer{
		client:      cfg.Client,
		cache:       cfg.Cache,
		concurrency: concurrency,
		maxRetries:  maxRetries,
		retryDelay:  retryDelay,
		log:         logFn,
	}
}

// Summarize fills Node.Summary for every real node carrying source.
// Individual failures mark the node and the run keeps going; a canceled
// context stops scheduling and the graph keeps whatever summaries
// finished. The node slice itself is never modified.
func (s *Summarizer) Summarize(ctx context.Context, graph *callgraph.Graph) error {
	if s.client == nil {
		return ErrSummaryUnavailable
	}

	var (
		mu       sync.Mutex
		warnings []string
	)

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(s.concurrency)

	for _, node := range graph.Nodes {
		if node.Truncated || node.Source == "" {
			continue
		}
		node := node
		group.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			key := Key(node.Source, s.client.Model())
			if s.cache != nil {
				if summary, ok := s.cache.Get(key); ok {
					node.Summary = summary
					return nil
				}
			}

			summary, err := s.summarizeOne(gctx, node.Source)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				node.SummaryError = err.Error()
				mu.Lock()
				warnings = append(warnings, fmt.Sprintf("summarizing %s: %v", node.QualifiedName, err))
				mu.Unlock()
				return nil
			}

			node.Summary = summary
			if s.cache != nil {
				s.cache.Put(key, summary)
			}
			return nil
		})
	}

	err := group.Wait()
	graph.Warnings = append(graph.Warnings, warnings...)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

// summarizeOne makes the model call for one node, retrying transient
// failures with exponential backoff.
func (s *Summarizer) summarizeOne(ctx context.Context, source string) (string, error) {
	messages := []llm.Message{{
		Role:    llm.RoleUser,
		Content: fmt.Sprintf(promptPattern, source),
	}}

	var lastErr error
	delay := s.retryDelay
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		resp, err := s.client.Chat(ctx, systemPrompt, messages)
		if err == nil {
			return cleanSummary(resp.Content), nil
		}
		lastErr = err
		if !isTransient(err) {
			break
		}
		if attempt == s.maxRetries {
			break
		}
		s.log("transient summary failure (attempt %d/%d): %v", attempt, s.maxRetries, err)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return "", lastErr
}

// isTransient reports whether an API error is worth retrying. Provider
// SDKs wrap status codes into opaque errors, so this matches on text.
func isTransient(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"429", "rate limit", "quota", "503", "unavailable", "timeout", "deadline", "overloaded"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// cleanSummary strips markdown emphasis and surrounding whitespace from
// a model response.
func cleanSummary(raw string) string {
	s := strings.ReplaceAll(raw, "*", "")
	s = strings.ReplaceAll(s, "`", "")
	return strings.TrimSpace(s)
}
