// Package engine orchestrates classification and validation over a batch of
// transactions. Per-record work is independent, so both passes fan out over a
// bounded worker pool; results are collected in input order so reports are
// reproducible.
package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/siftd/sift/internal/common"
	"github.com/siftd/sift/internal/match"
	"github.com/siftd/sift/internal/model"
	"github.com/siftd/sift/internal/validate"
)

// Result pairs a transaction with its classification and validation flags.
type Result struct {
	Transaction    model.Transaction
	Classification model.ClassificationResult
	Flags          []model.ValidationFlag
}

// Summary aggregates one processed batch for reporting.
type Summary struct {
	ByCategory        map[string]int
	ByMethod          map[model.MatchMethod]int
	FlagsByCode       map[model.ReasonCode]int
	Total             int
	Categorized       int
	Uncategorized     int
	Errors            int
	Warnings          int
	AverageConfidence float64
}

// Config holds engine tuning options.
type Config struct {
	// OnProgress, when set, is called after each record finishes a pass.
	OnProgress func(done, total int)
	// Workers bounds the concurrent per-record goroutines. Zero means 4.
	Workers int
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{Workers: 4}
}

// Engine runs the classify-then-validate pipeline over batches.
type Engine struct {
	matcher    *match.Matcher
	pipeline   *validate.Pipeline
	onProgress func(done, total int)
	workers    int
}

// New creates an engine with default configuration.
func New(matcher *match.Matcher, pipeline *validate.Pipeline) *Engine {
	return NewWithConfig(matcher, pipeline, DefaultConfig())
}

// NewWithConfig creates an engine with custom configuration.
func NewWithConfig(matcher *match.Matcher, pipeline *validate.Pipeline, cfg Config) *Engine {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	return &Engine{
		matcher:    matcher,
		pipeline:   pipeline,
		workers:    workers,
		onProgress: cfg.OnProgress,
	}
}

// Process classifies and validates a batch. Classification runs first for the
// whole batch, then the batch aggregates are computed, then validation runs;
// the aggregates are read-only input to the heuristic tier. No single bad
// record aborts the batch.
func (e *Engine) Process(ctx context.Context, txns []model.Transaction) ([]Result, Summary, error) {
	if len(txns) == 0 {
		return nil, Summary{}, common.ErrNoTransactions
	}

	classifications := make([]model.ClassificationResult, len(txns))
	err := e.forEach(ctx, len(txns), func(i int) {
		classifications[i] = e.matcher.Classify(txns[i])
	})
	if err != nil {
		return nil, Summary{}, err
	}

	stats := validate.ComputeBatchStats(txns, classifications)

	flags := make([][]model.ValidationFlag, len(txns))
	err = e.forEach(ctx, len(txns), func(i int) {
		flags[i] = e.pipeline.Validate(txns[i], classifications[i], stats)
	})
	if err != nil {
		return nil, Summary{}, err
	}

	results := make([]Result, len(txns))
	for i := range txns {
		results[i] = Result{
			Transaction:    txns[i],
			Classification: classifications[i],
			Flags:          flags[i],
		}
	}
	return results, summarize(results), nil
}

// forEach runs fn over every index using the worker pool, stopping early on
// context cancellation.
func (e *Engine) forEach(ctx context.Context, n int, fn func(i int)) error {
	indexes := make(chan int)
	var done atomic.Int64
	var wg sync.WaitGroup

	for w := 0; w < e.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				fn(i)
				if e.onProgress != nil {
					e.onProgress(int(done.Add(1)), n)
				}
			}
		}()
	}

	var cancelled error
feed:
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			cancelled = err
			break
		}
		select {
		case <-ctx.Done():
			cancelled = ctx.Err()
			break feed
		case indexes <- i:
		}
	}
	close(indexes)
	wg.Wait()

	return cancelled
}

func summarize(results []Result) Summary {
	summary := Summary{
		ByCategory:  make(map[string]int),
		ByMethod:    make(map[model.MatchMethod]int),
		FlagsByCode: make(map[model.ReasonCode]int),
		Total:       len(results),
	}

	confidence := 0
	for _, r := range results {
		if r.Classification.Categorized() {
			summary.Categorized++
		} else {
			summary.Uncategorized++
		}
		summary.ByCategory[r.Classification.Category]++
		summary.ByMethod[r.Classification.Method]++
		confidence += r.Classification.Confidence

		for _, flag := range r.Flags {
			summary.FlagsByCode[flag.Code]++
			switch flag.Severity {
			case model.SeverityError:
				summary.Errors++
			case model.SeverityWarning:
				summary.Warnings++
			}
		}
	}
	if summary.Total > 0 {
		summary.AverageConfidence = float64(confidence) / float64(summary.Total)
	}
	return summary
}
