package snapfit

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// BatchItem is one source to compress in a batch.
type BatchItem struct {
	// Source provides the input file.
	Source SourceProvider
	// Target overrides BatchOptions.Target when non-nil.
	Target *Target
}

// BatchResult holds the outcome for a single item in a batch.
type BatchResult struct {
	// Item is the original batch item.
	Item BatchItem
	// Result is the compression result (nil if Err is non-nil).
	Result *Result
	// Err is any error that occurred.
	Err error
	// Index is the position in the original input slice.
	Index int
}

// BatchOptions configures batch compression.
type BatchOptions struct {
	// Workers is the number of concurrent runs. 0 = runtime.NumCPU().
	Workers int
	// Target is used for any item without its own.
	Target Target
	// OnItem is called after each item completes.
	OnItem func(completed, total int)
}

// CompressBatch compresses independent sources concurrently with c.
// Results are returned in input order. Cancelling ctx stops new items
// from starting; runs already in flight finish.
func (c *Compressor) CompressBatch(ctx context.Context, items []BatchItem, opts BatchOptions) []BatchResult {
	if len(items) == 0 {
		return nil
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make([]BatchResult, len(items))
	var (
		mu        sync.Mutex
		completed int
	)

	var g errgroup.Group
	g.SetLimit(workers)
	for i, item := range items {
		g.Go(func() error {
			results[i] = c.runItem(ctx, i, item, opts.Target)
			if opts.OnItem != nil {
				mu.Lock()
				completed++
				n := completed
				mu.Unlock()
				opts.OnItem(n, len(items))
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (c *Compressor) runItem(ctx context.Context, idx int, item BatchItem, target Target) BatchResult {
	br := BatchResult{Item: item, Index: idx}
	if err := ctx.Err(); err != nil {
		br.Err = err
		return br
	}
	if item.Target != nil {
		target = *item.Target
	}

	src, err := item.Source.Source(ctx)
	if err != nil {
		br.Err = err
		return br
	}
	br.Result, br.Err = c.Compress(src, target)
	return br
}

// BatchSummary provides aggregate statistics for a batch.
type BatchSummary struct {
	Total     int
	Succeeded int
	Failed    int
	// Fit counts results known to be within their byte budget.
	Fit        int
	TotalSaved int64
}

// Summarize computes aggregate statistics from batch results.
func Summarize(results []BatchResult) BatchSummary {
	s := BatchSummary{Total: len(results)}
	for _, r := range results {
		if r.Err != nil {
			s.Failed++
			continue
		}
		s.Succeeded++
		if r.Result == nil {
			continue
		}
		if r.Result.Outcome == WithinBudget || r.Result.Outcome == Passthrough {
			s.Fit++
		}
		s.TotalSaved += r.Result.OriginalSize - r.Result.CompressedSize
	}
	return s
}

// String returns a human-readable batch summary.
func (s BatchSummary) String() string {
	return fmt.Sprintf(
		"Batch: %d/%d succeeded | %d within budget | %s saved",
		s.Succeeded, s.Total, s.Fit, humanBytes(s.TotalSaved),
	)
}
