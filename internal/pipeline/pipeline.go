// Package pipeline runs schema inference over a batch of captured exchanges.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/usestring/flowschema/internal/cache"
	"github.com/usestring/flowschema/internal/capture"
	"github.com/usestring/flowschema/internal/catalog"
	"github.com/usestring/flowschema/internal/config"
	"github.com/usestring/flowschema/internal/flow"
	"github.com/usestring/flowschema/internal/query"
)

// printer renders counts in progress lines.
var printer = message.NewPrinter(language.English)

// Options controls a Pipeline.
type Options struct {
	Workers                 int
	ParallelReduceThreshold int
	SkipMalformedPaths      bool

	// Filter drops exchanges before normalization. Nil keeps all.
	Filter *query.Filter
	// Types memoizes classification. Nil disables memoization.
	Types *cache.TypeCache
}

// OptionsFromConfig compiles the filter and builds the classification cache
// described by cfg.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	filter, err := query.NewFilter(cfg.FlowFilter)
	if err != nil {
		return Options{}, fmt.Errorf("FLOW_FILTER: %w", err)
	}
	types, err := cache.NewTypeCache(cfg.ClassifyCacheMaxItems)
	if err != nil {
		return Options{}, fmt.Errorf("creating classification cache: %w", err)
	}
	return Options{
		Workers:                 cfg.Workers,
		ParallelReduceThreshold: cfg.ParallelReduceThreshold,
		SkipMalformedPaths:      cfg.SkipMalformedPaths,
		Filter:                  filter,
		Types:                   types,
	}, nil
}

// Pipeline infers an API structure from exchanges. It holds no per-run
// state, so one Pipeline may serve concurrent runs.
type Pipeline struct {
	opts Options
}

// New creates a Pipeline. Non-positive worker and threshold settings fall
// back to the config defaults.
func New(opts Options) *Pipeline {
	if opts.Workers <= 0 {
		opts.Workers = config.DefaultWorkers
	}
	if opts.ParallelReduceThreshold <= 0 {
		opts.ParallelReduceThreshold = config.DefaultParallelReduceThreshold
	}
	return &Pipeline{opts: opts}
}

// Result is the outcome of one run.
type Result struct {
	Structure *catalog.Structure

	Flows     int // exchanges read
	Filtered  int // exchanges dropped by the filter
	Skipped   int // exchanges skipped for malformed paths
	Records   int // exchanges normalized
	Endpoints int
	Services  int

	Stats flow.StatsSnapshot
}

// RunFile reads every exchange of a capture file and runs the pipeline.
func (p *Pipeline) RunFile(ctx context.Context, path string) (*Result, error) {
	start := time.Now()
	slog.Info("reading capture", slog.String("path", path))

	exchanges, err := capture.OpenAll(path)
	if err != nil {
		return nil, err
	}
	slog.Info("capture read",
		slog.String("flows", printer.Sprintf("%d", len(exchanges))),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	return p.Run(ctx, exchanges)
}

// Run filters, normalizes, groups, reduces and regroups exchanges. The whole
// batch is processed before a result is returned; any error discards it.
func (p *Pipeline) Run(ctx context.Context, exchanges []capture.Exchange) (*Result, error) {
	start := time.Now()
	res := &Result{Flows: len(exchanges)}

	kept, err := p.filter(exchanges)
	if err != nil {
		return nil, err
	}
	res.Filtered = len(exchanges) - len(kept)

	stage := time.Now()
	normalizer := flow.NewNormalizer(p.opts.Types)
	records, skipped, err := p.normalize(ctx, normalizer, kept)
	if err != nil {
		return nil, err
	}
	res.Skipped = skipped
	res.Records = len(records)
	res.Stats = normalizer.Stats()
	slog.Info("flows normalized",
		slog.String("records", printer.Sprintf("%d", len(records))),
		slog.String("filtered", printer.Sprintf("%d", res.Filtered)),
		slog.String("skipped", printer.Sprintf("%d", skipped)),
		slog.Int64("duration_ms", time.Since(stage).Milliseconds()),
	)

	stage = time.Now()
	idx := catalog.NewIndex()
	idx.AddAll(records)
	groups := idx.Groups()
	merged, err := p.reduce(ctx, groups)
	if err != nil {
		return nil, err
	}
	slog.Info("endpoints merged",
		slog.String("endpoints", printer.Sprintf("%d", len(merged))),
		slog.Int64("duration_ms", time.Since(stage).Milliseconds()),
	)

	stage = time.Now()
	res.Structure = catalog.Build(merged)
	res.Endpoints = res.Structure.EndpointCount()
	res.Services = res.Structure.ServiceCount()
	slog.Info("structure regrouped",
		slog.Int("services", res.Services),
		slog.Int64("duration_ms", time.Since(stage).Milliseconds()),
	)

	slog.Info("inference complete",
		slog.String("flows", printer.Sprintf("%d", res.Flows)),
		slog.Int("endpoints", res.Endpoints),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return res, nil
}

func (p *Pipeline) filter(exchanges []capture.Exchange) ([]capture.Exchange, error) {
	if p.opts.Filter == nil {
		return exchanges, nil
	}
	kept := make([]capture.Exchange, 0, len(exchanges))
	for _, ex := range exchanges {
		ok, err := p.opts.Filter.Match(query.Input{
			Method: ex.Method,
			Host:   ex.Host,
			Path:   ex.Path,
			Status: ex.Status,
		})
		if err != nil {
			return nil, fmt.Errorf("applying flow filter: %w", err)
		}
		if ok {
			kept = append(kept, ex)
		}
	}
	return kept, nil
}

// normalize converts exchanges on a bounded worker pool. Output keeps input
// order; skipped exchanges are removed.
func (p *Pipeline) normalize(ctx context.Context, normalizer *flow.Normalizer, exchanges []capture.Exchange) ([]*flow.Record, int, error) {
	slots := make([]*flow.Record, len(exchanges))
	var skipped atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)

	for i := range exchanges {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rec, err := normalizer.Normalize(&exchanges[i])
			if err != nil {
				if p.opts.SkipMalformedPaths && errors.Is(err, flow.ErrMalformedPath) {
					skipped.Add(1)
					slog.Warn("skipping flow",
						slog.Int("index", i),
						slog.String("error", err.Error()),
					)
					return nil
				}
				return fmt.Errorf("flow %d: %w", i, err)
			}
			slots[i] = rec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	records := make([]*flow.Record, 0, len(slots))
	for _, rec := range slots {
		if rec != nil {
			records = append(records, rec)
		}
	}
	return records, int(skipped.Load()), nil
}

// reduce merges each group to one record. Groups reduce concurrently.
func (p *Pipeline) reduce(ctx context.Context, groups []catalog.Group) ([]*flow.Record, error) {
	merged := make([]*flow.Record, len(groups))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)

	for i := range groups {
		g.Go(func() error {
			rec, err := ReduceTree(ctx, groups[i].Records, p.opts.ParallelReduceThreshold)
			if err != nil {
				return err
			}
			merged[i] = rec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return merged, nil
}

// ReduceTree merges records pairwise as a balanced tree, keeping the left
// half before the right half, so it returns the same record as a left fold of
// flow.MergeRecords. Halves of a slice at least threshold long reduce in
// parallel. It returns nil for an empty slice.
func ReduceTree(ctx context.Context, records []*flow.Record, threshold int) (*flow.Record, error) {
	switch len(records) {
	case 0:
		return nil, nil
	case 1:
		return records[0], nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mid := len(records) / 2
	var left, right *flow.Record

	if threshold > 0 && len(records) >= threshold {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			left, err = ReduceTree(gctx, records[:mid], threshold)
			return err
		})
		g.Go(func() error {
			var err error
			right, err = ReduceTree(gctx, records[mid:], threshold)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		var err error
		if left, err = ReduceTree(ctx, records[:mid], threshold); err != nil {
			return nil, err
		}
		if right, err = ReduceTree(ctx, records[mid:], threshold); err != nil {
			return nil, err
		}
	}

	return flow.MergeRecords(left, right), nil
}
