// Package aggregate folds Ticket Tailor event series, occurrences and tickets
// into the venue → event → time-slot summary and the flat extracts built
// from it.
package aggregate

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"example.com/ticketsales/internal/domain"
)

// Source is the part of the Ticket Tailor API the engine reads.
type Source interface {
	EventSeries(ctx context.Context) iter.Seq2[domain.EventSeries, error]
	Occurrences(ctx context.Context, seriesID string) iter.Seq2[domain.Occurrence, error]
	IssuedTickets(ctx context.Context, seriesID string) iter.Seq2[domain.IssuedTicket, error]
	CheckIns(ctx context.Context, seriesID string) iter.Seq2[domain.CheckIn, error]
}

type ResolverConfig struct {
	// Concurrency > 1 fetches occurrences for that many series at once.
	// The result is identical to the sequential one.
	Concurrency int
	Logger      *slog.Logger
}

// Resolver lists event series and attaches their occurrences.
type Resolver struct {
	src         Source
	concurrency int
	logger      *slog.Logger
}

func NewResolver(src Source, cfg ResolverConfig) *Resolver {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{src: src, concurrency: cfg.Concurrency, logger: logger}
}

// Resolve returns the event series with occurrences attached, sorted by
// representative date. Series without upcoming occurrences are skipped
// unless includePast is set.
func (r *Resolver) Resolve(ctx context.Context, includePast bool) ([]domain.EventSeries, error) {
	var out []domain.EventSeries
	var err error
	if r.concurrency > 1 {
		out, err = r.resolveConcurrent(ctx, includePast)
	} else {
		out, err = r.resolveSequential(ctx, includePast)
	}
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	r.logger.Info("resolved event series", "count", len(out), "include_past", includePast)
	return out, nil
}

func (r *Resolver) resolveSequential(ctx context.Context, includePast bool) ([]domain.EventSeries, error) {
	out := []domain.EventSeries{}
	for series, err := range r.src.EventSeries(ctx) {
		if err != nil {
			return nil, fmt.Errorf("list event series: %w", err)
		}
		if !includePast && !series.UpcomingOccurrences {
			continue
		}
		if err := r.ResolveOccurrences(ctx, &series); err != nil {
			return nil, err
		}
		out = append(out, series)
	}
	return out, nil
}

func (r *Resolver) resolveConcurrent(ctx context.Context, includePast bool) ([]domain.EventSeries, error) {
	out := []domain.EventSeries{}
	for series, err := range r.src.EventSeries(ctx) {
		if err != nil {
			return nil, fmt.Errorf("list event series: %w", err)
		}
		if includePast || series.UpcomingOccurrences {
			out = append(out, series)
		}
	}

	// Each goroutine owns one slot of out, so fetch order cannot leak into
	// the result.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i := range out {
		g.Go(func() error {
			return r.ResolveOccurrences(gctx, &out[i])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ResolveOccurrences fetches the occurrences of series and sets its
// representative date.
func (r *Resolver) ResolveOccurrences(ctx context.Context, series *domain.EventSeries) error {
	occurrences := []domain.Occurrence{}
	for o, err := range r.src.Occurrences(ctx, series.ID) {
		if err != nil {
			return fmt.Errorf("list occurrences of %s: %w", series.ID, err)
		}
		occurrences = append(occurrences, o)
	}
	series.Occurrences = occurrences
	return series.ResolveDate()
}
