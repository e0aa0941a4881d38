package aggregate

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"sort"

	"example.com/ticketsales/internal/domain"
)

// Aggregator folds resolved event series into three structures: a flat
// occurrence map (last fold of an id wins), the venue → event summary
// hierarchy keyed by names, and the enriched ticket list. It is not safe for
// concurrent use.
type Aggregator struct {
	joiner *Joiner

	occurrences     map[string]domain.OccurrenceRecord
	occurrenceOrder []string
	venues          map[string]*domain.Venue
	venueOrder      []string
	tickets         []domain.TicketRecord
}

// NewAggregator returns an empty aggregator. joiner is only needed for
// FoldWithTickets and may be nil otherwise.
func NewAggregator(joiner *Joiner) *Aggregator {
	return &Aggregator{
		joiner:      joiner,
		occurrences: map[string]domain.OccurrenceRecord{},
		venues:      map[string]*domain.Venue{},
		tickets:     []domain.TicketRecord{},
	}
}

// Fold adds every occurrence of series, in series order.
func (a *Aggregator) Fold(series domain.EventSeries) {
	venue := a.venue(series.Venue.Name)
	event := venue.Event(series.Name)

	for _, o := range series.Occurrences {
		if _, seen := a.occurrences[o.ID]; !seen {
			a.occurrenceOrder = append(a.occurrenceOrder, o.ID)
		}
		a.occurrences[o.ID] = domain.NewOccurrenceRecord(series, o)
		event.Add(o)
	}
}

// FoldWithTickets folds series and then appends its enriched tickets.
func (a *Aggregator) FoldWithTickets(ctx context.Context, series domain.EventSeries) error {
	if a.joiner == nil {
		return errors.New("aggregate: ticket enrichment requested without a joiner")
	}
	a.Fold(series)

	tickets, err := a.joiner.Join(ctx, series, a.occurrences)
	if err != nil {
		return err
	}
	a.tickets = append(a.tickets, tickets...)
	return nil
}

// Process folds each series in order, enriching tickets when withTickets is
// set. The first failure aborts the run.
func (a *Aggregator) Process(ctx context.Context, series []domain.EventSeries, withTickets bool) error {
	for _, s := range series {
		if !withTickets {
			a.Fold(s)
			continue
		}
		if err := a.FoldWithTickets(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (a *Aggregator) venue(name string) *domain.Venue {
	if v, ok := a.venues[name]; ok {
		return v
	}
	v := domain.NewVenue(name)
	a.venues[name] = v
	a.venueOrder = append(a.venueOrder, name)
	return v
}

// Occurrences returns a copy of the flat occurrence map.
func (a *Aggregator) Occurrences() map[string]domain.OccurrenceRecord {
	return maps.Clone(a.occurrences)
}

// SortedOccurrences returns the flat records ordered by date. Records on the
// same date keep the order their id was first folded.
func (a *Aggregator) SortedOccurrences() []domain.OccurrenceRecord {
	out := make([]domain.OccurrenceRecord, 0, len(a.occurrenceOrder))
	for _, id := range a.occurrenceOrder {
		out = append(out, a.occurrences[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// Venues returns the venues in first-seen order.
func (a *Aggregator) Venues() []*domain.Venue {
	out := make([]*domain.Venue, 0, len(a.venueOrder))
	for _, name := range a.venueOrder {
		out = append(out, a.venues[name])
	}
	return out
}

func (a *Aggregator) Venue(name string) (*domain.Venue, bool) {
	v, ok := a.venues[name]
	return v, ok
}

func (a *Aggregator) Tickets() []domain.TicketRecord {
	return append([]domain.TicketRecord(nil), a.tickets...)
}

// Result is the JSON shape handed to report consumers.
type Result struct {
	Venues      map[string]*domain.Venue           `json:"venues"`
	Occurrences map[string]domain.OccurrenceRecord `json:"occurrences"`
	Tickets     []domain.TicketRecord              `json:"tickets,omitempty"`
}

func (a *Aggregator) Result() Result {
	return Result{
		Venues:      maps.Clone(a.venues),
		Occurrences: a.Occurrences(),
		Tickets:     a.Tickets(),
	}
}

// Options configures Run.
type Options struct {
	IncludePast bool
	WithTickets bool
	Resolver    ResolverConfig
	Joiner      JoinerConfig
	Logger      *slog.Logger
}

// Run resolves every series from src and folds all of them.
func Run(ctx context.Context, src Source, opts Options) (*Aggregator, error) {
	series, err := NewResolver(src, opts.Resolver).Resolve(ctx, opts.IncludePast)
	if err != nil {
		return nil, err
	}
	return FoldAll(ctx, src, series, opts)
}

// FoldAll folds an already resolved (and possibly filtered) series list.
func FoldAll(ctx context.Context, src Source, series []domain.EventSeries, opts Options) (*Aggregator, error) {
	var joiner *Joiner
	if opts.WithTickets {
		joiner = NewJoiner(src, opts.Joiner)
	}
	agg := NewAggregator(joiner)
	if err := agg.Process(ctx, series, opts.WithTickets); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("aggregated", "series", len(series), "venues", len(agg.venueOrder),
		"occurrences", len(agg.occurrences), "tickets", len(agg.tickets))
	return agg, nil
}
