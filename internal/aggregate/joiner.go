package aggregate

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"example.com/ticketsales/internal/domain"
)

// CheckInIndex maps an issued ticket id to its "HH:MM" check-in time.
type CheckInIndex map[string]string

// Lookup returns the check-in time of ticketID or domain.NotCheckedIn.
func (ix CheckInIndex) Lookup(ticketID string) string {
	if t, ok := ix[ticketID]; ok {
		return t
	}
	return domain.NotCheckedIn
}

// BuildCheckInIndex drains seq, keeping entries that carry a timestamp.
// Later entries for the same ticket overwrite earlier ones.
func BuildCheckInIndex(seq iter.Seq2[domain.CheckIn, error], loc *time.Location) (CheckInIndex, error) {
	if loc == nil {
		loc = time.Local
	}
	ix := CheckInIndex{}
	for ci, err := range seq {
		if err != nil {
			return nil, err
		}
		if ci.CheckInAt == nil {
			continue
		}
		ix[ci.IssuedTicketID] = time.Unix(*ci.CheckInAt, 0).In(loc).Format("15:04")
	}
	return ix, nil
}

// Inspector receives tickets flagged for manual inspection.
type Inspector func(series domain.EventSeries, ticket domain.IssuedTicket)

type JoinerConfig struct {
	// Location renders check-in times. Nil means time.Local.
	Location *time.Location
	// InspectFirst passes the first N tickets of the run to Inspector, in
	// addition to every ticket with a placeholder barcode.
	InspectFirst int
	// Inspector defaults to a debug log line.
	Inspector Inspector
	Logger    *slog.Logger
}

// Joiner enriches issued tickets with their occurrence and check-in time.
// Its inspection budget lives for one run.
type Joiner struct {
	src         Source
	loc         *time.Location
	inspectLeft int
	inspect     Inspector
	logger      *slog.Logger
}

func NewJoiner(src Source, cfg JoinerConfig) *Joiner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	j := &Joiner{src: src, loc: loc, inspectLeft: cfg.InspectFirst, inspect: cfg.Inspector, logger: logger}
	if j.inspect == nil {
		j.inspect = func(series domain.EventSeries, t domain.IssuedTicket) {
			logger.Debug("inspect ticket", "series", series.ID, "ticket", t.ID, "event_id", t.EventID,
				"barcode", t.Barcode, "status", t.Status, "first_name", t.FirstName, "last_name", t.LastName)
		}
	}
	return j
}

// Join returns the tickets of series enriched from occurrences, which must
// already hold every occurrence of the series.
func (j *Joiner) Join(ctx context.Context, series domain.EventSeries, occurrences map[string]domain.OccurrenceRecord) ([]domain.TicketRecord, error) {
	j.logger.Info("fetching check-ins", "series", series.ID)
	index, err := BuildCheckInIndex(j.src.CheckIns(ctx, series.ID), j.loc)
	if err != nil {
		return nil, fmt.Errorf("check-ins of %s: %w", series.ID, err)
	}

	j.logger.Info("fetching tickets", "series", series.ID)
	out := []domain.TicketRecord{}
	for t, err := range j.src.IssuedTickets(ctx, series.ID) {
		if err != nil {
			return nil, fmt.Errorf("tickets of %s: %w", series.ID, err)
		}
		occ, ok := occurrences[t.EventID]
		if !ok {
			return nil, &domain.StructuralError{
				Record: "issued_ticket " + t.ID,
				Fields: []domain.FieldError{{Field: "event_id", Msg: fmt.Sprintf("unknown occurrence %q", t.EventID)}},
			}
		}

		if j.inspectLeft > 0 || t.Barcode == domain.PlaceholderBarcode {
			j.inspect(series, t)
			if j.inspectLeft > 0 {
				j.inspectLeft--
			}
		}

		out = append(out, domain.TicketRecord{
			FirstName:     t.FirstName,
			LastName:      t.LastName,
			Barcode:       t.Barcode,
			EventName:     series.Name,
			Date:          occ.Date,
			StartTime:     occ.StartTime,
			Status:        t.Status,
			CheckedInTime: index.Lookup(t.ID),
		})
	}
	return out, nil
}
