package tickettailor

import (
	"context"
	"iter"
	"net/url"

	"example.com/ticketsales/internal/domain"
)

var (
	eventSeriesKeys = []string{"id", "name", "venue.name", "upcoming_occurrences"}
	occurrenceKeys  = []string{
		"id", "start.date", "start.time", "end.time",
		"ticket_types[].quantity_total", "total_issued_tickets",
	}
	issuedTicketKeys = []string{"id", "event_id", "first_name", "last_name", "barcode", "status"}
	checkInKeys      = []string{"issued_ticket_id"}
)

// EventSeries lists every event series of the box office.
func (c *Client) EventSeries(ctx context.Context) iter.Seq2[domain.EventSeries, error] {
	return Paginate[domain.EventSeries](ctx, c, Collection{
		Path:     "/v1/event_series",
		Kind:     "event_series",
		Required: eventSeriesKeys,
	})
}

// Occurrences lists the dated occurrences ("events" in the API) of a series.
func (c *Client) Occurrences(ctx context.Context, seriesID string) iter.Seq2[domain.Occurrence, error] {
	return Paginate[domain.Occurrence](ctx, c, Collection{
		Path:     "/v1/event_series/" + url.PathEscape(seriesID) + "/events",
		Kind:     "event",
		Required: occurrenceKeys,
	})
}

// IssuedTickets lists the tickets issued for a series.
func (c *Client) IssuedTickets(ctx context.Context, seriesID string) iter.Seq2[domain.IssuedTicket, error] {
	return Paginate[domain.IssuedTicket](ctx, c, Collection{
		Path:     "/v1/issued_tickets",
		Params:   url.Values{"event_series_id": {seriesID}},
		Kind:     "issued_ticket",
		Required: issuedTicketKeys,
	})
}

// CheckIns lists check-in entries for a series.
func (c *Client) CheckIns(ctx context.Context, seriesID string) iter.Seq2[domain.CheckIn, error] {
	return Paginate[domain.CheckIn](ctx, c, Collection{
		Path:     "/v1/check_ins",
		Params:   url.Values{"event_series_id": {seriesID}},
		Kind:     "check_in",
		Required: checkInKeys,
	})
}
