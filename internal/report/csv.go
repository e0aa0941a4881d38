// Package report renders aggregation output into sales/ticket extracts and
// per-venue HTML reports.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"example.com/ticketsales/internal/domain"
)

// ErrNoRows is returned instead of writing an extract with no data.
var ErrNoRows = errors.New("report: nothing to write")

const stampLayout = "2006-01-02_150405"

var (
	salesHeader   = []string{"name", "venue", "date", "start_time", "end_time", "total_tickets", "total_issued_tickets", "remaining_tickets"}
	ticketsHeader = []string{"first_name", "last_name", "barcode", "event_name", "date", "start_time", "status", "checked_in_time"}
)

// SalesFileName is the extract name for a sales run started at now.
func SalesFileName(now time.Time) string {
	return "sales_" + now.Format(stampLayout) + ".csv"
}

// TicketsFileName is the extract name for the tickets of eventName.
func TicketsFileName(eventName string, now time.Time) string {
	return "tickets_" + strings.ReplaceAll(eventName, " ", "") + "_" + now.Format(stampLayout) + ".csv"
}

// WriteSalesCSV writes one line per occurrence, in the given order.
func WriteSalesCSV(w io.Writer, records []domain.OccurrenceRecord) error {
	if len(records) == 0 {
		return ErrNoRows
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(salesHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.Name, r.Venue, r.Date, r.StartTime, r.EndTime,
			strconv.Itoa(r.TotalTickets), strconv.Itoa(r.TotalIssuedTickets), strconv.Itoa(r.RemainingTickets),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// SortTicketsByDate orders tickets by occurrence date, keeping fetch order
// within a date.
func SortTicketsByDate(tickets []domain.TicketRecord) {
	sort.SliceStable(tickets, func(i, j int) bool { return tickets[i].Date < tickets[j].Date })
}

// WriteTicketsCSV writes one line per enriched ticket, in the given order.
func WriteTicketsCSV(w io.Writer, tickets []domain.TicketRecord) error {
	if len(tickets) == 0 {
		return ErrNoRows
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(ticketsHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, t := range tickets {
		row := []string{t.FirstName, t.LastName, t.Barcode, t.EventName, t.Date, t.StartTime, t.Status, t.CheckedInTime}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
