package report

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"example.com/ticketsales/internal/domain"
)

var fixedNow = time.Date(2025, 3, 7, 9, 5, 4, 0, time.UTC)

func occurrence(id, date, start, end string, capacity, issued int) domain.Occurrence {
	return domain.Occurrence{
		ID:                 id,
		Start:              domain.Moment{Date: date, Time: start},
		End:                domain.Moment{Date: date, Time: end},
		TicketTypes:        []domain.TicketType{{QuantityTotal: capacity}},
		TotalIssuedTickets: issued,
	}
}

func stadium() *domain.Venue {
	v := domain.NewVenue("Main Stadium")
	lotA := v.Event("Car Parking - Lot A")
	lotA.Add(occurrence("ev_1", "2025-06-01", "18:00", "23:00", 100, 80))
	lotA.Add(occurrence("ev_2", "2025-06-01", "20:00", "23:30", 50, 50))
	v.Event("Car Parking - Lot <B|C>").Add(occurrence("ev_3", "2025-06-02", "10:00", "12:00", 10, 12))
	return v
}

func TestFileNames(t *testing.T) {
	t.Parallel()

	if got := SalesFileName(fixedNow); got != "sales_2025-03-07_090504.csv" {
		t.Fatalf("unexpected sales file name %q", got)
	}
	if got := TicketsFileName("Car Parking - Lot A", fixedNow); got != "tickets_CarParking-LotA_2025-03-07_090504.csv" {
		t.Fatalf("unexpected tickets file name %q", got)
	}
	if got := FileName("Main Stadium North"); got != "Main_Stadium_North" {
		t.Fatalf("unexpected venue file name %q", got)
	}
}

func TestWriteSalesCSV(t *testing.T) {
	t.Parallel()

	records := []domain.OccurrenceRecord{
		{Name: "Lot A", Venue: "Main, Stadium", Date: "2025-06-01", StartTime: "18:00", EndTime: "23:00", TotalTickets: 100, TotalIssuedTickets: 80, RemainingTickets: 20},
		{Name: "Lot B", Venue: "Arena", Date: "2025-06-02", StartTime: "10:00", EndTime: "12:00", TotalTickets: 10, TotalIssuedTickets: 12, RemainingTickets: -2},
	}
	var buf bytes.Buffer
	if err := WriteSalesCSV(&buf, records); err != nil {
		t.Fatalf("write: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(rows))
	}
	if strings.Join(rows[0], ",") != "name,venue,date,start_time,end_time,total_tickets,total_issued_tickets,remaining_tickets" {
		t.Fatalf("unexpected header %v", rows[0])
	}
	if rows[1][1] != "Main, Stadium" {
		t.Fatalf("expected quoted venue to survive, got %q", rows[1][1])
	}
	if rows[2][7] != "-2" {
		t.Fatalf("expected negative remaining, got %q", rows[2][7])
	}

	if err := WriteSalesCSV(&buf, nil); !errors.Is(err, ErrNoRows) {
		t.Fatalf("expected ErrNoRows, got %v", err)
	}
}

func TestWriteTicketsCSVSortedByDate(t *testing.T) {
	t.Parallel()

	tickets := []domain.TicketRecord{
		{FirstName: "Cy", Date: "2025-06-02", Barcode: "C", CheckedInTime: domain.NotCheckedIn},
		{FirstName: "Ann", Date: "2025-06-01", Barcode: "A", CheckedInTime: "18:05"},
		{FirstName: "Bo", Date: "2025-06-02", Barcode: domain.PlaceholderBarcode, CheckedInTime: domain.NotCheckedIn},
		{FirstName: "Di", Date: "2025-06-01", Barcode: "D", CheckedInTime: "18:10"},
	}
	SortTicketsByDate(tickets)

	var buf bytes.Buffer
	if err := WriteTicketsCSV(&buf, tickets); err != nil {
		t.Fatalf("write: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	var order []string
	for _, r := range rows[1:] {
		order = append(order, r[0])
	}
	if got := strings.Join(order, ","); got != "Ann,Di,Cy,Bo" {
		t.Fatalf("expected stable date order, got %s", got)
	}
	if rows[0][7] != "checked_in_time" || rows[3][7] != "none" {
		t.Fatalf("unexpected check-in column %v / %v", rows[0], rows[3])
	}

	if err := WriteTicketsCSV(&buf, []domain.TicketRecord{}); !errors.Is(err, ErrNoRows) {
		t.Fatalf("expected ErrNoRows, got %v", err)
	}
}

func newTestRenderer() *Renderer {
	return NewRenderer(RendererConfig{
		Title:      "Car Parking Sales Report",
		NamePrefix: "Car Parking - ",
		Now:        func() time.Time { return fixedNow },
	})
}

func TestMarkdown(t *testing.T) {
	t.Parallel()

	summary, details, err := newTestRenderer().Markdown(stadium())
	if err != nil {
		t.Fatalf("markdown: %v", err)
	}
	if !strings.Contains(summary, "| Lot A | 150 | 130 | 20 |") {
		t.Fatalf("summary missing Lot A row:\n%s", summary)
	}
	if !strings.Contains(summary, `| Lot <B\|C> | 10 | 12 | -2 |`) {
		t.Fatalf("summary should escape pipes and keep negative remaining:\n%s", summary)
	}
	if strings.Contains(summary, "Car Parking - ") {
		t.Fatalf("name prefix should be stripped:\n%s", summary)
	}
	for _, want := range []string{
		"### Lot A",
		"| 18:00 | 23:00 | 100 | 80 | 20 |",
		"| 20:00 | 23:30 | 50 | 50 | 0 |",
		"| **Totals** | | **150** | **130** | **20** |",
	} {
		if !strings.Contains(details, want) {
			t.Fatalf("details missing %q:\n%s", want, details)
		}
	}
	if strings.Index(details, "18:00") > strings.Index(details, "20:00") {
		t.Fatalf("time slots should keep insertion order")
	}
}

func TestRender(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := newTestRenderer().Render(&buf, stadium()); err != nil {
		t.Fatalf("render: %v", err)
	}
	page := buf.String()

	for _, want := range []string{
		"<h1>Main Stadium</h1>",
		"Date: 07/03/2025",
		"Time: 09:05",
		"<h2>All Events Summary</h2>",
		"<table>",
		"<svg",
		"Main Stadium: Sold vs Available",
		"<strong>Totals</strong>",
	} {
		if !strings.Contains(page, want) {
			t.Fatalf("page missing %q", want)
		}
	}
	if strings.Contains(page, "<B|C>") {
		t.Fatalf("event names must be escaped in the page")
	}
	if got := strings.Count(page, `class="sold"><title>`); got != 2 {
		t.Fatalf("expected one sold bar per event, got %d", got)
	}
}

func TestChartScale(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want int
	}{
		{in: 1, want: 4},
		{in: 4, want: 4},
		{in: 5, want: 8},
		{in: 130, want: 200},
		{in: 201, want: 400},
		{in: 1999, want: 2000},
	}
	for _, tc := range tests {
		if got := niceCeil(tc.in); got != tc.want {
			t.Fatalf("niceCeil(%d): expected %d, got %d", tc.in, tc.want, got)
		}
	}
}
