package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func occ(id, date, start string, capacities []int, issued int) Occurrence {
	o := Occurrence{
		ID:                 id,
		Start:              Moment{Date: date, Time: start},
		End:                Moment{Date: date, Time: "23:00"},
		TotalIssuedTickets: issued,
	}
	for _, c := range capacities {
		o.TicketTypes = append(o.TicketTypes, TicketType{QuantityTotal: c})
	}
	return o
}

func TestOccurrenceCapacityAndRemaining(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		capacities []int
		issued     int
		wantCap    int
		wantRem    int
	}{
		{name: "single type", capacities: []int{100}, issued: 80, wantCap: 100, wantRem: 20},
		{name: "several types", capacities: []int{40, 50, 10}, issued: 0, wantCap: 100, wantRem: 100},
		{name: "no types", capacities: nil, issued: 0, wantCap: 0, wantRem: 0},
		{name: "oversold is not clamped", capacities: []int{10}, issued: 12, wantCap: 10, wantRem: -2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			o := occ("o", "2025-01-01", "10:00", tc.capacities, tc.issued)
			if got := o.Capacity(); got != tc.wantCap {
				t.Fatalf("capacity: expected %d, got %d", tc.wantCap, got)
			}
			if got := o.Remaining(); got != tc.wantRem {
				t.Fatalf("remaining: expected %d, got %d", tc.wantRem, got)
			}
		})
	}
}

func TestEventSummaryAdd(t *testing.T) {
	t.Parallel()

	es := NewEventSummary("Lot A")
	es.Add(occ("o1", "2025-06-01", "18:00", []int{100}, 80))
	es.Add(occ("o2", "2025-05-01", "12:00", []int{30, 20}, 50))

	sum := es.Summary()
	want := Summary{Date: "2025-05-01", TotalTickets: 150, TotalIssuedTickets: 130, RemainingTickets: 20}
	if sum != want {
		t.Fatalf("expected %+v, got %+v", want, sum)
	}

	slots := es.TimeSlots()
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	if slots[0].StartTime != "18:00" || slots[1].StartTime != "12:00" {
		t.Fatalf("slots re-ordered: %+v", slots)
	}

	var total, issued, remaining int
	for _, s := range slots {
		total += s.TotalTickets
		issued += s.TotalIssuedTickets
		remaining += s.RemainingTickets
	}
	if total != sum.TotalTickets || issued != sum.TotalIssuedTickets || remaining != sum.RemainingTickets {
		t.Fatalf("summary %+v does not equal slot sums %d/%d/%d", sum, total, issued, remaining)
	}
}

func TestVenueEventOrderAndJSON(t *testing.T) {
	t.Parallel()

	v := NewVenue("Stadium")
	v.Event("B").Add(occ("o1", "2025-01-01", "10:00", []int{5}, 1))
	v.Event("A").Add(occ("o2", "2025-01-02", "11:00", []int{5}, 2))
	if v.Event("B") != v.Events()[0] {
		t.Fatalf("expected existing summary to be returned")
	}

	names := []string{}
	for _, es := range v.Events() {
		names = append(names, es.Name())
	}
	if strings.Join(names, ",") != "B,A" {
		t.Fatalf("expected first-seen order B,A, got %v", names)
	}

	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]struct {
		TimeSlots []TimeSlot `json:"time_slots"`
		Summary   Summary    `json:"summary"`
	}
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["A"].Summary.TotalIssuedTickets != 2 || len(decoded["B"].TimeSlots) != 1 {
		t.Fatalf("unexpected shape: %s", b)
	}
}

func TestResolveDate(t *testing.T) {
	t.Parallel()

	s := EventSeries{ID: "es_1", Occurrences: []Occurrence{
		occ("o1", "2025-03-02", "10:00", nil, 0),
		occ("o2", "2025-03-01", "10:00", nil, 0),
	}}
	if err := s.ResolveDate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Date != "2025-03-02" {
		t.Fatalf("expected first occurrence date, got %s", s.Date)
	}

	empty := EventSeries{ID: "es_2"}
	if err := empty.ResolveDate(); !errors.Is(err, ErrStructural) {
		t.Fatalf("expected structural error, got %v", err)
	}
}

func TestRequireKeys(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		paths   []string
		missing []string
	}{
		{
			name:  "all present",
			raw:   `{"id":"ev_1","start":{"date":"2025-01-01","time":"10:00"},"ticket_types":[{"quantity_total":1}]}`,
			paths: []string{"id", "start.date", "ticket_types[].quantity_total"},
		},
		{
			name:    "nested missing",
			raw:     `{"id":"ev_1","start":{"time":"10:00"}}`,
			paths:   []string{"start.date"},
			missing: []string{"start.date"},
		},
		{
			name:    "array element missing key",
			raw:     `{"id":"ev_1","ticket_types":[{"quantity_total":1},{}]}`,
			paths:   []string{"ticket_types[].quantity_total"},
			missing: []string{"ticket_types[].quantity_total"},
		},
		{
			name:  "empty array passes",
			raw:   `{"ticket_types":[]}`,
			paths: []string{"ticket_types[].quantity_total"},
		},
		{
			name:    "null leaf is missing",
			raw:     `{"id":"ev_1","total_issued_tickets":null}`,
			paths:   []string{"id", "total_issued_tickets"},
			missing: []string{"total_issued_tickets"},
		},
		{
			name:    "null leaf in array element is missing",
			raw:     `{"ticket_types":[{"quantity_total":5},{"quantity_total":null}]}`,
			paths:   []string{"ticket_types[].quantity_total"},
			missing: []string{"ticket_types[].quantity_total"},
		},
		{
			name:  "zero and false leaves are present",
			raw:   `{"total_issued_tickets":0,"upcoming_occurrences":false}`,
			paths: []string{"total_issued_tickets", "upcoming_occurrences"},
		},
		{
			name:    "null parent is missing",
			raw:     `{"venue":null}`,
			paths:   []string{"venue.name"},
			missing: []string{"venue.name"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := RequireKeys("event", []byte(tc.raw), tc.paths...)
			if len(tc.missing) == 0 {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			var se *StructuralError
			if !errors.As(err, &se) {
				t.Fatalf("expected *StructuralError, got %v", err)
			}
			if len(se.Fields) != len(tc.missing) || se.Fields[0].Field != tc.missing[0] {
				t.Fatalf("expected missing %v, got %+v", tc.missing, se.Fields)
			}
		})
	}
}

func TestRequireKeysNamesRecord(t *testing.T) {
	t.Parallel()

	err := RequireKeys("issued_ticket", []byte(`{"id":"it_9"}`), "barcode")
	if err == nil || !strings.Contains(err.Error(), "issued_ticket it_9") {
		t.Fatalf("expected record id in error, got %v", err)
	}
	if err := RequireKeys("issued_ticket", []byte(`{`), "id"); err == nil || errors.Is(err, ErrStructural) {
		t.Fatalf("expected decode error, got %v", err)
	}
}
