package domain

// EventSeries is a Ticket Tailor event series: a named event at a venue with
// one or more dated occurrences.
type EventSeries struct {
	ID                  string       `json:"id"`
	Name                string       `json:"name"`
	Venue               VenueRef     `json:"venue"`
	UpcomingOccurrences bool         `json:"upcoming_occurrences"`
	Occurrences         []Occurrence `json:"occurrences,omitempty"`
	// Date is the start date of the first occurrence in fetch order.
	Date string `json:"date,omitempty"`
}

type VenueRef struct {
	Name string `json:"name"`
}

// Occurrence is one dated instance of an event series ("event" in the API).
type Occurrence struct {
	ID                 string       `json:"id"`
	Start              Moment       `json:"start"`
	End                Moment       `json:"end"`
	TicketTypes        []TicketType `json:"ticket_types"`
	TotalIssuedTickets int          `json:"total_issued_tickets"`
}

type Moment struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

type TicketType struct {
	QuantityTotal int `json:"quantity_total"`
}

// Capacity is the sum of the per-ticket-type quantities.
func (o Occurrence) Capacity() int {
	total := 0
	for _, tt := range o.TicketTypes {
		total += tt.QuantityTotal
	}
	return total
}

// Remaining is capacity minus issued. It is not clamped: a negative value
// means upstream issued more tickets than it advertised.
func (o Occurrence) Remaining() int {
	return o.Capacity() - o.TotalIssuedTickets
}

// ResolveDate sets Date from the first attached occurrence.
func (s *EventSeries) ResolveDate() error {
	if len(s.Occurrences) == 0 {
		return &StructuralError{
			Record: "event_series " + s.ID,
			Fields: []FieldError{{Field: "occurrences", Msg: "series has no occurrences"}},
		}
	}
	s.Date = s.Occurrences[0].Start.Date
	return nil
}
