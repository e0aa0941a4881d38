package domain

import "encoding/json"

// OccurrenceRecord is the flat, per-occurrence sales line.
type OccurrenceRecord struct {
	ID                 string `json:"-"`
	Name               string `json:"name"`
	Venue              string `json:"venue"`
	Date               string `json:"date"`
	StartTime          string `json:"start_time"`
	EndTime            string `json:"end_time"`
	TotalTickets       int    `json:"total_tickets"`
	TotalIssuedTickets int    `json:"total_issued_tickets"`
	RemainingTickets   int    `json:"remaining_tickets"`
}

// NewOccurrenceRecord projects an occurrence of series into a flat record.
func NewOccurrenceRecord(series EventSeries, o Occurrence) OccurrenceRecord {
	return OccurrenceRecord{
		ID:                 o.ID,
		Name:               series.Name,
		Venue:              series.Venue.Name,
		Date:               o.Start.Date,
		StartTime:          o.Start.Time,
		EndTime:            o.End.Time,
		TotalTickets:       o.Capacity(),
		TotalIssuedTickets: o.TotalIssuedTickets,
		RemainingTickets:   o.Remaining(),
	}
}

type TimeSlot struct {
	StartTime          string `json:"start_time"`
	EndTime            string `json:"end_time"`
	TotalTickets       int    `json:"total_tickets"`
	TotalIssuedTickets int    `json:"total_issued_tickets"`
	RemainingTickets   int    `json:"remaining_tickets"`
}

// Summary holds running totals for an event. Date is the date of the most
// recently added occurrence and nothing more.
type Summary struct {
	Date               string `json:"date"`
	TotalTickets       int    `json:"total_tickets"`
	TotalIssuedTickets int    `json:"total_issued_tickets"`
	RemainingTickets   int    `json:"remaining_tickets"`
}

// EventSummary groups the time slots of every occurrence folded under one
// event name. Totals only grow through Add, so they always equal the sum of
// the slots.
type EventSummary struct {
	name      string
	timeSlots []TimeSlot
	summary   Summary
}

func NewEventSummary(name string) *EventSummary {
	return &EventSummary{name: name, timeSlots: []TimeSlot{}}
}

// Add appends a slot for o (no re-sorting) and accumulates its totals.
func (e *EventSummary) Add(o Occurrence) {
	capacity := o.Capacity()
	remaining := o.Remaining()
	e.timeSlots = append(e.timeSlots, TimeSlot{
		StartTime:          o.Start.Time,
		EndTime:            o.End.Time,
		TotalTickets:       capacity,
		TotalIssuedTickets: o.TotalIssuedTickets,
		RemainingTickets:   remaining,
	})
	e.summary.Date = o.Start.Date
	e.summary.TotalTickets += capacity
	e.summary.TotalIssuedTickets += o.TotalIssuedTickets
	e.summary.RemainingTickets += remaining
}

func (e *EventSummary) Name() string { return e.name }

// TimeSlots returns a copy of the slots in fold order.
func (e *EventSummary) TimeSlots() []TimeSlot {
	out := make([]TimeSlot, len(e.timeSlots))
	copy(out, e.timeSlots)
	return out
}

func (e *EventSummary) Summary() Summary { return e.summary }

func (e *EventSummary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		TimeSlots []TimeSlot `json:"time_slots"`
		Summary   Summary    `json:"summary"`
	}{e.timeSlots, e.summary})
}

// Venue maps event names to their summaries, remembering first-seen order.
type Venue struct {
	name   string
	order  []string
	events map[string]*EventSummary
}

func NewVenue(name string) *Venue {
	return &Venue{name: name, events: map[string]*EventSummary{}}
}

func (v *Venue) Name() string { return v.name }

// Event returns the summary for name, creating it on first use.
func (v *Venue) Event(name string) *EventSummary {
	if es, ok := v.events[name]; ok {
		return es
	}
	es := NewEventSummary(name)
	v.events[name] = es
	v.order = append(v.order, name)
	return es
}

// Events returns the event summaries in first-seen order.
func (v *Venue) Events() []*EventSummary {
	out := make([]*EventSummary, 0, len(v.order))
	for _, name := range v.order {
		out = append(out, v.events[name])
	}
	return out
}

// Lookup returns the summary for name without creating it.
func (v *Venue) Lookup(name string) (*EventSummary, bool) {
	es, ok := v.events[name]
	return es, ok
}

func (v *Venue) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.events)
}
