package domain

// PlaceholderBarcode is what the API returns for tickets whose barcode has not
// been assigned yet.
const PlaceholderBarcode = "????"

// NotCheckedIn is the check-in time rendered for tickets with no check-in.
const NotCheckedIn = "none"

// IssuedTicket is a ticket as returned by /v1/issued_tickets.
type IssuedTicket struct {
	ID        string `json:"id"`
	EventID   string `json:"event_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Barcode   string `json:"barcode"`
	Status    string `json:"status"`
}

// CheckIn is an entry of /v1/check_ins. CheckInAt is epoch seconds and is
// absent for entries that were never scanned.
type CheckIn struct {
	IssuedTicketID string `json:"issued_ticket_id"`
	CheckInAt      *int64 `json:"check_in_at,omitempty"`
}

// TicketRecord is an issued ticket joined with its occurrence and check-in.
type TicketRecord struct {
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Barcode       string `json:"barcode"`
	EventName     string `json:"event_name"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	Status        string `json:"status"`
	CheckedInTime string `json:"checked_in_time"`
}
