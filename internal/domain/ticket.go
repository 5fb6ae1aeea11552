package domain

import (
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInReview   TicketStatus = "IN_REVIEW"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
)

// Statuses lists every status in lifecycle order.
func Statuses() []TicketStatus {
	return []TicketStatus{
		TicketStatusOpen,
		TicketStatusInReview,
		TicketStatusInProgress,
		TicketStatusResolved,
	}
}

// Valid reports whether s is one of the four lifecycle states.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInReview, TicketStatusInProgress, TicketStatusResolved:
		return true
	}
	return false
}

// Terminal reports whether no further transition exists from s.
func (s TicketStatus) Terminal() bool {
	return s == TicketStatusResolved
}

// Label is the human readable status used by list chips.
func (s TicketStatus) Label() string {
	switch s {
	case TicketStatusOpen:
		return "Open"
	case TicketStatusInReview:
		return "In Review"
	case TicketStatusInProgress:
		return "In Progress"
	case TicketStatusResolved:
		return "Resolved"
	}
	return "-"
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
)

// TicketRef carries both identifiers a ticket is addressed by. Views use
// them interchangeably, so lookups go through Matches instead of repeating
// fallback chains.
type TicketRef struct {
	Code       string
	InternalID string
}

// Key is the durable identifier used to key caches.
func (r TicketRef) Key() string {
	if r.InternalID != "" {
		return r.InternalID
	}
	return r.Code
}

// Display is the identifier shown to people.
func (r TicketRef) Display() string {
	if r.Code != "" {
		return r.Code
	}
	if r.InternalID != "" {
		return r.InternalID
	}
	return "-"
}

// PathID is the identifier placed in request paths.
func (r TicketRef) PathID() string {
	return r.Display()
}

// Matches reports whether id names this ticket by either identifier.
func (r TicketRef) Matches(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}
	return (r.Code != "" && strings.EqualFold(r.Code, id)) || (r.InternalID != "" && r.InternalID == id)
}

// Same reports whether two refs point at the same ticket.
func (r TicketRef) Same(other TicketRef) bool {
	if r.InternalID != "" && other.InternalID != "" {
		return r.InternalID == other.InternalID
	}
	return (other.Code != "" && r.Matches(other.Code)) || (other.InternalID != "" && r.Matches(other.InternalID))
}

// IsZero reports whether neither identifier is known.
func (r TicketRef) IsZero() bool {
	return r.Code == "" && r.InternalID == ""
}

// Timestamp keeps the backend value next to its parsed form so unparseable
// input can still be shown verbatim.
type Timestamp struct {
	Raw string
	At  time.Time
}

// Valid reports whether the raw value parsed.
func (t Timestamp) Valid() bool {
	return !t.At.IsZero()
}

// IsZero reports whether no value was supplied.
func (t Timestamp) IsZero() bool {
	return t.Raw == "" && t.At.IsZero()
}

// TicketField flags which canonical fields a backend payload carried.
type TicketField uint16

const (
	FieldCode TicketField = 1 << iota
	FieldInternalID
	FieldTitle
	FieldCategory
	FieldPriority
	FieldStatus
	FieldDescription
	FieldCreatedAt
	FieldUpdatedAt
	FieldResolvedAt
	FieldAttachments
	FieldRequester
)

// Has reports whether every flag in f is set.
func (s TicketField) Has(f TicketField) bool {
	return s&f == f
}

// Ticket is the aggregate root of the client.
type Ticket struct {
	Ref           TicketRef
	Title         string
	Category      string
	Priority      TicketPriority
	Status        TicketStatus
	Description   string
	RequesterName string
	CreatedAt     Timestamp
	UpdatedAt     Timestamp
	ResolvedAt    *Timestamp
	Attachments   []Attachment
	Present       TicketField
}

// TopLevelAttachments returns attachments not tied to a chat message.
func (t Ticket) TopLevelAttachments() []Attachment {
	out := make([]Attachment, 0, len(t.Attachments))
	for _, att := range t.Attachments {
		if att.MessageID == "" {
			out = append(out, att)
		}
	}
	return out
}

// EnforceResolution keeps ResolvedAt set exactly when the ticket is resolved.
func (t *Ticket) EnforceResolution() {
	if t.Status != TicketStatusResolved {
		t.ResolvedAt = nil
		return
	}
	if t.ResolvedAt != nil && !t.ResolvedAt.IsZero() {
		return
	}
	switch {
	case !t.UpdatedAt.IsZero():
		at := t.UpdatedAt
		t.ResolvedAt = &at
	case !t.CreatedAt.IsZero():
		at := t.CreatedAt
		t.ResolvedAt = &at
	default:
		t.ResolvedAt = &Timestamp{At: time.Now().UTC()}
	}
}

// MergeTicket applies detail over row field by field: fields the detail
// payload carried win, everything else keeps the row value.
func MergeTicket(row, detail Ticket) Ticket {
	merged := row
	p := detail.Present
	if p.Has(FieldCode) {
		merged.Ref.Code = detail.Ref.Code
	}
	if p.Has(FieldInternalID) {
		merged.Ref.InternalID = detail.Ref.InternalID
	}
	if p.Has(FieldTitle) {
		merged.Title = detail.Title
	}
	if p.Has(FieldCategory) {
		merged.Category = detail.Category
	}
	if p.Has(FieldPriority) {
		merged.Priority = detail.Priority
	}
	if p.Has(FieldStatus) {
		merged.Status = detail.Status
	}
	if p.Has(FieldDescription) {
		merged.Description = detail.Description
	}
	if p.Has(FieldRequester) {
		merged.RequesterName = detail.RequesterName
	}
	if p.Has(FieldCreatedAt) {
		merged.CreatedAt = detail.CreatedAt
	}
	if p.Has(FieldUpdatedAt) {
		merged.UpdatedAt = detail.UpdatedAt
	}
	if p.Has(FieldResolvedAt) {
		merged.ResolvedAt = detail.ResolvedAt
	}
	if p.Has(FieldAttachments) {
		merged.Attachments = append([]Attachment(nil), detail.Attachments...)
	}
	merged.Present = row.Present | detail.Present
	if p.Has(FieldStatus) || p.Has(FieldResolvedAt) {
		merged.EnforceResolution()
	}
	return merged
}

// TicketPage is one page of a paginated ticket listing.
type TicketPage struct {
	Items       []Ticket
	CurrentPage int
	LastPage    int
}
