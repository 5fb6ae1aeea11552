package normalize

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/spec-kit/helpdesk-client/internal/domain"
)

var ticketAliases = struct {
	Code, InternalID, Title, Category, Priority, Status, Description,
	Requester, CreatedAt, UpdatedAt, ResolvedAt, Attachments, SingleFile []string
}{
	Code:        []string{"code_ticket", "ticket_code", "code"},
	InternalID:  []string{"id_ticket", "ticket_id", "id"},
	Title:       []string{"title", "subject"},
	Category:    []string{"category.name", "category_name", "category"},
	Priority:    []string{"priority", "priority_level"},
	Status:      []string{"status", "ticket_status", "state"},
	Description: []string{"description", "desc", "content"},
	Requester:   []string{"user.name", "user_name", "requester.name", "requester_name"},
	CreatedAt:   []string{"created_at", "createdAt", "date"},
	UpdatedAt:   []string{"updated_at", "updatedAt"},
	ResolvedAt:  []string{"resolved_at", "resolvedAt", "closed_at"},
	Attachments: []string{"attachments", "files", "ticket_attachments"},
	SingleFile:  []string{"attachment", "file_path", "attachment_path"},
}

var statusAliases = map[string]domain.TicketStatus{
	"open":        domain.TicketStatusOpen,
	"new":         domain.TicketStatusOpen,
	"in_review":   domain.TicketStatusInReview,
	"in review":   domain.TicketStatusInReview,
	"review":      domain.TicketStatusInReview,
	"reviewing":   domain.TicketStatusInReview,
	"in_progress": domain.TicketStatusInProgress,
	"in progress": domain.TicketStatusInProgress,
	"progress":    domain.TicketStatusInProgress,
	"on_progress": domain.TicketStatusInProgress,
	"resolved":    domain.TicketStatusResolved,
	"closed":      domain.TicketStatusResolved,
	"done":        domain.TicketStatusResolved,
}

var priorityAliases = map[string]domain.TicketPriority{
	"low":    domain.TicketPriorityLow,
	"medium": domain.TicketPriorityMedium,
	"normal": domain.TicketPriorityMedium,
	"high":   domain.TicketPriorityHigh,
	"urgent": domain.TicketPriorityHigh,
}

// Status maps a backend status spelling onto the lifecycle. Unknown values
// report false.
func Status(raw string) (domain.TicketStatus, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.ReplaceAll(key, "-", "_")
	s, ok := statusAliases[key]
	return s, ok
}

// Priority maps a backend priority spelling onto LOW/MEDIUM/HIGH.
func Priority(raw string) (domain.TicketPriority, bool) {
	p, ok := priorityAliases[strings.ToLower(strings.TrimSpace(raw))]
	return p, ok
}

// Ticket reads one ticket record. Fields the payload carried are flagged in
// Present; absent fields keep their fallbacks. A ticket whose status is absent
// or unrecognized reads as OPEN without the status flag.
func (n *Normalizer) Ticket(r gjson.Result) domain.Ticket {
	r = UnwrapRecord(r)
	a := ticketAliases
	t := domain.Ticket{
		Status:      domain.TicketStatusOpen,
		Attachments: []domain.Attachment{},
	}

	if v, ok := firstString(r, a.Code); ok {
		t.Ref.Code = v
		t.Present |= domain.FieldCode
	}
	if v, ok := firstString(r, a.InternalID); ok {
		t.Ref.InternalID = v
		t.Present |= domain.FieldInternalID
	}
	t.Title = n.text(r, a.Title, &t.Present, domain.FieldTitle)
	t.Category = n.text(r, a.Category, &t.Present, domain.FieldCategory)
	t.Description = n.text(r, a.Description, &t.Present, domain.FieldDescription)
	t.RequesterName = n.text(r, a.Requester, &t.Present, domain.FieldRequester)

	if v, ok := firstString(r, a.Priority); ok {
		if p, known := Priority(v); known {
			t.Priority = p
			t.Present |= domain.FieldPriority
		}
	}
	if v, ok := firstString(r, a.Status); ok {
		if s, known := Status(v); known {
			t.Status = s
			t.Present |= domain.FieldStatus
		}
	}
	if v, ok := firstString(r, a.CreatedAt); ok {
		t.CreatedAt = Timestamp(v)
		t.Present |= domain.FieldCreatedAt
	}
	if v, ok := firstString(r, a.UpdatedAt); ok {
		t.UpdatedAt = Timestamp(v)
		t.Present |= domain.FieldUpdatedAt
	}
	if v, ok := firstString(r, a.ResolvedAt); ok {
		ts := Timestamp(v)
		t.ResolvedAt = &ts
		t.Present |= domain.FieldResolvedAt
	}

	if _, ok := first(r, a.Attachments); ok {
		t.Attachments = n.Attachments(r, a.Attachments)
		t.Present |= domain.FieldAttachments
	} else if v, ok := first(r, a.SingleFile); ok {
		att := n.Attachment(v)
		if att.Location() != "" {
			t.Attachments = append(t.Attachments, att)
			t.Present |= domain.FieldAttachments
		}
	}

	t.EnforceResolution()
	return t
}

// Tickets reads every ticket in a list envelope.
func (n *Normalizer) Tickets(raw []byte) []domain.Ticket {
	items := UnwrapList(Parse(raw))
	out := make([]domain.Ticket, 0, len(items))
	for _, item := range items {
		if !item.IsObject() {
			continue
		}
		out = append(out, n.Ticket(item))
	}
	return out
}

// TicketDetail reads a single-ticket envelope.
func (n *Normalizer) TicketDetail(raw []byte) domain.Ticket {
	return n.Ticket(Parse(raw))
}

// TicketPage reads a paginator envelope. A missing or malformed paginator
// yields an empty first page.
func (n *Normalizer) TicketPage(raw []byte) domain.TicketPage {
	page := n.UnwrapPage(Parse(raw))
	out := domain.TicketPage{
		Items:       make([]domain.Ticket, 0, len(page.Items)),
		CurrentPage: page.CurrentPage,
		LastPage:    page.LastPage,
	}
	for _, item := range page.Items {
		if !item.IsObject() {
			continue
		}
		out.Items = append(out.Items, n.Ticket(item))
	}
	return out
}

// text reads a display string, flagging presence, defaulting to Placeholder.
func (n *Normalizer) text(r gjson.Result, aliases []string, presentSet *domain.TicketField, flag domain.TicketField) string {
	if v, ok := firstString(r, aliases); ok {
		*presentSet |= flag
		return v
	}
	return Placeholder
}
