package service

import "github.com/spec-kit/helpdesk-client/internal/domain"

// Reasons a chat composer is locked.
const (
	ReasonTicketNotFound = "ticket not found"
	ReasonAwaitingAdmin  = "waiting for admin to open the ticket"
	ReasonUnderReview    = "ticket under review"
	ReasonTicketClosed   = "ticket closed"
)

// Decision is the outcome of a chat gate check.
type Decision struct {
	Allowed bool
	Reason  string
}

// CanSend decides whether role may post to the chat of ticket. Admins are
// never blocked by status.
func CanSend(ticket *domain.Ticket, role domain.Role) Decision {
	if ticket == nil {
		return Decision{Reason: ReasonTicketNotFound}
	}
	if role == domain.RoleAdmin {
		return Decision{Allowed: true}
	}
	switch ticket.Status {
	case domain.TicketStatusOpen:
		return Decision{Reason: ReasonAwaitingAdmin}
	case domain.TicketStatusInReview:
		return Decision{Reason: ReasonUnderReview}
	case domain.TicketStatusResolved:
		return Decision{Reason: ReasonTicketClosed}
	}
	return Decision{Allowed: true}
}
