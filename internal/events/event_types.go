package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-client/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketStatusChanged  EventType = "ticket_status_changed"
	EventTicketMessageAdded   EventType = "ticket_message_added"
	EventTicketMessagesSynced EventType = "ticket_messages_synced"
)

// Event represents a client-side domain event.
type Event struct {
	ID        string       `json:"id"`
	Type      EventType    `json:"type"`
	TicketID  string       `json:"ticket_id"`
	Actor     domain.Actor `json:"actor"`
	Timestamp time.Time    `json:"timestamp"`
	Payload   interface{}  `json:"payload"`
}

// TicketStatusChangedPayload carries the ticket after a persisted transition.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Ticket    domain.Ticket       `json:"ticket"`
}

// TicketMessageAddedPayload carries a message posted by this client.
type TicketMessageAddedPayload struct {
	Ref     domain.TicketRef `json:"ref"`
	Message domain.Message   `json:"message"`
	System  bool             `json:"system"`
}

// TicketMessagesSyncedPayload lists messages a poll saw for the first time.
type TicketMessagesSyncedPayload struct {
	Ref   domain.TicketRef `json:"ref"`
	New   []domain.Message `json:"new"`
	Total int              `json:"total"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType EventType, ticketID string, actor domain.Actor, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}
