package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-client/internal/auth"
	"github.com/spec-kit/helpdesk-client/internal/domain"
	"github.com/spec-kit/helpdesk-client/internal/events"
	"github.com/spec-kit/helpdesk-client/internal/normalize"
	"github.com/spec-kit/helpdesk-client/internal/repository"
	"github.com/spec-kit/helpdesk-client/pkg/util/errorutil"
)

// UnderReviewMessage is posted to the chat when a ticket enters review.
const UnderReviewMessage = "Ticket is now under review"

var allowedTransitions = map[domain.TicketStatus]domain.TicketStatus{
	domain.TicketStatusOpen:       domain.TicketStatusInReview,
	domain.TicketStatusInReview:   domain.TicketStatusInProgress,
	domain.TicketStatusInProgress: domain.TicketStatusResolved,
}

// Next returns the single legal successor of status. ok is false for the
// terminal status and for unknown values.
func Next(status domain.TicketStatus) (next domain.TicketStatus, ok bool) {
	next, ok = allowedTransitions[status]
	return next, ok
}

// IsValidTransition reports whether from→to is a lifecycle edge.
func IsValidTransition(from, to domain.TicketStatus) bool {
	next, ok := allowedTransitions[from]
	return ok && next == to
}

// StatusMachine moves tickets along the lifecycle on behalf of admins.
type StatusMachine struct {
	tickets    repository.TicketRepository
	messages   repository.TicketMessageRepository
	dispatcher events.Dispatcher
	session    domain.SessionContext
	logger     *zap.Logger
	now        func() time.Time
}

// StatusMachineDependencies bundles collaborators for the status machine.
type StatusMachineDependencies struct {
	TicketRepo  repository.TicketRepository
	MessageRepo repository.TicketMessageRepository
	Dispatcher  events.Dispatcher
	Session     domain.SessionContext
	Logger      *zap.Logger
}

// NewStatusMachine constructs the status machine.
func NewStatusMachine(deps StatusMachineDependencies) *StatusMachine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusMachine{
		tickets:    deps.TicketRepo,
		messages:   deps.MessageRepo,
		dispatcher: deps.Dispatcher,
		session:    deps.Session,
		logger:     logger,
		now:        time.Now,
	}
}

// Transition persists ticket's move to target and returns the updated
// ticket. Role and edge checks run before any request; on failure the
// caller's ticket is returned untouched together with the error.
func (m *StatusMachine) Transition(ctx context.Context, ticket domain.Ticket, target domain.TicketStatus, role domain.Role) (domain.Ticket, error) {
	if err := auth.RequireAdmin(role); err != nil {
		return ticket, errorutil.NewForbidden("only admins can change ticket status")
	}
	if !IsValidTransition(ticket.Status, target) {
		return ticket, errorutil.NewIllegalTransition(string(ticket.Status), string(target))
	}

	persisted, err := m.tickets.UpdateStatus(ctx, ticket.Ref, target)
	if err != nil {
		m.logger.Warn("status update failed",
			zap.String("ticket", ticket.Ref.Display()),
			zap.String("target", string(target)),
			zap.Error(err))
		return ticket, err
	}

	updated := domain.MergeTicket(ticket, persisted)
	if !persisted.Present.Has(domain.FieldStatus) {
		updated.Status = target
		updated.Present |= domain.FieldStatus
		if target == domain.TicketStatusResolved && updated.ResolvedAt == nil {
			updated.ResolvedAt = &domain.Timestamp{At: m.now().UTC()}
		}
		updated.EnforceResolution()
	}

	m.logger.Info("ticket status changed",
		zap.String("ticket", updated.Ref.Display()),
		zap.String("from", string(ticket.Status)),
		zap.String("to", string(updated.Status)))
	m.publish(ctx, events.EventTicketStatusChanged, updated.Ref, events.TicketStatusChangedPayload{
		OldStatus: ticket.Status,
		NewStatus: updated.Status,
		Ticket:    updated,
	})

	if ticket.Status == domain.TicketStatusOpen && target == domain.TicketStatusInReview {
		m.announceReview(ctx, updated.Ref)
	}
	return updated, nil
}

// Reopen is not offered by the lifecycle.
func (m *StatusMachine) Reopen(_ context.Context, ticket domain.Ticket, _ domain.Role) (domain.Ticket, error) {
	return ticket, errorutil.NewUnsupported("reopening a ticket")
}

// announceReview posts the system message. Failures are logged only.
func (m *StatusMachine) announceReview(ctx context.Context, ref domain.TicketRef) {
	if m.messages == nil {
		return
	}
	msg, err := m.messages.Create(ctx, ref, repository.MessageInput{Body: UnderReviewMessage})
	if err != nil {
		m.logger.Warn("review notice not posted", zap.String("ticket", ref.Display()), zap.Error(err))
		return
	}
	if msg.Body == "" {
		msg.Body = UnderReviewMessage
	}
	if msg.SenderName == "" {
		msg.SenderName = normalize.SystemSender
	}
	if msg.SenderRole == "" {
		msg.SenderRole = domain.RoleAdmin
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = domain.Timestamp{At: m.now().UTC()}
	}
	m.publish(ctx, events.EventTicketMessageAdded, ref, events.TicketMessageAddedPayload{
		Ref:     ref,
		Message: msg,
		System:  true,
	})
}

func (m *StatusMachine) publish(ctx context.Context, eventType events.EventType, ref domain.TicketRef, payload interface{}) {
	if m.dispatcher == nil {
		return
	}
	_ = m.dispatcher.Publish(ctx, events.NewEvent(eventType, ref.Key(), m.session.Actor, payload))
}
