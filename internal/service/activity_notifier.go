package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-client/internal/events"
	"github.com/spec-kit/helpdesk-client/internal/normalize"
)

// ActivityNotifier reports ticket activity: status changes, messages posted
// by this client and messages picked up by polling.
type ActivityNotifier struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	norm       *normalize.Normalizer
	out        io.Writer
	selfID     string

	mu sync.Mutex
}

// NewActivityNotifier creates the notifier. out, when non-nil, receives a
// human readable line per event; selfID suppresses lines for the signed-in
// actor's own messages.
func NewActivityNotifier(dispatcher events.Dispatcher, logger *zap.Logger, norm *normalize.Normalizer, out io.Writer, selfID string) *ActivityNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityNotifier{
		dispatcher: dispatcher,
		logger:     logger,
		norm:       norm,
		out:        out,
		selfID:     selfID,
	}
}

// RegisterHandlers subscribes to events and returns a function removing
// the subscriptions.
func (n *ActivityNotifier) RegisterHandlers() func() {
	if n.dispatcher == nil {
		return func() {}
	}
	subs := []func(){
		n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleStatusChanged),
		n.dispatcher.Subscribe(events.EventTicketMessageAdded, n.handleMessageAdded),
		n.dispatcher.Subscribe(events.EventTicketMessagesSynced, n.handleMessagesSynced),
	}
	return func() {
		for _, unsubscribe := range subs {
			unsubscribe()
		}
	}
}

func (n *ActivityNotifier) handleStatusChanged(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	n.logger.Info("TicketStatusChanged",
		zap.String("ticket_id", event.TicketID),
		zap.String("from", string(payload.OldStatus)),
		zap.String("to", string(payload.NewStatus)))
	n.printf("%s: %s -> %s\n", payload.Ticket.Ref.Display(), payload.OldStatus.Label(), payload.NewStatus.Label())
	return nil
}

func (n *ActivityNotifier) handleMessageAdded(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketMessageAddedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	n.logger.Info("TicketMessageAdded",
		zap.String("ticket_id", event.TicketID),
		zap.String("message_id", payload.Message.ID),
		zap.Bool("system", payload.System))
	if payload.System {
		n.printf("%s: %s\n", payload.Ref.Display(), payload.Message.Body)
	}
	return nil
}

func (n *ActivityNotifier) handleMessagesSynced(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketMessagesSyncedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	n.logger.Debug("TicketMessagesSynced",
		zap.String("ticket_id", event.TicketID),
		zap.Int("new", len(payload.New)),
		zap.Int("total", payload.Total))
	for _, m := range payload.New {
		if n.selfID != "" && m.SenderID == n.selfID {
			continue
		}
		when := m.SentAt.Raw
		if n.norm != nil {
			when = n.norm.Display(m.SentAt)
		}
		n.printf("[%s] %s: %s\n", when, m.SenderName, preview(m.Body, 120))
	}
	return nil
}

func (n *ActivityNotifier) printf(format string, args ...any) {
	if n.out == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.out, format, args...)
}

func preview(body string, max int) string {
	body = strings.Join(strings.Fields(body), " ")
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
