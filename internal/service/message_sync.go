package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-client/internal/config"
	"github.com/spec-kit/helpdesk-client/internal/domain"
	"github.com/spec-kit/helpdesk-client/internal/events"
	"github.com/spec-kit/helpdesk-client/internal/repository"
	"github.com/spec-kit/helpdesk-client/internal/worker"
	"github.com/spec-kit/helpdesk-client/pkg/util/errorutil"
)

// Draft is the unsent content of the chat composer.
type Draft struct {
	Body  string
	Files []repository.FileInput
}

// Empty reports whether the draft has neither text nor files.
func (d Draft) Empty() bool {
	return strings.TrimSpace(d.Body) == "" && len(d.Files) == 0
}

// ChatState is a copy of the synchronizer state for rendering.
type ChatState struct {
	Ref      domain.TicketRef
	Messages []domain.Message
	Loading  bool
	Sending  bool
	LoadErr  error
	SendErr  error
	Draft    Draft
	Gate     Decision
}

// MessageSyncDependencies bundles collaborators for a chat view.
type MessageSyncDependencies struct {
	MessageRepo  repository.TicketMessageRepository
	Dispatcher   events.Dispatcher
	Session      domain.SessionContext
	Logger       *zap.Logger
	PollInterval time.Duration
	MergePolicy  string
	// OnChange, when set, receives a snapshot after every state change.
	OnChange func(ChatState)
}

// MessageSync keeps the message list of one open ticket in step with the
// backend: one foreground load, then silent polling until Cancel.
type MessageSync struct {
	messages   repository.TicketMessageRepository
	dispatcher events.Dispatcher
	session    domain.SessionContext
	logger     *zap.Logger
	interval   time.Duration
	policy     string
	onChange   func(ChatState)

	mu          sync.Mutex
	generation  uint64
	active      bool
	ticket      *domain.Ticket
	ref         domain.TicketRef
	list        []domain.Message
	loading     bool
	sending     bool
	loadErr     error
	sendErr     error
	draft       Draft
	poller      *worker.Poller
	cancelCtx   context.CancelFunc
	unsubscribe []func()
}

// NewMessageSync constructs an idle synchronizer.
func NewMessageSync(deps MessageSyncDependencies) *MessageSync {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := deps.PollInterval
	if interval <= 0 {
		interval = worker.DefaultPollInterval
	}
	policy := deps.MergePolicy
	if policy != config.MergePolicyMerge {
		policy = config.MergePolicyReplace
	}
	return &MessageSync{
		messages:   deps.MessageRepo,
		dispatcher: deps.Dispatcher,
		session:    deps.Session,
		logger:     logger,
		interval:   interval,
		policy:     policy,
		onChange:   deps.OnChange,
	}
}

// Open activates the view for ticket: a blocking load with the loading flag
// raised, then background polling. A previous activation is cancelled first.
// The returned error is the foreground load failure, if any; polling starts
// regardless.
func (s *MessageSync) Open(ctx context.Context, ticket *domain.Ticket) error {
	s.Cancel()
	if ticket == nil {
		s.mu.Lock()
		s.ticket = nil
		s.ref = domain.TicketRef{}
		s.list = nil
		s.mu.Unlock()
		return errorutil.NewNotFound("ticket", nil)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	t := *ticket

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.ticket = &t
	s.ref = t.Ref
	s.list = nil
	s.loadErr = nil
	s.sendErr = nil
	s.sending = false
	s.draft = Draft{}
	s.loading = true
	s.active = true
	s.cancelCtx = cancel
	s.mu.Unlock()
	s.notify()

	s.subscribe(gen)

	msgs, err := s.messages.ListByTicket(ctx, t.Ref)
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return err
	}
	s.loading = false
	if err != nil {
		s.loadErr = err
		s.logger.Warn("chat load failed", zap.String("ticket", t.Ref.Display()), zap.Error(err))
	} else {
		s.list = msgs
	}
	poller := worker.NewPoller(s.interval, s.logger)
	s.poller = poller
	s.mu.Unlock()
	s.notify()

	poller.Start(func() { s.poll(runCtx, gen) })
	return err
}

// Cancel tears the view down. Requests already in flight complete but
// their results are discarded.
func (s *MessageSync) Cancel() {
	s.mu.Lock()
	s.generation++
	s.active = false
	poller := s.poller
	cancel := s.cancelCtx
	unsubscribe := s.unsubscribe
	s.poller = nil
	s.cancelCtx = nil
	s.unsubscribe = nil
	s.mu.Unlock()

	if poller != nil {
		poller.Stop()
	}
	if cancel != nil {
		cancel()
	}
	for _, fn := range unsubscribe {
		fn()
	}
}

// Refresh runs one background poll immediately.
func (s *MessageSync) Refresh(ctx context.Context) {
	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()
	s.poll(ctx, gen)
}

// poll fetches the list silently. Errors are logged at debug level and the
// next tick retries.
func (s *MessageSync) poll(ctx context.Context, gen uint64) {
	s.mu.Lock()
	if gen != s.generation || !s.active {
		s.mu.Unlock()
		return
	}
	ref := s.ref
	s.mu.Unlock()

	msgs, err := s.messages.ListByTicket(ctx, ref)
	if err != nil {
		s.logger.Debug("chat poll failed", zap.String("ticket", ref.Display()), zap.Error(err))
		return
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	fresh := unseen(s.list, msgs)
	if s.policy == config.MergePolicyMerge {
		s.list = mergeByID(s.list, msgs)
	} else {
		s.list = msgs
	}
	total := len(s.list)
	s.mu.Unlock()
	s.notify()

	if len(fresh) > 0 {
		s.publish(ctx, events.EventTicketMessagesSynced, ref, events.TicketMessagesSyncedPayload{
			Ref:   ref,
			New:   fresh,
			Total: total,
		})
	}
}

// SetDraft replaces the composer content.
func (s *MessageSync) SetDraft(body string, files []repository.FileInput) {
	s.mu.Lock()
	s.draft = Draft{Body: body, Files: append([]repository.FileInput(nil), files...)}
	s.mu.Unlock()
	s.notify()
}

// Send replaces the draft and sends it.
func (s *MessageSync) Send(ctx context.Context, body string, files []repository.FileInput) (domain.Message, error) {
	s.SetDraft(body, files)
	return s.SendDraft(ctx)
}

// SendDraft posts the composer content. The chat gate and the empty check
// run before any request. On success the returned message is appended and
// the draft cleared; on failure the draft is kept.
func (s *MessageSync) SendDraft(ctx context.Context) (domain.Message, error) {
	s.mu.Lock()
	decision := CanSend(s.ticket, s.session.Actor.Role)
	if !decision.Allowed {
		err := errorutil.NewForbidden(decision.Reason)
		s.sendErr = err
		s.mu.Unlock()
		s.notify()
		return domain.Message{}, err
	}
	if s.draft.Empty() {
		err := errorutil.NewValidationError("message cannot be empty", nil)
		s.sendErr = err
		s.mu.Unlock()
		s.notify()
		return domain.Message{}, err
	}
	if s.sending {
		s.mu.Unlock()
		return domain.Message{}, errorutil.NewConflict("a message is already being sent", nil)
	}
	gen := s.generation
	ref := s.ref
	input := repository.MessageInput{Body: strings.TrimSpace(s.draft.Body), Files: s.draft.Files}
	s.sending = true
	s.sendErr = nil
	s.mu.Unlock()
	s.notify()

	msg, err := s.messages.Create(ctx, ref, input)

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return msg, err
	}
	s.sending = false
	if err != nil {
		s.sendErr = err
		s.mu.Unlock()
		s.notify()
		s.logger.Warn("chat send failed", zap.String("ticket", ref.Display()), zap.Error(err))
		return domain.Message{}, err
	}
	if msg.SenderID == "" {
		msg.SenderID = s.session.Actor.ID
	}
	if msg.SenderRole == "" {
		msg.SenderRole = s.session.Actor.Role
	}
	s.list = appendUnique(s.list, msg)
	s.draft = Draft{}
	s.mu.Unlock()
	s.notify()

	s.publish(ctx, events.EventTicketMessageAdded, ref, events.TicketMessageAddedPayload{Ref: ref, Message: msg})
	return msg, nil
}

// Rendered returns the message list deduplicated by id and ordered by send
// time, ties kept in arrival order.
func (s *MessageSync) Rendered() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return render(s.list)
}

// Snapshot returns a copy of the current state.
func (s *MessageSync) Snapshot() ChatState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *MessageSync) snapshotLocked() ChatState {
	return ChatState{
		Ref:      s.ref,
		Messages: render(s.list),
		Loading:  s.loading,
		Sending:  s.sending,
		LoadErr:  s.loadErr,
		SendErr:  s.sendErr,
		Draft:    Draft{Body: s.draft.Body, Files: append([]repository.FileInput(nil), s.draft.Files...)},
		Gate:     CanSend(s.ticket, s.session.Actor.Role),
	}
}

func (s *MessageSync) notify() {
	if s.onChange == nil {
		return
	}
	s.onChange(s.Snapshot())
}

// subscribe follows status changes and messages posted elsewhere in the
// client for the ticket of generation gen.
func (s *MessageSync) subscribe(gen uint64) {
	if s.dispatcher == nil {
		return
	}
	onStatus := s.dispatcher.Subscribe(events.EventTicketStatusChanged, func(_ context.Context, e events.Event) error {
		payload, ok := e.Payload.(events.TicketStatusChangedPayload)
		if !ok {
			return nil
		}
		s.mu.Lock()
		if gen != s.generation || !s.ref.Same(payload.Ticket.Ref) {
			s.mu.Unlock()
			return nil
		}
		t := payload.Ticket
		s.ticket = &t
		s.mu.Unlock()
		s.notify()
		return nil
	})
	onMessage := s.dispatcher.Subscribe(events.EventTicketMessageAdded, func(_ context.Context, e events.Event) error {
		payload, ok := e.Payload.(events.TicketMessageAddedPayload)
		if !ok {
			return nil
		}
		s.mu.Lock()
		if gen != s.generation || !s.ref.Same(payload.Ref) {
			s.mu.Unlock()
			return nil
		}
		s.list = appendUnique(s.list, payload.Message)
		s.mu.Unlock()
		s.notify()
		return nil
	})

	s.mu.Lock()
	if gen == s.generation {
		s.unsubscribe = append(s.unsubscribe, onStatus, onMessage)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	onStatus()
	onMessage()
}

func (s *MessageSync) publish(ctx context.Context, eventType events.EventType, ref domain.TicketRef, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.NewEvent(eventType, ref.Key(), s.session.Actor, payload))
}

// messageKey identifies a message. Messages without an id fall back to
// sender, time and body.
func messageKey(m domain.Message) string {
	if m.ID != "" {
		return "id:" + m.ID
	}
	return "anon:" + m.SenderID + "|" + m.SentAt.Raw + "|" + m.Body
}

func appendUnique(list []domain.Message, msg domain.Message) []domain.Message {
	key := messageKey(msg)
	for _, m := range list {
		if messageKey(m) == key {
			return list
		}
	}
	return append(list, msg)
}

// mergeByID updates known messages in place and appends new ones in server
// order, so already displayed messages never move.
func mergeByID(current, incoming []domain.Message) []domain.Message {
	out := append([]domain.Message(nil), current...)
	index := make(map[string]int, len(out))
	for i, m := range out {
		index[messageKey(m)] = i
	}
	for _, m := range incoming {
		key := messageKey(m)
		if i, ok := index[key]; ok {
			out[i] = m
			continue
		}
		index[key] = len(out)
		out = append(out, m)
	}
	return out
}

func unseen(current, incoming []domain.Message) []domain.Message {
	known := make(map[string]struct{}, len(current))
	for _, m := range current {
		known[messageKey(m)] = struct{}{}
	}
	var fresh []domain.Message
	for _, m := range incoming {
		if _, ok := known[messageKey(m)]; !ok {
			fresh = append(fresh, m)
		}
	}
	return fresh
}

func render(list []domain.Message) []domain.Message {
	out := make([]domain.Message, 0, len(list))
	seen := make(map[string]struct{}, len(list))
	for _, m := range list {
		key := messageKey(m)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].SentAt, out[j].SentAt
		return a.Valid() && b.Valid() && a.At.Before(b.At)
	})
	return out
}
