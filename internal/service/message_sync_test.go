package service

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/spec-kit/helpdesk-client/internal/config"
	"github.com/spec-kit/helpdesk-client/internal/domain"
	"github.com/spec-kit/helpdesk-client/internal/events"
	"github.com/spec-kit/helpdesk-client/internal/repository"
	"github.com/spec-kit/helpdesk-client/pkg/util/errorutil"
)

func newSync(t *testing.T, repo *fakeMessageRepo, role domain.Role, policy string) (*MessageSync, events.Dispatcher) {
	t.Helper()
	d := events.NewInMemoryDispatcher(nil)
	s := NewMessageSync(MessageSyncDependencies{
		MessageRepo: repo,
		Dispatcher:  d,
		Session:     sessionAs(role),
		MergePolicy: policy,
	})
	t.Cleanup(s.Cancel)
	return s, d
}

func ids(msgs []domain.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ID)
	}
	return out
}

func TestUserCannotSendOnOpenTicket(t *testing.T) {
	repo := newFakeMessageRepo()
	s, _ := newSync(t, repo, domain.RoleUser, "")
	ticket := ticketWith("TCK-1", "1", domain.TicketStatusOpen)
	if err := s.Open(context.Background(), &ticket); err != nil {
		t.Fatalf("open: %v", err)
	}

	_, err := s.Send(context.Background(), "hello", nil)
	if !errorutil.Is(err, errorutil.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
	if got := errorutil.ToDomainError(err).Message; got != ReasonAwaitingAdmin {
		t.Fatalf("reason = %q", got)
	}
	if repo.createCount() != 0 {
		t.Fatalf("expected no network call, got %d", repo.createCount())
	}
	if s.Snapshot().Draft.Body != "hello" {
		t.Fatal("draft should be kept after a rejected send")
	}
}

func TestEmptyMessageRejectedLocally(t *testing.T) {
	repo := newFakeMessageRepo()
	s, _ := newSync(t, repo, domain.RoleUser, "")
	ticket := ticketWith("TCK-1", "1", domain.TicketStatusInProgress)
	_ = s.Open(context.Background(), &ticket)

	_, err := s.Send(context.Background(), "   ", nil)
	if !errorutil.Is(err, errorutil.CodeValidationFailed) {
		t.Fatalf("expected VALIDATION_FAILED, got %v", err)
	}
	if repo.createCount() != 0 {
		t.Fatal("expected no network call")
	}

	if _, err := s.Send(context.Background(), "", []repository.FileInput{{Name: "log.txt", Content: []byte("x")}}); err != nil {
		t.Fatalf("attachment-only message rejected: %v", err)
	}
}

func TestSendAppendsAndClearsDraft(t *testing.T) {
	repo := newFakeMessageRepo()
	ticket := ticketWith("TCK-1", "1", domain.TicketStatusInProgress)
	repo.seed(ticket.Ref, message("1", "first"))
	s, d := newSync(t, repo, domain.RoleUser, "")

	var added []events.TicketMessageAddedPayload
	d.Subscribe(events.EventTicketMessageAdded, func(_ context.Context, e events.Event) error {
		added = append(added, e.Payload.(events.TicketMessageAddedPayload))
		return nil
	})

	if err := s.Open(context.Background(), &ticket); err != nil {
		t.Fatalf("open: %v", err)
	}
	msg, err := s.Send(context.Background(), "  thanks  ", nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.Body != "thanks" || msg.SenderID != "u-1" {
		t.Fatalf("unexpected message %+v", msg)
	}

	state := s.Snapshot()
	if diff := cmp.Diff([]string{"1", msg.ID}, ids(state.Messages)); diff != "" {
		t.Fatalf("messages (-want +got):\n%s", diff)
	}
	if state.Draft.Body != "" || state.Sending || state.SendErr != nil {
		t.Fatalf("unexpected state after send: %+v", state)
	}
	if len(added) != 1 || added[0].System {
		t.Fatalf("expected one MessageAdded event, got %+v", added)
	}
}

func TestFailedSendKeepsDraft(t *testing.T) {
	repo := newFakeMessageRepo()
	repo.createErr = errorutil.NewNetworkFailure(500, "backend down", nil)
	ticket := ticketWith("TCK-1", "1", domain.TicketStatusInProgress)
	s, _ := newSync(t, repo, domain.RoleUser, "")
	_ = s.Open(context.Background(), &ticket)

	files := []repository.FileInput{{Name: "a.png", Content: []byte{1}}}
	if _, err := s.Send(context.Background(), "retry me", files); !errorutil.Is(err, errorutil.CodeNetworkFailure) {
		t.Fatalf("expected NETWORK_FAILURE, got %v", err)
	}
	state := s.Snapshot()
	if state.Draft.Body != "retry me" || len(state.Draft.Files) != 1 {
		t.Fatalf("draft lost: %+v", state.Draft)
	}
	if state.SendErr == nil || state.Sending {
		t.Fatalf("expected surfaced send error, got %+v", state)
	}
	if len(state.Messages) != 0 {
		t.Fatalf("nothing should be appended, got %v", ids(state.Messages))
	}
}

func TestForegroundLoadFailureIsSurfaced(t *testing.T) {
	repo := newFakeMessageRepo()
	repo.listErr = errors.New("dial tcp: refused")
	ticket := ticketWith("TCK-1", "1", domain.TicketStatusInProgress)
	s, _ := newSync(t, repo, domain.RoleAdmin, "")

	if err := s.Open(context.Background(), &ticket); err == nil {
		t.Fatal("expected load error")
	}
	state := s.Snapshot()
	if state.Loading || state.LoadErr == nil {
		t.Fatalf("expected loading=false with error, got %+v", state)
	}
}

func TestBackgroundPollReplacesAndSwallowsErrors(t *testing.T) {
	repo := newFakeMessageRepo()
	ticket := ticketWith("TCK-1", "1", domain.TicketStatusInProgress)
	repo.seed(ticket.Ref, message("1", "a"))
	s, _ := newSync(t, repo, domain.RoleUser, config.MergePolicyReplace)
	_ = s.Open(context.Background(), &ticket)

	repo.seed(ticket.Ref, message("2", "b"))
	s.Refresh(context.Background())
	if diff := cmp.Diff([]string{"1", "2"}, ids(s.Rendered())); diff != "" {
		t.Fatalf("after poll (-want +got):\n%s", diff)
	}

	repo.mu.Lock()
	repo.listErr = errors.New("timeout")
	repo.mu.Unlock()
	s.Refresh(context.Background())

	state := s.Snapshot()
	if state.LoadErr != nil || state.Loading {
		t.Fatalf("poll failure must stay silent, got %+v", state)
	}
	if len(state.Messages) != 2 {
		t.Fatalf("poll failure must keep the list, got %v", ids(state.Messages))
	}
}

func TestPollLandingBeforeSendReturnsDoesNotDuplicate(t *testing.T) {
	repo := newFakeMessageRepo()
	ticket := ticketWith("TCK-1", "1", domain.TicketStatusInProgress)
	repo.seed(ticket.Ref, message("1", "a"))
	s, _ := newSync(t, repo, domain.RoleUser, config.MergePolicyReplace)
	_ = s.Open(context.Background(), &ticket)

	repo.beforeCreateReturn = func() { s.Refresh(context.Background()) }
	msg, err := s.Send(context.Background(), "b", nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if diff := cmp.Diff([]string{"1", msg.ID}, ids(s.Rendered())); diff != "" {
		t.Fatalf("rendered (-want +got):\n%s", diff)
	}
}

func TestRenderDedupesByID(t *testing.T) {
	list := []domain.Message{message("1", "a"), message("2", "b"), message("2", "b")}
	if diff := cmp.Diff([]string{"1", "2"}, ids(render(list))); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestRenderOrdersBySentAtKeepingTies(t *testing.T) {
	at := func(id, raw string) domain.Message {
		m := message(id, id)
		m.SentAt = domain.Timestamp{Raw: raw, At: mustParse(t, raw)}
		return m
	}
	list := []domain.Message{
		at("b", "2025-11-10T10:31:00Z"),
		at("a", "2025-11-10T10:30:00Z"),
		at("c", "2025-11-10T10:31:00Z"),
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, ids(render(list))); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func mustParse(t *testing.T, raw string) time.Time {
	t.Helper()
	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		t.Fatal(err)
	}
	return at
}

func TestMergePolicyKeepsDisplayedOrder(t *testing.T) {
	repo := newFakeMessageRepo()
	ticket := ticketWith("TCK-1", "1", domain.TicketStatusInProgress)
	repo.seed(ticket.Ref, message("1", "a"), message("2", "b"))
	s, _ := newSync(t, repo, domain.RoleUser, config.MergePolicyMerge)
	_ = s.Open(context.Background(), &ticket)

	repo.mu.Lock()
	repo.byTicket[ticket.Ref.Key()] = []domain.Message{message("2", "b edited"), message("3", "c")}
	repo.mu.Unlock()
	s.Refresh(context.Background())

	got := s.Rendered()
	if diff := cmp.Diff([]string{"1", "2", "3"}, ids(got)); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if got[1].Body != "b edited" {
		t.Fatalf("known message not updated: %+v", got[1])
	}
}

func TestCancelDiscardsInFlightPoll(t *testing.T) {
	repo := newFakeMessageRepo()
	ticket := ticketWith("TCK-1", "1", domain.TicketStatusInProgress)
	repo.seed(ticket.Ref, message("1", "a"))
	s, _ := newSync(t, repo, domain.RoleUser, "")
	_ = s.Open(context.Background(), &ticket)

	gate := make(chan struct{})
	repo.mu.Lock()
	repo.listGate = gate
	repo.byTicket[ticket.Ref.Key()] = []domain.Message{message("9", "stale")}
	repo.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Refresh(context.Background())
	}()

	s.Cancel()
	close(gate)
	wg.Wait()

	if diff := cmp.Diff([]string{"1"}, ids(s.Rendered())); diff != "" {
		t.Fatalf("stale poll mutated state (-want +got):\n%s", diff)
	}
}

func TestConcurrentSendIsRejected(t *testing.T) {
	repo := newFakeMessageRepo()
	repo.createGate = make(chan struct{})
	ticket := ticketWith("TCK-1", "1", domain.TicketStatusInProgress)
	s, _ := newSync(t, repo, domain.RoleAdmin, "")
	_ = s.Open(context.Background(), &ticket)
	s.SetDraft("first", nil)

	done := make(chan error, 1)
	go func() {
		_, err := s.SendDraft(context.Background())
		done <- err
	}()
	for repo.createCount() == 0 {
		runtime.Gosched()
	}

	if _, err := s.SendDraft(context.Background()); !errorutil.Is(err, errorutil.CodeConflict) {
		t.Fatalf("expected CONFLICT, got %v", err)
	}
	close(repo.createGate)
	if err := <-done; err != nil {
		t.Fatalf("first send: %v", err)
	}
	if repo.createCount() != 1 {
		t.Fatalf("expected a single request, got %d", repo.createCount())
	}
}

func TestStatusChangeUpdatesGate(t *testing.T) {
	repo := newFakeMessageRepo()
	ticket := ticketWith("TCK-1", "1", domain.TicketStatusInReview)
	s, d := newSync(t, repo, domain.RoleUser, "")
	_ = s.Open(context.Background(), &ticket)

	if s.Snapshot().Gate.Reason != ReasonUnderReview {
		t.Fatalf("unexpected gate %+v", s.Snapshot().Gate)
	}

	moved := ticket
	moved.Status = domain.TicketStatusInProgress
	_ = d.Publish(context.Background(), events.NewEvent(events.EventTicketStatusChanged, "1", domain.Actor{},
		events.TicketStatusChangedPayload{OldStatus: ticket.Status, NewStatus: moved.Status, Ticket: moved}))

	if !s.Snapshot().Gate.Allowed {
		t.Fatalf("gate should open after IN_PROGRESS, got %+v", s.Snapshot().Gate)
	}
}

func TestOpenWithoutTicket(t *testing.T) {
	s, _ := newSync(t, newFakeMessageRepo(), domain.RoleAdmin, "")
	if err := s.Open(context.Background(), nil); !errorutil.Is(err, errorutil.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
	if _, err := s.Send(context.Background(), "hi", nil); !errorutil.Is(err, errorutil.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}
