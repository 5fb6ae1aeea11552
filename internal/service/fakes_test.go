package service

import (
	"context"
	"strconv"
	"sync"

	"github.com/spec-kit/helpdesk-client/internal/api/dto"
	"github.com/spec-kit/helpdesk-client/internal/domain"
	"github.com/spec-kit/helpdesk-client/internal/repository"
	"github.com/spec-kit/helpdesk-client/pkg/util/errorutil"
)

type fakeMessageRepo struct {
	mu        sync.Mutex
	byTicket  map[string][]domain.Message
	listErr   error
	createErr error
	lists     int
	creates   []createCall
	nextID    int
	// listGate and createGate, when set, block the call until closed.
	listGate   chan struct{}
	createGate chan struct{}
	// beforeCreateReturn runs after the message is stored server-side.
	beforeCreateReturn func()
}

type createCall struct {
	Ref   domain.TicketRef
	Input repository.MessageInput
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{byTicket: map[string][]domain.Message{}, nextID: 100}
}

func (f *fakeMessageRepo) seed(ref domain.TicketRef, msgs ...domain.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byTicket[ref.Key()] = append(f.byTicket[ref.Key()], msgs...)
}

func (f *fakeMessageRepo) stored(ref domain.TicketRef) []domain.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Message(nil), f.byTicket[ref.Key()]...)
}

func (f *fakeMessageRepo) createCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.creates)
}

func (f *fakeMessageRepo) ListByTicket(_ context.Context, ref domain.TicketRef) ([]domain.Message, error) {
	f.mu.Lock()
	gate := f.listGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]domain.Message(nil), f.byTicket[ref.Key()]...), nil
}

func (f *fakeMessageRepo) Create(_ context.Context, ref domain.TicketRef, input repository.MessageInput) (domain.Message, error) {
	f.mu.Lock()
	f.creates = append(f.creates, createCall{Ref: ref, Input: input})
	gate := f.createGate
	err := f.createErr
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err != nil {
		return domain.Message{}, err
	}

	f.mu.Lock()
	f.nextID++
	msg := domain.Message{
		ID:       strconv.Itoa(f.nextID),
		TicketID: ref.Key(),
		Body:     input.Body,
	}
	f.byTicket[ref.Key()] = append(f.byTicket[ref.Key()], msg)
	hook := f.beforeCreateReturn
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return msg, nil
}

type fakeTicketRepo struct {
	mu        sync.Mutex
	page      domain.TicketPage
	listErr   error
	details   map[string]domain.Ticket
	detailErr error
	detailN   int
	updates   []domain.TicketStatus
	updateErr error
	// respond builds the UpdateStatus response; nil echoes the status.
	respond func(ref domain.TicketRef, status domain.TicketStatus) domain.Ticket
	// detailGate, when set, blocks GetDetail until closed.
	detailGate chan struct{}
}

func (f *fakeTicketRepo) List(_ context.Context, _ dto.TicketListQuery) (domain.TicketPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return domain.TicketPage{}, f.listErr
	}
	return f.page, nil
}

func (f *fakeTicketRepo) GetDetail(_ context.Context, ref domain.TicketRef) (domain.Ticket, error) {
	f.mu.Lock()
	f.detailN++
	gate := f.detailGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.detailErr != nil {
		return domain.Ticket{}, f.detailErr
	}
	detail, ok := f.details[ref.Key()]
	if !ok {
		return domain.Ticket{}, errorutil.NewNotFound("ticket", nil)
	}
	return detail, nil
}

func (f *fakeTicketRepo) UpdateStatus(_ context.Context, ref domain.TicketRef, status domain.TicketStatus) (domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, status)
	if f.updateErr != nil {
		return domain.Ticket{}, f.updateErr
	}
	if f.respond != nil {
		return f.respond(ref, status), nil
	}
	return domain.Ticket{Ref: ref, Status: status, Present: domain.FieldStatus}, nil
}

func (f *fakeTicketRepo) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updates)
}

func ticketWith(code, id string, status domain.TicketStatus) domain.Ticket {
	return domain.Ticket{
		Ref:     domain.TicketRef{Code: code, InternalID: id},
		Title:   "Printer offline",
		Status:  status,
		Present: domain.FieldCode | domain.FieldInternalID | domain.FieldTitle | domain.FieldStatus,
	}
}

func message(id, body string) domain.Message {
	return domain.Message{ID: id, Body: body, SenderRole: domain.RoleUser}
}

func sessionAs(role domain.Role) domain.SessionContext {
	return domain.SessionContext{Token: "token", Actor: domain.Actor{ID: "u-1", Name: "Ana", Role: role}}
}
