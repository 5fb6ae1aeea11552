package repository

import (
	"context"
	"testing"

	"github.com/spec-kit/helpdesk-client/internal/api/dto"
	httptransport "github.com/spec-kit/helpdesk-client/internal/api/http"
	"github.com/spec-kit/helpdesk-client/internal/domain"
	"github.com/spec-kit/helpdesk-client/internal/normalize"
)

type recordedCall struct {
	method string
	path   string
	body   any
	form   httptransport.Multipart
}

type fakeRequester struct {
	calls     []recordedCall
	responses map[string][]byte
	err       error
}

func (f *fakeRequester) Get(_ context.Context, path string) ([]byte, error) {
	f.calls = append(f.calls, recordedCall{method: "GET", path: path})
	return f.responses[path], f.err
}

func (f *fakeRequester) Post(_ context.Context, path string, body any) ([]byte, error) {
	f.calls = append(f.calls, recordedCall{method: "POST", path: path, body: body})
	return f.responses[path], f.err
}

func (f *fakeRequester) PostMultipart(_ context.Context, path string, form httptransport.Multipart) ([]byte, error) {
	f.calls = append(f.calls, recordedCall{method: "MULTIPART", path: path, form: form})
	return f.responses[path], f.err
}

func TestTicketRepositoryListByRole(t *testing.T) {
	status := domain.TicketStatusOpen
	tests := []struct {
		role     domain.Role
		wantPath string
	}{
		{domain.RoleAdmin, "admin/tickets?page=2&status=OPEN"},
		{domain.RoleUser, "tickets?page=2&status=OPEN"},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			client := &fakeRequester{responses: map[string][]byte{
				tt.wantPath: []byte(`{"data":{"data":[{"id":1}],"current_page":2,"last_page":3}}`),
			}}
			repo := NewTicketRepository(client, normalize.New(1, nil), tt.role)

			page, err := repo.List(context.Background(), dto.TicketListQuery{Page: 2, Status: &status})
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if client.calls[0].path != tt.wantPath {
				t.Errorf("path = %q, want %q", client.calls[0].path, tt.wantPath)
			}
			if len(page.Items) != 1 || page.CurrentPage != 2 || page.LastPage != 3 {
				t.Errorf("page = %+v", page)
			}
		})
	}
}

func TestTicketRepositoryUpdateStatus(t *testing.T) {
	client := &fakeRequester{responses: map[string][]byte{
		"admin/tickets/TCK-1/status": []byte(`{"data":{"code_ticket":"TCK-1","status":"in_review"}}`),
	}}
	repo := NewTicketRepository(client, normalize.New(1, nil), domain.RoleAdmin)

	ticket, err := repo.UpdateStatus(context.Background(), domain.TicketRef{Code: "TCK-1", InternalID: "4"}, domain.TicketStatusInReview)
	if err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	if ticket.Status != domain.TicketStatusInReview {
		t.Errorf("status = %s", ticket.Status)
	}
	req, ok := client.calls[0].body.(dto.UpdateStatusRequest)
	if !ok || req.Status != domain.TicketStatusInReview {
		t.Errorf("body = %#v", client.calls[0].body)
	}
}

func TestMessageRepositoryCreateBuildsMultipart(t *testing.T) {
	client := &fakeRequester{responses: map[string][]byte{
		"tickets/TCK-1/messages": []byte(`{"data":{"id":10,"message":"hi"}}`),
	}}
	repo := NewTicketMessageRepository(client, normalize.New(1, nil), domain.RoleUser)

	msg, err := repo.Create(context.Background(), domain.TicketRef{Code: "TCK-1", InternalID: "4"}, MessageInput{
		Body:  "hi",
		Files: []FileInput{{Name: "a.png", Content: []byte{1}}},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if msg.ID != "10" || msg.TicketID != "4" {
		t.Errorf("message = %+v", msg)
	}
	form := client.calls[0].form
	if form.Fields[dto.MessageBodyField] != "hi" {
		t.Errorf("fields = %+v", form.Fields)
	}
	if len(form.Files) != 1 || form.Files[0].Field != dto.MessageAttachmentField || form.Files[0].Name != "a.png" {
		t.Errorf("files = %+v", form.Files)
	}
}

func TestMessageRepositoryListFillsTicketID(t *testing.T) {
	client := &fakeRequester{responses: map[string][]byte{
		"admin/tickets/7/messages": []byte(`[{"id":1,"message":"a"},{"id":2,"message":"b","id_ticket":7}]`),
	}}
	repo := NewTicketMessageRepository(client, normalize.New(1, nil), domain.RoleAdmin)

	msgs, err := repo.ListByTicket(context.Background(), domain.TicketRef{InternalID: "7"})
	if err != nil {
		t.Fatalf("ListByTicket() error = %v", err)
	}
	for _, m := range msgs {
		if m.TicketID != "7" {
			t.Errorf("message %s ticket id = %q", m.ID, m.TicketID)
		}
	}
}
