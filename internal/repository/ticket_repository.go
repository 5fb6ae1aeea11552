package repository

import (
	"context"

	"github.com/spec-kit/helpdesk-client/internal/api/dto"
	httptransport "github.com/spec-kit/helpdesk-client/internal/api/http"
	"github.com/spec-kit/helpdesk-client/internal/domain"
	"github.com/spec-kit/helpdesk-client/internal/normalize"
)

// Requester is the transport the repositories talk through.
type Requester interface {
	Get(ctx context.Context, path string) ([]byte, error)
	Post(ctx context.Context, path string, body any) ([]byte, error)
	PostMultipart(ctx context.Context, path string, form httptransport.Multipart) ([]byte, error)
}

// TicketRepository reads and updates tickets on the backend.
type TicketRepository interface {
	List(ctx context.Context, query dto.TicketListQuery) (domain.TicketPage, error)
	GetDetail(ctx context.Context, ref domain.TicketRef) (domain.Ticket, error)
	UpdateStatus(ctx context.Context, ref domain.TicketRef, status domain.TicketStatus) (domain.Ticket, error)
}

type ticketRepository struct {
	client Requester
	norm   *normalize.Normalizer
	prefix string
}

// NewTicketRepository instantiates a repository for the given role. Admins
// address the admin collection, users their own tickets.
func NewTicketRepository(client Requester, norm *normalize.Normalizer, role domain.Role) TicketRepository {
	return &ticketRepository{client: client, norm: norm, prefix: collectionFor(role)}
}

func (r *ticketRepository) List(ctx context.Context, query dto.TicketListQuery) (domain.TicketPage, error) {
	raw, err := r.client.Get(ctx, r.prefix+"?"+query.Encode())
	if err != nil {
		return domain.TicketPage{}, err
	}
	return r.norm.TicketPage(raw), nil
}

func (r *ticketRepository) GetDetail(ctx context.Context, ref domain.TicketRef) (domain.Ticket, error) {
	raw, err := r.client.Get(ctx, r.prefix+"/"+ref.PathID())
	if err != nil {
		return domain.Ticket{}, err
	}
	return r.norm.TicketDetail(raw), nil
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, ref domain.TicketRef, status domain.TicketStatus) (domain.Ticket, error) {
	raw, err := r.client.Post(ctx, r.prefix+"/"+ref.PathID()+"/status", dto.UpdateStatusRequest{Status: status})
	if err != nil {
		return domain.Ticket{}, err
	}
	return r.norm.TicketDetail(raw), nil
}

func collectionFor(role domain.Role) string {
	if role == domain.RoleAdmin {
		return "admin/tickets"
	}
	return "tickets"
}
