package repository

import (
	"context"

	"github.com/spec-kit/helpdesk-client/internal/api/dto"
	httptransport "github.com/spec-kit/helpdesk-client/internal/api/http"
	"github.com/spec-kit/helpdesk-client/internal/domain"
	"github.com/spec-kit/helpdesk-client/internal/normalize"
)

// FileInput is a file queued in the chat composer.
type FileInput struct {
	Name    string
	Content []byte
}

// MessageInput is an outgoing chat message.
type MessageInput struct {
	Body  string
	Files []FileInput
}

// TicketMessageRepository manages ticket chat messages.
type TicketMessageRepository interface {
	ListByTicket(ctx context.Context, ref domain.TicketRef) ([]domain.Message, error)
	Create(ctx context.Context, ref domain.TicketRef, input MessageInput) (domain.Message, error)
}

type ticketMessageRepository struct {
	client Requester
	norm   *normalize.Normalizer
	prefix string
}

// NewTicketMessageRepository builds repository.
func NewTicketMessageRepository(client Requester, norm *normalize.Normalizer, role domain.Role) TicketMessageRepository {
	return &ticketMessageRepository{client: client, norm: norm, prefix: collectionFor(role)}
}

func (r *ticketMessageRepository) ListByTicket(ctx context.Context, ref domain.TicketRef) ([]domain.Message, error) {
	raw, err := r.client.Get(ctx, r.path(ref))
	if err != nil {
		return nil, err
	}
	msgs := r.norm.Messages(raw)
	for i := range msgs {
		if msgs[i].TicketID == "" {
			msgs[i].TicketID = ref.Key()
		}
	}
	return msgs, nil
}

func (r *ticketMessageRepository) Create(ctx context.Context, ref domain.TicketRef, input MessageInput) (domain.Message, error) {
	form := httptransport.Multipart{
		Fields: map[string]string{dto.MessageBodyField: input.Body},
		Files:  make([]httptransport.File, 0, len(input.Files)),
	}
	for _, f := range input.Files {
		form.Files = append(form.Files, httptransport.File{
			Field:   dto.MessageAttachmentField,
			Name:    f.Name,
			Content: f.Content,
		})
	}
	raw, err := r.client.PostMultipart(ctx, r.path(ref), form)
	if err != nil {
		return domain.Message{}, err
	}
	msg := r.norm.MessageRecord(raw)
	if msg.TicketID == "" {
		msg.TicketID = ref.Key()
	}
	return msg, nil
}

func (r *ticketMessageRepository) path(ref domain.TicketRef) string {
	return r.prefix + "/" + ref.PathID() + "/messages"
}
