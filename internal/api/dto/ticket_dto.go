package dto

import (
	"net/url"
	"strconv"

	"github.com/spec-kit/helpdesk-client/internal/domain"
)

// TicketListQuery captures list filters sent to the backend.
type TicketListQuery struct {
	Page   int
	Status *domain.TicketStatus
}

// Encode renders the query string, without the leading '?'.
func (q TicketListQuery) Encode() string {
	values := url.Values{}
	page := q.Page
	if page < 1 {
		page = 1
	}
	values.Set("page", strconv.Itoa(page))
	if q.Status != nil && q.Status.Valid() {
		values.Set("status", string(*q.Status))
	}
	return values.Encode()
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// Multipart field names of the message endpoint.
const (
	MessageBodyField       = "message"
	MessageAttachmentField = "attachments[]"
)
