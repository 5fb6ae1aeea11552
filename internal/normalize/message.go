package normalize

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/spec-kit/helpdesk-client/internal/domain"
)

var messageAliases = struct {
	ID, TicketID, SenderID, SenderRole, SenderName, Body, SentAt, Attachments, SingleFile []string
}{
	ID:          []string{"id_message", "message_id", "id"},
	TicketID:    []string{"id_ticket", "ticket_id", "code_ticket"},
	SenderID:    []string{"sender_id", "id_user", "user_id", "sender.id", "user.id", "performed_by"},
	SenderRole:  []string{"sender_role", "role", "sender.role", "user.role", "sender_type"},
	SenderName:  []string{"sender.name", "user.name", "user_name", "sender_name"},
	Body:        []string{"message", "body", "content", "text"},
	SentAt:      []string{"created_at", "sent_at", "timestamp", "createdAt"},
	Attachments: []string{"attachments", "files"},
	SingleFile:  []string{"attachment", "attachment_url", "file_path", "attachment_path"},
}

var adminRoles = map[string]bool{
	"admin":      true,
	"staff":      true,
	"agent":      true,
	"superadmin": true,
}

// Role maps a backend role spelling onto user/admin. Anything that is not an
// admin spelling reads as user.
func Role(raw string) domain.Role {
	if adminRoles[strings.ToLower(strings.TrimSpace(raw))] {
		return domain.RoleAdmin
	}
	return domain.RoleUser
}

// Message reads one chat message. Chat-attached files are tagged with the
// message id when the payload left it out.
func (n *Normalizer) Message(r gjson.Result) domain.Message {
	r = UnwrapRecord(r)
	a := messageAliases
	m := domain.Message{Attachments: []domain.Attachment{}}

	m.ID, _ = firstString(r, a.ID)
	m.TicketID, _ = firstString(r, a.TicketID)
	m.SenderID, _ = firstString(r, a.SenderID)
	m.Body, _ = firstString(r, a.Body)

	if v, ok := firstString(r, a.SenderRole); ok {
		m.SenderRole = Role(v)
	} else if r.Get("is_admin").Bool() {
		m.SenderRole = domain.RoleAdmin
	} else {
		m.SenderRole = domain.RoleUser
	}

	m.SenderName = senderName(r, m.SenderID)

	if v, ok := firstString(r, a.SentAt); ok {
		m.SentAt = Timestamp(v)
	}

	if _, ok := first(r, a.Attachments); ok {
		m.Attachments = n.Attachments(r, a.Attachments)
	} else if v, ok := first(r, a.SingleFile); ok {
		if att := n.Attachment(v); att.Location() != "" {
			m.Attachments = append(m.Attachments, att)
		}
	}
	for i := range m.Attachments {
		if m.Attachments[i].MessageID == "" {
			m.Attachments[i].MessageID = m.ID
		}
	}
	return m
}

// Messages reads every message in a list envelope, in payload order.
func (n *Normalizer) Messages(raw []byte) []domain.Message {
	items := UnwrapList(Parse(raw))
	out := make([]domain.Message, 0, len(items))
	for _, item := range items {
		if !item.IsObject() {
			continue
		}
		out = append(out, n.Message(item))
	}
	return out
}

// MessageRecord reads a single-message envelope.
func (n *Normalizer) MessageRecord(raw []byte) domain.Message {
	return n.Message(Parse(raw))
}

// senderName follows name aliases, then derives a label from the sender id,
// then falls back to SystemSender.
func senderName(r gjson.Result, senderID string) string {
	if v, ok := firstString(r, messageAliases.SenderName); ok {
		return v
	}
	if senderID != "" {
		return "User #" + senderID
	}
	return SystemSender
}

var actorAliases = struct {
	ID, Name, Role []string
}{
	ID:   []string{"id", "id_user", "user_id", "user.id"},
	Name: []string{"name", "full_name", "username", "user.name"},
	Role: []string{"role.name", "role", "user_role", "user.role", "type"},
}

// Actor reads the persisted current-user record. ok is false when the record
// carried no identifier; Role is left empty when no role alias matched.
func (n *Normalizer) Actor(raw []byte) (domain.Actor, bool) {
	r := UnwrapRecord(Parse(raw))
	if u := r.Get("user"); u.IsObject() && !present(r.Get("id")) {
		r = u
	}
	a := actorAliases
	actor := domain.Actor{}
	id, ok := firstString(r, a.ID)
	actor.ID = id
	actor.Name, _ = firstString(r, a.Name)
	if v, found := firstString(r, a.Role); found {
		actor.Role = Role(v)
	} else if r.Get("is_admin").Bool() {
		actor.Role = domain.RoleAdmin
	}
	return actor, ok
}
