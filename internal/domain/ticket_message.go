package domain

import "path"

// Role is the acting role of a session or a message sender.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Message captures one entry of a ticket chat.
type Message struct {
	ID          string
	TicketID    string
	SenderID    string
	SenderName  string
	SenderRole  Role
	Body        string
	SentAt      Timestamp
	Attachments []Attachment
}

// Attachment references an uploaded file, owned by a ticket or by a message.
type Attachment struct {
	ID          string
	URL         string
	Path        string
	DisplayName string
	MimeType    string
	MessageID   string
}

// Location is the reference the resolver turns into a fetchable URL.
func (a Attachment) Location() string {
	if a.URL != "" {
		return a.URL
	}
	return a.Path
}

// Name returns the display name, falling back to the file name of the path.
func (a Attachment) Name() string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	if loc := a.Location(); loc != "" {
		return path.Base(loc)
	}
	return "attachment"
}
