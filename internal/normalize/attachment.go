package normalize

import (
	"path"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/spec-kit/helpdesk-client/internal/domain"
)

var attachmentAliases = struct {
	ID, URL, Path, Name, Mime, MessageID []string
}{
	ID:        []string{"id_attachment", "attachment_id", "id"},
	URL:       []string{"url", "file_url", "attachment_url", "download_url"},
	Path:      []string{"path", "file_path", "storage_path", "attachment_path"},
	Name:      []string{"original_name", "file_name", "filename", "display_name", "name"},
	Mime:      []string{"mime_type", "mime", "content_type"},
	MessageID: []string{"id_message", "message_id"},
}

// Attachment reads one attachment. A bare string is taken as a URL when it is
// absolute, else as a storage path.
func (n *Normalizer) Attachment(r gjson.Result) domain.Attachment {
	if r.Type == gjson.String {
		return attachmentFromLocation(r.String())
	}
	a := attachmentAliases
	att := domain.Attachment{}
	att.ID, _ = firstString(r, a.ID)
	att.URL, _ = firstString(r, a.URL)
	att.Path, _ = firstString(r, a.Path)
	if att.URL != "" && !isAbsoluteURL(att.URL) && att.Path == "" {
		att.Path, att.URL = att.URL, ""
	}
	att.DisplayName, _ = firstString(r, a.Name)
	att.MimeType, _ = firstString(r, a.Mime)
	att.MessageID, _ = firstString(r, a.MessageID)
	if att.DisplayName == "" {
		att.DisplayName = baseName(att.Location())
	}
	return att
}

// Attachments reads every attachment under the first alias that holds a list.
func (n *Normalizer) Attachments(r gjson.Result, listAliases []string) []domain.Attachment {
	out := []domain.Attachment{}
	for _, alias := range listAliases {
		v := r.Get(alias)
		if !v.IsArray() {
			continue
		}
		for _, item := range v.Array() {
			if !present(item) {
				continue
			}
			att := n.Attachment(item)
			if att.Location() == "" {
				continue
			}
			out = append(out, att)
		}
		return out
	}
	return out
}

func attachmentFromLocation(loc string) domain.Attachment {
	loc = strings.TrimSpace(loc)
	att := domain.Attachment{DisplayName: baseName(loc)}
	if isAbsoluteURL(loc) {
		att.URL = loc
	} else {
		att.Path = loc
	}
	return att
}

func isAbsoluteURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func baseName(loc string) string {
	if loc == "" {
		return ""
	}
	if i := strings.IndexAny(loc, "?#"); i >= 0 {
		loc = loc[:i]
	}
	return path.Base(loc)
}
