package normalize

import (
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-client/internal/domain"
)

// DisplayLayout renders timestamps as DD/MM/YYYY HH:mm.
const DisplayLayout = "02/01/2006 15:04"

var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04Z07:00",
}

// ParseTimestamp accepts "YYYY-MM-DD HH:mm:ss" or ISO-8601. Values without an
// explicit zone are read as UTC.
func ParseTimestamp(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	s = strings.Replace(s, " ", "T", 1)
	if len(s) == len("2006-01-02") {
		s += "T00:00:00"
	}
	if !hasZone(s) {
		s += "Z"
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func hasZone(s string) bool {
	if strings.HasSuffix(s, "Z") || strings.HasSuffix(s, "z") {
		return true
	}
	idx := strings.IndexByte(s, 'T')
	if idx < 0 {
		return false
	}
	return strings.ContainsAny(s[idx:], "+-")
}

// Timestamp builds the domain value for a raw backend string.
func Timestamp(raw string) domain.Timestamp {
	ts := domain.Timestamp{Raw: strings.TrimSpace(raw)}
	if t, ok := ParseTimestamp(raw); ok {
		ts.At = t
	}
	return ts
}

// FormatTimestamp renders raw in the display zone. Unparseable input is
// returned verbatim and empty input renders as the placeholder.
func (n *Normalizer) FormatTimestamp(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return Placeholder
	}
	t, ok := ParseTimestamp(raw)
	if !ok {
		return raw
	}
	return t.In(n.location).Format(DisplayLayout)
}

// Display renders a domain timestamp in the display zone.
func (n *Normalizer) Display(ts domain.Timestamp) string {
	if ts.Valid() {
		return ts.At.In(n.location).Format(DisplayLayout)
	}
	return orPlaceholder(ts.Raw)
}
