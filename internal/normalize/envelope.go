package normalize

import (
	"github.com/tidwall/gjson"
)

var (
	listKeys      = []string{"items", "results", "rows"}
	recordMarkers = []string{"id", "id_ticket", "code_ticket", "id_message", "message_id"}
	pagerKeys     = []string{"", "data", "meta", "data.meta", "pagination", "data.pagination"}
)

// Page is an unwrapped paginator.
type Page struct {
	Items       []gjson.Result
	CurrentPage int
	LastPage    int
}

// Parse reads raw bytes into a gjson result; invalid JSON yields an empty
// result rather than an error.
func Parse(raw []byte) gjson.Result {
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}
	}
	return gjson.ParseBytes(raw)
}

// UnwrapList peels envelopes until an array is found. No array at any known
// depth yields an empty slice.
func UnwrapList(r gjson.Result) []gjson.Result {
	cur := r
	for depth := 0; depth <= maxEnvelopeDepth; depth++ {
		if cur.IsArray() {
			return cur.Array()
		}
		if !cur.IsObject() {
			break
		}
		for _, key := range listKeys {
			if v := cur.Get(key); v.IsArray() {
				return v.Array()
			}
		}
		cur = cur.Get("data")
	}
	return []gjson.Result{}
}

// UnwrapRecord peels `data` wrappers until the object that looks like an
// entity. A single-element array wrapper yields its element.
func UnwrapRecord(r gjson.Result) gjson.Result {
	cur := r
	for depth := 0; depth < maxEnvelopeDepth; depth++ {
		if cur.IsArray() {
			items := cur.Array()
			if len(items) == 0 {
				return gjson.Result{}
			}
			cur = items[0]
			continue
		}
		if !cur.IsObject() || looksLikeRecord(cur) {
			return cur
		}
		inner := cur.Get("data")
		if !inner.IsObject() && !inner.IsArray() {
			return cur
		}
		cur = inner
	}
	return cur
}

func looksLikeRecord(r gjson.Result) bool {
	for _, key := range recordMarkers {
		if present(r.Get(key)) {
			return true
		}
	}
	return false
}

// UnwrapPage finds the item array and the paginator counters, defaulting to
// page 1 and the configured last page.
func (n *Normalizer) UnwrapPage(r gjson.Result) Page {
	page := Page{
		Items:       UnwrapList(r),
		CurrentPage: 1,
		LastPage:    n.defaultLastPage,
	}
	for _, prefix := range pagerKeys {
		holder := r
		if prefix != "" {
			holder = r.Get(prefix)
		}
		if !holder.IsObject() {
			continue
		}
		current := holder.Get("current_page")
		if !present(current) {
			continue
		}
		if v := int(current.Int()); v > 0 {
			page.CurrentPage = v
		}
		if last := holder.Get("last_page"); present(last) && last.Int() > 0 {
			page.LastPage = int(last.Int())
		}
		break
	}
	if page.LastPage < page.CurrentPage {
		page.LastPage = page.CurrentPage
	}
	return page
}

// ErrorMessage extracts a human readable message from an error body, or the
// empty string when none is present.
func ErrorMessage(raw []byte) string {
	r := Parse(raw)
	if !r.IsObject() {
		return ""
	}
	if s, ok := firstString(r, []string{"message", "error.message", "error", "msg", "detail"}); ok {
		return s
	}
	var msg string
	r.Get("errors").ForEach(func(_, value gjson.Result) bool {
		switch {
		case value.IsArray():
			for _, item := range value.Array() {
				if item.Type == gjson.String && item.String() != "" {
					msg = item.String()
					return false
				}
			}
		case value.Type == gjson.String && value.String() != "":
			msg = value.String()
			return false
		case value.IsObject():
			if s, ok := firstString(value, []string{"message", "detail"}); ok {
				msg = s
				return false
			}
		}
		return true
	})
	return msg
}
