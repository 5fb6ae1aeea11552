// Package normalize is the only place that knows how backend payloads are
// shaped. Every canonical field is read through an ordered alias table and
// every lookup has a defined fallback, so nothing here returns an error.
package normalize

import (
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Placeholder is rendered for text fields the payload did not carry.
const Placeholder = "-"

// SystemSender names messages that have no identifiable sender.
const SystemSender = "System"

// maxEnvelopeDepth bounds how many `data` wrappers are peeled.
const maxEnvelopeDepth = 4

// Normalizer converts raw backend JSON into canonical domain values.
type Normalizer struct {
	defaultLastPage int
	location        *time.Location
}

// New builds a Normalizer. defaultLastPage is used when a paginator carries
// no last_page; loc is the display timezone for timestamps.
func New(defaultLastPage int, loc *time.Location) *Normalizer {
	if defaultLastPage <= 0 {
		defaultLastPage = 1
	}
	if loc == nil {
		loc = DefaultLocation()
	}
	return &Normalizer{defaultLastPage: defaultLastPage, location: loc}
}

// DefaultLocation is the fixed UTC+7 display zone.
func DefaultLocation() *time.Location {
	return FixedOffset(7)
}

// FixedOffset returns a zone offset by whole hours from UTC.
func FixedOffset(hours int) *time.Location {
	name := "UTC"
	switch {
	case hours > 0:
		name = "UTC+" + strconv.Itoa(hours)
	case hours < 0:
		name = "UTC-" + strconv.Itoa(-hours)
	}
	return time.FixedZone(name, hours*3600)
}

// Location returns the display zone.
func (n *Normalizer) Location() *time.Location {
	return n.location
}

// present reports whether r holds a non-null value.
func present(r gjson.Result) bool {
	return r.Exists() && r.Type != gjson.Null
}

// first returns the first alias path that resolves to a non-null value.
func first(r gjson.Result, paths []string) (gjson.Result, bool) {
	for _, p := range paths {
		v := r.Get(p)
		if present(v) {
			return v, true
		}
	}
	return gjson.Result{}, false
}

// firstString returns the first alias holding a scalar with non-blank text.
func firstString(r gjson.Result, paths []string) (string, bool) {
	for _, p := range paths {
		v := r.Get(p)
		if !present(v) || v.IsObject() || v.IsArray() {
			continue
		}
		if s := strings.TrimSpace(v.String()); s != "" {
			return s, true
		}
	}
	return "", false
}

func orPlaceholder(s string) string {
	if s == "" {
		return Placeholder
	}
	return s
}
