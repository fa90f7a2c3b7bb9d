// Package htmlsanitize strips unsafe HTML from user-supplied text.
// Free-text fields (member names, squad labels) pass through here before
// storage so stored data is safe to render anywhere.
package htmlsanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	ugc    = bluemonday.UGCPolicy()
	strict = bluemonday.StrictPolicy()
)

// Sanitize removes dangerous HTML (scripts, event handlers, javascript:
// URLs) while preserving common formatting tags and safe links.
func Sanitize(s string) string {
	return ugc.Sanitize(s)
}

// PlainText strips all HTML, leaving only text content. Used for fields
// that must never contain markup at all.
func PlainText(s string) string {
	return strings.TrimSpace(strict.Sanitize(s))
}
