// Package sanitize strips markup from user-supplied free text before it is
// stored and later shown on public status pages.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// maxPasses bounds how many layers of entity encoding are peeled off.
const maxPasses = 8

var strict = bluemonday.StrictPolicy()

// Text removes all HTML from s and trims surrounding whitespace.
// Entities are decoded so plain text such as "db & cache" round-trips
// unchanged; decoding and stripping repeat until the text is stable, so
// entity-encoded markup never comes back as live tags.
func Text(s string) string {
	for i := 0; i < maxPasses; i++ {
		out := html.UnescapeString(strict.Sanitize(s))
		if out == s {
			return strings.TrimSpace(out)
		}
		s = out
	}
	// Still changing: keep the policy's escaped output.
	return strings.TrimSpace(strict.Sanitize(s))
}
