package sanitize

import (
	"net/url"

	"github.com/browserclip/engine/internal/har"
)

// redactURL rewrites the query component of rawURL, replacing the value of
// any parameter whose name matches a substring pattern with Redacted (spec
// section 4.4). Returns rawURL unchanged if it fails to parse.
func (s *Sanitizer) redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	if u.RawQuery == "" {
		return rawURL
	}
	q := u.Query()
	changed := false
	for name, values := range q {
		if !s.matchesPattern(name) {
			continue
		}
		for i := range values {
			values[i] = Redacted
		}
		q[name] = values
		changed = true
	}
	if !changed {
		return rawURL
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// redactQueryStringPairs rewrites a name/value pair list in place, matching
// the same rule redactURL applies to the url field.
func (s *Sanitizer) redactQueryStringPairs(pairs []har.NameValue) {
	for i := range pairs {
		if s.matchesPattern(pairs[i].Name) {
			pairs[i].Value = Redacted
		}
	}
}
