// Package sanitize redacts sensitive data out of a built HAR document (spec
// section 4.4). It generalizes the teacher's internal/redaction/redaction.go
// RedactionEngine — a compiled, case-insensitive, built-in-plus-custom
// pattern list — from "scrub MCP tool-response text" to "scrub a structured
// HAR document": the same pattern list drives a header-name blocklist, a
// query-param rewrite, and a recursive JSON-body walk, with the teacher's
// plain-text engine kept verbatim as the non-JSON body fallback.
package sanitize

import (
	"fmt"
	"regexp"
	"strings"
)

// Redacted is substituted for any value a matching rule strips.
const Redacted = "[REDACTED]"

// exactHeaderNames are always blocked regardless of the substring patterns
// (spec section 4.4).
var exactHeaderNames = map[string]bool{
	"authorization":   true,
	"cookie":          true,
	"set-cookie":      true,
	"x-api-key":       true,
	"x-auth-token":    true,
	"x-access-token":  true,
}

// builtinSubstrings match header names, query-param names, and JSON object
// keys alike — the spec keeps one unified pattern list rather than splitting
// header policy from body policy (spec section 9, open question).
var builtinSubstrings = []string{
	"token", "key", "secret", "password", "credential", "auth", "session", "jwt", "bearer",
}

// Sanitizer holds the compiled pattern set for one sanitization run.
type Sanitizer struct {
	substrings   []string         // lowercase, built-in + custom
	bodyPatterns []*regexp.Regexp // per-pattern non-JSON fallback regex (spec section 4.4)
}

// New builds a Sanitizer from the built-in pattern list plus caller-supplied
// custom substrings (config's custom_header_patterns).
func New(customPatterns []string) *Sanitizer {
	s := &Sanitizer{}
	s.substrings = append(s.substrings, builtinSubstrings...)
	for _, p := range customPatterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			s.substrings = append(s.substrings, p)
		}
	}

	for _, p := range s.substrings {
		// (<pattern>[=:]\s*)([^&\s]+), case-insensitive (spec section 4.4).
		re, err := regexp.Compile(`(?i)(` + regexp.QuoteMeta(p) + `[=:]\s*)([^&\s]+)`)
		if err != nil {
			continue // pattern came from QuoteMeta, should never fail
		}
		s.bodyPatterns = append(s.bodyPatterns, re)
	}
	return s
}

// matchesHeaderName reports whether name is on the header blocklist: the
// exact-name set union the substring patterns.
func (s *Sanitizer) matchesHeaderName(name string) bool {
	lower := strings.ToLower(name)
	if exactHeaderNames[lower] {
		return true
	}
	return s.matchesPattern(lower)
}

// matchesPattern reports whether name contains any substring pattern — used
// for query-param names and JSON object keys (spec section 4.4).
func (s *Sanitizer) matchesPattern(name string) bool {
	lower := strings.ToLower(name)
	for _, p := range s.substrings {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// redactNonJSONBody applies each pattern's capture-group regex to text,
// replacing only the captured value (spec section 4.4: non-JSON postData
// fallback).
func (s *Sanitizer) redactNonJSONBody(text string) string {
	result := text
	for _, re := range s.bodyPatterns {
		result = re.ReplaceAllString(result, fmt.Sprintf("$1%s", Redacted))
	}
	return result
}
