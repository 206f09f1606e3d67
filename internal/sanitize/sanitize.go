package sanitize

import (
	"github.com/browserclip/engine/internal/har"
	"github.com/browserclip/engine/internal/util"
)

// looksLikeText reports false for payloads that sniff as a known binary
// serialization, so the JSON-parse attempt is skipped for them (opcode 1
// frames can still carry msgpack/protobuf bodies mislabeled as text by the
// originating page). Uses util.DetectBodyFormat's magic-byte heuristic.
func looksLikeText(data string) bool {
	return util.DetectBodyFormat([]byte(data)) == nil
}

// Sanitize applies the header blocklist, cookie wipe, optional URL-param
// redaction, and postData/WS/SSE body redaction to doc in place and returns
// it (spec section 4.4). Sanitize is idempotent: a value already redacted is
// replaced by the same Redacted marker again, and cookies are already empty.
func (s *Sanitizer) Sanitize(doc *har.Document, urlParamsEnabled bool) *har.Document {
	for i := range doc.Log.Entries {
		s.sanitizeEntry(&doc.Log.Entries[i], urlParamsEnabled)
	}
	for i := range doc.Log.WebSocketMessages {
		s.sanitizeWSMessage(&doc.Log.WebSocketMessages[i], urlParamsEnabled)
	}
	for i := range doc.Log.ServerSentEvents {
		s.sanitizeSSEEvent(&doc.Log.ServerSentEvents[i], urlParamsEnabled)
	}
	return doc
}

func (s *Sanitizer) sanitizeHeaders(headers []har.NameValue) {
	for i := range headers {
		if s.matchesHeaderName(headers[i].Name) {
			headers[i].Value = Redacted
		}
	}
}

func (s *Sanitizer) sanitizeEntry(e *har.Entry, urlParamsEnabled bool) {
	s.sanitizeHeaders(e.Request.Headers)
	s.sanitizeHeaders(e.Response.Headers)

	// Cookie lists are wiped regardless of pattern matching (spec section 4.4).
	e.Request.Cookies = []har.NameValue{}
	e.Response.Cookies = []har.NameValue{}

	if urlParamsEnabled {
		e.Request.URL = s.redactURL(e.Request.URL)
		s.redactQueryStringPairs(e.Request.QueryString)
	}

	if e.Request.PostData != nil && e.Request.PostData.Text != "" && looksLikeText(e.Request.PostData.Text) {
		if redacted, ok := s.redactJSONText(e.Request.PostData.Text); ok {
			e.Request.PostData.Text = redacted
		} else {
			e.Request.PostData.Text = s.redactNonJSONBody(e.Request.PostData.Text)
		}
	}
}

func (s *Sanitizer) sanitizeWSMessage(m *har.WSMessage, urlParamsEnabled bool) {
	if urlParamsEnabled {
		m.URL = s.redactURL(m.URL)
	}
	// Text frames only (opcode 1); binary frames pass through (spec section 4.4).
	if m.Opcode != 1 || m.Data == "" || !looksLikeText(m.Data) {
		return
	}
	if redacted, ok := s.redactJSONText(m.Data); ok {
		m.Data = redacted
	}
}

func (s *Sanitizer) sanitizeSSEEvent(e *har.SSEEvent, urlParamsEnabled bool) {
	if urlParamsEnabled {
		e.URL = s.redactURL(e.URL)
	}
	if e.Data == "" || !looksLikeText(e.Data) {
		return
	}
	if redacted, ok := s.redactJSONText(e.Data); ok {
		e.Data = redacted
	}
}
