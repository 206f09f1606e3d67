package sanitize

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/browserclip/engine/internal/har"
)

func TestSanitizeHeadersExactAndSubstring(t *testing.T) {
	s := New(nil)
	doc := &har.Document{Log: har.Log{Entries: []har.Entry{{
		Request: har.Request{
			Headers: []har.NameValue{
				{Name: "Authorization", Value: "Bearer x"},
				{Name: "X-Session-Id", Value: "abc"},
				{Name: "Accept", Value: "application/json"},
			},
			Cookies: []har.NameValue{{Name: "sid", Value: "abc"}},
		},
		Response: har.Response{Cookies: []har.NameValue{{Name: "sid", Value: "abc"}}},
	}}}}

	s.Sanitize(doc, true)

	got := doc.Log.Entries[0].Request.Headers
	want := map[string]string{"Authorization": Redacted, "X-Session-Id": Redacted, "Accept": "application/json"}
	for _, h := range got {
		if w, ok := want[h.Name]; ok && h.Value != w {
			t.Errorf("header %s = %q, want %q", h.Name, h.Value, w)
		}
	}
	if len(doc.Log.Entries[0].Request.Cookies) != 0 {
		t.Fatal("expected request cookies wiped")
	}
	if len(doc.Log.Entries[0].Response.Cookies) != 0 {
		t.Fatal("expected response cookies wiped")
	}
}

func TestSanitizeURLParams(t *testing.T) {
	s := New(nil)
	doc := &har.Document{Log: har.Log{Entries: []har.Entry{{
		Request: har.Request{
			URL:         "https://api.example.com/users?token=abc&page=1",
			QueryString: []har.NameValue{{Name: "token", Value: "abc"}, {Name: "page", Value: "1"}},
		},
	}}}}

	s.Sanitize(doc, true)

	url := doc.Log.Entries[0].Request.URL
	if !strings.Contains(url, "page=1") {
		t.Errorf("expected page=1 preserved, got %s", url)
	}
	if strings.Contains(url, "abc") {
		t.Errorf("expected token value redacted, got %s", url)
	}
	qs := doc.Log.Entries[0].Request.QueryString
	if qs[0].Value != Redacted {
		t.Errorf("expected query string entry redacted, got %s", qs[0].Value)
	}
}

func TestSanitizeURLParamsDisabled(t *testing.T) {
	s := New(nil)
	doc := &har.Document{Log: har.Log{Entries: []har.Entry{{
		Request: har.Request{URL: "https://api.example.com/users?token=abc"},
	}}}}

	s.Sanitize(doc, false)

	if doc.Log.Entries[0].Request.URL != "https://api.example.com/users?token=abc" {
		t.Fatal("expected url unchanged when url-param sanitization disabled")
	}
}

func TestSanitizeJSONPostDataRecursive(t *testing.T) {
	s := New(nil)
	doc := &har.Document{Log: har.Log{Entries: []har.Entry{{
		Request: har.Request{PostData: &har.PostData{
			MimeType: "application/json",
			Text:     `{"auth_token":"s","nested":{"api_key":"z"},"msg":"hi"}`,
		}},
	}}}}

	s.Sanitize(doc, true)

	text := doc.Log.Entries[0].Request.PostData.Text
	if strings.Contains(text, "\"s\"") || strings.Contains(text, "\"z\"") {
		t.Fatalf("expected nested keys redacted, got %s", text)
	}
	if !strings.Contains(text, `"msg":"hi"`) {
		t.Fatalf("expected untouched key preserved, got %s", text)
	}
}

func TestSanitizeNonJSONPostDataFallback(t *testing.T) {
	s := New(nil)
	doc := &har.Document{Log: har.Log{Entries: []har.Entry{{
		Request: har.Request{PostData: &har.PostData{
			MimeType: "application/x-www-form-urlencoded",
			Text:     "api_key=abc123&page=1",
		}},
	}}}}

	s.Sanitize(doc, true)

	text := doc.Log.Entries[0].Request.PostData.Text
	if !strings.Contains(text, "api_key="+Redacted) {
		t.Fatalf("expected non-JSON fallback to redact value, got %s", text)
	}
	if !strings.Contains(text, "page=1") {
		t.Fatalf("expected unrelated field preserved, got %s", text)
	}
}

func TestSanitizeWSFrameTextJSON(t *testing.T) {
	s := New(nil)
	doc := &har.Document{Log: har.Log{WebSocketMessages: []har.WSMessage{
		{Opcode: 1, Data: `{"auth_token":"s","msg":"hi"}`},
	}}}

	s.Sanitize(doc, true)

	if doc.Log.WebSocketMessages[0].Data != `{"auth_token":"[REDACTED]","msg":"hi"}` {
		t.Fatalf("got %s", doc.Log.WebSocketMessages[0].Data)
	}
}

func TestSanitizeWSFrameBinaryPassthrough(t *testing.T) {
	s := New(nil)
	doc := &har.Document{Log: har.Log{WebSocketMessages: []har.WSMessage{
		{Opcode: 2, Data: "binarydata"},
	}}}

	s.Sanitize(doc, true)

	if doc.Log.WebSocketMessages[0].Data != "binarydata" {
		t.Fatal("expected binary frame passed through unchanged")
	}
}

func TestSanitizeSSENonJSONPassthrough(t *testing.T) {
	s := New(nil)
	doc := &har.Document{Log: har.Log{ServerSentEvents: []har.SSEEvent{
		{Data: "plain text, not json"},
	}}}

	s.Sanitize(doc, true)

	if doc.Log.ServerSentEvents[0].Data != "plain text, not json" {
		t.Fatal("expected non-JSON SSE data passed through unchanged")
	}
}

func TestSanitizeCustomPattern(t *testing.T) {
	s := New([]string{"internal-id"})
	doc := &har.Document{Log: har.Log{Entries: []har.Entry{{
		Request: har.Request{Headers: []har.NameValue{{Name: "X-Internal-Id", Value: "42"}}},
	}}}}

	s.Sanitize(doc, true)

	if doc.Log.Entries[0].Request.Headers[0].Value != Redacted {
		t.Fatal("expected custom pattern to redact header")
	}
}

func TestSanitizeIsIdempotent(t *testing.T) {
	s := New(nil)
	doc := &har.Document{Log: har.Log{Entries: []har.Entry{{
		Request: har.Request{
			URL:         "https://api.example.com/users?token=abc&page=1",
			Headers:     []har.NameValue{{Name: "Authorization", Value: "Bearer x"}},
			QueryString: []har.NameValue{{Name: "token", Value: "abc"}},
			PostData:    &har.PostData{Text: `{"api_key":"z"}`},
		},
	}}}}

	s.Sanitize(doc, true)
	firstB, _ := json.Marshal(doc)
	s.Sanitize(doc, true)
	secondB, _ := json.Marshal(doc)

	if string(firstB) != string(secondB) {
		t.Fatalf("sanitize not idempotent:\nfirst=%s\nsecond=%s", firstB, secondB)
	}
}
