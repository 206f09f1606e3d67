package capturepipeline

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/browserclip/engine/internal/config"
	"github.com/browserclip/engine/internal/model"
	"github.com/browserclip/engine/internal/store"
)

func newTestPipeline(t *testing.T, bodies BodyFetcher) (*Pipeline, *store.Store) {
	t.Helper()
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	cfg, err := config.Load(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}

	log := logrus.New()
	log.SetOutput(testWriter{t})
	return New(s, cfg, bodies, log), s
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) { return len(p), nil }

type fakeBodyFetcher struct {
	body ResponseBody
	err  error
}

func (f fakeBodyFetcher) GetResponseBody(ctx context.Context, requestID string) (ResponseBody, error) {
	return f.body, f.err
}

func TestHTTPBasicFlow(t *testing.T) {
	fb := fakeBodyFetcher{body: ResponseBody{Body: `{"ok":true}`}}
	p, s := newTestPipeline(t, fb)
	ctx := context.Background()

	p.HandleRequestWillBeSent(ctx, RequestWillBeSent{
		RequestID:    "req-1",
		TabID:        7,
		Hostname:     "example.com",
		TimestampSec: 1000,
		ResourceType: "xhr",
		Request:      RequestInfo{Method: "GET", URL: "https://example.com/a?x=1"},
	})
	p.HandleResponseReceived(ResponseReceived{
		RequestID: "req-1",
		Response:  ResponseInfo{Status: 200, StatusText: "OK", MimeType: "application/json"},
	})
	p.HandleLoadingFinished(ctx, LoadingFinished{RequestID: "req-1", EncodedDataLength: 100})

	entries, err := s.ScanHTTPEntries(0, nowMillisForTest(), store.TabFilter(nil))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Response.Status != 200 {
		t.Fatalf("expected status 200, got %d", e.Response.Status)
	}
	if e.Response.Content.Text != `{"ok":true}` {
		t.Fatalf("expected body stored, got %q", e.Response.Content.Text)
	}
	if len(e.Request.QueryString) != 1 || e.Request.QueryString[0].Name != "x" {
		t.Fatalf("expected query string parsed, got %+v", e.Request.QueryString)
	}
}

func TestHTTPLargeBodyOmitted(t *testing.T) {
	fb := fakeBodyFetcher{body: ResponseBody{Body: "should not be fetched"}}
	p, s := newTestPipeline(t, fb)
	ctx := context.Background()

	p.HandleRequestWillBeSent(ctx, RequestWillBeSent{RequestID: "req-big", TabID: 1, Request: RequestInfo{Method: "GET", URL: "https://x.com/"}})
	p.HandleResponseReceived(ResponseReceived{RequestID: "req-big", Response: ResponseInfo{Status: 200}})
	p.HandleLoadingFinished(ctx, LoadingFinished{RequestID: "req-big", EncodedDataLength: MaxInlineBodyBytes + 1})

	entries, _ := s.ScanHTTPEntries(0, nowMillisForTest(), store.TabFilter(nil))
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Response.Content.Text != "" {
		t.Fatal("expected body omitted for oversized response")
	}
}

func TestHTTPLoadingFailed(t *testing.T) {
	p, s := newTestPipeline(t, nil)
	ctx := context.Background()

	p.HandleRequestWillBeSent(ctx, RequestWillBeSent{RequestID: "req-fail", TabID: 1, Request: RequestInfo{Method: "GET", URL: "https://x.com/"}})
	p.HandleLoadingFailed(ctx, LoadingFailed{RequestID: "req-fail", ErrorText: "net::ERR_CONNECTION_RESET"})

	entries, _ := s.ScanHTTPEntries(0, nowMillisForTest(), store.TabFilter(nil))
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Response.Error == "" {
		t.Fatal("expected error text recorded")
	}
}

func TestHTTPRedirectChainEmitsPriorLeg(t *testing.T) {
	p, s := newTestPipeline(t, nil)
	ctx := context.Background()

	p.HandleRequestWillBeSent(ctx, RequestWillBeSent{
		RequestID: "req-redir", TabID: 1, TimestampSec: 1,
		Request: RequestInfo{Method: "GET", URL: "https://x.com/old"},
	})
	p.HandleRequestWillBeSent(ctx, RequestWillBeSent{
		RequestID: "req-redir", TabID: 1, TimestampSec: 2,
		Request:          RequestInfo{Method: "GET", URL: "https://x.com/new"},
		RedirectResponse: &RedirectResponse{Status: 302, StatusText: "Found", URL: "https://x.com/old"},
	})
	p.HandleLoadingFinished(ctx, LoadingFinished{RequestID: "req-redir", EncodedDataLength: 10})

	entries, _ := s.ScanHTTPEntries(0, nowMillisForTest(), store.TabFilter(nil))
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries (one per hop), got %d", len(entries))
	}
}

func TestTabClosedDropsPendingWithoutEmit(t *testing.T) {
	p, s := newTestPipeline(t, nil)
	ctx := context.Background()

	p.HandleRequestWillBeSent(ctx, RequestWillBeSent{RequestID: "req-x", TabID: 9, Request: RequestInfo{Method: "GET", URL: "https://x.com/"}})
	p.HandleTabClosed(TabClosed{TabID: 9})
	p.HandleLoadingFinished(ctx, LoadingFinished{RequestID: "req-x", EncodedDataLength: 1})

	entries, _ := s.ScanHTTPEntries(0, nowMillisForTest(), store.TabFilter(nil))
	if len(entries) != 0 {
		t.Fatalf("expected no entry after tab closed, got %d", len(entries))
	}
}

func TestWSFrameDroppedBeforeOpen(t *testing.T) {
	p, s := newTestPipeline(t, nil)
	ctx := context.Background()

	if err := p.HandleWSFrame(ctx, "conn-1", WSFrameEvent{Opcode: 1, PayloadData: "hi"}, model.WSDirectionSend); err != nil {
		t.Fatalf("HandleWSFrame: %v", err)
	}
	frames, _ := s.ScanWSFrames(0, nowMillisForTest(), store.TabFilter(nil))
	if len(frames) != 0 {
		t.Fatalf("expected frame dropped before OPEN, got %d", len(frames))
	}
}

func TestWSBasicFlow(t *testing.T) {
	p, s := newTestPipeline(t, nil)
	ctx := context.Background()

	p.HandleWSCreated(WSCreated{RequestID: "conn-1", TabID: 3, URL: "wss://x.com/ws"})
	if err := p.HandleWSFrame(ctx, "conn-1", WSFrameEvent{Opcode: 1, PayloadData: "hello"}, model.WSDirectionSend); err != nil {
		t.Fatalf("HandleWSFrame: %v", err)
	}
	p.HandleWSClosed(WSClosed{RequestID: "conn-1"})
	if err := p.HandleWSFrame(ctx, "conn-1", WSFrameEvent{Opcode: 1, PayloadData: "late"}, model.WSDirectionReceive); err != nil {
		t.Fatalf("HandleWSFrame: %v", err)
	}

	frames, _ := s.ScanWSFrames(0, nowMillisForTest(), store.TabFilter(nil))
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame (one dropped after close), got %d", len(frames))
	}
	if frames[0].Data != "hello" {
		t.Fatalf("unexpected frame data %q", frames[0].Data)
	}
}

func TestSSEMessageResolvesURLFromPending(t *testing.T) {
	p, s := newTestPipeline(t, nil)
	ctx := context.Background()

	p.HandleRequestWillBeSent(ctx, RequestWillBeSent{
		RequestID: "sse-1", TabID: 2,
		Request: RequestInfo{Method: "GET", URL: "https://x.com/events"},
	})
	if err := p.HandleSSEMessage(SSEMessage{RequestID: "sse-1", TabID: 2, EventName: "update", Data: "{}"}); err != nil {
		t.Fatalf("HandleSSEMessage: %v", err)
	}

	events, _ := s.ScanSSEEvents(0, nowMillisForTest(), store.TabFilter(nil))
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].URL != "https://x.com/events" {
		t.Fatalf("expected url resolved from pending entry, got %q", events[0].URL)
	}
}

func TestCapturableTab(t *testing.T) {
	cases := map[string]bool{
		"https://example.com/":      true,
		"chrome://settings":         false,
		"chrome-extension://abc":    false,
		"edge://settings":           false,
		"about:blank":               false,
		"devtools://devtools":       false,
		"chrome-devtools://devtools/bundled/inspector.html": false,
	}
	for url, want := range cases {
		if got := capturableTab(url); got != want {
			t.Errorf("capturableTab(%q) = %v, want %v", url, got, want)
		}
	}
}

func nowMillisForTest() int64 {
	return 1 << 62 // effectively "no upper bound" for scans in tests
}
