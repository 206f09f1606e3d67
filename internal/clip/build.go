// build.go — snapshot-to-HAR assembly (spec section 4.4). Reads the three
// streams once, sorts each into timestamp order, and derives pages and the
// two sibling arrays. Generalizes the teacher's
// internal/export/export_har.go conversion functions (buildHARRequest/
// buildHARResponse/networkBodyToHAREntry) from its flat NetworkBody shape to
// this engine's three-stream model.
package clip

import (
	"fmt"
	"sort"
	"time"

	"github.com/browserclip/engine/internal/har"
	"github.com/browserclip/engine/internal/model"
	"github.com/browserclip/engine/internal/store"
)

const isoLayout = "2006-01-02T15:04:05.000Z"

const harVersion = "1.2"

// CreatorVersion is reported in every built document's creator field.
const CreatorVersion = "0.1.0"

func msToISO(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(isoLayout)
}

// buildResult carries the assembled document plus the per-stream counts the
// request contract's entry_count needs.
type buildResult struct {
	doc        *har.Document
	entryCount int
}

// build reads [startMs, endMs] across all three streams restricted to tabs,
// and assembles the extended HAR document (spec section 4.4). browserName
// and browserVersion are best-effort; "unknown" when not obtainable.
func build(s *store.Store, startMs, endMs int64, tabs store.TabFilter, browserName, browserVersion string) (*buildResult, error) {
	httpEntries, err := s.ScanHTTPEntries(startMs, endMs, tabs)
	if err != nil {
		return nil, fmt.Errorf("clip: scan http: %w", err)
	}
	wsFrames, err := s.ScanWSFrames(startMs, endMs, tabs)
	if err != nil {
		return nil, fmt.Errorf("clip: scan ws: %w", err)
	}
	sseEvents, err := s.ScanSSEEvents(startMs, endMs, tabs)
	if err != nil {
		return nil, fmt.Errorf("clip: scan sse: %w", err)
	}

	sort.SliceStable(httpEntries, func(i, j int) bool { return httpEntries[i].Timestamp < httpEntries[j].Timestamp })
	sort.SliceStable(wsFrames, func(i, j int) bool { return wsFrames[i].Timestamp < wsFrames[j].Timestamp })
	sort.SliceStable(sseEvents, func(i, j int) bool { return sseEvents[i].Timestamp < sseEvents[j].Timestamp })

	if browserName == "" {
		browserName = "unknown"
	}
	if browserVersion == "" {
		browserVersion = "unknown"
	}

	doc := &har.Document{
		Log: har.Log{
			Version: harVersion,
			Creator: har.Creator{Name: "Browser Clip", Version: CreatorVersion},
			Browser: har.Browser{Name: browserName, Version: browserVersion},
			Pages:   derivePages(httpEntries),
			Entries: make([]har.Entry, 0, len(httpEntries)),
		},
	}

	for _, e := range httpEntries {
		doc.Log.Entries = append(doc.Log.Entries, toHAREntry(e))
	}
	for _, f := range wsFrames {
		doc.Log.WebSocketMessages = append(doc.Log.WebSocketMessages, toHARWSMessage(f))
	}
	for _, e := range sseEvents {
		doc.Log.ServerSentEvents = append(doc.Log.ServerSentEvents, toHARSSEEvent(e))
	}

	return &buildResult{
		doc:        doc,
		entryCount: len(httpEntries) + len(wsFrames) + len(sseEvents),
	}, nil
}

// derivePages builds one page per unique hostname, using the first-seen
// started_at of that hostname (spec section 4.4). Entries are assumed
// already sorted ascending by timestamp.
func derivePages(entries []model.HTTPEntry) []har.Page {
	seen := make(map[string]bool)
	pages := make([]har.Page, 0)
	for _, e := range entries {
		if seen[e.Hostname] {
			continue
		}
		seen[e.Hostname] = true
		pages = append(pages, har.Page{
			StartedDateTime: e.StartedAt,
			ID:              e.Hostname,
			Title:           e.Hostname,
			PageTimings:     har.PageTimings{OnContentLoad: -1, OnLoad: -1},
		})
	}
	return pages
}

func toNameValues(nvs []model.NameValue) []har.NameValue {
	out := make([]har.NameValue, 0, len(nvs))
	for _, nv := range nvs {
		out = append(out, har.NameValue{Name: nv.Name, Value: nv.Value})
	}
	return out
}

func toHAREntry(e model.HTTPEntry) har.Entry {
	req := har.Request{
		Method:      e.Request.Method,
		URL:         e.Request.URL,
		HTTPVersion: e.Request.HTTPVersion,
		Headers:     toNameValues(e.Request.Headers),
		QueryString: toNameValues(e.Request.QueryString),
		Cookies:     toNameValues(e.Request.Cookies),
		HeadersSize: e.Request.HeadersSize,
		BodySize:    e.Request.BodySize,
	}
	if e.Request.PostData != nil {
		req.PostData = &har.PostData{MimeType: e.Request.PostData.MimeType, Text: e.Request.PostData.Text}
	}

	resp := har.Response{
		Status:      e.Response.Status,
		StatusText:  e.Response.StatusText,
		HTTPVersion: e.Response.HTTPVersion,
		Headers:     toNameValues(e.Response.Headers),
		Cookies:     toNameValues(e.Response.Cookies),
		Content: har.Content{
			Size:     e.Response.Content.Size,
			MimeType: e.Response.Content.MimeType,
			Text:     e.Response.Content.Text,
			Encoding: e.Response.Content.Encoding,
		},
		RedirectURL: e.Response.RedirectURL,
		HeadersSize: e.Response.HeadersSize,
		BodySize:    e.Response.BodySize,
	}

	return har.Entry{
		StartedDateTime: e.StartedAt,
		Time:            e.ElapsedMs,
		Request:         req,
		Response:        resp,
		Timings: har.Timings{
			Blocked: -1,
			DNS:     -1,
			Connect: -1,
			SSL:     -1,
			Send:    0,
			Wait:    e.ElapsedMs,
			Receive: 0,
		},
		TabID:        e.TabID,
		Hostname:     e.Hostname,
		ResourceType: e.ResourceType,
	}
}

func toHARWSMessage(f model.WSFrame) har.WSMessage {
	return har.WSMessage{
		Timestamp:    msToISO(f.Timestamp),
		TabID:        f.TabID,
		URL:          f.URL,
		ConnectionID: f.ConnectionID,
		Type:         string(f.Direction),
		Opcode:       f.Opcode,
		Data:         f.Data,
		Size:         f.Size,
	}
}

func toHARSSEEvent(e model.SSEEvent) har.SSEEvent {
	return har.SSEEvent{
		Timestamp: msToISO(e.Timestamp),
		TabID:     e.TabID,
		URL:       e.URL,
		Event:     e.EventType,
		Data:      e.Data,
		ID:        e.EventID,
	}
}
