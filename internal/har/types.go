// Package har defines the extended HAR 1.2 document shape a clip is built
// into (spec section 4.4, 6). It generalizes the teacher's
// internal/export/export_har.go HAR types (same field set, same HAR 1.2
// provenance) with the per-entry _tabId/_hostname/_resourceType fields and
// the _webSocketMessages/_serverSentEvents sibling arrays the plain HAR
// export never needed.
package har

// Document is the top-level extended HAR document.
type Document struct {
	Log Log `json:"log"`
}

// Log is the "log" object: version, creator, browser, pages, entries, and
// the two non-standard sibling arrays carrying WS/SSE records.
type Log struct {
	Version           string       `json:"version"`
	Creator           Creator      `json:"creator"`
	Browser           Browser      `json:"browser"`
	Pages             []Page       `json:"pages"`
	Entries           []Entry      `json:"entries"`
	WebSocketMessages []WSMessage  `json:"_webSocketMessages"`
	ServerSentEvents  []SSEEvent   `json:"_serverSentEvents"`
}

// Creator identifies the tool that built the document.
type Creator struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Browser records the capturing browser when obtainable.
type Browser struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Page is derived one-per-unique-hostname (spec section 4.4).
type Page struct {
	StartedDateTime string      `json:"startedDateTime"`
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	PageTimings     PageTimings `json:"pageTimings"`
}

// PageTimings reports -1 for timings this engine never measures.
type PageTimings struct {
	OnContentLoad int `json:"onContentLoad"`
	OnLoad        int `json:"onLoad"`
}

// NameValue is a generic name/value pair for headers, query params, cookies.
type NameValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// PostData is the optional request body payload.
type PostData struct {
	MimeType string `json:"mimeType"`
	Text     string `json:"text"`
}

// Request is the request half of an entry.
type Request struct {
	Method      string      `json:"method"`
	URL         string      `json:"url"`
	HTTPVersion string      `json:"httpVersion"`
	Headers     []NameValue `json:"headers"`
	QueryString []NameValue `json:"queryString"`
	Cookies     []NameValue `json:"cookies"`
	PostData    *PostData   `json:"postData,omitempty"`
	HeadersSize int         `json:"headersSize"`
	BodySize    int         `json:"bodySize"`
}

// Content is the response body content.
type Content struct {
	Size     int    `json:"size"`
	MimeType string `json:"mimeType"`
	Text     string `json:"text,omitempty"`
	Encoding string `json:"encoding,omitempty"`
}

// Response is the response half of an entry.
type Response struct {
	Status      int         `json:"status"`
	StatusText  string      `json:"statusText"`
	HTTPVersion string      `json:"httpVersion"`
	Headers     []NameValue `json:"headers"`
	Cookies     []NameValue `json:"cookies"`
	Content     Content     `json:"content"`
	RedirectURL string      `json:"redirectURL,omitempty"`
	HeadersSize int         `json:"headersSize"`
	BodySize    int         `json:"bodySize"`
}

// Timings is the HAR timing breakdown; unmeasured phases report -1 (spec
// section 6: blocked/dns/connect/ssl default -1, send/receive default 0).
type Timings struct {
	Blocked int64 `json:"blocked"`
	DNS     int64 `json:"dns"`
	Connect int64 `json:"connect"`
	SSL     int64 `json:"ssl"`
	Send    int64 `json:"send"`
	Wait    int64 `json:"wait"`
	Receive int64 `json:"receive"`
}

// Entry is one HTTP request/response pair, extended with the fields spec
// section 4.4 adds on top of plain HAR 1.2.
type Entry struct {
	StartedDateTime string      `json:"startedDateTime"`
	Time            int64       `json:"time"`
	Request         Request     `json:"request"`
	Response        Response    `json:"response"`
	Cache           struct{}    `json:"cache"`
	Timings         Timings     `json:"timings"`
	TabID           int         `json:"_tabId"`
	Hostname        string      `json:"_hostname"`
	ResourceType    string      `json:"_resourceType"`
}

// WSMessage is one WebSocket frame, as a sibling record to entries.
type WSMessage struct {
	Timestamp    string `json:"timestamp"`
	TabID        int    `json:"tabId"`
	URL          string `json:"url"`
	ConnectionID string `json:"connectionId"`
	Type         string `json:"type"` // "send" | "receive"
	Opcode       int    `json:"opcode"`
	Data         string `json:"data"`
	Size         int    `json:"size"`
}

// SSEEvent is one Server-Sent Event, as a sibling record to entries.
type SSEEvent struct {
	Timestamp string `json:"timestamp"`
	TabID     int    `json:"tabId"`
	URL       string `json:"url"`
	Event     string `json:"event"`
	Data      string `json:"data"`
	ID        string `json:"id,omitempty"`
}
