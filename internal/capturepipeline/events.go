// events.go — Go structs for the tap's event contract (spec section 6). The
// tap itself lives outside this repo; these types are what arrives over the
// /tap websocket once the transport layer decodes a JSON frame.
package capturepipeline

// HeaderMap preserves the tap's map-of-headers shape; order is not significant.
type HeaderMap map[string]string

// RequestInfo is the request half of request_will_be_sent.
type RequestInfo struct {
	Method       string    `json:"method"`
	URL          string    `json:"url"`
	HTTPVersion  string    `json:"http_version"`
	Headers      HeaderMap `json:"headers"`
	PostData     string    `json:"post_data,omitempty"`
	PostDataMIME string    `json:"post_data_mime,omitempty"`
}

// RedirectResponse mirrors the response half of a redirected leg, present
// on request_will_be_sent only when this request is a redirect's successor.
type RedirectResponse struct {
	Status     int       `json:"status"`
	StatusText string    `json:"status_text"`
	Headers    HeaderMap `json:"headers"`
	URL        string    `json:"url"`
}

// RequestWillBeSent starts or continues an HTTP transaction (spec section 6).
type RequestWillBeSent struct {
	RequestID        string            `json:"request_id"`
	TabID            int               `json:"tab_id"`
	Hostname         string            `json:"hostname"`
	Request          RequestInfo       `json:"request"`
	TimestampSec     float64           `json:"timestamp"`
	ResourceType     string            `json:"resource_type"`
	RedirectResponse *RedirectResponse `json:"redirect_response,omitempty"`
}

// ResponseInfo is the response half of response_received.
type ResponseInfo struct {
	Status            int       `json:"status"`
	StatusText        string    `json:"status_text"`
	Headers           HeaderMap `json:"headers"`
	MimeType          string    `json:"mime"`
	Protocol          string    `json:"protocol"`
	EncodedDataLength int64     `json:"encoded_data_length"`
	URL               string    `json:"url"`
}

// ResponseReceived carries the response half once headers arrive.
type ResponseReceived struct {
	RequestID string       `json:"request_id"`
	Response  ResponseInfo `json:"response"`
	Type      string       `json:"type"`
}

// LoadingFinished signals a transaction terminated successfully.
type LoadingFinished struct {
	RequestID         string `json:"request_id"`
	EncodedDataLength int64  `json:"encoded_data_length"`
}

// LoadingFailed signals a transaction terminated in error.
type LoadingFailed struct {
	RequestID string `json:"request_id"`
	ErrorText string `json:"error_text"`
}

// WSCreated opens a WebSocket connection's tracking entry.
type WSCreated struct {
	RequestID string `json:"request_id"`
	TabID     int    `json:"tab_id"`
	Hostname  string `json:"hostname"`
	URL       string `json:"url"`
}

// WSFrameEvent carries one sent or received WS frame.
type WSFrameEvent struct {
	RequestID    string  `json:"request_id"`
	TimestampSec float64 `json:"timestamp"`
	Opcode       int     `json:"opcode"`
	PayloadData  string  `json:"payload_data"`
}

// WSClosed removes a connection's tracking entry.
type WSClosed struct {
	RequestID string `json:"request_id"`
}

// SSEMessage is emitted directly on arrival (spec section 4.2).
type SSEMessage struct {
	RequestID    string  `json:"request_id"`
	TabID        int     `json:"tab_id"`
	Hostname     string  `json:"hostname"`
	TimestampSec float64 `json:"timestamp"`
	EventName    string  `json:"event_name"`
	EventID      string  `json:"event_id,omitempty"`
	Data         string  `json:"data"`
}

// ResponseBody is what the tap returns for get_response_body(request_id).
type ResponseBody struct {
	Body          string `json:"body"`
	Base64Encoded bool   `json:"base64_encoded"`
}

// TabClosed tells the pipeline to drop all pending state for a tab without emitting it.
type TabClosed struct {
	TabID int `json:"tab_id"`
}
