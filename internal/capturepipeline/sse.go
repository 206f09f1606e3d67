// sse.go — Server-Sent Events are emitted directly on arrival (spec section
// 4.2), with url resolved from the pending-HTTP entry sharing the same
// request-id when one is still tracked.
package capturepipeline

import (
	"github.com/browserclip/engine/internal/model"
)

// HandleSSEMessage appends one SSE event.
func (p *Pipeline) HandleSSEMessage(ev SSEMessage) error {
	url := ""
	p.mu.Lock()
	if pending, ok := p.pendingHTTP[ev.RequestID]; ok {
		url = pending.req.URL
	}
	p.mu.Unlock()

	evt := model.SSEEvent{
		Envelope: model.Envelope{
			Timestamp: nowFromSeconds(ev.TimestampSec).UnixMilli(),
			TabID:     ev.TabID,
			Hostname:  ev.Hostname,
		},
		URL:       url,
		EventType: ev.EventName,
		Data:      ev.Data,
		EventID:   ev.EventID,
	}
	_, err := p.store.AppendSSEEvent(evt)
	return err
}
