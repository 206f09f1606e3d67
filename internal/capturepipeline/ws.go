// ws.go — WebSocket connection state (spec section 4.2): OPEN on ws_created,
// frames emitted as they arrive, CLOSED removes the tracking entry. Frames
// received before OPEN are dropped.
package capturepipeline

import (
	"context"

	"github.com/browserclip/engine/internal/model"
)

// HandleWSCreated opens tracking for a new connection.
func (p *Pipeline) HandleWSCreated(ev WSCreated) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.openWS[ev.RequestID] = &openConnection{
		tabID:    ev.TabID,
		hostname: ev.Hostname,
		url:      ev.URL,
	}
}

// HandleWSFrame appends one frame tagged by direction, dropping it if the
// connection is not OPEN (spec section 4.2).
func (p *Pipeline) HandleWSFrame(ctx context.Context, requestID string, ev WSFrameEvent, direction model.WSDirection) error {
	p.mu.Lock()
	conn, ok := p.openWS[requestID]
	p.mu.Unlock()
	if !ok {
		return nil // dropped: frame arrived before OPEN or after CLOSED
	}

	frame := model.WSFrame{
		Envelope: model.Envelope{
			Timestamp: nowFromSeconds(ev.TimestampSec).UnixMilli(),
			TabID:     conn.tabID,
			Hostname:  conn.hostname,
		},
		ConnectionID: requestID,
		URL:          conn.url,
		Direction:    direction,
		Opcode:       ev.Opcode,
		Data:         ev.PayloadData,
		Size:         len(ev.PayloadData),
	}
	_, err := p.store.AppendWSFrame(frame)
	return err
}

// HandleWSClosed removes the connection's tracking entry.
func (p *Pipeline) HandleWSClosed(ev WSClosed) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.openWS, ev.RequestID)
}
