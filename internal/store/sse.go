package store

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/browserclip/engine/internal/errs"
	"github.com/browserclip/engine/internal/model"
)

// AppendSSEEvent writes one SSE event, assigning an id/timestamp if absent.
func (s *Store) AppendSSEEvent(e model.SSEEvent) (string, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp == 0 {
		e.Timestamp = nowMillis()
	}
	if e.EventType == "" {
		e.EventType = model.DefaultSSEEventType
	}
	b, err := json.Marshal(e)
	if err != nil {
		return "", errs.Wrap(errs.KindStoreTransient, "marshal sse event", err)
	}
	if err := s.appendRaw(model.StreamSSE, e.ID, b); err != nil {
		return "", err
	}
	return e.ID, nil
}

// ScanSSEEvents returns SSE events in [tLo, tHi] ascending by timestamp,
// restricted to tabs if non-empty.
func (s *Store) ScanSSEEvents(tLo, tHi int64, tabs TabFilter) ([]model.SSEEvent, error) {
	raw, err := s.scanRaw(model.StreamSSE, tLo, tHi)
	if err != nil {
		return nil, err
	}
	out := make([]model.SSEEvent, 0, len(raw))
	for _, v := range raw {
		var e model.SSEEvent
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			continue
		}
		if !tabs.Allows(e.TabID) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
