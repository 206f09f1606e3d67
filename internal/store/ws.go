package store

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/browserclip/engine/internal/errs"
	"github.com/browserclip/engine/internal/model"
)

// AppendWSFrame writes one WS frame, assigning an id/timestamp if absent.
func (s *Store) AppendWSFrame(f model.WSFrame) (string, error) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.Timestamp == 0 {
		f.Timestamp = nowMillis()
	}
	b, err := json.Marshal(f)
	if err != nil {
		return "", errs.Wrap(errs.KindStoreTransient, "marshal ws frame", err)
	}
	if err := s.appendRaw(model.StreamWS, f.ID, b); err != nil {
		return "", err
	}
	return f.ID, nil
}

// ScanWSFrames returns WS frames in [tLo, tHi] ascending by timestamp,
// restricted to tabs if non-empty.
func (s *Store) ScanWSFrames(tLo, tHi int64, tabs TabFilter) ([]model.WSFrame, error) {
	raw, err := s.scanRaw(model.StreamWS, tLo, tHi)
	if err != nil {
		return nil, err
	}
	out := make([]model.WSFrame, 0, len(raw))
	for _, v := range raw {
		var f model.WSFrame
		if err := json.Unmarshal([]byte(v), &f); err != nil {
			continue
		}
		if !tabs.Allows(f.TabID) {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}
