package store

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/browserclip/engine/internal/errs"
	"github.com/browserclip/engine/internal/model"
)

// AppendHTTPEntry writes one HTTP entry, assigning an id and filling the
// envelope timestamp with the current wall clock if absent (spec section 4.1: append).
func (s *Store) AppendHTTPEntry(e model.HTTPEntry) (string, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp == 0 {
		e.Timestamp = nowMillis()
	}
	b, err := json.Marshal(e)
	if err != nil {
		return "", errs.Wrap(errs.KindStoreTransient, "marshal http entry", err)
	}
	if err := s.appendRaw(model.StreamHTTP, e.ID, b); err != nil {
		return "", err
	}
	return e.ID, nil
}

// ScanHTTPEntries returns HTTP entries in [tLo, tHi] ascending by timestamp,
// restricted to tabs if non-empty (spec section 4.1: scan).
func (s *Store) ScanHTTPEntries(tLo, tHi int64, tabs TabFilter) ([]model.HTTPEntry, error) {
	raw, err := s.scanRaw(model.StreamHTTP, tLo, tHi)
	if err != nil {
		return nil, err
	}
	out := make([]model.HTTPEntry, 0, len(raw))
	for _, v := range raw {
		var e model.HTTPEntry
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			continue // corrupt record: skip rather than fail the whole scan
		}
		if !tabs.Allows(e.TabID) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
