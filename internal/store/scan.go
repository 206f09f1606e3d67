package store

import (
	"fmt"

	"github.com/tidwall/buntdb"

	"github.com/browserclip/engine/internal/errs"
	"github.com/browserclip/engine/internal/model"
)

// TabFilter restricts a scan to a set of tab identifiers. A nil or empty
// set means "all tabs" (spec section 4.1: scan(..., tab_filter?)).
type TabFilter map[int]struct{}

// NewTabFilter builds a TabFilter from a slice of tab IDs.
func NewTabFilter(tabs []int) TabFilter {
	if len(tabs) == 0 {
		return nil
	}
	f := make(TabFilter, len(tabs))
	for _, t := range tabs {
		f[t] = struct{}{}
	}
	return f
}

// Allows reports whether tabID passes the filter.
func (f TabFilter) Allows(tabID int) bool {
	if len(f) == 0 {
		return true
	}
	_, ok := f[tabID]
	return ok
}

// scanRaw yields the JSON payloads of every record in [tLo, tHi] ascending
// by timestamp, via the "ts" index — the primary scan path (spec section
// 4.1). Tab filtering happens one layer up, once the caller has unmarshaled
// each payload and can read its tab_id field.
func (s *Store) scanRaw(name model.Stream, tLo, tHi int64) ([]string, error) {
	sdb, err := s.stream(name)
	if err != nil {
		return nil, err
	}

	var out []string
	err = sdb.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendRange("ts", tsPivot(tLo), tsPivot(tHi+1), func(key, value string) bool {
			out = append(out, value)
			return true
		})
	})
	if err != nil {
		return nil, errs.Wrap(errs.KindStoreTransient, fmt.Sprintf("scan %s", name), err)
	}
	return out, nil
}
