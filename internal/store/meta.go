package store

import (
	"encoding/json"

	"github.com/tidwall/buntdb"

	"github.com/browserclip/engine/internal/errs"
)

// Well-known metadata keys (spec section 3: Metadata record notes).
const (
	MetaLastCleanupAt  = "last-cleanup-at"
	MetaLastUsageBytes = "last-usage-bytes"
)

// PutMeta stores an arbitrary JSON-serializable value under key.
func (s *Store) PutMeta(key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return errs.Wrap(errs.KindStoreTransient, "marshal meta value", err)
	}
	err = s.meta.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(key, string(b), nil)
		return err
	})
	if err != nil {
		return errs.Wrap(errs.KindStoreTransient, "put_meta", err)
	}
	return nil
}

// GetMeta reads the value stored under key into out. Returns false if the
// key is absent.
func (s *Store) GetMeta(key string, out any) (bool, error) {
	var raw string
	err := s.meta.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(key)
		if err != nil {
			return err
		}
		raw = v
		return nil
	})
	if err == buntdb.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, errs.Wrap(errs.KindStoreTransient, "get_meta", err)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, errs.Wrap(errs.KindStoreTransient, "unmarshal meta value", err)
	}
	return true, nil
}
