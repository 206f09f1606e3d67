package store

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/buntdb"

	"github.com/browserclip/engine/internal/errs"
	"github.com/browserclip/engine/internal/model"
)

// DeleteOlderThan removes every record in the stream with timestamp <= tCut
// (spec section 4.1: delete_older_than). Runs as a single transaction: a
// crash mid-pass leaves either the pre- or post-delete state, never a partial one.
func (s *Store) DeleteOlderThan(name model.Stream, tCut int64) (int, error) {
	sdb, err := s.stream(name)
	if err != nil {
		return 0, err
	}

	var keys []string
	var freed int64
	txErr := sdb.db.Update(func(tx *buntdb.Tx) error {
		err := tx.AscendRange("ts", tsPivot(minTimestamp), tsPivot(tCut+1), func(key, value string) bool {
			keys = append(keys, key)
			freed += int64(len(value))
			return true
		})
		if err != nil {
			return err
		}
		for _, k := range keys {
			if _, err := tx.Delete(k); err != nil && err != buntdb.ErrNotFound {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		return 0, errs.Wrap(errs.KindStoreTransient, fmt.Sprintf("delete_older_than %s", name), txErr)
	}
	if len(keys) > 0 {
		if err := s.addStreamUsage(name, -freed); err != nil {
			return 0, err
		}
		s.log.WithFields(logrus.Fields{"stream": name, "count": len(keys), "cut": tCut}).Debug("store: delete_older_than evicted records")
	}
	return len(keys), nil
}

// DeleteOldest removes the n records with the smallest timestamp, ascending
// (spec section 4.1: delete_oldest).
func (s *Store) DeleteOldest(name model.Stream, n int) (int, error) {
	if n <= 0 {
		return 0, nil
	}
	sdb, err := s.stream(name)
	if err != nil {
		return 0, err
	}

	var keys []string
	var freed int64
	txErr := sdb.db.Update(func(tx *buntdb.Tx) error {
		err := tx.Ascend("ts", func(key, value string) bool {
			if len(keys) >= n {
				return false
			}
			keys = append(keys, key)
			freed += int64(len(value))
			return true
		})
		if err != nil {
			return err
		}
		for _, k := range keys {
			if _, err := tx.Delete(k); err != nil && err != buntdb.ErrNotFound {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		return 0, errs.Wrap(errs.KindStoreTransient, fmt.Sprintf("delete_oldest %s", name), txErr)
	}
	if len(keys) > 0 {
		if err := s.addStreamUsage(name, -freed); err != nil {
			return 0, err
		}
		s.log.WithFields(logrus.Fields{"stream": name, "count": len(keys)}).Debug("store: delete_oldest evicted records")
	}
	return len(keys), nil
}

// minTimestamp is the lower pivot bound for "from the beginning of time" scans.
const minTimestamp int64 = 0

// Count returns the number of records currently in the stream.
func (s *Store) Count(name model.Stream) (int, error) {
	sdb, err := s.stream(name)
	if err != nil {
		return 0, err
	}
	n, txErr := sdb.db.Len()
	if txErr != nil {
		return 0, errs.Wrap(errs.KindStoreTransient, fmt.Sprintf("count %s", name), txErr)
	}
	return n, nil
}

// Extremes returns the min and max timestamps present in the stream, or nil
// pointers if the stream is empty (spec section 4.1: extremes).
func (s *Store) Extremes(name model.Stream) (min, max *int64, err error) {
	sdb, serr := s.stream(name)
	if serr != nil {
		return nil, nil, serr
	}

	txErr := sdb.db.View(func(tx *buntdb.Tx) error {
		var lo, hi *int64
		if err := tx.Ascend("ts", func(key, value string) bool {
			ts, ok := extractTimestamp(value)
			if ok {
				lo = &ts
			}
			return false
		}); err != nil {
			return err
		}
		if err := tx.Descend("ts", func(key, value string) bool {
			ts, ok := extractTimestamp(value)
			if ok {
				hi = &ts
			}
			return false
		}); err != nil {
			return err
		}
		min, max = lo, hi
		return nil
	})
	if txErr != nil {
		return nil, nil, errs.Wrap(errs.KindStoreTransient, fmt.Sprintf("extremes %s", name), txErr)
	}
	return min, max, nil
}

// ClearAll wipes the three streams, each atomically, and resets their usage counters.
func (s *Store) ClearAll() error {
	for name, sdb := range s.streams {
		if err := sdb.checkOpen(); err != nil {
			return err
		}
		if err := sdb.db.Update(func(tx *buntdb.Tx) error {
			var keys []string
			if err := tx.Ascend("ts", func(key, value string) bool {
				keys = append(keys, key)
				return true
			}); err != nil {
				return err
			}
			for _, k := range keys {
				if _, err := tx.Delete(k); err != nil && err != buntdb.ErrNotFound {
					return err
				}
			}
			return nil
		}); err != nil {
			return errs.Wrap(errs.KindStoreTransient, fmt.Sprintf("clear_all %s", name), err)
		}
		if err := s.writeStreamUsage(name, 0); err != nil {
			return err
		}
	}
	s.log.Info("store: cleared all streams")
	return nil
}
