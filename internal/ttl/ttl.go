// Package ttl parses and validates duration strings used to size the
// rolling buffer's age horizon and related retention windows.
package ttl

import (
	"fmt"
	"time"
)

// MinTTL is the smallest non-zero TTL accepted by ParseTTL.
const MinTTL = time.Minute

// MaxAge is the fixed age horizon for the rolling buffer (spec invariant I1):
// no record older than 24h survives a Buffer Manager pass.
const MaxAge = 24 * time.Hour

// SkewTolerance is the maximum allowed clock skew for incoming timestamps
// (invariant I1: now - 24h <= ts <= now + skew).
const SkewTolerance = 60 * time.Second

// ParseTTL parses a Go duration string. The empty string means "unlimited"
// (0). Any non-empty value below MinTTL is rejected.
func ParseTTL(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("ttl: invalid duration %q: %w", s, err)
	}
	if d < MinTTL {
		return 0, fmt.Errorf("ttl: %q is below the minimum of %s", s, MinTTL)
	}
	return d, nil
}
