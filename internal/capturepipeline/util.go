package capturepipeline

import (
	"net/url"
	"time"

	"github.com/browserclip/engine/internal/model"
)

const isoLayout = "2006-01-02T15:04:05.000Z"

// nowFromSeconds converts a tap timestamp (fractional seconds) to a wall
// clock time. The tap's clock is assumed monotonic with the engine's.
func nowFromSeconds(sec float64) time.Time {
	return time.Unix(0, int64(sec*float64(time.Second)))
}

// elapsedMillis computes wall-clock duration from the PENDING entry's
// observation to now, the emitting transition (spec section 4.2).
func elapsedMillis(observedAt time.Time) int64 {
	return time.Since(observedAt).Milliseconds()
}

// headerBytes is a coarse header-block size estimate: name + value + ": \r\n".
func headerBytes(h HeaderMap) int {
	n := 0
	for k, v := range h {
		n += len(k) + len(v) + 4
	}
	return n
}

// parseQueryString extracts name/value pairs from a URL's query component.
func parseQueryString(rawURL string) []model.NameValue {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	q := u.Query()
	out := make([]model.NameValue, 0, len(q))
	for k, vs := range q {
		for _, v := range vs {
			out = append(out, model.NameValue{Name: k, Value: v})
		}
	}
	return out
}
