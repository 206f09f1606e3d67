package sanitize

import "encoding/json"

// redactJSONText parses text as JSON and recursively redacts any object key
// matching a substring pattern, re-serializing the result (spec section
// 4.4). ok is false when text does not parse as JSON, in which case the
// caller falls back to the non-JSON regex pass.
func (s *Sanitizer) redactJSONText(text string) (out string, ok bool) {
	var v interface{}
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return "", false
	}
	redacted := s.redactJSONValue(v)
	b, err := json.Marshal(redacted)
	if err != nil {
		return "", false
	}
	return string(b), true
}

// redactJSONValue walks an arbitrary decoded JSON value, replacing the value
// of any object key matching a substring pattern with Redacted.
func (s *Sanitizer) redactJSONValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, child := range val {
			if s.matchesPattern(k) {
				out[k] = Redacted
				continue
			}
			out[k] = s.redactJSONValue(child)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, child := range val {
			out[i] = s.redactJSONValue(child)
		}
		return out
	default:
		return val
	}
}
