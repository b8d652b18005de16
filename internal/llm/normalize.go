package llm

import (
	"encoding/json"
	"strings"
)

// envelopeKeys are the fields inference backends use for their text payload
var envelopeKeys = []string{"content", "text", "generated_text", "response", "output"}

// Normalize reduces a raw provider payload to plain text. Providers and
// gateways disagree on envelopes ({"content": ...}, [{"generated_text": ...}],
// a bare JSON string); everything downstream only ever sees the text.
// Payloads that are not a recognised envelope are returned trimmed.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	switch s[0] {
	case '{', '[', '"':
		var v any
		if err := json.Unmarshal([]byte(s), &v); err == nil {
			if text, ok := envelopeText(v); ok {
				return strings.TrimSpace(text)
			}
		}
	}
	return s
}

func envelopeText(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case map[string]any:
		for _, key := range envelopeKeys {
			if s, ok := t[key].(string); ok {
				return s, true
			}
		}
		if msg, ok := t["message"]; ok {
			return envelopeText(msg)
		}
	case []any:
		if len(t) == 1 {
			return envelopeText(t[0])
		}
	}
	return "", false
}
