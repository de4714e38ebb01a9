package types

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// Value is a JSON value kept exactly as the backend sent it. Metrics are
// displayed, never computed on, so no shape is imposed.
type Value struct {
	raw json.RawMessage
}

func (v *Value) UnmarshalJSON(b []byte) error {
	v.raw = append(v.raw[:0], b...)
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	if len(v.raw) == 0 {
		return []byte("null"), nil
	}
	return v.raw, nil
}

// IsZero reports whether the value is absent or null.
func (v Value) IsZero() bool {
	return len(v.raw) == 0 || bytes.Equal(v.raw, []byte("null"))
}

// Text renders the value for display. Strings are unquoted, numbers lose
// trailing zeros (42.0 shows as 42), null and absent show as "".
// Objects and arrays show as compact JSON.
func (v Value) Text() string {
	if v.IsZero() {
		return ""
	}
	switch v.raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(v.raw, &s); err == nil {
			return s
		}
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, v.raw); err == nil {
			return buf.String()
		}
	case 't', 'f':
		return string(v.raw)
	default:
		if f, err := strconv.ParseFloat(string(v.raw), 64); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
	}
	return string(v.raw)
}

// Falsy reports whether a loosely typed reader would treat the value as
// missing: absent, null, false, 0 or "".
func (v Value) Falsy() bool {
	if v.IsZero() {
		return true
	}
	switch string(v.raw) {
	case "false", `""`:
		return true
	}
	if f, err := strconv.ParseFloat(string(v.raw), 64); err == nil {
		return f == 0
	}
	return false
}

// Timestamp decodes both RFC 3339 times and the zone-less form
// ("2024-01-15T10:30:00.123456") some backends emit, read as UTC. A value
// that matches neither decodes to the zero time rather than failing the
// whole document.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		// null or a non-string
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	t.Time = time.Time{}
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.UTC().Format(time.RFC3339Nano))
}
