package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Timestamp is an instant with nanosecond resolution. It is always held in
// UTC without a monotonic clock reading, so values compare equal after a
// round trip through the library document.
//
// On the wire a Timestamp is the integer number of nanoseconds since the Unix
// epoch. A decimal string of the same value is accepted when decoding.
type Timestamp struct {
	t time.Time
}

// NewTimestamp normalises t into a Timestamp.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{t: t.UTC().Round(0)}
}

// TimestampFromNanos builds a Timestamp from Unix nanoseconds.
func TimestampFromNanos(ns int64) Timestamp {
	return Timestamp{t: time.Unix(0, ns).UTC()}
}

// Time returns the instant as a time.Time in UTC.
func (ts Timestamp) Time() time.Time { return ts.t }

// UnixNano returns the instant as Unix nanoseconds.
func (ts Timestamp) UnixNano() int64 {
	if ts.t.IsZero() {
		return 0
	}
	return ts.t.UnixNano()
}

// IsZero reports whether ts is unset.
func (ts Timestamp) IsZero() bool { return ts.t.IsZero() }

// Equal reports whether both timestamps denote the same instant.
func (ts Timestamp) Equal(other Timestamp) bool { return ts.t.Equal(other.t) }

func (ts Timestamp) String() string {
	return ts.t.Format(time.RFC3339Nano)
}

// MarshalJSON implements json.Marshaler.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(ts.UnixNano(), 10)), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*ts = Timestamp{}
		return nil
	}
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("timestamp: %w", err)
		}
		raw = s
	}
	ns, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("timestamp: invalid nanosecond value %q", raw)
	}
	if ns == 0 {
		*ts = Timestamp{}
		return nil
	}
	*ts = TimestampFromNanos(ns)
	return nil
}
