// Package streak normalizes the heterogeneous persisted streak encodings
// into one canonical state. The raw value is externally owned and has
// accumulated three shapes over time: a named-field object, a two-element
// [date, count] tuple, and a string wrapping either. Decoding is an
// exhaustive match over those shapes with a guaranteed-safe zero state for
// anything else; it never panics.
package streak

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Status classifies a streak relative to "today".
type Status string

const (
	// StatusCurrent means the streak was updated today.
	StatusCurrent Status = "current"
	// StatusGrace means the streak is exactly one calendar day stale. It is
	// still displayed but flagged.
	StatusGrace Status = "grace"
	// StatusBroken means the streak is older than one day; the count is
	// still reported but treated as pending reset.
	StatusBroken Status = "broken"
)

// State is the canonical streak form.
type State struct {
	LastUpdateDate string `json:"date"`
	Count          int    `json:"count"`
}

// Zero is the safe state produced for unparseable input.
func Zero() State {
	return State{LastUpdateDate: "", Count: 0}
}

// Parse decodes a persisted raw value. The value may be a JSON object, a
// JSON array, or a string that itself encodes either (including one level of
// quote wrapping).
func Parse(raw string) State {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Zero()
	}

	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return Zero()
	}
	return Normalize(v)
}

// Normalize converts a decoded raw value of unspecified shape into a State.
func Normalize(v any) State {
	switch t := v.(type) {
	case map[string]any:
		return fromObject(t)
	case []any:
		return fromTuple(t)
	case string:
		// String-wrapped encoding: decode one more level.
		return Parse(t)
	default:
		return Zero()
	}
}

func fromObject(obj map[string]any) State {
	date, ok := stringField(obj, "lastUpdateDate", "last_update_date", "date")
	if !ok {
		return Zero()
	}
	count, ok := intField(obj, "count", "streak")
	if !ok || count < 0 {
		count = 0
	}
	return State{LastUpdateDate: date, Count: count}
}

func fromTuple(arr []any) State {
	if len(arr) < 2 {
		return Zero()
	}
	date, ok := arr[0].(string)
	if !ok {
		return Zero()
	}
	count, ok := toInt(arr[1])
	if !ok || count < 0 {
		count = 0
	}
	return State{LastUpdateDate: date, Count: count}
}

func stringField(obj map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			if s, ok := v.(string); ok {
				return s, true
			}
		}
	}
	return "", false
}

func intField(obj map[string]any, keys ...string) (int, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			return toInt(v)
		}
	}
	return 0, false
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

// Today formats the current calendar date in the fixed UTC offset the
// streak data is recorded in.
func Today(now time.Time, utcOffsetHours int) string {
	zone := time.FixedZone("streak", utcOffsetHours*3600)
	return now.In(zone).Format(dateLayout)
}

// Classify buckets a state against today's date. Equal date is current, one
// calendar day earlier is grace, anything older (or unparseable) is broken.
func Classify(s State, today string) Status {
	last, err := time.Parse(dateLayout, s.LastUpdateDate)
	if err != nil {
		return StatusBroken
	}
	ref, err := time.Parse(dateLayout, today)
	if err != nil {
		return StatusBroken
	}

	switch {
	case last.Equal(ref):
		return StatusCurrent
	case last.AddDate(0, 0, 1).Equal(ref):
		return StatusGrace
	default:
		return StatusBroken
	}
}
