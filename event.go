package shuttle

import (
	"encoding/json"
	"fmt"
	"time"
)

// Reserved field names. The value at HostKey becomes the syslog hostname and
// the value at MessageKey is the body for the text codec.
const (
	HostKey    = "host"
	MessageKey = "message"
)

// LogEvent is a single structured log record: named fields in insertion
// order. Values are strings, numbers, bools, times or nested structures.
// A LogEvent is owned by exactly one encode call at a time; Remove mutates
// it in place.
type LogEvent struct {
	keys   []string
	fields map[string]interface{}
}

// NewLogEvent returns an empty event.
func NewLogEvent() *LogEvent {
	return &LogEvent{fields: make(map[string]interface{})}
}

// EventFromMessage returns an event with only the message field set.
func EventFromMessage(msg string) *LogEvent {
	ev := NewLogEvent()
	ev.Insert(MessageKey, msg)
	return ev
}

// Insert sets key to value, replacing any previous value but keeping the
// key's original position.
func (ev *LogEvent) Insert(key string, value interface{}) {
	if _, ok := ev.fields[key]; !ok {
		ev.keys = append(ev.keys, key)
	}
	ev.fields[key] = value
}

// Get returns the value for key and whether it was present.
func (ev *LogEvent) Get(key string) (interface{}, bool) {
	v, ok := ev.fields[key]
	return v, ok
}

// Remove deletes key from the event, returning the removed value and whether
// it was present.
func (ev *LogEvent) Remove(key string) (interface{}, bool) {
	v, ok := ev.fields[key]
	if !ok {
		return nil, false
	}
	delete(ev.fields, key)
	for i, k := range ev.keys {
		if k == key {
			ev.keys = append(ev.keys[:i], ev.keys[i+1:]...)
			break
		}
	}
	return v, true
}

// Len is the number of fields in the event.
func (ev *LogEvent) Len() int {
	return len(ev.keys)
}

// Fields returns the field names in insertion order.
func (ev *LogEvent) Fields() []string {
	keys := make([]string, len(ev.keys))
	copy(keys, ev.keys)
	return keys
}

// MarshalJSON serializes the event as a JSON object with the fields in
// insertion order. Values that have no JSON representation (NaN, Inf) make
// the whole marshal fail.
func (ev *LogEvent) MarshalJSON() ([]byte, error) {
	buf := make([]byte, 0, 64)
	buf = append(buf, '{')
	for i, k := range ev.keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf = append(buf, kb...)
		buf = append(buf, ':')
		vb, err := json.Marshal(ev.fields[k])
		if err != nil {
			return nil, err
		}
		buf = append(buf, vb...)
	}
	buf = append(buf, '}')
	return buf, nil
}

// displayString renders a field value for use in the syslog header or the
// text codec body. Strings pass through untouched, everything else gets its
// JSON form, falling back to fmt for values JSON can't express.
func displayString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	default:
		if b, err := json.Marshal(v); err == nil {
			return string(b)
		}
		return fmt.Sprintf("%v", v)
	}
}
