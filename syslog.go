package shuttle

import (
	"bytes"
	"fmt"
	"strings"
	"time"
)

// Syslog facility and severity numbers, per RFC3164. Every record this sink
// emits is user-level/informational; this sink does not map event severity
// to syslog severity.
const (
	facilityUser = 1
	severityInfo = 6

	priority = facilityUser<<3 | severityInfo // <14>
)

// rfc3164TimeFormat is the legacy syslog timestamp, day-of-month space
// padded.
const rfc3164TimeFormat = time.Stamp

// SerializationError reports an event body that could not be rendered. The
// affected event is dropped; encoding continues for subsequent events.
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialize event body: %s", e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// SyslogEncoder turns one LogEvent into one RFC3164 syslog record. The pid
// and encoding policy are captured at construction and shared read-only, so
// a single encoder is safe to use from any number of outlet workers; each
// call owns its event exclusively.
type SyslogEncoder struct {
	appName string
	pid     int
	policy  *EncodingConfig
	now     func() time.Time
}

// NewSyslogEncoder returns an encoder bound to the given process id and
// encoding policy.
func NewSyslogEncoder(pid int, policy *EncodingConfig) *SyslogEncoder {
	return &SyslogEncoder{
		appName: DefaultAppName,
		pid:     pid,
		policy:  policy,
		now:     time.Now,
	}
}

// Encode consumes the event and produces a newline terminated syslog record.
//
// The order below matters: the host field has to come out of the event
// before the body is serialized, or it would leak into the JSON body.
func (e *SyslogEncoder) Encode(ev *LogEvent) ([]byte, error) {
	var hostname string
	if v, ok := ev.Remove(HostKey); ok {
		hostname = displayString(v)
	}

	e.policy.ApplyRules(ev)

	var msg string
	switch e.policy.Codec {
	case CodecText:
		if v, ok := ev.Get(MessageKey); ok {
			msg = displayString(v)
		}
	default:
		b, err := ev.MarshalJSON()
		if err != nil {
			return nil, &SerializationError{Err: err}
		}
		msg = string(b)
	}

	// One event is one wire record; the trailing newline is the only
	// record boundary, so the body must not carry bare newlines itself.
	msg = strings.ReplaceAll(msg, "\n", " ")

	var buf bytes.Buffer
	ts := e.now().Format(rfc3164TimeFormat)
	if hostname == "" {
		fmt.Fprintf(&buf, "<%d>%s %s[%d]: %s", priority, ts, e.appName, e.pid, msg)
	} else {
		fmt.Fprintf(&buf, "<%d>%s %s %s[%d]: %s", priority, ts, hostname, e.appName, e.pid, msg)
	}
	buf.WriteByte('\n')

	return buf.Bytes(), nil
}
