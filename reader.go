package shuttle

import (
	"bufio"
	"io"
	"strings"
	"time"

	metrics "github.com/rcrowley/go-metrics"
	"github.com/tidwall/gjson"
)

// Reader performs the reading of lines from an io.ReadCloser, turning each
// line into a LogEvent and emitting it on outbox. If outbox is full the
// event is dropped and counted, the reader never blocks the producer.
type Reader struct {
	outbox            chan<- *LogEvent
	inputFormat       int
	drops             *Counter
	linesReadMeter    metrics.Meter
	linesDroppedMeter metrics.Meter
	delayTimeMetric   metrics.Timer
}

// NewReader constructs a new reader that will use the provided outbox.
func NewReader(outbox chan<- *LogEvent, inputFormat int, drops *Counter, mRegistry metrics.Registry) Reader {
	return Reader{
		outbox:            outbox,
		inputFormat:       inputFormat,
		drops:             drops,
		linesReadMeter:    metrics.GetOrRegisterMeter("lines.read", mRegistry),
		linesDroppedMeter: metrics.GetOrRegisterMeter("lines.dropped", mRegistry),
		delayTimeMetric:   metrics.GetOrRegisterTimer("reader.line.delay.time", mRegistry),
	}
}

// Read lines from input until it errors (io.EOF on normal close), returning
// the error.
func (rdr Reader) Read(input io.ReadCloser) error {
	rdrIo := bufio.NewReader(input)

	lastLogTime := time.Now()

	for {
		line, err := rdrIo.ReadBytes('\n')
		currentLogTime := time.Now()

		if err != nil {
			input.Close()
			return err
		}

		rdr.linesReadMeter.Mark(1)

		select {
		case rdr.outbox <- rdr.eventFor(line):
			rdr.delayTimeMetric.Update(currentLogTime.Sub(lastLogTime))
		default:
			rdr.drops.Add(1)
			rdr.linesDroppedMeter.Mark(1)
		}
		lastLogTime = currentLogTime
	}
}

// eventFor converts one raw input line into a LogEvent according to the
// configured input format.
func (rdr Reader) eventFor(line []byte) *LogEvent {
	if rdr.inputFormat == InputFormatJSON {
		if ev, ok := eventFromJSON(line); ok {
			return ev
		}
		// Fall through: lines that aren't a JSON object still ship,
		// as a plain message.
	}
	return EventFromMessage(strings.TrimRight(string(line), "\r\n"))
}

// eventFromJSON parses a JSON object into a LogEvent, preserving the
// document's field order. Returns false for anything that is not a JSON
// object.
func eventFromJSON(line []byte) (*LogEvent, bool) {
	if !gjson.ValidBytes(line) {
		return nil, false
	}
	res := gjson.ParseBytes(line)
	if !res.IsObject() {
		return nil, false
	}

	ev := NewLogEvent()
	res.ForEach(func(key, value gjson.Result) bool {
		ev.Insert(key.String(), jsonValue(value))
		return true
	})
	return ev, true
}

func jsonValue(v gjson.Result) interface{} {
	switch v.Type {
	case gjson.String:
		return v.String()
	case gjson.Number:
		return v.Float()
	case gjson.True:
		return true
	case gjson.False:
		return false
	case gjson.Null:
		return nil
	default:
		// nested objects / arrays
		return v.Value()
	}
}
