package shuttle

import (
	"crypto/tls"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/pborman/uuid"
	metrics "github.com/rcrowley/go-metrics"
)

const (
	// RetrySleep is the base amount of time to sleep between write retries, in ms.
	RetrySleep = 100
	// DepthHighWatermark is the high watermark, beyond which the outlet looses
	// records instead of retrying.
	DepthHighWatermark = 0.6
	// RetryFormat is the format string for retries
	RetryFormat = "at=write retry=%t inbox.length=%d conn_id=%q attempts=%d error=%q\n"
)

// TCPOutlet delivers encoded records to a TCP (optionally TLS) syslog
// endpoint, one write per record. It owns the connection lifecycle: a dead
// connection is dropped and redialed on the next write. Write failures are
// retried maxAttempts times with backoff before the record is counted lost.
type TCPOutlet struct {
	inbox       <-chan *LogEvent
	encoder     *SyslogEncoder
	drops       *Counter
	lost        *Counter
	lostMark    int // If len(inbox) > lostMark during error handling, don't retry
	addr        string
	tlsConfig   *tls.Config
	timeout     time.Duration
	maxAttempts int
	verbose     bool

	conn   net.Conn
	connID string

	// User supplied loggers
	Logger    *log.Logger
	errLogger *log.Logger

	// Various stats that we'll collect, see NewTCPOutlet for names
	inboxLengthGauge  metrics.Gauge   // The number of outstanding events, updated every time a write fails
	writeSuccessTimer metrics.Timer   // The timing data for successful writes
	writeFailureTimer metrics.Timer   // The timing data for failed writes
	connectTimer      metrics.Timer   // The timing data for dials
	msgLostCount      metrics.Counter // The count of lost messages
	msgDroppedCount   metrics.Counter // The count of messages dropped at encode time
}

// NewTCPOutletFunc resolves the endpoint once and returns a NewOutletFunc
// whose outlets deliver to the resolved address with the resolved TLS
// policy. Resolution errors (missing host / missing port, bad TLS material)
// surface here, at construction, and are fatal to this shuttle only.
func NewTCPOutletFunc(endpoint string, tlsCfg *TLSConfig) (NewOutletFunc, error) {
	addr, tc, err := ResolveEndpoint(endpoint, tlsCfg)
	if err != nil {
		return nil, err
	}
	return func(s *Shuttle) Outlet {
		return NewTCPOutlet(s, addr, tc)
	}, nil
}

// NewTCPOutlet returns a properly constructed TCPOutlet for the given shuttle
func NewTCPOutlet(s *Shuttle, addr string, tlsConfig *tls.Config) *TCPOutlet {
	return &TCPOutlet{
		inbox:             s.Events,
		encoder:           s.encoder,
		drops:             s.Drops,
		lost:              s.Lost,
		lostMark:          int(float64(s.config.FrontBuff) * DepthHighWatermark),
		addr:              addr,
		tlsConfig:         tlsConfig,
		timeout:           s.config.Timeout,
		maxAttempts:       s.config.MaxAttempts,
		verbose:           s.config.Verbose,
		Logger:            s.Logger,
		errLogger:         s.ErrLogger,
		inboxLengthGauge:  metrics.GetOrRegisterGauge("outlet.inbox.length", s.MetricsRegistry),
		writeSuccessTimer: metrics.GetOrRegisterTimer("outlet.write.success", s.MetricsRegistry),
		writeFailureTimer: metrics.GetOrRegisterTimer("outlet.write.failure", s.MetricsRegistry),
		connectTimer:      metrics.GetOrRegisterTimer("outlet.connect.time", s.MetricsRegistry),
		msgLostCount:      metrics.GetOrRegisterCounter("msg.lost", s.MetricsRegistry),
		msgDroppedCount:   metrics.GetOrRegisterCounter("msg.dropped", s.MetricsRegistry),
	}
}

// Outlet receives events from the inbox, encodes each one and writes the
// record to the endpoint. An event that can't be encoded is dropped with a
// diagnostic; it never stops the loop.
func (t *TCPOutlet) Outlet() {
	for ev := range t.inbox {
		t.noticeLosses()

		msg, err := t.encoder.Encode(ev)
		if err != nil {
			t.drops.Add(1)
			t.msgDroppedCount.Inc(1)
			t.errLogger.Printf("at=encode conn_id=%q error=%q\n", t.connID, err)
			continue
		}

		t.retryWrite(msg)
	}
	t.disconnect()
}

// noticeLosses injects self describing records for any drops / losses
// accumulated since the last notice, so the collector sees the gap.
func (t *TCPOutlet) noticeLosses() {
	if dropped, since := t.drops.ReadAndReset(); dropped > 0 {
		t.writeNotice(fmt.Sprintf("Error L12: %d messages dropped since %s", dropped, since.UTC().Format(time.RFC3339)))
	}
	if lost, since := t.lost.ReadAndReset(); lost > 0 {
		t.writeNotice(fmt.Sprintf("Error L13: %d messages lost since %s", lost, since.UTC().Format(time.RFC3339)))
	}
}

func (t *TCPOutlet) writeNotice(msg string) {
	rec, err := t.encoder.Encode(EventFromMessage(msg))
	if err != nil {
		return
	}
	t.retryWrite(rec)
}

// retryWrite writes the record, retrying t.maxAttempts times unless the inbox
// is backed up past the high watermark, in which case the record is lost
// instead so the outlet can catch up.
func (t *TCPOutlet) retryWrite(msg []byte) {
	for attempts := 1; attempts <= t.maxAttempts; attempts++ {
		err := t.write(msg)
		if err != nil {
			t.disconnect()
			inboxLength := len(t.inbox)
			t.inboxLengthGauge.Update(int64(inboxLength))
			if attempts < t.maxAttempts && inboxLength < t.lostMark {
				t.errLogger.Printf(RetryFormat, true, inboxLength, t.connID, attempts, err)
				time.Sleep(time.Duration(attempts) * RetrySleep * time.Millisecond)
				continue
			}
			t.errLogger.Printf(RetryFormat, false, inboxLength, t.connID, attempts, err)
			t.lost.Add(1)
			t.msgLostCount.Inc(1)
		}
		return
	}
}

func (t *TCPOutlet) write(msg []byte) (err error) {
	if t.conn == nil {
		if err := t.connect(); err != nil {
			return err
		}
	}

	defer func(start time.Time) {
		if err != nil {
			t.writeFailureTimer.UpdateSince(start)
		} else {
			t.writeSuccessTimer.UpdateSince(start)
		}
	}(time.Now())

	if err := t.conn.SetWriteDeadline(time.Now().Add(t.timeout)); err != nil {
		return err
	}
	_, err = t.conn.Write(msg)
	return err
}

func (t *TCPOutlet) connect() error {
	defer func(start time.Time) { t.connectTimer.UpdateSince(start) }(time.Now())

	dialer := &net.Dialer{Timeout: t.timeout}

	var conn net.Conn
	var err error
	if t.tlsConfig != nil {
		conn, err = tls.DialWithDialer(dialer, "tcp", t.addr, t.tlsConfig)
	} else {
		conn, err = dialer.Dial("tcp", t.addr)
	}
	if err != nil {
		return err
	}

	t.conn = conn
	t.connID = uuid.New()
	if t.verbose {
		t.Logger.Printf("at=connect conn_id=%q addr=%q tls=%t\n", t.connID, t.addr, t.tlsConfig != nil)
	}
	return nil
}

func (t *TCPOutlet) disconnect() {
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}
}
