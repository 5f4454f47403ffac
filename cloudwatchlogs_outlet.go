package shuttle

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	metrics "github.com/rcrowley/go-metrics"
)

// CloudWatchLogsClient defines the interface for CloudWatch Logs operations we need
type CloudWatchLogsClient interface {
	DescribeLogStreams(ctx context.Context, params *cloudwatchlogs.DescribeLogStreamsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogStreamsOutput, error)
	PutLogEvents(ctx context.Context, params *cloudwatchlogs.PutLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error)
}

// CloudWatchLogsOutlet delivers the encoded records to an Amazon CloudWatch
// Logs stream. PutLogEvents is request scoped, so the outlet coalesces
// records into small timed batches; the records themselves are the same
// RFC3164 lines the TCP outlet writes.
type CloudWatchLogsOutlet struct {
	inbox   <-chan *LogEvent
	encoder *SyslogEncoder
	client  CloudWatchLogsClient
	logGroupName,
	logStreamName string
	tokens    chan string
	batchSize int
	wait      time.Duration
	timeout   time.Duration
	drops     *Counter
	lost      *Counter

	errLogger *log.Logger

	putSuccessTimer metrics.Timer
	putFailureTimer metrics.Timer
	msgLostCount    metrics.Counter
	msgDroppedCount metrics.Counter
}

// NewCloudWatchLogsOutletFunc creates a NewOutletFunc whose outlets deliver
// to a specific region/log group/log stream. The stream's upload sequence
// token is fetched here, once, and then handed from request to request via a
// channel so concurrent outlets serialize their puts.
func NewCloudWatchLogsOutletFunc(region, logGroupName, logStreamName string) (NewOutletFunc, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}

	client := cloudwatchlogs.NewFromConfig(cfg)
	d, err := client.DescribeLogStreams(context.TODO(), &cloudwatchlogs.DescribeLogStreamsInput{
		LogGroupName:        aws.String(logGroupName),
		LogStreamNamePrefix: aws.String(logStreamName),
	})
	if err != nil {
		return nil, err
	}

	var token string
	var found bool
	for _, ls := range d.LogStreams {
		if aws.ToString(ls.LogStreamName) == logStreamName {
			found = true
			token = aws.ToString(ls.UploadSequenceToken)
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("Unable to find log stream: %s", logStreamName)
	}

	tc := make(chan string, 1)
	tc <- token

	return func(s *Shuttle) Outlet {
		return &CloudWatchLogsOutlet{
			inbox:           s.Events,
			encoder:         s.encoder,
			client:          client,
			logGroupName:    logGroupName,
			logStreamName:   logStreamName,
			tokens:          tc,
			batchSize:       s.config.BatchSize,
			wait:            s.config.WaitDuration,
			timeout:         s.config.Timeout,
			drops:           s.Drops,
			lost:            s.Lost,
			errLogger:       s.ErrLogger,
			putSuccessTimer: metrics.GetOrRegisterTimer("outlet.put.success", s.MetricsRegistry),
			putFailureTimer: metrics.GetOrRegisterTimer("outlet.put.failure", s.MetricsRegistry),
			msgLostCount:    metrics.GetOrRegisterCounter("msg.lost", s.MetricsRegistry),
			msgDroppedCount: metrics.GetOrRegisterCounter("msg.dropped", s.MetricsRegistry),
		}
	}, nil
}

// Outlet drains the inbox into PutLogEvents requests until the inbox closes.
func (o *CloudWatchLogsOutlet) Outlet() {
	for {
		events, open := o.fill()
		if len(events) > 0 {
			o.put(events)
		}
		if !open {
			return
		}
	}
}

// fill coalesces encoded records. A request goes out on timeout after at
// least one record is ready, or when the batch is full. Events that fail to
// encode are dropped with a diagnostic and don't stop the fill.
func (o *CloudWatchLogsOutlet) fill() ([]types.InputLogEvent, bool) {
	events := make([]types.InputLogEvent, 0, o.batchSize)
	timeout := new(time.Timer) // Gives us a nil channel and no timeout to start with

	for {
		select {
		case <-timeout.C:
			return events, true

		case ev, open := <-o.inbox:
			if !open {
				return events, false
			}

			rec, err := o.encoder.Encode(ev)
			if err != nil {
				o.drops.Add(1)
				o.msgDroppedCount.Inc(1)
				o.errLogger.Printf("at=encode error=%q\n", err)
				continue
			}

			if timeout.C == nil {
				timeout = time.NewTimer(o.wait)
				defer timeout.Stop()
			}

			events = append(events, types.InputLogEvent{
				Message:   aws.String(strings.TrimRight(string(rec), "\n")),
				Timestamp: aws.Int64(time.Now().Round(time.Millisecond).UnixNano() / int64(time.Millisecond)),
			})

			if len(events) >= o.batchSize {
				return events, true
			}
		}
	}
}

func (o *CloudWatchLogsOutlet) put(events []types.InputLogEvent) {
	token := <-o.tokens

	input := &cloudwatchlogs.PutLogEventsInput{
		LogGroupName:  aws.String(o.logGroupName),
		LogStreamName: aws.String(o.logStreamName),
		LogEvents:     events,
	}
	if token != "" { // Amazon balks if SequenceToken is set to ""
		input.SequenceToken = aws.String(token)
	}

	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	start := time.Now()
	out, err := o.client.PutLogEvents(ctx, input)
	if err != nil {
		o.putFailureTimer.UpdateSince(start)
		o.lost.Add(len(events))
		o.msgLostCount.Inc(int64(len(events)))
		o.errLogger.Printf("at=put msgcount=%d error=%q\n", len(events), err)
		o.tokens <- token
		return
	}
	o.putSuccessTimer.UpdateSince(start)

	if next := aws.ToString(out.NextSequenceToken); next != "" {
		o.tokens <- next
	} else {
		o.tokens <- token
	}
}
