package shuttle

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	metrics "github.com/rcrowley/go-metrics"
)

type stubCWLClient struct {
	inputs []*cloudwatchlogs.PutLogEventsInput
	err    error
	next   string
}

func (c *stubCWLClient) DescribeLogStreams(ctx context.Context, params *cloudwatchlogs.DescribeLogStreamsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogStreamsOutput, error) {
	return &cloudwatchlogs.DescribeLogStreamsOutput{}, nil
}

func (c *stubCWLClient) PutLogEvents(ctx context.Context, params *cloudwatchlogs.PutLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error) {
	c.inputs = append(c.inputs, params)
	if c.err != nil {
		return nil, c.err
	}
	return &cloudwatchlogs.PutLogEventsOutput{NextSequenceToken: aws.String(c.next)}, nil
}

func newTestCWLOutlet(client CloudWatchLogsClient, inbox chan *LogEvent, token string) *CloudWatchLogsOutlet {
	registry := metrics.NewRegistry()
	tokens := make(chan string, 1)
	tokens <- token
	return &CloudWatchLogsOutlet{
		inbox:           inbox,
		encoder:         newTestEncoder(42, &EncodingConfig{Codec: CodecText}),
		client:          client,
		logGroupName:    "group",
		logStreamName:   "stream",
		tokens:          tokens,
		batchSize:       DefaultBatchSize,
		wait:            DefaultWaitDuration,
		timeout:         time.Second,
		drops:           NewCounter(0),
		lost:            NewCounter(0),
		errLogger:       log.New(io.Discard, "", 0),
		putSuccessTimer: metrics.GetOrRegisterTimer("outlet.put.success", registry),
		putFailureTimer: metrics.GetOrRegisterTimer("outlet.put.failure", registry),
		msgLostCount:    metrics.GetOrRegisterCounter("msg.lost", registry),
		msgDroppedCount: metrics.GetOrRegisterCounter("msg.dropped", registry),
	}
}

func TestCloudWatchLogsOutletPut(t *testing.T) {
	client := &stubCWLClient{next: "token-2"}
	inbox := make(chan *LogEvent, 2)
	o := newTestCWLOutlet(client, inbox, "token-1")

	inbox <- EventFromMessage("hello")
	inbox <- EventFromMessage("world")
	close(inbox)
	o.Outlet()

	if len(client.inputs) != 1 {
		t.Fatalf("expected 1 put, got %d", len(client.inputs))
	}
	in := client.inputs[0]
	if aws.ToString(in.SequenceToken) != "token-1" {
		t.Fatalf("sequence token=%q", aws.ToString(in.SequenceToken))
	}
	if len(in.LogEvents) != 2 {
		t.Fatalf("expected 2 events, got %d", len(in.LogEvents))
	}
	msg := aws.ToString(in.LogEvents[0].Message)
	if !strings.HasPrefix(msg, "<14>") || !strings.HasSuffix(msg, ": hello") {
		t.Fatalf("message %q is not an rfc3164 record", msg)
	}
	if strings.HasSuffix(msg, "\n") {
		t.Fatalf("message %q should not carry the framing newline", msg)
	}

	// The put's NextSequenceToken should be recycled for the next put.
	if next := <-o.tokens; next != "token-2" {
		t.Fatalf("recycled token=%q", next)
	}
}

func TestCloudWatchLogsOutletEmptyToken(t *testing.T) {
	client := &stubCWLClient{next: "token-1"}
	inbox := make(chan *LogEvent, 1)
	o := newTestCWLOutlet(client, inbox, "")

	inbox <- EventFromMessage("hello")
	close(inbox)
	o.Outlet()

	if client.inputs[0].SequenceToken != nil {
		t.Fatal("empty sequence token must be omitted, not sent")
	}
}

func TestCloudWatchLogsOutletLostOnError(t *testing.T) {
	client := &stubCWLClient{err: errors.New("boom")}
	inbox := make(chan *LogEvent, 2)
	o := newTestCWLOutlet(client, inbox, "token-1")

	inbox <- EventFromMessage("hello")
	inbox <- EventFromMessage("world")
	close(inbox)
	o.Outlet()

	if c := o.lost.Read(); c != 2 {
		t.Fatalf("expected 2 lost, got %d", c)
	}
	if token := <-o.tokens; token != "token-1" {
		t.Fatalf("failed put should recycle the old token, got %q", token)
	}
}
