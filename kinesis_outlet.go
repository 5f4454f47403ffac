package shuttle

import (
	"context"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kinesis"
	"github.com/aws/aws-sdk-go-v2/service/kinesis/types"
	"github.com/pborman/uuid"
	metrics "github.com/rcrowley/go-metrics"
)

// KinesisClient defines the interface for the Kinesis operations we need
type KinesisClient interface {
	PutRecords(ctx context.Context, params *kinesis.PutRecordsInput, optFns ...func(*kinesis.Options)) (*kinesis.PutRecordsOutput, error)
}

// KinesisOutlet delivers the encoded records to an AWS Kinesis stream via
// PutRecords. Each record gets a random uuid partition key, spreading
// records across shards. Kinesis has a small per-request payload limit, so
// keep config.BatchSize modest.
type KinesisOutlet struct {
	inbox      <-chan *LogEvent
	encoder    *SyslogEncoder
	client     KinesisClient
	streamName string
	batchSize  int
	wait       time.Duration
	timeout    time.Duration
	drops      *Counter
	lost       *Counter

	errLogger *log.Logger

	putSuccessTimer metrics.Timer
	putFailureTimer metrics.Timer
	msgLostCount    metrics.Counter
	msgDroppedCount metrics.Counter
}

// NewKinesisOutletFunc creates a NewOutletFunc whose outlets deliver to the
// named stream in the given region.
func NewKinesisOutletFunc(region, streamName string) (NewOutletFunc, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	client := kinesis.NewFromConfig(cfg)

	return func(s *Shuttle) Outlet {
		return &KinesisOutlet{
			inbox:           s.Events,
			encoder:         s.encoder,
			client:          client,
			streamName:      streamName,
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

// Outlet drains the inbox into PutRecords requests until the inbox closes.
func (o *KinesisOutlet) Outlet() {
	for {
		records, open := o.fill()
		if len(records) > 0 {
			o.put(records)
		}
		if !open {
			return
		}
	}
}

func (o *KinesisOutlet) fill() ([]types.PutRecordsRequestEntry, bool) {
	records := make([]types.PutRecordsRequestEntry, 0, o.batchSize)
	timeout := new(time.Timer) // Gives us a nil channel and no timeout to start with

	for {
		select {
		case <-timeout.C:
			return records, true

		case ev, open := <-o.inbox:
			if !open {
				return records, false
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

			records = append(records, types.PutRecordsRequestEntry{
				Data:         rec,
				PartitionKey: aws.String(uuid.New()),
			})

			if len(records) >= o.batchSize {
				return records, true
			}
		}
	}
}

func (o *KinesisOutlet) put(records []types.PutRecordsRequestEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	start := time.Now()
	out, err := o.client.PutRecords(ctx, &kinesis.PutRecordsInput{
		StreamName: aws.String(o.streamName),
		Records:    records,
	})
	if err != nil {
		o.putFailureTimer.UpdateSince(start)
		o.lost.Add(len(records))
		o.msgLostCount.Inc(int64(len(records)))
		o.errLogger.Printf("at=put msgcount=%d error=%q\n", len(records), err)
		return
	}
	o.putSuccessTimer.UpdateSince(start)

	if failed := int(aws.ToInt32(out.FailedRecordCount)); failed > 0 {
		o.lost.Add(failed)
		o.msgLostCount.Inc(int64(failed))
		o.errLogger.Printf("at=put msgcount=%d failed=%d\n", len(records), failed)
	}
}
