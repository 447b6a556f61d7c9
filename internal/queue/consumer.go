package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/alexindevs/roomey-api/internal/domain"
	"github.com/alexindevs/roomey-api/internal/observability"
)

// Handler processes one job payload. Errors wrapping domain.ErrInvalidJob or
// domain.ErrRecipientUnresolved are final; anything else is retried.
type Handler interface {
	Handle(ctx context.Context, value []byte) error
}

type ConsumerOptions struct {
	Brokers      []string
	Topic        string
	Group        string
	MaxAttempts  int
	InitialDelay time.Duration
}

type Consumer struct {
	client       *kgo.Client
	handler      Handler
	maxAttempts  int
	initialDelay time.Duration
	holdDelay    time.Duration
}

// defaultHoldDelay spaces retry rounds of a record that exhausted its
// attempts.
const defaultHoldDelay = 30 * time.Second

func NewConsumer(opts ConsumerOptions, handler Handler) (*Consumer, error) {
	cl, err := kgo.NewClient(
		kgo.SeedBrokers(opts.Brokers...),
		kgo.ConsumerGroup(opts.Group),
		kgo.ConsumeTopics(opts.Topic),
		kgo.DisableAutoCommit(),
		kgo.BlockRebalanceOnPoll(),
		kgo.OnPartitionsRevoked(func(ctx context.Context, _ *kgo.Client, _ map[string][]int32) {
			observability.GetLogger(ctx).Info("kafka partitions revoked")
		}),
		kgo.OnPartitionsAssigned(func(ctx context.Context, _ *kgo.Client, _ map[string][]int32) {
			observability.GetLogger(ctx).Info("kafka partitions assigned")
		}),
	)
	if err != nil {
		return nil, err
	}
	c := newConsumer(handler, opts.MaxAttempts, opts.InitialDelay)
	c.client = cl
	return c, nil
}

func newConsumer(handler Handler, maxAttempts int, initialDelay time.Duration) *Consumer {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	if initialDelay <= 0 {
		initialDelay = 100 * time.Millisecond
	}
	return &Consumer{
		handler:      handler,
		maxAttempts:  maxAttempts,
		initialDelay: initialDelay,
		holdDelay:    defaultHoldDelay,
	}
}

// Run polls until ctx is cancelled. Partitions of a fetch are processed
// concurrently, records of one partition in order. Only handled records are
// committed, so a job interrupted by shutdown is redelivered.
func (c *Consumer) Run(ctx context.Context) {
	log := observability.GetLogger(ctx)
	log.Info("kafka consumer started")

	for {
		fetches := c.client.PollFetches(ctx)
		if ctx.Err() != nil || fetches.IsClientClosed() {
			log.Info("kafka consumer loop stopping")
			return
		}
		if errs := fetches.Errors(); len(errs) > 0 {
			for _, ferr := range errs {
				if errors.Is(ferr.Err, context.Canceled) {
					return
				}
				log.Error("kafka fetch error", zap.String("topic", ferr.Topic), zap.Int32("partition", ferr.Partition), zap.Error(ferr.Err))
			}
		}

		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			done []*kgo.Record
		)
		fetches.EachPartition(func(p kgo.FetchTopicPartition) {
			if len(p.Records) == 0 {
				return
			}
			wg.Add(1)
			go func(records []*kgo.Record) {
				defer wg.Done()
				handled := c.processPartition(ctx, records)
				mu.Lock()
				done = append(done, handled...)
				mu.Unlock()
			}(p.Records)
		})
		wg.Wait()

		// Only handled records are committed. Work finished before a
		// shutdown is still committed, so the commit gets its own context.
		if len(done) > 0 {
			commitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := c.client.CommitRecords(commitCtx, done...); err != nil {
				log.Error("kafka offset commit failed", zap.Error(err))
			}
			cancel()
		}
		if ctx.Err() != nil {
			c.client.AllowRebalance()
			log.Info("kafka consumer loop stopping")
			return
		}
		c.client.AllowRebalance()
	}
}

// processPartition handles records in order and returns the handled
// prefix. It stops early only when ctx is cancelled.
func (c *Consumer) processPartition(ctx context.Context, records []*kgo.Record) []*kgo.Record {
	for i, r := range records {
		if ctx.Err() != nil || !c.handleRecord(ctx, r) {
			return records[:i]
		}
	}
	return records
}

// handleRecord reports whether the record is done with: processed, or
// rejected with a final error. A record that keeps failing transiently holds
// its partition, retried every holdDelay, until ctx is cancelled; it is
// never skipped.
func (c *Consumer) handleRecord(ctx context.Context, r *kgo.Record) bool {
	rctx := otel.GetTextMapPropagator().Extract(ctx, recordCarrier{record: r})
	log := observability.GetLogger(rctx).With(
		zap.String("topic", r.Topic),
		zap.Int32("partition", r.Partition),
		zap.Int64("offset", r.Offset),
	)

	for round := 1; ; round++ {
		err := retryWithBackoff(rctx, func() error {
			return c.handler.Handle(rctx, r.Value)
		}, c.maxAttempts, c.initialDelay, log)

		switch {
		case err == nil:
			observability.NotificationJobsProcessedTotal.WithLabelValues("ok").Inc()
			return true
		case !Retryable(err):
			observability.NotificationJobsProcessedTotal.WithLabelValues("rejected").Inc()
			log.Warn("notification job rejected", zap.Error(err))
			return true
		case rctx.Err() != nil:
			return false
		}

		observability.NotificationJobsProcessedTotal.WithLabelValues("failed").Inc()
		log.Error("notification job still failing, holding partition",
			zap.Int("round", round),
			zap.Duration("nextRoundIn", c.holdDelay),
			zap.Error(err),
		)
		select {
		case <-rctx.Done():
			return false
		case <-time.After(c.holdDelay):
		}
	}
}

// Retryable reports whether a handler error may succeed on another attempt.
func Retryable(err error) bool {
	return !errors.Is(err, domain.ErrInvalidJob) && !errors.Is(err, domain.ErrRecipientUnresolved)
}

func retryWithBackoff(ctx context.Context, operation func() error, maxAttempts int, initialDelay time.Duration, log *zap.Logger) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxAttempts; i++ {
		err = operation()
		if err == nil || !Retryable(err) {
			return err
		}

		if i < maxAttempts-1 {
			log.Warn("job handling failed, retrying",
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxAttempts", maxAttempts),
				zap.Duration("nextRetryIn", delay),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}
	return err
}

func (c *Consumer) Ping(ctx context.Context) error {
	return c.client.Ping(ctx)
}

func (c *Consumer) Close() {
	if c.client != nil {
		c.client.Close()
	}
}
