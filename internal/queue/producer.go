package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/alexindevs/roomey-api/internal/domain"
	"github.com/alexindevs/roomey-api/internal/observability"
)

type produceClient interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Ping(ctx context.Context) error
	Close()
}

// Producer enqueues notification jobs. Records are keyed by recipient so a
// recipient's jobs share a partition and are consumed in order.
type Producer struct {
	client produceClient
	topic  string
	now    func() time.Time
}

func NewProducer(brokers []string, topic string) (*Producer, error) {
	cl, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, err
	}
	return newProducer(cl, topic), nil
}

func newProducer(cl produceClient, topic string) *Producer {
	return &Producer{
		client: cl,
		topic:  topic,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// BulkRecipient is one addressee of a bulk enqueue.
type BulkRecipient struct {
	UserID      string
	Title       string
	Description string
}

// AddNotificationJob validates and enqueues one job, returning once the
// broker acknowledged it.
func (p *Producer) AddNotificationJob(
	ctx context.Context,
	userID, title, description string,
	channels []domain.Channel,
	purpose domain.ActionTag,
	metadata json.RawMessage,
) (*domain.NotificationJob, error) {

	job := p.newJob(userID, title, description, channels, purpose, metadata)
	rec, err := p.record(ctx, job)
	if err != nil {
		observability.NotificationJobsEnqueuedTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		observability.NotificationJobsEnqueuedTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%w: %v", domain.ErrQueueUnavailable, err)
	}

	observability.NotificationJobsEnqueuedTotal.WithLabelValues("ok").Inc()
	observability.GetLogger(ctx).Debug("notification job enqueued",
		zap.String("job_id", job.JobID),
		zap.String("user_id", job.UserID),
		zap.String("purpose", string(job.Purpose)),
	)
	return job, nil
}

// AddBulkNotificationJob enqueues one job per recipient in a single produce
// call. Recipients that fail validation or production are reported in the
// joined error; the others stay enqueued.
func (p *Producer) AddBulkNotificationJob(
	ctx context.Context,
	users []BulkRecipient,
	channels []domain.Channel,
	purpose domain.ActionTag,
	metadata json.RawMessage,
) ([]*domain.NotificationJob, error) {

	var (
		errs    []error
		records []*kgo.Record
		jobs    = make(map[*kgo.Record]*domain.NotificationJob, len(users))
	)

	for _, u := range users {
		job := p.newJob(u.UserID, u.Title, u.Description, channels, purpose, metadata)
		rec, err := p.record(ctx, job)
		if err != nil {
			observability.NotificationJobsEnqueuedTotal.WithLabelValues("rejected").Inc()
			errs = append(errs, fmt.Errorf("user %q: %w", u.UserID, err))
			continue
		}
		records = append(records, rec)
		jobs[rec] = job
	}

	var enqueued []*domain.NotificationJob
	if len(records) > 0 {
		for _, res := range p.client.ProduceSync(ctx, records...) {
			job := jobs[res.Record]
			if res.Err != nil {
				observability.NotificationJobsEnqueuedTotal.WithLabelValues("failed").Inc()
				errs = append(errs, fmt.Errorf("user %q: %w: %v", job.UserID, domain.ErrQueueUnavailable, res.Err))
				continue
			}
			observability.NotificationJobsEnqueuedTotal.WithLabelValues("ok").Inc()
			enqueued = append(enqueued, job)
		}
	}

	observability.GetLogger(ctx).Info("bulk notification jobs enqueued",
		zap.Int("requested", len(users)),
		zap.Int("enqueued", len(enqueued)),
		zap.String("purpose", string(purpose)),
	)
	return enqueued, errors.Join(errs...)
}

func (p *Producer) newJob(userID, title, description string, channels []domain.Channel, purpose domain.ActionTag, metadata json.RawMessage) *domain.NotificationJob {
	return &domain.NotificationJob{
		JobID:       uuid.NewString(),
		UserID:      userID,
		Title:       title,
		Description: description,
		Channels:    channels,
		Purpose:     purpose,
		Metadata:    metadata,
		EnqueuedAt:  p.now(),
	}
}

func (p *Producer) record(ctx context.Context, job *domain.NotificationJob) (*kgo.Record, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}
	value, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidJob, err)
	}

	rec := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(job.UserID),
		Value: value,
	}
	otel.GetTextMapPropagator().Inject(ctx, recordCarrier{record: rec})
	return rec, nil
}

func (p *Producer) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

func (p *Producer) Close() {
	if p.client != nil {
		p.client.Close()
	}
}
