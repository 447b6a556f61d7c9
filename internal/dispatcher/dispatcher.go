package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alexindevs/roomey-api/internal/domain"
	"github.com/alexindevs/roomey-api/internal/observability"
	"github.com/alexindevs/roomey-api/internal/queue"
	"github.com/alexindevs/roomey-api/internal/repository"
)

// ChannelSender delivers one notification over an external channel to an
// address (email address, push endpoint).
type ChannelSender interface {
	Send(ctx context.Context, address string, n *domain.Notification) error
}

// LiveNotifier pushes a notification to the user's open sockets.
type LiveNotifier interface {
	SendNotificationToUser(ctx context.Context, userID string, n *domain.Notification) (int, error)
}

// Dispatcher turns a queued job into a stored notification and fans it out
// over the requested channels.
type Dispatcher struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	email         ChannelSender
	push          ChannelSender
	live          LiveNotifier
	timeout       time.Duration
	now           func() time.Time
}

// Options wires a Dispatcher. Email, Push and Live may be nil when the
// channel is disabled.
type Options struct {
	Notifications  repository.NotificationRepository
	Users          repository.UserRepository
	Email          ChannelSender
	Push           ChannelSender
	Live           LiveNotifier
	ChannelTimeout time.Duration
}

func New(opts Options) *Dispatcher {
	return &Dispatcher{
		notifications: opts.Notifications,
		users:         opts.Users,
		email:         opts.Email,
		push:          opts.Push,
		live:          opts.Live,
		timeout:       opts.ChannelTimeout,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Handle processes one record value. Invalid jobs and unknown recipients
// are final; storage failures are returned for the consumer to retry.
// Channel failures are logged and counted but never fail the job.
func (d *Dispatcher) Handle(ctx context.Context, value []byte) error {
	job, err := queue.DecodeJob(value)
	if err != nil {
		return err
	}
	return d.Process(ctx, job)
}

func (d *Dispatcher) Process(ctx context.Context, job *domain.NotificationJob) error {
	log := observability.GetLogger(ctx).With(
		zap.String("job_id", job.JobID),
		zap.String("user_id", job.UserID),
		zap.String("purpose", string(job.Purpose)),
	)

	if err := job.Validate(); err != nil {
		return err
	}

	n, err := d.notifications.CreateNotification(ctx, &domain.Notification{
		ID:          uuid.NewString(),
		JobID:       job.JobID,
		UserID:      job.UserID,
		Title:       job.Title,
		Description: job.Description,
		Channels:    job.Channels,
		Purpose:     job.Purpose,
		Metadata:    job.Metadata,
		CreatedAt:   d.now(),
		UpdatedAt:   d.now(),
	})
	if err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}

	recipient, err := d.users.GetRecipient(ctx, job.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return fmt.Errorf("%w: %s", domain.ErrRecipientUnresolved, job.UserID)
		}
		return fmt.Errorf("failed to resolve recipient: %w", err)
	}

	var wg sync.WaitGroup
	for _, ch := range job.Channels {
		wg.Add(1)
		go func(ch domain.Channel) {
			defer wg.Done()
			d.deliver(ctx, log, ch, recipient, n)
		}(ch)
	}
	wg.Wait()

	if !job.EnqueuedAt.IsZero() {
		observability.NotificationJobLatency.WithLabelValues(string(job.Purpose)).Observe(d.now().Sub(job.EnqueuedAt).Seconds())
	}
	log.Info("notification processed", zap.String("notification_id", n.ID))
	return nil
}

func (d *Dispatcher) deliver(ctx context.Context, log *zap.Logger, ch domain.Channel, r *domain.Recipient, n *domain.Notification) {
	status := "ok"
	var err error

	switch ch {
	case domain.ChannelEmail:
		if d.email == nil {
			status = "disabled"
			break
		}
		err = d.email.Send(ctx, r.Email, n)

	case domain.ChannelPush:
		if d.push == nil {
			status = "disabled"
			break
		}
		if r.PushToken == "" {
			log.Warn("recipient has no push token, skipping push")
			status = "skipped"
			break
		}
		err = d.push.Send(ctx, r.PushToken, n)

	case domain.ChannelInApp:
		if d.live == nil {
			status = "disabled"
			break
		}
		cctx, cancel := context.WithTimeout(ctx, d.channelTimeout())
		var sent int
		sent, err = d.live.SendNotificationToUser(cctx, r.UserID, n)
		cancel()
		if err == nil && sent == 0 {
			status = "offline"
		}
	}

	if err != nil {
		status = "failed"
		log.Error("channel delivery failed", zap.String("channel", string(ch)), zap.Error(err))
	}
	observability.NotificationChannelDeliveriesTotal.WithLabelValues(string(ch), status).Inc()
}

func (d *Dispatcher) channelTimeout() time.Duration {
	if d.timeout <= 0 {
		return 10 * time.Second
	}
	return d.timeout
}
