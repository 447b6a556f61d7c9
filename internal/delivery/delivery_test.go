package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexindevs/roomey-api/internal/domain"
)

type MockSESService struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

func (m *MockSESService) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	return m.SendEmailFunc(ctx, params, optFns...)
}

type MockSNSService struct {
	PublishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func (m *MockSNSService) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	return m.PublishFunc(ctx, params, optFns...)
}

func testNotification() *domain.Notification {
	return &domain.Notification{
		ID:          "n1",
		Title:       "New message",
		Description: "Hi <there>",
		Purpose:     domain.ActionNewMessage,
	}
}

func TestEmailSender_Send(t *testing.T) {
	var got *ses.SendEmailInput
	client := &MockSESService{SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
		got = params
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return &ses.SendEmailOutput{}, nil
	}}

	err := NewEmailSender(client, "no-reply@roomey.app", time.Second).Send(context.Background(), "bob@example.com", testNotification())
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, []string{"bob@example.com"}, got.Destination.ToAddresses)
	assert.Equal(t, "no-reply@roomey.app", *got.Source)
	assert.Equal(t, "New message", *got.Message.Subject.Data)
	assert.Equal(t, "Hi <there>", *got.Message.Body.Text.Data)
	assert.Contains(t, *got.Message.Body.Html.Data, "Hi &lt;there&gt;")
}

func TestEmailSender_Errors(t *testing.T) {
	client := &MockSESService{SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
		return nil, errors.New("throttled")
	}}
	s := NewEmailSender(client, "from@x", time.Second)

	assert.ErrorIs(t, s.Send(context.Background(), "bob@example.com", testNotification()), domain.ErrDeliveryChannel)
	assert.ErrorIs(t, s.Send(context.Background(), "", testNotification()), domain.ErrDeliveryChannel)
}

func TestEmailSender_Timeout(t *testing.T) {
	client := &MockSESService{SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}

	start := time.Now()
	err := NewEmailSender(client, "from@x", 20*time.Millisecond).Send(context.Background(), "bob@example.com", testNotification())
	assert.ErrorIs(t, err, domain.ErrDeliveryChannel)
	assert.Less(t, time.Since(start), time.Second)
}

func TestPushSender_Send(t *testing.T) {
	var got *sns.PublishInput
	client := &MockSNSService{PublishFunc: func(ctx context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
		got = params
		return &sns.PublishOutput{}, nil
	}}

	arn := "arn:aws:sns:us-east-1:123456789012:endpoint/GCM/roomey/abc"
	require.NoError(t, NewPushSender(client, time.Second).Send(context.Background(), arn, testNotification()))

	require.NotNil(t, got)
	assert.Equal(t, arn, *got.TargetArn)
	assert.Equal(t, "json", *got.MessageStructure)

	var msg map[string]string
	require.NoError(t, json.Unmarshal([]byte(*got.Message), &msg))
	assert.Equal(t, "Hi <there>", msg["default"])

	var gcm gcmPayload
	require.NoError(t, json.Unmarshal([]byte(msg["GCM"]), &gcm))
	assert.Equal(t, "New message", gcm.Notification.Title)
	assert.Equal(t, "n1", gcm.Data["notificationId"])
}

func TestPushSender_Errors(t *testing.T) {
	calls := 0
	client := &MockSNSService{PublishFunc: func(ctx context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
		calls++
		return nil, errors.New("endpoint disabled")
	}}
	s := NewPushSender(client, time.Second)

	assert.ErrorIs(t, s.Send(context.Background(), "", testNotification()), domain.ErrDeliveryChannel)
	assert.Equal(t, 0, calls)

	assert.ErrorIs(t, s.Send(context.Background(), "arn:x", testNotification()), domain.ErrDeliveryChannel)
	assert.Equal(t, 1, calls)
}
