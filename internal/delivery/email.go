package delivery

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/alexindevs/roomey-api/internal/domain"
)

// EmailSender delivers notifications through SES.
type EmailSender struct {
	client  SESService
	from    string
	timeout time.Duration
}

func NewEmailSender(client SESService, from string, timeout time.Duration) *EmailSender {
	return &EmailSender{client: client, from: from, timeout: timeout}
}

// Send mails the notification to the address. The SES call is bounded by
// the sender timeout; failures wrap domain.ErrDeliveryChannel.
func (e *EmailSender) Send(ctx context.Context, to string, n *domain.Notification) error {
	if to == "" {
		return fmt.Errorf("%w: recipient has no email address", domain.ErrDeliveryChannel)
	}

	ctx, cancel := withTimeout(ctx, e.timeout)
	defer cancel()

	_, err := e.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(n.Title)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(n.Description)},
				Html: &types.Content{Data: aws.String(renderHTML(n))},
			},
		},
		Source: aws.String(e.from),
	})
	if err != nil {
		return fmt.Errorf("%w: ses: %v", domain.ErrDeliveryChannel, err)
	}
	return nil
}

func renderHTML(n *domain.Notification) string {
	return fmt.Sprintf("<h2>%s</h2><p>%s</p>", html.EscapeString(n.Title), html.EscapeString(n.Description))
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
