package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/alexindevs/roomey-api/internal/domain"
)

// PushSender publishes to a device's SNS platform endpoint. The push token
// stored for a user is the endpoint ARN.
type PushSender struct {
	client  SNSService
	timeout time.Duration
}

func NewPushSender(client SNSService, timeout time.Duration) *PushSender {
	return &PushSender{client: client, timeout: timeout}
}

type pushMessage struct {
	Default string `json:"default"`
	GCM     string `json:"GCM"`
	APNS    string `json:"APNS"`
}

type gcmPayload struct {
	Notification struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	} `json:"notification"`
	Data map[string]string `json:"data,omitempty"`
}

type apnsPayload struct {
	Aps struct {
		Alert struct {
			Title string `json:"title"`
			Body  string `json:"body"`
		} `json:"alert"`
	} `json:"aps"`
	Data map[string]string `json:"data,omitempty"`
}

func (p *PushSender) Send(ctx context.Context, endpointARN string, n *domain.Notification) error {
	if endpointARN == "" {
		return fmt.Errorf("%w: recipient has no push token", domain.ErrDeliveryChannel)
	}

	message, err := buildPushMessage(n)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDeliveryChannel, err)
	}

	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TargetArn:        aws.String(endpointARN),
		Message:          aws.String(message),
		MessageStructure: aws.String("json"),
	})
	if err != nil {
		return fmt.Errorf("%w: sns: %v", domain.ErrDeliveryChannel, err)
	}
	return nil
}

func buildPushMessage(n *domain.Notification) (string, error) {
	data := map[string]string{
		"notificationId": n.ID,
		"purpose":        string(n.Purpose),
	}

	var gcm gcmPayload
	gcm.Notification.Title = n.Title
	gcm.Notification.Body = n.Description
	gcm.Data = data

	var apns apnsPayload
	apns.Aps.Alert.Title = n.Title
	apns.Aps.Alert.Body = n.Description
	apns.Data = data

	gcmRaw, err := json.Marshal(gcm)
	if err != nil {
		return "", err
	}
	apnsRaw, err := json.Marshal(apns)
	if err != nil {
		return "", err
	}

	out, err := json.Marshal(pushMessage{
		Default: n.Description,
		GCM:     string(gcmRaw),
		APNS:    string(apnsRaw),
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}
