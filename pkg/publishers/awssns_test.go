package publishers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

type fakeSNSClient struct {
	input *sns.PublishInput
	err   error
}

func (f *fakeSNSClient) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("msg-123")}, nil
}

func TestSNSPublisherSendSuccess(t *testing.T) {
	client := &fakeSNSClient{}
	pub := &snsPublisher{
		id:       "oncall",
		topicARN: "arn:aws:sns:::topic",
		client:   client,
		log:      ensureLogger(nil),
	}

	if err := pub.Publish(context.Background(), maintenanceEvent()); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if client.input == nil {
		t.Fatalf("client was not called")
	}
	if got := aws.ToString(client.input.TopicArn); got != "arn:aws:sns:::topic" {
		t.Fatalf("TopicArn = %s", got)
	}
	if got := aws.ToString(client.input.Subject); got != "starnight maintenance.entered" {
		t.Fatalf("Subject = %s", got)
	}
	attr, ok := client.input.MessageAttributes["event_kind"]
	if !ok || aws.ToString(attr.StringValue) != "maintenance.entered" {
		t.Fatalf("event_kind attribute missing or wrong: %#v", attr)
	}
	if msg := aws.ToString(client.input.Message); !strings.Contains(msg, `"kind":"maintenance.entered"`) {
		t.Fatalf("Message missing kind: %s", msg)
	}
}

func TestSNSPublisherSendError(t *testing.T) {
	pub := &snsPublisher{
		topicARN: "arn:aws:sns:::topic",
		client:   &fakeSNSClient{err: errors.New("boom")},
		log:      ensureLogger(nil),
	}

	if err := pub.Publish(context.Background(), maintenanceEvent()); err == nil {
		t.Fatalf("expected error from Publish")
	}
}
