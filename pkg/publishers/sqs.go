package publishers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

type sqsClient interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// sqsPublisher queues client events on SQS. FIFO queues get the event source
// as message group so one client's events stay ordered.
type sqsPublisher struct {
	id       string
	queueURL string
	fifo     bool
	client   sqsClient
	log      Logger
}

func newSQSPublisher(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.SQS == nil {
		return nil, fmt.Errorf("publisher %q missing sqs configuration", cfg.ID)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(cfg.SQS.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &sqsPublisher{
		id:       cfg.ID,
		queueURL: cfg.SQS.QueueURL,
		fifo:     strings.HasSuffix(cfg.SQS.QueueURL, ".fifo"),
		client:   sqs.NewFromConfig(awsCfg),
		log:      ensureLogger(log),
	}, nil
}

func (s *sqsPublisher) ID() string   { return s.id }
func (s *sqsPublisher) Type() string { return TypeSQS }

func (s *sqsPublisher) Publish(ctx context.Context, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueURL),
		MessageBody: aws.String(string(payload)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event_kind": stringAttribute(evt.Kind()),
			"source":     stringAttribute(evt.Source),
		},
	}
	if s.fifo {
		input.MessageGroupId = aws.String(evt.Source)
		input.MessageDeduplicationId = aws.String(evt.Session.ID)
	}

	out, err := s.client.SendMessage(ctx, input)
	if err != nil {
		s.log.ErrorObj("sqs publisher send failed", "publisher_sqs_error", map[string]any{
			"publisher_id": s.id,
			"event_id":     evt.Session.ID,
			"error":        err.Error(),
		})
		return fmt.Errorf("send message to sqs: %w", err)
	}
	s.log.DebugObj("sqs publisher delivered event", "publisher_sqs_delivery", map[string]any{
		"publisher_id": s.id,
		"event_id":     evt.Session.ID,
		"message_id":   aws.ToString(out.MessageId),
	})
	return nil
}

func stringAttribute(v string) types.MessageAttributeValue {
	return types.MessageAttributeValue{
		DataType:    aws.String("String"),
		StringValue: aws.String(v),
	}
}
