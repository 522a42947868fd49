package publishers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// snsClient defines the minimal subset of the SNS client used by snsPublisher.
type snsClient interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// snsPublisher fans session events out through an SNS topic, typically to the
// on-call channel for maintenance alerts.
type snsPublisher struct {
	id       string
	topicARN string
	typ      string
	client   snsClient
	log      Logger
}

func newSNSPublisher(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.SNS == nil {
		return nil, fmt.Errorf("publisher %q missing sns configuration", cfg.ID)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(cfg.SNS.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &snsPublisher{
		id:       cfg.ID,
		typ:      TypeSNS,
		topicARN: cfg.SNS.TopicARN,
		client:   sns.NewFromConfig(awsCfg),
		log:      ensureLogger(log),
	}, nil
}

func (s *snsPublisher) ID() string   { return s.id }
func (s *snsPublisher) Type() string { return s.typ }

// Publish sends the event to the configured SNS topic.
func (s *snsPublisher) Publish(ctx context.Context, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	input := &sns.PublishInput{
		TopicArn: aws.String(s.topicARN),
		Message:  aws.String(string(payload)),
		Subject:  aws.String("starnight " + evt.Kind()),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event_kind": {
				DataType:    aws.String("String"),
				StringValue: aws.String(evt.Kind()),
			},
		},
	}

	out, err := s.client.Publish(ctx, input)
	if err != nil {
		s.log.ErrorObj("sns publisher send failed", "publisher_sns_error", map[string]any{
			"publisher_id": s.id,
			"error":        err.Error(),
		})
		return fmt.Errorf("publish to sns: %w", err)
	}
	s.log.DebugObj("sns publisher delivered event", "publisher_sns_delivery", map[string]any{
		"publisher_id": s.id,
		"message_id":   aws.ToString(out.MessageId),
	})
	return nil
}
