package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sns"

	"github.com/JaimeStill/osenchi/pkg/lifecycle"
)

type snsPublisher struct {
	client *sns.SNS
	topic  string
	logger *slog.Logger

	mu       sync.Mutex
	topicARN string
}

func newSNS(cfg *Config, logger *slog.Logger) (System, error) {
	awsCfg := aws.NewConfig().WithRegion(cfg.Region)
	if cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}

	p := &snsPublisher{
		client: sns.New(sess),
		topic:  cfg.Topic,
		logger: logger.With("system", "notify", "backend", BackendSNS),
	}
	if strings.HasPrefix(cfg.Topic, "arn:") {
		p.topicARN = cfg.Topic
	}
	return p, nil
}

func (p *snsPublisher) Start(lc *lifecycle.Coordinator) error {
	p.logger.Info("starting notification system")

	lc.OnStartup("notify", func() error {
		arn, err := p.resolve(lc.Context())
		if err != nil {
			p.logger.Error("notification topic lookup failed", "topic", p.topic, "error", err)
			return err
		}
		p.logger.Info("notification topic ready", "topic_arn", arn)
		return nil
	})

	return nil
}

func (p *snsPublisher) Publish(ctx context.Context, msg Message) (string, error) {
	arn, err := p.resolve(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	out, err := p.client.PublishWithContext(ctx, &sns.PublishInput{
		TopicArn: aws.String(arn),
		Subject:  aws.String(msg.Subject),
		Message:  aws.String(msg.Body),
	})
	if err != nil {
		return "", fmt.Errorf("%w: sns publish: %w", ErrPublishFailed, err)
	}

	id := aws.StringValue(out.MessageId)
	p.logger.InfoContext(ctx, "notification published", "subject", msg.Subject, "message_id", id)
	return id, nil
}

// resolve maps a topic name to its ARN by listing the account's topics.
func (p *snsPublisher) resolve(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.topicARN != "" {
		return p.topicARN, nil
	}

	suffix := ":" + p.topic
	err := p.client.ListTopicsPagesWithContext(ctx, &sns.ListTopicsInput{}, func(page *sns.ListTopicsOutput, last bool) bool {
		for _, t := range page.Topics {
			if arn := aws.StringValue(t.TopicArn); strings.HasSuffix(arn, suffix) {
				p.topicARN = arn
				return false
			}
		}
		return true
	})
	if err != nil {
		return "", fmt.Errorf("list topics: %w", err)
	}
	if p.topicARN == "" {
		return "", fmt.Errorf("%w: %s", ErrTopicNotFound, p.topic)
	}

	return p.topicARN, nil
}
