// Package sqs implements the notification queue and fail queue over AWS SQS.
// Messages left unacknowledged reappear after the queue's visibility timeout,
// which gives the indexer its at-least-once delivery guarantee.
package sqs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"bundleindex/internal/queue/core"
	"bundleindex/pkg/domain"
)

var (
	_ core.Queue     = (*Queue)(nil)
	_ core.FailQueue = (*FailQueue)(nil)
)

const waitTimeSeconds = 20 // SQS long-poll maximum

// Config holds explicit construction parameters (mostly for tests). For prod
// we rely primarily on environment variables.
type Config struct {
	Region          string
	QueueURL        string
	FailQueueURL    string // optional; empty disables the fail queue
	Endpoint        string // optional; if set enables custom endpoint (e.g. LocalStack)
	AccessKeyID     string // optional (falls back to default credentials chain)
	SecretAccessKey string // optional
	SessionToken    string // optional
}

// Environment variables:
//   BUNDLEINDEX_QUEUE_DRIVER=sqs
//   BUNDLEINDEX_QUEUE_SQS_URL=<queue url> (required)
//   BUNDLEINDEX_QUEUE_SQS_FAIL_URL=<fail queue url> (optional)
//   BUNDLEINDEX_QUEUE_SQS_REGION=<region> (default us-east-1)
//   BUNDLEINDEX_QUEUE_SQS_ENDPOINT=<url> (optional, for LocalStack)
//   AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY / AWS_SESSION_TOKEN (optional)

// Queue consumes bundle notifications from an SQS queue.
type Queue struct {
	client *sqs.Client
	url    string
}

// FailQueue publishes failure reports to a dedicated SQS queue.
type FailQueue struct {
	client *sqs.Client
	url    string
}

// New creates the notification queue and, when Config.FailQueueURL is set,
// the companion fail queue from Config.
func New(ctx context.Context, cfg Config) (*Queue, *FailQueue, error) {
	if cfg.QueueURL == "" {
		return nil, nil, fmt.Errorf("sqs queue url required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, nil, err
	}
	client := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	q := &Queue{client: client, url: cfg.QueueURL}
	var fq *FailQueue
	if cfg.FailQueueURL != "" {
		fq = &FailQueue{client: client, url: cfg.FailQueueURL}
	}
	return q, fq, nil
}

// OpenFromEnv constructs the SQS queues from process environment.
func OpenFromEnv(ctx context.Context) (*Queue, *FailQueue, error) {
	url := os.Getenv("BUNDLEINDEX_QUEUE_SQS_URL")
	if url == "" {
		return nil, nil, fmt.Errorf("BUNDLEINDEX_QUEUE_SQS_URL required for sqs driver")
	}
	cfg := Config{
		QueueURL:        url,
		FailQueueURL:    os.Getenv("BUNDLEINDEX_QUEUE_SQS_FAIL_URL"),
		Region:          os.Getenv("BUNDLEINDEX_QUEUE_SQS_REGION"),
		Endpoint:        os.Getenv("BUNDLEINDEX_QUEUE_SQS_ENDPOINT"),
		AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
	}
	return New(ctx, cfg)
}

// Driver returns the queue driver identifier.
func (q *Queue) Driver() core.Driver { return core.DriverSQS }

// Receive long-polls the queue for up to max messages. Payloads that do not
// parse as notifications are acknowledged and dropped so they cannot wedge
// the queue.
func (q *Queue) Receive(ctx context.Context, max int) ([]core.Message, error) {
	if max < 1 {
		max = 1
	}
	if max > 10 {
		max = 10 // SQS batch ceiling
	}
	out, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            &q.url,
		MaxNumberOfMessages: int32(max),
		WaitTimeSeconds:     waitTimeSeconds,
	})
	if err != nil {
		return nil, fmt.Errorf("receive messages: %w", err)
	}
	msgs := make([]core.Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		n, err := core.ParseNotification([]byte(aws.ToString(m.Body)))
		if err != nil {
			_, _ = q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
				QueueUrl:      &q.url,
				ReceiptHandle: m.ReceiptHandle,
			})
			continue
		}
		msgs = append(msgs, core.Message{
			ID:           aws.ToString(m.MessageId),
			Receipt:      aws.ToString(m.ReceiptHandle),
			Notification: n,
		})
	}
	return msgs, nil
}

// Ack deletes the message from the queue.
func (q *Queue) Ack(ctx context.Context, msg core.Message) error {
	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      &q.url,
		ReceiptHandle: &msg.Receipt,
	})
	if err != nil {
		return fmt.Errorf("delete message %s: %w", msg.ID, err)
	}
	return nil
}

// Publish sends a failure report as a JSON message body.
func (f *FailQueue) Publish(ctx context.Context, report domain.FailureReport) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode failure report: %w", err)
	}
	_, err = f.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    &f.url,
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("publish failure report: %w", err)
	}
	return nil
}
