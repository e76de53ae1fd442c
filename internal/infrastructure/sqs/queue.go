package sqs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/go-push-relay/internal/config"
)

// Queue is a delayed, at-least-once job queue backed by SQS. Enqueue maps the
// initial delay to DelaySeconds; redelivery backoff for failed handlers comes
// from the queue's visibility timeout, and any outer retry cap from its
// redrive policy.
type Queue struct {
	client   *sqs.Client
	queueURL string
}

// NewClient creates an SQS client. When cfg.AWSEndpointURL is set (LocalStack),
// it overrides the endpoint so all traffic goes to the local instance.
func NewClient(cfg *config.Config) *sqs.Client {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}

	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		panic("failed to load AWS config for SQS: " + err.Error())
	}

	clientOpts := []func(*sqs.Options){}
	if cfg.AWSEndpointURL != "" {
		clientOpts = append(clientOpts, func(o *sqs.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		})
	}

	return sqs.NewFromConfig(awsCfg, clientOpts...)
}

func NewQueue(client *sqs.Client, queueURL string) *Queue {
	return &Queue{client: client, queueURL: queueURL}
}

// Enqueue publishes body to the queue, delivered no earlier than delay from
// now. Returns as soon as SQS accepts the message.
func (q *Queue) Enqueue(ctx context.Context, delay time.Duration, body []byte) error {
	delaySecs := int32((delay + time.Second - 1) / time.Second)
	if delaySecs < 0 {
		delaySecs = 0
	}
	_, err := q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:     aws.String(q.queueURL),
		MessageBody:  aws.String(string(body)),
		DelaySeconds: delaySecs,
	})
	return err
}

// Consume long-polls the queue until ctx is cancelled, invoking handle for
// each message. A nil return deletes the message; an error leaves it in
// flight so SQS redelivers it after the visibility timeout.
func (q *Queue) Consume(ctx context.Context, handle func(ctx context.Context, body []byte) error) error {
	for {
		out, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(q.queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Warn("receive from retry queue failed", "err", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(5 * time.Second):
			}
			continue
		}

		for _, msg := range out.Messages {
			if err := handle(ctx, []byte(aws.ToString(msg.Body))); err != nil {
				slog.Warn("retry task failed, leaving for redelivery", "err", err)
				continue
			}
			_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
				QueueUrl:      aws.String(q.queueURL),
				ReceiptHandle: msg.ReceiptHandle,
			})
			if err != nil {
				slog.Warn("delete from retry queue failed", "err", err)
			}
		}
	}
}
