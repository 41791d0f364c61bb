package queue

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

const sqsWaitTimeSeconds = 10

// SQS is a queue on an AWS SQS queue. Delivery is at least once; the
// store's claim protocol is what keeps duplicate deliveries from double
// evaluating, so messages are deleted right after receipt.
type SQS struct {
	client   *sqs.Client
	queueURL string
}

func NewSQS(ctx context.Context, queueURL string) (*SQS, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SQS{
		client:   sqs.NewFromConfig(cfg),
		queueURL: queueURL,
	}, nil
}

func (q *SQS) Push(ctx context.Context, id int64) error {
	_, err := q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(strconv.FormatInt(id, 10)),
	})
	if err != nil {
		return fmt.Errorf("push submission %d: %w", id, err)
	}
	return nil
}

func (q *SQS) Pop(ctx context.Context) (int64, bool, error) {
	out, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.queueURL),
		MaxNumberOfMessages: 1,
		WaitTimeSeconds:     sqsWaitTimeSeconds,
	})
	if err != nil {
		return 0, false, fmt.Errorf("receive message: %w", err)
	}
	if len(out.Messages) == 0 {
		return 0, false, nil
	}
	msg := out.Messages[0]
	_, err = q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.queueURL),
		ReceiptHandle: msg.ReceiptHandle,
	})
	if err != nil {
		return 0, false, fmt.Errorf("delete message: %w", err)
	}
	id, err := strconv.ParseInt(aws.ToString(msg.Body), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("malformed queue message %q: %w", aws.ToString(msg.Body), err)
	}
	return id, true, nil
}

func (q *SQS) Ping(ctx context.Context) error {
	_, err := q.client.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl: aws.String(q.queueURL),
	})
	return err
}

func (q *SQS) Close() error {
	return nil
}
