package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/chris/library-ledger/pkg/models"
)

// MaxSQSDelay is the longest delivery delay SQS accepts for a single message.
// Longer delays are covered by the consumer re-enqueueing the remainder.
const MaxSQSDelay = 15 * time.Minute

// SQSAPI defines the subset of the SQS client used by SQSScheduler.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSScheduler implements the Scheduler interface using AWS SQS.
type SQSScheduler struct {
	Client   SQSAPI
	QueueURL string
}

// NewSQSScheduler creates a new SQSScheduler.
func NewSQSScheduler(client SQSAPI, queueURL string) *SQSScheduler {
	return &SQSScheduler{
		Client:   client,
		QueueURL: queueURL,
	}
}

// Make sure we conform to the interface
var _ Scheduler = (*SQSScheduler)(nil)

// ScheduleRestock sends the restock to an SQS queue with a delivery delay.
func (s *SQSScheduler) ScheduleRestock(ctx context.Context, task models.Restock, delay time.Duration) error {
	body, err := EncodeRestock(task)
	if err != nil {
		return err
	}

	_, err = s.Client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:     aws.String(s.QueueURL),
		MessageBody:  aws.String(body),
		DelaySeconds: delaySeconds(delay),
	})
	if err != nil {
		return fmt.Errorf("failed to send restock %s to SQS: %w", task.ID, err)
	}

	return nil
}

func delaySeconds(d time.Duration) int32 {
	if d <= 0 {
		return 0
	}
	if d > MaxSQSDelay {
		d = MaxSQSDelay
	}
	return int32(d / time.Second)
}
