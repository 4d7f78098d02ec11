package aws

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// maxDelay is the SQS limit for DelaySeconds.
const maxDelay = 15 * time.Minute

// Message is one SQS message. Attributes go out as String, NumberAttributes as Number.
type Message struct {
	Body             string
	Attributes       map[string]string
	NumberAttributes map[string]int
	Delay            time.Duration
}

// Publisher wraps an SQS client and a queue URL.
type Publisher struct {
	SQS      SQSAPI
	QueueURL string
}

// NewPublisher returns a Publisher bound to a queue URL.
func NewPublisher(sqsClient SQSAPI, queueURL string) *Publisher {
	return &Publisher{
		SQS:      sqsClient,
		QueueURL: queueURL,
	}
}

// Send publishes msg to the bound queue.
func (p *Publisher) Send(ctx context.Context, msg Message) error {
	if p.QueueURL == "" {
		return fmt.Errorf("send message: queue url not configured")
	}
	input := &sqs.SendMessageInput{
		QueueUrl:    &p.QueueURL,
		MessageBody: &msg.Body,
	}

	if msg.Delay > 0 {
		delay := msg.Delay
		if delay > maxDelay {
			delay = maxDelay
		}
		input.DelaySeconds = int32(delay / time.Second)
	}

	if len(msg.Attributes)+len(msg.NumberAttributes) > 0 {
		msgAttrs := map[string]sqstypes.MessageAttributeValue{}
		for k, v := range msg.Attributes {
			msgAttrs[k] = sqstypes.MessageAttributeValue{
				DataType:    awsString("String"),
				StringValue: awsString(v),
			}
		}
		for k, v := range msg.NumberAttributes {
			msgAttrs[k] = sqstypes.MessageAttributeValue{
				DataType:    awsString("Number"),
				StringValue: awsString(strconv.Itoa(v)),
			}
		}
		input.MessageAttributes = msgAttrs
	}

	_, err := p.SQS.SendMessage(ctx, input)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func awsString(s string) *string { return &s }
