package awstest

import (
	"context"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// SentMessage is a message captured by FakeSQS.
type SentMessage struct {
	QueueURL     string
	Body         string
	DelaySeconds int32
	Attributes   map[string]string
}

// Attr returns the value of a message attribute, or "".
func (m SentMessage) Attr(name string) string {
	return m.Attributes[name]
}

// IntAttr parses a Number attribute.
func (m SentMessage) IntAttr(name string) int {
	n, _ := strconv.Atoi(m.Attributes[name])
	return n
}

// FakeSQS records every SendMessage call.
type FakeSQS struct {
	mu   sync.Mutex
	sent []SentMessage
	err  error
}

func NewFakeSQS() *FakeSQS {
	return &FakeSQS{}
}

// FailWith makes every subsequent send return err until reset with nil.
func (f *FakeSQS) FailWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *FakeSQS) SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	msg := SentMessage{
		QueueURL:     aws.ToString(in.QueueUrl),
		Body:         aws.ToString(in.MessageBody),
		DelaySeconds: in.DelaySeconds,
		Attributes:   map[string]string{},
	}
	for k, v := range in.MessageAttributes {
		msg.Attributes[k] = aws.ToString(v.StringValue)
	}
	f.sent = append(f.sent, msg)
	return &sqs.SendMessageOutput{MessageId: aws.String(strconv.Itoa(len(f.sent)))}, nil
}

// Sent returns messages sent to queueURL, or all messages when queueURL is empty.
func (f *FakeSQS) Sent(queueURL string) []SentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []SentMessage
	for _, m := range f.sent {
		if queueURL == "" || m.QueueURL == queueURL {
			out = append(out, m)
		}
	}
	return out
}

// FakeCloudWatch records PutMetricData inputs.
type FakeCloudWatch struct {
	mu     sync.Mutex
	Inputs []*cloudwatch.PutMetricDataInput
}

func (f *FakeCloudWatch) PutMetricData(ctx context.Context, in *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Inputs = append(f.Inputs, in)
	return &cloudwatch.PutMetricDataOutput{}, nil
}

// Metric returns the summed value of every datum named name.
func (f *FakeCloudWatch) Metric(name string) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total float64
	for _, in := range f.Inputs {
		for _, d := range in.MetricData {
			if aws.ToString(d.MetricName) == name {
				total += aws.ToFloat64(d.Value)
			}
		}
	}
	return total
}
