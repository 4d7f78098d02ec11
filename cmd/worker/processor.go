package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/retry"
)

type notificationHandler interface {
	HandleNotification(ctx context.Context, body string, failureCount int) error
}

type commandHandler interface {
	HandleCommand(ctx context.Context, body string, failureCount int) error
}

type errorRouter interface {
	Handle(ctx context.Context, msg retry.Message) (retry.Decision, error)
}

// Processor handles one SQS batch for its role. Records are processed in order, one at a time.
type Processor struct {
	role   string
	handle func(ctx context.Context, rec events.SQSMessage) error
	logger *zap.Logger
}

// NewProcessor picks the handler for role.
func NewProcessor(role string, n notificationHandler, c commandHandler, r errorRouter, logger *zap.Logger) (*Processor, error) {
	p := &Processor{role: role, logger: logger.Named("worker").With(zap.String("role", role))}
	switch role {
	case RoleNotifications:
		p.handle = func(ctx context.Context, rec events.SQSMessage) error {
			return n.HandleNotification(ctx, rec.Body, failureCount(rec))
		}
	case RoleCommands:
		p.handle = func(ctx context.Context, rec events.SQSMessage) error {
			return c.HandleCommand(ctx, rec.Body, failureCount(rec))
		}
	case RoleErrors:
		p.handle = func(ctx context.Context, rec events.SQSMessage) error {
			_, err := r.Handle(ctx, retryMessage(rec))
			return err
		}
	default:
		return nil, fmt.Errorf("unknown worker role %q", role)
	}
	return p, nil
}

// Handle reports failed records individually so SQS redelivers only those.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	p.logger.Info("received batch", zap.Int("records", len(ev.Records)))

	var resp events.SQSEventResponse
	for _, rec := range ev.Records {
		if err := p.handle(ctx, rec); err != nil {
			p.logger.Error("record failed",
				zap.String("message_id", rec.MessageId),
				zap.Int("failure_count", failureCount(rec)),
				zap.Error(err),
			)
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: rec.MessageId})
		}
	}
	return resp, nil
}
