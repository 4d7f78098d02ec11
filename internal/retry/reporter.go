package retry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/aws"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/config"
)

// Message attribute names shared by every queue in the workflow.
const (
	AttrFailureCount = "FailureCount"
	AttrErrorType    = "ErrorType"
	AttrEventTime    = "EventTime"
)

type sender interface {
	Send(ctx context.Context, msg aws.Message) error
}

// Reporter sends a failed message to the errors queue with a status dependent delay.
type Reporter struct {
	queue            sender
	serverErrorDelay time.Duration
	unavailableDelay time.Duration
	logger           *zap.Logger
}

func NewReporter(queue sender, cfg config.RetryConfig, logger *zap.Logger) *Reporter {
	return &Reporter{
		queue:            queue,
		serverErrorDelay: cfg.ServerErrorDelay,
		unavailableDelay: cfg.UnavailableDelay,
		logger:           logger.Named("retry-reporter"),
	}
}

// Delay is 20s for a 500 and 30s for a 503 with the default config.
func (r *Reporter) Delay(statusCode int) time.Duration {
	if statusCode == http.StatusServiceUnavailable {
		return r.unavailableDelay
	}
	return r.serverErrorDelay
}

// Report enqueues body on the errors queue. failureCount is the count after this failure.
func (r *Reporter) Report(ctx context.Context, et ErrorType, body string, failureCount int, eventTime time.Time) error {
	msg := aws.Message{
		Body:             body,
		Attributes:       map[string]string{AttrErrorType: et.String()},
		NumberAttributes: map[string]int{AttrFailureCount: failureCount},
		Delay:            r.Delay(et.StatusCode),
	}
	if !eventTime.IsZero() {
		msg.Attributes[AttrEventTime] = eventTime.UTC().Format(time.RFC3339Nano)
	}
	if err := r.queue.Send(ctx, msg); err != nil {
		return fmt.Errorf("report %s: %w", et, err)
	}
	r.logger.Info("reported retryable failure",
		zap.String("error_type", et.String()),
		zap.Int("failure_count", failureCount),
		zap.Duration("delay", msg.Delay))
	return nil
}
