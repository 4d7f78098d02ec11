package retry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/aws"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/metrics"
)

// Message is one record read from the errors queue.
type Message struct {
	Body         string
	ErrorType    string
	FailureCount int
	EventTime    string
}

// Router consumes the errors queue and applies Policy.
type Router struct {
	policy   Policy
	targets  map[Operation]sender
	recorder metrics.Recorder
	logger   *zap.Logger
	nowFunc  func() time.Time
}

// NewRouter sends GET_SHIPMENT retries to notifications and confirm/reject retries to commands.
func NewRouter(policy Policy, notifications, commands sender, recorder metrics.Recorder, logger *zap.Logger) *Router {
	return &Router{
		policy: policy,
		targets: map[Operation]sender{
			OpGetShipment:     notifications,
			OpConfirmShipment: commands,
			OpRejectShipment:  commands,
		},
		recorder: recorder,
		logger:   logger.Named("retry-router"),
		nowFunc:  time.Now,
	}
}

// Handle decides and, on requeue, forwards the original body with no delay.
// A malformed tag is dropped rather than returned, so it cannot loop through redrive.
func (r *Router) Handle(ctx context.Context, msg Message) (Decision, error) {
	log := r.logger.With(zap.String("error_type", msg.ErrorType), zap.Int("failure_count", msg.FailureCount))

	et, err := ParseErrorType(msg.ErrorType)
	if err != nil {
		log.Warn("dropping message with unknown error type", zap.Error(err))
		d := Decision{Action: ActionDrop, Reason: "unparseable error type"}
		r.recorder.RecordRetryDecision(ctx, msg.ErrorType, string(d.Action))
		return d, nil
	}

	eventTime := extractEventTime(msg.Body, msg.EventTime)
	d := r.policy.Decide(et, msg.FailureCount, eventTime, r.nowFunc())
	r.recorder.RecordRetryDecision(ctx, et.String(), string(d.Action))

	switch d.Action {
	case ActionRequeue:
		target, ok := r.targets[et.Operation]
		if !ok || target == nil {
			return d, fmt.Errorf("no target queue for %s", et.Operation)
		}
		out := aws.Message{
			Body:             msg.Body,
			NumberAttributes: map[string]int{AttrFailureCount: msg.FailureCount},
		}
		if msg.EventTime != "" {
			out.Attributes = map[string]string{AttrEventTime: msg.EventTime}
		}
		if err := target.Send(ctx, out); err != nil {
			return d, fmt.Errorf("requeue %s: %w", et, err)
		}
		log.Info("requeued", zap.String("reason", d.Reason))
	case ActionAcknowledge:
		log.Warn("acknowledged without retry", zap.String("reason", d.Reason))
	default:
		log.Warn("dropped", zap.String("reason", d.Reason))
	}
	return d, nil
}

// extractEventTime reads eventTime from a notification or event_time from a command,
// falling back to the EventTime attribute.
func extractEventTime(body, attr string) time.Time {
	var stamp struct {
		EventTime        *time.Time `json:"eventTime"`
		CommandEventTime *time.Time `json:"event_time"`
	}
	if err := json.Unmarshal([]byte(body), &stamp); err == nil {
		if stamp.EventTime != nil && !stamp.EventTime.IsZero() {
			return *stamp.EventTime
		}
		if stamp.CommandEventTime != nil && !stamp.CommandEventTime.IsZero() {
			return *stamp.CommandEventTime
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, attr); err == nil {
		return t
	}
	return time.Time{}
}
