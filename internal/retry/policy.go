// Package retry classifies retryable upstream failures and routes them back to the queue they came from.
package retry

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/config"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/fulfillment"
)

// Operation names the call that failed.
type Operation string

const (
	OpGetShipment     Operation = "GET_SHIPMENT"
	OpConfirmShipment Operation = "CONFIRM_SHIPMENT"
	OpRejectShipment  Operation = "REJECT_SHIPMENT"
)

// ErrorType is the tag carried with a failed message, e.g. GET_SHIPMENT_503.
type ErrorType struct {
	Operation  Operation
	StatusCode int
}

func (e ErrorType) String() string {
	return fmt.Sprintf("%s_%d", e.Operation, e.StatusCode)
}

// ParseErrorType splits a tag at its last underscore.
func ParseErrorType(s string) (ErrorType, error) {
	i := strings.LastIndex(s, "_")
	if i <= 0 || i == len(s)-1 {
		return ErrorType{}, fmt.Errorf("malformed error type %q", s)
	}
	code, err := strconv.Atoi(s[i+1:])
	if err != nil {
		return ErrorType{}, fmt.Errorf("malformed error type %q: %w", s, err)
	}
	return ErrorType{Operation: Operation(s[:i]), StatusCode: code}, nil
}

// Classify returns the error type for a retryable fulfillment error. ok is false for anything
// that must not be retried through the router.
func Classify(op Operation, err error) (ErrorType, bool) {
	if !fulfillment.IsRetryable(err) {
		return ErrorType{}, false
	}
	code, _ := fulfillment.StatusCode(err)
	return ErrorType{Operation: op, StatusCode: code}, true
}

type Action string

const (
	ActionRequeue     Action = "requeue"
	ActionDrop        Action = "drop"
	ActionAcknowledge Action = "acknowledge"
)

type Decision struct {
	Action Action
	Reason string
}

// Policy decides what happens to a failed message.
type Policy struct {
	MaxServerErrorRetries int
	UnavailableWindow     time.Duration
}

func NewPolicy(cfg config.RetryConfig) Policy {
	return Policy{
		MaxServerErrorRetries: cfg.MaxServerErrorRetries,
		UnavailableWindow:     cfg.UnavailableWindow,
	}
}

// Decide applies the retry table. 500s are bounded by count, 503s by event age.
// A failed confirmation on a 500 is acknowledged and left for manual follow-up.
func (p Policy) Decide(et ErrorType, failureCount int, eventTime, now time.Time) Decision {
	switch et.Operation {
	case OpGetShipment, OpConfirmShipment, OpRejectShipment:
	default:
		return Decision{Action: ActionDrop, Reason: "unknown operation"}
	}

	switch et.StatusCode {
	case http.StatusInternalServerError:
		if et.Operation == OpConfirmShipment {
			return Decision{Action: ActionAcknowledge, Reason: "confirmation failures are resolved manually"}
		}
		if failureCount < p.MaxServerErrorRetries {
			return Decision{Action: ActionRequeue, Reason: fmt.Sprintf("attempt %d of %d", failureCount, p.MaxServerErrorRetries)}
		}
		return Decision{Action: ActionDrop, Reason: "retry limit reached"}

	case http.StatusServiceUnavailable:
		if eventTime.IsZero() {
			return Decision{Action: ActionDrop, Reason: "event time unknown"}
		}
		if now.Sub(eventTime) < p.UnavailableWindow {
			return Decision{Action: ActionRequeue, Reason: "within unavailable window"}
		}
		return Decision{Action: ActionDrop, Reason: "event older than unavailable window"}
	}
	return Decision{Action: ActionDrop, Reason: "status not retryable"}
}
