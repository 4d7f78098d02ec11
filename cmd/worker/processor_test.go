package main

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/logging"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/retry"
)

type call struct {
	body         string
	failureCount int
}

type recorder struct {
	calls  []call
	failOn string
	msgs   []retry.Message
}

func (r *recorder) HandleNotification(_ context.Context, body string, n int) error {
	return r.record(body, n)
}

func (r *recorder) HandleCommand(_ context.Context, body string, n int) error {
	return r.record(body, n)
}

func (r *recorder) Handle(_ context.Context, msg retry.Message) (retry.Decision, error) {
	r.msgs = append(r.msgs, msg)
	if msg.Body == r.failOn {
		return retry.Decision{}, errors.New("queue unavailable")
	}
	return retry.Decision{Action: retry.ActionDrop}, nil
}

func (r *recorder) record(body string, n int) error {
	r.calls = append(r.calls, call{body, n})
	if body == r.failOn {
		return errors.New("boom")
	}
	return nil
}

func str(s string) *string { return &s }

func record(id, body string, attrs map[string]string) events.SQSMessage {
	rec := events.SQSMessage{MessageId: id, Body: body, MessageAttributes: map[string]events.SQSMessageAttribute{}}
	for k, v := range attrs {
		dataType := "String"
		if k == retry.AttrFailureCount {
			dataType = "Number"
		}
		rec.MessageAttributes[k] = events.SQSMessageAttribute{DataType: dataType, StringValue: str(v)}
	}
	return rec
}

func TestProcessor_ReportsOnlyFailedRecords(t *testing.T) {
	for _, role := range []string{RoleNotifications, RoleCommands} {
		t.Run(role, func(t *testing.T) {
			h := &recorder{failOn: "bad"}
			p, err := NewProcessor(role, h, h, h, logging.Nop())
			require.NoError(t, err)

			resp, err := p.Handle(context.Background(), events.SQSEvent{Records: []events.SQSMessage{
				record("m-1", "ok", map[string]string{retry.AttrFailureCount: "2"}),
				record("m-2", "bad", nil),
				record("m-3", "ok", map[string]string{retry.AttrFailureCount: "x"}),
			}})
			require.NoError(t, err)

			assert.Equal(t, []events.SQSBatchItemFailure{{ItemIdentifier: "m-2"}}, resp.BatchItemFailures)
			assert.Equal(t, []call{{"ok", 2}, {"bad", 0}, {"ok", 0}}, h.calls)
		})
	}
}

func TestProcessor_ErrorsRole(t *testing.T) {
	h := &recorder{failOn: "bad"}
	p, err := NewProcessor(RoleErrors, h, h, h, logging.Nop())
	require.NoError(t, err)

	resp, err := p.Handle(context.Background(), events.SQSEvent{Records: []events.SQSMessage{
		record("m-1", "ok", map[string]string{
			retry.AttrErrorType:    "GET_SHIPMENT_500",
			retry.AttrFailureCount: "1",
			retry.AttrEventTime:    "2024-05-01T12:00:00Z",
		}),
		record("m-2", "bad", map[string]string{retry.AttrErrorType: "GET_SHIPMENT_503"}),
	}})
	require.NoError(t, err)

	assert.Equal(t, []events.SQSBatchItemFailure{{ItemIdentifier: "m-2"}}, resp.BatchItemFailures)
	require.Len(t, h.msgs, 2)
	assert.Equal(t, retry.Message{Body: "ok", ErrorType: "GET_SHIPMENT_500", FailureCount: 1, EventTime: "2024-05-01T12:00:00Z"}, h.msgs[0])
}

func TestNewProcessor_UnknownRole(t *testing.T) {
	h := &recorder{}
	_, err := NewProcessor("inventory", h, h, h, logging.Nop())
	assert.Error(t, err)
}
