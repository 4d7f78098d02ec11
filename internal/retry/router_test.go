package retry

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/aws"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/awstest"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/config"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/fulfillment"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/logging"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/metrics"
)

var (
	retryCfg = config.RetryConfig{
		MaxServerErrorRetries: 3,
		UnavailableWindow:     15 * time.Minute,
		ServerErrorDelay:      20 * time.Second,
		UnavailableDelay:      30 * time.Second,
	}
	now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
)

func newTestRouter(fake *awstest.FakeSQS) *Router {
	r := NewRouter(NewPolicy(retryCfg),
		aws.NewPublisher(fake, "notifications"),
		aws.NewPublisher(fake, "commands"),
		metrics.Nop{}, logging.Nop())
	r.nowFunc = func() time.Time { return now }
	return r
}

func notificationBody(eventTime time.Time) string {
	return fmt.Sprintf(`{"notificationType":"EXTERNAL_FULFILLMENT_SHIPMENT_STATUS_CHANGE","eventTime":%q}`,
		eventTime.Format(time.RFC3339Nano))
}

func TestRouter_GetShipment503DependsOnEventAge(t *testing.T) {
	cases := []struct {
		name    string
		age     time.Duration
		want    Action
		requeue int
	}{
		{name: "twenty minutes old is dropped", age: 20 * time.Minute, want: ActionDrop, requeue: 0},
		{name: "five minutes old is requeued", age: 5 * time.Minute, want: ActionRequeue, requeue: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fake := awstest.NewFakeSQS()
			r := newTestRouter(fake)

			d, err := r.Handle(context.Background(), Message{
				Body:         notificationBody(now.Add(-tc.age)),
				ErrorType:    "GET_SHIPMENT_503",
				FailureCount: 1,
			})
			require.NoError(t, err)
			assert.Equal(t, tc.want, d.Action)

			sent := fake.Sent("notifications")
			require.Len(t, sent, tc.requeue)
			if tc.requeue > 0 {
				assert.Equal(t, int32(0), sent[0].DelaySeconds)
				assert.Equal(t, 1, sent[0].IntAttr(AttrFailureCount))
			}
		})
	}
}

func TestRouter_GetShipment500IsBoundedByCount(t *testing.T) {
	for count, want := range map[int]Action{1: ActionRequeue, 2: ActionRequeue, 3: ActionDrop, 7: ActionDrop} {
		fake := awstest.NewFakeSQS()
		d, err := newTestRouter(fake).Handle(context.Background(), Message{
			Body: notificationBody(now), ErrorType: "GET_SHIPMENT_500", FailureCount: count,
		})
		require.NoError(t, err)
		assert.Equal(t, want, d.Action, "failure count %d", count)
	}
}

func TestRouter_ConfirmShipment500IsAcknowledged(t *testing.T) {
	fake := awstest.NewFakeSQS()
	d, err := newTestRouter(fake).Handle(context.Background(), Message{
		Body: `{"type":"CONFIRM_SHIPMENT","shipment_id":"s-1"}`, ErrorType: "CONFIRM_SHIPMENT_500", FailureCount: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, ActionAcknowledge, d.Action)
	assert.Empty(t, fake.Sent(""))
}

func TestRouter_CommandRetriesGoToCommandsQueue(t *testing.T) {
	fake := awstest.NewFakeSQS()
	body := fmt.Sprintf(`{"type":"REJECT_SHIPMENT","shipment_id":"s-1","event_time":%q}`, now.Add(-2*time.Minute).Format(time.RFC3339))

	d, err := newTestRouter(fake).Handle(context.Background(), Message{Body: body, ErrorType: "REJECT_SHIPMENT_503", FailureCount: 1})
	require.NoError(t, err)
	assert.Equal(t, ActionRequeue, d.Action)
	require.Len(t, fake.Sent("commands"), 1)
	assert.Equal(t, body, fake.Sent("commands")[0].Body)
}

func TestRouter_EventTimeAttributeFallback(t *testing.T) {
	fake := awstest.NewFakeSQS()
	d, err := newTestRouter(fake).Handle(context.Background(), Message{
		Body:      `{"type":"CONFIRM_SHIPMENT"}`,
		ErrorType: "CONFIRM_SHIPMENT_503",
		EventTime: now.Add(-30 * time.Minute).Format(time.RFC3339Nano),
	})
	require.NoError(t, err)
	assert.Equal(t, ActionDrop, d.Action)
}

func TestRouter_UnknownTagIsDropped(t *testing.T) {
	fake := awstest.NewFakeSQS()
	for _, tag := range []string{"", "GARBAGE", "SOMETHING_ELSE_500"} {
		d, err := newTestRouter(fake).Handle(context.Background(), Message{Body: "{}", ErrorType: tag})
		require.NoError(t, err)
		assert.Equal(t, ActionDrop, d.Action, tag)
	}
	assert.Empty(t, fake.Sent(""))
}

func TestReporter_DelayAndAttributes(t *testing.T) {
	fake := awstest.NewFakeSQS()
	rep := NewReporter(aws.NewPublisher(fake, "errors"), retryCfg, logging.Nop())

	require.NoError(t, rep.Report(context.Background(), ErrorType{OpGetShipment, 500}, "b1", 1, now))
	require.NoError(t, rep.Report(context.Background(), ErrorType{OpGetShipment, 503}, "b2", 2, time.Time{}))

	sent := fake.Sent("errors")
	require.Len(t, sent, 2)
	assert.Equal(t, int32(20), sent[0].DelaySeconds)
	assert.Equal(t, "GET_SHIPMENT_500", sent[0].Attr(AttrErrorType))
	assert.Equal(t, 1, sent[0].IntAttr(AttrFailureCount))
	assert.NotEmpty(t, sent[0].Attr(AttrEventTime))
	assert.Equal(t, int32(30), sent[1].DelaySeconds)
	assert.Empty(t, sent[1].Attr(AttrEventTime))
}

func TestParseAndClassify(t *testing.T) {
	et, err := ParseErrorType("CONFIRM_SHIPMENT_503")
	require.NoError(t, err)
	assert.Equal(t, ErrorType{OpConfirmShipment, 503}, et)

	_, err = ParseErrorType("CONFIRM_SHIPMENT_")
	assert.Error(t, err)

	et, ok := Classify(OpGetShipment, &fulfillment.APIError{StatusCode: http.StatusServiceUnavailable})
	assert.True(t, ok)
	assert.Equal(t, "GET_SHIPMENT_503", et.String())

	_, ok = Classify(OpGetShipment, &fulfillment.APIError{StatusCode: http.StatusNotFound})
	assert.False(t, ok)
}
