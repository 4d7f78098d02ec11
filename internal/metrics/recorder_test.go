package metrics

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/awstest"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/logging"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/syncsessions"
)

func TestRecordSyncSession(t *testing.T) {
	cw := &awstest.FakeCloudWatch{}
	r := NewCloudWatchRecorder(cw, "Omni", logging.Nop())

	r.RecordSyncSession(context.Background(), &syncsessions.Session{
		Status: syncsessions.StatusCompleted,
		Locations: []syncsessions.LocationResult{{
			Operations: []syncsessions.Operation{
				{Result: syncsessions.StatusUpdated},
				{Result: syncsessions.StatusSkipped},
				{Result: syncsessions.StatusFailed},
				{Result: syncsessions.StatusUpdated},
			},
		}},
	})

	if got := cw.Metric("SyncOperationsUpdated"); got != 2 {
		t.Fatalf("updated = %v, want 2", got)
	}
	if got := cw.Metric("SyncOperationsFailed"); got != 1 {
		t.Fatalf("failed = %v, want 1", got)
	}
	if ns := aws.ToString(cw.Inputs[0].Namespace); ns != "Omni" {
		t.Fatalf("namespace = %s", ns)
	}
}

func TestRecordRetryDecisionAndImport(t *testing.T) {
	cw := &awstest.FakeCloudWatch{}
	r := NewCloudWatchRecorder(cw, "Omni", logging.Nop())
	ctx := context.Background()

	r.RecordRetryDecision(ctx, "GET_SHIPMENT_503", "drop")
	r.RecordImport(ctx, 4, 1)

	if cw.Metric("RetryDecisions") != 1 || cw.Metric("ImportedNotifications") != 4 || cw.Metric("ImportFailures") != 1 {
		t.Fatalf("unexpected metrics %+v", cw.Inputs)
	}
}
