package metrics

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"

	awsclients "github.com/imrishuroy/omnichannel-fulfillment/internal/aws"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/syncsessions"
)

// Recorder publishes batch-job metrics. Implementations never fail the caller.
type Recorder interface {
	RecordSyncSession(ctx context.Context, session *syncsessions.Session)
	RecordRetryDecision(ctx context.Context, errorType, action string)
	RecordImport(ctx context.Context, published, failed int)
}

// CloudWatchRecorder writes metrics with PutMetricData under one namespace.
type CloudWatchRecorder struct {
	client    awsclients.CloudWatchAPI
	namespace string
	logger    *zap.Logger
}

func NewCloudWatchRecorder(client awsclients.CloudWatchAPI, namespace string, logger *zap.Logger) *CloudWatchRecorder {
	return &CloudWatchRecorder{client: client, namespace: namespace, logger: logger.Named("metrics")}
}

func (r *CloudWatchRecorder) RecordSyncSession(ctx context.Context, session *syncsessions.Session) {
	status := dimension("Status", session.Status)
	r.put(ctx,
		datum("SyncOperationsUpdated", float64(session.Count(syncsessions.StatusUpdated)), status),
		datum("SyncOperationsSkipped", float64(session.Count(syncsessions.StatusSkipped)), status),
		datum("SyncOperationsFailed", float64(session.Count(syncsessions.StatusFailed)), status),
		datum("SyncLocations", float64(len(session.Locations)), status),
	)
}

func (r *CloudWatchRecorder) RecordRetryDecision(ctx context.Context, errorType, action string) {
	r.put(ctx, datum("RetryDecisions", 1, dimension("ErrorType", errorType), dimension("Action", action)))
}

func (r *CloudWatchRecorder) RecordImport(ctx context.Context, published, failed int) {
	r.put(ctx,
		datum("ImportedNotifications", float64(published)),
		datum("ImportFailures", float64(failed)),
	)
}

func (r *CloudWatchRecorder) put(ctx context.Context, data ...cwtypes.MetricDatum) {
	_, err := r.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(r.namespace),
		MetricData: data,
	})
	if err != nil {
		r.logger.Warn("put metric data failed", zap.Error(err))
	}
}

func datum(name string, value float64, dims ...cwtypes.Dimension) cwtypes.MetricDatum {
	return cwtypes.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(value),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: dims,
	}
}

func dimension(name, value string) cwtypes.Dimension {
	return cwtypes.Dimension{Name: aws.String(name), Value: aws.String(value)}
}

// Nop discards every metric.
type Nop struct{}

func (Nop) RecordSyncSession(context.Context, *syncsessions.Session) {}
func (Nop) RecordRetryDecision(context.Context, string, string)      {}
func (Nop) RecordImport(context.Context, int, int)                   {}
