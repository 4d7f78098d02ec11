package aws

import (
	"context"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/config"
)

const defaultRegion = "us-east-1"

// LoadAWSConfig resolves the SDK config. EndpointOverride points every client at LocalStack.
func LoadAWSConfig(ctx context.Context, cfg config.AWSConfig) (sdkaws.Config, error) {
	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return awsCfg, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if cfg.EndpointOverride != "" {
		awsCfg.BaseEndpoint = sdkaws.String(cfg.EndpointOverride)
	}

	return awsCfg, nil
}
