package credentials

import (
	"context"
	"fmt"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
)

const (
	DefaultRegion = "us-east-1"
)

// LoadConfig builds the broker's own AWS configuration. Every call made with
// it, or with a session derived from it, is bounded by timeout and is never
// retried by the SDK.
func LoadConfig(ctx context.Context, region string, timeout time.Duration) (*awssdk.Config, error) {
	if region == "" {
		region = DefaultRegion
	}

	httpClient := awshttp.NewBuildableClient()
	if timeout > 0 {
		httpClient = httpClient.WithTimeout(timeout)
	}

	awsCfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithDefaultRegion(region),
		config.WithHTTPClient(httpClient),
		config.WithRetryer(func() awssdk.Retryer {
			return awssdk.NopRetryer{}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}

	return &awsCfg, nil
}
