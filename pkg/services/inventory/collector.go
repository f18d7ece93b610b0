package inventory

import (
	"context"
	"fmt"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/loxe-ai/evidence-tracer/pkg/models/domain"
	"github.com/loxe-ai/evidence-tracer/pkg/services/credentials"
	"github.com/rs/zerolog"
)

const (
	// GetBucketLocation reports buckets in us-east-1 with an empty
	// constraint and very old eu-west-1 buckets as "EU".
	defaultLocation  = "us-east-1"
	legacyEULocation = "EU"
	legacyEURegion   = "eu-west-1"
)

type S3API interface {
	ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
	GetBucketLocation(ctx context.Context, params *s3.GetBucketLocationInput, optFns ...func(*s3.Options)) (*s3.GetBucketLocationOutput, error)
}

type Collector interface {
	CollectAssets(ctx context.Context, session *credentials.Session) domain.Inventory
}

type s3Collector struct {
	newClient func(cfg awssdk.Config) S3API
}

func NewS3Collector() Collector {
	return NewS3CollectorWithFactory(func(cfg awssdk.Config) S3API {
		return s3.NewFromConfig(cfg)
	})
}

func NewS3CollectorWithFactory(factory func(cfg awssdk.Config) S3API) Collector {
	return &s3Collector{newClient: factory}
}

func BucketARN(name string) string {
	return "arn:aws:s3:::" + name
}

func (c *s3Collector) CollectAssets(ctx context.Context, session *credentials.Session) domain.Inventory {
	logger := zerolog.Ctx(ctx)
	inv := domain.Inventory{Assets: []domain.Asset{}}

	if session == nil {
		inv.Warnings = append(inv.Warnings, "no credential session available; inventory skipped")
		return inv
	}

	client := c.newClient(session.Config())
	resp, err := client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		logger.Warn().Err(err).Msg("failed to list S3 buckets")
		inv.Warnings = append(inv.Warnings, fmt.Sprintf("failed to list S3 buckets: %v", err))
		return inv
	}

	now := time.Now().UTC()
	for _, bucket := range resp.Buckets {
		name := awssdk.ToString(bucket.Name)
		if name == "" {
			continue
		}

		region, warning := c.bucketRegion(ctx, client, name)
		if warning != "" {
			logger.Warn().Str("bucket", name).Msg(warning)
			inv.Warnings = append(inv.Warnings, warning)
		}

		metadata := map[string]string{}
		if bucket.CreationDate != nil {
			metadata["creation_date"] = bucket.CreationDate.UTC().Format(time.RFC3339)
		}
		if resp.Owner != nil {
			if id := awssdk.ToString(resp.Owner.ID); id != "" {
				metadata["owner_id"] = id
			}
			if owner := awssdk.ToString(resp.Owner.DisplayName); owner != "" {
				metadata["owner_name"] = owner
			}
		}

		inv.Assets = append(inv.Assets, domain.Asset{
			ResourceID: BucketARN(name),
			Name:       name,
			Type:       domain.AssetTypeS3Bucket,
			Provider:   domain.ProviderAWS,
			Region:     region,
			Status:     domain.AssetStatusUnknown,
			Metadata:   metadata,
			UpdatedAt:  now,
		})
	}

	logger.Info().Int("assets", len(inv.Assets)).Int("warnings", len(inv.Warnings)).Msg("inventory collected")
	return inv
}

func (c *s3Collector) bucketRegion(ctx context.Context, client S3API, name string) (string, string) {
	loc, err := client.GetBucketLocation(ctx, &s3.GetBucketLocationInput{
		Bucket: awssdk.String(name),
	})
	if err != nil {
		return domain.RegionUnknown, fmt.Sprintf("failed to get location of bucket %s: %v", name, err)
	}
	if loc == nil {
		return defaultLocation, ""
	}
	return NormalizeRegion(string(loc.LocationConstraint)), ""
}

func NormalizeRegion(constraint string) string {
	switch constraint {
	case "":
		return defaultLocation
	case legacyEULocation:
		return legacyEURegion
	default:
		return constraint
	}
}
