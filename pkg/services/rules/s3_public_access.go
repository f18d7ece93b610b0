package rules

import (
	"context"
	"errors"
	"fmt"
	"strings"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/loxe-ai/evidence-tracer/pkg/models/domain"
	"github.com/loxe-ai/evidence-tracer/pkg/services/credentials"
	"github.com/rs/zerolog"
)

const (
	ControlS3PublicAccessBlock = "CC6.1"

	errNoPublicAccessBlock = "NoSuchPublicAccessBlockConfiguration"
	s3ARNPrefix            = "arn:aws:s3:::"
)

type PublicAccessBlockAPI interface {
	GetPublicAccessBlock(ctx context.Context, params *s3.GetPublicAccessBlockInput, optFns ...func(*s3.Options)) (*s3.GetPublicAccessBlockOutput, error)
}

type s3PublicAccessBlock struct {
	newClient func(cfg awssdk.Config) PublicAccessBlockAPI
}

func NewS3PublicAccessBlock() Control {
	return NewS3PublicAccessBlockWithFactory(func(cfg awssdk.Config) PublicAccessBlockAPI {
		return s3.NewFromConfig(cfg)
	})
}

func NewS3PublicAccessBlockWithFactory(factory func(cfg awssdk.Config) PublicAccessBlockAPI) Control {
	return &s3PublicAccessBlock{newClient: factory}
}

func (c *s3PublicAccessBlock) ID() string {
	return ControlS3PublicAccessBlock
}

func (c *s3PublicAccessBlock) Check(
	ctx context.Context,
	session *credentials.Session,
	resourceID string,
	region string,
) domain.EvidenceFinding {
	bucket := strings.TrimPrefix(resourceID, s3ARNPrefix)
	finding := domain.EvidenceFinding{
		ControlID:   ControlS3PublicAccessBlock,
		Resource:    resourceID,
		Description: "S3 bucket Public Access Block is enabled",
		Evidence:    map[string]any{},
	}

	out, err := c.newClient(session.Config()).GetPublicAccessBlock(ctx, &s3.GetPublicAccessBlockInput{
		Bucket: awssdk.String(bucket),
	}, inRegion(session, region)...)
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == errNoPublicAccessBlock {
			finding.Status = domain.FindingStatusFail
			finding.Description = "S3 bucket does not have a Public Access Block configured."
			finding.Evidence = map[string]any{"error": errNoPublicAccessBlock}
			return finding
		}

		zerolog.Ctx(ctx).Warn().Err(err).Str("bucket", bucket).Msg("public access block check failed")
		finding.Status = domain.FindingStatusError
		finding.Description = fmt.Sprintf("Could not check bucket '%s'.", bucket)
		finding.Evidence = map[string]any{"error": err.Error()}
		return finding
	}

	var blockACLs, ignoreACLs, blockPolicy, restrictBuckets bool
	if out != nil && out.PublicAccessBlockConfiguration != nil {
		cfg := out.PublicAccessBlockConfiguration
		blockACLs = awssdk.ToBool(cfg.BlockPublicAcls)
		ignoreACLs = awssdk.ToBool(cfg.IgnorePublicAcls)
		blockPolicy = awssdk.ToBool(cfg.BlockPublicPolicy)
		restrictBuckets = awssdk.ToBool(cfg.RestrictPublicBuckets)
	}

	finding.Evidence = map[string]any{
		"BlockPublicAcls":       blockACLs,
		"IgnorePublicAcls":      ignoreACLs,
		"BlockPublicPolicy":     blockPolicy,
		"RestrictPublicBuckets": restrictBuckets,
	}

	if blockACLs && ignoreACLs && blockPolicy && restrictBuckets {
		finding.Status = domain.FindingStatusPass
		return finding
	}

	finding.Status = domain.FindingStatusFail
	finding.Description = "S3 bucket Public Access Block is not fully enabled."
	return finding
}

// inRegion pins the request to the bucket's home region. S3 answers a
// request signed for another region with a 301 the SDK does not follow.
func inRegion(session *credentials.Session, region string) []func(*s3.Options) {
	if region == "" || region == domain.RegionUnknown || region == session.Region {
		return nil
	}
	return []func(*s3.Options){func(o *s3.Options) { o.Region = region }}
}
