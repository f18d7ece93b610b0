package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/loxe-ai/evidence-tracer/pkg/models/domain"
	"github.com/loxe-ai/evidence-tracer/pkg/services/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockS3 struct {
	mock.Mock
}

func (m *mockS3) ListBuckets(
	ctx context.Context,
	params *s3.ListBucketsInput,
	_ ...func(*s3.Options),
) (*s3.ListBucketsOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.ListBucketsOutput), args.Error(1)
}

func (m *mockS3) GetBucketLocation(
	ctx context.Context,
	params *s3.GetBucketLocationInput,
	_ ...func(*s3.Options),
) (*s3.GetBucketLocationOutput, error) {
	args := m.Called(ctx, awssdk.ToString(params.Bucket))
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.GetBucketLocationOutput), args.Error(1)
}

func newTestCollector(client *mockS3) Collector {
	return NewS3CollectorWithFactory(func(awssdk.Config) S3API { return client })
}

func testSession() *credentials.Session {
	return &credentials.Session{AccessKeyID: "a", SecretAccessKey: "b", SessionToken: "c", Region: "us-east-1"}
}

func TestCollector_CollectAssets(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	client := new(mockS3)
	client.On("ListBuckets", mock.Anything, mock.Anything).Return(&s3.ListBucketsOutput{
		Buckets: []types.Bucket{
			{Name: awssdk.String("logs"), CreationDate: awssdk.Time(created)},
			{Name: awssdk.String("assets-eu")},
			{Name: awssdk.String("legacy")},
			{Name: awssdk.String("locked")},
		},
		Owner: &types.Owner{ID: awssdk.String("owner-123"), DisplayName: awssdk.String("acme")},
	}, nil)
	client.On("GetBucketLocation", mock.Anything, "logs").
		Return(&s3.GetBucketLocationOutput{}, nil)
	client.On("GetBucketLocation", mock.Anything, "assets-eu").
		Return(&s3.GetBucketLocationOutput{LocationConstraint: types.BucketLocationConstraint("eu-central-1")}, nil)
	client.On("GetBucketLocation", mock.Anything, "legacy").
		Return(&s3.GetBucketLocationOutput{LocationConstraint: types.BucketLocationConstraint("EU")}, nil)
	client.On("GetBucketLocation", mock.Anything, "locked").
		Return(nil, errors.New("AccessDenied"))

	inv := newTestCollector(client).CollectAssets(context.Background(), testSession())

	require.Len(t, inv.Assets, 4)
	assert.True(t, inv.Degraded())
	assert.Len(t, inv.Warnings, 1)
	assert.Contains(t, inv.Warnings[0], "locked")

	logs := inv.Assets[0]
	assert.Equal(t, "arn:aws:s3:::logs", logs.ResourceID)
	assert.Equal(t, "logs", logs.Name)
	assert.Equal(t, domain.AssetTypeS3Bucket, logs.Type)
	assert.Equal(t, domain.ProviderAWS, logs.Provider)
	assert.Equal(t, domain.AssetStatusUnknown, logs.Status)
	assert.Equal(t, "us-east-1", logs.Region)
	assert.Equal(t, "2024-03-01T10:00:00Z", logs.Metadata["creation_date"])
	assert.Equal(t, "owner-123", logs.Metadata["owner_id"])
	assert.Equal(t, "acme", logs.Metadata["owner_name"])

	assert.Equal(t, "eu-central-1", inv.Assets[1].Region)
	assert.Equal(t, "eu-west-1", inv.Assets[2].Region)
	assert.Equal(t, domain.RegionUnknown, inv.Assets[3].Region)

	assert.Equal(t, []string{
		"arn:aws:s3:::logs",
		"arn:aws:s3:::assets-eu",
		"arn:aws:s3:::legacy",
		"arn:aws:s3:::locked",
	}, inv.ResourceIDs())
	client.AssertExpectations(t)
}

func TestCollector_ListDenied(t *testing.T) {
	client := new(mockS3)
	client.On("ListBuckets", mock.Anything, mock.Anything).Return(nil, errors.New("AccessDenied: s3:ListAllMyBuckets"))

	inv := newTestCollector(client).CollectAssets(context.Background(), testSession())

	assert.Empty(t, inv.Assets)
	assert.NotNil(t, inv.Assets)
	require.Len(t, inv.Warnings, 1)
	assert.Contains(t, inv.Warnings[0], "failed to list S3 buckets")
}

func TestCollector_NoBuckets(t *testing.T) {
	client := new(mockS3)
	client.On("ListBuckets", mock.Anything, mock.Anything).Return(&s3.ListBucketsOutput{}, nil)

	inv := newTestCollector(client).CollectAssets(context.Background(), testSession())

	assert.Empty(t, inv.Assets)
	assert.False(t, inv.Degraded())
}

func TestCollector_NilSession(t *testing.T) {
	client := new(mockS3)

	inv := newTestCollector(client).CollectAssets(context.Background(), nil)

	assert.Empty(t, inv.Assets)
	assert.True(t, inv.Degraded())
	client.AssertNotCalled(t, "ListBuckets", mock.Anything, mock.Anything)
}

func TestNormalizeRegion(t *testing.T) {
	assert.Equal(t, "us-east-1", NormalizeRegion(""))
	assert.Equal(t, "eu-west-1", NormalizeRegion("EU"))
	assert.Equal(t, "ap-southeast-2", NormalizeRegion("ap-southeast-2"))
}
