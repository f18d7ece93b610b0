package credentials

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"
)

// SessionName is attached to every assumed-role session so customers can
// identify our calls in CloudTrail. It is not configurable.
const SessionName = "LoxeEvidenceTracerSession"

const DefaultSessionDuration = time.Hour

var roleARNPattern = regexp.MustCompile(`^arn:aws[a-zA-Z-]*:iam::\d{12}:role/[\w+=,.@/-]+$`)

type STSAPI interface {
	AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error)
}

type Broker interface {
	Acquire(ctx context.Context, roleARN, externalID, region string) (*Session, error)
}

type BrokerConfig struct {
	BaseConfig awssdk.Config
	Duration   time.Duration
	STSFactory func(cfg awssdk.Config) STSAPI
}

type stsBroker struct {
	base     awssdk.Config
	duration time.Duration
	client   STSAPI
}

func NewBroker(cfg BrokerConfig) Broker {
	if cfg.Duration <= 0 {
		cfg.Duration = DefaultSessionDuration
	}
	if cfg.STSFactory == nil {
		cfg.STSFactory = func(c awssdk.Config) STSAPI {
			return sts.NewFromConfig(c)
		}
	}

	return &stsBroker{
		base:     cfg.BaseConfig,
		duration: cfg.Duration,
		client:   cfg.STSFactory(cfg.BaseConfig),
	}
}

func (b *stsBroker) Acquire(ctx context.Context, roleARN, externalID, region string) (*Session, error) {
	logger := zerolog.Ctx(ctx)

	roleARN = strings.TrimSpace(roleARN)
	if !roleARNPattern.MatchString(roleARN) {
		return nil, &Error{Kind: KindMalformedRoleIdentifier, Message: msgMalformedRole}
	}
	if strings.TrimSpace(externalID) == "" {
		return nil, &Error{Kind: KindInvalidExternalID, Message: msgInvalidExternalID}
	}
	if region == "" {
		region = b.base.Region
	}
	if region == "" {
		region = DefaultRegion
	}

	logger.Debug().Str("role_arn", roleARN).Str("region", region).Msg("assuming customer role")

	out, err := b.client.AssumeRole(ctx, &sts.AssumeRoleInput{
		RoleArn:         awssdk.String(roleARN),
		RoleSessionName: awssdk.String(SessionName),
		ExternalId:      awssdk.String(externalID),
		DurationSeconds: awssdk.Int32(int32(b.duration / time.Second)),
	})
	if err != nil {
		credErr := classify(err)
		logger.Warn().Err(err).Str("kind", string(credErr.Kind)).Msg("role assumption failed")
		return nil, credErr
	}

	if out == nil || out.Credentials == nil {
		return nil, &Error{
			Kind:    KindUnknownProviderError,
			Message: "An unexpected AWS error occurred: no credentials returned",
		}
	}

	creds := out.Credentials
	return &Session{
		AccessKeyID:     awssdk.ToString(creds.AccessKeyId),
		SecretAccessKey: awssdk.ToString(creds.SecretAccessKey),
		SessionToken:    awssdk.ToString(creds.SessionToken),
		Region:          region,
		Expires:         awssdk.ToTime(creds.Expiration),
		base:            b.base,
	}, nil
}

func classify(err error) *Error {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return &Error{
			Kind:    KindUnknownProviderError,
			Message: fmt.Sprintf("An unexpected error occurred: %v", err),
			Err:     err,
		}
	}

	switch apiErr.ErrorCode() {
	case "AccessDenied":
		if strings.Contains(strings.ToLower(apiErr.ErrorMessage()), "externalid") {
			return &Error{Kind: KindInvalidExternalID, Message: msgInvalidExternalID, Err: err}
		}
		return &Error{Kind: KindBackendMisconfigured, Message: msgBackendMisconfigured, Err: err}
	case "ValidationError":
		return &Error{Kind: KindMalformedRoleIdentifier, Message: msgMalformedRole, Err: err}
	default:
		return &Error{
			Kind:    KindUnknownProviderError,
			Message: fmt.Sprintf("An unexpected AWS error occurred: %s", apiErr.ErrorMessage()),
			Err:     err,
		}
	}
}
