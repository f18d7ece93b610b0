package credentials

import (
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	awscredentials "github.com/aws/aws-sdk-go-v2/credentials"
)

// Session holds temporary credentials for one customer account. It belongs
// to a single scan and is never persisted.
type Session struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Region          string
	Expires         time.Time

	base awssdk.Config
}

// Config returns an AWS configuration bound to the session credentials and
// region. The HTTP client and retry policy are inherited from the broker.
func (s *Session) Config() awssdk.Config {
	cfg := s.base.Copy()
	cfg.Region = s.Region
	cfg.Credentials = awssdk.NewCredentialsCache(
		awscredentials.NewStaticCredentialsProvider(s.AccessKeyID, s.SecretAccessKey, s.SessionToken),
	)
	return cfg
}

func (s *Session) Expired(now time.Time) bool {
	return !s.Expires.IsZero() && !now.Before(s.Expires)
}

// Destroy drops the credential material.
func (s *Session) Destroy() {
	s.AccessKeyID = ""
	s.SecretAccessKey = ""
	s.SessionToken = ""
}
