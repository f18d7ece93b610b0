package targets

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

const externalIDPrefix = "loxe-beta-"

// NewExternalID returns a fresh external id for a customer role trust
// policy. A new id invalidates stacks created with the previous one.
func NewExternalID() string {
	return externalIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

type StackParams struct {
	Region       string
	TemplateURL  string
	StackName    string
	ExternalID   string
	AppAccountID string
}

// LaunchStackURL links to the CloudFormation quick-create page that
// provisions the scan role in the customer account.
func LaunchStackURL(p StackParams) (string, error) {
	if p.TemplateURL == "" {
		return "", fmt.Errorf("template url is required")
	}
	if p.AppAccountID == "" {
		return "", fmt.Errorf("application account id is required")
	}
	if p.ExternalID == "" {
		return "", fmt.Errorf("external id is required")
	}

	q := url.Values{}
	q.Set("templateURL", p.TemplateURL)
	q.Set("stackName", p.StackName)
	q.Set("param_ExternalId", p.ExternalID)
	q.Set("param_LoxeAppAwsAccountId", p.AppAccountID)

	return fmt.Sprintf(
		"https://console.aws.amazon.com/cloudformation/home?region=%s#/stacks/create/review?%s",
		url.QueryEscape(p.Region), q.Encode(),
	), nil
}
