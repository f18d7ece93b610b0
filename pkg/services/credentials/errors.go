package credentials

import "errors"

type Kind string

const (
	KindInvalidExternalID       Kind = "InvalidExternalId"
	KindBackendMisconfigured    Kind = "BackendMisconfigured"
	KindMalformedRoleIdentifier Kind = "MalformedRoleIdentifier"
	KindUnknownProviderError    Kind = "UnknownProviderError"
)

const (
	msgInvalidExternalID = "The External ID is incorrect. Please refresh the page to generate a new ID " +
		"and try the setup process again."
	msgBackendMisconfigured = "Access Denied. Please check the permissions of the application's backend user."
	msgMalformedRole        = "The Role ARN format is invalid. Please copy it again from the CloudFormation Outputs tab."
)

// Error is returned by Broker.Acquire. Message is safe to show to the
// customer; the first three kinds are fixable on their side.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) CallerFixable() bool {
	return e.Kind != KindUnknownProviderError
}

func IsKind(err error, kind Kind) bool {
	var credErr *Error
	if errors.As(err, &credErr) {
		return credErr.Kind == kind
	}
	return false
}
