package app

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Error taxonomy. Validation errors are recoverable and reported with
// the violated rule; external service errors carry the provider's
// status code and are never retried here; configuration errors are
// fatal at the point of use and carry remediation guidance.

type ValidationError struct {
	Rule RuleViolation
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("booking rule violated: %s", e.Rule.Code)
}

type ExternalServiceError struct {
	Service    string
	StatusCode int
	Message    string
}

func (e *ExternalServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Service, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Service, e.Message)
}

type ConfigurationError struct {
	Key  string
	Hint string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing configuration %s: %s", e.Key, e.Hint)
}

// externalErr builds the typed provider failure, keeping the cause
// attached for verbose formatting.
func externalErr(service string, statusCode int, cause error) error {
	ee := &ExternalServiceError{Service: service, StatusCode: statusCode, Message: cause.Error()}
	return errors.WithSecondaryError(errors.WithStack(ee), cause)
}

// AsValidation extracts a *ValidationError from err's chain.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}

// AsExternal extracts an *ExternalServiceError from err's chain.
func AsExternal(err error) (*ExternalServiceError, bool) {
	var ee *ExternalServiceError
	ok := errors.As(err, &ee)
	return ee, ok
}
