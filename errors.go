package recaptcha

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/berkan-cetinkaya/recaptcha/internal/verifier"
)

// Known siteverify error codes.
const (
	ErrorCodeMissingInputSecret   = verifier.CodeMissingInputSecret
	ErrorCodeInvalidInputSecret   = verifier.CodeInvalidInputSecret
	ErrorCodeMissingInputResponse = verifier.CodeMissingInputResponse
	ErrorCodeInvalidInputResponse = verifier.CodeInvalidInputResponse
	ErrorCodeBadRequest           = verifier.CodeBadRequest
	ErrorCodeTimeoutOrDuplicate   = verifier.CodeTimeoutOrDuplicate
)

// ConfigurationError reports invalid settings. It is only returned while
// settings are validated, never from a verify call.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("recaptcha: invalid setting %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// ServiceError means siteverify answered with a 2xx status but the body did not
// match the expected response schema.
type ServiceError struct {
	Err error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("recaptcha: could not parse verify response: %v", e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// VerifyError carries a provider response that contains error codes. Such a
// response never counts as a successful verification.
type VerifyError struct {
	Response *VerifyResponse
}

func (e *VerifyError) Error() string {
	return "recaptcha: verify response contains errors: " + strings.Join(e.Codes(), ", ")
}

// Codes returns the provider error codes.
func (e *VerifyError) Codes() []string {
	if e.Response == nil {
		return nil
	}
	return e.Response.ErrorCodes
}

// HasCode reports whether the provider returned code.
func (e *VerifyError) HasCode(code string) bool {
	for _, c := range e.Codes() {
		if c == code {
			return true
		}
	}
	return false
}

// ActionMismatchError means a v3 token passed siteverify but was issued for a
// different action than the one being verified.
type ActionMismatchError struct {
	Expected string
	Got      string
}

func (e *ActionMismatchError) Error() string {
	return fmt.Sprintf("recaptcha: action mismatch: expected '%s', got '%s'", e.Expected, e.Got)
}

func newConfigurationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &ConfigurationError{
			Field: fe.Field(),
			Err:   fmt.Errorf("failed on '%s' rule", fe.Tag()),
		}
	}
	return &ConfigurationError{Field: "settings", Err: err}
}
