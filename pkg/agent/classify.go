package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	smithy "github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/incident-ops/quorum/pkg/models"
)

// InvocationError is a failure already classified into a canonical code.
// Errors raised inside the invoker carry their code directly; transport
// errors are classified by Classify.
type InvocationError struct {
	Code    models.ErrorCode
	Message string
	Err     error
}

func (e *InvocationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *InvocationError) Unwrap() error { return e.Err }

// NewInvocationError builds a classified error.
func NewInvocationError(code models.ErrorCode, message string, err error) *InvocationError {
	return &InvocationError{Code: code, Message: message, Err: err}
}

// Classify maps any invocation failure onto a canonical error code. Already
// classified errors keep their code; everything else is derived from the
// transport error chain. The code alone decides retryability.
func Classify(err error) models.ErrorCode {
	if err == nil {
		return ""
	}

	var invErr *InvocationError
	if errors.As(err, &invErr) {
		return invErr.Code
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return models.ErrCodeTimeout
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "TooManyRequestsException":
			return models.ErrCodeBedrockThrottling
		case "ServiceUnavailableException", "InternalServerException", "DependencyFailedException", "BadGatewayException":
			return models.ErrCodeDataSourceUnavailable
		case "AccessDeniedException":
			return models.ErrCodeInternalError
		case "ValidationException":
			return models.ErrCodeInvalidInput
		case "ResourceNotFoundException":
			return models.ErrCodeInternalError
		}
	}

	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		status := respErr.HTTPStatusCode()
		switch {
		case status == http.StatusTooManyRequests:
			return models.ErrCodeRateLimitExceeded
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			return models.ErrCodeInternalError
		case status >= http.StatusInternalServerError:
			return models.ErrCodeDataSourceUnavailable
		}
	}

	return models.ErrCodeUnknownError
}
