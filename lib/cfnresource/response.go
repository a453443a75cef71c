package cfnresource

import (
	"encoding/json"
	"errors"

	"github.com/naqi324/librechat-cdk/lib/config"
	"github.com/naqi324/librechat-cdk/lib/dbinit"
	"github.com/naqi324/librechat-cdk/lib/retry"
	"github.com/naqi324/librechat-cdk/lib/secrets"
)

// Response is the invocation result. StatusCode/Body mirror a direct
// invocation; PhysicalResourceId/Data/Reason are the custom-resource fields.
type Response struct {
	StatusCode         int               `json:"statusCode,omitempty"`
	Body               string            `json:"body,omitempty"`
	PhysicalResourceID string            `json:"PhysicalResourceId,omitempty"`
	Data               map[string]string `json:"Data,omitempty"`
	Reason             string            `json:"Reason,omitempty"`
}

type successBody struct {
	Message     string   `json:"message"`
	Database    string   `json:"database"`
	Collections []string `json:"collections,omitempty"`
	Extensions  []string `json:"extensions,omitempty"`
}

type errorBody struct {
	Error     string `json:"error"`
	ErrorType string `json:"error_type"`
}

func marshalBody(body any) string {
	encoded, err := json.Marshal(body)
	if err != nil {
		return "{}"
	}
	return string(encoded)
}

// errorType names the failure class for the response body and logs.
func errorType(err error) string {
	var missing *config.MissingKeyError
	if errors.As(err, &missing) {
		return "ConfigurationError"
	}
	var lookup *secrets.LookupError
	if errors.As(err, &lookup) {
		return "SecretLookupError"
	}
	var auth *dbinit.AuthenticationError
	if errors.As(err, &auth) {
		return "AuthenticationError"
	}
	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		return "RetryExhaustedError"
	}
	return "InitializationError"
}
