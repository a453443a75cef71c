// Package secrets resolves database credentials from AWS Secrets Manager.
// The secret value must be a JSON object with at least "username" and
// "password" keys, which is the shape RDS and DocumentDB managed secrets use.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/smithy-go"
	"github.com/sirupsen/logrus"
)

// Kind classifies a secret lookup failure so callers can produce an
// actionable message.
type Kind int

const (
	KindUnknown Kind = iota
	KindAccessDenied
	KindNotFound
	KindMalformed
)

// LookupError is any failure to fetch or parse a secret. All variants carry
// the secret identifier so the message points at the misconfigured resource.
type LookupError struct {
	SecretID string
	Kind     Kind
	Err      error
}

func (e *LookupError) Error() string {
	switch e.Kind {
	case KindAccessDenied:
		return fmt.Sprintf("access denied to secret %s: check the Lambda IAM role permissions", e.SecretID)
	case KindNotFound:
		return fmt.Sprintf("secret %s not found: verify the secret exists", e.SecretID)
	case KindMalformed:
		return fmt.Sprintf("secret %s is not a JSON object with username/password keys: %v", e.SecretID, e.Err)
	default:
		return fmt.Sprintf("failed to retrieve secret %s: %v", e.SecretID, e.Err)
	}
}

func (e *LookupError) Unwrap() error { return e.Err }

// Credentials are the username/password pair stored in the secret. Username
// may be empty, in which case the caller falls back to its default user.
type Credentials struct {
	Username string
	Password string
}

// SecretsManagerAPI is the subset of the Secrets Manager client the store
// needs, narrow so tests can fake it.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Store fetches credentials from Secrets Manager.
type Store struct {
	Client SecretsManagerAPI
	Logger *logrus.Logger
}

func (s *Store) GetCredentials(ctx context.Context, secretID string) (Credentials, error) {
	output, err := s.Client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		lookupErr := classify(secretID, err)
		s.Logger.WithFields(logrus.Fields{
			"secret_id": secretID,
			"operation": "GetCredentials",
			"error":     lookupErr.Error(),
		}).Error("Error retrieving secret")
		return Credentials{}, lookupErr
	}

	if output.SecretString == nil || *output.SecretString == "" {
		return Credentials{}, &LookupError{
			SecretID: secretID,
			Kind:     KindMalformed,
			Err:      errors.New("secret string is empty"),
		}
	}

	var values map[string]string
	if err := json.Unmarshal([]byte(*output.SecretString), &values); err != nil {
		return Credentials{}, &LookupError{SecretID: secretID, Kind: KindMalformed, Err: err}
	}

	return Credentials{Username: values["username"], Password: values["password"]}, nil
}

func classify(secretID string, err error) *LookupError {
	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return &LookupError{SecretID: secretID, Kind: KindNotFound, Err: err}
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "AccessDeniedException" {
		return &LookupError{SecretID: secretID, Kind: KindAccessDenied, Err: err}
	}

	return &LookupError{SecretID: secretID, Kind: KindUnknown, Err: err}
}
