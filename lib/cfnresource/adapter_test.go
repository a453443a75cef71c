package cfnresource

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/naqi324/librechat-cdk/lib/config"
	"github.com/naqi324/librechat-cdk/lib/dbinit"
	"github.com/naqi324/librechat-cdk/lib/retry"
	"github.com/naqi324/librechat-cdk/lib/secrets"
)

func newAdapter(create CreateFunc) *Adapter {
	return &Adapter{
		Logger:   logrus.New(),
		Service:  "DocumentDB",
		IDPrefix: "docdb-init",
		Create:   create,
	}
}

func Test_Handle_DeleteAlwaysSucceeds(t *testing.T) {
	adapter := newAdapter(func(ctx context.Context, event Event) (CreateResult, error) {
		t.Fatal("Create must not run for Delete events")
		return CreateResult{}, nil
	})

	response, err := adapter.Handle(context.Background(), Event{
		RequestType:        RequestDelete,
		PhysicalResourceID: "docdb-init-db.example-app",
	})

	assert.NoError(t, err)
	assert.Equal(t, "docdb-init-db.example-app", response.PhysicalResourceID)
	assert.Equal(t, "Delete completed successfully", response.Data["Message"])
}

func Test_Handle_DeleteWithoutPriorID(t *testing.T) {
	adapter := newAdapter(nil)

	response, err := adapter.Handle(context.Background(), Event{RequestType: RequestDelete})

	assert.NoError(t, err)
	assert.Equal(t, "docdb-init", response.PhysicalResourceID)
}

func Test_Handle_UpdateAlwaysSucceeds(t *testing.T) {
	adapter := newAdapter(func(ctx context.Context, event Event) (CreateResult, error) {
		return CreateResult{}, errors.New("must not run")
	})

	response, err := adapter.Handle(context.Background(), Event{RequestType: RequestUpdate, PhysicalResourceID: "prior-id"})

	assert.NoError(t, err)
	assert.Equal(t, "prior-id", response.PhysicalResourceID)
	assert.Equal(t, "Update completed successfully", response.Data["Message"])
}

func Test_Handle_CreateSuccess(t *testing.T) {
	adapter := newAdapter(func(ctx context.Context, event Event) (CreateResult, error) {
		return CreateResult{
			Host:        "db.example",
			Database:    "app",
			Message:     "DocumentDB initialized successfully",
			Collections: []string{"conversations", "users"},
		}, nil
	})

	response, err := adapter.Handle(context.Background(), Event{RequestType: RequestCreate})

	assert.NoError(t, err)
	assert.Equal(t, 200, response.StatusCode)
	assert.Equal(t, "docdb-init-db.example-app", response.PhysicalResourceID)
	assert.Equal(t, "DocumentDB initialized successfully", response.Data["Message"])

	var body map[string]any
	assert.NoError(t, json.Unmarshal([]byte(response.Body), &body))
	assert.Equal(t, "app", body["database"])
	assert.Equal(t, []any{"conversations", "users"}, body["collections"])
}

func Test_Handle_DirectInvocationOmitsResourceFields(t *testing.T) {
	adapter := newAdapter(func(ctx context.Context, event Event) (CreateResult, error) {
		return CreateResult{Host: "db.example", Database: "app", Message: "ok"}, nil
	})

	response, err := adapter.Handle(context.Background(), Event{})

	assert.NoError(t, err)
	assert.Equal(t, 200, response.StatusCode)
	assert.Empty(t, response.PhysicalResourceID)
	assert.Empty(t, response.Data)
}

func Test_Handle_DirectInvocationFailureOmitsResourceFields(t *testing.T) {
	adapter := newAdapter(func(ctx context.Context, event Event) (CreateResult, error) {
		return CreateResult{}, errors.New("boom")
	})
	adapter.FailureID = "docdb-init-failed"

	response, err := adapter.Handle(context.Background(), Event{})

	assert.Error(t, err)
	assert.Equal(t, 500, response.StatusCode)
	assert.Empty(t, response.PhysicalResourceID)
	assert.Empty(t, response.Reason)

	var body map[string]string
	assert.NoError(t, json.Unmarshal([]byte(response.Body), &body))
	assert.Equal(t, "boom", body["error"])
}

func Test_Handle_CreateFailure(t *testing.T) {
	createErr := errors.New("boom")
	adapter := newAdapter(func(ctx context.Context, event Event) (CreateResult, error) {
		return CreateResult{}, createErr
	})
	adapter.FailureID = "docdb-init-failed"

	response, err := adapter.Handle(context.Background(), Event{RequestType: RequestCreate})

	assert.ErrorIs(t, err, createErr)
	assert.Equal(t, 500, response.StatusCode)
	assert.Equal(t, "docdb-init-failed", response.PhysicalResourceID)
	assert.Equal(t, "boom", response.Reason)

	var body map[string]string
	assert.NoError(t, json.Unmarshal([]byte(response.Body), &body))
	assert.Equal(t, "boom", body["error"])
	assert.Equal(t, "InitializationError", body["error_type"])
}

func Test_Handle_CreateFailurePreservesAssignedID(t *testing.T) {
	adapter := newAdapter(func(ctx context.Context, event Event) (CreateResult, error) {
		return CreateResult{}, errors.New("boom")
	})

	response, err := adapter.Handle(context.Background(), Event{
		RequestType:        RequestCreate,
		PhysicalResourceID: "docdb-init-db.example-app",
	})

	assert.Error(t, err)
	assert.Equal(t, "docdb-init-db.example-app", response.PhysicalResourceID)
}

func Test_ErrorType(t *testing.T) {
	assert.Equal(t, "ConfigurationError", errorType(config.NotConfigured(config.DBPassword)))
	assert.Equal(t, "SecretLookupError", errorType(&secrets.LookupError{SecretID: "secret/db"}))
	assert.Equal(t, "AuthenticationError", errorType(&dbinit.AuthenticationError{Err: errors.New("bad password")}))
	assert.Equal(t, "RetryExhaustedError", errorType(&retry.ExhaustedError{Attempts: 3}))
	assert.Equal(t, "InitializationError", errorType(errors.New("boom")))
}

func Test_Event_Fields(t *testing.T) {
	event := Event{DBHost: "db.example", DBPort: "27017", SecretID: "secret/db"}

	fields := event.Fields()

	assert.Equal(t, config.Properties{
		"DBHost":   "db.example",
		"DBPort":   "27017",
		"SecretId": "secret/db",
	}, fields)
}
