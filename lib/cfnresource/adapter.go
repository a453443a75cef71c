package cfnresource

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CreateResult is what a successful Create callback reports back.
type CreateResult struct {
	Host        string
	Database    string
	Message     string
	Collections []string
	Extensions  []string
}

// CreateFunc performs the actual database initialization.
type CreateFunc func(ctx context.Context, event Event) (CreateResult, error)

// Adapter runs the custom-resource lifecycle state machine for one
// initializer Lambda. Delete and Update never touch the database and never
// fail; Create does all the work.
type Adapter struct {
	Logger   *logrus.Logger
	Service  string // human-readable, e.g. "DocumentDB"
	IDPrefix string // physical resource id prefix, e.g. "docdb-init"
	// FailureID is the sentinel physical resource id reported when Create
	// fails before an id was assigned. Defaults to IDPrefix.
	FailureID string
	Create    CreateFunc
}

// Handle is the Lambda entry point, hooked up via lambda.Start.
func (a *Adapter) Handle(ctx context.Context, event Event) (Response, error) {
	log := a.Logger.WithFields(logrus.Fields{
		"correlation_id": uuid.New().String(),
		"service":        a.Service,
		"request_type":   event.RequestType,
		"operation":      "Handle",
	})
	log.Info("Received custom resource event")

	physicalID := event.PhysicalResourceID
	if physicalID == "" {
		physicalID = a.IDPrefix
	}

	switch event.RequestType {
	case RequestDelete, RequestUpdate:
		// Best effort only: nothing in this branch may block stack teardown.
		log.Info("No database action needed for this request type")
		return Response{
			PhysicalResourceID: physicalID,
			Data:               map[string]string{"Message": event.RequestType + " completed successfully"},
		}, nil
	}

	result, err := a.Create(ctx, event)
	if err != nil {
		failure := Response{
			StatusCode: http.StatusInternalServerError,
			Body:       marshalBody(errorBody{Error: err.Error(), ErrorType: errorType(err)}),
		}
		if event.RequestType != "" {
			failure.PhysicalResourceID = a.failureID(event)
			failure.Reason = err.Error()
		}
		log.WithFields(logrus.Fields{
			"error":                err.Error(),
			"error_type":           errorType(err),
			"physical_resource_id": failure.PhysicalResourceID,
		}).Error("Database initialization failed")
		return failure, err
	}

	response := Response{
		StatusCode: http.StatusOK,
		Body: marshalBody(successBody{
			Message:     result.Message,
			Database:    result.Database,
			Collections: result.Collections,
			Extensions:  result.Extensions,
		}),
	}
	if event.RequestType != "" {
		response.PhysicalResourceID = fmt.Sprintf("%s-%s-%s", a.IDPrefix, result.Host, result.Database)
		response.Data = map[string]string{"Message": result.Message}
	}

	log.WithFields(logrus.Fields{
		"database":             result.Database,
		"physical_resource_id": response.PhysicalResourceID,
	}).Info("Database initialization completed successfully")
	return response, nil
}

func (a *Adapter) failureID(event Event) string {
	if event.PhysicalResourceID != "" {
		return event.PhysicalResourceID
	}
	if a.FailureID != "" {
		return a.FailureID
	}
	return a.IDPrefix
}
