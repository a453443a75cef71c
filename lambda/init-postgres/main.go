// Package main implements the CloudFormation custom resource that prepares
// the PostgreSQL instance for LibreChat's RAG pipeline.
//
// Invoked once while the stack is provisioning, the function:
//  1. Resolves connection settings from ResourceProperties, event fields,
//     environment variables, and SSM Parameter Store, in that order
//  2. Fetches credentials from Secrets Manager when a SecretId is configured
//  3. Polls the instance until it accepts connections
//  4. Creates the target database if missing, then the pgvector extension,
//     embeddings table, indexes, and updated_at trigger, all idempotently
//
// Delete and Update stack events perform no database work and always report
// success so they can never block a stack teardown.
package main

import (
	"context"
	"os"
	"strconv"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/sirupsen/logrus"

	"github.com/naqi324/librechat-cdk/lib/cfnresource"
	"github.com/naqi324/librechat-cdk/lib/clients"
	"github.com/naqi324/librechat-cdk/lib/config"
	"github.com/naqi324/librechat-cdk/lib/secrets"
	"github.com/naqi324/librechat-cdk/lib/util"
)

// Global variables for Lambda cold start optimization
var (
	logger  *logrus.Logger
	isLocal bool
	adapter *cfnresource.Adapter
)

func main() {
	lambda.Start(adapter.Handle)
}

func init() {
	isLocal, _ = strconv.ParseBool(os.Getenv("IS_LOCAL"))
	logger = util.NewLogger()
	logger.WithField("operation", "init").Info("Initializing PostgreSQL init Lambda")

	store := &secrets.Store{
		Client: clients.NewSecretsManagerClient(isLocal),
		Logger: logger,
	}

	// Parameter Store is the lowest-precedence config source; the function
	// still works from event and environment configuration without it.
	ssmSource := &config.SSMSource{SSM: clients.NewSSMClient(isLocal), Logger: logger}
	ssmParams, err := ssmSource.Load(context.TODO())
	if err != nil {
		logger.WithFields(logrus.Fields{
			"operation": "init",
			"error":     err.Error(),
		}).Warn("Parameter Store unavailable, continuing without it")
		ssmParams = nil
	}

	adapter = &cfnresource.Adapter{
		Logger:    logger,
		Service:   "PostgreSQL",
		IDPrefix:  "postgres-init",
		FailureID: "postgres-init-failed",
		Create:    newInitHandler(logger, store, ssmParams).create,
	}
}
