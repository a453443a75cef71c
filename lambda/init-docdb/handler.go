package main

import (
	"context"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/naqi324/librechat-cdk/lib/cfnresource"
	"github.com/naqi324/librechat-cdk/lib/clients"
	"github.com/naqi324/librechat-cdk/lib/config"
	"github.com/naqi324/librechat-cdk/lib/constants"
	"github.com/naqi324/librechat-cdk/lib/dbinit"
	"github.com/naqi324/librechat-cdk/lib/preflight"
	"github.com/naqi324/librechat-cdk/lib/retry"
	"github.com/naqi324/librechat-cdk/lib/secrets"
	"github.com/naqi324/librechat-cdk/lib/util"
)

const (
	probeTimeout       = 5 * time.Second
	defaultMaxRetries  = 60
	defaultRetryDelay  = 10 // seconds
	successMessage     = "DocumentDB initialized successfully"
	secretsManagerPort = "443"
)

type credentialsGetter interface {
	GetCredentials(ctx context.Context, secretID string) (secrets.Credentials, error)
}

// initHandler wires the create path together. Every collaborator is a field
// so tests can swap in fakes.
type initHandler struct {
	logger      *logrus.Logger
	credentials credentialsGetter
	params      config.Parameters
	getenv      func(string) string
	check       func(ctx context.Context, targets ...preflight.Target) error
	probe       func(ctx context.Context, settings config.ConnectionSettings) error
	initialize  func(ctx context.Context, settings config.ConnectionSettings) ([]string, error)
	sleep       func(time.Duration)
}

func newInitHandler(logger *logrus.Logger, credentials credentialsGetter, params config.Parameters) *initHandler {
	h := &initHandler{
		logger:      logger,
		credentials: credentials,
		params:      params,
		getenv:      os.Getenv,
	}
	h.check = (&preflight.Checker{Logger: logger}).Check
	h.probe = probeDocumentDB
	h.initialize = h.initializeDatabase
	return h
}

func (h *initHandler) create(ctx context.Context, event cfnresource.Event) (cfnresource.CreateResult, error) {
	chain := config.Chain{event.Properties(), event.Fields(), config.Environ(h.getenv), h.params}

	settings, err := chain.Connection(config.Defaults{
		Port:     constants.DOCDB_DEFAULT_PORT,
		Database: constants.DEFAULT_DATABASE,
		User:     constants.DOCDB_DEFAULT_USER,
	})
	if err != nil {
		return cfnresource.CreateResult{}, err
	}

	// Without a secret there is nothing left that could supply a password,
	// so fail before touching the network at all.
	if settings.SecretID == "" && settings.Password == "" {
		return cfnresource.CreateResult{}, config.NotConfigured(config.DBPassword)
	}

	targets := []preflight.Target{
		{Name: "DocumentDB", Host: settings.Host, Port: settings.Port},
	}
	if region := h.getenv("AWS_REGION"); settings.SecretID != "" && region != "" {
		targets = append(targets, preflight.Target{
			Name: "Secrets Manager",
			Host: "secretsmanager." + region + ".amazonaws.com",
			Port: secretsManagerPort,
		})
	}
	if err := h.check(ctx, targets...); err != nil {
		return cfnresource.CreateResult{}, err
	}

	if settings.SecretID != "" {
		creds, err := h.credentials.GetCredentials(ctx, settings.SecretID)
		if err != nil {
			return cfnresource.CreateResult{}, err
		}
		settings.User = util.FirstNonEmpty(creds.Username, settings.User)
		settings.Password = creds.Password
	}
	if settings.Password == "" {
		return cfnresource.CreateResult{}, config.NotConfigured(config.DBPassword)
	}

	policy := retry.Policy{
		MaxAttempts: chain.ResolveInt(config.MaxRetries, defaultMaxRetries),
		Delay:       time.Duration(chain.ResolveInt(config.RetryDelay, defaultRetryDelay)) * time.Second,
		Sleep:       h.sleep,
	}
	err = policy.Wait(ctx, h.logger, "DocumentDB", func(ctx context.Context) error {
		return h.probe(ctx, settings)
	})
	if err != nil {
		return cfnresource.CreateResult{}, err
	}

	collections, err := h.initialize(ctx, settings)
	if err != nil {
		return cfnresource.CreateResult{}, err
	}

	return cfnresource.CreateResult{
		Host:        settings.Host,
		Database:    settings.Database,
		Message:     successMessage,
		Collections: collections,
	}, nil
}

// probeDocumentDB opens a short-lived connection and pings it. The connection
// never outlives the probe.
func probeDocumentDB(ctx context.Context, settings config.ConnectionSettings) error {
	client, err := clients.NewDocumentDBClient(settings.Host, settings.Port, settings.User, settings.Password, probeTimeout)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		if dbinit.IsMongoAuthError(err) {
			return retry.Permanent(&dbinit.AuthenticationError{Err: err})
		}
		return err
	}
	return nil
}

func (h *initHandler) initializeDatabase(ctx context.Context, settings config.ConnectionSettings) ([]string, error) {
	client, err := clients.NewDocumentDBClient(settings.Host, settings.Port, settings.User, settings.Password, 0)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := client.Disconnect(ctx); err != nil {
			h.logger.WithFields(logrus.Fields{
				"operation": "initializeDatabase",
				"error":     err.Error(),
			}).Warn("Error closing DocumentDB connection")
		}
	}()

	initializer := &dbinit.DocDBInitializer{
		DB:     dbinit.NewMongoDatabase(client.Database(settings.Database)),
		Logger: h.logger,
	}
	return initializer.InitCollections(ctx)
}
