package main

import (
	"context"
	"database/sql"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/naqi324/librechat-cdk/lib/cfnresource"
	"github.com/naqi324/librechat-cdk/lib/clients"
	"github.com/naqi324/librechat-cdk/lib/config"
	"github.com/naqi324/librechat-cdk/lib/constants"
	"github.com/naqi324/librechat-cdk/lib/dbinit"
	"github.com/naqi324/librechat-cdk/lib/retry"
	"github.com/naqi324/librechat-cdk/lib/secrets"
	"github.com/naqi324/librechat-cdk/lib/util"
)

const (
	probeTimeout      = 5 * time.Second
	defaultMaxRetries = 30
	defaultRetryDelay = 10 // seconds
	successMessage    = "PostgreSQL initialized successfully"
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
	probe       func(ctx context.Context, settings config.ConnectionSettings) error
	initialize  func(ctx context.Context, settings config.ConnectionSettings) error
	sleep       func(time.Duration)
}

func newInitHandler(logger *logrus.Logger, credentials credentialsGetter, params config.Parameters) *initHandler {
	h := &initHandler{
		logger:      logger,
		credentials: credentials,
		params:      params,
		getenv:      os.Getenv,
	}
	h.probe = probePostgres
	h.initialize = h.initializeDatabase
	return h
}

func (h *initHandler) create(ctx context.Context, event cfnresource.Event) (cfnresource.CreateResult, error) {
	chain := config.Chain{event.Properties(), event.Fields(), config.Environ(h.getenv), h.params}

	settings, err := chain.Connection(config.Defaults{
		Port:     constants.POSTGRES_DEFAULT_PORT,
		Database: constants.DEFAULT_DATABASE,
		User:     constants.POSTGRES_DEFAULT_USER,
		SSLMode:  constants.DEFAULT_SSL_MODE,
	})
	if err != nil {
		return cfnresource.CreateResult{}, err
	}

	// Without a secret there is nothing left that could supply a password,
	// so fail before touching the network at all.
	if settings.SecretID == "" && settings.Password == "" {
		return cfnresource.CreateResult{}, config.NotConfigured(config.DBPassword)
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
	err = policy.Wait(ctx, h.logger, "PostgreSQL", func(ctx context.Context) error {
		return h.probe(ctx, settings)
	})
	if err != nil {
		return cfnresource.CreateResult{}, err
	}

	if err := h.initialize(ctx, settings); err != nil {
		return cfnresource.CreateResult{}, err
	}

	return cfnresource.CreateResult{
		Host:       settings.Host,
		Database:   settings.Database,
		Message:    successMessage,
		Extensions: []string{"pgvector"},
	}, nil
}

// probePostgres connects to the admin database rather than the target one,
// which may not exist until initializeDatabase creates it.
func probePostgres(ctx context.Context, settings config.ConnectionSettings) error {
	db, err := clients.NewPostgresSQLClient(
		settings.Host, settings.Port, constants.ADMIN_DATABASE,
		settings.User, settings.Password, settings.SSLMode, probeTimeout,
	)
	if err != nil {
		if dbinit.IsPostgresAuthError(err) {
			return retry.Permanent(&dbinit.AuthenticationError{Err: err})
		}
		return err
	}
	defer db.Close()

	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return err
	}
	return nil
}

func (h *initHandler) initializeDatabase(ctx context.Context, settings config.ConnectionSettings) error {
	initializer := &dbinit.PostgresInitializer{
		Database: settings.Database,
		Open: func(dbname string) (*sql.DB, error) {
			return clients.NewPostgresSQLClient(
				settings.Host, settings.Port, dbname,
				settings.User, settings.Password, settings.SSLMode, 0,
			)
		},
		Logger: h.logger,
	}

	db, err := initializer.Connect(ctx)
	if err != nil {
		if dbinit.IsPostgresAuthError(err) {
			return &dbinit.AuthenticationError{Err: err}
		}
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			h.logger.WithFields(logrus.Fields{
				"operation": "initializeDatabase",
				"error":     err.Error(),
			}).Warn("Error closing PostgreSQL connection")
		}
	}()

	return initializer.InitVectorStore(ctx, db)
}
