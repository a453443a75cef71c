// Package config resolves database connection settings for the initializer
// Lambdas. Every setting is looked up through an ordered chain of sources:
// CloudFormation resource properties first, then top-level event fields,
// then environment variables, then SSM Parameter Store.
package config

import (
	"fmt"
	"strconv"

	"github.com/naqi324/librechat-cdk/lib/constants"
)

// Key names one setting across all sources.
type Key struct {
	Name string // resource property / event field name
	Env  string // environment variable
	SSM  string // full Parameter Store path, empty if not stored there
}

var (
	DBHost     = Key{Name: "DBHost", Env: "DB_HOST", SSM: constants.SSM_DB_HOST}
	DBPort     = Key{Name: "DBPort", Env: "DB_PORT", SSM: constants.SSM_DB_PORT}
	DBName     = Key{Name: "DBName", Env: "DB_NAME", SSM: constants.SSM_DB_NAME}
	SecretID   = Key{Name: "SecretId", Env: "DB_SECRET_ID", SSM: constants.SSM_DB_SECRET_ID}
	DBUser     = Key{Name: "DBUser", Env: "DB_USER", SSM: constants.SSM_DB_USER}
	DBPassword = Key{Name: "DBPassword", Env: "DB_PASSWORD", SSM: constants.SSM_DB_PASSWORD}
	SSLMode    = Key{Name: "SSLMode", Env: "SSL_MODE", SSM: constants.SSM_SSL_MODE}
	MaxRetries = Key{Name: "MaxRetries", Env: "MAX_RETRIES"}
	RetryDelay = Key{Name: "RetryDelay", Env: "RETRY_DELAY"}
)

// Source yields a value for a key, or reports that it has none.
type Source interface {
	Lookup(key Key) (string, bool)
}

// Properties looks up keys by their property name. Used for both
// ResourceProperties and the top-level event fields.
type Properties map[string]string

func (p Properties) Lookup(key Key) (string, bool) {
	v, ok := p[key.Name]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Environ adapts an os.Getenv-shaped function into a Source.
type Environ func(string) string

func (e Environ) Lookup(key Key) (string, bool) {
	if e == nil || key.Env == "" {
		return "", false
	}
	v := e(key.Env)
	if v == "" {
		return "", false
	}
	return v, true
}

// Parameters holds values loaded from SSM Parameter Store, keyed by full path.
type Parameters map[string]string

func (p Parameters) Lookup(key Key) (string, bool) {
	if key.SSM == "" {
		return "", false
	}
	v, ok := p[key.SSM]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Chain is an ordered list of sources, highest precedence first.
type Chain []Source

// Resolve returns the first value any source yields, or "".
func (c Chain) Resolve(key Key) string {
	for _, src := range c {
		if src == nil {
			continue
		}
		if v, ok := src.Lookup(key); ok {
			return v
		}
	}
	return ""
}

// ResolveDefault is Resolve with a fallback for unset keys.
func (c Chain) ResolveDefault(key Key, fallback string) string {
	if v := c.Resolve(key); v != "" {
		return v
	}
	return fallback
}

// ResolveInt parses the resolved value as an integer. Unset or unparseable
// values yield the fallback.
func (c Chain) ResolveInt(key Key, fallback int) int {
	v := c.Resolve(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// MissingKeyError reports a required setting that no source provided.
type MissingKeyError struct {
	Key Key
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("%s not provided: set the %s resource property or the %s environment variable", e.Key.Name, e.Key.Name, e.Key.Env)
}

// NotConfigured builds the error for a required setting that is absent.
func NotConfigured(key Key) error {
	return &MissingKeyError{Key: key}
}

// ConnectionSettings is the fully resolved set of parameters a handler needs
// to reach its database. Password may still be empty here when a SecretId is
// set; credential resolution fills it in afterwards.
type ConnectionSettings struct {
	Host     string
	Port     string
	Database string
	SecretID string
	User     string
	Password string
	SSLMode  string
}

// Defaults carries the per-handler fallback values for optional settings.
type Defaults struct {
	Port     string
	Database string
	User     string
	SSLMode  string
}

// Connection resolves all connection settings through the chain. A missing
// host is a configuration error; everything else falls back to defaults.
func (c Chain) Connection(defaults Defaults) (ConnectionSettings, error) {
	host := c.Resolve(DBHost)
	if host == "" {
		return ConnectionSettings{}, NotConfigured(DBHost)
	}
	return ConnectionSettings{
		Host:     host,
		Port:     c.ResolveDefault(DBPort, defaults.Port),
		Database: c.ResolveDefault(DBName, defaults.Database),
		SecretID: c.Resolve(SecretID),
		User:     c.ResolveDefault(DBUser, defaults.User),
		Password: c.Resolve(DBPassword),
		SSLMode:  c.ResolveDefault(SSLMode, defaults.SSLMode),
	}, nil
}
