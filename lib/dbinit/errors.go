package dbinit

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// AuthenticationError marks a credential failure. Retrying cannot fix bad
// credentials, so the polling loop treats it as permanent.
type AuthenticationError struct {
	Err error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("database authentication failed: %v", e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

const (
	mongoCodeIndexOptionsConflict  = 85
	mongoCodeIndexKeySpecsConflict = 86
	mongoCodeAuthenticationFailed  = 18
)

func isIndexAlreadyExists(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		if cmdErr.Code == mongoCodeIndexOptionsConflict || cmdErr.Code == mongoCodeIndexKeySpecsConflict {
			return true
		}
	}
	return strings.Contains(err.Error(), "already exists")
}

// IsMongoAuthError reports whether err is a DocumentDB credential failure.
func IsMongoAuthError(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code == mongoCodeAuthenticationFailed {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "authentication failed")
}

// IsPostgresAuthError reports whether err is in the invalid-authorization
// class (28xxx), covering bad passwords and unknown roles.
func IsPostgresAuthError(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code.Class() == "28"
}

// invalid_catalog_name: the target database does not exist yet.
func isMissingDatabase(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "3D000"
}

// duplicate_database: a concurrent invocation created it first.
func isDuplicateDatabase(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "42P04"
}
