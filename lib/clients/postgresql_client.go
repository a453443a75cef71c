package clients

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/naqi324/librechat-cdk/lib/constants"
)

// NewPostgresSQLClient opens a PostgreSQL connection with pooling sized for
// Lambda and validates it with a ping. The ping error is wrapped with %w so
// callers can classify driver errors such as a missing database.
func NewPostgresSQLClient(host, port, dbname, user, password, sslMode string, connectTimeout time.Duration) (*sql.DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s connect_timeout=%d",
		host, port, user, password, dbname, sslMode, int(connectTimeout.Seconds()),
	)

	db, err := sql.Open(constants.DRIVER_NAME, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	// Lambda-optimized connection settings
	db.SetMaxOpenConns(2) // Max 2 open connections for Lambda
	db.SetMaxIdleConns(1) // Keep 1 idle connection

	// Validate connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
