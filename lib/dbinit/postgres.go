package dbinit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/naqi324/librechat-cdk/lib/constants"
)

// Opener connects to one database on the already-resolved server.
type Opener func(dbname string) (*sql.DB, error)

// PostgresInitializer prepares the pgvector store for RAG: the extension, the
// embeddings table, its indexes, and the updated_at trigger. It also creates
// the target database itself when the instance comes up without it.
type PostgresInitializer struct {
	Database string
	Open     Opener
	Logger   *logrus.Logger
}

// Connect opens the target database, creating it first if the connect fails
// because it does not exist. The caller owns the returned handle.
func (i *PostgresInitializer) Connect(ctx context.Context) (*sql.DB, error) {
	db, err := i.Open(i.Database)
	if err == nil {
		return db, nil
	}
	if !isMissingDatabase(err) {
		return nil, err
	}

	i.Logger.WithFields(logrus.Fields{
		"database":  i.Database,
		"operation": "Connect",
	}).Info("Target database does not exist, creating it")

	if err := i.createDatabase(ctx); err != nil {
		return nil, err
	}
	return i.Open(i.Database)
}

func (i *PostgresInitializer) createDatabase(ctx context.Context) error {
	admin, err := i.Open(constants.ADMIN_DATABASE)
	if err != nil {
		return fmt.Errorf("failed to connect to admin database: %w", err)
	}
	defer admin.Close()

	// Re-check before creating: another invocation may have won the race
	// between our failed connect and now.
	var name string
	err = admin.QueryRowContext(ctx, "SELECT datname FROM pg_database WHERE datname = $1", i.Database).Scan(&name)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("failed to check for database %s: %w", i.Database, err)
	}

	if _, err := admin.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(i.Database)); err != nil {
		if isDuplicateDatabase(err) {
			return nil
		}
		return fmt.Errorf("failed to create database %s: %w", i.Database, err)
	}

	i.Logger.WithField("database", i.Database).Info("Created database")
	return nil
}

// vectorStoreDDL runs in order inside one transaction. Every statement is
// idempotent; the trigger is dropped before being recreated because postgres
// has no CREATE TRIGGER IF NOT EXISTS.
var vectorStoreDDL = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,
	`CREATE TABLE IF NOT EXISTS embeddings (
		id SERIAL PRIMARY KEY,
		document_id VARCHAR(255) NOT NULL,
		chunk_index INTEGER NOT NULL,
		content TEXT NOT NULL,
		embedding vector(1536),
		metadata JSONB,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_embeddings_document_id
		ON embeddings (document_id)`,
	`CREATE INDEX IF NOT EXISTS idx_embeddings_embedding
		ON embeddings USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
	`CREATE OR REPLACE FUNCTION update_updated_at_column()
	RETURNS TRIGGER AS $$
	BEGIN
		NEW.updated_at = CURRENT_TIMESTAMP;
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS update_embeddings_updated_at ON embeddings`,
	`CREATE TRIGGER update_embeddings_updated_at
		BEFORE UPDATE ON embeddings
		FOR EACH ROW
		EXECUTE FUNCTION update_updated_at_column()`,
}

// InitVectorStore applies the vector store DDL atomically. Any failure rolls
// the whole transaction back.
func (i *PostgresInitializer) InitVectorStore(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := runVectorStoreDDL(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			i.Logger.WithFields(logrus.Fields{
				"operation": "InitVectorStore",
				"error":     rbErr.Error(),
			}).Warn("Rollback failed")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema changes: %w", err)
	}

	i.Logger.WithFields(logrus.Fields{
		"database":  i.Database,
		"operation": "InitVectorStore",
	}).Info("Embeddings table, indexes, and triggers created successfully")
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func runVectorStoreDDL(ctx context.Context, tx execer) error {
	for n, stmt := range vectorStoreDDL {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("vector store DDL statement %d failed: %w", n+1, err)
		}
	}
	return nil
}
