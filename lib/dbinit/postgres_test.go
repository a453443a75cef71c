package dbinit

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

type fakeExecer struct {
	statements []string
	failOn     int // 1-based, 0 means never fail
}

func (f *fakeExecer) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	f.statements = append(f.statements, query)
	if f.failOn > 0 && len(f.statements) == f.failOn {
		return nil, errors.New("permission denied for schema public")
	}
	return nil, nil
}

func Test_RunVectorStoreDDL_Order(t *testing.T) {
	exec := &fakeExecer{}

	err := runVectorStoreDDL(context.Background(), exec)

	assert.NoError(t, err)
	assert.Len(t, exec.statements, 7)
	assert.Contains(t, exec.statements[0], "CREATE EXTENSION IF NOT EXISTS vector")
	assert.Contains(t, exec.statements[1], "CREATE TABLE IF NOT EXISTS embeddings")
	assert.Contains(t, exec.statements[1], "embedding vector(1536)")
	assert.Contains(t, exec.statements[2], "idx_embeddings_document_id")
	assert.Contains(t, exec.statements[3], "ivfflat")
	assert.Contains(t, exec.statements[3], "lists = 100")
	assert.Contains(t, exec.statements[4], "CREATE OR REPLACE FUNCTION update_updated_at_column")
	assert.Contains(t, exec.statements[5], "DROP TRIGGER IF EXISTS update_embeddings_updated_at")
	assert.Contains(t, exec.statements[6], "CREATE TRIGGER update_embeddings_updated_at")
}

func Test_RunVectorStoreDDL_StopsOnFirstError(t *testing.T) {
	exec := &fakeExecer{failOn: 2}

	err := runVectorStoreDDL(context.Background(), exec)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "statement 2")
	assert.Len(t, exec.statements, 2)
}

// adminRecorder captures the statements Connect runs against the admin
// database through a stub driver.
type adminRecorder struct {
	queries  []string
	execs    []string
	existing bool // the pg_database re-check finds the target database
	execErr  error
}

type stubConnector struct{ rec *adminRecorder }

func (c stubConnector) Connect(context.Context) (driver.Conn, error) {
	return &stubConn{rec: c.rec}, nil
}
func (c stubConnector) Driver() driver.Driver { return stubDriver{} }

type stubDriver struct{}

func (stubDriver) Open(string) (driver.Conn, error) { return nil, errors.New("use the connector") }

type stubConn struct{ rec *adminRecorder }

func (c *stubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not implemented") }
func (c *stubConn) Close() error                        { return nil }
func (c *stubConn) Begin() (driver.Tx, error)           { return nil, errors.New("not implemented") }

func (c *stubConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.rec.queries = append(c.rec.queries, query)
	rows := &datnameRows{}
	if c.rec.existing {
		rows.names = []string{args[0].Value.(string)}
	}
	return rows, nil
}

func (c *stubConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.rec.execs = append(c.rec.execs, query)
	if c.rec.execErr != nil {
		return nil, c.rec.execErr
	}
	return driver.RowsAffected(0), nil
}

type datnameRows struct{ names []string }

func (r *datnameRows) Columns() []string { return []string{"datname"} }
func (r *datnameRows) Close() error      { return nil }
func (r *datnameRows) Next(dest []driver.Value) error {
	if len(r.names) == 0 {
		return io.EOF
	}
	dest[0] = r.names[0]
	r.names = r.names[1:]
	return nil
}

// connectFixture drives PostgresInitializer.Connect with a fake Opener. The
// target database handle is a stub; opens records every open by name.
type connectFixture struct {
	rec        *adminRecorder
	target     *sql.DB
	opens      []string
	targetErrs []error // popped per open of the target database
}

func newConnectFixture() (*connectFixture, *PostgresInitializer) {
	f := &connectFixture{
		rec:    &adminRecorder{},
		target: sql.OpenDB(stubConnector{rec: &adminRecorder{}}),
	}
	initializer := &PostgresInitializer{
		Database: "librechat",
		Open: func(dbname string) (*sql.DB, error) {
			f.opens = append(f.opens, dbname)
			if dbname == "librechat" {
				if len(f.targetErrs) > 0 {
					err := f.targetErrs[0]
					f.targetErrs = f.targetErrs[1:]
					if err != nil {
						return nil, err
					}
				}
				return f.target, nil
			}
			return sql.OpenDB(stubConnector{rec: f.rec}), nil
		},
		Logger: logrus.New(),
	}
	return f, initializer
}

func Test_Connect_ReturnsExistingDatabase(t *testing.T) {
	f, initializer := newConnectFixture()

	db, err := initializer.Connect(context.Background())

	assert.NoError(t, err)
	assert.Same(t, f.target, db)
	assert.Equal(t, []string{"librechat"}, f.opens)
	assert.Empty(t, f.rec.execs)
}

func Test_Connect_CreatesMissingDatabase(t *testing.T) {
	f, initializer := newConnectFixture()
	f.targetErrs = []error{fmt.Errorf("failed to ping database: %w", &pq.Error{Code: "3D000"})}

	db, err := initializer.Connect(context.Background())

	assert.NoError(t, err)
	assert.Same(t, f.target, db)
	assert.Equal(t, []string{"librechat", "postgres", "librechat"}, f.opens)
	assert.Equal(t, []string{"SELECT datname FROM pg_database WHERE datname = $1"}, f.rec.queries)
	assert.Equal(t, []string{`CREATE DATABASE "librechat"`}, f.rec.execs)
}

func Test_Connect_RecheckFindsDatabaseCreatedByRacingInvocation(t *testing.T) {
	f, initializer := newConnectFixture()
	f.targetErrs = []error{fmt.Errorf("failed to ping database: %w", &pq.Error{Code: "3D000"})}
	f.rec.existing = true

	db, err := initializer.Connect(context.Background())

	assert.NoError(t, err)
	assert.Same(t, f.target, db)
	assert.Empty(t, f.rec.execs)
	assert.Equal(t, []string{"librechat", "postgres", "librechat"}, f.opens)
}

func Test_Connect_ToleratesDuplicateDatabase(t *testing.T) {
	f, initializer := newConnectFixture()
	f.targetErrs = []error{fmt.Errorf("failed to ping database: %w", &pq.Error{Code: "3D000"})}
	f.rec.execErr = &pq.Error{Code: "42P04"} // duplicate_database

	db, err := initializer.Connect(context.Background())

	assert.NoError(t, err)
	assert.Same(t, f.target, db)
}

func Test_Connect_CreateFailurePropagates(t *testing.T) {
	f, initializer := newConnectFixture()
	f.targetErrs = []error{fmt.Errorf("failed to ping database: %w", &pq.Error{Code: "3D000"})}
	f.rec.execErr = &pq.Error{Code: "42501"} // insufficient_privilege

	_, err := initializer.Connect(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create database librechat")
}

func Test_Connect_NonMissingDatabaseErrorsPropagate(t *testing.T) {
	f, initializer := newConnectFixture()
	authErr := fmt.Errorf("failed to ping database: %w", &pq.Error{Code: "28P01"})
	f.targetErrs = []error{authErr}

	_, err := initializer.Connect(context.Background())

	assert.ErrorIs(t, err, authErr)
	assert.Equal(t, []string{"librechat"}, f.opens)
}

func Test_IsPostgresAuthError(t *testing.T) {
	assert.True(t, IsPostgresAuthError(&pq.Error{Code: "28P01"})) // invalid_password
	assert.True(t, IsPostgresAuthError(&pq.Error{Code: "28000"})) // invalid_authorization_specification
	assert.True(t, IsPostgresAuthError(fmt.Errorf("failed to ping database: %w", &pq.Error{Code: "28P01"})))
	assert.False(t, IsPostgresAuthError(&pq.Error{Code: "3D000"}))
	assert.False(t, IsPostgresAuthError(errors.New("connection refused")))
}

func Test_IsMissingDatabase(t *testing.T) {
	assert.True(t, isMissingDatabase(&pq.Error{Code: "3D000"}))
	assert.True(t, isMissingDatabase(fmt.Errorf("failed to ping database: %w", &pq.Error{Code: "3D000"})))
	assert.False(t, isMissingDatabase(&pq.Error{Code: "28P01"}))
}

func Test_IsDuplicateDatabase(t *testing.T) {
	assert.True(t, isDuplicateDatabase(&pq.Error{Code: "42P04"}))
	assert.False(t, isDuplicateDatabase(&pq.Error{Code: "42P01"}))
}
