package postgres

import (
	"os"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// Repository tests run against a real Postgres so the transactional
// behavior under test is the driver's, not a fake's. Point
// TEST_DATABASE_URL at a disposable database to enable them.
var testSchema = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id uuid PRIMARY KEY,
		name text NOT NULL,
		description text NOT NULL DEFAULT '',
		starts_at timestamptz NOT NULL,
		ends_at timestamptz NOT NULL,
		sender_email text NOT NULL DEFAULT '',
		subject_template text NOT NULL DEFAULT '',
		body_template text NOT NULL DEFAULT '',
		created_at timestamptz NOT NULL,
		updated_at timestamptz NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS invitations (
		id uuid PRIMARY KEY,
		event_id uuid NOT NULL,
		token text NOT NULL UNIQUE,
		method text NOT NULL,
		recipient text NOT NULL DEFAULT '',
		is_active boolean NOT NULL,
		created_at timestamptz NOT NULL,
		deactivated_at timestamptz,
		used_at timestamptz
	)`,
	`CREATE TABLE IF NOT EXISTS dispatch_records (
		id uuid PRIMARY KEY,
		event_id uuid NOT NULL,
		invitation_id uuid,
		operator_id uuid,
		recipient text NOT NULL DEFAULT '',
		subject text NOT NULL DEFAULT '',
		outcome text NOT NULL,
		error_message text NOT NULL DEFAULT '',
		created_at timestamptz NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS dispatch_settings (
		id integer PRIMARY KEY,
		smtp_enabled boolean NOT NULL,
		smtp_host text NOT NULL DEFAULT '',
		smtp_port integer NOT NULL DEFAULT 0,
		smtp_user text NOT NULL DEFAULT '',
		smtp_password text NOT NULL DEFAULT '',
		sender_email text NOT NULL DEFAULT '',
		hourly_ceiling integer NOT NULL DEFAULT 0,
		daily_ceiling integer NOT NULL DEFAULT 0,
		updated_at timestamptz NOT NULL
	)`,
}

func testDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	for _, stmt := range testSchema {
		db.MustExec(stmt)
	}
	return db
}

func countRows(t *testing.T, db *sqlx.DB, query string, args ...interface{}) int {
	t.Helper()

	var count int
	require.NoError(t, db.Get(&count, query, args...))
	return count
}
