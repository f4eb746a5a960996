// Package testsupport provides a pure-Go, in-memory substitute for the row
// store so repository logic can be exercised without a running Postgres.
// It is a schema subset, hand-kept in step with the production migrations
// for the tables a given test needs, not a full mirror of the Row Store
// Adapter's schema.
package testsupport

import (
	"testing"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// OpenSQLite opens a fresh in-memory database and fails the test immediately
// if the connection cannot be established.
func OpenSQLite(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite", ":memory:?_pragma=foreign_keys(1)")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

const webhookSchema = `
CREATE TABLE webhooks (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	session_id TEXT NOT NULL,
	webhook_type TEXT NOT NULL,
	url TEXT NOT NULL,
	success_webhook_url TEXT,
	failure_webhook_url TEXT,
	custom_payload TEXT NOT NULL DEFAULT '{}',
	headers TEXT NOT NULL DEFAULT '{}',
	max_retries INTEGER NOT NULL DEFAULT 3,
	retry_delay_seconds INTEGER NOT NULL DEFAULT 30,
	retry_on_failure INTEGER NOT NULL DEFAULT 1,
	is_active INTEGER NOT NULL DEFAULT 1,
	total_calls INTEGER NOT NULL DEFAULT 0,
	success_calls INTEGER NOT NULL DEFAULT 0,
	failed_calls INTEGER NOT NULL DEFAULT 0,
	last_called_at DATETIME,
	last_success_at DATETIME,
	last_failure_at DATETIME,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE webhook_logs (
	id TEXT PRIMARY KEY,
	webhook_id TEXT NOT NULL,
	event_type TEXT NOT NULL,
	payload TEXT NOT NULL DEFAULT '',
	response_status INTEGER NOT NULL DEFAULT 0,
	response_body TEXT NOT NULL DEFAULT '',
	success INTEGER NOT NULL DEFAULT 0,
	error_message TEXT NOT NULL DEFAULT '',
	attempt INTEGER NOT NULL DEFAULT 1,
	is_retry INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL
);
`

// SeedWebhookSchema creates the webhooks/webhook_logs tables used by the
// webhook repository tests.
func SeedWebhookSchema(t *testing.T, db *sqlx.DB) {
	t.Helper()
	if _, err := db.Exec(webhookSchema); err != nil {
		t.Fatalf("seed webhook schema: %v", err)
	}
}
