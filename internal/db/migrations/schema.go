package migrations

// schema is the fixed, ordered DDL sequence for every table the Row Store
// Adapter addresses. whatsmeow's own tables (whatsmeow_device, etc.)
// are created separately by sqlstore.Container.Upgrade and are not listed
// here.
var schema = []migration{
	{1, "create_sessions", `
 CREATE TABLE IF NOT EXISTS sessions (
 id UUID PRIMARY KEY,
 session_id TEXT NOT NULL UNIQUE,
 user_id TEXT NOT NULL,
 phone_number TEXT,
 jid TEXT,
 status TEXT NOT NULL DEFAULT 'initializing',
 qr_code TEXT,
 last_activity TIMESTAMPTZ,
 created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
 updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
 last_connected_at TIMESTAMPTZ,
 metadata JSONB NOT NULL DEFAULT '{}'
 );
 CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id);
 CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);
	`},
	{2, "create_api_keys", `
 CREATE TABLE IF NOT EXISTS api_keys (
 id UUID PRIMARY KEY,
 key TEXT NOT NULL UNIQUE,
 secret TEXT NOT NULL,
 user_id TEXT NOT NULL,
 session_id TEXT NOT NULL,
 is_active BOOLEAN NOT NULL DEFAULT true,
 last_used_at TIMESTAMPTZ,
 usage_count BIGINT NOT NULL DEFAULT 0,
 created_at TIMESTAMPTZ NOT NULL DEFAULT now()
 );
 CREATE INDEX IF NOT EXISTS idx_api_keys_session_id ON api_keys(session_id);
	`},
	{3, "create_wallets", `
 CREATE TABLE IF NOT EXISTS wallets (
 id UUID PRIMARY KEY,
 user_id TEXT NOT NULL UNIQUE,
 balance BIGINT NOT NULL DEFAULT 0,
 created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
 updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
 );
 CREATE TABLE IF NOT EXISTS wallet_transactions (
 id UUID PRIMARY KEY,
 user_id TEXT NOT NULL,
 session_id TEXT,
 type TEXT NOT NULL,
 amount BIGINT NOT NULL,
 balance_before BIGINT NOT NULL,
 balance_after BIGINT NOT NULL,
 description TEXT NOT NULL DEFAULT '',
 reference_id TEXT NOT NULL,
 created_at TIMESTAMPTZ NOT NULL DEFAULT now()
 );
 CREATE INDEX IF NOT EXISTS idx_wallet_txn_user_id ON wallet_transactions(user_id, created_at DESC);
	`},
	{4, "create_subscriptions", `
 CREATE TABLE IF NOT EXISTS subscriptions (
 id UUID PRIMARY KEY,
 user_id TEXT NOT NULL UNIQUE,
 tier TEXT NOT NULL,
 messages_used INT NOT NULL DEFAULT 0,
 numbers_used INT NOT NULL DEFAULT 0,
 is_active BOOLEAN NOT NULL DEFAULT true,
 started_at TIMESTAMPTZ NOT NULL DEFAULT now(),
 expires_at TIMESTAMPTZ,
 created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
 updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
 );
 CREATE TABLE IF NOT EXISTS subscription_numbers (
 id UUID PRIMARY KEY,
 user_id TEXT NOT NULL,
 phone_number TEXT NOT NULL,
 created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
 UNIQUE (user_id, phone_number)
 );
	`},
	{5, "create_rate_limit_settings", `
 CREATE TABLE IF NOT EXISTS rate_limit_settings (
 user_id TEXT PRIMARY KEY,
 per_minute INT NOT NULL DEFAULT 10,
 per_hour INT NOT NULL DEFAULT 100,
 per_day INT NOT NULL DEFAULT 1000,
 updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
 );
	`},
	{6, "create_automation_logs", `
 CREATE TABLE IF NOT EXISTS automation_logs (
 id UUID PRIMARY KEY,
 user_id TEXT NOT NULL,
 session_id TEXT NOT NULL,
 type TEXT NOT NULL,
 recipients JSONB NOT NULL DEFAULT '[]',
 message TEXT NOT NULL DEFAULT '',
 status TEXT NOT NULL,
 error_detail JSONB NOT NULL DEFAULT '[]',
 created_at TIMESTAMPTZ NOT NULL DEFAULT now()
 );
 CREATE INDEX IF NOT EXISTS idx_automation_logs_user_created ON automation_logs(user_id, created_at DESC);
 CREATE INDEX IF NOT EXISTS idx_automation_logs_session ON automation_logs(session_id, created_at DESC);
	`},
	{7, "create_webhooks", `
 CREATE TABLE IF NOT EXISTS webhooks (
 id UUID PRIMARY KEY,
 user_id TEXT NOT NULL,
 session_id TEXT NOT NULL,
 webhook_type TEXT NOT NULL,
 url TEXT NOT NULL,
 success_webhook_url TEXT,
 failure_webhook_url TEXT,
 custom_payload JSONB NOT NULL DEFAULT '{}',
 headers JSONB NOT NULL DEFAULT '{}',
 max_retries INT NOT NULL DEFAULT 3,
 retry_delay_seconds INT NOT NULL DEFAULT 5,
 retry_on_failure BOOLEAN NOT NULL DEFAULT true,
 is_active BOOLEAN NOT NULL DEFAULT true,
 total_calls BIGINT NOT NULL DEFAULT 0,
 success_calls BIGINT NOT NULL DEFAULT 0,
 failed_calls BIGINT NOT NULL DEFAULT 0,
 last_called_at TIMESTAMPTZ,
 last_success_at TIMESTAMPTZ,
 last_failure_at TIMESTAMPTZ,
 created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
 updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
 UNIQUE (user_id, session_id, webhook_type)
 );
 CREATE TABLE IF NOT EXISTS webhook_logs (
 id UUID PRIMARY KEY,
 webhook_id UUID NOT NULL REFERENCES webhooks(id) ON DELETE CASCADE,
 event_type TEXT NOT NULL,
 payload TEXT NOT NULL,
 response_status INT NOT NULL DEFAULT 0,
 response_body TEXT NOT NULL DEFAULT '',
 success BOOLEAN NOT NULL,
 error_message TEXT NOT NULL DEFAULT '',
 attempt INT NOT NULL,
 is_retry BOOLEAN NOT NULL DEFAULT false,
 created_at TIMESTAMPTZ NOT NULL DEFAULT now()
 );
 CREATE INDEX IF NOT EXISTS idx_webhook_logs_webhook_id ON webhook_logs(webhook_id, created_at DESC);
	`},
	{8, "create_connection_events", `
 CREATE TABLE IF NOT EXISTS connection_events (
 id UUID PRIMARY KEY,
 session_id TEXT NOT NULL,
 user_id TEXT NOT NULL,
 type TEXT NOT NULL,
 details JSONB NOT NULL DEFAULT '{}',
 created_at TIMESTAMPTZ NOT NULL DEFAULT now()
 );
 CREATE INDEX IF NOT EXISTS idx_connection_events_session ON connection_events(session_id, created_at DESC);
	`},
	{9, "create_delivery_tracking", `
 CREATE TABLE IF NOT EXISTS delivery_tracking (
 id UUID PRIMARY KEY,
 session_id TEXT NOT NULL,
 message_id TEXT NOT NULL,
 recipient TEXT NOT NULL,
 status TEXT NOT NULL DEFAULT 'sent',
 sent_at TIMESTAMPTZ NOT NULL DEFAULT now(),
 delivered_at TIMESTAMPTZ,
 read_at TIMESTAMPTZ,
 UNIQUE (session_id, message_id)
 );
	`},
}
