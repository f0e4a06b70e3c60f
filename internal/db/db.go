// internal/db/db.go
package db

import (
    "database/sql"
    "fmt"

    _ "github.com/lib/pq"
)

// Open connects to Postgres and verifies the connection.
func Open(databaseURL string) (*sql.DB, error) {
    if databaseURL == "" {
        return nil, fmt.Errorf("database url is empty")
    }

    conn, err := sql.Open("postgres", databaseURL)
    if err != nil {
        return nil, fmt.Errorf("opening database: %w", err)
    }
    if err := conn.Ping(); err != nil {
        return nil, fmt.Errorf("pinging database: %w", err)
    }
    return conn, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS contacts (
    id         SERIAL PRIMARY KEY,
    name       TEXT NOT NULL DEFAULT '',
    phone      TEXT UNIQUE NOT NULL,
    consented  BOOLEAN NOT NULL DEFAULT FALSE,
    opted_out  BOOLEAN NOT NULL DEFAULT FALSE,
    tags       TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS campaigns (
    id               SERIAL PRIMARY KEY,
    name             TEXT NOT NULL,
    message_template TEXT NOT NULL,
    target_tag       TEXT NOT NULL DEFAULT '',
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    started_at       TIMESTAMPTZ,
    completed_at     TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS messages (
    id          SERIAL PRIMARY KEY,
    campaign_id INTEGER NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
    contact_id  INTEGER NOT NULL REFERENCES contacts(id),
    to_phone    TEXT NOT NULL,
    body        TEXT NOT NULL,
    status      TEXT NOT NULL DEFAULT 'queued',
    provider_id TEXT,
    error       TEXT,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    sent_at     TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_messages_status_created ON messages (status, created_at);
CREATE INDEX IF NOT EXISTS idx_messages_campaign ON messages (campaign_id);
CREATE INDEX IF NOT EXISTS idx_messages_contact_sent ON messages (contact_id, sent_at);

CREATE TABLE IF NOT EXISTS audit_log (
    id         SERIAL PRIMARY KEY,
    action     TEXT NOT NULL,
    meta       TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Migrate applies the schema. Statements are idempotent.
func Migrate(conn *sql.DB) error {
    if _, err := conn.Exec(schema); err != nil {
        return fmt.Errorf("applying schema: %w", err)
    }
    return nil
}
