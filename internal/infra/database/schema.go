package database

import (
	"context"
	"database/sql"
)

// The partial unique index on meta->>'eventId' is what makes webhook retries
// collapse into a single row. Absent eventId imposes no constraint.
const leadsSchema = `
CREATE TABLE IF NOT EXISTS leads (
	id         UUID PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	email      TEXT NOT NULL DEFAULT '',
	phone      TEXT NOT NULL DEFAULT '',
	message    TEXT NOT NULL DEFAULT '',
	source     TEXT NOT NULL DEFAULT 'tally',
	status     TEXT NOT NULL DEFAULT 'new',
	meta       JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS leads_event_id_uniq
	ON leads ((meta->>'eventId'))
	WHERE meta->>'eventId' IS NOT NULL;

CREATE INDEX IF NOT EXISTS leads_created_at_idx ON leads (created_at DESC);
`

// EnsureSchema creates the leads table and its indexes when missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, leadsSchema)
	return err
}
