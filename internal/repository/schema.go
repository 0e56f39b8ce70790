package repository

import (
	"context"
)

// Schema for the three relations. Structured document fields (context,
// ui_schema, response_data, compensation_actions) are jsonb so they
// round-trip losslessly.
const schema = `
CREATE TABLE IF NOT EXISTS workflows (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	status          TEXT NOT NULL DEFAULT 'running',
	context         JSONB NOT NULL DEFAULT '{}',
	rollback_reason TEXT,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS approval_steps (
	id            TEXT PRIMARY KEY,
	workflow_id   TEXT NOT NULL REFERENCES workflows (id),
	step_name     TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'pending',
	assigned_to   TEXT,
	ui_schema     JSONB NOT NULL DEFAULT '{}',
	response_data JSONB NOT NULL DEFAULT '{}',
	requested_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	responded_at  TIMESTAMPTZ,
	timeout_at    TIMESTAMPTZ,
	channel       TEXT NOT NULL DEFAULT 'web'
);

CREATE INDEX IF NOT EXISTS idx_approval_steps_workflow ON approval_steps (workflow_id);
CREATE INDEX IF NOT EXISTS idx_approval_steps_expiry ON approval_steps (status, timeout_at);

CREATE TABLE IF NOT EXISTS workflow_rollbacks (
	id                    TEXT PRIMARY KEY,
	workflow_id           TEXT NOT NULL REFERENCES workflows (id),
	rolled_back_from_step TEXT NOT NULL,
	rolled_back_to_step   TEXT NOT NULL,
	reason                TEXT,
	rolled_back_by        TEXT,
	compensation_actions  JSONB NOT NULL DEFAULT '[]',
	created_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_workflow_rollbacks_workflow ON workflow_rollbacks (workflow_id);
`

// InitSchema creates the tables and indexes if they do not exist.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schema)
	return err
}
