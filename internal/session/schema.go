package session

import (
	"context"
	"database/sql"
	"fmt"
)

// EnsureSchema creates the session and message tables when they do not
// exist yet. Assumes the orion schema and companies table are already in
// place (see knowledge.EnsureSchema).
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS orion.orion_sessions (
			id UUID PRIMARY KEY,
			company_id UUID NOT NULL REFERENCES orion.orion_companies(id) ON DELETE CASCADE,
			user_ref TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'active',
			escalation_reason TEXT,
			confidence DOUBLE PRECISION NOT NULL DEFAULT 1.0,
			tone_confidence DOUBLE PRECISION NOT NULL DEFAULT 0.5,
			oos_streak INTEGER NOT NULL DEFAULT 0,
			bad_turns INTEGER NOT NULL DEFAULT 0,
			good_turns INTEGER NOT NULL DEFAULT 0,
			summary TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS orion_sessions_company_idx ON orion.orion_sessions (company_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS orion.orion_messages (
			id UUID PRIMARY KEY,
			session_id UUID NOT NULL REFERENCES orion.orion_sessions(id) ON DELETE CASCADE,
			sender TEXT NOT NULL,
			text TEXT NOT NULL,
			confidence DOUBLE PRECISION,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS orion_messages_session_idx ON orion.orion_messages (session_id, created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure session schema: %w", err)
		}
	}
	return nil
}
