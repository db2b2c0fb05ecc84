package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrationStatements = []string{
	`DO $$ BEGIN CREATE TYPE discussion_status AS ENUM ('active', 'completed'); EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	`CREATE TABLE IF NOT EXISTS discussion_sessions (
		id TEXT PRIMARY KEY,
		human_id TEXT NOT NULL,
		topic TEXT NOT NULL,
		status discussion_status NOT NULL DEFAULT 'active',
		end_reason TEXT NOT NULL DEFAULT '',
		started_at TIMESTAMPTZ NOT NULL,
		ended_at TIMESTAMPTZ,
		feedback JSONB,
		entry_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_discussion_sessions_active ON discussion_sessions (human_id) WHERE status = 'active'`,
	`CREATE TABLE IF NOT EXISTS discussion_participants (
		session_id TEXT NOT NULL REFERENCES discussion_sessions(id) ON DELETE CASCADE,
		participant_id TEXT NOT NULL,
		display_name TEXT NOT NULL,
		personality TEXT NOT NULL,
		is_human BOOLEAN NOT NULL,
		PRIMARY KEY (session_id, participant_id)
	)`,
	`CREATE TABLE IF NOT EXISTS transcript_entries (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		session_id TEXT NOT NULL REFERENCES discussion_sessions(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		speaker_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		content TEXT NOT NULL,
		audio_ref TEXT NOT NULL DEFAULT '',
		spoken_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE(session_id, seq)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transcript_entries_session ON transcript_entries (session_id, seq)`,
}

func RunMigration(ctx context.Context, pool *pgxpool.Pool) error {
	for _, s := range migrationStatements {
		stmt := strings.TrimSpace(s)
		if stmt == "" {
			continue
		}
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
