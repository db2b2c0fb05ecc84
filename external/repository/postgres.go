package repository

import (
	"context"
	"time"

	"github.com/foxseedlab/touron/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) repository.Repository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) CreateSession(ctx context.Context, input repository.CreateSessionInput) (*repository.Session, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx,
		`INSERT INTO discussion_sessions (id, human_id, topic, started_at, status)
		 VALUES ($1, $2, $3, $4, 'active')
		 RETURNING id, human_id, topic, status, end_reason, started_at, ended_at, entry_count, created_at, updated_at`,
		input.SessionID, input.HumanID, input.Topic, input.StartedAt)
	var s repository.Session
	var endedAt *time.Time
	err = row.Scan(&s.ID, &s.HumanID, &s.Topic, &s.Status, &s.EndReason, &s.StartedAt, &endedAt, &s.EntryCount, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.EndedAt = endedAt

	for _, p := range input.Participants {
		_, err = tx.Exec(ctx,
			`INSERT INTO discussion_participants (session_id, participant_id, display_name, personality, is_human)
			 VALUES ($1, $2, $3, $4, $5)`,
			s.ID, p.ParticipantID, p.DisplayName, p.Personality, p.IsHuman)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *PostgresRepository) CompleteSession(ctx context.Context, input repository.CompleteSessionInput) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE discussion_sessions
		 SET status = 'completed', end_reason = $2, ended_at = $3, entry_count = $4, feedback = $5, updated_at = NOW()
		 WHERE id = $1`,
		input.SessionID, input.EndReason, input.EndedAt, input.EntryCount, input.FeedbackJSON)
	return err
}

func (r *PostgresRepository) GetSessionByID(ctx context.Context, sessionID string) (*repository.Session, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, human_id, topic, status, end_reason, started_at, ended_at, feedback, entry_count, created_at, updated_at
		 FROM discussion_sessions WHERE id = $1`,
		sessionID)
	var s repository.Session
	var endedAt *time.Time
	err := row.Scan(&s.ID, &s.HumanID, &s.Topic, &s.Status, &s.EndReason, &s.StartedAt, &endedAt, &s.FeedbackJSON, &s.EntryCount, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	s.EndedAt = endedAt
	return &s, nil
}

func (r *PostgresRepository) ListParticipantsBySessionID(ctx context.Context, sessionID string) ([]repository.Participant, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT session_id, participant_id, display_name, personality, is_human
		 FROM discussion_participants WHERE session_id = $1
		 ORDER BY is_human DESC, participant_id ASC`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []repository.Participant
	for rows.Next() {
		var p repository.Participant
		if err := rows.Scan(&p.SessionID, &p.ParticipantID, &p.DisplayName, &p.Personality, &p.IsHuman); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (r *PostgresRepository) InsertEntry(ctx context.Context, input repository.InsertEntryInput) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO transcript_entries (session_id, seq, speaker_id, kind, content, audio_ref, spoken_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		input.SessionID, input.Seq, input.SpeakerID, input.Kind, input.Content, input.AudioRef, input.SpokenAt)
	return err
}

func (r *PostgresRepository) ListEntriesBySessionID(ctx context.Context, sessionID string) ([]repository.TranscriptEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, seq, speaker_id, kind, content, audio_ref, spoken_at, created_at
		 FROM transcript_entries WHERE session_id = $1 ORDER BY seq ASC`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []repository.TranscriptEntry
	for rows.Next() {
		var e repository.TranscriptEntry
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Seq, &e.SpeakerID, &e.Kind, &e.Content, &e.AudioRef, &e.SpokenAt, &e.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}
