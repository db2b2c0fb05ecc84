package repository

import (
	"context"
	"time"
)

type ParticipantSnapshot struct {
	ParticipantID string
	DisplayName   string
	Personality   string
	IsHuman       bool
}

type CreateSessionInput struct {
	SessionID    string
	HumanID      string
	Topic        string
	StartedAt    time.Time
	Participants []ParticipantSnapshot
}

type CompleteSessionInput struct {
	SessionID    string
	EndedAt      time.Time
	EndReason    string
	EntryCount   int
	FeedbackJSON []byte
}

type InsertEntryInput struct {
	SessionID string
	Seq       int
	SpeakerID string
	Kind      string
	Content   string
	AudioRef  string
	SpokenAt  time.Time
}

type SessionRepository interface {
	CreateSession(ctx context.Context, input CreateSessionInput) (*Session, error)
	CompleteSession(ctx context.Context, input CompleteSessionInput) error
	GetSessionByID(ctx context.Context, sessionID string) (*Session, error)
	ListParticipantsBySessionID(ctx context.Context, sessionID string) ([]Participant, error)
}

type TranscriptRepository interface {
	InsertEntry(ctx context.Context, input InsertEntryInput) error
	ListEntriesBySessionID(ctx context.Context, sessionID string) ([]TranscriptEntry, error)
}

type Repository interface {
	SessionRepository
	TranscriptRepository
}
