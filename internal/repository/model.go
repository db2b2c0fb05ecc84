package repository

import "time"

type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
)

type Session struct {
	ID           string
	HumanID      string
	Topic        string
	Status       SessionStatus
	EndReason    string
	StartedAt    time.Time
	EndedAt      *time.Time
	FeedbackJSON []byte
	EntryCount   int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Participant struct {
	SessionID     string
	ParticipantID string
	DisplayName   string
	Personality   string
	IsHuman       bool
}

type TranscriptEntry struct {
	ID        string
	SessionID string
	Seq       int
	SpeakerID string
	Kind      string
	Content   string
	AudioRef  string
	SpokenAt  time.Time
	CreatedAt time.Time
}
