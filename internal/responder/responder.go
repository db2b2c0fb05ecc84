package responder

import "context"

// TranscriptLine is one utterance of discussion context passed to the language
// model, already resolved to display names.
type TranscriptLine struct {
	SpeakerName string
	Text        string
}

type UtteranceRequest struct {
	PersonaKey    string
	PersonaName   string
	PersonaPrompt string
	Topic         string
	// Transcript holds the most recent lines, oldest first.
	Transcript []TranscriptLine
}

// Responder produces the next utterance for an AI persona.
type Responder interface {
	GenerateUtterance(ctx context.Context, req UtteranceRequest) (string, error)
}

type FeedbackRequest struct {
	Topic            string
	HumanName        string
	Transcript       []TranscriptLine
	HumanUtterances  int
	TotalUtterances  int
	DurationMinutes  int
	ParticipantNames []string
}

// Report is the scored evaluation returned to the human when a discussion ends.
// Scores are 0-100.
type Report struct {
	ParticipationScore     int      `json:"participation_score"`
	InitiativeScore        int      `json:"initiative_score"`
	ClarityScore           int      `json:"clarity_score"`
	CollaborationScore     int      `json:"collaboration_score"`
	TopicUnderstanding     int      `json:"topic_understanding"`
	Strengths              []string `json:"strengths"`
	ImprovementSuggestions []string `json:"improvement_suggestions"`
	KeyContributions       []string `json:"key_contributions"`
	OverallFeedback        string   `json:"overall_feedback"`
}

// FeedbackGenerator scores the human's performance over the full transcript.
type FeedbackGenerator interface {
	GenerateFeedback(ctx context.Context, req FeedbackRequest) (Report, error)
}
