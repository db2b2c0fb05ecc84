package discussion

import (
	"time"

	"github.com/foxseedlab/touron/internal/responder"
)

type EventKind string

const (
	EventKindSessionStarted     EventKind = "session_started"
	EventKindNewMessage         EventKind = "new_message"
	EventKindSpeakerChange      EventKind = "speaker_change"
	EventKindInterruptionWindow EventKind = "interruption_window_opened"
	EventKindDiscussionEnded    EventKind = "discussion_ended"
)

// Event is a state change announced by a session. The sink forwards events to
// whatever transport currently serves the session's human.
type Event interface {
	Kind() EventKind
}

type EventSink interface {
	Emit(ev Event)
}

type SessionStartedEvent struct {
	SessionID    string
	Topic        string
	Participants []Participant
	Resumed      bool
}

func (SessionStartedEvent) Kind() EventKind { return EventKindSessionStarted }

type NewMessageEvent struct {
	SessionID string
	Entry     Entry
	// Audio carries the synthesized speech for bot utterances; nil when
	// synthesis is disabled, failed, or the entry is replayed on resume.
	Audio []byte
}

func (NewMessageEvent) Kind() EventKind { return EventKindNewMessage }

type SpeakerChangeEvent struct {
	SessionID string
	Speaker   Speaker
}

func (SpeakerChangeEvent) Kind() EventKind { return EventKindSpeakerChange }

type InterruptionWindowEvent struct {
	SessionID string
	Duration  time.Duration
}

func (InterruptionWindowEvent) Kind() EventKind { return EventKindInterruptionWindow }

type DiscussionEndedEvent struct {
	SessionID string
	Reason    string
	Feedback  responder.Report
}

func (DiscussionEndedEvent) Kind() EventKind { return EventKindDiscussionEnded }
