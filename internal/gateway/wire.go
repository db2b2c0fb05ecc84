package gateway

import (
	"github.com/foxseedlab/touron/internal/discussion"
	"github.com/foxseedlab/touron/internal/responder"
)

// Inbound event types.
const (
	TypeStartDiscussion  = "start_discussion"
	TypeUserMessage      = "user_message"
	TypeAudioChunk       = "audio_chunk"
	TypeInterrupt        = "interrupt"
	TypePlaybackComplete = "playback_complete"
	TypePassTurn         = "pass_turn"
	TypeEndDiscussion    = "end_discussion"
)

// Outbound event types.
const (
	TypeSessionStarted     = "session_started"
	TypeNewMessage         = "new_message"
	TypeSpeakerChange      = "speaker_change"
	TypeInterruptionWindow = "start_interruption_window"
	TypeDiscussionEnded    = "discussion_ended"
	TypeError              = "error"
)

// InboundEvent is the flat JSON envelope read off a client connection. Type
// discriminates; unused fields stay empty.
type InboundEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id,omitempty"`
	Topic     string `json:"topic,omitempty"`
	BotCount  int    `json:"bot_count,omitempty"`
	Message   string `json:"message,omitempty"`
	Audio     []byte `json:"audio,omitempty"`
}

type ParticipantPayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Personality string `json:"personality"`
	IsHuman     bool   `json:"is_human"`
}

type SessionStartedPayload struct {
	Type         string               `json:"type"`
	SessionID    string               `json:"session_id"`
	Topic        string               `json:"topic"`
	Participants []ParticipantPayload `json:"participants"`
	Resumed      bool                 `json:"resumed,omitempty"`
}

type NewMessagePayload struct {
	Type        string `json:"type"`
	SessionID   string `json:"session_id"`
	Seq         int    `json:"seq"`
	SpeakerID   string `json:"speaker_id"`
	SpeakerName string `json:"speaker_name"`
	Message     string `json:"message"`
	TurnKind    string `json:"turn_kind"`
	Audio       []byte `json:"audio,omitempty"`
}

type SpeakerChangePayload struct {
	Type        string `json:"type"`
	SessionID   string `json:"session_id"`
	SpeakerID   string `json:"speaker_id"`
	SpeakerName string `json:"speaker_name"`
}

type InterruptionWindowPayload struct {
	Type            string  `json:"type"`
	SessionID       string  `json:"session_id"`
	DurationSeconds float64 `json:"duration_seconds"`
}

type DiscussionEndedPayload struct {
	Type      string           `json:"type"`
	SessionID string           `json:"session_id"`
	Reason    string           `json:"reason"`
	Feedback  responder.Report `json:"feedback"`
}

type ErrorPayload struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

func outboundFromDomain(ev discussion.Event) any {
	switch e := ev.(type) {
	case discussion.SessionStartedEvent:
		parts := make([]ParticipantPayload, 0, len(e.Participants))
		for _, p := range e.Participants {
			personality := p.Persona.Key
			if p.IsHuman() {
				personality = "human"
			}
			parts = append(parts, ParticipantPayload{
				ID:          p.ID,
				Name:        p.Name,
				Personality: personality,
				IsHuman:     p.IsHuman(),
			})
		}
		return SessionStartedPayload{
			Type:         TypeSessionStarted,
			SessionID:    e.SessionID,
			Topic:        e.Topic,
			Participants: parts,
			Resumed:      e.Resumed,
		}
	case discussion.NewMessageEvent:
		return NewMessagePayload{
			Type:        TypeNewMessage,
			SessionID:   e.SessionID,
			Seq:         e.Entry.Seq,
			SpeakerID:   e.Entry.Speaker.ID,
			SpeakerName: e.Entry.Speaker.Name,
			Message:     e.Entry.Text,
			TurnKind:    string(e.Entry.Kind),
			Audio:       e.Audio,
		}
	case discussion.SpeakerChangeEvent:
		return SpeakerChangePayload{
			Type:        TypeSpeakerChange,
			SessionID:   e.SessionID,
			SpeakerID:   e.Speaker.ID,
			SpeakerName: e.Speaker.Name,
		}
	case discussion.InterruptionWindowEvent:
		return InterruptionWindowPayload{
			Type:            TypeInterruptionWindow,
			SessionID:       e.SessionID,
			DurationSeconds: e.Duration.Seconds(),
		}
	case discussion.DiscussionEndedEvent:
		return DiscussionEndedPayload{
			Type:      TypeDiscussionEnded,
			SessionID: e.SessionID,
			Reason:    e.Reason,
			Feedback:  e.Feedback,
		}
	default:
		return nil
	}
}
