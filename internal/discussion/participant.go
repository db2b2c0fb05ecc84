package discussion

type SpeakerKind string

const (
	SpeakerKindModerator SpeakerKind = "moderator"
	SpeakerKindHuman     SpeakerKind = "human"
	SpeakerKindBot       SpeakerKind = "bot"
)

const moderatorID = "moderator"

// Speaker identifies who produced an utterance. Construct through
// ModeratorSpeaker, HumanSpeaker or BotSpeaker; the zero value is not a valid
// speaker.
type Speaker struct {
	Kind    SpeakerKind
	ID      string
	Name    string
	Persona Persona
}

func ModeratorSpeaker() Speaker {
	return Speaker{Kind: SpeakerKindModerator, ID: moderatorID, Name: "Moderator"}
}

func HumanSpeaker(id, name string) Speaker {
	return Speaker{Kind: SpeakerKindHuman, ID: id, Name: name}
}

func BotSpeaker(p Persona) Speaker {
	return Speaker{Kind: SpeakerKindBot, ID: "bot_" + p.Key, Name: p.Name, Persona: p}
}

func (s Speaker) IsHuman() bool {
	return s.Kind == SpeakerKindHuman
}

func (s Speaker) IsBot() bool {
	return s.Kind == SpeakerKindBot
}

// Participant is a roster member. The roster is fixed once the discussion
// starts; the moderator is not part of it.
type Participant struct {
	ID      string
	Name    string
	Kind    SpeakerKind
	Persona Persona
}

func HumanParticipant(id, name string) Participant {
	return Participant{ID: id, Name: name, Kind: SpeakerKindHuman}
}

func BotParticipant(p Persona) Participant {
	sp := BotSpeaker(p)
	return Participant{ID: sp.ID, Name: sp.Name, Kind: SpeakerKindBot, Persona: p}
}

func (p Participant) Speaker() Speaker {
	if p.Kind == SpeakerKindBot {
		return BotSpeaker(p.Persona)
	}
	return HumanSpeaker(p.ID, p.Name)
}

func (p Participant) IsHuman() bool {
	return p.Kind == SpeakerKindHuman
}
