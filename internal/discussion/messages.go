package discussion

import (
	"fmt"
	"strings"

	"github.com/foxseedlab/touron/internal/responder"
)

const (
	humanDisplayName = "You"

	moderatorOpeningFormat = `Welcome everyone to today's group discussion on: %q

We have %s and yourself participating today. This is an opportunity to share your perspectives, listen to different viewpoints, and engage in meaningful dialogue.

Feel free to jump in at any time with your thoughts. Let's begin with opening thoughts on this topic. Who would like to start?`

	endReasonRequested         = "requested by participant"
	endReasonMaxEntries        = "transcript limit reached"
	endReasonTimeLimit         = "time limit reached"
	endReasonNaturalConclusion = "discussion reached a natural conclusion"
	endReasonIdle              = "no activity from participant"
	endReasonResumeExpired     = "participant did not reconnect"
	endReasonShutdown          = "server shutting down"
)

func moderatorOpening(topic string, botNames []string) string {
	return fmt.Sprintf(moderatorOpeningFormat, topic, strings.Join(botNames, ", "))
}

// conclusivePhrases mark utterances that sound like wrap-ups; three recent
// entries containing one end the discussion naturally.
var conclusivePhrases = []string{
	"in conclusion",
	"to summarize",
	"overall",
	"in summary",
	"final thoughts",
	"to wrap up",
	"all things considered",
}

func soundsConclusive(text string) bool {
	lowered := strings.ToLower(text)
	for _, phrase := range conclusivePhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}

// defaultReport scores the human from the participation ratio alone, for when
// feedback generation fails. Base score is ratio*1.5 clamped to 40..85.
func defaultReport(humanUtterances, totalEntries int) responder.Report {
	ratio := 0.0
	if totalEntries > 0 {
		ratio = float64(humanUtterances) / float64(totalEntries) * 100
	}
	base := int(ratio * 1.5)
	if base < 40 {
		base = 40
	}
	if base > 85 {
		base = 85
	}
	return responder.Report{
		ParticipationScore: base,
		InitiativeScore:    base - 5,
		ClarityScore:       base + 5,
		CollaborationScore: base,
		TopicUnderstanding: base,
		Strengths: []string{
			"Engaged actively in the discussion",
			"Shared relevant perspectives",
			"Maintained respectful dialogue",
		},
		ImprovementSuggestions: []string{
			"Take more initiative in introducing new points",
			"Provide more specific examples to support arguments",
			"Build more explicitly on others' contributions",
		},
		KeyContributions: []string{
			"Participated in the discussion flow",
			"Added valuable perspectives to the topic",
			"Maintained professional communication",
		},
		OverallFeedback: fmt.Sprintf("You participated well in the group discussion with %d contributions. Your engagement level was good, and you demonstrated understanding of the topic. Focus on taking more initiative and providing concrete examples to strengthen your future group discussion performance.", humanUtterances),
	}
}
