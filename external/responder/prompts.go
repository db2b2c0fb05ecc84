package responder

import (
	"fmt"
	"strings"

	"github.com/foxseedlab/touron/internal/responder"
)

const feedbackContextLines = 10

const utteranceSystemFormat = `%s

You are participating in a group discussion about: %q

Guidelines:
- Keep responses concise (2-3 sentences maximum)
- Build on previous points when relevant
- Stay true to your personality
- Be respectful but authentic to your character
- Don't repeat what others have already said well`

const utteranceUserFormat = `Recent discussion:
%s

Latest contribution: %s

Respond as %s with your %s personality. Add value to the discussion.`

const feedbackSystemPrompt = `You are an expert evaluator for group discussions. Analyze the participant's performance across multiple dimensions and provide constructive feedback.`

const feedbackUserFormat = `Group Discussion Analysis:

Topic: %s
Duration: %d minutes
Participants: %s
Total Messages: %d
User Messages: %d
Participation Rate: %.1f%%

User's Contributions:
%s

Full Discussion Context:
%s

Evaluate the user's performance and provide scores (0-100) for:
1. Participation Score - How actively they engaged
2. Initiative Score - How often they initiated new points
3. Clarity Score - How clear and well-structured their points were
4. Collaboration Score - How well they built on others' ideas
5. Topic Understanding - How well they understood and addressed the topic

Also provide:
- 2-3 key strengths
- 2-3 improvement suggestions
- 2-3 key contributions they made
- Overall feedback paragraph

Format as JSON:
{
    "participation_score": <score>,
    "initiative_score": <score>,
    "clarity_score": <score>,
    "collaboration_score": <score>,
    "topic_understanding": <score>,
    "strengths": ["strength1", "strength2"],
    "improvement_suggestions": ["suggestion1", "suggestion2"],
    "key_contributions": ["contribution1", "contribution2"],
    "overall_feedback": "detailed feedback paragraph"
}`

func buildUtterancePrompts(req responder.UtteranceRequest) (string, string) {
	system := fmt.Sprintf(utteranceSystemFormat, req.PersonaPrompt, req.Topic)

	latest := ""
	if len(req.Transcript) > 0 {
		latest = req.Transcript[len(req.Transcript)-1].Text
	}
	user := fmt.Sprintf(utteranceUserFormat,
		formatLines(req.Transcript),
		latest,
		req.PersonaName,
		req.PersonaKey,
	)
	return system, user
}

func buildFeedbackPrompts(req responder.FeedbackRequest) (string, string) {
	ratio := 0.0
	if req.TotalUtterances > 0 {
		ratio = float64(req.HumanUtterances) / float64(req.TotalUtterances) * 100
	}

	var contributions []string
	for _, line := range req.Transcript {
		if line.SpeakerName == req.HumanName {
			contributions = append(contributions, line.Text)
		}
	}

	recent := req.Transcript
	if len(recent) > feedbackContextLines {
		recent = recent[len(recent)-feedbackContextLines:]
	}

	user := fmt.Sprintf(feedbackUserFormat,
		req.Topic,
		req.DurationMinutes,
		strings.Join(req.ParticipantNames, ", "),
		req.TotalUtterances,
		req.HumanUtterances,
		ratio,
		strings.Join(contributions, " "),
		formatLines(recent),
	)
	return feedbackSystemPrompt, user
}

func formatLines(lines []responder.TranscriptLine) string {
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		parts = append(parts, fmt.Sprintf("%s: %s", line.SpeakerName, line.Text))
	}
	return strings.Join(parts, "\n")
}
