package discussion

import (
	"fmt"
	"strings"
	"time"

	"github.com/foxseedlab/touron/internal/responder"
)

const reportTimeLayout = "2006-01-02 15:04:05"

func buildDiscussionReport(topic string, roster []Participant, startedAt, endedAt time.Time, timezone string, loc *time.Location, entries []Entry, report responder.Report) []byte {
	names := make([]string, 0, len(roster))
	for _, p := range roster {
		names = append(names, p.Name)
	}

	startText := startedAt.In(loc).Format(reportTimeLayout)
	endText := endedAt.In(loc).Format(reportTimeLayout)

	lines := []string{
		fmt.Sprintf("Topic: %s", topic),
		fmt.Sprintf("Held: %s ~ %s (%s)", startText, endText, timezone),
		fmt.Sprintf("Participants: %s", strings.Join(names, ", ")),
		fmt.Sprintf("Entries: %d", len(entries)),
		"",
		"Transcript:",
	}
	for _, e := range entries {
		elapsed := e.SpokenAt.Sub(startedAt)
		if elapsed < 0 {
			elapsed = 0
		}
		lines = append(lines, fmt.Sprintf("%s %s: %s", formatElapsedHMS(elapsed), e.Speaker.Name, e.Text))
	}

	lines = append(lines,
		"",
		"Feedback:",
		fmt.Sprintf("Participation: %d/100", report.ParticipationScore),
		fmt.Sprintf("Initiative: %d/100", report.InitiativeScore),
		fmt.Sprintf("Clarity: %d/100", report.ClarityScore),
		fmt.Sprintf("Collaboration: %d/100", report.CollaborationScore),
		fmt.Sprintf("Topic understanding: %d/100", report.TopicUnderstanding),
	)
	if len(report.Strengths) > 0 {
		lines = append(lines, fmt.Sprintf("Strengths: %s", strings.Join(report.Strengths, " / ")))
	}
	if len(report.ImprovementSuggestions) > 0 {
		lines = append(lines, fmt.Sprintf("Suggestions: %s", strings.Join(report.ImprovementSuggestions, " / ")))
	}
	if report.OverallFeedback != "" {
		lines = append(lines, "", report.OverallFeedback)
	}
	return []byte(strings.Join(lines, "\n"))
}

func formatElapsedHMS(d time.Duration) string {
	total := int64(d / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func safeLocation(timezone string) *time.Location {
	loc, err := time.LoadLocation(timezone)
	if err != nil || loc == nil {
		return time.UTC
	}
	return loc
}
