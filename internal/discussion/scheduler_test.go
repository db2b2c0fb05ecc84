package discussion

import "testing"

func testBots(keys ...string) []Participant {
	bots := make([]Participant, 0, len(keys))
	for _, key := range keys {
		bots = append(bots, BotParticipant(Persona{Key: key, Name: key}))
	}
	return bots
}

func TestTurnScheduler_RoundRobin(t *testing.T) {
	s := NewTurnScheduler(testBots("supportive", "assertive", "factual"))

	first, ok := s.Peek()
	if !ok || first.ID != "bot_supportive" {
		t.Fatalf("unexpected first bot: %+v (ok=%v)", first, ok)
	}
	again, _ := s.Peek()
	if again.ID != first.ID {
		t.Fatalf("peek advanced the cursor: %s", again.ID)
	}

	s.Advance()
	second, _ := s.Peek()
	if second.ID != "bot_assertive" {
		t.Fatalf("unexpected second bot: %s", second.ID)
	}

	s.Advance()
	third, _ := s.Peek()
	if third.ID != "bot_factual" {
		t.Fatalf("unexpected third bot: %s", third.ID)
	}

	s.Advance()
	wrapped, _ := s.Peek()
	if wrapped.ID != "bot_supportive" || s.Cursor() != 0 {
		t.Fatalf("rotation did not wrap: bot=%s cursor=%d", wrapped.ID, s.Cursor())
	}
}

func TestTurnScheduler_Empty(t *testing.T) {
	s := NewTurnScheduler(nil)
	if _, ok := s.Peek(); ok {
		t.Fatal("expected no bot from an empty scheduler")
	}
	s.Advance()
	if s.Len() != 0 || s.Cursor() != 0 {
		t.Fatalf("empty scheduler mutated: len=%d cursor=%d", s.Len(), s.Cursor())
	}
}
