package discussion

// TurnScheduler hands out bot speaking turns round-robin. Peek never moves the
// cursor; Advance is called exactly once per completed bot turn (a spoken
// utterance or a skip after failed generation). A turn cut short by a human
// interruption was still completed, so the bot the cursor points at afterwards
// has not lost its place in the rotation.
//
// Not safe for concurrent use; the owning session serializes access.
type TurnScheduler struct {
	bots   []Participant
	cursor int
}

func NewTurnScheduler(bots []Participant) *TurnScheduler {
	return &TurnScheduler{bots: bots}
}

// Peek returns the bot whose turn is next. ok is false when there are no bots.
func (s *TurnScheduler) Peek() (Participant, bool) {
	if len(s.bots) == 0 {
		return Participant{}, false
	}
	return s.bots[s.cursor], true
}

func (s *TurnScheduler) Advance() {
	if len(s.bots) == 0 {
		return
	}
	s.cursor = (s.cursor + 1) % len(s.bots)
}

func (s *TurnScheduler) Cursor() int {
	return s.cursor
}

func (s *TurnScheduler) Len() int {
	return len(s.bots)
}
