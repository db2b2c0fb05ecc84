package discussion

import (
	"sync"
	"time"
)

type EntryKind string

const (
	EntryKindModerator EntryKind = "moderator"
	EntryKindUtterance EntryKind = "utterance"
)

// Entry is one immutable line of the discussion transcript.
type Entry struct {
	Seq      int
	Speaker  Speaker
	Kind     EntryKind
	Text     string
	AudioRef string
	SpokenAt time.Time
}

// TranscriptLog is the append-only in-memory transcript of one session.
// Sequence numbers start at 0 and are assigned under the log's lock, so they
// are gapless and strictly increasing in append order.
type TranscriptLog struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewTranscriptLog() *TranscriptLog {
	return &TranscriptLog{}
}

func (l *TranscriptLog) Append(speaker Speaker, kind EntryKind, text, audioRef string) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := Entry{
		Seq:      len(l.entries),
		Speaker:  speaker,
		Kind:     kind,
		Text:     text,
		AudioRef: audioRef,
		SpokenAt: time.Now(),
	}
	l.entries = append(l.entries, e)
	return e
}

func (l *TranscriptLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Snapshot returns a copy of all entries in sequence order.
func (l *TranscriptLog) Snapshot() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Last returns a copy of the most recent n entries, oldest first.
func (l *TranscriptLog) Last(n int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n <= 0 {
		return nil
	}
	if n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]Entry, n)
	copy(out, l.entries[len(l.entries)-n:])
	return out
}
