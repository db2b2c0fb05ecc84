package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/foxseedlab/touron/internal/config"
	"github.com/foxseedlab/touron/internal/discussion"
	"github.com/foxseedlab/touron/internal/repository"
	"github.com/foxseedlab/touron/internal/responder"
	"github.com/foxseedlab/touron/internal/transcriber"
)

type fakeConn struct {
	mu   sync.Mutex
	sent []any
}

func (c *fakeConn) Send(event any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, event)
	return nil
}

func (c *fakeConn) Close() error {
	return nil
}

func (c *fakeConn) payloads() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]any, len(c.sent))
	copy(out, c.sent)
	return out
}

func payloadType(p any) string {
	switch v := p.(type) {
	case SessionStartedPayload:
		return v.Type
	case NewMessagePayload:
		return v.Type
	case SpeakerChangePayload:
		return v.Type
	case InterruptionWindowPayload:
		return v.Type
	case DiscussionEndedPayload:
		return v.Type
	case ErrorPayload:
		return v.Type
	}
	return ""
}

func (c *fakeConn) countOf(eventType string) int {
	n := 0
	for _, p := range c.payloads() {
		if payloadType(p) == eventType {
			n++
		}
	}
	return n
}

func (c *fakeConn) firstOf(eventType string) (any, bool) {
	for _, p := range c.payloads() {
		if payloadType(p) == eventType {
			return p, true
		}
	}
	return nil, false
}

func (c *fakeConn) lastError() (ErrorPayload, bool) {
	payloads := c.payloads()
	for i := len(payloads) - 1; i >= 0; i-- {
		if e, ok := payloads[i].(ErrorPayload); ok {
			return e, true
		}
	}
	return ErrorPayload{}, false
}

func (c *fakeConn) hasMessage(text string) bool {
	for _, p := range c.payloads() {
		if msg, ok := p.(NewMessagePayload); ok && msg.Message == text {
			return true
		}
	}
	return false
}

type stubRepository struct{}

func (stubRepository) CreateSession(_ context.Context, input repository.CreateSessionInput) (*repository.Session, error) {
	return &repository.Session{ID: input.SessionID}, nil
}

func (stubRepository) CompleteSession(_ context.Context, _ repository.CompleteSessionInput) error {
	return nil
}

func (stubRepository) GetSessionByID(_ context.Context, _ string) (*repository.Session, error) {
	return nil, nil
}

func (stubRepository) ListParticipantsBySessionID(_ context.Context, _ string) ([]repository.Participant, error) {
	return nil, nil
}

func (stubRepository) InsertEntry(_ context.Context, _ repository.InsertEntryInput) error {
	return nil
}

func (stubRepository) ListEntriesBySessionID(_ context.Context, _ string) ([]repository.TranscriptEntry, error) {
	return nil, nil
}

type stubResponder struct{}

func (stubResponder) GenerateUtterance(_ context.Context, _ responder.UtteranceRequest) (string, error) {
	return "Quite agreed.", nil
}

type stubGrader struct{}

func (stubGrader) GenerateFeedback(_ context.Context, _ responder.FeedbackRequest) (responder.Report, error) {
	return responder.Report{ParticipationScore: 61, OverallFeedback: "Good session."}, nil
}

type stubSender struct{}

func (stubSender) SendReport(_ context.Context, _ string, _ []byte) error {
	return nil
}

type stubTranscriber struct {
	text string
	err  error
}

func (s stubTranscriber) Transcribe(_ context.Context, _ []byte) (string, error) {
	return s.text, s.err
}

func routerConfig() *config.Config {
	return &config.Config{
		Env:                   "test",
		DefaultBotCount:       1,
		MaxConcurrentSessions: 8,
		MaxTranscriptEntries:  50,
		MaxDiscussionDuration: time.Hour,
		InterruptionWindow:    300 * time.Millisecond,
		PlaybackGrace:         25 * time.Millisecond,
		GenerationTimeout:     time.Second,
		SynthesisTimeout:      time.Second,
		TranscribeTimeout:     time.Second,
		FeedbackTimeout:       time.Second,
		SessionIdleTimeout:    time.Hour,
		ResumeTimeout:         time.Hour,
		EndedGracePeriod:      time.Hour,
		ReportTimezone:        "UTC",
	}
}

type routerFixture struct {
	registry *discussion.Registry
	router   *Router
}

func newTestRouter(t *testing.T, stt transcriber.Transcriber) *routerFixture {
	t.Helper()
	cfg := routerConfig()
	registry := discussion.NewRegistry(cfg, stubRepository{}, stubResponder{}, stubGrader{}, nil, stubSender{})
	f := &routerFixture{
		registry: registry,
		router:   NewRouter(cfg, registry, stt),
	}
	t.Cleanup(func() {
		f.registry.EndAllForShutdown(context.Background())
	})
	return f
}

func startEvent() InboundEvent {
	return InboundEvent{
		Type:      TypeStartDiscussion,
		SessionID: "s1",
		UserID:    "u1",
		Topic:     "Remote work",
		BotCount:  2,
	}
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool, message string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(message)
}

func TestDispatch_RejectsMissingSessionID(t *testing.T) {
	f := newTestRouter(t, stubTranscriber{})
	conn := &fakeConn{}

	f.router.Dispatch(conn, InboundEvent{Type: TypeStartDiscussion})

	errEv, ok := conn.lastError()
	if !ok || errEv.Message != "session_id is required" {
		t.Fatalf("unexpected error event: %+v (ok=%v)", errEv, ok)
	}
}

func TestDispatch_RejectsUnknownType(t *testing.T) {
	f := newTestRouter(t, stubTranscriber{})
	conn := &fakeConn{}

	f.router.Dispatch(conn, InboundEvent{Type: "bogus", SessionID: "s1"})

	errEv, ok := conn.lastError()
	if !ok || errEv.Message != `unknown event type "bogus"` {
		t.Fatalf("unexpected error event: %+v (ok=%v)", errEv, ok)
	}
	if errEv.SessionID != "s1" {
		t.Fatalf("error should echo the session id: %+v", errEv)
	}
}

func TestDispatch_UnknownSessionForNonStart(t *testing.T) {
	f := newTestRouter(t, stubTranscriber{})
	conn := &fakeConn{}

	f.router.Dispatch(conn, InboundEvent{Type: TypeUserMessage, SessionID: "ghost", Message: "hi"})

	errEv, ok := conn.lastError()
	if !ok || errEv.Message != "session not found" {
		t.Fatalf("unexpected error event: %+v (ok=%v)", errEv, ok)
	}
}

func TestDispatch_StartRequiresUserID(t *testing.T) {
	f := newTestRouter(t, stubTranscriber{})
	conn := &fakeConn{}

	ev := startEvent()
	ev.UserID = ""
	f.router.Dispatch(conn, ev)

	waitUntil(t, 2*time.Second, func() bool {
		errEv, ok := conn.lastError()
		return ok && errEv.Message == "user_id is required"
	}, "missing user_id was not rejected")
}

func TestDispatch_StartFlow(t *testing.T) {
	f := newTestRouter(t, stubTranscriber{})
	conn := &fakeConn{}

	f.router.Dispatch(conn, startEvent())

	waitUntil(t, 2*time.Second, func() bool { return conn.countOf(TypeSessionStarted) == 1 }, "session_started never arrived")
	p, _ := conn.firstOf(TypeSessionStarted)
	started := p.(SessionStartedPayload)
	if started.SessionID != "s1" || started.Topic != "Remote work" || started.Resumed {
		t.Fatalf("unexpected session_started payload: %+v", started)
	}
	if len(started.Participants) != 3 {
		t.Fatalf("unexpected participant count: %+v", started.Participants)
	}
	human := started.Participants[0]
	if !human.IsHuman || human.Personality != "human" {
		t.Fatalf("human participant should lead the roster: %+v", started.Participants)
	}

	waitUntil(t, 2*time.Second, func() bool { return conn.countOf(TypeNewMessage) >= 1 }, "moderator opening never arrived")
	mp, _ := conn.firstOf(TypeNewMessage)
	opening := mp.(NewMessagePayload)
	if opening.Seq != 0 || opening.SpeakerID != "moderator" || opening.TurnKind != "moderator" {
		t.Fatalf("unexpected opening payload: %+v", opening)
	}

	waitUntil(t, 2*time.Second, func() bool { return conn.countOf(TypeSpeakerChange) >= 1 }, "speaker_change never arrived")
}

func TestDispatch_UserMessageFlowsToSession(t *testing.T) {
	f := newTestRouter(t, stubTranscriber{})
	conn := &fakeConn{}
	f.router.Dispatch(conn, startEvent())
	waitUntil(t, 2*time.Second, func() bool { return conn.countOf(TypeSessionStarted) == 1 }, "session never started")

	f.router.Dispatch(conn, InboundEvent{Type: TypeUserMessage, SessionID: "s1", Message: "Hello everyone."})

	waitUntil(t, 2*time.Second, func() bool { return conn.hasMessage("Hello everyone.") }, "human message never echoed")
	waitUntil(t, 3*time.Second, func() bool { return conn.hasMessage("Quite agreed.") }, "bot reply never arrived")
}

func TestDispatch_PlaybackCompleteOutOfPhase(t *testing.T) {
	f := newTestRouter(t, stubTranscriber{})
	conn := &fakeConn{}
	f.router.Dispatch(conn, startEvent())
	waitUntil(t, 2*time.Second, func() bool { return conn.countOf(TypeSessionStarted) == 1 }, "session never started")

	f.router.Dispatch(conn, InboundEvent{Type: TypePlaybackComplete, SessionID: "s1"})

	waitUntil(t, 2*time.Second, func() bool {
		errEv, ok := conn.lastError()
		return ok && errEv.Message == "playback complete in phase human_speaking: event not allowed in current phase"
	}, "out-of-phase playback signal was not rejected")
}

func TestDispatch_AudioChunkEmptyPayload(t *testing.T) {
	f := newTestRouter(t, stubTranscriber{text: "unused"})
	conn := &fakeConn{}
	f.router.Dispatch(conn, startEvent())
	waitUntil(t, 2*time.Second, func() bool { return conn.countOf(TypeSessionStarted) == 1 }, "session never started")

	f.router.Dispatch(conn, InboundEvent{Type: TypeAudioChunk, SessionID: "s1"})

	waitUntil(t, 2*time.Second, func() bool {
		errEv, ok := conn.lastError()
		return ok && errEv.Message == "audio payload is empty"
	}, "empty audio was not rejected")
}

func TestDispatch_AudioChunkTranscriberFailure(t *testing.T) {
	f := newTestRouter(t, stubTranscriber{err: errors.New("stt down")})
	conn := &fakeConn{}
	f.router.Dispatch(conn, startEvent())
	waitUntil(t, 2*time.Second, func() bool { return conn.countOf(TypeSessionStarted) == 1 }, "session never started")

	f.router.Dispatch(conn, InboundEvent{Type: TypeAudioChunk, SessionID: "s1", Audio: []byte{1, 2, 3}})

	waitUntil(t, 2*time.Second, func() bool {
		errEv, ok := conn.lastError()
		return ok && errEv.Message == "could not transcribe audio, please try again"
	}, "failed transcription was not surfaced")

	// The turn state is untouched: only the moderator opening exists.
	time.Sleep(100 * time.Millisecond)
	if conn.countOf(TypeNewMessage) != 1 {
		t.Fatalf("failed transcription mutated the discussion: %d messages", conn.countOf(TypeNewMessage))
	}
}

func TestDispatch_AudioChunkNoSpeech(t *testing.T) {
	f := newTestRouter(t, stubTranscriber{text: "   "})
	conn := &fakeConn{}
	f.router.Dispatch(conn, startEvent())
	waitUntil(t, 2*time.Second, func() bool { return conn.countOf(TypeSessionStarted) == 1 }, "session never started")

	f.router.Dispatch(conn, InboundEvent{Type: TypeAudioChunk, SessionID: "s1", Audio: []byte{1, 2, 3}})

	waitUntil(t, 2*time.Second, func() bool {
		errEv, ok := conn.lastError()
		return ok && errEv.Message == "no speech recognized, please try again"
	}, "empty transcript was not surfaced")
}

func TestDispatch_AudioChunkTranscribed(t *testing.T) {
	f := newTestRouter(t, stubTranscriber{text: "Transcribed words."})
	conn := &fakeConn{}
	f.router.Dispatch(conn, startEvent())
	waitUntil(t, 2*time.Second, func() bool { return conn.countOf(TypeSessionStarted) == 1 }, "session never started")

	f.router.Dispatch(conn, InboundEvent{Type: TypeAudioChunk, SessionID: "s1", Audio: []byte{1, 2, 3}})

	waitUntil(t, 2*time.Second, func() bool { return conn.hasMessage("Transcribed words.") }, "transcribed utterance never appeared")
}

func TestDispatch_EndDiscussion(t *testing.T) {
	f := newTestRouter(t, stubTranscriber{})
	conn := &fakeConn{}
	f.router.Dispatch(conn, startEvent())
	waitUntil(t, 2*time.Second, func() bool { return conn.countOf(TypeSessionStarted) == 1 }, "session never started")

	f.router.Dispatch(conn, InboundEvent{Type: TypeEndDiscussion, SessionID: "s1"})

	waitUntil(t, 2*time.Second, func() bool { return conn.countOf(TypeDiscussionEnded) == 1 }, "discussion_ended never arrived")
	p, _ := conn.firstOf(TypeDiscussionEnded)
	ended := p.(DiscussionEndedPayload)
	if ended.Reason != "requested by participant" || ended.Feedback.ParticipationScore != 61 {
		t.Fatalf("unexpected discussion_ended payload: %+v", ended)
	}
}

func TestConnClosed_PausesAndResumeReplays(t *testing.T) {
	f := newTestRouter(t, stubTranscriber{})
	conn1 := &fakeConn{}
	f.router.Dispatch(conn1, startEvent())
	waitUntil(t, 2*time.Second, func() bool { return conn1.countOf(TypeSessionStarted) == 1 }, "session never started")

	f.router.ConnClosed(conn1)
	sess, ok := f.registry.Get("s1")
	if !ok {
		t.Fatal("session vanished on disconnect")
	}
	if sess.Status() != discussion.StatusActive {
		t.Fatalf("disconnect should keep the session alive: %s", sess.Status())
	}

	conn2 := &fakeConn{}
	f.router.Dispatch(conn2, startEvent())

	waitUntil(t, 2*time.Second, func() bool { return conn2.countOf(TypeSessionStarted) == 1 }, "resume never announced")
	p, _ := conn2.firstOf(TypeSessionStarted)
	if resumed := p.(SessionStartedPayload); !resumed.Resumed {
		t.Fatalf("second start should resume, not recreate: %+v", resumed)
	}
	waitUntil(t, 2*time.Second, func() bool { return conn2.countOf(TypeNewMessage) >= 1 }, "transcript was not replayed")
	mp, _ := conn2.firstOf(TypeNewMessage)
	if opening := mp.(NewMessagePayload); opening.Seq != 0 {
		t.Fatalf("replay should start from the opening: %+v", opening)
	}
}
