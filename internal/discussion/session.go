package discussion

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/foxseedlab/touron/internal/config"
	"github.com/foxseedlab/touron/internal/repository"
	"github.com/foxseedlab/touron/internal/responder"
	"github.com/foxseedlab/touron/internal/synthesizer"
	"github.com/foxseedlab/touron/internal/webhook"
)

type Phase string

const (
	PhaseAwaitingOpening    Phase = "awaiting_opening"
	PhaseHumanSpeaking      Phase = "human_speaking"
	PhaseBotSpeaking        Phase = "bot_speaking"
	PhaseInterruptionWindow Phase = "interruption_window_open"
	PhaseTurnTransition     Phase = "turn_transition"
	PhaseEnding             Phase = "ending"
)

type Status string

const (
	StatusCreated Status = "created"
	StatusActive  Status = "active"
	StatusEnding  Status = "ending"
	StatusEnded   Status = "ended"
)

const (
	promptContextEntries    = 5
	minEntriesForConclusion = 10
	generationRetryBackoff  = 500 * time.Millisecond
	persistTimeout          = 5 * time.Second
	reportSendTimeout       = 15 * time.Second
)

// Session drives one group discussion: a human, a roster of AI personas and a
// moderator taking strictly ordered turns. All state lives behind mu; slow
// collaborator calls (generation, synthesis, feedback) run on goroutines
// outside the lock and re-validate the generation token before applying their
// results, so anything that arrives after an interruption or end is discarded.
type Session struct {
	cfg     *config.Config
	repo    repository.Repository
	resp    responder.Responder
	grader  responder.FeedbackGenerator
	synth   synthesizer.Synthesizer
	report  webhook.Sender
	sink    EventSink
	sampler PersonaSampler

	id      string
	humanID string

	mu         sync.Mutex
	topic      string
	status     Status
	phase      Phase
	speaker    Speaker
	human      Participant
	roster     []Participant
	transcript *TranscriptLog
	scheduler  *TurnScheduler
	timer      *WindowTimer

	genToken         uint64
	genPending       bool
	awaitingPlayback bool
	skipStreak       int

	createdAt   time.Time
	startedAt   time.Time
	endedAt     time.Time
	endReason   string
	paused      bool
	pausedAt    time.Time
	lastInbound time.Time
}

func newSession(cfg *config.Config, repo repository.Repository, resp responder.Responder, grader responder.FeedbackGenerator, synth synthesizer.Synthesizer, report webhook.Sender, sampler PersonaSampler, id, humanID string, sink EventSink) *Session {
	return &Session{
		cfg:        cfg,
		repo:       repo,
		resp:       resp,
		grader:     grader,
		synth:      synth,
		report:     report,
		sink:       sink,
		sampler:    sampler,
		id:         id,
		humanID:    humanID,
		status:     StatusCreated,
		phase:      PhaseAwaitingOpening,
		transcript: NewTranscriptLog(),
		timer:      NewWindowTimer(),
		createdAt:  time.Now(),
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) HumanID() string {
	return s.humanID
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Start opens the discussion: builds the roster, persists the session, posts
// the moderator's opening and hands the floor to the human.
func (s *Session) Start(ctx context.Context, topic string, botCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusCreated {
		return fmt.Errorf("session %s already started: %w", s.id, ErrSchedulingViolation)
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return fmt.Errorf("discussion topic: %w", ErrEmptyUtterance)
	}
	if botCount <= 0 {
		botCount = s.cfg.DefaultBotCount
	}

	personas := s.sampler(botCount)
	bots := make([]Participant, 0, len(personas))
	botNames := make([]string, 0, len(personas))
	for _, p := range personas {
		bot := BotParticipant(p)
		bots = append(bots, bot)
		botNames = append(botNames, bot.Name)
	}
	s.human = HumanParticipant(s.humanID, humanDisplayName)
	s.roster = append([]Participant{s.human}, bots...)
	s.scheduler = NewTurnScheduler(bots)
	s.topic = topic
	s.startedAt = time.Now()
	s.lastInbound = s.startedAt

	if err := s.persistCreateLocked(ctx); err != nil {
		return fmt.Errorf("persist session %s: %w", s.id, err)
	}

	s.status = StatusActive
	s.sink.Emit(SessionStartedEvent{SessionID: s.id, Topic: topic, Participants: s.roster})

	opening := s.transcript.Append(ModeratorSpeaker(), EntryKindModerator, moderatorOpening(topic, botNames), "")
	s.persistEntry(opening)
	s.sink.Emit(NewMessageEvent{SessionID: s.id, Entry: opening})

	s.phase = PhaseHumanSpeaking
	s.setSpeakerLocked(s.human.Speaker())
	slog.Info("discussion started", "session_id", s.id, "topic", topic, "bots", len(bots))
	return nil
}

// SubmitHumanUtterance appends the human's message and hands the floor to the
// next bot. During an open interruption window it doubles as an interruption;
// losing the race against window expiry rejects the message.
func (s *Session) SubmitHumanUtterance(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureActiveLocked(); err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyUtterance
	}
	switch s.phase {
	case PhaseHumanSpeaking:
	case PhaseInterruptionWindow:
		if !s.timer.Cancel() {
			return fmt.Errorf("interruption window already closed: %w", ErrSchedulingViolation)
		}
		s.phase = PhaseHumanSpeaking
	default:
		return fmt.Errorf("utterance in phase %s: %w", s.phase, ErrSchedulingViolation)
	}
	s.setSpeakerLocked(s.human.Speaker())
	s.skipStreak = 0

	entry := s.transcript.Append(s.human.Speaker(), EntryKindUtterance, text, "")
	s.persistEntry(entry)
	s.sink.Emit(NewMessageEvent{SessionID: s.id, Entry: entry})

	if reason, over := s.shouldEndLocked(); over {
		s.beginEndLocked(reason)
		return nil
	}
	s.scheduleNextBotLocked()
	return nil
}

// Interrupt claims the open interruption window for the human without a
// message; the floor changes hands and the human speaks next.
func (s *Session) Interrupt(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureActiveLocked(); err != nil {
		return err
	}
	if s.phase != PhaseInterruptionWindow {
		return fmt.Errorf("interrupt in phase %s: %w", s.phase, ErrSchedulingViolation)
	}
	if !s.timer.Cancel() {
		return fmt.Errorf("interruption window already closed: %w", ErrSchedulingViolation)
	}
	s.phase = PhaseHumanSpeaking
	s.setSpeakerLocked(s.human.Speaker())
	return nil
}

// PlaybackComplete is the client's signal that the bot's audio finished
// playing; it opens the interruption window.
func (s *Session) PlaybackComplete(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureActiveLocked(); err != nil {
		return err
	}
	if s.phase != PhaseBotSpeaking || !s.awaitingPlayback {
		return fmt.Errorf("playback complete in phase %s: %w", s.phase, ErrSchedulingViolation)
	}
	s.awaitingPlayback = false
	s.openInterruptionWindowLocked()
	return nil
}

// PassTurn lets the human decline to speak (or decline to interrupt); the next
// bot takes the floor.
func (s *Session) PassTurn(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureActiveLocked(); err != nil {
		return err
	}
	switch s.phase {
	case PhaseHumanSpeaking:
	case PhaseInterruptionWindow:
		if !s.timer.Cancel() {
			return fmt.Errorf("interruption window already closed: %w", ErrSchedulingViolation)
		}
	default:
		return fmt.Errorf("pass turn in phase %s: %w", s.phase, ErrSchedulingViolation)
	}
	s.scheduleNextBotLocked()
	return nil
}

// End finishes the discussion. Idempotent; feedback generation and persistence
// run on their own goroutine so the caller is never blocked on the grader.
func (s *Session) End(ctx context.Context, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusEnding || s.status == StatusEnded {
		return nil
	}
	s.beginEndLocked(reason)
	return nil
}

// EndRequested is End with the participant-initiated reason.
func (s *Session) EndRequested(ctx context.Context) error {
	return s.End(ctx, endReasonRequested)
}

// Pause is called when the human's connection drops. State is retained; any
// live timer is cancelled so the machine freezes until Resume or the registry's
// resume timeout.
func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusActive || s.paused {
		return
	}
	s.paused = true
	s.pausedAt = time.Now()
	s.timer.Cancel()
	slog.Info("session paused, awaiting reconnect", "session_id", s.id, "phase", string(s.phase))
}

// Resume re-attaches a reconnected human: replays the transcript, re-announces
// the current speaker and picks the machine back up where Pause froze it.
func (s *Session) Resume(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusEnding || s.status == StatusEnded {
		return fmt.Errorf("resume session %s: %w", s.id, ErrDiscussionOver)
	}
	if s.status != StatusActive {
		return fmt.Errorf("resume session %s before start: %w", s.id, ErrSchedulingViolation)
	}
	s.paused = false
	s.lastInbound = time.Now()

	s.sink.Emit(SessionStartedEvent{SessionID: s.id, Topic: s.topic, Participants: s.roster, Resumed: true})
	for _, e := range s.transcript.Snapshot() {
		s.sink.Emit(NewMessageEvent{SessionID: s.id, Entry: e})
	}
	s.sink.Emit(SpeakerChangeEvent{SessionID: s.id, Speaker: s.speaker})

	switch s.phase {
	case PhaseInterruptionWindow:
		// A fresh full window; the disconnected client missed the original.
		s.timer.Start(s.cfg.InterruptionWindow, TimerPurposeInterruptionWindow, s.onWindowExpired)
		s.sink.Emit(InterruptionWindowEvent{SessionID: s.id, Duration: s.cfg.InterruptionWindow})
	case PhaseBotSpeaking:
		if s.awaitingPlayback {
			// The audio element died with the old connection.
			s.awaitingPlayback = false
			s.armPlaybackGraceLocked()
		} else if !s.genPending {
			s.openInterruptionWindowLocked()
		}
	case PhaseTurnTransition:
		s.scheduleNextBotLocked()
	}
	slog.Info("session resumed", "session_id", s.id, "phase", string(s.phase))
	return nil
}

func (s *Session) ensureActiveLocked() error {
	switch s.status {
	case StatusActive:
	case StatusEnding, StatusEnded:
		return fmt.Errorf("session %s: %w", s.id, ErrDiscussionOver)
	default:
		return fmt.Errorf("session %s not started: %w", s.id, ErrSchedulingViolation)
	}
	s.lastInbound = time.Now()
	return nil
}

func (s *Session) setSpeakerLocked(sp Speaker) {
	if s.speaker.ID == sp.ID {
		return
	}
	s.speaker = sp
	s.sink.Emit(SpeakerChangeEvent{SessionID: s.id, Speaker: sp})
}

func (s *Session) scheduleNextBotLocked() {
	bot, ok := s.scheduler.Peek()
	if !ok {
		// Solo practice: the floor stays with the human.
		s.phase = PhaseHumanSpeaking
		s.setSpeakerLocked(s.human.Speaker())
		return
	}
	s.genToken++
	s.genPending = true
	s.awaitingPlayback = false
	req := s.utteranceRequestLocked(bot)
	s.phase = PhaseBotSpeaking
	s.setSpeakerLocked(bot.Speaker())
	go s.runBotTurn(bot, s.genToken, req)
}

func (s *Session) utteranceRequestLocked(bot Participant) responder.UtteranceRequest {
	return responder.UtteranceRequest{
		PersonaKey:    bot.Persona.Key,
		PersonaName:   bot.Name,
		PersonaPrompt: bot.Persona.Prompt,
		Topic:         s.topic,
		Transcript:    transcriptLines(s.transcript.Last(promptContextEntries)),
	}
}

func (s *Session) runBotTurn(bot Participant, token uint64, req responder.UtteranceRequest) {
	text, err := s.generateWithRetry(bot, req)
	if err != nil {
		s.skipBotTurn(bot, token, err)
		return
	}

	var audio []byte
	var audioRef string
	if s.synth != nil && s.cfg.SynthesisEnabled() && s.tokenValid(token) {
		sctx, cancel := context.WithTimeout(context.Background(), s.cfg.SynthesisTimeout)
		audio, err = s.synth.Synthesize(sctx, text)
		cancel()
		if err != nil {
			slog.Warn("speech synthesis failed, sending text only", "session_id", s.id, "speaker_id", bot.ID, "error", err)
			audio = nil
		} else {
			audioRef = uuid.NewString()
		}
	}
	s.completeBotTurn(bot, token, text, audio, audioRef)
}

func (s *Session) generateWithRetry(bot Participant, req responder.UtteranceRequest) (string, error) {
	text, err := s.generateOnce(req)
	if err == nil {
		return text, nil
	}
	slog.Warn("utterance generation failed, retrying once", "session_id", s.id, "speaker_id", bot.ID, "error", err)
	time.Sleep(generationRetryBackoff)
	text, err = s.generateOnce(req)
	if err != nil {
		return "", fmt.Errorf("generate utterance for %s: %w", bot.ID, err)
	}
	return text, nil
}

func (s *Session) generateOnce(req responder.UtteranceRequest) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.GenerationTimeout)
	defer cancel()
	text, err := s.resp.GenerateUtterance(ctx, req)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("model returned an empty utterance")
	}
	return text, nil
}

func (s *Session) tokenValid(token uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return token == s.genToken && s.status == StatusActive
}

func (s *Session) skipBotTurn(bot Participant, token uint64, cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.genToken || s.status != StatusActive {
		return
	}
	s.genPending = false
	slog.Warn("skipping bot turn after failed generation", "session_id", s.id, "speaker_id", bot.ID, "error", cause)
	s.scheduler.Advance()
	s.skipStreak++
	if s.skipStreak >= s.scheduler.Len() {
		// The whole rotation failed; give the floor back to the human rather
		// than hammering a dead service.
		s.skipStreak = 0
		s.phase = PhaseHumanSpeaking
		s.setSpeakerLocked(s.human.Speaker())
		return
	}
	if s.paused {
		s.phase = PhaseTurnTransition
		return
	}
	s.scheduleNextBotLocked()
}

func (s *Session) completeBotTurn(bot Participant, token uint64, text string, audio []byte, audioRef string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.genToken || s.status != StatusActive {
		slog.Debug("discarding stale bot utterance", "session_id", s.id, "speaker_id", bot.ID)
		return
	}
	s.genPending = false
	s.skipStreak = 0

	entry := s.transcript.Append(bot.Speaker(), EntryKindUtterance, text, audioRef)
	s.persistEntry(entry)
	s.scheduler.Advance()
	s.sink.Emit(NewMessageEvent{SessionID: s.id, Entry: entry, Audio: audio})

	if reason, over := s.shouldEndLocked(); over {
		s.beginEndLocked(reason)
		return
	}
	if s.paused {
		// Nobody is listening; Resume reopens the window over this entry.
		return
	}
	if audio != nil {
		s.awaitingPlayback = true
		return
	}
	s.armPlaybackGraceLocked()
}

func (s *Session) armPlaybackGraceLocked() {
	s.timer.Start(s.cfg.PlaybackGrace, TimerPurposePlaybackGrace, s.onPlaybackGraceExpired)
}

func (s *Session) onPlaybackGraceExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusActive || s.phase != PhaseBotSpeaking || s.paused {
		return
	}
	s.openInterruptionWindowLocked()
}

func (s *Session) openInterruptionWindowLocked() {
	s.phase = PhaseInterruptionWindow
	s.timer.Start(s.cfg.InterruptionWindow, TimerPurposeInterruptionWindow, s.onWindowExpired)
	s.sink.Emit(InterruptionWindowEvent{SessionID: s.id, Duration: s.cfg.InterruptionWindow})
}

func (s *Session) onWindowExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusActive || s.phase != PhaseInterruptionWindow || s.paused {
		return
	}
	s.scheduleNextBotLocked()
}

func (s *Session) shouldEndLocked() (string, bool) {
	if s.transcript.Len() >= s.cfg.MaxTranscriptEntries {
		return endReasonMaxEntries, true
	}
	if time.Since(s.startedAt) >= s.cfg.MaxDiscussionDuration {
		return endReasonTimeLimit, true
	}
	if s.naturalConclusionLocked() {
		return endReasonNaturalConclusion, true
	}
	return "", false
}

func (s *Session) naturalConclusionLocked() bool {
	if s.transcript.Len() < minEntriesForConclusion {
		return false
	}
	for _, e := range s.transcript.Last(3) {
		if soundsConclusive(e.Text) {
			return true
		}
	}
	return false
}

func (s *Session) beginEndLocked(reason string) {
	s.timer.Cancel()
	s.genToken++
	s.genPending = false
	s.awaitingPlayback = false
	s.status = StatusEnding
	s.phase = PhaseEnding
	s.endReason = reason
	slog.Info("ending discussion", "session_id", s.id, "reason", reason)
	go s.finalize(reason)
}

func (s *Session) finalize(reason string) {
	snapshot := s.transcript.Snapshot()
	report := s.gradeDiscussion(snapshot)

	s.mu.Lock()
	s.status = StatusEnded
	s.endedAt = time.Now()
	endedAt := s.endedAt
	s.mu.Unlock()

	s.persistCompletion(report, reason, len(snapshot), endedAt)
	s.sink.Emit(DiscussionEndedEvent{SessionID: s.id, Reason: reason, Feedback: report})
	s.sendReport(snapshot, report, endedAt)
	slog.Info("discussion ended", "session_id", s.id, "reason", reason, "entries", len(snapshot))
}

func (s *Session) gradeDiscussion(entries []Entry) responder.Report {
	humanCount := 0
	names := make([]string, 0, len(s.roster))
	for _, e := range entries {
		if e.Speaker.IsHuman() {
			humanCount++
		}
	}
	for _, p := range s.roster {
		names = append(names, p.Name)
	}
	if s.grader == nil || s.startedAt.IsZero() || len(entries) == 0 {
		return defaultReport(humanCount, len(entries))
	}

	req := responder.FeedbackRequest{
		Topic:            s.topic,
		HumanName:        s.human.Name,
		Transcript:       transcriptLines(entries),
		HumanUtterances:  humanCount,
		TotalUtterances:  len(entries),
		DurationMinutes:  int(time.Since(s.startedAt).Minutes()),
		ParticipantNames: names,
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.FeedbackTimeout)
	defer cancel()
	report, err := s.grader.GenerateFeedback(ctx, req)
	if err != nil {
		slog.Warn("feedback generation failed, using default scoring", "session_id", s.id, "error", err)
		return defaultReport(humanCount, len(entries))
	}
	return report
}

func (s *Session) persistCreateLocked(ctx context.Context) error {
	participants := make([]repository.ParticipantSnapshot, 0, len(s.roster))
	for _, p := range s.roster {
		participants = append(participants, repository.ParticipantSnapshot{
			ParticipantID: p.ID,
			DisplayName:   p.Name,
			Personality:   p.Persona.Key,
			IsHuman:       p.IsHuman(),
		})
	}
	cctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()
	_, err := s.repo.CreateSession(cctx, repository.CreateSessionInput{
		SessionID:    s.id,
		HumanID:      s.humanID,
		Topic:        s.topic,
		StartedAt:    s.startedAt,
		Participants: participants,
	})
	return err
}

func (s *Session) persistEntry(e Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.repo.InsertEntry(ctx, repository.InsertEntryInput{
		SessionID: s.id,
		Seq:       e.Seq,
		SpeakerID: e.Speaker.ID,
		Kind:      string(e.Kind),
		Content:   e.Text,
		AudioRef:  e.AudioRef,
		SpokenAt:  e.SpokenAt,
	}); err != nil {
		slog.Error("failed to persist transcript entry", "session_id", s.id, "seq", e.Seq, "error", err)
	}
}

func (s *Session) persistCompletion(report responder.Report, reason string, entryCount int, endedAt time.Time) {
	feedbackJSON, err := json.Marshal(report)
	if err != nil {
		slog.Error("failed to marshal feedback report", "session_id", s.id, "error", err)
		feedbackJSON = nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.repo.CompleteSession(ctx, repository.CompleteSessionInput{
		SessionID:    s.id,
		EndedAt:      endedAt,
		EndReason:    reason,
		EntryCount:   entryCount,
		FeedbackJSON: feedbackJSON,
	}); err != nil {
		slog.Error("failed to complete session in repository", "session_id", s.id, "error", err)
	}
}

func (s *Session) sendReport(entries []Entry, report responder.Report, endedAt time.Time) {
	if s.report == nil || s.cfg.ReportWebhookURL == "" {
		return
	}
	loc := safeLocation(s.cfg.ReportTimezone)
	body := buildDiscussionReport(s.topic, s.roster, s.startedAt, endedAt, s.cfg.ReportTimezone, loc, entries, report)
	filename := fmt.Sprintf("discussion-%s.txt", s.id)
	ctx, cancel := context.WithTimeout(context.Background(), reportSendTimeout)
	defer cancel()
	if err := s.report.SendReport(ctx, filename, body); err != nil {
		slog.Error("failed to send discussion report", "session_id", s.id, "error", err)
	}
}

func transcriptLines(entries []Entry) []responder.TranscriptLine {
	lines := make([]responder.TranscriptLine, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, responder.TranscriptLine{SpeakerName: e.Speaker.Name, Text: e.Text})
	}
	return lines
}

type janitorState struct {
	status      Status
	paused      bool
	pausedAt    time.Time
	lastInbound time.Time
	createdAt   time.Time
	endedAt     time.Time
}

func (s *Session) janitorView() janitorState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return janitorState{
		status:      s.status,
		paused:      s.paused,
		pausedAt:    s.pausedAt,
		lastInbound: s.lastInbound,
		createdAt:   s.createdAt,
		endedAt:     s.endedAt,
	}
}
