package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/foxseedlab/touron/internal/config"
	"github.com/foxseedlab/touron/internal/discussion"
	"github.com/foxseedlab/touron/internal/transcriber"
)

const workerQueueSize = 32

// Conn is one client connection. Send must be safe for concurrent use; the
// transport serializes writes.
type Conn interface {
	Send(event any) error
	Close() error
}

// Router bridges client connections and discussion sessions. Every session
// gets a FIFO worker goroutine, so events for one session are handled strictly
// in admission order while sessions stay independent of each other.
type Router struct {
	cfg      *config.Config
	registry *discussion.Registry
	stt      transcriber.Transcriber

	mu      sync.Mutex
	workers map[string]*sessionWorker
}

func NewRouter(cfg *config.Config, registry *discussion.Registry, stt transcriber.Transcriber) *Router {
	r := &Router{
		cfg:      cfg,
		registry: registry,
		stt:      stt,
		workers:  make(map[string]*sessionWorker),
	}
	registry.SetEvictHandler(r.handleEvicted)
	return r
}

type job struct {
	conn Conn
	ev   InboundEvent
}

type sessionWorker struct {
	sessionID string
	queue     chan job
	stop      chan struct{}
	stopOnce  sync.Once

	mu   sync.Mutex
	conn Conn
}

func newSessionWorker(sessionID string) *sessionWorker {
	return &sessionWorker{
		sessionID: sessionID,
		queue:     make(chan job, workerQueueSize),
		stop:      make(chan struct{}),
	}
}

func (w *sessionWorker) setConn(c Conn) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.conn = c
}

func (w *sessionWorker) currentConn() Conn {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn
}

func (w *sessionWorker) shutdown() {
	w.stopOnce.Do(func() { close(w.stop) })
}

// Emit implements discussion.EventSink: domain events flow to whatever
// connection currently serves the session's human. Send failures are logged
// and never propagate; a disconnected client recovers state on resume.
func (w *sessionWorker) Emit(ev discussion.Event) {
	c := w.currentConn()
	if c == nil {
		return
	}
	payload := outboundFromDomain(ev)
	if payload == nil {
		return
	}
	if err := c.Send(payload); err != nil {
		slog.Warn("failed to send event to client", "session_id", w.sessionID, "kind", string(ev.Kind()), "error", err)
	}
}

// Dispatch validates the envelope and queues it on the session's worker.
// start_discussion creates the worker; anything else for an unknown session is
// answered with an error event and touches nothing.
func (r *Router) Dispatch(conn Conn, ev InboundEvent) {
	if ev.SessionID == "" {
		r.sendError(conn, "", "session_id is required")
		return
	}
	if !knownInboundType(ev.Type) {
		r.sendError(conn, ev.SessionID, fmt.Sprintf("unknown event type %q", ev.Type))
		return
	}

	r.mu.Lock()
	w, ok := r.workers[ev.SessionID]
	if !ok {
		if ev.Type != TypeStartDiscussion {
			r.mu.Unlock()
			r.sendError(conn, ev.SessionID, "session not found")
			return
		}
		w = newSessionWorker(ev.SessionID)
		r.workers[ev.SessionID] = w
		go r.runWorker(w)
	}
	r.mu.Unlock()

	select {
	case w.queue <- job{conn: conn, ev: ev}:
	default:
		slog.Warn("session queue full, rejecting event", "session_id", ev.SessionID, "type", ev.Type)
		r.sendError(conn, ev.SessionID, "too many pending events, slow down")
	}
}

// ConnClosed pauses every session served by the dropped connection. Sessions
// survive; the registry force-ends them if the human never reconnects.
func (r *Router) ConnClosed(conn Conn) {
	r.mu.Lock()
	var affected []*sessionWorker
	for _, w := range r.workers {
		if w.currentConn() == conn {
			affected = append(affected, w)
		}
	}
	r.mu.Unlock()

	for _, w := range affected {
		w.setConn(nil)
		if sess, ok := r.registry.Get(w.sessionID); ok {
			sess.Pause()
		}
	}
}

func (r *Router) runWorker(w *sessionWorker) {
	for {
		select {
		case <-w.stop:
			return
		case j := <-w.queue:
			r.process(w, j)
		}
	}
}

func (r *Router) process(w *sessionWorker, j job) {
	ctx := context.Background()
	switch j.ev.Type {
	case TypeStartDiscussion:
		r.handleStart(ctx, w, j)
	case TypeUserMessage:
		r.withSession(j, func(sess *discussion.Session) error {
			return sess.SubmitHumanUtterance(ctx, j.ev.Message)
		})
	case TypeAudioChunk:
		r.handleAudioChunk(ctx, j)
	case TypeInterrupt:
		r.withSession(j, func(sess *discussion.Session) error {
			return sess.Interrupt(ctx)
		})
	case TypePlaybackComplete:
		r.withSession(j, func(sess *discussion.Session) error {
			return sess.PlaybackComplete(ctx)
		})
	case TypePassTurn:
		r.withSession(j, func(sess *discussion.Session) error {
			return sess.PassTurn(ctx)
		})
	case TypeEndDiscussion:
		r.withSession(j, func(sess *discussion.Session) error {
			return sess.EndRequested(ctx)
		})
	}
}

func (r *Router) handleStart(ctx context.Context, w *sessionWorker, j job) {
	ev := j.ev
	if ev.UserID == "" {
		r.sendError(j.conn, ev.SessionID, "user_id is required")
		return
	}
	sess, created, err := r.registry.GetOrCreate(ev.SessionID, ev.UserID, w)
	if err != nil {
		r.sendError(j.conn, ev.SessionID, err.Error())
		return
	}
	w.setConn(j.conn)
	if created {
		if err := sess.Start(ctx, ev.Topic, ev.BotCount); err != nil {
			r.sendError(j.conn, ev.SessionID, err.Error())
		}
		return
	}
	if err := sess.Resume(ctx); err != nil {
		r.sendError(j.conn, ev.SessionID, err.Error())
	}
}

// handleAudioChunk transcribes before touching the session, so a failed or
// empty transcription leaves the turn state exactly as it was.
func (r *Router) handleAudioChunk(ctx context.Context, j job) {
	if len(j.ev.Audio) == 0 {
		r.sendError(j.conn, j.ev.SessionID, "audio payload is empty")
		return
	}
	tctx, cancel := context.WithTimeout(ctx, r.cfg.TranscribeTimeout)
	text, err := r.stt.Transcribe(tctx, j.ev.Audio)
	cancel()
	if err != nil {
		slog.Warn("transcription failed", "session_id", j.ev.SessionID, "audio_bytes", len(j.ev.Audio), "error", err)
		r.sendError(j.conn, j.ev.SessionID, "could not transcribe audio, please try again")
		return
	}
	if strings.TrimSpace(text) == "" {
		r.sendError(j.conn, j.ev.SessionID, "no speech recognized, please try again")
		return
	}
	r.withSession(j, func(sess *discussion.Session) error {
		return sess.SubmitHumanUtterance(ctx, text)
	})
}

func (r *Router) withSession(j job, fn func(*discussion.Session) error) {
	sess, ok := r.registry.Get(j.ev.SessionID)
	if !ok {
		r.sendError(j.conn, j.ev.SessionID, "session not found")
		return
	}
	if err := fn(sess); err != nil {
		r.sendError(j.conn, j.ev.SessionID, err.Error())
	}
}

func (r *Router) sendError(conn Conn, sessionID, message string) {
	if conn == nil {
		return
	}
	payload := ErrorPayload{Type: TypeError, SessionID: sessionID, Message: message}
	if err := conn.Send(payload); err != nil {
		slog.Warn("failed to send error event", "session_id", sessionID, "error", err)
	}
}

func (r *Router) handleEvicted(sessionID string) {
	r.mu.Lock()
	w, ok := r.workers[sessionID]
	if ok {
		delete(r.workers, sessionID)
	}
	r.mu.Unlock()
	if ok {
		w.shutdown()
	}
}

func knownInboundType(t string) bool {
	switch t {
	case TypeStartDiscussion, TypeUserMessage, TypeAudioChunk, TypeInterrupt,
		TypePlaybackComplete, TypePassTurn, TypeEndDiscussion:
		return true
	}
	return false
}
