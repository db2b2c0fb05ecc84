package discussion

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/foxseedlab/touron/internal/config"
	"github.com/foxseedlab/touron/internal/repository"
	"github.com/foxseedlab/touron/internal/responder"
	"github.com/foxseedlab/touron/internal/synthesizer"
	"github.com/foxseedlab/touron/internal/webhook"
)

const (
	janitorInterval      = 5 * time.Second
	shutdownDrainTimeout = 10 * time.Second
	shutdownPollInterval = 100 * time.Millisecond
)

// Registry holds every live session, created lazily on the first
// start_discussion for an id. Its janitor reclaims sessions whose human never
// came back and evicts ended ones once their grace period passes.
type Registry struct {
	cfg     *config.Config
	repo    repository.Repository
	resp    responder.Responder
	grader  responder.FeedbackGenerator
	synth   synthesizer.Synthesizer
	report  webhook.Sender
	sampler PersonaSampler

	mu       sync.Mutex
	sessions map[string]*Session
	onEvict  func(sessionID string)
}

func NewRegistry(cfg *config.Config, repo repository.Repository, resp responder.Responder, grader responder.FeedbackGenerator, synth synthesizer.Synthesizer, report webhook.Sender) *Registry {
	return &Registry{
		cfg:      cfg,
		repo:     repo,
		resp:     resp,
		grader:   grader,
		synth:    synth,
		report:   report,
		sampler:  SamplePersonas,
		sessions: make(map[string]*Session),
	}
}

// SetEvictHandler registers a callback run after a session leaves the
// registry, outside the registry lock.
func (r *Registry) SetEvictHandler(fn func(sessionID string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onEvict = fn
}

// GetOrCreate returns the session for id, creating it when absent. The first
// caller's user id owns the session slot; other user ids are rejected.
func (r *Registry) GetOrCreate(id, humanID string, sink EventSink) (*Session, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sess, ok := r.sessions[id]; ok {
		if sess.humanID != humanID {
			return nil, false, fmt.Errorf("session %s: %w", id, ErrSessionOwned)
		}
		return sess, false, nil
	}
	if len(r.sessions) >= r.cfg.MaxConcurrentSessions {
		return nil, false, fmt.Errorf("%d active sessions: %w", len(r.sessions), ErrResourceExhausted)
	}
	sess := newSession(r.cfg, r.repo, r.resp, r.grader, r.synth, r.report, r.sampler, id, humanID, sink)
	r.sessions[id] = sess
	slog.Info("session registered", "session_id", id, "user_id", humanID, "active_sessions", len(r.sessions))
	return sess, true, nil
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	return sess, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// RunJanitor periodically sweeps until ctx is cancelled.
func (r *Registry) RunJanitor(ctx context.Context) {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(time.Now())
		}
	}
}

func (r *Registry) sweep(now time.Time) {
	type pendingEnd struct {
		sess   *Session
		reason string
	}
	var toEnd []pendingEnd
	var toEvict []string

	r.mu.Lock()
	for id, sess := range r.sessions {
		v := sess.janitorView()
		switch {
		case v.status == StatusEnded && now.Sub(v.endedAt) >= r.cfg.EndedGracePeriod:
			toEvict = append(toEvict, id)
		case v.status == StatusCreated && now.Sub(v.createdAt) >= r.cfg.SessionIdleTimeout:
			toEvict = append(toEvict, id)
		case v.status == StatusActive && v.paused && now.Sub(v.pausedAt) >= r.cfg.ResumeTimeout:
			toEnd = append(toEnd, pendingEnd{sess: sess, reason: endReasonResumeExpired})
		case v.status == StatusActive && !v.paused && now.Sub(v.lastInbound) >= r.cfg.SessionIdleTimeout:
			toEnd = append(toEnd, pendingEnd{sess: sess, reason: endReasonIdle})
		}
	}
	for _, id := range toEvict {
		delete(r.sessions, id)
	}
	onEvict := r.onEvict
	r.mu.Unlock()

	for _, p := range toEnd {
		slog.Info("janitor ending session", "session_id", p.sess.ID(), "reason", p.reason)
		_ = p.sess.End(context.Background(), p.reason)
	}
	for _, id := range toEvict {
		slog.Info("janitor evicted session", "session_id", id)
		if onEvict != nil {
			onEvict(id)
		}
	}
}

// EndAll ends every session and waits briefly for finalization, for graceful
// shutdown.
func (r *Registry) EndAll(ctx context.Context, reason string) {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		sessions = append(sessions, sess)
	}
	r.mu.Unlock()

	for _, sess := range sessions {
		_ = sess.End(ctx, reason)
	}

	deadline := time.Now().Add(shutdownDrainTimeout)
	for time.Now().Before(deadline) {
		if r.allEnded(sessions) {
			return
		}
		select {
		case <-ctx.Done():
			slog.Warn("shutdown drain cancelled with sessions still finalizing", "sessions", len(sessions))
			return
		case <-time.After(shutdownPollInterval):
		}
	}
	slog.Warn("shutdown drain timed out with sessions still finalizing", "sessions", len(sessions))
}

// EndAllForShutdown is EndAll with the server-shutdown reason.
func (r *Registry) EndAllForShutdown(ctx context.Context) {
	r.EndAll(ctx, endReasonShutdown)
}

func (r *Registry) allEnded(sessions []*Session) bool {
	for _, sess := range sessions {
		if sess.Status() != StatusEnded {
			return false
		}
	}
	return true
}
