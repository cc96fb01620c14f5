// Package session owns the process's single active session: deriving it
// from a bearer token, persisting it, and tearing it down on logout or expiry.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ibtissamelhani/induspress/internal/core/domain"
	"github.com/ibtissamelhani/induspress/internal/core/ports"
	"github.com/ibtissamelhani/induspress/internal/metrics"
)

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithVerificationKey makes the store verify HS256 signatures before
// trusting any claim.
func WithVerificationKey(secret []byte) Option {
	return func(s *Store) {
		if len(secret) > 0 {
			s.secret = secret
		}
	}
}

// Store holds at most one active session. All mutations persist or remove
// durable state under the same lock that guards the in-memory session.
type Store struct {
	mu      sync.RWMutex
	storage ports.SessionStorage
	current *domain.Session
	secret  []byte
	now     func() time.Time
	log     zerolog.Logger
	onEnd   []func(domain.Identity)
}

func NewStore(storage ports.SessionStorage, log zerolog.Logger, opts ...Option) *Store {
	s := &Store{
		storage: storage,
		now:     time.Now,
		log:     log.With().Str("component", "session").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnEnd registers fn to run whenever an active session ends, whether by
// Clear, expiry, or replacement by a different subject.
func (s *Store) OnEnd(fn func(domain.Identity)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEnd = append(s.onEnd, fn)
}

// Derive parses token into a session, verifying it when a key is configured.
func (s *Store) Derive(token string) (*domain.Session, error) {
	if s.secret != nil {
		return DeriveVerified(token, s.secret)
	}
	return Derive(token)
}

// IsExpired reports whether now is at or past the session's expiry.
func IsExpired(sess *domain.Session, now time.Time) bool {
	return sess.Expired(now)
}

// Establish makes token the active session. An invalid or expired token
// leaves any prior session untouched.
func (s *Store) Establish(ctx context.Context, token string) error {
	sess, err := s.Derive(token)
	if err != nil {
		s.log.Warn().Err(err).Msg("rejected token")
		metrics.SessionEventsTotal.WithLabelValues("rejected").Inc()
		return err
	}
	if IsExpired(sess, s.now()) {
		s.log.Warn().Str("subject", sess.Identity.SubjectID).Time("exp", sess.Identity.ExpiresAt).Msg("rejected expired token")
		metrics.SessionEventsTotal.WithLabelValues("rejected").Inc()
		return domain.NewError(domain.KindExpired, "establish session", "token expired")
	}

	identity, err := json.Marshal(sess.Identity)
	if err != nil {
		return fmt.Errorf("establish session: encode identity: %w", err)
	}

	s.mu.Lock()
	if err := s.storage.Save(ctx, token, identity); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("establish session: persist: %w", err)
	}
	prev := s.current
	s.current = sess
	hooks := s.hooksLocked(prev, sess)
	s.mu.Unlock()

	s.log.Info().
		Str("subject", sess.Identity.SubjectID).
		Str("role", sess.Identity.Role.String()).
		Time("exp", sess.Identity.ExpiresAt).
		Msg("session established")
	metrics.SessionEventsTotal.WithLabelValues("established").Inc()
	runHooks(hooks, prev)
	return nil
}

// Restore reinstates the persisted session if it is still valid. Anything
// unusable in durable storage is cleared; only storage failures are returned.
func (s *Store) Restore(ctx context.Context) error {
	token, raw, ok, err := s.storage.Load(ctx)
	if err != nil {
		return fmt.Errorf("restore session: load: %w", err)
	}
	if !ok {
		return s.clearStorage(ctx, "nothing persisted")
	}

	sess, err := s.Derive(token)
	if err != nil {
		return s.clearStorage(ctx, "persisted token invalid")
	}
	var stored domain.Identity
	if err := json.Unmarshal(raw, &stored); err != nil || !sameIdentity(stored, sess.Identity) {
		return s.clearStorage(ctx, "persisted identity does not match token")
	}
	if IsExpired(sess, s.now()) {
		return s.clearStorage(ctx, "persisted token expired")
	}

	s.mu.Lock()
	prev := s.current
	s.current = sess
	hooks := s.hooksLocked(prev, sess)
	s.mu.Unlock()

	s.log.Info().Str("subject", sess.Identity.SubjectID).Msg("session restored")
	metrics.SessionEventsTotal.WithLabelValues("restored").Inc()
	runHooks(hooks, prev)
	return nil
}

// Clear ends the active session and removes its persisted copy. Idempotent.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	if err := s.storage.Clear(ctx); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("clear session: %w", err)
	}
	prev := s.current
	s.current = nil
	hooks := s.hooksLocked(prev, nil)
	s.mu.Unlock()

	if prev != nil {
		s.log.Info().Str("subject", prev.Identity.SubjectID).Msg("session cleared")
		metrics.SessionEventsTotal.WithLabelValues("cleared").Inc()
	}
	runHooks(hooks, prev)
	return nil
}

// Current returns a copy of the active session. A session found expired is
// destroyed on access.
func (s *Store) Current(ctx context.Context) (*domain.Session, bool) {
	s.mu.RLock()
	cur := s.current
	s.mu.RUnlock()
	if cur == nil {
		return nil, false
	}
	if IsExpired(cur, s.now()) {
		s.expire(ctx, cur)
		return nil, false
	}
	cp := *cur
	return &cp, true
}

// Identity returns the active identity, if any.
func (s *Store) Identity(ctx context.Context) (domain.Identity, bool) {
	sess, ok := s.Current(ctx)
	if !ok {
		return domain.Identity{}, false
	}
	return sess.Identity, true
}

// Token returns the bearer token of the active session, or "".
func (s *Store) Token(ctx context.Context) string {
	sess, ok := s.Current(ctx)
	if !ok {
		return ""
	}
	return sess.Token
}

// Revoke ends the active session if it still carries token. Callers use it
// when the authority refuses token; a session established since with another
// token is left alone.
func (s *Store) Revoke(ctx context.Context, token string) error {
	s.mu.Lock()
	cur := s.current
	if token == "" || cur == nil || cur.Token != token {
		s.mu.Unlock()
		return nil
	}
	if err := s.storage.Clear(ctx); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("revoke session: %w", err)
	}
	s.current = nil
	hooks := s.hooksLocked(cur, nil)
	s.mu.Unlock()

	s.log.Warn().Str("subject", cur.Identity.SubjectID).Msg("session rejected by authority")
	metrics.SessionEventsTotal.WithLabelValues("revoked").Inc()
	runHooks(hooks, cur)
	return nil
}

func (s *Store) expire(ctx context.Context, seen *domain.Session) {
	s.mu.Lock()
	if s.current != seen {
		s.mu.Unlock()
		return
	}
	if err := s.storage.Clear(ctx); err != nil {
		s.log.Error().Err(err).Msg("failed to clear expired session")
	}
	s.current = nil
	hooks := s.hooksLocked(seen, nil)
	s.mu.Unlock()

	s.log.Info().Str("subject", seen.Identity.SubjectID).Msg("session expired")
	metrics.SessionEventsTotal.WithLabelValues("expired").Inc()
	runHooks(hooks, seen)
}

func (s *Store) clearStorage(ctx context.Context, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storage.Clear(ctx); err != nil {
		return fmt.Errorf("restore session: clear: %w", err)
	}
	s.log.Debug().Str("reason", reason).Msg("starting without session")
	return nil
}

// hooksLocked returns the end hooks to run when prev is replaced by next.
func (s *Store) hooksLocked(prev, next *domain.Session) []func(domain.Identity) {
	if prev == nil {
		return nil
	}
	if next != nil && next.Identity.SubjectID == prev.Identity.SubjectID {
		return nil
	}
	return append([]func(domain.Identity){}, s.onEnd...)
}

func runHooks(hooks []func(domain.Identity), prev *domain.Session) {
	for _, fn := range hooks {
		fn(prev.Identity)
	}
}

func sameIdentity(a, b domain.Identity) bool {
	return a.SubjectID == b.SubjectID &&
		a.Email == b.Email &&
		a.Role == b.Role &&
		a.FirstName == b.FirstName &&
		a.LastName == b.LastName &&
		a.ExpiresAt.Equal(b.ExpiresAt)
}
