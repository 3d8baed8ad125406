package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"fieldservice/internal/core"
)

// ErrSessionNotFound is returned for an unknown, expired or already committed token.
var ErrSessionNotFound = errors.New("reception session not found or expired")

// receptionSession is the in-memory state of one reception event. mu serialises
// edits and the commit of the same session.
type receptionSession struct {
	mu       sync.Mutex
	token    string
	operator core.Operator
	order    *core.PurchaseOrder
	editor   *core.AllocationEditor
	closed   bool

	touchedAt time.Time // guarded by the store's mutex
}

// sessionStore is a thread-safe in-memory store of reception sessions with idle expiry.
type sessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]*receptionSession
}

func newSessionStore(ttl time.Duration) *sessionStore {
	return &sessionStore{ttl: ttl, now: time.Now, sessions: make(map[string]*receptionSession)}
}

func (s *sessionStore) open(op core.Operator, po *core.PurchaseOrder, editor *core.AllocationEditor) *receptionSession {
	sess := &receptionSession{
		token:    uuid.NewString(),
		operator: op,
		order:    po,
		editor:   editor,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.touchedAt = s.now()
	s.sessions[sess.token] = sess
	return sess
}

// get returns a live session and extends its expiry.
func (s *sessionStore) get(token string) (*receptionSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return nil, ErrSessionNotFound
	}
	now := s.now()
	if now.Sub(sess.touchedAt) > s.ttl {
		delete(s.sessions, token)
		return nil, ErrSessionNotFound
	}
	sess.touchedAt = now
	return sess, nil
}

func (s *sessionStore) expiresAt(sess *receptionSession) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sess.touchedAt.Add(s.ttl)
}

func (s *sessionStore) delete(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[token]
	delete(s.sessions, token)
	return ok
}

func (s *sessionStore) purgeExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for token, sess := range s.sessions {
		if now.Sub(sess.touchedAt) > s.ttl {
			delete(s.sessions, token)
			n++
		}
	}
	return n
}

// startPurge starts a background goroutine that evicts expired sessions every minute.
func (s *sessionStore) startPurge(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.purgeExpired()
			}
		}
	}()
}
