// Package session keeps interactive canvases alive between HTTP requests.
//
// A [Session] owns one [canvas.Controller]. Sessions expire after a period
// without use; every access through [Session.Do] extends the deadline.
//
// # Usage
//
//	store := session.NewMemoryStore()
//	sess, err := session.New(ctrl, time.Hour)
//	if err != nil {
//	    return err
//	}
//	store.Set(ctx, sess)
//
//	sess, err = store.Get(ctx, id)
//	if errors.Is(err, session.ErrNotFound) {
//	    // unknown or expired
//	}
//	err = sess.Do(func(c *canvas.Controller) error {
//	    return c.Handle(ev)
//	})
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/matzehuels/procflow/pkg/canvas"
)

// Sentinel errors for session operations.
var (
	// ErrNotFound is returned when a session does not exist.
	ErrNotFound = errors.New("session not found")

	// ErrExpired is returned when a session has exceeded its TTL.
	ErrExpired = errors.New("session expired")
)

// DefaultTTL is the default idle lifetime of a canvas session.
const DefaultTTL = time.Hour

// Session is one hosted canvas. All access to the controller goes through
// [Session.Do], which serializes callers the way a single UI event loop
// would.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu       sync.Mutex
	ctrl     *canvas.Controller
	ttl      time.Duration
	deadline atomic.Int64 // unix nanoseconds; zero means never
}

// New wraps ctrl in a session with a fresh random ID. A ttl of zero means
// the session never expires.
func New(ctrl *canvas.Controller, ttl time.Duration) (*Session, error) {
	id, err := GenerateID()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	s := &Session{
		ID:        id,
		CreatedAt: now,
		ctrl:      ctrl,
		ttl:       ttl,
	}
	s.touch(now)
	return s, nil
}

// Do runs fn with exclusive access to the controller and extends the
// session's deadline.
func (s *Session) Do(fn func(*canvas.Controller) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch(time.Now())
	return fn(s.ctrl)
}

// ExpiresAt returns the current deadline, or the zero time if the session
// never expires.
func (s *Session) ExpiresAt() time.Time {
	d := s.deadline.Load()
	if d == 0 {
		return time.Time{}
	}
	return time.Unix(0, d)
}

// IsExpired reports whether the session has passed its deadline at now.
func (s *Session) IsExpired(now time.Time) bool {
	exp := s.ExpiresAt()
	return !exp.IsZero() && now.After(exp)
}

func (s *Session) touch(now time.Time) {
	if s.ttl > 0 {
		s.deadline.Store(now.Add(s.ttl).UnixNano())
	}
}

// Store is the interface for session storage backends.
type Store interface {
	// Get retrieves a session by ID. It returns ErrNotFound for unknown IDs
	// and ErrExpired for sessions past their deadline, which are removed.
	Get(ctx context.Context, id string) (*Session, error)

	// Set stores a session, replacing any session with the same ID.
	Set(ctx context.Context, s *Session) error

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error

	// Cleanup removes expired sessions and returns how many were removed.
	Cleanup(ctx context.Context) (int, error)
}

// GenerateID creates a cryptographically secure random session ID.
func GenerateID() (string, error) {
	b := make([]byte, 18)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// RunCleanup calls store.Cleanup every interval until ctx is done.
func RunCleanup(ctx context.Context, store Store, interval time.Duration, onRemoved func(n int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := store.Cleanup(ctx); err == nil && n > 0 && onRemoved != nil {
				onRemoved(n)
			}
		}
	}
}
