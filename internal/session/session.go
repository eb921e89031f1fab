// Package session holds the passphrase of an unlocked vault for the lifetime
// of a process session.
//
// The passphrase lives in a memguard LockedBuffer and is only ever lent out
// through WithKey for the duration of a single call. A locked session is a
// valid state: WithKey then fails with common.ErrKeyUnavailable and callers
// must not proceed.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/awnumar/memguard"
	"github.com/dmitrijs2005/t3vo/internal/common"
)

var ErrEmptyPassphrase = errors.New("empty passphrase")

// Option configures a Session.
type Option func(*Session)

// WithAutoLock locks the session after d without any WithKey call.
// Zero or negative d disables auto-lock.
func WithAutoLock(d time.Duration) Option {
	return func(s *Session) { s.idle = d }
}

// Session is the explicit session context passed into every storage and
// crypto call. It is safe for concurrent use.
type Session struct {
	mu    sync.RWMutex
	key   *memguard.LockedBuffer
	idle  time.Duration
	timer *time.Timer
	gen   uint64

	usedMu   sync.Mutex
	lastUsed time.Time

	now func() time.Time
}

// New returns a locked session.
func New(opts ...Option) *Session {
	s := &Session{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Unlock stores passphrase as the session key. The caller's slice is wiped.
// Unlocking an unlocked session replaces the previous key.
func (s *Session) Unlock(passphrase []byte) error {
	if len(passphrase) == 0 {
		return ErrEmptyPassphrase
	}
	buf := memguard.NewBufferFromBytes(passphrase)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.destroyLocked()
	s.key = buf
	s.markUsed()
	s.armLocked()
	return nil
}

// WithKey runs fn with the raw key. fn must not retain the slice.
func (s *Session) WithKey(fn func(key []byte) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.key == nil || !s.key.IsAlive() {
		return common.ErrKeyUnavailable
	}
	s.markUsed()
	return fn(s.key.Bytes())
}

// Unlocked reports whether a key is currently held.
func (s *Session) Unlocked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key != nil && s.key.IsAlive()
}

// Lock destroys the key. Calling Lock on a locked session is a no-op.
func (s *Session) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroyLocked()
}

func (s *Session) destroyLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.key != nil {
		s.key.Destroy()
		s.key = nil
	}
}

func (s *Session) armLocked() {
	if s.idle <= 0 {
		return
	}
	gen := s.gen
	s.timer = time.AfterFunc(s.idle, func() { s.expire(gen) })
}

func (s *Session) expire(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || s.key == nil {
		return
	}

	s.usedMu.Lock()
	elapsed := s.now().Sub(s.lastUsed)
	s.usedMu.Unlock()

	if left := s.idle - elapsed; left > 0 {
		s.timer = time.AfterFunc(left, func() { s.expire(gen) })
		return
	}
	s.destroyLocked()
}

func (s *Session) markUsed() {
	s.usedMu.Lock()
	s.lastUsed = s.now()
	s.usedMu.Unlock()
}
