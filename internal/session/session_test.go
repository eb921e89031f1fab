package session

import (
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/t3vo/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keyOf(t *testing.T, s *Session) (string, error) {
	t.Helper()
	var got string
	err := s.WithKey(func(key []byte) error {
		got = string(key)
		return nil
	})
	return got, err
}

func TestSession_LockedByDefault(t *testing.T) {
	s := New()
	require.False(t, s.Unlocked())

	called := false
	err := s.WithKey(func([]byte) error { called = true; return nil })
	require.ErrorIs(t, err, common.ErrKeyUnavailable)
	require.False(t, called, "fn must not run without a key")
}

func TestSession_UnlockWipesCallerSlice(t *testing.T) {
	s := New()
	pass := []byte("correct-horse")

	require.NoError(t, s.Unlock(pass))
	assert.Equal(t, make([]byte, len("correct-horse")), pass)

	got, err := keyOf(t, s)
	require.NoError(t, err)
	assert.Equal(t, "correct-horse", got)
	assert.True(t, s.Unlocked())
}

func TestSession_EmptyPassphraseRejected(t *testing.T) {
	s := New()
	require.ErrorIs(t, s.Unlock(nil), ErrEmptyPassphrase)
	require.ErrorIs(t, s.Unlock([]byte{}), ErrEmptyPassphrase)
	require.False(t, s.Unlocked())
}

func TestSession_LockIsIdempotent(t *testing.T) {
	s := New()
	require.NoError(t, s.Unlock([]byte("k")))

	s.Lock()
	s.Lock()

	_, err := keyOf(t, s)
	require.ErrorIs(t, err, common.ErrKeyUnavailable)
}

func TestSession_UnlockReplacesKey(t *testing.T) {
	s := New()
	require.NoError(t, s.Unlock([]byte("first")))
	require.NoError(t, s.Unlock([]byte("second")))

	got, err := keyOf(t, s)
	require.NoError(t, err)
	assert.Equal(t, "second", got)
}

func TestSession_WithKeyPropagatesError(t *testing.T) {
	s := New()
	require.NoError(t, s.Unlock([]byte("k")))

	boom := errors.New("boom")
	require.ErrorIs(t, s.WithKey(func([]byte) error { return boom }), boom)
}

func TestSession_AutoLockAfterIdle(t *testing.T) {
	s := New(WithAutoLock(30 * time.Millisecond))
	require.NoError(t, s.Unlock([]byte("k")))

	require.Eventually(t, func() bool { return !s.Unlocked() }, time.Second, 5*time.Millisecond)

	_, err := keyOf(t, s)
	require.ErrorIs(t, err, common.ErrKeyUnavailable)
}

func TestSession_UseExtendsAutoLock(t *testing.T) {
	s := New(WithAutoLock(200 * time.Millisecond))
	require.NoError(t, s.Unlock([]byte("k")))

	deadline := time.Now().Add(300 * time.Millisecond)
	for time.Now().Before(deadline) {
		_, err := keyOf(t, s)
		require.NoError(t, err, "session must stay unlocked while in use")
		time.Sleep(20 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return !s.Unlocked() }, 2*time.Second, 10*time.Millisecond)
}

func TestSession_RelockDisarmsOldTimer(t *testing.T) {
	s := New(WithAutoLock(40 * time.Millisecond))
	require.NoError(t, s.Unlock([]byte("k")))
	s.Lock()
	require.NoError(t, s.Unlock([]byte("k2")))

	got, err := keyOf(t, s)
	require.NoError(t, err)
	assert.Equal(t, "k2", got)
}
